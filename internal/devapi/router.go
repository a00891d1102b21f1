// devapi — локальный стенд бэкенда школы: выдача токенов в стиле simplejwt
// и in-memory коллекции административной панели. Используется для работы
// schoolctl без настоящего бэкенда и для сквозных тестов apiclient.
package devapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pribylovaa/school-admin/internal/apiclient/transport"
	"github.com/pribylovaa/school-admin/internal/devapi/auth"
	"github.com/pribylovaa/school-admin/internal/devapi/middleware"
	"github.com/pribylovaa/school-admin/internal/devapi/store"
	apierrors "github.com/pribylovaa/school-admin/internal/errors"
	"github.com/pribylovaa/school-admin/internal/resources"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	Auth    *auth.Service
	// Registerer — куда регистрировать метрики; nil — без метрик.
	Registerer prometheus.Registerer
	// Collections — коллекции по пути; nil — NewCollections(true).
	Collections map[string]*store.Collection
	// CORSOrigins — origin'ы браузерной админки; пусто — CORS выключен.
	CORSOrigins []string
}

// collectionSpec — путь, обязательные поля и форма списка коллекции.
type collectionSpec struct {
	path     string
	required []string
	style    Envelope
}

var collectionSpecs = []collectionSpec{
	{path: resources.PathFeeDiscounts, required: []string{"name", "discount_type", "value"}, style: EnvelopeNested},
	{path: resources.PathFeeStructures, required: []string{"name", "class_name", "academic_year", "amount"}, style: EnvelopePaginated},
	{path: resources.PathFines, required: []string{"name", "fee_structure", "amount_per_day"}, style: EnvelopeArray},
	{path: resources.PathExams, required: []string{"name", "class_name", "subject", "date"}, style: EnvelopePaginated},
	{path: resources.PathGroups, required: []string{"name"}, style: EnvelopeArray},
	{path: resources.PathPermissions, required: []string{"name", "codename"}, style: EnvelopeData},
}

// NewCollections создаёт все коллекции; seed — заполнить демонстрационными данными.
func NewCollections(seed bool) map[string]*store.Collection {
	out := make(map[string]*store.Collection, len(collectionSpecs))
	for _, spec := range collectionSpecs {
		out[spec.path] = store.NewCollection(strings.Trim(spec.path, "/"), spec.required...)
	}

	if seed {
		seedCollections(out)
	}

	return out
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(opts Options) (http.Handler, error) {
	if opts.Auth == nil {
		return nil, fmt.Errorf("devapi.NewRouter: nil auth service")
	}

	if opts.Collections == nil {
		opts.Collections = NewCollections(true)
	}

	root := chi.NewRouter()

	if len(opts.CORSOrigins) > 0 {
		root.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", transport.HeaderRequestID},
			ExposedHeaders:   []string{transport.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           60 * 15,
		}))
	}

	// Метрикам нужен шаблон маршрута chi, поэтому они внутри роутера.
	if opts.Registerer != nil {
		root.Use(middleware.Metrics(opts.Registerer))
	}
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, r, http.StatusNotFound, "Not found.", "not_found")
	})
	root.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, r, http.StatusMethodNotAllowed,
			fmt.Sprintf("Method %q not allowed.", r.Method), "method_not_allowed")
	})

	h := &Handlers{Auth: opts.Auth}

	// Публичные эндпойнты токенов.
	root.Post("/api/token/", h.Login)
	root.Post("/api/token/refresh/", h.Refresh)

	// Коллекции — только с валидным access-токеном.
	root.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.Auth))

		for _, spec := range collectionSpecs {
			c, ok := opts.Collections[spec.path]
			if !ok {
				continue
			}
			registerCollection(r, spec.path, &collectionHandlers{c: c, style: spec.style})
		}
	})

	// Внешние мидлвары (внешний -> внутренний); request id до логирования.
	return middleware.Chain(root,
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
	), nil
}

// registerCollection — list/create на "<path>", get/put/patch/delete на "<path>{id}/".
func registerCollection(r chi.Router, path string, ch *collectionHandlers) {
	r.Get(path, ch.list)
	r.Post(path, ch.create)
	r.Get(path+"{id}/", ch.get)
	r.Put(path+"{id}/", ch.replace)
	r.Patch(path+"{id}/", ch.patch)
	r.Delete(path+"{id}/", ch.remove)
}
