package devapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/school-admin/internal/devapi/auth"
	"github.com/pribylovaa/school-admin/internal/devapi/store"
	apierrors "github.com/pribylovaa/school-admin/internal/errors"
	"github.com/pribylovaa/school-admin/internal/models"
	"github.com/pribylovaa/school-admin/internal/pkg/log"
)

const defaultPageSize = 20

// Handlers агрегирует зависимости dev API.
type Handlers struct {
	Auth *auth.Service
}

// writeJSON — единый ответ JSON с нужным Content-Type.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func decode(r *http.Request, value any) error {
	return json.NewDecoder(r.Body).Decode(value)
}

func writeParseError(w http.ResponseWriter, r *http.Request) {
	apierrors.WriteError(w, r, http.StatusBadRequest, "JSON parse error", "parse_error")
}

// Login — POST /api/token/.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := decode(r, &in); err != nil {
		writeParseError(w, r)
		return
	}

	pair, err := h.Auth.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			apierrors.WriteError(w, r, http.StatusUnauthorized,
				"No active account found with the given credentials", "no_active_account")
			return
		}

		apierrors.WriteErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// Refresh — POST /api/token/refresh/.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var in models.RefreshRequest
	if err := decode(r, &in); err != nil {
		writeParseError(w, r)
		return
	}

	if in.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"refresh": {"This field is required."}})
		return
	}

	out, err := h.Auth.Refresh(r.Context(), in.Refresh)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrTokenExpired) || errors.Is(err, auth.ErrTokenRevoked) {
			apierrors.WriteError(w, r, http.StatusUnauthorized, "Token is invalid or expired", "token_not_valid")
			return
		}

		apierrors.WriteErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// collectionHandlers — REST над одной коллекцией.
type collectionHandlers struct {
	c     *store.Collection
	style Envelope
}

func (ch *collectionHandlers) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if ch.style == EnvelopeArray || ch.style == EnvelopeData {
		items, _ := ch.c.List(0, 0)
		writeJSON(w, http.StatusOK, ch.style.render(items, len(items)))
		return
	}

	page := positiveInt(q.Get("page"), 1)
	size := positiveInt(q.Get("page_size"), defaultPageSize)

	items, total := ch.c.List((page-1)*size, size)
	if page > 1 && len(items) == 0 {
		apierrors.WriteError(w, r, http.StatusNotFound, "Invalid page.", "not_found")
		return
	}

	writeJSON(w, http.StatusOK, ch.style.render(items, total))
}

func (ch *collectionHandlers) create(w http.ResponseWriter, r *http.Request) {
	var in store.Record
	if err := decode(r, &in); err != nil || in == nil {
		writeParseError(w, r)
		return
	}

	rec, err := ch.c.Create(in)
	if err != nil {
		ch.writeStoreErr(w, r, err)
		return
	}

	log.From(r.Context()).Info("record_created",
		slog.String("collection", ch.c.Name()),
		slog.Any("id", rec["id"]),
	)
	writeJSON(w, http.StatusCreated, rec)
}

func (ch *collectionHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	rec, err := ch.c.Get(id)
	if err != nil {
		ch.writeStoreErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (ch *collectionHandlers) replace(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	var in store.Record
	if err := decode(r, &in); err != nil || in == nil {
		writeParseError(w, r)
		return
	}

	rec, err := ch.c.Replace(id, in)
	if err != nil {
		ch.writeStoreErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (ch *collectionHandlers) patch(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	var in store.Record
	if err := decode(r, &in); err != nil {
		writeParseError(w, r)
		return
	}

	rec, err := ch.c.Merge(id, in)
	if err != nil {
		ch.writeStoreErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (ch *collectionHandlers) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	if err := ch.c.Delete(id); err != nil {
		ch.writeStoreErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (ch *collectionHandlers) writeStoreErr(w http.ResponseWriter, r *http.Request, err error) {
	var ve *store.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ve.Fields)
	case errors.Is(err, store.ErrNotFound):
		apierrors.WriteError(w, r, http.StatusNotFound, "No "+ch.c.Name()+" matches the given query.", "not_found")
	default:
		apierrors.WriteErr(w, r, err)
	}
}

func recordID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		apierrors.WriteError(w, r, http.StatusNotFound, "Not found.", "not_found")
		return 0, false
	}

	return id, true
}

func positiveInt(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
