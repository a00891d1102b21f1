// apiclient — аутентифицированный клиент REST API школьной платформы.
//
// Каждый вызов:
//  1. берёт текущий access-токен из credentials.Store (нет токена — запрос
//     уходит без Authorization, это штатный режим для публичных эндпойнтов);
//  2. отправляет JSON-тело с Content-Type: application/json и cookie;
//  3. на 2xx возвращает разобранное тело;
//  4. на 401 с признаком аутентификации обновляет токен (один обмен на всех
//     конкурентных вызывающих) и повторяет исходный запрос ровно один раз;
//  5. остальные ответы превращает в *HTTPError, транспортные сбои — в *NetworkError.
//
// Client безопасен для конкурентного использования.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pribylovaa/school-admin/internal/apiclient/transport"
	"github.com/pribylovaa/school-admin/internal/credentials"
	"github.com/pribylovaa/school-admin/internal/models"
	"github.com/pribylovaa/school-admin/internal/pkg/log"
	"github.com/pribylovaa/school-admin/internal/pkg/redact"
)

// maxBodyBytes — предел читаемого тела ответа.
const maxBodyBytes = 32 << 20

// Client — аутентифицированный клиент API.
type Client struct {
	cfg     Config
	base    *url.URL
	store   credentials.Store
	http    *http.Client
	log     *slog.Logger
	metrics *Metrics
	now     func() time.Time

	refreshes singleflight.Group
}

// Option — функциональная опция клиента.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient    *http.Client
	baseTransport http.RoundTripper
	logger        *slog.Logger
	metrics       *Metrics
	now           func() time.Time
}

// WithHTTPClient задаёт готовый *http.Client целиком (цепочка transport не навешивается).
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithBaseTransport задаёт RoundTripper под цепочкой metadata -> logging.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.baseTransport = rt }
}

// WithLogger задаёт логгер клиента.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithMetrics включает метрики Prometheus.
func WithMetrics(m *Metrics) Option {
	return func(o *clientOptions) { o.metrics = m }
}

// WithClock подменяет источник времени (расчёт сроков жизни токенов).
func WithClock(now func() time.Time) Option {
	return func(o *clientOptions) { o.now = now }
}

// New создаёт клиент.
func New(cfg Config, store credentials.Store, opts ...Option) (*Client, error) {
	const op = "apiclient.New"

	if store == nil {
		return nil, fmt.Errorf("%s: %w: nil credentials store", op, ErrInvalidConfig)
	}

	base, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}

	if o.now == nil {
		o.now = time.Now
	}

	hc := o.httpClient
	if hc == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("%s: cookie jar: %w", op, err)
		}

		// Цепочка исходящих мидлваров: metadata -> logging.
		hc = &http.Client{
			Jar: jar,
			Transport: transport.Chain(o.baseTransport,
				transport.WithMetadata(cfg.UserAgent),
				transport.WithLogging(o.logger),
			),
		}
	}

	return &Client{
		cfg:     cfg.withDefaults(),
		base:    base,
		store:   store,
		http:    hc,
		log:     o.logger,
		metrics: o.metrics,
		now:     o.now,
	}, nil
}

// Request выполняет запрос и возвращает разобранное тело ответа:
// JSON-значение (map[string]any, []any, string, float64, bool), сырой текст,
// если тело не JSON, или nil для пустого тела.
func (c *Client) Request(ctx context.Context, method, path string, body any) (any, error) {
	resp, err := c.roundTrip(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	return resp.value, nil
}

// Do выполняет запрос и декодирует тело ответа в out.
// out == nil или пустое тело — декодирование пропускается.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	const op = "apiclient.Do"

	resp, err := c.roundTrip(ctx, method, path, body)
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(resp.raw)) == 0 {
		return nil
	}

	if err := json.Unmarshal(resp.raw, out); err != nil {
		return fmt.Errorf("%s: %s %s: %w: %w", op, method, path, ErrDecode, err)
	}

	return nil
}

// Login обменивает логин/пароль на пару токенов и сохраняет её.
func (c *Client) Login(ctx context.Context, username, password string) error {
	const op = "apiclient.Login"

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	lg := log.FromOr(ctx, c.log)

	payload, err := json.Marshal(models.LoginRequest{Username: username, Password: password})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.execute(ctx, http.MethodPost, c.cfg.LoginPath, payload, "")
	if err != nil {
		return err
	}

	if !resp.successful() {
		lg.Warn("login_rejected",
			slog.String("op", op),
			slog.String("username", redact.Username(username)),
			slog.Int("status", resp.status),
		)
		return resp.httpError()
	}

	var pair models.TokenPair
	if err := json.Unmarshal(resp.raw, &pair); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrDecode, err)
	}

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return fmt.Errorf("%s: %w: token pair is incomplete", op, ErrDecode)
	}

	if err := c.store.SetPair(ctx, c.cfg.Expiry.Credentials(pair, c.now())); err != nil {
		return fmt.Errorf("%s: save credentials: %w", op, err)
	}

	lg.Info("login_succeeded", slog.String("username", redact.Username(username)))

	return nil
}

// Logout удаляет сохранённые токены.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("apiclient.Logout: %w", err)
	}

	return nil
}

// roundTrip — полный цикл: запрос -> (401: обновление -> один повтор).
func (c *Client) roundTrip(ctx context.Context, method, path string, body any) (*response, error) {
	const op = "apiclient.roundTrip"

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	method = strings.ToUpper(method)

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", op, err)
		}
		payload = b
	}

	token, err := c.store.AccessToken(ctx)
	if err != nil {
		// Недоступное хранилище равносильно отсутствию токена: запрос уйдёт
		// без Authorization, а 401 пойдёт по пути обновления.
		log.FromOr(ctx, c.log).Warn("access_token_read_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		token = ""
	}

	resp, err := c.execute(ctx, method, path, payload, token)
	if err != nil {
		return nil, err
	}

	if c.accepted(resp) {
		return resp, nil
	}

	if !c.authSignal(resp) {
		return nil, resp.httpError()
	}

	log.FromOr(ctx, c.log).Debug("auth_required",
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path),
		slog.String("token", redact.Token(token)),
	)

	fresh, err := c.refresh(ctx, token)
	if err != nil {
		// Отмена/дедлайн вызывающего — транспортная ошибка, а не отказ в доступе.
		if ctx.Err() != nil && isContextErr(err) {
			return nil, &NetworkError{Method: method, Path: path, Err: err}
		}

		return nil, &AuthError{Err: err}
	}

	// Повтор ровно один раз; его результат окончательный.
	resp, err = c.execute(ctx, method, path, payload, fresh)
	if err != nil {
		return nil, err
	}

	if c.accepted(resp) {
		return resp, nil
	}

	if c.authSignal(resp) {
		return nil, &AuthError{Err: resp.httpError()}
	}

	return nil, resp.httpError()
}

// accepted — 2xx, либо 304 при включённом NotModifiedAsEmpty (тело подменяется на {}).
func (c *Client) accepted(resp *response) bool {
	if resp.successful() {
		return true
	}

	if resp.status == http.StatusNotModified && c.cfg.NotModifiedAsEmpty {
		resp.raw = []byte("{}")
		resp.value = map[string]any{}
		return true
	}

	return false
}

// execute отправляет один HTTP-запрос без какой-либо логики повторов.
func (c *Client) execute(ctx context.Context, method, path string, payload []byte, token string) (*response, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("apiclient.execute: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()

	httpResp, err := c.http.Do(req)
	if err != nil {
		c.metrics.observeRequest(method, 0, time.Since(start))
		return nil, &NetworkError{Method: method, Path: path, Err: err}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		c.metrics.observeRequest(method, 0, time.Since(start))
		return nil, &NetworkError{Method: method, Path: path, Err: fmt.Errorf("read body: %w", err)}
	}

	c.metrics.observeRequest(method, httpResp.StatusCode, time.Since(start))

	return newResponse(httpResp.StatusCode, httpResp.Status, raw), nil
}

// resolve склеивает базовый адрес и относительный путь (с query, если есть).
func (c *Client) resolve(path string) (string, error) {
	rel, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("apiclient.resolve: %q: %w", path, err)
	}

	if rel.IsAbs() || rel.Host != "" {
		return "", fmt.Errorf("apiclient.resolve: %w: path %q must be relative", ErrInvalidConfig, path)
	}

	u := *c.base
	u.Path = c.base.Path + "/" + strings.TrimLeft(rel.Path, "/")
	u.RawPath = ""
	u.RawQuery = rel.RawQuery

	return u.String(), nil
}

// withTimeout навешивает RequestTimeout, если у контекста ещё нет дедлайна.
// Существующий дедлайн не переопределяется; RequestTimeout <= 0 — no-op.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.RequestTimeout <= 0 {
		return ctx, func() {}
	}

	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, c.cfg.RequestTimeout)
}

// isContextErr — ошибка вызвана отменой/дедлайном контекста.
func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
