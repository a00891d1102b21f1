package apiclient

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pribylovaa/school-admin/internal/credentials"
)

const (
	defaultRefreshPath    = "/api/token/refresh/"
	defaultLoginPath      = "/api/token/"
	defaultRequestTimeout = 15 * time.Second
	defaultRefreshTimeout = 10 * time.Second
	defaultAuthSignal     = "authentication credentials"
)

// DefaultAuthErrorCodes — машиночитаемые коды 401, по которым клиент
// пытается обновить токен (коды DRF и simplejwt).
var DefaultAuthErrorCodes = []string{"token_not_valid", "not_authenticated", "authentication_failed"}

// Config — параметры клиента.
type Config struct {
	// BaseURL — адрес бэкенда; пути запросов относительны ему.
	BaseURL string
	// RefreshPath — эндпойнт обмена refresh на access.
	RefreshPath string
	// LoginPath — эндпойнт выдачи пары токенов по логину/паролю.
	LoginPath string
	// UserAgent — значение заголовка User-Agent (пусто — не задаётся).
	UserAgent string

	// RequestTimeout — дедлайн одного вызова Request/Do (включая обновление
	// и повтор), если у контекста вызывающего дедлайна нет.
	// 0 — defaultRequestTimeout, < 0 — без таймаута.
	RequestTimeout time.Duration
	// RefreshTimeout — дедлайн обновления токена.
	RefreshTimeout time.Duration

	// NotModifiedAsEmpty — трактовать 304 как успех с пустым объектом {}.
	// Иначе 304 — это *HTTPError.
	NotModifiedAsEmpty bool

	// AuthErrorCodes — значения поля code в теле 401, означающие
	// «нужен новый access-токен». nil — DefaultAuthErrorCodes.
	AuthErrorCodes []string
	// AuthMessageSignal — подстрока detail/message (без учёта регистра),
	// используемая, когда сервер не прислал code. "-" отключает проверку.
	AuthMessageSignal string

	// Expiry — политика сроков жизни сохраняемых токенов.
	Expiry credentials.ExpiryPolicy
}

func (c Config) withDefaults() Config {
	if c.RefreshPath == "" {
		c.RefreshPath = defaultRefreshPath
	}

	if c.LoginPath == "" {
		c.LoginPath = defaultLoginPath
	}

	if c.RequestTimeout == 0 {
		c.RequestTimeout = defaultRequestTimeout
	}

	if c.RefreshTimeout <= 0 {
		c.RefreshTimeout = defaultRefreshTimeout
	}

	if c.AuthErrorCodes == nil {
		c.AuthErrorCodes = DefaultAuthErrorCodes
	}

	switch c.AuthMessageSignal {
	case "":
		c.AuthMessageSignal = defaultAuthSignal
	case "-":
		c.AuthMessageSignal = ""
	}

	if c.Expiry == (credentials.ExpiryPolicy{}) {
		c.Expiry = credentials.DefaultExpiryPolicy()
	}

	return c
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty base url", ErrInvalidConfig)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %w", ErrInvalidConfig, err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: base url %q must be absolute http(s)", ErrInvalidConfig, raw)
	}

	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""

	return u, nil
}
