// config - источник загрузки конфигурации для schoolctl и dev API.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/pribylovaa/school-admin/internal/apiclient"
	"github.com/pribylovaa/school-admin/internal/credentials"
)

type Config struct {
	Env         string            `yaml:"env" env:"ENV" env-default:"local"`
	API         APIConfig         `yaml:"api"`
	Timeouts    TimeoutConfig     `yaml:"timeouts"`
	Credentials CredentialsConfig `yaml:"credentials"`
	DevAPI      DevAPIConfig      `yaml:"dev_api"`
}

// APIConfig — бэкенд школы и правила распознавания ответов.
type APIConfig struct {
	BaseURL     string `yaml:"base_url"     env:"API_BASE_URL"     env-default:"http://127.0.0.1:8000"`
	RefreshPath string `yaml:"refresh_path" env:"API_REFRESH_PATH" env-default:"/api/token/refresh/"`
	LoginPath   string `yaml:"login_path"   env:"API_LOGIN_PATH"   env-default:"/api/token/"`
	UserAgent   string `yaml:"user_agent"   env:"API_USER_AGENT"   env-default:"schoolctl"`

	// 304 — успех с пустым объектом. Без env-default: cleanenv подставляет
	// значение по умолчанию поверх нулевого, и false из файла потерялся бы.
	NotModifiedAsEmpty bool `yaml:"not_modified_as_empty" env:"API_NOT_MODIFIED_AS_EMPTY"`

	AuthErrorCodes    []string `yaml:"auth_error_codes"    env:"API_AUTH_ERROR_CODES" env-default:"token_not_valid,not_authenticated,authentication_failed"`
	AuthMessageSignal string   `yaml:"auth_message_signal" env:"API_AUTH_MESSAGE_SIGNAL" env-default:"authentication credentials"`
}

// TimeoutConfig — таймауты клиента.
type TimeoutConfig struct {
	Request time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"15s"`
	Refresh time.Duration `yaml:"refresh" env:"REFRESH_TIMEOUT" env-default:"10s"`
}

// CredentialsConfig — где хранятся токены клиента.
type CredentialsConfig struct {
	Backend     string        `yaml:"backend"      env:"CREDENTIALS_BACKEND" env-default:"file"`
	FilePath    string        `yaml:"file_path"    env:"CREDENTIALS_FILE"`
	RedisURL    string        `yaml:"redis_url"    env:"REDIS_URL"    env-default:"redis://127.0.0.1:6379/0"`
	RedisPrefix string        `yaml:"redis_prefix" env:"REDIS_PREFIX" env-default:"schooladmin:creds:"`
	Session     string        `yaml:"session"      env:"CREDENTIALS_SESSION" env-default:"default"`
	AccessTTL   time.Duration `yaml:"access_ttl"   env:"CREDENTIALS_ACCESS_TTL"  env-default:"15m"`
	RefreshTTL  time.Duration `yaml:"refresh_ttl"  env:"CREDENTIALS_REFRESH_TTL" env-default:"168h"`
}

// Path возвращает путь файла учётных данных; по умолчанию
// <UserConfigDir>/schoolctl/credentials.json.
func (c CredentialsConfig) Path() string {
	if c.FilePath != "" {
		return c.FilePath
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}

	return filepath.Join(dir, "schoolctl", "credentials.json")
}

// StoreOptions — параметры для credentials.Open.
func (c CredentialsConfig) StoreOptions() credentials.Options {
	return credentials.Options{
		Backend:     credentials.Backend(c.Backend),
		FilePath:    c.Path(),
		RedisURL:    c.RedisURL,
		RedisPrefix: c.RedisPrefix,
		Session:     c.Session,
	}
}

// DevAPIConfig — локальный сервер, имитирующий бэкенд школы.
type DevAPIConfig struct {
	Host          string        `yaml:"host"           env:"DEV_API_HOST"           env-default:"127.0.0.1"`
	Port          string        `yaml:"port"           env:"DEV_API_PORT"           env-default:"8000"`
	JWTSecret     string        `yaml:"jwt_secret"     env:"DEV_API_JWT_SECRET"     env-default:"dev-secret-change-me"`
	AccessTTL     time.Duration `yaml:"access_ttl"     env:"DEV_API_ACCESS_TTL"     env-default:"5m"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl"    env:"DEV_API_REFRESH_TTL"    env-default:"168h"`
	AdminUsername string        `yaml:"admin_username" env:"DEV_API_ADMIN_USERNAME" env-default:"admin"`
	AdminPassword string        `yaml:"admin_password" env:"DEV_API_ADMIN_PASSWORD" env-default:"admin"`
	Timeout       time.Duration `yaml:"timeout"        env:"DEV_API_TIMEOUT"        env-default:"15s"`
	CORSOrigins   []string      `yaml:"cors_origins"   env:"DEV_API_CORS_ORIGINS"   env-default:"http://localhost:3000,http://127.0.0.1:3000"`
}

func (d DevAPIConfig) Addr() string { return net.JoinHostPort(d.Host, d.Port) }

// ClientConfig собирает конфигурацию apiclient.
func (c *Config) ClientConfig() apiclient.Config {
	return apiclient.Config{
		BaseURL:            c.API.BaseURL,
		RefreshPath:        c.API.RefreshPath,
		LoginPath:          c.API.LoginPath,
		UserAgent:          c.API.UserAgent,
		RequestTimeout:     c.Timeouts.Request,
		RefreshTimeout:     c.Timeouts.Refresh,
		NotModifiedAsEmpty: c.API.NotModifiedAsEmpty,
		AuthErrorCodes:     c.API.AuthErrorCodes,
		AuthMessageSignal:  c.API.AuthMessageSignal,
		Expiry: credentials.ExpiryPolicy{
			AccessTTL:  c.Credentials.AccessTTL,
			RefreshTTL: c.Credentials.RefreshTTL,
		},
	}
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}
	return &cfg, nil
}
