package credentials

import (
	"context"
	"fmt"
)

// Backend — тип хранилища из конфигурации.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendFile   Backend = "file"
	BackendRedis  Backend = "redis"
)

// Options — параметры открытия хранилища.
type Options struct {
	Backend     Backend
	FilePath    string
	RedisURL    string
	RedisPrefix string
	Session     string
}

// Open создаёт хранилище выбранного типа. Возвращаемая функция закрывает
// внешние ресурсы (для memory/file — no-op).
func Open(ctx context.Context, opts Options) (Store, func() error, error) {
	const op = "credentials.Open"

	noop := func() error { return nil }

	switch opts.Backend {
	case BackendMemory:
		return NewMemory(), noop, nil
	case BackendFile, "":
		f, err := NewFile(opts.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		return f, noop, nil
	case BackendRedis:
		r, err := NewRedis(ctx, opts.RedisURL, opts.RedisPrefix, opts.Session)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		return r, r.Close, nil
	default:
		return nil, nil, fmt.Errorf("%s: %q: %w", op, opts.Backend, ErrUnknownBackend)
	}
}
