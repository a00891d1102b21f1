package credentials

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/school-admin/internal/models"
)

// Redis хранит учётные данные в Redis Hash, чтобы несколько процессов
// (например, воркеры отчётов) работали с одной сессией.
//
// Поля: acc, acc_exp, ref, ref_exp (unix, 0 — без срока).
// TTL ключа равен сроку жизни refresh-токена.
type Redis struct {
	rdb *redis.Client
	key string
	now func() time.Time
}

// NewRedis создаёт хранилище из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "schooladmin:creds:".
func NewRedis(ctx context.Context, redisURL, prefix, session string) (*Redis, error) {
	const op = "credentials.NewRedis"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return NewRedisFromClient(rdb, prefix, session), nil
}

// NewRedisFromClient оборачивает готовый клиент.
func NewRedisFromClient(rdb *redis.Client, prefix, session string) *Redis {
	if prefix == "" {
		prefix = "schooladmin:creds:"
	}

	if session == "" {
		session = "default"
	}

	return &Redis{rdb: rdb, key: prefix + session, now: time.Now}
}

func (r *Redis) AccessToken(ctx context.Context) (string, error) {
	creds, err := r.load(ctx)
	if err != nil {
		return "", fmt.Errorf("credentials.Redis.AccessToken: %w", err)
	}

	return creds.Access(r.now()), nil
}

func (r *Redis) RefreshToken(ctx context.Context) (string, error) {
	creds, err := r.load(ctx)
	if err != nil {
		return "", fmt.Errorf("credentials.Redis.RefreshToken: %w", err)
	}

	return creds.Refresh(r.now()), nil
}

// SetAccessToken пишет только поля access; HSET атомарен, TTL ключа не меняется.
func (r *Redis) SetAccessToken(ctx context.Context, token string, expiresAt time.Time) error {
	err := r.rdb.HSet(ctx, r.key, map[string]string{
		"acc":     token,
		"acc_exp": unixOrZero(expiresAt),
	}).Err()
	if err != nil {
		return fmt.Errorf("credentials.Redis.SetAccessToken: %w", err)
	}

	return nil
}

func (r *Redis) SetPair(ctx context.Context, creds models.Credentials) error {
	kv := map[string]string{
		"acc":     creds.AccessToken,
		"acc_exp": unixOrZero(creds.AccessExpiresAt),
		"ref":     creds.RefreshToken,
		"ref_exp": unixOrZero(creds.RefreshExpiresAt),
	}

	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, r.key)
	pipe.HSet(ctx, r.key, kv)
	if !creds.RefreshExpiresAt.IsZero() {
		pipe.ExpireAt(ctx, r.key, creds.RefreshExpiresAt)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("credentials.Redis.SetPair: %w", err)
	}

	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("credentials.Redis.Clear: %w", err)
	}

	return nil
}

// Close закрывает клиент Redis.
func (r *Redis) Close() error { return r.rdb.Close() }

func (r *Redis) load(ctx context.Context) (models.Credentials, error) {
	var creds models.Credentials

	m, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return creds, err
	}

	if len(m) == 0 {
		return creds, nil
	}

	accExp, err := parseUnix(m["acc_exp"])
	if err != nil {
		return creds, fmt.Errorf("acc_exp: %w", err)
	}

	refExp, err := parseUnix(m["ref_exp"])
	if err != nil {
		return creds, fmt.Errorf("ref_exp: %w", err)
	}

	creds.AccessToken = m["acc"]
	creds.AccessExpiresAt = accExp
	creds.RefreshToken = m["ref"]
	creds.RefreshExpiresAt = refExp

	return creds, nil
}

func unixOrZero(t time.Time) string {
	if t.IsZero() {
		return "0"
	}

	return strconv.FormatInt(t.Unix(), 10)
}

func parseUnix(s string) (time.Time, error) {
	if s == "" || s == "0" {
		return time.Time{}, nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}

	return time.Unix(n, 0).UTC(), nil
}
