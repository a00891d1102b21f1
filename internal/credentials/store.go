// credentials хранит пару access/refresh токенов клиента.
//
// Хранилище — единственный источник «текущего» access-токена процесса.
// Все реализации безопасны для конкурентного использования: записи
// сериализуются, а истёкшие значения читаются как пустые (как cookie
// с истёкшим сроком).
package credentials

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pribylovaa/school-admin/internal/models"
)

//go:generate mockgen -destination=../../mocks/credentials_store.go -package=mocks github.com/pribylovaa/school-admin/internal/credentials Store

// Store — контракт хранилища учётных данных.
type Store interface {
	// AccessToken возвращает текущий access-токен или "" при отсутствии/истечении.
	AccessToken(ctx context.Context) (string, error)
	// RefreshToken возвращает refresh-токен или "" при отсутствии/истечении.
	RefreshToken(ctx context.Context) (string, error)
	// SetAccessToken атомарно заменяет access-токен, refresh не трогает.
	SetAccessToken(ctx context.Context, token string, expiresAt time.Time) error
	// SetPair сохраняет пару целиком (вход в систему).
	SetPair(ctx context.Context, creds models.Credentials) error
	// Clear удаляет оба токена (выход).
	Clear(ctx context.Context) error
}

// ErrUnknownBackend — в конфигурации указан неизвестный тип хранилища.
var ErrUnknownBackend = errors.New("unknown credentials backend")

// ExpiryPolicy — политика сроков жизни токенов.
// AccessTTL используется, когда срок нельзя прочитать из самого токена.
type ExpiryPolicy struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// DefaultExpiryPolicy — короткий access и refresh на 7 дней.
func DefaultExpiryPolicy() ExpiryPolicy {
	return ExpiryPolicy{
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
}

// AccessExpiry вычисляет момент истечения access-токена.
// Если токен — JWT с claim exp, берётся он (подпись не проверяется:
// клиент не владеет секретом, ему нужен только срок). Иначе now+AccessTTL.
// Нулевой AccessTTL без exp в токене означает «без срока».
func (p ExpiryPolicy) AccessExpiry(token string, now time.Time) time.Time {
	if exp, ok := jwtExpiry(token); ok {
		return exp
	}

	if p.AccessTTL <= 0 {
		return time.Time{}
	}

	return now.Add(p.AccessTTL)
}

// RefreshExpiry вычисляет момент истечения refresh-токена.
func (p ExpiryPolicy) RefreshExpiry(token string, now time.Time) time.Time {
	if exp, ok := jwtExpiry(token); ok {
		return exp
	}

	if p.RefreshTTL <= 0 {
		return time.Time{}
	}

	return now.Add(p.RefreshTTL)
}

// Credentials собирает запись хранилища из выданной пары.
func (p ExpiryPolicy) Credentials(pair models.TokenPair, now time.Time) models.Credentials {
	return models.Credentials{
		AccessToken:      pair.AccessToken,
		AccessExpiresAt:  p.AccessExpiry(pair.AccessToken, now),
		RefreshToken:     pair.RefreshToken,
		RefreshExpiresAt: p.RefreshExpiry(pair.RefreshToken, now),
	}
}

func jwtExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}

	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}

	return claims.ExpiresAt.UTC(), true
}
