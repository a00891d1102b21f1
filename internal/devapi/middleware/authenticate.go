package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/pribylovaa/school-admin/internal/errors"
	"github.com/pribylovaa/school-admin/internal/pkg/log"
)

// Тела 401 в том виде, в каком их отдаёт бэкенд школы (DRF + simplejwt).
const (
	DetailNotAuthenticated = "Authentication credentials were not provided."
	CodeNotAuthenticated   = "not_authenticated"
	DetailTokenNotValid    = "Given token not valid for any token type"
	CodeTokenNotValid      = "token_not_valid"
)

type ctxKey string

const ctxUser ctxKey = "user"

// TokenValidator проверяет access-токен и возвращает имя пользователя.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// User возвращает имя аутентифицированного пользователя из контекста.
func User(ctx context.Context) string {
	u, _ := ctx.Value(ctxUser).(string)
	return u
}

// Authenticate требует заголовок Authorization: Bearer <access>.
//   - заголовка нет или он не Bearer — 401 not_authenticated;
//   - токен не прошёл проверку — 401 token_not_valid.
func Authenticate(v TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const prefix = "Bearer "

			auth := r.Header.Get("Authorization")
			token := ""
			if strings.HasPrefix(auth, prefix) {
				token = strings.TrimSpace(auth[len(prefix):])
			}

			if token == "" {
				apierrors.WriteError(w, r, http.StatusUnauthorized, DetailNotAuthenticated, CodeNotAuthenticated)
				return
			}

			user, err := v.Validate(token)
			if err != nil {
				log.From(r.Context()).Debug("access_token_rejected", slog.String("err", err.Error()))
				apierrors.WriteError(w, r, http.StatusUnauthorized, DetailTokenNotValid, CodeTokenNotValid)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUser, user)))
		})
	}
}
