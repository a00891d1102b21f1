package models

import "time"

// TokenPair — пара токенов, выдаваемая при входе.
//
//   - AccessToken — короткоживущий bearer-токен для запросов к API;
//   - RefreshToken — долгоживущий секрет, который обменивается на новый access.
type TokenPair struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

// Credentials — содержимое хранилища учётных данных вместе со сроками жизни.
// Нулевое время означает «срок не задан».
type Credentials struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Access возвращает access-токен, если он не истёк к моменту now.
func (c Credentials) Access(now time.Time) string {
	if c.AccessToken == "" || expired(c.AccessExpiresAt, now) {
		return ""
	}

	return c.AccessToken
}

// Refresh возвращает refresh-токен, если он не истёк к моменту now.
func (c Credentials) Refresh(now time.Time) string {
	if c.RefreshToken == "" || expired(c.RefreshExpiresAt, now) {
		return ""
	}

	return c.RefreshToken
}

func expired(at, now time.Time) bool {
	return !at.IsZero() && !now.Before(at)
}

// RefreshRequest — тело запроса на обновление access-токена.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse — ответ эндпойнта обновления.
// Refresh заполнен, только если сервер ротирует refresh-токены.
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// LoginRequest — тело запроса на вход.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
