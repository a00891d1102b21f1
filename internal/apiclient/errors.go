package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoRefreshToken — в хранилище нет refresh-токена; обновление невозможно
	// без сетевого вызова. Приводит к *AuthError.
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrRefreshFailed — эндпойнт обновления недоступен или отказал.
	// Приводит к *AuthError.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrDecode — тело успешного ответа не подходит под ожидаемый тип.
	ErrDecode = errors.New("decode response")

	// ErrUnexpectedShape — списочный ответ не похож ни на один известный конверт.
	ErrUnexpectedShape = errors.New("unexpected list response shape")

	// ErrInvalidConfig — некорректная конфигурация клиента.
	ErrInvalidConfig = errors.New("invalid client config")
)

// NetworkError — транспортная ошибка (DNS, отказ соединения, таймаут, отмена).
// Не ретраится.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError — сервер ответил не-2xx (кроме случая аутентификации).
// Message извлекается по приоритету detail -> message -> сырой текст -> "<status> <statusText>".
type HTTPError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// AuthError — 401 с признаком аутентификации, а обновить токен не удалось
// (нет refresh-токена или обновление отказало). Вызывающий должен отправить
// пользователя на вход.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "authentication required"
	}

	return "authentication required: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// StatusCode — статус для нормализованной ошибки: всегда 401.
func (e *AuthError) StatusCode() int { return http.StatusUnauthorized }

// IsAuth сообщает, что err требует повторного входа.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// StatusOf возвращает HTTP-статус ошибки, если он известен.
func StatusOf(err error) (int, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.StatusCode(), true
	}

	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status, true
	}

	return 0, false
}
