// errors приводит любую ошибку клиента к одному нормализованному описанию
// {code, message, status, request_id}:
//   - CLI печатает его как JSON;
//   - dev API отдаёт ошибки в форме тел DRF ({"detail", "code"}).
//
// Message — безопасный текст: сообщение сервера для *apiclient.HTTPError,
// краткое описание для прочих ошибок.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/school-admin/internal/apiclient"
	"github.com/pribylovaa/school-admin/internal/apiclient/transport"
	"github.com/pribylovaa/school-admin/internal/resources"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError — нормализованное описание ошибки.
// Code — короткий стабильный код для машиночитаемой обработки.
// Status — HTTP-статус ответа сервера, если ответ был.
// RequestID — X-Request-Id запроса, если известен.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Status    int    `json:"status,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в выводе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Describe строит описание ошибки.
//
// Поведение:
//   - err == nil — программная ошибка вызова: internal;
//   - *apiclient.AuthError — unauthenticated/401 (нужен повторный вход);
//   - *apiclient.HTTPError — код по статусу, message сервера;
//   - *apiclient.NetworkError — deadline_exceeded/canceled/unavailable без статуса;
//   - ошибки конфигурации и аргументов — invalid_argument;
//   - прочее — internal.
func Describe(err error) APIError {
	if err == nil {
		return APIError{Code: "internal", Message: "internal error"}
	}

	if apiclient.IsAuth(err) {
		return APIError{
			Code:    "unauthenticated",
			Message: "authentication required",
			Status:  http.StatusUnauthorized,
		}
	}

	var he *apiclient.HTTPError
	if stderrors.As(err, &he) {
		return APIError{
			Code:    codeFromStatus(he.Status),
			Message: he.Message,
			Status:  he.Status,
		}
	}

	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return APIError{Code: "deadline_exceeded", Message: "deadline exceeded"}
	case stderrors.Is(err, context.Canceled):
		return APIError{Code: "canceled", Message: "canceled"}
	}

	var ne *apiclient.NetworkError
	if stderrors.As(err, &ne) {
		return APIError{Code: "unavailable", Message: "service unavailable"}
	}

	switch {
	case stderrors.Is(err, apiclient.ErrInvalidConfig),
		stderrors.Is(err, resources.ErrInvalidID):
		return APIError{Code: "invalid_argument", Message: err.Error()}
	case stderrors.Is(err, resources.ErrUnknownResource):
		return APIError{Code: "not_found", Message: err.Error()}
	case stderrors.Is(err, apiclient.ErrDecode),
		stderrors.Is(err, apiclient.ErrUnexpectedShape):
		return APIError{Code: "bad_response", Message: err.Error()}
	}

	return APIError{Code: "internal", Message: "internal error"}
}

// DescribeContext — Describe с request_id из контекста исходящего запроса.
func DescribeContext(ctx context.Context, err error) APIError {
	e := Describe(err)
	e.RequestID = transport.RequestID(ctx)
	return e
}

// HTTPStatus — статус, которым описание отдаётся по HTTP.
func (e APIError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}

	switch e.Code {
	case "invalid_argument":
		return http.StatusBadRequest
	case "unauthenticated":
		return http.StatusUnauthorized
	case "not_found":
		return http.StatusNotFound
	case "canceled":
		return StatusClientClosedRequest
	case "deadline_exceeded":
		return http.StatusGatewayTimeout
	case "unavailable":
		return http.StatusServiceUnavailable
	case "bad_response":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// codeFromStatus — базовый маппинг HTTP-статуса в стабильный код:
//   - 400 -> invalid_argument
//   - 401 -> unauthenticated
//   - 403 -> permission_denied
//   - 404 -> not_found
//   - 409 -> already_exists
//   - 412 -> failed_precondition
//   - 429 -> resource_exhausted
//   - 501 -> unimplemented
//   - 502/503 -> unavailable
//   - 504 -> deadline_exceeded
//   - прочие 4xx -> client_error, прочие -> internal
func codeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return "invalid_argument"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "permission_denied"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "already_exists"
	case http.StatusPreconditionFailed:
		return "failed_precondition"
	case http.StatusTooManyRequests:
		return "resource_exhausted"
	case http.StatusNotImplemented:
		return "unimplemented"
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return "unavailable"
	case http.StatusGatewayTimeout:
		return "deadline_exceeded"
	}

	if status >= 400 && status < 500 {
		return "client_error"
	}

	return "internal"
}

// Detail — тело ошибки в форме DRF.
type Detail struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

// WriteError — хелпер для HTTP-хендлеров dev API: статус и тело DRF.
func WriteError(w http.ResponseWriter, r *http.Request, status int, detail, code string) {
	// Прокидываем request_id в ответ, чтобы клиент мог сопоставить логи.
	if rid := r.Header.Get(transport.HeaderRequestID); rid != "" && w.Header().Get(transport.HeaderRequestID) == "" {
		w.Header().Set(transport.HeaderRequestID, rid)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Detail{Detail: detail, Code: code})
}

// WriteErr пишет произвольную ошибку через Describe.
func WriteErr(w http.ResponseWriter, r *http.Request, err error) {
	e := Describe(err)
	WriteError(w, r, e.HTTPStatus(), e.Message, e.Code)
}
