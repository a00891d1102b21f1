package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// response — разобранный ответ сервера.
type response struct {
	status     int
	statusText string
	raw        []byte
	value      any // JSON-значение или сырой текст, nil для пустого тела
}

func newResponse(status int, statusLine string, raw []byte) *response {
	r := &response{
		status:     status,
		statusText: statusText(status, statusLine),
		raw:        raw,
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return r
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		r.value = string(raw)
		return r
	}

	r.value = v
	return r
}

func statusText(status int, statusLine string) string {
	if t := http.StatusText(status); t != "" {
		return t
	}

	// "599 Custom Reason" -> "Custom Reason".
	_, reason, _ := strings.Cut(statusLine, " ")
	return reason
}

func (r *response) successful() bool {
	return r.status >= 200 && r.status < 300
}

// field возвращает непустое строковое поле JSON-объекта.
func (r *response) field(name string) string {
	obj, ok := r.value.(map[string]any)
	if !ok {
		return ""
	}

	s, _ := obj[name].(string)
	return strings.TrimSpace(s)
}

// message извлекает человекочитаемое сообщение:
// detail -> message -> сырой текст -> "<status> <statusText>".
func (r *response) message() string {
	if s := r.field("detail"); s != "" {
		return s
	}

	if s := r.field("message"); s != "" {
		return s
	}

	if s := strings.TrimSpace(string(r.raw)); s != "" {
		return s
	}

	return strings.TrimSpace(fmt.Sprintf("%d %s", r.status, r.statusText))
}

func (r *response) httpError() *HTTPError {
	return &HTTPError{
		Status:  r.status,
		Message: r.message(),
		Body:    r.raw,
	}
}

// authSignal сообщает, что 401 означает «access-токен отсутствует/невалиден».
// Машиночитаемый code приоритетнее текста: текст сервера может меняться.
func (c *Client) authSignal(r *response) bool {
	if r.status != http.StatusUnauthorized {
		return false
	}

	if code := r.field("code"); code != "" {
		for _, want := range c.cfg.AuthErrorCodes {
			if strings.EqualFold(code, want) {
				return true
			}
		}
	}

	signal := strings.ToLower(c.cfg.AuthMessageSignal)
	if signal == "" {
		return false
	}

	for _, name := range []string{"detail", "message"} {
		if strings.Contains(strings.ToLower(r.field(name)), signal) {
			return true
		}
	}

	return false
}
