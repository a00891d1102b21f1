// redact маскирует чувствительные данные перед записью в лог:
// токены, пароли и логины пользователей.
package redact

import "strings"

// Token возвращает метку вместо токена. Пустой токен остаётся пустым,
// чтобы в логах было видно, что его не было вовсе.
func Token(s string) string {
	if s == "" {
		return ""
	}

	return "[REDACTED_TOKEN]"
}

// Password — литерал вместо пароля.
func Password() string { return "[REDACTED_PASSWORD]" }

// Username оставляет первые два символа (по рунам) логина.
// Логин с '@' обрабатывается как e-mail: домен сохраняется.
//
//	"director"           -> "di***"
//	"foobar@school.edu"  -> "fo***@school.edu"
//	"ab"                 -> "***"
func Username(s string) string {
	local, domain, isEmail := strings.Cut(s, "@")
	if isEmail && strings.Contains(domain, "@") {
		return "***"
	}

	r := []rune(local)
	masked := "***"
	if len(r) > 2 {
		masked = string(r[:2]) + "***"
	}

	if isEmail {
		return masked + "@" + domain
	}

	return masked
}
