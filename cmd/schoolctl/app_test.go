package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/school-admin/internal/devapi"
	"github.com/pribylovaa/school-admin/internal/devapi/auth"
	apierrors "github.com/pribylovaa/school-admin/internal/errors"
)

// env — dev API и конфиг schoolctl, указывающий на него.
type env struct {
	cfgPath   string
	credsPath string
}

func newEnv(t *testing.T) *env {
	t.Helper()

	svc, err := auth.New(auth.Config{
		JWTSecret:  "cli-test-secret",
		AccessTTL:  5 * time.Minute,
		RefreshTTL: time.Hour,
	}, "admin", "admin-pass")
	require.NoError(t, err)

	h, err := devapi.NewRouter(devapi.Options{Auth: svc, Timeout: 5 * time.Second})
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	credsPath := filepath.Join(dir, "credentials.json")
	cfgPath := filepath.Join(dir, "config.yaml")

	cfg := fmt.Sprintf(`env: local
api:
  base_url: %q
timeouts:
  request: 5s
  refresh: 5s
credentials:
  backend: file
  file_path: %q
`, srv.URL, credsPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	return &env{cfgPath: cfgPath, credsPath: credsPath}
}

func (e *env) run(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	full := append([]string{"-config", e.cfgPath}, args...)
	code := run(context.Background(), full, strings.NewReader(stdin), &stdout, &stderr)

	return code, stdout.String(), stderr.String()
}

func decodeError(t *testing.T, stderr string) apierrors.APIError {
	t.Helper()

	// Перед JSON в stderr могут быть строки логгера.
	idx := strings.Index(stderr, "{\n")
	require.GreaterOrEqual(t, idx, 0, stderr)

	var resp apierrors.ErrorResponse
	require.NoError(t, json.NewDecoder(strings.NewReader(stderr[idx:])).Decode(&resp), stderr)

	return resp.Error
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), nil, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, exitUsage, code)
	require.Contains(t, stderr.String(), "usage: schoolctl")

	e := newEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown_command", args: []string{"frobnicate"}},
		{name: "request_without_path", args: []string{"request", "GET"}},
		{name: "request_bad_json", args: []string{"request", "POST", "/fines/", "{oops"}},
		{name: "list_without_resource", args: []string{"list"}},
		{name: "list_bad_query", args: []string{"list", "fines", "page"}},
		{name: "login_without_password", args: []string{"login", "-username", "admin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(envPassword, "")

			code, _, _ := e.run(t, "", tt.args...)
			require.Equal(t, exitUsage, code)
		})
	}
}

func TestRun_Resources(t *testing.T) {
	e := newEnv(t)

	code, stdout, _ := e.run(t, "", "resources")
	require.Equal(t, exitOK, code)

	var names []string
	require.NoError(t, json.Unmarshal([]byte(stdout), &names))
	require.Equal(t, []string{"exams", "fee-discounts", "fee-structures", "fines", "groups", "permissions"}, names)
}

func TestRun_NotLoggedIn(t *testing.T) {
	e := newEnv(t)

	code, stdout, stderr := e.run(t, "", "list", "fines")
	require.Equal(t, exitAuth, code)
	require.Empty(t, stdout)
	require.Contains(t, stderr, "schoolctl login")
	require.Equal(t, "unauthenticated", decodeError(t, stderr).Code)
}

func TestRun_VerboseLogsCarryCommand(t *testing.T) {
	e := newEnv(t)

	code, _, stderr := e.run(t, "", "-v", "list", "fines")
	require.Equal(t, exitAuth, code)
	require.Contains(t, stderr, "msg=auth_required")
	require.Contains(t, stderr, "cmd=list")
	require.Equal(t, "unauthenticated", decodeError(t, stderr).Code)
}

func TestRun_LoginRejected(t *testing.T) {
	e := newEnv(t)

	code, _, stderr := e.run(t, "", "login", "-username", "admin", "-password", "wrong")
	require.Equal(t, exitError, code)

	apiErr := decodeError(t, stderr)
	require.Equal(t, 401, apiErr.Status)
	require.Contains(t, apiErr.Message, "No active account")

	_, err := os.Stat(e.credsPath)
	require.True(t, os.IsNotExist(err))
}

func TestRun_Session(t *testing.T) {
	e := newEnv(t)

	t.Setenv(envPassword, "admin-pass")
	code, stdout, stderr := e.run(t, "", "login", "-username", "admin")
	require.Equal(t, exitOK, code, stderr)
	require.Contains(t, stdout, "logged_in")

	info, err := os.Stat(e.credsPath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Список в едином конверте {items, total}.
	code, stdout, stderr = e.run(t, "", "list", "fines")
	require.Equal(t, exitOK, code, stderr)

	var page struct {
		Items []map[string]any `json:"items"`
		Total int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &page))
	require.Equal(t, 1, page.Total)
	require.Equal(t, "Late payment", page.Items[0]["name"])

	// Тело из stdin.
	code, stdout, stderr = e.run(t, `{"name":"Lost book","fee_structure":1,"amount_per_day":2}`, "request", "post", "/fines/", "-")
	require.Equal(t, exitOK, code, stderr)

	var created map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &created))
	require.Equal(t, "Lost book", created["name"])
	id := int(created["id"].(float64))

	code, stdout, stderr = e.run(t, "", "request", "GET", fmt.Sprintf("/fines/%d/", id))
	require.Equal(t, exitOK, code, stderr)
	require.Contains(t, stdout, "Lost book")

	// Ошибка сервера нормализуется, код 1.
	code, _, stderr = e.run(t, "", "request", "GET", "/fines/999/")
	require.Equal(t, exitError, code)
	apiErr := decodeError(t, stderr)
	require.Equal(t, "not_found", apiErr.Code)
	require.Equal(t, 404, apiErr.Status)

	code, _, stderr = e.run(t, "", "list", "students")
	require.Equal(t, exitError, code)
	require.Equal(t, "not_found", decodeError(t, stderr).Code)

	code, stdout, _ = e.run(t, "", "logout")
	require.Equal(t, exitOK, code)
	require.Contains(t, stdout, "logged_out")

	code, _, _ = e.run(t, "", "list", "fines")
	require.Equal(t, exitAuth, code)
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		env     string
		verbose bool
		debug   bool
		json    bool
	}{
		{env: envLocal, verbose: false, debug: false, json: false},
		{env: envLocal, verbose: true, debug: true, json: false},
		{env: envDev, verbose: true, debug: true, json: true},
		{env: envProd, verbose: false, debug: false, json: true},
		{env: "unknown", verbose: false, debug: false, json: false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%v", tt.env, tt.verbose), func(t *testing.T) {
			var buf bytes.Buffer
			lg := setupLogger(tt.env, tt.verbose, &buf)

			lg.Debug("debug_line")
			require.Equal(t, tt.debug, strings.Contains(buf.String(), "debug_line"))

			buf.Reset()
			lg.Error("error_line")
			out := buf.String()
			require.Contains(t, out, "error_line")
			require.Equal(t, tt.json, json.Valid([]byte(strings.TrimSpace(out))))
		})
	}
}
