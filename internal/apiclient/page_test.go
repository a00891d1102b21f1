package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/school-admin/internal/credentials"
	"github.com/pribylovaa/school-admin/internal/models"
)

func TestDecodePage(t *testing.T) {
	t.Parallel()

	two := []models.Exam{{ID: 1, Name: "Math"}, {ID: 2, Name: "Physics"}}

	tests := []struct {
		name      string
		raw       string
		wantItems []models.Exam
		wantTotal int
		wantErr   error
	}{
		{name: "bare_array", raw: `[{"id":1,"name":"Math"},{"id":2,"name":"Physics"}]`, wantItems: two, wantTotal: 2},
		{name: "paginated", raw: `{"count":40,"results":[{"id":1,"name":"Math"},{"id":2,"name":"Physics"}]}`, wantItems: two, wantTotal: 40},
		{name: "nested_paginated", raw: `{"data":{"count":7,"results":[{"id":1,"name":"Math"},{"id":2,"name":"Physics"}]}}`, wantItems: two, wantTotal: 7},
		{name: "data_array", raw: `{"data":[{"id":1,"name":"Math"},{"id":2,"name":"Physics"}]}`, wantItems: two, wantTotal: 2},
		{name: "normalized", raw: `{"items":[{"id":1,"name":"Math"},{"id":2,"name":"Physics"}],"total":9}`, wantItems: two, wantTotal: 9},
		{name: "results_without_count", raw: `{"results":[{"id":1,"name":"Math"},{"id":2,"name":"Physics"}]}`, wantItems: two, wantTotal: 2},
		{name: "empty_body", raw: ``, wantItems: []models.Exam{}, wantTotal: 0},
		{name: "null", raw: `null`, wantItems: []models.Exam{}, wantTotal: 0},
		{name: "empty_results", raw: `{"count":0,"results":[]}`, wantItems: []models.Exam{}, wantTotal: 0},
		{name: "data_null", raw: `{"data":null}`, wantItems: []models.Exam{}, wantTotal: 0},
		{name: "unknown_object", raw: `{"id":1,"name":"Math"}`, wantErr: ErrUnexpectedShape},
		{name: "scalar", raw: `"text"`, wantErr: ErrUnexpectedShape},
		{name: "wrong_item_type", raw: `[1,2]`, wantErr: ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := DecodePage[models.Exam]([]byte(tt.raw))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.wantItems, got.Items)
			require.Equal(t, tt.wantTotal, got.Total)
		})
	}
}

// stubRequester — Requester, отдающий заранее заданное тело.
type stubRequester struct {
	body    string
	err     error
	gotPath string
}

func (s *stubRequester) Do(_ context.Context, method, path string, _, out any) error {
	if method != http.MethodGet {
		return errors.New("unexpected method " + method)
	}
	s.gotPath = path
	if s.err != nil {
		return s.err
	}
	return json.Unmarshal([]byte(s.body), out)
}

func TestList_Stub(t *testing.T) {
	t.Parallel()

	r := &stubRequester{body: `{"count":3,"results":[{"id":1,"name":"Admins","permissions":[1,2]}]}`}

	page, err := List[models.Group](context.Background(), r, "/api/groups/", url.Values{"page": {"2"}})
	require.NoError(t, err)
	require.Equal(t, "/api/groups/?page=2", r.gotPath)
	require.Equal(t, 3, page.Total)
	require.Equal(t, []int{1, 2}, page.Items[0].Permissions)

	_, err = List[models.Group](context.Background(), r, "/api/groups/?ordering=name", url.Values{"page": {"1"}})
	require.NoError(t, err)
	require.Equal(t, "/api/groups/?ordering=name&page=1", r.gotPath)

	boom := &HTTPError{Status: 500, Message: "boom"}
	_, err = List[models.Group](context.Background(), &stubRequester{err: boom}, "/api/groups/", nil)
	require.ErrorIs(t, err, boom)

	_, err = List[models.Group](context.Background(), &stubRequester{body: `{"id":1}`}, "/api/groups/", nil)
	require.ErrorIs(t, err, ErrUnexpectedShape)
}

func TestList_Client(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t)
	api.handle("/fee-structures/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "5A", r.URL.Query().Get("class_name"))
		writeJSON(w, http.StatusOK, `{"data":{"count":1,"results":[{"id":4,"name":"Tuition","class_name":"5A","academic_year":"2026-2027","amount":1200,"due_date":"2026-09-01"}]}}`)
	})

	c := newTestClient(t, api.srv.URL, credentials.NewMemory())

	page, err := List[models.FeeStructure](context.Background(), c, "/fee-structures/", url.Values{"class_name": {"5A"}})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, "Tuition", page.Items[0].Name)
	require.Equal(t, 1200.0, page.Items[0].Amount)
}

func TestList_EmptyBody(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t)
	api.handle("/fines/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	c := newTestClient(t, api.srv.URL, credentials.NewMemory())

	page, err := List[models.Fine](context.Background(), c, "/fines/", nil)
	require.NoError(t, err)
	require.Empty(t, page.Items)
	require.NotNil(t, page.Items)
	require.Zero(t, page.Total)
}
