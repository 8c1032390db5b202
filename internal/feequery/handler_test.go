package feequery

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	mw "github.com/fkhayef/feeledger/pkg/middleware"
)

func request(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(mw.WithPrincipal(req.Context(), mw.Principal{UserID: "bursar", SchoolID: school.ID, SchoolCode: school.Code}))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestHandlerReports(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, nil)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   string
	}{
		{"student summary", "/students/1", http.StatusOK, ""},
		{"unknown student", "/students/99", http.StatusNotFound, "STUDENT_RECORDS_NOT_FOUND"},
		{"bad student id", "/students/abc", http.StatusBadRequest, ""},
		{"class summary", "/classes/Grade%204?section=A", http.StatusOK, ""},
		{"outstanding", "/outstanding?class=Grade%204&as_of=2026-02-01", http.StatusOK, ""},
		{"outstanding bad date", "/outstanding?as_of=01-02-2026", http.StatusBadRequest, "INVALID_DATE"},
		{"collections", "/collections?from=2026-03-01&to=2026-03-31", http.StatusOK, ""},
		{"collections reversed", "/collections?from=2026-03-31&to=2026-03-01", http.StatusBadRequest, "INVALID_DATE_RANGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := request(t, h, tt.path)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode == "" {
				return
			}
			var env struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}
}

func TestHandlerOutstandingXLSX(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, nil)

	rec := request(t, h, "/outstanding.xlsx?section=A")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "outstanding_")

	book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows(outstandingSheet)
	require.NoError(t, err)
	assert.Equal(t, "Student", rows[0][1])
}
