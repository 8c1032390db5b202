package feestructure

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mw "github.com/fkhayef/feeledger/pkg/middleware"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func serve(t *testing.T, h *Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req = req.WithContext(mw.WithPrincipal(req.Context(), mw.Principal{UserID: "admin", SchoolID: schoolID, SchoolCode: "GHS"}))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestHandlerCreate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "plan with apply",
			body:       `{"name":"Tuition","class":"Grade 4","section":"A","academic_year":"2026","total_amount":90000,"plan":{"count":3,"policy":"EVEN","first_due_date":"2026-01-10"},"apply_to_students":true}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "sum mismatch",
			body:       `{"name":"Tuition","class":"Grade 4","academic_year":"2026","total_amount":90000,"installments":[{"name":"Term 1","amount":100,"due_date":"2026-01-10"}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INSTALLMENT_SUM_MISMATCH",
		},
		{
			name:       "rounding needs a larger total",
			body:       `{"name":"Tuition","class":"Grade 4","academic_year":"2026","total_amount":150,"plan":{"count":3,"policy":"CLEAN_HUNDREDS","first_due_date":"2026-01-10"}}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "INSUFFICIENT_AMOUNT_FOR_ROUNDING",
		},
		{
			name:       "bad first due date",
			body:       `{"name":"Tuition","class":"Grade 4","academic_year":"2026","total_amount":900,"plan":{"count":3,"policy":"EVEN","first_due_date":"Jan 10"}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_INPUT",
		},
		{
			name:       "malformed body",
			body:       `{"name":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.enroll(t, "ADM-1", "Amina Otieno", "Grade 4", "A")
			h := NewHandler(f.svc, nil)

			rec, env := serve(t, h, http.MethodPost, "/", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.wantCode, env.Error.Code)
			}
			if tt.wantStatus == http.StatusCreated {
				var created CreateFeeStructureResponse
				require.NoError(t, json.Unmarshal(env.Data, &created))
				assert.Equal(t, 1, created.FeeStructure.Version)
				assert.Len(t, created.FeeStructure.Installments, 3)
				require.NotNil(t, created.AppliedToStudents)
				assert.Equal(t, 1, *created.AppliedToStudents)
			}
		})
	}
}

func TestHandlerGetAndApply(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, nil)

	rec, _ := serve(t, h, http.MethodGet, "/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = serve(t, h, http.MethodGet, "/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = serve(t, h, http.MethodPost, "/42/apply", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
