package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/feeledger/pkg/apperror"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", apperror.Validation("INVALID_AMOUNT", "bad"), http.StatusBadRequest, "INVALID_AMOUNT"},
		{"invariant", apperror.Invariant("EXCEEDS_PENDING", "too much").WithDetail("pending", 0), http.StatusUnprocessableEntity, "EXCEEDS_PENDING"},
		{"not found", apperror.NotFound("FEE_RECORD_NOT_FOUND", "missing"), http.StatusNotFound, "FEE_RECORD_NOT_FOUND"},
		{"conflict", apperror.Conflict("CONCURRENCY_CONFLICT", "busy"), http.StatusConflict, "CONCURRENCY_CONFLICT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.True(t, FromError(rec, tt.err))
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body APIResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}

func TestFromErrorIgnoresPlainErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	assert.False(t, FromError(rec, errors.New("boom")))
	assert.Equal(t, 0, rec.Body.Len())
}

func TestNewMeta(t *testing.T) {
	m := NewMeta(2, 20, 41)
	assert.Equal(t, 3, m.TotalPages)
}
