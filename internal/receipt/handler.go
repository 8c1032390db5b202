package receipt

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fkhayef/feeledger/internal/ledger"
	mw "github.com/fkhayef/feeledger/pkg/middleware"
	"github.com/fkhayef/feeledger/pkg/response"
)

// Handler handles HTTP requests for receipts
type Handler struct {
	issuer *Issuer
	logger *zap.Logger
}

// NewHandler creates a new receipt handler
func NewHandler(issuer *Issuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{issuer: issuer, logger: logger}
}

// Routes returns the router for receipt endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{number}", h.GetByNumber)
	return r
}

// GetByNumber handles GET /receipts/{number}
// @Summary      Get a receipt
// @Description  Look up a receipt by number for reprinting
// @Tags         receipts
// @Produce      json
// @Param        number path string true "Receipt number, e.g. GHS-2026-000042"
// @Success      200 {object} response.APIResponse{data=ledger.Receipt}
// @Failure      404 {object} response.APIResponse
// @Router       /receipts/{number} [get]
func (h *Handler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	principal, ok := mw.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "School scope required")
		return
	}

	school := ledger.School{ID: principal.SchoolID, Code: principal.SchoolCode}
	receipt, err := h.issuer.Lookup(r.Context(), school, chi.URLParam(r, "number"))
	if err != nil {
		if response.FromError(w, err) {
			return
		}
		h.logger.Error("failed to look up receipt", zap.Error(err))
		response.InternalError(w, "Failed to look up receipt")
		return
	}

	response.JSON(w, http.StatusOK, receipt)
}
