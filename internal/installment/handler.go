package installment

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/feeledger/pkg/response"
)

const dateLayout = "2006-01-02"

// PreviewRequest represents the request body for previewing an installment plan
type PreviewRequest struct {
	TotalAmount    int64  `json:"total_amount"`
	Count          int    `json:"count"`
	Policy         Policy `json:"policy"`
	FirstDueDate   string `json:"first_due_date,omitempty"`
	IntervalMonths int    `json:"interval_months,omitempty"`
}

// PreviewResponse lists the generated installments
type PreviewResponse struct {
	TotalAmount  int64          `json:"total_amount"`
	Policy       Policy         `json:"policy"`
	Installments []PreviewEntry `json:"installments"`
}

// PreviewEntry is a single generated installment
type PreviewEntry struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	DueDate  string `json:"due_date,omitempty"`
}

// Handler exposes the generator over HTTP
type Handler struct {
	now func() time.Time
}

// NewHandler creates a new installment handler
func NewHandler(now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{now: now}
}

// Routes returns the router for installment endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/preview", h.Preview)
	return r
}

// Preview handles POST /installments/preview
// @Summary      Preview an installment plan
// @Description  Split a total into installments under EVEN or CLEAN_HUNDREDS without storing anything
// @Tags         installments
// @Accept       json
// @Produce      json
// @Param        request body PreviewRequest true "Plan parameters"
// @Success      200 {object} response.APIResponse{data=PreviewResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /installments/preview [post]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	firstDue := h.now()
	if req.FirstDueDate != "" {
		parsed, err := time.Parse(dateLayout, req.FirstDueDate)
		if err != nil {
			response.BadRequest(w, "first_due_date must be YYYY-MM-DD")
			return
		}
		firstDue = parsed
	}

	planned, err := Plan(req.TotalAmount, req.Count, req.Policy, firstDue, req.IntervalMonths)
	if err != nil {
		if !response.FromError(w, err) {
			response.InternalError(w, "Failed to generate installments")
		}
		return
	}

	entries := make([]PreviewEntry, len(planned))
	for i, p := range planned {
		entries[i] = PreviewEntry{
			Position: p.Position,
			Name:     p.Name,
			Amount:   p.Amount,
			DueDate:  p.DueDate.Format(dateLayout),
		}
	}

	response.JSON(w, http.StatusOK, PreviewResponse{
		TotalAmount:  req.TotalAmount,
		Policy:       req.Policy,
		Installments: entries,
	})
}
