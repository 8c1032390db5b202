package ledger

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	mw "github.com/fkhayef/feeledger/pkg/middleware"
	"github.com/fkhayef/feeledger/pkg/response"
)

// Handler handles HTTP requests for fee record operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new ledger handler with service dependency injected
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// Routes returns the router for fee record endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Post("/{id}/payments", h.RecordPayment)

	return r
}

// List handles GET /fee-records
// @Summary      List student fee records
// @Description  List fee records in the caller's school, filtered by class, section and student name
// @Tags         fee-records
// @Produce      json
// @Param        class query string false "Class"
// @Param        section query string false "Section"
// @Param        search query string false "Case-insensitive student name substring"
// @Param        student_id query int false "Student ID"
// @Param        fee_structure_id query int false "Fee structure ID"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Param        limit query int false "Alias for per_page"
// @Success      200 {object} response.APIResponse{data=[]RecordSummaryResponse}
// @Failure      401 {object} response.APIResponse
// @Router       /fee-records [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := mw.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "School scope required")
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && perPage == 0 {
		perPage = limit
	}
	studentID, _ := strconv.ParseInt(q.Get("student_id"), 10, 64)
	structureID, _ := strconv.ParseInt(q.Get("fee_structure_id"), 10, 64)

	filter := RecordFilter{
		Class:          q.Get("class"),
		Section:        q.Get("section"),
		Search:         q.Get("search"),
		StudentID:      studentID,
		FeeStructureID: structureID,
	}

	records, total, err := h.service.ListRecords(r.Context(), principal.SchoolID, filter, page, perPage)
	if err != nil {
		h.fail(w, err, "Failed to list fee records")
		return
	}

	summaries := make([]RecordSummaryResponse, len(records))
	for i, rec := range records {
		summaries[i] = rec.ToSummary()
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	response.JSONWithMeta(w, http.StatusOK, summaries, response.NewMeta(page, perPage, total))
}

// GetByID handles GET /fee-records/{id}
// @Summary      Get a student fee record
// @Description  Get a fee record with installment balances and payment history
// @Tags         fee-records
// @Produce      json
// @Param        id path int true "Fee record ID"
// @Success      200 {object} response.APIResponse{data=RecordResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /fee-records/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	principal, ok := mw.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "School scope required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid fee record ID")
		return
	}

	rec, err := h.service.GetRecord(r.Context(), principal.SchoolID, id)
	if err != nil {
		h.fail(w, err, "Failed to get fee record")
		return
	}

	response.JSON(w, http.StatusOK, rec.ToResponse())
}

// RecordPayment handles POST /fee-records/{id}/payments
// @Summary      Record an offline payment
// @Description  Record a payment against one installment and issue a receipt
// @Tags         fee-records
// @Accept       json
// @Produce      json
// @Param        id path int true "Fee record ID"
// @Param        request body RecordPaymentRequest true "Payment"
// @Success      201 {object} response.APIResponse{data=Receipt}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /fee-records/{id}/payments [post]
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	principal, ok := mw.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "School scope required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid fee record ID")
		return
	}

	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	school := School{ID: principal.SchoolID, Code: principal.SchoolCode}
	receipt, err := h.service.RecordPayment(r.Context(), school, id, principal.UserID, &req)
	if err != nil {
		h.fail(w, err, "Failed to record payment")
		return
	}

	response.JSON(w, http.StatusCreated, receipt)
}

func (h *Handler) fail(w http.ResponseWriter, err error, message string) {
	if response.FromError(w, err) {
		return
	}
	h.logger.Error(message, zap.Error(err))
	response.InternalError(w, message)
}
