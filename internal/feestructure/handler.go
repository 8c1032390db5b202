package feestructure

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	mw "github.com/fkhayef/feeledger/pkg/middleware"
	"github.com/fkhayef/feeledger/pkg/response"
)

// Handler handles HTTP requests for fee structure operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new fee structure handler with service dependency injected
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// Routes returns the router for fee structure endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Post("/{id}/apply", h.Apply)

	return r
}

// Create handles POST /fee-structures
// @Summary      Create a fee structure
// @Description  Define a new (versioned) fee structure for a class and section. Installments are given explicitly or generated from a plan.
// @Tags         fee-structures
// @Accept       json
// @Produce      json
// @Param        request body CreateFeeStructureRequest true "Fee structure creation request"
// @Success      201 {object} response.APIResponse{data=CreateFeeStructureResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Router       /fee-structures [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := mw.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "School scope required")
		return
	}

	var req CreateFeeStructureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	fs, result, err := h.service.Create(r.Context(), principal.SchoolID, principal.UserID, &req)
	if err != nil {
		h.fail(w, err, "Failed to create fee structure")
		return
	}

	resp := &CreateFeeStructureResponse{
		ID:           fs.ID,
		FeeStructure: fs.ToResponse(),
	}
	if result != nil {
		resp.AppliedToStudents = &result.AppliedToStudents
		resp.Apply = result
	}

	response.JSON(w, http.StatusCreated, resp)
}

// GetByID handles GET /fee-structures/{id}
// @Summary      Get fee structure by ID
// @Tags         fee-structures
// @Produce      json
// @Param        id path int true "Fee structure ID"
// @Success      200 {object} response.APIResponse{data=FeeStructureResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /fee-structures/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	principal, ok := mw.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "School scope required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid fee structure ID")
		return
	}

	fs, err := h.service.GetByID(r.Context(), principal.SchoolID, id)
	if err != nil {
		h.fail(w, err, "Failed to get fee structure")
		return
	}

	response.JSON(w, http.StatusOK, fs.ToResponse())
}

// List handles GET /fee-structures
// @Summary      List fee structures
// @Description  Newest first. A section filter also returns structures that cover every section.
// @Tags         fee-structures
// @Produce      json
// @Param        class query string false "Class"
// @Param        section query string false "Section"
// @Param        academic_year query string false "Academic year"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]FeeStructureResponse}
// @Router       /fee-structures [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := mw.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "School scope required")
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	filter := ListFilter{
		Class:        q.Get("class"),
		Section:      q.Get("section"),
		AcademicYear: q.Get("academic_year"),
	}
	structures, total, err := h.service.List(r.Context(), principal.SchoolID, filter, page, perPage)
	if err != nil {
		h.fail(w, err, "Failed to list fee structures")
		return
	}

	responses := make([]*FeeStructureResponse, len(structures))
	for i, fs := range structures {
		responses[i] = fs.ToResponse()
	}

	response.JSONWithMeta(w, http.StatusOK, responses, response.NewMeta(page, perPage, total))
}

// Apply handles POST /fee-structures/{id}/apply
// @Summary      Apply a fee structure to its class
// @Description  Create a fee record for every active student in the structure's class and section. Students that already have a record are skipped.
// @Tags         fee-structures
// @Produce      json
// @Param        id path int true "Fee structure ID"
// @Success      200 {object} response.APIResponse{data=ApplyResult}
// @Failure      404 {object} response.APIResponse
// @Router       /fee-structures/{id}/apply [post]
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	principal, ok := mw.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "School scope required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid fee structure ID")
		return
	}

	result, err := h.service.Apply(r.Context(), principal.SchoolID, id)
	if err != nil {
		h.fail(w, err, "Failed to apply fee structure")
		return
	}

	response.JSON(w, http.StatusOK, result)
}

func (h *Handler) fail(w http.ResponseWriter, err error, message string) {
	if response.FromError(w, err) {
		return
	}
	h.logger.Error(message, zap.Error(err))
	response.InternalError(w, message)
}
