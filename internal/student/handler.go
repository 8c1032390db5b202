package student

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	mw "github.com/fkhayef/feeledger/pkg/middleware"
	"github.com/fkhayef/feeledger/pkg/response"
)

// Handler handles HTTP requests for roster operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new student handler with service dependency injected
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// Routes returns the router for student endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)

	return r
}

// Create handles POST /students
// @Summary      Enroll a student
// @Description  Add a student to the school roster
// @Tags         students
// @Accept       json
// @Produce      json
// @Param        request body CreateStudentRequest true "Student enrollment request"
// @Success      201 {object} response.APIResponse{data=StudentResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /students [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := mw.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "School scope required")
		return
	}

	var req CreateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	st, err := h.service.Create(r.Context(), principal.SchoolID, &req)
	if err != nil {
		h.fail(w, err, "Failed to create student")
		return
	}

	response.JSON(w, http.StatusCreated, st.ToResponse())
}

// GetByID handles GET /students/{id}
// @Summary      Get student by ID
// @Tags         students
// @Produce      json
// @Param        id path int true "Student ID"
// @Success      200 {object} response.APIResponse{data=StudentResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /students/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	principal, ok := mw.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "School scope required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid student ID")
		return
	}

	st, err := h.service.GetByID(r.Context(), principal.SchoolID, id)
	if err != nil {
		h.fail(w, err, "Failed to get student")
		return
	}

	response.JSON(w, http.StatusOK, st.ToResponse())
}

// List handles GET /students
// @Summary      List students
// @Description  Get a paginated list of students, filtered by class, section and name
// @Tags         students
// @Produce      json
// @Param        class query string false "Class"
// @Param        section query string false "Section"
// @Param        search query string false "Name substring"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]StudentResponse}
// @Router       /students [get]
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

	filter := ListFilter{Class: q.Get("class"), Section: q.Get("section"), Search: q.Get("search")}
	students, total, err := h.service.List(r.Context(), principal.SchoolID, filter, page, perPage)
	if err != nil {
		h.fail(w, err, "Failed to list students")
		return
	}

	// Convert to response DTOs
	responses := make([]*StudentResponse, len(students))
	for i, st := range students {
		responses[i] = st.ToResponse()
	}

	response.JSONWithMeta(w, http.StatusOK, responses, response.NewMeta(page, perPage, total))
}

// Update handles PUT /students/{id}
// @Summary      Update a student
// @Description  Move a student between classes or sections, rename, or withdraw
// @Tags         students
// @Accept       json
// @Produce      json
// @Param        id path int true "Student ID"
// @Param        request body UpdateStudentRequest true "Student update request"
// @Success      200 {object} response.APIResponse{data=StudentResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /students/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := mw.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "School scope required")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid student ID")
		return
	}

	var req UpdateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	st, err := h.service.Update(r.Context(), principal.SchoolID, id, &req)
	if err != nil {
		h.fail(w, err, "Failed to update student")
		return
	}

	response.JSON(w, http.StatusOK, st.ToResponse())
}

func (h *Handler) fail(w http.ResponseWriter, err error, message string) {
	if response.FromError(w, err) {
		return
	}
	h.logger.Error(message, zap.Error(err))
	response.InternalError(w, message)
}
