package feequery

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fkhayef/feeledger/pkg/apperror"
	mw "github.com/fkhayef/feeledger/pkg/middleware"
	"github.com/fkhayef/feeledger/pkg/response"
)

// ErrInvalidDate is returned for malformed date query parameters
var ErrInvalidDate = apperror.Validation("INVALID_DATE", "date must be in YYYY-MM-DD format")

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler handles HTTP requests for reports
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new report handler with service dependency injected
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// Routes returns the router for report endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/students/{id}", h.StudentSummary)
	r.Get("/classes/{class}", h.ClassSummary)
	r.Get("/outstanding", h.Outstanding)
	r.Get("/outstanding.xlsx", h.OutstandingXLSX)
	r.Get("/collections", h.Collections)

	return r
}

// StudentSummary handles GET /reports/students/{id}
// @Summary      Student fee summary
// @Description  Totals across every fee record of a student, with each record's status
// @Tags         reports
// @Produce      json
// @Param        id path int true "Student ID"
// @Success      200 {object} response.APIResponse{data=StudentSummary}
// @Failure      404 {object} response.APIResponse
// @Router       /reports/students/{id} [get]
func (h *Handler) StudentSummary(w http.ResponseWriter, r *http.Request) {
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

	summary, err := h.service.StudentSummary(r.Context(), principal.SchoolID, id)
	if err != nil {
		h.fail(w, err, "Failed to build student summary")
		return
	}

	response.JSON(w, http.StatusOK, summary)
}

// ClassSummary handles GET /reports/classes/{class}
// @Summary      Class fee summary
// @Description  Student count, totals, status counts and a per-structure breakdown for a class
// @Tags         reports
// @Produce      json
// @Param        class path string true "Class"
// @Param        section query string false "Section"
// @Success      200 {object} response.APIResponse{data=ClassSummary}
// @Router       /reports/classes/{class} [get]
func (h *Handler) ClassSummary(w http.ResponseWriter, r *http.Request) {
	principal, ok := mw.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "School scope required")
		return
	}

	summary, err := h.service.ClassSummary(r.Context(), principal.SchoolID, chi.URLParam(r, "class"), r.URL.Query().Get("section"))
	if err != nil {
		h.fail(w, err, "Failed to build class summary")
		return
	}

	response.JSON(w, http.StatusOK, summary)
}

// Outstanding handles GET /reports/outstanding
// @Summary      Outstanding dues
// @Description  Every installment with a pending balance, ordered by due date, student name and position
// @Tags         reports
// @Produce      json
// @Param        class query string false "Class"
// @Param        section query string false "Section"
// @Param        as_of query string false "Reference date (YYYY-MM-DD), defaults to today"
// @Success      200 {object} response.APIResponse{data=OutstandingReport}
// @Failure      400 {object} response.APIResponse
// @Router       /reports/outstanding [get]
func (h *Handler) Outstanding(w http.ResponseWriter, r *http.Request) {
	principal, ok := mw.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "School scope required")
		return
	}

	filter, err := outstandingFilter(r)
	if err != nil {
		h.fail(w, err, "Invalid filter")
		return
	}

	report, err := h.service.OutstandingDues(r.Context(), principal.SchoolID, filter)
	if err != nil {
		h.fail(w, err, "Failed to list outstanding dues")
		return
	}

	response.JSON(w, http.StatusOK, report)
}

// OutstandingXLSX handles GET /reports/outstanding.xlsx
// @Summary      Export outstanding dues
// @Tags         reports
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        class query string false "Class"
// @Param        section query string false "Section"
// @Param        as_of query string false "Reference date (YYYY-MM-DD), defaults to today"
// @Success      200 {file} file
// @Failure      400 {object} response.APIResponse
// @Router       /reports/outstanding.xlsx [get]
func (h *Handler) OutstandingXLSX(w http.ResponseWriter, r *http.Request) {
	principal, ok := mw.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "School scope required")
		return
	}

	filter, err := outstandingFilter(r)
	if err != nil {
		h.fail(w, err, "Invalid filter")
		return
	}

	var buf bytes.Buffer
	if err := h.service.ExportOutstanding(r.Context(), &buf, principal.SchoolID, filter); err != nil {
		h.fail(w, err, "Failed to export outstanding dues")
		return
	}

	fileName := fmt.Sprintf("outstanding_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+fileName)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// Collections handles GET /reports/collections
// @Summary      Collections
// @Description  Accepted payments dated within [from, to], totaled per method and per day
// @Tags         reports
// @Produce      json
// @Param        from query string false "First payment date (YYYY-MM-DD), defaults to the start of the month"
// @Param        to query string false "Last payment date (YYYY-MM-DD), defaults to today"
// @Success      200 {object} response.APIResponse{data=CollectionsReport}
// @Failure      400 {object} response.APIResponse
// @Router       /reports/collections [get]
func (h *Handler) Collections(w http.ResponseWriter, r *http.Request) {
	principal, ok := mw.GetPrincipal(r.Context())
	if !ok {
		response.Unauthorized(w, "School scope required")
		return
	}

	q := r.URL.Query()
	from, err := parseDate("from", q.Get("from"))
	if err != nil {
		h.fail(w, err, "Invalid date")
		return
	}
	to, err := parseDate("to", q.Get("to"))
	if err != nil {
		h.fail(w, err, "Invalid date")
		return
	}

	report, err := h.service.Collections(r.Context(), principal.SchoolID, from, to)
	if err != nil {
		h.fail(w, err, "Failed to build collections report")
		return
	}

	response.JSON(w, http.StatusOK, report)
}

func outstandingFilter(r *http.Request) (OutstandingFilter, error) {
	q := r.URL.Query()
	asOf, err := parseDate("as_of", q.Get("as_of"))
	if err != nil {
		return OutstandingFilter{}, err
	}
	return OutstandingFilter{Class: q.Get("class"), Section: q.Get("section"), AsOf: asOf}, nil
}

// parseDate returns the zero time for an empty value
func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, ErrInvalidDate.
			WithMessage("%s must be in YYYY-MM-DD format", field).
			WithFields(apperror.FieldError{Field: field, Message: fmt.Sprintf("%s must be in YYYY-MM-DD format", field)})
	}
	return t, nil
}

func (h *Handler) fail(w http.ResponseWriter, err error, message string) {
	if response.FromError(w, err) {
		return
	}
	h.logger.Error(message, zap.Error(err))
	response.InternalError(w, message)
}
