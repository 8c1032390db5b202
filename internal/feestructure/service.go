package feestructure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fkhayef/feeledger/internal/installment"
	"github.com/fkhayef/feeledger/internal/ledger"
	"github.com/fkhayef/feeledger/internal/student"
	"github.com/fkhayef/feeledger/pkg/apperror"
	"github.com/fkhayef/feeledger/pkg/validate"
)

// Common errors
var (
	ErrFeeStructureNotFound = apperror.NotFound("FEE_STRUCTURE_NOT_FOUND", "fee structure not found")
	ErrInvalidFeeStructure  = apperror.Validation("INVALID_FEE_STRUCTURE", "fee structure is invalid")
	ErrSumMismatch          = apperror.Validation("INSTALLMENT_SUM_MISMATCH", "installment amounts must add up to the total amount")
	ErrScheduleSource       = apperror.Validation("INVALID_SCHEDULE", "provide either installments or a plan, not both")
	ErrVersionConflict      = apperror.Conflict("CONCURRENCY_CONFLICT", "another version of this fee structure was created at the same time, try again")
)

const createAttempts = 3

// Roster lists the students a structure can be applied to
type Roster interface {
	ListEnrolled(ctx context.Context, schoolID int64, class, section string) ([]*student.Student, error)
}

// RecordCreator materializes a fee record for one student
type RecordCreator interface {
	CreateRecord(ctx context.Context, in ledger.NewRecordInput) (*ledger.StudentFeeRecord, error)
}

// Service handles fee structure business logic
type Service struct {
	repo      Store
	roster    Roster
	records   RecordCreator
	validator *validate.Validator
	logger    *zap.Logger
}

// NewService creates a new fee structure service
func NewService(repo Store, roster Roster, records RecordCreator, validator *validate.Validator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		roster:    roster,
		records:   records,
		validator: validator,
		logger:    logger,
	}
}

// Create validates and stores a new fee structure (or a new version of an existing one),
// then applies it to the enrolled students when asked to
func (s *Service) Create(ctx context.Context, schoolID int64, createdBy string, req *CreateFeeStructureRequest) (*FeeStructure, *ApplyResult, error) {
	fs, err := s.build(schoolID, createdBy, req)
	if err != nil {
		return nil, nil, err
	}

	for attempt := 1; ; attempt++ {
		err = s.repo.Create(ctx, fs)
		if !errors.Is(err, errVersionTaken) {
			break
		}
		if attempt == createAttempts {
			return nil, nil, ErrVersionConflict
		}
	}
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("fee structure created",
		zap.Int64("school_id", schoolID),
		zap.Int64("fee_structure_id", fs.ID),
		zap.String("name", fs.Name),
		zap.Int("version", fs.Version),
		zap.Int64("total_amount", fs.TotalAmount),
	)

	if !req.ApplyToStudents {
		return fs, nil, nil
	}

	// The structure is committed at this point; a failed apply is reported in the
	// result and can be repeated through Apply without creating another version.
	result, err := s.applyStructure(ctx, fs)
	if err != nil {
		s.logger.Warn("fee structure created but not applied",
			zap.Int64("school_id", schoolID),
			zap.Int64("fee_structure_id", fs.ID),
			zap.Error(err),
		)
		return fs, &ApplyResult{FeeStructureID: fs.ID, Failed: []ApplyFailure{}, Error: err.Error()}, nil
	}
	return fs, result, nil
}

// build turns a request into a validated structure
func (s *Service) build(schoolID int64, createdBy string, req *CreateFeeStructureRequest) (*FeeStructure, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	section := strings.TrimSpace(req.Section)
	if section == "" || strings.EqualFold(section, student.AllSections) {
		section = student.AllSections
	}

	fs := &FeeStructure{
		SchoolID:     schoolID,
		Name:         strings.TrimSpace(req.Name),
		Description:  strings.TrimSpace(req.Description),
		Class:        strings.TrimSpace(req.Class),
		Section:      section,
		AcademicYear: strings.TrimSpace(req.AcademicYear),
		TotalAmount:  req.TotalAmount,
		CreatedBy:    createdBy,
	}

	if fs.Name == "" {
		return nil, ErrInvalidFeeStructure.WithFields(apperror.FieldError{Field: "name", Message: "name is required"})
	}
	if req.TotalAmount <= 0 {
		return nil, ErrInvalidFeeStructure.
			WithMessage("total amount must be positive").
			WithFields(apperror.FieldError{Field: "total_amount", Message: "total_amount must be greater than 0"})
	}

	switch {
	case req.Plan != nil && len(req.Installments) > 0:
		return nil, ErrScheduleSource
	case req.Plan != nil:
		installments, err := fromPlan(req.TotalAmount, req.Plan)
		if err != nil {
			return nil, err
		}
		fs.Installments = installments
	case len(req.Installments) > 0:
		installments, err := fromExplicit(req.Installments)
		if err != nil {
			return nil, err
		}
		fs.Installments = installments
	default:
		return nil, ErrInvalidFeeStructure.
			WithMessage("at least one installment is required").
			WithFields(apperror.FieldError{Field: "installments", Message: "installments or plan is required"})
	}

	var sum int64
	for _, inst := range fs.Installments {
		// Checked against the remainder so large amounts cannot wrap the sum.
		if inst.Amount > fs.TotalAmount-sum {
			return nil, ErrSumMismatch.
				WithMessage("installment amounts exceed the total amount %d", fs.TotalAmount).
				WithDetail("total_amount", fs.TotalAmount)
		}
		sum += inst.Amount
	}
	if sum != fs.TotalAmount {
		return nil, ErrSumMismatch.
			WithMessage("installment amounts add up to %d but the total amount is %d", sum, fs.TotalAmount).
			WithDetail("installments_sum", sum).
			WithDetail("total_amount", fs.TotalAmount)
	}
	return fs, nil
}

func fromPlan(total int64, plan *PlanRequest) ([]InstallmentSpec, error) {
	firstDue, err := time.Parse(dateLayout, plan.FirstDueDate)
	if err != nil {
		return nil, ErrInvalidFeeStructure.WithFields(apperror.FieldError{Field: "plan.first_due_date", Message: "first_due_date must be a date in YYYY-MM-DD format"})
	}

	planned, err := installment.Plan(total, plan.Count, plan.Policy, firstDue, plan.IntervalMonths)
	if err != nil {
		return nil, err
	}

	specs := make([]InstallmentSpec, len(planned))
	for i, p := range planned {
		if p.Amount <= 0 {
			return nil, ErrInvalidFeeStructure.
				WithMessage("%s would be %d; choose fewer installments or the EVEN policy", p.Name, p.Amount).
				WithFields(apperror.FieldError{Field: "plan.count", Message: "every installment must be positive"})
		}
		specs[i] = InstallmentSpec{
			Position: p.Position,
			Name:     p.Name,
			Amount:   p.Amount,
			DueDate:  p.DueDate,
		}
	}
	return specs, nil
}

func fromExplicit(reqs []InstallmentSpecRequest) ([]InstallmentSpec, error) {
	var fields []apperror.FieldError
	seen := make(map[string]bool, len(reqs))
	specs := make([]InstallmentSpec, len(reqs))

	for i, r := range reqs {
		prefix := fmt.Sprintf("installments[%d]", i)
		name := strings.TrimSpace(r.Name)

		switch {
		case name == "":
			fields = append(fields, apperror.FieldError{Field: prefix + ".name", Message: "name is required"})
		case seen[name]:
			fields = append(fields, apperror.FieldError{Field: prefix + ".name", Message: fmt.Sprintf("name %q is used more than once", name)})
		}
		seen[name] = true

		if r.Amount <= 0 {
			fields = append(fields, apperror.FieldError{Field: prefix + ".amount", Message: "amount must be greater than 0"})
		}

		due, err := time.Parse(dateLayout, strings.TrimSpace(r.DueDate))
		if err != nil {
			fields = append(fields, apperror.FieldError{Field: prefix + ".due_date", Message: "due_date must be a date in YYYY-MM-DD format"})
		}

		specs[i] = InstallmentSpec{
			Position:    i + 1,
			Name:        name,
			Amount:      r.Amount,
			DueDate:     due,
			Description: strings.TrimSpace(r.Description),
		}
	}

	if len(fields) > 0 {
		return nil, ErrInvalidFeeStructure.WithFields(fields...)
	}
	return specs, nil
}

// GetByID retrieves a structure within the school
func (s *Service) GetByID(ctx context.Context, schoolID, id int64) (*FeeStructure, error) {
	fs, err := s.repo.GetByID(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	if fs == nil {
		return nil, ErrFeeStructureNotFound.WithMessage("fee structure %d not found", id)
	}
	return fs, nil
}

// List retrieves structures newest first with pagination
func (s *Service) List(ctx context.Context, schoolID int64, filter ListFilter, page, perPage int) ([]*FeeStructure, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.List(ctx, schoolID, filter, perPage, offset)
}

// Apply materializes the structure for every active student in its class and section
func (s *Service) Apply(ctx context.Context, schoolID, id int64) (*ApplyResult, error) {
	fs, err := s.GetByID(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	return s.applyStructure(ctx, fs)
}

// applyStructure creates one record per student. Students are independent: a failure
// is reported for that student and the rest carry on; nothing already created is undone.
func (s *Service) applyStructure(ctx context.Context, fs *FeeStructure) (*ApplyResult, error) {
	students, err := s.roster.ListEnrolled(ctx, fs.SchoolID, fs.Class, fs.Section)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrolled students: %w", err)
	}

	result := &ApplyResult{
		FeeStructureID: fs.ID,
		Targeted:       len(students),
		Failed:         []ApplyFailure{},
	}

	for _, st := range students {
		if err := ctx.Err(); err != nil {
			result.Failed = append(result.Failed, ApplyFailure{StudentID: st.ID, StudentName: st.FullName, Reason: err.Error()})
			continue
		}

		_, err := s.records.CreateRecord(ctx, recordInput(fs, st))
		switch {
		case err == nil:
			result.AppliedToStudents++
		case errors.Is(err, ledger.ErrRecordExists):
			result.Skipped++
		default:
			s.logger.Warn("failed to apply fee structure to student",
				zap.Int64("fee_structure_id", fs.ID),
				zap.Int64("student_id", st.ID),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, ApplyFailure{StudentID: st.ID, StudentName: st.FullName, Reason: err.Error()})
		}
	}

	s.logger.Info("fee structure applied",
		zap.Int64("fee_structure_id", fs.ID),
		zap.Int("targeted", result.Targeted),
		zap.Int("applied", result.AppliedToStudents),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func recordInput(fs *FeeStructure, st *student.Student) ledger.NewRecordInput {
	installments := make([]ledger.InstallmentBalance, len(fs.Installments))
	for i, inst := range fs.Installments {
		installments[i] = ledger.InstallmentBalance{
			Position:    inst.Position,
			Name:        inst.Name,
			Amount:      inst.Amount,
			DueDate:     inst.DueDate,
			Description: inst.Description,
		}
	}

	return ledger.NewRecordInput{
		SchoolID:         fs.SchoolID,
		StudentID:        st.ID,
		StudentName:      st.FullName,
		AdmissionNo:      st.AdmissionNo,
		Class:            st.Class,
		Section:          st.Section,
		FeeStructureID:   fs.ID,
		FeeStructureName: fs.Name,
		AcademicYear:     fs.AcademicYear,
		TotalAmount:      fs.TotalAmount,
		Installments:     installments,
	}
}
