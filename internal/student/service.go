package student

import (
	"context"
	"strings"

	"github.com/fkhayef/feeledger/pkg/apperror"
	"github.com/fkhayef/feeledger/pkg/validate"
)

// Common errors
var (
	ErrStudentNotFound  = apperror.NotFound("STUDENT_NOT_FOUND", "student not found")
	ErrAdmissionNoInUse = apperror.Validation("ADMISSION_NO_IN_USE", "admission number already in use")
)

// Service handles roster business logic
type Service struct {
	repo      Store
	validator *validate.Validator
}

// NewService creates a new student service with repository dependency injected
func NewService(repo Store, validator *validate.Validator) *Service {
	return &Service{repo: repo, validator: validator}
}

// Create enrolls a new student
func (s *Service) Create(ctx context.Context, schoolID int64, req *CreateStudentRequest) (*Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	st := &Student{
		SchoolID:    schoolID,
		AdmissionNo: strings.TrimSpace(req.AdmissionNo),
		FullName:    strings.TrimSpace(req.FullName),
		Class:       strings.TrimSpace(req.Class),
		Section:     strings.TrimSpace(req.Section),
	}
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// GetByID retrieves a student by their ID
func (s *Service) GetByID(ctx context.Context, schoolID, id int64) (*Student, error) {
	st, err := s.repo.GetByID(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrStudentNotFound.WithMessage("student %d not found", id)
	}
	return st, nil
}

// List retrieves students with pagination
func (s *Service) List(ctx context.Context, schoolID int64, filter ListFilter, page, perPage int) ([]*Student, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.List(ctx, schoolID, filter, perPage, offset)
}

// ListEnrolled returns every active student in class and section ("ALL" for every section)
func (s *Service) ListEnrolled(ctx context.Context, schoolID int64, class, section string) ([]*Student, error) {
	students, _, err := s.repo.List(ctx, schoolID, ListFilter{Class: class, Section: section, ActiveOnly: true}, 0, 0)
	return students, err
}

// Update modifies an existing student
func (s *Service) Update(ctx context.Context, schoolID, id int64, req *UpdateStudentRequest) (*Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	st, err := s.repo.Update(ctx, schoolID, id, req)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrStudentNotFound.WithMessage("student %d not found", id)
	}
	return st, nil
}
