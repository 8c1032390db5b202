package feestructure

import (
	"github.com/fkhayef/feeledger/internal/installment"
)

const dateLayout = "2006-01-02"

// CreateFeeStructureRequest represents the request body for creating a fee structure.
// Exactly one of Installments or Plan must be given.
type CreateFeeStructureRequest struct {
	Name            string                   `json:"name" validate:"required,max=200"`
	Description     string                   `json:"description,omitempty" validate:"max=1000"`
	Class           string                   `json:"class" validate:"required,max=50"`
	Section         string                   `json:"section,omitempty" validate:"max=20"`
	AcademicYear    string                   `json:"academic_year" validate:"required,max=20"`
	TotalAmount     int64                    `json:"total_amount"`
	Installments    []InstallmentSpecRequest `json:"installments,omitempty"`
	Plan            *PlanRequest             `json:"plan,omitempty"`
	ApplyToStudents bool                     `json:"apply_to_students"`
}

// InstallmentSpecRequest is one explicit installment
type InstallmentSpecRequest struct {
	Name        string `json:"name"`
	Amount      int64  `json:"amount"`
	DueDate     string `json:"due_date"`
	Description string `json:"description,omitempty"`
}

// PlanRequest asks the generator to produce the installments
type PlanRequest struct {
	Count          int                `json:"count"`
	Policy         installment.Policy `json:"policy"`
	FirstDueDate   string             `json:"first_due_date" validate:"required,date"`
	IntervalMonths int                `json:"interval_months,omitempty" validate:"gte=0,lte=12"`
}

// InstallmentSpecResponse represents one installment of a structure
type InstallmentSpecResponse struct {
	Position    int    `json:"position"`
	Name        string `json:"name"`
	Amount      int64  `json:"amount"`
	DueDate     string `json:"due_date"`
	Description string `json:"description,omitempty"`
}

// FeeStructureResponse represents the response for a fee structure
type FeeStructureResponse struct {
	ID           int64                     `json:"id"`
	Name         string                    `json:"name"`
	Description  string                    `json:"description,omitempty"`
	Class        string                    `json:"class"`
	Section      string                    `json:"section"`
	AcademicYear string                    `json:"academic_year"`
	Version      int                       `json:"version"`
	TotalAmount  int64                     `json:"total_amount"`
	CreatedBy    string                    `json:"created_by,omitempty"`
	CreatedAt    string                    `json:"created_at"`
	Installments []InstallmentSpecResponse `json:"installments"`
}

// CreateFeeStructureResponse is returned from create
type CreateFeeStructureResponse struct {
	ID                int64                 `json:"id"`
	FeeStructure      *FeeStructureResponse `json:"fee_structure"`
	AppliedToStudents *int                  `json:"applied_to_students,omitempty"`
	Apply             *ApplyResult          `json:"apply,omitempty"`
}

// ListFilter narrows structure listings
type ListFilter struct {
	Class        string
	Section      string
	AcademicYear string
}

// ToResponse converts a FeeStructure model to its response DTO
func (f *FeeStructure) ToResponse() *FeeStructureResponse {
	installments := make([]InstallmentSpecResponse, len(f.Installments))
	for i, inst := range f.Installments {
		installments[i] = InstallmentSpecResponse{
			Position:    inst.Position,
			Name:        inst.Name,
			Amount:      inst.Amount,
			DueDate:     inst.DueDate.Format(dateLayout),
			Description: inst.Description,
		}
	}

	return &FeeStructureResponse{
		ID:           f.ID,
		Name:         f.Name,
		Description:  f.Description,
		Class:        f.Class,
		Section:      f.Section,
		AcademicYear: f.AcademicYear,
		Version:      f.Version,
		TotalAmount:  f.TotalAmount,
		CreatedBy:    f.CreatedBy,
		CreatedAt:    f.CreatedAt.Format("2006-01-02T15:04:05Z"),
		Installments: installments,
	}
}
