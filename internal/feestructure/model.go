package feestructure

import "time"

// FeeStructure is an immutable, versioned fee definition for a class/section/year
type FeeStructure struct {
	ID           int64             `db:"id"`
	SchoolID     int64             `db:"school_id"`
	Name         string            `db:"name"`
	Description  string            `db:"description"`
	Class        string            `db:"class"`
	Section      string            `db:"section"`
	AcademicYear string            `db:"academic_year"`
	Version      int               `db:"version"`
	TotalAmount  int64             `db:"total_amount"`
	CreatedBy    string            `db:"created_by"`
	CreatedAt    time.Time         `db:"created_at"`
	Installments []InstallmentSpec `db:"-"`
}

// InstallmentSpec is one scheduled installment of a structure
type InstallmentSpec struct {
	Position    int       `db:"position"`
	Name        string    `db:"name"`
	Amount      int64     `db:"amount"`
	DueDate     time.Time `db:"due_date"`
	Description string    `db:"description"`
}

// ApplyResult reports the outcome of materializing a structure for a class
type ApplyResult struct {
	FeeStructureID    int64          `json:"fee_structure_id"`
	Targeted          int            `json:"targeted"`
	AppliedToStudents int            `json:"applied_to_students"`
	Skipped           int            `json:"skipped"`
	Failed            []ApplyFailure `json:"failed"`
	// Error is set when the structure was stored but no student could be targeted.
	Error string `json:"error,omitempty"`
}

// ApplyFailure names a student whose record could not be created
type ApplyFailure struct {
	StudentID   int64  `json:"student_id"`
	StudentName string `json:"student_name"`
	Reason      string `json:"reason"`
}
