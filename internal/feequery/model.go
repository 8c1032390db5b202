package feequery

import (
	"time"

	"github.com/fkhayef/feeledger/internal/ledger"
)

// Totals is a due/paid/pending triple in minor units with display strings
type Totals struct {
	Due            int64  `json:"total_due"`
	Paid           int64  `json:"total_paid"`
	Pending        int64  `json:"total_pending"`
	DueDisplay     string `json:"total_due_display"`
	PaidDisplay    string `json:"total_paid_display"`
	PendingDisplay string `json:"total_pending_display"`
}

// StatusCounts counts records per derived status
type StatusCounts struct {
	Paid    int `json:"paid"`
	Partial int `json:"partial"`
	Pending int `json:"pending"`
}

func (c *StatusCounts) add(s ledger.Status) {
	switch s {
	case ledger.StatusPaid:
		c.Paid++
	case ledger.StatusPartial:
		c.Partial++
	case ledger.StatusPending:
		c.Pending++
	}
}

// RecordStatus is one fee record inside a student summary
type RecordStatus struct {
	RecordID         int64         `json:"record_id"`
	FeeStructureID   int64         `json:"fee_structure_id"`
	FeeStructureName string        `json:"fee_structure_name"`
	AcademicYear     string        `json:"academic_year"`
	Status           ledger.Status `json:"status"`
	Totals
}

// StudentSummary totals every fee record of one student
type StudentSummary struct {
	StudentID   int64          `json:"student_id"`
	StudentName string         `json:"student_name"`
	AdmissionNo string         `json:"admission_no,omitempty"`
	Class       string         `json:"class"`
	Section     string         `json:"section"`
	Status      ledger.Status  `json:"status"`
	Records     []RecordStatus `json:"records"`
	Totals
}

// StructureBreakdown is the per-structure slice of a class summary
type StructureBreakdown struct {
	FeeStructureID   int64        `json:"fee_structure_id"`
	FeeStructureName string       `json:"fee_structure_name"`
	AcademicYear     string       `json:"academic_year"`
	RecordCount      int          `json:"record_count"`
	StatusCounts     StatusCounts `json:"status_counts"`
	Totals
}

// ClassSummary aggregates every record in a class (and optionally a section)
type ClassSummary struct {
	Class        string               `json:"class"`
	Section      string               `json:"section,omitempty"`
	StudentCount int                  `json:"student_count"`
	RecordCount  int                  `json:"record_count"`
	StatusCounts StatusCounts         `json:"status_counts"`
	Structures   []StructureBreakdown `json:"structures"`
	Totals
}

// OutstandingFilter narrows the outstanding dues listing. A zero AsOf means today.
type OutstandingFilter struct {
	Class   string
	Section string
	AsOf    time.Time
}

// OutstandingDue is one installment with money still owed
type OutstandingDue struct {
	RecordID            int64  `json:"record_id"`
	StudentID           int64  `json:"student_id"`
	StudentName         string `json:"student_name"`
	AdmissionNo         string `json:"admission_no,omitempty"`
	Class               string `json:"class"`
	Section             string `json:"section"`
	FeeStructureID      int64  `json:"fee_structure_id"`
	FeeStructureName    string `json:"fee_structure_name"`
	InstallmentPosition int    `json:"installment_position"`
	InstallmentName     string `json:"installment_name"`
	Amount              int64  `json:"amount"`
	Paid                int64  `json:"paid"`
	Pending             int64  `json:"pending"`
	DueDate             string `json:"due_date"`
	Overdue             bool   `json:"overdue"`
	DaysOverdue         int    `json:"days_overdue"`

	due time.Time
}

// OutstandingReport wraps the listing with its reference date and total
type OutstandingReport struct {
	AsOf           string           `json:"as_of"`
	TotalPending   int64            `json:"total_pending"`
	PendingDisplay string           `json:"total_pending_display"`
	OverdueCount   int              `json:"overdue_count"`
	Items          []OutstandingDue `json:"items"`
}

// MethodTotal sums accepted payments for one method
type MethodTotal struct {
	Method  ledger.PaymentMethod `json:"method"`
	Count   int                  `json:"count"`
	Amount  int64                `json:"amount"`
	Display string               `json:"amount_display"`
}

// DayTotal sums accepted payments for one payment date
type DayTotal struct {
	Date    string `json:"date"`
	Count   int    `json:"count"`
	Amount  int64  `json:"amount"`
	Display string `json:"amount_display"`
}

// CollectionsReport totals payments dated within [From, To]
type CollectionsReport struct {
	From         string        `json:"from"`
	To           string        `json:"to"`
	PaymentCount int           `json:"payment_count"`
	Total        int64         `json:"total"`
	TotalDisplay string        `json:"total_display"`
	ByMethod     []MethodTotal `json:"by_method"`
	ByDay        []DayTotal    `json:"by_day"`
}
