package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is the closed set of offline payment methods
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCheque       PaymentMethod = "cheque"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodOnline       PaymentMethod = "online"
	MethodOther        PaymentMethod = "other"
)

// PaymentMethods lists every accepted method in display order
var PaymentMethods = []PaymentMethod{MethodCash, MethodCheque, MethodBankTransfer, MethodOnline, MethodOther}

// ParsePaymentMethod converts an API value into a PaymentMethod
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(s)
	if !m.Valid() {
		return "", ErrInvalidPaymentMethod.WithMessage("payment method %q is not one of cash, cheque, bank_transfer, online, other", s)
	}
	return m, nil
}

// Valid reports whether m is a known method
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCheque, MethodBankTransfer, MethodOnline, MethodOther:
		return true
	}
	return false
}

// RequiresReference reports whether a payment with this method must carry a reference
func (m PaymentMethod) RequiresReference() bool {
	switch m {
	case MethodCheque, MethodBankTransfer, MethodOnline:
		return true
	case MethodCash, MethodOther:
		return false
	}
	return false
}

// InstallmentStatus is the derived state of one installment
type InstallmentStatus string

const (
	InstallmentUnpaid  InstallmentStatus = "UNPAID"
	InstallmentPartial InstallmentStatus = "PARTIAL"
	InstallmentPaid    InstallmentStatus = "PAID"
)

// Status is the derived state of a whole record
type Status string

const (
	StatusPaid    Status = "paid"
	StatusPartial Status = "partial"
	StatusPending Status = "pending"
)

// DeriveStatus maps paid-versus-due onto a record status
func DeriveStatus(totalPaid, totalAmount int64) Status {
	switch {
	case totalPaid >= totalAmount:
		return StatusPaid
	case totalPaid > 0:
		return StatusPartial
	default:
		return StatusPending
	}
}

// InstallmentBalance tracks what has been paid against one scheduled installment
type InstallmentBalance struct {
	Position    int       `json:"position" db:"position"`
	Name        string    `json:"name" db:"name"`
	Amount      int64     `json:"amount" db:"amount"`
	PaidAmount  int64     `json:"paid_amount" db:"paid_amount"`
	DueDate     time.Time `json:"due_date" db:"due_date"`
	Description string    `json:"description,omitempty" db:"description"`
}

// Pending returns the amount still owed on the installment
func (b *InstallmentBalance) Pending() int64 {
	return b.Amount - b.PaidAmount
}

// Status derives the installment state
func (b *InstallmentBalance) Status() InstallmentStatus {
	switch {
	case b.PaidAmount >= b.Amount:
		return InstallmentPaid
	case b.PaidAmount > 0:
		return InstallmentPartial
	default:
		return InstallmentUnpaid
	}
}

// Payment is an accepted, immutable payment against one installment
type Payment struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	SchoolID        int64         `json:"school_id" db:"school_id"`
	RecordID        int64         `json:"record_id" db:"record_id"`
	InstallmentName string        `json:"installment_name" db:"installment_name"`
	Amount          int64         `json:"amount" db:"amount"`
	Method          PaymentMethod `json:"payment_method" db:"method"`
	Reference       string        `json:"payment_reference,omitempty" db:"reference"`
	PaymentDate     time.Time     `json:"payment_date" db:"payment_date"`
	ReceiptNumber   string        `json:"receipt_number" db:"receipt_number"`
	RecordedBy      string        `json:"recorded_by,omitempty" db:"recorded_by"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
}

// StudentFeeRecord is one student's materialization of a fee structure.
// Installments is an arena with fixed identities; index maps names to slots.
type StudentFeeRecord struct {
	ID               int64     `db:"id"`
	SchoolID         int64     `db:"school_id"`
	StudentID        int64     `db:"student_id"`
	StudentName      string    `db:"student_name"`
	AdmissionNo      string    `db:"admission_no"`
	Class            string    `db:"class"`
	Section          string    `db:"section"`
	FeeStructureID   int64     `db:"fee_structure_id"`
	FeeStructureName string    `db:"fee_structure_name"`
	AcademicYear     string    `db:"academic_year"`
	TotalAmount      int64     `db:"total_amount"`
	Version          int64     `db:"version"`
	CreatedAt        time.Time `db:"created_at"`

	Installments []InstallmentBalance
	Payments     []Payment

	index map[string]int
}

// Reindex rebuilds the name lookup after Installments is replaced
func (r *StudentFeeRecord) Reindex() {
	r.index = make(map[string]int, len(r.Installments))
	for i := range r.Installments {
		r.index[r.Installments[i].Name] = i
	}
}

// Installment returns the balance for name
func (r *StudentFeeRecord) Installment(name string) (*InstallmentBalance, bool) {
	if r.index == nil || len(r.index) != len(r.Installments) {
		r.Reindex()
	}
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return &r.Installments[i], true
}

// TotalPaid is recomputed from the payment history
func (r *StudentFeeRecord) TotalPaid() int64 {
	var total int64
	for _, p := range r.Payments {
		total += p.Amount
	}
	return total
}

// TotalPending is what remains owed across all installments
func (r *StudentFeeRecord) TotalPending() int64 {
	return r.TotalAmount - r.TotalPaid()
}

// Status derives the overall record status
func (r *StudentFeeRecord) Status() Status {
	return DeriveStatus(r.TotalPaid(), r.TotalAmount)
}

// Apply books an accepted payment onto the record
func (r *StudentFeeRecord) Apply(p Payment) error {
	inst, ok := r.Installment(p.InstallmentName)
	if !ok {
		return ErrUnknownInstallment.WithMessage("installment %q does not exist on fee record %d", p.InstallmentName, r.ID)
	}
	if p.Amount <= 0 || p.Amount > inst.Pending() {
		return fmt.Errorf("payment of %d does not fit pending %d on %q", p.Amount, inst.Pending(), inst.Name)
	}
	inst.PaidAmount += p.Amount
	r.Payments = append(r.Payments, p)
	r.Version++
	return nil
}

// CheckConsistency verifies totalPaid == sum(paidAmount) == sum(payments) and 0 <= paid <= amount
func (r *StudentFeeRecord) CheckConsistency() error {
	var scheduled, paid int64
	perInstallment := make(map[string]int64, len(r.Installments))
	for _, inst := range r.Installments {
		if inst.PaidAmount < 0 || inst.PaidAmount > inst.Amount {
			return fmt.Errorf("installment %q paid %d outside [0, %d]", inst.Name, inst.PaidAmount, inst.Amount)
		}
		scheduled += inst.Amount
		paid += inst.PaidAmount
	}
	for _, p := range r.Payments {
		perInstallment[p.InstallmentName] += p.Amount
	}
	if scheduled != r.TotalAmount {
		return fmt.Errorf("installments sum to %d, record total is %d", scheduled, r.TotalAmount)
	}
	if total := r.TotalPaid(); total != paid {
		return fmt.Errorf("payments sum to %d, installments record %d paid", total, paid)
	}
	for _, inst := range r.Installments {
		if perInstallment[inst.Name] != inst.PaidAmount {
			return fmt.Errorf("installment %q records %d paid, payments sum to %d", inst.Name, inst.PaidAmount, perInstallment[inst.Name])
		}
	}
	return nil
}

// Clone returns a deep copy
func (r *StudentFeeRecord) Clone() *StudentFeeRecord {
	c := *r
	c.Installments = append([]InstallmentBalance(nil), r.Installments...)
	c.Payments = append([]Payment(nil), r.Payments...)
	c.index = nil
	return &c
}

// NewRecordInput is everything needed to materialize a record for one student
type NewRecordInput struct {
	SchoolID         int64
	StudentID        int64
	StudentName      string
	AdmissionNo      string
	Class            string
	Section          string
	FeeStructureID   int64
	FeeStructureName string
	AcademicYear     string
	TotalAmount      int64
	Installments     []InstallmentBalance
}

// NewStudentFeeRecord builds an unpaid record, copying the schedule verbatim
func NewStudentFeeRecord(in NewRecordInput) *StudentFeeRecord {
	rec := &StudentFeeRecord{
		SchoolID:         in.SchoolID,
		StudentID:        in.StudentID,
		StudentName:      in.StudentName,
		AdmissionNo:      in.AdmissionNo,
		Class:            in.Class,
		Section:          in.Section,
		FeeStructureID:   in.FeeStructureID,
		FeeStructureName: in.FeeStructureName,
		AcademicYear:     in.AcademicYear,
		TotalAmount:      in.TotalAmount,
		Installments:     make([]InstallmentBalance, len(in.Installments)),
	}
	for i, inst := range in.Installments {
		inst.Position = i + 1
		inst.PaidAmount = 0
		rec.Installments[i] = inst
	}
	rec.Reindex()
	return rec
}

// School identifies the tenant a request acts on
type School struct {
	ID   int64
	Code string
}
