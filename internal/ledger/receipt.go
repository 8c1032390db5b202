package ledger

import (
	"time"

	"github.com/fkhayef/feeledger/pkg/money"
)

// Receipt is the printable proof of one accepted payment
type Receipt struct {
	ReceiptNumber    string        `json:"receipt_number"`
	PaymentID        string        `json:"payment_id"`
	FeeRecordID      int64         `json:"fee_record_id"`
	StudentID        int64         `json:"student_id"`
	StudentName      string        `json:"student_name"`
	AdmissionNo      string        `json:"admission_no,omitempty"`
	Class            string        `json:"class"`
	Section          string        `json:"section"`
	FeeStructureName string        `json:"fee_structure_name"`
	AcademicYear     string        `json:"academic_year"`
	InstallmentName  string        `json:"installment_name"`
	Amount           int64         `json:"amount"`
	AmountFormatted  string        `json:"amount_formatted"`
	AmountInWords    string        `json:"amount_in_words"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	PaymentReference string        `json:"payment_reference,omitempty"`
	PaymentDate      string        `json:"payment_date"`
	IssuedAt         string        `json:"issued_at"`
	RecordedBy       string        `json:"recorded_by,omitempty"`

	// InstallmentPendingAfter is what remained on the installment once this
	// payment and every earlier one were applied
	InstallmentPendingAfter int64 `json:"installment_pending_after"`
}

// NewReceipt builds the receipt view of payment p on record rec
func NewReceipt(rec *StudentFeeRecord, p *Payment, formatter *money.Formatter) *Receipt {
	var pendingAfter int64
	if inst, ok := rec.Installment(p.InstallmentName); ok {
		paidThrough := int64(0)
		for _, earlier := range rec.Payments {
			if earlier.InstallmentName == p.InstallmentName {
				paidThrough += earlier.Amount
			}
			if earlier.ID == p.ID {
				break
			}
		}
		pendingAfter = inst.Amount - paidThrough
	}

	return &Receipt{
		ReceiptNumber:           p.ReceiptNumber,
		PaymentID:               p.ID.String(),
		FeeRecordID:             rec.ID,
		StudentID:               rec.StudentID,
		StudentName:             rec.StudentName,
		AdmissionNo:             rec.AdmissionNo,
		Class:                   rec.Class,
		Section:                 rec.Section,
		FeeStructureName:        rec.FeeStructureName,
		AcademicYear:            rec.AcademicYear,
		InstallmentName:         p.InstallmentName,
		Amount:                  p.Amount,
		AmountFormatted:         formatter.Format(p.Amount),
		AmountInWords:           formatter.Words(p.Amount),
		PaymentMethod:           p.Method,
		PaymentReference:        p.Reference,
		PaymentDate:             p.PaymentDate.Format(dateLayout),
		IssuedAt:                p.CreatedAt.Format(time.RFC3339),
		RecordedBy:              p.RecordedBy,
		InstallmentPendingAfter: pendingAfter,
	}
}
