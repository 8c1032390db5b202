package ledger

import "time"

const dateLayout = "2006-01-02"

// RecordPaymentRequest represents the request body for recording an offline payment
type RecordPaymentRequest struct {
	InstallmentName  string `json:"installment_name"`
	Amount           int64  `json:"amount"`
	PaymentMethod    string `json:"payment_method"`
	PaymentDate      string `json:"payment_date"`
	PaymentReference string `json:"payment_reference,omitempty"`
}

// InstallmentResponse represents one installment balance
type InstallmentResponse struct {
	Position    int               `json:"position"`
	Name        string            `json:"name"`
	Amount      int64             `json:"amount"`
	PaidAmount  int64             `json:"paid_amount"`
	Pending     int64             `json:"pending"`
	Status      InstallmentStatus `json:"status"`
	DueDate     string            `json:"due_date"`
	Description string            `json:"description,omitempty"`
}

// PaymentResponse represents one payment in a record's history
type PaymentResponse struct {
	ID              string        `json:"id"`
	InstallmentName string        `json:"installment_name"`
	Amount          int64         `json:"amount"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	Reference       string        `json:"payment_reference,omitempty"`
	PaymentDate     string        `json:"payment_date"`
	ReceiptNumber   string        `json:"receipt_number"`
	RecordedBy      string        `json:"recorded_by,omitempty"`
	CreatedAt       string        `json:"created_at"`
}

// RecordResponse represents a full student fee record
type RecordResponse struct {
	ID               int64                 `json:"id"`
	StudentID        int64                 `json:"student_id"`
	StudentName      string                `json:"student_name"`
	AdmissionNo      string                `json:"admission_no,omitempty"`
	Class            string                `json:"class"`
	Section          string                `json:"section"`
	FeeStructureID   int64                 `json:"fee_structure_id"`
	FeeStructureName string                `json:"fee_structure_name"`
	AcademicYear     string                `json:"academic_year"`
	TotalAmount      int64                 `json:"total_amount"`
	TotalPaid        int64                 `json:"total_paid"`
	TotalPending     int64                 `json:"total_pending"`
	Status           Status                `json:"status"`
	Installments     []InstallmentResponse `json:"installments"`
	Payments         []PaymentResponse     `json:"payments"`
}

// RecordSummaryResponse represents a record in listings
type RecordSummaryResponse struct {
	ID               int64  `json:"id"`
	StudentID        int64  `json:"student_id"`
	StudentName      string `json:"student_name"`
	Class            string `json:"class"`
	Section          string `json:"section"`
	FeeStructureID   int64  `json:"fee_structure_id"`
	FeeStructureName string `json:"fee_structure_name"`
	TotalAmount      int64  `json:"total_amount"`
	TotalPaid        int64  `json:"total_paid"`
	TotalPending     int64  `json:"total_pending"`
	Status           Status `json:"status"`
}

// ToResponse converts a payment to its response DTO
func (p *Payment) ToResponse() PaymentResponse {
	return PaymentResponse{
		ID:              p.ID.String(),
		InstallmentName: p.InstallmentName,
		Amount:          p.Amount,
		PaymentMethod:   p.Method,
		Reference:       p.Reference,
		PaymentDate:     p.PaymentDate.Format(dateLayout),
		ReceiptNumber:   p.ReceiptNumber,
		RecordedBy:      p.RecordedBy,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
	}
}

// ToResponse converts a record to its full response DTO
func (r *StudentFeeRecord) ToResponse() *RecordResponse {
	installments := make([]InstallmentResponse, len(r.Installments))
	for i := range r.Installments {
		inst := &r.Installments[i]
		installments[i] = InstallmentResponse{
			Position:    inst.Position,
			Name:        inst.Name,
			Amount:      inst.Amount,
			PaidAmount:  inst.PaidAmount,
			Pending:     inst.Pending(),
			Status:      inst.Status(),
			DueDate:     inst.DueDate.Format(dateLayout),
			Description: inst.Description,
		}
	}

	payments := make([]PaymentResponse, len(r.Payments))
	for i := range r.Payments {
		payments[i] = r.Payments[i].ToResponse()
	}

	totalPaid := r.TotalPaid()
	return &RecordResponse{
		ID:               r.ID,
		StudentID:        r.StudentID,
		StudentName:      r.StudentName,
		AdmissionNo:      r.AdmissionNo,
		Class:            r.Class,
		Section:          r.Section,
		FeeStructureID:   r.FeeStructureID,
		FeeStructureName: r.FeeStructureName,
		AcademicYear:     r.AcademicYear,
		TotalAmount:      r.TotalAmount,
		TotalPaid:        totalPaid,
		TotalPending:     r.TotalAmount - totalPaid,
		Status:           DeriveStatus(totalPaid, r.TotalAmount),
		Installments:     installments,
		Payments:         payments,
	}
}

// ToSummary converts a record to its listing DTO
func (r *StudentFeeRecord) ToSummary() RecordSummaryResponse {
	totalPaid := r.TotalPaid()
	return RecordSummaryResponse{
		ID:               r.ID,
		StudentID:        r.StudentID,
		StudentName:      r.StudentName,
		Class:            r.Class,
		Section:          r.Section,
		FeeStructureID:   r.FeeStructureID,
		FeeStructureName: r.FeeStructureName,
		TotalAmount:      r.TotalAmount,
		TotalPaid:        totalPaid,
		TotalPending:     r.TotalAmount - totalPaid,
		Status:           DeriveStatus(totalPaid, r.TotalAmount),
	}
}
