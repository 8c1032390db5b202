package ledger

import (
	"context"
	"errors"
)

// Store errors. Stores return these; the service maps them onto the public taxonomy.
var (
	ErrVersionConflict  = errors.New("fee record was modified concurrently")
	ErrRecordExists     = errors.New("fee record already exists for student and fee structure")
	ErrDuplicateReceipt = errors.New("receipt number already used")
)

// RecordFilter narrows record listings. A zero Limit means no limit.
type RecordFilter struct {
	Class          string
	Section        string
	Search         string
	StudentID      int64
	FeeStructureID int64
	Limit          int
	Offset         int
}

// Store persists fee records and their payments.
// Reads return nil, nil when nothing matches the school-scoped key.
type Store interface {
	CreateRecord(ctx context.Context, rec *StudentFeeRecord) error
	GetRecord(ctx context.Context, schoolID, id int64) (*StudentFeeRecord, error)
	ListRecords(ctx context.Context, schoolID int64, filter RecordFilter) ([]*StudentFeeRecord, int, error)

	// AppendPayment atomically adds p to its installment and appends it to the
	// payment history, provided the record is still at expectedVersion.
	// It returns ErrVersionConflict otherwise.
	AppendPayment(ctx context.Context, schoolID, recordID, expectedVersion int64, p *Payment) error

	GetPaymentByReceipt(ctx context.Context, schoolID int64, receiptNumber string) (*Payment, error)
}
