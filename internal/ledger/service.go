package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fkhayef/feeledger/pkg/apperror"
	"github.com/fkhayef/feeledger/pkg/money"
)

// Common errors
var (
	ErrRecordNotFound       = apperror.NotFound("FEE_RECORD_NOT_FOUND", "fee record not found")
	ErrUnknownInstallment   = apperror.NotFound("UNKNOWN_INSTALLMENT", "installment not found on fee record")
	ErrInvalidAmount        = apperror.Validation("INVALID_AMOUNT", "amount must be a positive integer")
	ErrInvalidDate          = apperror.Validation("INVALID_DATE", "payment date must be a YYYY-MM-DD date not after today")
	ErrExceedsPending       = apperror.Invariant("EXCEEDS_PENDING", "amount exceeds the pending balance of the installment")
	ErrInvalidPaymentMethod = apperror.Validation("INVALID_PAYMENT_METHOD", "unknown payment method")
	ErrReferenceRequired    = apperror.Validation("REFERENCE_REQUIRED", "payment reference is required for this payment method")
	ErrConcurrencyConflict  = apperror.Conflict("CONCURRENCY_CONFLICT", "fee record is being updated by another request, try again")
	ErrReceiptNotFound      = apperror.NotFound("RECEIPT_NOT_FOUND", "receipt not found")
	ErrReceiptCollision     = apperror.Conflict("RECEIPT_NUMBER_COLLISION", "receipt numbers are already in use; the receipt sequence is behind stored payments")
)

const defaultMaxRetries = 5

// ReceiptMinter reserves the next receipt number for a school
type ReceiptMinter interface {
	Mint(ctx context.Context, school School) (string, error)
}

// Options tune a Service
type Options struct {
	MaxRetries int
	Location   *time.Location
	Now        func() time.Time
	Formatter  *money.Formatter
	Logger     *zap.Logger
	Metrics    PaymentObserver
}

// PaymentObserver is notified about payment outcomes
type PaymentObserver interface {
	PaymentRecorded(method PaymentMethod, amount int64)
	PaymentRejected(code string)
	PaymentConflict()
}

type noopObserver struct{}

func (noopObserver) PaymentRecorded(PaymentMethod, int64) {}
func (noopObserver) PaymentRejected(string)               {}
func (noopObserver) PaymentConflict()                     {}

// Service handles fee record business logic
type Service struct {
	store      Store
	receipts   ReceiptMinter
	maxRetries int
	loc        *time.Location
	now        func() time.Time
	formatter  *money.Formatter
	logger     *zap.Logger
	metrics    PaymentObserver
}

// NewService creates a new ledger service
func NewService(store Store, receipts ReceiptMinter, opts Options) *Service {
	s := &Service{
		store:      store,
		receipts:   receipts,
		maxRetries: opts.MaxRetries,
		loc:        opts.Location,
		now:        opts.Now,
		formatter:  opts.Formatter,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
	if s.maxRetries <= 0 {
		s.maxRetries = defaultMaxRetries
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.formatter == nil {
		s.formatter = money.NewFormatter("KES", 2)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = noopObserver{}
	}
	return s
}

// Formatter returns the money formatter used for receipts
func (s *Service) Formatter() *money.Formatter {
	return s.formatter
}

// CreateRecord materializes a record for one student
func (s *Service) CreateRecord(ctx context.Context, in NewRecordInput) (*StudentFeeRecord, error) {
	rec := NewStudentFeeRecord(in)
	if err := s.store.CreateRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetRecord retrieves a record within the school
func (s *Service) GetRecord(ctx context.Context, schoolID, id int64) (*StudentFeeRecord, error) {
	rec, err := s.store.GetRecord(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRecordNotFound.WithMessage("fee record %d not found", id)
	}
	return rec, nil
}

// ListRecords retrieves records with pagination
func (s *Service) ListRecords(ctx context.Context, schoolID int64, filter RecordFilter, page, perPage int) ([]*StudentFeeRecord, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	filter.Limit = perPage
	filter.Offset = (page - 1) * perPage
	return s.store.ListRecords(ctx, schoolID, filter)
}

// AllRecords retrieves every matching record without pagination
func (s *Service) AllRecords(ctx context.Context, schoolID int64, filter RecordFilter) ([]*StudentFeeRecord, error) {
	filter.Limit, filter.Offset = 0, 0
	records, _, err := s.store.ListRecords(ctx, schoolID, filter)
	return records, err
}

// RecordPayment validates and books an offline payment, returning its receipt.
// Preconditions are checked in a fixed order and the first failure is returned;
// a rejected payment leaves the record untouched.
func (s *Service) RecordPayment(ctx context.Context, school School, recordID int64, recordedBy string, req *RecordPaymentRequest) (*Receipt, error) {
	var (
		payment    *Payment
		collisions int
	)

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		rec, err := s.GetRecord(ctx, school.ID, recordID)
		if err != nil {
			s.reject(err)
			return nil, err
		}

		candidate, err := s.validate(rec, req)
		if err != nil {
			s.reject(err)
			return nil, err
		}

		// A payment keeps its identity and receipt number across retries.
		// Numbers reserved for a payment that ends up rejected stay unused.
		if payment == nil {
			number, err := s.receipts.Mint(ctx, school)
			if err != nil {
				return nil, err
			}
			candidate.ID = uuid.New()
			candidate.ReceiptNumber = number
			payment = candidate
		} else {
			candidate.ID = payment.ID
			candidate.ReceiptNumber = payment.ReceiptNumber
			payment = candidate
		}
		payment.SchoolID = school.ID
		payment.RecordID = rec.ID
		payment.RecordedBy = recordedBy

		err = s.store.AppendPayment(ctx, school.ID, rec.ID, rec.Version, payment)
		if errors.Is(err, ErrVersionConflict) {
			s.metrics.PaymentConflict()
			s.logger.Debug("fee record version conflict, retrying",
				zap.Int64("record_id", rec.ID),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		if errors.Is(err, ErrDuplicateReceipt) {
			// The number is burned; the next attempt mints a fresh one.
			collisions++
			s.logger.Warn("receipt number already used, minting another",
				zap.Int64("school_id", school.ID),
				zap.String("receipt_number", payment.ReceiptNumber),
			)
			payment = nil
			continue
		}
		if err != nil {
			return nil, err
		}

		if err := rec.Apply(*payment); err != nil {
			return nil, err
		}

		s.metrics.PaymentRecorded(payment.Method, payment.Amount)
		s.logger.Info("payment recorded",
			zap.Int64("school_id", school.ID),
			zap.Int64("record_id", rec.ID),
			zap.String("installment", payment.InstallmentName),
			zap.Int64("amount", payment.Amount),
			zap.String("method", string(payment.Method)),
			zap.String("receipt_number", payment.ReceiptNumber),
		)
		return NewReceipt(rec, payment, s.formatter), nil
	}

	if collisions > 0 && collisions == s.maxRetries+1 {
		s.reject(ErrReceiptCollision)
		return nil, ErrReceiptCollision.WithDetail("attempts", collisions)
	}
	s.reject(ErrConcurrencyConflict)
	return nil, ErrConcurrencyConflict.WithDetail("attempts", s.maxRetries+1)
}

// validate checks the request against a snapshot of the record
func (s *Service) validate(rec *StudentFeeRecord, req *RecordPaymentRequest) (*Payment, error) {
	inst, ok := rec.Installment(req.InstallmentName)
	if !ok {
		return nil, ErrUnknownInstallment.
			WithMessage("installment %q does not exist on fee record %d", req.InstallmentName, rec.ID).
			WithDetail("installment_name", req.InstallmentName)
	}

	if req.Amount <= 0 {
		return nil, ErrInvalidAmount.WithDetail("amount", req.Amount)
	}

	paymentDate, err := s.parsePaymentDate(req.PaymentDate)
	if err != nil {
		return nil, err
	}

	pending := inst.Pending()
	if req.Amount > pending {
		return nil, ErrExceedsPending.
			WithMessage("amount %d exceeds pending balance %d on %q", req.Amount, pending, inst.Name).
			WithDetail("pending", pending).
			WithDetail("amount", req.Amount).
			WithDetail("installment_name", inst.Name)
	}

	method, err := ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	reference := strings.TrimSpace(req.PaymentReference)
	if method.RequiresReference() && reference == "" {
		return nil, ErrReferenceRequired.
			WithMessage("payment reference is required for %s payments", method).
			WithDetail("payment_method", string(method))
	}

	return &Payment{
		InstallmentName: inst.Name,
		Amount:          req.Amount,
		Method:          method,
		Reference:       reference,
		PaymentDate:     paymentDate,
	}, nil
}

// parsePaymentDate accepts any date up to and including today in the school's timezone
func (s *Service) parsePaymentDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidDate.WithMessage("payment date is required")
	}

	date, err := time.ParseInLocation(dateLayout, value, s.loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate.WithMessage("payment date %q is not a YYYY-MM-DD date", value)
	}

	y, m, d := s.now().In(s.loc).Date()
	endOfToday := time.Date(y, m, d+1, 0, 0, 0, 0, s.loc)
	if !date.Before(endOfToday) {
		return time.Time{}, ErrInvalidDate.
			WithMessage("payment date %s is in the future", value).
			WithDetail("today", time.Date(y, m, d, 0, 0, 0, 0, s.loc).Format(dateLayout))
	}
	return date, nil
}

// LookupReceipt returns the receipt view for a receipt number within the school
func (s *Service) LookupReceipt(ctx context.Context, schoolID int64, number string) (*Receipt, error) {
	p, err := s.store.GetPaymentByReceipt(ctx, schoolID, number)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrReceiptNotFound.WithMessage("receipt %s not found", number)
	}

	rec, err := s.store.GetRecord(ctx, schoolID, p.RecordID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrReceiptNotFound.WithMessage("receipt %s not found", number)
	}
	return NewReceipt(rec, p, s.formatter), nil
}

func (s *Service) reject(err error) {
	if e, ok := apperror.As(err); ok {
		s.metrics.PaymentRejected(e.Code)
	}
}
