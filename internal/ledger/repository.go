package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/fkhayef/feeledger/internal/database"
)

// Repository handles fee record persistence in postgres
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new ledger repository with database dependency injected
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `
	id, school_id, student_id, student_name, admission_no, class, section,
	fee_structure_id, fee_structure_name, academic_year, total_amount, version, created_at`

// CreateRecord inserts a record and its installment balances in one transaction
func (r *Repository) CreateRecord(ctx context.Context, rec *StudentFeeRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO student_fee_records (
			school_id, student_id, student_name, admission_no, class, section,
			fee_structure_id, fee_structure_name, academic_year, total_amount, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
		RETURNING id, version, created_at
	`
	err = tx.QueryRowxContext(ctx, query,
		rec.SchoolID, rec.StudentID, rec.StudentName, rec.AdmissionNo, rec.Class, rec.Section,
		rec.FeeStructureID, rec.FeeStructureName, rec.AcademicYear, rec.TotalAmount,
	).Scan(&rec.ID, &rec.Version, &rec.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrRecordExists
		}
		return fmt.Errorf("failed to create fee record: %w", err)
	}

	insertInstallment := `
		INSERT INTO fee_record_installments (record_id, position, name, amount, paid_amount, due_date, description)
		VALUES ($1, $2, $3, $4, 0, $5, $6)
	`
	for _, inst := range rec.Installments {
		if _, err := tx.ExecContext(ctx, insertInstallment,
			rec.ID, inst.Position, inst.Name, inst.Amount, inst.DueDate, inst.Description,
		); err != nil {
			return fmt.Errorf("failed to create fee record installment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fee record: %w", err)
	}
	return nil
}

// GetRecord retrieves a record with its installments and payments
func (r *Repository) GetRecord(ctx context.Context, schoolID, id int64) (*StudentFeeRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM student_fee_records WHERE id = $1 AND school_id = $2`

	rec := &StudentFeeRecord{}
	if err := r.db.GetContext(ctx, rec, query, id, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get fee record: %w", err)
	}

	if err := r.loadChildren(ctx, []*StudentFeeRecord{rec}); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRecords retrieves matching records ordered by student name, then ID
func (r *Repository) ListRecords(ctx context.Context, schoolID int64, filter RecordFilter) ([]*StudentFeeRecord, int, error) {
	where := []string{"school_id = $1"}
	args := []interface{}{schoolID}

	add := func(clause string, value interface{}) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Class != "" {
		add("class = $%d", filter.Class)
	}
	if filter.Section != "" && filter.Section != "ALL" {
		add("section = $%d", filter.Section)
	}
	if filter.StudentID != 0 {
		add("student_id = $%d", filter.StudentID)
	}
	if filter.FeeStructureID != 0 {
		add("fee_structure_id = $%d", filter.FeeStructureID)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		add("student_name ILIKE $%d", "%"+escapeLike(s)+"%")
	}
	conditions := strings.Join(where, " AND ")

	// Get total count
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM student_fee_records WHERE `+conditions, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count fee records: %w", err)
	}

	query := `SELECT ` + recordColumns + ` FROM student_fee_records WHERE ` + conditions + ` ORDER BY student_name, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	var records []*StudentFeeRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list fee records: %w", err)
	}
	if err := r.loadChildren(ctx, records); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// loadChildren fills installments and payments for a batch of records
func (r *Repository) loadChildren(ctx context.Context, records []*StudentFeeRecord) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]int64, len(records))
	byID := make(map[int64]*StudentFeeRecord, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
		byID[rec.ID] = rec
		rec.Installments = nil
		rec.Payments = nil
	}

	var installments []struct {
		RecordID int64 `db:"record_id"`
		InstallmentBalance
	}
	err := r.db.SelectContext(ctx, &installments, `
		SELECT record_id, position, name, amount, paid_amount, due_date, description
		FROM fee_record_installments
		WHERE record_id = ANY($1)
		ORDER BY record_id, position
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load fee record installments: %w", err)
	}
	for _, row := range installments {
		rec := byID[row.RecordID]
		rec.Installments = append(rec.Installments, row.InstallmentBalance)
	}

	var payments []Payment
	err = r.db.SelectContext(ctx, &payments, `
		SELECT id, school_id, record_id, installment_name, amount, method, reference,
		       payment_date, receipt_number, recorded_by, created_at
		FROM payments
		WHERE record_id = ANY($1)
		ORDER BY record_id, created_at, length(receipt_number), receipt_number
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load payments: %w", err)
	}
	for _, p := range payments {
		rec := byID[p.RecordID]
		rec.Payments = append(rec.Payments, p)
	}

	for _, rec := range records {
		rec.Reindex()
	}
	return nil
}

// AppendPayment bumps the record version, adds the amount to the installment and
// inserts the payment in one transaction. The version predicate makes a concurrent
// writer that read the same snapshot fail with ErrVersionConflict.
func (r *Repository) AppendPayment(ctx context.Context, schoolID, recordID, expectedVersion int64, p *Payment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE student_fee_records
		SET version = version + 1, updated_at = NOW()
		WHERE id = $1 AND school_id = $2 AND version = $3
	`, recordID, schoolID, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to bump fee record version: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return ErrVersionConflict
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE fee_record_installments
		SET paid_amount = paid_amount + $3
		WHERE record_id = $1 AND name = $2 AND paid_amount + $3 <= amount
	`, recordID, p.InstallmentName, p.Amount)
	if err != nil {
		return fmt.Errorf("failed to update installment balance: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	} else if n == 0 {
		return ErrVersionConflict
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO payments (
			id, school_id, record_id, installment_name, amount, method, reference,
			payment_date, receipt_number, recorded_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, p.ID, schoolID, recordID, p.InstallmentName, p.Amount, string(p.Method), p.Reference,
		p.PaymentDate, p.ReceiptNumber, p.RecordedBy,
	).Scan(&p.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateReceipt
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment: %w", err)
	}
	return nil
}

// GetPaymentByReceipt retrieves a payment by receipt number within a school
func (r *Repository) GetPaymentByReceipt(ctx context.Context, schoolID int64, receiptNumber string) (*Payment, error) {
	p := &Payment{}
	err := r.db.GetContext(ctx, p, `
		SELECT id, school_id, record_id, installment_name, amount, method, reference,
		       payment_date, receipt_number, recorded_by, created_at
		FROM payments
		WHERE school_id = $1 AND receipt_number = $2
	`, schoolID, receiptNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment by receipt: %w", err)
	}
	return p, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
