package feestructure

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

// errVersionTaken is returned when a concurrent create claimed the same version
var errVersionTaken = errors.New("fee structure version already taken")

// Store persists fee structures. Reads return nil, nil when nothing matches.
type Store interface {
	// Create assigns ID, Version (previous version of the same name and scope + 1) and CreatedAt
	Create(ctx context.Context, fs *FeeStructure) error
	GetByID(ctx context.Context, schoolID, id int64) (*FeeStructure, error)
	List(ctx context.Context, schoolID int64, filter ListFilter, limit, offset int) ([]*FeeStructure, int, error)
}

// Repository handles fee structure persistence
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new fee structure repository with database dependency injected
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const structureColumns = `
	id, school_id, name, description, class, section, academic_year,
	version, total_amount, created_by, created_at`

// Create inserts the structure and its installments in one transaction
func (r *Repository) Create(ctx context.Context, fs *FeeStructure) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO fee_structures (
			school_id, name, description, class, section, academic_year,
			version, total_amount, created_by
		)
		SELECT $1, $2, $3, $4, $5, $6, COALESCE(MAX(version), 0) + 1, $7, $8
		FROM fee_structures
		WHERE school_id = $1 AND name = $2 AND class = $4 AND section = $5 AND academic_year = $6
		RETURNING id, version, created_at
	`
	err = tx.QueryRowxContext(ctx, query,
		fs.SchoolID, fs.Name, fs.Description, fs.Class, fs.Section, fs.AcademicYear,
		fs.TotalAmount, fs.CreatedBy,
	).Scan(&fs.ID, &fs.Version, &fs.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return errVersionTaken
		}
		return fmt.Errorf("failed to create fee structure: %w", err)
	}

	insertInstallment := `
		INSERT INTO fee_structure_installments (structure_id, position, name, amount, due_date, description)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, inst := range fs.Installments {
		if _, err := tx.ExecContext(ctx, insertInstallment,
			fs.ID, inst.Position, inst.Name, inst.Amount, inst.DueDate, inst.Description,
		); err != nil {
			return fmt.Errorf("failed to create fee structure installment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fee structure: %w", err)
	}
	return nil
}

// GetByID retrieves a structure with its installments
func (r *Repository) GetByID(ctx context.Context, schoolID, id int64) (*FeeStructure, error) {
	query := `SELECT ` + structureColumns + ` FROM fee_structures WHERE id = $1 AND school_id = $2`

	fs := &FeeStructure{}
	if err := r.db.GetContext(ctx, fs, query, id, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get fee structure: %w", err)
	}

	if err := r.loadInstallments(ctx, []*FeeStructure{fs}); err != nil {
		return nil, err
	}
	return fs, nil
}

// List retrieves structures newest first. A section filter also matches "ALL" structures.
func (r *Repository) List(ctx context.Context, schoolID int64, filter ListFilter, limit, offset int) ([]*FeeStructure, int, error) {
	where := []string{"school_id = $1"}
	args := []interface{}{schoolID}

	add := func(clause string, value interface{}) {
		args = append(args, value)
		where = append(where, strings.ReplaceAll(clause, "?", fmt.Sprintf("$%d", len(args))))
	}
	if filter.Class != "" {
		add("class = ?", filter.Class)
	}
	if filter.Section != "" {
		add("(section = ? OR section = 'ALL')", filter.Section)
	}
	if filter.AcademicYear != "" {
		add("academic_year = ?", filter.AcademicYear)
	}
	conditions := strings.Join(where, " AND ")

	// Get total count
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM fee_structures WHERE `+conditions, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count fee structures: %w", err)
	}

	query := `SELECT ` + structureColumns + ` FROM fee_structures WHERE ` + conditions + ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	var structures []*FeeStructure
	if err := r.db.SelectContext(ctx, &structures, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list fee structures: %w", err)
	}
	if err := r.loadInstallments(ctx, structures); err != nil {
		return nil, 0, err
	}
	return structures, total, nil
}

func (r *Repository) loadInstallments(ctx context.Context, structures []*FeeStructure) error {
	if len(structures) == 0 {
		return nil
	}

	ids := make([]int64, len(structures))
	byID := make(map[int64]*FeeStructure, len(structures))
	for i, fs := range structures {
		ids[i] = fs.ID
		byID[fs.ID] = fs
	}

	var rows []struct {
		StructureID int64 `db:"structure_id"`
		InstallmentSpec
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT structure_id, position, name, amount, due_date, description
		FROM fee_structure_installments
		WHERE structure_id = ANY($1)
		ORDER BY structure_id, position
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load fee structure installments: %w", err)
	}
	for _, row := range rows {
		fs := byID[row.StructureID]
		fs.Installments = append(fs.Installments, row.InstallmentSpec)
	}
	return nil
}
