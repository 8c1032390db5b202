package student

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/fkhayef/feeledger/internal/database"
)

// Store persists the roster. Reads return nil, nil when nothing matches.
type Store interface {
	Create(ctx context.Context, s *Student) error
	GetByID(ctx context.Context, schoolID, id int64) (*Student, error)
	List(ctx context.Context, schoolID int64, filter ListFilter, limit, offset int) ([]*Student, int, error)
	Update(ctx context.Context, schoolID, id int64, req *UpdateStudentRequest) (*Student, error)
}

// Repository handles student data persistence
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new student repository with database dependency injected
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const studentColumns = `id, school_id, admission_no, full_name, class, section, active, created_at`

// Create inserts a new student into the database
func (r *Repository) Create(ctx context.Context, s *Student) error {
	query := `
		INSERT INTO students (school_id, admission_no, full_name, class, section, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING ` + studentColumns

	err := r.db.GetContext(ctx, s, query, s.SchoolID, s.AdmissionNo, s.FullName, s.Class, s.Section)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrAdmissionNoInUse
		}
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

// GetByID retrieves a student by their ID
func (r *Repository) GetByID(ctx context.Context, schoolID, id int64) (*Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1 AND school_id = $2`

	s := &Student{}
	if err := r.db.GetContext(ctx, s, query, id, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return s, nil
}

// List retrieves students with pagination. A zero limit returns every match.
func (r *Repository) List(ctx context.Context, schoolID int64, filter ListFilter, limit, offset int) ([]*Student, int, error) {
	where := []string{"school_id = $1"}
	args := []interface{}{schoolID}

	add := func(clause string, value interface{}) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Class != "" {
		add("class = $%d", filter.Class)
	}
	if filter.Section != "" && filter.Section != AllSections {
		add("section = $%d", filter.Section)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		add("full_name ILIKE $%d", "%"+s+"%")
	}
	if filter.ActiveOnly {
		where = append(where, "active")
	}
	conditions := strings.Join(where, " AND ")

	// Get total count
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM students WHERE `+conditions, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count students: %w", err)
	}

	query := `SELECT ` + studentColumns + ` FROM students WHERE ` + conditions + ` ORDER BY full_name, id`
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	var students []*Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list students: %w", err)
	}
	return students, total, nil
}

// Update modifies an existing student
func (r *Repository) Update(ctx context.Context, schoolID, id int64, req *UpdateStudentRequest) (*Student, error) {
	query := `
		UPDATE students
		SET full_name = COALESCE($3, full_name),
		    class = COALESCE($4, class),
		    section = COALESCE($5, section),
		    active = COALESCE($6, active)
		WHERE id = $1 AND school_id = $2
		RETURNING ` + studentColumns

	s := &Student{}
	err := r.db.GetContext(ctx, s, query, id, schoolID, req.FullName, req.Class, req.Section, req.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update student: %w", err)
	}
	return s, nil
}
