package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/feeline-api/internal/models"
)

// InstallmentRepository persists individual payment rows. Aggregates on the
// fee account are always recomputed from these rows, never incremented.
type InstallmentRepository struct {
	db *sqlx.DB
}

// NewInstallmentRepository constructs an InstallmentRepository.
func NewInstallmentRepository(db *sqlx.DB) *InstallmentRepository {
	return &InstallmentRepository{db: db}
}

// Create inserts an installment. The display id is assigned here from a
// sequence so concurrent writers never collide.
func (r *InstallmentRepository) Create(ctx context.Context, inst *models.Installment) error {
	const idQuery = `SELECT 'INST' || LPAD(nextval('installment_display_id_seq')::text, 3, '0')`
	if err := r.db.GetContext(ctx, &inst.InstID, idQuery); err != nil {
		return fmt.Errorf("next installment id: %w", err)
	}
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO installments (inst_id, stud_id, amount, paid_on, mode, remarks, recorded_by, created_at)
        VALUES (:inst_id, :stud_id, :amount, :paid_on, :mode, :remarks, :recorded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, inst); err != nil {
		return fmt.Errorf("create installment: %w", err)
	}
	return nil
}

// FindByID fetches one installment by display id.
func (r *InstallmentRepository) FindByID(ctx context.Context, instID string) (*models.Installment, error) {
	const query = `SELECT inst_id, stud_id, amount, paid_on, mode, remarks, recorded_by, created_at
        FROM installments WHERE inst_id = $1`
	var inst models.Installment
	if err := r.db.GetContext(ctx, &inst, query, instID); err != nil {
		return nil, err
	}
	return &inst, nil
}

// SumByStudent returns the total paid across all installments for a student.
// COALESCE keeps the zero-row case at 0 instead of NULL.
func (r *InstallmentRepository) SumByStudent(ctx context.Context, studID string) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM installments WHERE stud_id = $1`
	var total int64
	if err := r.db.GetContext(ctx, &total, query, studID); err != nil {
		return 0, fmt.Errorf("sum installments: %w", err)
	}
	return total, nil
}

// ListByStudent returns a student's installments newest first.
func (r *InstallmentRepository) ListByStudent(ctx context.Context, studID string) ([]models.Installment, error) {
	const query = `SELECT inst_id, stud_id, amount, paid_on, mode, remarks, recorded_by, created_at
        FROM installments WHERE stud_id = $1 ORDER BY paid_on DESC, inst_id DESC`
	var installments []models.Installment
	if err := r.db.SelectContext(ctx, &installments, query, studID); err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	return installments, nil
}

// List returns installments matching the filter with pagination.
func (r *InstallmentRepository) List(ctx context.Context, filter models.InstallmentFilter) ([]models.Installment, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argPos := 1

	if filter.StudID != "" {
		where += " AND stud_id = $" + strconv.Itoa(argPos)
		args = append(args, filter.StudID)
		argPos++
	}
	if filter.From != nil {
		where += " AND paid_on >= $" + strconv.Itoa(argPos)
		args = append(args, *filter.From)
		argPos++
	}
	if filter.To != nil {
		where += " AND paid_on <= $" + strconv.Itoa(argPos)
		args = append(args, *filter.To)
		argPos++
	}

	countQuery := "SELECT COUNT(*) FROM installments" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count installments: %w", err)
	}

	query := `SELECT inst_id, stud_id, amount, paid_on, mode, remarks, recorded_by, created_at
        FROM installments` + where + ` ORDER BY paid_on DESC, inst_id DESC`
	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		if offset < 0 {
			offset = 0
		}
		query += " LIMIT $" + strconv.Itoa(argPos) + " OFFSET $" + strconv.Itoa(argPos+1)
		args = append(args, filter.PageSize, offset)
	}

	var installments []models.Installment
	if err := r.db.SelectContext(ctx, &installments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list installments: %w", err)
	}
	return installments, total, nil
}
