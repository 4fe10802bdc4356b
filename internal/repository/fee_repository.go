package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/feeline-api/internal/models"
)

// FeeRepository manages fee account aggregates. One row per student.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository constructs a FeeRepository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// Create seeds the fee account row at student creation time.
func (r *FeeRepository) Create(ctx context.Context, account *models.FeeAccount) error {
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO fee_accounts (stud_id, name, class, total_fees, total_paid, balance, status, updated_at)
        VALUES (:stud_id, :name, :class, :total_fees, :total_paid, :balance, :status, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, account); err != nil {
		return fmt.Errorf("create fee account: %w", err)
	}
	return nil
}

// GetByStudent fetches the fee account for one student.
func (r *FeeRepository) GetByStudent(ctx context.Context, studID string) (*models.FeeAccount, error) {
	const query = `SELECT stud_id, name, class, total_fees, total_paid, balance, status, updated_at
        FROM fee_accounts WHERE stud_id = $1`
	var account models.FeeAccount
	if err := r.db.GetContext(ctx, &account, query, studID); err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateAggregates overwrites the derived columns after a recompute. Only
// the aggregate columns move; total_fees is immutable here.
func (r *FeeRepository) UpdateAggregates(ctx context.Context, studID string, totalPaid, balance int64, status models.FeeStatus) error {
	const query = `UPDATE fee_accounts SET total_paid = $2, balance = $3, status = $4, updated_at = $5 WHERE stud_id = $1`
	if _, err := r.db.ExecContext(ctx, query, studID, totalPaid, balance, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update fee aggregates: %w", err)
	}
	return nil
}

// ListAll returns every fee account, used by aggregate read queries.
func (r *FeeRepository) ListAll(ctx context.Context) ([]models.FeeAccount, error) {
	const query = `SELECT stud_id, name, class, total_fees, total_paid, balance, status, updated_at
        FROM fee_accounts ORDER BY stud_id`
	var accounts []models.FeeAccount
	if err := r.db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, fmt.Errorf("list fee accounts: %w", err)
	}
	return accounts, nil
}
