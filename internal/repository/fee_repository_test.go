package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/feeline-api/internal/models"
)

func newFeeMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestFeeRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newFeeMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectExec("INSERT INTO fee_accounts").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	account := &models.FeeAccount{StudID: "STU001", Name: "Aarav Shah", Class: "5A", TotalFees: 40000, Balance: 40000, Status: models.FeeStatusPending}
	err := repo.Create(context.Background(), account)
	require.NoError(t, err)
	assert.False(t, account.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryGetByStudent(t *testing.T) {
	db, mock, cleanup := newFeeMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	rows := sqlmock.NewRows([]string{"stud_id", "name", "class", "total_fees", "total_paid", "balance", "status", "updated_at"}).
		AddRow("STU001", "Aarav Shah", "5A", int64(40000), int64(4000), int64(36000), "Partial", time.Now())
	mock.ExpectQuery("SELECT stud_id, name, class, total_fees, total_paid, balance, status, updated_at").
		WithArgs("STU001").
		WillReturnRows(rows)

	account, err := repo.GetByStudent(context.Background(), "STU001")
	require.NoError(t, err)
	assert.Equal(t, int64(36000), account.Balance)
	assert.Equal(t, models.FeeStatusPartial, account.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryUpdateAggregates(t *testing.T) {
	db, mock, cleanup := newFeeMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE fee_accounts SET total_paid = $2, balance = $3, status = $4, updated_at = $5 WHERE stud_id = $1")).
		WithArgs("STU001", int64(4000), int64(36000), models.FeeStatusPartial, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateAggregates(context.Background(), "STU001", 4000, 36000, models.FeeStatusPartial)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
