package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/feeline-api/internal/models"
	appErrors "github.com/noah-isme/feeline-api/pkg/errors"
)

type studentReaderMock struct {
	byID   map[string]*models.Student
	byName map[string]*models.Student
}

func (m *studentReaderMock) FindByID(_ context.Context, studID string) (*models.Student, error) {
	if student, ok := m.byID[studID]; ok {
		return student, nil
	}
	return nil, appErrors.ErrStudentNotFound
}

func (m *studentReaderMock) FindByName(_ context.Context, name string) (*models.Student, error) {
	if student, ok := m.byName[name]; ok {
		return student, nil
	}
	return nil, appErrors.ErrStudentNotFound
}

type feeReaderMock struct {
	accounts map[string]*models.FeeAccount
}

func (m *feeReaderMock) GetByStudent(_ context.Context, studID string) (*models.FeeAccount, error) {
	if account, ok := m.accounts[studID]; ok {
		return account, nil
	}
	return nil, appErrors.ErrNotFound
}

func newConfirmationFixture(ttl time.Duration) *ConfirmationService {
	students := &studentReaderMock{
		byID: map[string]*models.Student{
			"STU001": {StudID: "STU001", Name: "Rahul Pandey", Class: "12"},
		},
		byName: map[string]*models.Student{},
	}
	fees := &feeReaderMock{accounts: map[string]*models.FeeAccount{
		"STU001": {StudID: "STU001", TotalFees: 40000, TotalPaid: 4000, Balance: 36000, Status: models.FeeStatusPartial},
	}}
	return NewConfirmationService(students, fees, ttl, nil)
}

func installmentChangeSet(studID, amount string) models.ChangeSet {
	cs := models.NewChangeSet()
	cs.Installments = append(cs.Installments, models.InstallmentSeed{StudID: studID, Amount: amount})
	return cs
}

func TestConfirmationServiceRequestPreview(t *testing.T) {
	svc := newConfirmationFixture(time.Minute)

	prompt := svc.Request(context.Background(), "919876543210", models.OpCreate,
		installmentChangeSet("STU001", "4000"), "STU001 paid 4000")

	assert.Contains(t, prompt, "Confirmation Required")
	assert.Contains(t, prompt, "₹4000 for Rahul Pandey (STU001)")
	assert.Contains(t, prompt, "Current Balance: ₹36000 → New Balance: ₹32000")
	assert.Contains(t, prompt, "Reply *yes* to confirm or *no* to cancel.")
	assert.True(t, svc.HasPending("919876543210"))
	assert.False(t, svc.HasPending("918888888888"))
}

func TestConfirmationServiceResolveYes(t *testing.T) {
	svc := newConfirmationFixture(time.Minute)
	cs := installmentChangeSet("STU001", "4000")
	svc.Request(context.Background(), "919876543210", models.OpCreate, cs, "STU001 paid 4000")

	outcome := svc.Resolve("919876543210", "yes")

	assert.Equal(t, ConfirmationConfirmed, outcome.State)
	assert.Equal(t, cs.Installments, outcome.Data.Installments)
	assert.Equal(t, "✅ Confirmed. Processing your request...", outcome.Message)
	assert.False(t, svc.HasPending("919876543210"), "yes consumes the entry")
}

func TestConfirmationServiceResolveNo(t *testing.T) {
	svc := newConfirmationFixture(time.Minute)
	svc.Request(context.Background(), "919876543210", models.OpCreate,
		installmentChangeSet("STU001", "4000"), "STU001 paid 4000")

	outcome := svc.Resolve("919876543210", "cancel")

	assert.Equal(t, ConfirmationCancelled, outcome.State)
	assert.Equal(t, "❌ Operation cancelled. No changes were made.", outcome.Message)
	assert.False(t, svc.HasPending("919876543210"))
}

func TestConfirmationServiceResolveInvalidKeepsPending(t *testing.T) {
	svc := newConfirmationFixture(time.Minute)
	svc.Request(context.Background(), "919876543210", models.OpCreate,
		installmentChangeSet("STU001", "4000"), "STU001 paid 4000")

	outcome := svc.Resolve("919876543210", "maybe")

	assert.Equal(t, ConfirmationInvalid, outcome.State)
	assert.Contains(t, outcome.Message, "reply *yes*")
	assert.True(t, svc.HasPending("919876543210"), "invalid replies leave the proposal in place")
}

func TestConfirmationServiceResolveWithoutPending(t *testing.T) {
	svc := newConfirmationFixture(time.Minute)

	outcome := svc.Resolve("919876543210", "yes")

	assert.Equal(t, ConfirmationNone, outcome.State)
}

func TestConfirmationServiceLastWriteWins(t *testing.T) {
	svc := newConfirmationFixture(time.Minute)
	svc.Request(context.Background(), "919876543210", models.OpCreate,
		installmentChangeSet("STU001", "1000"), "STU001 paid 1000")
	svc.Request(context.Background(), "919876543210", models.OpCreate,
		installmentChangeSet("STU001", "9000"), "STU001 paid 9000")

	outcome := svc.Resolve("919876543210", "yes")

	require.Equal(t, ConfirmationConfirmed, outcome.State)
	require.Len(t, outcome.Data.Installments, 1)
	assert.Equal(t, "9000", outcome.Data.Installments[0].Amount, "newer proposal replaces the older one")
}

func TestConfirmationServiceTTLExpiry(t *testing.T) {
	svc := newConfirmationFixture(10 * time.Millisecond)
	svc.Request(context.Background(), "919876543210", models.OpCreate,
		installmentChangeSet("STU001", "4000"), "STU001 paid 4000")

	time.Sleep(20 * time.Millisecond)

	assert.False(t, svc.HasPending("919876543210"))
	outcome := svc.Resolve("919876543210", "yes")
	assert.Equal(t, ConfirmationNone, outcome.State, "expired entries resolve as if nothing was pending")
}

func TestConfirmationServicePreviewFallbacks(t *testing.T) {
	svc := newConfirmationFixture(time.Minute)

	t.Run("unknown student echoes the target", func(t *testing.T) {
		prompt := svc.Request(context.Background(), "s1", models.OpCreate,
			installmentChangeSet("STU999", "500"), "STU999 paid 500")
		assert.Contains(t, prompt, "₹500 for STU999")
		assert.NotContains(t, prompt, "Current Balance")
	})

	t.Run("new student shows opening fees", func(t *testing.T) {
		cs := models.NewChangeSet()
		cs.Students = append(cs.Students, models.StudentSeed{Name: "Meera", Class: "8"})
		cs.Fees = append(cs.Fees, models.FeeSeed{Name: "Meera", TotalFees: "30000"})
		prompt := svc.Request(context.Background(), "s2", models.OpCreate, cs, "add student Meera")
		assert.Contains(t, prompt, "New student *Meera* (class 8), total fees ₹30000")
	})

	t.Run("empty change-set echoes the raw request", func(t *testing.T) {
		prompt := svc.Request(context.Background(), "s3", models.OpUpdate, models.NewChangeSet(), "do the thing")
		assert.Contains(t, prompt, `You asked: "do the thing"`)
	})
}
