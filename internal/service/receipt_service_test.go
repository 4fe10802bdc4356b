package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/feeline-api/internal/models"
	appErrors "github.com/noah-isme/feeline-api/pkg/errors"
	"github.com/noah-isme/feeline-api/pkg/export"
)

type documentSenderMock struct {
	mu       sync.Mutex
	uploads  []string
	sent     []string
	captions []string
}

func (m *documentSenderMock) UploadMedia(_ context.Context, filename, _ string, _ []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, filename)
	return "media_1", nil
}

func (m *documentSenderMock) SendDocument(_ context.Context, to, mediaID, _, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to+"/"+mediaID)
	m.captions = append(m.captions, caption)
	return nil
}

type receiptInstallmentStoreMock struct {
	byID map[string]*models.Installment
}

func (m *receiptInstallmentStoreMock) FindByID(_ context.Context, instID string) (*models.Installment, error) {
	if inst, ok := m.byID[instID]; ok {
		return inst, nil
	}
	return nil, appErrors.ErrNotFound
}

type receiptRendererMock struct {
	mu       sync.Mutex
	rendered []export.Receipt
}

func (m *receiptRendererMock) Render(r export.Receipt) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rendered = append(m.rendered, r)
	return []byte("%PDF-1.4"), nil
}

func TestReceiptServiceDeliver(t *testing.T) {
	students := &studentReaderMock{byID: map[string]*models.Student{
		"STU001": {StudID: "STU001", Name: "Rahul Pandey", Class: "12", ParentNo: "919876543210"},
	}, byName: map[string]*models.Student{}}
	fees := &feeReaderMock{accounts: map[string]*models.FeeAccount{
		"STU001": {StudID: "STU001", TotalFees: 40000, TotalPaid: 4000, Balance: 36000},
	}}
	installments := &receiptInstallmentStoreMock{byID: map[string]*models.Installment{
		"INST001": {InstID: "INST001", StudID: "STU001", Amount: 4000, PaidOn: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), Mode: "Online", RecordedBy: "Razorpay"},
	}}
	renderer := &receiptRendererMock{}
	sender := &documentSenderMock{}

	svc := NewReceiptService(students, fees, installments, renderer, sender, "Sunrise Public School", nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Deliver(context.Background(), "INST001", "STU001")

	assert.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.sent) == 1
	}, time.Second, 10*time.Millisecond)

	require.Len(t, renderer.rendered, 1)
	receipt := renderer.rendered[0]
	assert.Equal(t, "Sunrise Public School", receipt.SchoolName)
	assert.Equal(t, "INST001", receipt.InstallmentID)
	assert.Equal(t, "4000", receipt.Amount)
	assert.Equal(t, "2026-08-20", receipt.PaymentDate)
	assert.Equal(t, "36000", receipt.Balance)

	assert.Equal(t, []string{"receipt_INST001.pdf"}, sender.uploads)
	assert.Equal(t, []string{"919876543210/media_1"}, sender.sent)
	assert.Contains(t, sender.captions[0], "Payment receipt for Rahul Pandey (₹4000)")
}

func TestReceiptServiceSendSkipsMissingGuardian(t *testing.T) {
	students := &studentReaderMock{byID: map[string]*models.Student{
		"STU002": {StudID: "STU002", Name: "Meera Shah"},
	}, byName: map[string]*models.Student{}}
	fees := &feeReaderMock{accounts: map[string]*models.FeeAccount{}}
	installments := &receiptInstallmentStoreMock{byID: map[string]*models.Installment{
		"INST002": {InstID: "INST002", StudID: "STU002", Amount: 1000},
	}}
	sender := &documentSenderMock{}

	svc := NewReceiptService(students, fees, installments, &receiptRendererMock{}, sender, "Sunrise Public School", nil)

	err := svc.send(context.Background(), "INST002", "STU002")

	assert.NoError(t, err, "no guardian contact is not a retryable failure")
	assert.Empty(t, sender.sent)
}
