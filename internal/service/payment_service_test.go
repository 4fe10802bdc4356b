package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/feeline-api/internal/models"
	appErrors "github.com/noah-isme/feeline-api/pkg/errors"
	"github.com/noah-isme/feeline-api/pkg/razorpay"
)

const webhookSecret = "whsec_test"

type orderGatewayMock struct {
	orders    map[string]*razorpay.Order
	created   []razorpay.OrderRequest
	createErr error
	fetchErr  error
}

func (m *orderGatewayMock) CreateOrder(_ context.Context, req razorpay.OrderRequest) (*razorpay.Order, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, req)
	return &razorpay.Order{ID: "order_123", Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt, Notes: req.Notes}, nil
}

func (m *orderGatewayMock) FetchOrder(_ context.Context, orderID string) (*razorpay.Order, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	if order, ok := m.orders[orderID]; ok {
		return order, nil
	}
	return nil, errors.New("order not found")
}

type dedupStoreMock struct {
	seen     map[string]bool
	released []string
	err      error
}

func newDedupStoreMock() *dedupStoreMock { return &dedupStoreMock{seen: map[string]bool{}} }

func (m *dedupStoreMock) MarkProcessed(_ context.Context, eventID string, _ time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

func (m *dedupStoreMock) Release(_ context.Context, eventID string) error {
	delete(m.seen, eventID)
	m.released = append(m.released, eventID)
	return nil
}

type applierMock struct {
	applied []models.ChangeSet
	actors  []string
	fail    bool
}

func (m *applierMock) ApplyChangeSet(_ context.Context, cs models.ChangeSet, actor string) *MutationResult {
	m.applied = append(m.applied, cs)
	m.actors = append(m.actors, actor)
	if m.fail {
		return &MutationResult{
			Success:      false,
			Message:      "❌ student STU001 not found",
			Installments: []RowResult{{Error: "student STU001 not found"}},
		}
	}
	return &MutationResult{
		Success:      true,
		Message:      "✅ Payment of ₹4000 recorded (INST001).",
		Installments: []RowResult{{Success: true, ID: "INST001", StudentID: "STU001", Amount: 4000}},
	}
}

type receiptDeliveryMock struct {
	delivered []string
}

func (m *receiptDeliveryMock) Deliver(_ context.Context, instID, studID string) {
	m.delivered = append(m.delivered, instID+"/"+studID)
}

type paymentFixture struct {
	svc      *PaymentService
	gateway  *orderGatewayMock
	dedup    *dedupStoreMock
	applier  *applierMock
	sender   *messageSenderMock
	logs     *ledgerLogStoreMock
	receipts *receiptDeliveryMock
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		gateway: &orderGatewayMock{orders: map[string]*razorpay.Order{
			"order_123": {ID: "order_123", Notes: map[string]string{"stud_id": "STU001"}},
			"order_old": {ID: "order_old", Notes: map[string]string{"studid": "STU001"}},
			"order_bad": {ID: "order_bad", Notes: map[string]string{}},
		}},
		dedup:    newDedupStoreMock(),
		applier:  &applierMock{},
		sender:   newMessageSenderMock(),
		logs:     &ledgerLogStoreMock{},
		receipts: &receiptDeliveryMock{},
	}
	students := &studentReaderMock{
		byID: map[string]*models.Student{
			"STU001": {StudID: "STU001", Name: "Rahul Pandey", Class: "12", ParentNo: "919876543210"},
		},
		byName: map[string]*models.Student{},
	}
	fees := &feeReaderMock{accounts: map[string]*models.FeeAccount{
		"STU001": {StudID: "STU001", TotalFees: 40000, TotalPaid: 4000, Balance: 36000},
	}}
	f.svc = NewPaymentService(f.gateway, f.applier, f.dedup, students, fees, f.sender, f.logs, f.receipts, webhookSecret, "INR", nil)
	return f
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func capturedEvent(paymentID, orderID string, amountPaise int64) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":%q,"order_id":%q,"amount":%d}}}}`,
		paymentID, orderID, amountPaise))
}

func TestPaymentServiceCreateOrder(t *testing.T) {
	f := newPaymentFixture()

	order, err := f.svc.CreateOrder(context.Background(), "STU001", 4000)

	require.NoError(t, err)
	assert.Equal(t, "order_123", order.OrderID)
	assert.Equal(t, int64(4000), order.Amount)
	assert.False(t, order.NoDue)

	require.Len(t, f.gateway.created, 1)
	req := f.gateway.created[0]
	assert.Equal(t, int64(400000), req.Amount, "gateway amount is in paise")
	assert.Equal(t, "STU001", req.Notes["stud_id"])
	assert.Equal(t, "fee_payment", req.Notes["type"])
	assert.Contains(t, req.Receipt, "fee_STU001_")
}

func TestPaymentServiceCreateOrderFullBalance(t *testing.T) {
	f := newPaymentFixture()

	order, err := f.svc.CreateOrder(context.Background(), "STU001", 0)

	require.NoError(t, err)
	assert.Equal(t, int64(36000), order.Amount, "zero amount means the full outstanding balance")
}

func TestPaymentServiceCreateOrderValidation(t *testing.T) {
	f := newPaymentFixture()

	t.Run("unknown student", func(t *testing.T) {
		_, err := f.svc.CreateOrder(context.Background(), "STU999", 100)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "STU999 not found")
	})

	t.Run("amount above balance", func(t *testing.T) {
		_, err := f.svc.CreateOrder(context.Background(), "STU001", 50000)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed outstanding balance of ₹36000")
	})
}

func TestPaymentServiceCreateOrderNoDue(t *testing.T) {
	f := newPaymentFixture()
	students := &studentReaderMock{byID: map[string]*models.Student{
		"STU002": {StudID: "STU002", Name: "Meera Shah"},
	}, byName: map[string]*models.Student{}}
	fees := &feeReaderMock{accounts: map[string]*models.FeeAccount{
		"STU002": {StudID: "STU002", TotalFees: 30000, TotalPaid: 30000, Balance: 0},
	}}
	f.svc = NewPaymentService(f.gateway, f.applier, f.dedup, students, fees, f.sender, f.logs, f.receipts, webhookSecret, "INR", nil)

	order, err := f.svc.CreateOrder(context.Background(), "STU002", 0)

	require.NoError(t, err)
	assert.True(t, order.NoDue)
	assert.Empty(t, order.OrderID)
	assert.Empty(t, f.gateway.created, "no gateway call for a settled account")
}

func TestPaymentServiceWebhookCaptured(t *testing.T) {
	f := newPaymentFixture()
	body := capturedEvent("pay_abc", "order_123", 400000)

	err := f.svc.HandleWebhook(context.Background(), body, sign(body))

	require.NoError(t, err)
	require.Len(t, f.applier.applied, 1)
	assert.Equal(t, "Razorpay", f.applier.actors[0])

	seed := f.applier.applied[0].Installments[0]
	assert.Equal(t, "STU001", seed.StudID)
	assert.Equal(t, "4000", seed.Amount, "paise converted to rupees")
	assert.Equal(t, "Online", seed.Mode)
	assert.Equal(t, "Razorpay", seed.RecordedBy)
	assert.Equal(t, "Transaction ID: pay_abc", seed.Remarks)

	require.Len(t, f.sender.sent, 1, "guardian gets exactly one confirmation")
	assert.Contains(t, f.sender.sent["919876543210"], "Payment Received Successfully")
	assert.Contains(t, f.sender.sent["919876543210"], "Transaction ID:* pay_abc")

	assert.Equal(t, []string{"INST001/STU001"}, f.receipts.delivered)
	assert.Contains(t, f.logs.actions(), models.ActionPaymentCaptured)
}

func TestPaymentServiceWebhookInvalidSignature(t *testing.T) {
	f := newPaymentFixture()
	body := capturedEvent("pay_abc", "order_123", 400000)

	err := f.svc.HandleWebhook(context.Background(), body, "deadbeef")

	assert.ErrorIs(t, err, appErrors.ErrInvalidSignature)
	assert.Empty(t, f.applier.applied, "unverified events never reach the ledger")
	assert.Empty(t, f.sender.sent)
	assert.Contains(t, f.logs.actions(), models.ActionWebhookError)
}

func TestPaymentServiceWebhookReplayIgnored(t *testing.T) {
	f := newPaymentFixture()
	body := capturedEvent("pay_abc", "order_123", 400000)

	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, sign(body)))
	require.NoError(t, f.svc.HandleWebhook(context.Background(), body, sign(body)))

	assert.Len(t, f.applier.applied, 1, "replay must not double-record the payment")
	assert.Len(t, f.sender.sent, 1)
}

func TestPaymentServiceWebhookIgnoresOtherEvents(t *testing.T) {
	f := newPaymentFixture()
	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_x"}}}}`)

	err := f.svc.HandleWebhook(context.Background(), body, sign(body))

	require.NoError(t, err)
	assert.Empty(t, f.applier.applied)
}

func TestPaymentServiceWebhookApplyFailureReleasesDedup(t *testing.T) {
	f := newPaymentFixture()
	f.applier.fail = true
	body := capturedEvent("pay_abc", "order_123", 400000)

	err := f.svc.HandleWebhook(context.Background(), body, sign(body))

	require.Error(t, err)
	assert.Equal(t, []string{"pay_abc"}, f.dedup.released, "failed apply frees the event for redelivery")
	assert.Empty(t, f.sender.sent)
}

func TestPaymentServiceWebhookLegacyNoteKey(t *testing.T) {
	f := newPaymentFixture()
	body := capturedEvent("pay_old", "order_old", 100000)

	err := f.svc.HandleWebhook(context.Background(), body, sign(body))

	require.NoError(t, err)
	require.Len(t, f.applier.applied, 1)
	assert.Equal(t, "STU001", f.applier.applied[0].Installments[0].StudID)
}

func TestPaymentServiceWebhookMissingStudent(t *testing.T) {
	f := newPaymentFixture()
	body := capturedEvent("pay_bad", "order_bad", 100000)

	err := f.svc.HandleWebhook(context.Background(), body, sign(body))

	require.Error(t, err)
	assert.Empty(t, f.applier.applied)
	assert.Equal(t, []string{"pay_bad"}, f.dedup.released)
}

func TestPaymentServiceNotifyFailureDoesNotFail(t *testing.T) {
	f := newPaymentFixture()
	f.sender.failTo["919876543210"] = errors.New("messaging outage")
	body := capturedEvent("pay_abc", "order_123", 400000)

	err := f.svc.HandleWebhook(context.Background(), body, sign(body))

	require.NoError(t, err, "a notify failure must not undo a recorded payment")
	assert.Len(t, f.applier.applied, 1)
	assert.Empty(t, f.dedup.released)
}
