package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/feeline-api/internal/models"
	appErrors "github.com/noah-isme/feeline-api/pkg/errors"
	"github.com/noah-isme/feeline-api/pkg/razorpay"
)

type orderGateway interface {
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
	FetchOrder(ctx context.Context, orderID string) (*razorpay.Order, error)
}

type dedupStore interface {
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type changeSetApplier interface {
	ApplyChangeSet(ctx context.Context, cs models.ChangeSet, actor string) *MutationResult
}

type receiptDelivery interface {
	Deliver(ctx context.Context, instID, studID string)
}

// PaymentOrder is the created gateway order a payment page or app consumes.
type PaymentOrder struct {
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	StudentID string `json:"stud_id"`
	Name      string `json:"student_name"`
	NoDue     bool   `json:"no_due"`
}

const dedupTTL = 24 * time.Hour

// PaymentService bridges the payment gateway into the ledger. Captured
// payments enter through the same mutation service as staff messages but
// skip the confirmation round trip; the webhook signature is the trust
// boundary instead.
type PaymentService struct {
	gateway  orderGateway
	ledger   changeSetApplier
	dedup    dedupStore
	students studentReader
	fees     feeReader
	sender   messageSender
	logs     logStore
	receipts receiptDelivery

	webhookSecret string
	currency      string
	metrics       *MetricsService
	logger        *zap.Logger
}

// SetMetrics attaches payment instrumentation. Optional; nil is fine.
func (s *PaymentService) SetMetrics(m *MetricsService) { s.metrics = m }

// NewPaymentService constructs the service. receipts may be nil when receipt
// delivery is disabled.
func NewPaymentService(gateway orderGateway, ledger changeSetApplier, dedup dedupStore, students studentReader, fees feeReader, sender messageSender, logs logStore, receipts receiptDelivery, webhookSecret, currency string, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if currency == "" {
		currency = "INR"
	}
	return &PaymentService{
		gateway:       gateway,
		ledger:        ledger,
		dedup:         dedup,
		students:      students,
		fees:          fees,
		sender:        sender,
		logs:          logs,
		receipts:      receipts,
		webhookSecret: webhookSecret,
		currency:      currency,
		logger:        logger,
	}
}

// CreateOrder registers a gateway order for a student. amount is in rupees;
// zero means the full outstanding balance. A fully paid account returns a
// NoDue order instead of an error.
func (s *PaymentService) CreateOrder(ctx context.Context, studID string, amount int64) (*PaymentOrder, error) {
	student, err := s.students.FindByID(ctx, studID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrStudentNotFound, fmt.Sprintf("student %s not found", studID))
	}

	account, err := s.fees.GetByStudent(ctx, student.StudID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "no fee record for student")
	}
	if account.Balance <= 0 {
		return &PaymentOrder{StudentID: student.StudID, Name: student.Name, NoDue: true}, nil
	}
	if amount <= 0 {
		amount = account.Balance
	}
	if amount > account.Balance {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("payment amount cannot exceed outstanding balance of ₹%d", account.Balance))
	}

	order, err := s.gateway.CreateOrder(ctx, razorpay.OrderRequest{
		Amount:   amount * 100,
		Currency: s.currency,
		Receipt:  fmt.Sprintf("fee_%s_%d", student.StudID, time.Now().Unix()),
		Notes: map[string]string{
			"stud_id":      student.StudID,
			"student_name": student.Name,
			"class":        student.Class,
			"type":         "fee_payment",
		},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "order creation failed")
	}

	return &PaymentOrder{
		OrderID:   order.ID,
		Amount:    amount,
		Currency:  order.Currency,
		StudentID: student.StudID,
		Name:      student.Name,
	}, nil
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Amount  int64  `json:"amount"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook verifies and applies one gateway event. Replayed deliveries
// and ignorable event types return nil without touching the ledger.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !razorpay.VerifyWebhookSignature(body, signature, s.webhookSecret) {
		s.auditWebhookError(ctx, "", "invalid webhook signature")
		return appErrors.ErrInvalidSignature
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.auditWebhookError(ctx, "", "malformed webhook payload: "+err.Error())
		return appErrors.Clone(appErrors.ErrValidation, "malformed webhook payload")
	}

	if event.Event != "payment.captured" {
		s.logger.Debug("webhook event ignored", zap.String("event", event.Event))
		return nil
	}

	payment := event.Payload.Payment.Entity
	first, err := s.dedup.MarkProcessed(ctx, payment.ID, dedupTTL)
	if err != nil {
		s.logger.Error("payment dedup check failed", zap.String("payment_id", payment.ID), zap.Error(err))
	} else if !first {
		return nil
	}

	if err := s.applyCapturedPayment(ctx, payment.ID, payment.OrderID, payment.Amount); err != nil {
		if relErr := s.dedup.Release(ctx, payment.ID); relErr != nil {
			s.logger.Error("dedup release failed", zap.String("payment_id", payment.ID), zap.Error(relErr))
		}
		return err
	}
	return nil
}

func (s *PaymentService) applyCapturedPayment(ctx context.Context, paymentID, orderID string, amountPaise int64) error {
	order, err := s.gateway.FetchOrder(ctx, orderID)
	if err != nil {
		s.auditWebhookError(ctx, "", fmt.Sprintf("order fetch failed for %s: %v", orderID, err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "order lookup failed")
	}

	studID := order.Notes["stud_id"]
	if studID == "" {
		studID = order.Notes["studid"]
	}
	if studID == "" {
		s.auditWebhookError(ctx, "", "order "+orderID+" carries no student id")
		return appErrors.Clone(appErrors.ErrValidation, "order carries no student id")
	}

	amountRupees := amountPaise / 100
	cs := models.NewChangeSet()
	cs.Installments = append(cs.Installments, models.InstallmentSeed{
		StudID:     studID,
		Amount:     fmt.Sprintf("%d", amountRupees),
		Mode:       "Online",
		RecordedBy: "Razorpay",
		Remarks:    "Transaction ID: " + paymentID,
	})

	result := s.ledger.ApplyChangeSet(ctx, cs, "Razorpay")
	if !result.Success || len(result.Installments) == 0 {
		reason := "installment not applied"
		if len(result.Installments) > 0 {
			reason = result.Installments[0].Error
		}
		s.auditWebhookError(ctx, studID, reason)
		return appErrors.Clone(appErrors.ErrInternal, "payment could not be recorded")
	}
	applied := result.Installments[0]

	s.metrics.ObservePaymentCaptured()
	s.auditPaymentCaptured(ctx, studID, paymentID, amountRupees)
	s.notifyGuardian(ctx, studID, amountRupees, paymentID)

	if s.receipts != nil {
		s.receipts.Deliver(ctx, applied.ID, studID)
	}
	return nil
}

// notifyGuardian sends the single post-payment confirmation. Failures are
// logged and swallowed so a messaging outage cannot undo a recorded payment.
func (s *PaymentService) notifyGuardian(ctx context.Context, studID string, amount int64, transactionID string) {
	student, err := s.students.FindByID(ctx, studID)
	if err != nil || student.ParentNo == "" {
		s.logger.Warn("no guardian contact for payment confirmation", zap.String("stud_id", studID))
		return
	}

	body := fmt.Sprintf(`✅ *Payment Received Successfully!*

💰 *Amount:* ₹%d
👨‍🎓 *Student:* %s
🆔 *Student ID:* %s
📚 *Class:* %s
💳 *Transaction ID:* %s

Thank you for your payment!`, amount, student.Name, student.StudID, student.Class, transactionID)

	if err := s.sender.SendText(ctx, student.ParentNo, body); err != nil {
		s.logger.Error("payment confirmation send failed", zap.String("stud_id", studID), zap.Error(err))
	}
}

func (s *PaymentService) auditPaymentCaptured(ctx context.Context, studID, paymentID string, amount int64) {
	entry := &models.LogEntry{
		Action:      models.ActionPaymentCaptured,
		StudID:      studID,
		ParsedJSON:  fmt.Sprintf(`{"payment_id":%q,"amount":%d}`, paymentID, amount),
		Result:      models.ResultSuccess,
		PerformedBy: "Razorpay",
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Error("payment audit failed", zap.Error(err))
	}
}

func (s *PaymentService) auditWebhookError(ctx context.Context, studID, message string) {
	entry := &models.LogEntry{
		Action:      models.ActionWebhookError,
		StudID:      studID,
		Result:      models.ResultFail,
		ErrorMsg:    message,
		PerformedBy: "system",
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Error("webhook error audit failed", zap.Error(err))
	}
}
