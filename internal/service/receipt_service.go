package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/feeline-api/internal/models"
	"github.com/noah-isme/feeline-api/pkg/export"
	"github.com/noah-isme/feeline-api/pkg/jobs"
)

type documentSender interface {
	UploadMedia(ctx context.Context, filename, mimeType string, data []byte) (string, error)
	SendDocument(ctx context.Context, to, mediaID, filename, caption string) error
}

type receiptInstallmentStore interface {
	FindByID(ctx context.Context, instID string) (*models.Installment, error)
}

type receiptRenderer interface {
	Render(r export.Receipt) ([]byte, error)
}

type receiptPayload struct {
	InstID string
	StudID string
}

// ReceiptService renders a PDF receipt for a recorded installment and sends
// it to the guardian as a WhatsApp document. Delivery runs off the request
// path on a worker queue and is strictly best-effort: the installment stands
// whether or not the receipt arrives.
type ReceiptService struct {
	students     studentReader
	fees         feeReader
	installments receiptInstallmentStore
	renderer     receiptRenderer
	sender       documentSender
	schoolName   string
	logger       *zap.Logger
	queue        *jobs.Queue
}

// NewReceiptService constructs the service and its delivery queue. Call
// Start before use and Stop on shutdown.
func NewReceiptService(students studentReader, fees feeReader, installments receiptInstallmentStore, renderer receiptRenderer, sender documentSender, schoolName string, logger *zap.Logger) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReceiptService{
		students:     students,
		fees:         fees,
		installments: installments,
		renderer:     renderer,
		sender:       sender,
		schoolName:   schoolName,
		logger:       logger,
	}
	s.queue = jobs.NewQueue("receipts", s.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 32,
		MaxRetries: 1,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers.
func (s *ReceiptService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the delivery workers.
func (s *ReceiptService) Stop() {
	s.queue.Stop()
}

// Deliver queues a receipt for an installment. Safe on a nil receiver so
// callers can wire a disabled service straight through.
func (s *ReceiptService) Deliver(ctx context.Context, instID, studID string) {
	if s == nil {
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    "receipt",
		Payload: receiptPayload{InstID: instID, StudID: studID},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("receipt delivery dropped", zap.String("inst_id", instID), zap.Error(err))
	}
}

func (s *ReceiptService) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(receiptPayload)
	if !ok {
		return fmt.Errorf("unexpected receipt payload %T", job.Payload)
	}
	return s.send(ctx, payload.InstID, payload.StudID)
}

func (s *ReceiptService) send(ctx context.Context, instID, studID string) error {
	inst, err := s.installments.FindByID(ctx, instID)
	if err != nil {
		return fmt.Errorf("load installment %s: %w", instID, err)
	}
	student, err := s.students.FindByID(ctx, studID)
	if err != nil {
		return fmt.Errorf("load student %s: %w", studID, err)
	}
	if student.ParentNo == "" {
		s.logger.Warn("no guardian contact for receipt", zap.String("stud_id", studID))
		return nil
	}
	account, err := s.fees.GetByStudent(ctx, studID)
	if err != nil {
		return fmt.Errorf("load fee account %s: %w", studID, err)
	}

	pdf, err := s.renderer.Render(export.Receipt{
		SchoolName:    s.schoolName,
		InstallmentID: inst.InstID,
		StudentID:     student.StudID,
		StudentName:   student.Name,
		Class:         student.Class,
		Amount:        fmt.Sprintf("%d", inst.Amount),
		PaymentDate:   inst.PaidOn.Format("2006-01-02"),
		PaymentMode:   inst.Mode,
		TotalFees:     fmt.Sprintf("%d", account.TotalFees),
		TotalPaid:     fmt.Sprintf("%d", account.TotalPaid),
		Balance:       fmt.Sprintf("%d", account.Balance),
		RecordedBy:    inst.RecordedBy,
	})
	if err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}

	filename := fmt.Sprintf("receipt_%s.pdf", inst.InstID)
	mediaID, err := s.sender.UploadMedia(ctx, filename, "application/pdf", pdf)
	if err != nil {
		return fmt.Errorf("upload receipt: %w", err)
	}

	caption := fmt.Sprintf("📄 Payment receipt for %s (₹%d)", student.Name, inst.Amount)
	if err := s.sender.SendDocument(ctx, student.ParentNo, mediaID, filename, caption); err != nil {
		return fmt.Errorf("send receipt: %w", err)
	}

	s.logger.Info("receipt delivered",
		zap.String("inst_id", inst.InstID),
		zap.String("stud_id", student.StudID))
	return nil
}
