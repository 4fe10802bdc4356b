package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/feeline-api/internal/models"
	appErrors "github.com/noah-isme/feeline-api/pkg/errors"
	"github.com/noah-isme/feeline-api/pkg/jobs"
)

type messageClassifier interface {
	Classify(ctx context.Context, text, sender string) models.Classification
}

type writeParser interface {
	Parse(ctx context.Context, text string) models.ChangeSet
}

type confirmationStore interface {
	HasPending(sender string) bool
	Request(ctx context.Context, sender string, op models.Operation, cs models.ChangeSet, rawMessage string) string
	Resolve(sender, reply string) ConfirmationOutcome
}

type readAnswerer interface {
	Answer(ctx context.Context, text string) string
}

type reminderRunner interface {
	RemindAll(ctx context.Context) string
	RemindSpecific(ctx context.Context, studID string) string
}

type reminderJob struct {
	Sender    string
	Operation models.Operation
	StudentID string
}

// MessageService routes each inbound WhatsApp text to the right pipeline:
// confirmation replies first, then reads, reminders, and writes. Replies go
// back to the sender from here; callers only hand over the message.
type MessageService struct {
	classifier    messageClassifier
	parser        writeParser
	confirmations confirmationStore
	ledger        changeSetApplier
	reader        readAnswerer
	reminders     reminderRunner
	sender        messageSender
	logs          logStore
	receipts      receiptDelivery
	metrics       *MetricsService
	logger        *zap.Logger

	reminderQueue *jobs.Queue
}

// SetMetrics attaches request instrumentation. Optional; nil is fine.
func (s *MessageService) SetMetrics(m *MetricsService) { s.metrics = m }

// NewMessageService constructs the router. receipts may be nil. Call Start
// before serving traffic and Stop on shutdown.
func NewMessageService(classifier messageClassifier, parser writeParser, confirmations confirmationStore, ledger changeSetApplier, reader readAnswerer, reminders reminderRunner, sender messageSender, logs logStore, receipts receiptDelivery, queueBuffer int, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MessageService{
		classifier:    classifier,
		parser:        parser,
		confirmations: confirmations,
		ledger:        ledger,
		reader:        reader,
		reminders:     reminders,
		sender:        sender,
		logs:          logs,
		receipts:      receipts,
		logger:        logger,
	}
	if queueBuffer <= 0 {
		queueBuffer = 16
	}
	// Reminder broadcasts run off the webhook path so Meta's delivery
	// timeout never races a long fan-out.
	s.reminderQueue = jobs.NewQueue("reminders", s.handleReminderJob, jobs.QueueConfig{
		Workers:    1,
		BufferSize: queueBuffer,
		MaxRetries: 0,
		Logger:     logger,
	})
	return s
}

// Start launches the reminder dispatch worker.
func (s *MessageService) Start(ctx context.Context) {
	s.reminderQueue.Start(ctx)
}

// Stop drains the reminder dispatch worker.
func (s *MessageService) Stop() {
	s.reminderQueue.Stop()
}

// HandleText processes one inbound message end to end. All outcomes,
// including internal failures, are reported to the sender as chat replies.
func (s *MessageService) HandleText(ctx context.Context, sender, text string) {
	if s.confirmations.HasPending(sender) {
		if s.resolvePending(ctx, sender, text) {
			return
		}
	}

	classification := s.classifier.Classify(ctx, text, sender)
	s.metrics.ObserveInboundMessage(string(classification.Operation))
	s.logger.Info("message classified",
		zap.String("sender", sender),
		zap.String("operation", string(classification.Operation)),
		zap.Float64("confidence", classification.Confidence))

	switch classification.Operation {
	case models.OpRead:
		s.reply(ctx, sender, s.reader.Answer(ctx, text))

	case models.OpRemindAll, models.OpRemindSpecific:
		s.dispatchReminder(ctx, sender, classification)

	case models.OpCreate, models.OpUpdate, models.OpDelete:
		s.handleWrite(ctx, sender, text, classification.Operation)

	default:
		s.reply(ctx, sender, "❌ I couldn't understand your request. Please try again.")
	}
}

// resolvePending consumes a confirmation reply. Returns false when the entry
// expired between the HasPending check and Resolve, so the message falls
// through to normal classification.
func (s *MessageService) resolvePending(ctx context.Context, sender, text string) bool {
	outcome := s.confirmations.Resolve(sender, text)
	switch outcome.State {
	case ConfirmationNone:
		return false

	case ConfirmationInvalid:
		s.reply(ctx, sender, outcome.Message)
		return true

	case ConfirmationCancelled:
		s.reply(ctx, sender, outcome.Message)
		s.auditResolution(ctx, sender, "cancelled")
		return true

	case ConfirmationConfirmed:
		s.reply(ctx, sender, outcome.Message)
		result := s.ledger.ApplyChangeSet(ctx, outcome.Data, "whatsapp_"+sender)
		s.reply(ctx, sender, result.Message)
		s.auditResolution(ctx, sender, "confirmed")
		if s.receipts != nil {
			for _, row := range result.Installments {
				if row.Success {
					s.receipts.Deliver(ctx, row.ID, row.StudentID)
				}
			}
		}
		return true
	}
	return true
}

func (s *MessageService) handleWrite(ctx context.Context, sender, text string, op models.Operation) {
	cs := s.parser.Parse(ctx, text)

	if !cs.HasWrites() {
		// Parser failures carry only a parse_error log seed; persist it and
		// ask the sender to rephrase.
		s.ledger.ApplyChangeSet(ctx, cs, "whatsapp_"+sender)
		s.reply(ctx, sender, "❌ Sorry, I couldn't understand that request. Please rephrase it.")
		return
	}

	if err := ValidateChangeSet(cs); err != nil {
		message := appErrors.FromError(err).Message
		s.reply(ctx, sender, message)
		s.auditValidationFailure(ctx, sender, text, cs, message)
		return
	}

	prompt := s.confirmations.Request(ctx, sender, op, cs, text)
	s.reply(ctx, sender, prompt)
	s.auditConfirmationRequested(ctx, sender, text, cs)
}

func (s *MessageService) dispatchReminder(ctx context.Context, sender string, classification models.Classification) {
	if classification.Operation == models.OpRemindSpecific && classification.StudentID == "" {
		s.reply(ctx, sender, "❌ Please specify a student ID for reminder (e.g., remind STU123)")
		return
	}

	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: "reminder",
		Payload: reminderJob{
			Sender:    sender,
			Operation: classification.Operation,
			StudentID: classification.StudentID,
		},
	}
	if err := s.reminderQueue.Enqueue(job); err != nil {
		s.logger.Error("reminder enqueue failed", zap.Error(err))
		s.reply(ctx, sender, "❌ Reminder system is busy, please try again shortly.")
		return
	}
	s.reply(ctx, sender, "📢 Working on it, you'll get a delivery summary shortly.")
}

func (s *MessageService) handleReminderJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(reminderJob)
	if !ok {
		s.logger.Error("unexpected reminder payload", zap.Any("payload", job.Payload))
		return nil
	}

	var summary string
	if payload.Operation == models.OpRemindAll {
		summary = s.reminders.RemindAll(ctx)
	} else {
		summary = s.reminders.RemindSpecific(ctx, payload.StudentID)
	}
	s.reply(ctx, payload.Sender, summary)
	return nil
}

func (s *MessageService) reply(ctx context.Context, to, body string) {
	if body == "" {
		return
	}
	if err := s.sender.SendText(ctx, to, body); err != nil {
		s.logger.Error("reply send failed", zap.String("to", to), zap.Error(err))
	}
}

func (s *MessageService) auditValidationFailure(ctx context.Context, sender, rawMessage string, cs models.ChangeSet, message string) {
	studID := ""
	if len(cs.Installments) > 0 {
		studID = cs.Installments[0].StudID
	}
	parsed, _ := json.Marshal(cs)
	entry := &models.LogEntry{
		Action:      models.ActionValidationFailed,
		StudID:      studID,
		RawMessage:  rawMessage,
		ParsedJSON:  string(parsed),
		Result:      models.ResultFail,
		ErrorMsg:    message,
		PerformedBy: "whatsapp_" + sender,
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Error("validation audit failed", zap.Error(err))
	}
}

func (s *MessageService) auditConfirmationRequested(ctx context.Context, sender, rawMessage string, cs models.ChangeSet) {
	parsed, _ := json.Marshal(cs)
	entry := &models.LogEntry{
		Action:      models.ActionConfirmationRequested,
		RawMessage:  rawMessage,
		ParsedJSON:  string(parsed),
		Result:      models.ResultPending,
		PerformedBy: "whatsapp_" + sender,
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Error("confirmation audit failed", zap.Error(err))
	}
}

func (s *MessageService) auditResolution(ctx context.Context, sender, resolution string) {
	entry := &models.LogEntry{
		Action:      models.ActionConfirmationResolved,
		ParsedJSON:  `{"resolution":"` + resolution + `"}`,
		Result:      models.ResultSuccess,
		PerformedBy: "whatsapp_" + sender,
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Error("resolution audit failed", zap.Error(err))
	}
}
