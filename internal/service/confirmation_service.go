package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/feeline-api/internal/models"
)

type studentReader interface {
	FindByID(ctx context.Context, studID string) (*models.Student, error)
	FindByName(ctx context.Context, name string) (*models.Student, error)
}

type feeReader interface {
	GetByStudent(ctx context.Context, studID string) (*models.FeeAccount, error)
}

// ConfirmationState is the resolution of one confirmation reply.
type ConfirmationState string

const (
	ConfirmationConfirmed ConfirmationState = "confirmed"
	ConfirmationCancelled ConfirmationState = "cancelled"
	ConfirmationInvalid   ConfirmationState = "invalid"
	ConfirmationNone      ConfirmationState = "none"
)

// ConfirmationOutcome is returned by Resolve. Data is only populated when the
// state is confirmed.
type ConfirmationOutcome struct {
	State   ConfirmationState
	Data    models.ChangeSet
	Message string
}

// ConfirmationService holds at most one pending write proposal per sender.
// A newer proposal silently replaces the older one; entries past their TTL
// are treated as cancelled on the next access. State is in-memory only, so a
// restart clears all pending writes.
type ConfirmationService struct {
	mu      sync.Mutex
	pending map[string]*models.PendingConfirmation

	ttl      time.Duration
	students studentReader
	fees     feeReader
	logger   *zap.Logger
}

// NewConfirmationService constructs the service.
func NewConfirmationService(students studentReader, fees feeReader, ttl time.Duration, logger *zap.Logger) *ConfirmationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ConfirmationService{
		pending:  make(map[string]*models.PendingConfirmation),
		ttl:      ttl,
		students: students,
		fees:     fees,
		logger:   logger,
	}
}

// HasPending reports whether the sender has a live proposal awaiting reply.
func (s *ConfirmationService) HasPending(sender string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.livePendingLocked(sender) != nil
}

// Request stores a new pending proposal for the sender, replacing any
// existing one, and returns the confirmation prompt to send back.
func (s *ConfirmationService) Request(ctx context.Context, sender string, op models.Operation, cs models.ChangeSet, rawMessage string) string {
	entry := &models.PendingConfirmation{
		ID:         uuid.NewString(),
		Sender:     sender,
		Operation:  op,
		Data:       cs,
		RawMessage: rawMessage,
		CreatedAt:  time.Now().UTC(),
	}

	s.mu.Lock()
	if previous := s.pending[sender]; previous != nil {
		s.logger.Info("pending confirmation replaced",
			zap.String("sender", sender),
			zap.String("previous_id", previous.ID),
			zap.String("id", entry.ID))
	}
	s.pending[sender] = entry
	s.mu.Unlock()

	return s.preview(ctx, entry)
}

// Resolve consumes the sender's pending proposal according to their reply.
// Yes and no both clear the entry; anything else leaves it in place and asks
// again.
func (s *ConfirmationService) Resolve(sender, reply string) ConfirmationOutcome {
	s.mu.Lock()
	entry := s.livePendingLocked(sender)
	if entry == nil {
		s.mu.Unlock()
		return ConfirmationOutcome{State: ConfirmationNone}
	}

	switch resolveConfirmationWord(reply) {
	case models.OpConfirmYes:
		delete(s.pending, sender)
		s.mu.Unlock()
		return ConfirmationOutcome{
			State:   ConfirmationConfirmed,
			Data:    entry.Data,
			Message: "✅ Confirmed. Processing your request...",
		}
	case models.OpConfirmNo:
		delete(s.pending, sender)
		s.mu.Unlock()
		return ConfirmationOutcome{
			State:   ConfirmationCancelled,
			Message: "❌ Operation cancelled. No changes were made.",
		}
	default:
		s.mu.Unlock()
		return ConfirmationOutcome{
			State:   ConfirmationInvalid,
			Message: "⚠️ Please reply *yes* to confirm or *no* to cancel.",
		}
	}
}

// livePendingLocked returns the sender's entry if still within TTL, expiring
// it otherwise. Caller holds the mutex.
func (s *ConfirmationService) livePendingLocked(sender string) *models.PendingConfirmation {
	entry, ok := s.pending[sender]
	if !ok {
		return nil
	}
	if time.Since(entry.CreatedAt) > s.ttl {
		delete(s.pending, sender)
		s.logger.Info("pending confirmation expired",
			zap.String("sender", sender), zap.String("id", entry.ID))
		return nil
	}
	return entry
}

// preview renders the human-readable summary of what the proposal will do,
// including the live balance when the referenced student resolves. Lookup
// failures fall back to echoing the raw request.
func (s *ConfirmationService) preview(ctx context.Context, entry *models.PendingConfirmation) string {
	var b strings.Builder
	b.WriteString("⚠️ *Confirmation Required*\n\n")

	detailed := false
	for _, inst := range entry.Data.Installments {
		line := s.installmentPreview(ctx, inst)
		if line != "" {
			b.WriteString(line)
			detailed = true
		}
	}
	for _, student := range entry.Data.Students {
		fees := entry.Data.TotalFeesFor(student)
		b.WriteString(fmt.Sprintf("➕ New student *%s* (class %s), total fees ₹%s\n", student.Name, student.Class, fees))
		detailed = true
	}
	if !detailed {
		b.WriteString(fmt.Sprintf("You asked: %q\n", entry.RawMessage))
	}

	b.WriteString("\nReply *yes* to confirm or *no* to cancel.")
	return b.String()
}

func (s *ConfirmationService) installmentPreview(ctx context.Context, inst models.InstallmentSeed) string {
	student := s.resolveStudent(ctx, inst.StudID, inst.Name)
	if student == nil {
		if inst.StudID != "" || inst.Name != "" {
			who := inst.StudID
			if who == "" {
				who = inst.Name
			}
			return fmt.Sprintf("💰 Payment of ₹%s for %s\n", inst.Amount, who)
		}
		return ""
	}

	line := fmt.Sprintf("💰 Payment of ₹%s for %s (%s)\n", inst.Amount, student.Name, student.StudID)
	amount, err := strconv.ParseInt(strings.TrimSpace(inst.Amount), 10, 64)
	if err != nil {
		return line
	}
	account, err := s.fees.GetByStudent(ctx, student.StudID)
	if err != nil {
		s.logger.Warn("fee lookup failed for preview", zap.String("stud_id", student.StudID), zap.Error(err))
		return line
	}
	line += fmt.Sprintf("Current Balance: ₹%d → New Balance: ₹%d\n", account.Balance, account.Balance-amount)
	return line
}

func (s *ConfirmationService) resolveStudent(ctx context.Context, studID, name string) *models.Student {
	if studID != "" {
		if student, err := s.students.FindByID(ctx, studID); err == nil {
			return student
		}
	}
	if name != "" {
		if student, err := s.students.FindByName(ctx, name); err == nil {
			return student
		}
	}
	return nil
}
