package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/feeline-api/internal/models"
)

type studentStore interface {
	Create(ctx context.Context, student *models.Student) error
	FindByID(ctx context.Context, studID string) (*models.Student, error)
	FindByName(ctx context.Context, name string) (*models.Student, error)
}

type feeStore interface {
	Create(ctx context.Context, account *models.FeeAccount) error
	GetByStudent(ctx context.Context, studID string) (*models.FeeAccount, error)
	UpdateAggregates(ctx context.Context, studID string, totalPaid, balance int64, status models.FeeStatus) error
}

type installmentStore interface {
	Create(ctx context.Context, inst *models.Installment) error
	SumByStudent(ctx context.Context, studID string) (int64, error)
}

type logStore interface {
	Append(ctx context.Context, entry *models.LogEntry) error
}

// RowResult is the per-row outcome of applying a change-set.
type RowResult struct {
	Success     bool
	ID          string
	StudentID   string
	StudentName string
	Amount      int64
	Error       string
}

// MutationResult aggregates everything one ApplyChangeSet call did.
type MutationResult struct {
	Students     []RowResult
	Installments []RowResult
	Success      bool
	Message      string
}

// LedgerService is the single writer for the fee ledger. Rows are applied in
// a fixed order (students, then installments, then log seeds) and every
// attempt is audited. Fee aggregates are recomputed from the installment rows
// after each payment, never incremented.
type LedgerService struct {
	students     studentStore
	fees         feeStore
	installments installmentStore
	logs         logStore
	metrics      *MetricsService
	logger       *zap.Logger
}

// SetMetrics attaches mutation instrumentation. Optional; nil is fine.
func (s *LedgerService) SetMetrics(m *MetricsService) { s.metrics = m }

// NewLedgerService constructs the service.
func NewLedgerService(students studentStore, fees feeStore, installments installmentStore, logs logStore, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		students:     students,
		fees:         fees,
		installments: installments,
		logs:         logs,
		logger:       logger,
	}
}

// ApplyChangeSet commits a validated change-set. A failing row is recorded
// and skipped; it never aborts the rest of the set.
func (s *LedgerService) ApplyChangeSet(ctx context.Context, cs models.ChangeSet, actor string) *MutationResult {
	result := &MutationResult{Success: true}

	for _, seed := range cs.Students {
		row := s.applyStudent(ctx, cs, seed, actor)
		result.Students = append(result.Students, row)
		s.metrics.ObserveMutation("student", row.Success)
		if !row.Success {
			result.Success = false
		}
	}

	for _, seed := range cs.Installments {
		row := s.applyInstallment(ctx, seed, actor)
		result.Installments = append(result.Installments, row)
		s.metrics.ObserveMutation("installment", row.Success)
		if !row.Success {
			result.Success = false
		}
	}

	for _, seed := range cs.Logs {
		s.appendSeedLog(ctx, seed, actor)
	}

	result.Message = s.formatResult(result)
	return result
}

func (s *LedgerService) applyStudent(ctx context.Context, cs models.ChangeSet, seed models.StudentSeed, actor string) RowResult {
	totalFees, err := parseAmount(cs.TotalFeesFor(seed))
	if err != nil {
		s.audit(ctx, models.ActionAddStudent, "", seed, models.ResultFail, "invalid total fees: "+err.Error(), actor)
		return RowResult{StudentName: seed.Name, Error: "invalid total fees"}
	}

	student := &models.Student{
		Name:       strings.TrimSpace(seed.Name),
		Class:      strings.TrimSpace(seed.Class),
		ParentName: seed.ParentName,
		ParentNo:   seed.ParentNo,
		PhoneNo:    seed.PhoneNo,
		Email:      seed.Email,
	}
	if err := s.students.Create(ctx, student); err != nil {
		s.logger.Error("student create failed", zap.String("name", seed.Name), zap.Error(err))
		s.audit(ctx, models.ActionAddStudent, "", seed, models.ResultFail, err.Error(), actor)
		return RowResult{StudentName: seed.Name, Error: err.Error()}
	}

	account := &models.FeeAccount{
		StudID:    student.StudID,
		Name:      student.Name,
		Class:     student.Class,
		TotalFees: totalFees,
		TotalPaid: 0,
		Balance:   totalFees,
		Status:    models.FeeStatusPending,
	}
	if err := s.fees.Create(ctx, account); err != nil {
		s.logger.Error("fee account seed failed", zap.String("stud_id", student.StudID), zap.Error(err))
		s.audit(ctx, models.ActionAddStudent, student.StudID, seed, models.ResultPartial, "fee account: "+err.Error(), actor)
		return RowResult{Success: true, ID: student.StudID, StudentID: student.StudID, StudentName: student.Name, Error: "fee account seed failed"}
	}

	s.audit(ctx, models.ActionAddStudent, student.StudID, seed, models.ResultSuccess, "", actor)
	return RowResult{Success: true, ID: student.StudID, StudentID: student.StudID, StudentName: student.Name, Amount: totalFees}
}

func (s *LedgerService) applyInstallment(ctx context.Context, seed models.InstallmentSeed, actor string) RowResult {
	student := s.resolveStudent(ctx, seed.StudID, seed.Name)
	if student == nil {
		msg := "student not found"
		if seed.StudID != "" {
			msg = fmt.Sprintf("student %s not found", seed.StudID)
		}
		s.audit(ctx, models.ActionAddInstallment, seed.StudID, seed, models.ResultFail, msg, actor)
		return RowResult{StudentID: seed.StudID, StudentName: seed.Name, Error: msg}
	}

	amount, err := parseAmount(seed.Amount)
	if err != nil || amount <= 0 {
		s.audit(ctx, models.ActionAddInstallment, student.StudID, seed, models.ResultFail, "invalid amount: "+seed.Amount, actor)
		return RowResult{StudentID: student.StudID, StudentName: student.Name, Error: "invalid amount"}
	}

	inst := &models.Installment{
		StudID:     student.StudID,
		Amount:     amount,
		PaidOn:     parseDateOrNow(seed.Date),
		Mode:       defaultString(seed.Mode, "cash"),
		Remarks:    seed.Remarks,
		RecordedBy: defaultString(seed.RecordedBy, actor),
	}
	if err := s.installments.Create(ctx, inst); err != nil {
		s.logger.Error("installment create failed", zap.String("stud_id", student.StudID), zap.Error(err))
		s.audit(ctx, models.ActionAddInstallment, student.StudID, seed, models.ResultFail, err.Error(), actor)
		return RowResult{StudentID: student.StudID, StudentName: student.Name, Error: err.Error()}
	}
	s.audit(ctx, models.ActionAddInstallment, student.StudID, seed, models.ResultSuccess, "", actor)

	if err := s.RecomputeFeeSummary(ctx, student.StudID, actor); err != nil {
		s.logger.Error("fee summary recompute failed", zap.String("stud_id", student.StudID), zap.Error(err))
		return RowResult{Success: true, ID: inst.InstID, StudentID: student.StudID, StudentName: student.Name, Amount: amount, Error: "fee summary not updated"}
	}

	return RowResult{Success: true, ID: inst.InstID, StudentID: student.StudID, StudentName: student.Name, Amount: amount}
}

// RecomputeFeeSummary rebuilds a student's fee aggregates from the
// installment rows. Safe to call any number of times; the result depends only
// on the stored installments.
func (s *LedgerService) RecomputeFeeSummary(ctx context.Context, studID, actor string) error {
	account, err := s.fees.GetByStudent(ctx, studID)
	if err != nil {
		return fmt.Errorf("load fee account: %w", err)
	}

	totalPaid, err := s.installments.SumByStudent(ctx, studID)
	if err != nil {
		return fmt.Errorf("sum installments: %w", err)
	}

	balance := account.TotalFees - totalPaid
	status := models.DeriveFeeStatus(account.TotalFees, totalPaid)
	if err := s.fees.UpdateAggregates(ctx, studID, totalPaid, balance, status); err != nil {
		s.audit(ctx, models.ActionUpdateFeesSummary, studID, nil, models.ResultFail, err.Error(), actor)
		return err
	}

	s.audit(ctx, models.ActionUpdateFeesSummary, studID, nil, models.ResultSuccess, "", actor)
	return nil
}

func (s *LedgerService) resolveStudent(ctx context.Context, studID, name string) *models.Student {
	if studID != "" {
		if student, err := s.students.FindByID(ctx, strings.TrimSpace(studID)); err == nil {
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

func (s *LedgerService) appendSeedLog(ctx context.Context, seed models.LogSeed, actor string) {
	entry := &models.LogEntry{
		Action:      models.LogAction(seed.Action),
		StudID:      seed.StudID,
		RawMessage:  seed.RawMessage,
		ParsedJSON:  seed.ParsedJSON,
		Result:      models.LogResult(defaultString(seed.Result, string(models.ResultSuccess))),
		ErrorMsg:    seed.ErrorMsg,
		PerformedBy: defaultString(seed.PerformedBy, actor),
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Error("seed log append failed", zap.String("action", seed.Action), zap.Error(err))
	}
}

func (s *LedgerService) audit(ctx context.Context, action models.LogAction, studID string, payload interface{}, result models.LogResult, errMsg, actor string) {
	parsed := ""
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			parsed = string(raw)
		}
	}
	entry := &models.LogEntry{
		Action:      action,
		StudID:      studID,
		ParsedJSON:  parsed,
		Result:      result,
		ErrorMsg:    errMsg,
		PerformedBy: actor,
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Error("audit append failed", zap.String("action", string(action)), zap.Error(err))
	}
}

func (s *LedgerService) formatResult(result *MutationResult) string {
	var b strings.Builder

	successStudents := 0
	for _, row := range result.Students {
		if row.Success {
			successStudents++
		}
	}
	successInstallments := 0
	for _, row := range result.Installments {
		if row.Success {
			successInstallments++
		}
	}

	if successStudents > 0 || successInstallments > 0 {
		b.WriteString("✅ *Data processed successfully!*\n")
		if successStudents > 0 {
			b.WriteString("\n👨‍🎓 *Students Added:*\n")
			for _, row := range result.Students {
				if row.Success {
					b.WriteString(fmt.Sprintf("• %s (%s)\n", row.StudentName, row.ID))
				}
			}
		}
		if successInstallments > 0 {
			b.WriteString("\n💰 *Installments Added:*\n")
			for _, row := range result.Installments {
				if row.Success {
					b.WriteString(fmt.Sprintf("• ₹%d for %s\n", row.Amount, row.StudentName))
				}
			}
		}
	}

	failures := make([]string, 0)
	for _, row := range append(append([]RowResult{}, result.Students...), result.Installments...) {
		if !row.Success {
			who := row.StudentName
			if who == "" {
				who = row.StudentID
			}
			failures = append(failures, fmt.Sprintf("• %s: %s", who, row.Error))
		}
	}
	if len(failures) > 0 {
		b.WriteString("\n❌ *Failed Rows:*\n")
		b.WriteString(strings.Join(failures, "\n"))
		b.WriteString("\n")
	}

	if b.Len() == 0 {
		return "ℹ️ Nothing to apply."
	}
	return strings.TrimRight(b.String(), "\n")
}

func parseAmount(raw string) (int64, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if cleaned == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
		// Amounts are whole rupees; round rather than truncate paise.
		return int64(math.Round(f)), nil
	}
	return strconv.ParseInt(cleaned, 10, 64)
}

func parseDateOrNow(raw string) time.Time {
	if raw == "" {
		return time.Now().UTC()
	}
	if d, err := time.Parse("2006-01-02", raw); err == nil {
		return d
	}
	return time.Now().UTC()
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
