package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/feeline-api/internal/models"
)

type reminderStudentStore interface {
	FindByID(ctx context.Context, studID string) (*models.Student, error)
	ListAll(ctx context.Context) ([]models.Student, error)
}

type messageSender interface {
	SendText(ctx context.Context, to, body string) error
}

// ReminderService sends fee reminders to guardians over WhatsApp. Broadcasts
// fan out over a bounded pool of senders and report a delivery summary.
type ReminderService struct {
	students    reminderStudentStore
	fees        feeReader
	sender      messageSender
	logs        logStore
	concurrency int
	countryCode string
	schoolName  string
	metrics     *MetricsService
	logger      *zap.Logger
}

// SetMetrics attaches delivery instrumentation. Optional; nil is fine.
func (s *ReminderService) SetMetrics(m *MetricsService) { s.metrics = m }

// NewReminderService constructs the service.
func NewReminderService(students reminderStudentStore, fees feeReader, sender messageSender, logs logStore, concurrency int, countryCode, schoolName string, logger *zap.Logger) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 2
	}
	if countryCode == "" {
		countryCode = "91"
	}
	return &ReminderService{
		students:    students,
		fees:        fees,
		sender:      sender,
		logs:        logs,
		concurrency: concurrency,
		countryCode: countryCode,
		schoolName:  schoolName,
		logger:      logger,
	}
}

// RemindAll messages every guardian with a phone number on file and returns
// the delivery summary for the requesting staff member.
func (s *ReminderService) RemindAll(ctx context.Context) string {
	students, err := s.students.ListAll(ctx)
	if err != nil {
		s.logger.Error("reminder broadcast failed to load students", zap.Error(err))
		return "❌ Failed to send reminders to all students"
	}
	if len(students) == 0 {
		return "❌ No students found"
	}

	type outcome struct {
		student models.Student
		err     error
	}

	jobs := make(chan models.Student)
	results := make(chan outcome, len(students))
	var wg sync.WaitGroup
	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for student := range jobs {
				results <- outcome{student: student, err: s.remindOne(ctx, student)}
			}
		}()
	}
	for _, student := range students {
		jobs <- student
	}
	close(jobs)
	wg.Wait()
	close(results)

	successCount, failCount := 0, 0
	var errorDetails []string
	for r := range results {
		if r.err == nil {
			successCount++
			continue
		}
		failCount++
		errorDetails = append(errorDetails, fmt.Sprintf("• %s: %s", r.student.Name, r.err.Error()))
	}

	s.auditReminder(ctx, "", successCount, failCount)

	response := fmt.Sprintf("📢 Reminder process completed\n\n📊 Summary:\n• Total Students: %d\n• Successful: %d\n• Failed: %d",
		len(students), successCount, failCount)
	if failCount > 0 {
		shown := errorDetails
		if len(shown) > 5 {
			shown = shown[:5]
		}
		response += "\n\n❌ Errors:\n" + strings.Join(shown, "\n")
		if len(errorDetails) > 5 {
			response += fmt.Sprintf("\n• ... and %d more errors", len(errorDetails)-5)
		}
	}
	return response
}

// RemindSpecific messages one student's guardian.
func (s *ReminderService) RemindSpecific(ctx context.Context, studID string) string {
	student, err := s.students.FindByID(ctx, studID)
	if err != nil {
		return fmt.Sprintf("❌ Student %s not found", studID)
	}

	if err := s.remindOne(ctx, *student); err != nil {
		s.auditReminder(ctx, studID, 0, 1)
		return fmt.Sprintf("❌ Failed to send reminder to %s\n\nError: %s", student.Name, err.Error())
	}

	s.auditReminder(ctx, studID, 1, 0)
	return fmt.Sprintf("✅ Reminder sent successfully\n\n👨‍🎓 Student: %s\n🆔 ID: %s\n📚 Class: %s\n📞 Parent Number: %s",
		student.Name, student.StudID, student.Class, s.formatPhone(student.ParentNo))
}

func (s *ReminderService) remindOne(ctx context.Context, student models.Student) error {
	if strings.TrimSpace(student.ParentNo) == "" {
		return fmt.Errorf("no parent number available")
	}
	to := s.formatPhone(student.ParentNo)

	balance := "Contact school"
	if account, err := s.fees.GetByStudent(ctx, student.StudID); err == nil {
		balance = fmt.Sprintf("₹%d", account.Balance)
	}

	body := fmt.Sprintf(`🔔 *Fee Reminder - %s*

Dear Parent,

This is a gentle reminder regarding the fee payment for:

👨‍🎓 *Student:* %s
🆔 *ID:* %s
📚 *Class:* %s
💰 *Outstanding Amount:* %s

For any queries, please contact the school office.

Thank you for your cooperation.

*%s Management*`, s.schoolName, student.Name, student.StudID, student.Class, balance, s.schoolName)

	if err := s.sender.SendText(ctx, to, body); err != nil {
		return err
	}
	s.metrics.ObserveReminderSent()
	return nil
}

// formatPhone prefixes the default country code unless already present.
func (s *ReminderService) formatPhone(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "+")
	if strings.HasPrefix(cleaned, s.countryCode) {
		return cleaned
	}
	return s.countryCode + cleaned
}

func (s *ReminderService) auditReminder(ctx context.Context, studID string, successCount, failCount int) {
	result := models.ResultSuccess
	switch {
	case successCount == 0 && failCount > 0:
		result = models.ResultFail
	case failCount > 0:
		result = models.ResultPartial
	}
	entry := &models.LogEntry{
		Action:      models.ActionReminder,
		StudID:      studID,
		Result:      result,
		ErrorMsg:    "",
		PerformedBy: "system",
		ParsedJSON:  fmt.Sprintf(`{"success":%d,"fail":%d}`, successCount, failCount),
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Error("reminder audit failed", zap.Error(err))
	}
}
