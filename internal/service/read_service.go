package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/feeline-api/internal/models"
	"github.com/noah-isme/feeline-api/pkg/llm"
)

type readStudentStore interface {
	FindByID(ctx context.Context, studID string) (*models.Student, error)
	FindByName(ctx context.Context, name string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
}

type readFeeStore interface {
	GetByStudent(ctx context.Context, studID string) (*models.FeeAccount, error)
	ListAll(ctx context.Context) ([]models.FeeAccount, error)
}

type readInstallmentStore interface {
	ListByStudent(ctx context.Context, studID string) ([]models.Installment, error)
	List(ctx context.Context, filter models.InstallmentFilter) ([]models.Installment, int, error)
}

// ReadQuery is the structured form of a read request.
type ReadQuery struct {
	QueryType    string     `json:"query_type"`
	Parameters   ReadParams `json:"parameters"`
	OutputFormat string     `json:"output_format"`
}

// ReadParams narrows a read query to a student, class, date, or aggregate
// criterion.
type ReadParams struct {
	StudID     string `json:"stud_id"`
	Name       string `json:"name"`
	Class      string `json:"class"`
	Criteria   string `json:"criteria"`
	Amount     string `json:"amount"`
	DateFilter string `json:"date_filter"`
	DateRange  struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"date_range"`
}

var validQueryTypes = map[string]struct{}{
	"student_search":    {},
	"fee_status":        {},
	"payment_history":   {},
	"student_details":   {},
	"class_report":      {},
	"aggregate_summary": {},
}

var (
	studIDPattern    = regexp.MustCompile(`(?i)STU\d+`)
	classPattern     = regexp.MustCompile(`(?i)class\s+(\w+)`)
	amountPattern    = regexp.MustCompile(`\d+`)
	aggregateKeyword = regexp.MustCompile(`(?i)total|count|all students|how many|list of students`)
	feeKeyword       = regexp.MustCompile(`(?i)fee|paid|balance|outstanding|pending`)
)

// ReadService answers read-only queries about the ledger. The LLM turns the
// message into a structured query; when that fails a regex fallback keeps the
// common cases working.
type ReadService struct {
	llm          completer
	model        string
	students     readStudentStore
	fees         readFeeStore
	installments readInstallmentStore
	metrics      *MetricsService
	logger       *zap.Logger
}

// SetMetrics attaches the metrics collector. Safe to skip.
func (s *ReadService) SetMetrics(m *MetricsService) { s.metrics = m }

// NewReadService constructs the service.
func NewReadService(llmClient completer, model string, students readStudentStore, fees readFeeStore, installments readInstallmentStore, logger *zap.Logger) *ReadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadService{
		llm:          llmClient,
		model:        model,
		students:     students,
		fees:         fees,
		installments: installments,
		logger:       logger,
	}
}

const readPrompt = `You are a school fee management assistant for READ queries. Analyze this user query and return ONLY valid JSON.

User Query: %q

CRITICAL CLASSIFICATION RULES:
- If query mentions a student ID (STU123, STU1235, etc.) or asks for payments "by/of/for [student_id]" -> use "stud_id" parameter, NOT date_filter
- Student IDs always start with "STU" followed by numbers
- Only use "date_filter" for actual dates (2025-08-22, today, yesterday, etc.)
- "all payments by STU1235" = student query, NOT date query

Query Types and Format:

For payment history by student:
{"query_type": "payment_history", "parameters": {"stud_id": "STU123", "name": "", "class": ""}, "output_format": "detailed"}

For date-based payment queries:
{"query_type": "payment_history", "parameters": {"date_filter": "2025-08-22", "date_range": {"start": "2025-08-22", "end": "2025-08-22"}}, "output_format": "detailed"}

For individual student details:
{"query_type": "student_details", "parameters": {"stud_id": "STU123", "name": "", "class": ""}, "output_format": "detailed"}

For individual fee status:
{"query_type": "fee_status", "parameters": {"stud_id": "STU123", "name": "", "class": ""}, "output_format": "detailed"}

For class-specific queries:
{"query_type": "class_report", "parameters": {"class": "11"}, "output_format": "list"}

For aggregate/summary queries:
{"query_type": "aggregate_summary", "parameters": {"criteria": "paid_less_than_10000", "amount": "10000", "class": ""}, "output_format": "summary"}

For student search by name:
{"query_type": "student_search", "parameters": {"stud_id": "", "name": "John", "class": ""}, "output_format": "list"}

RETURN ONLY THE JSON OBJECT, NO OTHER TEXT.`

// Answer handles one read request end to end and returns the reply text.
func (s *ReadService) Answer(ctx context.Context, text string) string {
	query := s.parseQuery(ctx, text)
	reply, err := s.execute(ctx, query)
	if err != nil {
		s.logger.Warn("read query failed", zap.String("query_type", query.QueryType), zap.Error(err))
		return "❌ " + err.Error()
	}
	return reply
}

func (s *ReadService) parseQuery(ctx context.Context, text string) ReadQuery {
	start := time.Now()
	content, err := s.llm.Complete(ctx, llm.CompletionRequest{
		Model:       s.model,
		Prompt:      fmt.Sprintf(readPrompt, text),
		Temperature: 0.1,
		MaxTokens:   300,
	})
	s.metrics.ObserveLLMCall("read_parse", time.Since(start))
	if err != nil {
		s.logger.Warn("read parse completion failed", zap.Error(err))
		return fallbackReadQuery(text)
	}

	jsonStr, err := llm.ExtractJSON(content)
	if err != nil {
		return fallbackReadQuery(text)
	}

	var query ReadQuery
	if err := json.Unmarshal([]byte(jsonStr), &query); err != nil {
		s.logger.Warn("read query JSON invalid", zap.Error(err))
		return fallbackReadQuery(text)
	}
	if _, ok := validQueryTypes[query.QueryType]; !ok {
		return fallbackReadQuery(text)
	}
	return query
}

// fallbackReadQuery recovers a usable query from the raw text when the model
// response is unusable. Class queries are checked before aggregates because
// "students in class 11" also matches the aggregate keywords.
func fallbackReadQuery(text string) ReadQuery {
	query := ReadQuery{QueryType: "student_search", OutputFormat: "summary"}

	if m := classPattern.FindStringSubmatch(text); m != nil {
		query.QueryType = "class_report"
		query.Parameters.Class = m[1]
		return query
	}

	if aggregateKeyword.MatchString(text) && feeKeyword.MatchString(text) {
		query.QueryType = "aggregate_summary"
		amount := amountPattern.FindString(text)
		lower := strings.ToLower(text)
		switch {
		case strings.Contains(lower, "less than") && amount != "":
			query.Parameters.Criteria = "paid_less_than_" + amount
			query.Parameters.Amount = amount
		case strings.Contains(lower, "more than") && amount != "":
			query.Parameters.Criteria = "balance_more_than_" + amount
			query.Parameters.Amount = amount
		case strings.Contains(lower, "outstanding") || strings.Contains(lower, "pending"):
			query.Parameters.Criteria = "outstanding_fees"
		}
		return query
	}

	if id := studIDPattern.FindString(text); id != "" {
		query.QueryType = "student_details"
		query.Parameters.StudID = strings.ToUpper(id)
	}
	return query
}

func (s *ReadService) execute(ctx context.Context, query ReadQuery) (string, error) {
	switch query.QueryType {
	case "student_details":
		return s.studentDetails(ctx, query.Parameters)
	case "fee_status":
		return s.feeStatus(ctx, query.Parameters)
	case "payment_history":
		return s.paymentHistory(ctx, query.Parameters)
	case "class_report":
		return s.classReport(ctx, query.Parameters)
	case "student_search":
		return s.studentSearch(ctx, query.Parameters)
	case "aggregate_summary":
		return s.aggregateSummary(ctx, query.Parameters)
	default:
		return "", fmt.Errorf("unknown query type: %s", query.QueryType)
	}
}

func (s *ReadService) lookupStudent(ctx context.Context, params ReadParams) (*models.Student, error) {
	if params.StudID != "" {
		student, err := s.students.FindByID(ctx, params.StudID)
		if err != nil {
			return nil, fmt.Errorf("student %s not found", params.StudID)
		}
		return student, nil
	}
	if params.Name != "" {
		student, err := s.students.FindByName(ctx, params.Name)
		if err != nil {
			return nil, fmt.Errorf("student %q not found", params.Name)
		}
		return student, nil
	}
	return nil, fmt.Errorf("student ID or name is required")
}

func (s *ReadService) studentDetails(ctx context.Context, params ReadParams) (string, error) {
	student, err := s.lookupStudent(ctx, params)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("👨‍🎓 *Student Details*\n\n• Name: %s\n• ID: %s\n• Class: %s\n• Parent: %s\n• Parent No: %s\n• Phone: %s\n• Email: %s",
		student.Name, student.StudID, student.Class, student.ParentName, student.ParentNo, student.PhoneNo, student.Email), nil
}

func (s *ReadService) feeStatus(ctx context.Context, params ReadParams) (string, error) {
	student, err := s.lookupStudent(ctx, params)
	if err != nil {
		return "", err
	}
	account, err := s.fees.GetByStudent(ctx, student.StudID)
	if err != nil {
		return "", fmt.Errorf("no fee record for %s", student.StudID)
	}
	return fmt.Sprintf("💵 *Fee Status: %s (%s)*\n\n• Total Fees: ₹%d\n• Total Paid: ₹%d\n• Balance: ₹%d\n• Status: %s",
		account.Name, account.StudID, account.TotalFees, account.TotalPaid, account.Balance, account.Status), nil
}

func (s *ReadService) paymentHistory(ctx context.Context, params ReadParams) (string, error) {
	if params.StudID == "" && params.Name == "" && (params.DateFilter != "" || params.DateRange.Start != "") {
		return s.paymentsByDate(ctx, params)
	}

	student, err := s.lookupStudent(ctx, params)
	if err != nil {
		return "", err
	}
	installments, err := s.installments.ListByStudent(ctx, student.StudID)
	if err != nil {
		return "", fmt.Errorf("could not load payments for %s", student.StudID)
	}
	if len(installments) == 0 {
		return fmt.Sprintf("ℹ️ No payments recorded for %s (%s) yet.", student.Name, student.StudID), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🧾 *Payment History: %s (%s)*\n\n", student.Name, student.StudID)
	var total int64
	for _, inst := range installments {
		fmt.Fprintf(&b, "• %s | ₹%d | %s | %s\n", inst.InstID, inst.Amount, inst.PaidOn.Format("2006-01-02"), inst.Mode)
		total += inst.Amount
	}
	fmt.Fprintf(&b, "\n💰 Total Paid: ₹%d (%d payments)", total, len(installments))
	return b.String(), nil
}

func (s *ReadService) paymentsByDate(ctx context.Context, params ReadParams) (string, error) {
	from, to, label := resolveDateWindow(params)
	installments, _, err := s.installments.List(ctx, models.InstallmentFilter{From: from, To: to})
	if err != nil {
		return "", fmt.Errorf("could not load payments for %s", label)
	}
	if len(installments) == 0 {
		return fmt.Sprintf("ℹ️ No payments recorded on %s.", label), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🧾 *Payments on %s*\n\n", label)
	var total int64
	for _, inst := range installments {
		fmt.Fprintf(&b, "• %s | %s | ₹%d | %s\n", inst.InstID, inst.StudID, inst.Amount, inst.Mode)
		total += inst.Amount
	}
	fmt.Fprintf(&b, "\n💰 Total: ₹%d (%d payments)", total, len(installments))
	return b.String(), nil
}

func resolveDateWindow(params ReadParams) (*time.Time, *time.Time, string) {
	raw := params.DateFilter
	if raw == "" {
		raw = params.DateRange.Start
	}

	now := time.Now().UTC()
	var day time.Time
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "today", "":
		day = now
	case "yesterday":
		day = now.AddDate(0, 0, -1)
	default:
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			day = now
		} else {
			day = parsed
		}
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Nanosecond)
	return &start, &end, start.Format("2006-01-02")
}

func (s *ReadService) classReport(ctx context.Context, params ReadParams) (string, error) {
	if params.Class == "" {
		return "", fmt.Errorf("class is required for a class report")
	}
	students, total, err := s.students.List(ctx, models.StudentFilter{Class: params.Class, PageSize: 100})
	if err != nil {
		return "", fmt.Errorf("could not load class %s", params.Class)
	}
	if total == 0 {
		return fmt.Sprintf("ℹ️ No students found in class %s.", params.Class), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏫 *Class %s* (%d students)\n\n", params.Class, total)
	for _, student := range students {
		fmt.Fprintf(&b, "• %s (%s)\n", student.Name, student.StudID)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *ReadService) studentSearch(ctx context.Context, params ReadParams) (string, error) {
	if params.StudID != "" || (params.Name != "" && params.Class == "") {
		return s.studentDetails(ctx, params)
	}
	search := params.Name
	students, total, err := s.students.List(ctx, models.StudentFilter{Search: search, Class: params.Class, PageSize: 20})
	if err != nil {
		return "", fmt.Errorf("student search failed")
	}
	if total == 0 {
		return "ℹ️ No matching students found.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔎 *Search Results* (%d)\n\n", total)
	for _, student := range students {
		fmt.Fprintf(&b, "• %s (%s), class %s\n", student.Name, student.StudID, student.Class)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (s *ReadService) aggregateSummary(ctx context.Context, params ReadParams) (string, error) {
	accounts, err := s.fees.ListAll(ctx)
	if err != nil {
		return "", fmt.Errorf("could not load fee summary")
	}

	threshold, _ := parseAmount(params.Amount)
	matched := make([]models.FeeAccount, 0, len(accounts))
	for _, account := range accounts {
		switch {
		case strings.HasPrefix(params.Criteria, "paid_less_than_"):
			if account.TotalPaid < threshold {
				matched = append(matched, account)
			}
		case strings.HasPrefix(params.Criteria, "balance_more_than_"):
			if account.Balance > threshold {
				matched = append(matched, account)
			}
		case params.Criteria == "outstanding_fees":
			if account.Balance > 0 {
				matched = append(matched, account)
			}
		default:
			matched = append(matched, account)
		}
	}

	var totalFees, totalPaid, totalBalance int64
	for _, account := range matched {
		totalFees += account.TotalFees
		totalPaid += account.TotalPaid
		totalBalance += account.Balance
	}

	var b strings.Builder
	b.WriteString("📊 *Fee Summary*\n\n")
	fmt.Fprintf(&b, "• Students: %d\n• Total Fees: ₹%d\n• Total Collected: ₹%d\n• Outstanding: ₹%d", len(matched), totalFees, totalPaid, totalBalance)
	if params.Criteria != "" {
		fmt.Fprintf(&b, "\n\nCriteria: %s", params.Criteria)
	}
	return b.String(), nil
}
