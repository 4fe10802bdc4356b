package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/feeline-api/internal/models"
	"github.com/noah-isme/feeline-api/pkg/llm"
)

// ParserService turns a free-form write message into a structured change-set
// matching the ledger row shapes. Any failure degrades to an empty change-set
// carrying a single parse_error log row, so the caller always gets something
// it can feed forward.
type ParserService struct {
	llm     completer
	model   string
	metrics *MetricsService
	logger  *zap.Logger
}

// NewParserService constructs the service.
func NewParserService(llmClient completer, model string, logger *zap.Logger) *ParserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParserService{llm: llmClient, model: model, logger: logger}
}

// SetMetrics attaches the metrics collector. Safe to skip.
func (s *ParserService) SetMetrics(m *MetricsService) { s.metrics = m }

const parserPrompt = `You are a structured data parser for a student fee management system.
Always return parsed JSON data that matches the given schemas exactly.
The schemas are strict and persistent. Do not add or remove fields.

### SCHEMAS (DO NOT ALTER):

1. Students
   stud_id, name, class, parent_name, parent_no, phone_no, email, created_at

2. Fees
   stud_id, name, class, total_fees, total_paid, balance, status

3. Installments
   inst_id, stud_id, name, class, installment_amount, date, mode, remarks, recorded_by, created_at

4. Logs
   log_id, action (add_student | add_installment | reminder), stud_id, raw_message, parsed_json, result (success | fail | partial), error_msg, performed_by, timestamp

### RULES:

1. Installment Payment
   * Staff will provide the stud_id or student name and the installment amount.
   * For installments, ONLY stud_id (or name) and installment_amount are required.
   * Leave name, class, mode, and remarks as empty strings ("") if not provided.
   * Parsed data must include only:
     * Installments: exactly one row with stud_id/name and installment_amount filled
     * Logs: exactly one row logging the action with the same stud_id
   * Do NOT update Fees directly. The server recalculates total_paid and balance.

2. New Student Creation
   * Parsed data must include:
     * Students: all fields except stud_id and created_at (server generates these)
     * Fees: all fields, with total_paid = "0", balance = total_fees, status = "unpaid"
     * Logs: exactly one row logging the creation

3. Always include all fields from the schema, even if empty ("").
4. Keep field names and structure exactly consistent.
5. RETURN ONLY VALID JSON. NO EXPLANATIONS OR EXTRA TEXT.

### Example 1: Installment

Input: "student id STU123 paid 4000"

Output:
{"Installments":[{"stud_id":"STU123","name":"","class":"","installment_amount":"4000","date":"","mode":"","remarks":"","recorded_by":""}],"Logs":[{"action":"add_installment","stud_id":"STU123","raw_message":"student id STU123 paid 4000","parsed_json":"","result":"success","error_msg":"","performed_by":""}]}

### Example 2: New Student

Input: "Create student Rahul Pandey class 12, parent name: Mr Pandey, parent number: 9999999999, phone: 8888888888, email: rahul@example.com, total fees: 40000"

Output:
{"Students":[{"name":"Rahul Pandey","class":"12","parent_name":"Mr Pandey","parent_no":"9999999999","phone_no":"8888888888","email":"rahul@example.com"}],"Fees":[{"stud_id":"","name":"Rahul Pandey","class":"12","total_fees":"40000","total_paid":"0","balance":"40000","status":"unpaid"}],"Logs":[{"action":"add_student","stud_id":"","raw_message":"Create student Rahul Pandey class 12, parent name: Mr Pandey, parent number: 9999999999, phone: 8888888888, email: rahul@example.com, total fees: 40000","parsed_json":"","result":"success","error_msg":"","performed_by":""}]}

Input: `

// Parse converts one write message into a change-set.
func (s *ParserService) Parse(ctx context.Context, text string) models.ChangeSet {
	start := time.Now()
	content, err := s.llm.Complete(ctx, llm.CompletionRequest{
		Model:       s.model,
		Prompt:      parserPrompt + text,
		Temperature: 0,
		MaxTokens:   1000,
	})
	s.metrics.ObserveLLMCall("parse", time.Since(start))
	if err != nil {
		s.logger.Warn("parser completion failed", zap.Error(err))
		return parseFailure(text, err.Error())
	}

	jsonStr, err := llm.ExtractJSON(content)
	if err != nil {
		s.logger.Warn("parser returned no JSON", zap.String("content", content))
		return parseFailure(text, "no JSON object in model response")
	}

	var cs models.ChangeSet
	if err := json.Unmarshal([]byte(jsonStr), &cs); err != nil {
		s.logger.Warn("parser JSON invalid", zap.Error(err))
		return parseFailure(text, err.Error())
	}
	cs.Normalize()
	return cs
}

func parseFailure(rawMessage, errMsg string) models.ChangeSet {
	cs := models.NewChangeSet()
	cs.Logs = append(cs.Logs, models.LogSeed{
		Action:      string(models.ActionParseError),
		RawMessage:  rawMessage,
		Result:      string(models.ResultFail),
		ErrorMsg:    errMsg,
		PerformedBy: "ai_parser",
	})
	return cs
}
