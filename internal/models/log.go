package models

import "time"

// LogAction enumerates audited operations.
type LogAction string

const (
	ActionAddStudent            LogAction = "add_student"
	ActionAddInstallment        LogAction = "add_installment"
	ActionUpdateFeesSummary     LogAction = "update_fees_summary"
	ActionValidationFailed      LogAction = "validation_failed"
	ActionParseError            LogAction = "parse_error"
	ActionWebhookError          LogAction = "webhook_error"
	ActionConfirmationRequested LogAction = "confirmation_requested"
	ActionConfirmationResolved  LogAction = "confirmation_resolved"
	ActionReminder              LogAction = "reminder"
	ActionPaymentCaptured       LogAction = "payment_captured"
)

// LogResult records the outcome of an audited attempt.
type LogResult string

const (
	ResultSuccess LogResult = "success"
	ResultFail    LogResult = "fail"
	ResultPartial LogResult = "partial"
	ResultPending LogResult = "pending"
)

// LogEntry is the append-only audit record written for every state-changing
// attempt, success or failure.
type LogEntry struct {
	LogID       string    `db:"log_id" json:"log_id"`
	Action      LogAction `db:"action" json:"action"`
	StudID      string    `db:"stud_id" json:"stud_id"`
	RawMessage  string    `db:"raw_message" json:"raw_message"`
	ParsedJSON  string    `db:"parsed_json" json:"parsed_json"`
	Result      LogResult `db:"result" json:"result"`
	ErrorMsg    string    `db:"error_msg" json:"error_msg"`
	PerformedBy string    `db:"performed_by" json:"performed_by"`
	Timestamp   time.Time `db:"timestamp" json:"timestamp"`
}

// LogFilter constrains audit log queries.
type LogFilter struct {
	Action LogAction
	StudID string
	Result LogResult
	Limit  int
	Offset int
}
