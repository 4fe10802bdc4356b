package models

// Operation is the high-level intent assigned to an inbound message.
type Operation string

const (
	OpCreate         Operation = "CREATE"
	OpRead           Operation = "READ"
	OpUpdate         Operation = "UPDATE"
	OpDelete         Operation = "DELETE"
	OpRemindAll      Operation = "REMIND_ALL"
	OpRemindSpecific Operation = "REMIND_SPECIFIC"

	// Confirmation replies never come from the LLM; they are resolved by a
	// deterministic short-circuit while a write proposal is pending.
	OpConfirmYes     Operation = "CONFIRMATION_YES"
	OpConfirmNo      Operation = "CONFIRMATION_NO"
	OpConfirmInvalid Operation = "CONFIRMATION_INVALID"
)

// IsWrite reports whether the operation mutates the ledger.
func (op Operation) IsWrite() bool {
	return op == OpCreate || op == OpUpdate || op == OpDelete
}

// Classification is the classifier verdict for one message.
type Classification struct {
	Operation  Operation `json:"operation"`
	Confidence float64   `json:"confidence"`
	StudentID  string    `json:"student_id,omitempty"`
}
