package models

import "strings"

// ChangeSet is the parsed, not-yet-committed representation of a write
// intent. Field values are strings because they come straight off the LLM
// wire; the mutation service is the only interpreter. All slices are kept
// non-nil so downstream code never branches on missing arrays.
type ChangeSet struct {
	Students     []StudentSeed     `json:"Students"`
	Fees         []FeeSeed         `json:"Fees"`
	Installments []InstallmentSeed `json:"Installments"`
	Logs         []LogSeed         `json:"Logs"`
}

// StudentSeed is a new-student row awaiting commit. StudID and timestamps
// are server-generated.
type StudentSeed struct {
	Name       string `json:"name"`
	Class      string `json:"class"`
	ParentName string `json:"parent_name"`
	ParentNo   string `json:"parent_no"`
	PhoneNo    string `json:"phone_no"`
	Email      string `json:"email"`
}

// FeeSeed accompanies a StudentSeed and carries the opening fee totals.
type FeeSeed struct {
	StudID    string `json:"stud_id"`
	Name      string `json:"name"`
	Class     string `json:"class"`
	TotalFees string `json:"total_fees"`
	TotalPaid string `json:"total_paid"`
	Balance   string `json:"balance"`
	Status    string `json:"status"`
}

// InstallmentSeed is a payment row awaiting commit. The target student is
// identified by StudID when present, otherwise by Name.
type InstallmentSeed struct {
	StudID     string `json:"stud_id"`
	Name       string `json:"name"`
	Class      string `json:"class"`
	Amount     string `json:"installment_amount"`
	Date       string `json:"date"`
	Mode       string `json:"mode"`
	Remarks    string `json:"remarks"`
	RecordedBy string `json:"recorded_by"`
}

// LogSeed is an audit row synthesized by the parser alongside the data rows.
type LogSeed struct {
	Action      string `json:"action"`
	StudID      string `json:"stud_id"`
	RawMessage  string `json:"raw_message"`
	ParsedJSON  string `json:"parsed_json"`
	Result      string `json:"result"`
	ErrorMsg    string `json:"error_msg"`
	PerformedBy string `json:"performed_by"`
}

// NewChangeSet returns an empty change-set with all slices allocated.
func NewChangeSet() ChangeSet {
	return ChangeSet{
		Students:     []StudentSeed{},
		Fees:         []FeeSeed{},
		Installments: []InstallmentSeed{},
		Logs:         []LogSeed{},
	}
}

// Normalize replaces nil slices with empty ones after JSON decoding.
func (cs *ChangeSet) Normalize() {
	if cs.Students == nil {
		cs.Students = []StudentSeed{}
	}
	if cs.Fees == nil {
		cs.Fees = []FeeSeed{}
	}
	if cs.Installments == nil {
		cs.Installments = []InstallmentSeed{}
	}
	if cs.Logs == nil {
		cs.Logs = []LogSeed{}
	}
}

// HasWrites reports whether the change-set carries any data rows to commit.
func (cs ChangeSet) HasWrites() bool {
	return len(cs.Students) > 0 || len(cs.Installments) > 0
}

// TotalFeesFor returns the fee seed total for a student seed, matching by
// name since new students have no ID yet.
func (cs ChangeSet) TotalFeesFor(seed StudentSeed) string {
	for _, fee := range cs.Fees {
		if strings.EqualFold(fee.Name, seed.Name) {
			return fee.TotalFees
		}
	}
	if len(cs.Fees) == 1 && len(cs.Students) == 1 {
		return cs.Fees[0].TotalFees
	}
	return "0"
}
