package models

import "time"

// Installment is an immutable payment record. INST display IDs are assigned
// from a database sequence on create.
type Installment struct {
	InstID     string    `db:"inst_id" json:"inst_id"`
	StudID     string    `db:"stud_id" json:"stud_id"`
	Amount     int64     `db:"amount" json:"amount"`
	PaidOn     time.Time `db:"paid_on" json:"paid_on"`
	Mode       string    `db:"mode" json:"mode"`
	Remarks    string    `db:"remarks" json:"remarks"`
	RecordedBy string    `db:"recorded_by" json:"recorded_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// InstallmentFilter constrains installment listing queries.
type InstallmentFilter struct {
	StudID   string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}
