package models

import "time"

// Student is a ledger row in the students collection. Display IDs use the
// STU prefix and are assigned from a database sequence on create.
type Student struct {
	StudID     string    `db:"stud_id" json:"stud_id"`
	Name       string    `db:"name" json:"name"`
	Class      string    `db:"class" json:"class"`
	ParentName string    `db:"parent_name" json:"parent_name"`
	ParentNo   string    `db:"parent_no" json:"parent_no"`
	PhoneNo    string    `db:"phone_no" json:"phone_no"`
	Email      string    `db:"email" json:"email"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// StudentFilter constrains student listing queries.
type StudentFilter struct {
	Class    string
	Search   string
	Page     int
	PageSize int
}
