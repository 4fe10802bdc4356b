package models

import "time"

// FeeStatus is the derived payment standing of a fee account.
type FeeStatus string

const (
	FeeStatusPaid    FeeStatus = "Paid"
	FeeStatusPartial FeeStatus = "Partial"
	FeeStatusPending FeeStatus = "Pending"
)

// FeeAccount aggregates a student's fees. TotalPaid, Balance, and Status are
// always recomputed from the installment rows, never incremented in place.
type FeeAccount struct {
	StudID    string    `db:"stud_id" json:"stud_id"`
	Name      string    `db:"name" json:"name"`
	Class     string    `db:"class" json:"class"`
	TotalFees int64     `db:"total_fees" json:"total_fees"`
	TotalPaid int64     `db:"total_paid" json:"total_paid"`
	Balance   int64     `db:"balance" json:"balance"`
	Status    FeeStatus `db:"status" json:"status"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DeriveFeeStatus maps a recomputed aggregate onto the status enum.
func DeriveFeeStatus(totalFees, totalPaid int64) FeeStatus {
	switch {
	case totalFees-totalPaid <= 0:
		return FeeStatusPaid
	case totalPaid > 0:
		return FeeStatusPartial
	default:
		return FeeStatusPending
	}
}
