package models

import "time"

// PendingConfirmation is the single in-flight write proposal awaiting a
// yes/no reply from one sender. Held in memory only; a restart drops it.
type PendingConfirmation struct {
	ID         string
	Sender     string
	Operation  Operation
	Data       ChangeSet
	RawMessage string
	CreatedAt  time.Time
}
