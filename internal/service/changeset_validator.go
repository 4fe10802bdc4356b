package service

import (
	"github.com/noah-isme/feeline-api/internal/models"
	appErrors "github.com/noah-isme/feeline-api/pkg/errors"
)

// ValidateChangeSet enforces the minimum fields a change-set needs before it
// may be offered for confirmation. The first failure wins and its message is
// worded for the sender, not for a log file.
func ValidateChangeSet(cs models.ChangeSet) error {
	for _, inst := range cs.Installments {
		if inst.StudID == "" && inst.Name == "" {
			return appErrors.Clone(appErrors.ErrValidation,
				"❌ *Invalid Request*\n\nTo add an installment, please provide either:\n• Student ID (e.g., STU001)\n• Student name\n\nExample: \"STU001 paid 100\" or \"Rahul paid 100\"")
		}
		if inst.Amount == "" || inst.Amount == "0" {
			return appErrors.Clone(appErrors.ErrValidation,
				"❌ *Invalid Request*\n\nPlease specify a valid installment amount.\n\nExample: \"STU001 paid 100\"")
		}
	}

	for _, student := range cs.Students {
		if student.Name == "" || student.Class == "" {
			return appErrors.Clone(appErrors.ErrValidation,
				"❌ *Invalid Request*\n\nTo add a new student, please provide:\n• Student name\n• Class\n\nExample: \"Add student Rahul class 10\"")
		}
	}

	return nil
}
