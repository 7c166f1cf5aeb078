// Package testutil provides common utility functions for testing.
package testutil

import (
	"time"

	"github.com/iwvelando/course-emi/pkg/datetime"
	"github.com/iwvelando/course-emi/pkg/loans"
)

// Amount returns a pointer to v, for filling optional form amounts.
func Amount(v int64) *int64 {
	return &v
}

// Date parses a YYYY-MM-DD date and returns a pointer to it. It panics on
// malformed input.
func Date(value string) *time.Time {
	d := datetime.MustParseDate(value)
	return &d
}

// DueDates returns the due dates of a schedule as YYYY-MM-DD strings.
func DueDates(schedule []loans.Installment) []string {
	dates := make([]string, len(schedule))
	for i, installment := range schedule {
		dates[i] = datetime.FormatISO(installment.DueDate)
	}
	return dates
}

// FindInstallment finds an installment by its 1-based index.
// Returns a pointer to the installment if found, nil otherwise.
func FindInstallment(schedule []loans.Installment, index int) *loans.Installment {
	for i := range schedule {
		if schedule[i].Index == index {
			return &schedule[i]
		}
	}
	return nil
}
