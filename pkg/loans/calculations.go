// Package loans provides the zero-interest EMI schedule calculations.
package loans

import (
	"fmt"
	"time"

	"github.com/iwvelando/course-emi/pkg/constants"
	"github.com/iwvelando/course-emi/pkg/datetime"
	"github.com/iwvelando/course-emi/pkg/mathutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OverflowPolicy decides what happens when a month step lands on a day the
// target month does not have.
type OverflowPolicy string

const (
	// OverflowClamp pins the day to the last day of the target month.
	OverflowClamp OverflowPolicy = "clamp"

	// OverflowRollover lets the missing days spill into the following month.
	OverflowRollover OverflowPolicy = "rollover"
)

// ParseOverflowPolicy converts a configuration value into a policy. The empty
// string selects OverflowClamp.
func ParseOverflowPolicy(value string) (OverflowPolicy, error) {
	switch OverflowPolicy(value) {
	case "", OverflowClamp:
		return OverflowClamp, nil
	case OverflowRollover:
		return OverflowRollover, nil
	}
	return "", fmt.Errorf("unknown month overflow policy %q, expected %s or %s", value, OverflowClamp, OverflowRollover)
}

// Installment holds the values for a given installment.
type Installment struct {
	Index   int       `json:"index"`
	DueDate time.Time `json:"dueDate"`
	Amount  int64     `json:"amount"`
}

// DeriveBillingDay maps the admission day-of-month to the installment debit
// day: days 1-20 debit on the 7th, days 21-30 on the 15th, and the 31st
// falls back to the 7th.
func DeriveBillingDay(admissionDay int) int {
	if admissionDay > constants.EarlyWindowLastDay && admissionDay <= constants.LateWindowLastDay {
		return constants.LateBillingDay
	}
	return constants.EarlyBillingDay
}

// DeriveFirstInstallmentDate returns the first debit date for an admission:
// the billing day of the month after the admission month.
func DeriveFirstInstallmentDate(admission time.Time, policy OverflowPolicy) time.Time {
	admission = datetime.DateOf(admission)
	billingDay := DeriveBillingDay(admission.Day())

	var next time.Time
	if policy == OverflowRollover {
		// The admission day is carried into the next month first, so Jan 31
		// becomes Mar 3 before the billing day is applied.
		next = datetime.AddMonthsOverflow(admission, 1)
	} else {
		next = datetime.AddMonthsClamped(datetime.WithDay(admission, 1), 1)
	}
	return datetime.WithDay(next, billingDay)
}

// AddMonths advances t by n months under the given policy.
func AddMonths(t time.Time, n int, policy OverflowPolicy) time.Time {
	if policy == OverflowRollover {
		return datetime.AddMonthsOverflow(t, n)
	}
	return datetime.AddMonthsClamped(t, n)
}

// InstallmentDates returns tenure due dates. Each date is first advanced by
// its zero-based position in whole months. Without a first installment date
// the sequence starts from today and keeps today's day-of-month.
func InstallmentDates(first *time.Time, today time.Time, tenure int, policy OverflowPolicy) []time.Time {
	base := datetime.DateOf(today)
	if first != nil {
		base = datetime.DateOf(*first)
	}

	dates := make([]time.Time, 0, tenure)
	for k := 0; k < tenure; k++ {
		dates = append(dates, AddMonths(base, k, policy))
	}
	return dates
}

// CalculateLoanAmount returns the financed amount, never below zero.
func CalculateLoanAmount(totalFee, downPayment int64) int64 {
	return mathutil.MaxInt64(0, totalFee-downPayment)
}

// CalculateInstallmentAmount splits the loan evenly across the tenure. The
// result is unrounded; rounding happens only at display and export time.
func CalculateInstallmentAmount(loanAmount int64, tenureMonths int) decimal.Decimal {
	if tenureMonths <= 0 {
		return decimal.Zero
	}
	return mathutil.DivideEvenly(loanAmount, tenureMonths, constants.InstallmentDivisionPrecision)
}

// CalculateTotalPayable multiplies the unrounded installment back out. The
// result is in canonical form.
func CalculateTotalPayable(installment decimal.Decimal, tenureMonths int) decimal.Decimal {
	return mathutil.Canonical(installment.Mul(decimal.NewFromInt(int64(tenureMonths))))
}

// ScheduleGenerator builds installment schedules.
type ScheduleGenerator struct {
	logger *zap.Logger
	policy OverflowPolicy
}

// NewScheduleGenerator creates a new generator instance
func NewScheduleGenerator(logger *zap.Logger, policy OverflowPolicy) *ScheduleGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == "" {
		policy = OverflowClamp
	}
	return &ScheduleGenerator{logger: logger, policy: policy}
}

// Policy returns the month overflow policy in use.
func (g *ScheduleGenerator) Policy() OverflowPolicy {
	return g.policy
}

// FirstInstallmentDate applies the generator's policy to an admission date.
func (g *ScheduleGenerator) FirstInstallmentDate(admission time.Time) time.Time {
	return DeriveFirstInstallmentDate(admission, g.policy)
}

// GenerateSchedule creates the equal-installment schedule for a loan. Every
// entry carries the installment rounded half-up to a whole currency unit.
func (g *ScheduleGenerator) GenerateSchedule(loanAmount int64, tenureMonths int, first *time.Time, today time.Time) ([]Installment, error) {
	if tenureMonths <= 0 {
		return nil, fmt.Errorf("tenure must be positive, got %d", tenureMonths)
	}
	if loanAmount < 0 {
		return nil, fmt.Errorf("loan amount must not be negative, got %d", loanAmount)
	}

	if first == nil {
		g.logger.Debug("no first installment date, stepping from today",
			zap.String("op", "loans.GenerateSchedule"),
			zap.String("today", datetime.FormatISO(today)),
		)
	}

	amount := mathutil.RoundHalfUp(CalculateInstallmentAmount(loanAmount, tenureMonths))
	dates := InstallmentDates(first, today, tenureMonths, g.policy)

	schedule := make([]Installment, len(dates))
	for i, due := range dates {
		schedule[i] = Installment{Index: i + 1, DueDate: due, Amount: amount}
	}
	return schedule, nil
}
