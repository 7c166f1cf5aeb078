package validation

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/iwvelando/course-emi/pkg/constants"
	"github.com/iwvelando/course-emi/pkg/datetime"
)

var (
	// ErrMalformedAmount is returned for amount fields containing anything
	// other than decimal digits.
	ErrMalformedAmount = errors.New("amount must contain digits only")

	// ErrAmountTooLarge is returned for digit strings that overflow int64.
	ErrAmountTooLarge = errors.New("amount is too large")

	// ErrInvalidTenure is returned for tenures outside the offered options.
	ErrInvalidTenure = errors.New("tenure is not one of the offered options")

	// ErrMalformedDate is returned for admission dates not in YYYY-MM-DD form.
	ErrMalformedDate = errors.New("admission date must be formatted as YYYY-MM-DD")

	// ErrUnsupportedExport is returned for unknown export formats.
	ErrUnsupportedExport = errors.New("unsupported export format")
)

// State classifies a fee/down-payment pair.
type State string

const (
	// StateIncomplete means at least one amount field is empty. It is not an error.
	StateIncomplete State = "incomplete"
	StateValid      State = "valid"
	StateInvalid    State = "invalid"
)

// Result is the verdict for one set of amount fields.
type Result struct {
	Valid   bool   `json:"isValid"`
	Message string `json:"message,omitempty"`
	State   State  `json:"state"`
}

// ValidateAmounts checks that the down payment is strictly below the total
// fee. A nil field is empty; empty input is incomplete, never invalid.
func ValidateAmounts(totalFee, downPayment *int64) Result {
	if totalFee == nil || downPayment == nil {
		return Result{Valid: true, State: StateIncomplete}
	}
	if *downPayment >= *totalFee {
		return Result{Valid: false, Message: constants.DownPaymentTooLargeMessage, State: StateInvalid}
	}
	return Result{Valid: true, State: StateValid}
}

// ParseAmountField converts a raw form value into an amount. The empty string
// yields nil. Only ASCII decimal digits are accepted, so signs, exponents
// and decimal points are rejected.
func ParseAmountField(raw string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("%w: %q", ErrMalformedAmount, raw)
		}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrAmountTooLarge, raw)
	}
	return &v, nil
}

// ValidateTenure returns the tenure to use. Zero selects the default.
func ValidateTenure(months int) (int, error) {
	if months == 0 {
		return constants.DefaultTenureMonths, nil
	}
	for _, option := range constants.TenureOptions {
		if months == option {
			return months, nil
		}
	}
	return 0, fmt.Errorf("%w: %d (expected %d-%d)", ErrInvalidTenure, months,
		constants.MinTenureMonths, constants.MaxTenureMonths)
}

// ParseAdmissionDate converts a raw YYYY-MM-DD value into a date. The empty
// string yields nil.
func ParseAdmissionDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := datetime.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedDate, raw)
	}
	return &t, nil
}
