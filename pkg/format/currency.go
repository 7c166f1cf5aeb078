// Package format renders amounts and ordinals for display in the en-IN locale.
package format

import (
	"fmt"

	"github.com/iwvelando/course-emi/pkg/constants"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.MustParse(constants.Locale))

// Grouped returns amount with the locale's thousands separators (e.g., "50,000").
func Grouped(amount int64) string {
	return printer.Sprintf("%d", amount)
}

// Currency returns amount prefixed with the ISO currency code, as used in
// exported documents (e.g., "INR 8,333").
func Currency(amount int64) string {
	return constants.CurrencyCode + " " + Grouped(amount)
}

// Symbol returns amount prefixed with the currency symbol, as used in the
// live views (e.g., "₹8,333").
func Symbol(amount int64) string {
	if amount < 0 {
		return "-" + constants.CurrencySymbol + Grouped(-amount)
	}
	return constants.CurrencySymbol + Grouped(amount)
}

// Months renders a tenure such as "6 Months".
func Months(n int) string {
	if n == 1 {
		return "1 Month"
	}
	return fmt.Sprintf("%d Months", n)
}

// Ordinal returns n with its English ordinal suffix (1st, 2nd, 3rd, 7th, 15th).
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// BillingDay renders the debit day line shown in the export summary.
func BillingDay(day int) string {
	return Ordinal(day) + " of every month"
}
