// Package constants provides shared constants for the course-emi application.
package constants

// DateLayout is the ISO-8601 calendar date format accepted for admission dates
// and used for export file names.
const DateLayout = "2006-01-02"

// Display date layouts.
const (
	// ShortDateLayout renders dates as "D Mon YYYY", e.g. "7 Apr 2024".
	ShortDateLayout = "2 Jan 2006"

	// LongDateLayout renders dates as "D Month YYYY", e.g. "7 April 2024".
	LongDateLayout = "2 January 2006"
)

// Plan constants
const (
	// MinTenureMonths is the shortest repayment tenure offered.
	MinTenureMonths = 2

	// MaxTenureMonths is the longest repayment tenure offered.
	MaxTenureMonths = 9

	// DefaultTenureMonths is used when no tenure is supplied.
	DefaultTenureMonths = 6

	// EarlyBillingDay is the debit day for admissions on days 1-20 and 31.
	EarlyBillingDay = 7

	// LateBillingDay is the debit day for admissions on days 21-30.
	LateBillingDay = 15

	// EarlyWindowLastDay is the last admission day mapped to EarlyBillingDay.
	EarlyWindowLastDay = 20

	// LateWindowLastDay is the last admission day mapped to LateBillingDay.
	LateWindowLastDay = 30

	// InstallmentDivisionPrecision is the number of fractional digits kept
	// for the unrounded installment amount.
	InstallmentDivisionPrecision = 16
)

// TenureOptions lists every tenure the input layer may submit, in display order.
var TenureOptions = []int{2, 3, 4, 5, 6, 7, 8, 9}

// User-facing messages
const (
	// DownPaymentTooLargeMessage is shown when the down payment is not below the fee.
	DownPaymentTooLargeMessage = "Down payment must be less than the total course fee."
)

// Export document text
const (
	ExportTitle           = "Course EMI Calculator"
	ExportSubtitle        = "Detailed Payment Roadmap & Loan Summary"
	ExportSummaryHeading  = "Loan Summary"
	ExportScheduleHeading = "Monthly Payment Schedule"
	ExportFooter          = "Generated via Course Calculator - Zero Cost EMI Plan Applied."
	ExportFilePrefix      = "Course_EMI_Plan_"
	InstallmentStatus     = "Scheduled"
	CurrencyCode          = "INR"
	CurrencySymbol        = "₹"
	Locale                = "en-IN"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Export format constants
const (
	ExportFormatXLSX = "xlsx"
	ExportFormatCSV  = "csv"
	ExportFormatPDF  = "pdf"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix prefixes every environment override, e.g. COURSE_EMI_LOGGING_LEVEL.
	EnvPrefix = "COURSE_EMI"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxRequestSizeBytes caps plan request bodies (64 KB)
	DefaultMaxRequestSizeBytes int64 = 64 * 1024

	// DefaultExportDir is where locally stored artifacts are written
	DefaultExportDir = "./exports"

	// DefaultFilesPrefix is the URL prefix locally stored artifacts are served under
	DefaultFilesPrefix = "/files"
)
