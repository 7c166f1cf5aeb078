// Package presentation shapes a computed plan for its three consumers: the
// live summary, the expanded schedule view and the exported document. It
// never changes the underlying numbers.
package presentation

import (
	"time"

	"github.com/iwvelando/course-emi/internal/plan"
	"github.com/iwvelando/course-emi/pkg/constants"
	"github.com/iwvelando/course-emi/pkg/datetime"
	"github.com/iwvelando/course-emi/pkg/format"
)

// SummaryView holds the headline figures shown next to the input form.
type SummaryView struct {
	Valid             bool   `json:"isValid"`
	Message           string `json:"message,omitempty"`
	LoanAmount        int64  `json:"loanAmount"`
	LoanAmountLabel   string `json:"loanAmountLabel"`
	MonthlyEMI        int64  `json:"monthlyEmi"`
	MonthlyEMILabel   string `json:"monthlyEmiLabel"`
	TotalPayable      int64  `json:"totalPayable"`
	TotalPayableLabel string `json:"totalPayableLabel"`
	TenureMonths      int    `json:"tenureMonths"`
	TenureLabel       string `json:"tenureLabel"`
}

// ScheduleHeader is shown above the installment list when an admission date
// was given.
type ScheduleHeader struct {
	AdmissionDate        string `json:"admissionDate"`
	BillingDay           int    `json:"billingDay"`
	BillingDayLabel      string `json:"billingDayLabel"`
	FirstInstallmentDate string `json:"firstInstallmentDate"`
}

// ScheduleRow is one installment in the expanded view.
type ScheduleRow struct {
	Index       int       `json:"index"`
	DueDate     time.Time `json:"dueDate"`
	Label       string    `json:"label"`
	Amount      int64     `json:"amount"`
	AmountLabel string    `json:"amountLabel"`
}

// DetailView is the expanded schedule.
type DetailView struct {
	Header            *ScheduleHeader `json:"header,omitempty"`
	Rows              []ScheduleRow   `json:"rows"`
	TenureLabel       string          `json:"tenureLabel"`
	TotalPayableLabel string          `json:"totalPayableLabel"`
}

// Summary builds the summary view.
func Summary(result plan.Result) SummaryView {
	total := result.Plan.RoundedTotalPayable
	return SummaryView{
		Valid:             result.Validation.Valid,
		Message:           result.Validation.Message,
		LoanAmount:        result.Plan.LoanAmount,
		LoanAmountLabel:   format.Symbol(result.Plan.LoanAmount),
		MonthlyEMI:        result.Plan.RoundedInstallment,
		MonthlyEMILabel:   format.Symbol(result.Plan.RoundedInstallment),
		TotalPayable:      total,
		TotalPayableLabel: format.Symbol(total),
		TenureMonths:      result.Plan.TenureMonths,
		TenureLabel:       format.Months(result.Plan.TenureMonths),
	}
}

// Detail builds the expanded schedule view.
func Detail(result plan.Result) DetailView {
	rows := make([]ScheduleRow, len(result.Plan.Installments))
	for i, installment := range result.Plan.Installments {
		rows[i] = ScheduleRow{
			Index:       installment.Index,
			DueDate:     installment.DueDate,
			Label:       datetime.FormatShort(installment.DueDate),
			Amount:      installment.Amount,
			AmountLabel: format.Symbol(installment.Amount),
		}
	}

	return DetailView{
		Header:            header(result),
		Rows:              rows,
		TenureLabel:       format.Months(result.Plan.TenureMonths),
		TotalPayableLabel: format.Symbol(result.Plan.RoundedTotalPayable),
	}
}

func header(result plan.Result) *ScheduleHeader {
	if result.Schedule == nil || result.Inputs.AdmissionDate == nil {
		return nil
	}
	h := &ScheduleHeader{
		AdmissionDate:   datetime.FormatLong(*result.Inputs.AdmissionDate),
		BillingDay:      result.Schedule.BillingDay,
		BillingDayLabel: format.BillingDay(result.Schedule.BillingDay),
	}
	if result.Schedule.FirstInstallmentDate != nil {
		h.FirstInstallmentDate = datetime.FormatLong(*result.Schedule.FirstInstallmentDate)
	}
	return h
}

// SummaryRow is one Metric/Value pair of the exported summary table.
type SummaryRow struct {
	Metric string `json:"metric"`
	Value  string `json:"value"`
}

// PaymentRow is one line of the exported schedule table.
type PaymentRow struct {
	Index  int    `json:"index"`
	Month  string `json:"month"`
	Amount string `json:"amount"`
	Status string `json:"status"`
}

// Payload is the document-ready form of a plan handed to export renderers.
type Payload struct {
	Title           string       `json:"title"`
	Subtitle        string       `json:"subtitle"`
	SummaryHeading  string       `json:"summaryHeading"`
	Summary         []SummaryRow `json:"summary"`
	ScheduleHeading string       `json:"scheduleHeading"`
	Schedule        []PaymentRow `json:"schedule"`
	Footer          string       `json:"footer"`
	FileBase        string       `json:"fileBase"`
}

// SummaryColumns and ScheduleColumns are the exported table headers.
var (
	SummaryColumns  = []string{"Metric", "Value"}
	ScheduleColumns = []string{"#", "Month", "Installment Amount", "Status"}
)

// ExportPayload builds the export document contents. now dates the file name.
func ExportPayload(result plan.Result, now time.Time) Payload {
	summary := []SummaryRow{
		{"Total Course Fee", format.Currency(valueOrZero(result.Inputs.TotalFee))},
		{"Down Payment", format.Currency(valueOrZero(result.Inputs.DownPayment))},
		{"Loan Amount", format.Currency(result.Plan.LoanAmount)},
		{"Loan Tenure", format.Months(result.Plan.TenureMonths)},
		{"Monthly EMI", format.Currency(result.Plan.RoundedInstallment)},
		{"Total Payable", format.Currency(result.Plan.RoundedTotalPayable)},
	}
	if h := header(result); h != nil {
		summary = append(summary,
			SummaryRow{"Admission Date", h.AdmissionDate},
			SummaryRow{"EMI Debit Day", h.BillingDayLabel},
			SummaryRow{"First EMI Date", h.FirstInstallmentDate},
		)
	}

	schedule := make([]PaymentRow, len(result.Plan.Installments))
	for i, installment := range result.Plan.Installments {
		schedule[i] = PaymentRow{
			Index:  installment.Index,
			Month:  datetime.FormatLong(installment.DueDate),
			Amount: format.Currency(installment.Amount),
			Status: constants.InstallmentStatus,
		}
	}

	return Payload{
		Title:           constants.ExportTitle,
		Subtitle:        constants.ExportSubtitle,
		SummaryHeading:  constants.ExportSummaryHeading,
		Summary:         summary,
		ScheduleHeading: constants.ExportScheduleHeading,
		Schedule:        schedule,
		Footer:          constants.ExportFooter,
		FileBase:        constants.ExportFilePrefix + datetime.FormatISO(now),
	}
}

func valueOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
