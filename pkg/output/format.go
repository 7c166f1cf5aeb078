// Package output provides utilities for formatting and displaying computed plans.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/iwvelando/course-emi/internal/plan"
	"github.com/iwvelando/course-emi/internal/presentation"
	"github.com/iwvelando/course-emi/pkg/constants"
	"github.com/iwvelando/course-emi/pkg/datetime"
)

// Write renders result to w in the named output format.
func Write(w io.Writer, format string, result plan.Result) error {
	switch format {
	case constants.OutputFormatPretty:
		return PrettyFormat(w, result)
	case constants.OutputFormatCSV:
		return CsvFormat(w, result)
	case constants.OutputFormatJSON:
		return JSONFormat(w, result)
	}
	return fmt.Errorf("unsupported output format %q", format)
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, result plan.Result) error {
	summary := presentation.Summary(result)
	detail := presentation.Detail(result)

	ew := &errWriter{w: w}
	ew.printf("--- %s ---\n", constants.ExportTitle)
	if !summary.Valid {
		ew.printf("Error: %s\n", summary.Message)
	}
	ew.printf("Loan Amount   | %s\n", summary.LoanAmountLabel)
	ew.printf("Monthly EMI   | %s\n", summary.MonthlyEMILabel)
	ew.printf("Loan Tenure   | %s\n", summary.TenureLabel)
	ew.printf("Total Payable | %s\n", summary.TotalPayableLabel)

	if detail.Header != nil {
		ew.printf("\nAdmission Date | %s\n", detail.Header.AdmissionDate)
		ew.printf("EMI Debit Day  | %s\n", detail.Header.BillingDayLabel)
		ew.printf("First EMI Date | %s\n", detail.Header.FirstInstallmentDate)
	}

	if len(detail.Rows) > 0 {
		ew.printf("\n#  | Due Date    | Amount\n")
		ew.printf("__ | ___________ | ______\n")
		for _, row := range detail.Rows {
			ew.printf("%-2d | %-11s | %s\n", row.Index, row.Label, row.AmountLabel)
		}
	}
	return ew.err
}

// CsvFormat outputs the installment schedule in comma-separated value format.
func CsvFormat(w io.Writer, result plan.Result) error {
	ew := &errWriter{w: w}
	ew.printf(`"index","dueDate","amount"` + "\n")
	for _, installment := range result.Plan.Installments {
		ew.printf(`"%d","%s","%s"`+"\n",
			installment.Index,
			datetime.FormatISO(installment.DueDate),
			strconv.FormatInt(installment.Amount, 10),
		)
	}
	return ew.err
}

// JSONFormat outputs the full result as indented JSON.
func JSONFormat(w io.Writer, result plan.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

// errWriter keeps the first write error so a table can be printed without
// checking every line.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
