package presentation

import (
	"context"
	"testing"
	"time"

	"github.com/iwvelando/course-emi/internal/plan"
	"github.com/iwvelando/course-emi/pkg/datetime"
	"github.com/iwvelando/course-emi/pkg/testutil"
)

func compute(t *testing.T, fee, down *int64, tenure int, admission string) plan.Result {
	t.Helper()
	in := plan.LoanInputs{TotalFee: fee, DownPayment: down, TenureMonths: tenure}
	if admission != "" {
		d := datetime.MustParseDate(admission)
		in.AdmissionDate = &d
	}
	engine := plan.NewEngine(nil, plan.WithClock(plan.FixedClock(datetime.MustParseDate("2026-10-18"))))
	result, err := engine.Compute(context.Background(), in)
	if err != nil {
		t.Fatalf("Compute() unexpected error: %v", err)
	}
	return result
}

func TestSummary(t *testing.T) {
	view := Summary(compute(t, testutil.Amount(60000), testutil.Amount(10000), 6, "2024-03-15"))

	if !view.Valid || view.Message != "" {
		t.Errorf("expected valid summary, got %+v", view)
	}
	if view.LoanAmount != 50000 || view.LoanAmountLabel != "₹50,000" {
		t.Errorf("loan amount = %d %q", view.LoanAmount, view.LoanAmountLabel)
	}
	if view.MonthlyEMI != 8333 || view.MonthlyEMILabel != "₹8,333" {
		t.Errorf("monthly EMI = %d %q", view.MonthlyEMI, view.MonthlyEMILabel)
	}
	if view.TotalPayable != 50000 || view.TotalPayableLabel != "₹50,000" {
		t.Errorf("total payable = %d %q", view.TotalPayable, view.TotalPayableLabel)
	}
	if view.TenureLabel != "6 Months" {
		t.Errorf("TenureLabel = %q", view.TenureLabel)
	}
}

func TestSummaryInvalid(t *testing.T) {
	view := Summary(compute(t, testutil.Amount(50000), testutil.Amount(50000), 6, ""))

	if view.Valid || view.Message == "" {
		t.Errorf("expected invalid summary with message, got %+v", view)
	}
	if view.LoanAmount != 0 || view.LoanAmountLabel != "₹0" || view.MonthlyEMI != 0 {
		t.Errorf("invalid inputs must present a zero plan, got %+v", view)
	}
}

func TestDetail(t *testing.T) {
	view := Detail(compute(t, testutil.Amount(60000), testutil.Amount(10000), 3, "2024-03-25"))

	if view.Header == nil {
		t.Fatal("expected a schedule header")
	}
	if view.Header.AdmissionDate != "25 March 2024" {
		t.Errorf("AdmissionDate = %q", view.Header.AdmissionDate)
	}
	if view.Header.BillingDay != 15 || view.Header.BillingDayLabel != "15th of every month" {
		t.Errorf("billing day = %d %q", view.Header.BillingDay, view.Header.BillingDayLabel)
	}
	if view.Header.FirstInstallmentDate != "15 April 2024" {
		t.Errorf("FirstInstallmentDate = %q", view.Header.FirstInstallmentDate)
	}

	want := []string{"15 Apr 2024", "15 May 2024", "15 Jun 2024"}
	if len(view.Rows) != len(want) {
		t.Fatalf("got %d rows, expected %d", len(view.Rows), len(want))
	}
	for i, row := range view.Rows {
		if row.Index != i+1 || row.Label != want[i] {
			t.Errorf("row %d = %+v, expected label %q", i, row, want[i])
		}
		if row.AmountLabel != "₹16,667" {
			t.Errorf("row %d AmountLabel = %q", i, row.AmountLabel)
		}
	}
	if view.TenureLabel != "3 Months" {
		t.Errorf("TenureLabel = %q", view.TenureLabel)
	}
}

func TestDetailWithoutAdmission(t *testing.T) {
	view := Detail(compute(t, testutil.Amount(9000), testutil.Amount(0), 2, ""))

	if view.Header != nil {
		t.Errorf("expected no header, got %+v", view.Header)
	}
	if view.Rows[0].Label != "18 Oct 2026" || view.Rows[1].Label != "18 Nov 2026" {
		t.Errorf("degraded rows = %q, %q", view.Rows[0].Label, view.Rows[1].Label)
	}
}

func TestExportPayload(t *testing.T) {
	now := time.Date(2026, time.October, 18, 16, 4, 5, 0, time.UTC)
	payload := ExportPayload(compute(t, testutil.Amount(60000), testutil.Amount(10000), 6, "2024-03-15"), now)

	if payload.Title != "Course EMI Calculator" || payload.Subtitle != "Detailed Payment Roadmap & Loan Summary" {
		t.Errorf("title block = %q / %q", payload.Title, payload.Subtitle)
	}
	if payload.FileBase != "Course_EMI_Plan_2026-10-18" {
		t.Errorf("FileBase = %q", payload.FileBase)
	}

	wantSummary := []SummaryRow{
		{"Total Course Fee", "INR 60,000"},
		{"Down Payment", "INR 10,000"},
		{"Loan Amount", "INR 50,000"},
		{"Loan Tenure", "6 Months"},
		{"Monthly EMI", "INR 8,333"},
		{"Total Payable", "INR 50,000"},
		{"Admission Date", "15 March 2024"},
		{"EMI Debit Day", "7th of every month"},
		{"First EMI Date", "7 April 2024"},
	}
	if len(payload.Summary) != len(wantSummary) {
		t.Fatalf("got %d summary rows, expected %d", len(payload.Summary), len(wantSummary))
	}
	for i, want := range wantSummary {
		if payload.Summary[i] != want {
			t.Errorf("summary row %d = %+v, expected %+v", i, payload.Summary[i], want)
		}
	}

	if len(payload.Schedule) != 6 {
		t.Fatalf("got %d schedule rows, expected 6", len(payload.Schedule))
	}
	first := payload.Schedule[0]
	if first.Index != 1 || first.Month != "7 April 2024" || first.Amount != "INR 8,333" || first.Status != "Scheduled" {
		t.Errorf("first schedule row = %+v", first)
	}
	if last := payload.Schedule[5]; last.Month != "7 September 2024" {
		t.Errorf("last schedule row = %+v", last)
	}
	if payload.Footer != "Generated via Course Calculator - Zero Cost EMI Plan Applied." {
		t.Errorf("Footer = %q", payload.Footer)
	}
}

func TestExportPayloadWithoutAdmissionOmitsScheduleInfo(t *testing.T) {
	payload := ExportPayload(compute(t, testutil.Amount(30000), nil, 3, ""), datetime.MustParseDate("2026-10-18"))

	if len(payload.Summary) != 6 {
		t.Errorf("got %d summary rows, expected 6", len(payload.Summary))
	}
	if payload.Summary[1].Value != "INR 0" {
		t.Errorf("empty down payment rendered as %q", payload.Summary[1].Value)
	}
	for _, row := range payload.Summary {
		if row.Metric == "Admission Date" || row.Metric == "First EMI Date" {
			t.Errorf("unexpected row %+v", row)
		}
	}
}
