package export

import (
	"context"
	"fmt"

	"github.com/iwvelando/course-emi/internal/presentation"
	"github.com/iwvelando/course-emi/pkg/constants"
	"github.com/xuri/excelize/v2"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// SummarySheet and ScheduleSheet name the workbook's two sheets.
	SummarySheet  = "Loan Summary"
	ScheduleSheet = "Payment Schedule"

	summaryHeaderColor  = "3B82F6"
	scheduleHeaderColor = "F97316"
)

// XLSXRenderer writes an Excel workbook.
type XLSXRenderer struct{}

func (XLSXRenderer) Format() string {
	return constants.ExportFormatXLSX
}

func (r XLSXRenderer) Render(ctx context.Context, payload presentation.Payload) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		return Artifact{}, fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(ScheduleSheet); err != nil {
		return Artifact{}, fmt.Errorf("failed to add schedule sheet: %w", err)
	}
	_ = f.SetDocProps(&excelize.DocProperties{
		Title:       payload.Title,
		Description: payload.Subtitle,
		Creator:     payload.Title,
	})

	if err := writeSummarySheet(f, payload); err != nil {
		return Artifact{}, err
	}
	if err := writeScheduleSheet(f, payload); err != nil {
		return Artifact{}, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to write workbook: %w", err)
	}
	return Artifact{
		Name:        payload.FileBase + "." + r.Format(),
		ContentType: xlsxContentType,
		Data:        buf.Bytes(),
	}, nil
}

func headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
	})
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func writeSummarySheet(f *excelize.File, payload presentation.Payload) error {
	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16, Color: summaryHeaderColor}})
	if err != nil {
		return fmt.Errorf("failed to create title style: %w", err)
	}
	header, err := headerStyle(f, summaryHeaderColor)
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	rows := [][]any{
		{payload.Title},
		{payload.Subtitle},
		{},
		{payload.SummaryHeading},
		{presentation.SummaryColumns[0], presentation.SummaryColumns[1]},
	}
	for _, row := range payload.Summary {
		rows = append(rows, []any{row.Metric, row.Value})
	}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if err := setRow(f, SummarySheet, i+1, row...); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}

	_ = f.SetCellStyle(SummarySheet, "A1", "A1", titleStyle)
	_ = f.SetCellStyle(SummarySheet, "A5", "B5", header)
	_ = f.SetColWidth(SummarySheet, "A", "A", 22)
	_ = f.SetColWidth(SummarySheet, "B", "B", 28)
	return nil
}

func writeScheduleSheet(f *excelize.File, payload presentation.Payload) error {
	header, err := headerStyle(f, scheduleHeaderColor)
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := setRow(f, ScheduleSheet, 1, payload.ScheduleHeading); err != nil {
		return fmt.Errorf("failed to write schedule heading: %w", err)
	}
	columns := make([]any, len(presentation.ScheduleColumns))
	for i, c := range presentation.ScheduleColumns {
		columns[i] = c
	}
	if err := setRow(f, ScheduleSheet, 2, columns...); err != nil {
		return fmt.Errorf("failed to write schedule header: %w", err)
	}

	row := 3
	for _, p := range payload.Schedule {
		if err := setRow(f, ScheduleSheet, row, p.Index, p.Month, p.Amount, p.Status); err != nil {
			return fmt.Errorf("failed to write installment %d: %w", p.Index, err)
		}
		row++
	}
	if err := setRow(f, ScheduleSheet, row+1, payload.Footer); err != nil {
		return fmt.Errorf("failed to write footer: %w", err)
	}

	_ = f.SetCellStyle(ScheduleSheet, "A2", "D2", header)
	_ = f.SetColWidth(ScheduleSheet, "A", "A", 6)
	_ = f.SetColWidth(ScheduleSheet, "B", "D", 22)
	return nil
}
