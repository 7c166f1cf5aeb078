package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/iwvelando/course-emi/internal/presentation"
	"github.com/iwvelando/course-emi/pkg/constants"
)

// CSVRenderer writes the document as CSV, one section after another with a
// blank line between sections.
type CSVRenderer struct{}

func (CSVRenderer) Format() string {
	return constants.ExportFormatCSV
}

func (r CSVRenderer) Render(ctx context.Context, payload presentation.Payload) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := [][]string{
		{payload.Title},
		{payload.Subtitle},
		{},
		{payload.SummaryHeading},
		presentation.SummaryColumns,
	}
	for _, row := range payload.Summary {
		records = append(records, []string{row.Metric, row.Value})
	}
	records = append(records, []string{}, []string{payload.ScheduleHeading}, presentation.ScheduleColumns)
	for _, p := range payload.Schedule {
		records = append(records, []string{strconv.Itoa(p.Index), p.Month, p.Amount, p.Status})
	}
	records = append(records, []string{}, []string{payload.Footer})

	if err := w.WriteAll(records); err != nil {
		return Artifact{}, fmt.Errorf("failed to write csv: %w", err)
	}
	return Artifact{
		Name:        payload.FileBase + "." + r.Format(),
		ContentType: "text/csv; charset=utf-8",
		Data:        buf.Bytes(),
	}, nil
}
