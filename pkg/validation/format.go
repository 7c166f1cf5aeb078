// Package validation provides input and option validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/course-emi/pkg/constants"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	switch format {
	case constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatJSON:
		return nil
	}
	return fmt.Errorf("expected output format of %s, %s or %s, got %q",
		constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatJSON, format)
}

// ValidateExportFormat checks if the export format is one of the supported
// document formats.
func ValidateExportFormat(format string) error {
	switch format {
	case constants.ExportFormatXLSX, constants.ExportFormatCSV, constants.ExportFormatPDF:
		return nil
	}
	return fmt.Errorf("%w: expected %s, %s or %s, got %q",
		ErrUnsupportedExport, constants.ExportFormatXLSX, constants.ExportFormatCSV, constants.ExportFormatPDF, format)
}
