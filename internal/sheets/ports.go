// Package sheets exports a user's month to a spreadsheet tab.
package sheets

import (
	"context"
)

// Ports for outbound adapters.
type (
	// ReportWriter replaces the contents of a named sheet with rows,
	// creating the sheet when it does not exist.
	ReportWriter interface {
		WriteReport(ctx context.Context, sheetName string, rows [][]any) error
	}
)
