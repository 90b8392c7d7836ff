package sheets

import (
	"context"
)

// Ports for outbound adapters. Cells are addressed by spreadsheet id and an
// A1 range; rows are returned as displayed strings.
type (
	Reader interface {
		Read(ctx context.Context, spreadsheetID, rng string) ([][]string, error)
	}

	// Writer replaces the values of rng starting at its top-left cell.
	// Cells of rng not covered by rows are cleared.
	Writer interface {
		Write(ctx context.Context, spreadsheetID, rng string, rows [][]string) error
	}

	ReadWriter interface {
		Reader
		Writer
	}
)
