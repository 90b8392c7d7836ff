package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"finanze/internal/core"
)

var (
	// ErrEmptySheet is returned when the target range holds no cells, so
	// there is no header row to map records onto.
	ErrEmptySheet = errors.New("sheet is empty")
	ErrNoHeaders  = errors.New("no header row found")
)

// Render maps records onto the header row found in cells and returns the
// full content to write back. Rows above the header are kept; a last_update
// marker gets now written in the cell to its right.
func Render(cells [][]string, records []Record, cfg core.SheetConfig, now time.Time) ([][]string, error) {
	if len(cells) == 0 {
		return nil, ErrEmptySheet
	}
	out := make([][]string, len(cells))
	for i, row := range cells {
		out[i] = append([]string(nil), row...)
	}

	markerRow := -1
	if r, c, ok := findCell(out, LastUpdateField); ok {
		markerRow = r
		row := make([]string, c+2)
		row[c] = LastUpdateField
		row[c+1] = formatTime(now, core.SheetConfig{DatetimeFormat: cfg.DatetimeFormat})
		out[r] = row
	}

	header := -1
	for i := markerRow + 1; i < len(out); i++ {
		if !blank(out[i]) {
			header = i
			break
		}
	}
	if header < 0 {
		return nil, ErrNoHeaders
	}
	columns := out[header]

	rows := out[:header+1]
	for _, rec := range records {
		if !Matches(rec, cfg) {
			continue
		}
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = FormatValue(rec[strings.TrimSpace(col)], cfg)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Matches applies the sheet data selection and filters to a record. Data,
// when set, lists the record types to keep.
func Matches(rec Record, cfg core.SheetConfig) bool {
	if len(cfg.Data) > 0 {
		typ := FormatValue(rec[TypeColumn], cfg)
		found := false
		for _, d := range cfg.Data {
			if strings.EqualFold(d, typ) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, f := range cfg.Filters {
		if !f.Values.Contains(FormatValue(rec[f.Field], cfg)) {
			return false
		}
	}
	return true
}

// Export reads the configured range, renders records onto it and writes it
// back.
func Export(ctx context.Context, rw ReadWriter, cfg core.SheetConfig, records []Record, now time.Time) (int, error) {
	id := ""
	if cfg.SpreadsheetID != nil {
		id = *cfg.SpreadsheetID
	}
	if id == "" {
		return 0, fmt.Errorf("range %s: missing spreadsheet id", cfg.Range)
	}

	cells, err := rw.Read(ctx, id, cfg.Range)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", cfg.Range, err)
	}
	rows, err := Render(cells, records, cfg, now)
	if err != nil {
		return 0, fmt.Errorf("render %s: %w", cfg.Range, err)
	}
	if err := rw.Write(ctx, id, cfg.Range, rows); err != nil {
		return 0, fmt.Errorf("write %s: %w", cfg.Range, err)
	}
	return len(rows), nil
}

func findCell(cells [][]string, value string) (int, int, bool) {
	for r, row := range cells {
		for c, cell := range row {
			if strings.TrimSpace(cell) == value {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
