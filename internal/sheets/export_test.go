package sheets_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"finanze/internal/core"
	"finanze/internal/sheets"
	"finanze/internal/sheets/memory"
)

var exportNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func sheetConfig(rng string) core.SheetConfig {
	return core.SheetConfig{Range: rng}.ApplyGlobals(core.GlobalsConfig{
		SpreadsheetID:  "sheet-1",
		DatetimeFormat: "%d/%m/%Y %H:%M:%S",
		DateFormat:     "%d/%m/%Y",
	})
}

func TestRender(t *testing.T) {
	cells := [][]string{
		{"Title"},
		{"", "last_update", "old", "junk"},
		{},
		{"entity", "name", "amount", "date", "missing"},
		{"stale", "row"},
	}
	records := sheets.PositionRecords([]core.GlobalPosition{{
		EntityID: "demo-bank",
		Date:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Assets: []core.Asset{
			{Name: "Account", Type: "ACCOUNT", Amount: 1000.5, Currency: "EUR"},
			{Name: "Fund", Type: "FUND", Amount: 20, Currency: "EUR"},
		},
	}}, map[string]string{"demo-bank": "Demo Bank"})

	rows, err := sheets.Render(cells, records, sheetConfig("Positions"), exportNow)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("expected header block plus 2 rows, got %d: %v", len(rows), rows)
	}
	if rows[1][1] != "last_update" || rows[1][2] != "14/03/2025 15:09:26" || len(rows[1]) != 3 {
		t.Errorf("unexpected last update row: %q", rows[1])
	}
	want := []string{"Demo Bank", "Account", "1000.5", "01/03/2025", ""}
	for i := range want {
		if rows[4][i] != want[i] {
			t.Errorf("column %d = %q, want %q", i, rows[4][i], want[i])
		}
	}
	if cells[1][2] != "old" {
		t.Error("input cells must not be modified")
	}
}

func TestRender_DataAndFilters(t *testing.T) {
	cells := [][]string{{"name", "type", "currency"}}
	records := sheets.PositionRecords([]core.GlobalPosition{{
		EntityID: "e",
		Assets: []core.Asset{
			{Name: "A", Type: "ACCOUNT", Currency: "EUR"},
			{Name: "B", Type: "FUND", Currency: "EUR"},
			{Name: "C", Type: "FUND", Currency: "USD"},
		},
	}}, nil)

	cfg := sheetConfig("Funds")
	cfg.Data = core.StringList{"fund"}
	cfg.Filters = []core.FilterConfig{{Field: "currency", Values: core.StringList{"EUR"}}}

	rows, err := sheets.Render(cells, records, cfg, exportNow)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "B" {
		t.Fatalf("expected only B, got %v", rows)
	}
}

func TestRender_Errors(t *testing.T) {
	if _, err := sheets.Render(nil, nil, sheetConfig("x"), exportNow); !errors.Is(err, sheets.ErrEmptySheet) {
		t.Errorf("expected ErrEmptySheet, got %v", err)
	}
	cells := [][]string{{"last_update"}, {}, {""}}
	if _, err := sheets.Render(cells, nil, sheetConfig("x"), exportNow); !errors.Is(err, sheets.ErrNoHeaders) {
		t.Errorf("expected ErrNoHeaders, got %v", err)
	}
}

func TestExport(t *testing.T) {
	store := memory.New()
	store.Set("sheet-1", "Transactions", [][]string{{"entity", "name", "amount", "date", "is_real"}})

	txs := []core.Transaction{
		{EntityID: "demo-bank", Name: "Old", Amount: 1, Date: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), IsReal: true},
		{EntityID: "demo-bank", Name: "New", Amount: 2, Date: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC), IsReal: true},
	}
	n, err := sheets.Export(context.Background(), store, sheetConfig("Transactions"),
		sheets.TransactionRecords(txs, nil), exportNow)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 rows written, got %d", n)
	}

	rows, _ := store.Read(context.Background(), "sheet-1", "Transactions")
	if rows[1][1] != "New" || rows[1][3] != "01/02/2025 09:00:00" || rows[1][4] != "TRUE" {
		t.Errorf("unexpected first row: %q", rows[1])
	}

	cfg := core.SheetConfig{Range: "Transactions"}
	if _, err := sheets.Export(context.Background(), store, cfg, nil, exportNow); err == nil {
		t.Error("expected error without spreadsheet id")
	}
}

func TestStrftime(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"%d/%m/%Y %H:%M:%S", "14/03/2025 15:09:26"},
		{"%Y-%m-%d", "2025-03-14"},
		{"%b %y, 100%%", "Mar 25, 100%"},
		{"%A %I:%M %p", "Friday 03:09 PM"},
	}
	for _, tt := range tests {
		if got := sheets.Strftime(exportNow, tt.format); got != tt.want {
			t.Errorf("Strftime(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}
