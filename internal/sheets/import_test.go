package sheets_test

import (
	"context"
	"testing"
	"time"

	"finanze/internal/core"
	"finanze/internal/sheets"
	"finanze/internal/sheets/memory"
)

func TestParseRecords(t *testing.T) {
	cells := [][]string{
		{"last_update", "01/01/2025"},
		{},
		{"entity", "name", " amount "},
		{"Broker", "Fund", "1.234,50"},
		{""},
		{"Broker", "Short"},
	}
	recs := sheets.ParseRecords(cells)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d: %v", len(recs), recs)
	}
	if recs[0]["amount"] != "1.234,50" || recs[0]["entity"] != "Broker" {
		t.Errorf("unexpected first record: %v", recs[0])
	}
	if _, ok := recs[1]["amount"]; ok {
		t.Errorf("short row should not have amount: %v", recs[1])
	}
	if sheets.ParseRecords(nil) != nil {
		t.Error("expected nil for empty cells")
	}
}

func TestImportPositionsAndTransactions(t *testing.T) {
	store := memory.New()
	store.Set("sheet-1", "Investments", [][]string{
		{"entity", "name", "isin", "type", "amount", "currency", "date"},
		{"Old Broker", "Fund", "IE00B4L5Y983", "fund", "1.234,50", "eur", "01/02/2025"},
		{"Old Broker", "Stock", "", "stock", "100", "usd", ""},
		{"Other", "Deposit", "", "deposit", "50", "EUR", ""},
	})
	store.Set("sheet-1", "Txs", [][]string{
		{"entity", "name", "type", "amount", "currency", "date"},
		{"Old Broker", "Fund", "buy", "150", "EUR", "03/02/2025 10:00:00"},
	})

	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	recs, err := sheets.Import(ctx, store, sheetConfig("Investments"))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	positions, err := sheets.ImportPositions(recs, sheetConfig("Investments"), now)
	if err != nil {
		t.Fatalf("ImportPositions: %v", err)
	}
	if len(positions) != 2 || positions[0].EntityID != "Old Broker" {
		t.Fatalf("unexpected positions: %+v", positions)
	}
	broker := positions[0]
	if len(broker.Assets) != 2 || broker.Assets[0].Amount != 1234.5 || broker.Assets[0].Type != "FUND" {
		t.Errorf("unexpected assets: %+v", broker.Assets)
	}
	if !broker.Date.Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected date: %v", broker.Date)
	}
	if !positions[1].Date.Equal(now) {
		t.Errorf("position without date should default to now, got %v", positions[1].Date)
	}

	recs, err = sheets.Import(ctx, store, sheetConfig("Txs"))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	txs, err := sheets.ImportTransactions(recs, sheetConfig("Txs"))
	if err != nil {
		t.Fatalf("ImportTransactions: %v", err)
	}
	if len(txs) != 1 || txs[0].IsReal || txs[0].Type != "BUY" || txs[0].Ref == "" {
		t.Errorf("unexpected transactions: %+v", txs)
	}
	if txs[0].Date.Hour() != 10 {
		t.Errorf("datetime format not applied: %v", txs[0].Date)
	}
}

func TestImportPositions_InvalidAmount(t *testing.T) {
	recs := []sheets.Record{{"entity": "E", "name": "N", "amount": "lots"}}
	if _, err := sheets.ImportPositions(recs, core.SheetConfig{}, time.Now()); err == nil {
		t.Error("expected error for invalid amount")
	}
}
