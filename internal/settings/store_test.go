package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanze/internal/core"
	"finanze/internal/log"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	s, err := NewStore(path, log.Discard())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, path
}

func TestStore_LoadCreatesDefault(t *testing.T) {
	s, path := newStore(t)

	cfg, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.DefaultUpdateCooldown, cfg.Fetch.UpdateCooldown)
	assert.False(t, cfg.Fetch.Virtual.Enabled)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestStore_SaveThenLoad(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	cfg := core.DefaultSettings()
	cfg.Fetch.UpdateCooldown = 120
	cfg.Export.Sheets.Globals.SpreadsheetID = "sheet-1"
	cfg.Export.Sheets.Transactions = []core.SheetConfig{{
		Range:   "TX",
		Data:    core.StringList{"ACCOUNT", "DEPOSIT"},
		Filters: []core.FilterConfig{{Field: "type", Values: core.StringList{"BUY"}}},
	}}
	require.NoError(t, s.Save(ctx, cfg))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 120, got.Fetch.UpdateCooldown)
	assert.Equal(t, "sheet-1", got.Export.Sheets.Globals.SpreadsheetID)
	require.Len(t, got.Export.Sheets.Transactions, 1)
	assert.Equal(t, core.StringList{"ACCOUNT", "DEPOSIT"}, got.Export.Sheets.Transactions[0].Data)
}

func TestStore_SaveRejectsInvalid(t *testing.T) {
	s, _ := newStore(t)

	cfg := core.DefaultSettings()
	cfg.Fetch.UpdateCooldown = -1
	assert.ErrorIs(t, s.Save(context.Background(), cfg), core.ErrInvalidRequest)
}

func TestStore_ParsesScalarDataField(t *testing.T) {
	s, path := newStore(t)
	doc := `
export:
  sheets:
    globals:
      spreadsheetId: abc
    position:
      - range: Summary
        data: banks
fetch:
  virtual:
    enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, cfg.Export.Sheets.Position, 1)
	assert.Equal(t, core.StringList{"banks"}, cfg.Export.Sheets.Position[0].Data)
	assert.Equal(t, core.DefaultUpdateCooldown, cfg.Fetch.UpdateCooldown)
}
