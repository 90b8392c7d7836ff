package sheets

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"finanze/internal/core"
)

// ParseRecords reads the rows under the header row of cells. A last_update
// marker row, when present, is skipped along with everything above it.
func ParseRecords(cells [][]string) []Record {
	start := 0
	if r, _, ok := findCell(cells, LastUpdateField); ok {
		start = r + 1
	}
	header := -1
	for i := start; i < len(cells); i++ {
		if !blank(cells[i]) {
			header = i
			break
		}
	}
	if header < 0 {
		return nil
	}
	columns := cells[header]

	var out []Record
	for _, row := range cells[header+1:] {
		if blank(row) {
			continue
		}
		rec := Record{}
		for i, col := range columns {
			col = strings.TrimSpace(col)
			if col == "" || i >= len(row) {
				continue
			}
			rec[col] = strings.TrimSpace(row[i])
		}
		out = append(out, rec)
	}
	return out
}

// Import reads one configured range and returns its records.
func Import(ctx context.Context, r Reader, cfg core.SheetConfig) ([]Record, error) {
	id := ""
	if cfg.SpreadsheetID != nil {
		id = *cfg.SpreadsheetID
	}
	if id == "" {
		return nil, fmt.Errorf("range %s: missing spreadsheet id", cfg.Range)
	}
	cells, err := r.Read(ctx, id, cfg.Range)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", cfg.Range, err)
	}
	var out []Record
	for _, rec := range ParseRecords(cells) {
		if Matches(rec, cfg) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func str(rec Record, key string) string {
	s, _ := rec[key].(string)
	return s
}

// ImportPositions groups imported asset rows by their entity column. The
// returned positions carry the entity name in EntityID; callers resolve it.
func ImportPositions(records []Record, cfg core.SheetConfig, now time.Time) ([]core.GlobalPosition, error) {
	byEntity := map[string]*core.GlobalPosition{}
	for i, rec := range records {
		entity, name := str(rec, EntityColumn), str(rec, "name")
		if entity == "" || name == "" {
			continue
		}
		amount, err := parseAmount(str(rec, "amount"))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid amount %q", i+1, str(rec, "amount"))
		}

		pos, ok := byEntity[entity]
		if !ok {
			pos = &core.GlobalPosition{EntityID: entity, Date: now}
			byEntity[entity] = pos
		}
		if d := str(rec, "date"); d != "" {
			t, err := parseTime(d, cfg)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			pos.Date = t
		}
		pos.Assets = append(pos.Assets, core.Asset{
			Name:     name,
			ISIN:     str(rec, "isin"),
			Type:     strings.ToUpper(str(rec, TypeColumn)),
			Amount:   amount,
			Currency: strings.ToUpper(str(rec, "currency")),
		})
	}

	out := make([]core.GlobalPosition, 0, len(byEntity))
	for _, p := range byEntity {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out, nil
}

// ImportTransactions builds virtual transactions from imported rows. Like
// positions, EntityID holds the entity name.
func ImportTransactions(records []Record, cfg core.SheetConfig) ([]core.Transaction, error) {
	var out []core.Transaction
	for i, rec := range records {
		entity := str(rec, EntityColumn)
		if entity == "" {
			continue
		}
		amount, err := parseAmount(str(rec, "amount"))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid amount %q", i+1, str(rec, "amount"))
		}
		date, err := parseTime(str(rec, "date"), cfg)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		ref := str(rec, "ref")
		if ref == "" {
			ref = fmt.Sprintf("%s-%s-%d", entity, date.Format("20060102"), i+1)
		}
		id := str(rec, "id")
		if id == "" {
			id = ref
		}
		out = append(out, core.Transaction{
			ID:       id,
			EntityID: entity,
			Ref:      ref,
			Name:     str(rec, "name"),
			Type:     strings.ToUpper(str(rec, TypeColumn)),
			Amount:   amount,
			Currency: strings.ToUpper(str(rec, "currency")),
			Date:     date,
			IsReal:   false,
		})
	}
	return out, nil
}
