package sheets

import (
	"sort"
	"time"

	"finanze/internal/core"
)

// Column names with a meaning of their own in a sheet.
const (
	LastUpdateField = "last_update"
	EntityColumn    = "entity"
	TypeColumn      = "type"
)

// Record is one exportable row, keyed by column name.
type Record map[string]any

// Position rows are one per asset; names maps entity ids to display names.
func PositionRecords(positions []core.GlobalPosition, names map[string]string) []Record {
	var out []Record
	for _, p := range positions {
		for _, a := range p.Assets {
			out = append(out, Record{
				EntityColumn: entityName(names, p.EntityID),
				"entity_id":  p.EntityID,
				"name":       a.Name,
				"isin":       a.ISIN,
				TypeColumn:   a.Type,
				"amount":     a.Amount,
				"currency":   a.Currency,
				"date":       p.Date,
			})
		}
	}
	return out
}

func ContributionRecords(cs []core.AutoContribution, names map[string]string) []Record {
	out := make([]Record, 0, len(cs))
	for _, c := range cs {
		out = append(out, Record{
			EntityColumn: entityName(names, c.EntityID),
			"entity_id":  c.EntityID,
			"id":         c.ID,
			"alias":      c.Alias,
			"target":     c.Target,
			"amount":     c.Amount,
			"currency":   c.Currency,
			"frequency":  c.Frequency,
			"active":     c.Active,
			TypeColumn:   "CONTRIBUTION",
		})
	}
	return out
}

// TransactionRecords are sorted newest first.
func TransactionRecords(txs []core.Transaction, names map[string]string) []Record {
	sorted := append([]core.Transaction(nil), txs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.After(sorted[j].Date) })

	out := make([]Record, 0, len(sorted))
	for _, t := range sorted {
		out = append(out, Record{
			EntityColumn: entityName(names, t.EntityID),
			"entity_id":  t.EntityID,
			"id":         t.ID,
			"ref":        t.Ref,
			"name":       t.Name,
			TypeColumn:   t.Type,
			"amount":     t.Amount,
			"currency":   t.Currency,
			"date":       t.Date,
			"is_real":    t.IsReal,
		})
	}
	return out
}

func HistoricRecords(hs []core.HistoricEntry, names map[string]string) []Record {
	out := make([]Record, 0, len(hs))
	for _, h := range hs {
		out = append(out, Record{
			EntityColumn: entityName(names, h.EntityID),
			"entity_id":  h.EntityID,
			"id":         h.ID,
			"name":       h.Name,
			"invested":   h.Invested,
			"returned":   h.Returned,
			"currency":   h.Currency,
			"date":       h.Date,
			TypeColumn:   "HISTORIC",
		})
	}
	return out
}

func entityName(names map[string]string, id string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return id
}

// dateOnly reports whether t carries no time of day.
func dateOnly(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}
