package core

import "time"

// Fetched data shapes. These replace the untyped `data` payload of a
// COMPLETED fetch and are the rows the sheet exporter writes.
type (
	Asset struct {
		Name     string  `json:"name"`
		ISIN     string  `json:"isin,omitempty"`
		Type     string  `json:"type"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	}

	GlobalPosition struct {
		EntityID string    `json:"entity_id"`
		Date     time.Time `json:"date"`
		Assets   []Asset   `json:"assets"`
	}

	AutoContribution struct {
		ID        string  `json:"id"`
		EntityID  string  `json:"entity_id"`
		Alias     string  `json:"alias"`
		Target    string  `json:"target"`
		Amount    float64 `json:"amount"`
		Currency  string  `json:"currency"`
		Frequency string  `json:"frequency"`
		Active    bool    `json:"active"`
	}

	Transaction struct {
		ID       string    `json:"id"`
		EntityID string    `json:"entity_id"`
		Ref      string    `json:"ref"`
		Name     string    `json:"name"`
		Type     string    `json:"type"`
		Amount   float64   `json:"amount"`
		Currency string    `json:"currency"`
		Date     time.Time `json:"date"`
		IsReal   bool      `json:"is_real"`
	}

	HistoricEntry struct {
		ID       string    `json:"id"`
		EntityID string    `json:"entity_id"`
		Name     string    `json:"name"`
		Invested float64   `json:"invested"`
		Returned float64   `json:"returned"`
		Currency string    `json:"currency"`
		Date     time.Time `json:"date"`
	}

	FetchedData struct {
		Position *GlobalPosition `json:"position,omitempty"`
		// Positions holds one position per entity when a single run covers
		// several entities, as a virtual import does.
		Positions         []GlobalPosition   `json:"positions,omitempty"`
		AutoContributions []AutoContribution `json:"auto_contributions,omitempty"`
		Transactions      []Transaction      `json:"transactions,omitempty"`
		Historic          []HistoricEntry    `json:"historic,omitempty"`
	}
)

// Merge folds another feature's result into d.
func (d *FetchedData) Merge(o FetchedData) {
	if o.Position != nil {
		d.Position = o.Position
	}
	d.Positions = append(d.Positions, o.Positions...)
	d.AutoContributions = append(d.AutoContributions, o.AutoContributions...)
	d.Transactions = append(d.Transactions, o.Transactions...)
	d.Historic = append(d.Historic, o.Historic...)
}
