package core

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

// Default and maximum page size of a transaction query.
const (
	DefaultTransactionLimit = 100
	MaxTransactionLimit     = 1000
)

type (
	// DataQuery narrows stored data to some entities. Empty Entities means
	// every entity; Excluded is applied afterwards.
	DataQuery struct {
		Entities []string
		Excluded []string
	}

	// TransactionQuery pages through stored transactions, newest first.
	// Page starts at 1.
	TransactionQuery struct {
		DataQuery
		Types []string
		From  *time.Time
		To    *time.Time
		Page  int
		Limit int
	}

	PositionsResponse struct {
		Positions map[string]GlobalPosition `json:"positions"`
	}

	ContributionsResponse struct {
		Contributions map[string][]AutoContribution `json:"contributions"`
	}

	TransactionsResponse struct {
		Transactions []Transaction `json:"transactions"`
	}

	// IntegrationStatus tells whether an external integration is usable.
	IntegrationStatus string

	IntegrationsResponse struct {
		GoogleSheets IntegrationStatus `json:"GOOGLE_SHEETS"`
		ExportQueue  IntegrationStatus `json:"EXPORT_QUEUE"`
	}
)

const (
	IntegrationOn  IntegrationStatus = "ON"
	IntegrationOff IntegrationStatus = "OFF"
)

// StatusOf maps a configured flag to an integration status.
func StatusOf(configured bool) IntegrationStatus {
	if configured {
		return IntegrationOn
	}
	return IntegrationOff
}

// Includes reports whether data of entityID is selected by q.
func (q DataQuery) Includes(entityID string) bool {
	if lo.Contains(q.Excluded, entityID) {
		return false
	}
	return len(q.Entities) == 0 || lo.Contains(q.Entities, entityID)
}

// Normalize fills the paging defaults and checks the bounds.
func (q TransactionQuery) Normalize() (TransactionQuery, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = DefaultTransactionLimit
	}
	switch {
	case q.Page < 1:
		return q, errors.Wrapf(ErrInvalidRequest, "page %d", q.Page)
	case q.Limit < 1 || q.Limit > MaxTransactionLimit:
		return q, errors.Wrapf(ErrInvalidRequest, "limit %d out of 1..%d", q.Limit, MaxTransactionLimit)
	case q.From != nil && q.To != nil && q.To.Before(*q.From):
		return q, errors.Wrap(ErrInvalidRequest, "to_date before from_date")
	}
	return q, nil
}

// Matches reports whether tx passes the type and date filters of q.
func (q TransactionQuery) Matches(tx Transaction) bool {
	if len(q.Types) > 0 && !lo.Contains(q.Types, tx.Type) {
		return false
	}
	if q.From != nil && tx.Date.Before(*q.From) {
		return false
	}
	if q.To != nil && tx.Date.After(*q.To) {
		return false
	}
	return true
}
