package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanze/internal/core"
	"finanze/internal/log"
)

func day(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }

func seedData(t *testing.T) *DataService {
	t.Helper()
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.SaveSnapshot(ctx, "demo-bank", core.FetchedData{
		Position: &core.GlobalPosition{EntityID: "demo-bank", Date: day(1),
			Assets: []core.Asset{{Name: "Account", Type: "ACCOUNT", Amount: 1000, Currency: "EUR"}}},
		AutoContributions: []core.AutoContribution{{ID: "c1", EntityID: "demo-bank", Alias: "ETF", Amount: 100, Currency: "EUR", Frequency: "MONTHLY", Active: true}},
		Transactions: []core.Transaction{
			{ID: "t1", EntityID: "demo-bank", Type: "BUY", Amount: 10, Currency: "EUR", Date: day(2)},
			{ID: "t2", EntityID: "demo-bank", Type: "SELL", Amount: 5, Currency: "EUR", Date: day(4)},
		},
	}))
	require.NoError(t, repo.SaveSnapshot(ctx, "demo-broker", core.FetchedData{
		Position: &core.GlobalPosition{EntityID: "demo-broker", Date: day(1)},
		Transactions: []core.Transaction{
			{ID: "t3", EntityID: "demo-broker", Type: "BUY", Amount: 7, Currency: "EUR", Date: day(3)},
		},
	}))
	return NewDataService(repo, log.Discard())
}

func TestDataService_Positions(t *testing.T) {
	svc := seedData(t)
	ctx := context.Background()

	all, err := svc.Positions(ctx, core.DataQuery{})
	require.NoError(t, err)
	assert.Len(t, all.Positions, 2)
	assert.Equal(t, 1000.0, all.Positions["demo-bank"].Assets[0].Amount)

	one, err := svc.Positions(ctx, core.DataQuery{Entities: []string{"demo-bank", "demo-broker"}, Excluded: []string{"demo-broker"}})
	require.NoError(t, err)
	assert.Len(t, one.Positions, 1)
	assert.Contains(t, one.Positions, "demo-bank")

	contribs, err := svc.Contributions(ctx, core.DataQuery{})
	require.NoError(t, err)
	assert.Len(t, contribs.Contributions, 1)
	assert.Equal(t, "ETF", contribs.Contributions["demo-bank"][0].Alias)
}

func TestDataService_Transactions(t *testing.T) {
	svc := seedData(t)
	ctx := context.Background()

	ids := func(r core.TransactionsResponse) []string {
		out := make([]string, len(r.Transactions))
		for i, tx := range r.Transactions {
			out[i] = tx.ID
		}
		return out
	}

	tests := []struct {
		name string
		q    core.TransactionQuery
		want []string
	}{
		{"newest first", core.TransactionQuery{}, []string{"t2", "t3", "t1"}},
		{"by entity", core.TransactionQuery{DataQuery: core.DataQuery{Entities: []string{"demo-bank"}}}, []string{"t2", "t1"}},
		{"by type", core.TransactionQuery{Types: []string{"BUY"}}, []string{"t3", "t1"}},
		{"date range", core.TransactionQuery{From: core.Ptr(day(3)), To: core.Ptr(day(4))}, []string{"t2", "t3"}},
		{"second page", core.TransactionQuery{Page: 2, Limit: 2}, []string{"t1"}},
		{"past the end", core.TransactionQuery{Page: 5, Limit: 2}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Transactions(ctx, tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	_, err := svc.Transactions(ctx, core.TransactionQuery{Limit: core.MaxTransactionLimit + 1})
	assert.ErrorIs(t, err, core.ErrInvalidRequest)
	_, err = svc.Transactions(ctx, core.TransactionQuery{From: core.Ptr(day(4)), To: core.Ptr(day(3))})
	assert.ErrorIs(t, err, core.ErrInvalidRequest)
}
