package services

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"finanze/internal/core"
	"finanze/internal/log"
	"finanze/internal/storage"
)

// SnapshotReader lists the latest fetched data of every entity.
type SnapshotReader interface {
	Snapshots(ctx context.Context) ([]storage.Snapshot, error)
}

// DataService answers read queries over the stored fetch snapshots.
type DataService struct {
	repo   SnapshotReader
	logger *log.Logger
}

func NewDataService(repo SnapshotReader, logger *log.Logger) *DataService {
	return &DataService{repo: repo, logger: logger.WithComponent(log.ComponentData)}
}

func (s *DataService) snapshots(ctx context.Context, q core.DataQuery) ([]storage.Snapshot, error) {
	all, err := s.repo.Snapshots(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load snapshots")
	}
	return lo.Filter(all, func(snap storage.Snapshot, _ int) bool {
		return q.Includes(snap.EntityID)
	}), nil
}

// Positions returns the latest global position of every selected entity.
func (s *DataService) Positions(ctx context.Context, q core.DataQuery) (core.PositionsResponse, error) {
	snaps, err := s.snapshots(ctx, q)
	if err != nil {
		return core.PositionsResponse{}, err
	}
	out := core.PositionsResponse{Positions: make(map[string]core.GlobalPosition)}
	for _, snap := range snaps {
		if snap.Data.Position != nil {
			out.Positions[snap.EntityID] = *snap.Data.Position
		}
	}
	return out, nil
}

// Contributions returns the periodic contributions of every selected entity.
func (s *DataService) Contributions(ctx context.Context, q core.DataQuery) (core.ContributionsResponse, error) {
	snaps, err := s.snapshots(ctx, q)
	if err != nil {
		return core.ContributionsResponse{}, err
	}
	out := core.ContributionsResponse{Contributions: make(map[string][]core.AutoContribution)}
	for _, snap := range snaps {
		if len(snap.Data.AutoContributions) > 0 {
			out.Contributions[snap.EntityID] = snap.Data.AutoContributions
		}
	}
	return out, nil
}

// Transactions returns one page of the matching transactions, newest first.
func (s *DataService) Transactions(ctx context.Context, q core.TransactionQuery) (core.TransactionsResponse, error) {
	q, err := q.Normalize()
	if err != nil {
		return core.TransactionsResponse{}, err
	}
	snaps, err := s.snapshots(ctx, q.DataQuery)
	if err != nil {
		return core.TransactionsResponse{}, err
	}

	var txs []core.Transaction
	for _, snap := range snaps {
		for _, tx := range snap.Data.Transactions {
			if q.Matches(tx) {
				txs = append(txs, tx)
			}
		}
	}
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})

	start := (q.Page - 1) * q.Limit
	if start >= len(txs) {
		return core.TransactionsResponse{Transactions: []core.Transaction{}}, nil
	}
	end := min(start+q.Limit, len(txs))
	s.logger.DebugContext(ctx, "Transactions queried", "matched", len(txs), "page", q.Page)
	return core.TransactionsResponse{Transactions: txs[start:end]}, nil
}
