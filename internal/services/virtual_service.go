package services

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"finanze/internal/core"
	"finanze/internal/log"
	"finanze/internal/sheets"
	"finanze/internal/storage"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// VirtualFetchService imports positions and transactions kept by hand in
// sheets. Entities named in the sheets that do not exist yet are created as
// non-real entities.
type VirtualFetchService struct {
	repo     *storage.SQLiteRepository
	settings SettingsLoader
	reader   sheets.Reader
	running  sync.Mutex
	logger   *log.Logger
	now      func() time.Time
}

func NewVirtualFetchService(repo *storage.SQLiteRepository, settings SettingsLoader, reader sheets.Reader, logger *log.Logger) *VirtualFetchService {
	return &VirtualFetchService{
		repo:     repo,
		settings: settings,
		reader:   reader,
		logger:   logger.WithComponent(log.ComponentVirtual),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *VirtualFetchService) Fetch(ctx context.Context) (core.FetchResponse, error) {
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return core.FetchResponse{}, errors.Wrap(err, "load settings")
	}
	virtual := cfg.ApplyGlobals().Fetch.Virtual
	if !virtual.Enabled {
		return core.FetchResponse{Code: core.FetchDisabled}, nil
	}
	if s.reader == nil {
		return core.FetchResponse{}, errors.Wrap(core.ErrExportNotConfigured, "no sheets credentials")
	}
	if !s.running.TryLock() {
		return core.FetchResponse{}, errors.Wrap(core.ErrExecutionConflict, "virtual fetch")
	}
	defer s.running.Unlock()

	now := s.now()
	var positions []core.GlobalPosition
	for _, sc := range virtual.Investments {
		recs, err := sheets.Import(ctx, s.reader, sc)
		if err != nil {
			return core.FetchResponse{}, err
		}
		ps, err := sheets.ImportPositions(recs, sc, now)
		if err != nil {
			return core.FetchResponse{}, errors.Wrapf(core.ErrInvalidRequest, "%s: %v", sc.Range, err)
		}
		positions = append(positions, ps...)
	}
	var txs []core.Transaction
	for _, sc := range virtual.Transactions {
		recs, err := sheets.Import(ctx, s.reader, sc)
		if err != nil {
			return core.FetchResponse{}, err
		}
		ts, err := sheets.ImportTransactions(recs, sc)
		if err != nil {
			return core.FetchResponse{}, errors.Wrapf(core.ErrInvalidRequest, "%s: %v", sc.Range, err)
		}
		txs = append(txs, ts...)
	}

	// Entity names to ids, creating what is missing.
	ids := map[string]string{}
	names := lo.Uniq(append(
		lo.Map(positions, func(p core.GlobalPosition, _ int) string { return p.EntityID }),
		lo.Map(txs, func(t core.Transaction, _ int) string { return t.EntityID })...))
	for _, name := range names {
		id, err := s.resolve(ctx, name)
		if err != nil {
			return core.FetchResponse{}, err
		}
		ids[name] = id
	}

	data := core.FetchedData{}
	for _, id := range lo.Uniq(lo.Values(ids)) {
		snapshot, err := s.repo.GetSnapshot(ctx, id)
		if err != nil {
			return core.FetchResponse{}, err
		}
		var (
			features []core.Feature
			pos      *core.GlobalPosition
		)
		for _, p := range positions {
			if ids[p.EntityID] != id {
				continue
			}
			if pos == nil {
				pos = &core.GlobalPosition{EntityID: id, Date: p.Date}
			}
			pos.Assets = append(pos.Assets, p.Assets...)
		}
		if pos != nil {
			snapshot.Position = pos
			features = append(features, core.FeaturePosition)
			data.Positions = append(data.Positions, *pos)
		}
		entityTxs := lo.Filter(txs, func(t core.Transaction, _ int) bool { return ids[t.EntityID] == id })
		if len(entityTxs) > 0 {
			for i := range entityTxs {
				entityTxs[i].EntityID = id
			}
			snapshot.Transactions = entityTxs
			features = append(features, core.FeatureTransactions)
			data.Transactions = append(data.Transactions, entityTxs...)
		}
		if err := s.repo.SaveSnapshot(ctx, id, snapshot); err != nil {
			return core.FetchResponse{}, err
		}
		if err := s.repo.SaveLastFetch(ctx, id, lo.Uniq(features), now); err != nil {
			return core.FetchResponse{}, err
		}
	}

	s.logger.InfoContext(ctx, "Virtual fetch completed",
		"entities", len(ids),
		"positions", len(positions),
		"transactions", len(txs))
	return core.FetchResponse{Code: core.FetchCompleted, Data: &data}, nil
}

// resolve returns the id of the entity called name, creating a virtual one
// when needed.
func (s *VirtualFetchService) resolve(ctx context.Context, name string) (string, error) {
	e, err := s.repo.FindEntityByName(ctx, name)
	if err == nil {
		return e.ID, nil
	}
	if !errors.Is(err, core.ErrEntityNotFound) {
		return "", err
	}
	id, err := s.virtualID(ctx, name)
	if err != nil {
		return "", err
	}
	e = core.Entity{
		ID:       id,
		Name:     name,
		Type:     core.FinancialInstitution,
		IsReal:   false,
		Features: []core.Feature{core.FeaturePosition, core.FeatureTransactions},
	}
	if err := s.repo.InsertEntity(ctx, e); err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "Created virtual entity", log.FieldEntityID, e.ID)
	return e.ID, nil
}

// virtualID builds the id of a new virtual entity from its name. Names that
// slug to nothing, or to an id already taken, get a suffix derived from the
// full name.
func (s *VirtualFetchService) virtualID(ctx context.Context, name string) (string, error) {
	base := "virtual"
	if sl := slug(name); sl != "" {
		base += "-" + sl
		_, err := s.repo.GetEntity(ctx, base)
		if errors.Is(err, core.ErrEntityNotFound) {
			return base, nil
		}
		if err != nil {
			return "", err
		}
	}
	return base + "-" + nameHash(name), nil
}

func slug(name string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

func nameHash(name string) string {
	return strings.ReplaceAll(uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String(), "-", "")[:12]
}
