package services

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"finanze/internal/core"
	"finanze/internal/fetcher"
	"finanze/internal/log"
	"finanze/internal/storage"
)

// FetchService pulls data from one entity: it checks the cooldown, logs in
// with the stored credentials and fetches the requested features in
// parallel.
type FetchService struct {
	repo     *storage.SQLiteRepository
	creds    CredentialStore
	fetchers *fetcher.Registry
	settings SettingsLoader
	pending  *pendingLogins
	locks    *keyedLock
	logger   *log.Logger
	now      func() time.Time
}

// NewFetchService shares the pending code attempts of login so a code
// requested during a fetch can be completed by either flow.
func NewFetchService(repo *storage.SQLiteRepository, creds CredentialStore, fetchers *fetcher.Registry, settings SettingsLoader, login *LoginService, logger *log.Logger) *FetchService {
	return &FetchService{
		repo:     repo,
		creds:    creds,
		fetchers: fetchers,
		settings: settings,
		pending:  login.pending,
		locks:    newKeyedLock(),
		logger:   logger.WithComponent(log.ComponentFetch),
		now:      login.now,
	}
}

// Fetch returns a result code for every expected outcome. Errors are
// reserved for invalid requests, a concurrent fetch of the same entity
// (core.ErrExecutionConflict) and infrastructure failures.
func (s *FetchService) Fetch(ctx context.Context, req core.FetchRequest) (core.FetchResponse, error) {
	if err := req.Validate(); err != nil {
		return core.FetchResponse{}, err
	}
	if req.Entity == nil {
		return core.FetchResponse{}, errors.Wrap(core.ErrInvalidRequest, "entity is required")
	}
	features := lo.Uniq(req.Features)

	entity, err := s.repo.GetEntity(ctx, *req.Entity)
	if errors.Is(err, core.ErrEntityNotFound) {
		return core.FetchResponse{Code: core.FetchEntityNotFound}, nil
	}
	if err != nil {
		return core.FetchResponse{}, err
	}
	if len(entity.Unsupported(features)) > 0 {
		return core.FetchResponse{Code: core.FetchFeatureNotSupported}, nil
	}
	f, ok := s.fetchers.Get(entity.ID)
	if !ok {
		return core.FetchResponse{Code: core.FetchFeatureNotSupported}, nil
	}

	if !s.locks.TryLock(entity.ID) {
		return core.FetchResponse{}, errors.Wrapf(core.ErrExecutionConflict, "fetch of %s", entity.ID)
	}
	defer s.locks.Unlock(entity.ID)

	logger := s.logger.With(log.FieldEntityID, entity.ID, log.FieldFeatures, features)

	if remaining, err := s.cooldown(ctx, entity.ID, features); err != nil {
		return core.FetchResponse{}, err
	} else if remaining > 0 {
		logger.InfoContext(ctx, "Fetch in cooldown", "remaining_seconds", remaining)
		return core.FetchResponse{Code: core.FetchCooldown, Details: core.Countdown{Seconds: remaining}}, nil
	}

	opts := fetcher.FetchOptions{Deep: req.IsDeep()}
	if entity.Type == core.CryptoWallet {
		wallets, err := s.repo.ListWallets(ctx)
		if err != nil {
			return core.FetchResponse{}, err
		}
		opts.Wallets = lo.Filter(wallets, func(w core.CryptoWalletConnection, _ int) bool {
			return w.EntityID == entity.ID
		})
	} else if resp, done, err := s.login(ctx, entity, f, req); err != nil || done {
		if done {
			logger.InfoContext(ctx, "Fetch stopped at login", log.FieldResultCode, resp.Code)
		}
		return resp, err
	}

	data, err := s.fetchFeatures(ctx, f, features, opts)
	if errors.Is(err, core.ErrFeatureNotSupported) {
		return core.FetchResponse{Code: core.FetchFeatureNotSupported}, nil
	}
	if err != nil {
		logger.ErrorContext(ctx, "Fetch failed", log.FieldError, err)
		return core.FetchResponse{}, errors.Wrapf(err, "fetch %s", entity.ID)
	}

	if err := s.store(ctx, entity.ID, features, data); err != nil {
		return core.FetchResponse{}, err
	}
	logger.InfoContext(ctx, "Fetch completed", log.FieldResultCode, core.FetchCompleted)
	return core.FetchResponse{Code: core.FetchCompleted, Data: &data}, nil
}

// cooldown returns the whole seconds left before any of features may be
// fetched again, 0 when none is cooling down.
func (s *FetchService) cooldown(ctx context.Context, entityID string, features []core.Feature) (int, error) {
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "load settings")
	}
	last, err := s.repo.EntityLastFetches(ctx, entityID)
	if err != nil {
		return 0, err
	}
	period := time.Duration(cfg.Cooldown()) * time.Second
	now := s.now()

	remaining := time.Duration(0)
	for _, f := range features {
		at, ok := last[f]
		if !ok {
			continue
		}
		if left := period - now.Sub(at); left > remaining {
			remaining = left
		}
	}
	return int(math.Ceil(remaining.Seconds())), nil
}

// login authenticates with the stored credentials. done is true when the
// flow must stop with resp.
func (s *FetchService) login(ctx context.Context, entity core.Entity, f fetcher.EntityFetcher, req core.FetchRequest) (resp core.FetchResponse, done bool, err error) {
	creds, ok, err := s.creds.GetCredentials(ctx, entity.ID)
	if err != nil {
		return core.FetchResponse{}, true, err
	}

	if req.Code != nil {
		if req.ProcessID == nil {
			return core.FetchResponse{}, true, errors.Wrap(core.ErrInvalidRequest, "code requires processId")
		}
		attempt, found := s.pending.lookup(*req.ProcessID, entity.ID)
		if !found {
			return core.FetchResponse{Code: core.FetchInvalidCode}, true, nil
		}
		creds, ok = mergeCredentials(attempt.credentials, creds), true
	}
	if !ok {
		return core.FetchResponse{Code: core.FetchNoCredentialsAvailable}, true, nil
	}

	params := fetcher.LoginParams{
		Credentials:   creds,
		Code:          req.Code,
		ProcessID:     req.ProcessID,
		AvoidNewLogin: req.AvoidsNewLogin(),
	}
	session, found, err := s.repo.GetSession(ctx, entity.ID)
	if err != nil {
		return core.FetchResponse{}, true, err
	}
	if found && session.Valid(s.now()) {
		params.Session = session.Payload
	}

	result := f.Login(ctx, params)
	switch result.Code {
	case core.LoginCreated, core.LoginResumed:
		if req.ProcessID != nil {
			s.pending.finish(*req.ProcessID)
		}
		if result.Session != nil {
			now := s.now()
			ns := storage.Session{Payload: result.Session, CreatedAt: now}
			if result.SessionTTL > 0 {
				ns.ExpiresAt = lo.ToPtr(now.Add(result.SessionTTL))
			}
			if err := s.repo.SaveSession(ctx, entity.ID, ns); err != nil {
				return core.FetchResponse{}, true, errors.Wrap(err, "save session")
			}
		}
		return core.FetchResponse{}, false, nil

	case core.LoginCodeRequested:
		pid := s.pending.start(entity.ID, creds)
		return core.FetchResponse{Code: core.FetchCodeRequested, Details: core.ProcessRef{ProcessID: pid}}, true, nil

	case core.LoginManual:
		return core.FetchResponse{Code: core.FetchManualLogin, Details: result.Details}, true, nil
	}

	if result.Code == core.LoginRequired || result.Code == core.LoginInvalidCredentials {
		// Stored session is no longer usable.
		if err := s.repo.DeleteSession(ctx, entity.ID); err != nil {
			s.logger.WarnContext(ctx, "Failed to drop session", log.FieldEntityID, entity.ID, log.FieldError, err)
		}
	}
	return core.FetchResponse{Code: core.FetchCodeFromLogin(result.Code)}, true, nil
}

func (s *FetchService) fetchFeatures(ctx context.Context, f fetcher.EntityFetcher, features []core.Feature, opts fetcher.FetchOptions) (core.FetchedData, error) {
	var (
		mu   sync.Mutex
		data core.FetchedData
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, feature := range features {
		feature := feature
		g.Go(func() error {
			part, err := f.Fetch(gctx, feature, opts)
			if err != nil {
				return err
			}
			mu.Lock()
			data.Merge(part)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.FetchedData{}, err
	}
	return data, nil
}

// store replaces the fetched features in the entity snapshot and records the
// fetch time.
func (s *FetchService) store(ctx context.Context, entityID string, features []core.Feature, data core.FetchedData) error {
	snapshot, err := s.repo.GetSnapshot(ctx, entityID)
	if err != nil {
		return err
	}
	snapshot = replaceFeatures(snapshot, data, features)
	if err := s.repo.SaveSnapshot(ctx, entityID, snapshot); err != nil {
		return err
	}
	return s.repo.SaveLastFetch(ctx, entityID, features, s.now())
}

func replaceFeatures(old, fresh core.FetchedData, features []core.Feature) core.FetchedData {
	for _, f := range features {
		switch f {
		case core.FeaturePosition:
			old.Position = fresh.Position
		case core.FeatureAutoContributions:
			old.AutoContributions = fresh.AutoContributions
		case core.FeatureTransactions:
			old.Transactions = fresh.Transactions
		case core.FeatureHistoric:
			old.Historic = fresh.Historic
		}
	}
	return old
}
