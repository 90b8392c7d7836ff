package services

import (
	"context"
	"time"

	"github.com/samber/lo"

	"finanze/internal/core"
	"finanze/internal/log"
	"finanze/internal/storage"
)

type EntityService struct {
	repo   *storage.SQLiteRepository
	creds  CredentialStore
	logger *log.Logger
	now    func() time.Time
}

func NewEntityService(repo *storage.SQLiteRepository, creds CredentialStore, logger *log.Logger) *EntityService {
	return &EntityService{
		repo:   repo,
		creds:  creds,
		logger: logger.WithComponent(log.ComponentFetch),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns the catalog with the connection status of every financial
// institution, the wallets of crypto entities and the last fetch times.
func (s *EntityService) List(ctx context.Context) (core.EntitiesResponse, error) {
	entities, err := s.repo.ListEntities(ctx)
	if err != nil {
		return core.EntitiesResponse{}, err
	}
	lastFetches, err := s.repo.LastFetches(ctx)
	if err != nil {
		return core.EntitiesResponse{}, err
	}
	wallets, err := s.repo.ListWallets(ctx)
	if err != nil {
		return core.EntitiesResponse{}, err
	}
	byEntity := lo.GroupBy(wallets, func(w core.CryptoWalletConnection) string { return w.EntityID })

	for i := range entities {
		e := &entities[i]

		e.LastFetch = lastFetches[e.ID]
		if e.LastFetch == nil {
			e.LastFetch = map[core.Feature]time.Time{}
		}

		switch e.Type {
		case core.FinancialInstitution:
			status, err := s.status(ctx, e.ID)
			if err != nil {
				return core.EntitiesResponse{}, err
			}
			e.Status = &status
		case core.CryptoWallet:
			e.Connected = byEntity[e.ID]
			if e.Connected == nil {
				e.Connected = []core.CryptoWalletConnection{}
			}
		}
	}

	resp := core.EntitiesResponse{Entities: entities}
	if err := resp.Validate(); err != nil {
		return core.EntitiesResponse{}, err
	}
	return resp, nil
}

func (s *EntityService) status(ctx context.Context, entityID string) (core.EntityStatus, error) {
	_, ok, err := s.creds.GetCredentials(ctx, entityID)
	if err != nil {
		return "", err
	}
	if !ok {
		return core.EntityDisconnected, nil
	}
	session, found, err := s.repo.GetSession(ctx, entityID)
	if err != nil {
		return "", err
	}
	if found && !session.Valid(s.now()) {
		return core.EntityRequiresLogin, nil
	}
	return core.EntityConnected, nil
}
