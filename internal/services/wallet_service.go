package services

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"finanze/internal/core"
	"finanze/internal/log"
	"finanze/internal/storage"
)

type WalletService struct {
	repo   *storage.SQLiteRepository
	logger *log.Logger
}

func NewWalletService(repo *storage.SQLiteRepository, logger *log.Logger) *WalletService {
	return &WalletService{repo: repo, logger: logger.WithComponent(log.ComponentFetch)}
}

// Create connects a wallet address to a crypto entity. Addresses are unique
// per entity.
func (s *WalletService) Create(ctx context.Context, req core.CreateCryptoWalletRequest) (core.CryptoWalletConnection, error) {
	if err := req.Validate(); err != nil {
		return core.CryptoWalletConnection{}, err
	}
	entity, err := s.repo.GetEntity(ctx, req.EntityID)
	if err != nil {
		return core.CryptoWalletConnection{}, err
	}
	if entity.Type != core.CryptoWallet {
		return core.CryptoWalletConnection{}, errors.Wrapf(core.ErrNotCryptoEntity, "%s", entity.ID)
	}

	w := core.CryptoWalletConnection{
		ID:       uuid.NewString(),
		EntityID: entity.ID,
		Address:  strings.TrimSpace(req.Address),
		Name:     strings.TrimSpace(req.Name),
	}
	if err := s.repo.InsertWallet(ctx, w); err != nil {
		return core.CryptoWalletConnection{}, err
	}
	s.logger.InfoContext(ctx, "Wallet connected",
		log.FieldEntityID, w.EntityID,
		log.FieldWalletID, w.ID,
		log.FieldOperation, log.OpCreate)
	return w, nil
}

func (s *WalletService) Update(ctx context.Context, req core.UpdateCryptoWalletConnectionRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := s.repo.RenameWallet(ctx, req.ID, strings.TrimSpace(req.Name)); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Wallet renamed", log.FieldWalletID, req.ID, log.FieldOperation, log.OpUpdate)
	return nil
}

func (s *WalletService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.Wrap(core.ErrInvalidRequest, "id is empty")
	}
	if err := s.repo.DeleteWallet(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Wallet removed", log.FieldWalletID, id, log.FieldOperation, log.OpDelete)
	return nil
}
