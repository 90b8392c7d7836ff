package services

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"finanze/internal/core"
	"finanze/internal/log"
	"finanze/internal/storage"
)

// CommodityService keeps the manually entered commodity registers and
// values them at market price.
type CommodityService struct {
	repo     *storage.SQLiteRepository
	rates    *RatesService
	currency string
	logger   *log.Logger
	now      func() time.Time
}

// NewCommodityService values registers without a currency in
// defaultCurrency.
func NewCommodityService(repo *storage.SQLiteRepository, rates *RatesService, defaultCurrency string, logger *log.Logger) *CommodityService {
	return &CommodityService{
		repo:     repo,
		rates:    rates,
		currency: defaultCurrency,
		logger:   logger.WithComponent(log.ComponentFetch),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Save replaces every register, in request order, then stores their market
// value as the position of the commodity entity. A valuation failure keeps
// the registers and leaves the previous position in place.
func (s *CommodityService) Save(ctx context.Context, req core.SaveCommodityRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := s.repo.ReplaceCommodities(ctx, req.Registers); err != nil {
		return err
	}

	entities, err := s.repo.ListEntities(ctx)
	if err != nil {
		return err
	}
	entity, ok := lo.Find(entities, func(e core.Entity) bool { return e.Type == core.Commodity })
	if !ok {
		return errors.Wrap(core.ErrEntityNotFound, "commodity entity")
	}

	position, err := s.value(ctx, entity.ID, req.Registers)
	if err != nil {
		s.logger.WarnContext(ctx, "Commodity valuation failed, registers saved without position",
			log.FieldEntityID, entity.ID,
			log.FieldError, err)
		return nil
	}

	snapshot, err := s.repo.GetSnapshot(ctx, entity.ID)
	if err != nil {
		return err
	}
	snapshot.Position = &position
	if err := s.repo.SaveSnapshot(ctx, entity.ID, snapshot); err != nil {
		return err
	}
	if err := s.repo.SaveLastFetch(ctx, entity.ID, []core.Feature{core.FeaturePosition}, position.Date); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Commodities saved",
		log.FieldEntityID, entity.ID,
		"registers", len(req.Registers))
	return nil
}

func (s *CommodityService) value(ctx context.Context, entityID string, regs []core.CommodityRegister) (core.GlobalPosition, error) {
	position := core.GlobalPosition{EntityID: entityID, Date: s.now(), Assets: []core.Asset{}}
	if len(regs) == 0 {
		return position, nil
	}
	fx, err := s.rates.Get(ctx)
	if err != nil {
		return core.GlobalPosition{}, err
	}

	for _, reg := range regs {
		price, err := s.rates.MetalPrice(ctx, reg.Type)
		if err != nil {
			return core.GlobalPosition{}, errors.Wrapf(err, "price of %s", reg.Type)
		}
		target := s.currency
		if reg.Currency != nil && *reg.Currency != "" {
			target = *reg.Currency
		}
		value, err := fx.Convert(reg.Quantity(core.TroyOunce).Mul(price.Price), price.Currency, target)
		if err != nil {
			return core.GlobalPosition{}, err
		}
		amount, _ := value.Round(2).Float64()
		position.Assets = append(position.Assets, core.Asset{
			Name:     reg.Name,
			Type:     string(reg.Type),
			Amount:   amount,
			Currency: target,
		})
	}
	return position, nil
}
