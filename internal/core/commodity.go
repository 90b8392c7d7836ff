package core

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

// gramsPerTroyOunce is the conversion factor between the two weight units.
var gramsPerTroyOunce = decimal.RequireFromString("31.1034768")

type (
	// CommodityRegister is one holding lot. Cost basis fields are optional
	// and may arrive as null.
	CommodityRegister struct {
		Name              string        `json:"name"`
		Amount            float64       `json:"amount"`
		Unit              WeightUnit    `json:"unit"`
		Type              CommodityType `json:"type"`
		InitialInvestment *float64      `json:"initial_investment,omitempty"`
		AverageBuyPrice   *float64      `json:"average_buy_price,omitempty"`
		Currency          *string       `json:"currency,omitempty"`
	}

	SaveCommodityRequest struct {
		Registers []CommodityRegister `json:"registers"`
	}
)

func (c CommodityRegister) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.Wrap(ErrInvalidRegister, "name is empty")
	}
	if c.Amount <= 0 {
		return errors.Wrapf(ErrInvalidRegister, "%s: amount must be positive", c.Name)
	}
	if !c.Unit.Valid() {
		return errors.Wrapf(ErrUnknownTag, "weight unit %q", string(c.Unit))
	}
	if !c.Type.Valid() {
		return errors.Wrapf(ErrUnknownTag, "commodity type %q", string(c.Type))
	}
	hasCost := c.InitialInvestment != nil || c.AverageBuyPrice != nil
	if hasCost && (c.Currency == nil || strings.TrimSpace(*c.Currency) == "") {
		return errors.Wrapf(ErrInvalidRegister, "%s: cost basis without currency", c.Name)
	}
	return nil
}

// Quantity returns the register amount converted to unit.
func (c CommodityRegister) Quantity(unit WeightUnit) decimal.Decimal {
	amount := decimal.NewFromFloat(c.Amount)
	if c.Unit == unit {
		return amount
	}
	if c.Unit == TroyOunce && unit == Gram {
		return amount.Mul(gramsPerTroyOunce)
	}
	return amount.Div(gramsPerTroyOunce)
}

func (r SaveCommodityRequest) Validate() error {
	for i, reg := range r.Registers {
		if err := reg.Validate(); err != nil {
			return errors.Wrapf(err, "register %d", i)
		}
	}
	return nil
}
