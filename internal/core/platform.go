package core

import (
	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

type PlatformInfo struct {
	Type            PlatformType `json:"type"`
	Arch            *string      `json:"arch,omitempty"`
	OSVersion       *string      `json:"osVersion,omitempty"`
	ElectronVersion *string      `json:"electronVersion,omitempty"`
}

// ExternalLoginRequest is the opaque payload forwarded to the host when an
// entity needs an out of band login.
type ExternalLoginRequest map[string]any

type ExternalLoginAck struct {
	Success bool `json:"success"`
}

type ExternalLoginResult struct {
	Success     bool              `json:"success"`
	Credentials map[string]string `json:"credentials"`
}

// ExchangeRates maps base currency to target currency to rate.
type ExchangeRates map[string]map[string]float64

// Rate returns the rate from base to target. Identity conversion is always 1.
func (r ExchangeRates) Rate(base, target string) (decimal.Decimal, error) {
	if base == target {
		return decimal.NewFromInt(1), nil
	}
	if v, ok := r[base][target]; ok {
		return decimal.NewFromFloat(v), nil
	}
	if v, ok := r[target][base]; ok && v != 0 {
		return decimal.NewFromInt(1).Div(decimal.NewFromFloat(v)), nil
	}
	return decimal.Zero, errors.Wrapf(ErrRateNotFound, "%s->%s", base, target)
}

// Convert converts amount expressed in base into target.
func (r ExchangeRates) Convert(amount decimal.Decimal, base, target string) (decimal.Decimal, error) {
	rate, err := r.Rate(base, target)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}
