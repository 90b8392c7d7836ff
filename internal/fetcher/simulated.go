package fetcher

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"finanze/internal/core"
)

// TwoFactorCode is the only code the simulated two-factor flow accepts.
const TwoFactorCode = "123456"

const sessionTTL = time.Hour

type SimulatedConfig struct {
	EntityID string
	// Expected credential values. Fields not listed only need to be present.
	Expected  map[string]string
	Features  []core.Feature
	TwoFactor bool
	// Manual names the credential delivered by an external login. When set,
	// logins without it answer MANUAL_LOGIN.
	Manual string
}

// Simulated is a deterministic in-process source for demo entities.
type Simulated struct {
	cfg SimulatedConfig
	now func() time.Time
}

func NewSimulated(cfg SimulatedConfig) *Simulated {
	return &Simulated{cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Simulated) Login(ctx context.Context, p LoginParams) LoginResult {
	if err := ctx.Err(); err != nil {
		return LoginResult{Code: core.LoginUnexpectedError, Message: err.Error()}
	}
	if p.Session != nil && p.Session["token"] != "" && p.Code == nil {
		return LoginResult{Code: core.LoginResumed}
	}

	if s.cfg.Manual != "" {
		if p.Credentials[s.cfg.Manual] == "" {
			return LoginResult{Code: core.LoginManual}
		}
		return s.created()
	}

	for field, want := range s.cfg.Expected {
		if p.Credentials[field] != want {
			return LoginResult{Code: core.LoginInvalidCredentials}
		}
	}

	if s.cfg.TwoFactor {
		if p.Code == nil {
			if p.AvoidNewLogin {
				return LoginResult{Code: core.LoginNotLogged}
			}
			return LoginResult{Code: core.LoginCodeRequested}
		}
		if *p.Code != TwoFactorCode {
			return LoginResult{Code: core.LoginInvalidCode}
		}
	}
	return s.created()
}

func (s *Simulated) created() LoginResult {
	return LoginResult{
		Code:       core.LoginCreated,
		Session:    map[string]string{"token": uuid.NewString()},
		SessionTTL: sessionTTL,
	}
}

func (s *Simulated) Fetch(ctx context.Context, feature core.Feature, opts FetchOptions) (core.FetchedData, error) {
	if err := ctx.Err(); err != nil {
		return core.FetchedData{}, err
	}
	if !lo.Contains(s.cfg.Features, feature) {
		return core.FetchedData{}, errors.Wrapf(core.ErrFeatureNotSupported, "%s on %s", feature, s.cfg.EntityID)
	}

	now := s.now()
	seed := float64(seedOf(s.cfg.EntityID) % 1000)
	id := s.cfg.EntityID

	switch feature {
	case core.FeaturePosition:
		return core.FetchedData{Position: &core.GlobalPosition{
			EntityID: id,
			Date:     now,
			Assets: []core.Asset{
				{Name: "Current account", Type: "ACCOUNT", Amount: 1000 + seed, Currency: "EUR"},
				{Name: "World index fund", ISIN: "IE00B4L5Y983", Type: "FUND", Amount: 5000 + seed*3, Currency: "EUR"},
			},
		}}, nil

	case core.FeatureAutoContributions:
		return core.FetchedData{AutoContributions: []core.AutoContribution{{
			ID: id + "-ac-1", EntityID: id, Alias: "Monthly index", Target: "IE00B4L5Y983",
			Amount: 150, Currency: "EUR", Frequency: "MONTHLY", Active: true,
		}}}, nil

	case core.FeatureTransactions:
		months := 1
		if opts.Deep {
			months = 12
		}
		txs := make([]core.Transaction, 0, months)
		for i := 0; i < months; i++ {
			date := time.Date(now.Year(), now.Month()-time.Month(i), 1, 9, 0, 0, 0, time.UTC)
			txs = append(txs, core.Transaction{
				ID: fmt.Sprintf("%s-tx-%s", id, date.Format("200601")), EntityID: id,
				Ref: fmt.Sprintf("REF%s", date.Format("200601")), Name: "World index fund",
				Type: "BUY", Amount: 150, Currency: "EUR", Date: date, IsReal: true,
			})
		}
		return core.FetchedData{Transactions: txs}, nil

	case core.FeatureHistoric:
		return core.FetchedData{Historic: []core.HistoricEntry{{
			ID: id + "-h-1", EntityID: id, Name: "Closed deposit",
			Invested: 2000, Returned: 2060 + seed/10, Currency: "EUR", Date: now.AddDate(-1, 0, 0),
		}}}, nil
	}
	return core.FetchedData{}, errors.Wrapf(core.ErrFeatureNotSupported, "%s", feature)
}

func seedOf(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}
