// Package rates fetches currency exchange rates and precious metal prices
// from public HTTP APIs.
package rates

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/shopspring/decimal"

	"finanze/internal/core"
)

var metalSymbols = map[core.CommodityType]string{
	core.Gold:      "XAU",
	core.Silver:    "XAG",
	core.Platinum:  "XPT",
	core.Palladium: "XPD",
}

// MetalPrice is the spot price of one troy ounce.
type MetalPrice struct {
	Type     core.CommodityType
	Price    decimal.Decimal
	Currency string
}

type Client struct {
	client    *req.Client
	ratesURL  string
	metalsURL string
}

func NewClient(cl *req.Client, ratesURL, metalsURL string) *Client {
	return &Client{
		client:    cl,
		ratesURL:  strings.TrimRight(ratesURL, "/"),
		metalsURL: strings.TrimRight(metalsURL, "/"),
	}
}

// NewHTTPClient returns the req client used in production. Network errors,
// 429 and 5xx responses are retried twice with backoff.
func NewHTTPClient() *req.Client {
	return req.C().
		SetTimeout(10 * time.Second).
		SetUserAgent("finanze").
		SetCommonRetryCount(2).
		SetCommonRetryBackoffInterval(100*time.Millisecond, time.Second).
		SetCommonRetryCondition(retryable)
}

func retryable(resp *req.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
}

type latestResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// Latest returns the rates from base to every other currency the API knows.
func (c *Client) Latest(ctx context.Context, base string) (map[string]float64, error) {
	var out latestResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("from", base).
		SetSuccessResult(&out).
		Get(c.ratesURL + "/latest")
	if err != nil {
		return nil, fmt.Errorf("fetch rates for %s: %w", base, err)
	}
	if resp.IsErrorState() {
		return nil, fmt.Errorf("unexpected status code: %v and message %v", resp.StatusCode, resp.String())
	}
	return out.Rates, nil
}

type metalResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// MetalPrice returns the USD spot price of one troy ounce of the metal.
func (c *Client) MetalPrice(ctx context.Context, t core.CommodityType) (MetalPrice, error) {
	symbol, ok := metalSymbols[t]
	if !ok {
		return MetalPrice{}, fmt.Errorf("metal %q: %w", t, core.ErrUnknownTag)
	}

	var out metalResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetSuccessResult(&out).
		Get(c.metalsURL + "/price/{symbol}")
	if err != nil {
		return MetalPrice{}, fmt.Errorf("fetch %s price: %w", symbol, err)
	}
	if resp.IsErrorState() {
		return MetalPrice{}, fmt.Errorf("unexpected status code: %v and message %v", resp.StatusCode, resp.String())
	}
	return MetalPrice{Type: t, Price: decimal.NewFromFloat(out.Price), Currency: "USD"}, nil
}
