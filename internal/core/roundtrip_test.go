package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTrip encodes in and decodes it into a fresh value of the same type.
func roundTrip[T any](t *testing.T, in T) T {
	t.Helper()
	b, err := json.Marshal(in)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(b, &out), "decoding %s", b)
	return out
}

func TestEntity_RoundTrip(t *testing.T) {
	for _, e := range sampleEntities().Entities {
		t.Run(e.ID, func(t *testing.T) {
			assert.Equal(t, e, roundTrip(t, e))
		})
	}
}

func TestFetchRequest_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   FetchRequest
	}{
		{"only features", FetchRequest{Features: []Feature{FeaturePosition}}},
		{"nil features", FetchRequest{Entity: Ptr("bank-1")}},
		{"empty features", FetchRequest{Entity: Ptr("bank-1"), Features: []Feature{}}},
		{"every option set", FetchRequest{
			Entity:        Ptr("bank-1"),
			Features:      []Feature{FeaturePosition, FeatureTransactions, FeatureHistoric},
			Code:          Ptr("123456"),
			ProcessID:     Ptr("p-1"),
			AvoidNewLogin: Ptr(true),
			Deep:          Ptr(false),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := roundTrip(t, tt.in)
			assert.Equal(t, tt.in, out)
			assert.Equal(t, tt.in.AvoidsNewLogin(), out.AvoidsNewLogin())
			assert.Equal(t, tt.in.IsDeep(), out.IsDeep())
		})
	}
}

func TestCommodityRegister_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   CommodityRegister
		wire string
	}{
		{
			name: "no cost basis",
			in:   CommodityRegister{Name: "coins", Amount: 2, Unit: TroyOunce, Type: Gold},
			wire: `{"name":"coins","amount":2,"unit":"TROY_OUNCE","type":"GOLD"}`,
		},
		{
			name: "cost basis",
			in: CommodityRegister{
				Name: "bar", Amount: 100.5, Unit: Gram, Type: Silver,
				InitialInvestment: Ptr(80.25), AverageBuyPrice: Ptr(0.8), Currency: Ptr("EUR"),
			},
			wire: `{"name":"bar","amount":100.5,"unit":"GRAM","type":"SILVER",
				"initial_investment":80.25,"average_buy_price":0.8,"currency":"EUR"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.in.Validate())
			b, err := json.Marshal(tt.in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.wire, string(b))
			assert.Equal(t, tt.in, roundTrip(t, tt.in))
		})
	}

	var reg CommodityRegister
	require.NoError(t, json.Unmarshal([]byte(
		`{"name":"coins","amount":1,"unit":"GRAM","type":"GOLD","initial_investment":null,"currency":null}`), &reg))
	assert.Nil(t, reg.InitialInvestment)
	assert.Nil(t, reg.Currency)
}

func TestSettings_JSONRoundTrip(t *testing.T) {
	full := DefaultSettings()
	full.Export.Sheets.Globals.SpreadsheetID = "sheet-1"
	full.Export.Sheets.Position = []SheetConfig{{
		Range:          "Positions",
		SpreadsheetID:  Ptr("sheet-2"),
		DatetimeFormat: Ptr("%Y-%m-%d %H:%M"),
		Data:           StringList{"bank", "crypto"},
		Filters:        []FilterConfig{{Field: "entity", Values: StringList{"bank-1"}}},
	}}
	full.Export.Sheets.Transactions = []SheetConfig{{Range: "Tx", DateFormat: Ptr("%d/%m/%Y")}}
	full.Fetch.UpdateCooldown = 120
	full.Fetch.Virtual = VirtualSettings{
		Enabled:      true,
		Globals:      GlobalsConfig{SpreadsheetID: "virtual", DateFormat: "%d/%m/%Y"},
		Investments:  []SheetConfig{{Range: "Investments"}},
		Transactions: []SheetConfig{},
	}

	tests := []struct {
		name string
		in   Settings
	}{
		{"defaults", DefaultSettings()},
		{"configured", full},
		{"zero", Settings{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.in, roundTrip(t, tt.in))
		})
	}
}

func TestDetails_RoundTrip(t *testing.T) {
	logins := []LoginResponse{
		{Code: LoginCreated},
		{Code: LoginCreated, Details: CredentialsEcho{Credentials: map[string]string{"token": "t"}}},
		{Code: LoginCreated, Details: CredentialsEcho{Credentials: map[string]string{}}},
		{Code: LoginManual, Details: CredentialsEcho{Credentials: map[string]string{}}},
		{Code: LoginCodeRequested, ProcessID: Ptr("p"), Details: ProcessRef{ProcessID: "p"}},
		{Code: LoginUnexpectedError},
	}
	for _, in := range logins {
		t.Run("login "+string(in.Code), func(t *testing.T) {
			assert.Equal(t, in, roundTrip(t, in))
		})
	}

	fetches := []FetchResponse{
		{Code: FetchCooldown, Details: Countdown{Seconds: 0}},
		{Code: FetchManualLogin, Details: CredentialsEcho{Credentials: map[string]string{}}},
		{Code: FetchCodeRequested, Details: ProcessRef{ProcessID: "p"}},
		{Code: FetchNotLogged},
	}
	for _, in := range fetches {
		t.Run("fetch "+string(in.Code), func(t *testing.T) {
			assert.Equal(t, in, roundTrip(t, in))
		})
	}
}

func TestDetails_EmptyCredentialsOnTheWire(t *testing.T) {
	b, err := json.Marshal(LoginResponse{Code: LoginManual, Details: CredentialsEcho{Credentials: map[string]string{}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"MANUAL_LOGIN","details":{"credentials":{}}}`, string(b))

	var out LoginResponse
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, CredentialsEcho{Credentials: map[string]string{}}, out.Details)

	for _, wire := range []string{
		`{"code":"MANUAL_LOGIN","details":{}}`,
		`{"code":"MANUAL_LOGIN","details":{"credentials":null}}`,
	} {
		out = LoginResponse{}
		require.NoError(t, json.Unmarshal([]byte(wire), &out))
		assert.Nil(t, out.Details, wire)
	}

	_, err = json.Marshal(LoginResponse{Code: LoginManual, Details: CredentialsEcho{}})
	assert.ErrorIs(t, err, ErrInvalidDetails)
}
