package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings_ApplyGlobals(t *testing.T) {
	s := DefaultSettings()
	s.Export.Sheets.Globals = GlobalsConfig{SpreadsheetID: "main", DatetimeFormat: "dt", DateFormat: "d"}
	s.Export.Sheets.Position = []SheetConfig{
		{Range: "Positions"},
		{Range: "Other", SpreadsheetID: Ptr("secondary"), DateFormat: Ptr("custom")},
	}

	got := s.ApplyGlobals().Export.Sheets.Position
	require.Len(t, got, 2)
	assert.Equal(t, "main", *got[0].SpreadsheetID)
	assert.Equal(t, "dt", *got[0].DatetimeFormat)
	assert.Equal(t, "secondary", *got[1].SpreadsheetID)
	assert.Equal(t, "custom", *got[1].DateFormat)

	// the receiver is left untouched
	assert.Nil(t, s.Export.Sheets.Position[0].SpreadsheetID)
}

func TestSettings_Validate(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())

	s.Fetch.Virtual.Enabled = true
	assert.ErrorIs(t, s.Validate(), ErrInvalidRequest)

	s = DefaultSettings()
	s.Export.Sheets.Historic = []SheetConfig{{Range: " "}}
	assert.ErrorIs(t, s.Validate(), ErrInvalidRequest)
}

func TestSettings_Cooldown(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 60, s.Cooldown())
	s.Fetch.UpdateCooldown = 0
	assert.Equal(t, DefaultUpdateCooldown, s.Cooldown())
	s.Fetch.UpdateCooldown = 5
	assert.Equal(t, 5, s.Cooldown())
}

func TestStringList_JSON(t *testing.T) {
	var c SheetConfig
	require.NoError(t, json.Unmarshal([]byte(`{"range":"A","data":"loans","filters":[{"field":"type","values":["BUY","SELL"]}]}`), &c))
	assert.Equal(t, StringList{"loans"}, c.Data)
	assert.True(t, c.Filters[0].Values.Contains("SELL"))

	require.NoError(t, json.Unmarshal([]byte(`{"range":"A","data":["a","b"]}`), &c))
	assert.Equal(t, StringList{"a", "b"}, c.Data)

	assert.Error(t, json.Unmarshal([]byte(`{"range":"A","data":3}`), &c))
}

func TestCommodityRegister_Validate(t *testing.T) {
	tests := []struct {
		name    string
		reg     CommodityRegister
		wantErr error
	}{
		{"valid", CommodityRegister{Name: "bar", Amount: 1, Unit: TroyOunce, Type: Gold}, nil},
		{"with cost", CommodityRegister{Name: "bar", Amount: 1, Unit: Gram, Type: Silver, InitialInvestment: Ptr(10.0), Currency: Ptr("EUR")}, nil},
		{"zero amount", CommodityRegister{Name: "bar", Amount: 0, Unit: Gram, Type: Gold}, ErrInvalidRegister},
		{"bad unit", CommodityRegister{Name: "bar", Amount: 1, Unit: "KILO", Type: Gold}, ErrUnknownTag},
		{"cost without currency", CommodityRegister{Name: "bar", Amount: 1, Unit: Gram, Type: Gold, AverageBuyPrice: Ptr(2.0)}, ErrInvalidRegister},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCommodityRegister_Quantity(t *testing.T) {
	r := CommodityRegister{Amount: 2, Unit: TroyOunce}
	assert.True(t, r.Quantity(Gram).Equal(decimal.RequireFromString("62.2069536")))
	assert.True(t, r.Quantity(TroyOunce).Equal(decimal.NewFromInt(2)))
}

func TestExchangeRates_Convert(t *testing.T) {
	rates := ExchangeRates{"EUR": {"USD": 1.25}}

	got, err := rates.Convert(decimal.NewFromInt(10), "EUR", "USD")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("12.5")))

	got, err = rates.Convert(decimal.RequireFromString("12.5"), "USD", "EUR")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(10)))

	_, err = rates.Convert(decimal.NewFromInt(1), "EUR", "GBP")
	assert.ErrorIs(t, err, ErrRateNotFound)
}
