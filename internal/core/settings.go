package core

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

// DefaultUpdateCooldown is the cooldown, in seconds, applied between two
// fetches of the same entity feature when settings do not set one.
const DefaultUpdateCooldown = 60

type (
	Settings struct {
		Export ExportSettings `json:"export" yaml:"export"`
		Fetch  FetchSettings  `json:"fetch" yaml:"fetch"`
	}

	ExportSettings struct {
		Sheets SheetsSettings `json:"sheets" yaml:"sheets"`
	}

	SheetsSettings struct {
		Globals       GlobalsConfig `json:"globals" yaml:"globals"`
		Position      []SheetConfig `json:"position" yaml:"position"`
		Contributions []SheetConfig `json:"contributions" yaml:"contributions"`
		Transactions  []SheetConfig `json:"transactions" yaml:"transactions"`
		Historic      []SheetConfig `json:"historic" yaml:"historic"`
	}

	FetchSettings struct {
		UpdateCooldown int             `json:"updateCooldown" yaml:"updateCooldown"`
		Virtual        VirtualSettings `json:"virtual" yaml:"virtual"`
	}

	VirtualSettings struct {
		Enabled      bool          `json:"enabled" yaml:"enabled"`
		Globals      GlobalsConfig `json:"globals" yaml:"globals"`
		Investments  []SheetConfig `json:"investments" yaml:"investments"`
		Transactions []SheetConfig `json:"transactions" yaml:"transactions"`
	}

	GlobalsConfig struct {
		SpreadsheetID  string `json:"spreadsheetId" yaml:"spreadsheetId"`
		DatetimeFormat string `json:"datetimeFormat" yaml:"datetimeFormat"`
		DateFormat     string `json:"dateFormat" yaml:"dateFormat"`
	}

	// SheetConfig targets one sheet range. Unset fields inherit from the
	// section globals.
	SheetConfig struct {
		Range          string         `json:"range" yaml:"range"`
		SpreadsheetID  *string        `json:"spreadsheetId,omitempty" yaml:"spreadsheetId,omitempty"`
		DatetimeFormat *string        `json:"datetimeFormat,omitempty" yaml:"datetimeFormat,omitempty"`
		DateFormat     *string        `json:"dateFormat,omitempty" yaml:"dateFormat,omitempty"`
		Data           StringList     `json:"data,omitempty" yaml:"data,omitempty"`
		Filters        []FilterConfig `json:"filters,omitempty" yaml:"filters,omitempty"`
	}

	FilterConfig struct {
		Field  string     `json:"field" yaml:"field"`
		Values StringList `json:"values" yaml:"values"`
	}
)

// StringList accepts either a single string or a list of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*l = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return errors.Wrap(err, "expected string or list of strings")
	}
	*l = many
	return nil
}

func (l *StringList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var one string
	if err := unmarshal(&one); err == nil {
		*l = StringList{one}
		return nil
	}
	var many []string
	if err := unmarshal(&many); err != nil {
		return errors.Wrap(err, "expected string or list of strings")
	}
	*l = many
	return nil
}

// Contains reports whether v is one of the list values.
func (l StringList) Contains(v string) bool {
	for _, s := range l {
		if s == v {
			return true
		}
	}
	return false
}

// DefaultSettings is the configuration written when none exists yet.
func DefaultSettings() Settings {
	return Settings{
		Export: ExportSettings{Sheets: SheetsSettings{
			Globals:       GlobalsConfig{DatetimeFormat: "%d/%m/%Y %H:%M:%S", DateFormat: "%d/%m/%Y"},
			Position:      []SheetConfig{},
			Contributions: []SheetConfig{},
			Transactions:  []SheetConfig{},
			Historic:      []SheetConfig{},
		}},
		Fetch: FetchSettings{
			UpdateCooldown: DefaultUpdateCooldown,
			Virtual: VirtualSettings{
				Investments:  []SheetConfig{},
				Transactions: []SheetConfig{},
			},
		},
	}
}

// Cooldown returns the configured cooldown, falling back to the default when
// unset or negative.
func (s Settings) Cooldown() int {
	if s.Fetch.UpdateCooldown <= 0 {
		return DefaultUpdateCooldown
	}
	return s.Fetch.UpdateCooldown
}

// ApplyGlobals returns a copy of c with every unset spreadsheet id and format
// filled from g.
func (c SheetConfig) ApplyGlobals(g GlobalsConfig) SheetConfig {
	if c.SpreadsheetID == nil || *c.SpreadsheetID == "" {
		c.SpreadsheetID = Ptr(g.SpreadsheetID)
	}
	if c.DatetimeFormat == nil && g.DatetimeFormat != "" {
		c.DatetimeFormat = Ptr(g.DatetimeFormat)
	}
	if c.DateFormat == nil && g.DateFormat != "" {
		c.DateFormat = Ptr(g.DateFormat)
	}
	return c
}

func applyAll(cs []SheetConfig, g GlobalsConfig) []SheetConfig {
	out := make([]SheetConfig, len(cs))
	for i, c := range cs {
		out[i] = c.ApplyGlobals(g)
	}
	return out
}

// ApplyGlobals resolves every sheet config of both the export and the
// virtual fetch sections against its globals.
func (s Settings) ApplyGlobals() Settings {
	sh := s.Export.Sheets
	s.Export.Sheets.Position = applyAll(sh.Position, sh.Globals)
	s.Export.Sheets.Contributions = applyAll(sh.Contributions, sh.Globals)
	s.Export.Sheets.Transactions = applyAll(sh.Transactions, sh.Globals)
	s.Export.Sheets.Historic = applyAll(sh.Historic, sh.Globals)

	v := s.Fetch.Virtual
	s.Fetch.Virtual.Investments = applyAll(v.Investments, v.Globals)
	s.Fetch.Virtual.Transactions = applyAll(v.Transactions, v.Globals)
	return s
}

func validateSheets(section string, cs []SheetConfig) error {
	for i, c := range cs {
		if strings.TrimSpace(c.Range) == "" {
			return errors.Wrapf(ErrInvalidRequest, "%s[%d]: range is empty", section, i)
		}
		for _, f := range c.Filters {
			if f.Field == "" {
				return errors.Wrapf(ErrInvalidRequest, "%s[%d]: filter without field", section, i)
			}
		}
	}
	return nil
}

func (s Settings) Validate() error {
	if s.Fetch.UpdateCooldown < 0 {
		return errors.Wrap(ErrInvalidRequest, "updateCooldown is negative")
	}
	sh := s.Export.Sheets
	sections := []struct {
		name string
		cs   []SheetConfig
	}{
		{"export.sheets.position", sh.Position},
		{"export.sheets.contributions", sh.Contributions},
		{"export.sheets.transactions", sh.Transactions},
		{"export.sheets.historic", sh.Historic},
		{"fetch.virtual.investments", s.Fetch.Virtual.Investments},
		{"fetch.virtual.transactions", s.Fetch.Virtual.Transactions},
	}
	for _, sec := range sections {
		if err := validateSheets(sec.name, sec.cs); err != nil {
			return err
		}
	}
	if s.Fetch.Virtual.Enabled && s.Fetch.Virtual.Globals.SpreadsheetID == "" {
		return errors.Wrap(ErrInvalidRequest, "virtual fetch enabled without spreadsheetId")
	}
	return nil
}
