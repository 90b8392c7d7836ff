package core

import (
	"github.com/cockroachdb/errors"
)

type (
	EntityStatus         string
	EntityType           string
	EntitySetupLoginType string
	CredentialType       string
	Feature              string
	ThemeMode            string
	LoginStatus          string
	ExportTarget         string
	PlatformType         string
	WeightUnit           string
	CommodityType        string
)

const (
	EntityConnected     EntityStatus = "CONNECTED"
	EntityDisconnected  EntityStatus = "DISCONNECTED"
	EntityRequiresLogin EntityStatus = "REQUIRES_LOGIN"
)

const (
	FinancialInstitution EntityType = "FINANCIAL_INSTITUTION"
	CryptoWallet         EntityType = "CRYPTO_WALLET"
	Commodity            EntityType = "COMMODITY"
)

const (
	ManualSetup    EntitySetupLoginType = "MANUAL"
	AutomatedSetup EntitySetupLoginType = "AUTOMATED"
)

const (
	CredentialID           CredentialType = "ID"
	CredentialUser         CredentialType = "USER"
	CredentialPassword     CredentialType = "PASSWORD"
	CredentialPIN          CredentialType = "PIN"
	CredentialPhone        CredentialType = "PHONE"
	CredentialEmail        CredentialType = "EMAIL"
	CredentialAPIToken     CredentialType = "API_TOKEN"
	CredentialInternal     CredentialType = "INTERNAL"
	CredentialInternalTemp CredentialType = "INTERNAL_TEMP"
)

const (
	FeaturePosition          Feature = "POSITION"
	FeatureAutoContributions Feature = "AUTO_CONTRIBUTIONS"
	FeatureTransactions      Feature = "TRANSACTIONS"
	FeatureHistoric          Feature = "HISTORIC"
)

const (
	ThemeLight  ThemeMode = "light"
	ThemeDark   ThemeMode = "dark"
	ThemeSystem ThemeMode = "system"
)

const (
	Locked   LoginStatus = "LOCKED"
	Unlocked LoginStatus = "UNLOCKED"
)

const (
	GoogleSheets ExportTarget = "GOOGLE_SHEETS"
)

const (
	PlatformWindows PlatformType = "windows"
	PlatformMac     PlatformType = "mac"
	PlatformLinux   PlatformType = "linux"
	PlatformWeb     PlatformType = "web"
)

const (
	Gram      WeightUnit = "GRAM"
	TroyOunce WeightUnit = "TROY_OUNCE"
)

const (
	Gold      CommodityType = "GOLD"
	Silver    CommodityType = "SILVER"
	Platinum  CommodityType = "PLATINUM"
	Palladium CommodityType = "PALLADIUM"
)

var (
	entityStatuses  = []EntityStatus{EntityConnected, EntityDisconnected, EntityRequiresLogin}
	entityTypes     = []EntityType{FinancialInstitution, CryptoWallet, Commodity}
	setupLoginTypes = []EntitySetupLoginType{ManualSetup, AutomatedSetup}
	credentialTypes = []CredentialType{CredentialID, CredentialUser, CredentialPassword, CredentialPIN, CredentialPhone, CredentialEmail, CredentialAPIToken, CredentialInternal, CredentialInternalTemp}
	features        = []Feature{FeaturePosition, FeatureAutoContributions, FeatureTransactions, FeatureHistoric}
	themeModes      = []ThemeMode{ThemeLight, ThemeDark, ThemeSystem}
	loginStatuses   = []LoginStatus{Locked, Unlocked}
	exportTargets   = []ExportTarget{GoogleSheets}
	platformTypes   = []PlatformType{PlatformWindows, PlatformMac, PlatformLinux, PlatformWeb}
	weightUnits     = []WeightUnit{Gram, TroyOunce}
	commodityTypes  = []CommodityType{Gold, Silver, Platinum, Palladium}
)

// parseTag resolves s against a closed member set. Unknown tags are rejected
// rather than passed through.
func parseTag[T ~string](kind, s string, members []T) (T, error) {
	for _, m := range members {
		if string(m) == s {
			return m, nil
		}
	}
	var zero T
	return zero, errors.Wrapf(ErrUnknownTag, "%s %q", kind, s)
}

func isMember[T ~string](v T, members []T) bool {
	for _, m := range members {
		if m == v {
			return true
		}
	}
	return false
}

func unmarshalTag[T ~string](text []byte, dst *T, kind string, members []T) error {
	v, err := parseTag(kind, string(text), members)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func ParseEntityStatus(s string) (EntityStatus, error) {
	return parseTag("entity status", s, entityStatuses)
}

func (s EntityStatus) Valid() bool { return isMember(s, entityStatuses) }

func (s *EntityStatus) UnmarshalText(text []byte) error {
	return unmarshalTag(text, s, "entity status", entityStatuses)
}

func ParseEntityType(s string) (EntityType, error) {
	return parseTag("entity type", s, entityTypes)
}

func (t EntityType) Valid() bool { return isMember(t, entityTypes) }

func (t *EntityType) UnmarshalText(text []byte) error {
	return unmarshalTag(text, t, "entity type", entityTypes)
}

func ParseEntitySetupLoginType(s string) (EntitySetupLoginType, error) {
	return parseTag("setup login type", s, setupLoginTypes)
}

func (t EntitySetupLoginType) Valid() bool { return isMember(t, setupLoginTypes) }

func (t *EntitySetupLoginType) UnmarshalText(text []byte) error {
	return unmarshalTag(text, t, "setup login type", setupLoginTypes)
}

func ParseCredentialType(s string) (CredentialType, error) {
	return parseTag("credential type", s, credentialTypes)
}

func (t CredentialType) Valid() bool { return isMember(t, credentialTypes) }

// Internal reports whether the credential is managed by the backend and never
// typed in by the user.
func (t CredentialType) Internal() bool {
	return t == CredentialInternal || t == CredentialInternalTemp
}

func (t *CredentialType) UnmarshalText(text []byte) error {
	return unmarshalTag(text, t, "credential type", credentialTypes)
}

func ParseFeature(s string) (Feature, error) {
	return parseTag("feature", s, features)
}

// AllFeatures returns the fixed feature set in canonical order.
func AllFeatures() []Feature {
	return append([]Feature(nil), features...)
}

func (f Feature) Valid() bool { return isMember(f, features) }

func (f *Feature) UnmarshalText(text []byte) error {
	return unmarshalTag(text, f, "feature", features)
}

func ParseThemeMode(s string) (ThemeMode, error) {
	return parseTag("theme mode", s, themeModes)
}

func (m ThemeMode) Valid() bool { return isMember(m, themeModes) }

func (m *ThemeMode) UnmarshalText(text []byte) error {
	return unmarshalTag(text, m, "theme mode", themeModes)
}

func (s LoginStatus) Valid() bool { return isMember(s, loginStatuses) }

func (s *LoginStatus) UnmarshalText(text []byte) error {
	return unmarshalTag(text, s, "login status", loginStatuses)
}

func ParseExportTarget(s string) (ExportTarget, error) {
	return parseTag("export target", s, exportTargets)
}

func (t ExportTarget) Valid() bool { return isMember(t, exportTargets) }

func (t *ExportTarget) UnmarshalText(text []byte) error {
	return unmarshalTag(text, t, "export target", exportTargets)
}

func ParsePlatformType(s string) (PlatformType, error) {
	return parseTag("platform type", s, platformTypes)
}

func (t PlatformType) Valid() bool { return isMember(t, platformTypes) }

func (t *PlatformType) UnmarshalText(text []byte) error {
	return unmarshalTag(text, t, "platform type", platformTypes)
}

func ParseWeightUnit(s string) (WeightUnit, error) {
	return parseTag("weight unit", s, weightUnits)
}

func (u WeightUnit) Valid() bool { return isMember(u, weightUnits) }

func (u *WeightUnit) UnmarshalText(text []byte) error {
	return unmarshalTag(text, u, "weight unit", weightUnits)
}

func ParseCommodityType(s string) (CommodityType, error) {
	return parseTag("commodity type", s, commodityTypes)
}

func (t CommodityType) Valid() bool { return isMember(t, commodityTypes) }

func (t *CommodityType) UnmarshalText(text []byte) error {
	return unmarshalTag(text, t, "commodity type", commodityTypes)
}
