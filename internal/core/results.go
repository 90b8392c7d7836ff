package core

type (
	LoginResultCode string
	FetchResultCode string
)

const (
	// Success
	LoginCreated LoginResultCode = "CREATED"
	LoginResumed LoginResultCode = "RESUMED"

	// Flow deferral
	LoginCodeRequested LoginResultCode = "CODE_REQUESTED"
	LoginManual        LoginResultCode = "MANUAL_LOGIN"

	// Flow not completed (expected)
	LoginNotLogged LoginResultCode = "NOT_LOGGED"

	// Bad user input
	LoginInvalidCode        LoginResultCode = "INVALID_CODE"
	LoginInvalidCredentials LoginResultCode = "INVALID_CREDENTIALS"

	// Not setup
	LoginNoCredentialsAvailable LoginResultCode = "NO_CREDENTIALS_AVAILABLE"

	// Error
	LoginRequired        LoginResultCode = "LOGIN_REQUIRED"
	LoginUnexpectedError LoginResultCode = "UNEXPECTED_LOGIN_ERROR"
)

const (
	FetchCompleted           FetchResultCode = "COMPLETED"
	FetchCooldown            FetchResultCode = "COOLDOWN"
	FetchEntityNotFound      FetchResultCode = "ENTITY_NOT_FOUND"
	FetchFeatureNotSupported FetchResultCode = "FEATURE_NOT_SUPPORTED"
	FetchDisabled            FetchResultCode = "DISABLED"

	// Login related codes
	FetchCodeRequested          FetchResultCode = "CODE_REQUESTED"
	FetchManualLogin            FetchResultCode = "MANUAL_LOGIN"
	FetchNotLogged              FetchResultCode = "NOT_LOGGED"
	FetchInvalidCode            FetchResultCode = "INVALID_CODE"
	FetchInvalidCredentials     FetchResultCode = "INVALID_CREDENTIALS"
	FetchNoCredentialsAvailable FetchResultCode = "NO_CREDENTIALS_AVAILABLE"
	FetchLoginRequired          FetchResultCode = "LOGIN_REQUIRED"
	FetchUnexpectedLoginError   FetchResultCode = "UNEXPECTED_LOGIN_ERROR"
)

// ResultCategory groups result codes by the reaction they require from the
// caller.
type ResultCategory int

const (
	CategoryUnknown ResultCategory = iota
	CategorySuccess
	CategoryDeferral
	CategoryIncomplete
	CategoryBadInput
	CategoryNotConfigured
	CategoryHardError
)

func (c ResultCategory) String() string {
	switch c {
	case CategorySuccess:
		return "success"
	case CategoryDeferral:
		return "deferral"
	case CategoryIncomplete:
		return "incomplete"
	case CategoryBadInput:
		return "bad_input"
	case CategoryNotConfigured:
		return "not_configured"
	case CategoryHardError:
		return "hard_error"
	default:
		return "unknown"
	}
}

// Retryable is true only for expected incompleteness: the caller may try
// again later without changing its input.
func (c ResultCategory) Retryable() bool {
	return c == CategoryIncomplete
}

var loginCategories = map[LoginResultCode]ResultCategory{
	LoginCreated:                CategorySuccess,
	LoginResumed:                CategorySuccess,
	LoginCodeRequested:          CategoryDeferral,
	LoginManual:                 CategoryDeferral,
	LoginNotLogged:              CategoryIncomplete,
	LoginInvalidCode:            CategoryBadInput,
	LoginInvalidCredentials:     CategoryBadInput,
	LoginNoCredentialsAvailable: CategoryNotConfigured,
	LoginRequired:               CategoryHardError,
	LoginUnexpectedError:        CategoryHardError,
}

var fetchCategories = map[FetchResultCode]ResultCategory{
	FetchCompleted:              CategorySuccess,
	FetchCooldown:               CategoryIncomplete,
	FetchEntityNotFound:         CategoryBadInput,
	FetchFeatureNotSupported:    CategoryBadInput,
	FetchDisabled:               CategoryBadInput,
	FetchCodeRequested:          CategoryDeferral,
	FetchManualLogin:            CategoryDeferral,
	FetchNotLogged:              CategoryIncomplete,
	FetchInvalidCode:            CategoryBadInput,
	FetchInvalidCredentials:     CategoryBadInput,
	FetchNoCredentialsAvailable: CategoryNotConfigured,
	FetchLoginRequired:          CategoryHardError,
	FetchUnexpectedLoginError:   CategoryHardError,
}

// LoginResultCodes returns every defined login result code.
func LoginResultCodes() []LoginResultCode {
	return []LoginResultCode{
		LoginCreated, LoginResumed, LoginCodeRequested, LoginManual, LoginNotLogged,
		LoginInvalidCode, LoginInvalidCredentials, LoginNoCredentialsAvailable,
		LoginRequired, LoginUnexpectedError,
	}
}

// FetchResultCodes returns every defined fetch result code.
func FetchResultCodes() []FetchResultCode {
	return []FetchResultCode{
		FetchCompleted, FetchCooldown, FetchEntityNotFound, FetchFeatureNotSupported,
		FetchDisabled, FetchCodeRequested, FetchManualLogin, FetchNotLogged,
		FetchInvalidCode, FetchInvalidCredentials, FetchNoCredentialsAvailable,
		FetchLoginRequired, FetchUnexpectedLoginError,
	}
}

func (c LoginResultCode) Valid() bool {
	_, ok := loginCategories[c]
	return ok
}

func (c LoginResultCode) Category() ResultCategory {
	return loginCategories[c]
}

func (c *LoginResultCode) UnmarshalText(text []byte) error {
	return unmarshalTag(text, c, "login result code", LoginResultCodes())
}

func (c FetchResultCode) Valid() bool {
	_, ok := fetchCategories[c]
	return ok
}

func (c FetchResultCode) Category() ResultCategory {
	return fetchCategories[c]
}

func (c *FetchResultCode) UnmarshalText(text []byte) error {
	return unmarshalTag(text, c, "fetch result code", FetchResultCodes())
}

// FetchCodeFromLogin maps a non-success login outcome onto the fetch taxonomy.
// Both taxonomies share their login-related tags.
func FetchCodeFromLogin(c LoginResultCode) FetchResultCode {
	switch c {
	case LoginCreated, LoginResumed:
		return FetchCompleted
	case LoginUnexpectedError:
		return FetchUnexpectedLoginError
	}
	fc := FetchResultCode(c)
	if !fc.Valid() {
		return FetchUnexpectedLoginError
	}
	return fc
}
