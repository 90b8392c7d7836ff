package core

import "github.com/cockroachdb/errors"

var (
	ErrUnknownTag            = errors.New("unknown tag")
	ErrInvalidFeature        = errors.New("invalid feature")
	ErrEntityNotFound        = errors.New("entity not found")
	ErrFeatureNotSupported   = errors.New("feature not supported")
	ErrExecutionConflict     = errors.New("execution already in progress")
	ErrInvalidDetails        = errors.New("details do not match result code")
	ErrDanglingWallet        = errors.New("wallet connection references unknown entity")
	ErrWalletNotFound        = errors.New("crypto wallet connection not found")
	ErrDuplicateWallet       = errors.New("crypto wallet address already connected")
	ErrNotCryptoEntity       = errors.New("entity is not a crypto wallet")
	ErrInvalidRegister       = errors.New("invalid commodity register")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrLocked                = errors.New("user data is locked")
	ErrUserExists            = errors.New("user already exists")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidPassword       = errors.New("invalid password")
	ErrExportNotConfigured   = errors.New("export is not configured")
	ErrUnsupportedExport     = errors.New("unsupported export target")
	ErrRateNotFound          = errors.New("exchange rate not found")
	ErrExternalLoginPending  = errors.New("external login already pending")
	ErrExternalLoginRejected = errors.New("external login not supported for entity")
)
