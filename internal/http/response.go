package http

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"

	"finanze/internal/core"
	"finanze/internal/log"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorStatus struct {
	err    error
	status int
	code   string
}

// Checked in order; the first sentinel found in the chain wins.
var errorStatuses = []errorStatus{
	{core.ErrLocked, http.StatusUnauthorized, "LOCKED"},
	{core.ErrInvalidPassword, http.StatusUnauthorized, "INVALID_PASSWORD"},
	{core.ErrUserNotFound, http.StatusUnauthorized, "USER_NOT_FOUND"},
	{core.ErrEntityNotFound, http.StatusNotFound, "ENTITY_NOT_FOUND"},
	{core.ErrWalletNotFound, http.StatusNotFound, "WALLET_NOT_FOUND"},
	{core.ErrExecutionConflict, http.StatusConflict, "CONFLICT"},
	{core.ErrUserExists, http.StatusConflict, "USER_EXISTS"},
	{core.ErrDuplicateWallet, http.StatusConflict, "DUPLICATE_WALLET"},
	{core.ErrExternalLoginPending, http.StatusConflict, "EXTERNAL_LOGIN_PENDING"},
	{core.ErrExportNotConfigured, http.StatusBadRequest, "EXPORT_NOT_CONFIGURED"},
	{core.ErrUnsupportedExport, http.StatusBadRequest, "UNSUPPORTED_EXPORT"},
	{core.ErrExternalLoginRejected, http.StatusBadRequest, "EXTERNAL_LOGIN_REJECTED"},
	{core.ErrNotCryptoEntity, http.StatusBadRequest, "NOT_CRYPTO_ENTITY"},
	{core.ErrInvalidRegister, http.StatusBadRequest, "INVALID_REGISTER"},
	{core.ErrInvalidFeature, http.StatusBadRequest, "INVALID_FEATURE"},
	{core.ErrUnknownTag, http.StatusBadRequest, "UNKNOWN_TAG"},
	{core.ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
	{core.ErrRateNotFound, http.StatusBadGateway, "RATE_NOT_FOUND"},
}

func statusOf(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "response could not be encoded")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Code: code, Message: message})
}

// fail maps err to a status and writes it. Server errors are logged and their
// message hidden from the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)
	message := err.Error()
	if status >= 500 {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err.Error(),
			"path", r.URL.Path)
		message = "internal error"
	}
	writeError(w, status, code, message)
}

func noContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// fetchStatus maps a fetch result code to the status of its response.
func fetchStatus(code core.FetchResultCode) int {
	switch code {
	case core.FetchEntityNotFound:
		return http.StatusNotFound
	case core.FetchCooldown:
		return http.StatusTooManyRequests
	}
	return categoryStatus(code.Category())
}

func loginStatus(code core.LoginResultCode) int {
	return categoryStatus(code.Category())
}

func categoryStatus(c core.ResultCategory) int {
	switch c {
	case core.CategoryBadInput, core.CategoryNotConfigured:
		return http.StatusBadRequest
	case core.CategoryHardError, core.CategoryUnknown:
		return http.StatusInternalServerError
	}
	return http.StatusOK
}
