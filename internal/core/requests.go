package core

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

type (
	AuthRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	ChangePasswordRequest struct {
		Username    string `json:"username"`
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}

	LoginStatusResponse struct {
		Status     LoginStatus `json:"status"`
		LastLogged *time.Time  `json:"last_logged,omitempty"`
	}

	LoginRequest struct {
		Entity      string            `json:"entity"`
		Credentials map[string]string `json:"credentials"`
		Code        *string           `json:"code,omitempty"`
		ProcessID   *string           `json:"processId,omitempty"`
	}

	LoginResponse struct {
		Code      LoginResultCode
		ProcessID *string
		Details   Details
	}

	FetchRequest struct {
		Entity        *string   `json:"entity,omitempty"`
		Features      []Feature `json:"features"`
		Code          *string   `json:"code,omitempty"`
		ProcessID     *string   `json:"processId,omitempty"`
		AvoidNewLogin *bool     `json:"avoidNewLogin,omitempty"`
		Deep          *bool     `json:"deep,omitempty"`
	}

	FetchResponse struct {
		Code    FetchResultCode
		Details Details
		Data    *FetchedData
	}

	DisconnectRequest struct {
		EntityID string `json:"id"`
	}

	ExportRequest struct {
		Target ExportTarget `json:"target"`
	}

	CreateCryptoWalletRequest struct {
		EntityID string `json:"entityId"`
		Name     string `json:"name"`
		Address  string `json:"address"`
	}

	UpdateCryptoWalletConnectionRequest struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
)

func (r AuthRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return errors.Wrap(ErrInvalidRequest, "username is empty")
	}
	if r.Password == "" {
		return errors.Wrap(ErrInvalidRequest, "password is empty")
	}
	return nil
}

func (r LoginRequest) Validate() error {
	if strings.TrimSpace(r.Entity) == "" {
		return errors.Wrap(ErrInvalidRequest, "entity is empty")
	}
	if r.Code != nil && (r.ProcessID == nil || *r.ProcessID == "") {
		return errors.Wrap(ErrInvalidRequest, "code requires processId")
	}
	return nil
}

// Resuming reports whether the request completes a deferred login.
func (r LoginRequest) Resuming() bool {
	return r.Code != nil && r.ProcessID != nil
}

func (r LoginResponse) Validate() error {
	if !r.Code.Valid() {
		return errors.Wrapf(ErrUnknownTag, "login result code %q", string(r.Code))
	}
	if !loginDetailsAllowed(r.Code, r.Details) {
		return errors.Wrapf(ErrInvalidDetails, "%T with %s", r.Details, r.Code)
	}
	if r.Code == LoginCodeRequested && (r.ProcessID == nil || *r.ProcessID == "") {
		return errors.Wrap(ErrInvalidDetails, "CODE_REQUESTED without processId")
	}
	return nil
}

func (r FetchRequest) Validate() error {
	if r.Entity != nil && strings.TrimSpace(*r.Entity) == "" {
		return errors.Wrap(ErrInvalidRequest, "entity is empty")
	}
	if len(r.Features) == 0 {
		return errors.Wrap(ErrInvalidRequest, "no features requested")
	}
	return Features(r.Features).Validate()
}

// Flags used by the fetch flow with their contract defaults applied.
func (r FetchRequest) AvoidsNewLogin() bool { return r.AvoidNewLogin != nil && *r.AvoidNewLogin }
func (r FetchRequest) IsDeep() bool         { return r.Deep != nil && *r.Deep }

func (r FetchResponse) Validate() error {
	if !r.Code.Valid() {
		return errors.Wrapf(ErrUnknownTag, "fetch result code %q", string(r.Code))
	}
	if !fetchDetailsAllowed(r.Code, r.Details) {
		return errors.Wrapf(ErrInvalidDetails, "%T with %s", r.Details, r.Code)
	}
	if r.Data != nil && r.Code != FetchCompleted {
		return errors.Wrapf(ErrInvalidDetails, "data with %s", r.Code)
	}
	return nil
}

func (r ExportRequest) Validate() error {
	if !r.Target.Valid() {
		return errors.Wrapf(ErrUnsupportedExport, "%q", string(r.Target))
	}
	return nil
}

func (r CreateCryptoWalletRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.EntityID) == "":
		return errors.Wrap(ErrInvalidRequest, "entityId is empty")
	case strings.TrimSpace(r.Name) == "":
		return errors.Wrap(ErrInvalidRequest, "name is empty")
	case strings.TrimSpace(r.Address) == "":
		return errors.Wrap(ErrInvalidRequest, "address is empty")
	}
	return nil
}

func (r UpdateCryptoWalletConnectionRequest) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.Wrap(ErrInvalidRequest, "id is empty")
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.Wrap(ErrInvalidRequest, "name is empty")
	}
	return nil
}

func (r ChangePasswordRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Username) == "":
		return errors.Wrap(ErrInvalidRequest, "username is empty")
	case r.OldPassword == "":
		return errors.Wrap(ErrInvalidRequest, "oldPassword is empty")
	case r.NewPassword == "":
		return errors.Wrap(ErrInvalidRequest, "newPassword is empty")
	}
	return nil
}

func (r DisconnectRequest) Validate() error {
	if strings.TrimSpace(r.EntityID) == "" {
		return errors.Wrap(ErrInvalidRequest, "id is empty")
	}
	return nil
}
