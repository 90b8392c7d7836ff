package core

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// Details is the code-specific payload of a login or fetch response. Exactly
// one variant exists per code that carries a payload; Countdown only travels
// with COOLDOWN, ProcessRef with CODE_REQUESTED and CredentialsEcho with
// MANUAL_LOGIN or a CREATED login produced by an external flow.
type Details interface {
	details()
}

type (
	// Countdown is the remaining cooldown, in whole seconds.
	Countdown struct {
		Seconds int
	}

	// ProcessRef correlates the resumed attempt of a deferred login.
	ProcessRef struct {
		ProcessID string
	}

	// CredentialsEcho returns credentials obtained out of band. Credentials
	// is never nil; an echo without fields carries an empty map.
	CredentialsEcho struct {
		Credentials map[string]string
	}
)

func (Countdown) details()       {}
func (ProcessRef) details()      {}
func (CredentialsEcho) details() {}

// detailsWire is the untyped object the frontend expects under "details".
type detailsWire struct {
	Countdown   *int              `json:"countdown,omitempty"`
	ProcessID   *string           `json:"processId,omitempty"`
	Credentials *map[string]string `json:"credentials,omitempty"`
}

func encodeDetails(d Details) *detailsWire {
	switch v := d.(type) {
	case Countdown:
		return &detailsWire{Countdown: Ptr(v.Seconds)}
	case ProcessRef:
		return &detailsWire{ProcessID: Ptr(v.ProcessID)}
	case CredentialsEcho:
		creds := v.Credentials
		return &detailsWire{Credentials: &creds}
	default:
		return nil
	}
}

func decodeDetails(w *detailsWire) (Details, error) {
	if w == nil {
		return nil, nil
	}
	set := 0
	var d Details
	if w.Countdown != nil {
		set++
		d = Countdown{Seconds: *w.Countdown}
	}
	if w.ProcessID != nil {
		set++
		d = ProcessRef{ProcessID: *w.ProcessID}
	}
	if w.Credentials != nil {
		set++
		d = CredentialsEcho{Credentials: *w.Credentials}
	}
	if set > 1 {
		return nil, errors.Wrap(ErrInvalidDetails, "more than one details variant")
	}
	return d, nil
}

func loginDetailsAllowed(c LoginResultCode, d Details) bool {
	switch v := d.(type) {
	case nil:
		return true
	case ProcessRef:
		return c == LoginCodeRequested
	case CredentialsEcho:
		return (c == LoginManual || c == LoginCreated) && v.Credentials != nil
	default:
		return false
	}
}

func fetchDetailsAllowed(c FetchResultCode, d Details) bool {
	switch v := d.(type) {
	case nil:
		return true
	case Countdown:
		return c == FetchCooldown && v.Seconds >= 0
	case ProcessRef:
		return c == FetchCodeRequested
	case CredentialsEcho:
		return c == FetchManualLogin && v.Credentials != nil
	default:
		return false
	}
}

type loginResponseWire struct {
	Code      LoginResultCode `json:"code"`
	ProcessID *string         `json:"processId,omitempty"`
	Details   *detailsWire    `json:"details,omitempty"`
}

// MarshalJSON emits the frontend shape, rejecting a details variant that does
// not belong to the code.
func (r LoginResponse) MarshalJSON() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(loginResponseWire{
		Code:      r.Code,
		ProcessID: r.ProcessID,
		Details:   encodeDetails(r.Details),
	})
}

func (r *LoginResponse) UnmarshalJSON(b []byte) error {
	var w loginResponseWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	d, err := decodeDetails(w.Details)
	if err != nil {
		return err
	}
	out := LoginResponse{Code: w.Code, ProcessID: w.ProcessID, Details: d}
	if err := out.Validate(); err != nil {
		return err
	}
	*r = out
	return nil
}

type fetchResponseWire struct {
	Code    FetchResultCode `json:"code"`
	Details *detailsWire    `json:"details,omitempty"`
	Data    *FetchedData    `json:"data,omitempty"`
}

func (r FetchResponse) MarshalJSON() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(fetchResponseWire{
		Code:    r.Code,
		Details: encodeDetails(r.Details),
		Data:    r.Data,
	})
}

func (r *FetchResponse) UnmarshalJSON(b []byte) error {
	var w fetchResponseWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	d, err := decodeDetails(w.Details)
	if err != nil {
		return err
	}
	out := FetchResponse{Code: w.Code, Details: d, Data: w.Data}
	if err := out.Validate(); err != nil {
		return err
	}
	*r = out
	return nil
}
