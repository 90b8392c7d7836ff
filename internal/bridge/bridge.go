// Package bridge is the contract between the backend and the desktop host
// that embeds it: where the API lives, which platform it runs on, theme and
// about requests, and the out of band login handshake used by entities whose
// login happens in a host window.
package bridge

import (
	"context"

	"finanze/internal/core"
)

// Host is implemented by whatever embeds the backend.
type Host interface {
	APIURL(ctx context.Context) (string, error)
	Platform(ctx context.Context) (core.PlatformInfo, error)
	ChangeThemeMode(mode core.ThemeMode) error
	ShowAbout()
	// RequestExternalLogin starts an out of band login for the entity id.
	// Only one attempt per id may be pending.
	RequestExternalLogin(ctx context.Context, id string, req *core.ExternalLoginRequest) (core.ExternalLoginAck, error)
	// OnCompletedExternalLogin returns the channel on which the result of
	// the attempt for id is delivered. The channel yields at most one value
	// and is then closed. It closes empty when the attempt was cancelled,
	// when there is none, or when ctx ends before the completion; a result
	// that arrives later is kept for the next call.
	OnCompletedExternalLogin(ctx context.Context, id string) <-chan core.ExternalLoginResult
}
