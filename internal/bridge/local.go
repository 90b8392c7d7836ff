package bridge

import (
	"context"
	"runtime"
	"sync"

	"github.com/cockroachdb/errors"

	"finanze/internal/core"
	"finanze/internal/log"
)

// LocalHost serves the bridge when the backend runs on its own, without a
// desktop shell around it.
type LocalHost struct {
	apiURL  string
	version string
	broker  *Broker
	logger  *log.Logger

	mu    sync.RWMutex
	theme core.ThemeMode
	goos  string
	arch  string
}

var _ Host = (*LocalHost)(nil)

func NewLocalHost(apiURL, version string, broker *Broker, logger *log.Logger) *LocalHost {
	return &LocalHost{
		apiURL:  apiURL,
		version: version,
		broker:  broker,
		logger:  logger.WithComponent(log.ComponentBridge),
		theme:   core.ThemeSystem,
		goos:    runtime.GOOS,
		arch:    runtime.GOARCH,
	}
}

func (h *LocalHost) APIURL(context.Context) (string, error) {
	if h.apiURL == "" {
		return "", errors.New("api url not configured")
	}
	return h.apiURL, nil
}

func (h *LocalHost) Platform(context.Context) (core.PlatformInfo, error) {
	return core.PlatformInfo{Type: platformOf(h.goos), Arch: core.Ptr(h.arch)}, nil
}

func platformOf(goos string) core.PlatformType {
	switch goos {
	case "windows":
		return core.PlatformWindows
	case "darwin":
		return core.PlatformMac
	case "linux":
		return core.PlatformLinux
	}
	return core.PlatformWeb
}

func (h *LocalHost) ChangeThemeMode(mode core.ThemeMode) error {
	if !mode.Valid() {
		return errors.Wrapf(core.ErrUnknownTag, "theme mode %q", string(mode))
	}
	h.mu.Lock()
	h.theme = mode
	h.mu.Unlock()
	h.logger.Info("Theme changed", "theme", mode)
	return nil
}

func (h *LocalHost) ThemeMode() core.ThemeMode {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.theme
}

func (h *LocalHost) ShowAbout() {
	h.logger.Info("About requested", "version", h.version, "platform", platformOf(h.goos))
}

func (h *LocalHost) RequestExternalLogin(ctx context.Context, id string, req *core.ExternalLoginRequest) (core.ExternalLoginAck, error) {
	if !h.broker.Start(id) {
		return core.ExternalLoginAck{Success: false}, errors.Wrapf(core.ErrExternalLoginPending, "%s", id)
	}
	fields := 0
	if req != nil {
		fields = len(*req)
	}
	h.logger.InfoContext(ctx, "External login requested", log.FieldEntityID, id, "fields", fields)
	return core.ExternalLoginAck{Success: true}, nil
}

func (h *LocalHost) OnCompletedExternalLogin(ctx context.Context, id string) <-chan core.ExternalLoginResult {
	return h.broker.Wait(ctx, id)
}

// CompleteExternalLogin hands the result of an out of band login to whoever
// waits on it.
func (h *LocalHost) CompleteExternalLogin(ctx context.Context, id string, result core.ExternalLoginResult) bool {
	ok := h.broker.Complete(id, result)
	h.logger.InfoContext(ctx, "External login completed",
		log.FieldEntityID, id,
		log.FieldSuccess, result.Success,
		"pending", ok)
	return ok
}

// CancelExternalLogin abandons the pending attempt for id.
func (h *LocalHost) CancelExternalLogin(ctx context.Context, id string) bool {
	ok := h.broker.Cancel(id)
	if ok {
		h.logger.InfoContext(ctx, "External login cancelled", log.FieldEntityID, id)
	}
	return ok
}
