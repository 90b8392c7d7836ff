package http

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"

	"finanze/internal/core"
	"finanze/internal/log"
)

type themeRequest struct {
	Mode core.ThemeMode `json:"mode"`
}

type pollPending struct {
	Status string `json:"status"`
}

func (s *Server) handlePlatform(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.Host.Platform(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Host.ChangeThemeMode(req.Mode); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.svc.Host.ShowAbout()
	noContent(w)
}

// handleRequestExternalLogin starts an out of band login for an entity whose
// credentials can only be set up manually.
func (s *Server) handleRequestExternalLogin(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req := core.ExternalLoginRequest{}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	entity, err := s.svc.EntityStore.GetEntity(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if entity.SetupLoginType == nil || *entity.SetupLoginType != core.ManualSetup {
		s.fail(w, r, errors.Wrapf(core.ErrExternalLoginRejected, "%s", id))
		return
	}

	ack, err := s.svc.Host.RequestExternalLogin(r.Context(), id, &req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}

// handlePollExternalLogin holds the request until the login completes, is
// cancelled, or the poll times out. A timeout answers 202 so the client polls
// again; a completion arriving after it is kept for that next poll.
func (s *Server) handlePollExternalLogin(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), pollTimeout(r, s.pollTimeout))
	defer cancel()

	result, ok := <-s.svc.Host.OnCompletedExternalLogin(ctx, id)
	switch {
	case ok:
		writeJSON(w, http.StatusOK, result)
	case r.Context().Err() != nil:
		log.FromContext(r.Context()).DebugContext(r.Context(), "External login poll abandoned", log.FieldEntityID, id)
	case ctx.Err() != nil:
		writeJSON(w, http.StatusAccepted, pollPending{Status: "PENDING"})
	default:
		writeJSON(w, http.StatusOK, core.ExternalLoginResult{Success: false})
	}
}

func (s *Server) handleCompleteExternalLogin(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var result core.ExternalLoginResult
	if err := decodeJSON(w, r, &result); err != nil {
		s.fail(w, r, err)
		return
	}
	if !s.svc.Host.CompleteExternalLogin(r.Context(), id, result) {
		writeError(w, http.StatusNotFound, "NO_PENDING_LOGIN", "no external login pending for "+id)
		return
	}
	noContent(w)
}

func (s *Server) handleCancelExternalLogin(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !s.svc.Host.CancelExternalLogin(r.Context(), id) {
		writeError(w, http.StatusNotFound, "NO_PENDING_LOGIN", "no external login pending for "+id)
		return
	}
	noContent(w)
}
