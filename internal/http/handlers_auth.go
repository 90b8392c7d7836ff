package http

import (
	"net/http"

	"finanze/internal/core"
	"finanze/internal/log"
)

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req core.AuthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Auth.Signup(r.Context(), req); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) handleUserLogin(w http.ResponseWriter, r *http.Request) {
	var req core.AuthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Auth.Login(r.Context(), req); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentAuth).WarnContext(r.Context(), "User login rejected",
			log.FieldClientIP, s.detector.ClientIP(r))
		s.fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) handleLoginStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.Auth.Status(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req core.ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Auth.ChangePassword(r.Context(), req); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.svc.Auth.Logout(r.Context())
	noContent(w)
}
