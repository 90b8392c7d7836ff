package http

import (
	"net/http"
)

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.Data.Positions(r.Context(), parseDataQuery(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleContributions(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.Data.Contributions(r.Context(), parseDataQuery(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	q, err := parseTransactionQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp, err := s.svc.Data.Transactions(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIntegrations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Integrations)
}
