package http

import (
	"net/http"

	"finanze/internal/core"
	"finanze/internal/log"
)

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.Entities.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEntityLogin(w http.ResponseWriter, r *http.Request) {
	var req core.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	resp, err := s.svc.Login.Login(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, loginStatus(resp.Code), resp)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	var req core.DisconnectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Login.Disconnect(r.Context(), req); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	var req core.FetchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	resp, err := s.svc.Fetch.Fetch(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logResult(r, req.Entity, resp.Code)
	writeJSON(w, fetchStatus(resp.Code), resp)
}

func (s *Server) handleVirtualFetch(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.Virtual.Fetch(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logResult(r, nil, resp.Code)
	writeJSON(w, fetchStatus(resp.Code), resp)
}

func (s *Server) logResult(r *http.Request, entity *string, code core.FetchResultCode) {
	id := "virtual"
	if entity != nil {
		id = *entity
	}
	fields := log.NewFields().
		WithOperation(log.OpFetch).
		WithResult(id, string(code), code.Category().String())
	log.FromContext(r.Context()).WithComponent(log.ComponentFetch).
		InfoContext(r.Context(), "Fetch finished", fields.ToSlice()...)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req core.ExportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Export.Export(r.Context(), req); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.svc.Settings.Load(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var cfg core.Settings
	if err := decodeJSON(w, r, &cfg); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Settings.Save(r.Context(), cfg); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) handleExchangeRates(w http.ResponseWriter, r *http.Request) {
	rates, err := s.svc.Rates.Get(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rates)
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var req core.CreateCryptoWalletRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	conn, err := s.svc.Wallets.Create(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, conn)
}

func (s *Server) handleUpdateWallet(w http.ResponseWriter, r *http.Request) {
	var req core.UpdateCryptoWalletConnectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Wallets.Update(r.Context(), req); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) handleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Wallets.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) handleSaveCommodities(w http.ResponseWriter, r *http.Request) {
	var req core.SaveCommodityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Commodities.Save(r.Context(), req); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}
