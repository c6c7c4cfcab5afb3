package api

import (
	"net/http"

	"github.com/aquastack/aquameter/internal/auth"
	"github.com/aquastack/aquameter/internal/storage"
)

func (h *Handler) GetEmailConfig(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjTokens, "read") {
		return
	}
	cfg, err := h.notifier.GetConfig(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if cfg == nil {
		writeJSON(w, http.StatusOK, storage.EmailConfig{})
		return
	}
	// Never echo secrets back.
	cfg.Password = ""
	cfg.APIKey = ""
	writeJSON(w, http.StatusOK, cfg)
}

func (h *Handler) SaveEmailConfig(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjTokens, "write") {
		return
	}
	var cfg storage.EmailConfig
	if !decodeBody(w, r, &cfg) {
		return
	}
	if err := h.notifier.SaveConfig(r.Context(), cfg); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

type testEmailRequest struct {
	Config storage.EmailConfig `json:"config"`
	To     string              `json:"to"`
}

func (h *Handler) TestEmailConfig(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjTokens, "write") {
		return
	}
	var req testEmailRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.To == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "to is required"})
		return
	}
	if err := h.notifier.TestConfig(r.Context(), req.Config, req.To); err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
