package api

import (
	"net/http"

	"github.com/aquastack/aquameter/internal/auth"
)

// GetTokenDirectory returns the deployment's token role mapping.
func (h *Handler) GetTokenDirectory(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjTokens, "read") {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Tokens())
}

type registerUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	if h.authSvc == nil {
		http.Error(w, "auth disabled", http.StatusNotImplemented)
		return
	}
	var req registerUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "username and password are required"})
		return
	}
	if req.Role == "" {
		req.Role = auth.RoleViewer
	}
	u, err := h.authSvc.Register(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

type createAPITokenRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	ExpiresIn string `json:"expires_in,omitempty"`
}

type createAPITokenResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// CreateAPIToken exchanges user credentials for a new API token. The raw
// token value is returned exactly once.
func (h *Handler) CreateAPIToken(w http.ResponseWriter, r *http.Request) {
	if h.authSvc == nil {
		http.Error(w, "auth disabled", http.StatusNotImplemented)
		return
	}
	var req createAPITokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	u, err := h.authSvc.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	role := req.Role
	if role == "" {
		role = u.Role
	}
	expiresAt, err := auth.ParseExpirationDuration(req.ExpiresIn)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	t, raw, err := h.authSvc.CreateToken(r.Context(), u.ID, req.Name, role, expiresAt)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "create token failed"})
		return
	}
	writeJSON(w, http.StatusCreated, createAPITokenResponse{ID: t.ID, Token: raw})
}
