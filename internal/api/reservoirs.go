package api

import (
	"net/http"

	"github.com/aquastack/aquameter/internal/auth"
	"github.com/aquastack/aquameter/internal/ledger"
)

type createReservoirRequest struct {
	ID                string `json:"id,omitempty"`
	CurrentLevel      uint64 `json:"current_level"`
	Capacity          uint64 `json:"capacity"`
	MaxAllowableWaste uint64 `json:"max_allowable_waste,omitempty"`
	MinAllowableLevel uint64 `json:"min_allowable_level,omitempty"`
	CreditRate        uint64 `json:"credit_rate,omitempty"`
	TelemetrySource   string `json:"telemetry_source,omitempty"`
}

func (h *Handler) CreateReservoir(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjReservoirs, "write") {
		return
	}
	var req createReservoirRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.CreateReservoir(r.Context(), req.ID, ledger.ReservoirParams{
		CurrentLevel:      req.CurrentLevel,
		Capacity:          req.Capacity,
		MaxAllowableWaste: req.MaxAllowableWaste,
		MinAllowableLevel: req.MinAllowableLevel,
		CreditRate:        req.CreditRate,
		TelemetrySource:   req.TelemetrySource,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) ListReservoirs(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjReservoirs, "read") {
		return
	}
	reservoirs, err := h.svc.ListReservoirs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservoirs)
}

func (h *Handler) GetReservoir(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjReservoirs, "read") {
		return
	}
	res, err := h.svc.GetReservoir(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type updateReservoirRequest struct {
	CurrentLevel      *uint64 `json:"current_level,omitempty"`
	Capacity          *uint64 `json:"capacity,omitempty"`
	MaxAllowableWaste *uint64 `json:"max_allowable_waste,omitempty"`
	MinAllowableLevel *uint64 `json:"min_allowable_level,omitempty"`
	CreditRate        *uint64 `json:"credit_rate,omitempty"`
	TelemetrySource   *string `json:"telemetry_source,omitempty"`
}

func (h *Handler) UpdateReservoir(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjReservoirs, "write") {
		return
	}
	var req updateReservoirRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.UpdateReservoir(r.Context(), r.PathValue("id"), ledger.ReservoirUpdate{
		CurrentLevel:      req.CurrentLevel,
		Capacity:          req.Capacity,
		MaxAllowableWaste: req.MaxAllowableWaste,
		MinAllowableLevel: req.MinAllowableLevel,
		CreditRate:        req.CreditRate,
		TelemetrySource:   req.TelemetrySource,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type setLevelRequest struct {
	Level uint64 `json:"level"`
}

// SetReservoirLevel records an externally reported gauge reading.
func (h *Handler) SetReservoirLevel(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjReservoirs, "write") {
		return
	}
	var req setLevelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.SetReservoirLevel(r.Context(), r.PathValue("id"), req.Level)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
