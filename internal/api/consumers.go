package api

import (
	"net/http"

	"github.com/aquastack/aquameter/internal/auth"
	"github.com/aquastack/aquameter/internal/ledger"
)

type registerConsumerRequest struct {
	ID                      string `json:"id,omitempty"`
	TariffID                string `json:"tariff_id"`
	ReservoirID             string `json:"reservoir_id"`
	ContractedCapacity      uint64 `json:"contracted_capacity"`
	ContractedWasteCapacity uint64 `json:"contracted_waste_capacity"`
	BlockRate               uint64 `json:"block_rate,omitempty"`
}

func (h *Handler) RegisterConsumer(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjConsumers, "write") {
		return
	}
	var req registerConsumerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.svc.RegisterConsumer(r.Context(), req.ID, ledger.ConsumerParams{
		TariffID:                req.TariffID,
		ReservoirID:             req.ReservoirID,
		ContractedCapacity:      req.ContractedCapacity,
		ContractedWasteCapacity: req.ContractedWasteCapacity,
		BlockRate:               req.BlockRate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) GetConsumer(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjConsumers, "read") {
		return
	}
	c, err := h.svc.GetConsumer(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type updateConsumerRequest struct {
	ContractedCapacity      *uint64 `json:"contracted_capacity,omitempty"`
	ContractedWasteCapacity *uint64 `json:"contracted_waste_capacity,omitempty"`
	BlockRate               *uint64 `json:"block_rate,omitempty"`
}

func (h *Handler) UpdateConsumer(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjConsumers, "write") {
		return
	}
	var req updateConsumerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.svc.UpdateConsumer(r.Context(), r.PathValue("id"), ledger.ConsumerUpdate{
		ContractedCapacity:      req.ContractedCapacity,
		ContractedWasteCapacity: req.ContractedWasteCapacity,
		BlockRate:               req.BlockRate,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type reassignRequest struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// ReassignTariff moves a consumer to a new tariff. The request must name the
// tariff the caller believes is currently assigned.
func (h *Handler) ReassignTariff(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjConsumers, "write") {
		return
	}
	var req reassignRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.svc.ReassignTariff(r.Context(), r.PathValue("id"), req.Old, req.New)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) ReassignReservoir(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjConsumers, "write") {
		return
	}
	var req reassignRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.svc.ReassignReservoir(r.Context(), r.PathValue("id"), req.Old, req.New)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjConsumers, "read") {
		return
	}
	v, err := h.svc.Balances(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
