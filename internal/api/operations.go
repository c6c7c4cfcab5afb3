package api

import (
	"net/http"

	"github.com/aquastack/aquameter/internal/auth"
)

type amountRequest struct {
	Amount uint64 `json:"amount"`
}

func (h *Handler) UseWater(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjOperations, "write") {
		return
	}
	var req amountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.svc.UseWater(r.Context(), r.PathValue("id"), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) DisposeWaste(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjOperations, "write") {
		return
	}
	var req amountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := h.svc.DisposeWaste(r.Context(), r.PathValue("id"), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) PayForWater(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjOperations, "write") {
		return
	}
	var req amountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.PayForWater(r.Context(), r.PathValue("id"), req.Amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}

func (h *Handler) PayForWaste(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjOperations, "write") {
		return
	}
	var req amountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.PayForWaste(r.Context(), r.PathValue("id"), req.Amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}

func (h *Handler) RedeemCredits(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjOperations, "write") {
		return
	}
	result, err := h.svc.RedeemCredits(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
