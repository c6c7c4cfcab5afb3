package api

import (
	"fmt"
	"net/http"

	"github.com/aquastack/aquameter/internal/auth"
	"github.com/aquastack/aquameter/internal/ledger"
	"github.com/aquastack/aquameter/internal/ratesheet"
)

// structureDTO is the wire form of a rate structure. Rates are fixed-point
// integers scaled by 1000.
type structureDTO struct {
	Kind        string `json:"kind"`
	BaseRate    uint64 `json:"base_rate"`
	ExcessRate  uint64 `json:"excess_rate,omitempty"`
	Sensitivity uint64 `json:"sensitivity,omitempty"`
}

func (d structureDTO) toStructure() (ledger.RateStructure, error) {
	switch d.Kind {
	case ledger.KindUniformBlock:
		return ledger.UniformBlock{
			BaseRate:   ledger.FixedPoint(d.BaseRate),
			ExcessRate: ledger.FixedPoint(d.ExcessRate),
		}, nil
	case ledger.KindSeasonalIncreasing:
		return ledger.SeasonalIncreasing{
			BaseRate:    ledger.FixedPoint(d.BaseRate),
			Sensitivity: ledger.FixedPoint(d.Sensitivity),
		}, nil
	case ledger.KindSeasonalDecreasing:
		return ledger.SeasonalDecreasing{
			BaseRate:    ledger.FixedPoint(d.BaseRate),
			Sensitivity: ledger.FixedPoint(d.Sensitivity),
		}, nil
	default:
		return nil, fmt.Errorf("unknown rate structure kind %q", d.Kind)
	}
}

type createTariffRequest struct {
	ID        string       `json:"id,omitempty"`
	WasteRate uint64       `json:"waste_rate"`
	Structure structureDTO `json:"structure"`
}

func (h *Handler) CreateTariff(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjTariffs, "write") {
		return
	}
	var req createTariffRequest
	if !decodeBody(w, r, &req) {
		return
	}
	structure, err := req.Structure.toStructure()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	t, err := h.svc.CreateTariff(r.Context(), req.ID, ledger.FixedPoint(req.WasteRate), structure)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) ListTariffs(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjTariffs, "read") {
		return
	}
	tariffs, err := h.svc.ListTariffs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tariffs)
}

func (h *Handler) GetTariff(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjTariffs, "read") {
		return
	}
	t, err := h.svc.GetTariff(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type updateTariffRatesRequest struct {
	WasteRate   *uint64 `json:"waste_rate,omitempty"`
	BaseRate    *uint64 `json:"base_rate,omitempty"`
	ExcessRate  *uint64 `json:"excess_rate,omitempty"`
	Sensitivity *uint64 `json:"sensitivity,omitempty"`
}

func fp(v *uint64) *ledger.FixedPoint {
	if v == nil {
		return nil
	}
	f := ledger.FixedPoint(*v)
	return &f
}

func (h *Handler) UpdateTariffRates(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjTariffs, "write") {
		return
	}
	var req updateTariffRatesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := h.svc.UpdateTariffRates(r.Context(), r.PathValue("id"), ledger.TariffRateUpdate{
		WasteRate:   fp(req.WasteRate),
		BaseRate:    fp(req.BaseRate),
		ExcessRate:  fp(req.ExcessRate),
		Sensitivity: fp(req.Sensitivity),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) UpdateTariffStructure(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjTariffs, "write") {
		return
	}
	var req structureDTO
	if !decodeBody(w, r, &req) {
		return
	}
	structure, err := req.toStructure()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	t, err := h.svc.UpdateTariffStructure(r.Context(), r.PathValue("id"), structure)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type importRateSheetRequest struct {
	Path     string `json:"path"`
	TariffID string `json:"tariff_id,omitempty"`
}

// ImportRateSheet parses a published rate-sheet PDF and creates or updates
// the tariff it describes.
func (h *Handler) ImportRateSheet(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, auth.ObjTariffs, "write") {
		return
	}
	var req importRateSheetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "path is required"})
		return
	}

	sheet, err := ratesheet.ParseFromPDF(req.Path)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	structure, err := sheet.Structure()
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}

	id := req.TariffID
	if id == "" {
		id = sheet.TariffID
	}

	// Update in place when the tariff already exists, otherwise create it.
	if id != "" {
		if _, err := h.svc.GetTariff(r.Context(), id); err == nil {
			if _, err := h.svc.UpdateTariffStructure(r.Context(), id, structure); err != nil {
				writeError(w, err)
				return
			}
			wasteRate := sheet.WasteRate
			t, err := h.svc.UpdateTariffRates(r.Context(), id, ledger.TariffRateUpdate{WasteRate: &wasteRate})
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, t)
			return
		}
	}

	t, err := h.svc.CreateTariff(r.Context(), id, sheet.WasteRate, structure)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}
