package handler

import (
	"encoding/xml"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/service"
)

func (h *Handler) FindShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := h.shifts.FindShifts(r.Context(), r.URL.Query())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeBody(w, r, http.StatusOK, domain.Shifts{Shifts: shifts})
}

func (h *Handler) FindShiftsByType(w http.ResponseWriter, r *http.Request) {
	typeName := chi.URLParam(r, "type")

	shifts, err := h.shifts.FindShiftsByType(r.Context(), typeName, r.URL.Query())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeBody(w, r, http.StatusOK, domain.Shifts{Shifts: shifts})
}

func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	typeName := chi.URLParam(r, "type")
	shiftIDParam := chi.URLParam(r, "shiftId")
	shiftID, err := strconv.ParseInt(shiftIDParam, 10, 64)
	if err != nil {
		h.serviceError(w, r, &domain.MalformedFilterValueError{Key: "shiftId", Value: shiftIDParam})
		return
	}

	shift, err := h.shifts.GetShiftByType(r.Context(), typeName, shiftID)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeBody(w, r, http.StatusOK, shift)
}

func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.shifts.ListTypes(r.Context())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeBody(w, r, http.StatusOK, domain.Types{Types: types})
}

func (h *Handler) CreateType(w http.ResponseWriter, r *http.Request) {
	var req struct {
		XMLName xml.Name `json:"-" xml:"type"`
		Name    string   `json:"name" xml:"name" validate:"required,max=255"`
	}

	if err := h.readBody(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	p, _ := principalFromContext(r.Context())
	typ, err := h.shifts.CreateType(r.Context(), p.Username, req.Name)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeBody(w, r, http.StatusCreated, typ)
}

func (h *Handler) StartShift(w http.ResponseWriter, r *http.Request) {
	var req struct {
		XMLName         xml.Name `json:"-" xml:"shift"`
		Type            string   `json:"type" xml:"type" validate:"required"`
		Owner           string   `json:"owner" xml:"owner"`
		Description     string   `json:"description" xml:"description"`
		LeadOperator    string   `json:"leadOperator" xml:"leadOperator"`
		OnShiftPersonal string   `json:"onShiftPersonal" xml:"onShiftPersonal"`
	}

	if err := h.readBody(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	p, _ := principalFromContext(r.Context())
	shift, err := h.shifts.StartShift(r.Context(), p.Username, service.StartParams{
		Type:            req.Type,
		Owner:           req.Owner,
		Description:     req.Description,
		LeadOperator:    req.LeadOperator,
		OnShiftPersonal: req.OnShiftPersonal,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeBody(w, r, http.StatusOK, shift)
}

// shiftUpdateRequest 只接收可变字段，请求体中的负责人、开始时间等字段会被忽略
type shiftUpdateRequest struct {
	XMLName         xml.Name `json:"-" xml:"shift"`
	ID              int64    `json:"id" xml:"id" validate:"required,gt=0"`
	Description     *string  `json:"description" xml:"description"`
	OnShiftPersonal *string  `json:"onShiftPersonal" xml:"onShiftPersonal"`
	Report          *string  `json:"report" xml:"report"`
}

func (req shiftUpdateRequest) patch() domain.ShiftPatch {
	return domain.ShiftPatch{
		Description:     req.Description,
		OnShiftPersonal: req.OnShiftPersonal,
		Report:          req.Report,
	}
}

func (h *Handler) readShiftUpdate(w http.ResponseWriter, r *http.Request) (shiftUpdateRequest, bool) {
	var req shiftUpdateRequest
	if err := h.readBody(r, &req); err != nil {
		h.badRequest(w, r, err)
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return req, false
	}
	return req, true
}

func (h *Handler) EndShift(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readShiftUpdate(w, r)
	if !ok {
		return
	}

	p, _ := principalFromContext(r.Context())
	shift, err := h.shifts.EndShift(r.Context(), p.Username, req.ID, req.patch())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeBody(w, r, http.StatusOK, shift)
}

func (h *Handler) CloseShift(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readShiftUpdate(w, r)
	if !ok {
		return
	}

	p, _ := principalFromContext(r.Context())
	shift, err := h.shifts.CloseShift(r.Context(), p.Username, req.ID, req.patch())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeBody(w, r, http.StatusOK, shift)
}
