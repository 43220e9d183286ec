package handler

import (
	"encoding/xml"
	"errors"
	"net/http"

	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) GetMyInfo(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())

	op, err := h.operators.GetOperatorByUsername(r.Context(), p.Username)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// 令牌有效但操作员已被删除
			h.errorResponse(w, r, http.StatusUnauthorized, "操作员不存在", nil)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.writeBody(w, r, http.StatusOK, struct {
		XMLName xml.Name `json:"-" xml:"operator"`
		*domain.Operator
	}{Operator: op})
}

func (h *Handler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())

	var req struct {
		XMLName     xml.Name `json:"-" xml:"password"`
		OldPassword string   `json:"oldPassword" xml:"oldPassword" validate:"required"`
		NewPassword string   `json:"newPassword" xml:"newPassword" validate:"required,min=8,max=72"`
	}

	if err := h.readBody(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	op, err := h.operators.GetOperatorByUsername(r.Context(), p.Username)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.errorResponse(w, r, http.StatusUnauthorized, "操作员不存在", nil)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.OldPassword)); err != nil {
		switch {
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			h.errorResponse(w, r, http.StatusBadRequest, "旧密码错误", nil)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.operators.UpdateOperatorPassword(r.Context(), op.Username, string(hashedPassword)); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.errorResponse(w, r, http.StatusUnauthorized, "操作员不存在", nil)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
