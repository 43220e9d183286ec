package handler

import (
	"encoding/xml"
	"errors"
	"net/http"

	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

type operatorsResponse struct {
	XMLName   xml.Name           `json:"-" xml:"operators"`
	Operators []*domain.Operator `json:"operators" xml:"operator"`
}

func (h *Handler) ListOperators(w http.ResponseWriter, r *http.Request) {
	operators, err := h.operators.ListOperators(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.writeBody(w, r, http.StatusOK, operatorsResponse{Operators: operators})
}

func (h *Handler) CreateOperator(w http.ResponseWriter, r *http.Request) {
	var req struct {
		XMLName  xml.Name `json:"-" xml:"operator"`
		Username string   `json:"username" xml:"username" validate:"required,max=64"`
		Password string   `json:"password" xml:"password" validate:"required,min=8,max=72"`
		IsAdmin  bool     `json:"isAdmin" xml:"isAdmin"`
	}

	if err := h.readBody(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 对密码进行哈希
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	op := &domain.Operator{
		Username:     req.Username,
		PasswordHash: string(hashedPassword),
		IsAdmin:      req.IsAdmin,
	}

	if err := h.operators.CreateOperator(r.Context(), op); err != nil {
		switch {
		case errors.Is(err, domain.ErrOperatorExists):
			h.errorResponse(w, r, http.StatusConflict, "用户名已存在", err)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.writeBody(w, r, http.StatusCreated, op)
}
