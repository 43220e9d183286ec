package handler

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/domain"
)

// 请求和响应都支持 JSON 和 XML，默认使用 JSON
func isXML(mediaType string) bool {
	return mediaType == "application/xml" || mediaType == "text/xml"
}

func requestIsXML(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && isXML(mediaType)
}

func acceptsXML(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if mediaType == "application/json" {
			return false
		}
		if isXML(mediaType) {
			return true
		}
	}
	return false
}

func (h *Handler) readBody(r *http.Request, v any) error {
	if requestIsXML(r) {
		return xml.NewDecoder(r.Body).Decode(v)
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) writeBody(w http.ResponseWriter, r *http.Request, status int, v any) {
	if acceptsXML(r) {
		body, err := xml.Marshal(v)
		if err != nil {
			h.logInternalServerError(r, err)
			http.Error(w, "服务器内部错误", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(xml.Header))
		_, _ = w.Write(body)
		return
	}

	body, err := json.Marshal(v)
	if err != nil {
		h.logInternalServerError(r, err)
		http.Error(w, "服务器内部错误", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("服务器内部错误", "method", r.Method, "path", r.URL.Path, "error", err)
}

// ErrorResponse 是所有错误响应的固定格式
type ErrorResponse struct {
	XMLName     xml.Name `json:"-" xml:"error"`
	Status      int      `json:"status" xml:"status"`
	Reason      string   `json:"reason" xml:"reason"`
	Description string   `json:"description" xml:"description"`
	Cause       string   `json:"cause,omitempty" xml:"cause,omitempty"`
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, status int, description string, cause error) {
	resp := ErrorResponse{
		Status:      status,
		Reason:      http.StatusText(status),
		Description: description,
	}
	if cause != nil {
		resp.Cause = cause.Error()
	}

	if status >= http.StatusInternalServerError {
		h.logInternalServerError(r, cause)
	} else {
		slog.Warn("请求失败", "method", r.Method, "path", r.URL.Path, "status", status, "cause", resp.Cause)
	}

	h.writeBody(w, r, status, resp)
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.errorResponse(w, r, http.StatusBadRequest, validationErrors[0].Translate(h.translator), err)
		return
	}

	h.errorResponse(w, r, http.StatusBadRequest, "请求格式错误", err)
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.errorResponse(w, r, http.StatusInternalServerError, "服务器内部错误", err)
}

// serviceError 把领域错误转换成对应的 HTTP 状态码
func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrMalformedFilterValue):
		h.errorResponse(w, r, http.StatusBadRequest, "查询参数格式错误", err)
	case errors.Is(err, domain.ErrInvalidType):
		h.errorResponse(w, r, http.StatusBadRequest, "班次类型无效", err)
	case errors.Is(err, domain.ErrNotFound):
		h.errorResponse(w, r, http.StatusNotFound, "班次不存在", err)
	case errors.Is(err, domain.ErrConflictingOpenShift):
		h.errorResponse(w, r, http.StatusConflict, "该类型仍有进行中的班次", err)
	case errors.Is(err, domain.ErrAlreadyEnded):
		h.errorResponse(w, r, http.StatusConflict, "班次已经结束", err)
	case errors.Is(err, domain.ErrNotYetEnded):
		h.errorResponse(w, r, http.StatusConflict, "班次尚未结束", err)
	case errors.Is(err, domain.ErrAlreadyClosed):
		h.errorResponse(w, r, http.StatusConflict, "班次已经关闭", err)
	case errors.Is(err, domain.ErrTypeExists):
		h.errorResponse(w, r, http.StatusConflict, "班次类型已存在", err)
	default:
		h.internalServerError(w, r, err)
	}
}
