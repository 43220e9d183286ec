package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/service"
	"github.com/sysu-ecnc-dev/shift-tracker/backend/internal/store"
)

const tokenCookieName = "__shift_tracker_token"

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	shifts     *service.ShiftService
	operators  store.OperatorStore
	translator ut.Translator

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, shifts *service.ShiftService, operators store.OperatorStore) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		shifts:     shifts,
		operators:  operators,
		translator: trans,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)
	h.Mux.Use(h.principal)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.auth)
			r.Get("/me", h.GetMyInfo)
			r.Patch("/me/password", h.UpdateMyPassword)
		})
	})

	// 操作员管理只允许管理员调用
	h.Mux.Route("/operators", func(r chi.Router) {
		r.Use(h.auth)
		r.Use(h.RequiredAdmin)
		r.Get("/", h.ListOperators)
		r.Post("/", h.CreateOperator)
	})

	h.Mux.Route("/shift", func(r chi.Router) {
		// 查询不要求登录
		r.Get("/", h.FindShifts)
		r.Get("/type", h.ListTypes)
		r.Get("/{type}", h.FindShiftsByType)
		r.Get("/{type}/{shiftId}", h.GetShift)

		// 以下 API 必须要在登录后才允许调用
		r.Group(func(r chi.Router) {
			r.Use(h.auth)
			r.With(h.RequiredAdmin).Post("/type", h.CreateType)
			r.Put("/start", h.StartShift)
			r.Put("/end", h.EndShift)
			r.Put("/close", h.CloseShift)
		})
	})
}
