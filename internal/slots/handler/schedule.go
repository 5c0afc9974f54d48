package handler

import (
	"net/http"

	"testdrive/internal/slots/service"
	httputil "testdrive/pkg/http"
	"testdrive/pkg/logger"
	"testdrive/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ScheduleHandler struct {
	service service.ScheduleService
	log     *logger.Logger
}

func NewScheduleHandler(service service.ScheduleService, log *logger.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		service: service,
		log:     log,
	}
}

func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	schedule, err := h.service.Get(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, schedule)
}

func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var schedule model.Schedule
	if err := httputil.DecodeJSON(r, &schedule); err != nil {
		httputil.WriteError(w, err)
		return
	}

	saved, err := h.service.Update(r.Context(), &schedule)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, saved)
}

func (h *ScheduleHandler) GenerateTimeSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.GenerateSlotsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	labels, err := h.service.GenerateTimeSlots(r.Context(), &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]any{"time_slots": labels})
}

func (h *ScheduleHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/schedule", h.Get)
	router.PUT("/api/v1/schedule", h.Update)
	router.POST("/api/v1/schedule/generate", h.GenerateTimeSlots)
}
