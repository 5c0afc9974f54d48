package handler

import (
	"net/http"
	"strings"

	"testdrive/internal/slots/service"
	apperrors "testdrive/pkg/errors"
	httputil "testdrive/pkg/http"
	"testdrive/pkg/logger"
	"testdrive/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

// Finalize does not require a session. When one is sent, its hold on the slot
// is released once the booking is stored.
func (h *BookingHandler) Finalize(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.FinalizeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	sessionID := strings.TrimSpace(r.Header.Get(httputil.HeaderSessionID))

	result, err := h.service.Finalize(r.Context(), &req, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !result.Confirmed() {
		httputil.WriteError(w, apperrors.SlotTaken())
		return
	}

	httputil.WriteCreated(w, result.Booking)
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, booking)
}

func (h *BookingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	bookings, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, bookings, total, limit, offset)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Cancel(r.Context(), ps.ByName("id")); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Finalize)
	router.GET("/api/v1/bookings", h.GetAll)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.DELETE("/api/v1/bookings/id/:id", h.Cancel)
}
