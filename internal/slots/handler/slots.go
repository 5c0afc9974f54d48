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

// PathPrefix roots every slot route. Hold answers depend on live state, so
// these routes are kept out of the idempotency cache.
const PathPrefix = "/api/v1/slots/"

type SlotHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewSlotHandler(service service.AvailabilityService, log *logger.Logger) *SlotHandler {
	return &SlotHandler{
		service: service,
		log:     log,
	}
}

// GetStatus answers 503 with a fully unavailable grid when the stores cannot
// be read, so clients never render a slot as free on a failure.
func (h *SlotHandler) GetStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	params, err := httputil.RequiredQuery(r, "resource_id", "date")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sessionID := strings.TrimSpace(r.Header.Get(httputil.HeaderSessionID))

	status, err := h.service.GetSlotStatus(r.Context(), params["resource_id"], params["date"], sessionID)
	if err != nil {
		if status != nil {
			httputil.WriteErrorWithData(w, err, status)
			return
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, status)
}

func (h *SlotHandler) AcquireHold(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sessionID, err := httputil.SessionID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var key model.SlotKey
	if err := httputil.DecodeJSON(r, &key); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.AcquireHold(r.Context(), key, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !result.Granted() {
		httputil.WriteError(w, apperrors.SlotUnavailable())
		return
	}

	httputil.WriteSuccess(w, result)
}

func (h *SlotHandler) ReleaseHold(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sessionID, err := httputil.SessionID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	params, err := httputil.RequiredQuery(r, "resource_id", "date", "time_label")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	key := model.SlotKey{
		ResourceID: params["resource_id"],
		Date:       params["date"],
		TimeLabel:  params["time_label"],
	}

	if err := h.service.ReleaseHold(r.Context(), key, sessionID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

// ReleaseSessionHolds is called when a client leaves the booking flow. The
// session in the path must match the caller's own session header.
func (h *SlotHandler) ReleaseSessionHolds(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sessionID, err := httputil.SessionID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if ps.ByName("session_id") != sessionID {
		h.log.Warn("Session mismatch on bulk release", "path_session", ps.ByName("session_id"), "path", r.URL.Path)
		httputil.WriteError(w, apperrors.InvalidInput("session in path does not match X-Session-ID"))
		return
	}

	if err := h.service.ReleaseAllHolds(r.Context(), sessionID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *SlotHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET(PathPrefix+"status", h.GetStatus)
	router.POST(PathPrefix+"holds", h.AcquireHold)
	router.DELETE(PathPrefix+"holds", h.ReleaseHold)
	router.DELETE(PathPrefix+"sessions/:session_id/holds", h.ReleaseSessionHolds)
}
