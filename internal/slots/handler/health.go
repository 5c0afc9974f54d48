package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	httputil "testdrive/pkg/http"
	"testdrive/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

const readyTimeout = 2 * time.Second

type HealthResponse struct {
	Status string            `json:"status"`
	Stores map[string]string `json:"stores,omitempty"`
}

type Pinger interface {
	Ping(ctx context.Context) map[string]error
}

type HealthHandler struct {
	stores Pinger
	log    *logger.Logger
}

func NewHealthHandler(stores Pinger, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		stores: stores,
		log:    log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	results := h.stores.Ping(ctx)
	stores := make(map[string]string, len(results))
	var failed []string
	for name, err := range results {
		if err != nil {
			stores[name] = "error"
			failed = append(failed, name)
			continue
		}
		stores[name] = "ok"
	}

	if len(failed) > 0 {
		sort.Strings(failed)
		h.log.Error("Store health check failed",
			"stores", failed,
			"path", r.URL.Path,
		)
		httputil.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Stores: stores,
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ready",
		Stores: stores,
	})
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
