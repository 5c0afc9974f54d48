package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "testdrive/pkg/errors"
	httputil "testdrive/pkg/http"
	"testdrive/pkg/logger"
	"testdrive/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h interface{ RegisterRoutes(*httprouter.Router) }, req *http.Request) *httptest.ResponseRecorder {
	router := httprouter.New()
	h.RegisterRoutes(router)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSlotHandler_GetStatus(t *testing.T) {
	var gotSession string
	svc := &mockAvailabilityService{
		getSlotStatusFunc: func(ctx context.Context, resourceID, date, sessionID string) (*model.SlotStatus, error) {
			gotSession = sessionID
			return &model.SlotStatus{ResourceID: resourceID, Date: date, Free: []string{"10:00 AM"}}, nil
		},
	}
	h := NewSlotHandler(svc, logger.Discard())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots/status?resource_id=car1&date=2025-12-05", nil)
	req.Header.Set(httputil.HeaderSessionID, "sessA")
	w := serve(h, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sessA", gotSession)

	var body struct {
		Data model.SlotStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"10:00 AM"}, body.Data.Free)
}

func TestSlotHandler_GetStatus_MissingQuery(t *testing.T) {
	h := NewSlotHandler(&mockAvailabilityService{}, logger.Discard())

	w := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/slots/status?resource_id=car1", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Error, "date")
}

func TestSlotHandler_GetStatus_FailsClosed(t *testing.T) {
	svc := &mockAvailabilityService{
		getSlotStatusFunc: func(ctx context.Context, resourceID, date, sessionID string) (*model.SlotStatus, error) {
			closed := model.ClosedSlotStatus(resourceID, date, []string{"10:00 AM", "10:20 AM"}, time.Now())
			return closed, apperrors.StoreUnavailable("list holds", errors.New("timeout"))
		},
	}
	h := NewSlotHandler(svc, logger.Discard())

	w := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/slots/status?resource_id=car1&date=2025-12-05", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	var body struct {
		Code string           `json:"code"`
		Data model.SlotStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeStoreUnavailable, body.Code)
	assert.Equal(t, []string{"10:00 AM", "10:20 AM"}, body.Data.Unavailable)
	assert.Empty(t, body.Data.Free)
}

func TestSlotHandler_AcquireHold(t *testing.T) {
	tests := []struct {
		name       string
		session    string
		body       string
		result     model.HoldResult
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "granted",
			session:    "sessA",
			body:       `{"resource_id":"car1","date":"2025-12-05","time_label":"10:00 AM"}`,
			result:     model.HoldResult{Outcome: model.HoldGranted, Hold: &model.Hold{SessionID: "sessA"}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "slot unavailable",
			session:    "sessA",
			body:       `{"resource_id":"car1","date":"2025-12-05","time_label":"10:00 AM"}`,
			result:     model.HoldResult{Outcome: model.HoldSlotUnavailable},
			wantStatus: http.StatusConflict,
			wantCode:   apperrors.CodeSlotUnavailable,
		},
		{
			name:       "missing session",
			body:       `{"resource_id":"car1","date":"2025-12-05","time_label":"10:00 AM"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeMissingSession,
		},
		{
			name:       "malformed body",
			session:    "sessA",
			body:       `{"resource_id":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeInvalidInput,
		},
		{
			name:       "unknown field",
			session:    "sessA",
			body:       `{"resource_id":"car1","slot":"x"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeInvalidInput,
		},
		{
			name:       "invalid key",
			session:    "sessA",
			body:       `{"resource_id":"car1","date":"2025-12-05","time_label":"noon"}`,
			err:        apperrors.InvalidSlotKey("unknown time label"),
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeInvalidSlotKey,
		},
		{
			name:       "store failure",
			session:    "sessA",
			body:       `{"resource_id":"car1","date":"2025-12-05","time_label":"10:00 AM"}`,
			err:        apperrors.StoreUnavailable("insert hold", errors.New("down")),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   apperrors.CodeStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotKey model.SlotKey
			svc := &mockAvailabilityService{
				acquireHoldFunc: func(ctx context.Context, key model.SlotKey, sessionID string) (model.HoldResult, error) {
					gotKey = key
					return tt.result, tt.err
				},
			}
			h := NewSlotHandler(svc, logger.Discard())

			req := httptest.NewRequest(http.MethodPost, "/api/v1/slots/holds", strings.NewReader(tt.body))
			if tt.session != "" {
				req.Header.Set(httputil.HeaderSessionID, tt.session)
			}
			w := serve(h, req)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, w).Code)
				return
			}
			assert.Equal(t, "car1", gotKey.ResourceID)
			assert.Equal(t, "10:00 AM", gotKey.TimeLabel)
		})
	}
}

func TestSlotHandler_ReleaseHold(t *testing.T) {
	var gotKey model.SlotKey
	var gotSession string
	svc := &mockAvailabilityService{
		releaseHoldFunc: func(ctx context.Context, key model.SlotKey, sessionID string) error {
			gotKey, gotSession = key, sessionID
			return nil
		},
	}
	h := NewSlotHandler(svc, logger.Discard())

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/slots/holds?resource_id=car1&date=2025-12-05&time_label=10%3A00+AM", nil)
	req.Header.Set(httputil.HeaderSessionID, "sessA")
	w := serve(h, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, model.SlotKey{ResourceID: "car1", Date: "2025-12-05", TimeLabel: "10:00 AM"}, gotKey)
	assert.Equal(t, "sessA", gotSession)
}

func TestSlotHandler_ReleaseSessionHolds(t *testing.T) {
	var released []string
	svc := &mockAvailabilityService{
		releaseAllHoldsFunc: func(ctx context.Context, sessionID string) error {
			released = append(released, sessionID)
			return nil
		},
	}
	h := NewSlotHandler(svc, logger.Discard())

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/slots/sessions/sessA/holds", nil)
	req.Header.Set(httputil.HeaderSessionID, "sessA")
	assert.Equal(t, http.StatusNoContent, serve(h, req).Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/slots/sessions/sessB/holds", nil)
	req.Header.Set(httputil.HeaderSessionID, "sessA")
	assert.Equal(t, http.StatusBadRequest, serve(h, req).Code)

	assert.Equal(t, []string{"sessA"}, released)
}
