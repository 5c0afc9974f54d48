package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "testdrive/pkg/errors"
	httputil "testdrive/pkg/http"
	"testdrive/pkg/logger"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Code
}

func TestRequestLogging_SetsRequestID(t *testing.T) {
	var seen string
	h := RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/schedule", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schedule", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "req-123", seen)
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperrors.CodeInternal, errorCode(t, w))
}

func TestContentTypeValidation(t *testing.T) {
	tests := []struct {
		method      string
		contentType string
		want        int
	}{
		{http.MethodPost, "application/json", http.StatusOK},
		{http.MethodPost, "application/json; charset=utf-8", http.StatusOK},
		{http.MethodPut, "text/plain", http.StatusUnsupportedMediaType},
		{http.MethodPost, "", http.StatusUnsupportedMediaType},
		{http.MethodDelete, "", http.StatusOK},
		{http.MethodGet, "", http.StatusOK},
	}

	h := ContentTypeValidation(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.contentType, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/slots/holds", strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	h := MaxRequestSize(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var v map[string]any
		if err := httputil.DecodeJSON(r, &v); err != nil {
			httputil.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"`+strings.Repeat("x", 64)+`"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, apperrors.CodePayloadTooLarge, errorCode(t, w))

	// Without a declared length the body is still capped.
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"`+strings.Repeat("x", 64)+`"}`))
	req.ContentLength = -1
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan struct{})
	slow := RequestTimeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(finished)
		<-release
		w.Header().Set("X-Late", "1")
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	slow.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	close(release)
	<-finished
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, apperrors.CodeTimeout, errorCode(t, w))
	assert.Empty(t, w.Header().Get("X-Late"))

	fast := RequestTimeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Fast", "1")
		w.WriteHeader(http.StatusCreated)
	}))
	w = httptest.NewRecorder()
	fast.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-Fast"))
}

func TestSessionRateLimiter_Allow(t *testing.T) {
	rl := NewSessionRateLimiter(2, time.Minute, nil, logger.Discard())
	defer rl.Stop()

	now := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("session:a"))
	assert.True(t, rl.Allow("session:a"))
	assert.False(t, rl.Allow("session:a"))
	assert.True(t, rl.Allow("session:b"))
	assert.True(t, rl.Allow(""))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("session:a"))

	now = now.Add(2 * time.Minute)
	rl.evictIdle()
	rl.mu.Lock()
	assert.Empty(t, rl.requests)
	rl.mu.Unlock()
}

func TestSessionRateLimit_Middleware(t *testing.T) {
	rl := NewSessionRateLimiter(1, time.Minute, nil, logger.Discard())
	defer rl.Stop()
	h := SessionRateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(session string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/slots/holds", nil)
		req.Header.Set(httputil.HeaderSessionID, session)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("sessA").Code)
	w := send("sessA")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, apperrors.CodeRateLimited, errorCode(t, w))
	assert.Equal(t, http.StatusOK, send("sessB").Code)
}

func TestDefaultKeyExtractor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	assert.Equal(t, "addr:10.0.0.7", DefaultKeyExtractor(req))

	req.Header.Set(httputil.HeaderSessionID, " sessA ")
	assert.Equal(t, "session:sessA", DefaultKeyExtractor(req))
}

func TestIdempotency_ReplaysSuccess(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls atomic.Int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		httputil.WriteCreated(w, map[string]int32{"call": n})
	}))

	send := func(session, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader("{}"))
		req.Header.Set(httputil.HeaderSessionID, session)
		req.Header.Set(DefaultIdempotencyHeader, key)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	first := send("sessA", "k1")
	second := send("sessA", "k1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, int32(1), calls.Load())

	send("sessB", "k1")
	assert.Equal(t, int32(2), calls.Load())
}

func TestIdempotency_UncachedPrefixAlwaysReachesHandler(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls atomic.Int32
	h := Idempotency(store, "", "/api/v1/slots/")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		httputil.WriteSuccess(w, map[string]int32{"call": n})
	}))

	for i := 1; i <= 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/slots/holds", strings.NewReader("{}"))
		req.Header.Set(httputil.HeaderSessionID, "sessA")
		req.Header.Set(DefaultIdempotencyHeader, "retry-1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Idempotent-Replayed"))
		assert.Equal(t, int32(i), calls.Load())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader("{}"))
	req.Header.Set(DefaultIdempotencyHeader, "retry-1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, int32(3), calls.Load())
}

func TestIdempotency_DoesNotCacheFailures(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls atomic.Int32
	h := Idempotency(store, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		httputil.WriteError(w, apperrors.SlotTaken())
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil)
		req.Header.Set(DefaultIdempotencyHeader, "k1")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestRedisIdempotencyStore_Get(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisIdempotencyStore(db, time.Minute, logger.Discard())
	ctx := context.Background()

	cached, err := json.Marshal(CachedResponse{StatusCode: http.StatusCreated, Body: []byte(`{"data":{}}`)})
	require.NoError(t, err)

	mock.ExpectGet("idempotency:hit").SetVal(string(cached))
	mock.ExpectGet("idempotency:miss").RedisNil()
	mock.ExpectGet("idempotency:down").SetErr(errors.New("connection refused"))

	got, ok := store.Get(ctx, "hit")
	require.True(t, ok)
	assert.Equal(t, http.StatusCreated, got.StatusCode)
	assert.JSONEq(t, `{"data":{}}`, string(got.Body))

	_, ok = store.Get(ctx, "miss")
	assert.False(t, ok)

	_, ok = store.Get(ctx, "down")
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}
