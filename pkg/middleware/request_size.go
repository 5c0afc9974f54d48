package middleware

import (
	"net/http"

	apperrors "testdrive/pkg/errors"
	httputil "testdrive/pkg/http"
)

// MaxRequestSize rejects bodies that declare a larger length up front and
// caps the rest, so the JSON decoder fails instead of reading without bound.
func MaxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				httputil.WriteError(w, apperrors.PayloadTooLarge(limit))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
