package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"testdrive/pkg/config"
	apperrors "testdrive/pkg/errors"
)

const HeaderSessionID = "X-Session-ID"

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64 = 0
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = v
	}

	return config.NormalizePaginationLimit(limit), config.NormalizeOffset(offset), nil
}

// SessionID returns the caller's session token. It is opaque and not tied
// to authentication.
func SessionID(r *http.Request) (string, error) {
	sessionID := strings.TrimSpace(r.Header.Get(HeaderSessionID))
	if sessionID == "" {
		return "", apperrors.MissingSession()
	}
	if len(sessionID) > 128 {
		return "", apperrors.InvalidInput("X-Session-ID header is too long")
	}
	return sessionID, nil
}

func RequiredQuery(r *http.Request, names ...string) (map[string]string, error) {
	query := r.URL.Query()
	values := make(map[string]string, len(names))
	var missing []string
	for _, name := range names {
		v := strings.TrimSpace(query.Get(name))
		if v == "" {
			missing = append(missing, name)
			continue
		}
		values[name] = v
	}
	if len(missing) > 0 {
		return nil, apperrors.InvalidInput("missing required query parameters: " + strings.Join(missing, ", "))
	}
	return values, nil
}

func DecodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return apperrors.InvalidInput("invalid JSON body: " + err.Error())
	}
	return nil
}
