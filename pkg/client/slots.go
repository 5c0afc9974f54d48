package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	apperrors "testdrive/pkg/errors"
	"testdrive/pkg/model"
)

const (
	pathSlotStatus = "/api/v1/slots/status"
	pathHolds      = "/api/v1/slots/holds"
	pathSessions   = "/api/v1/slots/sessions/"
	pathBookings   = "/api/v1/bookings"
	pathSchedule   = "/api/v1/schedule"

	headerSessionID = "X-Session-ID"
)

// SlotsClient talks to the slot service on behalf of one session. Business
// outcomes come back as result values. Errors mean the call itself failed.
type SlotsClient struct {
	http      *HttpClient
	sessionID string

	mu     sync.Mutex
	labels map[string][]string
}

func NewSlotsClient(baseURL, sessionID string) *SlotsClient {
	httpClient := NewHttpClient(baseURL)
	httpClient.Headers[headerSessionID] = sessionID
	return &SlotsClient{
		http:      httpClient,
		sessionID: sessionID,
		labels:    make(map[string][]string),
	}
}

func (c *SlotsClient) SessionID() string {
	return c.sessionID
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Details map[string]any  `json:"details"`
}

// GetSlotStatus never hands back a status that claims more availability than
// is known: on any failure the result lists every slot as unavailable.
func (c *SlotsClient) GetSlotStatus(ctx context.Context, resourceID, date string) (*model.SlotStatus, error) {
	q := url.Values{}
	q.Set("resource_id", resourceID)
	q.Set("date", date)

	resp, err := c.http.GET(ctx, pathSlotStatus+"?"+q.Encode())
	if err != nil {
		return c.closed(resourceID, date), apperrors.StoreUnavailable("get slot status", err)
	}

	env, decodeErr := decodeEnvelope(resp)
	if resp.StatusCode == http.StatusOK && decodeErr == nil {
		var status model.SlotStatus
		if err := json.Unmarshal(env.Data, &status); err == nil {
			c.remember(resourceID, date, status.Labels())
			return &status, nil
		}
	}

	// The service sends its own fail-closed view when it has one.
	if decodeErr == nil && len(env.Data) > 0 {
		var status model.SlotStatus
		if err := json.Unmarshal(env.Data, &status); err == nil && status.IsClosed() {
			c.remember(resourceID, date, status.Unavailable)
			return &status, responseError(resp, env, decodeErr)
		}
	}
	return c.closed(resourceID, date), responseError(resp, env, decodeErr)
}

func (c *SlotsClient) AcquireHold(ctx context.Context, key model.SlotKey) (model.HoldResult, error) {
	resp, err := c.http.POST(ctx, pathHolds, key)
	if err != nil {
		return model.HoldResult{}, apperrors.StoreUnavailable("acquire hold", err)
	}

	env, decodeErr := decodeEnvelope(resp)
	switch {
	case resp.StatusCode == http.StatusOK && decodeErr == nil:
		var result model.HoldResult
		if err := json.Unmarshal(env.Data, &result); err != nil {
			return model.HoldResult{}, fmt.Errorf("could not decode hold result: %w", err)
		}
		return result, nil
	case resp.StatusCode == http.StatusConflict && env.Code == apperrors.CodeSlotUnavailable:
		return model.HoldResult{Outcome: model.HoldSlotUnavailable}, nil
	default:
		return model.HoldResult{}, responseError(resp, env, decodeErr)
	}
}

func (c *SlotsClient) ReleaseHold(ctx context.Context, key model.SlotKey) error {
	q := url.Values{}
	q.Set("resource_id", key.ResourceID)
	q.Set("date", key.Date)
	q.Set("time_label", key.TimeLabel)

	resp, err := c.http.DELETE(ctx, pathHolds+"?"+q.Encode())
	if err != nil {
		return apperrors.StoreUnavailable("release hold", err)
	}
	return expectNoContent(resp)
}

func (c *SlotsClient) ReleaseAllHolds(ctx context.Context) error {
	resp, err := c.http.DELETE(ctx, pathSessions+url.PathEscape(c.sessionID)+"/holds")
	if err != nil {
		return apperrors.StoreUnavailable("release session holds", err)
	}
	return expectNoContent(resp)
}

func (c *SlotsClient) Finalize(ctx context.Context, key model.SlotKey, registrant model.Registrant) (model.FinalizeResult, error) {
	resp, err := c.http.POST(ctx, pathBookings, model.FinalizeRequest{SlotKey: key, Registrant: registrant})
	if err != nil {
		return model.FinalizeResult{}, apperrors.StoreUnavailable("finalize booking", err)
	}

	env, decodeErr := decodeEnvelope(resp)
	switch {
	case resp.StatusCode == http.StatusCreated && decodeErr == nil:
		var booking model.Booking
		if err := json.Unmarshal(env.Data, &booking); err != nil {
			return model.FinalizeResult{}, fmt.Errorf("could not decode booking: %w", err)
		}
		return model.FinalizeResult{Outcome: model.FinalizeConfirmed, Booking: &booking}, nil
	case resp.StatusCode == http.StatusConflict && env.Code == apperrors.CodeSlotTaken:
		return model.FinalizeResult{Outcome: model.FinalizeSlotTaken}, nil
	default:
		return model.FinalizeResult{}, responseError(resp, env, decodeErr)
	}
}

func (c *SlotsClient) GetSchedule(ctx context.Context) (*model.Schedule, error) {
	resp, err := c.http.GET(ctx, pathSchedule)
	if err != nil {
		return nil, apperrors.StoreUnavailable("get schedule", err)
	}

	env, decodeErr := decodeEnvelope(resp)
	if resp.StatusCode != http.StatusOK || decodeErr != nil {
		return nil, responseError(resp, env, decodeErr)
	}

	var schedule model.Schedule
	if err := json.Unmarshal(env.Data, &schedule); err != nil {
		return nil, fmt.Errorf("could not decode schedule: %w", err)
	}
	c.mu.Lock()
	c.labels[""] = schedule.TimeSlots
	c.mu.Unlock()
	return &schedule, nil
}

func (c *SlotsClient) remember(resourceID, date string, labels []string) {
	if len(labels) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.labels[resourceID+"|"+date] = labels
}

// closed builds a fail-closed status from the last labels seen for this
// resource/date, falling back to the schedule's labels.
func (c *SlotsClient) closed(resourceID, date string) *model.SlotStatus {
	c.mu.Lock()
	labels, ok := c.labels[resourceID+"|"+date]
	if !ok {
		labels = c.labels[""]
	}
	c.mu.Unlock()
	return model.ClosedSlotStatus(resourceID, date, labels, time.Now().UTC())
}

func decodeEnvelope(resp *Response) (envelope, error) {
	var env envelope
	if len(resp.Body) == 0 {
		return env, nil
	}
	err := json.Unmarshal(resp.Body, &env)
	return env, err
}

func expectNoContent(resp *Response) error {
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
		return nil
	}
	env, decodeErr := decodeEnvelope(resp)
	return responseError(resp, env, decodeErr)
}

// responseError turns a non-success response back into an AppError. 5xx
// responses are reported as retryable store failures.
func responseError(resp *Response, env envelope, decodeErr error) error {
	if resp.StatusCode >= http.StatusInternalServerError || decodeErr != nil {
		cause := fmt.Errorf("unexpected response: %s", resp.String())
		if env.Code != "" && env.Code != apperrors.CodeStoreUnavailable {
			return apperrors.New(env.Code, env.Error, resp.StatusCode)
		}
		return apperrors.StoreUnavailable("remote call", cause)
	}
	code := env.Code
	if code == "" {
		code = apperrors.CodeBadRequest
	}
	return apperrors.New(code, env.Error, resp.StatusCode).WithDetails(env.Details)
}
