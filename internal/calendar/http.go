package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"admissions-coordinator/internal/common/config"
	"admissions-coordinator/internal/common/httpclient"
	"admissions-coordinator/internal/common/logger"
	"admissions-coordinator/internal/common/metrics"
)

// HTTPAdapter talks to the calendar provider's REST API.
type HTTPAdapter struct {
	baseURL       string
	apiKey        string
	createTimeout time.Duration
	deleteTimeout time.Duration
	timeZone      string
	client        *httpclient.Client
	logger        logger.Logger
}

func NewHTTPAdapter(cfg config.CalendarConfig, log logger.Logger) *HTTPAdapter {
	createTimeout := config.GetDuration(cfg.CreateTimeout)
	deleteTimeout := config.GetDuration(cfg.DeleteTimeout)

	// The shared client timeout is the larger of the two; per-call
	// contexts below enforce the tighter bounds.
	clientTimeout := createTimeout
	if deleteTimeout > clientTimeout {
		clientTimeout = deleteTimeout
	}

	return &HTTPAdapter{
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		createTimeout: createTimeout,
		deleteTimeout: deleteTimeout,
		timeZone:      cfg.DefaultTimeZone,
		client:        httpclient.NewClient(clientTimeout),
		logger:        log.WithFields(map[string]interface{}{"component": "calendar"}),
	}
}

// CreateEvent creates a meeting and returns the provider's event id plus
// the join link when one is issued.
func (a *HTTPAdapter) CreateEvent(ctx context.Context, req *EventRequest) (*EventResult, error) {
	if req.TimeZone == "" {
		req.TimeZone = a.timeZone
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.createTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create event request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	start := time.Now()
	resp, err := a.client.Do(httpReq)
	metrics.CalendarCallDuration.WithLabelValues("create").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("calendar create failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("calendar create returned status %d: %s", resp.StatusCode, string(payload))
	}

	var result EventResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode event response: %w", err)
	}
	if result.EventID == "" {
		return nil, fmt.Errorf("calendar create returned no event id")
	}

	a.logger.Info("calendar event created", map[string]interface{}{
		"eventId": result.EventID,
		"start":   req.Start,
	})

	return &result, nil
}

// DeleteEvent removes a meeting. 404 counts as success: the event is gone
// either way.
func (a *HTTPAdapter) DeleteEvent(ctx context.Context, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, a.deleteTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, a.baseURL+"/events/"+eventID, nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	start := time.Now()
	resp, err := a.client.Do(httpReq)
	metrics.CalendarCallDuration.WithLabelValues("delete").Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("calendar delete failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		a.logger.Warn("calendar event already gone", map[string]interface{}{"eventId": eventID})
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("calendar delete returned status %d: %s", resp.StatusCode, string(payload))
	}

	return nil
}
