package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"admissions-coordinator/internal/common/config"
	"admissions-coordinator/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) (*HTTPAdapter, *httptest.Server) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.CalendarConfig{
		BaseURL:         srv.URL,
		APIKey:          "test-key",
		CreateTimeout:   2000,
		DeleteTimeout:   1000,
		DefaultTimeZone: "UTC",
	}
	return NewHTTPAdapter(cfg, logger.NewTestLogger(t)), srv
}

func TestCreateEvent_Success(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/events", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req EventRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "LR Interview", req.Title)
		assert.Equal(t, "UTC", req.TimeZone)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(EventResult{
			EventID:     "evt-123",
			MeetingLink: "https://meet.example.com/evt-123",
		})
	})

	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	result, err := adapter.CreateEvent(context.Background(), &EventRequest{
		Title:     "LR Interview",
		Start:     start,
		End:       start.Add(time.Hour),
		Attendees: []string{"applicant@example.com", "interviewer@example.com"},
	})

	require.NoError(t, err)
	assert.Equal(t, "evt-123", result.EventID)
	assert.Equal(t, "https://meet.example.com/evt-123", result.MeetingLink)
}

func TestCreateEvent_ProviderError(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	})

	result, err := adapter.CreateEvent(context.Background(), &EventRequest{Title: "x"})

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "502")
}

func TestCreateEvent_MissingEventID(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	result, err := adapter.CreateEvent(context.Background(), &EventRequest{Title: "x"})

	assert.Error(t, err)
	assert.Nil(t, result)
}

func TestDeleteEvent_Success(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/events/evt-123", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	assert.NoError(t, adapter.DeleteEvent(context.Background(), "evt-123"))
}

func TestDeleteEvent_NotFoundIsSuccess(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	assert.NoError(t, adapter.DeleteEvent(context.Background(), "evt-gone"))
}

func TestDeleteEvent_ProviderError(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	assert.Error(t, adapter.DeleteEvent(context.Background(), "evt-123"))
}
