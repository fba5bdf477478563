// Package audit indexes scheduling events into Elasticsearch. Indexing is
// best-effort: an unreachable cluster must never fail a booking.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"admissions-coordinator/internal/common/config"
	"admissions-coordinator/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
)

// Event types recorded by the coordinator.
const (
	EventBookingCreated        = "booking_created"
	EventBookingCancelled      = "booking_cancelled"
	EventBookingRescheduled    = "booking_rescheduled"
	EventReconciliationFlagged = "reconciliation_flagged"
	EventOutcomeRecorded       = "outcome_recorded"
	EventOfferSent             = "offer_sent"
)

// Event is one audit record.
type Event struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	ApplicantID string                 `json:"applicantId,omitempty"`
	ScheduleID  string                 `json:"scheduleId,omitempty"`
	Actor       string                 `json:"actor,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// Indexer writes audit events. Implementations must be safe to call with a
// short-lived context.
type Indexer interface {
	Index(ctx context.Context, event Event)
}

// ESIndexer indexes events into a single Elasticsearch index.
type ESIndexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewESIndexer(client *elasticsearch.Client, cfg config.ElasticsearchConfig, log logger.Logger) *ESIndexer {
	return &ESIndexer{
		client: client,
		index:  cfg.AuditIndex,
		logger: log.WithFields(map[string]interface{}{"component": "audit"}),
	}
}

// Index writes the event. Failures are logged and swallowed.
func (i *ESIndexer) Index(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		i.logger.Warn("audit event marshal failed", map[string]interface{}{
			"type":  event.Type,
			"error": err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := i.client.Index(i.index, bytes.NewReader(payload),
		i.client.Index.WithDocumentID(event.ID),
		i.client.Index.WithContext(ctx),
	)
	if err != nil {
		i.logger.Warn("audit index write failed", map[string]interface{}{
			"type":  event.Type,
			"error": err.Error(),
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		i.logger.Warn("audit index write rejected", map[string]interface{}{
			"type":   event.Type,
			"status": res.Status(),
		})
	}
}

// NoOpIndexer discards events; used when auditing is disabled or in tests.
type NoOpIndexer struct{}

func (NoOpIndexer) Index(context.Context, Event) {}
