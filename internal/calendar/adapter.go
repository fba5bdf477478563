// Package calendar integrates with the external calendar/video-meeting
// provider that backs interview bookings.
package calendar

import (
	"context"
	"time"
)

// EventRequest describes the meeting to create.
type EventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	TimeZone    string    `json:"timeZone,omitempty"`
	Attendees   []string  `json:"attendees"`
}

// EventResult is the provider's handle for a created meeting. MeetingLink
// may be empty when the provider does not attach conferencing.
type EventResult struct {
	EventID     string `json:"eventId"`
	MeetingLink string `json:"meetingLink,omitempty"`
}

// Adapter is the collaborator contract the booking coordinator depends on.
// CreateEvent is a required step (failures abort the booking); DeleteEvent
// is best-effort on the cancellation paths.
type Adapter interface {
	CreateEvent(ctx context.Context, req *EventRequest) (*EventResult, error)
	DeleteEvent(ctx context.Context, eventID string) error
}
