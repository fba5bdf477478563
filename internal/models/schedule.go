// internal/models/schedule.go
package models

import "time"

type ScheduleStatus string

const (
	ScheduleScheduled ScheduleStatus = "Scheduled"
	ScheduleCancelled ScheduleStatus = "Cancelled"
	ScheduleCompleted ScheduleStatus = "Completed"
)

// Schedule binds an applicant to a booked Slot plus its external calendar
// event. Cancellation is a soft-delete: the row is retained for audit.
type Schedule struct {
	ID              string         `json:"id"`
	SlotID          string         `json:"slotId"`
	ApplicantID     string         `json:"applicantId"`
	RoundType       RoundType      `json:"roundType"`
	InterviewerID   string         `json:"interviewerId"`
	CalendarEventID string         `json:"calendarEventId,omitempty"`
	MeetingLink     string         `json:"meetingLink,omitempty"`
	Status          ScheduleStatus `json:"status"`
	CancelReason    string         `json:"cancelReason,omitempty"`
	CreatedBy       string         `json:"createdBy"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// IsActive reports whether the schedule still occupies its slot.
func (s *Schedule) IsActive() bool {
	return s.Status == ScheduleScheduled
}

// ReschedulePhase tracks progress of the two-phase reschedule saga.
type ReschedulePhase string

const (
	ReschedulePending    ReschedulePhase = "pending"
	RescheduleOldDeleted ReschedulePhase = "old_deleted"
	RescheduleCompleted  ReschedulePhase = "completed"
	RescheduleFailed     ReschedulePhase = "failed"
)

// RescheduleIntent is persisted before a reschedule touches any external
// system, so a crash mid-saga leaves a visible, resumable record instead of
// a silently dangling calendar event.
type RescheduleIntent struct {
	ID            string          `json:"id"`
	ScheduleID    string          `json:"scheduleId"`
	OldSlotID     string          `json:"oldSlotId"`
	NewSlotID     string          `json:"newSlotId"`
	OldEventID    string          `json:"oldEventId,omitempty"`
	Phase         ReschedulePhase `json:"phase"`
	FailureReason string          `json:"failureReason,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}
