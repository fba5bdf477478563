// Package schedulestore persists interview schedules and the two-phase
// reschedule intents that protect them across partial failures.
package schedulestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"admissions-coordinator/internal/common/logger"
	"admissions-coordinator/internal/models"

	"github.com/google/uuid"
)

var ErrScheduleNotFound = errors.New("SCHEDULE_NOT_FOUND")

type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "schedulestore"}),
	}
}

// Create inserts a new schedule row. The id is assigned here when empty.
func (s *Store) Create(ctx context.Context, sched *models.Schedule) error {
	if sched.ID == "" {
		sched.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	sched.CreatedAt = now
	sched.UpdatedAt = now
	if sched.Status == "" {
		sched.Status = models.ScheduleScheduled
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interview_schedules
			(id, slot_id, applicant_id, round_type, interviewer_id,
			 calendar_event_id, meeting_link, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sched.ID, sched.SlotID, sched.ApplicantID, sched.RoundType, sched.InterviewerID,
		sched.CalendarEventID, sched.MeetingLink, sched.Status, sched.CreatedBy,
		sched.CreatedAt, sched.UpdatedAt)
	if err != nil {
		return fmt.Errorf("schedule insert failed: %w", err)
	}

	s.logger.Info("schedule created", map[string]interface{}{
		"scheduleId":  sched.ID,
		"applicantId": sched.ApplicantID,
		"roundType":   sched.RoundType,
	})
	return nil
}

// Get returns the schedule by id.
func (s *Store) Get(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	var sched models.Schedule
	err := s.db.QueryRowContext(ctx, `
		SELECT id, slot_id, applicant_id, round_type, interviewer_id,
		       calendar_event_id, meeting_link, status, cancel_reason,
		       created_by, created_at, updated_at
		FROM interview_schedules
		WHERE id = $1`, scheduleID).
		Scan(&sched.ID, &sched.SlotID, &sched.ApplicantID, &sched.RoundType,
			&sched.InterviewerID, &sched.CalendarEventID, &sched.MeetingLink,
			&sched.Status, &sched.CancelReason, &sched.CreatedBy,
			&sched.CreatedAt, &sched.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrScheduleNotFound, scheduleID)
	}
	if err != nil {
		return nil, fmt.Errorf("schedule lookup failed: %w", err)
	}
	return &sched, nil
}

// HasActiveForRound reports whether the applicant already holds a live
// booking for the round type. One active booking per round is the rule.
func (s *Store) HasActiveForRound(ctx context.Context, applicantID string, roundType models.RoundType) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1)
		FROM interview_schedules
		WHERE applicant_id = $1 AND round_type = $2 AND status = $3`,
		applicantID, roundType, models.ScheduleScheduled).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("active schedule check failed: %w", err)
	}
	return count > 0, nil
}

// FindByApplicant returns all schedules for an applicant, newest first.
func (s *Store) FindByApplicant(ctx context.Context, applicantID string) ([]models.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slot_id, applicant_id, round_type, interviewer_id,
		       calendar_event_id, meeting_link, status, cancel_reason,
		       created_by, created_at, updated_at
		FROM interview_schedules
		WHERE applicant_id = $1
		ORDER BY created_at DESC`, applicantID)
	if err != nil {
		return nil, fmt.Errorf("schedule listing failed: %w", err)
	}
	defer rows.Close()

	var schedules []models.Schedule
	for rows.Next() {
		var sched models.Schedule
		if err := rows.Scan(&sched.ID, &sched.SlotID, &sched.ApplicantID, &sched.RoundType,
			&sched.InterviewerID, &sched.CalendarEventID, &sched.MeetingLink,
			&sched.Status, &sched.CancelReason, &sched.CreatedBy,
			&sched.CreatedAt, &sched.UpdatedAt); err != nil {
			return nil, fmt.Errorf("schedule scan failed: %w", err)
		}
		schedules = append(schedules, sched)
	}
	return schedules, rows.Err()
}

// UpdateSlotBinding moves a schedule onto a new slot and calendar event in
// a single in-place update, so the schedule keeps its identity across a
// reschedule.
func (s *Store) UpdateSlotBinding(ctx context.Context, scheduleID, newSlotID, newEventID, newMeetingLink string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE interview_schedules
		SET slot_id = $1, calendar_event_id = $2, meeting_link = $3, updated_at = $4
		WHERE id = $5 AND status = $6`,
		newSlotID, newEventID, newMeetingLink, time.Now().UTC(),
		scheduleID, models.ScheduleScheduled)
	if err != nil {
		return fmt.Errorf("schedule rebind failed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule rebind rows check failed: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrScheduleNotFound, scheduleID)
	}
	return nil
}

// Cancel soft-deletes a schedule, keeping the row for history.
func (s *Store) Cancel(ctx context.Context, scheduleID, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE interview_schedules
		SET status = $1, cancel_reason = $2, updated_at = $3
		WHERE id = $4 AND status = $5`,
		models.ScheduleCancelled, reason, time.Now().UTC(),
		scheduleID, models.ScheduleScheduled)
	if err != nil {
		return fmt.Errorf("schedule cancel failed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule cancel rows check failed: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrScheduleNotFound, scheduleID)
	}

	s.logger.Info("schedule cancelled", map[string]interface{}{
		"scheduleId": scheduleID,
		"reason":     reason,
	})
	return nil
}

// CreateIntent records a reschedule before any side effect runs, so a crash
// mid-saga leaves a durable marker of what was in flight.
func (s *Store) CreateIntent(ctx context.Context, intent *models.RescheduleIntent) error {
	if intent.ID == "" {
		intent.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	intent.CreatedAt = now
	intent.UpdatedAt = now
	if intent.Phase == "" {
		intent.Phase = models.ReschedulePending
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reschedule_intents
			(id, schedule_id, old_slot_id, new_slot_id, old_event_id,
			 phase, failure_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		intent.ID, intent.ScheduleID, intent.OldSlotID, intent.NewSlotID,
		intent.OldEventID, intent.Phase, intent.FailureReason,
		intent.CreatedAt, intent.UpdatedAt)
	if err != nil {
		return fmt.Errorf("reschedule intent insert failed: %w", err)
	}
	return nil
}

// UpdateIntentPhase advances a reschedule intent through its phases. The
// failure reason is only meaningful on the failed phase.
func (s *Store) UpdateIntentPhase(ctx context.Context, intentID string, phase models.ReschedulePhase, failureReason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE reschedule_intents
		SET phase = $1, failure_reason = $2, updated_at = $3
		WHERE id = $4`,
		phase, failureReason, time.Now().UTC(), intentID)
	if err != nil {
		return fmt.Errorf("reschedule intent update failed: %w", err)
	}
	return nil
}
