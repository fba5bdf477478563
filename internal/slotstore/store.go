// Package slotstore persists interview slot availability. Reserve is the
// only legal booking path: a single conditional update whose zero-row
// outcome means the slot was lost to a concurrent booking.
package slotstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"admissions-coordinator/internal/common/logger"
	"admissions-coordinator/internal/models"
)

var (
	ErrSlotNotFound     = errors.New("SLOT_NOT_FOUND")
	ErrSlotNotAvailable = errors.New("SLOT_NOT_AVAILABLE")
)

type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "slotstore"}),
	}
}

// Get returns the slot by id.
func (s *Store) Get(ctx context.Context, slotID string) (*models.Slot, error) {
	var slot models.Slot
	err := s.db.QueryRowContext(ctx, `
		SELECT id, slot_date, start_time, end_time, round_type, interviewer_id, status
		FROM interview_slots
		WHERE id = $1`, slotID).
		Scan(&slot.ID, &slot.Date, &slot.StartTime, &slot.EndTime,
			&slot.RoundType, &slot.InterviewerID, &slot.Status)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, slotID)
	}
	if err != nil {
		return nil, fmt.Errorf("slot lookup failed: %w", err)
	}
	return &slot, nil
}

// ListAvailable returns open slots for a round type from the given date.
func (s *Store) ListAvailable(ctx context.Context, roundType models.RoundType, fromDate time.Time) ([]models.Slot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slot_date, start_time, end_time, round_type, interviewer_id, status
		FROM interview_slots
		WHERE round_type = $1 AND status = $2 AND slot_date >= $3
		ORDER BY slot_date, start_time`,
		roundType, models.SlotAvailable, fromDate)
	if err != nil {
		return nil, fmt.Errorf("slot listing failed: %w", err)
	}
	defer rows.Close()

	var slots []models.Slot
	for rows.Next() {
		var slot models.Slot
		if err := rows.Scan(&slot.ID, &slot.Date, &slot.StartTime, &slot.EndTime,
			&slot.RoundType, &slot.InterviewerID, &slot.Status); err != nil {
			return nil, fmt.Errorf("slot scan failed: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// Reserve atomically flips an Available slot to Booked. Zero rows affected
// means another booking won the race (or the slot does not exist).
func (s *Store) Reserve(ctx context.Context, slotID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE interview_slots
		SET status = $1
		WHERE id = $2 AND status = $3`,
		models.SlotBooked, slotID, models.SlotAvailable)
	if err != nil {
		return fmt.Errorf("slot reserve failed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("slot reserve rows check failed: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrSlotNotAvailable, slotID)
	}

	s.logger.Info("slot reserved", map[string]interface{}{"slotId": slotID})
	return nil
}

// Release flips a Booked slot back to Available after a cancel or a
// reschedule away from it.
func (s *Store) Release(ctx context.Context, slotID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE interview_slots
		SET status = $1
		WHERE id = $2 AND status = $3`,
		models.SlotAvailable, slotID, models.SlotBooked)
	if err != nil {
		return fmt.Errorf("slot release failed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("slot release rows check failed: %w", err)
	}
	if affected == 0 {
		// Already released; harmless on retry paths.
		s.logger.Warn("slot release affected no rows", map[string]interface{}{"slotId": slotID})
	}
	return nil
}
