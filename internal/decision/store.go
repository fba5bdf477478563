package decision

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"admissions-coordinator/internal/common/logger"
	"admissions-coordinator/internal/models"
)

// Store persists final decision records, one row per applicant.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "decisionstore"}),
	}
}

// Get returns the applicant's decision record, or an empty record when none
// has been written yet.
func (s *Store) Get(ctx context.Context, applicantID string) (*models.FinalDecision, error) {
	var d models.FinalDecision
	err := s.db.QueryRowContext(ctx, `
		SELECT applicant_id, offer_letter_status, onboarded_status,
		       joining_date, stage, final_notes, updated_at
		FROM final_decisions
		WHERE applicant_id = $1`, applicantID).
		Scan(&d.ApplicantID, &d.OfferLetterStatus, &d.OnboardedStatus,
			&d.JoiningDate, &d.Stage, &d.FinalNotes, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return &models.FinalDecision{ApplicantID: applicantID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("final decision lookup failed: %w", err)
	}
	return &d, nil
}

// Save upserts the decision record.
func (s *Store) Save(ctx context.Context, d *models.FinalDecision) error {
	d.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO final_decisions
			(applicant_id, offer_letter_status, onboarded_status,
			 joining_date, stage, final_notes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (applicant_id)
		DO UPDATE SET offer_letter_status = EXCLUDED.offer_letter_status,
		              onboarded_status = EXCLUDED.onboarded_status,
		              joining_date = EXCLUDED.joining_date,
		              stage = EXCLUDED.stage,
		              final_notes = EXCLUDED.final_notes,
		              updated_at = EXCLUDED.updated_at`,
		d.ApplicantID, d.OfferLetterStatus, d.OnboardedStatus,
		d.JoiningDate, d.Stage, d.FinalNotes, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("final decision save failed: %w", err)
	}
	return nil
}
