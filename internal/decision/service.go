package decision

import (
	"context"
	"fmt"
	"time"

	"admissions-coordinator/internal/audit"
	"admissions-coordinator/internal/common/auth"
	"admissions-coordinator/internal/common/errors"
	"admissions-coordinator/internal/common/logger"
	"admissions-coordinator/internal/models"
	"admissions-coordinator/internal/stagegate"
)

// DecisionStore persists final decision records.
type DecisionStore interface {
	Get(ctx context.Context, applicantID string) (*models.FinalDecision, error)
	Save(ctx context.Context, d *models.FinalDecision) error
}

// ProfileSource serves the data the offer gate needs.
type ProfileSource interface {
	GetApplicant(ctx context.Context, applicantID string) (*models.Applicant, error)
	GetRoundOutcomes(ctx context.Context, applicantID string) (*models.RoundOutcomes, error)
}

// OfferNotifier sends the offer letter. A send failure blocks the status
// transition so the sent flag never lies.
type OfferNotifier interface {
	SendOfferLetter(ctx context.Context, applicant *models.Applicant) error
}

// Service applies final decision updates with the monotonic offer guard
// and the stage projection.
type Service struct {
	store    DecisionStore
	profiles ProfileSource
	notifier OfferNotifier
	auditor  audit.Indexer
	logger   logger.Logger
}

func NewService(store DecisionStore, profiles ProfileSource, notifier OfferNotifier, auditor audit.Indexer, log logger.Logger) *Service {
	return &Service{
		store:    store,
		profiles: profiles,
		notifier: notifier,
		auditor:  auditor,
		logger:   log.WithFields(map[string]interface{}{"component": "decision"}),
	}
}

// OfferUpdate is the result of an offer status write. AlreadySent marks the
// idempotent repeat of a transition to Offer Sent: nothing changed and no
// second letter went out.
type OfferUpdate struct {
	*models.FinalDecision
	AlreadySent bool `json:"alreadySent,omitempty"`
}

// UpdateOffer moves the offer letter status forward. The guard is checked
// against the stored row, not the caller's view, so concurrent writers
// cannot roll a progressed status back. Re-sending an already-sent offer is
// an idempotent no-op: no second email goes out, and the result carries the
// already-sent flag so the caller can tell the repeat apart.
func (s *Service) UpdateOffer(ctx context.Context, actor *auth.Actor, applicantID, newStatus string) (*OfferUpdate, error) {
	if !models.ValidOfferStatus(newStatus) {
		return nil, errors.NewValidationFailed(fmt.Sprintf("unknown offer status %q", newStatus))
	}

	outcomes, err := s.profiles.GetRoundOutcomes(ctx, applicantID)
	if err != nil {
		return nil, errors.NewStorageFailed("round outcomes", err)
	}
	if stagegate.IsStageDisabled(outcomes, stagegate.StageOffer) {
		return nil, errors.NewGateViolation(
			"the offer stage is locked until all interview rounds are passed",
			fmt.Sprintf("applicantId: %s", applicantID))
	}

	d, err := s.store.Get(ctx, applicantID)
	if err != nil {
		return nil, errors.NewStorageFailed("final decision", err)
	}

	if models.OfferRank(newStatus) < models.OfferRank(d.OfferLetterStatus) {
		return nil, errors.NewInvalidRegression("offerLetterStatus", d.OfferLetterStatus, newStatus)
	}
	if newStatus == d.OfferLetterStatus {
		return &OfferUpdate{
			FinalDecision: d,
			AlreadySent:   newStatus == models.OfferSent,
		}, nil
	}

	if newStatus == models.OfferSent {
		applicant, err := s.profiles.GetApplicant(ctx, applicantID)
		if err != nil {
			return nil, errors.NewStorageFailed("applicant lookup", err)
		}
		if err := s.notifier.SendOfferLetter(ctx, applicant); err != nil {
			return nil, &errors.StandardError{
				Code:      errors.ErrCodeStorageFailed,
				Message:   "The offer letter could not be sent, the status was not changed",
				Details:   err.Error(),
				Retryable: true,
				Timestamp: time.Now().UTC(),
			}
		}
		s.auditor.Index(ctx, audit.Event{
			Type:        audit.EventOfferSent,
			ApplicantID: applicantID,
			Actor:       actor.ID,
		})
	}

	d.OfferLetterStatus = newStatus
	d.Stage = ResolveStage(d.Stage, d.OfferLetterStatus, d.OnboardedStatus)
	if err := s.store.Save(ctx, d); err != nil {
		return nil, errors.NewStorageFailed("final decision save", err)
	}

	s.logger.Info("offer status updated", map[string]interface{}{
		"applicantId": applicantID,
		"status":      newStatus,
		"stage":       d.Stage,
	})
	return &OfferUpdate{FinalDecision: d}, nil
}

// UpdateOnboarding records onboarding completion and the joining date.
func (s *Service) UpdateOnboarding(ctx context.Context, actor *auth.Actor, applicantID, onboardedStatus string, joiningDate *time.Time) (*models.FinalDecision, error) {
	if onboardedStatus != models.OnboardedDone {
		return nil, errors.NewValidationFailed(fmt.Sprintf("unknown onboarded status %q", onboardedStatus))
	}

	d, err := s.store.Get(ctx, applicantID)
	if err != nil {
		return nil, errors.NewStorageFailed("final decision", err)
	}

	d.OnboardedStatus = onboardedStatus
	d.JoiningDate = joiningDate
	d.Stage = ResolveStage(d.Stage, d.OfferLetterStatus, d.OnboardedStatus)
	if err := s.store.Save(ctx, d); err != nil {
		return nil, errors.NewStorageFailed("final decision save", err)
	}

	s.logger.Info("onboarding recorded", map[string]interface{}{
		"applicantId": applicantID,
		"stage":       d.Stage,
	})
	return d, nil
}

// UpdateNotes records free-form decision notes without touching the
// projection inputs.
func (s *Service) UpdateNotes(ctx context.Context, actor *auth.Actor, applicantID, notes string) (*models.FinalDecision, error) {
	d, err := s.store.Get(ctx, applicantID)
	if err != nil {
		return nil, errors.NewStorageFailed("final decision", err)
	}

	d.FinalNotes = notes
	d.Stage = ResolveStage(d.Stage, d.OfferLetterStatus, d.OnboardedStatus)
	if err := s.store.Save(ctx, d); err != nil {
		return nil, errors.NewStorageFailed("final decision save", err)
	}
	return d, nil
}
