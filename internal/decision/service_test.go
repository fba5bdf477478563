package decision

import (
	"context"
	"errors"
	"testing"
	"time"

	"admissions-coordinator/internal/audit"
	"admissions-coordinator/internal/common/auth"
	apperrors "admissions-coordinator/internal/common/errors"
	"admissions-coordinator/internal/common/logger"
	"admissions-coordinator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	rows    map[string]*models.FinalDecision
	saveErr error
}

func (f *fakeStore) Get(_ context.Context, applicantID string) (*models.FinalDecision, error) {
	if d, ok := f.rows[applicantID]; ok {
		copied := *d
		return &copied, nil
	}
	return &models.FinalDecision{ApplicantID: applicantID}, nil
}

func (f *fakeStore) Save(_ context.Context, d *models.FinalDecision) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	copied := *d
	f.rows[d.ApplicantID] = &copied
	return nil
}

type fakeProfiles struct {
	outcomes *models.RoundOutcomes
}

func (f *fakeProfiles) GetApplicant(_ context.Context, id string) (*models.Applicant, error) {
	return &models.Applicant{ID: id, Name: "Asha", Email: "asha@example.com"}, nil
}

func (f *fakeProfiles) GetRoundOutcomes(context.Context, string) (*models.RoundOutcomes, error) {
	return f.outcomes, nil
}

type fakeOfferNotifier struct {
	sent    int
	sendErr error
}

func (f *fakeOfferNotifier) SendOfferLetter(context.Context, *models.Applicant) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent++
	return nil
}

func fullyPassed() *models.RoundOutcomes {
	return &models.RoundOutcomes{
		ApplicantID: "app-001",
		Screening:   &models.RoundOutcome{RoundType: models.RoundScreening, Status: models.ScreeningPass},
		Learning:    []models.RoundOutcome{{RoundType: models.RoundLearning, Status: models.LearningPass}},
		Cultural:    []models.RoundOutcome{{RoundType: models.RoundCultural, Status: models.CulturalPass}},
	}
}

func newService(t *testing.T) (*Service, *fakeStore, *fakeOfferNotifier, *fakeProfiles) {
	store := &fakeStore{rows: map[string]*models.FinalDecision{}}
	notifier := &fakeOfferNotifier{}
	profiles := &fakeProfiles{outcomes: fullyPassed()}
	svc := NewService(store, profiles, notifier, audit.NoOpIndexer{}, logger.NewTestLogger(t))
	return svc, store, notifier, profiles
}

func actor() *auth.Actor {
	return &auth.Actor{ID: "hr-1", Roles: []string{"admin"}}
}

func TestResolveStage(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		offer     string
		onboarded string
		want      string
	}{
		{"both unset leaves stage alone", "CFR", "", "", "CFR"},
		{"offer set projects final decision", "CFR", models.OfferSent, "", models.StageFinalDecision},
		{"onboarded dominates offer", "Final Decision", models.OfferAccepted, models.OnboardedDone, models.StageOnboarded},
		{"onboarded without offer still projects", "CFR", "", models.OnboardedDone, models.StageOnboarded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveStage(tt.current, tt.offer, tt.onboarded))
		})
	}
}

func TestUpdateOffer_GateLockedBeforeCulturalPass(t *testing.T) {
	svc, _, notifier, profiles := newService(t)
	profiles.outcomes.Cultural = nil

	_, err := svc.UpdateOffer(context.Background(), actor(), "app-001", models.OfferPending)

	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeGateViolation))
	assert.Zero(t, notifier.sent)
}

func TestUpdateOffer_SendsLetterOnFirstTransition(t *testing.T) {
	svc, store, notifier, _ := newService(t)

	d, err := svc.UpdateOffer(context.Background(), actor(), "app-001", models.OfferSent)

	require.NoError(t, err)
	assert.Equal(t, models.OfferSent, d.OfferLetterStatus)
	assert.Equal(t, models.StageFinalDecision, d.Stage)
	assert.False(t, d.AlreadySent)
	assert.Equal(t, 1, notifier.sent)
	assert.Equal(t, models.OfferSent, store.rows["app-001"].OfferLetterStatus)
}

func TestUpdateOffer_ResendIsIdempotent(t *testing.T) {
	svc, _, notifier, _ := newService(t)

	first, err := svc.UpdateOffer(context.Background(), actor(), "app-001", models.OfferSent)
	require.NoError(t, err)

	repeat, err := svc.UpdateOffer(context.Background(), actor(), "app-001", models.OfferSent)
	require.NoError(t, err)

	assert.Equal(t, models.OfferSent, repeat.OfferLetterStatus)
	assert.Equal(t, 1, notifier.sent, "second transition must not re-send the letter")
	// The repeat is distinguishable from the first genuine send.
	assert.False(t, first.AlreadySent)
	assert.True(t, repeat.AlreadySent)
}

func TestUpdateOffer_SendFailureBlocksTransition(t *testing.T) {
	svc, store, notifier, _ := newService(t)
	notifier.sendErr = errors.New("ses down")

	_, err := svc.UpdateOffer(context.Background(), actor(), "app-001", models.OfferSent)

	assert.Error(t, err)
	_, exists := store.rows["app-001"]
	assert.False(t, exists, "a failed send must not record the sent status")
}

func TestUpdateOffer_RegressionRejected(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.UpdateOffer(context.Background(), actor(), "app-001", models.OfferSent)
	require.NoError(t, err)

	_, err = svc.UpdateOffer(context.Background(), actor(), "app-001", models.OfferPending)

	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRegression))
}

func TestUpdateOffer_AcceptedAfterSent(t *testing.T) {
	svc, _, notifier, _ := newService(t)

	_, err := svc.UpdateOffer(context.Background(), actor(), "app-001", models.OfferSent)
	require.NoError(t, err)

	d, err := svc.UpdateOffer(context.Background(), actor(), "app-001", models.OfferAccepted)
	require.NoError(t, err)

	assert.Equal(t, models.OfferAccepted, d.OfferLetterStatus)
	assert.False(t, d.AlreadySent)
	assert.Equal(t, 1, notifier.sent)
}

func TestUpdateOffer_UnknownStatusRejected(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.UpdateOffer(context.Background(), actor(), "app-001", "Offer Passed Along")

	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidationFailed))
}

func TestUpdateOnboarding_WithoutOfferStillProjectsOnboarded(t *testing.T) {
	svc, _, _, _ := newService(t)

	d, err := svc.UpdateOnboarding(context.Background(), actor(), "app-001", models.OnboardedDone, nil)

	require.NoError(t, err)
	assert.Equal(t, models.StageOnboarded, d.Stage)
	assert.Empty(t, d.OfferLetterStatus)
}

func TestUpdateOnboarding_ProjectsOnboardedStage(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.UpdateOffer(context.Background(), actor(), "app-001", models.OfferSent)
	require.NoError(t, err)
	_, err = svc.UpdateOffer(context.Background(), actor(), "app-001", models.OfferAccepted)
	require.NoError(t, err)

	joining := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	d, err := svc.UpdateOnboarding(context.Background(), actor(), "app-001", models.OnboardedDone, &joining)

	require.NoError(t, err)
	assert.Equal(t, models.StageOnboarded, d.Stage)
	require.NotNil(t, d.JoiningDate)
	assert.Equal(t, joining, *d.JoiningDate)
}

func TestUpdateNotes_DoesNotTouchProjectionInputs(t *testing.T) {
	svc, store, _, _ := newService(t)

	d, err := svc.UpdateNotes(context.Background(), actor(), "app-001", "strong candidate")

	require.NoError(t, err)
	assert.Equal(t, "strong candidate", d.FinalNotes)
	assert.Empty(t, d.OfferLetterStatus)
	assert.Empty(t, store.rows["app-001"].Stage)
}
