package profile

import (
	"context"
	"testing"
	"time"

	"admissions-coordinator/internal/audit"
	"admissions-coordinator/internal/common/config"
	apperrors "admissions-coordinator/internal/common/errors"
	"admissions-coordinator/internal/common/logger"
	"admissions-coordinator/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndexer struct{ events []audit.Event }

func (f *fakeIndexer) Index(_ context.Context, e audit.Event) {
	f.events = append(f.events, e)
}

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock, *miniredis.Miniredis) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store := NewStore(db, cache, config.RedisConfig{CacheTTL: 60}, &fakeIndexer{}, logger.NewTestLogger(t))
	return store, mock, mr
}

func outcomeRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "applicant_id", "round_type", "status", "comments", "author", "created_at", "updated_at",
	}).
		AddRow("o-1", "app-001", string(models.RoundScreening), models.ScreeningPass, "", "hr-1", now, now).
		AddRow("o-2", "app-001", string(models.RoundLearning), models.LearningNoShow, "", "int-7", now, now).
		AddRow("o-3", "app-001", string(models.RoundLearning), models.LearningPass, "solid", "int-7", now, now)
}

func TestGetRoundOutcomes_LoadsAndCaches(t *testing.T) {
	store, mock, mr := newTestStore(t)

	mock.ExpectQuery(`SELECT id, applicant_id`).
		WithArgs("app-001").
		WillReturnRows(outcomeRows())

	view, err := store.GetRoundOutcomes(context.Background(), "app-001")
	require.NoError(t, err)

	require.NotNil(t, view.Screening)
	assert.Equal(t, models.ScreeningPass, view.Screening.Status)
	assert.Len(t, view.Learning, 2)
	assert.Empty(t, view.Cultural)

	assert.True(t, mr.Exists("outcomes:app-001"))

	// Second read is served from the cache: no second query expectation.
	view2, err := store.GetRoundOutcomes(context.Background(), "app-001")
	require.NoError(t, err)
	assert.Equal(t, view.Screening.Status, view2.Screening.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRoundOutcomes_CacheDownFallsBackToDB(t *testing.T) {
	store, mock, mr := newTestStore(t)
	mr.Close()

	mock.ExpectQuery(`SELECT id, applicant_id`).
		WithArgs("app-001").
		WillReturnRows(outcomeRows())

	view, err := store.GetRoundOutcomes(context.Background(), "app-001")
	require.NoError(t, err)
	require.NotNil(t, view.Screening)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordOutcome_RejectsForeignStatus(t *testing.T) {
	store, _, _ := newTestStore(t)

	err := store.RecordOutcome(context.Background(), &models.RoundOutcome{
		ApplicantID: "app-001",
		RoundType:   models.RoundLearning,
		Status:      models.ScreeningPass, // wrong round's vocabulary
		Author:      "int-7",
	})

	assert.Error(t, err)
}

func emptyOutcomeRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "applicant_id", "round_type", "status", "comments", "author", "created_at", "updated_at",
	})
}

func TestRecordOutcome_AppendsAttemptAndInvalidates(t *testing.T) {
	store, mock, mr := newTestStore(t)
	require.NoError(t, mr.Set("outcomes:app-001", `{"applicantId":"app-001"}`))

	mock.ExpectQuery(`SELECT id, applicant_id`).
		WithArgs("app-001").
		WillReturnRows(emptyOutcomeRows())
	mock.ExpectExec(`INSERT INTO round_outcomes`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.RecordOutcome(context.Background(), &models.RoundOutcome{
		ApplicantID: "app-001",
		RoundType:   models.RoundLearning,
		Status:      models.LearningPass,
		Author:      "int-7",
	})

	require.NoError(t, err)
	assert.False(t, mr.Exists("outcomes:app-001"))
	assert.NoError(t, mock.ExpectationsWereMet())

	indexed := store.auditor.(*fakeIndexer).events
	require.Len(t, indexed, 1)
	assert.Equal(t, audit.EventOutcomeRecorded, indexed[0].Type)
	assert.Equal(t, "app-001", indexed[0].ApplicantID)
	assert.Equal(t, "int-7", indexed[0].Actor)
}

func TestRecordOutcome_ScreeningUpserts(t *testing.T) {
	store, mock, _ := newTestStore(t)

	mock.ExpectQuery(`SELECT id, applicant_id`).
		WithArgs("app-001").
		WillReturnRows(emptyOutcomeRows())
	mock.ExpectExec(`INSERT INTO round_outcomes`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.RecordOutcome(context.Background(), &models.RoundOutcome{
		ApplicantID: "app-001",
		RoundType:   models.RoundScreening,
		Status:      models.ScreeningWithoutExam,
		Author:      "hr-1",
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordOutcome_PassedRoundIsImmutable(t *testing.T) {
	store, mock, _ := newTestStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, applicant_id`).
		WithArgs("app-001").
		WillReturnRows(emptyOutcomeRows().
			AddRow("o-1", "app-001", string(models.RoundLearning), models.LearningPass, "", "int-7", now, now))

	err := store.RecordOutcome(context.Background(), &models.RoundOutcome{
		ApplicantID: "app-001",
		RoundType:   models.RoundLearning,
		Status:      models.LearningFail,
		Author:      "int-7",
	})

	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeGateViolation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordOutcome_ExamBypassDoesNotLockScreening(t *testing.T) {
	store, mock, _ := newTestStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, applicant_id`).
		WithArgs("app-001").
		WillReturnRows(emptyOutcomeRows().
			AddRow("o-1", "app-001", string(models.RoundScreening), models.ScreeningWithoutExam, "", "hr-1", now, now))
	mock.ExpectExec(`INSERT INTO round_outcomes`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.RecordOutcome(context.Background(), &models.RoundOutcome{
		ApplicantID: "app-001",
		RoundType:   models.RoundScreening,
		Status:      models.ScreeningPass,
		Author:      "hr-1",
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
