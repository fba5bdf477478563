package schedulestore

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"admissions-coordinator/internal/common/logger"
	"admissions-coordinator/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_AssignsIDAndDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO interview_schedules`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db, logger.NewTestLogger(t))
	sched := &models.Schedule{
		SlotID:          "slot-001",
		ApplicantID:     "app-001",
		RoundType:       models.RoundLearning,
		InterviewerID:   "int-007",
		CalendarEventID: "evt-123",
		CreatedBy:       "int-007",
	}

	require.NoError(t, store.Create(context.Background(), sched))
	assert.NotEmpty(t, sched.ID)
	assert.Equal(t, models.ScheduleScheduled, sched.Status)
	assert.False(t, sched.CreatedAt.IsZero())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, slot_id`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	store := NewStore(db, logger.NewTestLogger(t))
	sched, err := store.Get(context.Background(), "missing")

	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrScheduleNotFound))
	assert.Nil(t, sched)
}

func TestHasActiveForRound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs("app-001", string(models.RoundLearning), string(models.ScheduleScheduled)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	store := NewStore(db, logger.NewTestLogger(t))
	active, err := store.HasActiveForRound(context.Background(), "app-001", models.RoundLearning)

	require.NoError(t, err)
	assert.True(t, active)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSlotBinding_KeepsIdentity(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE interview_schedules`).
		WithArgs("slot-002", "evt-456", "https://meet.example.com/evt-456",
			sqlmock.AnyArg(), "sched-001", string(models.ScheduleScheduled)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db, logger.NewTestLogger(t))
	err = store.UpdateSlotBinding(context.Background(),
		"sched-001", "slot-002", "evt-456", "https://meet.example.com/evt-456")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSlotBinding_MissingOrInactive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE interview_schedules`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewStore(db, logger.NewTestLogger(t))
	err = store.UpdateSlotBinding(context.Background(), "sched-gone", "slot-002", "evt-456", "")

	assert.True(t, errors.Is(err, ErrScheduleNotFound))
}

func TestCancel_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE interview_schedules`).
		WithArgs(string(models.ScheduleCancelled), "applicant withdrew",
			sqlmock.AnyArg(), "sched-001", string(models.ScheduleScheduled)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db, logger.NewTestLogger(t))
	assert.NoError(t, store.Cancel(context.Background(), "sched-001", "applicant withdrew"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancel_AlreadyCancelled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Status guard in the WHERE clause means a second cancel matches no rows.
	mock.ExpectExec(`UPDATE interview_schedules`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewStore(db, logger.NewTestLogger(t))
	err = store.Cancel(context.Background(), "sched-001", "again")

	assert.True(t, errors.Is(err, ErrScheduleNotFound))
}

func TestCreateIntent_DefaultsToPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO reschedule_intents`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db, logger.NewTestLogger(t))
	intent := &models.RescheduleIntent{
		ScheduleID: "sched-001",
		OldSlotID:  "slot-001",
		NewSlotID:  "slot-002",
		OldEventID: "evt-123",
	}

	require.NoError(t, store.CreateIntent(context.Background(), intent))
	assert.NotEmpty(t, intent.ID)
	assert.Equal(t, models.ReschedulePending, intent.Phase)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateIntentPhase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE reschedule_intents`).
		WithArgs(string(models.RescheduleCompleted), "", sqlmock.AnyArg(), "intent-001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db, logger.NewTestLogger(t))
	err = store.UpdateIntentPhase(context.Background(), "intent-001", models.RescheduleCompleted, "")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
