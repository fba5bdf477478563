// Package scheduling coordinates interview bookings across the stage gate,
// the slot inventory, the external calendar provider and the schedule store.
// Every public operation takes the resolved actor and enforces its own
// authorization.
package scheduling

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"admissions-coordinator/internal/audit"
	"admissions-coordinator/internal/calendar"
	"admissions-coordinator/internal/common/auth"
	"admissions-coordinator/internal/common/config"
	"admissions-coordinator/internal/common/errors"
	"admissions-coordinator/internal/common/logger"
	"admissions-coordinator/internal/common/metrics"
	"admissions-coordinator/internal/models"
	"admissions-coordinator/internal/slotstore"
	"admissions-coordinator/internal/stagegate"
)

// SlotStore is the slot inventory the coordinator books against.
type SlotStore interface {
	Get(ctx context.Context, slotID string) (*models.Slot, error)
	Reserve(ctx context.Context, slotID string) error
	Release(ctx context.Context, slotID string) error
}

// ScheduleStore persists schedules and reschedule intents.
type ScheduleStore interface {
	Create(ctx context.Context, sched *models.Schedule) error
	Get(ctx context.Context, scheduleID string) (*models.Schedule, error)
	HasActiveForRound(ctx context.Context, applicantID string, roundType models.RoundType) (bool, error)
	UpdateSlotBinding(ctx context.Context, scheduleID, newSlotID, newEventID, newMeetingLink string) error
	Cancel(ctx context.Context, scheduleID, reason string) error
	CreateIntent(ctx context.Context, intent *models.RescheduleIntent) error
	UpdateIntentPhase(ctx context.Context, intentID string, phase models.ReschedulePhase, failureReason string) error
}

// ProfileSource serves applicant data and the round-outcome view the gate
// engine consumes.
type ProfileSource interface {
	GetApplicant(ctx context.Context, applicantID string) (*models.Applicant, error)
	GetRoundOutcomes(ctx context.Context, applicantID string) (*models.RoundOutcomes, error)
}

// BookingNotifier sends the best-effort booking confirmation.
type BookingNotifier interface {
	SendBookingConfirmation(ctx context.Context, applicant *models.Applicant, sched *models.Schedule) error
}

// Coordinator owns the booking, cancellation and reschedule flows.
type Coordinator struct {
	slots     SlotStore
	schedules ScheduleStore
	profiles  ProfileSource
	calendar  calendar.Adapter
	notifier  BookingNotifier
	auditor   audit.Indexer
	adminRole string
	opTimeout time.Duration
	logger    logger.Logger
}

func NewCoordinator(
	slots SlotStore,
	schedules ScheduleStore,
	profiles ProfileSource,
	cal calendar.Adapter,
	notifier BookingNotifier,
	auditor audit.Indexer,
	cfg *config.Config,
	log logger.Logger,
) *Coordinator {
	return &Coordinator{
		slots:     slots,
		schedules: schedules,
		profiles:  profiles,
		calendar:  cal,
		notifier:  notifier,
		auditor:   auditor,
		adminRole: cfg.Auth.AdminRole,
		opTimeout: config.GetDuration(cfg.Scheduling.OperationTimeout),
		logger:    log.WithFields(map[string]interface{}{"component": "scheduling"}),
	}
}

// ScheduleRequest is the input to Schedule. Participants are extra
// attendees beyond the applicant, usually panel members.
type ScheduleRequest struct {
	ApplicantID  string           `json:"applicantId"`
	SlotID       string           `json:"slotId"`
	RoundType    models.RoundType `json:"roundType"`
	Participants []string         `json:"participants,omitempty"`
}

// Schedule books an interview. Order of effects: the calendar event is
// created first, then the slot is reserved with a conditional update, then
// the schedule row is persisted. Each later failure compensates the earlier
// effects; an uncompensatable failure surfaces as a reconciliation error.
func (c *Coordinator) Schedule(ctx context.Context, actor *auth.Actor, req *ScheduleRequest) (*models.Schedule, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if req.RoundType != models.RoundLearning && req.RoundType != models.RoundCultural {
		return nil, errors.NewValidationFailed(fmt.Sprintf("round %q is not schedulable", req.RoundType))
	}

	applicant, err := c.profiles.GetApplicant(ctx, req.ApplicantID)
	if err != nil {
		return nil, errors.NewStorageFailed("applicant lookup", err)
	}

	if err := c.checkGate(ctx, req.ApplicantID, req.RoundType, "schedule"); err != nil {
		metrics.BookingsTotal.WithLabelValues(string(req.RoundType), "denied").Inc()
		return nil, err
	}

	slot, err := c.slots.Get(ctx, req.SlotID)
	if err != nil {
		if stderrors.Is(err, slotstore.ErrSlotNotFound) {
			return nil, errors.NewValidationFailed(fmt.Sprintf("slot %s does not exist", req.SlotID))
		}
		return nil, errors.NewStorageFailed("slot lookup", err)
	}
	if slot.RoundType != req.RoundType {
		return nil, errors.NewValidationFailed(fmt.Sprintf(
			"slot %s is a %s slot, not %s", slot.ID, slot.RoundType, req.RoundType))
	}

	event, err := c.calendar.CreateEvent(ctx, &calendar.EventRequest{
		Title:     fmt.Sprintf("%s interview: %s", req.RoundType, applicant.Name),
		Start:     slot.StartTime,
		End:       slot.EndTime,
		Attendees: append([]string{applicant.Email}, req.Participants...),
	})
	if err != nil {
		metrics.BookingsTotal.WithLabelValues(string(req.RoundType), "calendar_failed").Inc()
		return nil, errors.NewCalendarCreateFailed(err)
	}

	if err := c.slots.Reserve(ctx, req.SlotID); err != nil {
		// Lost the race (or the slot vanished): the event must not outlive
		// the failed booking.
		c.deleteEventBestEffort(ctx, event.EventID)
		if stderrors.Is(err, slotstore.ErrSlotNotAvailable) {
			metrics.BookingsTotal.WithLabelValues(string(req.RoundType), "slot_conflict").Inc()
			return nil, errors.NewSlotAlreadyBooked(req.SlotID)
		}
		return nil, errors.NewStorageFailed("slot reserve", err)
	}

	sched := &models.Schedule{
		SlotID:          slot.ID,
		ApplicantID:     req.ApplicantID,
		RoundType:       req.RoundType,
		InterviewerID:   slot.InterviewerID,
		CalendarEventID: event.EventID,
		MeetingLink:     event.MeetingLink,
		CreatedBy:       actor.ID,
	}
	if err := c.schedules.Create(ctx, sched); err != nil {
		if relErr := c.slots.Release(ctx, req.SlotID); relErr != nil {
			c.logger.Warn("slot release after failed persist failed", map[string]interface{}{
				"slotId": req.SlotID,
				"error":  relErr.Error(),
			})
		}
		if delErr := c.calendar.DeleteEvent(ctx, event.EventID); delErr != nil {
			metrics.ReconciliationFlags.Inc()
			c.auditor.Index(ctx, audit.Event{
				Type:        audit.EventReconciliationFlagged,
				ApplicantID: req.ApplicantID,
				Actor:       actor.ID,
				Details: map[string]interface{}{
					"eventId": event.EventID,
					"slotId":  req.SlotID,
				},
			})
			return nil, errors.NewPostBookingPersistFailed(event.EventID, err, delErr)
		}
		metrics.BookingsTotal.WithLabelValues(string(req.RoundType), "persist_failed").Inc()
		return nil, errors.NewStorageFailed("schedule persist", err)
	}

	metrics.BookingsTotal.WithLabelValues(string(req.RoundType), "booked").Inc()
	c.auditor.Index(ctx, audit.Event{
		Type:        audit.EventBookingCreated,
		ApplicantID: req.ApplicantID,
		ScheduleID:  sched.ID,
		Actor:       actor.ID,
		Details: map[string]interface{}{
			"slotId":    slot.ID,
			"roundType": req.RoundType,
			"eventId":   event.EventID,
		},
	})

	if err := c.notifier.SendBookingConfirmation(ctx, applicant, sched); err != nil {
		c.logger.Warn("booking confirmation failed", map[string]interface{}{
			"scheduleId": sched.ID,
			"error":      err.Error(),
		})
	}

	c.logger.Info("interview scheduled", map[string]interface{}{
		"scheduleId":  sched.ID,
		"applicantId": req.ApplicantID,
		"roundType":   req.RoundType,
	})
	return sched, nil
}

// Cancel cancels an active schedule. The calendar delete is best-effort:
// the record is cancelled even when the provider is down, and the returned
// warning carries the failed delete so the caller can see the difference.
// Cancelling an already-cancelled schedule is a no-op.
func (c *Coordinator) Cancel(ctx context.Context, actor *auth.Actor, scheduleID, reason string) (*errors.StandardError, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	sched, err := c.schedules.Get(ctx, scheduleID)
	if err != nil {
		return nil, errors.NewScheduleNotFound(scheduleID)
	}
	if sched.Status == models.ScheduleCancelled {
		return nil, nil
	}
	if sched.Status == models.ScheduleCompleted {
		return nil, errors.NewValidationFailed("completed interviews cannot be cancelled")
	}

	if err := c.authorize(actor, sched); err != nil {
		return nil, err
	}

	var warning *errors.StandardError
	if sched.CalendarEventID != "" {
		if delErr := c.calendar.DeleteEvent(ctx, sched.CalendarEventID); delErr != nil {
			warning = errors.NewCalendarDeleteFailed(sched.CalendarEventID, delErr)
			c.logger.Warn("calendar delete failed", map[string]interface{}{
				"eventId": sched.CalendarEventID,
				"error":   delErr.Error(),
			})
		}
	}

	if err := c.schedules.Cancel(ctx, scheduleID, reason); err != nil {
		metrics.CancellationsTotal.WithLabelValues("persist_failed").Inc()
		return nil, errors.NewStorageFailed("schedule cancel", err)
	}

	if err := c.slots.Release(ctx, sched.SlotID); err != nil {
		c.logger.Warn("slot release after cancel failed", map[string]interface{}{
			"slotId": sched.SlotID,
			"error":  err.Error(),
		})
	}

	metrics.CancellationsTotal.WithLabelValues("cancelled").Inc()
	c.auditor.Index(ctx, audit.Event{
		Type:        audit.EventBookingCancelled,
		ApplicantID: sched.ApplicantID,
		ScheduleID:  scheduleID,
		Actor:       actor.ID,
		Details:     map[string]interface{}{"reason": reason},
	})

	c.logger.Info("interview cancelled", map[string]interface{}{
		"scheduleId": scheduleID,
		"reason":     reason,
	})
	return warning, nil
}

// Reschedule moves an active schedule to a new slot while preserving its
// identity. A reschedule intent is persisted before any side effect, then
// the saga runs: new event, new slot reservation, old event delete, single
// in-place rebind, old slot release.
func (c *Coordinator) Reschedule(ctx context.Context, actor *auth.Actor, scheduleID, newSlotID string) (*models.Schedule, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	sched, err := c.schedules.Get(ctx, scheduleID)
	if err != nil {
		return nil, errors.NewScheduleNotFound(scheduleID)
	}
	if !sched.IsActive() {
		return nil, errors.NewValidationFailed(fmt.Sprintf(
			"schedule %s is %s and cannot be rescheduled", scheduleID, sched.Status))
	}

	if err := c.authorize(actor, sched); err != nil {
		return nil, err
	}

	newSlot, err := c.slots.Get(ctx, newSlotID)
	if err != nil {
		if stderrors.Is(err, slotstore.ErrSlotNotFound) {
			return nil, errors.NewValidationFailed(fmt.Sprintf("slot %s does not exist", newSlotID))
		}
		return nil, errors.NewStorageFailed("slot lookup", err)
	}
	if newSlot.RoundType != sched.RoundType {
		return nil, errors.NewValidationFailed(fmt.Sprintf(
			"slot %s is a %s slot, not %s", newSlot.ID, newSlot.RoundType, sched.RoundType))
	}

	applicant, err := c.profiles.GetApplicant(ctx, sched.ApplicantID)
	if err != nil {
		return nil, errors.NewStorageFailed("applicant lookup", err)
	}

	intent := &models.RescheduleIntent{
		ScheduleID: scheduleID,
		OldSlotID:  sched.SlotID,
		NewSlotID:  newSlotID,
		OldEventID: sched.CalendarEventID,
	}
	if err := c.schedules.CreateIntent(ctx, intent); err != nil {
		return nil, errors.NewStorageFailed("reschedule intent", err)
	}

	// The old event delete runs first and is tolerated on failure: a stale
	// meeting invite is preferable to a booking stuck on its old slot.
	if sched.CalendarEventID != "" {
		c.deleteEventBestEffort(ctx, sched.CalendarEventID)
	}
	c.advanceIntent(ctx, intent.ID, models.RescheduleOldDeleted)

	event, err := c.calendar.CreateEvent(ctx, &calendar.EventRequest{
		Title:     fmt.Sprintf("%s interview: %s (rescheduled)", sched.RoundType, applicant.Name),
		Start:     newSlot.StartTime,
		End:       newSlot.EndTime,
		Attendees: []string{applicant.Email},
	})
	if err != nil {
		// The old event is already gone; the booking stays on its old slot
		// without a calendar event. Accepted trade-off, the intent records it.
		c.failIntent(ctx, intent.ID, "calendar create failed: "+err.Error())
		metrics.ReschedulesTotal.WithLabelValues("calendar_failed").Inc()
		return nil, errors.NewCalendarCreateFailed(err)
	}

	if err := c.slots.Reserve(ctx, newSlotID); err != nil {
		c.deleteEventBestEffort(ctx, event.EventID)
		c.failIntent(ctx, intent.ID, "new slot unavailable")
		if stderrors.Is(err, slotstore.ErrSlotNotAvailable) {
			metrics.ReschedulesTotal.WithLabelValues("slot_conflict").Inc()
			return nil, errors.NewSlotAlreadyBooked(newSlotID)
		}
		return nil, errors.NewStorageFailed("slot reserve", err)
	}

	if err := c.schedules.UpdateSlotBinding(ctx, scheduleID, newSlotID, event.EventID, event.MeetingLink); err != nil {
		if relErr := c.slots.Release(ctx, newSlotID); relErr != nil {
			c.logger.Warn("slot release after failed rebind failed", map[string]interface{}{
				"slotId": newSlotID,
				"error":  relErr.Error(),
			})
		}
		if delErr := c.calendar.DeleteEvent(ctx, event.EventID); delErr != nil {
			metrics.ReconciliationFlags.Inc()
			c.auditor.Index(ctx, audit.Event{
				Type:       audit.EventReconciliationFlagged,
				ScheduleID: scheduleID,
				Actor:      actor.ID,
				Details: map[string]interface{}{
					"eventId": event.EventID,
					"slotId":  newSlotID,
				},
			})
			c.failIntent(ctx, intent.ID, "rebind and compensating delete both failed")
			return nil, errors.NewPostBookingPersistFailed(event.EventID, err, delErr)
		}
		c.failIntent(ctx, intent.ID, "rebind failed: "+err.Error())
		metrics.ReschedulesTotal.WithLabelValues("persist_failed").Inc()
		return nil, errors.NewStorageFailed("schedule rebind", err)
	}

	if err := c.slots.Release(ctx, intent.OldSlotID); err != nil {
		c.logger.Warn("old slot release failed", map[string]interface{}{
			"slotId": intent.OldSlotID,
			"error":  err.Error(),
		})
	}
	c.advanceIntent(ctx, intent.ID, models.RescheduleCompleted)

	metrics.ReschedulesTotal.WithLabelValues("rescheduled").Inc()
	c.auditor.Index(ctx, audit.Event{
		Type:        audit.EventBookingRescheduled,
		ApplicantID: sched.ApplicantID,
		ScheduleID:  scheduleID,
		Actor:       actor.ID,
		Details: map[string]interface{}{
			"oldSlotId": intent.OldSlotID,
			"newSlotId": newSlotID,
			"eventId":   event.EventID,
		},
	})

	updated, err := c.schedules.Get(ctx, scheduleID)
	if err != nil {
		return nil, errors.NewStorageFailed("schedule reload", err)
	}

	if err := c.notifier.SendBookingConfirmation(ctx, applicant, updated); err != nil {
		c.logger.Warn("reschedule confirmation failed", map[string]interface{}{
			"scheduleId": scheduleID,
			"error":      err.Error(),
		})
	}

	c.logger.Info("interview rescheduled", map[string]interface{}{
		"scheduleId": scheduleID,
		"oldSlotId":  intent.OldSlotID,
		"newSlotId":  newSlotID,
	})
	return updated, nil
}

// checkGate verifies the stage gate and the single-active-booking rule for
// a fresh booking of the given round.
func (c *Coordinator) checkGate(ctx context.Context, applicantID string, round models.RoundType, operation string) error {
	outcomes, err := c.profiles.GetRoundOutcomes(ctx, applicantID)
	if err != nil {
		return errors.NewStorageFailed("round outcomes", err)
	}

	stage := stagegate.StageForRound(round)
	disabled := stagegate.IsStageDisabled(outcomes, stage)
	passed := stagegate.HasPassed(outcomes, round)

	active, err := c.schedules.HasActiveForRound(ctx, applicantID, round)
	if err != nil {
		return errors.NewStorageFailed("active schedule check", err)
	}

	if !stagegate.CanScheduleNew(passed, disabled, active) {
		metrics.GateDenials.WithLabelValues(operation).Inc()
		switch {
		case disabled:
			return errors.NewGateViolation(
				fmt.Sprintf("the %s stage is locked until the earlier rounds are passed", stage),
				fmt.Sprintf("applicantId: %s", applicantID))
		case passed:
			return errors.NewGateViolation(
				fmt.Sprintf("the %s round is already passed", round),
				fmt.Sprintf("applicantId: %s", applicantID))
		default:
			return errors.NewGateViolation(
				fmt.Sprintf("an active %s booking already exists", round),
				fmt.Sprintf("applicantId: %s", applicantID))
		}
	}
	return nil
}

// authorize allows the assigned interviewer or an administrator.
func (c *Coordinator) authorize(actor *auth.Actor, sched *models.Schedule) error {
	if actor.ID == sched.InterviewerID || actor.HasRole(c.adminRole) {
		return nil
	}
	return errors.NewUnauthorized(fmt.Sprintf(
		"actor %s is not the assigned interviewer for schedule %s", actor.ID, sched.ID))
}

func (c *Coordinator) deleteEventBestEffort(ctx context.Context, eventID string) {
	if err := c.calendar.DeleteEvent(ctx, eventID); err != nil {
		c.logger.Warn("calendar delete failed", map[string]interface{}{
			"eventId": eventID,
			"error":   err.Error(),
		})
	}
}

func (c *Coordinator) advanceIntent(ctx context.Context, intentID string, phase models.ReschedulePhase) {
	if err := c.schedules.UpdateIntentPhase(ctx, intentID, phase, ""); err != nil {
		c.logger.Warn("reschedule intent update failed", map[string]interface{}{
			"intentId": intentID,
			"phase":    phase,
			"error":    err.Error(),
		})
	}
}

func (c *Coordinator) failIntent(ctx context.Context, intentID, reason string) {
	if err := c.schedules.UpdateIntentPhase(ctx, intentID, models.RescheduleFailed, reason); err != nil {
		c.logger.Warn("reschedule intent update failed", map[string]interface{}{
			"intentId": intentID,
			"error":    err.Error(),
		})
	}
}
