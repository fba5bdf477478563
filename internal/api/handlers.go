package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"admissions-coordinator/internal/common/auth"
	"admissions-coordinator/internal/common/errors"
	"admissions-coordinator/internal/common/logger"
	"admissions-coordinator/internal/common/validation"
	"admissions-coordinator/internal/decision"
	"admissions-coordinator/internal/models"
	"admissions-coordinator/internal/scheduling"
)

// SchedulingService is the booking surface the handlers call. Cancel
// returns a non-fatal calendar warning alongside the error.
type SchedulingService interface {
	Schedule(ctx context.Context, actor *auth.Actor, req *scheduling.ScheduleRequest) (*models.Schedule, error)
	Cancel(ctx context.Context, actor *auth.Actor, scheduleID, reason string) (*errors.StandardError, error)
	Reschedule(ctx context.Context, actor *auth.Actor, scheduleID, newSlotID string) (*models.Schedule, error)
}

// DecisionService applies final decision updates.
type DecisionService interface {
	UpdateOffer(ctx context.Context, actor *auth.Actor, applicantID, newStatus string) (*decision.OfferUpdate, error)
	UpdateOnboarding(ctx context.Context, actor *auth.Actor, applicantID, onboardedStatus string, joiningDate *time.Time) (*models.FinalDecision, error)
	UpdateNotes(ctx context.Context, actor *auth.Actor, applicantID, notes string) (*models.FinalDecision, error)
}

// OutcomeRecorder records round outcomes.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, outcome *models.RoundOutcome) error
}

// SlotLister serves the open slot listing.
type SlotLister interface {
	ListAvailable(ctx context.Context, roundType models.RoundType, fromDate time.Time) ([]models.Slot, error)
}

// ScheduleReader serves per-applicant schedule history.
type ScheduleReader interface {
	FindByApplicant(ctx context.Context, applicantID string) ([]models.Schedule, error)
}

// Handler holds the coordinator services the HTTP surface fronts.
type Handler struct {
	scheduling SchedulingService
	decisions  DecisionService
	outcomes   OutcomeRecorder
	slots      SlotLister
	schedules  ScheduleReader
	logger     logger.Logger
}

func NewHandler(
	sched SchedulingService,
	decisions DecisionService,
	outcomes OutcomeRecorder,
	slots SlotLister,
	schedules ScheduleReader,
	log logger.Logger,
) *Handler {
	return &Handler{
		scheduling: sched,
		decisions:  decisions,
		outcomes:   outcomes,
		slots:      slots,
		schedules:  schedules,
		logger:     log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

type authedHandler func(w http.ResponseWriter, r *http.Request, actor *auth.Actor)

// withActor resolves the bearer token before the handler runs.
func withActor(resolver auth.ActorResolver, log logger.Logger, next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		actor, err := resolver.ResolveActor(r.Context(), token)
		if err != nil {
			writeError(w, log, errors.NewUnauthorized("token resolution failed"))
			return
		}
		next(w, r, actor)
	}
}

func (h *Handler) listSlots(w http.ResponseWriter, r *http.Request, _ *auth.Actor) {
	roundType := models.RoundType(r.URL.Query().Get("roundType"))
	if !models.ValidRoundType(roundType) {
		writeError(w, h.logger, errors.NewValidationFailed("roundType query parameter is required"))
		return
	}

	from := time.Now().UTC()
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, h.logger, errors.NewValidationFailed("from must be a YYYY-MM-DD date"))
			return
		}
		from = parsed
	}

	slots, err := h.slots.ListAvailable(r.Context(), roundType, from)
	if err != nil {
		writeError(w, h.logger, errors.NewStorageFailed("slot listing", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"slots": slots})
}

func (h *Handler) listSchedules(w http.ResponseWriter, r *http.Request, _ *auth.Actor) {
	applicantID := r.PathValue("applicantId")
	schedules, err := h.schedules.FindByApplicant(r.Context(), applicantID)
	if err != nil {
		writeError(w, h.logger, errors.NewStorageFailed("schedule listing", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"schedules": schedules})
}

func (h *Handler) scheduleInterview(w http.ResponseWriter, r *http.Request, actor *auth.Actor) {
	body, ok := h.decodeAndValidate(w, r, scheduleRequestSchema)
	if !ok {
		return
	}

	req := &scheduling.ScheduleRequest{
		ApplicantID: body["applicantId"].(string),
		SlotID:      body["slotId"].(string),
		RoundType:   models.RoundType(body["roundType"].(string)),
	}
	if raw, ok := body["participants"].([]interface{}); ok {
		for _, p := range raw {
			if email, ok := p.(string); ok {
				req.Participants = append(req.Participants, email)
			}
		}
	}

	sched, err := h.scheduling.Schedule(r.Context(), actor, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sched)
}

func (h *Handler) cancelInterview(w http.ResponseWriter, r *http.Request, actor *auth.Actor) {
	body, ok := h.decodeAndValidate(w, r, cancelRequestSchema)
	if !ok {
		return
	}

	scheduleID := r.PathValue("scheduleId")
	warning, err := h.scheduling.Cancel(r.Context(), actor, scheduleID, body["reason"].(string))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := map[string]interface{}{"scheduleId": scheduleID, "status": models.ScheduleCancelled}
	if warning != nil {
		resp["calendarWarning"] = warning
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) rescheduleInterview(w http.ResponseWriter, r *http.Request, actor *auth.Actor) {
	body, ok := h.decodeAndValidate(w, r, rescheduleRequestSchema)
	if !ok {
		return
	}

	sched, err := h.scheduling.Reschedule(r.Context(), actor, r.PathValue("scheduleId"), body["newSlotId"].(string))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

func (h *Handler) updateRoundOutcome(w http.ResponseWriter, r *http.Request, actor *auth.Actor) {
	body, ok := h.decodeAndValidate(w, r, roundOutcomeSchema)
	if !ok {
		return
	}

	outcome := &models.RoundOutcome{
		ApplicantID: r.PathValue("applicantId"),
		RoundType:   models.RoundType(body["roundType"].(string)),
		Status:      body["status"].(string),
		Author:      actor.ID,
	}
	if comments, ok := body["comments"].(string); ok {
		outcome.Comments = comments
	}

	if err := h.outcomes.RecordOutcome(r.Context(), outcome); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) updateFinalDecision(w http.ResponseWriter, r *http.Request, actor *auth.Actor) {
	body, ok := h.decodeAndValidate(w, r, finalDecisionSchema)
	if !ok {
		return
	}

	applicantID := r.PathValue("applicantId")
	value := body["value"].(string)

	var (
		result interface{}
		err    error
	)
	switch body["field"].(string) {
	case "offerLetterStatus":
		result, err = h.decisions.UpdateOffer(r.Context(), actor, applicantID, value)
	case "onboardedStatus":
		var joiningDate *time.Time
		if raw, ok := body["joiningDate"].(string); ok && raw != "" {
			parsed, parseErr := time.Parse("2006-01-02", raw)
			if parseErr != nil {
				writeError(w, h.logger, errors.NewValidationFailed("joiningDate must be a YYYY-MM-DD date"))
				return
			}
			joiningDate = &parsed
		}
		result, err = h.decisions.UpdateOnboarding(r.Context(), actor, applicantID, value, joiningDate)
	case "finalNotes":
		result, err = h.decisions.UpdateNotes(r.Context(), actor, applicantID, value)
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// decodeAndValidate decodes the JSON body and validates it against the
// schema, writing the error response itself on failure.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, schema validation.JSONSchema) (map[string]interface{}, bool) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, h.logger, errors.NewValidationFailed("request body must be valid JSON"))
		return nil, false
	}

	if result := validation.ValidateInput(body, schema); !result.Valid {
		writeError(w, h.logger, errors.NewValidationFailed(validation.FormatErrors(result)))
		return nil, false
	}
	return body, true
}

// statusForCode maps the error taxonomy onto HTTP statuses.
func statusForCode(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeValidationFailed:
		return http.StatusBadRequest
	case errors.ErrCodeUnauthorized:
		return http.StatusForbidden
	case errors.ErrCodeScheduleNotFound:
		return http.StatusNotFound
	case errors.ErrCodeSlotAlreadyBooked:
		return http.StatusConflict
	case errors.ErrCodeGateViolation, errors.ErrCodeInvalidRegression:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeCalendarCreateFailed, errors.ErrCodeCalendarDeleteFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	var se *errors.StandardError
	if !stderrors.As(err, &se) {
		se = &errors.StandardError{
			Code:      errors.ErrCodeStorageFailed,
			Message:   "Internal error",
			Details:   err.Error(),
			Timestamp: time.Now().UTC(),
		}
	}

	status := statusForCode(se.Code)
	if status >= 500 {
		log.Error("request failed", map[string]interface{}{"code": se.Code, "details": se.Details})
	}
	writeJSON(w, status, map[string]interface{}{"error": se})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
