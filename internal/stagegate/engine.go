// Package stagegate decides which pipeline stage transitions are currently
// legal for an applicant. It is pure: no side effects, no I/O.
package stagegate

import "admissions-coordinator/internal/models"

// Stage is a gated pipeline stage whose entry depends on prior rounds.
type Stage string

const (
	StageLR    Stage = "LR"
	StageCFR   Stage = "CFR"
	StageOffer Stage = "OFFER"
)

// Terminal-pass lookup tables. A status unlocks the next stage only if it
// appears here; a status that merely contains the word "pass" does not.
var screeningPass = map[string]bool{
	models.ScreeningPass: true,
}

var learningPass = map[string]bool{
	models.LearningPass: true,
}

var culturalPass = map[string]bool{
	models.CulturalPass: true,
}

// IsTerminalPass reports whether status is a pass-terminal value for the
// given round type.
func IsTerminalPass(round models.RoundType, status string) bool {
	switch round {
	case models.RoundScreening:
		return screeningPass[status]
	case models.RoundLearning:
		return learningPass[status]
	case models.RoundCultural:
		return culturalPass[status]
	}
	return false
}

// HasPassed reports whether the applicant has passed the given round.
// Screening additionally passes via the "Created Without Exam" bypass,
// which unlocks LR without any screening attempt carrying a pass status.
func HasPassed(outcomes *models.RoundOutcomes, round models.RoundType) bool {
	if outcomes == nil {
		return false
	}
	switch round {
	case models.RoundScreening:
		if outcomes.Screening == nil {
			return false
		}
		s := outcomes.Screening.Status
		return screeningPass[s] || s == models.ScreeningWithoutExam
	case models.RoundLearning:
		for _, o := range outcomes.Learning {
			if learningPass[o.Status] {
				return true
			}
		}
	case models.RoundCultural:
		for _, o := range outcomes.Cultural {
			if culturalPass[o.Status] {
				return true
			}
		}
	}
	return false
}

// IsStageDisabled reports whether entry into stage is currently forbidden.
// The gate is strictly linear: every predecessor round must be passed.
func IsStageDisabled(outcomes *models.RoundOutcomes, stage Stage) bool {
	switch stage {
	case StageLR:
		return !HasPassed(outcomes, models.RoundScreening)
	case StageCFR:
		return !HasPassed(outcomes, models.RoundScreening) ||
			!HasPassed(outcomes, models.RoundLearning)
	case StageOffer:
		return !HasPassed(outcomes, models.RoundScreening) ||
			!HasPassed(outcomes, models.RoundLearning) ||
			!HasPassed(outcomes, models.RoundCultural)
	}
	return true
}

// StageForRound maps an interview round to the stage its scheduling is
// gated by.
func StageForRound(round models.RoundType) Stage {
	switch round {
	case models.RoundCultural:
		return StageCFR
	default:
		return StageLR
	}
}

// CanScheduleNew reports whether a fresh interview booking for a round is
// permitted: the round must not already be passed, its gate must be open,
// and no live booking may be outstanding. The single-active-booking rule
// holds for every scheduler, privileged or not.
func CanScheduleNew(hasPassedRound, stageDisabled, hasActiveBooking bool) bool {
	return !hasPassedRound && !stageDisabled && !hasActiveBooking
}
