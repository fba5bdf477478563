// internal/models/round.go
package models

import "time"

// RoundType identifies one gated step of the admission pipeline.
type RoundType string

const (
	RoundScreening RoundType = "screening"
	RoundLearning  RoundType = "learning"
	RoundCultural  RoundType = "cultural"
)

// ValidRoundType reports whether the tag names a known round.
func ValidRoundType(t RoundType) bool {
	switch t {
	case RoundScreening, RoundLearning, RoundCultural:
		return true
	}
	return false
}

// Closed status vocabularies per round type. Pass detection is a lookup
// over these values, never text matching.
const (
	ScreeningPass          = "Screening Test Pass"
	ScreeningFail          = "Screening Test Fail"
	ScreeningPending       = "Screening Pending"
	ScreeningWithoutExam   = "Created Without Exam" // explicit exam-bypass sentinel

	LearningPass       = "LR Pass"
	LearningFail       = "LR Fail"
	LearningReschedule = "LR Reschedule"
	LearningNoShow     = "LR No Show"

	CulturalPass       = "CFR Pass"
	CulturalFail       = "CFR Fail"
	CulturalReschedule = "CFR Reschedule"
	CulturalNoShow     = "CFR No Show"
)

// RoundStatuses maps each round type to its closed vocabulary.
var RoundStatuses = map[RoundType][]string{
	RoundScreening: {ScreeningPass, ScreeningFail, ScreeningPending, ScreeningWithoutExam},
	RoundLearning:  {LearningPass, LearningFail, LearningReschedule, LearningNoShow},
	RoundCultural:  {CulturalPass, CulturalFail, CulturalReschedule, CulturalNoShow},
}

// ValidRoundStatus reports whether status belongs to the round's vocabulary.
func ValidRoundStatus(round RoundType, status string) bool {
	for _, s := range RoundStatuses[round] {
		if s == status {
			return true
		}
	}
	return false
}

// RoundOutcome is one recorded attempt of a pipeline round.
type RoundOutcome struct {
	ID          string    `json:"id"`
	ApplicantID string    `json:"applicantId"`
	RoundType   RoundType `json:"roundType"`
	Status      string    `json:"status"`
	Comments    string    `json:"comments,omitempty"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RoundOutcomes is the denormalized per-applicant view the gate engine
// consumes: one active screening outcome, ordered attempt lists for the
// interview rounds.
type RoundOutcomes struct {
	ApplicantID string         `json:"applicantId"`
	Screening   *RoundOutcome  `json:"screening,omitempty"`
	Learning    []RoundOutcome `json:"learning"`
	Cultural    []RoundOutcome `json:"cultural"`
}
