// internal/models/decision.go
package models

import "time"

// Offer letter status vocabulary. Progression is monotonic: once the status
// moves past pending it can never be written back to pending.
const (
	OfferPending  = "Offer Pending"
	OfferSent     = "Offer Sent"
	OfferAccepted = "Offer Accepted"
	OfferDeclined = "Offer Declined"
)

var offerRank = map[string]int{
	"":            0,
	OfferPending:  1,
	OfferSent:     2,
	OfferAccepted: 3,
	OfferDeclined: 3,
}

// OfferRank orders offer letter statuses for the monotonic guard. Unknown
// values rank lowest so they can never overwrite a progressed status.
func OfferRank(status string) int {
	return offerRank[status]
}

// ValidOfferStatus reports whether status is in the offer vocabulary.
func ValidOfferStatus(status string) bool {
	switch status {
	case OfferPending, OfferSent, OfferAccepted, OfferDeclined:
		return true
	}
	return false
}

const OnboardedDone = "Onboarded"

// Pipeline stages derived from the final decision record.
const (
	StageFinalDecision = "Final Decision"
	StageOnboarded     = "Onboarded"
)

// FinalDecision is the post-interview record capturing offer and onboarding
// status. At most one exists per applicant (upsert semantics). Stage is a
// projection of the other fields, never authored directly.
type FinalDecision struct {
	ApplicantID       string     `json:"applicantId"`
	OfferLetterStatus string     `json:"offerLetterStatus,omitempty"`
	OnboardedStatus   string     `json:"onboardedStatus,omitempty"`
	JoiningDate       *time.Time `json:"joiningDate,omitempty"`
	Stage             string     `json:"stage,omitempty"`
	FinalNotes        string     `json:"finalNotes,omitempty"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}
