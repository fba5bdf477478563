// Package decision owns the post-interview final decision record: offer
// letter progression, onboarding, and the stage projection derived from
// them.
package decision

import "admissions-coordinator/internal/models"

// ResolveStage projects the pipeline stage from the decision fields.
// Onboarding dominates the offer status; with neither field set the
// current stage is left untouched.
func ResolveStage(current string, offerStatus, onboardedStatus string) string {
	switch {
	case onboardedStatus == models.OnboardedDone:
		return models.StageOnboarded
	case offerStatus != "":
		return models.StageFinalDecision
	default:
		return current
	}
}
