package stagegate

import (
	"testing"

	"admissions-coordinator/internal/models"

	"github.com/stretchr/testify/assert"
)

func outcomesWith(screening string, learning, cultural []string) *models.RoundOutcomes {
	out := &models.RoundOutcomes{ApplicantID: "app-001"}
	if screening != "" {
		out.Screening = &models.RoundOutcome{
			ApplicantID: "app-001",
			RoundType:   models.RoundScreening,
			Status:      screening,
		}
	}
	for _, s := range learning {
		out.Learning = append(out.Learning, models.RoundOutcome{
			ApplicantID: "app-001",
			RoundType:   models.RoundLearning,
			Status:      s,
		})
	}
	for _, s := range cultural {
		out.Cultural = append(out.Cultural, models.RoundOutcome{
			ApplicantID: "app-001",
			RoundType:   models.RoundCultural,
			Status:      s,
		})
	}
	return out
}

func TestHasPassed_Screening(t *testing.T) {
	tests := []struct {
		name      string
		screening string
		expected  bool
	}{
		{"terminal pass", models.ScreeningPass, true},
		{"exam bypass sentinel", models.ScreeningWithoutExam, true},
		{"fail", models.ScreeningFail, false},
		{"pending", models.ScreeningPending, false},
		{"no screening record", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := outcomesWith(tt.screening, nil, nil)
			assert.Equal(t, tt.expected, HasPassed(out, models.RoundScreening))
		})
	}
}

func TestHasPassed_InterviewRounds_AnyAttempt(t *testing.T) {
	// A pass on any attempt counts, regardless of later attempts.
	out := outcomesWith(models.ScreeningPass,
		[]string{models.LearningNoShow, models.LearningPass},
		[]string{models.CulturalFail, models.CulturalReschedule},
	)

	assert.True(t, HasPassed(out, models.RoundLearning))
	assert.False(t, HasPassed(out, models.RoundCultural))
}

func TestHasPassed_NilOutcomes(t *testing.T) {
	assert.False(t, HasPassed(nil, models.RoundScreening))
	assert.False(t, HasPassed(nil, models.RoundLearning))
	assert.False(t, HasPassed(nil, models.RoundCultural))
}

func TestIsTerminalPass_NoSubstringMatching(t *testing.T) {
	// A hypothetical status containing "pass" as a substring must not
	// count as a pass; only table entries do.
	assert.False(t, IsTerminalPass(models.RoundLearning, "LR Passport Check"))
	assert.False(t, IsTerminalPass(models.RoundLearning, "lr pass"))
	assert.True(t, IsTerminalPass(models.RoundLearning, models.LearningPass))
	assert.True(t, IsTerminalPass(models.RoundScreening, models.ScreeningPass))
	// The bypass sentinel is not a terminal pass status; HasPassed handles it.
	assert.False(t, IsTerminalPass(models.RoundScreening, models.ScreeningWithoutExam))
}

func TestIsStageDisabled_LinearGate(t *testing.T) {
	tests := []struct {
		name      string
		outcomes  *models.RoundOutcomes
		lr        bool
		cfr       bool
		offer     bool
	}{
		{
			name:     "nothing passed",
			outcomes: outcomesWith(models.ScreeningPending, nil, nil),
			lr:       true, cfr: true, offer: true,
		},
		{
			name:     "screening passed",
			outcomes: outcomesWith(models.ScreeningPass, nil, nil),
			lr:       false, cfr: true, offer: true,
		},
		{
			name:     "screening and LR passed",
			outcomes: outcomesWith(models.ScreeningPass, []string{models.LearningPass}, nil),
			lr:       false, cfr: false, offer: true,
		},
		{
			name: "all passed",
			outcomes: outcomesWith(models.ScreeningPass,
				[]string{models.LearningPass}, []string{models.CulturalPass}),
			lr: false, cfr: false, offer: false,
		},
		{
			name:     "LR passed without screening stays locked",
			outcomes: outcomesWith(models.ScreeningFail, []string{models.LearningPass}, nil),
			lr:       true, cfr: true, offer: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.lr, IsStageDisabled(tt.outcomes, StageLR))
			assert.Equal(t, tt.cfr, IsStageDisabled(tt.outcomes, StageCFR))
			assert.Equal(t, tt.offer, IsStageDisabled(tt.outcomes, StageOffer))
		})
	}
}

func TestIsStageDisabled_Monotonic(t *testing.T) {
	// Whenever LR is disabled, CFR must be too; whenever CFR is disabled,
	// OFFER must be too.
	combos := []*models.RoundOutcomes{
		nil,
		outcomesWith("", nil, nil),
		outcomesWith(models.ScreeningPending, nil, nil),
		outcomesWith(models.ScreeningFail, []string{models.LearningPass}, []string{models.CulturalPass}),
		outcomesWith(models.ScreeningPass, nil, []string{models.CulturalPass}),
		outcomesWith(models.ScreeningWithoutExam, nil, nil),
		outcomesWith(models.ScreeningWithoutExam, []string{models.LearningPass}, nil),
	}

	for _, out := range combos {
		if IsStageDisabled(out, StageLR) {
			assert.True(t, IsStageDisabled(out, StageCFR))
		}
		if IsStageDisabled(out, StageCFR) {
			assert.True(t, IsStageDisabled(out, StageOffer))
		}
	}
}

func TestExamBypassUnlocksLR(t *testing.T) {
	out := outcomesWith(models.ScreeningWithoutExam, nil, nil)

	assert.True(t, HasPassed(out, models.RoundScreening))
	assert.False(t, IsStageDisabled(out, StageLR))
	// No skip-ahead: CFR still requires a real LR pass.
	assert.True(t, IsStageDisabled(out, StageCFR))
}

func TestCanScheduleNew(t *testing.T) {
	tests := []struct {
		name                             string
		passed, disabled, activeBooking  bool
		expected                         bool
	}{
		{"open gate, no booking", false, false, false, true},
		{"already passed", true, false, false, false},
		{"gate disabled", false, true, false, false},
		{"active booking outstanding", false, false, true, false},
		{"everything wrong", true, true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanScheduleNew(tt.passed, tt.disabled, tt.activeBooking))
		})
	}
}

func TestStageForRound(t *testing.T) {
	assert.Equal(t, StageLR, StageForRound(models.RoundLearning))
	assert.Equal(t, StageCFR, StageForRound(models.RoundCultural))
}
