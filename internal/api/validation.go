package api

import (
	"admissions-coordinator/internal/common/validation"
	"admissions-coordinator/internal/models"
)

var scheduleRequestSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"applicantId": {Type: "string", MinLength: validation.IntPtr(1)},
		"slotId":      {Type: "string", MinLength: validation.IntPtr(1)},
		"roundType": {
			Type: "string",
			Enum: []string{string(models.RoundLearning), string(models.RoundCultural)},
		},
		"participants": {
			Type:  "array",
			Items: &validation.Property{Type: "string"},
		},
	},
	Required: []string{"applicantId", "slotId", "roundType"},
}

var cancelRequestSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"reason": {Type: "string", MinLength: validation.IntPtr(1), MaxLength: validation.IntPtr(500)},
	},
	Required: []string{"reason"},
}

var rescheduleRequestSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"newSlotId": {Type: "string", MinLength: validation.IntPtr(1)},
	},
	Required: []string{"newSlotId"},
}

var roundOutcomeSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"roundType": {
			Type: "string",
			Enum: []string{
				string(models.RoundScreening),
				string(models.RoundLearning),
				string(models.RoundCultural),
			},
		},
		"status":   {Type: "string", MinLength: validation.IntPtr(1)},
		"comments": {Type: "string", MaxLength: validation.IntPtr(2000)},
	},
	Required: []string{"roundType", "status"},
}

var finalDecisionSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"field": {
			Type: "string",
			Enum: []string{"offerLetterStatus", "onboardedStatus", "finalNotes"},
		},
		"value":       {Type: "string"},
		"joiningDate": {Type: "string"},
	},
	Required: []string{"field", "value"},
}
