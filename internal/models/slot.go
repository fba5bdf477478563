// internal/models/slot.go
package models

import "time"

type SlotStatus string

const (
	SlotAvailable SlotStatus = "Available"
	SlotBooked    SlotStatus = "Booked"
)

// Slot is a bookable time window tied to an interviewer and a round type.
// Slots are created externally; the coordinator only flips availability.
type Slot struct {
	ID            string     `json:"id"`
	Date          time.Time  `json:"date"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       time.Time  `json:"endTime"`
	RoundType     RoundType  `json:"roundType"`
	InterviewerID string     `json:"interviewerId"`
	Status        SlotStatus `json:"status"`
}
