// internal/models/applicant.go
package models

import "time"

// Applicant is the contact-facing slice of an application the coordinator
// needs for invites and notifications.
type Applicant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Stage     string    `json:"stage"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
