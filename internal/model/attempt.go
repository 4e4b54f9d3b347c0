package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptRecord is one learner's single pass at an assessment. OpenedAt is
// the server-recorded start of the clock; once SubmittedAt is non-null the
// record is immutable and no second commit may be attempted.
type AttemptRecord struct {
	ID                  uuid.UUID  `json:"id"`
	AssessmentID        uuid.UUID  `json:"assessment_id"`
	LearnerID           int        `json:"learner_id"`
	OpenedAt            time.Time  `json:"opened_at"`
	BaseDurationMinutes int        `json:"base_duration_minutes"`
	ExtensionMinutes    int        `json:"extension_minutes"`
	SubmittedAt         *time.Time `json:"submitted_at,omitempty"`
	FinalScore          *float64   `json:"final_score,omitempty"`
}

// Submitted reports whether the attempt has been committed.
func (a *AttemptRecord) Submitted() bool {
	return a.SubmittedAt != nil
}

// TotalAllottedSeconds is the attempt's full allotted time including any
// instructor-granted extension.
func (a *AttemptRecord) TotalAllottedSeconds() int64 {
	return int64(a.BaseDurationMinutes+a.ExtensionMinutes) * 60
}

// GrantExtensionRequest is the payload for extending an attempt's time.
type GrantExtensionRequest struct {
	Minutes int `json:"minutes" binding:"required,min=1,max=240"`
}

// AttemptState is returned to a reloading client: saved drafts plus the
// remaining time derived from the server-recorded open timestamp.
type AttemptState struct {
	AssessmentID     uuid.UUID         `json:"assessment_id"`
	LearnerID        int               `json:"learner_id"`
	Submitted        bool              `json:"submitted"`
	SavedDrafts      map[string]string `json:"saved_drafts"`
	RemainingSeconds int64             `json:"remaining_seconds"`
}
