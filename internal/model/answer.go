package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptAnswer is a per-question answer row. While the attempt is open the
// row holds the latest draft and evaluation snapshot; after commit it holds
// the submitted answer. IsCorrect is nil until the question has been
// evaluated at least once.
type AttemptAnswer struct {
	AttemptID    uuid.UUID `json:"attempt_id"`
	QuestionID   uuid.UUID `json:"question_id"`
	Raw          string    `json:"raw"`
	IsCorrect    *bool     `json:"is_correct"`
	PointsEarned int       `json:"points_earned"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AnswerSubmission is one wire payload entry of a commit. Questions that
// were never evaluated are submitted as incorrect with zero points.
type AnswerSubmission struct {
	QuestionID   uuid.UUID `json:"question_id"`
	Raw          string    `json:"raw"`
	IsCorrect    bool      `json:"is_correct"`
	PointsEarned int       `json:"points_earned"`
}
