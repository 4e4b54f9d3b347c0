package model

import (
	"time"

	"github.com/google/uuid"
)

// AssessmentStatus enumerates the possible states of an assessment.
type AssessmentStatus string

const (
	AssessmentStatusDraft     AssessmentStatus = "DRAFT"
	AssessmentStatusPublished AssessmentStatus = "PUBLISHED"
	AssessmentStatusArchived  AssessmentStatus = "ARCHIVED"
)

// Assessment is an ordered set of questions plus timing configuration.
// Programming questions in an assessment all run under the same
// language/version pair, matching what the execution service expects.
type Assessment struct {
	ID              uuid.UUID        `json:"id"`
	Title           string           `json:"title"`
	AuthorID        int              `json:"author_id"`
	Language        string           `json:"language"`
	LanguageVersion string           `json:"language_version"`
	DurationMinutes int              `json:"duration_minutes"`
	Status          AssessmentStatus `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// CreateAssessmentRequest is the payload for creating a new assessment.
type CreateAssessmentRequest struct {
	Title           string `json:"title" binding:"required,min=3,max=255"`
	Language        string `json:"language" binding:"required,min=1,max=40"`
	LanguageVersion string `json:"language_version" binding:"required,min=1,max=40"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1,max=480"`
}

// AssessmentPayload is the Redis-cached payload sent to learners.
// Expected outputs and correct options are stripped.
type AssessmentPayload struct {
	AssessmentID    uuid.UUID            `json:"assessment_id"`
	Title           string               `json:"title"`
	Language        string               `json:"language"`
	LanguageVersion string               `json:"language_version"`
	DurationMinutes int                  `json:"duration_minutes"`
	Questions       []QuestionForLearner `json:"questions"`
}
