package model

import (
	"github.com/google/uuid"
)

// AnswerKind distinguishes how a question is answered and scored.
type AnswerKind string

const (
	AnswerKindProgramming AnswerKind = "PROGRAMMING"
	AnswerKindChoice      AnswerKind = "CHOICE"
)

// Question is a single assessment question. Immutable for the lifetime
// of an attempt.
type Question struct {
	ID           uuid.UUID  `json:"id"`
	AssessmentID uuid.UUID  `json:"assessment_id"`
	Text         string     `json:"text"`
	Kind         AnswerKind `json:"kind"`
	Points       int        `json:"points"`
	OrderNum     int        `json:"order_num"`

	// Programming questions only.
	ExpectedOutput string `json:"expected_output,omitempty"`
	StarterCode    string `json:"starter_code,omitempty"`

	// Choice questions only. Options maps option key to display text;
	// CorrectOptionValue equals one option's display text.
	Options            map[string]string `json:"options,omitempty"`
	CorrectOptionValue string            `json:"correct_option_value,omitempty"`
}

// QuestionForLearner is a question with scoring data stripped, sent to learners.
type QuestionForLearner struct {
	ID          uuid.UUID         `json:"id"`
	Text        string            `json:"text"`
	Kind        AnswerKind        `json:"kind"`
	Points      int               `json:"points"`
	OrderNum    int               `json:"order_num"`
	StarterCode string            `json:"starter_code,omitempty"`
	Options     map[string]string `json:"options,omitempty"`
}

// ForLearner strips the expected output and correct option from a question.
func (q Question) ForLearner() QuestionForLearner {
	return QuestionForLearner{
		ID:          q.ID,
		Text:        q.Text,
		Kind:        q.Kind,
		Points:      q.Points,
		OrderNum:    q.OrderNum,
		StarterCode: q.StarterCode,
		Options:     q.Options,
	}
}

// AddQuestionRequest is the payload for adding a question to an assessment.
type AddQuestionRequest struct {
	Text     string `json:"text" binding:"required,min=1,max=4000"`
	Kind     string `json:"kind" binding:"required,oneof=PROGRAMMING CHOICE"`
	Points   int    `json:"points" binding:"required,min=1,max=100"`
	OrderNum int    `json:"order_num" binding:"min=0"`

	ExpectedOutput string `json:"expected_output" binding:"omitempty,max=10000"`
	StarterCode    string `json:"starter_code" binding:"omitempty,max=20000"`

	Options            map[string]string `json:"options" binding:"omitempty"`
	CorrectOptionValue string            `json:"correct_option_value" binding:"omitempty,max=2000"`
}
