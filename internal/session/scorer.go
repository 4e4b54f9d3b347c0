package session

import (
	"context"
	"strings"

	"github.com/codeclass/codeclass-backend/internal/model"
)

// Executor runs learner code remotely. One call per evaluation; failures
// are reported, not retried.
type Executor interface {
	Execute(ctx context.Context, language, version, source string) (string, error)
}

// Verdict is a definite evaluation result. Evaluation never errors: a failed
// execution yields IsCorrect false with the diagnostic text in Output.
type Verdict struct {
	Output       string `json:"output"`
	IsCorrect    bool   `json:"is_correct"`
	PointsEarned int    `json:"points_earned"`
}

// Scorer turns raw answers into correctness verdicts: remote execution plus
// trim-equality for programming questions, local comparison for choice.
type Scorer struct {
	exec     Executor
	language string
	version  string
}

// NewScorer creates a scorer bound to the assessment's configured
// execution language and version.
func NewScorer(exec Executor, language, version string) *Scorer {
	return &Scorer{exec: exec, language: language, version: version}
}

// EvaluateProgramming executes rawCode and compares its output to the
// question's expected output after trimming leading and trailing whitespace.
// Exact equality only, no numeric tolerance. A collaborator failure of any
// kind resolves to incorrect with zero points, keeping whatever diagnostic
// output the service produced.
func (s *Scorer) EvaluateProgramming(ctx context.Context, q model.Question, rawCode string) Verdict {
	output, err := s.exec.Execute(ctx, s.language, s.version, rawCode)
	if err != nil {
		if output == "" {
			output = err.Error()
		}
		return Verdict{Output: output, IsCorrect: false, PointsEarned: 0}
	}

	if strings.TrimSpace(output) == strings.TrimSpace(q.ExpectedOutput) {
		return Verdict{Output: output, IsCorrect: true, PointsEarned: q.Points}
	}
	return Verdict{Output: output, IsCorrect: false, PointsEarned: 0}
}

// EvaluateChoice compares the selected option's value to the question's
// correct option value. Pure and synchronous.
func (s *Scorer) EvaluateChoice(q model.Question, selectedValue string) Verdict {
	if selectedValue == q.CorrectOptionValue {
		return Verdict{IsCorrect: true, PointsEarned: q.Points}
	}
	return Verdict{IsCorrect: false, PointsEarned: 0}
}
