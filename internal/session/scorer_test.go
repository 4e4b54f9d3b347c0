package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/codeclass/codeclass-backend/internal/model"
)

type fakeExecutor struct {
	output string
	err    error
	calls  int
}

func (f *fakeExecutor) Execute(ctx context.Context, language, version, source string) (string, error) {
	f.calls++
	return f.output, f.err
}

func TestEvaluateProgramming(t *testing.T) {
	question := model.Question{
		ID:             uuid.New(),
		Kind:           model.AnswerKindProgramming,
		Points:         10,
		ExpectedOutput: "42",
	}

	tests := []struct {
		name       string
		output     string
		err        error
		wantOK     bool
		wantPoints int
		wantOutput string
	}{
		{"exact match", "42", nil, true, 10, "42"},
		{"trim equality", " 42\n", nil, true, 10, " 42\n"},
		{"wrong output", "43", nil, false, 0, "43"},
		{"no whitespace collapsing inside", "4 2", nil, false, 0, "4 2"},
		{"execution failure keeps diagnostic", "SyntaxError: line 1", errors.New("execution failed"), false, 0, "SyntaxError: line 1"},
		{"transport failure uses error text", "", errors.New("connection refused"), false, 0, "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scorer := NewScorer(&fakeExecutor{output: tt.output, err: tt.err}, "python", "3.12")
			v := scorer.EvaluateProgramming(context.Background(), question, "print(42)")
			if v.IsCorrect != tt.wantOK {
				t.Errorf("IsCorrect = %v, want %v", v.IsCorrect, tt.wantOK)
			}
			if v.PointsEarned != tt.wantPoints {
				t.Errorf("PointsEarned = %d, want %d", v.PointsEarned, tt.wantPoints)
			}
			if v.Output != tt.wantOutput {
				t.Errorf("Output = %q, want %q", v.Output, tt.wantOutput)
			}
		})
	}
}

func TestEvaluateChoice(t *testing.T) {
	question := model.Question{
		ID:                 uuid.New(),
		Kind:               model.AnswerKindChoice,
		Points:             5,
		Options:            map[string]string{"A": "cat", "B": "dog"},
		CorrectOptionValue: "dog",
	}
	exec := &fakeExecutor{}
	scorer := NewScorer(exec, "python", "3.12")

	if v := scorer.EvaluateChoice(question, "cat"); v.IsCorrect || v.PointsEarned != 0 {
		t.Errorf("wrong selection scored %+v", v)
	}
	if v := scorer.EvaluateChoice(question, "dog"); !v.IsCorrect || v.PointsEarned != 5 {
		t.Errorf("correct selection scored %+v", v)
	}
	if exec.calls != 0 {
		t.Errorf("choice evaluation made %d executor calls, want 0", exec.calls)
	}
}
