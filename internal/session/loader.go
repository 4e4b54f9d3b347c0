package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/codeclass/codeclass-backend/internal/model"
)

var (
	// ErrAssessmentNotFound is returned when the assessment does not exist
	// or is not available to learners.
	ErrAssessmentNotFound = errors.New("assessment not found")
	// ErrNoAttempt is returned when loading without starting and the learner
	// has no attempt on record.
	ErrNoAttempt = errors.New("attempt not started")
	// ErrNoQuestions is returned when an assessment has an empty question set.
	ErrNoQuestions = errors.New("assessment has no questions")
)

// QuestionSource provides the assessment and its ordered question set.
type QuestionSource interface {
	GetPublishedAssessment(ctx context.Context, id uuid.UUID) (model.Assessment, error)
	ListQuestions(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error)
}

// AttemptStore provides attempt records and previously saved answers.
// StartAttempt is idempotent: starting an already started attempt returns
// the existing record.
type AttemptStore interface {
	StartAttempt(ctx context.Context, assessmentID uuid.UUID, learnerID int, baseDurationMinutes int) (model.AttemptRecord, error)
	GetAttempt(ctx context.Context, assessmentID uuid.UUID, learnerID int) (model.AttemptRecord, error)
	ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.AttemptAnswer, error)
}

// Recorder commits the final answer payload. It must record at most once per
// attempt: when the attempt is already submitted it reports already=true and
// records nothing.
type Recorder interface {
	Record(ctx context.Context, attemptID uuid.UUID, answers []model.AnswerSubmission) (already bool, err error)
}

// Loader builds a Session for one (assessment, learner) pair: the ordered
// question list, the attempt record, and the answer buffer seeded from any
// previously saved answers. The same path serves resume-before-submit and
// review-after-submit.
type Loader struct {
	questions QuestionSource
	attempts  AttemptStore
	recorder  Recorder
	exec      Executor
	now       func() time.Time
	log       zerolog.Logger
}

// NewLoader creates a Loader. now is injectable for tests; pass nil for
// time.Now.
func NewLoader(questions QuestionSource, attempts AttemptStore, recorder Recorder, exec Executor, now func() time.Time, log zerolog.Logger) *Loader {
	if now == nil {
		now = time.Now
	}
	return &Loader{
		questions: questions,
		attempts:  attempts,
		recorder:  recorder,
		exec:      exec,
		now:       now,
		log:       log.With().Str("component", "session_loader").Logger(),
	}
}

// Load assembles a session. With start=true a missing attempt record is
// created through the idempotent start; with start=false a missing record is
// ErrNoAttempt. An already submitted attempt yields a read-only review
// session whose clock never starts.
func (l *Loader) Load(ctx context.Context, assessmentID uuid.UUID, learnerID int, start bool) (*Session, error) {
	assessment, err := l.questions.GetPublishedAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	questions, err := l.questions.ListQuestions(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].OrderNum < questions[j].OrderNum
	})

	var attempt model.AttemptRecord
	if start {
		attempt, err = l.attempts.StartAttempt(ctx, assessmentID, learnerID, assessment.DurationMinutes)
	} else {
		attempt, err = l.attempts.GetAttempt(ctx, assessmentID, learnerID)
	}
	if err != nil {
		return nil, err
	}

	buffer := NewBuffer(len(questions))
	saved, err := l.attempts.ListAnswers(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("load saved answers: %w", err)
	}
	byQuestion := make(map[uuid.UUID]model.AttemptAnswer, len(saved))
	for _, ans := range saved {
		byQuestion[ans.QuestionID] = ans
	}
	for i, q := range questions {
		if ans, ok := byQuestion[q.ID]; ok {
			buffer.Seed(i, ans.Raw, ans.IsCorrect, ans.PointsEarned)
		}
	}

	s := &Session{
		assessment: assessment,
		attempt:    attempt,
		questions:  questions,
		buffer:     buffer,
		cursor:     NewCursor(len(questions)),
		scorer:     NewScorer(l.exec, assessment.Language, assessment.LanguageVersion),
		attempts:   l.attempts,
		recorder:   l.recorder,
		seq:        make([]uint64, len(questions)),
		log: l.log.With().
			Str("attempt_id", attempt.ID.String()).
			Int("learner_id", learnerID).
			Logger(),
	}

	if attempt.Submitted() {
		s.committed = true
	} else {
		s.clock = NewClock(attempt.OpenedAt, attempt.BaseDurationMinutes, attempt.ExtensionMinutes, l.now)
	}

	l.log.Debug().
		Str("assessment_id", assessmentID.String()).
		Int("learner_id", learnerID).
		Bool("review", s.committed).
		Int("questions", len(questions)).
		Msg("Session loaded")

	return s, nil
}
