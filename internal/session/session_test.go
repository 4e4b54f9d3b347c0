package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/codeclass/codeclass-backend/internal/model"
)

type fakeQuestionSource struct {
	assessment model.Assessment
	questions  []model.Question
}

func (f *fakeQuestionSource) GetPublishedAssessment(ctx context.Context, id uuid.UUID) (model.Assessment, error) {
	if f.assessment.ID != id {
		return model.Assessment{}, ErrAssessmentNotFound
	}
	return f.assessment, nil
}

func (f *fakeQuestionSource) ListQuestions(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error) {
	return f.questions, nil
}

type fakeAttemptStore struct {
	mu      sync.Mutex
	attempt model.AttemptRecord
	started bool
	answers []model.AttemptAnswer
}

func (f *fakeAttemptStore) StartAttempt(ctx context.Context, assessmentID uuid.UUID, learnerID int, baseDurationMinutes int) (model.AttemptRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return f.attempt, nil
}

func (f *fakeAttemptStore) GetAttempt(ctx context.Context, assessmentID uuid.UUID, learnerID int) (model.AttemptRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return model.AttemptRecord{}, ErrNoAttempt
	}
	return f.attempt, nil
}

func (f *fakeAttemptStore) ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.AttemptAnswer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.answers, nil
}

func (f *fakeAttemptStore) markSubmitted() {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	f.attempt.SubmittedAt = &now
}

type fakeRecorder struct {
	mu      sync.Mutex
	calls   int
	failing bool
	last    []model.AnswerSubmission
}

func (f *fakeRecorder) Record(ctx context.Context, attemptID uuid.UUID, answers []model.AnswerSubmission) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return false, errors.New("record: connection reset")
	}
	f.calls++
	f.last = answers
	return false, nil
}

func (f *fakeRecorder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixture struct {
	assessmentID uuid.UUID
	questions    fakeQuestionSource
	attempts     fakeAttemptStore
	recorder     fakeRecorder
	exec         fakeExecutor
	now          time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	assessmentID := uuid.New()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := &fixture{
		assessmentID: assessmentID,
		now:          now,
		exec:         fakeExecutor{output: "42"},
	}
	f.questions = fakeQuestionSource{
		assessment: model.Assessment{
			ID:              assessmentID,
			Title:           "Loops and Conditionals",
			Language:        "python",
			LanguageVersion: "3.12",
			DurationMinutes: 30,
			Status:          model.AssessmentStatusPublished,
		},
		questions: []model.Question{
			{ID: uuid.New(), AssessmentID: assessmentID, Kind: model.AnswerKindProgramming, Points: 10, OrderNum: 1, ExpectedOutput: "42"},
			{ID: uuid.New(), AssessmentID: assessmentID, Kind: model.AnswerKindChoice, Points: 5, OrderNum: 2, Options: map[string]string{"A": "cat", "B": "dog"}, CorrectOptionValue: "dog"},
			{ID: uuid.New(), AssessmentID: assessmentID, Kind: model.AnswerKindProgramming, Points: 10, OrderNum: 3, ExpectedOutput: "7"},
		},
	}
	f.attempts = fakeAttemptStore{
		attempt: model.AttemptRecord{
			ID:                  uuid.New(),
			AssessmentID:        assessmentID,
			LearnerID:           7,
			OpenedAt:            now.Add(-5 * time.Minute),
			BaseDurationMinutes: 30,
		},
	}
	return f
}

func (f *fixture) load(t *testing.T, start bool) *Session {
	t.Helper()
	loader := NewLoader(&f.questions, &f.attempts, &f.recorder, &f.exec, func() time.Time { return f.now }, zerolog.Nop())
	s, err := loader.Load(context.Background(), f.assessmentID, 7, start)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func TestSubmitIsIdempotent(t *testing.T) {
	f := newFixture(t)
	s := f.load(t, true)

	res, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if res.AlreadySubmitted {
		t.Error("first Submit reported AlreadySubmitted")
	}

	// Simulates manual submit racing the clock's auto-submit.
	res, err = s.Submit(context.Background())
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if !res.AlreadySubmitted {
		t.Error("second Submit did not report AlreadySubmitted")
	}
	if got := f.recorder.callCount(); got != 1 {
		t.Errorf("recorder called %d times, want 1", got)
	}
	if !s.Committed() {
		t.Error("session not committed after submit")
	}
}

func TestSubmitUnscoredSlotsGoOutAsIncorrect(t *testing.T) {
	f := newFixture(t)
	s := f.load(t, true)

	// Only the choice question is ever answered.
	if _, err := s.Select(1, "dog"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(f.recorder.last) != 3 {
		t.Fatalf("payload has %d entries, want 3", len(f.recorder.last))
	}
	for i, sub := range f.recorder.last {
		switch i {
		case 1:
			if !sub.IsCorrect || sub.PointsEarned != 5 || sub.Raw != "dog" {
				t.Errorf("scored slot = %+v", sub)
			}
		default:
			if sub.IsCorrect || sub.PointsEarned != 0 {
				t.Errorf("unscored slot %d = %+v, want incorrect zero", i, sub)
			}
		}
	}
}

func TestSubmitSuppressedWhenStoreAlreadySubmitted(t *testing.T) {
	f := newFixture(t)
	s := f.load(t, true)

	// Another process committed the attempt behind this session's back.
	f.attempts.markSubmitted()

	res, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.AlreadySubmitted {
		t.Error("Submit did not detect the stored submission")
	}
	if got := f.recorder.callCount(); got != 0 {
		t.Errorf("recorder called %d times, want 0", got)
	}
}

func TestSubmitFailureLeavesAttemptOpen(t *testing.T) {
	f := newFixture(t)
	s := f.load(t, true)
	s.SaveDraft(0, "print(42)")

	f.recorder.failing = true
	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatal("Submit succeeded against a failing recorder")
	}
	if s.Committed() {
		t.Fatal("session committed after failed submit")
	}
	if got := s.Entry(0).Raw; got != "print(42)" {
		t.Errorf("draft lost after failed submit: %q", got)
	}

	// Retry lands.
	f.recorder.failing = false
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
	if !s.Committed() {
		t.Error("session not committed after retry")
	}
}

func TestNavigationPreservesBuffer(t *testing.T) {
	f := newFixture(t)
	s := f.load(t, true)

	pending := "x"
	index, _ := s.Navigate(&pending, 1)
	if index != 1 {
		t.Fatalf("Navigate to 1 landed on %d", index)
	}
	index, entry := s.Navigate(nil, 0)
	if index != 0 {
		t.Fatalf("Navigate back landed on %d", index)
	}
	if entry.Raw != "x" {
		t.Errorf("slot 0 = %q after round trip, want %q", entry.Raw, "x")
	}
}

func TestNavigationClearsTransientOutput(t *testing.T) {
	f := newFixture(t)
	s := f.load(t, true)

	if _, stale, err := s.Run(context.Background(), 0, "print(42)"); err != nil || stale {
		t.Fatalf("Run: stale=%v err=%v", stale, err)
	}
	if s.TransientOutput() == "" {
		t.Fatal("no transient output after run")
	}
	s.Navigate(nil, 1)
	if out := s.TransientOutput(); out != "" {
		t.Errorf("transient output %q survived navigation", out)
	}
	// The verdict itself stays in the buffer.
	if entry := s.Entry(0); entry.IsCorrect == nil || !*entry.IsCorrect {
		t.Errorf("slot 0 score lost on navigation: %+v", entry)
	}
}

func TestRunStaleResultDropped(t *testing.T) {
	f := newFixture(t)
	s := f.load(t, true)

	gated := &gatedExecutor{started: make(chan struct{}), release: make(chan struct{})}
	s.scorer = NewScorer(gated, "python", "3.12")

	done := make(chan bool, 1)
	go func() {
		_, stale, _ := s.Run(context.Background(), 0, "print(41)")
		done <- stale
	}()
	<-gated.started

	// A newer run for the same slot finishes first.
	if _, stale, err := s.Run(context.Background(), 0, "print(42)"); err != nil || stale {
		t.Fatalf("second Run: stale=%v err=%v", stale, err)
	}

	close(gated.release)
	if stale := <-done; !stale {
		t.Error("superseded run was not reported stale")
	}

	entry := s.Entry(0)
	if entry.Raw != "print(42)" || entry.IsCorrect == nil || !*entry.IsCorrect {
		t.Errorf("buffer holds stale result: %+v", entry)
	}
}

func TestResumeSeedsSavedAnswers(t *testing.T) {
	f := newFixture(t)
	correct := true
	f.attempts.started = true
	f.attempts.answers = []model.AttemptAnswer{
		{AttemptID: f.attempts.attempt.ID, QuestionID: f.questions.questions[0].ID, Raw: "print(42)", IsCorrect: &correct, PointsEarned: 10},
	}

	s := f.load(t, false)
	entry := s.Entry(0)
	if entry.Raw != "print(42)" || entry.IsCorrect == nil || !*entry.IsCorrect || entry.PointsEarned != 10 {
		t.Errorf("seeded slot = %+v", entry)
	}
	if s.Committed() {
		t.Error("open attempt loaded as review session")
	}
	if s.Remaining() != 25*60 {
		t.Errorf("Remaining = %d, want %d", s.Remaining(), 25*60)
	}
}

func TestSubmittedAttemptLoadsReadOnly(t *testing.T) {
	f := newFixture(t)
	f.attempts.started = true
	f.attempts.markSubmitted()

	s := f.load(t, false)
	if !s.Committed() {
		t.Fatal("submitted attempt did not load read-only")
	}
	if s.Remaining() != 0 {
		t.Errorf("Remaining = %d for a closed attempt", s.Remaining())
	}
	if err := s.SaveDraft(0, "x"); !errors.Is(err, ErrAttemptClosed) {
		t.Errorf("SaveDraft err = %v, want ErrAttemptClosed", err)
	}
	if _, _, err := s.Run(context.Background(), 0, "x"); !errors.Is(err, ErrAttemptClosed) {
		t.Errorf("Run err = %v, want ErrAttemptClosed", err)
	}
	// Review browsing still works.
	if index, _ := s.Navigate(nil, 2); index != 2 {
		t.Errorf("review navigation landed on %d", index)
	}
}

func TestAutoSubmitFiresOnceOnExpiry(t *testing.T) {
	f := newFixture(t)
	f.attempts.attempt.OpenedAt = f.now.Add(-31 * time.Minute)
	s := f.load(t, true)

	expired := make(chan struct{}, 4)
	s.SetHooks(Hooks{OnExpired: func() { expired <- struct{}{} }})
	s.StartClock()
	defer s.clock.Stop()

	for i := 0; i < 3; i++ {
		s.clock.ExpireIfDue()
	}

	if got := f.recorder.callCount(); got != 1 {
		t.Errorf("recorder called %d times after expiry, want 1", got)
	}
	if !s.Committed() {
		t.Error("session not committed after expiry auto-submit")
	}
	if len(expired) != 1 {
		t.Errorf("expiry hook fired %d times, want 1", len(expired))
	}
}

func TestExtendAddsTime(t *testing.T) {
	f := newFixture(t)
	s := f.load(t, true)

	before := s.Remaining()
	s.Extend(10)
	if got := s.Remaining(); got != before+600 {
		t.Errorf("Remaining = %d after extension, want %d", got, before+600)
	}
	if s.Attempt().ExtensionMinutes != 10 {
		t.Errorf("ExtensionMinutes = %d, want 10", s.Attempt().ExtensionMinutes)
	}
}

func TestLoadWithoutQuestions(t *testing.T) {
	f := newFixture(t)
	f.questions.questions = nil
	loader := NewLoader(&f.questions, &f.attempts, &f.recorder, &f.exec, nil, zerolog.Nop())
	if _, err := loader.Load(context.Background(), f.assessmentID, 7, true); !errors.Is(err, ErrNoQuestions) {
		t.Errorf("err = %v, want ErrNoQuestions", err)
	}
}

func TestLoadUnknownAssessment(t *testing.T) {
	f := newFixture(t)
	loader := NewLoader(&f.questions, &f.attempts, &f.recorder, &f.exec, nil, zerolog.Nop())
	if _, err := loader.Load(context.Background(), uuid.New(), 7, true); !errors.Is(err, ErrAssessmentNotFound) {
		t.Errorf("err = %v, want ErrAssessmentNotFound", err)
	}
}

// gatedExecutor blocks its first call until released; later calls return
// immediately with the matching output.
type gatedExecutor struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
}

func (g *gatedExecutor) Execute(ctx context.Context, language, version, source string) (string, error) {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()
	if first {
		close(g.started)
		<-g.release
		return "41", nil
	}
	return "42", nil
}
