package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/codeclass/codeclass-backend/internal/model"
)

var (
	// ErrAttemptClosed is returned when a mutation reaches an already
	// committed attempt.
	ErrAttemptClosed = errors.New("attempt already submitted")
	// ErrBadIndex is returned for an out-of-range question index.
	ErrBadIndex = errors.New("question index out of range")
	// ErrWrongKind is returned when an action does not match the question's
	// answer kind, e.g. running code on a choice question.
	ErrWrongKind = errors.New("action does not match question kind")
)

const autoSubmitTimeout = 15 * time.Second

// Hooks are optional observers wired by the transport layer. They are called
// without the session lock held and must not call back into the session.
type Hooks struct {
	OnDraft     func(questionID uuid.UUID, raw string)
	OnScore     func(questionID uuid.UUID, raw string, v Verdict)
	OnExpired   func()
	OnSubmitted func(auto bool)
}

// SubmissionResult reports the outcome of a commit.
type SubmissionResult struct {
	AlreadySubmitted bool `json:"already_submitted"`
}

// Session is one learner's live pass at an assessment: the question list,
// the answer buffer, the navigation cursor, the countdown clock and the
// one-time submission path. A session is exclusively owned; all entry points
// serialize on its mutex. Lifecycle is active -> committed; an attempt loaded
// after submission starts committed (read-only review).
type Session struct {
	mu sync.Mutex

	assessment model.Assessment
	attempt    model.AttemptRecord
	questions  []model.Question

	buffer *Buffer
	cursor *Cursor
	clock  *Clock
	scorer *Scorer

	attempts AttemptStore
	recorder Recorder

	committed bool
	// Per-slot evaluation sequence numbers. A run's result is applied only
	// if no newer run for the same slot started while it was in flight.
	seq []uint64
	// Execution output for the displayed question. Not part of the buffer;
	// cleared on navigation.
	transientOutput string

	hooks       Hooks
	onCommitted func()

	log zerolog.Logger
}

// SetHooks installs transport observers. Replaces any previous set.
func (s *Session) SetHooks(h Hooks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = h
}

// StartClock begins the countdown and arms the expiry auto-submit. No-op on
// a committed (review) session.
func (s *Session) StartClock() {
	s.mu.Lock()
	clock := s.clock
	committed := s.committed
	s.mu.Unlock()
	if committed || clock == nil {
		return
	}
	clock.Start(s.autoSubmit)
}

// Assessment returns the assessment this session runs.
func (s *Session) Assessment() model.Assessment {
	return s.assessment
}

// Attempt returns a snapshot of the attempt record.
func (s *Session) Attempt() model.AttemptRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}

// Questions returns the ordered question list.
func (s *Session) Questions() []model.Question {
	return s.questions
}

// Committed reports whether the attempt has been submitted. A committed
// session is read-only.
func (s *Session) Committed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed
}

// Remaining returns the seconds left on the clock, zero for a committed or
// review session.
func (s *Session) Remaining() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed || s.clock == nil {
		return 0
	}
	return s.clock.Remaining()
}

// CurrentIndex returns the cursor position.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.Index()
}

// Entry returns the buffer slot for a question index.
func (s *Session) Entry(index int) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Get(index)
}

// Drafts returns the current raw answers keyed by question id. Used to
// seed a reloading client.
func (s *Session) Drafts() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	drafts := make(map[string]string)
	for i, q := range s.questions {
		if raw := s.buffer.Get(i).Raw; raw != "" {
			drafts[q.ID.String()] = raw
		}
	}
	return drafts
}

// SaveDraft writes the latest raw answer for a slot into the buffer. Called
// synchronously on every edit so navigation can never lose an unscored
// draft. Rejected once the attempt is committed.
func (s *Session) SaveDraft(index int, raw string) error {
	s.mu.Lock()
	if s.committed {
		s.mu.Unlock()
		return ErrAttemptClosed
	}
	if index < 0 || index >= len(s.questions) {
		s.mu.Unlock()
		return ErrBadIndex
	}
	s.buffer.SetRaw(index, raw)
	questionID := s.questions[index].ID
	onDraft := s.hooks.OnDraft
	s.mu.Unlock()

	if onDraft != nil {
		onDraft(questionID, raw)
	}
	return nil
}

// Navigate moves the cursor to target, flushing pendingRaw (the displayed
// slot's unsaved edit, if any) into the buffer first and clearing the
// previous question's transient execution output. Review sessions may
// navigate but never flush. Returns the new index and its buffer entry.
func (s *Session) Navigate(pendingRaw *string, target int) (int, Entry) {
	s.mu.Lock()
	var questionID uuid.UUID
	var onDraft func(uuid.UUID, string)
	if pendingRaw != nil && !s.committed {
		s.buffer.SetRaw(s.cursor.Index(), *pendingRaw)
		questionID = s.questions[s.cursor.Index()].ID
		onDraft = s.hooks.OnDraft
	}
	s.cursor.Seek(target)
	s.transientOutput = ""
	index := s.cursor.Index()
	entry := s.buffer.Get(index)
	s.mu.Unlock()

	if onDraft != nil {
		onDraft(questionID, *pendingRaw)
	}
	return index, entry
}

// Run evaluates a programming answer against the execution service and
// writes the verdict through to the buffer. The raw code is buffered before
// the call so an in-flight run never loses the draft. If a newer run for the
// same slot started while this one was in flight, or the attempt committed,
// the result is dropped (stale=true) and the buffer keeps the newer state.
func (s *Session) Run(ctx context.Context, index int, rawCode string) (Verdict, bool, error) {
	s.mu.Lock()
	if s.committed {
		s.mu.Unlock()
		return Verdict{}, false, ErrAttemptClosed
	}
	if index < 0 || index >= len(s.questions) {
		s.mu.Unlock()
		return Verdict{}, false, ErrBadIndex
	}
	q := s.questions[index]
	if q.Kind != model.AnswerKindProgramming {
		s.mu.Unlock()
		return Verdict{}, false, ErrWrongKind
	}
	s.seq[index]++
	mySeq := s.seq[index]
	s.buffer.SetRaw(index, rawCode)
	onDraft := s.hooks.OnDraft
	s.mu.Unlock()

	if onDraft != nil {
		onDraft(q.ID, rawCode)
	}

	verdict := s.scorer.EvaluateProgramming(ctx, q, rawCode)

	s.mu.Lock()
	if s.committed || s.seq[index] != mySeq {
		s.mu.Unlock()
		return verdict, true, nil
	}
	s.buffer.SetScore(index, verdict.IsCorrect, verdict.PointsEarned)
	if index == s.cursor.Index() {
		s.transientOutput = verdict.Output
	}
	onScore := s.hooks.OnScore
	s.mu.Unlock()

	if onScore != nil {
		onScore(q.ID, rawCode, verdict)
	}
	return verdict, false, nil
}

// Select records and scores a choice answer. Pure local comparison, applied
// synchronously.
func (s *Session) Select(index int, selectedValue string) (Verdict, error) {
	s.mu.Lock()
	if s.committed {
		s.mu.Unlock()
		return Verdict{}, ErrAttemptClosed
	}
	if index < 0 || index >= len(s.questions) {
		s.mu.Unlock()
		return Verdict{}, ErrBadIndex
	}
	q := s.questions[index]
	if q.Kind != model.AnswerKindChoice {
		s.mu.Unlock()
		return Verdict{}, ErrWrongKind
	}
	verdict := s.scorer.EvaluateChoice(q, selectedValue)
	s.buffer.SetRaw(index, selectedValue)
	s.buffer.SetScore(index, verdict.IsCorrect, verdict.PointsEarned)
	onDraft := s.hooks.OnDraft
	onScore := s.hooks.OnScore
	s.mu.Unlock()

	if onDraft != nil {
		onDraft(q.ID, selectedValue)
	}
	if onScore != nil {
		onScore(q.ID, selectedValue, verdict)
	}
	return verdict, nil
}

// Extend adds instructor-granted minutes to a running attempt's clock.
func (s *Session) Extend(minutes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed || s.clock == nil {
		return
	}
	s.attempt.ExtensionMinutes += minutes
	s.clock.Extend(minutes)
}

// Submit commits the attempt exactly once. One payload entry is built per
// question; slots never evaluated go out as incorrect with zero points.
// The guard against a manual-submit racing the clock's auto-submit is
// checked here, at the moment of invocation: the local committed flag, a
// fresh read of the stored record, and the recorder's own conditional write.
// A second submit is a silent success no-op. On recorder failure the attempt
// stays open and submit may be retried; on success the buffer is discarded,
// the cursor resets and the session becomes read-only.
func (s *Session) Submit(ctx context.Context) (SubmissionResult, error) {
	return s.submit(ctx, false)
}

func (s *Session) submit(ctx context.Context, auto bool) (SubmissionResult, error) {
	s.mu.Lock()
	if s.committed {
		s.mu.Unlock()
		return SubmissionResult{AlreadySubmitted: true}, nil
	}

	if fresh, err := s.attempts.GetAttempt(ctx, s.attempt.AssessmentID, s.attempt.LearnerID); err == nil && fresh.Submitted() {
		s.attempt = fresh
		s.finalizeLocked()
		onSubmitted := s.hooks.OnSubmitted
		s.mu.Unlock()
		if onSubmitted != nil {
			onSubmitted(auto)
		}
		return SubmissionResult{AlreadySubmitted: true}, nil
	}

	payload := make([]model.AnswerSubmission, 0, len(s.questions))
	for i, q := range s.questions {
		entry := s.buffer.Get(i)
		sub := model.AnswerSubmission{QuestionID: q.ID, Raw: entry.Raw}
		if entry.IsCorrect != nil {
			sub.IsCorrect = *entry.IsCorrect
			sub.PointsEarned = entry.PointsEarned
		}
		payload = append(payload, sub)
	}

	already, err := s.recorder.Record(ctx, s.attempt.ID, payload)
	if err != nil {
		s.mu.Unlock()
		s.log.Error().Err(err).Bool("auto", auto).Msg("Submission failed, attempt stays open")
		return SubmissionResult{}, err
	}

	now := time.Now()
	s.attempt.SubmittedAt = &now
	s.finalizeLocked()
	onSubmitted := s.hooks.OnSubmitted
	s.mu.Unlock()

	s.log.Info().Bool("auto", auto).Bool("already", already).Msg("Attempt submitted")
	if onSubmitted != nil {
		onSubmitted(auto)
	}
	return SubmissionResult{AlreadySubmitted: already}, nil
}

// finalizeLocked closes the session after a commit. Caller holds the lock.
func (s *Session) finalizeLocked() {
	s.committed = true
	s.buffer.Clear()
	s.cursor.Reset()
	s.transientOutput = ""
	if s.clock != nil {
		s.clock.Stop()
	}
	if s.onCommitted != nil {
		done := s.onCommitted
		s.onCommitted = nil
		go done()
	}
}

// autoSubmit is the clock's expiry action. It fires at most once through the
// clock latch; a failed auto-submit leaves the attempt open for a manual
// retry.
func (s *Session) autoSubmit() {
	s.mu.Lock()
	onExpired := s.hooks.OnExpired
	s.mu.Unlock()
	if onExpired != nil {
		onExpired()
	}

	ctx, cancel := context.WithTimeout(context.Background(), autoSubmitTimeout)
	defer cancel()
	if _, err := s.submit(ctx, true); err != nil {
		s.log.Error().Err(err).Msg("Auto-submit on expiry failed")
	}
}

// TransientOutput returns the displayed question's last execution output.
func (s *Session) TransientOutput() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transientOutput
}
