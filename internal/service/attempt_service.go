package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/codeclass/codeclass-backend/internal/config"
	"github.com/codeclass/codeclass-backend/internal/model"
	"github.com/codeclass/codeclass-backend/internal/repository"
	"github.com/codeclass/codeclass-backend/internal/session"
)

// ErrAttemptNotExtendable is returned when an extension is granted to an
// already submitted attempt.
var ErrAttemptNotExtendable = errors.New("attempt already submitted, cannot extend")

// DraftPayload is one queued draft write, consumed by the autosave worker.
type DraftPayload struct {
	AttemptID  string `json:"attempt_id"`
	QuestionID string `json:"question_id"`
	Raw        string `json:"raw"`
}

// EvaluationPayload is one queued evaluation snapshot, consumed by the
// evaluation worker.
type EvaluationPayload struct {
	AttemptID    string `json:"attempt_id"`
	QuestionID   string `json:"question_id"`
	Raw          string `json:"raw"`
	IsCorrect    bool   `json:"is_correct"`
	PointsEarned int    `json:"points_earned"`
}

// AttemptService handles attempt business logic: the idempotent start, the
// clock-anchoring Redis cache, the draft and evaluation persistence queues
// and the final commit. It is also the session engine's data source: the
// loader's QuestionSource, AttemptStore and Recorder are implemented here.
type AttemptService struct {
	assessmentRepo *repository.AssessmentRepository
	questionRepo   *repository.QuestionRepository
	attemptRepo    *repository.AttemptRepository
	answerRepo     *repository.AnswerRepository
	rdb            *redis.Client
	manager        *session.Manager
	log            zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	assessmentRepo *repository.AssessmentRepository,
	questionRepo *repository.QuestionRepository,
	attemptRepo *repository.AttemptRepository,
	answerRepo *repository.AnswerRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		assessmentRepo: assessmentRepo,
		questionRepo:   questionRepo,
		attemptRepo:    attemptRepo,
		answerRepo:     answerRepo,
		rdb:            rdb,
		log:            log.With().Str("component", "attempt_service").Logger(),
	}
}

// SetManager wires the in-process session manager. The manager's loader
// consumes this service, so the two are connected after construction.
func (s *AttemptService) SetManager(m *session.Manager) {
	s.manager = m
}

// Manager returns the in-process session manager.
func (s *AttemptService) Manager() *session.Manager {
	return s.manager
}

// ─── Session engine data source ───

// GetPublishedAssessment returns an assessment available to learners.
func (s *AttemptService) GetPublishedAssessment(ctx context.Context, id uuid.UUID) (model.Assessment, error) {
	a, err := s.assessmentRepo.GetPublished(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Assessment{}, session.ErrAssessmentNotFound
		}
		return model.Assessment{}, err
	}
	return *a, nil
}

// ListQuestions returns an assessment's full question set including the
// scoring data the scorer needs.
func (s *AttemptService) ListQuestions(ctx context.Context, assessmentID uuid.UUID) ([]model.Question, error) {
	return s.questionRepo.ListByAssessment(ctx, assessmentID)
}

// StartAttempt creates the attempt record, idempotently: a learner who
// already started gets the existing record back, with the clock still
// anchored to the original server-recorded open timestamp. The open
// timestamp and extension are mirrored to Redis so state reads stay off
// PostgreSQL.
func (s *AttemptService) StartAttempt(ctx context.Context, assessmentID uuid.UUID, learnerID int, baseDurationMinutes int) (model.AttemptRecord, error) {
	existing, err := s.attemptRepo.GetByAssessmentAndLearner(ctx, assessmentID, learnerID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return model.AttemptRecord{}, fmt.Errorf("check existing attempt: %w", err)
	}
	if existing != nil {
		s.cacheClockAnchor(ctx, existing)
		return *existing, nil
	}

	attempt := &model.AttemptRecord{
		AssessmentID:        assessmentID,
		LearnerID:           learnerID,
		BaseDurationMinutes: baseDurationMinutes,
	}
	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Concurrent start: the other writer won, use its record.
			existing, fetchErr := s.attemptRepo.GetByAssessmentAndLearner(ctx, assessmentID, learnerID)
			if fetchErr != nil {
				return model.AttemptRecord{}, fmt.Errorf("concurrent start detected, but fetch failed: %w", fetchErr)
			}
			s.cacheClockAnchor(ctx, existing)
			return *existing, nil
		}
		return model.AttemptRecord{}, fmt.Errorf("create attempt: %w", err)
	}

	s.cacheClockAnchor(ctx, attempt)
	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("assessment_id", assessmentID.String()).
		Int("learner_id", learnerID).
		Msg("Attempt started")
	return *attempt, nil
}

// GetAttempt returns the attempt record for an assessment-learner pair.
// session.ErrNoAttempt when the learner never started.
func (s *AttemptService) GetAttempt(ctx context.Context, assessmentID uuid.UUID, learnerID int) (model.AttemptRecord, error) {
	a, err := s.attemptRepo.GetByAssessmentAndLearner(ctx, assessmentID, learnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.AttemptRecord{}, session.ErrNoAttempt
		}
		return model.AttemptRecord{}, err
	}
	return *a, nil
}

// ListAnswers returns an attempt's saved answers for buffer seeding.
func (s *AttemptService) ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.AttemptAnswer, error) {
	return s.answerRepo.ListByAttempt(ctx, attemptID)
}

// Record commits an attempt's final payload exactly once. The conditional
// write inside the repository is the server-side backstop against a commit
// race; on success the Redis clock anchor and draft hash are dropped.
func (s *AttemptService) Record(ctx context.Context, attemptID uuid.UUID, answers []model.AnswerSubmission) (bool, error) {
	var finalScore float64
	for _, ans := range answers {
		finalScore += float64(ans.PointsEarned)
	}

	already, err := s.attemptRepo.Submit(ctx, attemptID, answers, finalScore)
	if err != nil {
		return false, err
	}

	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err == nil {
		s.clearClockAnchor(ctx, attempt)
	}

	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Float64("final_score", finalScore).
		Bool("already", already).
		Msg("Attempt recorded")
	return already, nil
}

// ─── Portal state ───

// GetState returns what a reloading client needs: whether the attempt is
// submitted, the saved drafts, and the remaining seconds derived from the
// server-recorded open timestamp. Redis is the fast path; a cache miss falls
// back to PostgreSQL and self-heals the cache.
func (s *AttemptService) GetState(ctx context.Context, assessmentID uuid.UUID, learnerID int) (*model.AttemptState, error) {
	state := &model.AttemptState{
		AssessmentID: assessmentID,
		LearnerID:    learnerID,
	}

	drafts, err := s.rdb.HGetAll(ctx, config.CacheKey.AttemptDraftsKey(assessmentID.String(), learnerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get drafts: %w", err)
	}
	state.SavedDrafts = drafts

	openedUnix, extension, err := s.clockAnchor(ctx, assessmentID, learnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrNoAttempt
		}
		return nil, err
	}
	if openedUnix == 0 {
		// Anchor keys are dropped on commit: the attempt is submitted.
		attempt, dbErr := s.attemptRepo.GetByAssessmentAndLearner(ctx, assessmentID, learnerID)
		if dbErr != nil {
			if errors.Is(dbErr, pgx.ErrNoRows) {
				return nil, session.ErrNoAttempt
			}
			return nil, dbErr
		}
		if attempt.Submitted() {
			state.Submitted = true
			if len(state.SavedDrafts) == 0 {
				state.SavedDrafts = map[string]string{}
			}
			return state, nil
		}
		openedUnix = attempt.OpenedAt.Unix()
		extension = attempt.ExtensionMinutes
		s.cacheClockAnchor(ctx, attempt)
	}

	durationStr, err := s.rdb.Get(ctx, config.CacheKey.AssessmentDurationKey(assessmentID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("get assessment duration: %w", err)
	}
	durationMinutes, err := strconv.Atoi(durationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid duration format in cache: %w", err)
	}

	state.RemainingSeconds = session.RemainingSeconds(time.Unix(openedUnix, 0), durationMinutes, extension, time.Now())
	if len(state.SavedDrafts) == 0 {
		state.SavedDrafts = map[string]string{}
	}
	return state, nil
}

// clockAnchor reads the cached open timestamp and extension. A missing
// anchor comes back as (0, 0, nil); the caller decides between the
// PostgreSQL fallback and the submitted case.
func (s *AttemptService) clockAnchor(ctx context.Context, assessmentID uuid.UUID, learnerID int) (int64, int, error) {
	val, err := s.rdb.Get(ctx, config.CacheKey.AttemptOpenedKey(assessmentID.String(), learnerID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("get opened_at: %w", err)
	}
	openedUnix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid opened_at format in cache: %w", err)
	}

	extension := 0
	extVal, err := s.rdb.Get(ctx, config.CacheKey.AttemptExtensionKey(assessmentID.String(), learnerID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("get extension: %w", err)
	}
	if err == nil {
		extension, err = strconv.Atoi(extVal)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid extension format in cache: %w", err)
		}
	}
	return openedUnix, extension, nil
}

func (s *AttemptService) cacheClockAnchor(ctx context.Context, a *model.AttemptRecord) {
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.AttemptOpenedKey(a.AssessmentID.String(), a.LearnerID), a.OpenedAt.Unix(), 0)
	pipe.Set(ctx, config.CacheKey.AttemptExtensionKey(a.AssessmentID.String(), a.LearnerID), a.ExtensionMinutes, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("Failed to cache clock anchor")
	}
}

func (s *AttemptService) clearClockAnchor(ctx context.Context, a *model.AttemptRecord) {
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.AttemptOpenedKey(a.AssessmentID.String(), a.LearnerID))
	pipe.Del(ctx, config.CacheKey.AttemptExtensionKey(a.AssessmentID.String(), a.LearnerID))
	pipe.Del(ctx, config.CacheKey.AttemptDraftsKey(a.AssessmentID.String(), a.LearnerID))
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("Failed to clear clock anchor")
	}
}

// ─── Persistence queues ───

// MirrorDraft writes a draft into the Redis hash and queues it for the
// autosave worker. Failures are logged, never surfaced: the in-memory
// buffer already holds the draft and the commit path does not depend on
// the mirror.
func (s *AttemptService) MirrorDraft(ctx context.Context, attempt model.AttemptRecord, questionID uuid.UUID, raw string) {
	hashKey := config.CacheKey.AttemptDraftsKey(attempt.AssessmentID.String(), attempt.LearnerID)
	if err := s.rdb.HSet(ctx, hashKey, questionID.String(), raw).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to mirror draft")
		return
	}

	payload, err := json.Marshal(DraftPayload{
		AttemptID:  attempt.ID.String(),
		QuestionID: questionID.String(),
		Raw:        raw,
	})
	if err != nil {
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistDraftsQueue, payload).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to queue draft")
	}
}

// QueueEvaluation queues an evaluation snapshot for the evaluation worker.
func (s *AttemptService) QueueEvaluation(ctx context.Context, attempt model.AttemptRecord, questionID uuid.UUID, raw string, v session.Verdict) {
	payload, err := json.Marshal(EvaluationPayload{
		AttemptID:    attempt.ID.String(),
		QuestionID:   questionID.String(),
		Raw:          raw,
		IsCorrect:    v.IsCorrect,
		PointsEarned: v.PointsEarned,
	})
	if err != nil {
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistEvaluationsQueue, payload).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to queue evaluation")
	}
}

// ─── Instructor surface ───

// GrantExtension adds minutes to an open attempt: the stored record, the
// Redis anchor, and the live session clock if one is running.
func (s *AttemptService) GrantExtension(ctx context.Context, instructorID int, attemptID uuid.UUID, minutes int) (*model.AttemptRecord, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	a, err := s.assessmentRepo.GetByID(ctx, attempt.AssessmentID)
	if err != nil {
		return nil, err
	}
	if a.AuthorID != instructorID {
		return nil, ErrNotAssessmentAuthor
	}

	updated, err := s.attemptRepo.GrantExtension(ctx, attemptID, minutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotExtendable
		}
		return nil, err
	}

	s.cacheClockAnchor(ctx, updated)
	if s.manager != nil {
		s.manager.Extend(attemptID, minutes)
	}

	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Int("minutes", minutes).
		Msg("Extension granted")
	return updated, nil
}

// Results returns learner outcomes for an instructor's assessment.
func (s *AttemptService) Results(ctx context.Context, instructorID int, assessmentID uuid.UUID, page, perPage int) ([]repository.AttemptResult, int64, error) {
	a, err := s.assessmentRepo.GetByID(ctx, assessmentID)
	if err != nil {
		return nil, 0, err
	}
	if a.AuthorID != instructorID {
		return nil, 0, ErrNotAssessmentAuthor
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return s.attemptRepo.ListByAssessment(ctx, assessmentID, page, perPage)
}
