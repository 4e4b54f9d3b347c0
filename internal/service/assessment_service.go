package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/codeclass/codeclass-backend/internal/config"
	"github.com/codeclass/codeclass-backend/internal/model"
	"github.com/codeclass/codeclass-backend/internal/repository"
)

// Domain errors.
var (
	ErrNotAssessmentAuthor      = errors.New("not the author of this assessment")
	ErrNoQuestions              = errors.New("assessment has no questions, cannot publish")
	ErrAssessmentNotDraft       = errors.New("assessment status is not DRAFT")
	ErrAssessmentNotPublished   = errors.New("assessment status is not PUBLISHED")
	ErrBadCorrectOption         = errors.New("correct_option_value must equal one option's text")
	ErrProgrammingNeedsExpected = errors.New("programming questions need an expected output")
	ErrChoiceNeedsOptions       = errors.New("choice questions need at least two options")
)

// AssessmentService handles assessment authoring and the Redis payload cache.
type AssessmentService struct {
	assessmentRepo *repository.AssessmentRepository
	questionRepo   *repository.QuestionRepository
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewAssessmentService creates a new AssessmentService.
func NewAssessmentService(
	assessmentRepo *repository.AssessmentRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *AssessmentService {
	return &AssessmentService{
		assessmentRepo: assessmentRepo,
		questionRepo:   questionRepo,
		rdb:            rdb,
		log:            log.With().Str("component", "assessment_service").Logger(),
	}
}

// GetByID retrieves an assessment regardless of status.
func (s *AssessmentService) GetByID(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	return s.assessmentRepo.GetByID(ctx, id)
}

// ListPublished retrieves the assessments a learner may attempt.
func (s *AssessmentService) ListPublished(ctx context.Context) ([]model.Assessment, error) {
	assessments, err := s.assessmentRepo.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	if assessments == nil {
		assessments = []model.Assessment{}
	}
	return assessments, nil
}

// ListByAuthor retrieves an instructor's own assessments.
func (s *AssessmentService) ListByAuthor(ctx context.Context, authorID int) ([]model.Assessment, error) {
	assessments, err := s.assessmentRepo.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if assessments == nil {
		assessments = []model.Assessment{}
	}
	return assessments, nil
}

// Create inserts a new assessment as DRAFT.
func (s *AssessmentService) Create(ctx context.Context, a *model.Assessment) error {
	a.Status = model.AssessmentStatusDraft
	return s.assessmentRepo.Create(ctx, a)
}

// AddQuestion validates and appends a question to a draft assessment.
func (s *AssessmentService) AddQuestion(ctx context.Context, authorID int, q *model.Question) error {
	a, err := s.assessmentRepo.GetByID(ctx, q.AssessmentID)
	if err != nil {
		return err
	}
	if a.AuthorID != authorID {
		return ErrNotAssessmentAuthor
	}
	if a.Status != model.AssessmentStatusDraft {
		return ErrAssessmentNotDraft
	}

	switch q.Kind {
	case model.AnswerKindProgramming:
		if q.ExpectedOutput == "" {
			return ErrProgrammingNeedsExpected
		}
	case model.AnswerKindChoice:
		if len(q.Options) < 2 {
			return ErrChoiceNeedsOptions
		}
		// Authoring data has been seen holding the option key instead of
		// the option text; the comparison contract is text, so reject
		// anything that is not one of the option texts.
		found := false
		for _, text := range q.Options {
			if text == q.CorrectOptionValue {
				found = true
				break
			}
		}
		if !found {
			return ErrBadCorrectOption
		}
	}

	if q.OrderNum == 0 {
		count, err := s.questionRepo.CountByAssessment(ctx, q.AssessmentID)
		if err != nil {
			return err
		}
		q.OrderNum = int(count) + 1
	}

	return s.questionRepo.Create(ctx, q)
}

// Publish transitions an assessment to PUBLISHED and warms the learner
// payload cache so attempts never hit PostgreSQL for the paper.
func (s *AssessmentService) Publish(ctx context.Context, assessmentID uuid.UUID, authorID int) error {
	a, err := s.assessmentRepo.GetByID(ctx, assessmentID)
	if err != nil {
		return fmt.Errorf("get assessment: %w", err)
	}
	if a.AuthorID != authorID {
		return ErrNotAssessmentAuthor
	}
	if a.Status != model.AssessmentStatusDraft {
		return ErrAssessmentNotDraft
	}

	if err := s.WarmCache(ctx, a); err != nil {
		return err
	}

	if _, err := s.assessmentRepo.UpdateStatus(ctx, assessmentID, model.AssessmentStatusDraft, model.AssessmentStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("assessment_id", assessmentID.String()).Msg("Assessment published")
	return nil
}

// WarmCache loads an assessment's learner payload from PostgreSQL into
// Redis. Used by Publish and PrewarmAllCaches.
func (s *AssessmentService) WarmCache(ctx context.Context, a *model.Assessment) error {
	questions, err := s.questionRepo.ListByAssessment(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	learnerQuestions := make([]model.QuestionForLearner, len(questions))
	for i, q := range questions {
		learnerQuestions[i] = q.ForLearner()
	}

	payload := model.AssessmentPayload{
		AssessmentID:    a.ID,
		Title:           a.Title,
		Language:        a.Language,
		LanguageVersion: a.LanguageVersion,
		DurationMinutes: a.DurationMinutes,
		Questions:       learnerQuestions,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.AssessmentPayloadKey(a.ID.String()), payloadJSON, 0)
	pipe.Set(ctx, config.CacheKey.AssessmentDurationKey(a.ID.String()), a.DurationMinutes, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("assessment_id", a.ID.String()).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads all published assessments into Redis on startup so
// a restart never exposes a lazy-loading race under load.
func (s *AssessmentService) PrewarmAllCaches(ctx context.Context) error {
	assessments, err := s.assessmentRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published assessments: %w", err)
	}
	if len(assessments) == 0 {
		s.log.Info().Msg("No published assessments to prewarm")
		return nil
	}

	warmed := 0
	for i := range assessments {
		if err := s.WarmCache(ctx, &assessments[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("assessment_id", assessments[i].ID.String()).
				Msg("Failed to warm assessment, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(assessments)).
		Msg("Prewarming complete")
	return nil
}

// GetPayload retrieves the cached learner payload, falling back to
// PostgreSQL and re-warming when the cache was lost.
func (s *AssessmentService) GetPayload(ctx context.Context, assessmentID uuid.UUID) (*model.AssessmentPayload, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.AssessmentPayloadKey(assessmentID.String())).Bytes()
	if err == nil {
		var payload model.AssessmentPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		return &payload, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get payload: %w", err)
	}

	a, err := s.assessmentRepo.GetPublished(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if err := s.WarmCache(ctx, a); err != nil {
		return nil, err
	}

	data, err = s.rdb.Get(ctx, config.CacheKey.AssessmentPayloadKey(assessmentID.String())).Bytes()
	if err != nil {
		return nil, fmt.Errorf("get payload after warm: %w", err)
	}
	var payload model.AssessmentPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}
