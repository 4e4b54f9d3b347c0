package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/codeclass/codeclass-backend/internal/config"
	"github.com/codeclass/codeclass-backend/internal/model"
	"github.com/codeclass/codeclass-backend/internal/repository"
	"github.com/codeclass/codeclass-backend/internal/service"
)

const (
	EvalBatchSize    = 50
	EvalBatchTimeout = 2 * time.Second
	EvalPollTimeout  = 1 * time.Second
)

// EvaluationWorker consumes persist_evaluations_queue and batch-upserts
// evaluation snapshots, so the scoring a learner saw before a crash is
// what the reloaded session shows them again.
type EvaluationWorker struct {
	answerRepo *repository.AnswerRepository
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewEvaluationWorker creates a new EvaluationWorker.
func NewEvaluationWorker(answerRepo *repository.AnswerRepository, rdb *redis.Client, log zerolog.Logger) *EvaluationWorker {
	return &EvaluationWorker{
		answerRepo: answerRepo,
		rdb:        rdb,
		log:        log.With().Str("component", "evaluation_worker").Logger(),
	}
}

// Start begins the batching worker loop. Call in a goroutine.
func (w *EvaluationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	batch := make([]*service.EvaluationPayload, 0, EvalBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= EvalBatchSize || time.Since(lastFlush) >= EvalBatchTimeout) {
			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, EvalPollTimeout, config.WorkerKey.PersistEvaluationsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p service.EvaluationPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

// flushSafe tries the bulk UNNEST write first, then falls back to
// per-row writes, requeueing anything that still fails.
func (w *EvaluationWorker) flushSafe(ctx context.Context, batch []*service.EvaluationPayload) {
	if len(batch) == 0 {
		return
	}

	rows, err := w.toRows(batch)
	if err != nil {
		w.log.Error().Err(err).Msg("Invalid ids in batch, dropping")
		return
	}

	if err := w.answerRepo.BulkUpsertEvaluations(ctx, rows); err != nil {
		w.log.Warn().Err(err).Msg("Bulk evaluation upsert failed, using fallback")

		for i, row := range rows {
			if err := w.answerRepo.UpsertEvaluation(ctx, row); err != nil {
				w.log.Error().Err(err).Msg("Single upsert failed, requeueing")
				raw, _ := json.Marshal(batch[i])
				w.rdb.RPush(ctx, config.WorkerKey.PersistEvaluationsQueue, raw)
			}
		}
		return
	}

	w.log.Debug().Int("count", len(rows)).Msg("Evaluation batch persisted")
}

func (w *EvaluationWorker) toRows(batch []*service.EvaluationPayload) ([]model.AttemptAnswer, error) {
	rows := make([]model.AttemptAnswer, 0, len(batch))
	for _, p := range batch {
		attemptID, err := uuid.Parse(p.AttemptID)
		if err != nil {
			return nil, err
		}
		questionID, err := uuid.Parse(p.QuestionID)
		if err != nil {
			return nil, err
		}
		correct := p.IsCorrect
		rows = append(rows, model.AttemptAnswer{
			AttemptID:    attemptID,
			QuestionID:   questionID,
			Raw:          p.Raw,
			IsCorrect:    &correct,
			PointsEarned: p.PointsEarned,
		})
	}
	return rows, nil
}
