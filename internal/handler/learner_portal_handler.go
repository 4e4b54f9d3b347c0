package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/codeclass/codeclass-backend/internal/middleware"
	"github.com/codeclass/codeclass-backend/internal/response"
	"github.com/codeclass/codeclass-backend/internal/service"
	"github.com/codeclass/codeclass-backend/internal/session"
)

// LearnerPortalHandler handles learner-facing endpoints (attempt taking).
type LearnerPortalHandler struct {
	assessmentService *service.AssessmentService
	attemptService    *service.AttemptService
}

// NewLearnerPortalHandler creates a new LearnerPortalHandler.
func NewLearnerPortalHandler(
	assessmentService *service.AssessmentService,
	attemptService *service.AttemptService,
) *LearnerPortalHandler {
	return &LearnerPortalHandler{
		assessmentService: assessmentService,
		attemptService:    attemptService,
	}
}

// ListAssessments godoc
// GET /api/v1/learner/assessments
// Returns the published assessments a learner may attempt.
func (h *LearnerPortalHandler) ListAssessments(c *gin.Context) {
	assessments, err := h.assessmentService.ListPublished(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assessments": assessments})
}

// StartAttempt godoc
// POST /api/v1/learner/assessments/:assessment_id/attempt
// Creates (or returns) the learner's attempt and activates a session.
// Idempotent: a second start returns the original record with the clock
// still anchored to the first open timestamp.
func (h *LearnerPortalHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sess, err := h.attemptService.Manager().Acquire(c.Request.Context(), assessmentID, claims.UserID, true)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrAssessmentNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrAssessmentNotAvailable)
		case errors.Is(err, session.ErrNoQuestions):
			response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	attempt := sess.Attempt()
	response.Success(c, http.StatusOK, gin.H{
		"attempt":           attempt,
		"remaining_seconds": sess.Remaining(),
		"submitted":         sess.Committed(),
	})
}

// GetPaper godoc
// GET /api/v1/learner/assessments/:assessment_id/paper
// Returns the sanitized assessment payload from Redis. Requires an
// attempt: learners cannot download papers they have not started.
func (h *LearnerPortalHandler) GetPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// SECURITY: The paper holds every prompt and starter code; only a
	// learner with an attempt on record may fetch it.
	if _, err := h.attemptService.GetAttempt(c.Request.Context(), assessmentID, claims.UserID); err != nil {
		if errors.Is(err, session.ErrNoAttempt) {
			response.Fail(c, http.StatusForbidden, response.ErrAttemptNotStarted)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	payload, err := h.assessmentService.GetPayload(c.Request.Context(), assessmentID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrAssessmentNotAvailable)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"paper": payload})
}

// GetState godoc
// GET /api/v1/learner/assessments/:assessment_id/state
// Returns remaining seconds and saved drafts so a reloading client can
// resume exactly where it was. The deadline is derived from the
// server-recorded open timestamp, so reloads never reset the clock.
func (h *LearnerPortalHandler) GetState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	state, err := h.attemptService.GetState(c.Request.Context(), assessmentID, claims.UserID)
	if err != nil {
		if errors.Is(err, session.ErrNoAttempt) {
			response.Fail(c, http.StatusNotFound, response.ErrAttemptNotStarted)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": state})
}

// Submit godoc
// POST /api/v1/learner/assessments/:assessment_id/submit
// Commits the attempt. A second submit, or a submit racing the clock's
// auto-submit, is a silent success no-op.
func (h *LearnerPortalHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sess, err := h.attemptService.Manager().Acquire(c.Request.Context(), assessmentID, claims.UserID, false)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoAttempt):
			response.Fail(c, http.StatusNotFound, response.ErrAttemptNotStarted)
		case errors.Is(err, session.ErrAssessmentNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrAssessmentNotAvailable)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	result, err := sess.Submit(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// Review godoc
// GET /api/v1/learner/assessments/:assessment_id/review
// Returns the submitted attempt with per-question answers and scoring.
func (h *LearnerPortalHandler) Review(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.GetAttempt(c.Request.Context(), assessmentID, claims.UserID)
	if err != nil {
		if errors.Is(err, session.ErrNoAttempt) {
			response.Fail(c, http.StatusNotFound, response.ErrAttemptNotStarted)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if !attempt.Submitted() {
		response.Fail(c, http.StatusConflict, response.ErrConflict)
		return
	}

	answers, err := h.attemptService.ListAnswers(c.Request.Context(), attempt.ID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"attempt": attempt,
		"answers": answers,
	})
}
