package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/codeclass/codeclass-backend/internal/middleware"
	"github.com/codeclass/codeclass-backend/internal/model"
	"github.com/codeclass/codeclass-backend/internal/repository"
	"github.com/codeclass/codeclass-backend/internal/response"
	"github.com/codeclass/codeclass-backend/internal/service"
	"github.com/codeclass/codeclass-backend/internal/validator"
)

// InstructorHandler handles assessment authoring and results endpoints.
type InstructorHandler struct {
	assessmentService *service.AssessmentService
	attemptService    *service.AttemptService
}

// NewInstructorHandler creates a new InstructorHandler.
func NewInstructorHandler(
	assessmentService *service.AssessmentService,
	attemptService *service.AttemptService,
) *InstructorHandler {
	return &InstructorHandler{
		assessmentService: assessmentService,
		attemptService:    attemptService,
	}
}

// ListAssessments godoc
// GET /api/v1/instructor/assessments
func (h *InstructorHandler) ListAssessments(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assessments, err := h.assessmentService.ListByAuthor(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assessments": assessments})
}

// CreateAssessment godoc
// POST /api/v1/instructor/assessments
func (h *InstructorHandler) CreateAssessment(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateAssessmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	assessment := &model.Assessment{
		Title:           req.Title,
		AuthorID:        claims.UserID,
		Language:        req.Language,
		LanguageVersion: req.LanguageVersion,
		DurationMinutes: req.DurationMinutes,
	}
	if err := h.assessmentService.Create(c.Request.Context(), assessment); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"assessment": assessment})
}

// AddQuestion godoc
// POST /api/v1/instructor/assessments/:assessment_id/questions
func (h *InstructorHandler) AddQuestion(c *gin.Context) {
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

	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question := &model.Question{
		AssessmentID:       assessmentID,
		Text:               req.Text,
		Kind:               model.AnswerKind(req.Kind),
		Points:             req.Points,
		OrderNum:           req.OrderNum,
		ExpectedOutput:     req.ExpectedOutput,
		StarterCode:        req.StarterCode,
		Options:            req.Options,
		CorrectOptionValue: req.CorrectOptionValue,
	}
	if err := h.assessmentService.AddQuestion(c.Request.Context(), claims.UserID, question); err != nil {
		switch {
		case errors.Is(err, service.ErrNotAssessmentAuthor):
			response.Fail(c, http.StatusForbidden, response.ErrNotAssessmentOwner)
		case errors.Is(err, service.ErrAssessmentNotDraft):
			response.Fail(c, http.StatusConflict, response.ErrAssessmentNotDraft)
		case errors.Is(err, service.ErrBadCorrectOption),
			errors.Is(err, service.ErrProgrammingNeedsExpected),
			errors.Is(err, service.ErrChoiceNeedsOptions):
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
				"question": err.Error(),
			})
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// PublishAssessment godoc
// POST /api/v1/instructor/assessments/:assessment_id/publish
// Transitions DRAFT -> PUBLISHED and warms the learner payload cache.
func (h *InstructorHandler) PublishAssessment(c *gin.Context) {
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

	if err := h.assessmentService.Publish(c.Request.Context(), assessmentID, claims.UserID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotAssessmentAuthor):
			response.Fail(c, http.StatusForbidden, response.ErrNotAssessmentOwner)
		case errors.Is(err, service.ErrAssessmentNotDraft):
			response.Fail(c, http.StatusConflict, response.ErrAssessmentNotDraft)
		case errors.Is(err, service.ErrNoQuestions):
			response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GrantExtension godoc
// POST /api/v1/instructor/attempts/:attempt_id/extension
// Adds minutes to an open attempt's clock, live sessions included.
func (h *InstructorHandler) GrantExtension(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.GrantExtensionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attemptService.GrantExtension(c.Request.Context(), claims.UserID, attemptID, req.Minutes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotAssessmentAuthor):
			response.Fail(c, http.StatusForbidden, response.ErrNotAssessmentOwner)
		case errors.Is(err, service.ErrAttemptNotExtendable):
			response.Fail(c, http.StatusConflict, response.ErrAttemptSubmitted)
		default:
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// GetResults godoc
// GET /api/v1/instructor/assessments/:assessment_id/results
func (h *InstructorHandler) GetResults(c *gin.Context) {
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

	page := 1
	perPage := 10
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("per_page", "10")); err == nil {
		perPage = v
	}

	results, total, err := h.attemptService.Results(c.Request.Context(), claims.UserID, assessmentID, page, perPage)
	if err != nil {
		if errors.Is(err, service.ErrNotAssessmentAuthor) {
			response.Fail(c, http.StatusForbidden, response.ErrNotAssessmentOwner)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if results == nil {
		results = []repository.AttemptResult{}
	}

	totalPages := (int(total) + perPage - 1) / perPage
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	})
}
