package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/codeclass/codeclass-backend/internal/middleware"
	"github.com/codeclass/codeclass-backend/internal/service"
	"github.com/codeclass/codeclass-backend/internal/session"
	ws "github.com/codeclass/codeclass-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the live attempt stream: saves, navigation, code runs and
// submission all flow over one WebSocket per attempt.
type WSHandler struct {
	manager        *session.Manager
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(manager *session.Manager, attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		manager:        manager,
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/learner/assessments/:assessment_id/stream
// Upgrades to WebSocket and drives the attempt session: answer buffering,
// navigation, execution scoring and submit. Server-pushed events (expiry,
// auto-submit, late run results) ride the same connection.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	assessmentID, err := uuid.Parse(c.Param("assessment_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assessment ID"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	learnerID := claims.UserID

	// SECURITY: the stream never starts an attempt. The learner must have
	// opened the attempt through the REST endpoint first.
	sess, err := h.manager.Acquire(c.Request.Context(), assessmentID, learnerID, false)
	if err != nil {
		if errors.Is(err, session.ErrNoAttempt) {
			conn.WriteError("attempt not started")
		} else {
			conn.WriteError("failed to load attempt")
		}
		return
	}

	wsLog := h.log.With().
		Int("learner_id", learnerID).
		Str("assessment_id", assessmentID.String()).
		Logger()

	attempt := sess.Attempt()
	h.bindHooks(sess, conn, wsLog)

	wsLog.Info().Str("attempt_id", attempt.ID.String()).Msg("Learner connected")

	for {
		var msg ws.RequestPayload
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionSave:
			h.handleSave(conn, sess, &msg)
		case ws.ActionNavigate:
			h.handleNavigate(conn, sess, &msg)
		case ws.ActionRun:
			h.handleRun(c.Request.Context(), conn, sess, &msg)
		case ws.ActionSelect:
			h.handleSelect(conn, sess, &msg)
		case ws.ActionSubmit:
			h.handleSubmit(c.Request.Context(), conn, wsLog, sess)
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong, RemainingSeconds: sess.Remaining()})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(msg.Action))
		}
	}
}

// bindHooks connects the session's event hooks to the WebSocket and the
// write-behind persistence queues. Draft and score hooks fire on every
// mutation regardless of which connection caused it; push events carry
// late run results and clock expiry to the client.
func (h *WSHandler) bindHooks(sess *session.Session, conn *ws.Conn, wsLog zerolog.Logger) {
	attempt := sess.Attempt()
	sess.SetHooks(session.Hooks{
		OnDraft: func(questionID uuid.UUID, raw string) {
			h.attemptService.MirrorDraft(context.Background(), attempt, questionID, raw)
		},
		OnScore: func(questionID uuid.UUID, raw string, v session.Verdict) {
			h.attemptService.QueueEvaluation(context.Background(), attempt, questionID, raw, v)
		},
		OnExpired: func() {
			if err := conn.WriteTyped(ws.ExpiredResponse{Event: ws.EventExpired}); err != nil {
				wsLog.Debug().Err(err).Msg("Expired push failed")
			}
		},
		OnSubmitted: func(auto bool) {
			if !auto {
				// Manual submits reply inline from the action handler.
				return
			}
			if err := conn.WriteTyped(ws.SubmittedResponse{Event: ws.EventSubmitted, Auto: true}); err != nil {
				wsLog.Debug().Err(err).Msg("Auto-submit push failed")
			}
		},
	})
}

func (h *WSHandler) handleSave(conn *ws.Conn, sess *session.Session, msg *ws.RequestPayload) {
	if err := sess.SaveDraft(msg.Index, msg.Raw); err != nil {
		conn.WriteError(saveErrText(err))
		return
	}
	conn.WriteTyped(ws.SavedResponse{Event: ws.EventSaved, Index: msg.Index})
}

func (h *WSHandler) handleNavigate(conn *ws.Conn, sess *session.Session, msg *ws.RequestPayload) {
	var pending *string
	if msg.HasRaw {
		pending = &msg.Raw
	}
	index, entry := sess.Navigate(pending, msg.Target)
	conn.WriteTyped(ws.StateResponse{
		Event:            ws.EventState,
		Index:            index,
		Raw:              entry.Raw,
		RemainingSeconds: sess.Remaining(),
	})
}

func (h *WSHandler) handleRun(ctx context.Context, conn *ws.Conn, sess *session.Session, msg *ws.RequestPayload) {
	verdict, stale, err := sess.Run(ctx, msg.Index, msg.Raw)
	if err != nil {
		conn.WriteError(saveErrText(err))
		return
	}
	if stale {
		conn.WriteTyped(ws.OutputResponse{Event: ws.EventOutput, Index: msg.Index, Output: verdict.Output, Stale: true})
		return
	}
	conn.WriteTyped(ws.ScoredResponse{
		Event:        ws.EventScored,
		Index:        msg.Index,
		IsCorrect:    verdict.IsCorrect,
		PointsEarned: verdict.PointsEarned,
		Output:       verdict.Output,
	})
}

func (h *WSHandler) handleSelect(conn *ws.Conn, sess *session.Session, msg *ws.RequestPayload) {
	verdict, err := sess.Select(msg.Index, msg.Raw)
	if err != nil {
		conn.WriteError(saveErrText(err))
		return
	}
	conn.WriteTyped(ws.ScoredResponse{
		Event:        ws.EventScored,
		Index:        msg.Index,
		IsCorrect:    verdict.IsCorrect,
		PointsEarned: verdict.PointsEarned,
	})
}

func (h *WSHandler) handleSubmit(ctx context.Context, conn *ws.Conn, wsLog zerolog.Logger, sess *session.Session) {
	result, err := sess.Submit(ctx)
	if err != nil {
		wsLog.Error().Err(err).Msg("Submit failed")
		conn.WriteError("submit failed, attempt is still open")
		return
	}
	wsLog.Info().Bool("already", result.AlreadySubmitted).Msg("Attempt submitted")
	conn.WriteTyped(ws.SubmittedResponse{
		Event:            ws.EventSubmitted,
		AlreadySubmitted: result.AlreadySubmitted,
	})
}

// saveErrText maps session errors to client-facing text.
func saveErrText(err error) string {
	switch {
	case errors.Is(err, session.ErrAttemptClosed):
		return "attempt already submitted"
	case errors.Is(err, session.ErrBadIndex):
		return "question index out of range"
	case errors.Is(err, session.ErrWrongKind):
		return "action does not match question type"
	default:
		return "request failed"
	}
}
