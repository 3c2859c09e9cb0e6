package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/reviewarcade/platform/internal/auth"
	"github.com/reviewarcade/platform/internal/metrics"
	httperrors "github.com/reviewarcade/platform/pkg/http/errors"
	"github.com/reviewarcade/platform/pkg/http/ws"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Session codes plus per-player tokens gate access; any origin may
		// carry the game frontend.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WSOptions tunes the handshake and heartbeat.
type WSOptions struct {
	InitTimeout  time.Duration
	PingInterval time.Duration
	PongTimeout  time.Duration
}

// WSHandler upgrades /ws/reviewarcade/{code} requests and hands connections
// to the session actor after the init handshake.
type WSHandler struct {
	registry *Registry
	verifier *auth.Verifier
	opts     WSOptions
	logger   zerolog.Logger
}

// NewWSHandler creates the WebSocket dispatch handler.
func NewWSHandler(registry *Registry, verifier *auth.Verifier, opts WSOptions, logger zerolog.Logger) *WSHandler {
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = 5 * time.Second
	}
	return &WSHandler{
		registry: registry,
		verifier: verifier,
		opts:     opts,
		logger:   logger.With().Str("component", "session_ws").Logger(),
	}
}

// Handle serves GET /ws/reviewarcade/{code}.
func (h *WSHandler) Handle(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(r.PathValue("code"))
	actor, ok := h.registry.Lookup(code)
	if !ok {
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "session not found")
		return
	}

	wsc, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := ws.NewConn(wsc, h.logger, ws.ConnOptions{
		PingInterval: h.opts.PingInterval,
		PongTimeout:  h.opts.PongTimeout,
	})
	metrics.OpenConnections.Inc()
	defer metrics.OpenConnections.Dec()
	go conn.WritePump()

	// The first frame must be init; any other first frame, or no frame within
	// the handshake window, closes the socket with auth_required.
	role, playerID, ok := h.handshake(actor, conn)
	if !ok {
		return
	}

	conn.ReadPump(func(data []byte) {
		h.dispatch(actor, conn, role, playerID, data)
	})
	actor.Detach(conn)
}

func (h *WSHandler) handshake(actor *Actor, conn *ws.Conn) (role string, playerID uuid.UUID, ok bool) {
	data, err := conn.ReadWithDeadline(h.opts.InitTimeout)
	if err != nil {
		conn.CloseWithReason(ws.CloseReasonAuthRequired)
		return "", uuid.Nil, false
	}

	msg, err := ws.DecodeClient(data)
	if err != nil || msg.Type != ws.TypeInit {
		h.sendError(conn, httperrors.ErrCodeAuthRequired, "first message must be init")
		conn.CloseWithReason(ws.CloseReasonAuthRequired)
		return "", uuid.Nil, false
	}

	init := msg.Init
	switch init.Role {
	case "host":
		claims, err := h.verifier.Verify(init.Token)
		if err != nil {
			h.sendError(conn, httperrors.ErrCodeAuthInvalid, "invalid teacher token")
			conn.CloseWithReason(ws.CloseReasonAuthRequired)
			return "", uuid.Nil, false
		}
		actor.AttachHost(conn, claims.TeacherID)
		return "host", uuid.Nil, true
	case "player":
		id, err := uuid.Parse(init.PlayerID)
		if err != nil {
			h.sendError(conn, httperrors.ErrCodeBadMessage, "init requires player_id")
			conn.CloseWithReason(ws.CloseReasonAuthRequired)
			return "", uuid.Nil, false
		}
		actor.AttachPlayer(conn, id, init.Token)
		return "player", id, true
	}
	// Unreachable: the codec restricts role to host|player.
	conn.CloseWithReason(ws.CloseReasonAuthRequired)
	return "", uuid.Nil, false
}

// dispatch maps a decoded frame to an actor command, bound to the identity
// established at init. Frames from one connection arrive here in order.
func (h *WSHandler) dispatch(actor *Actor, conn *ws.Conn, role string, playerID uuid.UUID, data []byte) {
	msg, err := ws.DecodeClient(data)
	if err != nil {
		h.sendError(conn, httperrors.ErrCodeBadMessage, err.Error())
		return
	}

	switch msg.Type {
	case ws.TypePong:
		conn.MarkPong()
		actor.Pong(conn)
	case ws.TypeInit:
		h.sendError(conn, httperrors.ErrCodeBadMessage, "already initialized")
	case ws.TypeStartSession, ws.TypePauseSession, ws.TypeResumeSession, ws.TypeEndSession:
		if role != "host" {
			h.sendError(conn, httperrors.ErrCodeForbidden, "host command from player connection")
			return
		}
		actor.HostControl(conn, msg.Type)
	case ws.TypeDeath:
		if role != "player" {
			h.sendError(conn, httperrors.ErrCodeBadMessage, "death from host connection")
			return
		}
		actor.Death(conn, playerID, *msg.Death.Score, msg.Death.Metadata)
	case ws.TypeAnswer:
		if role != "player" {
			h.sendError(conn, httperrors.ErrCodeBadMessage, "answer from host connection")
			return
		}
		actor.Answer(conn, playerID, msg.Answer.QuestionID, *msg.Answer.AnswerIndex, *msg.Answer.TimeMs)
	case ws.TypeScoreUpdate:
		if role != "player" {
			h.sendError(conn, httperrors.ErrCodeBadMessage, "score_update from host connection")
			return
		}
		actor.ScoreUpdate(conn, playerID, *msg.ScoreUpdate.Score)
	case ws.TypeSpecialEvent:
		if role != "player" {
			h.sendError(conn, httperrors.ErrCodeBadMessage, "special_event from host connection")
			return
		}
		actor.SpecialEvent(conn, playerID, msg.SpecialEvent.Event)
	}
}

func (h *WSHandler) sendError(conn *ws.Conn, code, message string) {
	data, err := ws.Encode(ws.NewError(code, message))
	if err != nil {
		return
	}
	conn.Send(data)
}
