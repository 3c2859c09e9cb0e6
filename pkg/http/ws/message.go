package ws

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxMessageSize bounds a single WebSocket frame payload.
const MaxMessageSize = 64 << 10 // 64 KiB

// MessageType constants for the WebSocket protocol.
const (
	// Client -> Server
	TypeInit          = "init"
	TypeDeath         = "death"
	TypeAnswer        = "answer"
	TypeScoreUpdate   = "score_update"
	TypeSpecialEvent  = "special_event"
	TypeStartSession  = "start_session"
	TypePauseSession  = "pause_session"
	TypeResumeSession = "resume_session"
	TypeEndSession    = "end_session"
	TypePong          = "pong"

	// Server -> Client
	TypeHostState          = "host_state"
	TypePlayerState        = "player_state"
	TypePlayerConnected    = "player_connected"
	TypePlayerDisconnected = "player_disconnected"
	TypeSessionStarted     = "session_started"
	TypeSessionPaused      = "session_paused"
	TypeSessionResumed     = "session_resumed"
	TypeSessionEnded       = "session_ended"
	TypeQuestion           = "question"
	TypeAnswerCorrect      = "answer_correct"
	TypeAnswerWrong        = "answer_wrong"
	TypeLeaderboardUpdate  = "leaderboard_update"
	TypeLiveEvent          = "live_event"
	TypePlayerScoreUpdate  = "player_score_update"
	TypePing               = "ping"
	TypeError              = "error"
)

var clientTypes = map[string]bool{
	TypeInit:          true,
	TypeDeath:         true,
	TypeAnswer:        true,
	TypeScoreUpdate:   true,
	TypeSpecialEvent:  true,
	TypeStartSession:  true,
	TypePauseSession:  true,
	TypeResumeSession: true,
	TypeEndSession:    true,
	TypePong:          true,
}

var serverTypes = map[string]bool{
	TypeHostState:          true,
	TypePlayerState:        true,
	TypePlayerConnected:    true,
	TypePlayerDisconnected: true,
	TypeSessionStarted:     true,
	TypeSessionPaused:      true,
	TypeSessionResumed:     true,
	TypeSessionEnded:       true,
	TypeQuestion:           true,
	TypeAnswerCorrect:      true,
	TypeAnswerWrong:        true,
	TypeLeaderboardUpdate:  true,
	TypeLiveEvent:          true,
	TypePlayerScoreUpdate:  true,
	TypePing:               true,
	TypeError:              true,
}

var (
	ErrBadMessage = errors.New("bad message")
	ErrTooLarge   = errors.New("message exceeds size limit")
)

// Client Messages (incoming). Every message is a flat JSON object carrying a
// "type" tag; required fields are pointers so the codec can tell absent from zero.

type InitPayload struct {
	Role        string `json:"role"` // "host" or "player"
	Token       string `json:"token"`
	PlayerID    string `json:"player_id,omitempty"`
	SessionCode string `json:"session_code,omitempty"`
}

type DeathPayload struct {
	Score    *int            `json:"score"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type AnswerPayload struct {
	QuestionID  string `json:"question_id"`
	AnswerIndex *int   `json:"answer_index"`
	TimeMs      *int   `json:"time_ms"`
}

type ScoreUpdatePayload struct {
	Score *int `json:"score"`
}

type SpecialEventPayload struct {
	Event json.RawMessage `json:"event"`
}

// ClientMessage is the decoded form of an inbound frame. Exactly one payload
// field is populated according to Type; control messages carry none.
type ClientMessage struct {
	Type         string
	Init         *InitPayload
	Death        *DeathPayload
	Answer       *AnswerPayload
	ScoreUpdate  *ScoreUpdatePayload
	SpecialEvent *SpecialEventPayload
}

type envelope struct {
	Type string `json:"type"`
}

// DecodeClient parses an inbound frame. It rejects oversized payloads,
// non-object frames, missing or unrecognized type tags for the
// client-to-server direction, and missing required fields.
func DecodeClient(data []byte) (*ClientMessage, error) {
	if len(data) > MaxMessageSize {
		return nil, ErrTooLarge
	}
	if !isJSONObject(data) {
		return nil, fmt.Errorf("%w: expected JSON object", ErrBadMessage)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrBadMessage)
	}
	if !clientTypes[env.Type] {
		return nil, fmt.Errorf("%w: unknown client message type %q", ErrBadMessage, env.Type)
	}

	msg := &ClientMessage{Type: env.Type}
	switch env.Type {
	case TypeInit:
		var p InitPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
		}
		if p.Role != "host" && p.Role != "player" {
			return nil, fmt.Errorf("%w: init role must be host or player", ErrBadMessage)
		}
		if p.Token == "" {
			return nil, fmt.Errorf("%w: init requires token", ErrBadMessage)
		}
		msg.Init = &p
	case TypeDeath:
		var p DeathPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
		}
		if p.Score == nil {
			return nil, fmt.Errorf("%w: death requires score", ErrBadMessage)
		}
		msg.Death = &p
	case TypeAnswer:
		var p AnswerPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
		}
		if p.QuestionID == "" || p.AnswerIndex == nil || p.TimeMs == nil {
			return nil, fmt.Errorf("%w: answer requires question_id, answer_index, time_ms", ErrBadMessage)
		}
		if *p.AnswerIndex < 0 || *p.AnswerIndex > 3 {
			return nil, fmt.Errorf("%w: answer_index out of range", ErrBadMessage)
		}
		msg.Answer = &p
	case TypeScoreUpdate:
		var p ScoreUpdatePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
		}
		if p.Score == nil {
			return nil, fmt.Errorf("%w: score_update requires score", ErrBadMessage)
		}
		msg.ScoreUpdate = &p
	case TypeSpecialEvent:
		var p SpecialEventPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
		}
		if len(p.Event) == 0 {
			return nil, fmt.Errorf("%w: special_event requires event", ErrBadMessage)
		}
		msg.SpecialEvent = &p
	}
	return msg, nil
}

// DecodeServerType extracts and validates the type tag of an outbound frame
// for the server-to-client direction.
func DecodeServerType(data []byte) (string, error) {
	if len(data) > MaxMessageSize {
		return "", ErrTooLarge
	}
	if !isJSONObject(data) {
		return "", fmt.Errorf("%w: expected JSON object", ErrBadMessage)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("%w: missing type", ErrBadMessage)
	}
	if !serverTypes[env.Type] {
		return "", fmt.Errorf("%w: unknown server message type %q", ErrBadMessage, env.Type)
	}
	return env.Type, nil
}

// Encode marshals an outbound message. The payload struct must carry its own
// "type" field (the outbound constructors below set it).
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if _, err := DecodeServerType(data); err != nil {
		return nil, err
	}
	return data, nil
}

func isJSONObject(data []byte) bool {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}

// Server Messages (outgoing)

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewError(code, message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Code: code, Message: message}
}

type PingMessage struct {
	Type string `json:"type"`
	T    int64  `json:"t"`
}

func NewPing(t int64) PingMessage {
	return PingMessage{Type: TypePing, T: t}
}

type QuestionMessage struct {
	Type       string   `json:"type"`
	QuestionID string   `json:"question_id"`
	Text       string   `json:"text"`
	Options    []string `json:"options"`
	Category   string   `json:"category,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
}

type AnswerCorrectMessage struct {
	Type               string  `json:"type"`
	QuestionID         string  `json:"question_id"`
	BonusEarned        int     `json:"bonus_earned"`
	TotalScore         int     `json:"total_score"`
	CurrentStreak      int     `json:"current_streak"`
	StreakMultiplier   float64 `json:"streak_multiplier"`
	ComebackCredits    int     `json:"comeback_credits"`
	ComebackStartScore int     `json:"comeback_start_score"`
	Respawn            bool    `json:"respawn"`
}

type AnswerWrongMessage struct {
	Type         string `json:"type"`
	QuestionID   string `json:"question_id"`
	CorrectIndex int    `json:"correct_index"`
	Respawn      bool   `json:"respawn"`
}

type SessionStartedMessage struct {
	Type             string `json:"type"`
	GameType         string `json:"game_type"`
	TimeLimitSeconds int    `json:"time_limit_seconds"`
}

type SessionPausedMessage struct {
	Type string `json:"type"`
}

type SessionResumedMessage struct {
	Type             string `json:"type"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

type SessionEndedMessage struct {
	Type             string             `json:"type"`
	FinalLeaderboard []LeaderboardEntry `json:"final_leaderboard"`
	Awards           []Award            `json:"awards"`
}

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	TotalScore  int    `json:"total_score"`
	BestStreak  int    `json:"best_streak"`
	IsTeacher   bool   `json:"is_teacher,omitempty"`
}

type Award struct {
	Name        string `json:"name"`
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	Value       string `json:"value,omitempty"`
}

type LeaderboardUpdateMessage struct {
	Type    string             `json:"type"`
	Entries []LeaderboardEntry `json:"entries"`
	You     *LeaderboardEntry  `json:"you,omitempty"`
}

type PlayerConnectedMessage struct {
	Type        string `json:"type"`
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	PlayerCount int    `json:"player_count"`
}

type PlayerDisconnectedMessage struct {
	Type        string `json:"type"`
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	PlayerCount int    `json:"player_count"`
}

type PlayerScoreUpdateMessage struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
	Score    int    `json:"score"`
}

type LiveEventMessage struct {
	Type     string          `json:"type"`
	PlayerID string          `json:"player_id"`
	Event    json.RawMessage `json:"event"`
}

// PlayerSummary describes one player inside a state snapshot.
type PlayerSummary struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	IsTeacher   bool   `json:"is_teacher"`
	Connected   bool   `json:"connected"`
	TotalScore  int    `json:"total_score"`
	BestStreak  int    `json:"best_streak"`
	Rank        int    `json:"rank"`
}

type HostStateMessage struct {
	Type             string          `json:"type"`
	Code             string          `json:"code"`
	Status           string          `json:"status"`
	GameType         string          `json:"game_type"`
	TimeLimitSeconds int             `json:"time_limit_seconds"`
	RemainingSeconds int             `json:"remaining_seconds"`
	MaxPlayers       int             `json:"max_players"`
	PlayerCount      int             `json:"player_count"`
	Players          []PlayerSummary `json:"players"`
}

type PlayerStateMessage struct {
	Type             string             `json:"type"`
	Code             string             `json:"code"`
	Status           string             `json:"status"`
	GameType         string             `json:"game_type"`
	RemainingSeconds int                `json:"remaining_seconds"`
	TotalScore       int                `json:"total_score"`
	CurrentStreak    int                `json:"current_streak"`
	StreakMultiplier float64            `json:"streak_multiplier"`
	ComebackCredits  int                `json:"comeback_credits"`
	Rank             int                `json:"rank"`
	PendingQuestion  *QuestionMessage   `json:"pending_question,omitempty"`
	Leaderboard      []LeaderboardEntry `json:"leaderboard"`
}
