package session

import (
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/reviewarcade/platform/internal/question"
)

// Session status lifecycle states.
const (
	StatusDraft  = "draft"
	StatusLobby  = "lobby"
	StatusActive = "active"
	StatusPaused = "paused"
	StatusEnded  = "ended"
)

// Teacher participation modes.
const (
	TeacherModeMonitor = "monitor"
	TeacherModePlay    = "play"
)

// GameTypes are the fixed catalogue of playable arcade games.
var GameTypes = map[string]bool{
	"jumper":    true,
	"runner":    true,
	"shooter":   true,
	"snake":     true,
	"breakout":  true,
	"flappy":    true,
	"maze":      true,
	"blocks":    true,
	"pong":      true,
	"asteroids": true,
}

// Config bounds, validated at session creation.
const (
	MinTimeLimitSeconds = 300
	MaxTimeLimitSeconds = 3600
	MinPlayers          = 5
	MaxPlayersCap       = 100
)

// Config is the per-session gameplay configuration.
type Config struct {
	TimeLimitSeconds int                  `json:"time_limit_seconds"`
	MaxPlayers       int                  `json:"max_players"`
	QuestionSource   string               `json:"question_source"`
	MathConfig       *question.MathConfig `json:"math_config,omitempty"`
	BankIDs          []uuid.UUID          `json:"bank_ids,omitempty"`
}

// Validate checks config bounds.
func (c Config) Validate() error {
	if c.TimeLimitSeconds < MinTimeLimitSeconds || c.TimeLimitSeconds > MaxTimeLimitSeconds {
		return errors.New("time limit out of range")
	}
	if c.MaxPlayers < MinPlayers || c.MaxPlayers > MaxPlayersCap {
		return errors.New("max players out of range")
	}
	switch c.QuestionSource {
	case question.SourceMath:
		if c.MathConfig == nil {
			return errors.New("math_config required for math source")
		}
	case question.SourceBank:
		if len(c.BankIDs) == 0 {
			return errors.New("bank_ids required for bank source")
		}
	default:
		return errors.New("question_source must be math or bank")
	}
	return nil
}

// Sentinel errors surfaced by actor operations; the HTTP layer maps them to
// status codes.
var (
	ErrSessionEnded = errors.New("session ended")
	ErrNotAccepting = errors.New("session not accepting players")
	ErrFull         = errors.New("session full")
	ErrBadName      = errors.New("invalid display name")
	ErrNotFound     = errors.New("session not found")
	ErrForbidden    = errors.New("not the session owner")
	ErrCapacity     = errors.New("session capacity reached")
)

// JoinedPlayer is returned to a joining client over REST.
type JoinedPlayer struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	SessionCode string    `json:"session_code"`
	PlayerToken string    `json:"player_token"`
	IsTeacher   bool      `json:"is_teacher"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Preview is the public snapshot served before joining.
type Preview struct {
	Code        string `json:"code"`
	Status      string `json:"status"`
	GameType    string `json:"game_type"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
}

// NormalizeDisplayName trims and NFC-normalizes a raw name, enforcing 2-50
// code points and rejecting control characters.
func NormalizeDisplayName(raw string) (string, error) {
	name := strings.TrimSpace(norm.NFC.String(raw))
	n := utf8.RuneCountInString(name)
	if n < 2 || n > 50 {
		return "", ErrBadName
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", ErrBadName
		}
	}
	return name, nil
}
