package results

import (
	"time"

	"github.com/google/uuid"
)

// SessionRecord is the persisted row for one session. Written at creation,
// finalized once at session end.
type SessionRecord struct {
	ID               uuid.UUID  `json:"id"`
	Code             string     `json:"code"`
	TeacherID        uuid.UUID  `json:"teacher_id"`
	GameType         string     `json:"game_type"`
	TeacherMode      string     `json:"teacher_mode"`
	Status           string     `json:"status"`
	TimeLimitSeconds int        `json:"time_limit_seconds"`
	MaxPlayers       int        `json:"max_players"`
	QuestionSource   string     `json:"question_source"`
	CreatedAt        time.Time  `json:"created_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
}

// PlayerResult is one player's final line on the leaderboard.
type PlayerResult struct {
	PlayerID          uuid.UUID `json:"player_id"`
	DisplayName       string    `json:"display_name"`
	IsTeacher         bool      `json:"is_teacher"`
	Rank              int       `json:"rank"`
	TotalScore        int       `json:"total_score"`
	BestStreak        int       `json:"best_streak"`
	QuestionsAnswered int       `json:"questions_answered"`
	QuestionsCorrect  int       `json:"questions_correct"`
	AvgAnswerMs       int       `json:"avg_time_ms"`
	GamesPlayed       int       `json:"games_played"`
	CreditsUsed       int       `json:"credits_used"`
}

// AwardRecord is one end-of-session award.
type AwardRecord struct {
	Name        string    `json:"name"`
	PlayerID    uuid.UUID `json:"player_id"`
	DisplayName string    `json:"display_name"`
	Value       string    `json:"value,omitempty"`
}

// SessionEnd carries everything persisted at the end-of-session boundary.
type SessionEnd struct {
	SessionID uuid.UUID
	StartedAt *time.Time
	EndedAt   time.Time
	Players   []PlayerResult
	Awards    []AwardRecord
}

// SessionResults is the read model for the results endpoint.
type SessionResults struct {
	Session SessionRecord  `json:"session"`
	Players []PlayerResult `json:"players"`
	Awards  []AwardRecord  `json:"awards"`
}
