package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/reviewarcade/platform/internal/question"
	"github.com/reviewarcade/platform/internal/session/scoring"
	"github.com/reviewarcade/platform/pkg/http/ws"
)

// Player is one participant's server-side record. Reconnects are keyed by the
// player token, so the record outlives any single connection.
type Player struct {
	ID          uuid.UUID
	DisplayName string
	Token       string
	IsTeacher   bool
	JoinedAt    time.Time
	JoinOrder   int

	Conn      *ws.Conn
	Connected bool
	LastSeen  time.Time

	Score   scoring.State
	History *question.History
	Pending *pendingQuestion

	GamesPlayed   int
	CreditsUsed   int
	FirstRunScore int
	LastRunScore  int
	hasRun        bool

	lastLeaderboardSig string
}

type pendingQuestion struct {
	q        question.Question
	issuedAt time.Time
}

func questionMessage(q question.Question) *ws.QuestionMessage {
	return &ws.QuestionMessage{
		Type:       ws.TypeQuestion,
		QuestionID: q.ID,
		Text:       q.Text,
		Options:    q.Options,
		Category:   q.Category,
		Difficulty: q.Difficulty,
	}
}
