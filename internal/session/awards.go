package session

import (
	"fmt"

	"github.com/reviewarcade/platform/internal/session/scoring"
	"github.com/reviewarcade/platform/pkg/http/ws"
)

// Award names in the fixed end-of-session catalogue.
const (
	AwardTopScore      = "Top Score"
	AwardLongestStreak = "Longest Streak"
	AwardMostImproved  = "Most Improved"
	AwardQuickestMind  = "Quickest Mind"
	AwardComebackKing  = "Comeback King"
)

const quickestMindMinAnswers = 5

// computeAwards derives the award catalogue from the final player snapshots.
// All comparisons resolve ties by join order; an award with no qualifying
// player is omitted.
func (a *Actor) computeAwards() []ws.Award {
	var awards []ws.Award

	if w := a.pickBest(func(p *Player) (int64, bool) {
		return int64(p.Score.TotalScore), true
	}); w != nil {
		awards = append(awards, award(AwardTopScore, w, fmt.Sprint(w.Score.TotalScore)))
	}

	if w := a.pickBest(func(p *Player) (int64, bool) {
		return int64(p.Score.BestStreak), p.Score.BestStreak > 0
	}); w != nil {
		awards = append(awards, award(AwardLongestStreak, w, fmt.Sprint(w.Score.BestStreak)))
	}

	if w := a.pickBest(func(p *Player) (int64, bool) {
		if p.GamesPlayed < 2 {
			return 0, false
		}
		return int64(p.LastRunScore - p.FirstRunScore), true
	}); w != nil {
		awards = append(awards, award(AwardMostImproved, w, fmt.Sprintf("%+d", w.LastRunScore-w.FirstRunScore)))
	}

	if w := a.pickBest(func(p *Player) (int64, bool) {
		if p.Score.QuestionsAnswered < quickestMindMinAnswers {
			return 0, false
		}
		// Lowest average wins; negate so the shared picker can take the max.
		return -int64(scoring.AvgAnswerMs(p.Score)), true
	}); w != nil {
		awards = append(awards, award(AwardQuickestMind, w, fmt.Sprintf("%dms", scoring.AvgAnswerMs(w.Score))))
	}

	if w := a.pickBest(func(p *Player) (int64, bool) {
		if p.GamesPlayed == 0 || p.CreditsUsed == 0 {
			return 0, false
		}
		// Credits used per thousand runs keeps the comparison integral.
		return int64(p.CreditsUsed) * 1000 / int64(p.GamesPlayed), true
	}); w != nil {
		awards = append(awards, award(AwardComebackKing, w, fmt.Sprintf("%d credits", w.CreditsUsed)))
	}

	return awards
}

// pickBest returns the qualifying player with the highest score; earlier join
// order wins ties.
func (a *Actor) pickBest(score func(*Player) (int64, bool)) *Player {
	var best *Player
	var bestScore int64
	for _, p := range a.players {
		s, ok := score(p)
		if !ok {
			continue
		}
		if best == nil || s > bestScore {
			best, bestScore = p, s
		}
	}
	return best
}

func award(name string, p *Player, value string) ws.Award {
	return ws.Award{
		Name:        name,
		PlayerID:    p.ID.String(),
		DisplayName: p.DisplayName,
		Value:       value,
	}
}
