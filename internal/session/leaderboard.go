package session

import (
	"fmt"
	"sort"

	"github.com/reviewarcade/platform/pkg/http/ws"
)

const leaderboardTop = 5

// computeEntries ranks players by total score descending, ties broken by best
// streak descending, then join order ascending. Ranks are dense integers
// starting at 1; with join order as the final tiebreak no two players share a
// rank.
func (a *Actor) computeEntries() []ws.LeaderboardEntry {
	ordered := make([]*Player, len(a.players))
	copy(ordered, a.players)
	sort.SliceStable(ordered, func(i, j int) bool {
		pi, pj := ordered[i], ordered[j]
		if pi.Score.TotalScore != pj.Score.TotalScore {
			return pi.Score.TotalScore > pj.Score.TotalScore
		}
		if pi.Score.BestStreak != pj.Score.BestStreak {
			return pi.Score.BestStreak > pj.Score.BestStreak
		}
		return pi.JoinOrder < pj.JoinOrder
	})

	entries := make([]ws.LeaderboardEntry, len(ordered))
	for i, p := range ordered {
		entries[i] = ws.LeaderboardEntry{
			Rank:        i + 1,
			PlayerID:    p.ID.String(),
			DisplayName: p.DisplayName,
			TotalScore:  p.Score.TotalScore,
			BestStreak:  p.Score.BestStreak,
			IsTeacher:   p.IsTeacher,
		}
	}
	return entries
}

func topN(entries []ws.LeaderboardEntry, n int) []ws.LeaderboardEntry {
	if len(entries) < n {
		n = len(entries)
	}
	out := make([]ws.LeaderboardEntry, n)
	copy(out, entries[:n])
	return out
}

// broadcastLeaderboards pushes the full board to the host and, per player, the
// top five plus the player's own line whenever that view changed.
func (a *Actor) broadcastLeaderboards() {
	entries := a.computeEntries()

	a.send(a.host, ws.LeaderboardUpdateMessage{
		Type:    ws.TypeLeaderboardUpdate,
		Entries: entries,
	})

	byID := make(map[string]ws.LeaderboardEntry, len(entries))
	for _, e := range entries {
		byID[e.PlayerID] = e
	}
	top := topN(entries, leaderboardTop)

	for _, p := range a.players {
		if !p.Connected {
			continue
		}
		you := byID[p.ID.String()]
		sig := leaderboardSig(top, you)
		if sig == p.lastLeaderboardSig {
			continue
		}
		p.lastLeaderboardSig = sig
		a.send(p.Conn, ws.LeaderboardUpdateMessage{
			Type:    ws.TypeLeaderboardUpdate,
			Entries: top,
			You:     &you,
		})
	}
}

func leaderboardSig(top []ws.LeaderboardEntry, you ws.LeaderboardEntry) string {
	sig := fmt.Sprintf("%d:%s:%d", you.Rank, you.PlayerID, you.TotalScore)
	for _, e := range top {
		sig += fmt.Sprintf("|%s:%d", e.PlayerID, e.TotalScore)
	}
	return sig
}
