package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/reviewarcade/platform/internal/auth"
	"github.com/reviewarcade/platform/internal/metrics"
	"github.com/reviewarcade/platform/internal/question"
	"github.com/reviewarcade/platform/internal/results"
	"github.com/reviewarcade/platform/internal/session/scoring"
	httperrors "github.com/reviewarcade/platform/pkg/http/errors"
	"github.com/reviewarcade/platform/pkg/http/ws"
)

// Recorder persists results at the end-of-session boundary.
type Recorder interface {
	RecordEnd(ctx context.Context, end results.SessionEnd) error
}

// Options tunes actor timing. Now is injectable for tests.
type Options struct {
	AnswerTimeout time.Duration
	ReapGrace     time.Duration
	TickInterval  time.Duration
	Now           func() time.Time
}

func (o Options) withDefaults() Options {
	if o.AnswerTimeout <= 0 {
		o.AnswerTimeout = 120 * time.Second
	}
	if o.ReapGrace <= 0 {
		o.ReapGrace = 60 * time.Second
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Meta is the immutable identity of a session.
type Meta struct {
	ID          uuid.UUID
	Code        string
	TeacherID   uuid.UUID
	TeacherName string
	TeacherMode string
	GameType    string
}

// Actor is the single writer for one session. All state below the inbox is
// owned by the run loop and never touched from outside it.
type Actor struct {
	meta   Meta
	cfg    Config
	opts   Options
	logger zerolog.Logger

	inbox chan command
	done  chan struct{}

	engine   *scoring.Engine
	source   question.Source
	recorder Recorder
	onReap   func(code string)

	// run-loop state
	status           string
	createdAt        time.Time
	startedAt        time.Time
	endedAt          time.Time
	timerEnd         time.Time
	remainingOnPause time.Duration

	players []*Player
	byID    map[uuid.UUID]*Player
	host    *ws.Conn
	stopped bool
}

// NewActor builds an actor in the lobby state. Call Run on its own goroutine.
func NewActor(meta Meta, cfg Config, source question.Source, engine *scoring.Engine, recorder Recorder, onReap func(code string), logger zerolog.Logger, opts Options) *Actor {
	o := opts.withDefaults()
	return &Actor{
		meta:      meta,
		cfg:       cfg,
		opts:      o,
		logger:    logger.With().Str("component", "session").Str("code", meta.Code).Logger(),
		inbox:     make(chan command, 1024),
		done:      make(chan struct{}),
		engine:    engine,
		source:    source,
		recorder:  recorder,
		onReap:    onReap,
		status:    StatusLobby,
		createdAt: o.Now(),
		byID:      make(map[uuid.UUID]*Player),
	}
}

// ID returns the session id.
func (a *Actor) ID() uuid.UUID { return a.meta.ID }

// Code returns the session code.
func (a *Actor) Code() string { return a.meta.Code }

// TeacherID returns the owning teacher.
func (a *Actor) TeacherID() uuid.UUID { return a.meta.TeacherID }

// Run processes the inbox until stopped. Commands from one connection are
// handled in arrival order; broadcasts leave in acceptance order.
func (a *Actor) Run() {
	ticker := time.NewTicker(a.opts.TickInterval)
	defer func() {
		ticker.Stop()
		close(a.done)
	}()

	for {
		select {
		case cmd := <-a.inbox:
			a.handle(cmd)
			if a.stopped {
				return
			}
		case <-ticker.C:
			a.handleTick()
		}
	}
}

func (a *Actor) handle(cmd command) {
	switch c := cmd.(type) {
	case joinCmd:
		a.handleJoin(c)
	case previewCmd:
		c.reply <- Preview{
			Code:        a.meta.Code,
			Status:      a.status,
			GameType:    a.meta.GameType,
			PlayerCount: len(a.players),
			MaxPlayers:  a.cfg.MaxPlayers,
		}
	case hostConnectedCmd:
		a.handleHostConnected(c)
	case playerConnectedCmd:
		a.handlePlayerConnected(c)
	case disconnectCmd:
		a.handleDisconnect(c)
	case hostControlCmd:
		a.handleHostControl(c)
	case deathCmd:
		a.handleDeath(c)
	case answerCmd:
		a.handleAnswer(c)
	case scoreUpdateCmd:
		if p := a.playerFor(c.conn, c.playerID); p != nil {
			a.send(a.host, ws.PlayerScoreUpdateMessage{
				Type:     ws.TypePlayerScoreUpdate,
				PlayerID: p.ID.String(),
				Score:    c.score,
			})
		}
	case specialEventCmd:
		if p := a.playerFor(c.conn, c.playerID); p != nil {
			a.send(a.host, ws.LiveEventMessage{
				Type:     ws.TypeLiveEvent,
				PlayerID: p.ID.String(),
				Event:    c.event,
			})
		}
	case pongCmd:
		if c.conn == a.host {
			return
		}
		for _, p := range a.players {
			if p.Conn == c.conn {
				p.LastSeen = a.opts.Now()
				return
			}
		}
	case stopCmd:
		a.shutdown()
	}
}

func (a *Actor) handleTick() {
	if a.status != StatusActive {
		return
	}
	if !a.opts.Now().Before(a.timerEnd) {
		a.endSession()
	}
}

// --- lifecycle ---

func (a *Actor) handleHostControl(c hostControlCmd) {
	if c.conn != a.host {
		a.sendError(c.conn, httperrors.ErrCodeForbidden, "host commands require the host connection")
		return
	}
	switch c.action {
	case ws.TypeStartSession:
		a.startSession()
	case ws.TypePauseSession:
		a.pauseSession()
	case ws.TypeResumeSession:
		a.resumeSession()
	case ws.TypeEndSession:
		if a.status != StatusActive && a.status != StatusPaused {
			a.sendError(a.host, httperrors.ErrCodeBadMessage, fmt.Sprintf("cannot end from %s", a.status))
			return
		}
		a.endSession()
	}
}

func (a *Actor) startSession() {
	if a.status != StatusLobby {
		a.sendError(a.host, httperrors.ErrCodeBadMessage, fmt.Sprintf("cannot start from %s", a.status))
		return
	}
	if a.meta.TeacherMode == TeacherModePlay && len(a.players) == 0 {
		a.sendError(a.host, httperrors.ErrCodeBadMessage, "at least one player required")
		return
	}
	if a.source == nil {
		a.sendError(a.host, httperrors.ErrCodeInternal, "question source unavailable")
		return
	}

	now := a.opts.Now()
	a.status = StatusActive
	a.startedAt = now
	a.timerEnd = now.Add(time.Duration(a.cfg.TimeLimitSeconds) * time.Second)

	a.broadcast(ws.SessionStartedMessage{
		Type:             ws.TypeSessionStarted,
		GameType:         a.meta.GameType,
		TimeLimitSeconds: a.cfg.TimeLimitSeconds,
	})
	a.logger.Info().Int("players", len(a.players)).Msg("session started")
}

func (a *Actor) pauseSession() {
	if a.status != StatusActive {
		a.sendError(a.host, httperrors.ErrCodeBadMessage, fmt.Sprintf("cannot pause from %s", a.status))
		return
	}
	a.status = StatusPaused
	a.remainingOnPause = a.timerEnd.Sub(a.opts.Now())
	if a.remainingOnPause < 0 {
		a.remainingOnPause = 0
	}
	a.broadcast(ws.SessionPausedMessage{Type: ws.TypeSessionPaused})
}

func (a *Actor) resumeSession() {
	if a.status != StatusPaused {
		a.sendError(a.host, httperrors.ErrCodeBadMessage, fmt.Sprintf("cannot resume from %s", a.status))
		return
	}
	a.status = StatusActive
	a.timerEnd = a.opts.Now().Add(a.remainingOnPause)
	a.broadcast(ws.SessionResumedMessage{
		Type:             ws.TypeSessionResumed,
		RemainingSeconds: int(a.remainingOnPause.Seconds()),
	})
}

func (a *Actor) endSession() {
	if a.status == StatusEnded {
		return
	}
	a.status = StatusEnded
	a.endedAt = a.opts.Now()

	entries := a.computeEntries()
	awards := a.computeAwards()

	a.broadcast(ws.SessionEndedMessage{
		Type:             ws.TypeSessionEnded,
		FinalLeaderboard: entries,
		Awards:           awards,
	})

	a.persistResults(entries, awards)

	code := a.meta.Code
	reap := a.onReap
	if reap != nil {
		time.AfterFunc(a.opts.ReapGrace, func() { reap(code) })
	}
	a.logger.Info().Int("players", len(a.players)).Msg("session ended")
}

func (a *Actor) persistResults(entries []ws.LeaderboardEntry, awards []ws.Award) {
	if a.recorder == nil {
		return
	}

	rankByID := make(map[string]int, len(entries))
	for _, e := range entries {
		rankByID[e.PlayerID] = e.Rank
	}

	end := results.SessionEnd{
		SessionID: a.meta.ID,
		EndedAt:   a.endedAt,
	}
	if !a.startedAt.IsZero() {
		started := a.startedAt
		end.StartedAt = &started
	}
	for _, p := range a.players {
		end.Players = append(end.Players, results.PlayerResult{
			PlayerID:          p.ID,
			DisplayName:       p.DisplayName,
			IsTeacher:         p.IsTeacher,
			Rank:              rankByID[p.ID.String()],
			TotalScore:        p.Score.TotalScore,
			BestStreak:        p.Score.BestStreak,
			QuestionsAnswered: p.Score.QuestionsAnswered,
			QuestionsCorrect:  p.Score.QuestionsCorrect,
			AvgAnswerMs:       scoring.AvgAnswerMs(p.Score),
			GamesPlayed:       p.GamesPlayed,
			CreditsUsed:       p.CreditsUsed,
		})
	}
	for _, aw := range awards {
		id, err := uuid.Parse(aw.PlayerID)
		if err != nil {
			continue
		}
		end.Awards = append(end.Awards, results.AwardRecord{
			Name:        aw.Name,
			PlayerID:    id,
			DisplayName: aw.DisplayName,
			Value:       aw.Value,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.recorder.RecordEnd(ctx, end); err != nil {
		a.logger.Error().Err(err).Msg("failed to persist session results")
	}
}

func (a *Actor) shutdown() {
	a.stopped = true
	if a.host != nil {
		a.host.CloseWithReason(ws.CloseReasonSessionEnded)
		a.host = nil
	}
	for _, p := range a.players {
		if p.Conn != nil {
			p.Conn.CloseWithReason(ws.CloseReasonSessionEnded)
			p.Conn = nil
			p.Connected = false
		}
	}
}

// --- joins and connections ---

func (a *Actor) handleJoin(c joinCmd) {
	var r joinReply
	defer func() { c.reply <- r }()

	switch {
	case a.status == StatusEnded:
		r.err = ErrSessionEnded
		return
	case a.status != StatusLobby:
		r.err = ErrNotAccepting
		return
	case len(a.players) >= a.cfg.MaxPlayers:
		r.err = ErrFull
		return
	case c.isTeacher && c.teacherID != a.meta.TeacherID:
		r.err = ErrForbidden
		return
	}

	name, err := NormalizeDisplayName(c.name)
	if err != nil {
		r.err = err
		return
	}
	name = a.dedupeName(name)

	token, err := auth.MintPlayerToken()
	if err != nil {
		r.err = err
		return
	}

	p := &Player{
		ID:          uuid.New(),
		DisplayName: name,
		Token:       token,
		IsTeacher:   c.isTeacher,
		JoinedAt:    a.opts.Now(),
		JoinOrder:   len(a.players),
		History:     question.NewHistory(),
	}
	a.players = append(a.players, p)
	a.byID[p.ID] = p

	a.send(a.host, ws.PlayerConnectedMessage{
		Type:        ws.TypePlayerConnected,
		PlayerID:    p.ID.String(),
		DisplayName: p.DisplayName,
		PlayerCount: len(a.players),
	})

	r.player = JoinedPlayer{
		ID:          p.ID,
		Name:        p.DisplayName,
		SessionCode: a.meta.Code,
		PlayerToken: p.Token,
		IsTeacher:   p.IsTeacher,
		JoinedAt:    p.JoinedAt,
	}
	a.logger.Info().Str("player_id", p.ID.String()).Str("name", p.DisplayName).Msg("player joined")
}

func (a *Actor) dedupeName(name string) string {
	taken := func(candidate string) bool {
		for _, p := range a.players {
			if strings.EqualFold(p.DisplayName, candidate) {
				return true
			}
		}
		return false
	}
	if !taken(name) {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s#%d", name, i)
		if !taken(candidate) {
			return candidate
		}
	}
}

func (a *Actor) handleHostConnected(c hostConnectedCmd) {
	if c.teacherID != a.meta.TeacherID {
		a.sendError(c.conn, httperrors.ErrCodeForbidden, "not the session owner")
		c.conn.CloseWithReason(ws.CloseReasonAuthRequired)
		return
	}
	if a.host != nil && a.host != c.conn {
		a.host.CloseWithReason(ws.CloseReasonSuperseded)
	}
	a.host = c.conn
	a.send(a.host, a.hostState())
}

func (a *Actor) handlePlayerConnected(c playerConnectedCmd) {
	p := a.byID[c.playerID]
	if p == nil || !auth.PlayerTokenEqual(p.Token, c.token) {
		a.sendError(c.conn, httperrors.ErrCodeAuthInvalid, "invalid player token")
		c.conn.CloseWithReason(ws.CloseReasonAuthRequired)
		return
	}
	if p.Conn != nil && p.Conn != c.conn {
		p.Conn.CloseWithReason(ws.CloseReasonSuperseded)
	}
	p.Conn = c.conn
	p.Connected = true
	p.LastSeen = a.opts.Now()

	a.send(p.Conn, a.playerState(p))
	a.send(a.host, ws.PlayerConnectedMessage{
		Type:        ws.TypePlayerConnected,
		PlayerID:    p.ID.String(),
		DisplayName: p.DisplayName,
		PlayerCount: len(a.players),
	})
}

func (a *Actor) handleDisconnect(c disconnectCmd) {
	if c.conn == a.host {
		a.host = nil
		a.logger.Info().Msg("host disconnected")
		return
	}
	for _, p := range a.players {
		if p.Conn == c.conn {
			p.Conn = nil
			p.Connected = false
			a.send(a.host, ws.PlayerDisconnectedMessage{
				Type:        ws.TypePlayerDisconnected,
				PlayerID:    p.ID.String(),
				DisplayName: p.DisplayName,
				PlayerCount: len(a.players),
			})
			return
		}
	}
}

// playerFor resolves a gameplay command to its player, enforcing that the
// command arrived on that player's current connection.
func (a *Actor) playerFor(conn *ws.Conn, playerID uuid.UUID) *Player {
	p := a.byID[playerID]
	if p == nil || p.Conn != conn {
		a.sendError(conn, httperrors.ErrCodeAuthInvalid, "unknown player for connection")
		return nil
	}
	return p
}

// --- gameplay ---

func (a *Actor) handleDeath(c deathCmd) {
	p := a.playerFor(c.conn, c.playerID)
	if p == nil {
		return
	}
	if a.status != StatusActive {
		a.sendError(p.Conn, httperrors.ErrCodeNotAccepting, "session is not active")
		return
	}
	if p.Pending != nil {
		if a.opts.Now().Sub(p.Pending.issuedAt) <= a.opts.AnswerTimeout {
			a.sendError(p.Conn, httperrors.ErrCodePendingQuestion, "pending question")
			return
		}
		// The prior question expired unanswered; the banked run is forfeited
		// and a fresh death proceeds.
		p.Pending = nil
		p.Score.Pending = false
		p.Score.LastDeathScore = 0
	}

	st, res := a.engine.ApplyDeath(p.Score, c.runScore)
	p.Score = st
	p.GamesPlayed++
	if res.CreditConsumed {
		p.CreditsUsed++
	}
	if !p.hasRun {
		p.FirstRunScore = res.EffectiveScore
		p.hasRun = true
	}
	p.LastRunScore = res.EffectiveScore

	q, err := a.source.Next(p.History)
	if err != nil {
		a.logger.Error().Err(err).Str("player_id", p.ID.String()).Msg("question source failed")
		p.Pending = nil
		p.Score.Pending = false
		a.sendError(p.Conn, httperrors.ErrCodeInternal, "no question available")
		return
	}
	p.History.Mark(q.ID)
	p.Pending = &pendingQuestion{q: q, issuedAt: a.opts.Now()}

	a.send(p.Conn, questionMessage(q))
	metrics.QuestionsServed.Inc()
}

func (a *Actor) handleAnswer(c answerCmd) {
	p := a.playerFor(c.conn, c.playerID)
	if p == nil {
		return
	}
	if p.Pending == nil || p.Pending.q.ID != c.questionID {
		a.sendError(p.Conn, httperrors.ErrCodeExpired, "expired")
		return
	}
	if a.opts.Now().Sub(p.Pending.issuedAt) > a.opts.AnswerTimeout {
		// Pending stays set until the next death re-serves a question.
		a.sendError(p.Conn, httperrors.ErrCodeExpired, "expired")
		return
	}

	pending := p.Pending
	if c.answerIndex == pending.q.CorrectIndex {
		st, res := a.engine.ApplyCorrect(p.Score, c.timeMs)
		p.Score = st
		p.Pending = nil
		a.send(p.Conn, ws.AnswerCorrectMessage{
			Type:               ws.TypeAnswerCorrect,
			QuestionID:         pending.q.ID,
			BonusEarned:        res.BonusEarned,
			TotalScore:         res.TotalScore,
			CurrentStreak:      res.CurrentStreak,
			StreakMultiplier:   res.Multiplier,
			ComebackCredits:    res.ComebackCredits,
			ComebackStartScore: res.ComebackStartScore,
			Respawn:            true,
		})
		metrics.AnswersProcessed.WithLabelValues("correct").Inc()
		a.broadcastLeaderboards()
		return
	}

	p.Score = a.engine.ApplyWrong(p.Score, c.timeMs)
	p.Pending = nil
	a.send(p.Conn, ws.AnswerWrongMessage{
		Type:         ws.TypeAnswerWrong,
		QuestionID:   pending.q.ID,
		CorrectIndex: pending.q.CorrectIndex,
		Respawn:      false,
	})
	metrics.AnswersProcessed.WithLabelValues("wrong").Inc()
}

// --- outbound ---

func (a *Actor) send(conn *ws.Conn, msg any) {
	if conn == nil {
		return
	}
	data, err := ws.Encode(msg)
	if err != nil {
		a.logger.Error().Err(err).Msg("encode outbound message")
		return
	}
	if err := conn.Send(data); err != nil {
		if errors.Is(err, ws.ErrSlowConsumer) {
			metrics.SlowConsumerDrops.Inc()
			a.logger.Warn().Msg("slow consumer dropped")
		}
		return
	}
	metrics.MessagesBroadcast.Inc()
}

func (a *Actor) sendError(conn *ws.Conn, code, message string) {
	a.send(conn, ws.NewError(code, message))
}

// broadcast delivers to the host and every connected player, in actor
// acceptance order per subscriber.
func (a *Actor) broadcast(msg any) {
	a.send(a.host, msg)
	for _, p := range a.players {
		if p.Connected {
			a.send(p.Conn, msg)
		}
	}
}

func (a *Actor) remainingSeconds() int {
	switch a.status {
	case StatusActive:
		d := a.timerEnd.Sub(a.opts.Now())
		if d < 0 {
			return 0
		}
		return int(d.Seconds())
	case StatusPaused:
		return int(a.remainingOnPause.Seconds())
	case StatusLobby:
		return a.cfg.TimeLimitSeconds
	default:
		return 0
	}
}

func (a *Actor) hostState() ws.HostStateMessage {
	entries := a.computeEntries()
	rankByID := make(map[string]int, len(entries))
	for _, e := range entries {
		rankByID[e.PlayerID] = e.Rank
	}

	msg := ws.HostStateMessage{
		Type:             ws.TypeHostState,
		Code:             a.meta.Code,
		Status:           a.status,
		GameType:         a.meta.GameType,
		TimeLimitSeconds: a.cfg.TimeLimitSeconds,
		RemainingSeconds: a.remainingSeconds(),
		MaxPlayers:       a.cfg.MaxPlayers,
		PlayerCount:      len(a.players),
		Players:          make([]ws.PlayerSummary, 0, len(a.players)),
	}
	for _, p := range a.players {
		msg.Players = append(msg.Players, ws.PlayerSummary{
			PlayerID:    p.ID.String(),
			DisplayName: p.DisplayName,
			IsTeacher:   p.IsTeacher,
			Connected:   p.Connected,
			TotalScore:  p.Score.TotalScore,
			BestStreak:  p.Score.BestStreak,
			Rank:        rankByID[p.ID.String()],
		})
	}
	return msg
}

func (a *Actor) playerState(p *Player) ws.PlayerStateMessage {
	entries := a.computeEntries()
	rank := 0
	for _, e := range entries {
		if e.PlayerID == p.ID.String() {
			rank = e.Rank
			break
		}
	}

	msg := ws.PlayerStateMessage{
		Type:             ws.TypePlayerState,
		Code:             a.meta.Code,
		Status:           a.status,
		GameType:         a.meta.GameType,
		RemainingSeconds: a.remainingSeconds(),
		TotalScore:       p.Score.TotalScore,
		CurrentStreak:    p.Score.CurrentStreak,
		StreakMultiplier: a.engine.Multiplier(p.Score.CurrentStreak),
		ComebackCredits:  p.Score.ComebackCredits,
		Rank:             rank,
		Leaderboard:      topN(entries, leaderboardTop),
	}
	if p.Pending != nil {
		msg.PendingQuestion = questionMessage(p.Pending.q)
	}
	return msg
}
