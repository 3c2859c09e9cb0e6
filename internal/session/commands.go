package session

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/reviewarcade/platform/pkg/http/ws"
)

// Inbox commands. Every mutation of session state happens on the actor
// goroutine; these are the only way in.

type command interface{}

type hostConnectedCmd struct {
	conn      *ws.Conn
	teacherID uuid.UUID
}

type playerConnectedCmd struct {
	conn     *ws.Conn
	playerID uuid.UUID
	token    string
}

type disconnectCmd struct {
	conn *ws.Conn
}

// Host lifecycle actions, validated against the attached host connection.
type hostControlCmd struct {
	conn   *ws.Conn
	action string // start, pause, resume, end
}

type deathCmd struct {
	conn     *ws.Conn
	playerID uuid.UUID
	runScore int
	metadata json.RawMessage
}

type answerCmd struct {
	conn        *ws.Conn
	playerID    uuid.UUID
	questionID  string
	answerIndex int
	timeMs      int
}

type scoreUpdateCmd struct {
	conn     *ws.Conn
	playerID uuid.UUID
	score    int
}

type specialEventCmd struct {
	conn     *ws.Conn
	playerID uuid.UUID
	event    json.RawMessage
}

type pongCmd struct {
	conn *ws.Conn
}

type joinCmd struct {
	name      string
	isTeacher bool
	teacherID uuid.UUID
	reply     chan joinReply
}

type joinReply struct {
	player JoinedPlayer
	err    error
}

type previewCmd struct {
	reply chan Preview
}

type stopCmd struct{}

// post delivers a command unless the actor has already exited.
func (a *Actor) post(cmd command) bool {
	select {
	case a.inbox <- cmd:
		return true
	case <-a.done:
		return false
	}
}

// Join admits a new player over the request/response inbox pattern.
func (a *Actor) Join(name string) (JoinedPlayer, error) {
	return a.join(joinCmd{name: name, reply: make(chan joinReply, 1)})
}

// JoinTeacher admits the owning teacher as a ranked player.
func (a *Actor) JoinTeacher(teacherID uuid.UUID, name string) (JoinedPlayer, error) {
	return a.join(joinCmd{name: name, isTeacher: true, teacherID: teacherID, reply: make(chan joinReply, 1)})
}

func (a *Actor) join(cmd joinCmd) (JoinedPlayer, error) {
	if !a.post(cmd) {
		return JoinedPlayer{}, ErrSessionEnded
	}
	select {
	case r := <-cmd.reply:
		return r.player, r.err
	case <-a.done:
		return JoinedPlayer{}, ErrSessionEnded
	}
}

// Preview returns the public pre-join snapshot.
func (a *Actor) Preview() (Preview, bool) {
	cmd := previewCmd{reply: make(chan Preview, 1)}
	if !a.post(cmd) {
		return Preview{}, false
	}
	select {
	case p := <-cmd.reply:
		return p, true
	case <-a.done:
		return Preview{}, false
	}
}

// AttachHost binds a host connection; a newer host supersedes any prior one.
func (a *Actor) AttachHost(conn *ws.Conn, teacherID uuid.UUID) {
	a.post(hostConnectedCmd{conn: conn, teacherID: teacherID})
}

// AttachPlayer binds a player connection after token validation on the actor.
func (a *Actor) AttachPlayer(conn *ws.Conn, playerID uuid.UUID, token string) {
	a.post(playerConnectedCmd{conn: conn, playerID: playerID, token: token})
}

// Detach reports a dropped connection.
func (a *Actor) Detach(conn *ws.Conn) {
	a.post(disconnectCmd{conn: conn})
}

// HostControl runs a lifecycle action from the host connection.
func (a *Actor) HostControl(conn *ws.Conn, action string) {
	a.post(hostControlCmd{conn: conn, action: action})
}

// Death reports an avatar death with its run score.
func (a *Actor) Death(conn *ws.Conn, playerID uuid.UUID, runScore int, metadata json.RawMessage) {
	a.post(deathCmd{conn: conn, playerID: playerID, runScore: runScore, metadata: metadata})
}

// Answer submits a review question answer.
func (a *Actor) Answer(conn *ws.Conn, playerID uuid.UUID, questionID string, answerIndex, timeMs int) {
	a.post(answerCmd{conn: conn, playerID: playerID, questionID: questionID, answerIndex: answerIndex, timeMs: timeMs})
}

// ScoreUpdate forwards a live in-run score to the host.
func (a *Actor) ScoreUpdate(conn *ws.Conn, playerID uuid.UUID, score int) {
	a.post(scoreUpdateCmd{conn: conn, playerID: playerID, score: score})
}

// SpecialEvent forwards an opaque game event to the host.
func (a *Actor) SpecialEvent(conn *ws.Conn, playerID uuid.UUID, event json.RawMessage) {
	a.post(specialEventCmd{conn: conn, playerID: playerID, event: event})
}

// Pong records heartbeat liveness for a connection.
func (a *Actor) Pong(conn *ws.Conn) {
	a.post(pongCmd{conn: conn})
}

// Stop shuts the actor down, closing every connection.
func (a *Actor) Stop() {
	a.post(stopCmd{})
}
