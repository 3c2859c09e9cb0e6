package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewarcade/platform/internal/auth"
	"github.com/reviewarcade/platform/internal/results"
)

type stubStore struct {
	created  []results.SessionRecord
	byCode   map[string]*results.SessionRecord
	results  map[uuid.UUID]*results.SessionResults
	listResp []results.SessionRecord
}

func newStubStore() *stubStore {
	return &stubStore{
		byCode:  map[string]*results.SessionRecord{},
		results: map[uuid.UUID]*results.SessionResults{},
	}
}

func (s *stubStore) CreateSession(_ context.Context, rec results.SessionRecord) error {
	s.created = append(s.created, rec)
	return nil
}

func (s *stubStore) ListByTeacher(_ context.Context, teacherID uuid.UUID, limit int) ([]results.SessionRecord, error) {
	if len(s.listResp) > limit {
		return s.listResp[:limit], nil
	}
	return s.listResp, nil
}

func (s *stubStore) GetByCode(_ context.Context, code string) (*results.SessionRecord, error) {
	if rec, ok := s.byCode[code]; ok {
		return rec, nil
	}
	return nil, results.ErrNotFound
}

func (s *stubStore) GetResults(_ context.Context, sessionID uuid.UUID) (*results.SessionResults, error) {
	if res, ok := s.results[sessionID]; ok {
		return res, nil
	}
	return nil, results.ErrNotFound
}

type httpFixture struct {
	handlers *HTTPHandlers
	registry *Registry
	store    *stubStore
	claims   *auth.TeacherClaims
}

func newHTTPFixture(t *testing.T) *httpFixture {
	t.Helper()
	registry := testRegistry(10)
	t.Cleanup(registry.CloseAll)
	store := newStubStore()
	return &httpFixture{
		handlers: NewHTTPHandlers(registry, store, zerolog.New(io.Discard)),
		registry: registry,
		store:    store,
		claims: &auth.TeacherClaims{
			TeacherID:   uuid.New(),
			DisplayName: "Ms. Lovelace",
		},
	}
}

func (f *httpFixture) createSession(t *testing.T) SessionResponse {
	t.Helper()
	body := map[string]any{
		"game_type":          "runner",
		"teacher_mode":       "monitor",
		"time_limit_minutes": 10,
		"max_players":        30,
		"question_source":    "math",
		"question_config":    map[string]any{"operations": []string{"add"}, "min_operand": 1, "max_operand": 12},
	}
	rr := f.do(t, f.handlers.CreateSession, "POST", "/api/reviewarcade/sessions", body, true, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func (f *httpFixture) do(t *testing.T, handler http.HandlerFunc, method, target string, body any, authed bool, pathValues map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if authed {
		req = req.WithContext(auth.WithClaims(req.Context(), f.claims))
	}
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestCreateSessionRequiresTeacherAuth(t *testing.T) {
	f := newHTTPFixture(t)
	rr := f.do(t, f.handlers.CreateSession, "POST", "/api/reviewarcade/sessions", map[string]any{}, false, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreateSessionValidatesPayload(t *testing.T) {
	f := newHTTPFixture(t)

	cases := []map[string]any{
		{"game_type": "chess", "teacher_mode": "monitor", "time_limit_minutes": 10, "max_players": 30, "question_source": "math", "question_config": map[string]any{"operations": []string{"add"}, "min_operand": 1, "max_operand": 9}},
		{"game_type": "runner", "teacher_mode": "spectate", "time_limit_minutes": 10, "max_players": 30, "question_source": "math", "question_config": map[string]any{"operations": []string{"add"}, "min_operand": 1, "max_operand": 9}},
		{"game_type": "runner", "teacher_mode": "monitor", "time_limit_minutes": 2, "max_players": 30, "question_source": "math", "question_config": map[string]any{"operations": []string{"add"}, "min_operand": 1, "max_operand": 9}},
		{"game_type": "runner", "teacher_mode": "monitor", "time_limit_minutes": 10, "max_players": 500, "question_source": "math", "question_config": map[string]any{"operations": []string{"add"}, "min_operand": 1, "max_operand": 9}},
		{"game_type": "runner", "teacher_mode": "monitor", "time_limit_minutes": 10, "max_players": 30, "question_source": "bank"},
	}
	for i, body := range cases {
		rr := f.do(t, f.handlers.CreateSession, "POST", "/api/reviewarcade/sessions", body, true, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "case %d: %s", i, rr.Body.String())
	}
}

func TestCreateSessionPersistsRecord(t *testing.T) {
	f := newHTTPFixture(t)
	resp := f.createSession(t)

	assert.Len(t, resp.Code, 6)
	assert.Equal(t, StatusLobby, resp.Status)
	assert.Equal(t, 600, resp.Config.TimeLimitSeconds)

	require.Len(t, f.store.created, 1)
	assert.Equal(t, resp.Code, f.store.created[0].Code)
	assert.Equal(t, f.claims.TeacherID, f.store.created[0].TeacherID)
}

// S1: join on a fresh lobby returns a high-entropy token.
func TestJoinLobby(t *testing.T) {
	f := newHTTPFixture(t)
	sess := f.createSession(t)

	rr := f.do(t, f.handlers.Join, "POST", "/api/reviewarcade/sessions/"+sess.Code+"/join",
		map[string]string{"name": "Ada"}, false, map[string]string{"code": sess.Code})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var player JoinedPlayer
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &player))
	assert.Equal(t, "Ada", player.Name)
	assert.GreaterOrEqual(t, len(player.PlayerToken), 32)
	assert.False(t, player.IsTeacher)
}

func TestJoinUnknownCodeIs404(t *testing.T) {
	f := newHTTPFixture(t)
	rr := f.do(t, f.handlers.Join, "POST", "/api/reviewarcade/sessions/NOPE22/join",
		map[string]string{"name": "Ada"}, false, map[string]string{"code": "NOPE22"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestJoinEndedCodeIs410(t *testing.T) {
	f := newHTTPFixture(t)
	f.store.byCode["GONE42"] = &results.SessionRecord{Code: "GONE42", Status: StatusEnded}

	rr := f.do(t, f.handlers.Join, "POST", "/api/reviewarcade/sessions/GONE42/join",
		map[string]string{"name": "Ada"}, false, map[string]string{"code": "GONE42"})
	assert.Equal(t, http.StatusGone, rr.Code)
}

func TestJoinFullSessionIs409(t *testing.T) {
	f := newHTTPFixture(t)
	sess := f.createSession(t)
	actor, ok := f.registry.Lookup(sess.Code)
	require.True(t, ok)

	for i := 0; i < 30; i++ {
		_, err := actor.Join(fmt.Sprintf("Player %02d", i))
		require.NoError(t, err)
	}

	rr := f.do(t, f.handlers.Join, "POST", "/api/reviewarcade/sessions/"+sess.Code+"/join",
		map[string]string{"name": "Overflow"}, false, map[string]string{"code": sess.Code})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "full")
}

func TestJoinBadNameIs400(t *testing.T) {
	f := newHTTPFixture(t)
	sess := f.createSession(t)

	rr := f.do(t, f.handlers.Join, "POST", "/api/reviewarcade/sessions/"+sess.Code+"/join",
		map[string]string{"name": "A"}, false, map[string]string{"code": sess.Code})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPreviewSession(t *testing.T) {
	f := newHTTPFixture(t)
	sess := f.createSession(t)

	rr := f.do(t, f.handlers.PreviewSession, "GET", "/api/reviewarcade/sessions/"+sess.Code, nil, false,
		map[string]string{"code": sess.Code})
	require.Equal(t, http.StatusOK, rr.Code)

	var preview Preview
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &preview))
	assert.Equal(t, Preview{
		Code:        sess.Code,
		Status:      StatusLobby,
		GameType:    "runner",
		PlayerCount: 0,
		MaxPlayers:  30,
	}, preview)
}

func TestPreviewEndedSessionIs410DuringGrace(t *testing.T) {
	f := newHTTPFixture(t)
	sess := f.createSession(t)
	actor, ok := f.registry.Lookup(sess.Code)
	require.True(t, ok)

	_, err := actor.Join("Ada")
	require.NoError(t, err)
	actor.HostControl(nil, "start_session")
	actor.HostControl(nil, "end_session")

	// The actor lingers until the reap grace elapses but the code is spent.
	require.Eventually(t, func() bool {
		rr := f.do(t, f.handlers.PreviewSession, "GET", "/api/reviewarcade/sessions/"+sess.Code, nil, false,
			map[string]string{"code": sess.Code})
		return rr.Code == http.StatusGone
	}, 2*time.Second, 20*time.Millisecond)
}

func TestJoinTeacherRequiresOwnership(t *testing.T) {
	f := newHTTPFixture(t)
	sess := f.createSession(t)

	other := &auth.TeacherClaims{TeacherID: uuid.New(), DisplayName: "Intruder"}
	req := httptest.NewRequest("POST", "/api/reviewarcade/sessions/"+sess.Code+"/join-teacher", nil)
	req = req.WithContext(auth.WithClaims(req.Context(), other))
	req.SetPathValue("code", sess.Code)
	rr := httptest.NewRecorder()
	f.handlers.JoinTeacher(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.do(t, f.handlers.JoinTeacher, "POST", "/api/reviewarcade/sessions/"+sess.Code+"/join-teacher",
		nil, true, map[string]string{"code": sess.Code})
	require.Equal(t, http.StatusOK, rr.Code)

	var player JoinedPlayer
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &player))
	assert.True(t, player.IsTeacher)
	assert.Equal(t, "Ms. Lovelace", player.Name)
}

func TestResultsEndpoint(t *testing.T) {
	f := newHTTPFixture(t)
	sessionID := uuid.New()
	endedAt := time.Now()
	f.store.results[sessionID] = &results.SessionResults{
		Session: results.SessionRecord{
			ID:        sessionID,
			TeacherID: f.claims.TeacherID,
			Status:    StatusEnded,
			EndedAt:   &endedAt,
		},
		Players: []results.PlayerResult{{PlayerID: uuid.New(), DisplayName: "Ada", Rank: 1, TotalScore: 300}},
		Awards:  []results.AwardRecord{{Name: AwardTopScore, DisplayName: "Ada", Value: "300"}},
	}

	rr := f.do(t, f.handlers.Results, "GET", "/api/reviewarcade/sessions/"+sessionID.String()+"/results",
		nil, true, map[string]string{"id": sessionID.String()})
	require.Equal(t, http.StatusOK, rr.Code)

	var res results.SessionResults
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Len(t, res.Players, 1)
	assert.Len(t, res.Awards, 1)

	// Another teacher cannot read them.
	other := &auth.TeacherClaims{TeacherID: uuid.New(), DisplayName: "Intruder"}
	req := httptest.NewRequest("GET", "/api/reviewarcade/sessions/"+sessionID.String()+"/results", nil)
	req = req.WithContext(auth.WithClaims(req.Context(), other))
	req.SetPathValue("id", sessionID.String())
	rec := httptest.NewRecorder()
	f.handlers.Results(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Unknown session is a 404.
	rr = f.do(t, f.handlers.Results, "GET", "/api/reviewarcade/sessions/"+uuid.NewString()+"/results",
		nil, true, map[string]string{"id": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListSessions(t *testing.T) {
	f := newHTTPFixture(t)
	f.store.listResp = []results.SessionRecord{
		{ID: uuid.New(), Code: "AAAAAA"},
		{ID: uuid.New(), Code: "BBBBBB"},
	}

	rr := f.do(t, f.handlers.ListSessions, "GET", "/api/reviewarcade/sessions?limit=1", nil, true, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Sessions []results.SessionRecord `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp.Sessions, 1)

	rr = f.do(t, f.handlers.ListSessions, "GET", "/api/reviewarcade/sessions?limit=bogus", nil, true, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, f.handlers.ListSessions, "GET", "/api/reviewarcade/sessions", nil, false, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
