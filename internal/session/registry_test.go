package session

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewarcade/platform/internal/question"
)

func mathParams() CreateParams {
	return CreateParams{
		TeacherID:   uuid.New(),
		TeacherName: "Ms. Lovelace",
		TeacherMode: TeacherModeMonitor,
		GameType:    "snake",
		Config: Config{
			TimeLimitSeconds: 600,
			MaxPlayers:       30,
			QuestionSource:   question.SourceMath,
			MathConfig:       &question.MathConfig{Operations: []string{question.OpAdd}, MinOperand: 1, MaxOperand: 10},
		},
	}
}

func testRegistry(maxSessions int) *Registry {
	return NewRegistry(maxSessions, nil, nil, Options{}, zerolog.New(io.Discard))
}

func TestRegistryCreateAndLookup(t *testing.T) {
	r := testRegistry(10)

	actor, err := r.Create(context.Background(), mathParams())
	require.NoError(t, err)
	t.Cleanup(func() { r.CloseAll() })

	code := actor.Code()
	assert.Len(t, code, 6)
	for _, c := range code {
		assert.Contains(t, codeAlphabet, string(c), "code %q uses a lookalike character", code)
	}
	assert.NotContains(t, code, "I")
	assert.NotContains(t, code, "O")
	assert.NotContains(t, code, "0")
	assert.NotContains(t, code, "1")

	found, ok := r.Lookup(code)
	require.True(t, ok)
	assert.Same(t, actor, found)
	assert.Equal(t, 1, r.Count())

	_, ok = r.Lookup("ZZZZZZ")
	assert.False(t, ok)
}

func TestRegistryGeneratesDistinctCodes(t *testing.T) {
	r := testRegistry(50)
	t.Cleanup(func() { r.CloseAll() })

	codes := map[string]bool{}
	for i := 0; i < 20; i++ {
		actor, err := r.Create(context.Background(), mathParams())
		require.NoError(t, err)
		assert.False(t, codes[actor.Code()], "duplicate code %s", actor.Code())
		codes[actor.Code()] = true
	}
}

func TestRegistryEnforcesCapacity(t *testing.T) {
	r := testRegistry(1)
	t.Cleanup(func() { r.CloseAll() })

	_, err := r.Create(context.Background(), mathParams())
	require.NoError(t, err)

	_, err = r.Create(context.Background(), mathParams())
	assert.ErrorIs(t, err, ErrCapacity)
}

func TestRegistryRejectsInvalidConfig(t *testing.T) {
	r := testRegistry(10)

	params := mathParams()
	params.Config.TimeLimitSeconds = 60 // below the floor
	_, err := r.Create(context.Background(), params)
	assert.Error(t, err)

	params = mathParams()
	params.Config.MaxPlayers = 2
	_, err = r.Create(context.Background(), params)
	assert.Error(t, err)

	params = mathParams()
	params.Config.QuestionSource = question.SourceBank
	params.Config.MathConfig = nil
	_, err = r.Create(context.Background(), params)
	assert.Error(t, err, "bank source without bank ids")
	assert.Equal(t, 0, r.Count())
}

func TestRegistryRemoveStopsActor(t *testing.T) {
	r := testRegistry(10)

	actor, err := r.Create(context.Background(), mathParams())
	require.NoError(t, err)
	code := actor.Code()

	// The actor goroutine is live: a join round-trips through its inbox.
	player, err := actor.Join("Ada")
	require.NoError(t, err)
	assert.Equal(t, code, player.SessionCode)

	r.Remove(code)
	_, ok := r.Lookup(code)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Count())

	_, err = actor.Join("Grace")
	assert.ErrorIs(t, err, ErrSessionEnded, "stopped actors refuse joins")
}

func TestRegistryCloseAll(t *testing.T) {
	r := testRegistry(10)

	var actors []*Actor
	for i := 0; i < 3; i++ {
		actor, err := r.Create(context.Background(), mathParams())
		require.NoError(t, err)
		actors = append(actors, actor)
	}

	r.CloseAll()
	assert.Equal(t, 0, r.Count())
	for _, actor := range actors {
		_, err := actor.Join("Ada")
		assert.ErrorIs(t, err, ErrSessionEnded)
	}
}
