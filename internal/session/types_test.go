package session

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewarcade/platform/internal/question"
)

func TestNormalizeDisplayName(t *testing.T) {
	name, err := NormalizeDisplayName("  Ada Lovelace  ")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", name)

	// NFC: decomposed e + combining acute collapses to one code point.
	name, err = NormalizeDisplayName("Ame\u0301lie")
	require.NoError(t, err)
	assert.Equal(t, "Am\u00e9lie", name)

	// Length is counted after normalization and trimming.
	_, err = NormalizeDisplayName(" A ")
	assert.ErrorIs(t, err, ErrBadName)
	_, err = NormalizeDisplayName(strings.Repeat("x", 51))
	assert.ErrorIs(t, err, ErrBadName)
	name, err = NormalizeDisplayName(strings.Repeat("x", 50))
	require.NoError(t, err)
	assert.Len(t, name, 50)

	_, err = NormalizeDisplayName("tab\tname")
	assert.ErrorIs(t, err, ErrBadName)
	_, err = NormalizeDisplayName("new\nline")
	assert.ErrorIs(t, err, ErrBadName)

	name, err = NormalizeDisplayName("日本語の名前")
	require.NoError(t, err)
	assert.Equal(t, "日本語の名前", name)
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		TimeLimitSeconds: 600,
		MaxPlayers:       30,
		QuestionSource:   question.SourceMath,
		MathConfig:       &question.MathConfig{Operations: []string{question.OpAdd}, MinOperand: 1, MaxOperand: 10},
	}
	assert.NoError(t, valid.Validate())

	c := valid
	c.TimeLimitSeconds = 299
	assert.Error(t, c.Validate())
	c.TimeLimitSeconds = 3601
	assert.Error(t, c.Validate())

	c = valid
	c.MaxPlayers = 4
	assert.Error(t, c.Validate())
	c.MaxPlayers = 101
	assert.Error(t, c.Validate())

	c = valid
	c.MathConfig = nil
	assert.Error(t, c.Validate())

	c = valid
	c.QuestionSource = question.SourceBank
	c.MathConfig = nil
	assert.Error(t, c.Validate(), "bank source needs bank ids")
	c.BankIDs = []uuid.UUID{uuid.New()}
	assert.NoError(t, c.Validate())

	c = valid
	c.QuestionSource = "oracle"
	assert.Error(t, c.Validate())
}
