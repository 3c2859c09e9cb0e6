package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mintTeacherToken(t *testing.T, secret []byte, issuer string, teacherID uuid.UUID, ttl time.Duration) string {
	t.Helper()
	claims := TeacherClaims{
		TeacherID:   teacherID,
		DisplayName: "Ms. Lovelace",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   teacherID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func TestVerifyAcceptsValidToken(t *testing.T) {
	secret := []byte("super-secret")
	teacherID := uuid.New()
	v := NewVerifier(VerifierConfig{Secret: secret, Issuer: "idp"})

	claims, err := v.Verify(mintTeacherToken(t, secret, "idp", teacherID, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, teacherID, claims.TeacherID)
	assert.Equal(t, "Ms. Lovelace", claims.DisplayName)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v := NewVerifier(VerifierConfig{Secret: []byte("right"), Issuer: "idp"})

	_, err := v.Verify(mintTeacherToken(t, []byte("wrong"), "idp", uuid.New(), time.Hour))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	secret := []byte("super-secret")
	v := NewVerifier(VerifierConfig{Secret: secret, Issuer: "idp"})

	_, err := v.Verify(mintTeacherToken(t, secret, "impostor", uuid.New(), time.Hour))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	secret := []byte("super-secret")
	v := NewVerifier(VerifierConfig{Secret: secret, Issuer: "idp"})

	_, err := v.Verify(mintTeacherToken(t, secret, "idp", uuid.New(), -time.Minute))
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsMissingTeacherID(t *testing.T) {
	secret := []byte("super-secret")
	v := NewVerifier(VerifierConfig{Secret: secret, Issuer: "idp"})

	_, err := v.Verify(mintTeacherToken(t, secret, "idp", uuid.Nil, time.Hour))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	v := NewVerifier(VerifierConfig{Secret: []byte("s"), Issuer: "idp"})
	_, err := v.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMintPlayerToken(t *testing.T) {
	a, err := MintPlayerToken()
	require.NoError(t, err)
	b, err := MintPlayerToken()
	require.NoError(t, err)

	assert.Len(t, a, 32, "128 bits hex-encoded")
	assert.NotEqual(t, a, b)
	assert.True(t, PlayerTokenEqual(a, a))
	assert.False(t, PlayerTokenEqual(a, b))
	assert.False(t, PlayerTokenEqual(a, a[:16]))
}
