package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TeacherClaims carried by bearer tokens minted by the identity provider.
type TeacherClaims struct {
	TeacherID   uuid.UUID `json:"teacher_id"`
	DisplayName string    `json:"display_name"`
	jwt.RegisteredClaims
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// VerifierConfig holds bearer token verification settings.
type VerifierConfig struct {
	Secret []byte
	Issuer string
}

// Verifier validates teacher bearer tokens against the identity provider's
// signing secret. The server never mints teacher tokens itself.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a bearer token verifier.
func NewVerifier(cfg VerifierConfig) *Verifier {
	return &Verifier{
		secret: cfg.Secret,
		issuer: cfg.Issuer,
	}
}

// Verify parses and validates a teacher bearer token.
func (v *Verifier) Verify(tokenString string) (*TeacherClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TeacherClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TeacherClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TeacherID == uuid.Nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
