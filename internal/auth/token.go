package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// CandidateClaims is the payload of a candidate session token.
// Older tokens carry only "sub", so CandidateID falls back to Subject.
type CandidateClaims struct {
	CandidateID string `json:"candidateId,omitempty"`
	Email       string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func (c *CandidateClaims) candidateID() string {
	if c.CandidateID != "" {
		return c.CandidateID
	}
	return c.Subject
}

var parseJWT = func(tokenStr string, claims jwt.Claims, keyFunc jwt.Keyfunc) (*jwt.Token, error) {
	return jwt.ParseWithClaims(tokenStr, claims, keyFunc)
}

// ParseCandidateToken validates an HMAC-signed token and returns its claims.
func ParseCandidateToken(tokenStr, secret string) (*CandidateClaims, error) {
	claims := &CandidateClaims{}
	token, err := parseJWT(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.candidateID() == "" {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// SignCandidateToken issues an HS256 token for a candidate. Used by tooling and tests.
func SignCandidateToken(candidateID, email, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := CandidateClaims{
		CandidateID: candidateID,
		Email:       email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   candidateID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
