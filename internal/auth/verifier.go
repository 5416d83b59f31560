package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"interview/internal/models"
)

const DefaultCookieName = "token"

// CandidateIdentity is resolved once per connection and never changes afterwards.
type CandidateIdentity struct {
	ID    string
	Email string
}

// CandidateLookup resolves a token subject to a stored candidate.
type CandidateLookup interface {
	GetByID(ctx context.Context, id string) (*models.Candidate, error)
}

type Verifier struct {
	secret     string
	cookieName string
	candidates CandidateLookup
	log        *zap.Logger
}

func NewVerifier(secret, cookieName string, candidates CandidateLookup, log *zap.Logger) *Verifier {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{secret: secret, cookieName: cookieName, candidates: candidates, log: log}
}

// Verify returns the caller's identity, or nil when the handshake is unauthenticated.
// Missing, invalid and orphaned tokens all yield nil rather than an error so the
// connection can still be accepted and reject protected events individually.
func (v *Verifier) Verify(r *http.Request) *CandidateIdentity {
	tokenStr := ExtractToken(r, v.cookieName)
	if tokenStr == "" {
		return nil
	}

	claims, err := ParseCandidateToken(tokenStr, v.secret)
	if err != nil {
		v.log.Debug("rejecting candidate token", zap.Error(err))
		return nil
	}

	id := claims.candidateID()
	if v.candidates == nil {
		return &CandidateIdentity{ID: id, Email: claims.Email}
	}

	candidate, err := v.candidates.GetByID(r.Context(), id)
	if err != nil {
		v.log.Info("token subject did not resolve to a candidate", zap.String("candidate_id", id), zap.Error(err))
		return nil
	}
	email := candidate.Email
	if email == "" {
		email = claims.Email
	}
	return &CandidateIdentity{ID: candidate.ID, Email: email}
}

// ExtractToken looks in the cookie first, then the handshake query, then the Authorization header.
func ExtractToken(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value)
	}
	q := r.URL.Query()
	for _, key := range []string{"token", "usertoken"} {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			return v
		}
	}
	return ExtractTokenFromHeader(r.Header.Get("Authorization"))
}

// ExtractTokenFromHeader extracts token from "Bearer <token>" format
func ExtractTokenFromHeader(authHeader string) string {
	const prefix = "Bearer "
	if len(authHeader) > len(prefix) && strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return strings.TrimSpace(authHeader[len(prefix):])
	}
	return ""
}
