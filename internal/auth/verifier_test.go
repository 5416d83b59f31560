package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview/internal/models"
)

const testSecret = "test-secret"

type mockLookup struct {
	GetByIDFn func(ctx context.Context, id string) (*models.Candidate, error)
}

func (m *mockLookup) GetByID(ctx context.Context, id string) (*models.Candidate, error) {
	return m.GetByIDFn(ctx, id)
}

func knownCandidates(ids ...string) *mockLookup {
	return &mockLookup{GetByIDFn: func(_ context.Context, id string) (*models.Candidate, error) {
		for _, known := range ids {
			if known == id {
				return &models.Candidate{ID: id, Email: id + "@example.com"}, nil
			}
		}
		return nil, errors.New("not found")
	}}
}

func signed(t *testing.T, id string, ttl time.Duration) string {
	t.Helper()
	tok, err := SignCandidateToken(id, id+"@token.example.com", testSecret, ttl)
	require.NoError(t, err)
	return tok
}

func TestParseCandidateToken_Success(t *testing.T) {
	claims, err := ParseCandidateToken(signed(t, "c1", time.Hour), testSecret)
	require.NoError(t, err)
	assert.Equal(t, "c1", claims.candidateID())
	assert.Equal(t, "c1@token.example.com", claims.Email)
}

func TestParseCandidateToken_WrongSecret(t *testing.T) {
	_, err := ParseCandidateToken(signed(t, "c1", time.Hour), "other")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseCandidateToken_Expired(t *testing.T) {
	_, err := ParseCandidateToken(signed(t, "c1", -time.Minute), testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseCandidateToken_RejectsNoneAlgorithm(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, CandidateClaims{CandidateID: "c1"})
	str, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseCandidateToken(str, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseCandidateToken_SubjectFallback(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "legacy", "exp": time.Now().Add(time.Hour).Unix()})
	str, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)

	claims, err := ParseCandidateToken(str, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "legacy", claims.candidateID())
}

func TestParseCandidateToken_MissingSubject(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	str, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ParseCandidateToken(str, testSecret)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestVerify_CookieTakesPrecedence(t *testing.T) {
	v := NewVerifier(testSecret, "", knownCandidates("cookie-user", "query-user"), nil)
	r := httptest.NewRequest(http.MethodGet, "/ws/interview?token="+signed(t, "query-user", time.Hour), nil)
	r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: signed(t, "cookie-user", time.Hour)})

	id := v.Verify(r)
	require.NotNil(t, id)
	assert.Equal(t, "cookie-user", id.ID)
	assert.Equal(t, "cookie-user@example.com", id.Email)
}

func TestVerify_HandshakeFallbacks(t *testing.T) {
	v := NewVerifier(testSecret, "", knownCandidates("c1"), nil)

	r := httptest.NewRequest(http.MethodGet, "/ws/interview?usertoken="+signed(t, "c1", time.Hour), nil)
	require.NotNil(t, v.Verify(r))

	r = httptest.NewRequest(http.MethodGet, "/ws/interview", nil)
	r.Header.Set("Authorization", "Bearer "+signed(t, "c1", time.Hour))
	require.NotNil(t, v.Verify(r))
}

func TestVerify_DegradesToUnauthenticated(t *testing.T) {
	v := NewVerifier(testSecret, "", knownCandidates("c1"), nil)

	cases := map[string]*http.Request{
		"no token":  httptest.NewRequest(http.MethodGet, "/ws/interview", nil),
		"malformed": httptest.NewRequest(http.MethodGet, "/ws/interview?token=not.a.jwt", nil),
		"expired":   httptest.NewRequest(http.MethodGet, "/ws/interview?token="+signed(t, "c1", -time.Minute), nil),
		"deleted":   httptest.NewRequest(http.MethodGet, "/ws/interview?token="+signed(t, "gone", time.Hour), nil),
	}
	for name, r := range cases {
		assert.Nil(t, v.Verify(r), name)
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromHeader("Bearer abc"))
	assert.Equal(t, "abc", ExtractTokenFromHeader("bearer abc"))
	assert.Equal(t, "", ExtractTokenFromHeader("Basic abc"))
	assert.Equal(t, "", ExtractTokenFromHeader("Bearer "))
}
