package interviewer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview/internal/llm"
	"interview/internal/models"
	"interview/internal/prompts"
)

type recordingProvider struct {
	requests []*llm.GenerationRequest
	reply    string
	err      error
}

func (p *recordingProvider) GenerateContent(_ context.Context, req *llm.GenerationRequest) (*llm.GenerationResponse, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return &llm.GenerationResponse{Content: p.reply, Provider: "fake"}, nil
}

func (p *recordingProvider) GetProviderName() string { return "fake" }

func newService(t *testing.T, p llm.Provider) *Service {
	t.Helper()
	pm, err := prompts.NewPromptManager()
	require.NoError(t, err)
	return NewService(p, pm, nil)
}

var sampleConfig = &models.InterviewConfig{
	ID:              "i1",
	JobRole:         "Backend Engineer",
	RequiredSkills:  []string{"Go", "Postgres"},
	Questions:       []string{"Why this role?", "Describe a hard bug."},
	DurationMinutes: 25,
}

func TestBuildHistory_MapsRolesAndMerges(t *testing.T) {
	turns := BuildHistory([]models.Message{
		{Role: models.RoleUser, Content: "Hi"},
		{Role: models.RoleUser, Content: "Sorry, mic cut out"},
		{Role: models.RoleAI, Content: "No problem."},
		{Role: models.RoleUser, Content: "Ready"},
	})

	require.Len(t, turns, 3)
	assert.Equal(t, llm.Turn{Role: llm.RoleUser, Text: "Hi\nSorry, mic cut out"}, turns[0])
	assert.Equal(t, llm.RoleModel, turns[1].Role)
	assert.Equal(t, llm.RoleUser, turns[2].Role)
}

func TestBuildHistory_LeadingInterviewerTurn(t *testing.T) {
	turns := BuildHistory([]models.Message{{Role: models.RoleAI, Content: "Welcome!"}})
	require.Len(t, turns, 2)
	assert.Equal(t, llm.RoleUser, turns[0].Role)
	assert.Equal(t, openingLine, turns[0].Text)

	empty := BuildHistory(nil)
	require.Len(t, empty, 1)
	assert.Equal(t, llm.RoleUser, empty[0].Role)
}

func TestBuildHistory_DoesNotMutateInput(t *testing.T) {
	transcript := []models.Message{{Role: models.RoleUser, Content: "a"}, {Role: models.RoleUser, Content: "b"}}
	BuildHistory(transcript)
	assert.Equal(t, "a", transcript[0].Content)
}

func TestNextUtterance_ReplayIsIdempotent(t *testing.T) {
	p := &recordingProvider{reply: "Tell me more."}
	svc := newService(t, p)
	transcript := []models.Message{
		{Role: models.RoleUser, Content: "Hello"},
		{Role: models.RoleAI, Content: "Hi! Why this role?"},
		{Role: models.RoleUser, Content: "I like distributed systems."},
	}

	for i := 0; i < 2; i++ {
		got, err := svc.NextUtterance(context.Background(), transcript, "resume", sampleConfig)
		require.NoError(t, err)
		assert.Equal(t, "Tell me more.", got)
	}

	require.Len(t, p.requests, 2)
	first, err := json.Marshal(p.requests[0])
	require.NoError(t, err)
	second, err := json.Marshal(p.requests[1])
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
	assert.Contains(t, p.requests[0].SystemInstruction, "Backend Engineer")
	assert.Contains(t, p.requests[0].SystemInstruction, "2. Describe a hard bug.")
	assert.False(t, p.requests[0].JSONResponse)
}

func TestNextUtterance_PropagatesProviderError(t *testing.T) {
	p := &recordingProvider{err: &llm.ProviderError{Provider: "fake", Code: llm.ErrCodeTimeout}}
	svc := newService(t, p)

	_, err := svc.NextUtterance(context.Background(), []models.Message{{Role: models.RoleUser, Content: "x"}}, "", sampleConfig)
	var pe *llm.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, llm.ErrCodeTimeout, pe.Code)
}

func TestFinalFeedback_RequestsJSON(t *testing.T) {
	p := &recordingProvider{reply: `{"overall_mark": 80}`}
	svc := newService(t, p)

	raw, err := svc.FinalFeedback(context.Background(), "resume text", []models.Message{
		{Role: models.RoleUser, Content: "Hello"},
		{Role: models.RoleAI, Content: "Hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"overall_mark": 80}`, raw)

	req := p.requests[0]
	assert.True(t, req.JSONResponse)
	assert.True(t, strings.Contains(req.SystemInstruction, "Candidate: Hello\nInterviewer: Hi"))
	assert.Contains(t, req.SystemInstruction, "resume text")
}

func TestConfigVarsDefaults(t *testing.T) {
	vars := ConfigVars(&models.InterviewConfig{JobRole: "QA"}, "r")
	assert.Equal(t, "a professional interviewer", vars["Persona"])
	assert.Equal(t, "English", vars["Language"])
	assert.Equal(t, "0", vars["DurationMinutes"])
}
