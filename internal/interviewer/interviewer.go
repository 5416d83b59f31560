// Package interviewer turns a transcript into provider calls for the next
// interviewer utterance and for the closing assessment.
package interviewer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"interview/internal/llm"
	"interview/internal/models"
	"interview/internal/prompts"
	"interview/internal/utils"
)

// openingLine stands in for the candidate when a transcript starts with the interviewer,
// since providers require the first turn to come from the user.
const openingLine = "Hello, I am ready to begin the interview."

const feedbackRequest = "The interview has ended. Produce the assessment JSON now."

type Service struct {
	provider llm.Provider
	prompts  *prompts.PromptManager
	log      *zap.Logger
}

func NewService(provider llm.Provider, pm *prompts.PromptManager, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{provider: provider, prompts: pm, log: log}
}

// BuildHistory replays the full transcript as alternating provider turns.
// The output depends only on the transcript, so repeated calls are byte-identical.
func BuildHistory(transcript []models.Message) []llm.Turn {
	turns := make([]llm.Turn, 0, len(transcript)+1)
	for _, m := range transcript {
		role := llm.RoleUser
		if m.Role == models.RoleAI {
			role = llm.RoleModel
		}
		if n := len(turns); n > 0 && turns[n-1].Role == role {
			turns[n-1].Text += "\n" + m.Content
			continue
		}
		turns = append(turns, llm.Turn{Role: role, Text: m.Content})
	}
	if len(turns) == 0 || turns[0].Role != llm.RoleUser {
		turns = append([]llm.Turn{{Role: llm.RoleUser, Text: openingLine}}, turns...)
	}
	return turns
}

// ConfigVars exposes an interview config as prompt placeholders.
func ConfigVars(cfg *models.InterviewConfig, resume string) map[string]string {
	persona := strings.TrimSpace(cfg.Persona)
	if persona == "" {
		persona = "a professional interviewer"
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = "English"
	}
	var questions strings.Builder
	for i, q := range cfg.Questions {
		fmt.Fprintf(&questions, "%d. %s\n", i+1, q)
	}
	return map[string]string{
		"Persona":           persona,
		"JobRole":           cfg.JobRole,
		"Language":          language,
		"DurationMinutes":   strconv.Itoa(cfg.DurationMinutes),
		"JobDescription":    cfg.JobDescription,
		"RequiredSkills":    strings.Join(cfg.RequiredSkills, ", "),
		"MinQualifications": cfg.MinQualifications,
		"Questions":         strings.TrimSpace(questions.String()),
		"Resume":            resume,
	}
}

// NextUtterance asks the provider for the interviewer's next turn.
func (s *Service) NextUtterance(ctx context.Context, transcript []models.Message, resume string, cfg *models.InterviewConfig) (string, error) {
	system, err := s.prompts.BuildPrompt(prompts.Interviewer, ConfigVars(cfg, resume))
	if err != nil {
		return "", err
	}
	resp, err := s.provider.GenerateContent(ctx, &llm.GenerationRequest{
		SystemInstruction: system,
		Turns:             BuildHistory(transcript),
	})
	if err != nil {
		return "", err
	}
	s.log.Debug("interviewer turn generated",
		zap.String("provider", resp.Provider),
		zap.Int64("latency_ms", resp.LatencyMs),
		zap.String("reply", utils.TruncateForLog(resp.Content, 200)))
	return resp.Content, nil
}

// FinalFeedback returns the provider's raw assessment text. Parsing is left to the caller.
func (s *Service) FinalFeedback(ctx context.Context, resume string, transcript []models.Message) (string, error) {
	system, err := s.prompts.BuildPrompt(prompts.Feedback, map[string]string{
		"Resume":     resume,
		"Transcript": RenderTranscript(transcript),
	})
	if err != nil {
		return "", err
	}
	resp, err := s.provider.GenerateContent(ctx, &llm.GenerationRequest{
		SystemInstruction: system,
		Turns:             []llm.Turn{{Role: llm.RoleUser, Text: feedbackRequest}},
		JSONResponse:      true,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// RenderTranscript formats a transcript as speaker-labelled lines.
func RenderTranscript(transcript []models.Message) string {
	var b strings.Builder
	for _, m := range transcript {
		speaker := "Candidate"
		if m.Role == models.RoleAI {
			speaker = "Interviewer"
		}
		b.WriteString(speaker)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
