package models

import (
	"strings"
	"unicode/utf8"
)

// Inbound events.
const (
	EventUserMessage  = "user-message"
	EventEndInterview = "end-interview"
)

// Outbound events.
const (
	EventAIResponse      = "ai-response"
	EventFinalFeedback   = "final-feedback"
	EventError           = "error"
	EventInterviewStatus = "interview-status"
)

type WSFrame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type UserMessagePayload struct {
	SessionID      string `json:"sessionId"`
	MessageContent string `json:"messageContent"`
}

type EndInterviewPayload struct {
	SessionID string `json:"sessionId"`
	VideoURL  string `json:"videoUrl"`
}

type AIResponsePayload struct {
	Response string `json:"response"`
}

type FinalFeedbackPayload struct {
	Feedback         Feedback         `json:"feedback"`
	InterviewDetails InterviewDetails `json:"interviewDetails"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorPayload) Error() string { return e.Code + ": " + e.Message }

type InterviewStatusPayload struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
}

// MaxResumeRunes bounds the resume text carried in every prompt.
const MaxResumeRunes = 20000

type StartInterviewRequest struct {
	ResumeText string `json:"resumeText"`
}

// implements the Validator interface
func (r *StartInterviewRequest) Validate() error {
	r.ResumeText = strings.TrimSpace(r.ResumeText)
	if utf8.RuneCountInString(r.ResumeText) > MaxResumeRunes {
		return &ErrorPayload{
			Code:    "resume_too_long",
			Message: "Resume text must be at most 20000 characters",
		}
	}
	return nil
}

type StartInterviewResponse struct {
	SessionID string `json:"sessionId"`
	ResultID  string `json:"resultId"`
}

type Resp struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// CompletedEvent is published on the completion channel after a successful finalize.
type CompletedEvent struct {
	CandidateID string `json:"candidateId"`
	InterviewID string `json:"interviewId"`
	ResultID    string `json:"resultId"`
	OverallMark int    `json:"overallMark"`
}
