package models

import "time"

const (
	RoleUser = "user"
	RoleAI   = "ai"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LiveSession is the cached, in-progress interview for one candidate.
// Transcript is append-only.
type LiveSession struct {
	ResumeText     string    `json:"resumeText"`
	Transcript     []Message `json:"transcript"`
	SourceRecordID string    `json:"sourceRecordId"`
	InterviewID    string    `json:"interviewId"`
	StartedAt      time.Time `json:"startedAt"`
}

// Feedback is the structured end-of-interview assessment.
type Feedback struct {
	OverallAnalysis     string   `json:"overall_analysis"`
	NotableStrengths    []string `json:"notable_strengths"`
	AreasForImprovement []string `json:"areas_for_improvement"`
	OverallMark         int      `json:"overall_mark"`
	MarksCutdownPoints  []string `json:"marks_cutdown_points"`
	FinalTip            string   `json:"final_tip"`
}

// InterviewDetails is returned alongside the feedback when an interview closes.
type InterviewDetails struct {
	InterviewID    string    `json:"interviewId"`
	ResultID       string    `json:"resultId"`
	CandidateEmail string    `json:"candidateEmail"`
	VideoURL       string    `json:"videoUrl"`
	TurnCount      int       `json:"turnCount"`
	CompletedAt    time.Time `json:"completedAt"`
}
