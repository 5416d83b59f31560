package models

import (
	"time"
)

// Candidate is a registered interviewee. Attempts counts finalized interviews.
type Candidate struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Name      string    `json:"name"`
	Attempts  int       `gorm:"default:0" json:"attempts"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// InterviewConfig describes one job posting's interview. Immutable once created.
type InterviewConfig struct {
	ID                string    `gorm:"primaryKey" json:"id"`
	JobRole           string    `gorm:"not null" json:"jobRole"`
	RequiredSkills    []string  `gorm:"serializer:json" json:"requiredSkills"`
	MinQualifications string    `gorm:"type:text" json:"minQualifications"`
	JobDescription    string    `gorm:"type:text" json:"jobDescription"`
	Persona           string    `json:"persona"`
	Language          string    `gorm:"default:English" json:"language"`
	Questions         []string  `gorm:"serializer:json" json:"questions"`
	DurationMinutes   int       `gorm:"default:20" json:"durationMinutes"`
	CreatedAt         time.Time `json:"createdAt"`
}

// InterviewResult is one candidate attempt. Created pending at start, completed once at finalize.
type InterviewResult struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	InterviewID string     `gorm:"not null;index" json:"interviewId"`
	CandidateID string     `gorm:"not null;index" json:"candidateId"`
	ResumeText  string     `gorm:"type:text" json:"resumeText"`
	Transcript  []Message  `gorm:"serializer:json" json:"transcript"`
	Feedback    *Feedback  `gorm:"serializer:json" json:"feedback,omitempty"`
	VideoURL    string     `json:"videoUrl"`
	Completed   bool       `gorm:"default:false;index" json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CompletionEntry is the per-interview completion ledger.
// The composite unique index makes a retried append a no-op.
type CompletionEntry struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	InterviewID    string    `gorm:"not null;uniqueIndex:idx_completion_interview_result" json:"interviewId"`
	ResultID       string    `gorm:"not null;uniqueIndex:idx_completion_interview_result" json:"resultId"`
	CandidateEmail string    `gorm:"not null" json:"candidateEmail"`
	CreatedAt      time.Time `json:"createdAt"`
}

// AllModels lists the tables owned by this service, in migration order.
func AllModels() []interface{} {
	return []interface{}{&Candidate{}, &InterviewConfig{}, &InterviewResult{}, &CompletionEntry{}}
}
