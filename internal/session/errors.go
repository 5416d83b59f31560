package session

import (
	"errors"

	"interview/internal/models"
)

// Error is the client-facing failure taxonomy. Message is safe to show to candidates.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

func (e *Error) Frame() models.WSFrame {
	return models.WSFrame{Type: models.EventError, Data: models.ErrorPayload{Code: e.Code, Message: e.Message}}
}

var (
	ErrNotAuthenticated        = &Error{"not_authenticated", "Candidate not authenticated. Please log in again."}
	ErrInvalidPayload          = &Error{"invalid_payload", "Event payload could not be read."}
	ErrUnknownEvent            = &Error{"unknown_event", "Unknown event type."}
	ErrMissingSessionID        = &Error{"missing_session_id", "Session ID is required."}
	ErrEmptyMessage            = &Error{"empty_message", "Message content cannot be empty."}
	ErrMissingVideoURL         = &Error{"missing_video_url", "Video URL is required to end the interview."}
	ErrEmptyTranscript         = &Error{"empty_transcript", "Cannot end an interview with no conversation."}
	ErrInterviewNotFound       = &Error{"interview_not_found", "Interview not found. Please start the interview again."}
	ErrInterviewInProgress     = &Error{"interview_in_progress", "Another interview is already in progress."}
	ErrInterviewFinalizing     = &Error{"interview_finalizing", "The interview is being finalized."}
	ErrInterviewClosed         = &Error{"interview_closed", "The interview has already ended."}
	ErrInterviewConfigNotFound = &Error{"interview_config_not_found", "Interview configuration not found."}
	ErrResultNotFound          = &Error{"result_not_found", "Interview record not found."}
	ErrAlreadyFinalized        = &Error{"already_finalized", "This interview has already been submitted."}
	ErrAIUnavailable           = &Error{"ai_unavailable", "The AI interviewer is unavailable right now. Please try again."}
	ErrAIFailed                = &Error{"ai_error", "Failed to get a response from the AI interviewer."}
	ErrStoreUnavailable        = &Error{"store_unavailable", "Interview data is temporarily unavailable. Please try again."}
	ErrFinalizeFailed          = &Error{"finalize_failed", "Failed to save the interview. Please try ending it again."}
	ErrShuttingDown            = &Error{"shutting_down", "The server is restarting. Please try again shortly."}
	ErrInternal                = &Error{"internal_error", "Something went wrong."}
)

// asError maps any error to the client taxonomy, hiding internal detail.
func asError(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return ErrInternal
}
