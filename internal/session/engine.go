package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"interview/internal/auth"
	"interview/internal/cache"
	"interview/internal/llm"
	"interview/internal/metrics"
	"interview/internal/models"
	"interview/internal/repositories"
)

const (
	DefaultAITimeout         = 30 * time.Second
	DefaultCompletionChannel = "interview.completed"
)

type ConfigStore interface {
	GetConfig(ctx context.Context, id string) (*models.InterviewConfig, error)
}

type ResultStore interface {
	CreatePending(ctx context.Context, interviewID, candidateID, resumeText string) (*models.InterviewResult, error)
	GetByID(ctx context.Context, id string) (*models.InterviewResult, error)
	Finalize(ctx context.Context, in repositories.FinalizeInput) (*models.InterviewResult, error)
}

type Interviewer interface {
	NextUtterance(ctx context.Context, transcript []models.Message, resume string, cfg *models.InterviewConfig) (string, error)
}

type FeedbackGenerator interface {
	Generate(ctx context.Context, resume string, transcript []models.Message) (models.Feedback, bool)
}

type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type Deps struct {
	Cache       cache.Store
	Configs     ConfigStore
	Results     ResultStore
	Interviewer Interviewer
	Feedback    FeedbackGenerator
	// Publisher is optional. When set, completed interviews are announced on CompletionChannel.
	Publisher Publisher
	Hub       *Hub
	Log       *zap.Logger
}

type Options struct {
	AITimeout         time.Duration
	CompletionChannel string
}

// Engine drives every candidate's interview through NO_SESSION, ACTIVE,
// FINALIZING and CLOSED. All work for one candidate runs on that candidate's
// turn queue, so cache read-modify-write sequences never interleave.
type Engine struct {
	cache       cache.Store
	configs     ConfigStore
	results     ResultStore
	interviewer Interviewer
	feedback    FeedbackGenerator
	publisher   Publisher
	hub         *Hub
	queue       *TurnQueue
	life        *lifecycle
	configLoads singleflight.Group
	opts        Options
	log         *zap.Logger
	now         func() time.Time
}

func NewEngine(d Deps, opts Options) *Engine {
	if opts.AITimeout <= 0 {
		opts.AITimeout = DefaultAITimeout
	}
	if opts.CompletionChannel == "" {
		opts.CompletionChannel = DefaultCompletionChannel
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	hub := d.Hub
	if hub == nil {
		hub = NewHub()
	}
	return &Engine{
		cache:       d.Cache,
		configs:     d.Configs,
		results:     d.Results,
		interviewer: d.Interviewer,
		feedback:    d.Feedback,
		publisher:   d.Publisher,
		hub:         hub,
		queue:       NewTurnQueue(log),
		life:        newLifecycle(),
		opts:        opts,
		log:         log,
		now:         time.Now,
	}
}

func (e *Engine) Hub() *Hub { return e.hub }

// Dispatch validates an inbound frame and schedules it on the caller's turn
// queue. Replies go to the originating client only. The returned channel is
// closed once the event has been fully handled, including rejected events.
func (e *Engine) Dispatch(cc *ConnContext, frame models.WSFrame) <-chan struct{} {
	switch frame.Type {
	case models.EventUserMessage:
		if !cc.Authenticated() {
			return e.reject(cc, frame.Type, ErrNotAuthenticated)
		}
		var p models.UserMessagePayload
		if err := decode(frame.Data, &p); err != nil {
			return e.reject(cc, frame.Type, ErrInvalidPayload)
		}
		p.SessionID = strings.TrimSpace(p.SessionID)
		p.MessageContent = strings.TrimSpace(p.MessageContent)
		if p.SessionID == "" {
			return e.reject(cc, frame.Type, ErrMissingSessionID)
		}
		if p.MessageContent == "" {
			return e.reject(cc, frame.Type, ErrEmptyMessage)
		}
		if e.life.isFinalizing(cc.CandidateID()) {
			return e.reject(cc, frame.Type, ErrInterviewFinalizing)
		}
		return e.enqueue(cc, frame.Type, nil, func(ctx context.Context) error {
			return e.userMessage(ctx, cc, p)
		})

	case models.EventEndInterview:
		if !cc.Authenticated() {
			return e.reject(cc, frame.Type, ErrNotAuthenticated)
		}
		var p models.EndInterviewPayload
		if err := decode(frame.Data, &p); err != nil {
			return e.reject(cc, frame.Type, ErrInvalidPayload)
		}
		p.SessionID = strings.TrimSpace(p.SessionID)
		p.VideoURL = strings.TrimSpace(p.VideoURL)
		if p.SessionID == "" {
			return e.reject(cc, frame.Type, ErrMissingSessionID)
		}
		if p.VideoURL == "" {
			return e.reject(cc, frame.Type, ErrMissingVideoURL)
		}
		id := cc.CandidateID()
		if !e.life.beginFinalize(id) {
			return e.reject(cc, frame.Type, ErrInterviewFinalizing)
		}
		release := func() { e.life.endFinalize(id) }
		return e.enqueue(cc, frame.Type, release, func(ctx context.Context) error {
			defer release()
			return e.endInterview(ctx, cc, p)
		})

	default:
		return e.reject(cc, frame.Type, ErrUnknownEvent)
	}
}

// enqueue runs job on the candidate's queue. onRefused undoes dispatch-time
// bookkeeping when the queue no longer accepts work.
func (e *Engine) enqueue(cc *ConnContext, event string, onRefused func(), job func(context.Context) error) <-chan struct{} {
	done, err := e.queue.Enqueue(cc.CandidateID(), func() {
		var jobErr error
		defer func() {
			if r := recover(); r != nil {
				e.log.Error("event handler panicked",
					zap.String("event", event),
					zap.String("candidate_id", cc.CandidateID()),
					zap.String("panic", fmt.Sprint(r)))
				jobErr = ErrInternal
			}
			if jobErr != nil {
				e.fail(cc, event, jobErr)
			}
		}()
		// Jobs outlive the connection that sent them, so they never inherit its lifetime.
		jobErr = job(context.Background())
	})
	if err != nil {
		if onRefused != nil {
			onRefused()
		}
		return e.reject(cc, event, ErrShuttingDown)
	}
	return done
}

func (e *Engine) reject(cc *ConnContext, event string, err *Error) <-chan struct{} {
	e.fail(cc, event, err)
	done := make(chan struct{})
	close(done)
	return done
}

func (e *Engine) fail(cc *ConnContext, event string, err error) {
	se := asError(err)
	if se == ErrInternal {
		e.log.Error("unclassified event failure", zap.String("event", event), zap.Error(err))
	}
	switch event {
	case models.EventUserMessage:
		metrics.RecordTurn(se.Code)
	case models.EventEndInterview:
		metrics.RecordFinalize(se.Code)
	}
	if c := cc.Client(); c != nil {
		c.Send(se.Frame())
	}
}

func (e *Engine) userMessage(ctx context.Context, cc *ConnContext, p models.UserMessagePayload) error {
	id := cc.CandidateID()
	log := e.log.With(zap.String("candidate_id", id), zap.String("session_id", p.SessionID))

	live, err := e.loadLive(ctx, id)
	if err != nil {
		return err
	}
	if live.InterviewID != "" && live.InterviewID != p.SessionID {
		return ErrInterviewNotFound
	}
	cfg, err := e.loadConfig(ctx, p.SessionID, id, live.InterviewID)
	if err != nil {
		return err
	}

	transcript := make([]models.Message, len(live.Transcript), len(live.Transcript)+2)
	copy(transcript, live.Transcript)
	transcript = append(transcript, models.Message{Role: models.RoleUser, Content: p.MessageContent})

	aiCtx, cancel := context.WithTimeout(ctx, e.opts.AITimeout)
	start := time.Now()
	reply, err := e.interviewer.NextUtterance(aiCtx, transcript, live.ResumeText, cfg)
	timedOut := errors.Is(aiCtx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil {
		if timedOut || llm.IsUnavailable(err) {
			metrics.ObserveAICall("turn", "unavailable", time.Since(start))
			log.Warn("interviewer unavailable", zap.Bool("timed_out", timedOut), zap.Error(err))
			return ErrAIUnavailable
		}
		metrics.ObserveAICall("turn", "error", time.Since(start))
		log.Error("interviewer call failed", zap.Error(err))
		return ErrAIFailed
	}
	metrics.ObserveAICall("turn", "ok", time.Since(start))

	// both halves of the turn land in one write; a failed turn leaves the cache untouched
	live.Transcript = append(transcript, models.Message{Role: models.RoleAI, Content: reply})
	if err := e.saveLive(ctx, id, live); err != nil {
		return err
	}

	metrics.RecordTurn("ok")
	cc.Client().Send(models.WSFrame{Type: models.EventAIResponse, Data: models.AIResponsePayload{Response: reply}})
	return nil
}

func (e *Engine) endInterview(ctx context.Context, cc *ConnContext, p models.EndInterviewPayload) error {
	identity, _ := cc.Identity()
	id := identity.ID
	log := e.log.With(zap.String("candidate_id", id), zap.String("session_id", p.SessionID))

	live, err := e.loadLive(ctx, id)
	if err != nil {
		return err
	}
	if live.InterviewID != "" && live.InterviewID != p.SessionID {
		return ErrInterviewNotFound
	}
	if len(live.Transcript) == 0 {
		return ErrEmptyTranscript
	}
	if live.SourceRecordID == "" {
		return ErrResultNotFound
	}

	fbCtx, cancel := context.WithTimeout(ctx, e.opts.AITimeout)
	start := time.Now()
	fb, fellBack := e.feedback.Generate(fbCtx, live.ResumeText, live.Transcript)
	cancel()
	outcome := "ok"
	if fellBack {
		outcome = "fallback"
		metrics.RecordFeedbackFallback()
	}
	metrics.ObserveAICall("feedback", outcome, time.Since(start))

	completedAt := e.now().UTC()
	result, err := e.results.Finalize(ctx, repositories.FinalizeInput{
		ResultID:       live.SourceRecordID,
		CandidateEmail: identity.Email,
		Transcript:     live.Transcript,
		Feedback:       fb,
		VideoURL:       p.VideoURL,
		CompletedAt:    completedAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrAlreadyFinalized):
			// the durable record is closed already, so the cached session is stale
			log.Warn("finalize requested for a completed result", zap.String("result_id", live.SourceRecordID))
			e.clearLive(ctx, id, p.SessionID)
			e.life.markClosed(id, completedAt)
			return ErrAlreadyFinalized
		case errors.Is(err, repositories.ErrResultNotFound):
			return ErrResultNotFound
		default:
			log.Error("finalize failed, keeping live session for retry", zap.Error(err))
			return ErrFinalizeFailed
		}
	}

	e.clearLive(ctx, id, p.SessionID)
	e.life.markClosed(id, completedAt)
	metrics.RecordFinalize("ok")
	log.Info("interview finalized",
		zap.String("result_id", result.ID),
		zap.Int("overall_mark", fb.OverallMark),
		zap.Bool("default_feedback", fellBack))

	cc.Client().Send(models.WSFrame{
		Type: models.EventFinalFeedback,
		Data: models.FinalFeedbackPayload{
			Feedback: fb,
			InterviewDetails: models.InterviewDetails{
				InterviewID:    result.InterviewID,
				ResultID:       result.ID,
				CandidateEmail: identity.Email,
				VideoURL:       p.VideoURL,
				TurnCount:      countUserTurns(live.Transcript),
				CompletedAt:    completedAt,
			},
		},
	})
	e.hub.Broadcast(id, cc.Client(), models.WSFrame{
		Type: models.EventInterviewStatus,
		Data: models.InterviewStatusPayload{SessionID: p.SessionID, Status: strings.ToLower(string(StateClosed))},
	})
	e.publishCompleted(ctx, models.CompletedEvent{
		CandidateID: id,
		InterviewID: result.InterviewID,
		ResultID:    result.ID,
		OverallMark: fb.OverallMark,
	})
	return nil
}

// Start seeds a pending attempt for the candidate. Restarting the interview
// that is already live returns the existing attempt.
func (e *Engine) Start(ctx context.Context, identity *auth.CandidateIdentity, interviewID, resumeText string) (*models.StartInterviewResponse, error) {
	if identity == nil {
		return nil, ErrNotAuthenticated
	}
	interviewID = strings.TrimSpace(interviewID)
	if interviewID == "" {
		return nil, ErrMissingSessionID
	}

	var (
		resp   *models.StartInterviewResponse
		jobErr error
	)
	done, err := e.queue.Enqueue(identity.ID, func() {
		resp, jobErr = e.start(ctx, identity.ID, interviewID, resumeText)
	})
	if err != nil {
		return nil, ErrShuttingDown
	}
	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if jobErr != nil {
		return nil, jobErr
	}
	if resp == nil {
		return nil, ErrInternal
	}
	return resp, nil
}

func (e *Engine) start(ctx context.Context, candidateID, interviewID, resumeText string) (*models.StartInterviewResponse, error) {
	if e.life.isFinalizing(candidateID) {
		return nil, ErrInterviewFinalizing
	}
	if _, err := e.loadConfig(ctx, interviewID, candidateID, interviewID); err != nil {
		return nil, err
	}

	raw, err := e.cache.Get(ctx, cache.SessionKey(candidateID))
	switch {
	case err == nil:
		var existing models.LiveSession
		if jerr := json.Unmarshal([]byte(raw), &existing); jerr == nil {
			stale, serr := e.isStale(ctx, candidateID, &existing)
			if serr != nil {
				return nil, serr
			}
			if !stale {
				if existing.InterviewID != interviewID {
					return nil, ErrInterviewInProgress
				}
				return &models.StartInterviewResponse{SessionID: interviewID, ResultID: existing.SourceRecordID}, nil
			}
			e.log.Warn("discarding live session of a finished attempt",
				zap.String("candidate_id", candidateID), zap.String("result_id", existing.SourceRecordID))
			e.clearLive(ctx, candidateID, existing.InterviewID)
		} else {
			e.log.Warn("replacing unreadable live session", zap.String("candidate_id", candidateID))
		}
	case !errors.Is(err, cache.ErrNotFound):
		e.log.Error("session cache read failed", zap.String("candidate_id", candidateID), zap.Error(err))
		return nil, ErrStoreUnavailable
	}

	result, err := e.results.CreatePending(ctx, interviewID, candidateID, resumeText)
	if err != nil {
		e.log.Error("creating pending result failed", zap.String("candidate_id", candidateID), zap.Error(err))
		return nil, ErrStoreUnavailable
	}
	live := &models.LiveSession{
		ResumeText:     resumeText,
		Transcript:     []models.Message{},
		SourceRecordID: result.ID,
		InterviewID:    interviewID,
		StartedAt:      e.now().UTC(),
	}
	if err := e.saveLive(ctx, candidateID, live); err != nil {
		return nil, err
	}
	e.life.reopen(candidateID)
	return &models.StartInterviewResponse{SessionID: interviewID, ResultID: result.ID}, nil
}

// isStale reports whether a cached session belongs to an attempt that was
// already closed or committed.
func (e *Engine) isStale(ctx context.Context, candidateID string, live *models.LiveSession) (bool, error) {
	if e.life.isClosed(candidateID) {
		return true, nil
	}
	if live.SourceRecordID == "" {
		return false, nil
	}
	result, err := e.results.GetByID(ctx, live.SourceRecordID)
	switch {
	case errors.Is(err, repositories.ErrResultNotFound):
		return true, nil
	case err != nil:
		e.log.Error("loading result failed", zap.String("candidate_id", candidateID), zap.Error(err))
		return false, ErrStoreUnavailable
	}
	return result.Completed, nil
}

// Transcript returns the live transcript of a candidate's interview.
func (e *Engine) Transcript(ctx context.Context, candidateID string) ([]models.Message, error) {
	live, err := e.loadLive(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	return live.Transcript, nil
}

// State reports where a candidate's interview sits in its lifecycle.
func (e *Engine) State(ctx context.Context, candidateID string) (State, error) {
	if e.life.isFinalizing(candidateID) {
		return StateFinalizing, nil
	}
	if e.life.isClosed(candidateID) {
		return StateClosed, nil
	}
	live, err := e.loadLive(ctx, candidateID)
	if err != nil {
		if errors.Is(err, ErrInterviewNotFound) {
			return StateNoSession, nil
		}
		return "", err
	}
	if len(live.Transcript) == 0 {
		return StateNoSession, nil
	}
	return StateActive, nil
}

// PruneClosed forgets close markers older than age.
func (e *Engine) PruneClosed(age time.Duration) int {
	return e.life.pruneClosed(e.now().Add(-age))
}

// Shutdown stops accepting events and waits for queued ones to finish.
func (e *Engine) Shutdown(ctx context.Context) error {
	return e.queue.Close(ctx)
}

func (e *Engine) loadLive(ctx context.Context, candidateID string) (*models.LiveSession, error) {
	if e.life.isClosed(candidateID) {
		return nil, ErrInterviewClosed
	}
	raw, err := e.cache.Get(ctx, cache.SessionKey(candidateID))
	if errors.Is(err, cache.ErrNotFound) {
		return nil, ErrInterviewNotFound
	}
	if err != nil {
		e.log.Error("session cache read failed", zap.String("candidate_id", candidateID), zap.Error(err))
		return nil, ErrStoreUnavailable
	}
	var live models.LiveSession
	if err := json.Unmarshal([]byte(raw), &live); err != nil {
		e.log.Error("live session is not valid JSON", zap.String("candidate_id", candidateID), zap.Error(err))
		return nil, ErrStoreUnavailable
	}
	return &live, nil
}

func (e *Engine) saveLive(ctx context.Context, candidateID string, live *models.LiveSession) error {
	data, err := json.Marshal(live)
	if err != nil {
		return fmt.Errorf("encode live session: %w", err)
	}
	if err := e.cache.Set(ctx, cache.SessionKey(candidateID), string(data)); err != nil {
		e.log.Error("session cache write failed", zap.String("candidate_id", candidateID), zap.Error(err))
		return ErrStoreUnavailable
	}
	return nil
}

func (e *Engine) clearLive(ctx context.Context, candidateID, sessionID string) {
	if err := e.cache.Del(ctx, cache.SessionKey(candidateID), cache.InterviewConfigKey(sessionID, candidateID)); err != nil {
		e.log.Error("clearing live session failed", zap.String("candidate_id", candidateID), zap.Error(err))
	}
}

// loadConfig reads the interview config from the cache, falling back to the
// store. Concurrent store reads for one interview are collapsed into one.
func (e *Engine) loadConfig(ctx context.Context, sessionID, candidateID, interviewID string) (*models.InterviewConfig, error) {
	key := cache.InterviewConfigKey(sessionID, candidateID)
	raw, err := e.cache.Get(ctx, key)
	switch {
	case err == nil:
		var cfg models.InterviewConfig
		if jerr := json.Unmarshal([]byte(raw), &cfg); jerr == nil {
			return &cfg, nil
		}
		e.log.Warn("discarding unreadable cached interview config", zap.String("key", key))
	case !errors.Is(err, cache.ErrNotFound):
		e.log.Warn("interview config cache read failed, using store", zap.Error(err))
	}

	if interviewID == "" {
		interviewID = sessionID
	}
	v, err, _ := e.configLoads.Do(interviewID, func() (interface{}, error) {
		return e.configs.GetConfig(ctx, interviewID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrInterviewNotFound) {
			return nil, ErrInterviewConfigNotFound
		}
		e.log.Error("loading interview config failed", zap.String("interview_id", interviewID), zap.Error(err))
		return nil, ErrStoreUnavailable
	}
	cfg := v.(*models.InterviewConfig)

	if data, err := json.Marshal(cfg); err == nil {
		if err := e.cache.Set(ctx, key, string(data)); err != nil {
			e.log.Warn("caching interview config failed", zap.String("key", key), zap.Error(err))
		}
	}
	return cfg, nil
}

func (e *Engine) publishCompleted(ctx context.Context, evt models.CompletedEvent) {
	if e.publisher == nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := e.publisher.Publish(ctx, e.opts.CompletionChannel, data); err != nil {
		e.log.Warn("publishing completion event failed", zap.String("result_id", evt.ResultID), zap.Error(err))
	}
}

func countUserTurns(transcript []models.Message) int {
	n := 0
	for _, m := range transcript {
		if m.Role == models.RoleUser {
			n++
		}
	}
	return n
}

// decode converts a loosely typed frame payload into a concrete struct.
func decode(in interface{}, out interface{}) error {
	if in == nil {
		return errors.New("missing payload")
	}
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
