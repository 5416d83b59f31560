package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"interview/internal/auth"
	"interview/internal/metrics"
	"interview/internal/middleware"
	"interview/internal/models"
	"interview/internal/session"
	"interview/internal/utils"
)

const maxFrameBytes = 64 << 10

type SessionEngine interface {
	Dispatch(cc *session.ConnContext, frame models.WSFrame) <-chan struct{}
	Start(ctx context.Context, identity *auth.CandidateIdentity, interviewID, resumeText string) (*models.StartInterviewResponse, error)
	Transcript(ctx context.Context, candidateID string) ([]models.Message, error)
	Hub() *session.Hub
}

type IdentityVerifier interface {
	Verify(r *http.Request) *auth.CandidateIdentity
}

type InterviewHandler struct {
	engine   SessionEngine
	verifier IdentityVerifier
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewInterviewHandler(engine SessionEngine, verifier IdentityVerifier, allowedOrigins []string, log *zap.Logger) *InterviewHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &InterviewHandler{
		engine:   engine,
		verifier: verifier,
		upgrader: websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
		log:      log,
	}
}

// originChecker accepts requests without an Origin header (non-browser clients)
// and browser requests from one of the allowed origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// InterviewWS serves the live interview connection. A missing or invalid
// credential does not refuse the upgrade; the connection stays
// unauthenticated and every protected event is rejected.
func (h *InterviewHandler) InterviewWS(w http.ResponseWriter, r *http.Request) {
	identity := h.verifier.Verify(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	client := session.NewClient(conn)
	defer client.Close()
	cc := session.NewConnContext(identity, client)
	hub := h.engine.Hub()
	if identity != nil {
		hub.Join(identity.ID, client)
		defer hub.Leave(identity.ID, client)
	}
	metrics.ConnectionOpened()
	defer metrics.ConnectionClosed()

	log := h.log.With(zap.String("conn_id", cc.ID()), zap.Bool("authenticated", identity != nil))
	log.Debug("interview connection opened")
	defer log.Debug("interview connection closed")

	for {
		var frame models.WSFrame
		if err := conn.ReadJSON(&frame); err != nil {
			var (
				syntaxErr *json.SyntaxError
				typeErr   *json.UnmarshalTypeError
			)
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				client.Send(session.ErrInvalidPayload.Frame())
				continue
			}
			return
		}
		// queued turns keep running after a disconnect; their replies are dropped
		h.engine.Dispatch(cc, frame)
	}
}

type pollResponse struct {
	Frames []models.WSFrame `json:"frames"`
}

// PollEvent is the HTTP fallback transport. It runs one event through the
// same dispatch path and returns every frame the event produced.
func (h *InterviewHandler) PollEvent(w http.ResponseWriter, r *http.Request) {
	var frame models.WSFrame
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFrameBytes)).Decode(&frame); err != nil {
		utils.JSONError(w, http.StatusBadRequest, session.ErrInvalidPayload.Code, session.ErrInvalidPayload.Message)
		return
	}

	var (
		mu     sync.Mutex
		frames []models.WSFrame
	)
	client := session.NewCaptureClient(func(f models.WSFrame) {
		mu.Lock()
		frames = append(frames, f)
		mu.Unlock()
	})
	cc := session.NewConnContext(h.verifier.Verify(r), client)

	select {
	case <-h.engine.Dispatch(cc, frame):
	case <-r.Context().Done():
		return
	}

	mu.Lock()
	out := append([]models.WSFrame{}, frames...)
	mu.Unlock()
	utils.JSON(w, http.StatusOK, pollResponse{Frames: out})
}

func (h *InterviewHandler) StartInterview(w http.ResponseWriter, r *http.Request) {
	identity := h.verifier.Verify(r)
	if identity == nil {
		utils.JSONError(w, http.StatusUnauthorized, session.ErrNotAuthenticated.Code, session.ErrNotAuthenticated.Message)
		return
	}
	req, ok := middleware.GetValidatedRequest[*models.StartInterviewRequest](r)
	if !ok {
		utils.JSONError(w, http.StatusBadRequest, session.ErrInvalidPayload.Code, session.ErrInvalidPayload.Message)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	resp, err := h.engine.Start(ctx, identity, chi.URLParam(r, "interviewId"), req.ResumeText)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, models.Resp{Message: "interview started", Data: resp})
}

func (h *InterviewHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	identity := h.verifier.Verify(r)
	if identity == nil {
		utils.JSONError(w, http.StatusUnauthorized, session.ErrNotAuthenticated.Code, session.ErrNotAuthenticated.Message)
		return
	}
	transcript, err := h.engine.Transcript(r.Context(), identity.ID)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, models.Resp{Data: transcript})
}

func (h *InterviewHandler) writeSessionError(w http.ResponseWriter, err error) {
	var se *session.Error
	if !errors.As(err, &se) {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			utils.JSONError(w, http.StatusServiceUnavailable, "timeout", "Request timed out.")
			return
		}
		h.log.Error("unexpected handler error", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, session.ErrInternal.Code, session.ErrInternal.Message)
		return
	}
	utils.JSONError(w, statusFor(se), se.Code, se.Message)
}

func statusFor(se *session.Error) int {
	switch se {
	case session.ErrNotAuthenticated:
		return http.StatusUnauthorized
	case session.ErrInterviewNotFound, session.ErrInterviewConfigNotFound, session.ErrResultNotFound:
		return http.StatusNotFound
	case session.ErrInterviewInProgress, session.ErrInterviewFinalizing, session.ErrInterviewClosed:
		return http.StatusConflict
	case session.ErrMissingSessionID, session.ErrInvalidPayload:
		return http.StatusBadRequest
	case session.ErrStoreUnavailable, session.ErrShuttingDown:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
