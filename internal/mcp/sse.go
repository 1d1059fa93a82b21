package mcp

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// sseSession is one open event stream.
type sseSession struct {
	responses chan *Response
	done      chan struct{}
	closeOnce sync.Once
}

func (s *sseSession) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// SSEHandler serves JSON-RPC over Server-Sent Events: GET /sse opens a
// stream, POST /message?sessionId=... submits requests whose responses are
// delivered on that stream.
type SSEHandler struct {
	server         *Server
	sessions       sync.Map // sessionID -> *sseSession
	enqueueTimeout time.Duration
}

// sseEnqueueTimeout is how long a POST waits for room on a backed-up stream
// before the client is told to retry.
const sseEnqueueTimeout = 5 * time.Second

func NewSSEHandler(server *Server) *SSEHandler {
	return &SSEHandler{server: server, enqueueTimeout: sseEnqueueTimeout}
}

// ServeHTTP routes GET /sse -> handleSSE, POST /message -> handleMessage, OPTIONS -> CORS preflight
func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeCORS(w)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch r.URL.Path {
	case "/sse":
		h.handleSSE(w, r)
	case "/message":
		h.handleMessage(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *SSEHandler) getSession(sessionID string) (*sseSession, bool) {
	value, ok := h.sessions.Load(sessionID)
	if !ok {
		return nil, false
	}
	session, ok := value.(*sseSession)
	return session, ok
}

func writeSSEEvent(w http.ResponseWriter, event string, payload string) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// handleSSE opens SSE stream, emits endpoint event, and forwards session responses.
func (h *SSEHandler) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := uuid.NewString()
	session := &sseSession{
		responses: make(chan *Response, 32),
		done:      make(chan struct{}),
	}
	h.sessions.Store(sessionID, session)
	defer func() {
		h.sessions.Delete(sessionID)
		session.close()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	writeCORS(w)

	if err := writeSSEEvent(w, "endpoint", "/message?sessionId="+sessionID); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("Failed to write SSE endpoint event")
		return
	}
	log.Debug().Str("sessionId", sessionID).Msg("SSE session opened")

	for {
		select {
		case <-r.Context().Done():
			return
		case <-session.done:
			return
		case response := <-session.responses:
			responseJSON, err := json.Marshal(response)
			if err != nil {
				log.Error().Err(err).Str("sessionId", sessionID).Msg("Failed to marshal SSE response")
				continue
			}
			if err := writeSSEEvent(w, "message", string(responseJSON)); err != nil {
				log.Error().Err(err).Str("sessionId", sessionID).Msg("Failed to write SSE response")
				return
			}
		}
	}
}

// handleMessage decodes a request and queues the response on its session.
func (h *SSEHandler) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}

	session, ok := h.getSession(sessionID)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	response := h.server.HandleMessage(r.Context(), body)

	writeCORS(w)
	if response == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	timer := time.NewTimer(h.enqueueTimeout)
	defer timer.Stop()

	select {
	case session.responses <- response:
	case <-session.done:
		http.Error(w, "session closed", http.StatusGone)
		return
	case <-r.Context().Done():
		return
	case <-timer.C:
		log.Warn().Str("sessionId", sessionID).Msg("SSE response queue full")
		http.Error(w, "session backlog full", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Close ends all open event streams.
func (h *SSEHandler) Close() {
	h.sessions.Range(func(key, value any) bool {
		if session, ok := value.(*sseSession); ok {
			session.close()
		}
		h.sessions.Delete(key)
		return true
	})
}
