// Package httpapi exposes the reasoning engine over HTTP.
//
// One chat endpoint, API-key protected. Conversation identity travels in the
// X-Conversation-Id header; a missing header starts a new conversation.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aksara-ai/aksara"
)

// Processor handles one chat request. Satisfied by *aksara.Engine.
type Processor interface {
	Process(ctx context.Context, threadID, message string, hints aksara.Hints) (aksara.Result, error)
}

// Server is the HTTP front end.
type Server struct {
	processor Processor
	apiKey    string
	logger    *slog.Logger
	router    chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a Server over the given processor. apiKey guards the chat
// endpoint; an empty key disables auth (local development).
func New(processor Processor, apiKey string, opts ...Option) *Server {
	s := &Server{
		processor: processor,
		apiKey:    apiKey,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Post("/chat", s.handleChat)
	})

	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

// chatRequest is the POST /chat body.
type chatRequest struct {
	Message string `json:"message"`
	Emotion string `json:"emotion,omitempty"` // optional hint, skips classification
}

// chatResponse is the POST /chat success body.
type chatResponse struct {
	ConversationID string          `json:"conversation_id"`
	Answer         string          `json:"answer"`
	Sources        []aksara.Source `json:"sources"`
	Emotion        aksara.Emotion  `json:"emotion"`
	Exhausted      bool            `json:"exhausted,omitempty"`
}

// errorBody is the uniform error envelope.
type errorBody struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body", err.Error())
		return
	}

	conversationID := r.Header.Get("X-Conversation-Id")
	if conversationID == "" {
		conversationID = aksara.NewID()
	}

	result, err := s.processor.Process(r.Context(), conversationID, req.Message,
		aksara.Hints{Emotion: aksara.Emotion(req.Emotion)})
	if err != nil {
		s.writeProcessError(w, r, conversationID, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: conversationID,
		Answer:         result.Answer.Answer,
		Sources:        result.Answer.Sources,
		Emotion:        result.Emotion,
		Exhausted:      result.Exhausted,
	})
}

// writeProcessError maps engine errors to HTTP status codes.
func (s *Server) writeProcessError(w http.ResponseWriter, r *http.Request, conversationID string, err error) {
	switch {
	case errors.Is(err, aksara.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, "invalid request", err.Error())
	case errors.Is(err, aksara.ErrConversationConflict):
		s.writeError(w, http.StatusConflict, "conversation busy, retry shortly", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusRequestTimeout, "request cancelled", err.Error())
	default:
		s.logger.Error("chat request failed",
			"conversation", conversationID,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

// requireAPIKey rejects requests whose X-API-Key header does not match.
// No-op when no key is configured.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("X-API-Key") != s.apiKey {
			s.writeError(w, http.StatusUnauthorized, "invalid or missing API key", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorBody{
		Status:    status,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
