package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/tabchat/internal/chat"
	"github.com/MikeSquared-Agency/tabchat/internal/hermes"
	"github.com/MikeSquared-Agency/tabchat/internal/relayclient"
	"github.com/MikeSquared-Agency/tabchat/internal/upstream"
)

// Publisher is the subset of hermes.Client the relay needs.
type Publisher interface {
	Publish(subject string, data any) error
}

type Config struct {
	Port         int
	UpstreamName string
	ReadTimeout  time.Duration
}

type Server struct {
	router    *chi.Mux
	http      *http.Server
	cfg       Config
	completer upstream.Completer
	events    Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewServer wires the relay routes. events may be nil.
func NewServer(cfg Config, completer upstream.Completer, events Publisher, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", relayclient.SessionHeader},
	}))

	s := &Server{
		router:    router,
		cfg:       cfg,
		completer: completer,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}

	router.Get("/api/health", s.health)
	router.Post("/api/chat", s.chat)
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Endpoint not found"})
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	})

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.cfg.Port)
	s.http = &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	s.logger.Info("relay server starting", "addr", addr, "upstream", s.cfg.UpstreamName)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": s.now().Format(time.RFC3339),
	})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	start := s.now()

	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid JSON: %v", err)})
		return
	}
	if req.UserInput == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No input provided"})
		return
	}

	history := filterHistory(req.History)
	evt := hermes.ChatEvent{
		RequestID:  uuid.NewString(),
		SessionID:  r.Header.Get(relayclient.SessionHeader),
		Upstream:   s.cfg.UpstreamName,
		InputLen:   len(req.UserInput),
		HistoryLen: len(history),
	}
	w.Header().Set("X-Request-Id", evt.RequestID)
	if req.Page != nil {
		evt.PageURL = req.Page.URL
		evt.PageTitle = req.Page.Title
	}

	s.logger.Info("received chat request",
		"request_id", evt.RequestID,
		"session", evt.SessionID,
		"url", pageURL(req.Page),
		"input_len", evt.InputLen,
	)

	answer, err := s.completer.Complete(r.Context(), upstream.Prompt{
		UserInput: req.UserInput,
		History:   history,
		Page:      req.Page,
	})
	if err != nil {
		if r.Context().Err() != nil {
			s.logger.Info("client went away", "request_id", evt.RequestID)
			return
		}
		status, msg := s.classify(err)
		s.logger.Error("upstream request failed", "request_id", evt.RequestID, "status", status, "error", err)
		evt.Status = status
		evt.Error = msg
		s.publish(hermes.SubjectChatFailed, evt, start)
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}

	if strings.TrimSpace(answer) == "" {
		s.logger.Warn("received empty response from upstream", "request_id", evt.RequestID)
		answer = chat.FallbackResponse
	}

	s.logger.Info("chat request processed", "request_id", evt.RequestID, "response_len", len(answer))
	evt.Status = http.StatusOK
	evt.ResponseLen = len(answer)
	s.publish(hermes.SubjectChatCompleted, evt, start)

	writeJSON(w, http.StatusOK, chat.Reply{
		Response:  answer,
		Timestamp: s.now().Format("2006-01-02 15:04:05"),
	})
}

// classify maps an upstream failure to the relay's status and error text.
func (s *Server) classify(err error) (int, string) {
	var statusErr *upstream.StatusError
	switch {
	case errors.Is(err, upstream.ErrConnectTimeout):
		return http.StatusGatewayTimeout, "Connection timeout - could not connect to AI service. Please try again."
	case errors.Is(err, upstream.ErrReadTimeout):
		return http.StatusGatewayTimeout, fmt.Sprintf(
			"Request timeout - AI service took longer than %d seconds to respond. Please try a simpler question or try again later.",
			int(s.cfg.ReadTimeout.Seconds()))
	case errors.As(err, &statusErr):
		return statusErr.Status, fmt.Sprintf("API request failed with status code %d", statusErr.Status)
	default:
		return http.StatusInternalServerError, fmt.Sprintf("Network error: %v", err)
	}
}

func (s *Server) publish(subject string, evt hermes.ChatEvent, start time.Time) {
	if s.events == nil {
		return
	}
	evt.DurationMs = s.now().Sub(start).Milliseconds()
	evt.Timestamp = s.now().UTC()
	if err := s.events.Publish(subject, evt); err != nil {
		s.logger.Warn("failed to publish chat event", "subject", subject, "error", err)
	}
}

// filterHistory keeps user and assistant turns that carry content.
func filterHistory(in []chat.Turn) []chat.Turn {
	out := make([]chat.Turn, 0, len(in))
	for _, t := range in {
		if t.Role != chat.RoleUser && t.Role != chat.RoleAssistant {
			continue
		}
		if t.Content == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

func pageURL(p *chat.PageContext) string {
	if p == nil || p.URL == "" {
		return "unknown"
	}
	return p.URL
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
