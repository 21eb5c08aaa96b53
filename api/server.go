// Package api provides the HTTP REST API server for Indeks AI.
//
// It exposes endpoints for session-based chat, intent classification,
// raw market data and a WebSocket chat channel.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phuslu/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/indeksai/indeksai/internal/analysis/sentiment"
	"github.com/indeksai/indeksai/internal/analysis/trend"
	"github.com/indeksai/indeksai/internal/assistant"
	"github.com/indeksai/indeksai/internal/config"
	"github.com/indeksai/indeksai/internal/intent"
	"github.com/indeksai/indeksai/internal/market"
	"github.com/indeksai/indeksai/pkg/models"
	"github.com/indeksai/indeksai/pkg/utils"
)

// Server is the HTTP API server.
type Server struct {
	router    chi.Router
	cfg       *config.Config
	assistant *assistant.Assistant
	sessions  *SessionStore
	wsHub     *WSHub
	markdown  goldmark.Markdown
	version   string
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithVersion sets the version reported by /health.
func WithVersion(v string) ServerOption {
	return func(s *Server) { s.version = v }
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, a *assistant.Assistant, opts ...ServerOption) *Server {
	srv := &Server{
		cfg:       cfg,
		assistant: a,
		sessions:  NewSessionStore(cfg.API.SessionTTL),
		wsHub:     NewWSHub(),
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
		version:   "dev",
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Sessions returns the in-memory session store.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// ListenAndServe starts the HTTP server and blocks until SIGINT/SIGTERM or
// ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go s.sessions.RunJanitor(ctx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/greeting", s.handleGreeting)

		// Sessions
		r.Post("/sessions", s.handleCreateSession)
		r.Delete("/sessions/{id}", s.handleResetSession)
		r.Get("/sessions/{id}/stats", s.handleSessionStats)

		// Chat
		r.Post("/chat", s.handleChat)
		r.Post("/classify", s.handleClassify)

		// Market data
		r.Get("/market/latest", s.handleMarketLatest)
		r.Get("/market/weekly", s.handleMarketWeekly)

		// Configuration
		r.Get("/config", s.handleGetConfig)
		r.Get("/config/keys", s.handleGetConfigKeys)

		// WebSocket
		r.Get("/ws/chat", s.handleWebSocket)
	})

	return r
}

// requestLogger logs one line per request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Int("status", ww.Status()).
			Str("request_id", middleware.GetReqID(r.Context())).Dur("elapsed", time.Since(start)).Msg("http request")
	})
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Reply formats accepted by POST /api/v1/chat.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// ChatRequest is the body for POST /api/v1/chat.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"` // empty starts a new session
	Message   string `json:"message"`
	Format    string `json:"format,omitempty"` // "markdown" (default) or "html"
}

// ChatResponse is the data of a chat reply.
type ChatResponse struct {
	SessionID string               `json:"session_id"`
	Mode      assistant.Mode       `json:"mode"`
	Intent    intent.Decision      `json:"intent"`
	Text      string               `json:"text"`
	HTML      string               `json:"html,omitempty"`
	Table     *models.Series       `json:"table,omitempty"`
	Stats     *trend.Stats         `json:"stats,omitempty"`
	Quote     *models.Quote        `json:"quote,omitempty"`
	Headlines []models.NewsArticle `json:"headlines,omitempty"`
	Sentiment *sentiment.Summary   `json:"sentiment,omitempty"`
	Provider  string               `json:"provider,omitempty"`
}

// ClassifyRequest is the body for POST /api/v1/classify.
type ClassifyRequest struct {
	Message string `json:"message"`
}

// SessionStats is returned by GET /api/v1/sessions/{id}/stats.
type SessionStats struct {
	SessionID      string `json:"session_id"`
	Label          string `json:"label"`
	TotalQuestions int    `json:"total_questions"`
	Turns          int    `json:"turns"`
}

// LatestResponse is returned by GET /api/v1/market/latest.
type LatestResponse struct {
	Quote     *models.Quote        `json:"quote"`
	Headlines []models.NewsArticle `json:"headlines,omitempty"`
	Sentiment *sentiment.Summary   `json:"sentiment,omitempty"`
}

// WeeklyResponse is returned by GET /api/v1/market/weekly.
type WeeklyResponse struct {
	Series *models.Series `json:"series"`
	Stats  trend.Stats    `json:"stats"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":        "ok",
			"version":       s.version,
			"market_status": utils.MarketStatus(),
			"time_wib":      utils.FormatDateTimeWIB(utils.NowWIB()),
			"sessions":      s.sessions.Len(),
			"ws_clients":    s.wsHub.ClientCount(),
		},
	})
}

func (s *Server) handleGreeting(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]string{
			"greeting":   assistant.Greeting,
			"disclaimer": assistant.Disclaimer,
		},
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    map[string]string{"session_id": sess.ID},
	})
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	sess.turn.Lock()
	sess.Store.Clear()
	sess.turn.Unlock()

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    sessionStats(sess),
	})
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    sessionStats(sess),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.Format != "" && req.Format != FormatMarkdown && req.Format != FormatHTML {
		writeError(w, http.StatusBadRequest, "format must be markdown or html")
		return
	}

	var sess *Session
	if req.SessionID == "" {
		sess = s.sessions.Create()
	} else {
		var ok bool
		if sess, ok = s.sessions.Get(req.SessionID); !ok {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
	}

	sess.turn.Lock()
	reply := s.assistant.Respond(r.Context(), sess.Store, req.Message)
	sess.turn.Unlock()

	resp := s.chatResponse(reply, req.Format)
	resp.SessionID = sess.ID

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    intent.Explain(req.Message),
	})
}

func (s *Server) handleMarketLatest(w http.ResponseWriter, r *http.Request) {
	q, headlines, err := s.assistant.FetchLatest(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, market.Cause(err))
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    latestResponse(q, headlines),
	})
}

func (s *Server) handleMarketWeekly(w http.ResponseWriter, r *http.Request) {
	series, st, err := s.assistant.FetchWeekly(r.Context())
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, trend.ErrInsufficientData) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, assistant.FailureCause(err))
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    WeeklyResponse{Series: series, Stats: st},
	})
}

// ============================================================
// Helpers
// ============================================================

func (s *Server) renderHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// chatResponse is the reply body shared by /chat and the websocket channel.
func (s *Server) chatResponse(reply assistant.Reply, format string) ChatResponse {
	resp := ChatResponse{
		Mode:      reply.Mode,
		Intent:    reply.Intent,
		Text:      reply.Text,
		Table:     reply.Table,
		Stats:     reply.Stats,
		Quote:     reply.Quote,
		Headlines: reply.Headlines,
		Sentiment: reply.Sentiment,
		Provider:  reply.Provider,
	}
	if format == FormatHTML {
		html, err := s.renderHTML(reply.Text)
		if err != nil {
			log.Warn().Err(err).Msg("markdown render failed")
		}
		resp.HTML = html
	}
	return resp
}

func latestResponse(q *models.Quote, headlines []models.NewsArticle) LatestResponse {
	resp := LatestResponse{Quote: q, Headlines: headlines}
	if len(headlines) > 0 {
		mood := sentiment.Summarize(headlines, time.Now())
		resp.Sentiment = &mood
	}
	return resp
}

func sessionStats(sess *Session) SessionStats {
	return SessionStats{
		SessionID:      sess.ID,
		Label:          assistant.QuestionCountLabel,
		TotalQuestions: sess.Store.UserCount(),
		Turns:          sess.Store.Len(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
