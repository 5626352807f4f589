package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cloud-ru/sky-financial-go/internal/chat"
	"github.com/cloud-ru/sky-financial-go/internal/metrics"
	"github.com/cloud-ru/sky-financial-go/internal/tools"
)

// DefaultMaxSessions ограничивает число одновременно хранимых сессий чата
const DefaultMaxSessions = 10000

// Server обслуживает инструменты калькуляторов и чат по HTTP
type Server struct {
	tools  map[string]tools.ToolHandler
	chat   *chat.Client
	logger *zap.Logger

	mu          sync.Mutex
	sessions    map[string]*sessionEntry
	sessionTTL  time.Duration
	maxSessions int
	now         func() time.Time
}

type sessionEntry struct {
	session  *chat.Session
	lastUsed time.Time
}

// New создает сервер; сессии чата, неактивные дольше sessionTTL, удаляются
func New(handlers map[string]tools.ToolHandler, chatClient *chat.Client, sessionTTL time.Duration, logger *zap.Logger) *Server {
	return &Server{
		tools:       handlers,
		chat:        chatClient,
		logger:      logger,
		sessions:    make(map[string]*sessionEntry),
		sessionTTL:  sessionTTL,
		maxSessions: DefaultMaxSessions,
		now:         time.Now,
	}
}

// Handler возвращает маршрутизатор со всеми эндпоинтами
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/v1/tools", s.handleListTools)
	mux.HandleFunc("POST /api/v1/tools/{name}", s.handleTool)
	mux.HandleFunc("POST /api/v1/chat", s.handleChat)
	mux.HandleFunc("GET /api/v1/chat/{id}/history", s.handleHistory)
	return s.logRequests(mux)
}

// Run запускает сервер и останавливает его при отмене ctx
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		// Ответ чата передается потоком, поэтому WriteTimeout больше обычного
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("API запущен", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("Server exited")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string][]string{"tools": names})
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	handler, ok := s.tools[name]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown tool: %s", name))
		return
	}

	var params map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	result, err := handler(r.Context(), params)
	if err != nil {
		s.logger.Debug("tool call failed", zap.String("tool", name), zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// handleChat передает ответ модели клиенту по мере поступления фрагментов
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, errors.New("message is required"))
		return
	}

	id, session := s.session(req.SessionID)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Session-ID", id)
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	status := "success"
	for chunk, err := range session.Send(r.Context(), req.Message) {
		if err != nil {
			status = "cancelled"
			break
		}
		if chunk == chat.FallbackReply {
			status = "fallback"
		}
		if _, err := w.Write([]byte(chunk)); err != nil {
			status = "cancelled"
			break
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	s.touch(id)
	metrics.ChatMessages.WithLabelValues(status).Inc()
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.evictExpired()
	entry, ok := s.sessions[r.PathValue("id")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown session"))
		return
	}
	messages := append([]chat.Message{chat.Welcome()}, entry.session.History()...)
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

// session возвращает существующий диалог или создает новый
func (s *Server) session(id string) (string, *chat.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpired()
	now := s.now()
	if entry, ok := s.sessions[id]; ok {
		entry.lastUsed = now
		return id, entry.session
	}

	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		s.evictOldest()
	}
	id = uuid.NewString()
	session := s.chat.NewSession()
	s.sessions[id] = &sessionEntry{session: session, lastUsed: now}
	return id, session
}

// touch продлевает жизнь сессии после долгого ответа
func (s *Server) touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.sessions[id]; ok {
		entry.lastUsed = s.now()
	}
}

// evictExpired удаляет неактивные сессии; вызывается под s.mu
func (s *Server) evictExpired() {
	if s.sessionTTL <= 0 {
		return
	}
	deadline := s.now().Add(-s.sessionTTL)
	for id, entry := range s.sessions {
		if entry.lastUsed.Before(deadline) {
			delete(s.sessions, id)
		}
	}
}

// evictOldest освобождает место под новую сессию; вызывается под s.mu
func (s *Server) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, entry := range s.sessions {
		if oldestID == "" || entry.lastUsed.Before(oldest) {
			oldestID, oldest = id, entry.lastUsed
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
		s.logger.Debug("chat session evicted", zap.String("session_id", oldestID))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
