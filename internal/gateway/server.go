// Package gateway exposes the conversation API over HTTP.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dohr-michael/sidekick/internal/engine"
	"github.com/dohr-michael/sidekick/internal/history"
	"github.com/dohr-michael/sidekick/internal/memory"
)

// defaultRunTimeout bounds a single run when no budget is configured.
const defaultRunTimeout = 120 * time.Second

// Runner is the per-conversation engine surface the gateway drives.
type Runner interface {
	Run(ctx context.Context, llmMessage, criteria string, prior []history.Entry, originalMessage string) ([]history.Entry, error)
	ClarifyingQuestions(ctx context.Context, message, criteria string) []string
	DirectReply(ctx context.Context, message string) (string, error)
}

// RunnerFactory builds the engine for one conversation.
type RunnerFactory func(ctx context.Context, username, conversationID string) (Runner, error)

// Store is the persistence surface the gateway needs.
type Store interface {
	CreateConversation(username, title string) (*memory.Conversation, error)
	GetConversation(conversationID, username string) (*memory.Conversation, error)
	ListConversations(username string) ([]*memory.Conversation, error)
	ClearHistory(conversationID, username string) error
	DeleteConversation(conversationID, username string) error
	DeleteAllUserMemory(username string) error
	LoadLatest(threadID string) (*engine.TaskState, bool, error)
}

// Server is the Sidekick gateway HTTP server.
type Server struct {
	httpServer *http.Server
	store      Store
	runners    RunnerFactory
	runTimeout time.Duration
	host       string
	port       int
}

// NewServer wires the routes and builds the server.
func NewServer(store Store, runners RunnerFactory, host string, port int, runTimeout time.Duration) *Server {
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}

	s := &Server{
		store:      store,
		runners:    runners,
		runTimeout: runTimeout,
		host:       host,
		port:       port,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/api/health", s.handleHealth)

	r.Route("/api/conversations", func(r chi.Router) {
		r.Get("/", s.handleListConversations)
		r.Post("/", s.handleCreateConversation)

		r.Route("/{conversationID}", func(r chi.Router) {
			r.Get("/", s.handleGetConversation)
			r.Delete("/", s.handleDeleteConversation)
			r.Get("/history", s.handleHistory)
			r.Post("/clear", s.handleClearHistory)
			r.Post("/run", s.handleRun)
			r.Post("/clarify", s.handleClarify)
		})
	})

	r.Delete("/api/memory", s.handleDeleteUserMemory)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: r,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("Sidekick gateway listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
