// Package server exposes an editor session over HTTP with fiber.
//
// Requests are handled one at a time: every route touching the editor
// runs under a single mutex, the way a UI event loop would drive it.
package server

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/editor"
)

// Server serves one editor.
type Server struct {
	mu       sync.Mutex
	ed       *editor.Editor
	store    flowchart.Store
	gatherer prometheus.Gatherer
	logger   *log.Logger
	app      *fiber.App
}

type Option func(*Server)

// WithStore enables the /store routes.
func WithStore(store flowchart.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithGatherer enables GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds the fiber app around ed.
func New(ed *editor.Editor, opts ...Option) *Server {
	s := &Server{
		ed:     ed,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	// Route params and bodies end up in history commands and store keys
	// that outlive the request, so they must not alias fasthttp buffers.
	s.app = fiber.New(fiber.Config{Immutable: true})
	s.routes()
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) routes() {
	app := s.app
	app.Use(s.logRequests)

	// ── Document ──────────────────────────────────────────────────────
	app.Get("/document", s.locked(s.getDocument))
	app.Put("/document", s.locked(s.putDocument))
	app.Get("/export/mermaid", s.locked(s.exportMermaid))

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Post("/nodes", s.locked(s.addNode))
	app.Delete("/nodes/:id", s.locked(s.deleteNode))
	app.Put("/nodes/:id/position", s.locked(s.moveNode))
	app.Put("/nodes/:id/label", s.locked(s.renameNode))

	// ── Connections ───────────────────────────────────────────────────
	app.Post("/connections", s.locked(s.connect))
	app.Delete("/connections/:id", s.locked(s.disconnect))

	// ── Groups ────────────────────────────────────────────────────────
	app.Post("/groups", s.locked(s.addGroup))
	app.Delete("/groups/:id", s.locked(s.deleteGroup))
	app.Put("/groups/:id/name", s.locked(s.renameGroup))
	app.Put("/groups/:id/drawing", s.locked(s.setGroupDrawing))

	// ── History ───────────────────────────────────────────────────────
	app.Post("/undo", s.locked(s.undo))
	app.Post("/redo", s.locked(s.redo))

	// ── Store ─────────────────────────────────────────────────────────
	if s.store != nil {
		app.Get("/store", s.listStored)
		app.Post("/store/:id", s.locked(s.saveStored))
		app.Get("/store/:id", s.locked(s.loadStored))
		app.Delete("/store/:id", s.deleteStored)
	}

	if s.gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
}

func (s *Server) locked(h fiber.Handler) fiber.Handler {
	return func(c fiber.Ctx) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return h(c)
	}
}

func (s *Server) logRequests(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"took", time.Since(start).Round(time.Microsecond),
	)
	return err
}

// statusFor maps engine errors to HTTP statuses.
func statusFor(err error) int {
	var perr *flowchart.ParseError
	switch {
	case errors.Is(err, flowchart.ErrNotFound), errors.Is(err, flowchart.ErrDocumentNotFound):
		return 404
	case errors.Is(err, flowchart.ErrValidationRejected):
		return 422
	case errors.As(err, &perr):
		return 400
	case errors.Is(err, flowchart.ErrNothingToUndo),
		errors.Is(err, flowchart.ErrNothingToRedo),
		errors.Is(err, flowchart.ErrDuplicateID),
		errors.Is(err, editor.ErrGestureActive):
		return 409
	default:
		return 500
	}
}

func (s *Server) fail(c fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Error("request failed", "path", c.Path(), "err", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
