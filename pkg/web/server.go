// Package web provides a real-time dashboard for the sigma-nav controller:
// current pose and goal over REST, a live state stream over websocket, and
// runtime tuning of the heading controller.
package web

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/sigma-robotics/go-sigma/internal/log"
	"github.com/sigma-robotics/go-sigma/pkg/control"
	"github.com/sigma-robotics/go-sigma/pkg/hub"
	"github.com/sigma-robotics/go-sigma/pkg/nav"
)

// Server is the dashboard server. It implements nav.StateUpdater so the
// navigator can hand it a snapshot after every control cycle.
type Server struct {
	app  *fiber.App
	addr string

	controller *control.HeadingController

	stateMu sync.RWMutex
	state   nav.State

	stateHub *hub.Hub
}

// NewServer creates the dashboard server.
func NewServer(addr string, controller *control.HeadingController) *Server {
	s := &Server{
		addr:       addr,
		controller: controller,
		stateHub:   hub.New("state"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "sigma-nav dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Get("/tuning", s.handleGetTuning)
	api.Post("/tuning", s.handleSetTuning)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(s.handleStateWS))

	s.app = app
	return s
}

// Start runs the server; blocks.
func (s *Server) Start() error {
	go s.stateHub.Run()
	log.Info("dashboard listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// StartAsync runs the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("dashboard server failed", "err", err)
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// UpdateNavState stores the latest snapshot and broadcasts it to websocket
// clients. Called from the navigator's event loop.
func (s *Server) UpdateNavState(state nav.State) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()

	s.stateHub.BroadcastJSON(state)
}
