package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/sigma-robotics/go-sigma/pkg/control"
	"github.com/sigma-robotics/go-sigma/pkg/hub"
)

// handleState returns the latest navigator snapshot.
func (s *Server) handleState(c *fiber.Ctx) error {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return c.JSON(s.state)
}

// handleGetTuning returns the current heading-controller parameters.
func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	return c.JSON(s.controller.Gains())
}

// handleSetTuning applies parameter updates at runtime. Zero-valued fields
// are left unchanged, so callers can adjust a single gain.
func (s *Server) handleSetTuning(c *fiber.Ctx) error {
	var gains control.Gains
	if err := c.BodyParser(&gains); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid tuning payload",
		})
	}

	s.controller.SetGains(gains)
	return c.JSON(s.controller.Gains())
}

// handleStateWS streams state snapshots to a websocket client.
func (s *Server) handleStateWS(c *websocket.Conn) {
	// Send the current snapshot immediately so the client doesn't wait
	// for the next control cycle.
	s.stateMu.RLock()
	c.WriteJSON(s.state)
	s.stateMu.RUnlock()

	client := hub.NewClient(s.stateHub, c)
	client.Run()
}
