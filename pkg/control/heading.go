// Package control implements the heading controller that converts a pose and
// a world-frame goal into velocity commands for the base.
//
// Linear velocity is a constant set-point gated on distance to the goal; the
// heading is regulated by a PID loop on the angular error. The derivative
// register is overwritten with the current error before the derivative term is
// taken, so that term reduces to error*Kd rather than tracking rate of change.
// That matches the behavior the planner's policies were tuned against, so it
// is kept as-is rather than corrected to a textbook PID.
package control

import (
	"math"
	"sync"

	"github.com/sigma-robotics/go-sigma/pkg/pose"
)

// Command is a velocity command for the base.
type Command struct {
	Linear  float64 `json:"linear"`  // m/s, forward
	Angular float64 `json:"angular"` // rad/s, counterclockwise
}

// Gains holds the tunable heading-control parameters.
type Gains struct {
	Kp float64 `json:"kp"`
	Ki float64 `json:"ki"`
	Kd float64 `json:"kd"`

	IntegratorBound   float64 `json:"integrator_bound"`
	PositionThreshold float64 `json:"position_threshold"`
	ThetaThreshold    float64 `json:"theta_threshold"`
	CruiseVelocity    float64 `json:"cruise_velocity"`
}

// HeadingController regulates the base heading toward a goal pose.
type HeadingController struct {
	mu    sync.RWMutex
	gains Gains

	// PID state
	integrator float64
	derivator  float64
}

// New creates a heading controller with the given gains.
func New(g Gains) *HeadingController {
	return &HeadingController{gains: g}
}

// Gains returns the current parameters.
func (c *HeadingController) Gains() Gains {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gains
}

// SetGains updates parameters at runtime. Only positive values are applied.
func (c *HeadingController) SetGains(g Gains) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if g.Kp > 0 {
		c.gains.Kp = g.Kp
	}
	if g.Ki > 0 {
		c.gains.Ki = g.Ki
	}
	if g.Kd > 0 {
		c.gains.Kd = g.Kd
	}
	if g.IntegratorBound > 0 {
		c.gains.IntegratorBound = g.IntegratorBound
	}
	if g.PositionThreshold > 0 {
		c.gains.PositionThreshold = g.PositionThreshold
	}
	if g.ThetaThreshold > 0 {
		c.gains.ThetaThreshold = g.ThetaThreshold
	}
	if g.CruiseVelocity > 0 {
		c.gains.CruiseVelocity = g.CruiseVelocity
	}
}

// Reset clears the PID memory.
func (c *HeadingController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.integrator = 0
	c.derivator = 0
}

// Compute produces a velocity command driving p toward goal.
//
// The goal heading is always recomputed from the current relative position
// rather than trusted from storage, since the pose estimate is noisy. The
// returned goal carries that updated heading (including any ±2π shift applied
// during normalization) so the caller can persist it.
func (c *HeadingController) Compute(p pose.Pose, goal pose.Pose) (Command, pose.Pose) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var cmd Command

	if p.DistanceTo(goal) >= c.gains.PositionThreshold {
		cmd.Linear = c.gains.CruiseVelocity
	}

	goal.Theta = math.Atan2(goal.Y-p.Y, goal.X-p.X)

	// Normalize the error into (-pi, pi], shifting the stored goal heading
	// by the same full turn.
	err := goal.Theta - p.Theta
	if err > math.Pi {
		goal.Theta -= 2.0 * math.Pi
		err -= 2.0 * math.Pi
	}
	if err < -math.Pi {
		goal.Theta += 2.0 * math.Pi
		err += 2.0 * math.Pi
	}

	if math.Abs(err) < c.gains.ThetaThreshold {
		// Within tolerance: hold heading. PID memory is not cleared so the
		// integrator survives small-error frames.
		return cmd, goal
	}

	valP := err * c.gains.Kp

	c.integrator += err
	c.integrator = clamp(c.integrator, -c.gains.IntegratorBound, c.gains.IntegratorBound)
	valI := c.integrator * c.gains.Ki

	c.derivator = err - c.derivator
	c.derivator = err
	valD := c.derivator * c.gains.Kd

	cmd.Angular = valP + valI + valD
	return cmd, goal
}

// clamp limits a value to a range.
func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
