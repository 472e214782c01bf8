package control

import (
	"math"
	"testing"

	"github.com/sigma-robotics/go-sigma/pkg/pose"
)

func testGains() Gains {
	return Gains{
		Kp:                1.0,
		Ki:                0.2,
		Kd:                0.2,
		IntegratorBound:   0.05,
		PositionThreshold: 0.05,
		ThetaThreshold:    0.05,
		CruiseVelocity:    0.2,
	}
}

func TestComputeDrivesTowardFarGoal(t *testing.T) {
	c := New(testGains())

	cmd, goal := c.Compute(pose.Pose{}, pose.Pose{X: 1.0})

	if cmd.Linear != 0.2 {
		t.Errorf("Linear = %v, want cruise 0.2", cmd.Linear)
	}
	// Goal straight ahead: recomputed heading and angular command both zero.
	if goal.Theta != 0 {
		t.Errorf("goal theta = %v, want 0", goal.Theta)
	}
	if cmd.Angular != 0 {
		t.Errorf("Angular = %v, want 0", cmd.Angular)
	}
}

func TestComputeStopsInsidePositionThreshold(t *testing.T) {
	c := New(testGains())

	cmd, _ := c.Compute(pose.Pose{}, pose.Pose{X: 0.01, Y: 0.01})
	if cmd.Linear != 0 {
		t.Errorf("Linear = %v, want 0 inside threshold", cmd.Linear)
	}
}

func TestAngularErrorNormalization(t *testing.T) {
	c := New(testGains())

	// Goal nearly behind and to the left, pose heading nearly -pi: the raw
	// error is close to 2*pi and must be wrapped into (-pi, pi].
	p := pose.Pose{Theta: -3.0}
	goal := pose.Pose{X: math.Cos(3.0), Y: math.Sin(3.0)}

	_, updated := c.Compute(p, goal)

	err := updated.Theta - p.Theta
	if err <= -math.Pi || err > math.Pi {
		t.Errorf("normalized error %v outside (-pi, pi]", err)
	}
	// Wrapped error is 6.0 - 2*pi, about -0.283 rad.
	if math.Abs(err-(6.0-2.0*math.Pi)) > 1e-9 {
		t.Errorf("wrapped error = %v, want %v", err, 6.0-2.0*math.Pi)
	}
}

func TestPIDTermsAndDegenerateDerivative(t *testing.T) {
	c := New(testGains())

	// Goal 90 degrees to the left: error = pi/2.
	_, _ = c.Compute(pose.Pose{}, pose.Pose{Y: 1.0})

	e := math.Pi / 2
	// Integrator clamps at the bound immediately (pi/2 > 0.05). The
	// derivative register is overwritten with the error before use, so the
	// derivative term is e*Kd on every frame including the first.
	want := e*1.0 + 0.05*0.2 + e*0.2

	cmd, _ := c.Compute(pose.Pose{}, pose.Pose{Y: 1.0})
	if math.Abs(cmd.Angular-want) > 1e-9 {
		t.Errorf("Angular = %v, want %v", cmd.Angular, want)
	}
}

func TestIntegratorClamp(t *testing.T) {
	c := New(testGains())

	// Many frames of large error must not wind up past the bound.
	for i := 0; i < 50; i++ {
		c.Compute(pose.Pose{}, pose.Pose{Y: 1.0})
	}
	if math.Abs(c.integrator) > 0.05+1e-12 {
		t.Errorf("integrator = %v, exceeds bound 0.05", c.integrator)
	}
}

func TestSmallErrorPreservesIntegrator(t *testing.T) {
	c := New(testGains())

	c.Compute(pose.Pose{}, pose.Pose{Y: 1.0})
	saved := c.integrator

	// A frame within the theta threshold emits no turn and must not touch
	// the integrator.
	cmd, _ := c.Compute(pose.Pose{}, pose.Pose{X: 1.0})
	if cmd.Angular != 0 {
		t.Errorf("Angular = %v, want 0 inside theta threshold", cmd.Angular)
	}
	if c.integrator != saved {
		t.Errorf("integrator changed from %v to %v", saved, c.integrator)
	}
}

func TestSetGainsAppliesOnlyPositive(t *testing.T) {
	c := New(testGains())

	c.SetGains(Gains{Kp: 2.0})
	g := c.Gains()
	if g.Kp != 2.0 {
		t.Errorf("Kp = %v, want 2.0", g.Kp)
	}
	if g.Ki != 0.2 || g.Kd != 0.2 {
		t.Errorf("unset gains changed: Ki=%v Kd=%v", g.Ki, g.Kd)
	}
}

func TestResetClearsPIDMemory(t *testing.T) {
	c := New(testGains())
	c.Compute(pose.Pose{}, pose.Pose{Y: 1.0})

	c.Reset()
	if c.integrator != 0 || c.derivator != 0 {
		t.Errorf("PID memory not cleared: integrator=%v derivator=%v", c.integrator, c.derivator)
	}
}
