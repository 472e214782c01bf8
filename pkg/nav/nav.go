// Package nav implements the goal-tracking state machine that drives the base
// along goals issued by the POMDP planner.
//
// The navigator owns all mutable session state: the integrated pose, the
// world-frame goal, the last relative goal, the accumulated heading
// adjustment, and the bump flag. Every event is processed on a single
// goroutine, so none of that state needs locking; collaborators feed events in
// through buffered channels.
package nav

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/sigma-robotics/go-sigma/internal/log"
	"github.com/sigma-robotics/go-sigma/pkg/control"
	"github.com/sigma-robotics/go-sigma/pkg/pose"
)

// Action is a relative-frame goal returned by the planner. Positions are
// relative to the pose at the time of the request; theta is a heading
// correction that stays in force for the rest of the session.
type Action struct {
	GoalX     float64 `json:"goal_x"`
	GoalY     float64 `json:"goal_y"`
	GoalTheta float64 `json:"goal_theta"`
}

// Planner is the navigator's view of the POMDP planner service.
type Planner interface {
	// UpdateBelief reports the relative goal just pursued and whether a
	// bump was observed while pursuing it.
	UpdateBelief(relGoalX, relGoalY float64, bumped bool) error

	// GetAction fetches the next relative-frame goal.
	GetAction() (Action, error)
}

// VelocitySink consumes velocity commands for the base.
type VelocitySink interface {
	Publish(control.Command) error
}

// StateUpdater receives a session snapshot after each control cycle.
type StateUpdater interface {
	UpdateNavState(State)
}

// State is a read-only snapshot of the navigator session.
type State struct {
	SessionID       string          `json:"session_id"`
	Pose            pose.Pose       `json:"pose"`
	Goal            pose.Pose       `json:"goal"`
	RelativeGoal    Action          `json:"relative_goal"`
	ThetaAdjustment float64         `json:"theta_adjustment"`
	Bumped          bool            `json:"bumped"`
	LastCommand     control.Command `json:"last_command"`
	BeliefUpdates   int             `json:"belief_updates"`
	ActionsFetched  int             `json:"actions_fetched"`
}

// Navigator tracks goals from the planner and steers the base toward them.
type Navigator struct {
	planner    Planner
	sink       VelocitySink
	integrator *pose.Integrator
	controller *control.HeadingController
	state      StateUpdater

	// Session state, touched only from the event loop.
	sessionID       string
	goal            pose.Pose
	relGoal         Action
	thetaAdjustment float64
	detectedBump    bool
	lastCommand     control.Command
	beliefUpdates   int
	actionsFetched  int
	resetRequired   bool

	odomCh  chan pose.Sample
	bumpCh  chan bool
	resetCh chan struct{}
}

// New creates a navigator with a fresh session.
func New(planner Planner, sink VelocitySink, controller *control.HeadingController) *Navigator {
	return &Navigator{
		planner:    planner,
		sink:       sink,
		integrator: pose.NewIntegrator(),
		controller: controller,
		sessionID:  uuid.NewString(),
		odomCh:     make(chan pose.Sample, 16),
		bumpCh:     make(chan bool, 4),
		resetCh:    make(chan struct{}, 1),
	}
}

// SetStateUpdater sets the dashboard state sink.
func (n *Navigator) SetStateUpdater(s StateUpdater) {
	n.state = s
}

// Odometry feeds a raw odometer sample into the event loop.
// Samples are dropped if the loop is saturated; the next one supersedes them.
func (n *Navigator) Odometry(s pose.Sample) {
	select {
	case n.odomCh <- s:
	default:
	}
}

// Bump feeds a bumper contact/release event into the event loop.
func (n *Navigator) Bump(pressed bool) {
	select {
	case n.bumpCh <- pressed:
	default:
	}
}

// RequestReset asks for a full session reset before the next odometry sample
// is processed. Safe to call from any goroutine; duplicate requests coalesce.
func (n *Navigator) RequestReset() {
	select {
	case n.resetCh <- struct{}{}:
	default:
	}
}

// Run processes events until ctx is cancelled. Events are strictly
// serialized: a planner call in flight blocks the loop, which is fine because
// the navigator is the only client pacing the base.
func (n *Navigator) Run(ctx context.Context) {
	log.Info("navigator started", "session", n.sessionID)

	for {
		select {
		case <-ctx.Done():
			log.Info("navigator stopped", "session", n.sessionID)
			return

		case s := <-n.odomCh:
			n.HandleOdometry(s)

		case pressed := <-n.bumpCh:
			n.HandleBump(pressed)

		case <-n.resetCh:
			n.resetRequired = true
		}
	}
}

// HandleBump latches the bumper state; only the latest value matters.
func (n *Navigator) HandleBump(pressed bool) {
	n.detectedBump = pressed
}

// HandleOdometry runs one control cycle for a raw odometer sample: integrate,
// resolve the goal (possibly fetching a new one from the planner), and emit a
// velocity command.
func (n *Navigator) HandleOdometry(s pose.Sample) {
	if n.resetRequired {
		n.reset()
	}

	p := n.integrator.Integrate(s)
	log.Debug("odometry", "x", p.X, "y", p.Y, "theta", p.Theta)

	if !n.resolveGoal(s, p) {
		return
	}

	cmd, goal := n.controller.Compute(n.integrator.Pose(), n.goal)
	n.goal = goal
	n.lastCommand = cmd

	if err := n.sink.Publish(cmd); err != nil {
		log.Warn("velocity publish failed", "err", err)
	}

	n.publishState()
}

// resolveGoal decides whether the current goal still stands. When the base is
// close enough (or a bump occurred), it reports back to the planner and
// anchors the next relative goal in the world frame. Returns false when the
// cycle should stop without commanding motion: the planner either failed
// (state untouched, retried on the next sample) or has no action yet.
func (n *Navigator) resolveGoal(s pose.Sample, p pose.Pose) bool {
	gains := n.controller.Gains()

	errX := n.goal.X - p.X
	errY := n.goal.Y - p.Y
	distanceToGoal := math.Hypot(errX, errY)
	distanceToTheta := math.Abs(n.goal.Theta - p.Theta)

	// Still on the way to the goal. Angular error only counts for
	// pure-rotation goals; positional goals ignore heading until the
	// position is reached.
	if (distanceToGoal >= gains.PositionThreshold ||
		(n.relGoal.GoalX == 0.0 && n.relGoal.GoalY == 0.0 &&
			distanceToTheta >= gains.ThetaThreshold)) &&
		!n.detectedBump {
		return true
	}

	// Close enough, or bumped: fold the observation into the planner's
	// belief. This can fail early in a session before enough updates have
	// accumulated; leave everything untouched and retry next sample.
	if err := n.planner.UpdateBelief(n.relGoal.GoalX, n.relGoal.GoalY, n.detectedBump); err != nil {
		log.Warn("belief update failed", "err", err)
		return false
	}
	n.beliefUpdates++

	act, err := n.planner.GetAction()
	if err != nil {
		log.Warn("get action failed", "err", err)
		return false
	}
	n.actionsFetched++

	// The new goal is anchored at the most current pose estimate, so apply
	// this sample's delta once more before using it. The register already
	// holds this sample, making this a no-op unless a fresher reading
	// arrived, but the anchoring order is load-bearing.
	p = n.integrator.Integrate(s)

	n.relGoal = act
	n.thetaAdjustment += act.GoalTheta

	// Rotate the relative goal offset by every heading correction issued
	// so far; without that, successive relative goals stop composing into
	// one world frame.
	xyLength := math.Hypot(act.GoalX, act.GoalY)
	xyTheta := math.Atan2(act.GoalY, act.GoalX)
	adjustedX := xyLength * math.Cos(xyTheta+n.thetaAdjustment)
	adjustedY := xyLength * math.Sin(xyTheta+n.thetaAdjustment)

	// Fold in the residual error from the previous goal so the new one
	// does not jump discontinuously.
	n.goal.X = p.X + adjustedX + errX
	n.goal.Y = p.Y + adjustedY + errY
	n.goal.Theta = math.Atan2(n.goal.Y-p.Y, n.goal.X-p.X)

	// The bump has been incorporated into the belief above.
	n.detectedBump = false

	log.Info("new goal",
		"rel_x", act.GoalX, "rel_y", act.GoalY, "rel_theta", act.GoalTheta,
		"goal_x", n.goal.X, "goal_y", n.goal.Y)

	return true
}

// reset returns the session to its initial state after a planner model
// update. The raw odometer register survives (see pose.Integrator.Reset); the
// base is stopped explicitly since no goal stands anymore.
func (n *Navigator) reset() {
	n.integrator.Reset()
	n.controller.Reset()

	n.goal = pose.Pose{}
	n.relGoal = Action{}
	n.thetaAdjustment = 0
	n.detectedBump = false
	n.lastCommand = control.Command{}
	n.resetRequired = false
	n.sessionID = uuid.NewString()

	if err := n.sink.Publish(control.Command{}); err != nil {
		log.Warn("stop command failed", "err", err)
	}

	log.Info("session reset", "session", n.sessionID)
	n.publishState()
}

// Snapshot returns the current session state.
func (n *Navigator) Snapshot() State {
	return State{
		SessionID:       n.sessionID,
		Pose:            n.integrator.Pose(),
		Goal:            n.goal,
		RelativeGoal:    n.relGoal,
		ThetaAdjustment: n.thetaAdjustment,
		Bumped:          n.detectedBump,
		LastCommand:     n.lastCommand,
		BeliefUpdates:   n.beliefUpdates,
		ActionsFetched:  n.actionsFetched,
	}
}

func (n *Navigator) publishState() {
	if n.state != nil {
		n.state.UpdateNavState(n.Snapshot())
	}
}
