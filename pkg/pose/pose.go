// Package pose maintains the robot's world-frame pose estimate from raw
// odometer samples.
//
// Odometry is cumulative and drifts, so absolute odometer readings are never
// used as position. Only the delta between consecutive samples is trusted; the
// integrator accumulates those deltas into a world-frame estimate that is
// zeroed when a session resets while the odometers keep running.
package pose

import "math"

// Quaternion is an orientation as reported by the base odometry.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Yaw extracts the heading (rotation about Z) in radians.
// Roll and pitch are irrelevant for a planar base and are discarded.
func (q Quaternion) Yaw() float64 {
	return math.Atan2(2.0*(q.W*q.Z+q.X*q.Y), 1.0-2.0*(q.Y*q.Y+q.Z*q.Z))
}

// Sample is one raw odometer reading.
type Sample struct {
	X           float64
	Y           float64
	Orientation Quaternion
}

// Pose is a world-frame position and heading.
type Pose struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// DistanceTo returns the planar distance from p to other.
func (p Pose) DistanceTo(other Pose) float64 {
	return math.Hypot(other.X-p.X, other.Y-p.Y)
}

// Integrator accumulates consecutive odometer deltas into a Pose.
type Integrator struct {
	pose Pose

	// Last raw sample, kept only to difference against the next one.
	prevX   float64
	prevY   float64
	prevYaw float64
}

// NewIntegrator returns a zeroed integrator.
func NewIntegrator() *Integrator {
	return &Integrator{}
}

// Pose returns the current world-frame estimate.
func (i *Integrator) Pose() Pose {
	return i.pose
}

// Integrate applies the delta between s and the previous raw sample to the
// pose estimate and retains s for the next call.
func (i *Integrator) Integrate(s Sample) Pose {
	yaw := s.Orientation.Yaw()

	i.pose.X += s.X - i.prevX
	i.pose.Y += s.Y - i.prevY
	i.pose.Theta += yaw - i.prevYaw

	i.prevX = s.X
	i.prevY = s.Y
	i.prevYaw = yaw

	return i.pose
}

// Reset zeroes the accumulated pose. The raw sample register is deliberately
// kept: the odometers do not reset, and the next delta must be computed
// against the last reading actually received.
func (i *Integrator) Reset() {
	i.pose = Pose{}
}
