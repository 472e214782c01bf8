package rosbridge

import "github.com/sigma-robotics/go-sigma/pkg/pose"

// ROS message type names for the topics the controller touches.
const (
	MsgOdometry    = "nav_msgs/Odometry"
	MsgBumperEvent = "kobuki_msgs/BumperEvent"
	MsgTwist       = "geometry_msgs/Twist"
)

// Default topics for a Kobuki base.
const (
	TopicOdometry = "/odom"
	TopicBumper   = "/evt_bump"
	TopicCmdVel   = "/cmd_vel"
)

// BumperEvent state values (kobuki_msgs/BumperEvent).
const (
	BumperReleased = 0
	BumperPressed  = 1
)

// Vector3 is geometry_msgs/Vector3.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Point is geometry_msgs/Point.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Twist is geometry_msgs/Twist, the velocity command for the base.
type Twist struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

// RosPose is geometry_msgs/Pose.
type RosPose struct {
	Position    Point           `json:"position"`
	Orientation pose.Quaternion `json:"orientation"`
}

// PoseWithCovariance is geometry_msgs/PoseWithCovariance, covariance ignored.
type PoseWithCovariance struct {
	Pose RosPose `json:"pose"`
}

// Odometry is nav_msgs/Odometry, trimmed to the fields the integrator needs.
type Odometry struct {
	Pose PoseWithCovariance `json:"pose"`
}

// Sample converts the odometry reading into a raw integrator sample.
func (o Odometry) Sample() pose.Sample {
	return pose.Sample{
		X:           o.Pose.Pose.Position.X,
		Y:           o.Pose.Pose.Position.Y,
		Orientation: o.Pose.Pose.Orientation,
	}
}

// BumperEvent is kobuki_msgs/BumperEvent.
type BumperEvent struct {
	Bumper int `json:"bumper"` // which bumper: left/center/right
	State  int `json:"state"`
}

// Pressed reports whether the event is a contact.
func (b BumperEvent) Pressed() bool {
	return b.State == BumperPressed
}
