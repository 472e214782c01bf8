package rosbridge

import (
	"encoding/json"

	"github.com/sigma-robotics/go-sigma/internal/log"
	"github.com/sigma-robotics/go-sigma/pkg/control"
	"github.com/sigma-robotics/go-sigma/pkg/nav"
)

// Base adapts a rosbridge client to the navigator: it feeds odometry and
// bumper events in and implements nav.VelocitySink for commands going out.
type Base struct {
	client *Client
}

// NewBase advertises the command topic and returns the adapter.
func NewBase(client *Client) (*Base, error) {
	if err := client.Advertise(TopicCmdVel, MsgTwist); err != nil {
		return nil, err
	}
	return &Base{client: client}, nil
}

// Attach subscribes the navigator to the base's odometry and bumper topics.
func (b *Base) Attach(n *nav.Navigator) error {
	err := b.client.Subscribe(TopicOdometry, MsgOdometry, func(msg json.RawMessage) {
		var odom Odometry
		if err := json.Unmarshal(msg, &odom); err != nil {
			log.Warn("malformed odometry message", "err", err)
			return
		}
		n.Odometry(odom.Sample())
	})
	if err != nil {
		return err
	}

	return b.client.Subscribe(TopicBumper, MsgBumperEvent, func(msg json.RawMessage) {
		var evt BumperEvent
		if err := json.Unmarshal(msg, &evt); err != nil {
			log.Warn("malformed bumper event", "err", err)
			return
		}
		n.Bump(evt.Pressed())
	})
}

// Publish sends a velocity command as a Twist on the command topic.
func (b *Base) Publish(cmd control.Command) error {
	return b.client.Publish(TopicCmdVel, Twist{
		Linear:  Vector3{X: cmd.Linear},
		Angular: Vector3{Z: cmd.Angular},
	})
}
