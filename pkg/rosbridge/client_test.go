package rosbridge

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sigma-robotics/go-sigma/pkg/control"
)

var upgrader = websocket.Upgrader{}

// startBridge runs a fake rosbridge server that records frames from the
// client and can inject publishes toward it.
func startBridge(t *testing.T) (url string, fromClient <-chan op, toClient chan<- op) {
	recv := make(chan op, 16)
	send := make(chan op, 16)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		go func() {
			for frame := range send {
				data, _ := json.Marshal(frame)
				conn.WriteMessage(websocket.TextMessage, data)
			}
		}()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame op
			if err := json.Unmarshal(data, &frame); err != nil {
				t.Errorf("server parse: %v", err)
				return
			}
			recv <- frame
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), recv, send
}

func waitFrame(t *testing.T, ch <-chan op) op {
	t.Helper()
	select {
	case frame := <-ch:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("no frame from client")
		return op{}
	}
}

func TestSubscribeAndDispatch(t *testing.T) {
	url, fromClient, toClient := startBridge(t)

	c, err := Dial(url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	samples := make(chan Odometry, 1)
	err = c.Subscribe(TopicOdometry, MsgOdometry, func(msg json.RawMessage) {
		var odom Odometry
		if err := json.Unmarshal(msg, &odom); err != nil {
			t.Errorf("handler unmarshal: %v", err)
			return
		}
		samples <- odom
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	frame := waitFrame(t, fromClient)
	if frame.Op != "subscribe" || frame.Topic != TopicOdometry || frame.Type != MsgOdometry {
		t.Errorf("subscribe frame = %+v", frame)
	}

	raw, _ := json.Marshal(Odometry{Pose: PoseWithCovariance{Pose: RosPose{
		Position: Point{X: 1.5, Y: -0.5},
	}}})
	toClient <- op{Op: "publish", Topic: TopicOdometry, Msg: raw}

	select {
	case odom := <-samples:
		s := odom.Sample()
		if s.X != 1.5 || s.Y != -0.5 {
			t.Errorf("sample = %+v", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("odometry not dispatched to handler")
	}
}

func TestBasePublishesTwist(t *testing.T) {
	url, fromClient, _ := startBridge(t)

	c, err := Dial(url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	base, err := NewBase(c)
	if err != nil {
		t.Fatalf("NewBase: %v", err)
	}

	frame := waitFrame(t, fromClient)
	if frame.Op != "advertise" || frame.Topic != TopicCmdVel || frame.Type != MsgTwist {
		t.Errorf("advertise frame = %+v", frame)
	}

	if err := base.Publish(control.Command{Linear: 0.2, Angular: -0.3}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	frame = waitFrame(t, fromClient)
	if frame.Op != "publish" || frame.Topic != TopicCmdVel {
		t.Errorf("publish frame = %+v", frame)
	}
	var twist Twist
	if err := json.Unmarshal(frame.Msg, &twist); err != nil {
		t.Fatalf("twist unmarshal: %v", err)
	}
	if twist.Linear.X != 0.2 || twist.Angular.Z != -0.3 {
		t.Errorf("twist = %+v", twist)
	}
}

func TestDoneOnServerClose(t *testing.T) {
	url, _, _ := startBridge(t)

	c, err := Dial(url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	c.conn.Close()

	select {
	case <-c.Done():
		if c.Err() == nil {
			t.Error("Err() should report the read failure")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Done not closed after connection loss")
	}
}

func TestBumperEventPressed(t *testing.T) {
	if !(BumperEvent{State: BumperPressed}).Pressed() {
		t.Error("state=1 should be pressed")
	}
	if (BumperEvent{State: BumperReleased}).Pressed() {
		t.Error("state=0 should not be pressed")
	}
}

func TestOdometrySampleYaw(t *testing.T) {
	raw := []byte(`{"pose":{"pose":{"position":{"x":0.1,"y":0.2,"z":0.0},"orientation":{"x":0,"y":0,"z":0.7071067811865476,"w":0.7071067811865476}}}}`)

	var odom Odometry
	if err := json.Unmarshal(raw, &odom); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	s := odom.Sample()
	if yaw := s.Orientation.Yaw(); math.Abs(yaw-math.Pi/2) > 1e-9 {
		t.Errorf("yaw = %v, want pi/2", yaw)
	}
}
