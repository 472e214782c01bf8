// Package rosbridge connects the controller to the robot through a
// rosbridge-protocol WebSocket: odometry and bumper events in, velocity
// commands out.
//
// Only the three ops the controller needs are implemented (subscribe,
// advertise, publish). A read-pump failure closes the client and surfaces on
// Done(); the process exits and supervision restarts it, keeping transport
// recovery outside the control semantics.
package rosbridge

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sigma-robotics/go-sigma/internal/log"
)

const (
	dialTimeout  = 5 * time.Second
	writeTimeout = 5 * time.Second
)

// op is a rosbridge protocol frame.
type op struct {
	Op    string          `json:"op"`
	Topic string          `json:"topic,omitempty"`
	Type  string          `json:"type,omitempty"`
	Msg   json.RawMessage `json:"msg,omitempty"`
}

// Handler receives the raw ROS message published on a subscribed topic.
type Handler func(msg json.RawMessage)

// Client is a minimal rosbridge websocket client.
type Client struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu       sync.Mutex
	handlers map[string]Handler

	done chan struct{}
	once sync.Once
	err  error
}

// Dial connects to a rosbridge server and starts the read pump.
func Dial(url string) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("rosbridge dial %s: %w", url, err)
	}

	c := &Client{
		conn:     conn,
		handlers: make(map[string]Handler),
		done:     make(chan struct{}),
	}
	go c.readPump()

	log.Info("rosbridge connected", "url", url)
	return c, nil
}

// Subscribe registers a handler and asks the bridge for the topic.
func (c *Client) Subscribe(topic, msgType string, handler Handler) error {
	c.mu.Lock()
	c.handlers[topic] = handler
	c.mu.Unlock()

	return c.write(op{Op: "subscribe", Topic: topic, Type: msgType})
}

// Advertise announces a topic this client will publish on.
func (c *Client) Advertise(topic, msgType string) error {
	return c.write(op{Op: "advertise", Topic: topic, Type: msgType})
}

// Publish sends a ROS message on a previously advertised topic.
func (c *Client) Publish(topic string, msg interface{}) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", topic, err)
	}
	return c.write(op{Op: "publish", Topic: topic, Msg: raw})
}

// Done is closed when the connection dies; Err carries the cause.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that terminated the connection, if any.
func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Close shuts the connection down.
func (c *Client) Close() error {
	c.finish(nil)
	return c.conn.Close()
}

func (c *Client) write(frame op) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("rosbridge write %s: %w", frame.Op, err)
	}
	return nil
}

func (c *Client) finish(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}

// readPump dispatches incoming publishes to the registered topic handlers.
func (c *Client) readPump() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.finish(fmt.Errorf("rosbridge read: %w", err))
			return
		}

		var frame op
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Warn("rosbridge sent malformed frame", "err", err)
			continue
		}
		if frame.Op != "publish" {
			continue
		}

		c.mu.Lock()
		handler := c.handlers[frame.Topic]
		c.mu.Unlock()

		if handler != nil {
			handler(frame.Msg)
		}
	}
}
