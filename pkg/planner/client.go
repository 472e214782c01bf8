// Package planner provides the WebSocket client for the POMDP planner
// service.
//
// Requests are synchronous from the navigator's point of view: UpdateBelief
// and GetAction block until the planner answers or the call times out. The
// connection is re-dialed lazily on the next call after a failure, which
// matches the control loop's abort-and-retry contract — a dead planner costs
// one cycle per odometry tick, nothing more. Model-update notifications are
// routed to a callback as they arrive, independent of any call in flight.
package planner

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sigma-robotics/go-sigma/internal/log"
	"github.com/sigma-robotics/go-sigma/pkg/nav"
	"github.com/sigma-robotics/go-sigma/pkg/protocol"
)

const (
	dialTimeout    = 5 * time.Second
	requestTimeout = 5 * time.Second
	writeTimeout   = 5 * time.Second
)

// ErrPlannerDeclined is returned when the planner answers a request with
// success=false, typically before enough belief updates have accumulated.
var ErrPlannerDeclined = errors.New("planner declined request")

// Client talks to the planner service over a single WebSocket connection.
// It implements nav.Planner.
type Client struct {
	url           string
	onModelUpdate func(reason string)

	// reqMu serializes requests; the navigator is single-threaded but the
	// dashboard must never observe interleaved request/response pairs.
	reqMu sync.Mutex

	mu     sync.Mutex // guards conn and respCh
	conn   *websocket.Conn
	respCh chan *protocol.Message
}

// New creates a planner client for the given ws:// URL. No connection is made
// until the first request.
func New(url string) *Client {
	return &Client{url: url}
}

// OnModelUpdate sets the callback invoked when the planner announces a model
// change. The callback runs on the read-pump goroutine and must not block.
func (c *Client) OnModelUpdate(fn func(reason string)) {
	c.onModelUpdate = fn
}

// UpdateBelief reports the pursued relative goal and bump observation.
func (c *Client) UpdateBelief(relGoalX, relGoalY float64, bumped bool) error {
	resp, err := c.call(protocol.TypeUpdateBelief, protocol.UpdateBeliefRequest{
		RelGoalX: relGoalX,
		RelGoalY: relGoalY,
		Bumped:   bumped,
	}, protocol.TypeBeliefResult)
	if err != nil {
		return err
	}

	var res protocol.BeliefResult
	if err := resp.ParseData(&res); err != nil {
		return fmt.Errorf("parse belief result: %w", err)
	}
	if !res.Success {
		return fmt.Errorf("update belief: %w", ErrPlannerDeclined)
	}
	return nil
}

// GetAction fetches the next relative-frame goal.
func (c *Client) GetAction() (nav.Action, error) {
	resp, err := c.call(protocol.TypeGetAction, protocol.GetActionRequest{}, protocol.TypeActionResult)
	if err != nil {
		return nav.Action{}, err
	}

	var res protocol.ActionResult
	if err := resp.ParseData(&res); err != nil {
		return nav.Action{}, fmt.Errorf("parse action result: %w", err)
	}
	if !res.Success {
		return nav.Action{}, fmt.Errorf("get action: %w", ErrPlannerDeclined)
	}
	return nav.Action{GoalX: res.GoalX, GoalY: res.GoalY, GoalTheta: res.GoalTheta}, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// call sends one request and waits for the matching response type.
func (c *Client) call(reqType protocol.MessageType, payload interface{}, wantType protocol.MessageType) (*protocol.Message, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	conn, respCh, err := c.ensureConnected()
	if err != nil {
		return nil, err
	}

	// Drop any stale response from an earlier timed-out call.
	select {
	case <-respCh:
	default:
	}

	msg, err := protocol.NewMessage(reqType, payload)
	if err != nil {
		return nil, err
	}
	data, err := msg.Bytes()
	if err != nil {
		return nil, err
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.drop(conn)
		return nil, fmt.Errorf("planner write: %w", err)
	}

	select {
	case resp, ok := <-respCh:
		if !ok {
			return nil, errors.New("planner connection closed")
		}
		if resp.Type != wantType {
			c.drop(conn)
			return nil, fmt.Errorf("planner answered %q, want %q", resp.Type, wantType)
		}
		return resp, nil

	case <-time.After(requestTimeout):
		c.drop(conn)
		return nil, fmt.Errorf("planner %s: timeout after %v", reqType, requestTimeout)
	}
}

// ensureConnected dials on demand and starts the read pump.
func (c *Client) ensureConnected() (*websocket.Conn, chan *protocol.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn, c.respCh, nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("planner dial %s: %w", c.url, err)
	}

	c.conn = conn
	c.respCh = make(chan *protocol.Message, 1)
	go c.readPump(conn, c.respCh)

	log.Info("planner connected", "url", c.url)
	return c.conn, c.respCh, nil
}

// drop discards a connection after an error so the next call re-dials.
func (c *Client) drop(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
	conn.Close()
}

// readPump routes responses to the waiting call and notifications to the
// model-update callback.
func (c *Client) readPump(conn *websocket.Conn, respCh chan *protocol.Message) {
	defer close(respCh)
	defer c.drop(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Warn("planner connection lost", "err", err)
			return
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			log.Warn("planner sent malformed message", "err", err)
			continue
		}

		switch msg.Type {
		case protocol.TypeModelUpdate:
			var mu protocol.ModelUpdate
			if err := msg.ParseData(&mu); err != nil {
				log.Warn("malformed model update", "err", err)
				continue
			}
			log.Info("model update notification", "reason", mu.Reason)
			if c.onModelUpdate != nil {
				c.onModelUpdate(mu.Reason)
			}

		case protocol.TypeBeliefResult, protocol.TypeActionResult:
			select {
			case respCh <- msg:
			default:
				// No call waiting; response from a timed-out call.
			}

		default:
			log.Warn("unexpected planner message", "type", msg.Type)
		}
	}
}
