// Package protocol defines the WebSocket message types for the link between
// the sigma-nav controller and the POMDP planner service.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Controller → Planner requests
	TypeUpdateBelief MessageType = "update_belief" // Report observation for belief update
	TypeGetAction    MessageType = "get_action"    // Fetch the next relative goal

	// Planner → Controller responses
	TypeBeliefResult MessageType = "belief_result" // UpdateBelief outcome
	TypeActionResult MessageType = "action_result" // GetAction outcome

	// Planner → Controller notifications
	TypeModelUpdate MessageType = "model_update" // Model changed; session must reset
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Controller → Planner
// =============================================================================

// UpdateBeliefRequest reports the pursued relative goal and bump observation.
// The relative goal is echoed back exactly as the planner issued it so the
// planner can resolve which action it was.
type UpdateBeliefRequest struct {
	RelGoalX float64 `json:"rel_goal_x"`
	RelGoalY float64 `json:"rel_goal_y"`
	Bumped   bool    `json:"bumped"`
}

// GetActionRequest asks for the current action. It carries no fields; the
// planner answers from its belief state.
type GetActionRequest struct{}

// =============================================================================
// Planner → Controller
// =============================================================================

// BeliefResult is the outcome of an update_belief request. Success is false
// when the planner has not accumulated enough updates yet.
type BeliefResult struct {
	Success bool `json:"success"`
}

// ActionResult carries the next relative-frame goal.
type ActionResult struct {
	Success   bool    `json:"success"`
	GoalX     float64 `json:"goal_x"`
	GoalY     float64 `json:"goal_y"`
	GoalTheta float64 `json:"goal_theta"`
}

// ModelUpdate announces that the planner's model changed and the controller
// session must reset. Fire-and-forget; there is no response.
type ModelUpdate struct {
	Reason string `json:"reason,omitempty"`
}
