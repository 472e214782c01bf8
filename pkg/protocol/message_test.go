package protocol

import (
	"testing"
)

func TestMessageRoundTrip(t *testing.T) {
	msg, err := NewMessage(TypeUpdateBelief, UpdateBeliefRequest{
		RelGoalX: 1.5,
		RelGoalY: -0.5,
		Bumped:   true,
	})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}

	data, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	parsed, err := ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if parsed.Type != TypeUpdateBelief {
		t.Errorf("Type = %q, want %q", parsed.Type, TypeUpdateBelief)
	}

	var req UpdateBeliefRequest
	if err := parsed.ParseData(&req); err != nil {
		t.Fatalf("ParseData: %v", err)
	}
	if req.RelGoalX != 1.5 || req.RelGoalY != -0.5 || !req.Bumped {
		t.Errorf("payload = %+v", req)
	}
}

func TestParseActionResult(t *testing.T) {
	raw := []byte(`{"type":"action_result","ts":1700000000000,"data":{"success":true,"goal_x":1.0,"goal_y":0.0,"goal_theta":0.785}}`)

	msg, err := ParseMessage(raw)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if msg.Type != TypeActionResult {
		t.Errorf("Type = %q", msg.Type)
	}

	var res ActionResult
	if err := msg.ParseData(&res); err != nil {
		t.Fatalf("ParseData: %v", err)
	}
	if !res.Success || res.GoalX != 1.0 || res.GoalTheta != 0.785 {
		t.Errorf("result = %+v", res)
	}
}

func TestParseMessageInvalid(t *testing.T) {
	if _, err := ParseMessage([]byte("{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestParseDataNilIsNoOp(t *testing.T) {
	msg := &Message{Type: TypeModelUpdate}
	var mu ModelUpdate
	if err := msg.ParseData(&mu); err != nil {
		t.Errorf("ParseData on nil data: %v", err)
	}
}
