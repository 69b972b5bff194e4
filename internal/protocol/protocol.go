// Package protocol defines the JSON wire format spoken over the debate
// websocket: tagged server events inbound, action commands outbound.
package protocol

import (
	"encoding/json"
	"fmt"

	"platformwar/arena/internal/types"
)

// Inbound event types.
const (
	EventSystem          = "system"
	EventTurnStart       = "turn_start"
	EventFragment        = "fragment"
	EventTurnEnd         = "turn_end"
	EventInfo            = "info"
	EventError           = "error"
	EventSessionComplete = "session_complete"
)

// CompletionSentinel is the exact info-event content the legacy server
// emits when the round budget is exhausted. Kept byte-for-byte for wire
// compatibility; newer servers send a session_complete event instead.
const CompletionSentinel = "Max rounds reached. Debate finished."

// ServerEvent is one decoded inbound frame. Which fields are populated
// depends on Type; unknown types decode fine and are ignored upstream.
type ServerEvent struct {
	Type        string         `json:"type"`
	Platform    types.Platform `json:"platform,omitempty"`
	Name        string         `json:"name,omitempty"`
	Content     string         `json:"content,omitempty"`
	FullContent string         `json:"full_content,omitempty"`
	Round       int            `json:"round,omitempty"`
}

// Decode parses one raw text frame. A malformed frame is the caller's to
// drop; it must never take the connection down.
func Decode(data []byte) (ServerEvent, error) {
	var ev ServerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ServerEvent{}, fmt.Errorf("decode frame: %w", err)
	}
	if ev.Type == "" {
		return ServerEvent{}, fmt.Errorf("decode frame: missing type")
	}
	return ev, nil
}

type command struct {
	Action  string `json:"action"`
	Payload any    `json:"payload,omitempty"`
}

type startPayload struct {
	Topic     string           `json:"topic"`
	Platforms []types.Platform `json:"platforms"`
	APIKey    string           `json:"api_key,omitempty"`
	MaxRounds int              `json:"max_rounds"`
}

// EncodeStart builds the start command frame from the selected config.
func EncodeStart(cfg types.DebateConfig) ([]byte, error) {
	return json.Marshal(command{
		Action: "start",
		Payload: startPayload{
			Topic:     cfg.Topic,
			Platforms: cfg.Platforms,
			APIKey:    cfg.APIKey,
			MaxRounds: cfg.MaxRounds,
		},
	})
}

// EncodeStop builds the bodyless stop command frame.
func EncodeStop() ([]byte, error) {
	return json.Marshal(command{Action: "stop"})
}
