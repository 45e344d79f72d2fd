package preview

import (
	"encoding/json"
	"fmt"
)

// Console levels forwarded by the bridge script.
const (
	LevelLog   = "log"
	LevelError = "error"
	LevelWarn  = "warn"
)

// ConsoleMessage is what the preview document posts to its host.
type ConsoleMessage struct {
	Type  string   `json:"type"`
	Level string   `json:"level"`
	Args  []string `json:"args"`
}

// ParseConsoleMessage decodes a posted message. Anything that is not a
// console message is rejected.
func ParseConsoleMessage(data []byte) (*ConsoleMessage, error) {
	var msg ConsoleMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode console message: %w", err)
	}
	if msg.Type != "console" {
		return nil, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	switch msg.Level {
	case LevelLog, LevelError, LevelWarn:
	default:
		msg.Level = LevelLog
	}
	if msg.Args == nil {
		msg.Args = []string{}
	}
	return &msg, nil
}
