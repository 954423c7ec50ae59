package queue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MessageVersion is the payload version written by this build.
const MessageVersion = 1

// Message asks a worker to build a stored report.
type Message struct {
	ReportID   string `json:"reportId"`
	RequestID  string `json:"requestId,omitempty"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if msg.Version > MessageVersion {
		return Message{}, fmt.Errorf("unsupported message version %d", msg.Version)
	}
	msg.ReportID = strings.TrimSpace(msg.ReportID)
	return msg, nil
}
