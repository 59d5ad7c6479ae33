package models

import (
	"fmt"
	"strings"
	"time"
)

// ActionKind is a manual action the operator can request.
type ActionKind string

const (
	ActionFeed   ActionKind = "feed"
	ActionRefill ActionKind = "refill"
)

// ActionKinds lists every known action in display order.
var ActionKinds = []ActionKind{ActionFeed, ActionRefill}

// ParseActionKind normalizes and validates a user supplied action name.
func ParseActionKind(s string) (ActionKind, error) {
	switch k := ActionKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ActionFeed, ActionRefill:
		return k, nil
	}
	return "", fmt.Errorf("unknown action %q: must be feed or refill", s)
}

// CommandName is the flag written under commands/ on the remote document.
func (k ActionKind) CommandName() string {
	switch k {
	case ActionFeed:
		return "feed_now"
	case ActionRefill:
		return "refill_now"
	}
	return ""
}

// DisplayName is the operator facing action label.
func (k ActionKind) DisplayName() string {
	switch k {
	case ActionFeed:
		return "RATION DEPLOYMENT"
	case ActionRefill:
		return "PUMP ENGAGEMENT"
	}
	return strings.ToUpper(string(k))
}

// CommandMode says whether a command went to the device or was simulated.
type CommandMode string

const (
	ModeReal      CommandMode = "real"
	ModeSimulated CommandMode = "simulated"
)

// CommandRecord describes one accepted dispatch once its outcome is known.
type CommandRecord struct {
	RequestID string      `json:"request_id"`
	Kind      ActionKind  `json:"kind"`
	Mode      CommandMode `json:"mode"`
	IssuedAt  time.Time   `json:"issued_at"`
	Err       string      `json:"error,omitempty"`
}

// PendingActions maps each action to its in-flight flag.
type PendingActions map[ActionKind]bool
