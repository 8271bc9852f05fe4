package types

import "github.com/eights-gg/eights-backend/internal/events"

// ClientMessage is one action sent over the websocket. Type selects the
// verb; the other fields are read per verb.
type ClientMessage struct {
	Type        string `json:"type"`
	Target      string `json:"target,omitempty"`
	Replacement string `json:"replacement,omitempty"`
	Style       string `json:"style,omitempty"`
	Choice      string `json:"choice,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Winner      int    `json:"winner,omitempty"`
}

type ServerMessage struct {
	Type  string        `json:"type"` // "Event" | "Error"
	Event *events.Event `json:"event,omitempty"`
	Error string        `json:"error,omitempty"`
}
