package match

import (
	"time"

	"github.com/eights-gg/eights-backend/internal/events"
)

// PromptKind names what a prompt is asking for.
type PromptKind string

const (
	PromptCaptainVote PromptKind = "captain_vote"
	PromptDraftType   PromptKind = "draft_type"
	PromptRPS         PromptKind = "rps"
	PromptPick        PromptKind = "pick"
	PromptMapVote     PromptKind = "map_vote"
)

// Prompt asks a set of users to act. A zero Deadline means the prompt
// stays open.
type Prompt struct {
	Kind     PromptKind
	To       []string // empty means everyone in the match
	Options  []string
	Deadline time.Time
}

// Surface is how a match talks back to its participants.
type Surface interface {
	// Present shows a prompt to its recipients.
	Present(matchID int64, p Prompt)
	// Reject delivers an ephemeral error for one user's action.
	Reject(matchID int64, user string, err error)
	// Alive reports whether the user is still reachable.
	Alive(user string) bool
}

// Presence answers liveness queries, typically backed by the websocket
// connection registry.
type Presence interface {
	Connected(user string) bool
}

type alwaysPresent struct{}

func (alwaysPresent) Connected(string) bool { return true }

// BusSurface renders prompts and rejections as bus events.
type BusSurface struct {
	bus      *events.Bus
	presence Presence
}

func NewBusSurface(bus *events.Bus, presence Presence) *BusSurface {
	if presence == nil {
		presence = alwaysPresent{}
	}
	return &BusSurface{bus: bus, presence: presence}
}

func (s *BusSurface) Present(matchID int64, p Prompt) {
	data := map[string]any{
		"kind":    string(p.Kind),
		"to":      p.To,
		"options": p.Options,
	}
	if !p.Deadline.IsZero() {
		data["deadline"] = p.Deadline.Unix()
	}
	s.bus.Publish(events.Event{
		Type:  events.TypePrompt,
		Match: matchID,
		Data:  data,
	})
}

func (s *BusSurface) Reject(matchID int64, user string, err error) {
	s.bus.Publish(events.Event{
		Type:  events.TypePrompt,
		Match: matchID,
		Data: map[string]any{
			"kind":  "error",
			"to":    []string{user},
			"error": err.Error(),
		},
	})
}

func (s *BusSurface) Alive(user string) bool {
	return s.presence.Connected(user)
}
