// Package events fans match lifecycle events out to in-process
// subscribers (websocket writers) and, optionally, an external upstream
// such as NATS.
package events

import (
	"sync"

	"go.uber.org/zap"
)

// Event type names published by the lifecycle engine.
const (
	TypeQueueChanged    = "queue_changed"
	TypeMatchCreated    = "match_created"
	TypeCaptainElected  = "captain_elected"
	TypeDraftTypeChosen = "draft_type_chosen"
	TypePickMade        = "pick_made"
	TypeDraftClock      = "draft_clock"
	TypeMapChosen       = "map_chosen"
	TypeVetoApplied     = "veto_applied"
	TypeWagerPlaced     = "wager_placed"
	TypeWagerMatched    = "wager_matched"
	TypeWagerCancelled  = "wager_cancelled"
	TypeChalkProgress   = "chalk_progress"
	TypeMatchCancelled  = "match_cancelled"
	TypeMatchLive       = "match_live"
	TypeMatchSettled    = "match_settled"
	TypeRosterChanged   = "roster_changed"
	TypePrompt          = "prompt"
)

// Event is one broadcastable lifecycle notification. Match is zero for
// venue-scoped events like queue changes.
type Event struct {
	Type  string         `json:"type"`
	Match int64          `json:"match,omitempty"`
	Venue string         `json:"venue,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// Upstream forwards events outside the process.
type Upstream interface {
	Publish(ev Event) error
}

// Bus is an in-process publish/subscribe hub. Subscriber channels that
// fall behind have events dropped rather than blocking the publisher.
type Bus struct {
	mu       sync.RWMutex
	subs     map[int]chan Event
	nextID   int
	upstream Upstream
	log      *zap.Logger
}

func NewBus(log *zap.Logger, upstream Upstream) *Bus {
	return &Bus{
		subs:     map[int]chan Event{},
		upstream: upstream,
		log:      log,
	}
}

// Subscribe returns a buffered event channel and a cancel func that must
// be called to release it.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, 64)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
}

// Publish delivers the event to every subscriber and the upstream, if set.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.log.Warn("dropping event for slow subscriber", zap.String("type", ev.Type))
		}
	}
	b.mu.RUnlock()

	if b.upstream != nil {
		if err := b.upstream.Publish(ev); err != nil {
			b.log.Warn("upstream publish failed", zap.String("type", ev.Type), zap.Error(err))
		}
	}
}
