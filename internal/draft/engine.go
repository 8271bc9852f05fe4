// Package draft runs the captain pick phase: a pick order, timed interactive
// windows, and a FIFO auto-pick fallback.
package draft

import (
	"context"
	"errors"
	"slices"
	"time"
)

var (
	ErrNotOnClock    = errors.New("not on the clock")
	ErrUnknownPlayer = errors.New("player not in remaining pool")
	ErrDraftOver     = errors.New("draft already complete")
)

// PickEvent is one immutable entry in the draft log.
type PickEvent struct {
	Number  int
	Captain string
	Player  string
	Auto    bool
}

// Result is the completed draft: both teams seeded with their captain at
// index 0.
type Result struct {
	Team1 []string
	Team2 []string
	Log   []PickEvent
}

// Observer receives draft progress for rendering. Calls arrive from the
// draft goroutine; Clock fires on the refresh cadence and is cosmetic only.
type Observer interface {
	TurnStarted(captain string, remaining []string, deadline time.Time)
	Clock(captain string, left time.Duration)
	Picked(ev PickEvent, remaining []string)
}

type nopObserver struct{}

func (nopObserver) TurnStarted(string, []string, time.Time) {}
func (nopObserver) Clock(string, time.Duration)             {}
func (nopObserver) Picked(PickEvent, []string)              {}

type pickMsg struct {
	captain string
	player  string
	reply   chan error
}

// Engine drives one draft. Submit may be called from any goroutine; Run owns
// all state.
type Engine struct {
	typ       Type
	winner    string
	loser     string
	remaining []string
	window    time.Duration
	tick      time.Duration
	obs       Observer
	inbox     chan pickMsg
	done      chan struct{}
}

func New(typ Type, winner, loser string, remaining []string, window, tick time.Duration, obs Observer) *Engine {
	if obs == nil {
		obs = nopObserver{}
	}
	return &Engine{
		typ:       typ,
		winner:    winner,
		loser:     loser,
		remaining: slices.Clone(remaining),
		window:    window,
		tick:      tick,
		obs:       obs,
		inbox:     make(chan pickMsg),
		done:      make(chan struct{}),
	}
}

// Submit delivers a captain's selection. Selections by anyone other than the
// captain on the clock fail with ErrNotOnClock and do not consume the window.
func (e *Engine) Submit(captain, player string) error {
	m := pickMsg{captain: captain, player: player, reply: make(chan error, 1)}
	select {
	case e.inbox <- m:
		return <-m.reply
	case <-e.done:
		return ErrDraftOver
	}
}

// Run executes every scheduled turn and returns the finished teams. It only
// errors when ctx is cancelled mid-draft.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	defer close(e.done)

	res := Result{Team1: []string{e.winner}, Team2: []string{e.loser}}
	order := Order(e.typ, e.winner, e.loser, len(e.remaining))

	for _, captain := range order {
		if len(e.remaining) == 1 {
			// no choice left, skip the window
			e.assign(&res, captain, e.remaining[0], true)
			continue
		}
		if err := e.turn(ctx, &res, captain); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (e *Engine) turn(ctx context.Context, res *Result, captain string) error {
	deadline := time.Now().Add(e.window)
	timer := time.NewTimer(e.window)
	defer timer.Stop()
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	e.obs.TurnStarted(captain, slices.Clone(e.remaining), deadline)

	for {
		select {
		case m := <-e.inbox:
			switch {
			case m.captain != captain:
				m.reply <- ErrNotOnClock
			case !slices.Contains(e.remaining, m.player):
				m.reply <- ErrUnknownPlayer
			default:
				m.reply <- nil
				e.assign(res, captain, m.player, false)
				return nil
			}
		case <-ticker.C:
			e.obs.Clock(captain, time.Until(deadline))
		case <-timer.C:
			// least-recently-listed player, FIFO fallback
			e.assign(res, captain, e.remaining[0], true)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *Engine) assign(res *Result, captain, player string, auto bool) {
	idx := slices.Index(e.remaining, player)
	e.remaining = slices.Delete(e.remaining, idx, idx+1)
	if captain == e.winner {
		res.Team1 = append(res.Team1, player)
	} else {
		res.Team2 = append(res.Team2, player)
	}
	ev := PickEvent{Number: len(res.Log) + 1, Captain: captain, Player: player, Auto: auto}
	res.Log = append(res.Log, ev)
	e.obs.Picked(ev, slices.Clone(e.remaining))
}
