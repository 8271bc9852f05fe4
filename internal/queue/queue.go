// Package queue admits players into per-venue queues and spawns a match
// once a queue fills. A single goroutine in Run owns every queue, the
// active-user set and the live match registry.
package queue

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/eights-gg/eights-backend/internal/events"
	"github.com/eights-gg/eights-backend/internal/match"
	"github.com/eights-gg/eights-backend/internal/store"
)

var (
	ErrAlreadyActive = errors.New("queue: user already queued or in a match")
	ErrAlreadyQueued = errors.New("queue: user already in this queue")
	ErrQueueFull     = errors.New("queue: queue is full")
	ErrNotQueued     = errors.New("queue: user not in this queue")
	ErrMatchNotFound = errors.New("queue: no such live match")
)

type msg interface{ queueMsg() }

type joinMsg struct {
	venue string
	user  string
	reply chan error
}

type leaveMsg struct {
	venue string
	user  string
	reply chan error
}

type reserveMsg struct {
	user  string
	reply chan error
}

type releaseMsg struct{ users []string }

type matchDoneMsg struct{ number int64 }

type lookupMsg struct {
	number int64
	reply  chan *match.Coordinator
}

func (joinMsg) queueMsg()      {}
func (leaveMsg) queueMsg()     {}
func (reserveMsg) queueMsg()   {}
func (releaseMsg) queueMsg()   {}
func (matchDoneMsg) queueMsg() {}
func (lookupMsg) queueMsg()    {}

// Manager is the admission actor. It implements match.UserTracker so
// sessions can reserve substitutes and release rosters on teardown.
type Manager struct {
	deps  match.Deps
	cfg   match.Config
	log   *zap.Logger
	inbox chan msg

	// owned by the Run goroutine
	queues  map[string][]string
	active  map[string]bool
	matches map[int64]*match.Coordinator
	runCtx  context.Context
}

func NewManager(deps match.Deps, cfg match.Config) *Manager {
	m := &Manager{
		deps:    deps,
		cfg:     cfg,
		log:     deps.Log,
		inbox:   make(chan msg),
		queues:  map[string][]string{},
		active:  map[string]bool{},
		matches: map[int64]*match.Coordinator{},
	}
	m.deps.Tracker = m
	return m
}

// Join adds the user to the venue's queue, forming a match when it fills.
func (m *Manager) Join(venue, user string) error {
	r := joinMsg{venue: venue, user: user, reply: make(chan error, 1)}
	m.inbox <- r
	return <-r.reply
}

// Leave removes the user from the venue's queue.
func (m *Manager) Leave(venue, user string) error {
	r := leaveMsg{venue: venue, user: user, reply: make(chan error, 1)}
	m.inbox <- r
	return <-r.reply
}

// Reserve claims an active slot for a user outside any queue, such as an
// incoming substitute.
func (m *Manager) Reserve(user string) error {
	r := reserveMsg{user: user, reply: make(chan error, 1)}
	m.inbox <- r
	return <-r.reply
}

// Release frees users' active slots after teardown or substitution.
func (m *Manager) Release(users ...string) {
	m.inbox <- releaseMsg{users: users}
}

// Match returns the live coordinator for a match number, if any.
func (m *Manager) Match(number int64) (*match.Coordinator, error) {
	r := lookupMsg{number: number, reply: make(chan *match.Coordinator, 1)}
	m.inbox <- r
	c := <-r.reply
	if c == nil {
		return nil, ErrMatchNotFound
	}
	return c, nil
}

// Submit routes an action to a live match.
func (m *Manager) Submit(number int64, user string, a match.Action) error {
	c, err := m.Match(number)
	if err != nil {
		return err
	}
	return c.Submit(user, a)
}

// Run serves admission messages until the context ends.
func (m *Manager) Run(ctx context.Context) {
	m.runCtx = ctx
	for {
		select {
		case raw := <-m.inbox:
			switch r := raw.(type) {
			case joinMsg:
				r.reply <- m.join(r.venue, r.user)
			case leaveMsg:
				r.reply <- m.leave(r.venue, r.user)
			case reserveMsg:
				if m.active[r.user] {
					r.reply <- ErrAlreadyActive
				} else {
					m.active[r.user] = true
					r.reply <- nil
				}
			case releaseMsg:
				for _, u := range r.users {
					delete(m.active, u)
				}
			case matchDoneMsg:
				delete(m.matches, r.number)
			case lookupMsg:
				r.reply <- m.matches[r.number]
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) join(venue, user string) error {
	q := m.queues[venue]
	if contains(q, user) {
		return ErrAlreadyQueued
	}
	if m.active[user] {
		return ErrAlreadyActive
	}
	if len(q) >= m.cfg.PlayersPerMatch {
		return ErrQueueFull
	}
	q = append(q, user)
	m.queues[venue] = q
	m.active[user] = true
	m.publishQueue(venue, q)

	if len(q) == m.cfg.PlayersPerMatch {
		players := q
		m.queues[venue] = nil
		m.publishQueue(venue, nil)
		m.launch(venue, players)
	}
	return nil
}

func (m *Manager) leave(venue, user string) error {
	q := m.queues[venue]
	idx := -1
	for i, u := range q {
		if u == user {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotQueued
	}
	m.queues[venue] = append(q[:idx], q[idx+1:]...)
	delete(m.active, user)
	m.publishQueue(venue, m.queues[venue])
	return nil
}

// launch allocates a durable match number and starts the coordinator on
// its own goroutine. Queued users stay active until the match releases
// them.
func (m *Manager) launch(venue string, players []string) {
	number, err := m.deps.Store.NextMatchNumber(m.runCtx)
	if err != nil {
		m.log.Error("allocating match number failed, releasing queue", zap.Error(err))
		for _, u := range players {
			delete(m.active, u)
		}
		return
	}
	rec := store.MatchRecord{Number: number, Players: players, Status: store.StatusDrafting}
	if err := m.deps.Store.SaveMatch(m.runCtx, rec); err != nil {
		m.log.Error("saving match record failed", zap.Int64("match", number), zap.Error(err))
	}

	c := match.NewCoordinator(m.deps, m.cfg, number, venue, players, func() {
		select {
		case m.inbox <- matchDoneMsg{number: number}:
		case <-m.runCtx.Done():
		}
	})
	m.matches[number] = c
	m.log.Info("match formed", zap.Int64("match", number), zap.String("venue", venue))
	go c.Run(m.runCtx)
}

func (m *Manager) publishQueue(venue string, q []string) {
	users := append([]string(nil), q...)
	m.deps.Bus.Publish(events.Event{
		Type: events.TypeQueueChanged, Venue: venue,
		Data: map[string]any{"users": users, "capacity": m.cfg.PlayersPerMatch},
	})
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
