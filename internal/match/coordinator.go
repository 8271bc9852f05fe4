// Package match runs one match's lifecycle end to end: the coordinator
// covers captain election through the draft, then hands the live match to
// a session for maps, wagers, chalk votes and settlement.
package match

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eights-gg/eights-backend/internal/draft"
	"github.com/eights-gg/eights-backend/internal/events"
	"github.com/eights-gg/eights-backend/internal/rps"
	"github.com/eights-gg/eights-backend/internal/store"
	"github.com/eights-gg/eights-backend/internal/wager"
)

var (
	ErrWindowClosed = errors.New("match: no open window for that action")
	ErrNotCaptain   = errors.New("match: captains only")
	ErrAlreadyVoted = errors.New("match: already voted")
	ErrNotInMatch   = errors.New("match: not a participant")
	ErrBadTarget    = errors.New("match: target is not a valid option")
)

// UserTracker releases participants back to the free pool on teardown and
// reserves incoming substitutes. Implemented by the queue manager.
type UserTracker interface {
	Reserve(user string) error
	Release(users ...string)
}

// Deps are the shared services a match borrows from the process.
type Deps struct {
	Store   store.Store
	Ledger  *wager.Ledger
	Bus     *events.Bus
	Surface Surface
	Tracker UserTracker
	Log     *zap.Logger
}

type phase int

const (
	phaseElecting phase = iota
	phaseTypeVote
	phaseDuel
	phaseDrafting
	phaseSession
	phaseDone
)

type voteMsg struct {
	user   string
	target string
	reply  chan error
}

// Coordinator owns one match from creation to handoff. Run drives the
// state machine on its own goroutine; Submit may be called from anywhere
// and routes the action to whichever window is open.
type Coordinator struct {
	deps    Deps
	cfg     Config
	log     *zap.Logger
	matchID int64
	venue   string
	players []string
	rnd     *rand.Rand

	mu         sync.Mutex
	phase      phase
	ballot     chan voteMsg
	ballotDone chan struct{}
	duel       *rps.Duel
	engine     *draft.Engine
	session    *Session

	onDone func()
}

func NewCoordinator(deps Deps, cfg Config, matchID int64, venue string, players []string, onDone func()) *Coordinator {
	return &Coordinator{
		deps:    deps,
		cfg:     cfg,
		log:     deps.Log.With(zap.Int64("match", matchID)),
		matchID: matchID,
		venue:   venue,
		players: players,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		onDone:  onDone,
	}
}

// Submit delivers one participant action. Actions with no open window fail
// with ErrWindowClosed; everything past the draft is forwarded to the
// session.
func (c *Coordinator) Submit(user string, a Action) error {
	c.mu.Lock()
	ph, ballot, done := c.phase, c.ballot, c.ballotDone
	duel, engine, session := c.duel, c.engine, c.session
	c.mu.Unlock()

	switch a := a.(type) {
	case CaptainVote:
		if ph != phaseElecting || ballot == nil {
			return ErrWindowClosed
		}
		return castVote(ballot, done, voteMsg{user: user, target: a.Target, reply: make(chan error, 1)})
	case DraftTypeVote:
		if ph != phaseTypeVote || ballot == nil {
			return ErrWindowClosed
		}
		return castVote(ballot, done, voteMsg{user: user, target: string(a.Type), reply: make(chan error, 1)})
	case RPSChoice:
		if duel == nil {
			return ErrWindowClosed
		}
		return duel.Submit(user, a.Choice)
	case Pick:
		if engine == nil {
			return ErrWindowClosed
		}
		return engine.Submit(user, a.Target)
	default:
		if session == nil {
			return ErrWindowClosed
		}
		return session.Submit(user, a)
	}
}

func castVote(ballot chan voteMsg, done chan struct{}, m voteMsg) error {
	select {
	case ballot <- m:
		return <-m.reply
	case <-done:
		return ErrWindowClosed
	}
}

func (c *Coordinator) setPhase(ph phase, set func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = ph
	c.ballot, c.ballotDone, c.duel, c.engine = nil, nil, nil, nil
	if set != nil {
		set()
	}
}

// alive reports whether the match's surface can still reach anyone.
func (c *Coordinator) alive() bool {
	for _, p := range c.players {
		if c.deps.Surface.Alive(p) {
			return true
		}
	}
	return false
}

// Run drives the match through election, negotiation, tie-break and draft,
// then runs the post-draft session in place.
func (c *Coordinator) Run(ctx context.Context) {
	defer func() {
		if c.onDone != nil {
			c.onDone()
		}
	}()

	c.deps.Bus.Publish(events.Event{
		Type: events.TypeMatchCreated, Match: c.matchID, Venue: c.venue,
		Data: map[string]any{"players": c.players},
	})

	if !c.alive() {
		c.cancel(ctx, "surface unreachable before election")
		return
	}
	cap1, cap2, err := c.electCaptains(ctx)
	if err != nil {
		c.cancel(ctx, "election aborted")
		return
	}
	c.deps.Bus.Publish(events.Event{
		Type: events.TypeCaptainElected, Match: c.matchID,
		Data: map[string]any{"captains": []string{cap1, cap2}},
	})

	if !c.alive() {
		c.cancel(ctx, "surface unreachable before draft type vote")
		return
	}
	typ, err := c.resolveDraftType(ctx, cap1, cap2)
	if err != nil {
		c.cancel(ctx, "draft type vote aborted")
		return
	}
	c.deps.Bus.Publish(events.Event{
		Type: events.TypeDraftTypeChosen, Match: c.matchID,
		Data: map[string]any{"type": string(typ)},
	})

	if !c.alive() {
		c.cancel(ctx, "surface unreachable before tie-break")
		return
	}
	winner, loser, err := c.runDuel(ctx, cap1, cap2, "first pick")
	if err != nil {
		c.cancel(ctx, "tie-break aborted")
		return
	}

	if !c.alive() {
		c.cancel(ctx, "surface unreachable before draft")
		return
	}
	res, err := c.runDraft(ctx, typ, winner, loser)
	if err != nil {
		c.cancel(ctx, "draft aborted")
		return
	}

	rec := store.MatchRecord{
		Number: c.matchID, Team1: res.Team1, Team2: res.Team2,
		DraftType: string(typ), Status: store.StatusLive,
	}
	if err := c.deps.Store.UpdateMatch(ctx, rec); err != nil {
		c.log.Error("persisting draft result failed", zap.Error(err))
	}
	c.deps.Bus.Publish(events.Event{
		Type: events.TypeMatchLive, Match: c.matchID,
		Data: map[string]any{"team1": res.Team1, "team2": res.Team2, "type": string(typ)},
	})

	sess := NewSession(c.deps, c.cfg, c.matchID, res.Team1, res.Team2)
	c.setPhase(phaseSession, func() { c.session = sess })
	sess.Run(ctx)
	c.setPhase(phaseDone, nil)
}

func (c *Coordinator) cancel(ctx context.Context, reason string) {
	c.log.Info("match cancelled", zap.String("reason", reason))
	if err := c.deps.Store.UpdateMatch(ctx, store.MatchRecord{Number: c.matchID, Status: store.StatusCancelled}); err != nil {
		c.log.Error("marking match cancelled failed", zap.Error(err))
	}
	if _, err := c.deps.Ledger.Settle(ctx, c.matchID, nil); err != nil {
		c.log.Error("refunding wagers on cancel failed", zap.Error(err))
	}
	c.deps.Bus.Publish(events.Event{Type: events.TypeMatchCancelled, Match: c.matchID})
	c.deps.Tracker.Release(c.players...)
	c.setPhase(phaseDone, nil)
}

// electCaptains opens the single-vote ballot over all players and closes it
// at the deadline, falling back to random picks per the tally rules.
func (c *Coordinator) electCaptains(ctx context.Context) (string, string, error) {
	ballot := make(chan voteMsg)
	done := make(chan struct{})
	defer close(done)
	c.setPhase(phaseElecting, func() { c.ballot, c.ballotDone = ballot, done })

	deadline := time.Now().Add(c.cfg.CaptainVoteWindow)
	c.deps.Surface.Present(c.matchID, Prompt{Kind: PromptCaptainVote, Options: c.players, Deadline: deadline})

	timer := time.NewTimer(c.cfg.CaptainVoteWindow)
	defer timer.Stop()

	votes := map[string]string{}
	for {
		select {
		case m := <-ballot:
			switch {
			case !contains(c.players, m.user):
				m.reply <- ErrNotInMatch
			case !contains(c.players, m.target):
				m.reply <- ErrBadTarget
			default:
				if _, dup := votes[m.user]; dup {
					m.reply <- ErrAlreadyVoted
					continue
				}
				votes[m.user] = m.target
				m.reply <- nil
			}
		case <-timer.C:
			tally := map[string]int{}
			for _, target := range votes {
				tally[target]++
			}
			cap1, cap2 := electFromTally(tally, c.players, c.rnd)
			return cap1, cap2, nil
		case <-ctx.Done():
			return "", "", ctx.Err()
		}
	}
}

// electFromTally picks two captains from a closed ballot. No votes means
// two uniform picks. A tied top tier yields two from that tier; a single
// leader takes the second captain from the next tier, or from everyone
// else when no second tier exists.
func electFromTally(tally map[string]int, players []string, rnd *rand.Rand) (string, string) {
	if len(tally) == 0 {
		i, j := twoDistinct(len(players), rnd)
		return players[i], players[j]
	}

	max := 0
	for _, n := range tally {
		if n > max {
			max = n
		}
	}
	var top []string
	for _, p := range players {
		if tally[p] == max {
			top = append(top, p)
		}
	}
	if len(top) >= 2 {
		i, j := twoDistinct(len(top), rnd)
		return top[i], top[j]
	}

	first := top[0]
	second := 0
	for _, n := range tally {
		if n < max && n > second {
			second = n
		}
	}
	if second > 0 {
		var tier []string
		for _, p := range players {
			if p != first && tally[p] == second {
				tier = append(tier, p)
			}
		}
		return first, tier[rnd.Intn(len(tier))]
	}

	var rest []string
	for _, p := range players {
		if p != first {
			rest = append(rest, p)
		}
	}
	return first, rest[rnd.Intn(len(rest))]
}

func twoDistinct(n int, rnd *rand.Rand) (int, int) {
	i := rnd.Intn(n)
	j := rnd.Intn(n - 1)
	if j >= i {
		j++
	}
	return i, j
}

// resolveDraftType collects the captains' order preferences. Agreement or
// a lone vote decides directly; a split goes to a duel whose winner's vote
// stands; silence defaults to straight.
func (c *Coordinator) resolveDraftType(ctx context.Context, cap1, cap2 string) (draft.Type, error) {
	ballot := make(chan voteMsg)
	done := make(chan struct{})
	defer close(done)
	c.setPhase(phaseTypeVote, func() { c.ballot, c.ballotDone = ballot, done })

	deadline := time.Now().Add(c.cfg.DraftTypeVoteWindow)
	c.deps.Surface.Present(c.matchID, Prompt{
		Kind: PromptDraftType, To: []string{cap1, cap2},
		Options: []string{string(draft.Straight), string(draft.Snake)}, Deadline: deadline,
	})

	timer := time.NewTimer(c.cfg.DraftTypeVoteWindow)
	defer timer.Stop()

	votes := map[string]draft.Type{}
	for len(votes) < 2 {
		select {
		case m := <-ballot:
			typ := draft.Type(m.target)
			switch {
			case m.user != cap1 && m.user != cap2:
				m.reply <- ErrNotCaptain
			case !draft.ValidType(typ):
				m.reply <- ErrBadTarget
			default:
				if _, dup := votes[m.user]; dup {
					m.reply <- ErrAlreadyVoted
					continue
				}
				votes[m.user] = typ
				m.reply <- nil
			}
		case <-timer.C:
			return c.pickType(ctx, cap1, cap2, votes)
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return c.pickType(ctx, cap1, cap2, votes)
}

func (c *Coordinator) pickType(ctx context.Context, cap1, cap2 string, votes map[string]draft.Type) (draft.Type, error) {
	v1, ok1 := votes[cap1]
	v2, ok2 := votes[cap2]
	switch {
	case ok1 && ok2 && v1 == v2:
		return v1, nil
	case ok1 && ok2:
		winner, _, err := c.runDuel(ctx, cap1, cap2, "draft type")
		if err != nil {
			return "", err
		}
		return votes[winner], nil
	case ok1:
		return v1, nil
	case ok2:
		return v2, nil
	default:
		return draft.Straight, nil
	}
}

func (c *Coordinator) runDuel(ctx context.Context, cap1, cap2, purpose string) (string, string, error) {
	d := rps.NewDuel(cap1, cap2, purpose, c.cfg.RPSWindow)
	c.setPhase(phaseDuel, func() { c.duel = d })

	c.deps.Surface.Present(c.matchID, Prompt{
		Kind: PromptRPS, To: []string{cap1, cap2},
		Options: []string{string(rps.Rock), string(rps.Paper), string(rps.Scissors)},
		Deadline: time.Now().Add(c.cfg.RPSWindow),
	})
	return d.Run(ctx)
}

func (c *Coordinator) runDraft(ctx context.Context, typ draft.Type, winner, loser string) (draft.Result, error) {
	remaining := make([]string, 0, len(c.players)-2)
	for _, p := range c.players {
		if p != winner && p != loser {
			remaining = append(remaining, p)
		}
	}

	eng := draft.New(typ, winner, loser, remaining, c.cfg.PickWindow, c.cfg.ClockRefresh, draftObserver{c})
	c.setPhase(phaseDrafting, func() { c.engine = eng })
	return eng.Run(ctx)
}

// draftObserver renders draft progress onto the bus and surface.
type draftObserver struct{ c *Coordinator }

func (o draftObserver) TurnStarted(captain string, remaining []string, deadline time.Time) {
	o.c.deps.Surface.Present(o.c.matchID, Prompt{
		Kind: PromptPick, To: []string{captain}, Options: remaining, Deadline: deadline,
	})
}

func (o draftObserver) Clock(captain string, left time.Duration) {
	o.c.deps.Bus.Publish(events.Event{
		Type: events.TypeDraftClock, Match: o.c.matchID,
		Data: map[string]any{"captain": captain, "seconds": int(left.Seconds())},
	})
}

func (o draftObserver) Picked(ev draft.PickEvent, remaining []string) {
	o.c.deps.Bus.Publish(events.Event{
		Type: events.TypePickMade, Match: o.c.matchID,
		Data: map[string]any{
			"number": ev.Number, "captain": ev.Captain,
			"player": ev.Player, "auto": ev.Auto, "remaining": remaining,
		},
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
