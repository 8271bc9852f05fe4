package match

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eights-gg/eights-backend/internal/events"
	"github.com/eights-gg/eights-backend/internal/mapflow"
	"github.com/eights-gg/eights-backend/internal/rating"
	"github.com/eights-gg/eights-backend/internal/store"
)

var (
	ErrNotTeammate   = errors.New("match: target is not on your team")
	ErrCaptainSlot   = errors.New("match: cannot substitute the captain slot")
	ErrAlreadyEnded  = errors.New("match: already ended")
	ErrBadWinner     = errors.New("match: winner must be team 1 or 2")
	ErrUnknownAction = errors.New("match: action not valid for a live match")
)

type sessionMsg struct {
	user   string
	action Action
	reply  chan error
}

// Session owns a live match after the draft: map selection, the wager pot,
// chalk votes, roster edits and result reporting. A single goroutine in
// Run owns all state; Submit is safe from anywhere.
type Session struct {
	deps    Deps
	cfg     Config
	log     *zap.Logger
	matchID int64

	inbox chan sessionMsg
	done  chan struct{}

	team1, team2 []string
	flow         *mapflow.Flow
	pot          decimal.Decimal
	chalk        map[string]bool
	ended        bool
}

func NewSession(deps Deps, cfg Config, matchID int64, team1, team2 []string) *Session {
	s := &Session{
		deps:    deps,
		cfg:     cfg,
		log:     deps.Log.With(zap.Int64("match", matchID)),
		matchID: matchID,
		inbox:   make(chan sessionMsg),
		done:    make(chan struct{}),
		team1:   append([]string(nil), team1...),
		team2:   append([]string(nil), team2...),
		chalk:   map[string]bool{},
	}
	s.flow = mapflow.New(
		mapflow.Config{
			CaptainVotesRequired: cfg.MapCaptainVotes,
			PlayerVotesRequired:  cfg.MapPlayerVotes,
			MaxGamePicks:         cfg.MaxGamePicks,
			VetoPerCaptain:       cfg.VetoPerCaptain,
		},
		mapflow.DefaultPools(), team1[0], team2[0],
		func(p mapflow.Pick) {
			deps.Bus.Publish(events.Event{
				Type: events.TypeMapChosen, Match: matchID,
				Data: map[string]any{"game": p.Game, "map": p.Map, "mode": p.Mode},
			})
		},
	)
	return s
}

// Submit delivers one action to the session loop.
func (s *Session) Submit(user string, a Action) error {
	m := sessionMsg{user: user, action: a, reply: make(chan error, 1)}
	select {
	case s.inbox <- m:
		return <-m.reply
	case <-s.done:
		return ErrWindowClosed
	}
}

// Run serves actions until the match ends, then lingers for the teardown
// delay so stragglers get a closed-window reply instead of a hang.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)

	s.deps.Surface.Present(s.matchID, Prompt{
		Kind:    PromptMapVote,
		Options: []string{string(mapflow.StylePopular), string(mapflow.StyleRandom)},
	})

	var teardown <-chan time.Time
	for {
		select {
		case m := <-s.inbox:
			if s.ended {
				m.reply <- ErrAlreadyEnded
				continue
			}
			m.reply <- s.handle(ctx, m.user, m.action)
			if s.ended {
				teardown = time.After(s.cfg.TeardownDelay)
			}
		case <-teardown:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) players() []string {
	return append(append([]string(nil), s.team1...), s.team2...)
}

func (s *Session) isCaptain(user string) bool {
	return user == s.team1[0] || user == s.team2[0]
}

// team returns 1 or 2, or 0 when the user is not in the match.
func (s *Session) team(user string) int {
	if contains(s.team1, user) {
		return 1
	}
	if contains(s.team2, user) {
		return 2
	}
	return 0
}

func (s *Session) handle(ctx context.Context, user string, a Action) error {
	if s.team(user) == 0 {
		return ErrNotInMatch
	}
	switch a := a.(type) {
	case MapStyleVote:
		p, err := s.flow.VoteStyle(user, a.Style)
		if err != nil {
			return err
		}
		s.deps.Bus.Publish(events.Event{
			Type: events.TypePrompt, Match: s.matchID,
			Data: map[string]any{
				"kind": "map_vote_progress", "style": string(p.Style),
				"captain_votes": p.CaptainVotes, "player_votes": p.PlayerVotes,
				"unlocked": p.Unlocked,
			},
		})
		return nil
	case MapStyleChoice:
		_, err := s.flow.ChooseStyle(user, a.Style)
		return err
	case MapVeto:
		if _, err := s.flow.Veto(user); err != nil {
			return err
		}
		s.deps.Bus.Publish(events.Event{
			Type: events.TypeVetoApplied, Match: s.matchID,
			Data: map[string]any{"by": user},
		})
		return nil

	case PlaceWager:
		if err := s.deps.Ledger.Place(ctx, s.matchID, user, a.Amount); err != nil {
			return err
		}
		s.pot = s.pot.Add(a.Amount.Round(2))
		s.publishWager(events.TypeWagerPlaced, user, a.Amount)
		return nil
	case AcceptWager:
		if err := s.deps.Ledger.Accept(ctx, s.matchID, user, a.Amount); err != nil {
			return err
		}
		s.pot = s.pot.Add(a.Amount.Round(2))
		s.publishWager(events.TypeWagerMatched, user, a.Amount)
		return nil
	case CancelWager:
		if err := s.deps.Ledger.Cancel(ctx, s.matchID, user, a.Amount); err != nil {
			return err
		}
		s.pot = s.pot.Sub(a.Amount.Round(2))
		s.publishWager(events.TypeWagerCancelled, user, a.Amount)
		return nil

	case ChalkVote:
		return s.handleChalk(ctx, user)
	case Substitute:
		return s.handleSubstitute(user, a)
	case PromoteCaptain:
		return s.handlePromote(user, a)
	case ReportResult:
		if !s.isCaptain(user) {
			return ErrNotCaptain
		}
		if a.Winner != 1 && a.Winner != 2 {
			return ErrBadWinner
		}
		s.settle(ctx, a.Winner)
		return nil
	default:
		return ErrUnknownAction
	}
}

func (s *Session) publishWager(typ, user string, amount decimal.Decimal) {
	s.deps.Bus.Publish(events.Event{
		Type: typ, Match: s.matchID,
		Data: map[string]any{"user": user, "amount": amount.Round(2).String(), "pot": s.pot.String()},
	})
}

// handleChalk records an abandon vote. A captain's vote ends the match at
// once; otherwise the distinct-voter threshold applies. Repeat votes are
// no-ops.
func (s *Session) handleChalk(ctx context.Context, user string) error {
	if s.isCaptain(user) {
		s.chalkEnd(ctx)
		return nil
	}
	if s.chalk[user] {
		return nil
	}
	s.chalk[user] = true
	s.deps.Bus.Publish(events.Event{
		Type: events.TypeChalkProgress, Match: s.matchID,
		Data: map[string]any{"votes": len(s.chalk), "required": s.cfg.ChalkVotesRequired},
	})
	if len(s.chalk) >= s.cfg.ChalkVotesRequired {
		s.chalkEnd(ctx)
	}
	return nil
}

// chalkEnd voids the match: full wager refund, no rating change.
func (s *Session) chalkEnd(ctx context.Context) {
	if err := s.deps.Store.UpdateMatch(ctx, store.MatchRecord{Number: s.matchID, Status: store.StatusCancelled}); err != nil {
		s.log.Error("marking match chalked failed", zap.Error(err))
	}
	if _, err := s.deps.Ledger.Settle(ctx, s.matchID, nil); err != nil {
		s.log.Error("refunding chalked wagers failed", zap.Error(err))
	}
	s.deps.Bus.Publish(events.Event{Type: events.TypeMatchCancelled, Match: s.matchID})
	s.deps.Tracker.Release(s.players()...)
	s.ended = true
}

func (s *Session) handleSubstitute(user string, a Substitute) error {
	if !s.isCaptain(user) {
		return ErrNotCaptain
	}
	roster := s.team1
	if s.team(user) == 2 {
		roster = s.team2
	}
	if !contains(roster, a.Out) {
		return ErrNotTeammate
	}
	if a.Out == roster[0] {
		return ErrCaptainSlot
	}
	if s.team(a.In) != 0 {
		return ErrBadTarget
	}
	if err := s.deps.Tracker.Reserve(a.In); err != nil {
		return err
	}
	for i, p := range roster {
		if p == a.Out {
			roster[i] = a.In
			break
		}
	}
	s.deps.Tracker.Release(a.Out)
	s.publishRoster()
	return nil
}

// handlePromote hands the acting captain's slot to a teammate. Veto and
// reporting rights follow the slot.
func (s *Session) handlePromote(user string, a PromoteCaptain) error {
	if !s.isCaptain(user) {
		return ErrNotCaptain
	}
	roster := s.team1
	if s.team(user) == 2 {
		roster = s.team2
	}
	if !contains(roster, a.Target) || a.Target == user {
		return ErrNotTeammate
	}
	for i, p := range roster {
		if p == a.Target {
			roster[0], roster[i] = roster[i], roster[0]
			break
		}
	}
	s.flow.SetCaptains(s.team1[0], s.team2[0])
	s.publishRoster()
	return nil
}

func (s *Session) publishRoster() {
	s.deps.Bus.Publish(events.Event{
		Type: events.TypeRosterChanged, Match: s.matchID,
		Data: map[string]any{"team1": s.team1, "team2": s.team2},
	})
}

// settle applies ratings and distributes the pot exactly once. Each store
// write retries once; a second failure leaves the match recoverable in
// settlement_pending instead of half applied.
func (s *Session) settle(ctx context.Context, winner int) {
	team1 := append([]string(nil), s.team1...)
	team2 := append([]string(nil), s.team2...)

	profiles, err := s.loadProfiles(ctx, append(team1, team2...))
	if err != nil {
		s.log.Error("loading profiles for settlement failed", zap.Error(err))
	}

	status := store.StatusSettled
	deltas := map[string]int{}
	if profiles != nil {
		updates := rating.Compute(toRating(team1, profiles), toRating(team2, profiles), winner)
		batch := make([]store.Profile, 0, len(updates))
		for _, u := range updates {
			p := profiles[u.UserID]
			p.Rating, p.Wins, p.Losses, p.Streak, p.Recent = u.Rating, u.Wins, u.Losses, u.Streak, u.Recent
			batch = append(batch, p)
			deltas[u.UserID] = u.Delta
		}
		if err := retryOnce(func() error { return s.deps.Store.SaveProfiles(ctx, batch) }); err != nil {
			s.log.Error("rating batch failed twice", zap.Error(err))
			status = store.StatusSettlementPending
		}
	} else {
		status = store.StatusSettlementPending
	}

	winners := team1
	if winner == 2 {
		winners = team2
	}
	var payout decimal.Decimal
	err = retryOnce(func() error {
		res, err := s.deps.Ledger.Settle(ctx, s.matchID, winners)
		if err == nil {
			payout = res.Pot
		}
		return err
	})
	if err != nil {
		s.log.Error("wager settlement failed twice", zap.Error(err))
		status = store.StatusSettlementPending
	}

	if err := s.deps.Store.UpdateMatch(ctx, store.MatchRecord{Number: s.matchID, Status: status}); err != nil {
		s.log.Error("marking match settled failed", zap.Error(err))
	}
	s.deps.Bus.Publish(events.Event{
		Type: events.TypeMatchSettled, Match: s.matchID,
		Data: map[string]any{
			"winner": winner, "team1": team1, "team2": team2,
			"deltas": deltas, "pot": payout.String(),
		},
	})
	s.deps.Tracker.Release(s.players()...)
	s.ended = true
}

func (s *Session) loadProfiles(ctx context.Context, users []string) (map[string]store.Profile, error) {
	out := make([]store.Profile, len(users))
	g, ctx := errgroup.WithContext(ctx)
	for i, u := range users {
		g.Go(func() error {
			p, err := s.deps.Store.Profile(ctx, u)
			if err != nil {
				return err
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	m := make(map[string]store.Profile, len(out))
	for _, p := range out {
		m[p.UserID] = p
	}
	return m, nil
}

func toRating(team []string, profiles map[string]store.Profile) []rating.Player {
	out := make([]rating.Player, len(team))
	for i, u := range team {
		p := profiles[u]
		out[i] = rating.Player{
			UserID: p.UserID, Rating: p.Rating, Wins: p.Wins,
			Losses: p.Losses, Streak: p.Streak, Recent: p.Recent,
		}
	}
	return out
}

func retryOnce(fn func() error) error {
	if err := fn(); err == nil {
		return nil
	}
	return fn()
}
