package match

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/eights-gg/eights-backend/internal/events"
	"github.com/eights-gg/eights-backend/internal/store"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func startSession(t *testing.T, st store.Store, team1, team2 []string) (*Session, *fakeTracker, *events.Bus) {
	t.Helper()
	deps, tracker, bus := testDeps(st)

	ctx := context.Background()
	players := append(append([]string(nil), team1...), team2...)
	n, _ := st.NextMatchNumber(ctx)
	require.NoError(t, st.SaveMatch(ctx, store.MatchRecord{Number: n, Players: players, Status: store.StatusLive}))

	s := NewSession(deps, fastConfig(), n, team1, team2)
	runCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	go s.Run(runCtx)
	return s, tracker, bus
}

func TestSession_ReportSettlesRatingsAndPot(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.AddBalance(ctx, "a1", dec("100")))
	require.NoError(t, st.AddBalance(ctx, "b1", dec("100")))

	team1 := []string{"a1", "a2"}
	team2 := []string{"b1", "b2"}
	s, tracker, _ := startSession(t, st, team1, team2)

	require.NoError(t, s.Submit("a1", PlaceWager{Amount: dec("50")}))
	require.NoError(t, s.Submit("b1", AcceptWager{Amount: dec("50")}))

	// only a captain may report
	err := s.Submit("a2", ReportResult{Winner: 1})
	require.ErrorIs(t, err, ErrNotCaptain)
	require.ErrorIs(t, s.Submit("a1", ReportResult{Winner: 3}), ErrBadWinner)

	require.NoError(t, s.Submit("a1", ReportResult{Winner: 1}))

	// evenly rated 2v2: winners +16, losers -16
	p, _ := st.Profile(ctx, "a2")
	require.Equal(t, 116, p.Rating)
	require.Equal(t, 1, p.Wins)
	p, _ = st.Profile(ctx, "b2")
	require.Equal(t, 84, p.Rating)
	require.Equal(t, 1, p.Losses)

	// a1 staked 50 and wins the matched 50
	p, _ = st.Profile(ctx, "a1")
	require.True(t, p.Balance.Equal(dec("150")), "a1 balance %s", p.Balance)
	p, _ = st.Profile(ctx, "b1")
	require.True(t, p.Balance.Equal(dec("50")), "b1 balance %s", p.Balance)

	rec, _ := st.Match(ctx, 1)
	require.Equal(t, store.StatusSettled, rec.Status)
	require.Len(t, tracker.releasedUsers(), 4)

	// the match is over: further actions bounce
	err = s.Submit("a1", ReportResult{Winner: 2})
	require.ErrorIs(t, err, ErrAlreadyEnded)
}

func TestSession_CaptainChalkRefundsAndSkipsRatings(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.AddBalance(ctx, "a1", dec("100")))
	require.NoError(t, st.AddBalance(ctx, "b1", dec("100")))

	s, tracker, _ := startSession(t, st, []string{"a1", "a2"}, []string{"b1", "b2"})

	require.NoError(t, s.Submit("a1", PlaceWager{Amount: dec("40")}))
	require.NoError(t, s.Submit("b1", AcceptWager{Amount: dec("40")}))

	// a single captain vote voids the match immediately
	require.NoError(t, s.Submit("b1", ChalkVote{}))

	p, _ := st.Profile(ctx, "a1")
	require.True(t, p.Balance.Equal(dec("100")), "refund missing: %s", p.Balance)
	p, _ = st.Profile(ctx, "a2")
	require.Equal(t, store.DefaultRating, p.Rating, "chalk must not touch ratings")

	rec, _ := st.Match(ctx, 1)
	require.Equal(t, store.StatusCancelled, rec.Status)
	require.Len(t, tracker.releasedUsers(), 4)
}

func TestSession_ChalkThresholdForNonCaptains(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	s, _, bus := startSession(t, st, []string{"a1", "a2", "a3"}, []string{"b1", "b2", "b3"})

	sub, cancel := bus.Subscribe()
	defer cancel()

	require.NoError(t, s.Submit("a2", ChalkVote{}))
	ev := recvEvent(t, sub, events.TypeChalkProgress, time.Second)
	require.Equal(t, 1, ev.Data["votes"])

	// repeat vote is a no-op
	require.NoError(t, s.Submit("a2", ChalkVote{}))
	require.NoError(t, s.Submit("a3", ChalkVote{}))

	rec, _ := st.Match(ctx, 1)
	require.Equal(t, store.StatusLive, rec.Status, "threshold not met yet")

	require.NoError(t, s.Submit("b2", ChalkVote{}))
	rec, _ = st.Match(ctx, 1)
	require.Equal(t, store.StatusCancelled, rec.Status)
}

func TestSession_SubstituteSwapsRosterSlot(t *testing.T) {
	st := store.NewMemory()
	s, tracker, _ := startSession(t, st, []string{"a1", "a2"}, []string{"b1", "b2"})

	require.ErrorIs(t, s.Submit("a2", Substitute{Out: "a2", In: "x"}), ErrNotCaptain)
	require.ErrorIs(t, s.Submit("a1", Substitute{Out: "b2", In: "x"}), ErrNotTeammate)
	require.ErrorIs(t, s.Submit("a1", Substitute{Out: "a1", In: "x"}), ErrCaptainSlot)
	require.ErrorIs(t, s.Submit("a1", Substitute{Out: "a2", In: "b2"}), ErrBadTarget)

	require.NoError(t, s.Submit("a1", Substitute{Out: "a2", In: "x"}))
	require.Contains(t, tracker.releasedUsers(), "a2")

	// the replacement can now act as a teammate
	require.NoError(t, s.Submit("a1", PromoteCaptain{Target: "x"}))

	// the outgoing player lost their seat
	require.ErrorIs(t, s.Submit("a2", ChalkVote{}), ErrNotInMatch)
}

func TestSession_PromoteTransfersCaptainPowers(t *testing.T) {
	st := store.NewMemory()
	s, _, _ := startSession(t, st, []string{"a1", "a2"}, []string{"b1", "b2"})

	require.ErrorIs(t, s.Submit("a2", PromoteCaptain{Target: "a1"}), ErrNotCaptain)
	require.ErrorIs(t, s.Submit("a1", PromoteCaptain{Target: "b2"}), ErrNotTeammate)
	require.ErrorIs(t, s.Submit("a1", PromoteCaptain{Target: "a1"}), ErrNotTeammate)

	require.NoError(t, s.Submit("a1", PromoteCaptain{Target: "a2"}))

	// reporting rights follow the slot
	require.ErrorIs(t, s.Submit("a1", ReportResult{Winner: 1}), ErrNotCaptain)
	require.NoError(t, s.Submit("a2", ReportResult{Winner: 2}))
}

func TestSession_OpensWithMapVotePrompt(t *testing.T) {
	st := store.NewMemory()
	deps, _, bus := testDeps(st)

	sub, cancel := bus.Subscribe()
	defer cancel()

	s := NewSession(deps, fastConfig(), 1, []string{"a1", "a2"}, []string{"b1", "b2"})
	runCtx, stop := context.WithCancel(context.Background())
	t.Cleanup(stop)
	go s.Run(runCtx)

	ev := recvEvent(t, sub, events.TypePrompt, time.Second)
	require.Equal(t, string(PromptMapVote), ev.Data["kind"])
	require.Equal(t, []string{"popular", "random"}, ev.Data["options"])
}

func TestSession_MapVotingFlow(t *testing.T) {
	st := store.NewMemory()
	s, _, bus := startSession(t, st, []string{"a1", "a2"}, []string{"b1", "b2"})

	sub, cancel := bus.Subscribe()
	defer cancel()

	// both captains voting unlocks the choice
	require.NoError(t, s.Submit("a1", MapStyleVote{Style: "popular"}))
	require.NoError(t, s.Submit("b1", MapStyleVote{Style: "popular"}))
	require.NoError(t, s.Submit("a2", MapStyleChoice{Style: "popular"}))

	chosen := recvEvent(t, sub, events.TypeMapChosen, time.Second)
	require.Equal(t, 1, chosen.Data["game"])
	require.NotEmpty(t, chosen.Data["map"])

	// captain veto re-rolls the same game
	require.NoError(t, s.Submit("b1", MapVeto{}))
	recvEvent(t, sub, events.TypeVetoApplied, time.Second)
	re := recvEvent(t, sub, events.TypeMapChosen, time.Second)
	require.Equal(t, 1, re.Data["game"])
}
