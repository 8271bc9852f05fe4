package mapflow

import (
	"errors"
	"testing"
)

func testPools() map[Style][]Entry {
	return map[Style][]Entry{
		StylePopular: {
			{Map: "Alpha", Mode: "HQ", Weight: 3},
			{Map: "Bravo", Mode: "HQ", Weight: 1},
		},
		StyleRandom: {
			{Map: "Charlie", Mode: "DOM", Weight: 1},
			{Map: "Delta", Mode: "CTF", Weight: 1},
		},
	}
}

func testFlow(onPick func(Pick)) *Flow {
	cfg := Config{
		CaptainVotesRequired: 2,
		PlayerVotesRequired:  3,
		MaxGamePicks:         2,
		VetoPerCaptain:       1,
	}
	return New(cfg, testPools(), "cap1", "cap2", onPick)
}

func TestVoteStyle_CaptainAndPlayerTalliesAreSeparate(t *testing.T) {
	f := testFlow(nil)

	// one captain vote plus two player votes: neither threshold met
	p, err := f.VoteStyle("cap1", StylePopular)
	if err != nil {
		t.Fatalf("cap1 vote: %v", err)
	}
	if p.CaptainVotes != 1 || p.PlayerVotes != 0 || p.Unlocked {
		t.Fatalf("after captain vote: %+v", p)
	}
	if _, err := f.VoteStyle("p1", StylePopular); err != nil {
		t.Fatalf("p1 vote: %v", err)
	}
	p, err = f.VoteStyle("p2", StylePopular)
	if err != nil {
		t.Fatalf("p2 vote: %v", err)
	}
	// the captain ballot never counts toward the player threshold
	if p.PlayerVotes != 2 || p.Unlocked {
		t.Fatalf("captain vote leaked into player tally: %+v", p)
	}

	// third distinct player reaches the player threshold
	p, err = f.VoteStyle("p3", StylePopular)
	if err != nil {
		t.Fatalf("p3 vote: %v", err)
	}
	if !p.Unlocked {
		t.Fatalf("player threshold should unlock: %+v", p)
	}
}

func TestVoteStyle_TwoCaptainsUnlock(t *testing.T) {
	f := testFlow(nil)
	if _, err := f.VoteStyle("cap1", StyleRandom); err != nil {
		t.Fatalf("cap1: %v", err)
	}
	p, err := f.VoteStyle("cap2", StyleRandom)
	if err != nil {
		t.Fatalf("cap2: %v", err)
	}
	if !p.Unlocked {
		t.Fatalf("both captains voting should unlock: %+v", p)
	}
}

func TestVoteStyle_CaptainsSplitAcrossPoolsStillUnlock(t *testing.T) {
	f := testFlow(nil)
	if _, err := f.VoteStyle("cap1", StylePopular); err != nil {
		t.Fatalf("cap1: %v", err)
	}
	p, err := f.VoteStyle("cap2", StyleRandom)
	if err != nil {
		t.Fatalf("cap2: %v", err)
	}
	// turnout unlocks choosing even when the captains disagree on the pool
	if p.CaptainVotes != 2 {
		t.Fatalf("want both captain ballots counted, got %+v", p)
	}
	if !p.Unlocked {
		t.Fatalf("two captain ballots should unlock: %+v", p)
	}
}

func TestVoteStyle_PlayersSplitAcrossPoolsStillUnlock(t *testing.T) {
	f := testFlow(nil)
	if _, err := f.VoteStyle("p1", StylePopular); err != nil {
		t.Fatalf("p1: %v", err)
	}
	if _, err := f.VoteStyle("p2", StylePopular); err != nil {
		t.Fatalf("p2: %v", err)
	}
	p, err := f.VoteStyle("p3", StyleRandom)
	if err != nil {
		t.Fatalf("p3: %v", err)
	}
	if p.PlayerVotes != 3 {
		t.Fatalf("want every distinct player ballot counted, got %+v", p)
	}
	if !p.Unlocked {
		t.Fatalf("three player ballots should unlock: %+v", p)
	}
}

func TestVoteStyle_Rejections(t *testing.T) {
	f := testFlow(nil)
	if _, err := f.VoteStyle("p1", Style("weird")); !errors.Is(err, ErrInvalidStyle) {
		t.Fatalf("want ErrInvalidStyle, got %v", err)
	}
	if _, err := f.VoteStyle("p1", StylePopular); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if _, err := f.VoteStyle("p1", StyleRandom); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("want ErrAlreadyVoted, got %v", err)
	}
}

func TestChooseStyle_FirstResponderWinsAndRoundResets(t *testing.T) {
	var picks []Pick
	f := testFlow(func(p Pick) { picks = append(picks, p) })
	f.randFloat = func() float64 { return 0.0 } // always the first entry

	if _, err := f.ChooseStyle("p1", StylePopular); !errors.Is(err, ErrNotUnlocked) {
		t.Fatalf("choose before unlock: want ErrNotUnlocked, got %v", err)
	}

	f.VoteStyle("cap1", StylePopular)
	f.VoteStyle("cap2", StylePopular)

	pick, err := f.ChooseStyle("p1", StylePopular)
	if err != nil {
		t.Fatalf("ChooseStyle: %v", err)
	}
	if pick.Game != 1 || pick.Map != "Alpha" {
		t.Fatalf("pick = %+v", pick)
	}
	if len(picks) != 1 {
		t.Fatalf("callback fired %d times", len(picks))
	}

	// round state is cleared: the same voters may vote again
	if _, err := f.VoteStyle("cap1", StyleRandom); err != nil {
		t.Fatalf("vote after reset: %v", err)
	}
	if _, err := f.ChooseStyle("p2", StyleRandom); !errors.Is(err, ErrNotUnlocked) {
		t.Fatalf("second round must re-unlock, got %v", err)
	}
}

func TestVeto_RepicksSamePoolWithoutAdvancingGame(t *testing.T) {
	f := testFlow(nil)
	rolls := []float64{0.0, 0.99}
	f.randFloat = func() float64 {
		r := rolls[0]
		if len(rolls) > 1 {
			rolls = rolls[1:]
		}
		return r
	}

	f.VoteStyle("cap1", StylePopular)
	f.VoteStyle("cap2", StylePopular)
	first, err := f.ChooseStyle("cap1", StylePopular)
	if err != nil {
		t.Fatalf("ChooseStyle: %v", err)
	}
	if first.Map != "Alpha" {
		t.Fatalf("first pick = %+v", first)
	}

	if _, err := f.Veto("p1"); !errors.Is(err, ErrNotCaptain) {
		t.Fatalf("player veto: want ErrNotCaptain, got %v", err)
	}

	re, err := f.Veto("cap1")
	if err != nil {
		t.Fatalf("Veto: %v", err)
	}
	if re.Game != first.Game {
		t.Fatalf("veto advanced the game counter: %+v", re)
	}
	if re.Map != "Bravo" {
		t.Fatalf("repick should come from the same pool: %+v", re)
	}

	if _, err := f.Veto("cap1"); !errors.Is(err, ErrNoVetoLeft) {
		t.Fatalf("second veto by same captain: want ErrNoVetoLeft, got %v", err)
	}
	if _, err := f.Veto("cap2"); err != nil {
		t.Fatalf("other captain still has a veto: %v", err)
	}
}

func TestFlow_GamePickCap(t *testing.T) {
	f := testFlow(nil)
	f.randFloat = func() float64 { return 0.0 }

	for game := 1; game <= 2; game++ {
		f.VoteStyle("cap1", StylePopular)
		f.VoteStyle("cap2", StylePopular)
		if _, err := f.ChooseStyle("cap1", StylePopular); err != nil {
			t.Fatalf("game %d: %v", game, err)
		}
	}
	if !f.Done() {
		t.Fatalf("flow should be done after the pick cap")
	}
	if _, err := f.VoteStyle("cap1", StylePopular); !errors.Is(err, ErrFlowDone) {
		t.Fatalf("vote past cap: want ErrFlowDone, got %v", err)
	}
}

func TestPickWeighted_RouletteAndOvershootFallback(t *testing.T) {
	f := testFlow(nil)

	// weights 3:1 over [Alpha, Bravo]: 0.74*4 < 3 lands on Alpha,
	// 0.76*4 > 3 lands on Bravo
	f.randFloat = func() float64 { return 0.74 }
	if e := f.pickWeighted(StylePopular); e.Map != "Alpha" {
		t.Fatalf("0.74 roll: got %s", e.Map)
	}
	f.randFloat = func() float64 { return 0.76 }
	if e := f.pickWeighted(StylePopular); e.Map != "Bravo" {
		t.Fatalf("0.76 roll: got %s", e.Map)
	}

	// a roll of exactly 1.0 overshoots every cumulative bucket and falls
	// back to the first entry
	f.randFloat = func() float64 { return 1.0 }
	if e := f.pickWeighted(StylePopular); e.Map != "Alpha" {
		t.Fatalf("overshoot fallback: got %s", e.Map)
	}
}
