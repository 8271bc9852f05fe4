package rating

import (
	"math"
	"testing"
)

func player(id string, r, streak int) Player {
	return Player{UserID: id, Rating: r, Streak: streak}
}

func TestExpected(t *testing.T) {
	if got := Expected(100, 100); got != 0.5 {
		t.Fatalf("equal ratings: want 0.5, got %v", got)
	}
	if got := Expected(0, 400); math.Abs(got-1.0/11) > 1e-9 {
		t.Fatalf("400 point underdog: want 1/11, got %v", got)
	}
	if a, b := Expected(120, 80), Expected(80, 120); math.Abs(a+b-1) > 1e-9 {
		t.Fatalf("expectations must sum to 1, got %v + %v", a, b)
	}
}

func TestCompute_EvenMatch(t *testing.T) {
	t1 := []Player{player("a", 100, 0), player("b", 100, 0)}
	t2 := []Player{player("c", 100, 0), player("d", 100, 0)}

	updates := Compute(t1, t2, 1)
	if len(updates) != 4 {
		t.Fatalf("want 4 updates, got %d", len(updates))
	}
	for _, u := range updates[:2] {
		if u.Delta != 16 || u.Rating != 116 || u.Wins != 1 || u.Streak != 1 || u.Recent != "W" {
			t.Fatalf("winner update wrong: %+v", u)
		}
	}
	for _, u := range updates[2:] {
		if u.Delta != -16 || u.Rating != 84 || u.Losses != 1 || u.Streak != -1 || u.Recent != "L" {
			t.Fatalf("loser update wrong: %+v", u)
		}
	}
}

func TestCompute_StreakInflatesK(t *testing.T) {
	// winner on a 5 game hot streak: K = 32 + 5*0.3 = 33.5, half of it
	// rounds to 17 instead of the flat 16
	t1 := []Player{player("hot", 100, 5)}
	t2 := []Player{player("flat", 100, 0)}

	updates := Compute(t1, t2, 1)
	if updates[0].Delta != 17 {
		t.Fatalf("hot streak winner delta: want 17, got %d", updates[0].Delta)
	}
	if updates[1].Delta != -16 {
		t.Fatalf("flat loser delta: want -16, got %d", updates[1].Delta)
	}
	if updates[0].Streak != 6 {
		t.Fatalf("streak should continue to 6, got %d", updates[0].Streak)
	}
}

func TestCompute_ColdStreakIncreasesLoss(t *testing.T) {
	// loser already on a 4 game cold streak: K = 32 + 4*0.5 = 34
	t1 := []Player{player("w", 100, 0)}
	t2 := []Player{player("cold", 100, -4)}

	updates := Compute(t1, t2, 1)
	if updates[1].Delta != -17 {
		t.Fatalf("cold loser delta: want -17, got %d", updates[1].Delta)
	}
	if updates[1].Streak != -5 {
		t.Fatalf("cold streak should continue to -5, got %d", updates[1].Streak)
	}
}

func TestCompute_UnderdogShield(t *testing.T) {
	// 400 points apart: underdog expectation 1/11, well under 0.35, so the
	// shield turns the loss into a small gain
	t1 := []Player{player("favorite", 400, 0)}
	t2 := []Player{player("underdog", 0, 0)}

	updates := Compute(t1, t2, 1)
	if updates[0].Delta != 3 {
		t.Fatalf("favorite delta: want 3, got %d", updates[0].Delta)
	}
	if updates[1].Delta != 1 {
		t.Fatalf("shielded underdog delta: want +1, got %d", updates[1].Delta)
	}
	if updates[1].Rating != 1 || updates[1].Losses != 1 {
		t.Fatalf("underdog still records the loss: %+v", updates[1])
	}
}

func TestCompute_StreakResetsOnFlip(t *testing.T) {
	t1 := []Player{player("w", 100, -3)}
	t2 := []Player{player("l", 100, 4)}

	updates := Compute(t1, t2, 1)
	if updates[0].Streak != 1 {
		t.Fatalf("win after losses resets streak to 1, got %d", updates[0].Streak)
	}
	if updates[1].Streak != -1 {
		t.Fatalf("loss after wins resets streak to -1, got %d", updates[1].Streak)
	}
}

func TestCompute_NoWinnerNoUpdates(t *testing.T) {
	t1 := []Player{player("a", 100, 0)}
	t2 := []Player{player("b", 100, 0)}
	if got := Compute(t1, t2, 0); got != nil {
		t.Fatalf("chalked match must not update ratings, got %+v", got)
	}
	if got := Compute(nil, t2, 1); got != nil {
		t.Fatalf("empty team must not update ratings, got %+v", got)
	}
}

func TestPrependTruncatesHistory(t *testing.T) {
	p := player("a", 100, 0)
	p.Recent = "WWWWWWWWWW"
	u := apply(p, false, -16)
	if u.Recent != "LWWWWWWWWW" {
		t.Fatalf("history: got %q", u.Recent)
	}
	if len(u.Recent) != HistoryLength {
		t.Fatalf("history length: got %d", len(u.Recent))
	}
}
