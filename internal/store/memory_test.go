package store

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestMemory_ProfileDefaults(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	p, err := m.Profile(ctx, "newcomer")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.Rating != DefaultRating {
		t.Fatalf("default rating: want %d, got %d", DefaultRating, p.Rating)
	}
	if !p.Balance.IsZero() {
		t.Fatalf("default balance: want 0, got %s", p.Balance)
	}
}

func TestMemory_NextMatchNumberMonotonic(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	var last int64
	for i := 0; i < 5; i++ {
		n, err := m.NextMatchNumber(ctx)
		if err != nil {
			t.Fatalf("NextMatchNumber: %v", err)
		}
		if n <= last {
			t.Fatalf("counter not monotonic: %d after %d", n, last)
		}
		last = n
	}
}

func TestMemory_UpdateMatchMergesNonZeroFields(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.SaveMatch(ctx, MatchRecord{Number: 1, Players: []string{"a", "b"}, Status: StatusDrafting}); err != nil {
		t.Fatalf("SaveMatch: %v", err)
	}
	if err := m.UpdateMatch(ctx, MatchRecord{Number: 1, Status: StatusLive}); err != nil {
		t.Fatalf("UpdateMatch: %v", err)
	}

	rec, err := m.Match(ctx, 1)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if rec.Status != StatusLive {
		t.Fatalf("status not updated: %s", rec.Status)
	}
	if len(rec.Players) != 2 {
		t.Fatalf("players clobbered by merge: %v", rec.Players)
	}

	if err := m.UpdateMatch(ctx, MatchRecord{Number: 99}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMemory_PlaceWagerIsAtomicWithBalance(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.AddBalance(ctx, "alice", dec("40")); err != nil {
		t.Fatalf("AddBalance: %v", err)
	}

	if err := m.PlaceWager(ctx, 1, "alice", dec("25")); err != nil {
		t.Fatalf("PlaceWager: %v", err)
	}
	if err := m.PlaceWager(ctx, 1, "alice", dec("25")); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}

	p, _ := m.Profile(ctx, "alice")
	if !p.Balance.Equal(dec("15")) {
		t.Fatalf("failed placement must not touch balance: %s", p.Balance)
	}
	set, err := m.Wagers(ctx, 1)
	if err != nil {
		t.Fatalf("Wagers: %v", err)
	}
	if len(set.Entries) != 1 {
		t.Fatalf("want 1 escrowed entry, got %d", len(set.Entries))
	}
}

func TestMemory_RemoveWagerRefunds(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.AddBalance(ctx, "alice", dec("40"))
	_ = m.PlaceWager(ctx, 1, "alice", dec("25"))

	if err := m.RemoveWager(ctx, 1, "alice", dec("25")); err != nil {
		t.Fatalf("RemoveWager: %v", err)
	}
	p, _ := m.Profile(ctx, "alice")
	if !p.Balance.Equal(dec("40")) {
		t.Fatalf("refund missing: %s", p.Balance)
	}
	if err := m.RemoveWager(ctx, 1, "alice", dec("25")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound on repeat, got %v", err)
	}
}

func TestMemory_FinalizeWagersOnlyOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.AddBalance(ctx, "alice", dec("50"))
	_ = m.AddBalance(ctx, "bob", dec("50"))
	_ = m.PlaceWager(ctx, 1, "alice", dec("50"))
	_ = m.PlaceWager(ctx, 1, "bob", dec("30"))

	set, _ := m.Wagers(ctx, 1)
	set.Accepted = true
	credits := map[string]decimal.Decimal{"alice": dec("80")}
	if err := m.FinalizeWagers(ctx, set, credits); err != nil {
		t.Fatalf("FinalizeWagers: %v", err)
	}
	p, _ := m.Profile(ctx, "alice")
	if !p.Balance.Equal(dec("80")) {
		t.Fatalf("credit missing: %s", p.Balance)
	}

	if err := m.FinalizeWagers(ctx, set, credits); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("want ErrAlreadyResolved, got %v", err)
	}
}

func TestMemory_TopProfilesOrdersByRating(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.SaveProfiles(ctx, []Profile{
		{UserID: "low", Rating: 90},
		{UserID: "high", Rating: 140},
		{UserID: "mid", Rating: 110},
	})

	top, err := m.TopProfiles(ctx, 2)
	if err != nil {
		t.Fatalf("TopProfiles: %v", err)
	}
	if len(top) != 2 || top[0].UserID != "high" || top[1].UserID != "mid" {
		t.Fatalf("leaderboard wrong: %+v", top)
	}
}

func TestMemory_TransferGuardsFunds(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.AddBalance(ctx, "alice", dec("10"))

	if err := m.Transfer(ctx, "alice", "bob", dec("20")); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
	if err := m.Transfer(ctx, "alice", "bob", dec("10")); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	a, _ := m.Profile(ctx, "alice")
	b, _ := m.Profile(ctx, "bob")
	if !a.Balance.IsZero() || !b.Balance.Equal(dec("10")) {
		t.Fatalf("balances wrong: alice=%s bob=%s", a.Balance, b.Balance)
	}
}
