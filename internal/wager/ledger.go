// Package wager holds stake escrow semantics on top of the store's
// transactional primitives: placement, counterparty acceptance,
// cancellation, and winner-takes-the-pot settlement.
package wager

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/eights-gg/eights-backend/internal/store"
)

var (
	ErrInvalidAmount = errors.New("wager: amount must be positive")
	ErrSelfAccept    = errors.New("wager: cannot accept your own wager")
	ErrNoSuchWager   = errors.New("wager: no matching open wager")
)

// Settlement is the outcome of resolving one match's pot.
type Settlement struct {
	Credits  map[string]decimal.Decimal
	Pot      decimal.Decimal
	Refunded bool
}

// Ledger wraps a Store with wager rules. All money movement stays inside
// single store transactions; the ledger only decides who gets what.
type Ledger struct {
	store store.Store
}

func NewLedger(s store.Store) *Ledger {
	return &Ledger{store: s}
}

// Place escrows a new stake on the match. The amount is normalised to two
// decimal places before the debit.
func (l *Ledger) Place(ctx context.Context, matchID int64, userID string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	return l.store.PlaceWager(ctx, matchID, userID, amount.Round(2))
}

// Accept matches an open stake of the same amount placed by somebody else,
// escrowing an equal stake from the accepter.
func (l *Ledger) Accept(ctx context.Context, matchID int64, userID string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	amount = amount.Round(2)

	set, err := l.store.Wagers(ctx, matchID)
	if err != nil {
		return err
	}
	found := false
	for _, e := range set.Entries {
		if !e.Amount.Equal(amount) {
			continue
		}
		if e.UserID == userID {
			found = true
			continue
		}
		return l.store.PlaceWager(ctx, matchID, userID, amount)
	}
	if found {
		return ErrSelfAccept
	}
	return ErrNoSuchWager
}

// Cancel withdraws one open stake and credits it back.
func (l *Ledger) Cancel(ctx context.Context, matchID int64, userID string, amount decimal.Decimal) error {
	err := l.store.RemoveWager(ctx, matchID, userID, amount.Round(2))
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoSuchWager
	}
	return err
}

// Transfer moves balance directly between two users.
func (l *Ledger) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	return l.store.Transfer(ctx, from, to, amount.Round(2))
}

// Settle distributes the pot for a finished match. Each winner keeps their
// stake and receives an equal share of the losing side's total; rounding
// dust goes to the first winner so the pot always balances exactly. If
// either side staked nothing, every entry is refunded instead. Calling
// Settle again after resolution is a no-op returning an empty Settlement.
func (l *Ledger) Settle(ctx context.Context, matchID int64, winners []string) (Settlement, error) {
	set, err := l.store.Wagers(ctx, matchID)
	if errors.Is(err, store.ErrNotFound) {
		return Settlement{Credits: map[string]decimal.Decimal{}}, nil
	}
	if err != nil {
		return Settlement{}, err
	}
	if set.Accepted || set.Refunded || len(set.Entries) == 0 {
		return Settlement{Credits: map[string]decimal.Decimal{}}, nil
	}

	won := make(map[string]bool, len(winners))
	for _, w := range winners {
		won[w] = true
	}

	pot := decimal.Zero
	var winEntries []store.WagerEntry
	loseTotal := decimal.Zero
	for _, e := range set.Entries {
		pot = pot.Add(e.Amount)
		if won[e.UserID] {
			winEntries = append(winEntries, e)
		} else {
			loseTotal = loseTotal.Add(e.Amount)
		}
	}

	credits := map[string]decimal.Decimal{}
	if len(winEntries) == 0 || loseTotal.IsZero() {
		// One-sided pot: refund everything.
		for _, e := range set.Entries {
			credits[e.UserID] = credits[e.UserID].Add(e.Amount)
		}
		set.Refunded = true
	} else {
		share := loseTotal.Div(decimal.NewFromInt(int64(len(winEntries)))).Truncate(2)
		remainder := loseTotal.Sub(share.Mul(decimal.NewFromInt(int64(len(winEntries)))))
		for i, e := range winEntries {
			c := e.Amount.Add(share)
			if i == 0 {
				c = c.Add(remainder)
			}
			credits[e.UserID] = credits[e.UserID].Add(c)
		}
		set.Accepted = true
		set.Winners = winners
	}

	total := decimal.Zero
	for _, c := range credits {
		total = total.Add(c)
	}
	if !total.Equal(pot) {
		return Settlement{}, fmt.Errorf("wager: settlement imbalance, pot %s credited %s", pot, total)
	}

	set.Payout = pot
	if err := l.store.FinalizeWagers(ctx, set, credits); err != nil {
		return Settlement{}, err
	}
	return Settlement{Credits: credits, Pot: pot, Refunded: set.Refunded}, nil
}
