package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyResolved   = errors.New("wager set already resolved")
)

// DefaultRating is seeded into a profile the first time a user is seen.
const DefaultRating = 100

// Profile is the persistent per-user record.
type Profile struct {
	UserID  string
	Rating  int
	Wins    int
	Losses  int
	Streak  int
	Recent  string // last 10 outcomes as 'W'/'L' runes, most recent first
	Balance decimal.Decimal
}

// WagerEntry is one escrowed stake on a match.
type WagerEntry struct {
	UserID string
	Amount decimal.Decimal
}

// WagerSet is the escrow record for one match. Entries hold currency that has
// already been debited from the placers and not yet returned.
type WagerSet struct {
	MatchID  int64
	Entries  []WagerEntry
	Accepted bool
	Refunded bool
	Payout   decimal.Decimal
	Winners  []string
}

type MatchStatus string

const (
	StatusDrafting          MatchStatus = "drafting"
	StatusLive              MatchStatus = "live"
	StatusSettled           MatchStatus = "settled"
	StatusCancelled         MatchStatus = "cancelled"
	StatusSettlementPending MatchStatus = "settlement_pending"
)

// MatchRecord is the durable history row for one match.
type MatchRecord struct {
	Number    int64
	Players   []string
	Team1     []string
	Team2     []string
	DraftType string
	Status    MatchStatus
}

// Store is the persistence contract consumed by the lifecycle engine.
// Implementations must make PlaceWager, RemoveWager, FinalizeWagers,
// Transfer and NextMatchNumber transactional: concurrent callers may never
// observe a partially applied debit or a repeated match number.
type Store interface {
	// Profile returns the user's record, creating a default one if absent.
	Profile(ctx context.Context, userID string) (Profile, error)
	// SaveProfiles writes every profile in one atomic batch.
	SaveProfiles(ctx context.Context, profiles []Profile) error
	// AddBalance atomically increments a balance. Negative amounts debit.
	AddBalance(ctx context.Context, userID string, amount decimal.Decimal) error
	// Transfer moves funds between users, failing with ErrInsufficientFunds
	// without any partial write if the sender cannot cover the amount.
	Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error
	// TopProfiles returns up to limit profiles ordered by rating descending.
	TopProfiles(ctx context.Context, limit int) ([]Profile, error)

	// NextMatchNumber increments and returns the durable match counter.
	NextMatchNumber(ctx context.Context) (int64, error)

	SaveMatch(ctx context.Context, rec MatchRecord) error
	// UpdateMatch merges the non-zero fields of rec into the stored row.
	UpdateMatch(ctx context.Context, rec MatchRecord) error
	Match(ctx context.Context, number int64) (MatchRecord, error)

	// PlaceWager checks the balance, debits it, and appends an entry in one
	// transaction. Fails with ErrInsufficientFunds, leaving no trace.
	PlaceWager(ctx context.Context, matchID int64, userID string, amount decimal.Decimal) error
	// RemoveWager deletes one entry matching (userID, amount) and credits the
	// amount back. Fails with ErrNotFound if no such entry remains.
	RemoveWager(ctx context.Context, matchID int64, userID string, amount decimal.Decimal) error
	Wagers(ctx context.Context, matchID int64) (WagerSet, error)
	// FinalizeWagers applies the per-user credits and marks the set resolved
	// in one transaction. Fails with ErrAlreadyResolved on a second call.
	FinalizeWagers(ctx context.Context, set WagerSet, credits map[string]decimal.Decimal) error
}
