package match

import (
	"github.com/shopspring/decimal"

	"github.com/eights-gg/eights-backend/internal/draft"
	"github.com/eights-gg/eights-backend/internal/mapflow"
	"github.com/eights-gg/eights-backend/internal/rps"
)

// Action is a participant input delivered to a running match. Exactly one
// concrete type per user-visible verb; the coordinator routes each to
// whatever phase is live and rejects the rest.
type Action interface{ action() }

// CaptainVote nominates Target during captain election.
type CaptainVote struct{ Target string }

// DraftTypeVote is a captain's preference for the pick order.
type DraftTypeVote struct{ Type draft.Type }

// RPSChoice is one throw in the tie-break duel.
type RPSChoice struct{ Choice rps.Choice }

// Pick assigns Target to the acting captain's team.
type Pick struct{ Target string }

// MapStyleVote is a ballot for a map pool.
type MapStyleVote struct{ Style mapflow.Style }

// MapStyleChoice locks in a pool once voting has unlocked.
type MapStyleChoice struct{ Style mapflow.Style }

// MapVeto discards the current map and re-rolls.
type MapVeto struct{}

// PlaceWager escrows a stake on the match.
type PlaceWager struct{ Amount decimal.Decimal }

// AcceptWager matches an open stake of the same amount.
type AcceptWager struct{ Amount decimal.Decimal }

// CancelWager withdraws an open stake.
type CancelWager struct{ Amount decimal.Decimal }

// ChalkVote asks to abandon the match. A captain's vote ends it at once;
// otherwise the threshold applies.
type ChalkVote struct{}

// Substitute swaps Out for In on whichever roster Out occupies.
type Substitute struct {
	Out string
	In  string
}

// PromoteCaptain hands the acting captain's powers to Target, a teammate.
type PromoteCaptain struct{ Target string }

// ReportResult declares the winning team (1 or 2) and triggers settlement.
type ReportResult struct{ Winner int }

func (CaptainVote) action()    {}
func (DraftTypeVote) action()  {}
func (RPSChoice) action()      {}
func (Pick) action()           {}
func (MapStyleVote) action()   {}
func (MapStyleChoice) action() {}
func (MapVeto) action()        {}
func (PlaceWager) action()     {}
func (AcceptWager) action()    {}
func (CancelWager) action()    {}
func (ChalkVote) action()      {}
func (Substitute) action()     {}
func (PromoteCaptain) action() {}
func (ReportResult) action()   {}
