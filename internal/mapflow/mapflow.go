// Package mapflow runs the post-draft map selection loop: players and
// captains vote between weighted pools, a captain locks in the pick once
// thresholds are met, and each captain may burn one veto to force a
// re-roll from the same pool.
package mapflow

import (
	"errors"
	"math/rand"
	"sync"
)

type Style string

const (
	StylePopular Style = "popular"
	StyleRandom  Style = "random"
)

func ValidStyle(s Style) bool {
	return s == StylePopular || s == StyleRandom
}

var (
	ErrInvalidStyle  = errors.New("mapflow: unknown map style")
	ErrAlreadyVoted  = errors.New("mapflow: already voted this round")
	ErrNotUnlocked   = errors.New("mapflow: style choice not unlocked yet")
	ErrNotCaptain    = errors.New("mapflow: captains only")
	ErrNoVetoLeft    = errors.New("mapflow: no veto remaining")
	ErrNothingToVeto = errors.New("mapflow: no active map to veto")
	ErrFlowDone      = errors.New("mapflow: all games chosen")
)

// Pick is a resolved (map, mode) for one game.
type Pick struct {
	Game int
	Map  string
	Mode string
}

// VoteProgress reports the running tallies after a vote. The counts are
// participation across both pools: Style is only the ballot just cast.
// Captain votes are tracked apart from player votes and never count
// toward the player threshold.
type VoteProgress struct {
	Style        Style
	CaptainVotes int
	PlayerVotes  int
	Unlocked     bool
}

type Config struct {
	CaptainVotesRequired int
	PlayerVotesRequired  int
	MaxGamePicks         int
	VetoPerCaptain       int
}

// Flow tracks voting and veto state across the game picks of one match.
// Safe for concurrent use.
type Flow struct {
	mu    sync.Mutex
	cfg   Config
	pools map[Style][]Entry

	cap1, cap2 string
	vetoUsed   map[string]int

	votes     map[string]Style // all ballots this round, keyed by user
	unlocked  bool
	lastStyle Style
	current   *Pick
	gameCount int

	onPick    func(Pick)
	randFloat func() float64 // injected for tests
}

func New(cfg Config, pools map[Style][]Entry, cap1, cap2 string, onPick func(Pick)) *Flow {
	return &Flow{
		cfg:       cfg,
		pools:     pools,
		cap1:      cap1,
		cap2:      cap2,
		vetoUsed:  map[string]int{},
		votes:     map[string]Style{},
		onPick:    onPick,
		randFloat: rand.Float64,
	}
}

// SetCaptains swaps in the current captain pair after a promotion. Veto
// counts already spent stay spent.
func (f *Flow) SetCaptains(cap1, cap2 string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cap1, f.cap2 = cap1, cap2
}

func (f *Flow) isCaptain(user string) bool {
	return user == f.cap1 || user == f.cap2
}

// Done reports whether every game pick has been made.
func (f *Flow) Done() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gameCount >= f.cfg.MaxGamePicks
}

// Picked returns the active pick for the current game, if any.
func (f *Flow) Picked() (Pick, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return Pick{}, false
	}
	return *f.current, true
}

// VoteStyle records one ballot for a pool. Unlocking counts turnout, not
// agreement: choosing opens once enough captains have voted in either
// pool, or enough distinct players have. Which pool gets sampled is the
// follow-up ChooseStyle.
func (f *Flow) VoteStyle(user string, s Style) (VoteProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.gameCount >= f.cfg.MaxGamePicks {
		return VoteProgress{}, ErrFlowDone
	}
	if !ValidStyle(s) {
		return VoteProgress{}, ErrInvalidStyle
	}
	if _, dup := f.votes[user]; dup {
		return VoteProgress{}, ErrAlreadyVoted
	}
	f.votes[user] = s

	p := f.tally()
	p.Style = s
	if !f.unlocked && (p.CaptainVotes >= f.cfg.CaptainVotesRequired || p.PlayerVotes >= f.cfg.PlayerVotesRequired) {
		f.unlocked = true
	}
	p.Unlocked = f.unlocked
	return p, nil
}

// tally counts every ballot this round regardless of which pool it was
// cast for.
func (f *Flow) tally() VoteProgress {
	var p VoteProgress
	for user := range f.votes {
		if f.isCaptain(user) {
			p.CaptainVotes++
		} else {
			p.PlayerVotes++
		}
	}
	return p
}

// ChooseStyle rolls the next game's map from the chosen pool. Only valid
// once voting has unlocked; the first caller wins the round.
func (f *Flow) ChooseStyle(user string, s Style) (Pick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.gameCount >= f.cfg.MaxGamePicks {
		return Pick{}, ErrFlowDone
	}
	if !ValidStyle(s) {
		return Pick{}, ErrInvalidStyle
	}
	if !f.unlocked {
		return Pick{}, ErrNotUnlocked
	}

	f.gameCount++
	f.lastStyle = s
	pick := Pick{Game: f.gameCount, Map: "", Mode: ""}
	e := f.pickWeighted(s)
	pick.Map, pick.Mode = e.Map, e.Mode
	f.current = &pick

	// Reset the round for the next game.
	f.votes = map[string]Style{}
	f.unlocked = false

	if f.onPick != nil {
		f.onPick(pick)
	}
	return pick, nil
}

// Veto discards the active pick and re-rolls from the same pool. Captains
// only, each limited to VetoPerCaptain uses across the whole match. The
// game number does not advance.
func (f *Flow) Veto(user string) (Pick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.isCaptain(user) {
		return Pick{}, ErrNotCaptain
	}
	if f.current == nil {
		return Pick{}, ErrNothingToVeto
	}
	if f.vetoUsed[user] >= f.cfg.VetoPerCaptain {
		return Pick{}, ErrNoVetoLeft
	}
	f.vetoUsed[user]++

	pick := Pick{Game: f.current.Game}
	e := f.pickWeighted(f.lastStyle)
	pick.Map, pick.Mode = e.Map, e.Mode
	f.current = &pick

	if f.onPick != nil {
		f.onPick(pick)
	}
	return pick, nil
}

// pickWeighted spins a cumulative roulette over the pool. Falls back to
// the first entry if float accumulation overshoots the total.
func (f *Flow) pickWeighted(s Style) Entry {
	pool := f.pools[s]
	total := 0
	for _, e := range pool {
		total += e.Weight
	}
	target := f.randFloat() * float64(total)
	acc := 0.0
	for _, e := range pool {
		acc += float64(e.Weight)
		if target < acc {
			return e
		}
	}
	return pool[0]
}
