package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// Memory is an in-process Store. It backs the engine tests and works as a
// development backend when no DATABASE_URL is configured.
type Memory struct {
	mu       sync.Mutex
	profiles map[string]Profile
	matches  map[int64]MatchRecord
	wagers   map[int64]WagerSet
	counter  int64
}

func NewMemory() *Memory {
	return &Memory{
		profiles: make(map[string]Profile),
		matches:  make(map[int64]MatchRecord),
		wagers:   make(map[int64]WagerSet),
	}
}

func (m *Memory) profileLocked(userID string) Profile {
	p, ok := m.profiles[userID]
	if !ok {
		p = Profile{UserID: userID, Rating: DefaultRating, Balance: decimal.Zero}
		m.profiles[userID] = p
	}
	return p
}

func (m *Memory) Profile(_ context.Context, userID string) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profileLocked(userID), nil
}

func (m *Memory) SaveProfiles(_ context.Context, profiles []Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range profiles {
		m.profiles[p.UserID] = p
	}
	return nil
}

func (m *Memory) AddBalance(_ context.Context, userID string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.profileLocked(userID)
	p.Balance = p.Balance.Add(amount)
	m.profiles[userID] = p
	return nil
}

func (m *Memory) Transfer(_ context.Context, from, to string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.profileLocked(from)
	if src.Balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	dst := m.profileLocked(to)
	src.Balance = src.Balance.Sub(amount)
	dst.Balance = dst.Balance.Add(amount)
	m.profiles[from] = src
	m.profiles[to] = dst
	return nil
}

func (m *Memory) TopProfiles(_ context.Context, limit int) ([]Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) NextMatchNumber(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return m.counter, nil
}

func (m *Memory) SaveMatch(_ context.Context, rec MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matches[rec.Number] = rec
	return nil
}

func (m *Memory) UpdateMatch(_ context.Context, rec MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.matches[rec.Number]
	if !ok {
		return ErrNotFound
	}
	if len(rec.Players) > 0 {
		cur.Players = rec.Players
	}
	if len(rec.Team1) > 0 {
		cur.Team1 = rec.Team1
	}
	if len(rec.Team2) > 0 {
		cur.Team2 = rec.Team2
	}
	if rec.DraftType != "" {
		cur.DraftType = rec.DraftType
	}
	if rec.Status != "" {
		cur.Status = rec.Status
	}
	m.matches[rec.Number] = cur
	return nil
}

func (m *Memory) Match(_ context.Context, number int64) (MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.matches[number]
	if !ok {
		return MatchRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) PlaceWager(_ context.Context, matchID int64, userID string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.profileLocked(userID)
	if p.Balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	p.Balance = p.Balance.Sub(amount)
	m.profiles[userID] = p

	set := m.wagers[matchID]
	set.MatchID = matchID
	set.Entries = append(set.Entries, WagerEntry{UserID: userID, Amount: amount})
	m.wagers[matchID] = set
	return nil
}

func (m *Memory) RemoveWager(_ context.Context, matchID int64, userID string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.wagers[matchID]
	if !ok {
		return ErrNotFound
	}
	for i, e := range set.Entries {
		if e.UserID == userID && e.Amount.Equal(amount) {
			set.Entries = append(set.Entries[:i], set.Entries[i+1:]...)
			m.wagers[matchID] = set
			p := m.profileLocked(userID)
			p.Balance = p.Balance.Add(amount)
			m.profiles[userID] = p
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) Wagers(_ context.Context, matchID int64) (WagerSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.wagers[matchID]
	if !ok {
		return WagerSet{}, ErrNotFound
	}
	cp := set
	cp.Entries = append([]WagerEntry(nil), set.Entries...)
	return cp, nil
}

func (m *Memory) FinalizeWagers(_ context.Context, set WagerSet, credits map[string]decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.wagers[set.MatchID]
	if ok && (cur.Accepted || cur.Refunded) {
		return ErrAlreadyResolved
	}
	for userID, amount := range credits {
		p := m.profileLocked(userID)
		p.Balance = p.Balance.Add(amount)
		m.profiles[userID] = p
	}
	m.wagers[set.MatchID] = set
	return nil
}
