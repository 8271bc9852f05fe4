// Package rating turns a match outcome into per-user skill updates. It is
// pure: callers load profiles, call Compute, and commit the result as one
// batch.
package rating

import "math"

const (
	BaseK          = 32.0
	MaxStreakBoost = 5
	HotMultiplier  = 0.3 // win-streak boost per step
	ColdMultiplier = 0.5 // loss-streak boost per step

	UnderdogThreshold = 0.35
	UnderdogShield    = 4.0 // points a big underdog keeps even on a loss

	HistoryLength = 10
)

// Player is the rating-relevant slice of a profile.
type Player struct {
	UserID string
	Rating int
	Wins   int
	Losses int
	Streak int
	Recent string
}

// Update is the post-match state for one participant.
type Update struct {
	Player
	Delta int
	Won   bool
}

// Expected is the standard Elo expectation of A against B.
func Expected(a, b float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/400))
}

func playerK(streak int) float64 {
	boost := streak
	if boost < 0 {
		boost = -boost
	}
	if boost > MaxStreakBoost {
		boost = MaxStreakBoost
	}
	mult := ColdMultiplier
	if streak > 0 {
		mult = HotMultiplier
	}
	return BaseK + float64(boost)*mult
}

func teamAvg(team []Player) float64 {
	sum := 0.0
	for _, p := range team {
		sum += float64(p.Rating)
	}
	return sum / float64(len(team))
}

func teamK(team []Player) float64 {
	sum := 0.0
	for _, p := range team {
		sum += playerK(p.Streak)
	}
	return sum / float64(len(team))
}

// Compute returns the new state for every participant. winner is 1 or 2; any
// other value (a chalked or unreported match) yields no updates. Both teams
// must be non-empty for an update to apply.
func Compute(team1, team2 []Player, winner int) []Update {
	if winner != 1 && winner != 2 {
		return nil
	}
	if len(team1) == 0 || len(team2) == 0 {
		return nil
	}

	avg1, avg2 := teamAvg(team1), teamAvg(team2)
	exp1 := Expected(avg1, avg2)
	exp2 := 1 - exp1
	k1, k2 := teamK(team1), teamK(team2)

	shield1, shield2 := 0.0, 0.0
	if winner != 1 && exp1 < UnderdogThreshold {
		shield1 = UnderdogShield
	}
	if winner != 2 && exp2 < UnderdogThreshold {
		shield2 = UnderdogShield
	}

	delta1 := -(k1 * exp1) + shield1
	if winner == 1 {
		delta1 = k1 * (1 - exp1)
	}
	delta2 := -(k2 * exp2) + shield2
	if winner == 2 {
		delta2 = k2 * (1 - exp2)
	}

	updates := make([]Update, 0, len(team1)+len(team2))
	for _, p := range team1 {
		updates = append(updates, apply(p, winner == 1, delta1))
	}
	for _, p := range team2 {
		updates = append(updates, apply(p, winner == 2, delta2))
	}
	return updates
}

func apply(p Player, won bool, delta float64) Update {
	rounded := int(math.Round(delta))
	u := Update{Player: p, Delta: rounded, Won: won}
	u.Rating = p.Rating + rounded
	if won {
		u.Wins++
		if p.Streak >= 0 {
			u.Streak = p.Streak + 1
		} else {
			u.Streak = 1
		}
		u.Recent = prepend(p.Recent, 'W')
	} else {
		u.Losses++
		if p.Streak <= 0 {
			u.Streak = p.Streak - 1
		} else {
			u.Streak = -1
		}
		u.Recent = prepend(p.Recent, 'L')
	}
	return u
}

func prepend(history string, outcome byte) string {
	h := string(outcome) + history
	if len(h) > HistoryLength {
		h = h[:HistoryLength]
	}
	return h
}
