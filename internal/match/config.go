package match

import "time"

// Config carries every tunable window and threshold of the lifecycle.
type Config struct {
	CaptainVoteWindow   time.Duration
	DraftTypeVoteWindow time.Duration
	RPSWindow           time.Duration
	PickWindow          time.Duration
	ClockRefresh        time.Duration
	TeardownDelay       time.Duration

	ChalkVotesRequired int
	MapCaptainVotes    int
	MapPlayerVotes     int
	MaxGamePicks       int
	VetoPerCaptain     int
	PlayersPerMatch    int
}

func DefaultConfig() Config {
	return Config{
		CaptainVoteWindow:   20 * time.Second,
		DraftTypeVoteWindow: 20 * time.Second,
		RPSWindow:           15 * time.Second,
		PickWindow:          20 * time.Second,
		ClockRefresh:        time.Second,
		TeardownDelay:       20 * time.Second,
		ChalkVotesRequired:  5,
		MapCaptainVotes:     2,
		MapPlayerVotes:      5,
		MaxGamePicks:        3,
		VetoPerCaptain:      1,
		PlayersPerMatch:     8,
	}
}
