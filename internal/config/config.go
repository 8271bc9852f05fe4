// Package config loads runtime settings from the environment, with a
// .env file honoured in development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/eights-gg/eights-backend/internal/match"
)

type Config struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	NATSURL     string `env:"NATS_URL"`
	NATSPrefix  string `env:"NATS_PREFIX" envDefault:"eights"`

	CaptainVoteWindow   time.Duration `env:"CAPTAIN_VOTE_WINDOW" envDefault:"20s"`
	DraftTypeVoteWindow time.Duration `env:"DRAFT_TYPE_VOTE_WINDOW" envDefault:"20s"`
	RPSWindow           time.Duration `env:"RPS_WINDOW" envDefault:"15s"`
	PickWindow          time.Duration `env:"PICK_WINDOW" envDefault:"20s"`
	ClockRefresh        time.Duration `env:"CLOCK_REFRESH" envDefault:"1s"`
	TeardownDelay       time.Duration `env:"TEARDOWN_DELAY" envDefault:"20s"`

	ChalkVotesRequired int `env:"CHALK_VOTES_REQUIRED" envDefault:"5"`
	MapCaptainVotes    int `env:"MAP_CAPTAIN_VOTES" envDefault:"2"`
	MapPlayerVotes     int `env:"MAP_PLAYER_VOTES" envDefault:"5"`
	MaxGamePicks       int `env:"MAX_GAME_PICKS" envDefault:"3"`
	VetoPerCaptain     int `env:"VETO_PER_CAPTAIN" envDefault:"1"`
	PlayersPerMatch    int `env:"PLAYERS_PER_MATCH" envDefault:"8"`
}

func Load() (Config, error) {
	_ = godotenv.Load()
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

// Match maps the flat environment config onto the lifecycle settings.
func (c Config) Match() match.Config {
	return match.Config{
		CaptainVoteWindow:   c.CaptainVoteWindow,
		DraftTypeVoteWindow: c.DraftTypeVoteWindow,
		RPSWindow:           c.RPSWindow,
		PickWindow:          c.PickWindow,
		ClockRefresh:        c.ClockRefresh,
		TeardownDelay:       c.TeardownDelay,
		ChalkVotesRequired:  c.ChalkVotesRequired,
		MapCaptainVotes:     c.MapCaptainVotes,
		MapPlayerVotes:      c.MapPlayerVotes,
		MaxGamePicks:        c.MaxGamePicks,
		VetoPerCaptain:      c.VetoPerCaptain,
		PlayersPerMatch:     c.PlayersPerMatch,
	}
}
