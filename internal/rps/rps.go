// Package rps resolves a duel between two fixed participants. Used both for
// tie-breaks and for draft pick-order.
package rps

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

type Choice string

const (
	Rock     Choice = "rock"
	Paper    Choice = "paper"
	Scissors Choice = "scissors"
)

var (
	ErrInvalidChoice  = errors.New("invalid choice")
	ErrNotParticipant = errors.New("not a participant in this duel")
	ErrAlreadyChosen  = errors.New("choice already recorded this round")
	ErrDuelOver       = errors.New("duel already finished")
)

var choices = []Choice{Rock, Paper, Scissors}

func Valid(c Choice) bool {
	return c == Rock || c == Paper || c == Scissors
}

// Beats reports whether a strictly beats b under rock>scissors>paper>rock.
func Beats(a, b Choice) bool {
	switch a {
	case Rock:
		return b == Scissors
	case Paper:
		return b == Rock
	case Scissors:
		return b == Paper
	}
	return false
}

type submission struct {
	user   string
	choice Choice
	reply  chan error
}

// Duel collects one private choice from each participant per round. Tied
// rounds are void and replayed from scratch until a strict winner exists.
// Neither submission is observable by the other participant: choices only
// leave the duel as the final (winner, loser) pair.
type Duel struct {
	a, b    string
	purpose string
	window  time.Duration
	inbox   chan submission
	closed  chan struct{}
}

func NewDuel(a, b, purpose string, window time.Duration) *Duel {
	return &Duel{
		a:       a,
		b:       b,
		purpose: purpose,
		window:  window,
		inbox:   make(chan submission),
		closed:  make(chan struct{}),
	}
}

func (d *Duel) Purpose() string { return d.purpose }

// Submit records a participant's choice for the current round. Duplicate
// submissions within one round fail with ErrAlreadyChosen and do not change
// the recorded choice.
func (d *Duel) Submit(user string, c Choice) error {
	if !Valid(c) {
		return ErrInvalidChoice
	}
	s := submission{user: user, choice: c, reply: make(chan error, 1)}
	select {
	case d.inbox <- s:
		return <-s.reply
	case <-d.closed:
		return ErrDuelOver
	}
}

// Run blocks until the duel produces a strict winner. Participants that never
// submit get a uniformly random auto-choice when the round window expires.
func (d *Duel) Run(ctx context.Context) (winner, loser string, err error) {
	defer close(d.closed)
	for {
		ca, cb, err := d.round(ctx)
		if err != nil {
			return "", "", err
		}
		if ca == cb {
			continue // void round, replay
		}
		if Beats(ca, cb) {
			return d.a, d.b, nil
		}
		return d.b, d.a, nil
	}
}

func (d *Duel) round(ctx context.Context) (Choice, Choice, error) {
	var ca, cb Choice
	timer := time.NewTimer(d.window)
	defer timer.Stop()

	for ca == "" || cb == "" {
		select {
		case s := <-d.inbox:
			switch {
			case s.user != d.a && s.user != d.b:
				s.reply <- ErrNotParticipant
			case s.user == d.a && ca != "":
				s.reply <- ErrAlreadyChosen
			case s.user == d.b && cb != "":
				s.reply <- ErrAlreadyChosen
			case s.user == d.a:
				ca = s.choice
				s.reply <- nil
			default:
				cb = s.choice
				s.reply <- nil
			}
		case <-timer.C:
			if ca == "" {
				ca = choices[rand.IntN(len(choices))]
			}
			if cb == "" {
				cb = choices[rand.IntN(len(choices))]
			}
		case <-ctx.Done():
			return "", "", ctx.Err()
		}
	}
	return ca, cb, nil
}
