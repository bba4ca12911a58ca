package domain

import (
	"fmt"
	"time"
)

// GameCategory is a closed class of round. Each category maps to one
// server-side room and has its own selection rules.
type GameCategory string

const (
	CategoryColor  GameCategory = "color"
	CategoryNumber GameCategory = "number"
)

// Valid reports whether c is one of the known categories.
func (c GameCategory) Valid() bool {
	switch c {
	case CategoryColor, CategoryNumber:
		return true
	}
	return false
}

// MaxSelections returns the per-stake selection bound for the category.
// Color rounds take exactly one option per stake; number rounds take up to
// three.
func (c GameCategory) MaxSelections() int {
	switch c {
	case CategoryColor:
		return 1
	case CategoryNumber:
		return 3
	}
	return 0
}

// Categories lists all known game categories.
func Categories() []GameCategory {
	return []GameCategory{CategoryColor, CategoryNumber}
}

// RoundStatus tracks the authoritative round lifecycle.
type RoundStatus string

const (
	RoundStatusUpcoming  RoundStatus = "upcoming"
	RoundStatusOpen      RoundStatus = "open"
	RoundStatusClosed    RoundStatus = "closed"
	RoundStatusSettled   RoundStatus = "settled"
	RoundStatusCancelled RoundStatus = "cancelled"
)

// Valid reports whether s is a known round status.
func (s RoundStatus) Valid() bool {
	switch s {
	case RoundStatusUpcoming, RoundStatusOpen, RoundStatusClosed,
		RoundStatusSettled, RoundStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status can never change again.
func (s RoundStatus) Terminal() bool {
	return s == RoundStatusSettled || s == RoundStatusCancelled
}

// CanTransitionTo reports whether a round may move from s to next. The normal
// path is upcoming -> open -> closed -> settled; cancelled is reachable from
// any non-terminal status. Terminal statuses never transition.
func (s RoundStatus) CanTransitionTo(next RoundStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == RoundStatusCancelled {
		return true
	}
	switch s {
	case RoundStatusUpcoming:
		return next == RoundStatusOpen
	case RoundStatusOpen:
		return next == RoundStatusClosed
	case RoundStatusClosed:
		return next == RoundStatusSettled
	}
	return false
}

// Round is the client-side mirror of one authoritative round. Options and
// multipliers are fixed for the round's lifetime; WinningOption is set only
// once the round settles.
type Round struct {
	ID            string
	Sequence      int64
	Category      GameCategory
	Status        RoundStatus
	OpensUntil    time.Time
	ResultTime    time.Time
	Options       []string
	Multipliers   map[string]float64
	WinningOption string
}

// AcceptingStakes reports whether new stakes may be attached to the round.
func (r Round) AcceptingStakes() bool {
	return r.Status == RoundStatusOpen
}

// MultiplierFor returns the payout multiplier for the given option label.
func (r Round) MultiplierFor(option string) (float64, bool) {
	m, ok := r.Multipliers[option]
	return m, ok
}

// HasOption reports whether the option label is one of the round's outcomes.
func (r Round) HasOption(option string) bool {
	for _, o := range r.Options {
		if o == option {
			return true
		}
	}
	return false
}

// Validate checks the structural invariants of a round as received from the
// push channel. Payloads that fail validation must never reach subscribers.
func (r Round) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("round: %w: missing id", ErrMalformedEvent)
	}
	if !r.Category.Valid() {
		return fmt.Errorf("round %s: %w: unknown category %q", r.ID, ErrMalformedEvent, r.Category)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("round %s: %w: unknown status %q", r.ID, ErrMalformedEvent, r.Status)
	}
	if len(r.Options) == 0 {
		return fmt.Errorf("round %s: %w: no options", r.ID, ErrMalformedEvent)
	}
	for _, o := range r.Options {
		if _, ok := r.Multipliers[o]; !ok {
			return fmt.Errorf("round %s: %w: option %q has no multiplier", r.ID, ErrMalformedEvent, o)
		}
	}
	// WinningOption is present if and only if the round is settled.
	if (r.WinningOption != "") != (r.Status == RoundStatusSettled) {
		return fmt.Errorf("round %s: %w: winning option %q inconsistent with status %q",
			r.ID, ErrMalformedEvent, r.WinningOption, r.Status)
	}
	if r.WinningOption != "" && !r.HasOption(r.WinningOption) {
		return fmt.Errorf("round %s: %w: winning option %q not among options",
			r.ID, ErrMalformedEvent, r.WinningOption)
	}
	return nil
}

// Clone returns a deep copy so readers never share slices or maps with the
// projection's single writer.
func (r Round) Clone() Round {
	out := r
	out.Options = append([]string(nil), r.Options...)
	out.Multipliers = make(map[string]float64, len(r.Multipliers))
	for k, v := range r.Multipliers {
		out.Multipliers[k] = v
	}
	return out
}
