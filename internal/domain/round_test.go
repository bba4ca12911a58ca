package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRound() Round {
	return Round{
		ID:       "r-1",
		Sequence: 42,
		Category: CategoryColor,
		Status:   RoundStatusOpen,
		Options:  []string{"red", "green", "violet"},
		Multipliers: map[string]float64{
			"red":    2.0,
			"green":  2.0,
			"violet": 4.5,
		},
	}
}

func TestRoundStatusTransitions(t *testing.T) {
	cases := []struct {
		name string
		from RoundStatus
		to   RoundStatus
		want bool
	}{
		{"upcoming to open", RoundStatusUpcoming, RoundStatusOpen, true},
		{"open to closed", RoundStatusOpen, RoundStatusClosed, true},
		{"closed to settled", RoundStatusClosed, RoundStatusSettled, true},
		{"upcoming to cancelled", RoundStatusUpcoming, RoundStatusCancelled, true},
		{"open to cancelled", RoundStatusOpen, RoundStatusCancelled, true},
		{"closed to cancelled", RoundStatusClosed, RoundStatusCancelled, true},
		{"open to settled skips closed", RoundStatusOpen, RoundStatusSettled, false},
		{"upcoming to closed skips open", RoundStatusUpcoming, RoundStatusClosed, false},
		{"closed back to open", RoundStatusClosed, RoundStatusOpen, false},
		{"settled is terminal", RoundStatusSettled, RoundStatusCancelled, false},
		{"cancelled is terminal", RoundStatusCancelled, RoundStatusOpen, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestRoundStatusTerminal(t *testing.T) {
	assert.True(t, RoundStatusSettled.Terminal())
	assert.True(t, RoundStatusCancelled.Terminal())
	assert.False(t, RoundStatusUpcoming.Terminal())
	assert.False(t, RoundStatusOpen.Terminal())
	assert.False(t, RoundStatusClosed.Terminal())
}

func TestRoundValidate(t *testing.T) {
	t.Run("valid open round", func(t *testing.T) {
		require.NoError(t, validRound().Validate())
	})

	t.Run("missing id", func(t *testing.T) {
		r := validRound()
		r.ID = ""
		assert.ErrorIs(t, r.Validate(), ErrMalformedEvent)
	})

	t.Run("unknown category", func(t *testing.T) {
		r := validRound()
		r.Category = "dice"
		assert.ErrorIs(t, r.Validate(), ErrMalformedEvent)
	})

	t.Run("unknown status", func(t *testing.T) {
		r := validRound()
		r.Status = "paused"
		assert.ErrorIs(t, r.Validate(), ErrMalformedEvent)
	})

	t.Run("no options", func(t *testing.T) {
		r := validRound()
		r.Options = nil
		assert.ErrorIs(t, r.Validate(), ErrMalformedEvent)
	})

	t.Run("option without multiplier", func(t *testing.T) {
		r := validRound()
		r.Options = append(r.Options, "orange")
		assert.ErrorIs(t, r.Validate(), ErrMalformedEvent)
	})

	t.Run("winning option on a non-settled round", func(t *testing.T) {
		r := validRound()
		r.WinningOption = "red"
		assert.ErrorIs(t, r.Validate(), ErrMalformedEvent)
	})

	t.Run("settled round without winning option", func(t *testing.T) {
		r := validRound()
		r.Status = RoundStatusSettled
		assert.ErrorIs(t, r.Validate(), ErrMalformedEvent)
	})

	t.Run("settled round with winning option", func(t *testing.T) {
		r := validRound()
		r.Status = RoundStatusSettled
		r.WinningOption = "violet"
		require.NoError(t, r.Validate())
	})

	t.Run("winning option not among options", func(t *testing.T) {
		r := validRound()
		r.Status = RoundStatusSettled
		r.WinningOption = "orange"
		assert.ErrorIs(t, r.Validate(), ErrMalformedEvent)
	})
}

func TestRoundCloneIsDeep(t *testing.T) {
	r := validRound()
	c := r.Clone()

	c.Options[0] = "mutated"
	c.Multipliers["red"] = 99

	assert.Equal(t, "red", r.Options[0])
	assert.Equal(t, 2.0, r.Multipliers["red"])
}

func TestMaxSelections(t *testing.T) {
	assert.Equal(t, 1, CategoryColor.MaxSelections())
	assert.Equal(t, 3, CategoryNumber.MaxSelections())
	assert.Equal(t, 0, GameCategory("dice").MaxSelections())
}

func TestAcceptingStakes(t *testing.T) {
	r := validRound()
	assert.True(t, r.AcceptingStakes())
	for _, s := range []RoundStatus{RoundStatusUpcoming, RoundStatusClosed, RoundStatusSettled, RoundStatusCancelled} {
		r.Status = s
		assert.False(t, r.AcceptingStakes(), string(s))
	}
}
