package projection

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IOS2004/we-news-sub000/internal/domain"
	"github.com/IOS2004/we-news-sub000/internal/platform/gamehub"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// bound returns a projection wired to a dispatcher, plus a feed func that
// pushes one raw frame through the dispatcher.
func bound(t *testing.T) (*Projection, func(event string, payload map[string]any)) {
	t.Helper()
	d := gamehub.NewDispatcher(testLogger())
	p := New(testLogger())
	p.Bind(d)

	feed := func(event string, payload map[string]any) {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		raw, err := json.Marshal(map[string]any{"event": event, "data": json.RawMessage(data)})
		require.NoError(t, err)
		d.Dispatch(raw)
	}
	return p, feed
}

func roundPayload(id, status, winning string) map[string]any {
	m := map[string]any{
		"id":             id,
		"sequenceNumber": 1,
		"gameCategory":   "color",
		"status":         status,
		"options":        []string{"red", "green", "violet"},
		"multipliers":    map[string]float64{"red": 2, "green": 2, "violet": 4.5},
	}
	if winning != "" {
		m["winningOption"] = winning
	}
	return m
}

func TestLifecycleThroughDispatcher(t *testing.T) {
	p, feed := bound(t)

	feed("round:created", roundPayload("r-1", "upcoming", ""))
	r, ok := p.Current(domain.CategoryColor)
	require.True(t, ok)
	assert.Equal(t, domain.RoundStatusUpcoming, r.Status)

	feed("round:updated", roundPayload("r-1", "open", ""))
	r, _ = p.Current(domain.CategoryColor)
	assert.Equal(t, domain.RoundStatusOpen, r.Status)
	assert.True(t, r.AcceptingStakes())

	feed("round:closed", roundPayload("r-1", "closed", ""))
	r, _ = p.Current(domain.CategoryColor)
	assert.Equal(t, domain.RoundStatusClosed, r.Status)

	feed("round:finalized", roundPayload("r-1", "settled", "violet"))
	r, _ = p.Current(domain.CategoryColor)
	assert.Equal(t, domain.RoundStatusSettled, r.Status)
	assert.Equal(t, "violet", r.WinningOption)
}

func TestInvalidTransitionIsIgnored(t *testing.T) {
	p, feed := bound(t)

	feed("round:created", roundPayload("r-1", "open", ""))
	// settled without passing through closed
	feed("round:finalized", roundPayload("r-1", "settled", "red"))

	r, ok := p.Current(domain.CategoryColor)
	require.True(t, ok)
	assert.Equal(t, domain.RoundStatusOpen, r.Status, "open cannot jump to settled")
}

func TestTerminalRoundNeverMutates(t *testing.T) {
	p, feed := bound(t)

	feed("round:created", roundPayload("r-1", "open", ""))
	feed("round:closed", roundPayload("r-1", "closed", ""))
	feed("round:finalized", roundPayload("r-1", "settled", "red"))

	feed("round:updated", roundPayload("r-1", "open", ""))
	r, _ := p.Current(domain.CategoryColor)
	assert.Equal(t, domain.RoundStatusSettled, r.Status)
	assert.Equal(t, "red", r.WinningOption)
}

func TestCreatedSupersedesLiveRound(t *testing.T) {
	p, feed := bound(t)

	feed("round:created", roundPayload("r-1", "open", ""))
	feed("round:created", roundPayload("r-2", "open", ""))

	r, ok := p.Current(domain.CategoryColor)
	require.True(t, ok)
	assert.Equal(t, "r-2", r.ID)

	// Events for the superseded round are ignored.
	feed("round:closed", roundPayload("r-1", "closed", ""))
	r, _ = p.Current(domain.CategoryColor)
	assert.Equal(t, domain.RoundStatusOpen, r.Status)
}

func TestCreatedForSameRoundActsAsTransition(t *testing.T) {
	p, feed := bound(t)

	feed("round:created", roundPayload("r-1", "upcoming", ""))
	feed("round:created", roundPayload("r-1", "open", ""))

	r, _ := p.Current(domain.CategoryColor)
	assert.Equal(t, domain.RoundStatusOpen, r.Status)
}

func TestTimerIsAdvisoryOnly(t *testing.T) {
	p, feed := bound(t)

	feed("round:created", roundPayload("r-1", "open", ""))
	feed("round:timer", map[string]any{"roundId": "r-1", "timeLeft": 15000})

	left, ok := p.TimeLeft(domain.CategoryColor)
	require.True(t, ok)
	assert.Equal(t, 15*time.Second, left)

	// A zero tick never closes the round.
	feed("round:timer", map[string]any{"roundId": "r-1", "timeLeft": 0})
	r, _ := p.Current(domain.CategoryColor)
	assert.Equal(t, domain.RoundStatusOpen, r.Status)

	// Ticks for unmirrored rounds are dropped.
	feed("round:timer", map[string]any{"roundId": "r-ghost", "timeLeft": 9000})
	left, _ = p.TimeLeft(domain.CategoryColor)
	assert.Equal(t, time.Duration(0), left)
}

func TestOnChangeObservesAcceptedMutations(t *testing.T) {
	d := gamehub.NewDispatcher(testLogger())
	p := New(testLogger())

	var seen []string
	p.OnChange(func(r domain.Round) {
		seen = append(seen, r.ID+":"+string(r.Status))
	})
	p.Bind(d)

	feed := func(event string, payload map[string]any) {
		data, _ := json.Marshal(payload)
		raw, _ := json.Marshal(map[string]any{"event": event, "data": json.RawMessage(data)})
		d.Dispatch(raw)
	}

	feed("round:created", roundPayload("r-1", "open", ""))
	feed("round:closed", roundPayload("r-1", "closed", ""))
	feed("round:finalized", roundPayload("r-1", "settled", "red")) // accepted
	feed("round:updated", roundPayload("r-1", "open", ""))         // rejected, no callback

	assert.Equal(t, []string{"r-1:open", "r-1:closed", "r-1:settled"}, seen)
}

func TestSeed(t *testing.T) {
	p := New(testLogger())

	seed := domain.Round{
		ID:          "r-cached",
		Category:    domain.CategoryColor,
		Status:      domain.RoundStatusOpen,
		Options:     []string{"red"},
		Multipliers: map[string]float64{"red": 2},
	}
	p.Seed(seed)

	r, ok := p.Current(domain.CategoryColor)
	require.True(t, ok)
	assert.Equal(t, "r-cached", r.ID)

	// A seed never replaces an existing mirror.
	other := seed
	other.ID = "r-later"
	p.Seed(other)
	r, _ = p.Current(domain.CategoryColor)
	assert.Equal(t, "r-cached", r.ID)

	// Invalid seeds are discarded.
	p2 := New(testLogger())
	bad := seed
	bad.Options = nil
	p2.Seed(bad)
	_, ok = p2.Current(domain.CategoryColor)
	assert.False(t, ok)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	p, feed := bound(t)
	feed("round:created", roundPayload("r-1", "open", ""))

	snap := p.Snapshot()
	require.Contains(t, snap, domain.CategoryColor)
	snap[domain.CategoryColor].Multipliers["red"] = 99

	r, _ := p.Current(domain.CategoryColor)
	assert.Equal(t, 2.0, r.Multipliers["red"])
}
