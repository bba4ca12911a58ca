package gamehub

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IOS2004/we-news-sub000/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func roundJSON(id, status, winning string) json.RawMessage {
	m := map[string]any{
		"id":             id,
		"sequenceNumber": 7,
		"gameCategory":   "color",
		"status":         status,
		"options":        []string{"red", "green", "violet"},
		"multipliers":    map[string]float64{"red": 2, "green": 2, "violet": 4.5},
	}
	if winning != "" {
		m["winningOption"] = winning
	}
	data, _ := json.Marshal(m)
	return data
}

func frameJSON(event string, data json.RawMessage) []byte {
	raw, _ := json.Marshal(map[string]any{"event": event, "data": data})
	return raw
}

func TestDispatchRoutesByEventKind(t *testing.T) {
	d := NewDispatcher(testLogger())

	var got []string
	d.OnRoundCreated(func(r domain.Round) { got = append(got, "created:"+r.ID) })
	d.OnRoundUpdated(func(r domain.Round) { got = append(got, "updated:"+r.ID) })
	d.OnRoundClosed(func(r domain.Round) { got = append(got, "closed:"+r.ID) })
	d.OnRoundFinalized(func(r domain.Round) { got = append(got, "finalized:"+r.ID) })

	d.Dispatch(frameJSON(EventRoundCreated, roundJSON("r-1", "open", "")))
	d.Dispatch(frameJSON(EventRoundClosed, roundJSON("r-1", "closed", "")))
	d.Dispatch(frameJSON(EventRoundFinalized, roundJSON("r-1", "settled", "red")))

	assert.Equal(t, []string{"created:r-1", "closed:r-1", "finalized:r-1"}, got)
}

func TestDispatchOrderingWithinEventKind(t *testing.T) {
	d := NewDispatcher(testLogger())

	var got []string
	for i := 0; i < 3; i++ {
		i := i
		d.OnRoundCreated(func(domain.Round) { got = append(got, fmt.Sprintf("h%d", i)) })
	}

	d.Dispatch(frameJSON(EventRoundCreated, roundJSON("r-1", "open", "")))
	assert.Equal(t, []string{"h0", "h1", "h2"}, got, "handlers run in registration order")
}

func TestDispatchDropsMalformedPayloads(t *testing.T) {
	d := NewDispatcher(testLogger())

	calls := 0
	d.OnRoundCreated(func(domain.Round) { calls++ })
	d.OnRoundFinalized(func(domain.Round) { calls++ })

	// Not JSON at all.
	d.Dispatch([]byte("not json"))
	// Missing id.
	d.Dispatch(frameJSON(EventRoundCreated, roundJSON("", "open", "")))
	// Winning option on a non-settled round.
	d.Dispatch(frameJSON(EventRoundCreated, roundJSON("r-1", "open", "red")))
	// Settled without winning option.
	d.Dispatch(frameJSON(EventRoundFinalized, roundJSON("r-1", "settled", "")))
	// Unknown status.
	d.Dispatch(frameJSON(EventRoundCreated, roundJSON("r-1", "paused", "")))

	assert.Zero(t, calls, "no malformed payload may reach a handler")
}

func TestDispatchIgnoresUnknownEvents(t *testing.T) {
	d := NewDispatcher(testLogger())
	calls := 0
	d.OnRoundCreated(func(domain.Round) { calls++ })

	d.Dispatch(frameJSON("round:exploded", roundJSON("r-1", "open", "")))
	assert.Zero(t, calls)
}

func TestDispatchTimerTick(t *testing.T) {
	d := NewDispatcher(testLogger())

	var got domain.TimerTick
	d.OnTimerTick(func(tick domain.TimerTick) { got = tick })

	data, _ := json.Marshal(map[string]any{"roundId": "r-1", "timeLeft": 30000})
	d.Dispatch(frameJSON(EventRoundTimer, data))

	assert.Equal(t, "r-1", got.RoundID)
	assert.Equal(t, 30*time.Second, got.TimeLeft)

	// Negative time left is malformed.
	bad, _ := json.Marshal(map[string]any{"roundId": "r-1", "timeLeft": -5})
	got = domain.TimerTick{}
	d.Dispatch(frameJSON(EventRoundTimer, bad))
	assert.Empty(t, got.RoundID)
}

func TestDispatchOrderPlaced(t *testing.T) {
	d := NewDispatcher(testLogger())

	var gotActivity domain.OrderActivity
	var gotRound domain.Round
	d.OnOrderPlaced(func(a domain.OrderActivity, r domain.Round) {
		gotActivity = a
		gotRound = r
	})

	payload, _ := json.Marshal(map[string]any{
		"order": map[string]any{
			"id":              "o-1",
			"roundId":         "r-1",
			"gameCategory":    "color",
			"selectedOptions": []string{"red"},
			"stakeAmount":     25,
		},
		"round": json.RawMessage(roundJSON("r-1", "open", "")),
	})
	d.Dispatch(frameJSON(EventOrderPlaced, payload))

	require.Equal(t, "o-1", gotActivity.OrderID)
	assert.Equal(t, int64(25), gotActivity.Stake)
	assert.Equal(t, "r-1", gotRound.ID)
}

func TestRemoveAllListeners(t *testing.T) {
	d := NewDispatcher(testLogger())
	calls := 0
	d.OnRoundCreated(func(domain.Round) { calls++ })
	d.OnTimerTick(func(domain.TimerTick) { calls++ })

	d.RemoveAllListeners()

	d.Dispatch(frameJSON(EventRoundCreated, roundJSON("r-1", "open", "")))
	data, _ := json.Marshal(map[string]any{"roundId": "r-1", "timeLeft": 1000})
	d.Dispatch(frameJSON(EventRoundTimer, data))

	assert.Zero(t, calls)
}
