package gamehub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/IOS2004/we-news-sub000/internal/domain"
)

// RoundHandler receives a validated round payload.
type RoundHandler func(domain.Round)

// OrderActivityHandler receives another participant's order together with the
// round it targets.
type OrderActivityHandler func(domain.OrderActivity, domain.Round)

// TimerHandler receives an advisory countdown tick.
type TimerHandler func(domain.TimerTick)

// Dispatcher fans inbound channel events out to registered handlers. Every
// payload is validated against the round shape before dispatch; malformed
// payloads are logged and dropped, never forwarded (fail-closed).
//
// Dispatch is synchronous and ordered: handlers for an event kind run in
// registration order, and events are delivered in the order they arrive off
// the wire. The dispatcher never reorders or coalesces.
type Dispatcher struct {
	mu        sync.Mutex
	created   []RoundHandler
	updated   []RoundHandler
	closed    []RoundHandler
	finalized []RoundHandler
	placed    []OrderActivityHandler
	timer     []TimerHandler

	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher with no handlers registered.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		logger: logger.With(slog.String("component", "dispatcher")),
	}
}

// OnRoundCreated registers a handler for round:created.
func (d *Dispatcher) OnRoundCreated(h RoundHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created = append(d.created, h)
}

// OnRoundUpdated registers a handler for round:updated.
func (d *Dispatcher) OnRoundUpdated(h RoundHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updated = append(d.updated, h)
}

// OnRoundClosed registers a handler for round:closed.
func (d *Dispatcher) OnRoundClosed(h RoundHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = append(d.closed, h)
}

// OnRoundFinalized registers a handler for round:finalized.
func (d *Dispatcher) OnRoundFinalized(h RoundHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finalized = append(d.finalized, h)
}

// OnOrderPlaced registers a handler for order:placed.
func (d *Dispatcher) OnOrderPlaced(h OrderActivityHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.placed = append(d.placed, h)
}

// OnTimerTick registers a handler for round:timer.
func (d *Dispatcher) OnTimerTick(h TimerHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timer = append(d.timer, h)
}

// RemoveAllListeners detaches every handler for every event kind. Used on
// teardown so remounted consumers do not accumulate duplicate handlers.
func (d *Dispatcher) RemoveAllListeners() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created = nil
	d.updated = nil
	d.closed = nil
	d.finalized = nil
	d.placed = nil
	d.timer = nil
}

// Dispatch parses one raw channel frame and routes it to the handlers for
// its event kind. Unknown events are ignored; malformed payloads are logged
// and dropped.
func (d *Dispatcher) Dispatch(raw []byte) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		d.logger.Warn("dropping unparseable frame", slog.String("error", err.Error()))
		return
	}

	switch f.Event {
	case EventRoundCreated:
		d.dispatchRound(f, d.roundHandlers(&d.created))
	case EventRoundUpdated:
		d.dispatchRound(f, d.roundHandlers(&d.updated))
	case EventRoundClosed:
		d.dispatchRound(f, d.roundHandlers(&d.closed))
	case EventRoundFinalized:
		d.dispatchRound(f, d.roundHandlers(&d.finalized))

	case EventOrderPlaced:
		var msg orderPlacedMessage
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			d.dropMalformed(f.Event, err)
			return
		}
		activity, round, err := msg.toDomain()
		if err != nil {
			d.dropMalformed(f.Event, err)
			return
		}
		d.mu.Lock()
		handlers := append([]OrderActivityHandler(nil), d.placed...)
		d.mu.Unlock()
		for _, h := range handlers {
			h(activity, round)
		}

	case EventRoundTimer:
		var msg timerMessage
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			d.dropMalformed(f.Event, err)
			return
		}
		tick, err := msg.toDomain()
		if err != nil {
			d.dropMalformed(f.Event, err)
			return
		}
		d.mu.Lock()
		handlers := append([]TimerHandler(nil), d.timer...)
		d.mu.Unlock()
		for _, h := range handlers {
			h(tick)
		}

	default:
		d.logger.Debug("ignoring unknown event", slog.String("event", f.Event))
	}
}

// roundHandlers snapshots one handler list under the lock.
func (d *Dispatcher) roundHandlers(list *[]RoundHandler) []RoundHandler {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]RoundHandler(nil), *list...)
}

// dispatchRound decodes, validates, and delivers a round-carrying event.
func (d *Dispatcher) dispatchRound(f frame, handlers []RoundHandler) {
	var msg roundMessage
	if err := json.Unmarshal(f.Data, &msg); err != nil {
		d.dropMalformed(f.Event, err)
		return
	}
	round, err := msg.toDomain()
	if err != nil {
		d.dropMalformed(f.Event, err)
		return
	}
	for _, h := range handlers {
		h(round)
	}
}

func (d *Dispatcher) dropMalformed(event string, err error) {
	d.logger.Warn("dropping malformed payload",
		slog.String("event", event),
		slog.String("error", err.Error()),
	)
}
