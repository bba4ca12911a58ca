// Package projection maintains the client's best-effort mirror of the
// authoritative rounds, one live round per game category, rebuilt purely
// from dispatcher events.
package projection

import (
	"log/slog"
	"sync"
	"time"

	"github.com/IOS2004/we-news-sub000/internal/domain"
	"github.com/IOS2004/we-news-sub000/internal/platform/gamehub"
)

// Projection mirrors the live round per game category. It is mutated only by
// dispatcher callbacks (single writer); readers get deep copies and never
// share state with the writer.
//
// The projection never transitions speculatively: a countdown reaching zero
// does not close a round, only the authoritative closed event does.
type Projection struct {
	logger *slog.Logger

	mu       sync.RWMutex
	rounds   map[domain.GameCategory]domain.Round
	timeLeft map[string]time.Duration // advisory, keyed by round id

	onChange func(domain.Round) // optional, called after every accepted mutation
}

// New creates an empty projection.
func New(logger *slog.Logger) *Projection {
	return &Projection{
		logger:   logger.With(slog.String("component", "projection")),
		rounds:   make(map[domain.GameCategory]domain.Round),
		timeLeft: make(map[string]time.Duration),
	}
}

// OnChange sets a hook invoked with a copy of the round after every accepted
// mutation. The app uses it to keep the advisory round cache warm. Must be
// set before Bind.
func (p *Projection) OnChange(fn func(domain.Round)) {
	p.onChange = fn
}

// Bind registers the projection's handlers on the dispatcher. Call once.
func (p *Projection) Bind(d *gamehub.Dispatcher) {
	d.OnRoundCreated(p.applyCreated)
	d.OnRoundUpdated(p.applyTransition)
	d.OnRoundClosed(p.applyTransition)
	d.OnRoundFinalized(p.applyTransition)
	d.OnTimerTick(p.applyTimer)
}

// Seed installs a round for its category if none is mirrored yet. Used to
// warm the projection from the round cache on startup; a live round from the
// channel always wins over a seed.
func (p *Projection) Seed(r domain.Round) {
	if err := r.Validate(); err != nil {
		p.logger.Warn("discarding invalid seed round",
			slog.String("round", r.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.rounds[r.Category]; ok {
		return
	}
	p.rounds[r.Category] = r.Clone()
}

// Current returns a copy of the live round for the category.
func (p *Projection) Current(category domain.GameCategory) (domain.Round, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.rounds[category]
	if !ok {
		return domain.Round{}, false
	}
	return r.Clone(), true
}

// TimeLeft returns the advisory remaining time for the category's live
// round, when a timer tick has been seen for it.
func (p *Projection) TimeLeft(category domain.GameCategory) (time.Duration, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.rounds[category]
	if !ok {
		return 0, false
	}
	left, ok := p.timeLeft[r.ID]
	return left, ok
}

// Snapshot returns copies of every live round, keyed by category.
func (p *Projection) Snapshot() map[domain.GameCategory]domain.Round {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[domain.GameCategory]domain.Round, len(p.rounds))
	for c, r := range p.rounds {
		out[c] = r.Clone()
	}
	return out
}

// applyCreated installs a new round for its category. A created event while
// a non-terminal round is live supersedes it entirely: the old round is
// assumed replaced by the authority. Cart items referencing the old round
// are not discarded here; they surface as stale at add or submit time.
func (p *Projection) applyCreated(r domain.Round) {
	p.mu.Lock()
	if old, ok := p.rounds[r.Category]; ok {
		if old.ID == r.ID {
			p.mu.Unlock()
			p.applyTransition(r)
			return
		}
		if !old.Status.Terminal() {
			p.logger.Info("round superseded",
				slog.String("category", string(r.Category)),
				slog.String("old_round", old.ID),
				slog.String("new_round", r.ID),
			)
		}
		delete(p.timeLeft, old.ID)
	}
	p.rounds[r.Category] = r.Clone()
	p.mu.Unlock()

	p.notifyChange(r)
}

// applyTransition applies an updated/closed/finalized event to the live
// round. Events for a round that is no longer live, or transitions the state
// machine forbids, are ignored and logged.
func (p *Projection) applyTransition(r domain.Round) {
	p.mu.Lock()
	current, ok := p.rounds[r.Category]
	if !ok || current.ID != r.ID {
		p.mu.Unlock()
		p.logger.Debug("ignoring event for non-live round",
			slog.String("category", string(r.Category)),
			slog.String("round", r.ID),
		)
		return
	}
	if current.Status != r.Status && !current.Status.CanTransitionTo(r.Status) {
		p.mu.Unlock()
		p.logger.Warn("ignoring invalid status transition",
			slog.String("round", r.ID),
			slog.String("from", string(current.Status)),
			slog.String("to", string(r.Status)),
		)
		return
	}
	p.rounds[r.Category] = r.Clone()
	if r.Status.Terminal() {
		delete(p.timeLeft, r.ID)
	}
	p.mu.Unlock()

	if r.Status == domain.RoundStatusSettled {
		mult, _ := r.MultiplierFor(r.WinningOption)
		p.logger.Info("round settled",
			slog.String("round", r.ID),
			slog.String("winning_option", r.WinningOption),
			slog.Float64("multiplier", mult),
		)
	}
	p.notifyChange(r)
}

// applyTimer records an advisory countdown value. Strictly UI-facing: it
// never drives a status transition, even at zero.
func (p *Projection) applyTimer(t domain.TimerTick) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.rounds {
		if r.ID == t.RoundID {
			p.timeLeft[t.RoundID] = t.TimeLeft
			return
		}
	}
	// Tick for a round we do not mirror; drop it.
}

func (p *Projection) notifyChange(r domain.Round) {
	if p.onChange != nil {
		p.onChange(r.Clone())
	}
}
