package gamehub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IOS2004/we-news-sub000/internal/domain"
)

// Inbound event names. Events are game-category scoped unless noted.
const (
	EventRoundCreated   = "round:created"
	EventRoundUpdated   = "round:updated"
	EventRoundClosed    = "round:closed"
	EventRoundFinalized = "round:finalized"
	EventOrderPlaced    = "order:placed"
	EventRoundTimer     = "round:timer"
)

// Outbound intent names. Fire-and-forget; no acknowledgment payload is
// relied upon.
const (
	IntentJoinTrading = "join:trading"
	IntentJoinRound   = "join:round"
)

// frame is the envelope every channel message travels in.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// roundMessage is the wire shape of a Round as sent by the authority.
type roundMessage struct {
	ID            string             `json:"id"`
	Sequence      int64              `json:"sequenceNumber"`
	Category      string             `json:"gameCategory"`
	Status        string             `json:"status"`
	OpensUntil    time.Time          `json:"opensUntil"`
	ResultTime    time.Time          `json:"resultTime"`
	Options       []string           `json:"options"`
	Multipliers   map[string]float64 `json:"multipliers"`
	WinningOption string             `json:"winningOption,omitempty"`
}

// toDomain converts the wire round to a domain Round and validates its
// shape. An error here means the payload must be dropped.
func (m *roundMessage) toDomain() (domain.Round, error) {
	r := domain.Round{
		ID:            m.ID,
		Sequence:      m.Sequence,
		Category:      domain.GameCategory(m.Category),
		Status:        domain.RoundStatus(m.Status),
		OpensUntil:    m.OpensUntil,
		ResultTime:    m.ResultTime,
		Options:       m.Options,
		Multipliers:   m.Multipliers,
		WinningOption: m.WinningOption,
	}
	if err := r.Validate(); err != nil {
		return domain.Round{}, err
	}
	return r, nil
}

// orderMessage is the wire shape of another participant's order inside an
// order:placed event.
type orderMessage struct {
	ID         string   `json:"id"`
	RoundID    string   `json:"roundId"`
	Category   string   `json:"gameCategory"`
	Selections []string `json:"selectedOptions"`
	Stake      int64    `json:"stakeAmount"`
}

// orderPlacedMessage carries both the order and the round it targets.
type orderPlacedMessage struct {
	Order orderMessage `json:"order"`
	Round roundMessage `json:"round"`
}

func (m *orderPlacedMessage) toDomain() (domain.OrderActivity, domain.Round, error) {
	round, err := m.Round.toDomain()
	if err != nil {
		return domain.OrderActivity{}, domain.Round{}, err
	}
	o := m.Order
	if o.ID == "" || o.RoundID == "" {
		return domain.OrderActivity{}, domain.Round{},
			fmt.Errorf("order %q: %w: missing id or round id", o.ID, domain.ErrMalformedEvent)
	}
	if o.Stake <= 0 {
		return domain.OrderActivity{}, domain.Round{},
			fmt.Errorf("order %s: %w: non-positive stake", o.ID, domain.ErrMalformedEvent)
	}
	activity := domain.OrderActivity{
		OrderID:    o.ID,
		RoundID:    o.RoundID,
		Category:   domain.GameCategory(o.Category),
		Selections: o.Selections,
		Stake:      o.Stake,
	}
	return activity, round, nil
}

// timerMessage is the wire shape of a countdown tick. TimeLeft is in
// milliseconds.
type timerMessage struct {
	RoundID    string `json:"roundId"`
	TimeLeftMs int64  `json:"timeLeft"`
}

func (m *timerMessage) toDomain() (domain.TimerTick, error) {
	if m.RoundID == "" {
		return domain.TimerTick{}, fmt.Errorf("timer: %w: missing round id", domain.ErrMalformedEvent)
	}
	if m.TimeLeftMs < 0 {
		return domain.TimerTick{}, fmt.Errorf("timer for %s: %w: negative time left", m.RoundID, domain.ErrMalformedEvent)
	}
	return domain.TimerTick{
		RoundID:  m.RoundID,
		TimeLeft: time.Duration(m.TimeLeftMs) * time.Millisecond,
	}, nil
}

// joinTradingData is the payload of a join:trading intent.
type joinTradingData struct {
	Category string `json:"gameCategory"`
}

// joinRoundData is the payload of a join:round intent.
type joinRoundData struct {
	RoundID string `json:"roundId"`
}
