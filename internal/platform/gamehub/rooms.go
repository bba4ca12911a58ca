package gamehub

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/IOS2004/we-news-sub000/internal/domain"
)

// IntentSender writes outbound intent frames. Satisfied by *Conn.
type IntentSender interface {
	SendIntent(event string, data any) error
}

// RoomManager tracks which game-category rooms the client wants to be in.
// The transport has no leave acknowledgment, so the locally held desired set
// is authoritative for "should we care about this category". After every
// reconnect the manager re-issues one join intent per desired room, making
// reconnection transparent to downstream consumers.
type RoomManager struct {
	sender IntentSender
	logger *slog.Logger

	mu      sync.Mutex
	desired map[domain.GameCategory]struct{}
}

// NewRoomManager creates a RoomManager. The caller wires it to the
// connection with conn.OnConnected(rm.Resubscribe).
func NewRoomManager(sender IntentSender, logger *slog.Logger) *RoomManager {
	return &RoomManager{
		sender:  sender,
		logger:  logger.With(slog.String("component", "rooms")),
		desired: make(map[domain.GameCategory]struct{}),
	}
}

// JoinRoom records the category in the desired set and sends a join intent.
// When the channel is down the intent is deferred to the next reconnect
// rather than failing.
func (m *RoomManager) JoinRoom(category domain.GameCategory) error {
	if !category.Valid() {
		return fmt.Errorf("rooms: %w: %q", domain.ErrUnknownCategory, category)
	}

	m.mu.Lock()
	m.desired[category] = struct{}{}
	m.mu.Unlock()

	err := m.sender.SendIntent(IntentJoinTrading, joinTradingData{Category: string(category)})
	if errors.Is(err, domain.ErrNotConnected) {
		m.logger.Debug("join deferred until reconnect", slog.String("category", string(category)))
		return nil
	}
	return err
}

// LeaveRoom removes the category from the desired set. The transport only
// truly detaches on disconnect, so no leave frame is sent; the local record
// is what stops future rejoins.
func (m *RoomManager) LeaveRoom(category domain.GameCategory) {
	m.mu.Lock()
	delete(m.desired, category)
	m.mu.Unlock()
}

// JoinRound sends a fire-and-forget join intent for a specific round. Round
// joins are not tracked: they are meaningless after the round ends.
func (m *RoomManager) JoinRound(roundID string) error {
	return m.sender.SendIntent(IntentJoinRound, joinRoundData{RoundID: roundID})
}

// Desired returns the categories currently wanted, sorted for determinism.
func (m *RoomManager) Desired() []domain.GameCategory {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.GameCategory, 0, len(m.desired))
	for c := range m.desired {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Resubscribe re-issues exactly one join intent per desired room. Invoked by
// the connection manager after every successful handshake.
func (m *RoomManager) Resubscribe() {
	for _, category := range m.Desired() {
		if err := m.sender.SendIntent(IntentJoinTrading, joinTradingData{Category: string(category)}); err != nil {
			m.logger.Warn("rejoin failed",
				slog.String("category", string(category)),
				slog.String("error", err.Error()),
			)
		}
	}
}
