package gamehub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IOS2004/we-news-sub000/internal/domain"
)

type fakeSender struct {
	err   error
	sent  []string // event names
	datas []any
}

func (f *fakeSender) SendIntent(event string, data any) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, event)
	f.datas = append(f.datas, data)
	return nil
}

func TestJoinRoomSendsIntent(t *testing.T) {
	sender := &fakeSender{}
	rm := NewRoomManager(sender, testLogger())

	require.NoError(t, rm.JoinRoom(domain.CategoryColor))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, IntentJoinTrading, sender.sent[0])

	raw, err := json.Marshal(sender.datas[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"gameCategory":"color"}`, string(raw))
}

func TestJoinRoomRejectsUnknownCategory(t *testing.T) {
	rm := NewRoomManager(&fakeSender{}, testLogger())
	assert.ErrorIs(t, rm.JoinRoom("dice"), domain.ErrUnknownCategory)
	assert.Empty(t, rm.Desired())
}

func TestJoinRoomWhileDisconnectedIsDeferred(t *testing.T) {
	sender := &fakeSender{err: domain.ErrNotConnected}
	rm := NewRoomManager(sender, testLogger())

	// The channel being down is not a join failure; the desired set still
	// records the room for the next reconnect.
	require.NoError(t, rm.JoinRoom(domain.CategoryNumber))
	assert.Equal(t, []domain.GameCategory{domain.CategoryNumber}, rm.Desired())
}

func TestResubscribeIssuesOneJoinPerDesiredRoom(t *testing.T) {
	sender := &fakeSender{}
	rm := NewRoomManager(sender, testLogger())

	require.NoError(t, rm.JoinRoom(domain.CategoryColor))
	require.NoError(t, rm.JoinRoom(domain.CategoryNumber))
	require.NoError(t, rm.JoinRoom(domain.CategoryColor)) // joining twice is fine

	sender.sent = nil
	rm.Resubscribe()

	assert.Len(t, sender.sent, 2, "exactly one join per desired room")
}

func TestLeaveRoomStopsRejoin(t *testing.T) {
	sender := &fakeSender{}
	rm := NewRoomManager(sender, testLogger())

	require.NoError(t, rm.JoinRoom(domain.CategoryColor))
	require.NoError(t, rm.JoinRoom(domain.CategoryNumber))
	rm.LeaveRoom(domain.CategoryColor)

	sender.sent = nil
	sender.datas = nil
	rm.Resubscribe()

	require.Len(t, sender.sent, 1)
	raw, err := json.Marshal(sender.datas[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"gameCategory":"number"}`, string(raw))
}

func TestJoinRound(t *testing.T) {
	sender := &fakeSender{}
	rm := NewRoomManager(sender, testLogger())

	require.NoError(t, rm.JoinRound("r-9"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, IntentJoinRound, sender.sent[0])

	// Round joins are fire-and-forget, never part of the desired set.
	assert.Empty(t, rm.Desired())
}
