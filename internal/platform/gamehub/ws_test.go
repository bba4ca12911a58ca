package gamehub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IOS2004/we-news-sub000/internal/domain"
)

// fakeWire is a scripted WireConn. ReadMessage blocks on the inbound channel
// and fails once the connection is broken.
type fakeWire struct {
	inbound chan []byte
	broken  chan struct{}
	once    sync.Once

	mu      sync.Mutex
	written [][]byte
}

func newFakeWire() *fakeWire {
	return &fakeWire{
		inbound: make(chan []byte, 16),
		broken:  make(chan struct{}),
	}
}

func (f *fakeWire) breakConn() {
	f.once.Do(func() { close(f.broken) })
}

func (f *fakeWire) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-f.inbound:
		return 1, msg, nil
	case <-f.broken:
		return 0, nil, errors.New("connection reset")
	}
}

func (f *fakeWire) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, append([]byte(nil), data...))
	return nil
}

func (f *fakeWire) WriteControl(messageType int, data []byte, deadline time.Time) error {
	return nil
}

func (f *fakeWire) SetReadDeadline(t time.Time) error          { return nil }
func (f *fakeWire) SetWriteDeadline(t time.Time) error         { return nil }
func (f *fakeWire) SetPongHandler(h func(appData string) error) {}

func (f *fakeWire) Close() error {
	f.breakConn()
	return nil
}

// fakeDialer scripts the outcome of successive dial attempts.
type fakeDialer struct {
	mu       sync.Mutex
	attempts int
	outcomes []func() (WireConn, *http.Response, error)
}

func (d *fakeDialer) dial(ctx context.Context, url string, header http.Header) (WireConn, *http.Response, error) {
	d.mu.Lock()
	i := d.attempts
	d.attempts++
	d.mu.Unlock()
	if i < len(d.outcomes) {
		return d.outcomes[i]()
	}
	return d.outcomes[len(d.outcomes)-1]()
}

func (d *fakeDialer) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

func dialOK(wire *fakeWire) func() (WireConn, *http.Response, error) {
	return func() (WireConn, *http.Response, error) {
		return wire, &http.Response{StatusCode: http.StatusSwitchingProtocols}, nil
	}
}

func dialFail() func() (WireConn, *http.Response, error) {
	return func() (WireConn, *http.Response, error) {
		return nil, nil, errors.New("connection refused")
	}
}

func dialRejected(status int) func() (WireConn, *http.Response, error) {
	return func() (WireConn, *http.Response, error) {
		return nil, &http.Response{StatusCode: status}, errors.New("bad handshake")
	}
}

type staticCreds string

func (s staticCreds) Token(ctx context.Context) (string, error) { return string(s), nil }

func newTestConn(t *testing.T, d *fakeDialer) (*Conn, chan Status) {
	t.Helper()
	conn := NewConn(ConnConfig{
		URL:         "wss://hub.test/game",
		MaxAttempts: 2,
		RetryDelay:  time.Millisecond,
	}, staticCreds("token-1"), NewDispatcher(testLogger()), testLogger()).WithDialer(d.dial)

	statuses := make(chan Status, 32)
	conn.OnStatus(func(s Status) { statuses <- s })
	return conn, statuses
}

func waitStatus(t *testing.T, statuses chan Status, want Status) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case s := <-statuses:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status %q", want)
		}
	}
}

func TestConnectSuccess(t *testing.T) {
	wire := newFakeWire()
	d := &fakeDialer{outcomes: []func() (WireConn, *http.Response, error){dialOK(wire)}}
	conn, statuses := newTestConn(t, d)

	hookRan := make(chan struct{}, 1)
	conn.OnConnected(func() { hookRan <- struct{}{} })

	require.NoError(t, conn.Connect(context.Background()))
	defer conn.Disconnect()

	assert.True(t, conn.IsConnected())
	waitStatus(t, statuses, StatusConnected)
	select {
	case <-hookRan:
	default:
		t.Fatal("connect hook did not run")
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	wire := newFakeWire()
	d := &fakeDialer{outcomes: []func() (WireConn, *http.Response, error){dialOK(wire)}}
	conn, _ := newTestConn(t, d)

	require.NoError(t, conn.Connect(context.Background()))
	defer conn.Disconnect()
	require.NoError(t, conn.Connect(context.Background()))

	assert.Equal(t, 1, d.calls(), "an established connection must not be re-dialed")
}

func TestConnectAuthRejected(t *testing.T) {
	d := &fakeDialer{outcomes: []func() (WireConn, *http.Response, error){dialRejected(http.StatusUnauthorized)}}
	conn, statuses := newTestConn(t, d)

	err := conn.Connect(context.Background())
	require.ErrorIs(t, err, domain.ErrAuthRejected)
	assert.False(t, conn.IsConnected())
	waitStatus(t, statuses, StatusAuthRejected)
}

func TestInitialConnectRetriesToCeiling(t *testing.T) {
	d := &fakeDialer{outcomes: []func() (WireConn, *http.Response, error){dialFail()}}
	conn, statuses := newTestConn(t, d) // MaxAttempts: 2

	err := conn.Connect(context.Background())
	require.Error(t, err)
	assert.False(t, conn.IsConnected())
	assert.Equal(t, 2, d.calls(), "every attempt up to the ceiling must dial")
	waitStatus(t, statuses, StatusGaveUp)
}

func TestInitialConnectRecoversWithinCeiling(t *testing.T) {
	wire := newFakeWire()
	d := &fakeDialer{outcomes: []func() (WireConn, *http.Response, error){
		dialFail(),
		dialOK(wire),
	}}
	conn, statuses := newTestConn(t, d)

	require.NoError(t, conn.Connect(context.Background()))
	defer conn.Disconnect()

	assert.True(t, conn.IsConnected())
	assert.Equal(t, 2, d.calls())
	waitStatus(t, statuses, StatusConnected)
}

func TestDisconnectAbandonsInFlightRedial(t *testing.T) {
	first := newFakeWire()
	second := newFakeWire()
	dialStarted := make(chan struct{})
	release := make(chan struct{})
	d := &fakeDialer{outcomes: []func() (WireConn, *http.Response, error){
		dialOK(first),
		func() (WireConn, *http.Response, error) {
			close(dialStarted)
			<-release
			return second, &http.Response{StatusCode: http.StatusSwitchingProtocols}, nil
		},
	}}
	conn, statuses := newTestConn(t, d)

	require.NoError(t, conn.Connect(context.Background()))
	first.breakConn()
	waitStatus(t, statuses, StatusReconnecting)

	// Tear down while the redial is mid-handshake, then let it complete.
	<-dialStarted
	conn.Disconnect()
	waitStatus(t, statuses, StatusDisconnected)
	close(release)

	time.Sleep(20 * time.Millisecond)
	assert.False(t, conn.IsConnected(), "a completing dial must not survive Disconnect")
	select {
	case s := <-statuses:
		t.Fatalf("unexpected status %q after disconnect", s)
	default:
	}
}

func TestSendIntentWhileDisconnected(t *testing.T) {
	d := &fakeDialer{outcomes: []func() (WireConn, *http.Response, error){dialFail()}}
	conn, _ := newTestConn(t, d)

	err := conn.SendIntent(IntentJoinTrading, joinTradingData{Category: "color"})
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestSendIntentWritesFrame(t *testing.T) {
	wire := newFakeWire()
	d := &fakeDialer{outcomes: []func() (WireConn, *http.Response, error){dialOK(wire)}}
	conn, _ := newTestConn(t, d)

	require.NoError(t, conn.Connect(context.Background()))
	defer conn.Disconnect()

	require.NoError(t, conn.SendIntent(IntentJoinTrading, joinTradingData{Category: "number"}))

	wire.mu.Lock()
	defer wire.mu.Unlock()
	require.Len(t, wire.written, 1)

	var f frame
	require.NoError(t, json.Unmarshal(wire.written[0], &f))
	assert.Equal(t, IntentJoinTrading, f.Event)
	assert.JSONEq(t, `{"gameCategory":"number"}`, string(f.Data))
}

func TestInboundFramesReachDispatcher(t *testing.T) {
	wire := newFakeWire()
	d := &fakeDialer{outcomes: []func() (WireConn, *http.Response, error){dialOK(wire)}}

	dispatcher := NewDispatcher(testLogger())
	gotRound := make(chan domain.Round, 1)
	dispatcher.OnRoundCreated(func(r domain.Round) { gotRound <- r })

	conn := NewConn(ConnConfig{URL: "wss://hub.test/game"}, nil, dispatcher, testLogger()).WithDialer(d.dial)
	require.NoError(t, conn.Connect(context.Background()))
	defer conn.Disconnect()

	wire.inbound <- frameJSON(EventRoundCreated, roundJSON("r-1", "open", ""))

	select {
	case r := <-gotRound:
		assert.Equal(t, "r-1", r.ID)
	case <-time.After(3 * time.Second):
		t.Fatal("frame never reached the dispatcher")
	}
}

func TestReconnectAfterBrokenConnection(t *testing.T) {
	first := newFakeWire()
	second := newFakeWire()
	d := &fakeDialer{outcomes: []func() (WireConn, *http.Response, error){
		dialOK(first),
		dialOK(second),
	}}
	conn, statuses := newTestConn(t, d)

	reconnects := make(chan struct{}, 4)
	conn.OnConnected(func() { reconnects <- struct{}{} })

	require.NoError(t, conn.Connect(context.Background()))
	defer conn.Disconnect()
	<-reconnects

	first.breakConn()

	waitStatus(t, statuses, StatusReconnecting)
	select {
	case <-reconnects:
	case <-time.After(3 * time.Second):
		t.Fatal("connection never re-established")
	}
	assert.True(t, conn.IsConnected())
	assert.Equal(t, 2, d.calls())
}

func TestRetryCeilingGivesUp(t *testing.T) {
	wire := newFakeWire()
	d := &fakeDialer{outcomes: []func() (WireConn, *http.Response, error){
		dialOK(wire),
		dialFail(),
	}}
	conn, statuses := newTestConn(t, d) // MaxAttempts: 2

	require.NoError(t, conn.Connect(context.Background()))
	wire.breakConn()

	waitStatus(t, statuses, StatusGaveUp)
	assert.False(t, conn.IsConnected())
	// One successful dial plus exactly MaxAttempts failed redials.
	assert.Equal(t, 3, d.calls())
}

func TestAuthRejectionDuringReconnectIsNotRetried(t *testing.T) {
	wire := newFakeWire()
	d := &fakeDialer{outcomes: []func() (WireConn, *http.Response, error){
		dialOK(wire),
		dialRejected(http.StatusForbidden),
	}}
	conn, statuses := newTestConn(t, d)

	require.NoError(t, conn.Connect(context.Background()))
	wire.breakConn()

	waitStatus(t, statuses, StatusAuthRejected)

	// Give any stray retry a chance to fire, then confirm none did.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, d.calls(), "a rejected credential must not be retried")
	assert.False(t, conn.IsConnected())
}
