package hub

import (
	"errors"
	"sync"
	"testing"
	"time"

	"airline/pkg/envelope"
	"airline/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	in     chan []byte
	out    chan []byte
	mu     sync.Mutex
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte), out: make(chan []byte, 16)}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	raw, ok := <-f.in
	if !ok {
		return 0, nil, errors.New("closed")
	}
	return 1, raw, nil
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.out <- data
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) next(t *testing.T) envelope.Envelope {
	t.Helper()
	select {
	case raw := <-f.out:
		env, err := envelope.Unmarshal(raw)
		require.NoError(t, err)
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("no message written")
		return envelope.Envelope{}
	}
}

func connect(t *testing.T, h *Hub, c *fakeConn) chan struct{} {
	t.Helper()
	done := make(chan struct{})
	before := h.ClientCount()
	go func() {
		h.HandleClientConn(c, "agent", "agent")
		close(done)
	}()
	require.Eventually(t, func() bool { return h.ClientCount() == before+1 }, 2*time.Second, 5*time.Millisecond)
	return done
}

func TestHub_PingPong(t *testing.T) {
	h := New(logger.NewNop())
	c := newFakeConn()
	done := connect(t, h, c)

	ping := envelope.New("ping", "client")
	raw, err := ping.Marshal()
	require.NoError(t, err)
	c.in <- raw

	pong := c.next(t)
	assert.Equal(t, "pong", pong.Action)
	assert.Equal(t, ping.ID, pong.ReplyTo)

	close(c.in)
	<-done
	assert.Equal(t, 0, h.ClientCount())
	assert.True(t, c.closed)
}

func TestHub_BadFrames(t *testing.T) {
	h := New(logger.NewNop())
	c := newFakeConn()
	done := connect(t, h, c)

	c.in <- []byte("{nope")
	bad := c.next(t)
	assert.Equal(t, "error", bad.Action)
	require.NotNil(t, bad.Error)
	assert.Equal(t, 400, bad.Error.Code)

	unknown, err := envelope.New("reserve", "client").Marshal()
	require.NoError(t, err)
	c.in <- unknown
	reply := c.next(t)
	assert.Equal(t, "reserve.error", reply.Action)
	require.NotNil(t, reply.Error)
	assert.Equal(t, 404, reply.Error.Code)
	assert.Equal(t, "agent", reply.Username)

	close(c.in)
	<-done
}

func TestHub_Broadcast(t *testing.T) {
	h := New(logger.NewNop())
	a, b := newFakeConn(), newFakeConn()
	doneA := connect(t, h, a)
	doneB := connect(t, h, b)
	assert.Equal(t, 2, h.ClientCount())

	env, err := envelope.NewEvent(envelope.ActionFlightCreated, "headquarters", map[string]string{"flightId": "7"})
	require.NoError(t, err)
	h.Broadcast(env)

	for _, c := range []*fakeConn{a, b} {
		got := c.next(t)
		assert.Equal(t, env.ID, got.ID)
		assert.Equal(t, envelope.ActionFlightCreated, got.Action)
		assert.JSONEq(t, `{"flightId":"7"}`, string(got.Data))
	}

	close(a.in)
	close(b.in)
	<-doneA
	<-doneB
}
