package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corkboard-dev/corkboard/pkg/board"
	"github.com/corkboard-dev/corkboard/pkg/protocol"
)

type fakeConn struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 64),
		out:    make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data, ok := <-c.in:
		if !ok {
			return nil, errors.New("connection reset")
		}
		return data, nil
	case <-c.closed:
		return nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	case c.out <- data:
		return nil
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// serve pushes a server-built envelope to the client.
func (c *fakeConn) serve(t *testing.T, typ protocol.MessageType, payload any) {
	t.Helper()
	c.in <- protocol.MustEncode(typ, payload, "")
}

// next decodes the client's next outbound envelope, failing after a timeout.
func (c *fakeConn) next(t *testing.T) *protocol.Envelope {
	t.Helper()
	select {
	case data := <-c.out:
		env, err := protocol.DecodeEnvelope(data)
		require.NoError(t, err)
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client message")
		return nil
	}
}

type fakeDialer struct {
	conns chan *fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Conn, error) {
	select {
	case conn := <-d.conns:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newTestAgent(dialer Dialer) *Agent {
	return New(Config{
		URL:         "ws://test/ws",
		Dialer:      dialer,
		BackoffBase: 5 * time.Millisecond,
		BackoffMax:  20 * time.Millisecond,
		DedupWindow: time.Minute,
	})
}

func TestQueueFlushedOnWelcome(t *testing.T) {
	dialer := &fakeDialer{conns: make(chan *fakeConn, 2)}
	agent := newTestAgent(dialer)

	// Queue while disconnected.
	agent.CreateNote("b1", 10, 20)
	agent.MoveNote("n1", 30, 40)
	agent.DeleteNote("n2")
	require.Equal(t, 3, agent.QueueLen())

	conn := newFakeConn()
	dialer.conns <- conn
	agent.Start(context.Background())
	defer agent.Stop()

	conn.serve(t, protocol.MsgWelcome, &protocol.WelcomePayload{SessionID: "s-1"})

	// Flush preserves FIFO order and stamps the assigned session id.
	env := conn.next(t)
	assert.Equal(t, protocol.MsgNoteCreate, env.Type)
	assert.Equal(t, "s-1", env.SessionID)
	assert.Equal(t, protocol.MsgNoteMove, conn.next(t).Type)
	assert.Equal(t, protocol.MsgNoteDelete, conn.next(t).Type)

	require.Eventually(t, func() bool {
		return agent.State() == StateConnected && agent.QueueLen() == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "s-1", agent.SessionID())
}

func TestCreateDedupWithinWindow(t *testing.T) {
	agent := newTestAgent(&fakeDialer{conns: make(chan *fakeConn)})

	agent.CreateNote("b1", 100, 200)
	agent.CreateNote("b1", 100, 200)
	assert.Equal(t, 1, agent.QueueLen(), "same position inside the window collapses")

	agent.CreateNote("b1", 101, 200)
	agent.CreateNote("b2", 100, 200)
	assert.Equal(t, 3, agent.QueueLen(), "different position or board is a new note")
}

func TestStopWithoutStartReturns(t *testing.T) {
	agent := newTestAgent(&fakeDialer{conns: make(chan *fakeConn)})

	done := make(chan struct{})
	go func() {
		agent.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on an agent that was never started")
	}
	assert.Equal(t, StateDisconnected, agent.State())
}

func TestCacheAppliesBroadcasts(t *testing.T) {
	dialer := &fakeDialer{conns: make(chan *fakeConn, 1)}
	conn := newFakeConn()
	dialer.conns <- conn

	agent := newTestAgent(dialer)
	agent.Start(context.Background())
	defer agent.Stop()

	conn.serve(t, protocol.MsgWelcome, &protocol.WelcomePayload{SessionID: "s-1"})

	b := &board.Board{ID: "b1", Name: "planning"}
	n := board.NewNote("b1", 5, 5)
	b.Notes = []*board.Note{n}
	conn.serve(t, protocol.MsgSyncResponse, &protocol.SyncResponsePayload{Board: b})

	require.Eventually(t, func() bool {
		_, ok := agent.Board("b1")
		return ok
	}, time.Second, 5*time.Millisecond)

	got, ok := agent.Board("b1")
	require.True(t, ok)
	assert.Equal(t, "planning", got.Name)
	require.Len(t, got.Notes, 1)

	// Newer version replaces the cached note.
	updated := n.Clone()
	updated.Content = "release checklist"
	updated.Version = n.Version + 1
	conn.serve(t, protocol.MsgNoteUpdated, &protocol.NoteEventPayload{Note: updated})

	require.Eventually(t, func() bool {
		cached, ok := agent.Note(n.ID)
		return ok && cached.Content == "release checklist"
	}, time.Second, 5*time.Millisecond)

	// A stale replay does not roll the note back.
	stale := n.Clone()
	stale.Content = "old text"
	conn.serve(t, protocol.MsgNoteUpdated, &protocol.NoteEventPayload{Note: stale})
	conn.serve(t, protocol.MsgBoardRenamed, &protocol.BoardEventPayload{BoardID: "b1", Name: "sprint"})

	require.Eventually(t, func() bool {
		got, ok := agent.Board("b1")
		return ok && got.Name == "sprint"
	}, time.Second, 5*time.Millisecond)
	cached, ok := agent.Note(n.ID)
	require.True(t, ok)
	assert.Equal(t, "release checklist", cached.Content)

	conn.serve(t, protocol.MsgNoteDeleted, &protocol.NoteDeletedPayload{NoteID: n.ID, BoardID: "b1"})
	require.Eventually(t, func() bool {
		_, ok := agent.Note(n.ID)
		return !ok
	}, time.Second, 5*time.Millisecond)

	conn.serve(t, protocol.MsgBoardDeleted, &protocol.BoardEventPayload{BoardID: "b1"})
	require.Eventually(t, func() bool {
		_, ok := agent.Board("b1")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestReconnectResyncsActiveBoard(t *testing.T) {
	dialer := &fakeDialer{conns: make(chan *fakeConn, 2)}
	first := newFakeConn()
	dialer.conns <- first

	agent := newTestAgent(dialer)
	agent.Start(context.Background())
	defer agent.Stop()

	first.serve(t, protocol.MsgWelcome, &protocol.WelcomePayload{SessionID: "s-1"})
	agent.OpenBoard("b1")
	assert.Equal(t, protocol.MsgSyncRequest, first.next(t).Type)

	// Server drops the connection.
	close(first.in)

	second := newFakeConn()
	dialer.conns <- second
	second.serve(t, protocol.MsgWelcome, &protocol.WelcomePayload{SessionID: "s-2"})

	// The handshake ends with a fresh snapshot request for the open board.
	env := second.next(t)
	require.Equal(t, protocol.MsgSyncRequest, env.Type)
	assert.Equal(t, "s-2", env.SessionID)

	var p protocol.SyncRequestPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "b1", p.BoardID)

	require.Eventually(t, func() bool {
		return agent.SessionID() == "s-2"
	}, time.Second, 5*time.Millisecond)
}

func TestErrorAckSurfacesToCallback(t *testing.T) {
	dialer := &fakeDialer{conns: make(chan *fakeConn, 1)}
	conn := newFakeConn()
	dialer.conns <- conn

	got := make(chan string, 1)
	agent := New(Config{
		URL:         "ws://test/ws",
		Dialer:      dialer,
		BackoffBase: 5 * time.Millisecond,
		BackoffMax:  20 * time.Millisecond,
		OnError:     func(code, message string) { got <- code },
	})
	agent.Start(context.Background())
	defer agent.Stop()

	conn.serve(t, protocol.MsgWelcome, &protocol.WelcomePayload{SessionID: "s-1"})
	conn.serve(t, protocol.MsgError, &protocol.ErrorPayload{Code: "E102", Message: "content too long", Op: protocol.MsgNoteUpdate})

	select {
	case code := <-got:
		assert.Equal(t, "E102", code)
	case <-time.After(2 * time.Second):
		t.Fatal("error callback never fired")
	}
}
