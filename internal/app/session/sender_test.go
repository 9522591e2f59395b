package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	platformerrors "retrocast-server-go/internal/platform/errors"
	platformtesting "retrocast-server-go/internal/platform/testing"
)

type fakeConn struct {
	mu      sync.Mutex
	sent    [][]byte
	sendErr error
	closed  bool
}

func (c *fakeConn) SendBinary(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	msg := make([]byte, len(data))
	copy(msg, data)
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) messages() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeConn) wasClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func newTestSender(t *testing.T, conn Conn, queue *Queue[[]byte]) *Sender {
	t.Helper()
	return NewSender(SenderOptions{
		SessionID:    "test-session",
		Queue:        queue,
		Conn:         conn,
		Logger:       platformtesting.SetupTestLogger(t),
		SendInterval: time.Millisecond,
		IdleWait:     time.Millisecond,
	})
}

func TestSenderDeliversQueuedPayloadsInOrder(t *testing.T) {
	queue := NewQueue[[]byte](10)
	queue.Push([]byte("first"))
	queue.Push([]byte("second"))
	queue.Push([]byte("third"))

	conn := &fakeConn{}
	sender := newTestSender(t, conn, queue)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sender.Run(ctx) }()

	deadline := time.After(time.Second)
	for queue.Len() > 0 {
		select {
		case <-deadline:
			t.Fatal("sender did not drain the queue")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()
	<-done

	got := conn.messages()
	want := []string{"first", "second", "third"}
	if len(got) != len(want) {
		t.Fatalf("delivered %d messages, want %d", len(got), len(want))
	}
	for i := range want {
		if string(got[i]) != want[i] {
			t.Errorf("message %d = %q, want %q", i, got[i], want[i])
		}
	}
	if sender.Sent() != 3 {
		t.Errorf("Sent() = %d, want 3", sender.Sent())
	}
}

func TestSenderReturnsTransportErrorOnWriteFailure(t *testing.T) {
	queue := NewQueue[[]byte](10)
	queue.Push([]byte("payload"))

	conn := &fakeConn{sendErr: errors.New("broken pipe")}
	sender := newTestSender(t, conn, queue)

	done := make(chan error, 1)
	go func() { done <- sender.Run(context.Background()) }()

	select {
	case err := <-done:
		if !platformerrors.IsKind(err, platformerrors.KindTransport) {
			t.Errorf("Run() = %v, want transport kind", err)
		}
	case <-time.After(time.Second):
		t.Fatal("sender did not stop after the write failure")
	}
}

func TestSenderIdlesOnEmptyQueueUntilCancelled(t *testing.T) {
	queue := NewQueue[[]byte](10)
	conn := &fakeConn{}
	sender := newTestSender(t, conn, queue)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sender.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("idle sender did not stop after cancellation")
	}
	if len(conn.messages()) != 0 {
		t.Error("idle sender must not write anything")
	}
}
