package session

import (
	"context"
	"sync/atomic"
	"time"

	"retrocast-server-go/internal/domain/eventbus"
	platformerrors "retrocast-server-go/internal/platform/errors"
	"retrocast-server-go/internal/platform/logging"
)

// Conn is the delivery side of one live connection. Writes must be safe to
// call from the single sender goroutine; Close must be idempotent.
type Conn interface {
	SendBinary(data []byte) error
	Close() error
}

// Sender drains the delivery queue onto the connection, one discrete binary
// message at a time, pausing between sends so the viewer is never flooded.
// It never decides what to drop; overflow policy lives in the queue.
type Sender struct {
	sessionID string
	queue     *Queue[[]byte]
	conn      Conn
	logger    *logging.Logger

	sendInterval time.Duration
	idleWait     time.Duration

	sent atomic.Uint64
}

// SenderOptions bundles the collaborators a sender needs.
type SenderOptions struct {
	SessionID    string
	Queue        *Queue[[]byte]
	Conn         Conn
	Logger       *logging.Logger
	SendInterval time.Duration
	IdleWait     time.Duration
}

func NewSender(opts SenderOptions) *Sender {
	return &Sender{
		sessionID:    opts.SessionID,
		queue:        opts.Queue,
		conn:         opts.Conn,
		logger:       opts.Logger,
		sendInterval: opts.SendInterval,
		idleWait:     opts.IdleWait,
	}
}

// Run delivers until the connection fails or ctx is cancelled. A write
// failure is the session-fatal signal that tears down the sibling pollers.
func (s *Sender) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		payload, ok := s.queue.Pop()
		if !ok {
			if !sleepCtx(ctx, s.idleWait) {
				return ctx.Err()
			}
			continue
		}

		if err := s.conn.SendBinary(payload); err != nil {
			return platformerrors.Wrap(platformerrors.KindTransport, "send",
				"connection write failed", err)
		}
		s.sent.Add(1)
		eventbus.Publish(eventbus.TopicImageSent, s.sessionID)
		s.logger.DebugTag("SEND", "delivered image (%d bytes)", len(payload))

		if !sleepCtx(ctx, s.sendInterval) {
			return ctx.Err()
		}
	}
}

// Sent reports how many images this sender has delivered.
func (s *Sender) Sent() uint64 {
	return s.sent.Load()
}
