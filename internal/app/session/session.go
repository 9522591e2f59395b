package session

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"retrocast-server-go/internal/domain/eventbus"
	"retrocast-server-go/internal/domain/feed"
	"retrocast-server-go/internal/domain/imaging"
	"retrocast-server-go/internal/domain/vhs"
	"retrocast-server-go/internal/platform/config"
	"retrocast-server-go/internal/platform/logging"
)

// State tracks the session lifecycle: Idle until Run, Active while tasks
// are live, Terminating once teardown has begun.
type State int32

const (
	StateIdle State = iota
	StateActive
	StateTerminating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateTerminating:
		return "terminating"
	default:
		return "unknown"
	}
}

type atomicState struct {
	v atomic.Int32
}

func (a *atomicState) store(s State) { a.v.Store(int32(s)) }
func (a *atomicState) load() State   { return State(a.v.Load()) }

// Session owns everything bound to one live connection: a fresh delivery
// queue, one poller per configured source (watermarks start unset) and one
// sender. Nothing is shared across sessions, so one viewer disconnecting
// can never leak state into another.
type Session struct {
	ID        string
	conn      Conn
	queue     *Queue[[]byte]
	pollers   []*Poller
	sender    *Sender
	logger    *logging.Logger
	state     atomicState
	startedAt time.Time
}

// Deps are the collaborators a session needs. Catalog and Fetcher are
// injectable for tests; production wiring passes the feed client for both.
type Deps struct {
	Config  *config.Config
	Logger  *logging.Logger
	Catalog feed.Catalog
	Fetcher feed.Fetcher
}

// New builds an idle session for conn. Every source starts with an unset
// watermark so the first cycle accepts everything the catalog offers.
func New(conn Conn, deps Deps) *Session {
	cfg := deps.Config
	id := uuid.NewString()

	queue := NewQueue[[]byte](cfg.Stream.QueueCapacity)
	pipeline := imaging.NewPipeline(
		cfg.Stream.OutputWidth,
		cfg.Stream.OutputHeight,
		vhs.FromConfig(cfg.Transform),
	)

	pollers := make([]*Poller, 0, len(cfg.Sources))
	for i, srcCfg := range cfg.Sources {
		pollers = append(pollers, NewPoller(PollerOptions{
			Source:       feed.NewSource(srcCfg),
			Catalog:      deps.Catalog,
			Fetcher:      deps.Fetcher,
			Pipeline:     pipeline,
			Queue:        queue,
			Logger:       deps.Logger,
			Rand:         rand.New(rand.NewSource(time.Now().UnixNano() + int64(i))),
			PollInterval: cfg.Stream.PollInterval.Std(),
			ItemDelay:    cfg.Stream.ItemDelay.Std(),
		}))
	}

	sender := NewSender(SenderOptions{
		SessionID:    id,
		Queue:        queue,
		Conn:         conn,
		Logger:       deps.Logger,
		SendInterval: cfg.Stream.SendInterval.Std(),
		IdleWait:     cfg.Stream.IdleWait.Std(),
	})

	return &Session{
		ID:      id,
		conn:    conn,
		queue:   queue,
		pollers: pollers,
		sender:  sender,
		logger:  deps.Logger,
	}
}

// Run executes the session until the connection closes, a task fails
// fatally, or ctx is cancelled. The first fatal condition cancels every
// sibling task; Run returns once all of them have exited and the queue and
// connection are released. Cancellation and normal connection close return
// nil; anything else is the fatal error.
func (s *Session) Run(ctx context.Context) error {
	s.state.store(StateActive)
	s.startedAt = time.Now()
	eventbus.Publish(eventbus.TopicSessionOpened, s.ID)
	s.logger.InfoTag("WS", "session %s active: %d pollers + 1 sender",
		s.ID, len(s.pollers))

	group, groupCtx := errgroup.WithContext(ctx)
	for _, poller := range s.pollers {
		p := poller
		group.Go(func() error {
			return p.Run(groupCtx)
		})
	}
	group.Go(func() error {
		return s.sender.Run(groupCtx)
	})

	err := group.Wait()

	s.state.store(StateTerminating)
	s.queue.Clear()
	_ = s.conn.Close()
	eventbus.Publish(eventbus.TopicSessionClosed, s.ID)
	s.logger.InfoTag("WS", "session %s terminated: %d images sent, %d dropped",
		s.ID, s.sender.Sent(), s.queue.Dropped())

	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Status is a point-in-time view of a session for the status API.
type Status struct {
	ID        string         `json:"id"`
	State     string         `json:"state"`
	StartedAt time.Time      `json:"started_at"`
	QueueLen  int            `json:"queue_len"`
	Dropped   uint64         `json:"dropped"`
	Sent      uint64         `json:"sent"`
	Sources   []SourceStatus `json:"sources"`
}

type SourceStatus struct {
	Name      string `json:"name"`
	Watermark string `json:"watermark,omitempty"`
	Processed uint64 `json:"processed"`
	Skipped   uint64 `json:"skipped"`
}

// Snapshot captures the current session state.
func (s *Session) Snapshot() Status {
	status := Status{
		ID:        s.ID,
		State:     s.state.load().String(),
		StartedAt: s.startedAt,
		QueueLen:  s.queue.Len(),
		Dropped:   s.queue.Dropped(),
		Sent:      s.sender.Sent(),
	}
	for _, poller := range s.pollers {
		src := poller.Source()
		watermark, _ := src.Watermark()
		processed, skipped := poller.Stats()
		status.Sources = append(status.Sources, SourceStatus{
			Name:      src.Name,
			Watermark: watermark,
			Processed: processed,
			Skipped:   skipped,
		})
	}
	return status
}
