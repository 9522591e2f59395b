package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"retrocast-server-go/internal/app/session"
	"retrocast-server-go/internal/platform/config"
	"retrocast-server-go/internal/platform/logging"
)

const defaultCloseTimeout = 5 * time.Second

// Server upgrades incoming HTTP requests and runs one streaming session per
// connection. Sessions are independent: each gets its own queue, pollers and
// sender, so a slow or dead client only ever costs itself.
type Server struct {
	cfg      *config.Config
	deps     session.Deps
	logger   *logging.Logger
	upgrader *websocket.Upgrader
	httpSrv  *http.Server

	sessions sync.Map // session id -> *session.Session
}

func NewServer(cfg *config.Config, deps session.Deps, logger *logging.Logger) *Server {
	return &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start boots the HTTP listener and serves websocket upgrades until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.handle(ctx, w, r)
	})

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.IP, s.cfg.Server.Port)
	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultCloseTimeout)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
	}()

	s.logger.InfoTag("WS", "listening on ws://%s", addr)

	err := s.httpSrv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handle(serverCtx context.Context, w http.ResponseWriter, r *http.Request) {
	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.ErrorTag("WS", "handshake failed: %v", err)
		return
	}

	conn := NewConnection(r.RemoteAddr, socket)
	sess := session.New(conn, s.deps)

	s.logger.InfoTag("WS", "client connected from %s", r.RemoteAddr)

	sessionCtx, cancel := context.WithCancel(serverCtx)

	// The protocol has no inbound messages. The read loop exists to surface
	// the close handshake (or a dead peer) and tear the session down.
	go func() {
		defer cancel()
		for {
			if _, _, err := socket.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.sessions.Store(sess.ID, sess)
	defer s.sessions.Delete(sess.ID)

	if err := sess.Run(sessionCtx); err != nil {
		s.logger.WarnTag("WS", "session %s ended abnormally: %v", sess.ID, err)
	}
	cancel()
}

// Sessions snapshots every live session for the status API.
func (s *Server) Sessions() []session.Status {
	var out []session.Status
	s.sessions.Range(func(_, value any) bool {
		out = append(out, value.(*session.Session).Snapshot())
		return true
	})
	return out
}
