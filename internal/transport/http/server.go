package httptransport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"retrocast-server-go/internal/app/session"
	"retrocast-server-go/internal/platform/config"
	"retrocast-server-go/internal/platform/logging"
)

const shutdownTimeout = 5 * time.Second

// SessionLister exposes the live sessions; the websocket server implements it.
type SessionLister interface {
	Sessions() []session.Status
}

// Server is the read-only status surface next to the websocket listener:
// a health probe and a JSON view of every live session.
type Server struct {
	cfg     *config.Config
	logger  *logging.Logger
	lister  SessionLister
	httpSrv *http.Server
}

func NewServer(cfg *config.Config, lister SessionLister, logger *logging.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		lister: lister,
	}
}

// Start serves the status API until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.loggingMiddleware())
	engine.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	engine.GET("/healthz", s.handleHealth)
	api := engine.Group("/api")
	api.GET("/sessions", s.handleSessions)

	addr := fmt.Sprintf(":%d", s.cfg.Web.Port)
	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
	}()

	s.logger.InfoTag("HTTP", "status API on http://%s", addr)

	err := s.httpSrv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSessions(c *gin.Context) {
	sessions := s.lister.Sessions()
	if sessions == nil {
		sessions = []session.Status{}
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.DebugTag("HTTP", "%s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
