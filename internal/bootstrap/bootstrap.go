package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"retrocast-server-go/internal/app/session"
	"retrocast-server-go/internal/domain/eventbus"
	"retrocast-server-go/internal/domain/feed"
	platformconfig "retrocast-server-go/internal/platform/config"
	platformerrors "retrocast-server-go/internal/platform/errors"
	platformlogging "retrocast-server-go/internal/platform/logging"
	httptransport "retrocast-server-go/internal/transport/http"
	"retrocast-server-go/internal/transport/ws"
)

const shutdownGrace = 15 * time.Second

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config     *platformconfig.Config
	configPath string
	logger     *platformlogging.Logger
	client     *feed.Client
}

// Run drives the whole service lifecycle: initialisation, serving and
// graceful shutdown on SIGINT/SIGTERM.
func Run(ctx context.Context) error {
	state := &appState{}

	if err := executeInitSteps(ctx, InitGraph(), state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}
	defer logger.Close()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	deps := session.Deps{
		Config:  config,
		Logger:  logger,
		Catalog: feed.NewFeedCatalog(state.client),
		Fetcher: state.client,
	}

	wsServer := ws.NewServer(config, deps, logger)
	group.Go(func() error {
		return wsServer.Start(groupCtx)
	})

	if config.Web.Enabled {
		httpServer := httptransport.NewServer(config, wsServer, logger)
		group.Go(func() error {
			return httpServer.Start(groupCtx)
		})
	}

	logger.InfoTag("BOOT", "retrocast-server running: %d sources configured",
		len(config.Sources))

	return waitForShutdown(signalCtx, cancel, logger, group)
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init",
			Title:     "Initialise logging",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "feed:init-client",
			Title:     "Initialise feed client",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initFeedClientStep,
		},
		{
			ID:        "eventbus:subscribe",
			Title:     "Register event handlers",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   subscribeEventsStep,
		},
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}
			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().Load()
	if err != nil {
		return err
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(platformerrors.KindBootstrap, "logging:init", "config not loaded")
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init",
			"failed to initialise logging", err)
	}
	state.logger = logger

	logger.InfoTag("BOOT", "logging ready [%s] %s", state.config.Log.Level, state.configPath)
	return nil
}

func initFeedClientStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(platformerrors.KindBootstrap, "feed:init-client", "config not loaded")
	}
	state.client = feed.NewClient(state.config.Stream.FetchTimeout.Std())
	return nil
}

func subscribeEventsStep(_ context.Context, state *appState) error {
	logger := state.logger
	if logger == nil {
		return platformerrors.New(platformerrors.KindBootstrap, "eventbus:subscribe", "logger not initialised")
	}

	if err := eventbus.Subscribe(eventbus.TopicSessionOpened, func(id string) {
		logger.InfoTag("BOOT", "session opened: %s", id)
	}); err != nil {
		return err
	}
	return eventbus.Subscribe(eventbus.TopicSessionClosed, func(id string) {
		logger.InfoTag("BOOT", "session closed: %s", id)
	})
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	group *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("BOOT", "shutdown signal received, draining services")

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- group.Wait()
	}()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorTag("BOOT", "shutdown finished with error: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
		return nil
	case <-time.After(shutdownGrace):
		logger.ErrorTag("BOOT", "shutdown timed out, forcing exit")
		return errors.New("shutdown timed out")
	}
}
