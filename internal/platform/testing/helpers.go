package testing

import (
	"testing"
	"time"

	"retrocast-server-go/internal/platform/config"
	"retrocast-server-go/internal/platform/logging"
)

// SetupTestConfig returns a small, fast configuration with one source.
func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Server.IP = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Log = config.LogConfig{
		Level: "debug",
		Dir:   t.TempDir(),
		File:  "test.log",
	}
	cfg.Stream.OutputWidth = 32
	cfg.Stream.OutputHeight = 32
	cfg.Stream.QueueCapacity = 16
	cfg.Stream.PollInterval = config.Duration(5 * time.Millisecond)
	cfg.Stream.SendInterval = config.Duration(time.Millisecond)
	cfg.Stream.IdleWait = config.Duration(time.Millisecond)
	cfg.Stream.ItemDelay = 0
	cfg.Stream.FetchTimeout = config.Duration(time.Second)
	cfg.Sources = []config.SourceConfig{
		{Name: "test-feed", URL: "https://example.com/rss"},
	}
	return cfg
}

func SetupTestLogger(t *testing.T) *logging.Logger {
	t.Helper()

	logger, err := logging.New(logging.Config{
		Level:    "error",
		Dir:      t.TempDir(),
		Filename: "test.log",
	})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error but got nil")
	}
}

func AssertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if expected != actual {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}
