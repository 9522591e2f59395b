package config

import (
	"fmt"
	"time"

	platformerrors "retrocast-server-go/internal/platform/errors"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Web       WebConfig       `yaml:"web"`
	Stream    StreamConfig    `yaml:"stream"`
	Transform TransformConfig `yaml:"transform"`
	Sources   []SourceConfig  `yaml:"sources"`
}

// ServerConfig is the WebSocket listener address.
type ServerConfig struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

// WebConfig is the optional HTTP status surface.
type WebConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// SourceConfig is one configured feed. SkipKeywords filters out candidate
// image URLs containing any of the given substrings (case insensitive).
type SourceConfig struct {
	Name         string   `yaml:"name"`
	URL          string   `yaml:"url"`
	SkipKeywords []string `yaml:"skip_keywords"`
}

// StreamConfig controls the acquisition and delivery loops.
type StreamConfig struct {
	OutputWidth   int      `yaml:"output_width"`
	OutputHeight  int      `yaml:"output_height"`
	QueueCapacity int      `yaml:"queue_capacity"`
	PollInterval  Duration `yaml:"poll_interval"`
	SendInterval  Duration `yaml:"send_interval"`
	IdleWait      Duration `yaml:"idle_wait"`
	ItemDelay     Duration `yaml:"item_delay"`
	FetchTimeout  Duration `yaml:"fetch_timeout"`
}

// TransformConfig holds the signal-degradation parameters.
type TransformConfig struct {
	LumaBandwidth     int     `yaml:"luma_bandwidth"`
	ChromaBandwidth   int     `yaml:"chroma_bandwidth"`
	ChromaOffset      int     `yaml:"chroma_offset"`
	GhostShiftPixels  int     `yaml:"ghost_shift_pixels"`
	GhostStrength     float64 `yaml:"ghost_strength"`
	LumaNoiseLevel    float64 `yaml:"luma_noise_level"`
	ChromaNoiseLevel  float64 `yaml:"chroma_noise_level"`
	GlitchProbability float64 `yaml:"line_glitch_probability"`
	GlitchStrength    float64 `yaml:"line_glitch_strength"`
}

// Duration wraps time.Duration so YAML values like "5s" parse directly.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Validate checks the configuration invariants that would otherwise only
// surface deep inside a session. All failures are fatal at startup.
func (c *Config) Validate() error {
	op := "validate"

	if len(c.Sources) == 0 {
		return platformerrors.New(platformerrors.KindConfig, op, "at least one source must be configured")
	}
	for i, src := range c.Sources {
		if src.Name == "" {
			return platformerrors.New(platformerrors.KindConfig, op,
				fmt.Sprintf("source %d: name must not be empty", i))
		}
		if src.URL == "" {
			return platformerrors.New(platformerrors.KindConfig, op,
				fmt.Sprintf("source %q: url must not be empty", src.Name))
		}
	}

	if c.Stream.QueueCapacity <= 0 {
		return platformerrors.New(platformerrors.KindConfig, op, "queue capacity must be positive")
	}
	if c.Stream.OutputWidth <= 0 || c.Stream.OutputHeight <= 0 {
		return platformerrors.New(platformerrors.KindConfig, op, "output resolution must be positive")
	}
	if c.Stream.FetchTimeout.Std() <= 0 {
		return platformerrors.New(platformerrors.KindConfig, op, "fetch timeout must be positive")
	}

	t := c.Transform
	if t.LumaBandwidth < 1 || t.ChromaBandwidth < 1 {
		return platformerrors.New(platformerrors.KindConfig, op, "bandwidth kernel widths must be >= 1")
	}
	if t.ChromaBandwidth < t.LumaBandwidth {
		return platformerrors.New(platformerrors.KindConfig, op,
			"chroma bandwidth must be >= luma bandwidth")
	}
	if t.LumaNoiseLevel < 0 || t.ChromaNoiseLevel < 0 {
		return platformerrors.New(platformerrors.KindConfig, op, "noise levels must not be negative")
	}
	if t.GlitchProbability < 0 || t.GlitchProbability > 1 {
		return platformerrors.New(platformerrors.KindConfig, op,
			"line glitch probability must be within [0,1]")
	}

	return nil
}
