package config

import "time"

// Default returns the configuration used when the YAML file omits a value.
// The transform defaults reproduce the reference tape-degradation look.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 5010,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "logs",
			File:  "server.log",
		},
		Web: WebConfig{
			Enabled: true,
			Port:    8081,
		},
		Stream: StreamConfig{
			OutputWidth:   512,
			OutputHeight:  512,
			QueueCapacity: 1000,
			PollInterval:  Duration(5 * time.Second),
			SendInterval:  Duration(500 * time.Millisecond),
			IdleWait:      Duration(1 * time.Second),
			ItemDelay:     Duration(1 * time.Second),
			FetchTimeout:  Duration(10 * time.Second),
		},
		Transform: TransformConfig{
			LumaBandwidth:     5,
			ChromaBandwidth:   8,
			ChromaOffset:      2,
			GhostShiftPixels:  3,
			GhostStrength:     0.3,
			LumaNoiseLevel:    10.0,
			ChromaNoiseLevel:  20.0,
			GlitchProbability: 0.005,
			GlitchStrength:    0.8,
		},
	}
}
