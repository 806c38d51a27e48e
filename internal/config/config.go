package config

import "fmt"

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Log     LogConfig
	Engine  EngineConfig
	API     APIConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string // debug, info, warn, error
}

// EngineConfig carries the user-tunable subset of the selection knobs. The
// full tuning surface stays in code; only the values a player of the app
// might reasonably change are exposed here.
type EngineConfig struct {
	MaxDifficulty float64 // global difficulty ceiling, 0.1–0.9
	Candidates    int     // candidate puzzles generated per round
}

type APIConfig struct {
	Token string // bearer token for the local HTTP API
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Engine: EngineConfig{
			MaxDifficulty: 0.9,
			Candidates:    3,
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/minds/config.json, then applies MINDS_* environment
// overrides. Missing values fall back to defaults; the only hard failures
// are unreadable typed values in the backend.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	if cfg.Engine.MaxDifficulty < 0.1 || cfg.Engine.MaxDifficulty > 0.9 {
		return fmt.Errorf("engine.max_difficulty %v outside [0.1, 0.9]", cfg.Engine.MaxDifficulty)
	}
	if cfg.Engine.Candidates < 1 {
		return fmt.Errorf("engine.candidates must be at least 1, got %d", cfg.Engine.Candidates)
	}
	return nil
}
