// Package app holds the start-up wiring shared by the keyscout binaries.
package app

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/keyscout/internal/analysis"
	"github.com/thebtf/keyscout/internal/config"
	"github.com/thebtf/keyscout/internal/mcp"
	"github.com/thebtf/keyscout/internal/scoring"
	"github.com/thebtf/keyscout/internal/watcher"
)

// LoadConfig creates a default settings file at path when missing and loads
// it. Any load failure falls back to the defaults.
func LoadConfig(path string) *config.Config {
	if err := config.EnsureSettings(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to ensure settings file")
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		return config.Default()
	}
	return cfg
}

// SetLogLevel applies the configured level; debug forces DebugLevel.
func SetLogLevel(level string, debug bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if parsed, err := zerolog.ParseLevel(level); err == nil && level != "" {
		zerolog.SetGlobalLevel(parsed)
	}
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// BuildAnalyzer loads pattern tables and the trend source from cfg.
func BuildAnalyzer(cfg *config.Config) (*analysis.Analyzer, error) {
	var patterns *scoring.Patterns
	if cfg.PatternsFile != "" {
		loaded, err := scoring.LoadPatterns(cfg.PatternsFile)
		if err != nil {
			return nil, err
		}
		patterns = &loaded
		log.Info().Str("path", cfg.PatternsFile).Msg("Loaded pattern tables")
	}

	random := scoring.DefaultSource()
	if cfg.TrendSeed != 0 {
		random = scoring.NewSeededSource(cfg.TrendSeed)
	}

	return analysis.NewAnalyzer(scoring.NewScorer(patterns, random)), nil
}

// NewRPC builds the JSON-RPC router for cfg. The configured body limit also
// caps line-delimited messages.
func NewRPC(cfg *config.Config, version string, opts ...mcp.ServerOption) (*mcp.Server, error) {
	analyzer, err := BuildAnalyzer(cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]mcp.ServerOption{mcp.WithMaxMessageBytes(cfg.MaxBodyBytes)}, opts...)
	return mcp.NewServer(analyzer, cfg.AgentName, version, opts...), nil
}

// WatchConfig calls onChange whenever the settings file changes. The returned
// func stops the watcher. Watch failures are logged and yield a no-op stop.
func WatchConfig(configPath string, onChange func()) func() {
	configWatcher, err := watcher.New(configPath, onChange)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create config watcher")
		return func() {}
	}
	if err := configWatcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start config watcher")
		return func() {}
	}
	log.Info().Str("path", configPath).Msg("Config file watcher started")
	return func() { _ = configWatcher.Stop() }
}

// ExitForRestart returns a change handler that exits the process so its
// supervisor restarts it with the new settings.
func ExitForRestart(configPath string) func() {
	return func() {
		log.Warn().Str("path", configPath).Msg("Config file changed, exiting for restart...")
		time.Sleep(100 * time.Millisecond) // Give logs time to flush
		os.Exit(0)
	}
}
