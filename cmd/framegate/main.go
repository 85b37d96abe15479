package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/framegate/framegate/settings"
)

var (
	configPath string
	logLevel   string
	envPrefix  string

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "framegate",
	Short: "Simulate a frame rate governor against sample traces or a synthetic host",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var level slog.Level
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		}))
		slog.SetDefault(logger)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "settings file (.yaml, .yml or .toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&envPrefix, "env-prefix", "FRAMEGATE", "prefix of environment variable overrides")

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(defaultsCmd)
}

// loadSettings reads the settings file, if any, and applies environment overrides.
func loadSettings() (settings.Settings, error) {
	s := settings.Defaults()
	if configPath != "" {
		var err error
		if s, err = settings.Load(configPath); err != nil {
			return settings.Settings{}, err
		}
	}
	s, err := settings.FromEnv(s, envPrefix)
	if err != nil {
		return settings.Settings{}, err
	}
	if s.Inverted() {
		logger.Warn("enableThreshold is below disableThreshold, the gate will toggle between them",
			"disableThreshold", s.DisableThreshold, "enableThreshold", s.EnableThreshold)
	}
	return s, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
