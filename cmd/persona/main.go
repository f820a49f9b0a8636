package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kalambet/persona/internal/chat"
	"github.com/kalambet/persona/internal/composer"
	"github.com/kalambet/persona/internal/config"
	"github.com/kalambet/persona/internal/profile"
	"github.com/kalambet/persona/internal/provider"
)

var version = "1.0.0"

var (
	logger   = zap.NewNop()
	noColor  bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "persona",
	Short:         "Personal AI assistant that answers questions about a professional profile",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(logLevel)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")

	rootCmd.AddCommand(serveCmd, mcpCmd, promptCmd, welcomeCmd, chatCmd, statusCmd, configCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// newLogger builds a production zap logger writing JSON to stderr. An empty
// level falls back to LOG_LEVEL, then info.
func newLogger(level string) (*zap.Logger, error) {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// app is the state shared by every surface: built once at startup and
// read-only afterwards.
type app struct {
	cfg     config.Config
	profile profile.Profile
	prompt  string
	welcome string
	chat    *chat.Service
}

// loadProfile reads the profile and renders the prompt and greeting. It
// needs no provider credentials.
func loadProfile(path string) (app, error) {
	p, err := profile.Load(path)
	if err != nil {
		return app{}, err
	}
	return app{
		profile: p,
		prompt:  composer.Compose(p),
		welcome: composer.Welcome(p),
	}, nil
}

// newApp loads and validates configuration, then wires the profile, the
// composed prompt and the provider into a chat service.
func newApp() (app, error) {
	cfg, err := config.Load()
	if err != nil {
		return app{}, err
	}

	a, err := loadProfile(cfg.Profile.Path)
	if err != nil {
		return app{}, err
	}
	a.cfg = cfg

	p, err := provider.New(cfg.LLM.Settings())
	if err != nil {
		return app{}, err
	}
	a.chat = chat.NewService(a.prompt, p)

	logger.Info("assistant ready",
		zap.String("profile", a.profile.Name),
		zap.String("provider", p.Name()),
		zap.String("model", p.Model()),
		zap.Int("prompt_tokens_est", composer.EstimateTokens(a.prompt)),
	)
	return a, nil
}
