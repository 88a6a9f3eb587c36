package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stepone/internal/channel"
	"stepone/internal/config"
	"stepone/internal/domain"
	"stepone/internal/history"
	"stepone/internal/metrics"
	"stepone/internal/persona"
	"stepone/internal/provider"
	"stepone/internal/relay"

	"github.com/spf13/cobra"
)

var (
	version    = "0.3.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "stepone",
		Short: "StepOne: a warm coaching relay for the browser front end",
		Long:  "StepOne relays short feelings from the browser to a generation API and answers with a two-sentence plan.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.stepone/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and public directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.Server.PublicDir, 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "public", cfg.Server.PublicDir)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the relay server (web + optional Telegram)",
		Long:  "Serves the static front end, the /api/plan relay, and any enabled channels. Press Ctrl+C to stop.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	logger = setupLogger(cfg)

	if cfg.Gemini.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set; the relay will answer with the missing-key notice")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := provider.NewGemini(provider.GeminiConfig{
		APIKey:  cfg.Gemini.APIKey,
		APIBase: cfg.Gemini.APIBase,
		Model:   cfg.Gemini.Model,
		Logger:  logger,
	})

	var presets []persona.Preset
	if cfg.Persona.Dir != "" {
		presets, err = persona.LoadFromDirectory(cfg.Persona.Dir, logger)
		if err != nil {
			logger.Warn("cannot load persona presets", "dir", cfg.Persona.Dir, "err", err)
		}
	}
	preset := persona.Select(presets, cfg.Persona.Default)
	logger.Info("persona selected", "name", preset.Name)

	var store domain.PlanStore
	if cfg.History.Enabled {
		st, err := history.NewSQLiteStore(cfg.History.DBPath, logger)
		if err != nil {
			return fmt.Errorf("history store: %w", err)
		}
		defer st.Close()
		retention := time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
		if _, err := st.Prune(ctx, retention); err != nil {
			logger.Warn("history prune failed", "err", err)
		}
		store = st
	}

	rly := relay.New(relay.Config{
		APIKey:    cfg.Gemini.APIKey,
		Generator: gen,
		Prompts:   relay.NewPromptBuilder(preset),
		Store:     store,
		Logger:    logger,
	})

	webCfg := channel.WebConfig{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		PublicDir: cfg.Server.PublicDir,
		Relay:     rly,
		Store:     store,
		Logger:    logger,
		Version:   version,
	}
	if cfg.Metrics.Enabled {
		webCfg.MetricsEndpoint = cfg.Metrics.Endpoint
		webCfg.MetricsHandler = metrics.Collector.Handler()
	}
	webCh := channel.NewWeb(webCfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- webCh.Start(ctx)
	}()

	var telegramCh *channel.Telegram
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		telegramCh = channel.NewTelegram(channel.TelegramConfig{
			Token:          cfg.Channels.Telegram.Token,
			AllowFrom:      cfg.Channels.Telegram.AllowFrom,
			ParseMode:      cfg.Channels.Telegram.ParseMode,
			DefaultEmotion: cfg.Channels.Telegram.DefaultEmotion,
			DefaultIntent:  cfg.Channels.Telegram.DefaultIntent,
			Relay:          rly,
			Logger:         logger,
		})
		go func() {
			if err := telegramCh.Start(ctx); err != nil {
				logger.Error("telegram channel error", "err", err)
			}
		}()
		logger.Info("telegram channel enabled")
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("web server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	if telegramCh != nil {
		telegramCh.Stop()
	}
	webCh.Stop()
	logger.Info("shutdown complete")
	return nil
}

// setupLogger builds the process logger from config: level plus an optional
// log file alongside stderr.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.General.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var out io.Writer = os.Stderr
	if cfg.General.LogFile != "" {
		f, err := os.OpenFile(cfg.General.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Warn("cannot open log file, logging to stderr", "path", cfg.General.LogFile, "err", err)
		} else {
			out = io.MultiWriter(os.Stderr, f)
		}
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show relay status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				cfg = config.Defaults()
				cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
			} else {
				logger.Info("config", "path", cfgPath, "loaded", true)
			}

			logger.Info("api key", "configured", cfg.Gemini.APIKey != "")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			gen := provider.NewGemini(provider.GeminiConfig{
				APIKey:  cfg.Gemini.APIKey,
				APIBase: cfg.Gemini.APIBase,
				Model:   cfg.Gemini.Model,
				Logger:  logger,
			})
			if err := gen.Healthy(ctx); err != nil {
				logger.Info("upstream", "name", gen.Name(), "healthy", false, "err", err)
			} else {
				logger.Info("upstream", "name", gen.Name(), "healthy", true)
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. gemini.model)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. gemini.model gemini-2.0-flash)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
