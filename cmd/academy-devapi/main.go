// Command academy-devapi runs the in-memory development API used to exercise
// the back-office client locally.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/combatwarrior/academy/internal/common/logtrace"
	"github.com/combatwarrior/academy/internal/devapi/config"
	"github.com/combatwarrior/academy/internal/devapi/server"
)

type cmdoptions struct {
	configFile string
	logLevel   string
	console    bool
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	opt := parseFlags()
	logtrace.InitLogger(opt.logLevel, opt.console)
	slog := log.With().Str("state", "init").Logger()

	cfg, err := loadConfig(opt.configFile)
	if err != nil {
		return err
	}
	if opt.configFile == "" {
		slog.Info().Msg("no config file given, using defaults")
	}
	for _, u := range cfg.Users {
		slog.Info().Str("email", u.Email).Str("role", u.Role).Msg("account available")
	}

	serverErrors, shutdownServer, err := createServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		slog.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		shutdownServer()
	}

	slog.Info().Msg("server stopped")
	return nil
}

// loadConfig reads the TOML file, or uses the defaults when path is empty.
// ACADEMY_DEVAPI_PORT from the environment or a .env file overrides the port.
func loadConfig(path string) (*config.ConfigParam, error) {
	_ = godotenv.Load()

	var cfg *config.ConfigParam
	if path == "" {
		cfg = config.DefaultConfig()
	} else {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}
	if port := os.Getenv("ACADEMY_DEVAPI_PORT"); port != "" {
		cfg.ServerPort = port
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func createServer(ctx context.Context, cfg *config.ConfigParam) (chan error, func(), error) {
	slog := log.With().Str("state", "init").Logger()
	s, err := server.CreateNewServer(cfg)
	if err != nil {
		return nil, nil, err
	}
	s.MountHandlers()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info().Str("addr", srv.Addr).Str("base_path", cfg.BasePath).Msg("server started")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := func() {
		// Give outstanding requests 5 seconds to complete.
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error().Err(err).Msg("could not stop server gracefully")
			if err := srv.Close(); err != nil {
				slog.Error().Err(err).Msg("could not stop server")
			}
		}
	}
	return serverErrors, shutdown, nil
}

func parseFlags() cmdoptions {
	var opt cmdoptions
	flag.StringVar(&opt.configFile, "config", "", "Path to the TOML config file (defaults are used when empty)")
	flag.StringVar(&opt.logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")
	flag.BoolVar(&opt.console, "console", true, "Human-readable log output")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
	}
	flag.Parse()
	return opt
}
