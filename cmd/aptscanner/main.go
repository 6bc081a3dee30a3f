package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	"AptScanner/internal/app"
	"AptScanner/internal/config"
	"AptScanner/internal/logging"
)

type globalOptions struct {
	Config   string   `short:"c" long:"config" env:"APTSCANNER_CONFIG" description:"Path to YAML configuration file"`
	EnvFiles []string `long:"env-file" description:"Additional .env file to load (repeatable)"`
}

type runCommand struct{}

type serveCommand struct {
	Listen   string        `long:"listen" description:"HTTP trigger address (overrides scheduler.listenAddr)"`
	Interval time.Duration `long:"interval" description:"Polling interval (overrides scheduler.interval)"`
}

var opts globalOptions

func main() {
	// a missing .env is fine; the environment may already be populated
	_ = godotenv.Load()

	parser := flags.NewParser(&opts, flags.Default)
	parser.AddCommand("run", "Run the pipeline once", "Fetch the feed, classify new listings and publish one digest.", &runCommand{})
	parser.AddCommand("serve", "Run on an interval with an HTTP trigger", "Poll the feed on an interval and expose POST /run and GET /healthz.", &serveCommand{})

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}

func bootstrap() (config.Config, *slog.Logger, error) {
	if len(opts.EnvFiles) > 0 {
		if err := godotenv.Load(opts.EnvFiles...); err != nil {
			return config.Config{}, nil, fmt.Errorf("load env files: %w", err)
		}
	}

	cfg := config.Load(opts.Config)
	logger := logging.NewWithFormat(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	return cfg, logger, nil
}

func (c *runCommand) Execute([]string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("cannot start", "error", err)
		return err
	}
	defer application.Close()

	result, err := application.Run(ctx, time.Now())
	if err != nil {
		logger.Error("run failed", "error", err)
		return err
	}

	fmt.Println(result.Status)
	return nil
}

func (c *serveCommand) Execute([]string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	if c.Listen != "" {
		cfg.Scheduler.ListenAddr = c.Listen
	}
	if c.Interval > 0 {
		cfg.Scheduler.Interval = c.Interval
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("cannot start", "error", err)
		return err
	}
	defer application.Close()

	if err := application.Serve(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		return err
	}
	return nil
}
