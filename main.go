package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	clts "aixbot/clients"
	"aixbot/config"
	"aixbot/internal/app"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// .env is optional; real deployments set env vars directly
	_ = godotenv.Load()

	cfg := config.Load()
	if result := cfg.Validate(); !result.Valid {
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "config error: %s: %s\n", e.Field, e.Message)
		}
		os.Exit(1)
	}

	hub := app.NewLogHub()
	logger, err := buildLogger(hub)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting bot",
		zap.String("profileAPI", cfg.ProfileAPI.BaseURL),
		zap.Int("threads", cfg.Runner.Threads))

	accounts, err := config.LoadAccounts(cfg.Accounts.Path)
	if err != nil {
		logger.Fatal("failed to load accounts", zap.String("path", cfg.Accounts.Path), zap.Error(err))
	}
	if len(accounts) == 0 {
		logger.Fatal("no accounts found", zap.String("path", cfg.Accounts.Path))
	}
	logger.Info("accounts loaded", zap.Int("count", len(accounts)))

	clients := clts.NewClients(logger, cfg)
	defer clients.Notifier.Close()

	ledger := app.NewLedger(logger, cfg.Ledger.Path, cfg.Runner.ResetHour)
	tasks := app.NewTaskRunner(logger, cfg, ledger, clients.Profiles)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	if cfg.Control.Enabled {
		cs := app.NewControlServer(logger, hub, stop)
		cs.Start(cfg.Control.Port)
		defer cs.Shutdown(shutdownTimeout)
	}

	stdin := bufio.NewReader(os.Stdin)
	switch promptMode(stdin) {
	case 1:
		// Single-account smoke test. Uses the second account so the
		// first (usually the operator's own profile) stays untouched.
		acc := accounts[0]
		if len(accounts) > 1 {
			acc = accounts[1]
		}
		logger.Info("running single-account test", zap.String("account", acc.ID))
		result := tasks.RunAccount(ctx, acc)
		if err := clients.Notifier.NotifyAccountResult(result); err != nil {
			logger.Warn("account notification failed", zap.Error(err))
		}
		logger.Info("test run finished",
			zap.Bool("completed", result.Completed),
			zap.String("reason", result.Reason))

	case 2:
		threads := promptThreads(stdin, cfg.Runner.Threads)
		batch := app.NewBatchRunner(logger, ledger, tasks, clients.Notifier, threads, cfg.Runner.SubmitSpacing)
		summary := batch.Run(ctx, accounts)
		logger.Info("batch finished",
			zap.Int("completed", summary.Completed),
			zap.Int("failed", summary.Failed),
			zap.Int("skipped", summary.Skipped))
	}
}

// buildLogger tees the production console logger with the hub core so
// the control server can stream the same lines.
func buildLogger(hub *app.LogHub) (*zap.Logger, error) {
	base, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	enc := zapcore.NewConsoleEncoder(zap.NewProductionEncoderConfig())
	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, hub.Core(enc, zapcore.InfoLevel))
	})), nil
}

func promptMode(stdin *bufio.Reader) int {
	for {
		fmt.Print("Mode (1 = single account test, 2 = batch run): ")
		line, err := stdin.ReadString('\n')
		if err != nil {
			return 2
		}
		switch strings.TrimSpace(line) {
		case "1":
			return 1
		case "2":
			return 2
		}
		fmt.Println("enter 1 or 2")
	}
}

func promptThreads(stdin *bufio.Reader, fallback int) int {
	fmt.Printf("Thread count [%d]: ", fallback)
	line, err := stdin.ReadString('\n')
	if err != nil {
		return fallback
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return fallback
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 {
		fmt.Println("invalid thread count, using default")
		return fallback
	}
	return n
}
