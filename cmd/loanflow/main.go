package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"loanflow/internal/api"
	"loanflow/internal/common/config"
	"loanflow/internal/common/logger"
	"loanflow/internal/common/metrics"
	"loanflow/internal/common/store"
	"loanflow/internal/notify"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: loanflow <apply|manager>")
	fmt.Fprintln(os.Stderr, "  apply    run the loan application flow")
	fmt.Fprintln(os.Stderr, "  manager  run the manager review flow")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loanflow: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(cfg.Metrics.Address); err != nil {
				zapLog.Warn("metrics listener stopped", zap.Error(err))
			}
		}()
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		zapLog.Fatal("state store open failed", zap.Error(err))
	}
	defer st.Close()

	client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout, log)
	notifier := notify.NewWriter(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "apply":
		err = runApply(ctx, cfg, client, st, notifier, log)
	case "manager":
		err = runManager(ctx, cfg, client, st, notifier, log)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil && ctx.Err() == nil {
		zapLog.Error("flow ended with error", zap.Error(err))
		os.Exit(1)
	}
}
