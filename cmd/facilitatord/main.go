// Command facilitatord runs the x402 Solana settlement facilitator behind an
// HTTP surface.
package main

import (
	"fmt"
	"os"

	facilitator "github.com/vitwit/x402-solana"
	"github.com/vitwit/x402-solana/logger"
	"github.com/vitwit/x402-solana/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "facilitatord: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.NewZapLogger(cfg.LogLevel)

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.EnableMetrics {
		recorder = metrics.NewPrometheusRecorder()
	}

	f, err := facilitator.New(&facilitator.Config{
		Endpoints:    cfg.Endpoints(),
		SecretKey:    cfg.SecretKey,
		KeygenFile:   cfg.KeygenFile,
		Timeout:      cfg.SettleTimeout,
		PollInterval: cfg.PollInterval,
	},
		facilitator.WithLogger(log),
		facilitator.WithMetrics(recorder),
	)
	if err != nil {
		return fmt.Errorf("init facilitator: %w", err)
	}

	log.Info("starting facilitatord", map[string]any{
		"addr":      cfg.ListenAddr,
		"publicKey": f.PublicKey(),
	})

	router := newRouter(f, cfg.EnableMetrics)
	return router.Run(cfg.ListenAddr)
}
