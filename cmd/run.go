package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/matrixise/tokend/internal/config"
	"github.com/matrixise/tokend/internal/contract"
	"github.com/matrixise/tokend/internal/health"
	"github.com/matrixise/tokend/internal/logger"
	"github.com/matrixise/tokend/internal/scheduler"
	"github.com/matrixise/tokend/internal/server"
	"github.com/matrixise/tokend/internal/state"
	"github.com/matrixise/tokend/internal/storage"
	"github.com/matrixise/tokend/internal/token"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the token ledger daemon",
	Long:  `Serve the ledger over HTTP, with scheduled allowance pruning and supply audits.`,
	RunE:  runLedger,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// genesisFile is the on-disk form of the instantiation invocation.
type genesisFile struct {
	Sender string               `json:"sender"`
	Msg    token.InstantiateMsg `json:"msg"`
}

func runLedger(cmd *cobra.Command, args []string) error {
	// Setup logger (log-level from global flag)
	logger.Setup(logLevel)

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigChan
		slog.Info("Signal received, graceful shutdown", "signal", sig)
		cancel()
	}()

	// Load config
	cfg, databaseURL, err := config.LoadWithDefaults(cfgFile)
	if err != nil {
		slog.Error("Configuration error", "error", err)
		return err
	}

	// Override log level if set in config
	if cfg.LogLevel != "" {
		logger.Setup(cfg.LogLevel)
	}

	slog.Info("Configuration loaded",
		"config_path", cfgFile,
		"genesis_path", cfg.GenesisPath,
		"receivers", len(cfg.Receivers),
		"persistent", databaseURL != "",
	)

	// Optional PostgreSQL mirror. Without it the ledger is memory-only and
	// starts empty on every boot.
	var (
		store    *storage.Store
		memStore *state.MemStore
		height   uint64
		sink     server.Sink
		pinger   health.Pinger
		events   server.EventSource
	)
	if databaseURL != "" {
		if err := storage.RunMigrations(ctx, databaseURL); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			return err
		}
		store, err = storage.NewStore(ctx, databaseURL)
		if err != nil {
			slog.Error("Failed to connect to PostgreSQL", "error", err)
			return err
		}
		defer store.Close()

		memStore, height, err = store.LoadState(ctx)
		if err != nil {
			slog.Error("Failed to restore ledger state", "error", err)
			return err
		}
		sink = store
		pinger = store
		events = store
		slog.Info("Ledger state restored", "height", height, "keys", memStore.Len())
	} else {
		memStore = state.NewMemStore()
	}

	host := server.NewHost(memStore, height, sink, slog.Default())

	// Registered receiver accounts accept any notification; rejection
	// policies belong to real contract integrations plugged in here.
	for _, rcv := range cfg.Receivers {
		if err := host.RegisterReceiver(rcv, server.ReceiverFunc(func(_ context.Context, msg contract.ReceiveMsg) error {
			slog.Info("Receive notification accepted",
				"contract", msg.Contract,
				"sender", msg.Sender,
				"amount", msg.Amount.String(),
			)
			return nil
		})); err != nil {
			slog.Error("Invalid receiver address", "address", rcv, "error", err)
			return err
		}
	}

	// First boot: establish the token from the genesis file.
	if !host.Instantiated() && cfg.GenesisPath != "" {
		if err := instantiateFromGenesis(ctx, host, cfg.GenesisPath); err != nil {
			slog.Error("Genesis instantiation failed", "error", err)
			return err
		}
	}

	// Health checks and scheduled maintenance.
	healthChecker := health.NewChecker(pinger, host, cfg.PruneEvery())

	sched, err := scheduler.New(slog.Default())
	if err != nil {
		slog.Error("Failed to create scheduler", "error", err)
		return err
	}
	defer sched.Stop()

	if interval := cfg.PruneEvery(); interval > 0 {
		err := sched.AddJob(ctx, "prune_allowances", interval, func(jobCtx context.Context) error {
			removed, err := host.PruneExpired(jobCtx)
			healthChecker.UpdateLastRun(err == nil)
			if err == nil && removed > 0 {
				slog.Debug("Allowance prune completed", "removed", removed)
			}
			return err
		})
		if err != nil {
			return err
		}
	}
	if interval := cfg.AuditEvery(); interval > 0 {
		err := sched.AddJob(ctx, "audit_supply", interval, func(context.Context) error {
			return host.AuditSupply()
		})
		if err != nil {
			return err
		}
	}
	sched.Start()

	// HTTP front end.
	httpPort := cfg.HTTPPort
	if httpPort == 0 {
		httpPort = 8080 // Default port
	}

	srv := server.NewServer(host, events, slog.Default())
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", httpPort),
		Handler: srv.Router(healthChecker.Handler()),
	}

	go func() {
		slog.Info("HTTP server starting", "port", httpPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	slog.Info("Ledger daemon started", "height", host.Height())

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("Shutdown requested, stopping daemon")
	return nil
}

func instantiateFromGenesis(ctx context.Context, host *server.Host, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read genesis file: %w", err)
	}
	var genesis genesisFile
	if err := json.Unmarshal(raw, &genesis); err != nil {
		return fmt.Errorf("parse genesis file: %w", err)
	}

	result, err := host.Instantiate(ctx, genesis.Sender, genesis.Msg)
	if err != nil {
		return err
	}
	slog.Info("Token instantiated from genesis",
		"name", genesis.Msg.Name,
		"symbol", genesis.Msg.Symbol,
		"accounts", len(genesis.Msg.InitialBalances),
		"height", result.Height,
	)
	return nil
}
