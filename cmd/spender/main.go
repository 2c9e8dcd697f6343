package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"

	"github.com/007AGENT57/Spender-backend/internal/chain/solana/rpc"
	"github.com/007AGENT57/Spender-backend/internal/circuitbreaker"
	"github.com/007AGENT57/Spender-backend/internal/config"
	"github.com/007AGENT57/Spender-backend/internal/confirmref"
	"github.com/007AGENT57/Spender-backend/internal/executor"
	"github.com/007AGENT57/Spender-backend/internal/gate"
	"github.com/007AGENT57/Spender-backend/internal/notify"
	"github.com/007AGENT57/Spender-backend/internal/reconciliation"
	"github.com/007AGENT57/Spender-backend/internal/server"
	"github.com/007AGENT57/Spender-backend/internal/store/postgres"
	"github.com/007AGENT57/Spender-backend/internal/verify"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("spender exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("spender shut down gracefully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// The credential is parsed once and held in memory; the raw key must
	// never reach a log line or an error message.
	credential, err := solana.PrivateKeyFromBase58(cfg.Gate.SpenderPrivateKey)
	if err != nil {
		return errors.New("parse spender private key: invalid base58 key material")
	}
	spenderAddress := credential.PublicKey().String()

	destination, err := solana.PublicKeyFromBase58(cfg.Gate.DestinationTokenAccount)
	if err != nil {
		return fmt.Errorf("parse destination token account: %w", err)
	}
	tokenProgram, err := solana.PublicKeyFromBase58(cfg.Gate.TokenProgramID)
	if err != nil {
		return fmt.Errorf("parse token program id: %w", err)
	}

	logger.Info("starting spender",
		"solana_rpc", cfg.Solana.RPCURL,
		"solana_network", cfg.Solana.Network,
		"spender_address", spenderAddress,
		"expected_receiver", cfg.Gate.ExpectedReceiver,
		"destination_token_account", cfg.Gate.DestinationTokenAccount,
		"port", cfg.Server.Port,
	)

	db, err := postgres.New(postgres.Config{
		URL:             cfg.DB.URL,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.DB.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		OnStateChange: func(from, to circuitbreaker.State) {
			logger.Warn("rpc circuit breaker state change", "from", from.String(), "to", to.String())
		},
	})
	client := rpc.NewClient(cfg.Solana.RPCURL, breaker, logger)

	notifier := buildNotifier(cfg, logger)

	repo := postgres.NewApprovalRepo(db)
	verifier := verify.New(verify.Config{
		ExpectedReceiver: cfg.Gate.ExpectedReceiver,
		ExpectedSpender:  spenderAddress,
		TokenProgramID:   cfg.Gate.TokenProgramID,
	}, logger)
	refs := confirmref.New([]byte(cfg.Gate.ConfirmationSecret), cfg.Gate.ConfirmationTTL)
	exec := executor.New(client, repo, executor.Config{
		DestinationTokenAccount: destination,
		TokenProgramID:          tokenProgram,
	}, credential, logger)
	svc := gate.NewService(client, verifier, repo, exec, notifier, refs, spenderAddress, logger)
	sweeper := reconciliation.NewService(client, repo, notifier, cfg.Reconciliation.Cutoff, logger)

	handler, rl := server.New(svc, logger).Handler()
	defer rl.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runHTTPServer(gCtx, cfg.Server.Port, handler, logger)
	})

	g.Go(func() error {
		sweeper.Run(gCtx, cfg.Reconciliation.Interval)
		return nil
	})

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig.String())
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func buildNotifier(cfg *config.Config, logger *slog.Logger) notify.Notifier {
	var base notify.Notifier = notify.NopNotifier{}
	if cfg.Notify.SlackWebhookURL != "" {
		base = notify.NewSlackNotifier(cfg.Notify.SlackWebhookURL)
	}

	var cooldown notify.CooldownStore = notify.NewMemoryCooldown()
	if cfg.Redis.URL != "" {
		rc, err := notify.NewRedisCooldown(cfg.Redis.URL, logger)
		if err != nil {
			logger.Warn("redis cooldown unavailable, using in-memory cooldown", "error", err)
		} else {
			cooldown = rc
		}
	}

	return notify.NewThrottled(base, cooldown, cfg.Notify.Cooldown, logger)
}

func runHTTPServer(ctx context.Context, port int, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("http server shutdown error", "error", err)
		}
	}()

	logger.Info("http server started", "port", port)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
