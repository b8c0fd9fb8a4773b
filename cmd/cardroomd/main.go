package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/cardroomlabs/cardroom/internal/admin"
	"github.com/cardroomlabs/cardroom/internal/auth"
	"github.com/cardroomlabs/cardroom/internal/config"
	"github.com/cardroomlabs/cardroom/internal/game"
	"github.com/cardroomlabs/cardroom/internal/money"
	"github.com/cardroomlabs/cardroom/internal/payments"
	"github.com/cardroomlabs/cardroom/internal/server"
	"github.com/cardroomlabs/cardroom/internal/store"
	"github.com/cardroomlabs/cardroom/internal/wallet"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"cardroom.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Client listener address (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	DBPath   string `long:"db" help:"SQLite database path (overrides config)"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		kctx.Exit(1)
	}
	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.DBPath != "" {
		cfg.Database.Path = CLI.DBPath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		kctx.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	settings, err := config.LoadRuntime(cfg.Server.SettingsFile)
	if err != nil {
		return fmt.Errorf("loading runtime settings: %w", err)
	}

	provider := buildProvider(cfg, logger)
	clock := quartz.NewReal()

	authSvc := auth.New(db, logger)
	walletSvc := wallet.New(db, provider, logger)
	sessions := server.NewRegistry(logger, clock,
		time.Duration(cfg.Server.ReconnectGraceSecs)*time.Second)

	svc := server.NewService(db, authSvc, walletSvc, sessions, settings, logger, clock)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	svc.SetMetrics(server.NewMetrics(registry))

	for _, tc := range cfg.Tables {
		svc.AddTable(game.Config{
			ID:         tc.Name,
			Name:       tc.Name,
			SmallBlind: money.FromFloat(tc.SmallBlind),
			BigBlind:   money.FromFloat(tc.BigBlind),
			MinBuyIn:   money.FromFloat(tc.BuyInMin),
			MaxBuyIn:   money.FromFloat(tc.BuyInMax),
			MaxSeats:   tc.MaxPlayers,
		})
	}
	if err := svc.RestoreFriendGames(ctx); err != nil {
		return fmt.Errorf("restoring friend games: %w", err)
	}

	gameSrv := server.New(cfg.ServerAddr(), svc, logger)
	adminSrv := admin.New(cfg.AdminAddr(), svc, settings, registry, cfg.Admin.Token, logger)

	logger.Info("starting cardroom",
		"addr", cfg.ServerAddr(),
		"admin", cfg.AdminAddr(),
		"tables", len(cfg.Tables),
		"db", cfg.Database.Path)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return gameSrv.ListenAndServe(gctx) })
	g.Go(func() error { return adminSrv.ListenAndServe(gctx) })
	g.Go(func() error { return svc.Run(gctx) })

	err = g.Wait()
	if errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func buildProvider(cfg *config.Config, logger *log.Logger) payments.Provider {
	if cfg.PayPal.ClientID == "" || cfg.PayPal.Secret == "" {
		logger.Warn("no payment credentials configured, using in-memory fake provider")
		return payments.NewFake()
	}
	return payments.NewPayPal(payments.PayPalConfig{
		BaseURL:   cfg.PayPal.BaseURL,
		ClientID:  cfg.PayPal.ClientID,
		Secret:    cfg.PayPal.Secret,
		Currency:  cfg.PayPal.Currency,
		ReturnURL: cfg.PayPal.ReturnURL,
		CancelURL: cfg.PayPal.CancelURL,
	}, logger)
}
