package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/xo-messenger-bot/internal/bot"
	"github.com/park285/xo-messenger-bot/internal/command"
	appcfg "github.com/park285/xo-messenger-bot/internal/config"
	"github.com/park285/xo-messenger-bot/internal/game"
	"github.com/park285/xo-messenger-bot/internal/history"
	"github.com/park285/xo-messenger-bot/internal/messenger"
	"github.com/park285/xo-messenger-bot/internal/msgcat"
	"github.com/park285/xo-messenger-bot/internal/obslog"
	"github.com/park285/xo-messenger-bot/internal/session"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	initCtx, cancelInit := context.WithTimeout(context.Background(), 15*time.Second)
	store, results, err := openStorage(initCtx, cfg)
	cancelInit()
	if err != nil {
		log.Fatalf("storage init error: %v", err)
	}

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	ctl := game.NewController(store, results, cat, game.Config{
		BotName:      cfg.BotName,
		HistoryLimit: cfg.HistoryLimit,
	}, logger)

	client := messenger.NewClient(cfg.GraphAPIURL, cfg.PageAccessToken, messenger.WithTimeout(cfg.SendTimeout()))

	var relay *messenger.Relay
	if cfg.RelayWSURL != "" && (cfg.EgressMode == appcfg.EgressRelay || cfg.EgressMode == appcfg.EgressAuto) {
		relay = messenger.NewRelay(cfg.RelayWSURL, 5)
		relay.OnStateChange(func(state messenger.RelayState) {
			logger.Info("relay_state", zap.String("state", state.String()))
		})
	}
	egress := messenger.NewEgress(cfg.EgressMode, client, relay, logger)

	handler := bot.NewHandler(command.New(cfg.BotName), ctl, egress, cfg.SendTimeout(), logger)
	dispatcher := messenger.NewDispatcher(logger)

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	if relay != nil {
		// Keep the read loop free; events run on the dispatcher like webhook events.
		relay.OnEvent(func(ev messenger.Event) {
			dispatcher.Go("relay_event", func() { handler.HandleEvent(rootCtx, ev) })
		})
		cctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
		if err := relay.Connect(cctx); err != nil {
			if cfg.EgressMode == appcfg.EgressRelay {
				cancel()
				log.Fatalf("relay connect error: %v", err)
			}
			logger.Warn("relay_connect_failed", zap.Error(err))
		}
		cancel()
	}

	app := messenger.NewApp(messenger.NewWebhook(rootCtx, cfg.VerifyToken, handler, dispatcher, logger))

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server_listening",
			zap.String("addr", cfg.Addr()),
			zap.String("store", cfg.StoreBackend),
			zap.String("egress", cfg.EgressMode),
		)
		serveErr <- app.Listen(cfg.Addr())
	}()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown_signal", zap.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			logger.Error("server_failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("server_shutdown_failed", zap.Error(err))
	}
	if err := dispatcher.Drain(shutdownCtx); err != nil {
		logger.Warn("dispatcher_drain_incomplete", zap.Error(err))
	}
	cancelRoot()
	if relay != nil {
		_ = relay.Close(shutdownCtx)
	}
	_ = store.Close()
}

// openStorage opens the session store for cfg and a result ledger on the same backend.
func openStorage(ctx context.Context, cfg *appcfg.AppConfig) (session.Store, history.Repository, error) {
	switch cfg.StoreBackend {
	case appcfg.StoreRedis:
		s, err := session.NewRedisStore(cfg.RedisURL, cfg.SessionTTL())
		if err != nil {
			return nil, nil, err
		}
		return s, history.NewRedisRepository(s.Client(), 50), nil
	case appcfg.StorePostgres, appcfg.StoreSQLite:
		var (
			s   *session.SQLStore
			err error
		)
		if cfg.StoreBackend == appcfg.StorePostgres {
			s, err = session.OpenPostgres(ctx, cfg.DatabaseURL)
		} else {
			s, err = session.OpenSQLite(ctx, cfg.SQLitePath)
		}
		if err != nil {
			return nil, nil, err
		}
		repo, err := history.NewSQLRepository(ctx, s.DB(), s.Dialect())
		if err != nil {
			_ = s.Close()
			return nil, nil, err
		}
		return s, repo, nil
	case appcfg.StoreMemory:
		obslog.L().Warn("memory_store_in_use", zap.String("note", "sessions are lost on restart"))
		return session.NewMemoryStore(), history.NewMemoryRepository(), nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}
