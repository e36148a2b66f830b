package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"markov-chatter/internal/config"
	"markov-chatter/internal/cooldown"
	"markov-chatter/internal/corpus"
	"markov-chatter/internal/humanize"
	"markov-chatter/internal/logging"
	"markov-chatter/internal/markov"
	"markov-chatter/internal/metrics"
	"markov-chatter/internal/render"
	"markov-chatter/internal/scheduler"
	"markov-chatter/internal/storage"
	"markov-chatter/internal/syncer"
	"markov-chatter/internal/telegram"
	"markov-chatter/internal/timeparse"
	"markov-chatter/internal/trigger"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()
	logging.SetLogLevel(cfg.LogLevel)
	if cfg.LogFilePath != "" {
		closer, err := logging.ConfigureOutput(cfg.LogFilePath)
		if err != nil {
			log.Printf("failed to init log file: %v", err)
		} else {
			defer closer.Close()
		}
	}
	metrics.Register()

	repo, err := newRepository(cfg)
	if err != nil {
		log.Fatalf("failed to init storage: %v", err)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := corpus.NewStore(cfg.MaxMessagesPerChat)
	persist := syncer.New(store, repo)
	log.Infof("restored %d chats", persist.Restore(ctx))

	sched := scheduler.New(cfg.FlushInterval)
	sched.SetFlushFunction(func(ctx context.Context) { persist.FlushAll(ctx) })
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	renderOpts := render.DefaultOptions()
	renderOpts.MemesDir = cfg.MemesDir
	renderOpts.FontPath = cfg.FontPath
	renderer, err := render.New(renderOpts)
	if err != nil {
		log.Fatalf("failed to init renderer: %v", err)
	}

	bot, err := telegram.New(cfg, telegram.Deps{
		Store:     store,
		Policy:    trigger.New(cfg.TriggerWords, cfg.TriggerChance, cfg.AmbientChance, nil),
		Engine:    markov.NewEngine(markov.DefaultOptions(), nil),
		Cooldown:  cooldown.New(store, timeparse.New(), cfg.DisableDefault, cfg.DisableMin),
		Durations: humanize.NewFormatter(cfg.Locale, 2),
		Renderer:  renderer,
	})
	if err != nil {
		log.Fatalf("failed to create bot: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		bot.Start(gctx)
		return nil
	})
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			log.Infof("metrics listening on %s", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Errorf("shutting down: %v", err)
	}
	log.Info("stopping")
}

func newRepository(cfg *config.Config) (storage.Repository, error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		return storage.NewSQLiteRepository(cfg.SQLitePath)
	default:
		return storage.NewFileRepository(cfg.StorageDir)
	}
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}
