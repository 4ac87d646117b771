// Command depthcue-server runs the result collection service: it stores
// trial results, surveys and completed sessions in PostgreSQL, serves trial
// plans and graph files, and streams recorded results to operators.
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

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/depthcue/internal/api"
	"github.com/persistorai/depthcue/internal/config"
	"github.com/persistorai/depthcue/internal/counterbalance"
	"github.com/persistorai/depthcue/internal/db"
	"github.com/persistorai/depthcue/internal/db/migrations"
	"github.com/persistorai/depthcue/internal/dbpool"
	"github.com/persistorai/depthcue/internal/graph"
	"github.com/persistorai/depthcue/internal/store"
	"github.com/persistorai/depthcue/internal/trialset"
	"github.com/persistorai/depthcue/internal/ws"
)

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("loading config")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("log_level", cfg.LogLevel).Warn("unknown log level, using info")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value(), cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		return err
	}

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	if err := db.NewNotifyBridge(log, pool, hub).Start(ctx); err != nil {
		return err
	}

	base := store.Base{Pool: pool, Log: log}

	deps := &api.RouterDeps{
		Log:           log,
		Pool:          pool,
		Hub:           hub,
		Results:       store.NewResultStore(base),
		Surveys:       store.NewSurveyStore(base),
		Sessions:      store.NewSessionStore(base),
		Graphs:        graph.NewLibrary(cfg.GraphRoot, log),
		CORSOrigins:   cfg.CORSOrigins,
		Version:       config.BuildVersion(),
		OperatorToken: cfg.OperatorToken.Value(),
		RateLimitRPS:  cfg.RateLimitRPS,
		RateBurst:     cfg.RateLimitBurst,
		MaxBodyBytes:  cfg.MaxBodyBytes,
	}

	// A missing trial set only disables the plan endpoint; results can
	// still be collected from clients that carry their own.
	if assigner, err := loadAssigner(cfg, log); err != nil {
		log.WithError(err).WithField("path", cfg.TrialSetPath).Warn("trial set not loaded, plan endpoint disabled")
	} else {
		deps.Plans = assigner
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(ctx, deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.WithFields(logrus.Fields{
			"addr":    srv.Addr,
			"version": config.BuildVersion(),
		}).Info("depthcue server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listening on %s: %w", srv.Addr, err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	hub.Shutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	return nil
}

func loadAssigner(cfg *config.Config, log logrus.FieldLogger) (*counterbalance.Assigner, error) {
	def, err := trialset.ParseFile(cfg.TrialSetPath, log)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"path":   cfg.TrialSetPath,
		"schema": def.Schema.String(),
		"trials": len(def.Trials),
	}).Info("trial set loaded")

	return &counterbalance.Assigner{
		Def:  def,
		Opts: counterbalance.Options{Method: counterbalance.Method(cfg.AssignMethod), Strict: cfg.StrictSets},
		Log:  log,
	}, nil
}
