package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	caseshandler "caseflow/internal/cases/handler"
	casesservice "caseflow/internal/cases/service"
	casestore "caseflow/internal/cases/store"
	"caseflow/internal/distribution"
	disthandler "caseflow/internal/distribution/handler"
	"caseflow/internal/hotspot"
	hotspothandler "caseflow/internal/hotspot/handler"
	httpapi "caseflow/internal/http"
	jwttoken "caseflow/internal/jwt_token"
	"caseflow/internal/outbox"
	"caseflow/internal/ownership"
	"caseflow/internal/platform/config"
	"caseflow/internal/platform/httpserver"
	"caseflow/internal/platform/logger"
	"caseflow/internal/platform/metrics"
	"caseflow/internal/platform/redis"
	sourceshandler "caseflow/internal/sources/handler"
	sourcestore "caseflow/internal/sources/store"
	"caseflow/internal/sources/sync"
)

// main wires the stores, services and the propagation worker, then runs
// the HTTP server until a shutdown signal. Business logic lives in the
// internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	var (
		caseStore      casestore.CaseStore
		historyStore   casestore.HistoryStore
		recordStore    sourcestore.RecordStore
		ownershipStore ownership.Store
		outboxStore    outbox.Store
	)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Error("postgres unreachable", "error", err)
			os.Exit(1)
		}
		pg := casestore.NewPostgres(db)
		caseStore = pg
		historyStore = pg
		recordStore = sourcestore.NewPostgres(db)
		ownershipStore = ownership.NewPostgres(db)
		outboxStore = outbox.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		mem := casestore.NewInMemory()
		caseStore = mem
		historyStore = mem
		recordStore = sourcestore.NewInMemory()
		ownershipStore = ownership.NewInMemory()
		outboxStore = outbox.NewInMemory()
		log.Warn("no postgres dsn configured, using in-memory stores")
	}

	worker := outbox.NewWorker(outboxStore, recordStore, log, m, cfg.OutboxInterval)

	syncOpts := []sync.Option{
		sync.WithLogger(log),
		sync.WithMetrics(m),
		sync.WithKicker(worker),
	}
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis setup failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		syncOpts = append(syncOpts, sync.WithLocker(sync.NewRedisLocker(redisClient)))
		log.Info("reopen locks backed by redis")
	}

	syncService := sync.NewService(caseStore, historyStore, recordStore,
		ownershipStore, outboxStore, syncOpts...)
	caseService := casesservice.NewService(caseStore, historyStore, outboxStore,
		casesservice.WithLogger(log),
		casesservice.WithMetrics(m),
		casesservice.WithKicker(worker))
	distService := distribution.NewService(caseStore, historyStore, ownershipStore,
		distribution.WithLogger(log))
	hotspotService := hotspot.NewService(caseStore,
		hotspot.WithLogger(log), hotspot.WithMetrics(m))

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "caseflow")
	validator := jwttoken.NewJWTServiceAdapter(jwtService)

	router := httpapi.NewRouter(
		caseshandler.New(caseService, log, validator),
		sourceshandler.New(syncService, recordStore, log, validator),
		disthandler.New(distService, log, validator),
		hotspothandler.New(hotspotService, log, validator),
	)
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		log.Info("caseflow listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
