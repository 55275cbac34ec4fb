// Command server runs the cab-share coordinator: the HTTP API, the change
// feed with its optional Redis bridge and Kafka archive, and the lifecycle
// sweeper. Business logic lives in the internal services; main only wires.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"cabshare/internal/catalog"
	commenthandler "cabshare/internal/comment/handler"
	commentservice "cabshare/internal/comment/service"
	commentstore "cabshare/internal/comment/store"
	"cabshare/internal/feed"
	feedhandler "cabshare/internal/feed/handler"
	grouphandler "cabshare/internal/group/handler"
	groupmetrics "cabshare/internal/group/metrics"
	groupservice "cabshare/internal/group/service"
	groupstore "cabshare/internal/group/store"
	"cabshare/internal/platform/config"
	"cabshare/internal/platform/httpserver"
	"cabshare/internal/platform/kafka"
	"cabshare/internal/platform/logger"
	"cabshare/internal/platform/metrics"
	"cabshare/internal/platform/postgres"
	redisclient "cabshare/internal/platform/redis"
	httptransport "cabshare/internal/transport/http"
	"cabshare/pkg/platform/keyedlock"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: postgres when configured, in-memory otherwise.
	var (
		groupStore   groupstore.Store
		commentStore commentstore.Store
		catalogStore catalog.Store
		health       = func(context.Context) error { return nil }
	)
	if cfg.PostgresURL != "" {
		db, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		pgCatalog := catalog.NewPostgres(db)
		if err := pgCatalog.Seed(ctx, catalog.DefaultSeed()); err != nil {
			return err
		}
		groupStore = groupstore.NewPostgres(db)
		commentStore = commentstore.NewPostgres(db)
		catalogStore = pgCatalog
		health = db.PingContext
		log.Info("using postgres stores")
	} else {
		memGroups := groupstore.NewInMemory()
		groupStore = memGroups
		commentStore = commentstore.NewInMemory(memGroups)
		catalogStore = catalog.NewInMemory(catalog.DefaultSeed()...)
		log.Info("using in-memory stores")
	}

	// Feed: local broker, optionally bridged across instances over Redis
	// and archived to Kafka.
	broker := feed.NewBroker(log)
	defer broker.Close()

	var publisher feed.Publisher = broker
	if cfg.Redis.URL != "" {
		rdb, err := redisclient.New(cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		bridge, err := feed.NewRedisBridge(ctx, broker, rdb.Client, log)
		if err != nil {
			return err
		}
		defer bridge.Close()
		publisher = bridge
		log.Info("feed bridged over redis")
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		defer producer.Close()
		archiver := feed.NewArchiver(publisher, producer, log)
		defer archiver.Close()
		publisher = archiver
		log.Info("feed archived to kafka", slog.String("topic", cfg.KafkaTopic))
	}

	httpMetrics := metrics.New()
	gMetrics := groupmetrics.New(prometheus.DefaultRegisterer)

	catalogSvc := catalog.NewService(catalogStore)
	bounds := groupservice.CapacityBounds{Min: cfg.CapacityMin, Max: cfg.CapacityMax}
	// One lock map for every publisher of group events, so the feed stays in
	// commit order per group across services.
	locks := keyedlock.New()
	groupSvc := groupservice.New(groupStore, catalogSvc, publisher, log, gMetrics, bounds, locks)
	commentSvc := commentservice.New(commentStore, groupStore, publisher, log, locks)

	router := httptransport.NewRouter(
		log,
		httpMetrics,
		httptransport.Config{RequestTimeout: cfg.RequestTimeout},
		[]httptransport.Registrar{
			grouphandler.New(groupSvc, catalogSvc, log),
			commenthandler.New(commentSvc, log),
		},
		[]httptransport.Registrar{
			feedhandler.New(broker, log),
		},
		func(w http.ResponseWriter, r *http.Request) {
			if err := health(r.Context()); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		},
	)

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("server listening", slog.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.SweepInterval > 0 {
		sweeper := groupservice.NewSweeper(groupStore, publisher, log, gMetrics, cfg.SweepInterval)
		group.Go(func() error {
			if err := sweeper.Run(groupCtx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
