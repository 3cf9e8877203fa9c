package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/trogers1052/price-sync/internal/api"
	"github.com/trogers1052/price-sync/internal/config"
	"github.com/trogers1052/price-sync/internal/database"
	"github.com/trogers1052/price-sync/internal/dates"
	"github.com/trogers1052/price-sync/internal/kafka"
	"github.com/trogers1052/price-sync/internal/lock"
	"github.com/trogers1052/price-sync/internal/pricesync"
	"github.com/trogers1052/price-sync/internal/provider"
)

func main() {
	start := flag.String("start", "", "first day to sync (default: 30 days ago)")
	end := flag.String("end", "", "last day to sync (default: today)")
	migrateOnly := flag.Bool("migrate", false, "apply database migrations and exit")
	serve := flag.Bool("serve", false, "run the HTTP API and symbol event consumer")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-start DATE] [-end DATE] [-migrate] [-serve]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(), "\n%s\n", dates.Usage())
	}
	flag.Parse()

	cfg := config.Load()
	log := config.InitLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *start, *end, *migrateOnly, *serve); err != nil {
		log.WithError(err).Error("price-sync failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger, start, end string, migrateOnly, serve bool) error {
	db, err := database.New(cfg.Database.Driver, cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	if migrateOnly {
		if err := db.Migrate(); err != nil {
			return err
		}
		log.Info("migrations applied")
		return nil
	}

	fetcher := provider.New(
		provider.WithRowEndpoint(cfg.Provider.RowEndpoint),
		provider.WithBatchEndpoint(cfg.Provider.BatchEndpoint),
		provider.WithBatchEnv(cfg.Provider.BatchEnv),
		provider.WithLogger(log),
	)

	opts := []pricesync.Option{
		pricesync.WithVendorID(cfg.Sync.VendorID),
		pricesync.WithShortRangeDays(cfg.Sync.ShortRangeDays),
		pricesync.WithBackfillDays(cfg.Sync.BackfillDays),
		pricesync.WithLogger(log),
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		opts = append(opts, pricesync.WithLocker(lock.NewRedisLock(rdb, lock.DefaultKey, cfg.Redis.LockTTL)))
	}

	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		opts = append(opts, pricesync.WithPublisher(producer))
	}

	syncer := pricesync.New(db, db, fetcher, opts...)

	if !serve {
		_, err := syncer.InsertDaily(ctx, start, end)
		return err
	}
	return runServer(ctx, cfg, log, db, syncer)
}

func runServer(ctx context.Context, cfg *config.Config, log *logrus.Logger, db *database.DB, syncer *pricesync.Syncer) error {
	handler := api.NewHandler(db, syncer, log)
	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           api.SetupRoutes(handler),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("http server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("http shutdown error")
		}
		log.Info("http server stopped")
		return nil
	})

	if cfg.Kafka.Enabled() {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.SymbolTopic, cfg.Kafka.GroupID, syncer, log)
		g.Go(func() error {
			return consumer.Start(ctx)
		})
	}

	return g.Wait()
}
