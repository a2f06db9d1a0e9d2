package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/solidstone/mediascan/internal/api"
	"github.com/solidstone/mediascan/internal/auth"
	"github.com/solidstone/mediascan/internal/cache"
	"github.com/solidstone/mediascan/internal/catalog"
	"github.com/solidstone/mediascan/internal/config"
	"github.com/solidstone/mediascan/internal/db"
	"github.com/solidstone/mediascan/internal/parser"
	"github.com/solidstone/mediascan/internal/provider"
	"github.com/solidstone/mediascan/internal/queue"
	"github.com/solidstone/mediascan/internal/scanner"
	"github.com/solidstone/mediascan/internal/version"
)

func main() {
	log.Printf("[scanner] %s starting", version.String())
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[scanner] config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(cfg.PostgresURL)
	if err != nil {
		log.Fatalf("[scanner] database: %v", err)
	}
	defer database.Close()

	// Exactly one process is the master: it migrates, scans and watches the
	// filesystem. One more process wins the worker election; everyone else
	// only serves HTTP.
	master, err := database.TryLock(ctx, db.MasterLock)
	if err != nil {
		log.Fatalf("[scanner] master election: %v", err)
	}
	worker := master
	if !master {
		if worker, err = database.TryLock(ctx, db.HTTPOnlyLock); err != nil {
			log.Fatalf("[scanner] worker election: %v", err)
		}
	}
	log.Printf("[scanner] role: master=%v worker=%v", master, worker)

	if master {
		if err := database.Migrate(ctx, "migrations"); err != nil {
			log.Fatalf("[scanner] migrate: %v", err)
		}
	}

	shared := cache.NewMap[string, []byte]()
	composite := provider.NewComposite(
		provider.NewTMDB(cfg.TMDBToken, shared),
		provider.NewTVDB(cfg.TVDBApikey, cfg.TVDBPin, shared),
		provider.NewAniList(shared),
	)
	xem := provider.NewXem(shared)

	cat := catalog.New(cfg.CatalogURL, cfg.CatalogAPIKey)
	q := queue.New(database.DB)
	sc := scanner.New(cat, q, parser.New(), xem, cfg.IgnorePattern)

	g, ctx := errgroup.WithContext(ctx)

	// trigger coalesces scan requests; a scan already pending absorbs new ones.
	trigger := make(chan struct{}, 1)
	requestScan := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	if master {
		recovered, err := q.RecoverStale(ctx)
		if err != nil {
			log.Fatalf("[scanner] recover stale requests: %v", err)
		}
		if recovered > 0 {
			log.Printf("[scanner] recovered %d stale requests", recovered)
		}
		sc.Prime(ctx)

		requestScan()
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-trigger:
					if err := sc.Scan(ctx, cfg.LibraryRoot, true); err != nil {
						log.Printf("[scanner] scan: %v", err)
					}
				}
			}
		})

		monitor, err := scanner.NewMonitor(sc, cfg.LibraryRoot)
		if err != nil {
			log.Fatalf("[scanner] monitor: %v", err)
		}
		g.Go(func() error { return monitor.Run(ctx) })

		if cfg.RescanCron != "" {
			c := cron.New()
			if _, err := c.AddFunc(cfg.RescanCron, requestScan); err != nil {
				log.Fatalf("[scanner] rescan cron %q: %v", cfg.RescanCron, err)
			}
			c.Start()
			defer c.Stop()
			log.Printf("[scanner] rescan scheduled: %s", cfg.RescanCron)
		}
	}

	if worker {
		listener, err := queue.NewListener(database.URL())
		if err != nil {
			log.Fatalf("[scanner] listen: %v", err)
		}
		defer listener.Close()
		proc := queue.NewProcessor(q, listener, cat, composite)
		g.Go(func() error { return proc.Run(ctx) })
	}

	verifier := auth.NewVerifier(cfg.JWKSURL, cfg.JWTIssuer)
	srv := api.NewServer(q, database.DB, requestScan, verifier)
	g.Go(func() error { return srv.Listen(ctx, cfg.ListenAddr) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("[scanner] %v", err)
	}
	log.Printf("[scanner] stopped")
}
