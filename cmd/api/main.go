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

	"github.com/fastprodman/ripbid/internal/api"
	"github.com/fastprodman/ripbid/internal/cache"
	"github.com/fastprodman/ripbid/internal/infra/logging"
	"github.com/fastprodman/ripbid/internal/infra/pgutils"
	"github.com/fastprodman/ripbid/internal/realtime"
	"github.com/fastprodman/ripbid/internal/services/bidding"
	"github.com/fastprodman/ripbid/internal/services/credits"
	"github.com/fastprodman/ripbid/internal/services/lifecycle"
	"github.com/fastprodman/ripbid/internal/services/lottery"
	"github.com/fastprodman/ripbid/internal/services/settlement"
	"github.com/fastprodman/ripbid/pkg/envconf"
	"github.com/fastprodman/ripbid/pkg/shutdownqueue"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

const hubBuffer = 64

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logCloser := logging.SetupJSON(cfg.LogLevel, cfg.LogFile)
	shutdownqueue.AddNamed("log file", func(context.Context) error {
		return logCloser.Close()
	})

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	if cfg.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET must be set")
	}

	// --- Infra ---
	dbConns, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.AddNamed("postgres", func(context.Context) error {
		return dbConns.Close()
	})

	hub := realtime.NewHub(hubBuffer)

	var (
		pub     realtime.Publisher = hub
		leaders cache.LeaderCache  = cache.NewDirect()
	)

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		err = rdb.Ping(ctx).Err()
		if err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}

		shutdownqueue.AddNamed("redis", func(context.Context) error {
			return rdb.Close()
		})

		bridge := realtime.NewRedisBridge(rdb, cfg.Redis.Channel, hub)
		pub = bridge
		leaders = cache.NewRedisLeaders(rdb, cfg.Redis.CacheTTL)

		go func() {
			rerr := bridge.Run(ctx)
			if rerr != nil {
				slog.Error("realtime bridge stopped", "error", rerr)
			}
		}()

		slog.Info("redis enabled", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
	}

	// --- Services ---
	creditSrv := credits.New(dbConns, pub)
	bidSrv := bidding.New(dbConns, creditSrv, pub, leaders)
	lotterySrv := lottery.New(dbConns, creditSrv, pub, cfg.Credits.LotteryEntryCost)
	settlementSrv := settlement.New(dbConns, creditSrv, pub, leaders)
	lifecycleSrv := lifecycle.New(dbConns, pub, settlementSrv)

	go settlementSrv.RunSweeper(ctx, cfg.Sweep.Interval)

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, api.Services{
		Credits:    creditSrv,
		Bids:       bidSrv,
		Lottery:    lotterySrv,
		Settlement: settlementSrv,
		Lifecycle:  lifecycleSrv,
		Events:     hub,
	}, api.Options{
		Auth:           api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AdminRole),
		StripeSecret:   cfg.Stripe.WebhookSecret,
		EntryFeeGrant:  cfg.Credits.EntryFeeGrant,
		AllowedOrigins: cfg.WSOrigins,
	})

	// Registered last so the server stops before its dependencies close.
	shutdownqueue.AddNamed("http server", func(c context.Context) error {
		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.Port)

	select {
	case <-ctx.Done():
		// graceful path; deferred shutdownqueue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
