// Command gamecatalogd serves the game catalog over gRPC and HTTP.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Keksclan/gamecatalog"
	"github.com/Keksclan/gamecatalog/breaker"
	"github.com/Keksclan/gamecatalog/cache"
	"github.com/Keksclan/gamecatalog/catalog"
	"github.com/Keksclan/gamecatalog/catalogrpc"
	"github.com/Keksclan/gamecatalog/internal/config"
	"github.com/Keksclan/gamecatalog/internal/httpapi"
	"github.com/Keksclan/gamecatalog/internal/logging"
	"github.com/Keksclan/gamecatalog/ratelimit"
	"github.com/Keksclan/gamecatalog/rawg"
	"github.com/Keksclan/gamecatalog/retry"
	"github.com/Keksclan/gamecatalog/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logging.Must(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
		log.Fatal().Err(err).Msg("load configuration")
	}
	log := logging.Must(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("gamecatalogd stopped")
	}
	log.Info().Msg("gamecatalogd stopped")
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	traceCfg, shutdownTracing, err := tracing.Setup(cfg.TracingEnabled, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("flush traces")
		}
	}()

	client, err := newClient(cfg, log)
	if err != nil {
		return err
	}

	store, closeCache, err := newCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	fetcher := catalog.NewFetcher(client, store,
		catalog.WithTTL(cfg.Cache.TTL),
		catalog.WithRetry(retry.Config{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.Backoff,
			Retryable:   rawg.IsRetryable,
		}),
		catalog.WithFetcherLogger(log.With().Str("component", "fetcher").Logger()),
	)
	svc, err := catalog.NewService(fetcher,
		catalog.WithLogger(log.With().Str("component", "catalog").Logger()),
		catalog.WithCategories(cfg.Catalog.Categories...),
		catalog.WithSearchPageSize(cfg.Catalog.SearchPageSize),
	)
	if err != nil {
		return err
	}

	opts := gamecatalog.DefaultOptions(log.With().Str("component", "grpc").Logger())
	opts = append(opts,
		gamecatalog.WithRateLimitGlobal(cfg.Server.RPCRateLimit, cfg.Server.RPCRateBurst),
		gamecatalog.WithSearchRateLimit(cfg.Server.SearchPerMinute),
		gamecatalog.WithRPCTimeout(cfg.Server.RPCTimeout),
	)
	if traceCfg != nil {
		opts = append(opts, gamecatalog.WithOpenTelemetry(traceCfg))
	}
	grpcSrv := gamecatalog.NewServer(opts...)
	grpcSrv.RegisterCatalog(catalogrpc.NewHandler(svc))

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           httpapi.New(svc, grpcSrv.MetricsHandler(), log.With().Str("component", "http").Logger()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.GRPCAddr).Msg("grpc listening")
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		grpcSrv.GracefulStop()
		return httpSrv.Shutdown(sctx)
	})
	return g.Wait()
}

func newClient(cfg config.Config, log zerolog.Logger) (*rawg.Client, error) {
	opts := []rawg.Option{
		rawg.WithBaseURL(cfg.RAWG.BaseURL),
		rawg.WithTimeout(cfg.RAWG.Timeout),
		rawg.WithBreaker(breaker.New(breaker.Config{
			FailureThreshold:   cfg.Breaker.Failures,
			OpenTimeout:        cfg.Breaker.OpenTimeout,
			HalfOpenMaxSuccess: 1,
		})),
		rawg.WithLogger(log.With().Str("component", "rawg").Logger()),
	}
	if cfg.RAWG.RateLimit > 0 {
		opts = append(opts, rawg.WithLimiter(ratelimit.NewLimiter(cfg.RAWG.RateLimit, cfg.RAWG.RateBurst)))
	}
	return rawg.New(cfg.RAWG.APIKey, opts...)
}

// newCache builds the in-process cache and, when REDIS_ADDR is set, layers
// it over Redis. An unreachable Redis is logged and the L1 alone is used.
func newCache(ctx context.Context, cfg config.Config, log zerolog.Logger) (cache.Cache, func(), error) {
	l1, err := cache.NewL1(cfg.Cache.MaxEntries)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Cache.RedisAddr == "" {
		return l1, l1.Close, nil
	}

	l2 := cache.NewL2(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := l2.Ping(pctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("redis unavailable, using in-process cache only")
		_ = l2.Close()
		return l1, l1.Close, nil
	}
	return cache.NewTiered(l1, l2), func() {
		l1.Close()
		_ = l2.Close()
	}, nil
}
