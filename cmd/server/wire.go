package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hypeflow/internal/api"
	"hypeflow/internal/config"
	"hypeflow/internal/httpx"
	"hypeflow/internal/market"
	"hypeflow/internal/media"
	"hypeflow/internal/observability"
	"hypeflow/internal/patch"
	"hypeflow/internal/pipeline"
	"hypeflow/internal/resolver"
	"hypeflow/internal/scheduler"
	"hypeflow/internal/solana"
	"hypeflow/internal/source"
	"hypeflow/internal/storage/memory"
	"hypeflow/internal/storage/migrations"
	pgstore "hypeflow/internal/storage/postgres"
	"hypeflow/internal/throttle"
)

// app is the assembled service.
type app struct {
	pipeline  *pipeline.Pipeline
	scheduler *scheduler.Scheduler
	stream    *source.LogStream // nil when no WebSocket endpoint is set
	server    *api.Server
	ws        solana.WSClient
	pool      *pgstore.Pool
	logger    *zap.Logger
}

func build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{logger: logger}

	rules, err := patch.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}
	seeds, err := config.DefaultSeeds()
	if err != nil {
		return nil, err
	}

	limiter := throttle.New(
		throttle.WithInterval(cfg.ThrottleInterval),
		throttle.WithPenalty(cfg.ThrottlePenalty),
		throttle.WithPenaltyHook(func() {
			observability.RecordRateLimitPenalty()
			logger.Debug("rate limit penalty applied")
		}),
	)

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint,
		solana.WithLatencyObserver(func(method string, d time.Duration) {
			observability.RecordRPCLatency(method, d.Seconds())
		}),
	)
	httpClient := httpx.NewClient()
	me := market.NewMagicEden(cfg.MagicEdenURL, httpClient)

	seen := memory.NewSeenSet()
	cache := memory.NewRecordCache(cfg.CacheCapacity)
	subs := memory.NewSubscriptionStore()

	res := resolver.New(
		resolver.NewChainTokens(rpc, limiter, logger),
		limiter,
		resolver.WithPrices(me),
		resolver.WithJSONClient(httpClient),
		resolver.WithLogger(logger),
	)

	env := source.Env{Limiter: limiter, Seen: seen, Logger: logger}
	scan := source.NewCollectionScan(rpc, env)

	a.pipeline = pipeline.New(seen, cache, subs, res, patch.New(rules, logger)).
		WithCollectionScanner(scan).
		WithLogger(logger)

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect archive: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate archive: %w", err)
		}
		a.pool = pool
		a.pipeline.WithArchive(pgstore.NewRecordArchive(pool))
		logger.Info("record archive enabled")
	}

	if n := a.pipeline.Seed(seeds.Collections); n > 0 {
		logger.Info("seed collections subscribed", zap.Int("count", n))
	}

	if cfg.WSEndpoint != "" {
		wsCfg := solana.DefaultWSConfig()
		a.ws = solana.NewWSClient(cfg.WSEndpoint, &wsCfg, logger)
		a.stream = source.NewLogStream(a.ws, source.DefaultLogStreamBuffer, logger)
	}

	selector := scheduler.NewRandomSelector(cfg.SelectorSeed)
	if cfg.SelectorSeed == 0 {
		selector = scheduler.NewRandomSelector(time.Now().UnixNano())
	}

	breakerCfg := source.BreakerConfig{
		ConsecutiveFailures: cfg.BreakerFailures,
		Cooldown:            cfg.BreakerCooldown,
	}
	var breakers []*source.Breaker
	guard := func(ad source.Adapter) source.Adapter {
		b := source.NewBreaker(ad, breakerCfg, logger)
		breakers = append(breakers, b)
		return b
	}

	onchain := guard(source.NewOnChainScan(rpc, a.stream, env))
	collections := guard(source.NewCollectionRefresh(scan, subs, selector))
	rotation := source.NewRotation(selector,
		guard(source.NewKnownMints(seeds.KnownMints, env)),
		guard(source.NewHelius(market.NewHelius(cfg.HeliusURL, cfg.HeliusAPIKey, httpClient), env)),
		guard(source.NewMagicEdenActivities(me, env)),
		guard(source.NewMagicEdenLaunchpad(me, env)),
		guard(source.NewTensor(market.NewTensor(cfg.TensorURL, &http.Client{Timeout: 10 * time.Second}), env)),
		guard(source.NewHyperspace(market.NewHyperspace(cfg.HyperspaceURL, httpClient), env)),
		guard(source.NewSolanaFM(market.NewSolanaFM(cfg.SolanaFMURL, httpClient), subs, scan, env)),
		guard(source.NewJupiter(market.NewJupiter(cfg.JupiterURL, httpClient), me, seeds.JupiterSymbols, env)),
	)

	a.scheduler = scheduler.New(logger,
		scheduler.NewTrigger("onchain", cfg.OnChainInterval, cfg.OnChainDelay, a.runAdapter(onchain), logger),
		scheduler.NewTrigger("collections", cfg.CollectionInterval, 0, a.runAdapter(collections), logger),
		scheduler.NewTrigger("aggregation", cfg.AggregationInterval, cfg.AggregationWarmup, func(ctx context.Context) error {
			ad := rotation.Next()
			if ad == nil {
				return nil
			}
			return a.runAdapter(ad)(ctx)
		}, logger),
	)

	sources := append([]string{onchain.Name(), collections.Name()}, rotation.Names()...)
	a.server = api.NewServer(a.pipeline, media.NewProxy(media.WithProxyLogger(logger)), logger).
		WithTriggerStatus(a.scheduler.Status).
		WithBreakerStatus(func() map[string]string {
			states := make(map[string]string, len(breakers))
			for _, b := range breakers {
				states[b.Name()] = b.State().String()
			}
			return states
		}).
		WithSources(sources)

	return a, nil
}

// runAdapter turns one adapter into a trigger job. Adapter failures are
// reported on the trigger but never stop it.
func (a *app) runAdapter(ad source.Adapter) scheduler.Job {
	return func(ctx context.Context) error {
		res := a.pipeline.Run(ctx, ad)
		if res.Err != nil && !source.IsOpen(res.Err) {
			return fmt.Errorf("%s: %w", res.Source, res.Err)
		}
		return nil
	}
}

// Handler returns the HTTP API.
func (a *app) Handler() http.Handler {
	return a.server.Handler()
}

// Run starts the live log stream and the triggers, and blocks until ctx is done.
func (a *app) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if a.stream != nil {
		g.Go(func() error {
			if err := a.stream.Run(ctx); err != nil {
				a.logger.Warn("log stream unavailable, polling only", zap.Error(err))
			}
			return nil
		})
	}
	g.Go(func() error {
		return a.scheduler.Run(ctx)
	})
	return g.Wait()
}

// Close releases the WebSocket connection and the archive pool.
func (a *app) Close() {
	if a.ws != nil {
		_ = a.ws.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
