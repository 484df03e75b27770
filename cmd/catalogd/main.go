/*
Copyright 2026 The catalogd Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command catalogd runs the definition pipeline: the HTTP surface, the
// harvest-update and definition-upgrade queue workers, and the CDN
// invalidator's background flush loop, wired from one YAML config file.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"

	"github.com/clearlydefined/catalogd/internal/config"
	"github.com/clearlydefined/catalogd/pkg/cdn"
	"github.com/clearlydefined/catalogd/pkg/computelock"
	"github.com/clearlydefined/catalogd/pkg/crawler"
	"github.com/clearlydefined/catalogd/pkg/curation"
	"github.com/clearlydefined/catalogd/pkg/definition"
	"github.com/clearlydefined/catalogd/pkg/definitionstore"
	"github.com/clearlydefined/catalogd/pkg/harvestprocessor"
	"github.com/clearlydefined/catalogd/pkg/harveststore"
	"github.com/clearlydefined/catalogd/pkg/httpapi"
	"github.com/clearlydefined/catalogd/pkg/log"
	"github.com/clearlydefined/catalogd/pkg/metrics"
	"github.com/clearlydefined/catalogd/pkg/pgstore"
	"github.com/clearlydefined/catalogd/pkg/queue"
	"github.com/clearlydefined/catalogd/pkg/queue/redisqueue"
	"github.com/clearlydefined/catalogd/pkg/redisstore"
	"github.com/clearlydefined/catalogd/pkg/searchindex"
	"github.com/clearlydefined/catalogd/pkg/stats"
	"github.com/clearlydefined/catalogd/pkg/suggestion"
	"github.com/clearlydefined/catalogd/pkg/summarizer"
	"github.com/clearlydefined/catalogd/pkg/upgradeprocessor"
	"github.com/clearlydefined/catalogd/pkg/webhook"
)

// computeLockTTL bounds how long one coordinate's recompute may hold the
// per-key lock before another consumer is allowed to steal it (spec §4.5).
const computeLockTTL = 2 * time.Minute

func main() {
	configPath := flag.String("config", "config.yaml", "path to the service configuration file")
	flag.Parse()

	logger := log.NewLogger(log.DefaultOptions())

	opts, err := config.Load(*configPath)
	if err != nil {
		logger.Error(err, "failed to load configuration")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *opts, logger); err != nil {
		logger.Error(err, "service exited with an error")
		os.Exit(1)
	}
}

func run(ctx context.Context, opts config.Options, logger logr.Logger) error {
	harvestBackend, err := openHarvestBackend(ctx, opts.Storage)
	if err != nil {
		return err
	}
	definitionStore, err := openDefinitionStore(ctx, opts.Storage)
	if err != nil {
		return err
	}

	metricsServer := metrics.NewServer(opts.Server.MetricsPort, logger)
	metricsServer.StartAsync()

	lock := computelock.New(computeLockTTL)
	invalidator := cdn.New(cdn.Config{
		FlushURL:  opts.CDN.FlushURL,
		AuthKey:   opts.CDN.AuthKey,
		AuthEmail: opts.CDN.AuthEmail,
		Watermark: opts.CDN.Watermark,
		Interval:  opts.CDN.Interval,
	}, logger)
	go invalidator.Start(ctx)

	crawlerClient := crawler.NewHTTPClient(opts.Crawler.URL, opts.Crawler.AuthToken, opts.Crawler.HTTPTimeout)

	// Curation's GitHub-backed Repository has no implementation in this
	// repo (no pack example exercises the GitHub REST API), so curated
	// contributions are held in memory; see DESIGN.md.
	curator := curation.New(curation.NewMemoryRepository(), logger)

	index := searchindex.NewMemoryIndex()
	svc, err := definition.New(
		definition.Config{CurrentSchema: opts.Schema.CurrentVersion, Precedence: definition.DefaultPrecedence()},
		harveststore.New(harvestBackend),
		summarizer.JSONPassthrough{},
		curator,
		definitionStore,
		index,
		invalidator,
		crawlerClient,
		lock,
		logger,
	)
	if err != nil {
		return err
	}

	statsEngine := stats.New(index)
	suggestionEngine := suggestion.New(definitionStore)

	harvestQueue, err := openQueue(ctx, opts.Queue, opts.Queue.HarvestQueue, "harvest-worker")
	if err != nil {
		return err
	}
	upgradeQueue, err := openQueue(ctx, opts.Queue, opts.Queue.UpgradeQueue, "upgrade-worker")
	if err != nil {
		return err
	}

	checker, err := upgradeprocessor.NewVersionChecker(opts.Schema.CurrentVersion)
	if err != nil {
		return err
	}

	harvestProc := harvestprocessor.New(harvestQueue, lock, svc, logger, false)
	upgradeProc := upgradeprocessor.New(upgradeQueue, lock, svc, checker, logger, false)

	go func() {
		if err := harvestProc.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error(err, "harvest processor stopped")
		}
	}()
	go func() {
		if err := upgradeProc.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error(err, "upgrade processor stopped")
		}
	}()

	webhookHandlers := map[string]http.Handler{
		"/webhook/crawler": webhook.NewCrawlerHandler(opts.Crawler.Secret, svc, logger),
		"/webhook/github":  webhook.NewGitHubHandler(opts.Curation.WebhookSecret, curator, svc, logger),
	}
	handler := httpapi.New(svc, crawlerClient, logger, webhookHandlers,
		httpapi.WithStats(statsEngine), httpapi.WithSuggestions(suggestionEngine))

	server := &http.Server{
		Addr:              ":" + opts.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		invalidator.Uninitialize(shutdownCtx)
		_ = metricsServer.Stop(shutdownCtx)
		return server.Shutdown(shutdownCtx)
	}
	return nil
}

// openHarvestBackend selects the harvest backend by connection-string
// scheme: "postgres://"/"postgresql://" -> pgstore, "redis://" -> redisstore,
// anything else (including empty, for local/dev use) -> in-memory.
func openHarvestBackend(ctx context.Context, opts config.StorageOptions) (harveststore.Backend, error) {
	switch {
	case isPostgres(opts.HarvestConnectionString):
		db, err := pgstore.Open(ctx, opts.HarvestConnectionString)
		if err != nil {
			return nil, err
		}
		return pgstore.NewHarvestBackend(db), nil
	case isRedis(opts.HarvestConnectionString):
		client, err := newRedisClient(opts.HarvestConnectionString)
		if err != nil {
			return nil, err
		}
		return redisstore.NewHarvestBackend(client), nil
	default:
		return harveststore.NewMemoryBackend(), nil
	}
}

func openDefinitionStore(ctx context.Context, opts config.StorageOptions) (definitionstore.Store, error) {
	switch {
	case isPostgres(opts.DefinitionConnectionString):
		db, err := pgstore.Open(ctx, opts.DefinitionConnectionString)
		if err != nil {
			return nil, err
		}
		return pgstore.NewDefinitionStore(db), nil
	case isRedis(opts.DefinitionConnectionString):
		client, err := newRedisClient(opts.DefinitionConnectionString)
		if err != nil {
			return nil, err
		}
		return redisstore.NewDefinitionStore(client), nil
	default:
		return definitionstore.NewMemoryStore(), nil
	}
}

// openQueue selects the queue backend the same way the stores do: a
// "redis://" QueueOptions.ConnectionString gets Redis Streams, anything
// else gets the in-memory queue (local/dev and tests).
func openQueue(ctx context.Context, opts config.QueueOptions, stream, consumer string) (queue.Queue, error) {
	if !isRedis(opts.ConnectionString) {
		return queue.NewMemoryQueue(queue.DefaultVisibilityTimeout), nil
	}
	client, err := newRedisClient(opts.ConnectionString)
	if err != nil {
		return nil, err
	}
	return redisqueue.New(ctx, client, stream, consumer, redisqueue.DefaultVisibilityTimeout)
}

func newRedisClient(connectionString string) (*redis.Client, error) {
	redisOpts, err := redis.ParseURL(connectionString)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(redisOpts), nil
}

func isPostgres(connectionString string) bool {
	return strings.HasPrefix(connectionString, "postgres://") || strings.HasPrefix(connectionString, "postgresql://")
}

func isRedis(connectionString string) bool {
	return strings.HasPrefix(connectionString, "redis://") || strings.HasPrefix(connectionString, "rediss://")
}
