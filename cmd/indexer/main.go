package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/noahsaso/argus-sub001/internal/config"
	"github.com/noahsaso/argus-sub001/internal/constants"
	"github.com/noahsaso/argus-sub001/internal/exporter"
	"github.com/noahsaso/argus-sub001/internal/extractregistry"
	"github.com/noahsaso/argus-sub001/internal/iterator"
	"github.com/noahsaso/argus-sub001/internal/logger"
	"github.com/noahsaso/argus-sub001/internal/model"
	"github.com/noahsaso/argus-sub001/internal/node"
	"github.com/noahsaso/argus-sub001/internal/queue"
	"github.com/noahsaso/argus-sub001/internal/sink"
	"github.com/noahsaso/argus-sub001/internal/state"
	"github.com/noahsaso/argus-sub001/internal/store"
	"github.com/noahsaso/argus-sub001/internal/tracehandler"
	"github.com/noahsaso/argus-sub001/internal/worker"
)

var (
	// Version information (injected at build time)
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to configuration file (YAML)")
		showVersion = flag.Bool("version", false, "Show version information and exit")
		rpcEndpoint = flag.String("rpc", "", "CometBFT RPC endpoint URL")
		dsn         = flag.String("dsn", "", "Postgres connection string")
		startHeight = flag.Uint64("start-height", 0, "Block height to start indexing from")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
		logFormat   = flag.String("log-format", "", "Log format (json, console)")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("argus-sub001 version %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", buildTime)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	applyFlags(cfg, *rpcEndpoint, *dsn, *startHeight, *logLevel, *logFormat)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := initLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting indexer",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_time", buildTime),
		zap.String("rpc_endpoint", cfg.Node.RPCEndpoint),
		zap.Uint64("start_height", cfg.Iterator.StartHeight),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Attach the root logger to the context so any code reached only
	// through ctx (not constructed with a component logger of its own)
	// can still log via logger.FromContext.
	ctx = logger.WithLogger(ctx, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	st, err := store.New(ctx, store.Config{DSN: cfg.Database.DSN, MaxConns: cfg.Database.MaxConns}, logger.WithComponent(log, "store"))
	if err != nil {
		log.Fatal("failed to connect to event store", zap.Error(err))
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		log.Fatal("failed to migrate event store", zap.Error(err))
	}
	log.Info("event store ready")

	nodeClient, err := node.NewClient(&node.Config{
		RPCEndpoint: cfg.Node.RPCEndpoint,
		WSEndpoint:  cfg.Node.WSEndpoint,
		Timeout:     cfg.Node.Timeout,
		Logger:      logger.WithComponent(log, "node"),
	})
	if err != nil {
		log.Fatal("failed to connect to chain node", zap.Error(err))
	}
	defer nodeClient.Close()
	log.Info("connected to chain node", zap.String("endpoint", cfg.Node.RPCEndpoint))

	q, err := queue.New(ctx, queue.FactoryConfig{
		Backend: cfg.Queue.Backend,
		Redis: queue.RedisConfig{
			Addresses:   cfg.Queue.Redis.Addresses,
			Password:    cfg.Queue.Redis.Password,
			DB:          cfg.Queue.Redis.DB,
			PoolSize:    cfg.Queue.Redis.PoolSize,
			DialTimeout: cfg.Queue.Redis.DialTimeout,
		},
		Kafka: queue.KafkaConfig{
			Brokers:      cfg.Queue.Kafka.Brokers,
			GroupID:      cfg.Queue.Kafka.GroupID,
			RequiredAcks: cfg.Queue.Kafka.RequiredAcks,
		},
		Job: queue.Config{
			MaxAttempts: cfg.Worker.MaxAttempts,
			BackoffBase: cfg.Worker.BackoffBase,
		},
	}, logger.WithComponent(log, "queue"))
	if err != nil {
		log.Fatal("failed to initialize job queue", zap.Error(err))
	}
	defer q.Close()
	log.Info("job queue ready", zap.String("backend", cfg.Queue.Backend))

	exp := exporter.New(queue.ExporterSink{Queue: q}, logger.WithComponent(log, "exporter"), exporter.Config{
		MaxBatchSize: cfg.Exporter.MaxBatchSize,
		DebounceMs:   cfg.Exporter.DebounceMs,
	})

	stateTracker := state.New(st)
	registry := extractregistry.Default()

	workerLogger := logger.WithComponent(log, "worker")
	w := worker.New(st, stateTracker, registry,
		sink.LoggingSearchSink{Logger: workerLogger},
		sink.LoggingWebhookSink{Logger: workerLogger},
		workerLogger,
		worker.Config{
			Timeout:     cfg.Worker.Timeout,
			MaxAttempts: cfg.Worker.MaxAttempts,
			BackoffBase: cfg.Worker.BackoffBase,
			ChainID:     cfg.Node.ChainID,
		},
	)

	var workerWg sync.WaitGroup
	startWorkers(ctx, &workerWg, q, w, workerLogger, constants.TopicExtract, cfg.Worker.Concurrency)
	startWorkers(ctx, &workerWg, q, w, workerLogger, constants.TopicExtractBackground, cfg.Worker.Concurrency)

	it := iterator.New(nodeClient, logger.WithComponent(log, "iterator"), iterator.Config{
		StartHeight: cfg.Iterator.StartHeight,
		EndHeight:   cfg.Iterator.EndHeight,
		BufferSize:  cfg.Iterator.BufferSize,
		ThrowErrors: cfg.Iterator.ThrowErrors,
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- it.Iterate(ctx, iterator.Callbacks{
			OnBlock: func(header iterator.BlockHeader) {
				exp.ExportItems(ctx, nil, header.Height)
			},
			OnTx: func(tx model.DecodedTx, header iterator.BlockHeader) {
				items := tracehandler.Handle(tx, header.Height)
				if len(items) > 0 {
					exp.ExportItems(ctx, items, header.Height)
				}
			},
			OnError: func(err error) {
				log.Error("block iterator error", zap.Error(err))
			},
		})
	}()
	log.Info("block iterator started", zap.Uint64("start_height", cfg.Iterator.StartHeight))

	select {
	case sig := <-sigChan:
		logger.FromContext(ctx).Info("received shutdown signal", zap.String("signal", sig.String()))
		it.StopFetching()
		cancel()
	case err := <-errChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("block iterator stopped with error", zap.Error(err))
		}
	}

	logger.FromContext(ctx).Info("shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	exp.Close(shutdownCtx)

	workerWg.Wait()

	log.Info("indexer stopped")
}

// startWorkers starts one goroutine, registered on wg so main can wait for
// a clean exit on shutdown, that runs q.Consume on topic with concurrency
// handlers, each running w.Handle.
func startWorkers(ctx context.Context, wg *sync.WaitGroup, q queue.Queue, w *worker.Worker, log *zap.Logger, topic string, concurrency int) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := q.Consume(ctx, topic, concurrency, w.Handle); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("queue consumer stopped with error", zap.String("topic", topic), zap.Error(err))
		}
	}()
}

// loadConfig loads configuration from defaults, an optional file, and
// environment variables, in that order of precedence.
func loadConfig(configFile string) (*config.Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := config.NewConfig()
	if configFile != "" {
		if err := cfg.LoadFromFile(configFile); err != nil {
			return nil, fmt.Errorf("failed to load configuration file: %w", err)
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads environment variables from a .env file if it exists.
func loadDotEnv() error {
	info, err := os.Stat(".env")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat .env: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf(".env exists but is a directory")
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// applyFlags overrides configuration with any command-line flags set.
func applyFlags(cfg *config.Config, rpcEndpoint, dsn string, startHeight uint64, logLevel, logFormat string) {
	if rpcEndpoint != "" {
		cfg.Node.RPCEndpoint = rpcEndpoint
	}
	if dsn != "" {
		cfg.Database.DSN = dsn
	}
	if startHeight > 0 {
		cfg.Iterator.StartHeight = startHeight
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
}

// initLogger initializes the logger based on configuration.
func initLogger(level, format string) (*zap.Logger, error) {
	if format == "json" || format == "production" {
		return logger.NewProduction()
	}

	// Console output at debug level is exactly NewDevelopment's preset;
	// any other level still goes through NewWithConfig so the operator's
	// chosen level is honored.
	if level == "debug" {
		return logger.NewDevelopment()
	}

	cfg := logger.Config{
		Level:       level,
		Encoding:    "console",
		Development: true,
	}
	return logger.NewWithConfig(&cfg)
}
