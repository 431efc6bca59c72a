// Package worker implements the Extract Worker (spec §4.3): it consumes
// the extract job queue, resolves and runs the named extractor, advances
// Block/State, and fans out fire-and-forget sink notifications.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noahsaso/argus-sub001/internal/constants"
	"github.com/noahsaso/argus-sub001/internal/extractregistry"
	"github.com/noahsaso/argus-sub001/internal/logger"
	"github.com/noahsaso/argus-sub001/internal/model"
	"github.com/noahsaso/argus-sub001/internal/queue"
	"github.com/noahsaso/argus-sub001/internal/retry"
	"github.com/noahsaso/argus-sub001/internal/sink"
	"github.com/noahsaso/argus-sub001/internal/state"
	"github.com/noahsaso/argus-sub001/internal/store"
)

// ErrExtractorNotFound is returned when a job names an extractor absent
// from the registry (spec §4.3 step 1, §7 ExtractorNotFound). The queue
// treats this as fatal: Worker never asks for a retry on this error.
var ErrExtractorNotFound = errors.New("worker: extractor not found")

// Config bounds a single extraction call's timeout and retry policy (spec
// §4.3 steps 3-4, §5).
type Config struct {
	Timeout     time.Duration
	MaxAttempts int
	BackoffBase time.Duration
	ChainID     string
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = constants.DefaultExtractTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = constants.DefaultExtractMaxAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = constants.DefaultExtractBackoffBase
	}
	return c
}

// Worker processes extract jobs. One Worker can serve several queue
// topics; the caller wires Handle to each via queue.Queue.Consume.
type Worker struct {
	store    *store.Store
	state    *state.Tracker
	registry *extractregistry.Registry
	search   sink.SearchSink
	webhook  sink.WebhookSink
	logger   *zap.Logger
	config   Config
}

// New constructs a Worker.
func New(st *store.Store, tracker *state.Tracker, registry *extractregistry.Registry, search sink.SearchSink, webhook sink.WebhookSink, logger *zap.Logger, config Config) *Worker {
	return &Worker{
		store:    st,
		state:    tracker,
		registry: registry,
		search:   search,
		webhook:  webhook,
		logger:   logger,
		config:   config.withDefaults(),
	}
}

// Handle processes a single job and satisfies queue.Handler (spec §4.3
// processing steps 1-5).
func (w *Worker) Handle(ctx context.Context, job queue.Job) error {
	jobLogger := logger.WithFields(w.logger, zap.String("job_id", job.ID), zap.String("extractor", job.Extractor))

	factory, ok := w.registry.Resolve(job.Extractor)
	if !ok {
		jobLogger.Error("unknown extractor, failing job without retry")
		return queue.Fatal(fmt.Errorf("%w: %s", ErrExtractorNotFound, job.Extractor))
	}

	env := extractregistry.Env{
		TxHash: job.TxHash,
		Block:  extractregistry.Block{Height: job.BlockHeight, TimeUnixMs: job.BlockTimeUnixMs},
	}
	extractor, err := factory(extractregistry.Deps{Store: w.store}, env)
	if err != nil {
		return fmt.Errorf("worker: instantiate extractor %s: %w", job.Extractor, err)
	}

	models, err := w.extractWithRetry(ctx, extractor, job, jobLogger)
	if err != nil {
		return err
	}

	if err := w.advance(ctx, models); err != nil {
		return err
	}

	w.fanOut(ctx, models, jobLogger)
	return nil
}

// extractWithRetry invokes extractor.Extract under a 30s deadline, retried
// up to Config.MaxAttempts times with exponential backoff (spec §4.3 steps
// 3-4). Only the extraction call retries; fan-out failures never do.
func (w *Worker) extractWithRetry(ctx context.Context, extractor extractregistry.Extractor, job queue.Job, jobLogger *zap.Logger) ([]extractregistry.PersistedModel, error) {
	var models []extractregistry.PersistedModel

	policy := retry.Policy{
		BaseDelay:   w.config.BackoffBase,
		MaxAttempts: w.config.MaxAttempts,
	}
	err := retry.Do(ctx, policy, func(attempt int, err error) {
		jobLogger.Warn("extraction attempt failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
	}, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
		defer cancel()
		m, err := extractor.Extract(attemptCtx, job.Data)
		if err != nil {
			return err
		}
		models = m
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("worker: extraction failed for %s after retries: %w", job.Extractor, err)
	}
	return models, nil
}

// advance upserts Block for the highest height among models and
// monotonically advances State to match (spec §4.3 step 5).
func (w *Worker) advance(ctx context.Context, models []extractregistry.PersistedModel) error {
	if len(models) == 0 {
		return nil
	}

	highest := models[0]
	for _, m := range models[1:] {
		if m.BlockHeight > highest.BlockHeight {
			highest = m
		}
	}

	if err := w.store.UpsertBlock(ctx, model.Block{Height: highest.BlockHeight, TimeUnixMs: highest.BlockTimeUnixMs}); err != nil {
		return fmt.Errorf("worker: upsert block %d: %w", highest.BlockHeight, err)
	}
	if err := w.state.AdvanceLatestBlock(ctx, w.config.ChainID, highest.BlockHeight, highest.BlockTimeUnixMs); err != nil {
		return fmt.Errorf("worker: advance state to block %d: %w", highest.BlockHeight, err)
	}
	return nil
}

// fanOut concurrently notifies the search and webhook sinks. Failures are
// logged and suppressed; they never fail the job (spec §4.3 step 5, §7
// DownstreamSinkFailure).
func (w *Worker) fanOut(ctx context.Context, models []extractregistry.PersistedModel, jobLogger *zap.Logger) {
	if len(models) == 0 {
		return
	}

	records := make([]sink.Record, len(models))
	for i, m := range models {
		records[i] = sink.Record{Table: m.Table, Address: m.Address, Key: m.Key, BlockHeight: m.BlockHeight}
	}

	done := make(chan struct{}, 2)
	go func() {
		defer func() { done <- struct{}{} }()
		if _, err := w.search.IndexRecords(ctx, records); err != nil {
			jobLogger.Error("search sink failed", zap.Error(err))
		}
	}()
	go func() {
		defer func() { done <- struct{}{} }()
		if _, err := w.webhook.NotifyRecords(ctx, records); err != nil {
			jobLogger.Error("webhook sink failed", zap.Error(err))
		}
	}()
	<-done
	<-done
}
