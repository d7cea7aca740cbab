package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"

	"github.com/hunterwarburton/webrag/internal/chunker"
	"github.com/hunterwarburton/webrag/internal/core"
	"github.com/hunterwarburton/webrag/internal/logger"
	"github.com/hunterwarburton/webrag/internal/metrics"
)

// Default polling parameters for index state transitions.
const (
	DefaultPollInitial = 250 * time.Millisecond
	DefaultPollMax     = 5 * time.Second
)

var errNotYet = errors.New("index state not reached yet")

// LifecycleOptions configures an IndexManager.
type LifecycleOptions struct {
	CorpusPath   string
	DeleteSettle time.Duration
	CreateSettle time.Duration
	PollInitial  time.Duration
	PollMax      time.Duration
}

// IndexManager owns the named index: it creates it on first use and rebuilds
// it from the corpus on reset.
type IndexManager struct {
	store    core.VectorStore
	embedder core.EmbedService
	opts     LifecycleOptions
	resets   singleflight.Group
}

// NewIndexManager creates a manager over store, filling zero options with defaults.
func NewIndexManager(store core.VectorStore, embedder core.EmbedService, opts LifecycleOptions) *IndexManager {
	if opts.DeleteSettle <= 0 {
		opts.DeleteSettle = 10 * time.Second
	}
	if opts.CreateSettle <= 0 {
		opts.CreateSettle = 15 * time.Second
	}
	if opts.PollInitial <= 0 {
		opts.PollInitial = DefaultPollInitial
	}
	if opts.PollMax <= 0 {
		opts.PollMax = DefaultPollMax
	}
	return &IndexManager{store: store, embedder: embedder, opts: opts}
}

// State reports the index state as the store observes it now.
func (m *IndexManager) State(ctx context.Context) (core.IndexState, error) {
	st, err := m.store.State(ctx)
	if err != nil {
		return st, core.Upstream("index state", err)
	}
	return st, nil
}

// EnsureReady creates the index if it is absent and waits until it is usable.
// Calling it on a ready index is a single state check.
func (m *IndexManager) EnsureReady(ctx context.Context) error {
	st, err := m.store.State(ctx)
	if err != nil {
		return core.Upstream("index state", err)
	}

	switch st {
	case core.IndexReady:
		return nil
	case core.IndexUnloaded:
		logger.Info("Index %s exists but is not loaded, loading it", m.store.Name())
		if err := m.store.Load(ctx); err != nil {
			return core.Upstream("load index", err)
		}
	case core.IndexDeleting:
		if err := m.waitFor(ctx, core.IndexAbsent, m.opts.DeleteSettle); err != nil {
			return err
		}
		fallthrough
	case core.IndexAbsent:
		logger.Info("Index %s not found, creating it", m.store.Name())
		if err := m.store.Create(ctx); err != nil {
			return core.Upstream("create index", err)
		}
	}
	return m.waitFor(ctx, core.IndexReady, m.opts.CreateSettle)
}

// Reset drops the index, recreates it and loads every corpus chunk into it,
// returning the number of chunks inserted. Concurrent calls share one rebuild.
// Once started a rebuild runs to completion even if ctx is cancelled; only its
// values are kept.
func (m *IndexManager) Reset(ctx context.Context) (int, error) {
	ctx = context.WithoutCancel(ctx)
	v, err, shared := m.resets.Do("reset", func() (interface{}, error) {
		return m.reset(ctx)
	})
	if shared {
		logger.Debug("Reset of %s shared with a concurrent caller", m.store.Name())
	}
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (m *IndexManager) reset(ctx context.Context) (int, error) {
	start := time.Now()
	name := m.store.Name()

	texts, err := chunker.ReadCorpus(m.opts.CorpusPath)
	if err != nil {
		return 0, core.Upstream("read corpus", err)
	}
	logger.Info("Resetting index %s from %s (%d chunks)", name, m.opts.CorpusPath, len(texts))

	st, err := m.store.State(ctx)
	if err != nil {
		return 0, core.Upstream("index state", err)
	}
	if st == core.IndexReady || st == core.IndexCreating || st == core.IndexUnloaded {
		logger.Info("Deleting existing index %s", name)
		if err := m.store.Drop(ctx); err != nil {
			return 0, core.Upstream("drop index", err)
		}
	}
	if st != core.IndexAbsent {
		if err := m.waitFor(ctx, core.IndexAbsent, m.opts.DeleteSettle); err != nil {
			return 0, err
		}
	}

	if err := m.store.Create(ctx); err != nil {
		return 0, core.Upstream("create index", err)
	}
	if err := m.waitFor(ctx, core.IndexReady, m.opts.CreateSettle); err != nil {
		return 0, err
	}

	if len(texts) == 0 {
		logger.Warn("Corpus %s produced no chunks; index %s left empty", m.opts.CorpusPath, name)
		metrics.IndexedChunks.Set(0)
		return 0, nil
	}

	vectors, err := m.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("embed").Inc()
		return 0, core.Upstream("embed chunks", err)
	}
	if len(vectors) != len(texts) {
		return 0, core.Upstream("embed chunks", fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts)))
	}

	chunks := make([]core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = core.Chunk{ID: int64(i), Text: text, Embedding: vectors[i]}
	}

	n, err := m.store.Insert(ctx, chunks)
	if err != nil {
		metrics.UpstreamErrors.WithLabelValues("insert").Inc()
		return 0, core.Upstream("insert chunks", err)
	}
	if err := m.waitForCount(ctx, n, m.opts.CreateSettle); err != nil {
		return 0, err
	}

	metrics.IndexedChunks.Set(float64(n))
	metrics.ResetDuration.Observe(time.Since(start).Seconds())
	logger.Info("Index %s rebuilt with %d chunks in %v", name, n, time.Since(start).Round(time.Millisecond))
	return n, nil
}

func (m *IndexManager) newBackOff(ctx context.Context, budget time.Duration) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.opts.PollInitial
	b.MaxInterval = m.opts.PollMax
	b.MaxElapsedTime = budget
	b.Reset()
	return backoff.WithContext(b, ctx)
}

// waitFor polls the store until it reports want or the budget runs out.
func (m *IndexManager) waitFor(ctx context.Context, want core.IndexState, budget time.Duration) error {
	last := core.IndexState(-1)
	op := func() error {
		st, err := m.store.State(ctx)
		if err != nil {
			return backoff.Permanent(core.Upstream("index state", err))
		}
		metrics.StatePolls.WithLabelValues(st.String()).Inc()
		if st != last {
			logger.Debug("Index %s is %s, waiting for %s", m.store.Name(), st, want)
		}
		last = st
		if want == core.IndexReady && st == core.IndexUnloaded {
			if err := m.store.Load(ctx); err != nil {
				return backoff.Permanent(core.Upstream("load index", err))
			}
		}
		if st != want {
			return errNotYet
		}
		return nil
	}

	err := backoff.Retry(op, m.newBackOff(ctx, budget))
	if errors.Is(err, errNotYet) {
		return &core.IndexNotReadyError{Index: m.store.Name(), Want: want, Last: last}
	}
	return err
}

// waitForCount polls until at least n rows are visible to readers.
func (m *IndexManager) waitForCount(ctx context.Context, n int, budget time.Duration) error {
	op := func() error {
		got, err := m.store.Count(ctx)
		if err != nil {
			return backoff.Permanent(core.Upstream("count rows", err))
		}
		if got < n {
			logger.Debug("Index %s shows %d of %d rows", m.store.Name(), got, n)
			return errNotYet
		}
		return nil
	}

	err := backoff.Retry(op, m.newBackOff(ctx, budget))
	if errors.Is(err, errNotYet) {
		return &core.IndexNotReadyError{Index: m.store.Name(), Want: core.IndexReady, Last: core.IndexReady}
	}
	return err
}
