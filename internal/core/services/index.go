package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driving"
)

// Ensure ManualIndex implements IndexService
var _ driving.IndexService = (*ManualIndex)(nil)

// RebuildLockName is the distributed lock guarding index rebuilds
const RebuildLockName = "manual-index-rebuild"

// ManualIndex owns the retrieval corpus: chunked manual text and one
// embedding per chunk. The live snapshot is swapped atomically, so searches
// never observe a half-built index.
//
// Staleness is not detected automatically: LoadOrBuild trusts an existing
// snapshot even when the manuals changed. Call Rebuild (or run the
// IndexWatcher) to pick up corpus changes.
type ManualIndex struct {
	embedder  driven.EmbeddingService
	corpus    driven.CorpusSource
	snapshots driven.SnapshotStore
	pipeline  driven.PostProcessorPipeline
	lock      driven.DistributedLock
	logger    *slog.Logger
	now       func() time.Time

	batchSize      int
	scoreThreshold float64
	lockTTL        time.Duration

	live       atomic.Pointer[liveIndex]
	rebuilding atomic.Bool
}

// liveIndex pairs a snapshot with precomputed vector norms
type liveIndex struct {
	snap  *domain.IndexSnapshot
	norms []float64
}

// ManualIndexConfig holds dependencies for the manual index.
type ManualIndexConfig struct {
	Embedder  driven.EmbeddingService
	Corpus    driven.CorpusSource
	Snapshots driven.SnapshotStore
	Pipeline  driven.PostProcessorPipeline
	Lock      driven.DistributedLock // Optional: cross-process rebuild guard
	Logger    *slog.Logger
	Now       func() time.Time

	BatchSize      int           // Chunks per embedding call (default: 64)
	ScoreThreshold float64       // Drop results scoring below this; 0 disables
	LockTTL        time.Duration // Distributed lock TTL (default: 10m)
}

// NewManualIndex creates an empty manual index.
func NewManualIndex(cfg ManualIndexConfig) (*ManualIndex, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("%w: embedding service is required", domain.ErrInvalidInput)
	}
	if cfg.Pipeline == nil {
		return nil, fmt.Errorf("%w: chunking pipeline is required", domain.ErrInvalidInput)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}

	idx := &ManualIndex{
		embedder:       cfg.Embedder,
		corpus:         cfg.Corpus,
		snapshots:      cfg.Snapshots,
		pipeline:       cfg.Pipeline,
		lock:           cfg.Lock,
		logger:         logger,
		now:            now,
		batchSize:      batchSize,
		scoreThreshold: cfg.ScoreThreshold,
		lockTTL:        lockTTL,
	}
	idx.live.Store(&liveIndex{})
	return idx, nil
}

// Build chunks and embeds the documents into a new snapshot without
// touching the live index. Document and page order are preserved; pages
// without text are skipped. Returns ErrIndexEmpty if nothing was chunked.
func (m *ManualIndex) Build(ctx context.Context, docs []domain.SourceDocument) (*domain.IndexSnapshot, error) {
	var chunks []domain.Chunk
	for _, doc := range docs {
		for i, page := range doc.Pages {
			for _, c := range m.pipeline.Process(page) {
				chunks = append(chunks, domain.Chunk{
					Text:       c.Content,
					SourceName: doc.Name,
					PageNumber: i + 1,
				})
			}
		}
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %d documents yielded no text", domain.ErrIndexEmpty, len(docs))
	}

	embeddings := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += m.batchSize {
		end := min(start+m.batchSize, len(chunks))

		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.Text
		}

		vectors, err := m.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embed chunks %d-%d: got %d vectors for %d texts", start, end, len(vectors), len(texts))
		}
		embeddings = append(embeddings, vectors...)
	}

	dims := len(embeddings[0])
	if want := m.embedder.Dimensions(); want > 0 && dims != want {
		return nil, fmt.Errorf("%w: embedder returned %d dimensions, reports %d", domain.ErrEmbeddingDimensionMismatch, dims, want)
	}

	snap := &domain.IndexSnapshot{
		Chunks:     chunks,
		Embeddings: embeddings,
		Model:      m.embedder.Model(),
		Dimensions: dims,
		BuiltAt:    m.now().UTC(),
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("%w: embedder returned ragged vectors", domain.ErrEmbeddingDimensionMismatch)
	}

	m.logger.Info("manual index built",
		"documents", len(docs),
		"chunks", len(chunks),
		"dimensions", dims,
		"model", snap.Model,
	)
	return snap, nil
}

// Load validates a snapshot and makes it the live index.
func (m *ManualIndex) Load(snap *domain.IndexSnapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	if want := m.embedder.Dimensions(); want > 0 && !snap.IsEmpty() && snap.Dimensions != want {
		m.logger.Warn("snapshot dimensions differ from embedding service, searches will fail",
			"snapshot_dimensions", snap.Dimensions,
			"embedder_dimensions", want,
			"snapshot_model", snap.Model,
		)
	}
	m.swap(snap)
	return nil
}

// LoadOrBuild loads the persisted snapshot if one exists; otherwise it
// builds from the corpus and persists the result. An existing snapshot is
// used as-is even if the corpus has since changed.
//
// ErrIndexEmpty leaves an empty live index in place and is meant to be
// reported as a warning. ErrCorruptSnapshot should stop the process.
func (m *ManualIndex) LoadOrBuild(ctx context.Context) error {
	if m.snapshots != nil {
		snap, err := m.snapshots.Load(ctx)
		switch {
		case err == nil:
			if err := m.Load(snap); err != nil {
				return fmt.Errorf("load snapshot %s: %w", m.snapshots.Location(), err)
			}
			m.logger.Info("manual index loaded from snapshot",
				"path", m.snapshots.Location(),
				"chunks", snap.Len(),
				"built_at", snap.BuiltAt,
			)
			return nil
		case !errors.Is(err, domain.ErrNotFound):
			return fmt.Errorf("load snapshot %s: %w", m.snapshots.Location(), err)
		}
	}

	_, err := m.rebuildFromCorpus(ctx)
	return err
}

// Rebuild re-reads the corpus, persists a fresh snapshot and swaps it in.
// Concurrent rebuilds fail with ErrRebuildInProgress.
func (m *ManualIndex) Rebuild(ctx context.Context) (*domain.IndexStatus, error) {
	if !m.rebuilding.CompareAndSwap(false, true) {
		return nil, domain.ErrRebuildInProgress
	}
	defer m.rebuilding.Store(false)

	if m.lock != nil {
		acquired, err := m.lock.Acquire(ctx, RebuildLockName, m.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire rebuild lock: %w", err)
		}
		if !acquired {
			return nil, domain.ErrRebuildInProgress
		}
		defer func() {
			if err := m.lock.Release(context.WithoutCancel(ctx), RebuildLockName); err != nil {
				m.logger.Warn("failed to release rebuild lock", "error", err)
			}
		}()
	}

	snap, err := m.rebuildFromCorpus(ctx)
	if err != nil {
		return nil, err
	}
	status := domain.StatusOf(snap)
	return &status, nil
}

// rebuildFromCorpus builds from the corpus, persists and swaps.
// An empty corpus empties the live index but is not persisted, so the
// next start tries again.
func (m *ManualIndex) rebuildFromCorpus(ctx context.Context) (*domain.IndexSnapshot, error) {
	if m.corpus == nil {
		return nil, fmt.Errorf("%w: no corpus source configured", domain.ErrIndexEmpty)
	}

	docs, err := m.corpus.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", m.corpus.Root(), err)
	}

	snap, err := m.Build(ctx, docs)
	if errors.Is(err, domain.ErrIndexEmpty) {
		m.swap(nil)
		m.logger.Warn("manual corpus produced no chunks, retrieval disabled", "root", m.corpus.Root())
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if m.snapshots != nil {
		if err := m.snapshots.Save(ctx, snap); err != nil {
			return nil, fmt.Errorf("persist snapshot %s: %w", m.snapshots.Location(), err)
		}
	}
	m.swap(snap)
	return snap, nil
}

// Search returns the topK chunks most similar to query by cosine
// similarity, best first. Ties keep corpus order. An empty index yields
// an empty result.
func (m *ManualIndex) Search(ctx context.Context, query string, topK int) ([]domain.RetrievedSource, error) {
	if topK < 1 {
		return nil, fmt.Errorf("%w: top_k must be at least 1", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	live := m.live.Load()
	if live.snap.IsEmpty() {
		return []domain.RetrievedSource{}, nil
	}

	qvec, err := m.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(qvec) != live.snap.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrEmbeddingDimensionMismatch, len(qvec), live.snap.Dimensions)
	}

	qnorm := norm(qvec)
	order := make([]int, live.snap.Len())
	scores := make([]float64, live.snap.Len())
	for i, vec := range live.snap.Embeddings {
		order[i] = i
		scores[i] = cosine(qvec, qnorm, vec, live.norms[i])
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	results := make([]domain.RetrievedSource, 0, min(topK, len(order)))
	for _, i := range order {
		if len(results) == topK {
			break
		}
		if m.scoreThreshold > 0 && scores[i] < m.scoreThreshold {
			break
		}
		c := live.snap.Chunks[i]
		results = append(results, domain.RetrievedSource{
			ManualName: c.SourceName,
			Page:       c.PageNumber,
			Score:      scores[i],
			Snippet:    domain.Snippet(c.Text),
		})
	}
	return results, nil
}

// Status describes the live index
func (m *ManualIndex) Status() domain.IndexStatus {
	status := domain.StatusOf(m.live.Load().snap)
	status.Rebuilding = m.rebuilding.Load()
	return status
}

// Snapshot returns the live snapshot (nil when empty)
func (m *ManualIndex) Snapshot() *domain.IndexSnapshot {
	return m.live.Load().snap
}

func (m *ManualIndex) swap(snap *domain.IndexSnapshot) {
	live := &liveIndex{snap: snap}
	if snap != nil {
		live.norms = make([]float64, len(snap.Embeddings))
		for i, vec := range snap.Embeddings {
			live.norms[i] = norm(vec)
		}
	}
	m.live.Store(live)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns 0 when either vector has zero length
func cosine(a []float32, anorm float64, b []float32, bnorm float64) float64 {
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (anorm * bnorm)
}
