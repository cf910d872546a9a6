package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
)

// Ensure LocalEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*LocalEmbedding)(nil)

// LocalEmbeddingModel names the feature-hashing scheme. Bump it when the
// hashing changes so stale snapshots are recognisable.
const LocalEmbeddingModel = "local-hash-v1"

// LocalEmbedding is an offline embedder using signed feature hashing of
// word unigrams and character trigrams. Texts sharing vocabulary land close
// together, which is enough for keyword-heavy maintenance manuals.
type LocalEmbedding struct {
	dimensions int
}

// NewLocalEmbedding creates a local embedder with the given vector size
func NewLocalEmbedding(dimensions int) *LocalEmbedding {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &LocalEmbedding{dimensions: dimensions}
}

// Embed generates embeddings for multiple texts
func (l *LocalEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = l.vector(text)
	}
	return out, nil
}

// EmbedQuery generates an embedding for a search query
func (l *LocalEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.vector(query), nil
}

func (l *LocalEmbedding) Dimensions() int { return l.dimensions }

func (l *LocalEmbedding) Model() string { return LocalEmbeddingModel }

func (l *LocalEmbedding) HealthCheck(ctx context.Context) error { return nil }

func (l *LocalEmbedding) Close() error { return nil }

func (l *LocalEmbedding) vector(text string) []float32 {
	vec := make([]float64, l.dimensions)

	for _, word := range tokenize(text) {
		l.add(vec, "w:"+word, 1.0)

		padded := []rune("#" + word + "#")
		for i := 0; i+3 <= len(padded); i++ {
			l.add(vec, "c:"+string(padded[i:i+3]), 0.5)
		}
	}

	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	out := make([]float32, l.dimensions)
	if sum == 0 {
		return out
	}
	n := math.Sqrt(sum)
	for i, v := range vec {
		out[i] = float32(v / n)
	}
	return out
}

func (l *LocalEmbedding) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(l.dimensions))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

// tokenize lower-cases text and splits on anything that is not a letter or
// digit; underscores split too, so "oil_leak" matches "oil leak"
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r)
	})
}
