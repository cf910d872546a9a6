package postprocessors

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline implements PostProcessorPipeline.
// It chains post-processors in order, normalising first and chunking last.
type Pipeline struct {
	mu         sync.RWMutex
	processors []driven.PostProcessor
	sorted     bool
}

// NewPipeline creates a new post-processor pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		processors: make([]driven.PostProcessor, 0),
	}
}

// Add adds a processor to the pipeline.
// Processors are sorted by Order() before processing.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processors = append(p.processors, processor)
	p.sorted = false
}

// Process applies all processors in order to one page of text.
func (p *Pipeline) Process(content string) []driven.Chunk {
	p.mu.Lock()
	if !p.sorted {
		sort.SliceStable(p.processors, func(i, j int) bool {
			return p.processors[i].Order() < p.processors[j].Order()
		})
		p.sorted = true
	}
	processors := make([]driven.PostProcessor, len(p.processors))
	copy(processors, p.processors)
	p.mu.Unlock()

	chunks := []driven.Chunk{
		{
			Content:     content,
			StartOffset: 0,
			EndOffset:   len([]rune(content)),
		},
	}

	for _, proc := range processors {
		chunks = proc.Process(chunks)
	}

	return chunks
}

// Split returns only the chunk texts for a page.
func (p *Pipeline) Split(content string) []string {
	chunks := p.Process(content)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	return texts
}

// List returns processor names in order.
func (p *Pipeline) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}

// DefaultPipeline creates the manual ingestion pipeline:
// whitespace normalisation followed by the sliding-window chunker.
func DefaultPipeline(config ChunkConfig) (*Pipeline, error) {
	chunker, err := NewChunker(config)
	if err != nil {
		return nil, err
	}
	p := NewPipeline()
	p.Add(NewWhitespaceNormalizer())
	p.Add(chunker)
	return p, nil
}

// ChunkConfig configures the chunker behavior.
// Sizes count characters (code points), not bytes.
type ChunkConfig struct {
	// Size is the window length per chunk
	Size int `yaml:"chunk_size"`

	// Overlap is the number of characters shared by consecutive chunks
	Overlap int `yaml:"overlap"`
}

// DefaultChunkConfig returns the 800/200 window used for manuals.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    800,
		Overlap: 200,
	}
}

// Validate rejects configurations whose window cannot advance.
func (c ChunkConfig) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: chunk size %d must be positive", domain.ErrInvalidChunkConfig, c.Size)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: overlap %d must not be negative", domain.ErrInvalidChunkConfig, c.Overlap)
	}
	if c.Overlap >= c.Size {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", domain.ErrInvalidChunkConfig, c.Overlap, c.Size)
	}
	return nil
}

// Step is how far the window start advances per chunk.
func (c ChunkConfig) Step() int {
	return c.Size - c.Overlap
}

// Chunker splits content into overlapping fixed-length windows.
type Chunker struct {
	config ChunkConfig
}

// Verify interface compliance
var _ driven.PostProcessor = (*Chunker)(nil)

// NewChunker creates a new chunker with the given config.
func NewChunker(config ChunkConfig) (*Chunker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{config: config}, nil
}

// Process splits every incoming chunk into windows.
func (c *Chunker) Process(chunks []driven.Chunk) []driven.Chunk {
	var result []driven.Chunk
	position := 0

	for _, chunk := range chunks {
		result = append(result, c.splitContent(chunk.Content, chunk.StartOffset, &position)...)
	}

	return result
}

// Name returns the processor name.
func (c *Chunker) Name() string {
	return "chunker"
}

// Order returns 10 - chunker runs after normalisation.
func (c *Chunker) Order() int {
	return 10
}

// splitContent walks the window over content. The window that reaches the
// end of the text is the last one emitted.
func (c *Chunker) splitContent(content string, baseOffset int, position *int) []driven.Chunk {
	runes := []rune(content)
	if len(runes) == 0 {
		return nil
	}

	var chunks []driven.Chunk
	step := c.config.Step()

	for start := 0; start < len(runes); start += step {
		end := min(start+c.config.Size, len(runes))

		chunks = append(chunks, driven.Chunk{
			Content:     string(runes[start:end]),
			Position:    *position,
			StartOffset: baseOffset + start,
			EndOffset:   baseOffset + end,
		})
		*position++

		if end == len(runes) {
			break
		}
	}

	return chunks
}

// WhitespaceNormalizer collapses whitespace runs to single spaces and trims.
// Pages that end up empty are dropped.
type WhitespaceNormalizer struct{}

// Verify interface compliance
var _ driven.PostProcessor = (*WhitespaceNormalizer)(nil)

// NewWhitespaceNormalizer creates a new whitespace normalizer.
func NewWhitespaceNormalizer() *WhitespaceNormalizer {
	return &WhitespaceNormalizer{}
}

// Process normalizes whitespace in chunks.
func (w *WhitespaceNormalizer) Process(chunks []driven.Chunk) []driven.Chunk {
	result := make([]driven.Chunk, 0, len(chunks))

	for _, chunk := range chunks {
		content := Normalize(chunk.Content)
		if content == "" {
			continue
		}
		newChunk := chunk
		newChunk.Content = content
		newChunk.EndOffset = newChunk.StartOffset + len([]rune(content))
		result = append(result, newChunk)
	}

	return result
}

// Name returns the processor name.
func (w *WhitespaceNormalizer) Name() string {
	return "whitespace-normalizer"
}

// Order returns 0 - normalisation runs first.
func (w *WhitespaceNormalizer) Order() int {
	return 0
}

// Normalize collapses every whitespace run (spaces, tabs, newlines, form
// feeds and other Unicode space) to one space and trims both ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
