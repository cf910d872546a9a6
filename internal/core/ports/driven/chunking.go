package driven

// PostProcessor transforms text chunks on their way into the index.
// Processors form a pipeline: whitespace normalisation, then the chunker.
type PostProcessor interface {
	// Process applies the processor to the chunks of one page.
	// The first processor receives a single chunk holding the full page text.
	Process(chunks []Chunk) []Chunk

	// Name returns the processor name for logging/debugging.
	Name() string

	// Order returns the processor order in the pipeline (lower = earlier).
	Order() int
}

// Chunk is a piece of page text moving through the pipeline.
// Offsets count characters (code points), not bytes.
type Chunk struct {
	// Content is the text content of the chunk
	Content string

	// Position is the chunk index within the page (0-based)
	Position int

	// StartOffset is the character offset from the page start
	StartOffset int

	// EndOffset is the character offset for chunk end
	EndOffset int
}

// PostProcessorPipeline chains post-processors in order.
type PostProcessorPipeline interface {
	// Process applies all processors to raw page text and returns
	// the chunks ready for embedding.
	Process(content string) []Chunk

	// Add adds a processor to the pipeline.
	Add(processor PostProcessor)

	// List returns processor names in order.
	List() []string
}
