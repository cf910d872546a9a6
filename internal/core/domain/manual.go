package domain

import (
	"fmt"
	"time"
)

// MaxSnippetLength is the maximum number of characters returned per retrieved source
const MaxSnippetLength = 400

// SourceDocument is one maintenance manual as a sequence of page texts.
// Pages keep their order; page numbers are 1-based positions in Pages.
type SourceDocument struct {
	Name  string   `json:"name"`
	Pages []string `json:"pages"`
}

// Chunk is a bounded segment of manual text, the unit of retrieval
type Chunk struct {
	Text       string `json:"text"`
	SourceName string `json:"source_name"`
	PageNumber int    `json:"page_number"`
}

// IndexSnapshot holds the full retrieval corpus as parallel arrays.
// Chunks[i] is embedded as Embeddings[i]. A snapshot is never patched;
// rebuilds produce a new one.
type IndexSnapshot struct {
	Chunks     []Chunk     `json:"chunks"`
	Embeddings [][]float32 `json:"embeddings"`
	Model      string      `json:"model"`
	Dimensions int         `json:"dimensions"`
	BuiltAt    time.Time   `json:"built_at"`
}

// Len returns the number of chunks in the snapshot
func (s *IndexSnapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Chunks)
}

// IsEmpty reports whether the snapshot holds no chunks
func (s *IndexSnapshot) IsEmpty() bool {
	return s.Len() == 0
}

// Validate checks the parallel-array invariant and vector shape.
func (s *IndexSnapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrCorruptSnapshot)
	}
	if len(s.Chunks) != len(s.Embeddings) {
		return fmt.Errorf("%w: %d chunks but %d embeddings", ErrCorruptSnapshot, len(s.Chunks), len(s.Embeddings))
	}
	for i, vec := range s.Embeddings {
		if len(vec) != s.Dimensions {
			return fmt.Errorf("%w: embedding %d has %d dimensions, want %d", ErrCorruptSnapshot, i, len(vec), s.Dimensions)
		}
	}
	for i, c := range s.Chunks {
		if c.PageNumber < 1 {
			return fmt.Errorf("%w: chunk %d has page %d", ErrCorruptSnapshot, i, c.PageNumber)
		}
	}
	return nil
}

// Documents returns the number of distinct source manuals in the snapshot
func (s *IndexSnapshot) Documents() int {
	if s == nil {
		return 0
	}
	seen := make(map[string]struct{})
	for _, c := range s.Chunks {
		seen[c.SourceName] = struct{}{}
	}
	return len(seen)
}

// RetrievedSource is one manual passage returned for a query
type RetrievedSource struct {
	ManualName string  `json:"manual_name"`
	Page       int     `json:"page"`
	Score      float64 `json:"score"`
	Snippet    string  `json:"snippet"`
}

// Snippet truncates text to MaxSnippetLength characters.
func Snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxSnippetLength {
		return text
	}
	return string(runes[:MaxSnippetLength])
}

// IndexStatus describes the live retrieval index
type IndexStatus struct {
	Chunks     int        `json:"chunks"`
	Documents  int        `json:"documents"`
	Dimensions int        `json:"dimensions"`
	Model      string     `json:"model"`
	BuiltAt    *time.Time `json:"built_at,omitempty"`
	Empty      bool       `json:"empty"`
	Rebuilding bool       `json:"rebuilding"`
}

// StatusOf summarises a snapshot
func StatusOf(s *IndexSnapshot) IndexStatus {
	status := IndexStatus{
		Chunks:    s.Len(),
		Documents: s.Documents(),
		Empty:     s.IsEmpty(),
	}
	if s != nil {
		status.Dimensions = s.Dimensions
		status.Model = s.Model
		if !s.BuiltAt.IsZero() {
			builtAt := s.BuiltAt
			status.BuiltAt = &builtAt
		}
	}
	return status
}
