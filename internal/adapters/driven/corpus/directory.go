// Package corpus reads maintenance manuals from a directory.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
)

// Ensure DirectorySource implements CorpusSource
var _ driven.CorpusSource = (*DirectorySource)(nil)

// pageBreak separates pages in plain-text manuals and pdftotext output
const pageBreak = "\f"

// DirectorySource walks a directory tree and turns every supported file
// into a SourceDocument. Files that cannot be read are logged and skipped.
type DirectorySource struct {
	root       string
	extractors map[string]driven.TextExtractor
	logger     *slog.Logger
}

// DirectoryConfig configures a DirectorySource
type DirectoryConfig struct {
	Root string

	// Extractors handle binary formats; .txt and .md are always read directly
	Extractors []driven.TextExtractor

	Logger *slog.Logger
}

// NewDirectorySource creates a source rooted at cfg.Root
func NewDirectorySource(cfg DirectoryConfig) *DirectorySource {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	extractors := map[string]driven.TextExtractor{}
	plain := PlainTextExtractor{}
	for _, ext := range plain.Extensions() {
		extractors[ext] = plain
	}
	for _, e := range cfg.Extractors {
		for _, ext := range e.Extensions() {
			extractors[strings.ToLower(ext)] = e
		}
	}

	return &DirectorySource{
		root:       cfg.Root,
		extractors: extractors,
		logger:     logger.With("component", "corpus", "root", cfg.Root),
	}
}

// Root returns the manual directory
func (s *DirectorySource) Root() string {
	return s.root
}

// Documents reads every supported file under the root, sorted by relative
// path. A missing root directory is an error; an empty one is not.
func (s *DirectorySource) Documents(ctx context.Context) ([]domain.SourceDocument, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, fmt.Errorf("manual directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, s.root)
	}

	var paths []string
	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := s.extractors[strings.ToLower(filepath.Ext(path))]; ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk manuals: %w", err)
	}
	sort.Strings(paths)

	docs := make([]domain.SourceDocument, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		extractor := s.extractors[strings.ToLower(filepath.Ext(path))]
		pages, err := extractor.Extract(ctx, path)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			s.logger.Warn("skipping unreadable manual", "path", path, "error", err)
			continue
		}

		name, err := filepath.Rel(s.root, path)
		if err != nil {
			name = filepath.Base(path)
		}
		docs = append(docs, domain.SourceDocument{Name: filepath.ToSlash(name), Pages: pages})
	}

	s.logger.Debug("read manuals", "documents", len(docs))
	return docs, nil
}

// SupportedExtensions lists the file extensions this source reads
func (s *DirectorySource) SupportedExtensions() []string {
	exts := make([]string, 0, len(s.extractors))
	for ext := range s.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// splitPages splits extracted text on form feeds, dropping the empty tail
// a trailing form feed leaves behind
func splitPages(text string) []string {
	pages := strings.Split(text, pageBreak)
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}
