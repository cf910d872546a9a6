package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output map[string][]byte
	err    error
	calls  [][]string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.calls = append(m.calls, append([]string{name}, args...))
	if m.err != nil {
		return nil, m.err
	}
	path := args[len(args)-2]
	out, ok := m.output[filepath.Base(path)]
	if !ok {
		return nil, errors.New("Syntax Error: Couldn't find trailer dictionary")
	}
	return out, nil
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDirectorySource_Documents(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pump.txt", "Page one text.\fPage two text.\f")
	writeFile(t, dir, "a-guide.md", "# Guide\nSingle page")
	writeFile(t, dir, "sub/valves.pdf", "%PDF-1.4")
	writeFile(t, dir, "broken.pdf", "not really")
	writeFile(t, dir, "photo.jpg", "ignored")
	writeFile(t, dir, ".git/notes.txt", "hidden")

	runner := &mockRunner{output: map[string][]byte{
		"valves.pdf": []byte("Valve page 1\fValve page 2\fValve page 3\f"),
	}}
	src := NewDirectorySource(DirectoryConfig{
		Root:       dir,
		Extractors: []driven.TextExtractor{NewPDFExtractor(runner)},
	})

	docs, err := src.Documents(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"a-guide.md", "pump.txt", "sub/valves.pdf"}, names)

	assert.Equal(t, []string{"# Guide\nSingle page"}, docs[0].Pages)
	assert.Equal(t, []string{"Page one text.", "Page two text."}, docs[1].Pages)
	assert.Len(t, docs[2].Pages, 3)
	assert.Equal(t, dir, src.Root())
	assert.Equal(t, []string{".md", ".pdf", ".txt"}, src.SupportedExtensions())
}

func TestDirectorySource_EmptyAndMissing(t *testing.T) {
	docs, err := NewDirectorySource(DirectoryConfig{Root: t.TempDir()}).Documents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = NewDirectorySource(DirectoryConfig{Root: filepath.Join(t.TempDir(), "missing")}).Documents(context.Background())
	assert.Error(t, err)
}

func TestDirectorySource_SkipsInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.txt", string([]byte{0xff, 0xfe, 0xfd}))
	writeFile(t, dir, "good.txt", "fine")

	docs, err := NewDirectorySource(DirectoryConfig{Root: dir}).Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "good.txt", docs[0].Name)
}

func TestPDFExtractor_Arguments(t *testing.T) {
	runner := &mockRunner{output: map[string][]byte{"m.pdf": []byte("only page")}}
	pages, err := NewPDFExtractor(runner).Extract(context.Background(), "/manuals/m.pdf")
	require.NoError(t, err)

	assert.Equal(t, []string{"only page"}, pages)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"pdftotext", "-layout", "-enc", "UTF-8", "/manuals/m.pdf", "-"}, runner.calls[0])
}

func TestSplitPages(t *testing.T) {
	assert.Equal(t, []string{""}, splitPages(""))
	assert.Equal(t, []string{"a", "", "b"}, splitPages("a\f\fb"))
	assert.Equal(t, []string{"a"}, splitPages("a\f  \n"))
}

func TestInstallInstructions(t *testing.T) {
	assert.Contains(t, InstallInstructions(), "pdftotext")
	assert.Contains(t, InstallInstructions(), "apt install poppler-utils")
}
