package corpus

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"unicode/utf8"

	"github.com/custodia-labs/maintenance-agent/internal/core/ports/driven"
)

var (
	_ driven.TextExtractor = PlainTextExtractor{}
	_ driven.TextExtractor = (*PDFExtractor)(nil)
)

// PlainTextExtractor reads UTF-8 text files; form feeds mark page breaks
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extensions() []string { return []string{".txt", ".md"} }

func (PlainTextExtractor) Extract(_ context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s is not valid UTF-8", path)
	}
	return splitPages(string(data)), nil
}

// CommandRunner runs an external program and returns its stdout
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// PDFExtractor pulls page text out of PDFs with poppler's pdftotext,
// which separates pages with form feeds.
type PDFExtractor struct {
	runner CommandRunner
	binary string
}

// NewPDFExtractor creates an extractor. A nil runner uses ExecRunner.
func NewPDFExtractor(runner CommandRunner) *PDFExtractor {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &PDFExtractor{runner: runner, binary: "pdftotext"}
}

func (p *PDFExtractor) Extensions() []string { return []string{".pdf"} }

// Extract returns one string per PDF page
func (p *PDFExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	out, err := p.runner.Run(ctx, p.binary, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	return splitPages(string(out)), nil
}

// Available reports whether pdftotext is on PATH
func (p *PDFExtractor) Available() bool {
	_, err := exec.LookPath(p.binary)
	return err == nil
}

// InstallInstructions explains how to get pdftotext
func InstallInstructions() string {
	return "PDF manuals need pdftotext from poppler:\n" +
		"  macOS:         brew install poppler\n" +
		"  Debian/Ubuntu: apt install poppler-utils\n" +
		"  Fedora:        dnf install poppler-utils"
}
