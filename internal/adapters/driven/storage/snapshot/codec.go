// Package snapshot persists the retrieval index as a single file.
//
// The file is a short header (magic and format version) followed by a
// gzip-compressed gob stream of the snapshot. Chunks and embeddings round
// trip exactly; float32 values are stored bit for bit.
package snapshot

import (
	"bufio"
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"io"

	"github.com/custodia-labs/maintenance-agent/internal/core/domain"
)

var magic = [4]byte{'M', 'I', 'D', 'X'}

// FormatVersion is bumped whenever the encoded layout changes
const FormatVersion byte = 1

// Encode writes snap to w
func Encode(w io.Writer, snap *domain.IndexSnapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(magic[:]); err != nil {
		return err
	}
	if err := bw.WriteByte(FormatVersion); err != nil {
		return err
	}

	zw := gzip.NewWriter(bw)
	if err := gob.NewEncoder(zw).Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return bw.Flush()
}

// Decode reads a snapshot written by Encode. Any malformed input yields
// ErrCorruptSnapshot.
func Decode(r io.Reader) (*domain.IndexSnapshot, error) {
	br := bufio.NewReader(r)

	var header [5]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return nil, fmt.Errorf("%w: short header: %v", domain.ErrCorruptSnapshot, err)
	}
	if [4]byte(header[:4]) != magic {
		return nil, fmt.Errorf("%w: not an index snapshot", domain.ErrCorruptSnapshot)
	}
	if header[4] != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", domain.ErrCorruptSnapshot, header[4])
	}

	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptSnapshot, err)
	}
	defer zr.Close()

	var snap domain.IndexSnapshot
	if err := gob.NewDecoder(zr).Decode(&snap); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptSnapshot, err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}
