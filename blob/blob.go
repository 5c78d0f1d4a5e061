// Package blob provides read-only byte buffers for dictionary data.
//
// The morphseg decoders operate on already-resident buffers and never touch
// the filesystem themselves. ReadFile is a convenience loader that sniffs
// gzip and zstd containers, since binary dictionaries are commonly shipped
// compressed.
package blob

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Blob is an immutable, fully resident byte buffer. Decoders must treat it
// as read-only; no part of morphseg writes through a Blob.
type Blob []byte

// Len returns the buffer size in bytes.
func (b Blob) Len() int { return len(b) }

// FromBytes wraps raw bytes without copying. The caller must not mutate
// data afterwards.
func FromBytes(data []byte) Blob { return Blob(data) }

var (
	gzipMagic = []byte{0x1F, 0x8B}
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
)

// ReadFile loads a dictionary file into memory. Files starting with a gzip
// or zstd magic number are decompressed transparently; anything else is
// returned verbatim.
func ReadFile(path string) (Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Decode unwraps a possibly compressed buffer into a plain Blob.
func Decode(data []byte) (Blob, error) {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("blob: gzip header: %w", err)
		}
		defer r.Close()
		plain, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("blob: gzip body: %w", err)
		}
		return Blob(plain), nil
	case bytes.HasPrefix(data, zstdMagic):
		r, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("blob: zstd header: %w", err)
		}
		defer r.Close()
		plain, err := io.ReadAll(r.IOReadCloser())
		if err != nil {
			return nil, fmt.Errorf("blob: zstd body: %w", err)
		}
		return Blob(plain), nil
	}
	return Blob(data), nil
}
