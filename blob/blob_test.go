package blob

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

var payload = []byte("\x01\x02lexicon bytes\x00with embedded NUL")

func TestDecodePlain(t *testing.T) {
	b, err := Decode(payload)
	require.NoError(t, err)
	require.Equal(t, payload, []byte(b))
}

func TestDecodeGzip(t *testing.T) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	b, err := Decode(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, payload, []byte(b))
}

func TestDecodeZstd(t *testing.T) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	b, err := Decode(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, payload, []byte(b))
}

func TestDecodeCorruptGzip(t *testing.T) {
	data := append([]byte{0x1F, 0x8B}, []byte("definitely not a gzip stream")...)
	_, err := Decode(data)
	require.Error(t, err)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "sys.dic")
	require.NoError(t, os.WriteFile(plain, payload, 0o644))

	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	packed := filepath.Join(dir, "sys.dic.gz")
	require.NoError(t, os.WriteFile(packed, buf.Bytes(), 0o644))

	for _, path := range []string{plain, packed} {
		b, err := ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, payload, []byte(b))
	}

	_, err = ReadFile(filepath.Join(dir, "missing.dic"))
	require.Error(t, err)
}

func TestFromBytesIsZeroCopy(t *testing.T) {
	data := []byte{1, 2, 3}
	b := FromBytes(data)
	require.Equal(t, 3, b.Len())
	require.Same(t, &data[0], &b[0])
}
