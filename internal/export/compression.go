package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression type constants.
const (
	CompressionNone   = "none"
	CompressionGzip   = "gzip"
	CompressionZstd   = "zstd"
	CompressionSnappy = "snappy"
	CompressionLZ4    = "lz4"
)

var extensions = map[string]string{
	".gz":  CompressionGzip,
	".zst": CompressionZstd,
	".sz":  CompressionSnappy,
	".lz4": CompressionLZ4,
}

// CompressionFromPath picks the algorithm matching the file extension,
// or CompressionNone.
func CompressionFromPath(path string) string {
	if algorithm, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return algorithm
	}

	return CompressionNone
}

// NewWriter wraps w with a streaming compressor. Closing the returned
// writer flushes the compressor but does not close w.
func NewWriter(w io.Writer, algorithm string) (io.WriteCloser, error) {
	switch algorithm {
	case CompressionNone, "":
		return nopWriteCloser{w}, nil
	case CompressionGzip:
		return gzip.NewWriter(w), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}

		return enc, nil
	case CompressionSnappy:
		return snappy.NewBufferedWriter(w), nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
}

// NewReader wraps r with a streaming decompressor.
func NewReader(r io.Reader, algorithm string) (io.ReadCloser, error) {
	switch algorithm {
	case CompressionNone, "":
		return io.NopCloser(r), nil
	case CompressionGzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}

		return gr, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}

		return dec.IOReadCloser(), nil
	case CompressionSnappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
