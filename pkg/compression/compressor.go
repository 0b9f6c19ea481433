// Package compression provides the codecs used for model snapshots.
//
// # Overview
//
// The compression package provides:
//   - Multiple compression algorithms (Gzip, Zstd, LZ4, S2, None)
//   - A numeric level from 1 (fastest) to 9 (smallest) mapped onto each codec
//   - A stable one-byte codec ID written into snapshot headers
//   - Pooled encoders and decoders shared per (algorithm, level)
//
// # Basic Usage
//
//	comp, err := compression.For(compression.Zstd, 3)
//	compressed, err := comp.Compress(data)
//	original, err := comp.Decompress(compressed)
//
// Decompression never depends on the level, so readers pick a codec with
// ForID(id, compression.DefaultLevel) using the ID found in the header.
package compression

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// LZ4 represents lz4 compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
)

// Level is a compression level between MinLevel and MaxLevel
type Level int

const (
	// MinLevel prioritizes speed over compression ratio
	MinLevel Level = 1
	// DefaultLevel balances speed and compression
	DefaultLevel Level = 3
	// MaxLevel maximizes compression ratio
	MaxLevel Level = 9
)

// Valid reports whether l is within 1..9
func (l Level) Valid() bool {
	return l >= MinLevel && l <= MaxLevel
}

func (l Level) String() string {
	return fmt.Sprintf("level-%d", int(l))
}

// IDs are persisted in snapshot headers and must never be renumbered.
var algorithmIDs = map[Algorithm]byte{
	None: 0,
	Gzip: 1,
	Zstd: 2,
	LZ4:  3,
	S2:   4,
}

// ID returns the persisted codec identifier of a
func (a Algorithm) ID() (byte, error) {
	id, ok := algorithmIDs[a]
	if !ok {
		return 0, fmt.Errorf("unsupported compression algorithm: %s", a)
	}
	return id, nil
}

// AlgorithmFromID maps a persisted codec identifier back to its algorithm
func AlgorithmFromID(id byte) (Algorithm, error) {
	for a, v := range algorithmIDs {
		if v == id {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown compression codec id %d", id)
}

// Compressor provides compression and decompression functionality.
// All implementations are safe for concurrent use.
type Compressor interface {
	// Compress compresses data and returns the compressed bytes.
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses data and returns the original bytes.
	Decompress(data []byte) ([]byte, error)

	// Algorithm returns the compression algorithm used.
	Algorithm() Algorithm

	// Level returns the compression level configured.
	Level() Level
}

// NewCompressor creates a new compressor for the algorithm and level
func NewCompressor(algorithm Algorithm, level Level) (Compressor, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("compression level %d out of range %d-%d", level, MinLevel, MaxLevel)
	}

	base := baseCompressor{algorithm: algorithm, level: level}
	switch algorithm {
	case None:
		return &noneCompressor{baseCompressor: base}, nil
	case Gzip:
		return newGzipCompressor(base), nil
	case LZ4:
		return &lz4Compressor{baseCompressor: base, compressionLevel: mapLZ4Level(level)}, nil
	case Zstd:
		return newZstdCompressor(base), nil
	case S2:
		return &s2Compressor{baseCompressor: base}, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
}

type cacheKey struct {
	algorithm Algorithm
	level     Level
}

var compressors sync.Map // cacheKey -> Compressor

// For returns a shared compressor for the algorithm and level, creating it
// on first use.
func For(algorithm Algorithm, level Level) (Compressor, error) {
	key := cacheKey{algorithm: algorithm, level: level}
	if c, ok := compressors.Load(key); ok {
		return c.(Compressor), nil
	}
	c, err := NewCompressor(algorithm, level)
	if err != nil {
		return nil, err
	}
	actual, _ := compressors.LoadOrStore(key, c)
	return actual.(Compressor), nil
}

// ForID returns a shared compressor for a persisted codec identifier
func ForID(id byte, level Level) (Compressor, error) {
	algorithm, err := AlgorithmFromID(id)
	if err != nil {
		return nil, err
	}
	if !level.Valid() {
		level = DefaultLevel
	}
	return For(algorithm, level)
}

// Base compressor implementation
type baseCompressor struct {
	algorithm Algorithm
	level     Level
}

// Algorithm returns the compression algorithm
func (bc *baseCompressor) Algorithm() Algorithm {
	return bc.algorithm
}

// Level returns the compression level
func (bc *baseCompressor) Level() Level {
	return bc.level
}

// None compressor (no compression)
type noneCompressor struct {
	baseCompressor
}

func (nc *noneCompressor) Compress(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (nc *noneCompressor) Decompress(data []byte) ([]byte, error) {
	return nc.Compress(data)
}

// Gzip compressor
type gzipCompressor struct {
	baseCompressor
	writerPool sync.Pool
	readerPool sync.Pool
}

func newGzipCompressor(base baseCompressor) *gzipCompressor {
	gc := &gzipCompressor{baseCompressor: base}
	level := int(base.level)

	gc.writerPool.New = func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, level)
		return w
	}

	gc.readerPool.New = func() interface{} {
		return new(gzip.Reader)
	}

	return gc
}

func (gc *gzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w := gc.writerPool.Get().(*gzip.Writer)
	defer gc.writerPool.Put(w)

	w.Reset(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gc *gzipCompressor) Decompress(data []byte) ([]byte, error) {
	r := gc.readerPool.Get().(*gzip.Reader)
	defer gc.readerPool.Put(r)

	if err := r.Reset(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil { //nolint:gosec // G110: snapshots are written by this process
		return nil, err
	}
	return buf.Bytes(), nil
}

// LZ4 compressor
type lz4Compressor struct {
	baseCompressor
	compressionLevel lz4.CompressionLevel
}

func (lc *lz4Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)

	if err := w.Apply(lz4.CompressionLevelOption(lc.compressionLevel)); err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (lc *lz4Compressor) Decompress(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil { //nolint:gosec // G110: snapshots are written by this process
		return nil, err
	}
	return buf.Bytes(), nil
}

// Zstd compressor
type zstdCompressor struct {
	baseCompressor
	encoderPool sync.Pool
	decoderPool sync.Pool
}

func newZstdCompressor(base baseCompressor) *zstdCompressor {
	zc := &zstdCompressor{baseCompressor: base}
	level := zstd.EncoderLevelFromZstd(int(base.level))

	zc.encoderPool.New = func() interface{} {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
		return enc
	}

	zc.decoderPool.New = func() interface{} {
		dec, _ := zstd.NewReader(nil)
		return dec
	}

	return zc
}

func (zc *zstdCompressor) Compress(data []byte) ([]byte, error) {
	enc := zc.encoderPool.Get().(*zstd.Encoder)
	defer zc.encoderPool.Put(enc)

	return enc.EncodeAll(data, nil), nil
}

func (zc *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	dec := zc.decoderPool.Get().(*zstd.Decoder)
	defer zc.decoderPool.Put(dec)

	return dec.DecodeAll(data, nil)
}

// S2 compressor (Snappy-compatible but better compression)
type s2Compressor struct {
	baseCompressor
}

func (sc *s2Compressor) Compress(data []byte) ([]byte, error) {
	switch {
	case sc.level >= 7:
		return s2.EncodeBest(nil, data), nil
	case sc.level >= 4:
		return s2.EncodeBetter(nil, data), nil
	default:
		return s2.Encode(nil, data), nil
	}
}

func (sc *s2Compressor) Decompress(data []byte) ([]byte, error) {
	return s2.Decode(nil, data)
}

var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
	lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	if !level.Valid() {
		return lz4.Fast
	}
	return lz4Levels[level]
}
