package compression

import (
	"bytes"
	"testing"
)

func TestCompressorsRoundTrip(t *testing.T) {
	original := bytes.Repeat([]byte(`{"trees":[{"feature":3,"threshold":0.25}],"classes":[0,1]}`), 50)

	algorithms := []Algorithm{None, Gzip, Zstd, LZ4, S2}
	for _, algorithm := range algorithms {
		for level := MinLevel; level <= MaxLevel; level++ {
			t.Run(string(algorithm)+"/"+level.String(), func(t *testing.T) {
				comp, err := NewCompressor(algorithm, level)
				if err != nil {
					t.Fatalf("Failed to create compressor: %v", err)
				}

				compressed, err := comp.Compress(original)
				if err != nil {
					t.Fatalf("Failed to compress: %v", err)
				}

				decompressed, err := comp.Decompress(compressed)
				if err != nil {
					t.Fatalf("Failed to decompress: %v", err)
				}

				if !bytes.Equal(original, decompressed) {
					t.Errorf("Decompressed data doesn't match original")
				}

				if algorithm != None && len(compressed) >= len(original) {
					t.Errorf("Compressed size (%d) is not smaller than original (%d)",
						len(compressed), len(original))
				}
			})
		}
	}
}

func TestLevelRange(t *testing.T) {
	for _, level := range []Level{0, 10, -1} {
		if _, err := NewCompressor(Gzip, level); err == nil {
			t.Errorf("expected error for level %d", level)
		}
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	if _, err := NewCompressor("brotli", DefaultLevel); err == nil {
		t.Fatal("expected error for unsupported algorithm")
	}
}

func TestCodecIDs(t *testing.T) {
	for _, algorithm := range []Algorithm{None, Gzip, Zstd, LZ4, S2} {
		id, err := algorithm.ID()
		if err != nil {
			t.Fatalf("ID(%s): %v", algorithm, err)
		}
		back, err := AlgorithmFromID(id)
		if err != nil {
			t.Fatalf("AlgorithmFromID(%d): %v", id, err)
		}
		if back != algorithm {
			t.Errorf("codec id %d maps to %s, want %s", id, back, algorithm)
		}
	}

	if _, err := AlgorithmFromID(42); err == nil {
		t.Error("expected error for unknown codec id")
	}
}

func TestForSharesInstances(t *testing.T) {
	a, err := For(Zstd, 5)
	if err != nil {
		t.Fatal(err)
	}
	b, err := For(Zstd, 5)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("For returned different instances for the same key")
	}

	// Decoding with a codec picked by ID ignores the writer's level
	data := []byte("snapshot body snapshot body snapshot body")
	compressed, _ := a.Compress(data)
	id, _ := Zstd.ID()
	reader, err := ForID(id, 0)
	if err != nil {
		t.Fatal(err)
	}
	out, err := reader.Decompress(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, out) {
		t.Error("ForID decoder produced different bytes")
	}
}
