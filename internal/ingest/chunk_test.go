package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunk_Short(t *testing.T) {
	t.Parallel()

	chunks := Chunk("hello world", 2000, 100)
	if len(chunks) != 1 {
		t.Fatalf("want 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "hello world" {
		t.Errorf("chunk = %q", chunks[0])
	}
}

func TestChunk_Empty(t *testing.T) {
	t.Parallel()

	if chunks := Chunk("   \n\t ", 2000, 100); chunks != nil {
		t.Errorf("whitespace-only input should yield nil, got %v", chunks)
	}
}

func TestChunk_OverlapAndCoverage(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", 250)
	chunks := Chunk(text, 100, 20)

	// Steps of 80: starts at 0, 80, 160; the last chunk runs to the end.
	if len(chunks) != 3 {
		t.Fatalf("want 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks[:2] {
		if len(c) != 100 {
			t.Errorf("chunk[%d] len = %d, want 100", i, len(c))
		}
	}
	if len(chunks[2]) != 90 {
		t.Errorf("final chunk len = %d, want 90", len(chunks[2]))
	}

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	// Coverage plus overlap: 2 boundaries × 20 chars.
	if total != len(text)+2*20 {
		t.Errorf("total chunk chars = %d, want %d", total, len(text)+2*20)
	}
}

func TestChunk_OverlapClamped(t *testing.T) {
	t.Parallel()

	// Overlap >= size would never advance; it must be clamped.
	chunks := Chunk(strings.Repeat("b", 500), 100, 100)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	if len(chunks) > 10 {
		t.Errorf("overlap clamp failed, got %d chunks", len(chunks))
	}
}

func TestChunk_NeverSplitsRunes(t *testing.T) {
	t.Parallel()

	// 3-byte runes with a size that does not divide evenly; a byte-offset
	// split would cut a rune at every boundary.
	text := strings.Repeat("₿", 100)
	chunks := Chunk(text, 100, 20)
	if len(chunks) < 2 {
		t.Fatalf("want multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk[%d] contains invalid UTF-8: %q", i, c)
		}
		if len(c) > 100 {
			t.Errorf("chunk[%d] len = %d, want <= 100", i, len(c))
		}
	}
}

func TestChunk_SizeSmallerThanRune(t *testing.T) {
	t.Parallel()

	// A size below the rune width must still emit whole runes.
	chunks := Chunk("日本語", 2, 0)
	if len(chunks) != 3 {
		t.Fatalf("want 3 chunks, got %d: %q", len(chunks), chunks)
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) || utf8.RuneCountInString(c) != 1 {
			t.Errorf("chunk[%d] = %q, want one whole rune", i, c)
		}
	}
}

func TestChunkID_Deterministic(t *testing.T) {
	t.Parallel()

	a := ChunkID("https://example.com/doc", 0)
	b := ChunkID("https://example.com/doc", 0)
	if a != b {
		t.Errorf("same source+index must produce same ID: %q vs %q", a, b)
	}

	if ChunkID("https://example.com/doc", 1) == a {
		t.Error("different index must produce different ID")
	}
	if ChunkID("https://example.com/other", 0) == a {
		t.Error("different source must produce different ID")
	}
	if len(a) != 32 {
		t.Errorf("ID length = %d, want 32 hex chars", len(a))
	}
}
