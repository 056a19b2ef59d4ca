package ingest

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the maximum number of characters per document chunk.
	DefaultChunkSize = 2000
	// DefaultChunkOverlap is the number of characters shared between
	// consecutive chunks so sentence fragments at a boundary stay retrievable.
	DefaultChunkOverlap = 200
)

// Chunk splits text into overlapping chunks of at most size bytes.
// Whitespace is trimmed first; empty input yields nil. Chunk boundaries are
// snapped back to rune starts so a multi-byte character is never split
// across two chunks.
func Chunk(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 10
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			end = len(text)
		} else {
			end = snapToRuneStart(text, end, start)
			if end == start {
				// The chunk size is smaller than the rune at start;
				// take the whole rune rather than emit invalid UTF-8.
				_, n := utf8.DecodeRuneInString(text[start:])
				end = start + n
			}
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
		next := snapToRuneStart(text, end-overlap, 0)
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// snapToRuneStart walks offset backwards (no further than floor) until it
// lands on the first byte of a rune.
func snapToRuneStart(text string, offset, floor int) int {
	for offset > floor && !utf8.RuneStart(text[offset]) {
		offset--
	}
	return offset
}

// ChunkID generates a deterministic ID for a document chunk from its source
// URI and chunk index. Re-ingesting the same source therefore overwrites the
// existing points instead of duplicating them.
func ChunkID(source string, index int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", source, index)))
	return fmt.Sprintf("%x", h[:16])
}
