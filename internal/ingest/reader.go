// Package ingest implements the knowledge-base ingestion pipeline.
// It extracts text from uploaded files or crawled web pages, chunks the
// content, embeds each chunk, and upserts the results into the vector store.
// This pipeline is invoked by the HTTP upload/load handlers and the
// `kbrag ingest` CLI command.
package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"code.sajari.com/docconv"
)

// Reader extracts plain text from a local file.
type Reader interface {
	// Read returns the text content of the file at path.
	Read(path string) (string, error)
}

// ReaderFunc adapts a plain function to the Reader interface.
type ReaderFunc func(path string) (string, error)

// Read calls f.
func (f ReaderFunc) Read(path string) (string, error) { return f(path) }

// readerRegistry maps a lowercase file extension (with dot) to its Reader.
type readerRegistry map[string]Reader

// defaultReaders returns the stock registry: the document formats the upload
// API accepts. Anything else is skipped with ErrUnsupportedFormat; additional
// formats are registered per Ingestor through Config.Readers.
func defaultReaders() readerRegistry {
	return readerRegistry{
		".pdf":  ReaderFunc(convertWithDocconv),
		".docx": ReaderFunc(convertWithDocconv),
	}
}

// ErrUnsupportedFormat is returned when no Reader is registered for a file's
// extension. Callers skip the file and keep going rather than failing the
// whole request.
var ErrUnsupportedFormat = errors.New("ingest: unsupported file format")

// For returns the Reader registered for the file's extension, or an error
// wrapping ErrUnsupportedFormat naming the registered extensions.
func (r readerRegistry) For(path string) (Reader, error) {
	ext := strings.ToLower(filepath.Ext(path))
	reader, ok := r[ext]
	if !ok {
		return nil, fmt.Errorf("%w %q, supported: %s", ErrUnsupportedFormat, ext, strings.Join(r.Extensions(), ", "))
	}
	return reader, nil
}

// Extensions returns the sorted list of registered file extensions.
func (r readerRegistry) Extensions() []string {
	exts := make([]string, 0, len(r))
	for ext := range r {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ReaderFor returns the Reader the stock registry holds for the file's
// extension.
func ReaderFor(path string) (Reader, error) {
	return defaultReaders().For(path)
}

// SupportedExtensions returns the sorted list of stock ingestible file
// extensions.
func SupportedExtensions() []string {
	return defaultReaders().Extensions()
}

// convertWithDocconv extracts text from binary document formats.
func convertWithDocconv(path string) (string, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", fmt.Errorf("ingest: convert %s: %w", path, err)
	}
	return res.Body, nil
}
