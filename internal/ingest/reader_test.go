package ingest

import (
	"errors"
	"strings"
	"testing"
)

func TestReaderFor_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := ReaderFor("/uploads/crypto/archive.zip")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
	if !strings.Contains(err.Error(), ".zip") {
		t.Errorf("error should name the extension, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), ".pdf") {
		t.Errorf("error should list supported extensions, got %q", err.Error())
	}
}

func TestReaderFor_TextExtensionsUnsupported(t *testing.T) {
	t.Parallel()

	// The upload API ingests documents, not loose text files; anything
	// outside the stock document formats is skipped.
	for _, name := range []string{"notes.txt", "README.md", "rates.csv", "dump.json"} {
		if _, err := ReaderFor("/uploads/crypto/" + name); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ReaderFor(%q) err = %v, want ErrUnsupportedFormat", name, err)
		}
	}
}

func TestReaderFor_CaseInsensitive(t *testing.T) {
	t.Parallel()

	if _, err := ReaderFor("/uploads/crypto/Report.PDF"); err != nil {
		t.Errorf("uppercase extension should be supported: %v", err)
	}
}

func TestSupportedExtensions_Stock(t *testing.T) {
	t.Parallel()

	exts := SupportedExtensions()
	want := []string{".docx", ".pdf"}
	if len(exts) != len(want) {
		t.Fatalf("extensions = %v, want %v", exts, want)
	}
	for i, ext := range want {
		if exts[i] != ext {
			t.Errorf("extensions[%d] = %q, want %q", i, exts[i], ext)
		}
	}
}

func TestRegistry_ConfigReadersExtendStock(t *testing.T) {
	t.Parallel()

	in, err := NewIngestor(&fakeEmbedder{}, &Config{
		Readers: map[string]Reader{
			".txt": ReaderFunc(func(string) (string, error) { return "x", nil }),
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := in.readers.For("notes.txt"); err != nil {
		t.Errorf("registered extension should resolve: %v", err)
	}
	if _, err := in.readers.For("report.pdf"); err != nil {
		t.Errorf("stock extension should survive registration: %v", err)
	}

	// The per-Ingestor registration must not leak into the stock registry.
	if _, err := ReaderFor("notes.txt"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("stock registry gained .txt: %v", err)
	}
}
