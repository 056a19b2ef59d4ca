package ingest

import (
	"net/url"
	"path/filepath"
	"strings"
)

// InferredMetadata holds the format and content class inferred from a source
// path or URL. It is attached to every chunk so retrieval results can say
// where their text came from.
type InferredMetadata struct {
	// Kind is the source kind: file or url.
	Kind string
	// Format is the content format (pdf, docx, text, markdown, html, ...).
	Format string
	// ContentClass is a best-effort label for the kind of content
	// (news, docs, blog, paper, generic).
	ContentClass string
}

// extFormats maps file extensions to their canonical format label.
var extFormats = map[string]string{
	".pdf":  "pdf",
	".docx": "docx",
	".doc":  "doc",
	".odt":  "odt",
	".rtf":  "rtf",
	".html": "html",
	".txt":  "text",
	".md":   "markdown",
	".csv":  "csv",
	".json": "json",
}

// newsHosts lists host fragments that identify news outlets commonly ingested
// into the crypto and finance knowledge bases.
var newsHosts = []string{
	"coindesk.com",
	"cointelegraph.com",
	"theblock.co",
	"decrypt.co",
	"reuters.com",
	"bloomberg.com",
	"ft.com",
	"wsj.com",
}

// InferFileMetadata returns best-effort metadata for a local file path.
// Unknown extensions are labelled "unknown" rather than rejected — rejection
// is the reader registry's job.
func InferFileMetadata(path string) InferredMetadata {
	m := InferredMetadata{
		Kind:         "file",
		Format:       "unknown",
		ContentClass: "generic",
	}
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extFormats[ext]; ok {
		m.Format = f
	}
	if m.Format == "pdf" && looksLikePaper(filepath.Base(path)) {
		m.ContentClass = "paper"
	}
	return m
}

// InferURLMetadata returns best-effort metadata for a crawled URL.
func InferURLMetadata(rawURL string) InferredMetadata {
	m := InferredMetadata{
		Kind:         "url",
		Format:       "html",
		ContentClass: "generic",
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return m
	}

	host := strings.ToLower(parsed.Hostname())
	path := strings.ToLower(parsed.Path)

	for _, h := range newsHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			m.ContentClass = "news"
			return m
		}
	}

	switch {
	case strings.Contains(host, "docs.") || strings.Contains(path, "/docs"):
		m.ContentClass = "docs"
	case strings.Contains(path, "/blog"):
		m.ContentClass = "blog"
	case strings.Contains(host, "arxiv.org"):
		m.ContentClass = "paper"
	}

	return m
}

// looksLikePaper matches filenames that resemble research paper exports
// (e.g. "2107.11374v2.pdf" or "whitepaper.pdf").
func looksLikePaper(name string) bool {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "whitepaper") || strings.Contains(lower, "paper") {
		return true
	}
	// arXiv-style numeric identifiers.
	trimmed := strings.TrimSuffix(lower, ".pdf")
	digits := 0
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return len(trimmed) > 0 && digits >= len(trimmed)-2 && digits >= 4
}
