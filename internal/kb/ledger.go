package kb

import (
	"sort"
	"sync"
	"time"
)

// Source records one ingested input (a stored file path or a URL) within a
// knowledge base.
type Source struct {
	// URI is the stored file path or the URL that was ingested.
	URI string
	// Kind is "file" or "url".
	Kind string
	// Chunks is the number of document chunks produced from this source.
	Chunks int
	// IngestedAt is when the ingest completed.
	IngestedAt time.Time
}

// Ledger tracks, per knowledge base, which sources have been ingested.
// It is an in-memory view rebuilt on restart from the upload directory; the
// vector store remains the source of truth for document content.
// All methods are safe for concurrent use.
type Ledger struct {
	mu  sync.RWMutex
	kbs map[string][]Source
}

// NewLedger returns an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{kbs: make(map[string][]Source)}
}

// Record appends a source to the named knowledge base. Re-ingesting the same
// URI appends a new entry; the vector store deduplicates content by chunk ID,
// so the ledger keeps the full ingest history in order.
func (l *Ledger) Record(kbName string, src Source) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.kbs[kbName] = append(l.kbs[kbName], src)
}

// Has reports whether the named knowledge base already ingested uri.
func (l *Ledger) Has(kbName, uri string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, s := range l.kbs[kbName] {
		if s.URI == uri {
			return true
		}
	}
	return false
}

// Sources returns a copy of the sources recorded for the named knowledge base.
func (l *Ledger) Sources(kbName string) []Source {
	l.mu.RLock()
	defer l.mu.RUnlock()

	sources := l.kbs[kbName]
	out := make([]Source, len(sources))
	copy(out, sources)
	return out
}

// KnowledgeBases returns the sorted names of every knowledge base with at
// least one recorded source.
func (l *Ledger) KnowledgeBases() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.kbs))
	for name := range l.kbs {
		if len(l.kbs[name]) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Clear forgets every source recorded for the named knowledge base.
func (l *Ledger) Clear(kbName string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.kbs, kbName)
}
