package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxLinks is the number of same-host links followed from each
	// crawled page.
	DefaultMaxLinks = 2
	// DefaultMaxDepth is how many levels below the start page the crawl
	// descends. Depth 1 means the start page plus one hop.
	DefaultMaxDepth = 1
)

// Page is one crawled web page with its extracted text.
type Page struct {
	// URL is the page address after redirects were followed.
	URL string
	// Title is the contents of the <title> element, if any.
	Title string
	// Text is the visible text of the page body, whitespace-collapsed.
	Text string
}

// WebsiteConfig holds the settings for constructing a WebsiteReader.
type WebsiteConfig struct {
	// MaxLinks caps the same-host links followed per page (default: 2).
	MaxLinks int
	// MaxDepth caps crawl depth below the start page (default: 1).
	MaxDepth int
	// HTTPTimeout is the timeout for each page fetch (default: 30s).
	HTTPTimeout time.Duration
	// UserAgent is the HTTP User-Agent header sent with fetch requests.
	UserAgent string
}

// WebsiteReader performs a small bounded crawl of a website and extracts the
// visible text of each page. The bounds are deliberately tight: the point is
// to ingest a page and its immediate context, not to mirror a site.
type WebsiteReader struct {
	maxLinks  int
	maxDepth  int
	userAgent string
	client    *http.Client
}

// NewWebsiteReader constructs a WebsiteReader from the given config.
func NewWebsiteReader(cfg *WebsiteConfig) *WebsiteReader {
	if cfg == nil {
		cfg = &WebsiteConfig{}
	}
	maxLinks := cfg.MaxLinks
	if maxLinks <= 0 {
		maxLinks = DefaultMaxLinks
	}
	maxDepth := cfg.MaxDepth
	if maxDepth < 0 {
		maxDepth = DefaultMaxDepth
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "kbrag/1.0 (knowledge base ingestion)"
	}
	return &WebsiteReader{
		maxLinks:  maxLinks,
		maxDepth:  maxDepth,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// Crawl fetches startURL and up to maxLinks same-host links per page down to
// maxDepth levels. The start page must be fetchable; failures on deeper pages
// are skipped so one dead link does not abort the ingest. Pages are returned
// in discovery order, start page first.
func (w *WebsiteReader) Crawl(ctx context.Context, startURL string) ([]Page, error) {
	base, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("ingest: invalid url %q: %w", startURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("ingest: unsupported scheme %q in %q", base.Scheme, startURL)
	}

	start, links, err := w.fetchPage(ctx, startURL)
	if err != nil {
		return nil, err
	}

	pages := []Page{start}
	visited := map[string]bool{startURL: true}
	frontier := filterLinks(links, base, visited, w.maxLinks)

	for depth := 1; depth <= w.maxDepth && len(frontier) > 0; depth++ {
		var mu sync.Mutex
		results := make([]*Page, len(frontier))
		next := make([][]string, len(frontier))

		g, gctx := errgroup.WithContext(ctx)
		for i, link := range frontier {
			g.Go(func() error {
				page, pageLinks, err := w.fetchPage(gctx, link)
				if err != nil {
					// Linked pages are best-effort; skip failures.
					return nil
				}
				mu.Lock()
				results[i] = &page
				next[i] = pageLinks
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var nextFrontier []string
		for i, p := range results {
			if p == nil {
				continue
			}
			pages = append(pages, *p)
			nextFrontier = append(nextFrontier, filterLinks(next[i], base, visited, w.maxLinks)...)
		}
		frontier = nextFrontier
	}

	return pages, nil
}

// fetchPage retrieves one page, extracts its visible text, and returns the
// raw candidate links found on it.
func (w *WebsiteReader) fetchPage(ctx context.Context, pageURL string) (Page, []string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Page{}, nil, fmt.Errorf("ingest: create request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", w.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := w.client.Do(req)
	if err != nil {
		return Page{}, nil, fmt.Errorf("ingest: fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, nil, fmt.Errorf("ingest: unexpected status %d for %s", resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Page{}, nil, fmt.Errorf("ingest: parse %s: %w", pageURL, err)
	}

	doc.Find("script, style, noscript").Remove()

	page := Page{
		URL:   pageURL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Text:  collapseWhitespace(doc.Find("body").Text()),
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		links = append(links, href)
	})

	return page, links, nil
}

// filterLinks resolves raw hrefs against base, keeps unvisited same-host
// http(s) links, and caps the result at limit. Visited entries are recorded
// as a side effect so later pages cannot re-queue them.
func filterLinks(raw []string, base *url.URL, visited map[string]bool, limit int) []string {
	var out []string
	for _, href := range raw {
		if len(out) >= limit {
			break
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		resolved := base.ResolveReference(ref)
		resolved.Fragment = ""
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			continue
		}
		if resolved.Hostname() != base.Hostname() {
			continue
		}
		key := resolved.String()
		if visited[key] {
			continue
		}
		visited[key] = true
		out = append(out, key)
	}
	return out
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// collapseWhitespace squeezes runs of whitespace into single spaces.
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
