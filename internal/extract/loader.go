package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/PuerkitoBio/goquery"
)

// DefaultUserAgent is sent by HTTPLoader when none is configured.
const DefaultUserAgent = "Mozilla/5.0 (compatible; postclip/1.0)"

// Loader produces a parsed page for a URL.
type Loader interface {
	Load(ctx context.Context, rawURL string) (*goquery.Document, error)
}

// HTTPLoader fetches pages over HTTP.
type HTTPLoader struct {
	client    *http.Client
	userAgent string
}

// NewHTTPLoader creates an HTTPLoader. A nil client uses a zero http.Client.
func NewHTTPLoader(client *http.Client, userAgent string) *HTTPLoader {
	if client == nil {
		client = &http.Client{}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPLoader{client: client, userAgent: userAgent}
}

// Load fetches rawURL and parses the response as HTML.
func (l *HTTPLoader) Load(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch HTML, status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// FileLoader parses a saved HTML file regardless of the URL it is asked for.
type FileLoader struct {
	Path string

	// Open defaults to os.Open.
	Open func(path string) (io.ReadCloser, error)
}

// Load reads and parses the file at l.Path.
func (l FileLoader) Load(_ context.Context, _ string) (*goquery.Document, error) {
	open := l.Open
	if open == nil {
		open = func(path string) (io.ReadCloser, error) { return os.Open(path) }
	}
	f, err := open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open HTML file: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}
