package crawler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	colly "github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"

	"news-archive-rag/internal/logger"
)

var (
	// Global HTTP transport with compression enabled
	httpTransport = &http.Transport{
		DisableCompression: false, // enables gzip decompression
	}
)

// Config holds configuration for a crawl job
type Config struct {
	URL            string
	MaxPages       int
	AllowedDomains []string
	AllowedPaths   []string
	FollowLinks    bool
	Timeout        time.Duration
}

// Page is one harvested article page.
type Page struct {
	URL        string
	Title      string
	Content    string
	CrawledAt  time.Time
	StatusCode int
	WordCount  int
}

// Result holds the outcome of a crawl operation
type Result struct {
	URL          string
	Pages        []Page
	Error        error
	PagesFound   int
	PagesCrawled int
}

// normalizeURL normalizes a URL to a canonical form for duplicate detection
func normalizeURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	// Remove fragment
	parsed.Fragment = ""

	// Always remove trailing slash for non-root paths
	path := parsed.Path
	if path == "" {
		path = "/"
	} else if path != "/" {
		path = strings.TrimSuffix(path, "/")
		if path == "" {
			path = "/"
		}
	}
	parsed.Path = path

	// Convert to lowercase scheme and host
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)

	// Remove default ports
	if parsed.Port() == "80" && parsed.Scheme == "http" {
		host, _, _ := strings.Cut(parsed.Host, ":")
		parsed.Host = host
	}
	if parsed.Port() == "443" && parsed.Scheme == "https" {
		host, _, _ := strings.Cut(parsed.Host, ":")
		parsed.Host = host
	}

	return parsed.String(), nil
}

// Crawl harvests article pages starting from cfg.URL, staying within
// the allowed domains and skipping non-content URLs.
func Crawl(cfg Config) (*Result, error) {
	result := &Result{
		URL:   cfg.URL,
		Pages: []Page{},
	}

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" {
		parsedURL.Scheme = "https"
		cfg.URL = parsedURL.String()
	}

	// Normalize the starting URL before everything else
	normalizedStartURL, err := normalizeURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL format: %w", err)
	}

	// Determine allowed domains
	allowedDomains := cfg.AllowedDomains
	if len(allowedDomains) == 0 {
		hostname := parsedURL.Hostname()
		if hostname != "" {
			hostnameClean := strings.TrimPrefix(strings.ToLower(hostname), "www.")
			allowedDomains = []string{hostnameClean, "www." + hostnameClean, hostname}
		}
	}

	// Each crawl gets its own collector with fresh state
	options := []colly.CollectorOption{
		colly.Async(true),
		colly.MaxDepth(2),
	}
	if len(allowedDomains) > 0 {
		options = append(options, colly.AllowedDomains(allowedDomains...))
	}

	c := colly.NewCollector(options...)
	c.WithTransport(httpTransport)

	if cfg.Timeout > 0 {
		c.SetRequestTimeout(cfg.Timeout)
	} else {
		c.SetRequestTimeout(60 * time.Second)
	}

	c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	// Configure rate limiting
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       2 * time.Second,
		RandomDelay: 1 * time.Second,
	})

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 50
	}

	var (
		pagesMu sync.Mutex
		pages   []Page
	)

	// URLs already turned into pages, and URLs queued for visiting
	processed := sync.Map{}
	queued := sync.Map{}

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Accept-Encoding", "gzip, deflate, br")
		r.Headers.Set("Connection", "keep-alive")
		r.Headers.Set("Upgrade-Insecure-Requests", "1")
	})

	// On response - handle encoding and track successful responses
	c.OnResponse(func(r *colly.Response) {
		// Skip binary files (PDFs, images, etc.)
		contentType := r.Headers.Get("Content-Type")
		if contentType != "" && !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml+xml") {
			return
		}

		// Go's HTTP transport decompresses gzip automatically but not
		// brotli, so handle "br" manually.
		contentEncoding := r.Headers.Get("Content-Encoding")
		var bodyReader io.Reader = bytes.NewReader(r.Body)
		if strings.Contains(contentEncoding, "br") {
			brReader := brotli.NewReader(bodyReader)
			decompressed, err := io.ReadAll(brReader)
			if err == nil {
				r.Body = decompressed
				bodyReader = bytes.NewReader(decompressed)
			}
		}

		// Decode the response body to UTF-8 by detected charset
		if len(r.Body) > 0 {
			utf8Reader, err := charset.NewReader(bodyReader, contentType)
			if err == nil {
				decodedBody, readErr := io.ReadAll(utf8Reader)
				if readErr == nil && len(decodedBody) > 0 {
					r.Body = decodedBody
				}
			}
			// If charset detection fails, proceed with original body
		}

		result.PagesFound++
	})

	// On HTML - extract content
	c.OnHTML("html", func(e *colly.HTMLElement) {
		pagesMu.Lock()
		defer pagesMu.Unlock()

		if len(pages) >= maxPages {
			return
		}

		rawURL := e.Request.URL.String()
		normalizedURL, err := normalizeURL(rawURL)
		if err != nil {
			return
		}
		if _, exists := processed.LoadOrStore(normalizedURL, true); exists {
			return
		}

		doc := e.DOM
		title := strings.TrimSpace(doc.Find("title").Text())
		content := ExtractArticleText(e.DOM)
		if len(content) < 50 {
			content = doc.Find("body").Text()
		}

		wordCount := len(strings.Fields(content))
		if wordCount < 10 {
			// Skip pages with too little content
			return
		}

		pages = append(pages, Page{
			URL:        normalizedURL,
			Title:      title,
			Content:    content,
			CrawledAt:  time.Now(),
			StatusCode: e.Response.StatusCode,
			WordCount:  wordCount,
		})

		// Follow links if enabled
		if cfg.FollowLinks && len(pages) < maxPages {
			linkCount := 0
			e.ForEach("a[href]", func(_ int, el *colly.HTMLElement) {
				if len(pages) >= maxPages || linkCount >= 20 {
					return
				}

				href := el.Attr("href")
				hrefLower := strings.ToLower(href)
				if href == "" ||
					strings.HasPrefix(href, "#") ||
					strings.HasPrefix(hrefLower, "javascript:") ||
					strings.HasPrefix(hrefLower, "mailto:") ||
					strings.HasPrefix(hrefLower, "tel:") {
					return
				}

				absoluteURL := e.Request.AbsoluteURL(href)
				if absoluteURL == "" {
					return
				}
				normalized, err := normalizeURL(absoluteURL)
				if err != nil {
					return
				}

				if _, queuedExists := queued.LoadOrStore(normalized, true); queuedExists {
					return
				}
				if _, processedExists := processed.Load(normalized); processedExists {
					return
				}

				if isURLAllowed(normalized, cfg, allowedDomains) {
					linkCount++
					c.Visit(normalized)
				}
			})
		}
	})

	// On error - handle gracefully
	c.OnError(func(r *colly.Response, err error) {
		errMsg := err.Error()
		normalizedErrURL, _ := normalizeURL(r.Request.URL.String())
		statusCode := r.StatusCode

		if statusCode == 403 {
			logger.Warn("crawl blocked", "url", r.Request.URL.String(), "status", statusCode)
			if normalizedErrURL == normalizedStartURL {
				result.Error = fmt.Errorf("access forbidden (403): the website blocked the crawler")
			}
			return
		}
		if statusCode == 429 {
			logger.Warn("crawl rate limited", "url", r.Request.URL.String())
			if normalizedErrURL == normalizedStartURL {
				result.Error = fmt.Errorf("rate limited (429): too many requests")
			}
			return
		}
		if statusCode >= 500 {
			logger.Warn("crawl server error", "url", r.Request.URL.String(), "status", statusCode)
			if normalizedErrURL == normalizedStartURL {
				result.Error = fmt.Errorf("server error (%d)", statusCode)
			}
			return
		}

		// colly's internal duplicate detection; expected when following links
		if strings.Contains(errMsg, "already visited") {
			return
		}

		if normalizedErrURL == normalizedStartURL {
			pagesMu.Lock()
			hasPages := len(pages) > 0
			pagesMu.Unlock()
			if !hasPages && result.Error == nil {
				result.Error = fmt.Errorf("failed to crawl initial URL %s: %w", normalizedStartURL, err)
			}
		}
	})

	// Mark starting URL as queued before visiting
	queued.Store(normalizedStartURL, true)

	logger.Info("starting crawl", "url", normalizedStartURL, "max_pages", maxPages)
	if err := c.Visit(normalizedStartURL); err != nil && !strings.Contains(err.Error(), "already visited") {
		return nil, fmt.Errorf("failed to start crawl: %w", err)
	}

	// Wait for async crawl to complete
	c.Wait()

	pagesMu.Lock()
	result.Pages = pages
	result.PagesCrawled = len(pages)
	pagesMu.Unlock()

	if result.PagesCrawled == 0 {
		if result.Error != nil {
			return nil, result.Error
		}
		return nil, fmt.Errorf("initial URL %s was not processed", normalizedStartURL)
	}

	// Partial errors are fine once pages came back
	result.Error = nil
	return result, nil
}

// isURLAllowed checks if a URL is allowed based on configuration
func isURLAllowed(urlStr string, cfg Config, allowedDomains []string) bool {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	// Only allow http/https
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	// Check domain
	if len(allowedDomains) > 0 {
		hostname := strings.ToLower(parsed.Hostname())
		domainAllowed := false
		for _, allowedDomain := range allowedDomains {
			allowedDomain = strings.ToLower(strings.TrimPrefix(allowedDomain, "www."))
			hostnameClean := strings.TrimPrefix(hostname, "www.")
			if hostnameClean == allowedDomain || strings.HasSuffix(hostnameClean, "."+allowedDomain) {
				domainAllowed = true
				break
			}
		}
		if !domainAllowed {
			return false
		}
	}

	// Check path patterns
	if len(cfg.AllowedPaths) > 0 {
		pathAllowed := false
		for _, allowedPath := range cfg.AllowedPaths {
			if strings.HasPrefix(parsed.Path, allowedPath) {
				pathAllowed = true
				break
			}
		}
		if !pathAllowed {
			return false
		}
	}

	// Filter out common non-content URLs
	excludedPatterns := []string{
		"/wp-json/",
		"/api/",
		"/ajax/",
		".pdf",
		".jpg",
		".jpeg",
		".png",
		".gif",
		".svg",
		".css",
		".js",
		".xml",
		"/feed/",
		"/rss/",
		"/atom/",
		"/search?",
		"/?s=",
		"/wp-admin/",
		"/wp-includes/",
	}

	pathLower := strings.ToLower(parsed.Path)
	queryLower := strings.ToLower(parsed.RawQuery)
	for _, pattern := range excludedPatterns {
		if strings.Contains(pathLower, pattern) || strings.Contains(queryLower, pattern) {
			return false
		}
	}

	return true
}
