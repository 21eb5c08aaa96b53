package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/indeksai/indeksai/internal/config"
	"github.com/indeksai/indeksai/pkg/models"
)

// NewsSource is one RSS feed of Indonesian market news.
type NewsSource struct {
	Name string
	URL  string
}

// DefaultKeywords select headlines about the stock market.
var DefaultKeywords = []string{"ihsg", "idx", "bursa", "saham", "indeks"}

// News reads market headlines from RSS feeds.
type News struct {
	sources   []NewsSource
	keywords  []string
	cache     *Cache
	limiter   *rate.Limiter
	parser    *gofeed.Parser
	converter *md.Converter
}

// NewNews creates a headline reader over sources. Empty keywords keep
// every item.
func NewNews(sources []NewsSource, keywords []string, cache *Cache) *News {
	if cache == nil {
		cache = NewCache(10 * time.Minute)
	}
	parser := gofeed.NewParser()
	parser.UserAgent = DefaultUserAgent
	parser.Client = &http.Client{Timeout: 15 * time.Second}

	kw := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kw = append(kw, k)
		}
	}

	return &News{
		sources:   sources,
		keywords:  kw,
		cache:     cache,
		limiter:   rate.NewLimiter(2, 2), // conservative: 2 req/s
		parser:    parser,
		converter: md.NewConverter("", true, nil),
	}
}

// NewNewsFromConfig creates a headline reader from the news config section.
func NewNewsFromConfig(cfg config.NewsConfig, cache *Cache) *News {
	sources := make([]NewsSource, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		sources = append(sources, NewsSource{Name: f.Name, URL: f.URL})
	}
	keywords := cfg.Keywords
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	return NewNews(sources, keywords, cache)
}

// Name returns the data source name.
func (n *News) Name() string { return "Berita Pasar" }

// Headlines returns up to limit recent market headlines, newest first.
// Failing feeds are skipped; an error is returned only when every feed fails.
func (n *News) Headlines(ctx context.Context, limit int) ([]models.NewsArticle, error) {
	cacheKey := fmt.Sprintf("news:headlines:%d", limit)
	if cached, ok := n.cache.Get(cacheKey); ok {
		return cached.([]models.NewsArticle), nil
	}
	if len(n.sources) == 0 {
		return nil, &FetchError{Op: "news", Symbol: "-", Err: ErrNoData}
	}

	var (
		mu       sync.Mutex
		all      []models.NewsArticle
		failures []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, src := range n.sources {
		g.Go(func() error {
			articles, err := n.fetchRSS(gctx, src)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Non-critical: skip failed sources.
				log.Warn().Err(err).Str("feed", src.Name).Msg("news feed failed")
				failures = append(failures, err)
				return nil
			}
			all = append(all, articles...)
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) == len(n.sources) {
		return nil, &FetchError{Op: "news", Symbol: "-", Err: errors.Join(failures...)}
	}

	all = n.filter(all)
	sortArticlesByDate(all)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	n.cache.Set(cacheKey, all)
	return all, nil
}

// --- Internal helpers ---

// fetchRSS parses an RSS feed and returns articles.
func (n *News) fetchRSS(ctx context.Context, src NewsSource) ([]models.NewsArticle, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feed, err := n.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", src.Name, err)
	}

	articles := make([]models.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := cleanHTML(item.Title)
		if title == "" {
			continue
		}
		a := models.NewsArticle{
			Title:   title,
			URL:     item.Link,
			Source:  src.Name,
			Summary: n.toMarkdown(item.Description),
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		}
		articles = append(articles, a)
	}
	return articles, nil
}

func (n *News) filter(articles []models.NewsArticle) []models.NewsArticle {
	if len(n.keywords) == 0 {
		return articles
	}
	out := articles[:0]
	for _, a := range articles {
		if matchesAny(a.Title+" "+a.Summary, n.keywords) {
			out = append(out, a)
		}
	}
	return out
}

// toMarkdown converts an HTML feed summary to markdown, falling back to
// plain text when conversion fails.
func (n *News) toMarkdown(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	out, err := n.converter.ConvertString(s)
	if err != nil {
		return cleanHTML(s)
	}
	return strings.TrimSpace(out)
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// matchesAny checks if text contains any of the keywords (case-insensitive).
func matchesAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// sortArticlesByDate sorts articles by published date (newest first).
func sortArticlesByDate(articles []models.NewsArticle) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
}
