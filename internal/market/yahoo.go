package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/indeksai/indeksai/internal/config"
	"github.com/indeksai/indeksai/pkg/models"
)

// DefaultUserAgent is sent with every provider request. Yahoo rejects the
// Go default agent on some edges.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Yahoo implements Client using the Yahoo Finance v8 chart API.
type Yahoo struct {
	baseURL     string
	client      *http.Client
	cache       *Cache
	limiter     *rate.Limiter
	group       singleflight.Group
	latestRange string
	recentRange string
	timeout     time.Duration
	now         func() time.Time
}

// YahooOption configures the Yahoo client.
type YahooOption func(*Yahoo)

// WithBaseURL sets the API host, e.g. "https://query1.finance.yahoo.com".
func WithBaseURL(u string) YahooOption {
	return func(y *Yahoo) { y.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) YahooOption {
	return func(y *Yahoo) { y.client = c }
}

// WithCache shares a cache between clients.
func WithCache(c *Cache) YahooOption {
	return func(y *Yahoo) { y.cache = c }
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(perSecond float64) YahooOption {
	return func(y *Yahoo) {
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		y.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithRanges sets the chart ranges used for the latest quote and the recent series.
func WithRanges(latest, recent string) YahooOption {
	return func(y *Yahoo) {
		if latest != "" {
			y.latestRange = latest
		}
		if recent != "" {
			y.recentRange = recent
		}
	}
}

// WithFetchTimeout bounds a single upstream chart fetch. The fetch is
// shared by every waiting caller, so it does not follow any one caller's
// context.
func WithFetchTimeout(d time.Duration) YahooOption {
	return func(y *Yahoo) {
		if d > 0 {
			y.timeout = d
		}
	}
}

// WithClock overrides time.Now, for staleness computations in tests.
func WithClock(now func() time.Time) YahooOption {
	return func(y *Yahoo) { y.now = now }
}

// NewYahoo creates a Yahoo Finance client.
func NewYahoo(opts ...YahooOption) *Yahoo {
	y := &Yahoo{
		baseURL:     "https://query1.finance.yahoo.com",
		client:      &http.Client{Timeout: 30 * time.Second},
		cache:       NewCache(5 * time.Minute),
		limiter:     rate.NewLimiter(5, 5), // 5 req/s
		latestRange: "5d",
		recentRange: "1mo",
		timeout:     30 * time.Second,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// NewYahooFromConfig creates a client from the market section of the config.
// A nil cache gets a private one with the configured TTL.
func NewYahooFromConfig(cfg config.MarketConfig, cache *Cache) *Yahoo {
	if cache == nil {
		cache = NewCache(time.Duration(cfg.CacheTTL) * time.Second)
	}
	return NewYahoo(
		WithBaseURL(cfg.BaseURL),
		WithCache(cache),
		WithRateLimit(cfg.RateLimit),
		WithRanges(cfg.LatestRange, cfg.WeeklyRange),
		WithFetchTimeout(cfg.FetchTimeout),
	)
}

// Name returns the data source name.
func (y *Yahoo) Name() string { return "Yahoo Finance" }

// Cache returns the cache backing this client.
func (y *Yahoo) Cache() *Cache { return y.cache }

// FetchLatest returns the latest close of symbol compared with the previous close.
func (y *Yahoo) FetchLatest(ctx context.Context, symbol string) (*models.Quote, error) {
	candles, err := y.chart(ctx, symbol, y.latestRange)
	if err != nil {
		return nil, &FetchError{Op: "latest", Symbol: symbol, Err: err}
	}
	q, err := NewQuote(symbol, candles, y.now())
	if err != nil {
		return nil, &FetchError{Op: "latest", Symbol: symbol, Err: err}
	}
	return q, nil
}

// FetchRecent returns the last lookback trading bars of symbol.
func (y *Yahoo) FetchRecent(ctx context.Context, symbol string, lookback int) (*models.Series, error) {
	candles, err := y.chart(ctx, symbol, y.recentRange)
	if err != nil {
		return nil, &FetchError{Op: "recent", Symbol: symbol, Err: err}
	}
	s, err := NewSeries(symbol, candles, lookback, y.now())
	if err != nil {
		return nil, &FetchError{Op: "recent", Symbol: symbol, Err: err}
	}
	return s, nil
}

// Refresh drops the cached charts of symbol and fetches them again.
func (y *Yahoo) Refresh(ctx context.Context, symbol string) error {
	for _, rng := range []string{y.latestRange, y.recentRange} {
		y.cache.Invalidate(chartKey(symbol, rng))
		if _, err := y.chart(ctx, symbol, rng); err != nil {
			return &FetchError{Op: "refresh", Symbol: symbol, Err: err}
		}
	}
	return nil
}

// --- Yahoo Finance v8 API types ---

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	ExchangeTimezone   string  `json:"exchangeTimezoneName"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
}

type yfIndicators struct {
	Quote []yfOHLCV `json:"quote"`
}

type yfOHLCV struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// --- Helpers ---

func chartKey(symbol, rng string) string {
	return fmt.Sprintf("chart:%s:%s:1d", symbol, rng)
}

// chart returns daily candles for symbol over rng, serving from the cache
// and collapsing concurrent identical requests into one.
func (y *Yahoo) chart(ctx context.Context, symbol, rng string) ([]models.OHLCV, error) {
	key := chartKey(symbol, rng)
	if cached, ok := y.cache.Get(key); ok {
		log.Debug().Str("key", key).Msg("chart cache hit")
		return cached.([]models.OHLCV), nil
	}

	ch := y.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), y.timeout)
		defer cancel()
		candles, err := y.fetchChart(fctx, symbol, rng)
		if err != nil {
			return nil, err
		}
		y.cache.Set(key, candles)
		return candles, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.Debug().Str("key", key).Msg("chart fetch shared")
		}
		return res.Val.([]models.OHLCV), nil
	}
}

func (y *Yahoo) fetchChart(ctx context.Context, symbol, rng string) ([]models.OHLCV, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d",
		y.baseURL, url.PathEscape(symbol), url.QueryEscape(rng))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := y.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed yfChartResponse
	decodeErr := json.Unmarshal(data, &parsed)

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
		}
		body := string(data)
		if len(body) > 512 {
			body = body[:512]
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: body}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("parse yahoo chart: %w", decodeErr)
	}
	if e := parsed.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
		}
		return nil, errors.New("yahoo chart error: " + e.Description)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	candles := parseYFCandles(parsed.Chart.Result[0])
	log.Debug().Str("symbol", symbol).Str("range", rng).Int("bars", len(candles)).
		Dur("latency", time.Since(start)).Msg("yahoo chart fetched")
	if len(candles) == 0 {
		return nil, ErrNoData
	}
	return candles, nil
}

// parseYFCandles converts the columnar chart payload into candles. Rows
// with a missing or zero close are dropped; Yahoo emits one for the
// session in progress. A missing open, high or low falls back to the close.
func parseYFCandles(result yfChartResult) []models.OHLCV {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}

	q := result.Indicators.Quote[0]
	candles := make([]models.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil || *q.Close[i] == 0 {
			continue
		}
		cl := *q.Close[i]
		c := models.OHLCV{
			Timestamp: time.Unix(ts, 0),
			Open:      valueOr(q.Open, i, cl),
			High:      valueOr(q.High, i, cl),
			Low:       valueOr(q.Low, i, cl),
			Close:     cl,
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			c.Volume = *q.Volume[i]
		}
		candles = append(candles, c)
	}
	return candles
}

func valueOr(col []*float64, i int, fallback float64) float64 {
	if i < len(col) && col[i] != nil && *col[i] != 0 {
		return *col[i]
	}
	return fallback
}
