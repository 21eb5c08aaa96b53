package assistant

import (
	"context"
	"errors"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"

	"github.com/indeksai/indeksai/internal/analysis/trend"
	"github.com/indeksai/indeksai/internal/config"
	"github.com/indeksai/indeksai/internal/conversation"
	"github.com/indeksai/indeksai/internal/intent"
	"github.com/indeksai/indeksai/internal/market"
	"github.com/indeksai/indeksai/pkg/models"
)

// HeadlineSource supplies optional news for latest-quote answers.
type HeadlineSource interface {
	Headlines(ctx context.Context, limit int) ([]models.NewsArticle, error)
}

// Reply is the outcome of one conversational turn.
type Reply struct {
	Response
	Intent intent.Decision `json:"intent"`
}

// Assistant runs a turn end to end: classify, fetch, compose, record.
type Assistant struct {
	composer     *Composer
	market       market.Client
	news         HeadlineSource
	maxHeadlines int
	symbol       string
	lookback     int
	fetchTimeout time.Duration
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithNews enriches latest-quote answers with up to limit headlines.
func WithNews(src HeadlineSource, limit int) Option {
	return func(a *Assistant) {
		a.news = src
		a.maxHeadlines = limit
	}
}

// WithSymbol sets the index ticker.
func WithSymbol(symbol string) Option {
	return func(a *Assistant) { a.symbol = symbol }
}

// WithLookback sets the number of bars in a weekly answer.
func WithLookback(n int) Option {
	return func(a *Assistant) { a.lookback = n }
}

// WithFetchTimeout bounds each market data fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(a *Assistant) { a.fetchTimeout = d }
}

// New creates an assistant.
func New(composer *Composer, client market.Client, opts ...Option) *Assistant {
	a := &Assistant{
		composer:     composer,
		market:       client,
		symbol:       market.DefaultSymbol,
		lookback:     market.DefaultLookback,
		fetchTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewFromConfig wires an assistant from the market and news sections.
// news may be nil; it is only used when cfg.News.Enabled is set.
func NewFromConfig(cfg *config.Config, composer *Composer, client market.Client, news HeadlineSource) *Assistant {
	opts := []Option{
		WithSymbol(cfg.Market.Symbol),
		WithLookback(cfg.Market.WeeklyBars),
		WithFetchTimeout(cfg.Market.FetchTimeout),
	}
	if cfg.News.Enabled && news != nil {
		opts = append(opts, WithNews(news, cfg.News.MaxHeadlines))
	}
	return New(composer, client, opts...)
}

// Composer returns the underlying composer.
func (a *Assistant) Composer() *Composer { return a.composer }

// Symbol returns the index ticker.
func (a *Assistant) Symbol() string { return a.symbol }

// Respond handles one user turn. The history window is read before the
// user message is appended, and exactly one assistant turn is appended
// after composition.
func (a *Assistant) Respond(ctx context.Context, store *conversation.Store, utterance string) Reply {
	start := time.Now()
	decision := intent.Explain(utterance)
	log.Debug().Str("intent", decision.Intent.String()).Str("rule", decision.Rule).
		Str("marker", decision.Marker).Msg("utterance classified")

	history := store.Turns()
	store.AppendUser(utterance)

	var resp Response
	switch {
	case !decision.Intent.NeedsMarketData():
		resp = a.composer.Educational(ctx, history, utterance)
	case decision.Intent == intent.WeeklySeries:
		resp = a.Weekly(ctx)
	default:
		resp = a.Latest(ctx)
	}

	store.AppendAssistant(resp.Text)
	log.Info().Str("intent", decision.Intent.String()).Str("mode", string(resp.Mode)).
		Str("provider", resp.Provider).Dur("elapsed", time.Since(start)).Msg("turn complete")
	return Reply{Response: resp, Intent: decision}
}

// Latest fetches and narrates the latest quote without touching any conversation.
func (a *Assistant) Latest(ctx context.Context) Response {
	q, headlines, err := a.FetchLatest(ctx)
	if err != nil {
		log.Warn().Err(err).Str("symbol", a.symbol).Msg("latest quote unavailable")
		return a.composer.ErrorFallback(ctx, FailureCause(err))
	}
	return a.composer.Latest(ctx, q, headlines)
}

// FailureCause returns the Indonesian cause for a fetch or statistics error.
func FailureCause(err error) string {
	switch {
	case errors.Is(err, trend.ErrInsufficientData):
		return causeInsufficientData
	case errors.Is(err, trend.ErrZeroBaseClose):
		return causeNoData
	}
	return market.Cause(err)
}

// Weekly fetches and narrates the recent series without touching any conversation.
func (a *Assistant) Weekly(ctx context.Context) Response {
	series, st, err := a.FetchWeekly(ctx)
	if err != nil {
		log.Warn().Err(err).Str("symbol", a.symbol).Msg("weekly series unavailable")
		return a.composer.ErrorFallback(ctx, FailureCause(err))
	}
	return a.composer.Weekly(ctx, series, st)
}

// FetchLatest returns the latest quote and, when news is enabled, related
// headlines fetched concurrently. A headline failure is logged and ignored.
func (a *Assistant) FetchLatest(ctx context.Context) (*models.Quote, []models.NewsArticle, error) {
	ctx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
	defer cancel()

	var (
		quote     *models.Quote
		headlines []models.NewsArticle
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := a.market.FetchLatest(gctx, a.symbol)
		if err != nil {
			return err
		}
		quote = q
		return nil
	})
	if a.news != nil && a.maxHeadlines > 0 {
		g.Go(func() error {
			h, err := a.news.Headlines(gctx, a.maxHeadlines)
			if err != nil {
				log.Warn().Err(err).Msg("headlines unavailable")
				return nil
			}
			headlines = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return quote, headlines, nil
}

// FetchWeekly returns the recent series and its statistics.
func (a *Assistant) FetchWeekly(ctx context.Context) (*models.Series, trend.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
	defer cancel()

	series, err := a.market.FetchRecent(ctx, a.symbol, a.lookback)
	if err != nil {
		return nil, trend.Stats{}, err
	}
	st, err := trend.Summarize(series)
	if err != nil {
		return nil, trend.Stats{}, err
	}
	return series, st, nil
}
