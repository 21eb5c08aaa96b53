package assistant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/indeksai/indeksai/internal/llm"
	"github.com/indeksai/indeksai/pkg/models"
)

type stubLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	block bool // wait for the context instead of answering
	calls [][]llm.Message
	opts  []llm.ChatOptions
}

func (s *stubLLM) Name() string                   { return "stub" }
func (s *stubLLM) Models() []string               { return []string{"stub-1"} }
func (s *stubLLM) Ping(ctx context.Context) error { return nil }

func (s *stubLLM) Chat(ctx context.Context, msgs []llm.Message, opts *llm.ChatOptions) (*llm.Response, error) {
	s.mu.Lock()
	s.calls = append(s.calls, msgs)
	if opts != nil {
		s.opts = append(s.opts, *opts)
	}
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Content: s.reply, Provider: "stub", Model: "stub-1"}, nil
}

func (s *stubLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubLLM) lastCall() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return nil
	}
	return s.calls[len(s.calls)-1]
}

type stubMarket struct {
	mu          sync.Mutex
	quote       *models.Quote
	series      *models.Series
	err         error
	block       bool
	latestCalls int
	recentCalls int
	lookback    int
}

func (m *stubMarket) FetchLatest(ctx context.Context, symbol string) (*models.Quote, error) {
	m.mu.Lock()
	m.latestCalls++
	m.mu.Unlock()
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.quote, nil
}

func (m *stubMarket) FetchRecent(ctx context.Context, symbol string, lookback int) (*models.Series, error) {
	m.mu.Lock()
	m.recentCalls++
	m.lookback = lookback
	m.mu.Unlock()
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.series, nil
}

type stubNews struct {
	articles []models.NewsArticle
	err      error
}

func (n *stubNews) Headlines(ctx context.Context, limit int) ([]models.NewsArticle, error) {
	if n.err != nil {
		return nil, n.err
	}
	return n.articles[:min(limit, len(n.articles))], nil
}

// ── Fixtures ──

func testQuote() *models.Quote {
	return &models.Quote{
		Symbol:        "^JKSE",
		Close:         7171.25,
		PrevClose:     7100,
		ChangePoints:  71.25,
		ChangePercent: 71.25 / 7100 * 100,
		TradingDate:   time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
		DayName:       "Jumat",
		DateLabel:     "16 Oktober 2026",
		IsCurrentDay:  true,
	}
}

// testSeries builds the reference week: closes 100..115 with ±2 intraday range.
func testSeries(closes ...float64) *models.Series {
	if len(closes) == 0 {
		closes = []float64{100, 105, 103, 110, 108, 112, 115}
	}
	s := &models.Series{Symbol: "^JKSE"}
	for i, c := range closes {
		d := time.Date(2026, 10, 6+i, 0, 0, 0, 0, time.UTC)
		bar := models.DailyBar{
			Date:      d,
			DateLabel: fmt.Sprintf("%02d Okt 2026", d.Day()),
			DayName:   "Hari",
			Open:      c,
			High:      c + 2,
			Low:       c - 3,
			Close:     c,
			Volume:    1_000_000 * int64(i+1),
		}
		if i > 0 {
			bar.Change = c - closes[i-1]
			bar.ChangePct = bar.Change / closes[i-1] * 100
		}
		s.Bars = append(s.Bars, bar)
	}
	return s
}
