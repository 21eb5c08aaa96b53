package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/indeksai/indeksai/internal/assistant"
	"github.com/indeksai/indeksai/internal/config"
	"github.com/indeksai/indeksai/internal/llm"
	"github.com/indeksai/indeksai/internal/market"
	"github.com/indeksai/indeksai/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

type stubLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (s *stubLLM) Name() string                   { return "stub" }
func (s *stubLLM) Models() []string               { return nil }
func (s *stubLLM) Ping(ctx context.Context) error { return nil }

func (s *stubLLM) Chat(ctx context.Context, msgs []llm.Message, opts *llm.ChatOptions) (*llm.Response, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Content: s.reply, Provider: "stub"}, nil
}

type stubMarket struct {
	quote  *models.Quote
	series *models.Series
	err    error
}

func (m *stubMarket) FetchLatest(ctx context.Context, symbol string) (*models.Quote, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.quote, nil
}

func (m *stubMarket) FetchRecent(ctx context.Context, symbol string, lookback int) (*models.Series, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.series, nil
}

func testQuote() *models.Quote {
	return &models.Quote{
		Symbol:        "^JKSE",
		Close:         7171.25,
		PrevClose:     7100,
		ChangePoints:  71.25,
		ChangePercent: 1.0035,
		DayName:       "Jumat",
		DateLabel:     "16 Oktober 2026",
		IsCurrentDay:  true,
	}
}

func testSeries() *models.Series {
	closes := []float64{100, 105, 103, 110, 108, 112, 115}
	s := &models.Series{Symbol: "^JKSE"}
	for i, c := range closes {
		bar := models.DailyBar{DateLabel: "0" + string(rune('1'+i)) + " Okt 2026", DayName: "Hari", High: c, Low: c, Close: c}
		if i > 0 {
			bar.Change = c - closes[i-1]
			bar.ChangePct = bar.Change / closes[i-1] * 100
		}
		s.Bars = append(s.Bars, bar)
	}
	return s
}

type stubNews struct {
	articles []models.NewsArticle
}

func (n *stubNews) Headlines(ctx context.Context, limit int) ([]models.NewsArticle, error) {
	return n.articles, nil
}

func bullishNews() *stubNews {
	return &stubNews{articles: []models.NewsArticle{
		{Title: "IHSG menguat ke rekor tertinggi", Source: "Kontan"},
		{Title: "Asing net buy saham perbankan", Source: "Bisnis"},
	}}
}

func testServer(t *testing.T, model llm.LLMProvider, mkt market.Client, opts ...assistant.Option) *Server {
	t.Helper()
	cfg := config.Default()
	a := assistant.New(assistant.NewComposer(model), mkt, opts...)
	return NewServer(cfg, a, WithVersion("test"))
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("failed to decode data: %v", err)
		}
	}
	return env
}

// ════════════════════════════════════════════════════════════════════
// Health / Greeting
// ════════════════════════════════════════════════════════════════════

func TestHealth(t *testing.T) {
	srv := testServer(t, &stubLLM{}, &stubMarket{})
	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := doRequest(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
		var data map[string]interface{}
		env := decodeResponse(t, rec, &data)
		if !env.Success {
			t.Errorf("%s: expected success", path)
		}
		if data["status"] != "ok" || data["version"] != "test" {
			t.Errorf("%s: unexpected data %v", path, data)
		}
		if _, ok := data["market_status"]; !ok {
			t.Errorf("%s: market_status missing", path)
		}
	}
}

func TestGreeting(t *testing.T) {
	srv := testServer(t, &stubLLM{}, &stubMarket{})
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/greeting", "")

	var data map[string]string
	decodeResponse(t, rec, &data)
	if data["greeting"] != assistant.Greeting {
		t.Error("greeting mismatch")
	}
	if data["disclaimer"] != assistant.Disclaimer {
		t.Error("disclaimer mismatch")
	}
	if srv.Sessions().Len() != 0 {
		t.Error("greeting must not create a session")
	}
}

// ════════════════════════════════════════════════════════════════════
// Sessions
// ════════════════════════════════════════════════════════════════════

func TestCreateSession(t *testing.T) {
	srv := testServer(t, &stubLLM{}, &stubMarket{})
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sessions", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201", rec.Code)
	}
	var data map[string]string
	decodeResponse(t, rec, &data)
	if data["session_id"] == "" {
		t.Fatal("session_id is empty")
	}
	if _, ok := srv.Sessions().Get(data["session_id"]); !ok {
		t.Error("session not stored")
	}
}

func TestSessionStatsAndReset(t *testing.T) {
	srv := testServer(t, &stubLLM{reply: "jawaban"}, &stubMarket{})
	sess := srv.Sessions().Create()

	for _, msg := range []string{"Apa itu saham?", "Apa itu obligasi?"} {
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/chat", `{"session_id":"`+sess.ID+`","message":"`+msg+`"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("chat status %d: %s", rec.Code, rec.Body.String())
		}
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/sessions/"+sess.ID+"/stats", "")
	var stats SessionStats
	decodeResponse(t, rec, &stats)
	if stats.TotalQuestions != 2 || stats.Turns != 4 {
		t.Errorf("stats: got %+v, want 2 questions / 4 turns", stats)
	}
	if stats.Label != assistant.QuestionCountLabel {
		t.Errorf("label: got %q", stats.Label)
	}

	rec = doRequest(t, srv, http.MethodDelete, "/api/v1/sessions/"+sess.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status %d", rec.Code)
	}
	decodeResponse(t, rec, &stats)
	if stats.Turns != 0 || sess.Store.Len() != 0 {
		t.Errorf("session should be cleared, got %+v", stats)
	}
}

func TestUnknownSession(t *testing.T) {
	srv := testServer(t, &stubLLM{}, &stubMarket{})
	tests := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/api/v1/sessions/nope/stats", ""},
		{http.MethodDelete, "/api/v1/sessions/nope", ""},
		{http.MethodPost, "/api/v1/chat", `{"session_id":"nope","message":"halo"}`},
	}
	for _, tt := range tests {
		rec := doRequest(t, srv, tt.method, tt.path, tt.body)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: got %d, want 404", tt.method, tt.path, rec.Code)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// Chat
// ════════════════════════════════════════════════════════════════════

func TestChatCreatesSession(t *testing.T) {
	model := &stubLLM{reply: "Saham adalah bukti kepemilikan."}
	srv := testServer(t, model, &stubMarket{})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/chat", `{"message":"Apa itu saham?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp ChatResponse
	decodeResponse(t, rec, &resp)

	if resp.SessionID == "" {
		t.Fatal("session_id is empty")
	}
	if resp.Mode != assistant.ModeEducational {
		t.Errorf("mode: got %q", resp.Mode)
	}
	if resp.Text != "Saham adalah bukti kepemilikan." {
		t.Errorf("text: got %q", resp.Text)
	}
	if resp.HTML != "" {
		t.Error("html should be empty for markdown format")
	}

	sess, ok := srv.Sessions().Get(resp.SessionID)
	if !ok {
		t.Fatal("session not created")
	}
	if sess.Store.Len() != 2 {
		t.Errorf("turns: got %d, want 2", sess.Store.Len())
	}
}

func TestChatValidation(t *testing.T) {
	srv := testServer(t, &stubLLM{}, &stubMarket{})
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"empty message", `{"message":""}`},
		{"bad format", `{"message":"halo","format":"pdf"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/api/v1/chat", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", rec.Code)
			}
			env := decodeResponse(t, rec, nil)
			if env.Success || env.Error == "" {
				t.Errorf("expected error envelope, got %+v", env)
			}
		})
	}
	if srv.Sessions().Len() != 0 {
		t.Error("rejected requests must not create sessions")
	}
}

func TestChatHTML(t *testing.T) {
	srv := testServer(t, &stubLLM{reply: "**IHSG** adalah indeks gabungan."}, &stubMarket{})
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/chat", `{"message":"Apa itu IHSG?","format":"html"}`)

	var resp ChatResponse
	decodeResponse(t, rec, &resp)
	if !strings.Contains(resp.HTML, "<strong>IHSG</strong>") {
		t.Errorf("html: got %q", resp.HTML)
	}
	if resp.Intent.Rule != "exclusion" {
		t.Errorf("intent rule: got %q", resp.Intent.Rule)
	}
}

func TestChatWeeklyTable(t *testing.T) {
	srv := testServer(t, &stubLLM{err: errors.New("down")}, &stubMarket{series: testSeries()})
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/chat", `{"message":"ihsg seminggu terakhir","format":"html"}`)

	var resp ChatResponse
	decodeResponse(t, rec, &resp)
	if resp.Mode != assistant.ModeWeekly {
		t.Fatalf("mode: got %q", resp.Mode)
	}
	if resp.Table == nil || len(resp.Table.Bars) != 7 {
		t.Fatalf("table: got %+v", resp.Table)
	}
	if resp.Stats == nil || resp.Stats.PeriodChange != 15 {
		t.Errorf("stats: got %+v", resp.Stats)
	}
	if !strings.Contains(resp.HTML, "<table>") {
		t.Error("GFM table should render as <table>")
	}
}

func TestChatLatestSentiment(t *testing.T) {
	srv := testServer(t, &stubLLM{reply: "IHSG naik."}, &stubMarket{quote: testQuote()}, assistant.WithNews(bullishNews(), 3))
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/chat", `{"message":"ihsg hari ini"}`)

	var resp ChatResponse
	decodeResponse(t, rec, &resp)
	if resp.Sentiment == nil || resp.Sentiment.ArticleCount != 2 || resp.Sentiment.Score <= 0 {
		t.Fatalf("sentiment: got %+v", resp.Sentiment)
	}
	if len(resp.Headlines) != 2 {
		t.Errorf("headlines: got %d", len(resp.Headlines))
	}
}

func TestChatFetchFailure(t *testing.T) {
	srv := testServer(t, &stubLLM{err: errors.New("down")}, &stubMarket{err: errors.New("unreachable")})
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/chat", `{"message":"ihsg hari ini"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("fallbacks are not HTTP errors, got %d", rec.Code)
	}
	var resp ChatResponse
	decodeResponse(t, rec, &resp)
	if resp.Text != assistant.ApologyText {
		t.Errorf("text: got %q", resp.Text)
	}
}

// ════════════════════════════════════════════════════════════════════
// Classify / Market
// ════════════════════════════════════════════════════════════════════

func TestClassify(t *testing.T) {
	srv := testServer(t, &stubLLM{}, &stubMarket{})
	tests := []struct {
		message string
		want    string
	}{
		{"Apa itu IHSG?", "educational"},
		{"pergerakan ihsg seminggu terakhir", "weekly"},
		{"IHSG hari ini", "latest"},
	}
	for _, tt := range tests {
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/classify", `{"message":"`+tt.message+`"}`)
		var data map[string]string
		decodeResponse(t, rec, &data)
		if data["intent"] != tt.want {
			t.Errorf("%q: got %q, want %q", tt.message, data["intent"], tt.want)
		}
	}

	if rec := doRequest(t, srv, http.MethodPost, "/api/v1/classify", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty message: got %d", rec.Code)
	}
}

func TestMarketLatest(t *testing.T) {
	srv := testServer(t, &stubLLM{}, &stubMarket{quote: testQuote()})
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/market/latest", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var data LatestResponse
	decodeResponse(t, rec, &data)
	if data.Quote == nil || data.Quote.Close != 7171.25 {
		t.Errorf("quote: got %+v", data.Quote)
	}
}

func TestMarketLatestError(t *testing.T) {
	fetchErr := &market.FetchError{Op: "latest", Symbol: "^JKSE", Err: market.ErrNoData}
	srv := testServer(t, &stubLLM{}, &stubMarket{err: fetchErr})
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/market/latest", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d, want 502", rec.Code)
	}
	env := decodeResponse(t, rec, nil)
	if env.Error != "Data tidak tersedia" {
		t.Errorf("error: got %q", env.Error)
	}
}

func TestMarketWeekly(t *testing.T) {
	srv := testServer(t, &stubLLM{}, &stubMarket{series: testSeries()})
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/market/weekly", "")
	var data WeeklyResponse
	decodeResponse(t, rec, &data)
	if data.Series == nil || len(data.Series.Bars) != 7 {
		t.Fatalf("series: got %+v", data.Series)
	}
	if data.Stats.PeriodChangePercent != 15 {
		t.Errorf("pct: got %v", data.Stats.PeriodChangePercent)
	}
}

func TestMarketWeeklyInsufficientData(t *testing.T) {
	short := testSeries()
	short.Bars = short.Bars[:1]
	srv := testServer(t, &stubLLM{}, &stubMarket{series: short})
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/market/weekly", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want 503", rec.Code)
	}
	env := decodeResponse(t, rec, nil)
	if env.Error != "Data tidak cukup untuk menghitung statistik mingguan" {
		t.Errorf("error: got %q", env.Error)
	}
}

func TestMarketWeeklyZeroBaseClose(t *testing.T) {
	series := testSeries()
	series.Bars[0].Close = 0
	srv := testServer(t, &stubLLM{}, &stubMarket{series: series})
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/market/weekly", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d, want 502", rec.Code)
	}
	env := decodeResponse(t, rec, nil)
	if env.Error != "Data tidak tersedia" {
		t.Errorf("error: got %q", env.Error)
	}
}

// ════════════════════════════════════════════════════════════════════
// Config
// ════════════════════════════════════════════════════════════════════

func TestConfigRedacted(t *testing.T) {
	srv := testServer(t, &stubLLM{}, &stubMarket{})
	srv.cfg.LLM.GeminiKey = "AIzaSyTESTKEY0123456789"

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/config", "")
	body := rec.Body.String()
	if strings.Contains(body, "AIzaSyTESTKEY0123456789") {
		t.Fatal("config response leaks the API key")
	}
	if !strings.Contains(body, "AIz...789") {
		t.Error("masked key status missing")
	}
	if srv.cfg.LLM.GeminiKey == "" {
		t.Error("redaction must not modify the running config")
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/config/keys", "")
	var keys []config.KeyStatus
	decodeResponse(t, rec, &keys)
	if len(keys) != 3 || !keys[0].IsSet {
		t.Errorf("keys: got %+v", keys)
	}
}
