package market

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/indeksai/indeksai/pkg/models"
	"github.com/indeksai/indeksai/pkg/utils"
)

func wib(y int, m time.Month, d, hh int) time.Time {
	return time.Date(y, m, d, hh, 0, 0, 0, utils.WIB)
}

func candle(day int, close float64) models.OHLCV {
	return models.OHLCV{
		Timestamp: wib(2026, time.October, day, 9),
		Open:      close - 10,
		High:      close + 15,
		Low:       close - 20,
		Close:     close,
		Volume:    int64(day) * 1_000_000,
	}
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// ── NewQuote ──

func TestNewQuoteCurrentDay(t *testing.T) {
	candles := []models.OHLCV{candle(14, 7000), candle(15, 7100), candle(16, 7171)}
	now := wib(2026, time.October, 16, 17)

	q, err := NewQuote("^JKSE", candles, now)
	if err != nil {
		t.Fatal(err)
	}
	if q.Close != 7171 || q.PrevClose != 7100 {
		t.Fatalf("closes: %+v", q)
	}
	if !almostEqual(q.ChangePoints, 71) || !almostEqual(q.ChangePercent, 1.0) {
		t.Fatalf("change = %v (%v%%)", q.ChangePoints, q.ChangePercent)
	}
	if q.Direction() != models.DirectionUp {
		t.Fatalf("direction = %s", q.Direction())
	}
	if !q.IsCurrentDay || q.DaysStale != 0 || q.StaleReason != "" {
		t.Fatalf("staleness: %+v", q)
	}
	if q.DayName != "Jumat" || q.DateLabel != "16 Oktober 2026" {
		t.Fatalf("labels: %q %q", q.DayName, q.DateLabel)
	}
	if q.MarketStatus() != "hari ini" {
		t.Fatalf("status = %q", q.MarketStatus())
	}
}

func TestNewQuoteWeekendStale(t *testing.T) {
	candles := []models.OHLCV{candle(15, 7200), candle(16, 7100)}
	now := wib(2026, time.October, 18, 10) // Sunday

	q, err := NewQuote("^JKSE", candles, now)
	if err != nil {
		t.Fatal(err)
	}
	if q.IsCurrentDay || q.DaysStale != 2 {
		t.Fatalf("staleness: current=%v days=%d", q.IsCurrentDay, q.DaysStale)
	}
	if q.StaleReason != "hari ini akhir pekan (Sabtu/Minggu)" {
		t.Fatalf("reason = %q", q.StaleReason)
	}
	if q.Direction() != models.DirectionDown || q.MarketStatus() != "2 hari lalu" {
		t.Fatalf("direction=%s status=%s", q.Direction(), q.MarketStatus())
	}
}

func TestNewQuoteFlat(t *testing.T) {
	q, err := NewQuote("^JKSE", []models.OHLCV{candle(15, 7000), candle(16, 7000)}, wib(2026, time.October, 16, 17))
	if err != nil {
		t.Fatal(err)
	}
	if q.Direction() != models.DirectionFlat || q.ChangePercent != 0 {
		t.Fatalf("flat: %+v", q)
	}
}

func TestNewQuoteErrors(t *testing.T) {
	now := wib(2026, time.October, 16, 17)
	tests := []struct {
		name    string
		candles []models.OHLCV
		want    error
	}{
		{"empty", nil, ErrNoData},
		{"single bar", []models.OHLCV{candle(16, 7000)}, ErrInsufficientBars},
		{"zero prev close", []models.OHLCV{candle(15, 0), candle(16, 7000)}, ErrZeroPrevClose},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewQuote("^JKSE", tt.candles, now); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

// ── NewSeries ──

func TestNewSeriesKeepsLastN(t *testing.T) {
	var candles []models.OHLCV
	for _, d := range []int{1, 2, 5, 6, 7, 8, 9, 12, 13, 14} {
		candles = append(candles, candle(d, 7000+float64(d)*10))
	}

	s, err := NewSeries("^JKSE", candles, 7, wib(2026, time.October, 14, 17))
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 7 {
		t.Fatalf("len = %d", s.Len())
	}
	if s.First().Date.Day() != 6 || s.Last().Date.Day() != 14 {
		t.Fatalf("window: %v .. %v", s.First().Date, s.Last().Date)
	}
	if s.First().Change != 0 || s.First().ChangePct != 0 {
		t.Fatalf("first bar must have zero change: %+v", s.First())
	}
	second := s.Bars[1]
	if !almostEqual(second.Change, 10) || !almostEqual(second.ChangePct, 10.0/7060*100) {
		t.Fatalf("second bar change: %+v", second)
	}
	if s.Last().DayName != "Rabu" || s.Last().DateLabel != "14 Okt 2026" {
		t.Fatalf("labels: %q %q", s.Last().DayName, s.Last().DateLabel)
	}
}

func TestNewSeriesShortAndDefault(t *testing.T) {
	candles := []models.OHLCV{candle(15, 7000), candle(16, 7050)}
	s, err := NewSeries("^JKSE", candles, 0, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Fatalf("short series should keep every bar, got %d", s.Len())
	}

	if _, err := NewSeries("^JKSE", nil, 7, time.Now()); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

// ── FetchError ──

func TestFetchErrorCause(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrNoData, "Data tidak tersedia"},
		{ErrSymbolNotFound, "Data tidak tersedia"},
		{ErrZeroPrevClose, "Data penutupan sebelumnya tidak valid"},
		{context.DeadlineExceeded, "Waktu tunggu pengambilan data habis"},
		{errors.New("connection refused"), "connection refused"},
	}
	for _, tt := range tests {
		fe := &FetchError{Op: "latest", Symbol: "^JKSE", Err: tt.err}
		if got := fe.Cause(); got != tt.want {
			t.Errorf("Cause(%v) = %q, want %q", tt.err, got, tt.want)
		}
		if !errors.Is(fe, tt.err) {
			t.Errorf("FetchError should unwrap to %v", tt.err)
		}
	}

	if Cause(nil) != "" {
		t.Fatal("Cause(nil) should be empty")
	}
	if Cause(errors.New("plain")) != "plain" {
		t.Fatal("foreign errors pass through")
	}
}
