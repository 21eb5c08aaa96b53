// Package models defines the core data structures used throughout Indeks AI.
package models

import (
	"fmt"
	"strings"
	"time"
)

// OHLCV represents a single daily candle as delivered by the data provider.
type OHLCV struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Direction is the sign of a price change, in the wording used by the assistant.
type Direction string

const (
	DirectionUp   Direction = "naik"
	DirectionDown Direction = "turun"
	DirectionFlat Direction = "stagnan"
)

// DirectionOf classifies a change by its sign.
func DirectionOf(change float64) Direction {
	switch {
	case change > 0:
		return DirectionUp
	case change < 0:
		return DirectionDown
	default:
		return DirectionFlat
	}
}

// Label returns the upper-case form used in data blocks, e.g. "NAIK".
func (d Direction) Label() string {
	return strings.ToUpper(string(d))
}

// Quote is the latest close of an index compared with the close before it.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Close         float64   `json:"close"`
	PrevClose     float64   `json:"prev_close"`
	ChangePoints  float64   `json:"change_points"`
	ChangePercent float64   `json:"change_percent"`
	TradingDate   time.Time `json:"trading_date"`
	DayName       string    `json:"day_name"`  // Indonesian weekday of TradingDate
	DateLabel     string    `json:"date_label"` // e.g. "16 Oktober 2026"
	IsCurrentDay  bool      `json:"is_current_day"`
	DaysStale     int       `json:"days_stale"`
	StaleReason   string    `json:"stale_reason,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// Direction reports whether the index rose, fell or was unchanged.
func (q Quote) Direction() Direction {
	return DirectionOf(q.ChangePoints)
}

// MarketStatus describes data freshness: "hari ini" or "{n} hari lalu".
func (q Quote) MarketStatus() string {
	if q.IsCurrentDay {
		return "hari ini"
	}
	return fmt.Sprintf("%d hari lalu", q.DaysStale)
}

// DailyBar is one trading day of a Series with its change versus the
// previous bar. The first bar of a Series has zero change.
type DailyBar struct {
	Date      time.Time `json:"date"`
	DateLabel string    `json:"date_label"` // e.g. "16 Okt 2026"
	DayName   string    `json:"day_name"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"change_pct"`
}

// Series is a window of consecutive trading days, oldest first.
type Series struct {
	Symbol    string     `json:"symbol"`
	Bars      []DailyBar `json:"bars"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// Len returns the number of bars.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// First returns the oldest bar. It panics on an empty series.
func (s *Series) First() DailyBar {
	return s.Bars[0]
}

// Last returns the newest bar. It panics on an empty series.
func (s *Series) Last() DailyBar {
	return s.Bars[len(s.Bars)-1]
}
