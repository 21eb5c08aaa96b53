package market

import (
	"time"

	"github.com/phuslu/log"

	"github.com/indeksai/indeksai/pkg/models"
	"github.com/indeksai/indeksai/pkg/utils"
)

// NewQuote builds a quote from daily candles (oldest first) using the last
// two closes. now decides staleness: DaysStale counts WIB calendar days
// between the last bar and now.
func NewQuote(symbol string, candles []models.OHLCV, now time.Time) (*models.Quote, error) {
	switch {
	case len(candles) == 0:
		return nil, ErrNoData
	case len(candles) < 2:
		return nil, ErrInsufficientBars
	}

	last, prev := candles[len(candles)-1], candles[len(candles)-2]
	if prev.Close == 0 {
		return nil, ErrZeroPrevClose
	}

	change := last.Close - prev.Close
	days := utils.CalendarDaysBetween(last.Timestamp, now)
	if days < 0 {
		days = 0
	}
	if session := utils.LastSession(now); utils.CalendarDaysBetween(last.Timestamp, session) > 0 {
		log.Warn().Str("symbol", symbol).Str("last_bar", utils.FormatDateLongID(last.Timestamp)).
			Str("expected", utils.FormatDateLongID(session)).Msg("chart is missing the last closed session")
	}

	return &models.Quote{
		Symbol:        symbol,
		Close:         last.Close,
		PrevClose:     prev.Close,
		ChangePoints:  change,
		ChangePercent: utils.PctChange(prev.Close, last.Close),
		TradingDate:   utils.ToWIB(last.Timestamp),
		DayName:       utils.DayNameID(last.Timestamp),
		DateLabel:     utils.FormatDateLongID(last.Timestamp),
		IsCurrentDay:  days == 0,
		DaysStale:     days,
		StaleReason:   utils.StaleReason(now, days),
		FetchedAt:     now,
	}, nil
}

// NewSeries keeps the last lookback candles and computes each bar's change
// against the bar before it. The first bar has zero change.
func NewSeries(symbol string, candles []models.OHLCV, lookback int, now time.Time) (*models.Series, error) {
	if len(candles) == 0 {
		return nil, ErrNoData
	}
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if len(candles) > lookback {
		candles = candles[len(candles)-lookback:]
	}

	bars := make([]models.DailyBar, 0, len(candles))
	for i, c := range candles {
		bar := models.DailyBar{
			Date:      utils.ToWIB(c.Timestamp),
			DateLabel: utils.FormatDateShortID(c.Timestamp),
			DayName:   utils.DayNameID(c.Timestamp),
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		}
		if i > 0 {
			prev := candles[i-1].Close
			bar.Change = c.Close - prev
			bar.ChangePct = utils.PctChange(prev, c.Close)
		}
		bars = append(bars, bar)
	}

	return &models.Series{Symbol: symbol, Bars: bars, FetchedAt: now}, nil
}
