// Package trend computes period statistics over a short daily series of
// the index: change over the window, extremes, average and direction.
package trend

import (
	"errors"
	"math"

	"github.com/indeksai/indeksai/pkg/models"
	"github.com/indeksai/indeksai/pkg/utils"
)

var (
	// ErrInsufficientData is returned for a series with fewer than two bars.
	ErrInsufficientData = errors.New("trend: at least 2 bars required")

	// ErrZeroBaseClose is returned when the first close is zero and the
	// period percentage is undefined.
	ErrZeroBaseClose = errors.New("trend: first close is zero")
)

// Trend is the direction of the period change.
type Trend string

const (
	Up   Trend = "up"
	Down Trend = "down"
	Flat Trend = "flat"
)

// Of classifies a change by its sign.
func Of(change float64) Trend {
	switch {
	case change > 0:
		return Up
	case change < 0:
		return Down
	default:
		return Flat
	}
}

// Label returns the Indonesian label, e.g. "MENGUAT".
func (t Trend) Label() string {
	switch t {
	case Up:
		return "MENGUAT"
	case Down:
		return "MELEMAH"
	default:
		return "STAGNAN"
	}
}

// Display returns the label with its arrow, e.g. "📈 MENGUAT".
func (t Trend) Display() string {
	switch t {
	case Up:
		return "📈 " + t.Label()
	case Down:
		return "📉 " + t.Label()
	default:
		return "➡️ " + t.Label()
	}
}

// Stats summarizes a series.
type Stats struct {
	First               models.DailyBar  `json:"first"`
	Last                models.DailyBar  `json:"last"`
	PeriodChange        float64          `json:"period_change"`
	PeriodChangePercent float64          `json:"period_change_percent"`
	High                float64          `json:"high"`
	Low                 float64          `json:"low"`
	Average             float64          `json:"average"`
	Range               float64          `json:"range"`
	Trend               Trend            `json:"trend"`
	UpDays              int              `json:"up_days"`
	DownDays            int              `json:"down_days"`
	BiggestGain         *models.DailyBar `json:"biggest_gain,omitempty"`
	BiggestLoss         *models.DailyBar `json:"biggest_loss,omitempty"`
}

// Summarize computes Stats for series. High and Low come from the bars'
// intraday extremes, Average from the closes. It does not modify series.
func Summarize(series *models.Series) (Stats, error) {
	if series.Len() < 2 {
		return Stats{}, ErrInsufficientData
	}
	first, last := series.First(), series.Last()
	if first.Close == 0 {
		return Stats{}, ErrZeroBaseClose
	}

	st := Stats{
		First: first,
		Last:  last,
		High:  math.Inf(-1),
		Low:   math.Inf(1),
	}
	st.PeriodChange = last.Close - first.Close
	st.PeriodChangePercent = utils.PctChange(first.Close, last.Close)
	st.Trend = Of(st.PeriodChange)

	bars := series.Bars
	sum := 0.0
	for i := range bars {
		b := &bars[i]
		st.High = math.Max(st.High, b.High)
		st.Low = math.Min(st.Low, b.Low)
		sum += b.Close

		if i == 0 {
			continue
		}
		switch {
		case b.Change > 0:
			st.UpDays++
			if st.BiggestGain == nil || b.ChangePct > st.BiggestGain.ChangePct {
				bar := *b
				st.BiggestGain = &bar
			}
		case b.Change < 0:
			st.DownDays++
			if st.BiggestLoss == nil || b.ChangePct < st.BiggestLoss.ChangePct {
				bar := *b
				st.BiggestLoss = &bar
			}
		}
	}
	st.Average = sum / float64(len(bars))
	st.Range = st.High - st.Low
	return st, nil
}
