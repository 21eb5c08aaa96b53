// Package sentiment scores market headlines with a keyword lexicon. It runs
// offline and is deterministic, so it can annotate news even when no
// language model is reachable.
package sentiment

import (
	"math"
	"strings"
	"time"

	"github.com/indeksai/indeksai/pkg/models"
)

// Label buckets an aggregate score.
type Label string

const (
	Positive         Label = "Positif"
	SlightlyPositive Label = "Cenderung Positif"
	Neutral          Label = "Netral"
	SlightlyNegative Label = "Cenderung Negatif"
	Negative         Label = "Negatif"
)

// Lexicons are lowercase. Headlines from Indonesian outlets mix both languages.
var bullishWords = map[string]float64{
	// Bahasa Indonesia
	"menguat": 0.6, "naik": 0.4, "melonjak": 0.7, "melesat": 0.7,
	"rebound": 0.5, "zona hijau": 0.6, "rekor": 0.6, "tertinggi": 0.5,
	"positif": 0.4, "optimis": 0.5, "net buy": 0.6, "akumulasi": 0.5,
	"laba": 0.3, "dividen": 0.4, "pulih": 0.5, "bangkit": 0.5,
	// English
	"bullish": 0.7, "rally": 0.6, "surge": 0.7, "upgrade": 0.6,
	"record high": 0.7, "recovery": 0.5, "gain": 0.4, "strong": 0.4,
}

var bearishWords = map[string]float64{
	// Bahasa Indonesia
	"melemah": 0.6, "turun": 0.4, "anjlok": 0.8, "merosot": 0.7,
	"ambruk": 0.8, "zona merah": 0.6, "terendah": 0.5, "koreksi": 0.5,
	"negatif": 0.4, "tertekan": 0.5, "net sell": 0.6, "rugi": 0.4,
	"khawatir": 0.4, "gagal bayar": 0.8, "pelemahan": 0.6,
	// English
	"bearish": 0.7, "crash": 0.8, "plunge": 0.7, "selloff": 0.7,
	"downgrade": 0.6, "slump": 0.6, "decline": 0.5, "weak": 0.4,
}

// Score is the sentiment of one article.
type Score struct {
	Headline    string    `json:"headline"`
	Source      string    `json:"source"`
	Score       float64   `json:"score"`      // -1 (bearish) .. +1 (bullish)
	Confidence  float64   `json:"confidence"` // 0 .. 0.85
	PublishedAt time.Time `json:"published_at"`
}

// Summary is the time-weighted aggregate over a set of articles.
type Summary struct {
	Score        float64 `json:"score"`
	Confidence   float64 `json:"confidence"`
	Label        Label   `json:"label"`
	ArticleCount int     `json:"article_count"`
	Scores       []Score `json:"scores,omitempty"`
}

// ScoreHeadline returns a score in [-1, 1] and a confidence in [0.1, 0.85].
// Text with no lexicon hit scores 0 with confidence 0.1.
func ScoreHeadline(headline string) (score float64, confidence float64) {
	lower := strings.ToLower(headline)

	bullScore := 0.0
	bearScore := 0.0
	matches := 0

	for word, weight := range bullishWords {
		if strings.Contains(lower, word) {
			bullScore += weight
			matches++
		}
	}
	for word, weight := range bearishWords {
		if strings.Contains(lower, word) {
			bearScore += weight
			matches++
		}
	}

	if matches == 0 {
		return 0, 0.1
	}

	total := bullScore + bearScore
	score = (bullScore - bearScore) / total
	confidence = math.Min(float64(matches)*0.15+0.2, 0.85)
	return score, confidence
}

// ScoreArticle scores the title and summary of a.
func ScoreArticle(a models.NewsArticle) Score {
	text := a.Title
	if a.Summary != "" {
		text += " " + a.Summary
	}
	score, confidence := ScoreHeadline(text)
	return Score{
		Headline:    a.Title,
		Source:      a.Source,
		Score:       score,
		Confidence:  confidence,
		PublishedAt: a.PublishedAt,
	}
}

// Summarize scores articles and aggregates them. Each article's weight
// halves every 24 hours of age relative to now and scales with its
// confidence. Articles without a publish time are weighted as fresh.
func Summarize(articles []models.NewsArticle, now time.Time) Summary {
	if len(articles) == 0 {
		return Summary{Label: Neutral}
	}

	scores := make([]Score, 0, len(articles))
	weightedSum, totalWeight, confSum := 0.0, 0.0, 0.0
	for _, a := range articles {
		s := ScoreArticle(a)
		scores = append(scores, s)

		age := 0.0
		if !s.PublishedAt.IsZero() {
			age = math.Max(now.Sub(s.PublishedAt).Hours(), 0)
		}
		w := math.Exp(-math.Ln2*age/24) * s.Confidence
		weightedSum += s.Score * w
		totalWeight += w
		confSum += s.Confidence
	}

	avg := 0.0
	if totalWeight > 0 {
		avg = weightedSum / totalWeight
	}
	return Summary{
		Score:        avg,
		Confidence:   confSum / float64(len(scores)),
		Label:        labelFor(avg),
		ArticleCount: len(scores),
		Scores:       scores,
	}
}

func labelFor(score float64) Label {
	switch {
	case score > 0.3:
		return Positive
	case score > 0.1:
		return SlightlyPositive
	case score < -0.3:
		return Negative
	case score < -0.1:
		return SlightlyNegative
	}
	return Neutral
}
