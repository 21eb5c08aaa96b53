package models

import "time"

// NewsArticle represents a single market headline.
type NewsArticle struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Summary     string    `json:"summary,omitempty"` // markdown
	PublishedAt time.Time `json:"published_at"`
}
