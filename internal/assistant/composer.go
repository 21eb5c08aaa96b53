// Package assistant turns a classified question into a narrated answer:
// it fetches market data when needed, asks the language model to narrate
// it and guarantees a non-empty, data-preserving reply when anything fails.
package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/phuslu/log"

	"github.com/indeksai/indeksai/internal/analysis/sentiment"
	"github.com/indeksai/indeksai/internal/analysis/trend"
	"github.com/indeksai/indeksai/internal/assistant/prompts"
	"github.com/indeksai/indeksai/internal/config"
	"github.com/indeksai/indeksai/internal/conversation"
	"github.com/indeksai/indeksai/internal/llm"
	"github.com/indeksai/indeksai/pkg/models"
)

// Mode selects how a reply is composed.
type Mode string

const (
	ModeLatest        Mode = "latest"
	ModeWeekly        Mode = "weekly"
	ModeEducational   Mode = "educational"
	ModeErrorFallback Mode = "error"
)

// Request carries everything a mode may need. Only the fields relevant to
// Mode are read.
type Request struct {
	Mode      Mode
	Quote     *models.Quote
	Series    *models.Series
	Stats     *trend.Stats
	Headlines []models.NewsArticle
	History   []conversation.Turn
	Utterance string
	Cause     string
}

// Response is a narrated answer. Table and Stats are set in weekly mode.
type Response struct {
	Text      string               `json:"text"`
	Mode      Mode                 `json:"mode"`
	Table     *models.Series       `json:"table,omitempty"`
	Stats     *trend.Stats         `json:"stats,omitempty"`
	Quote     *models.Quote        `json:"quote,omitempty"`
	Headlines []models.NewsArticle `json:"headlines,omitempty"`
	Sentiment *sentiment.Summary   `json:"sentiment,omitempty"`
	Provider  string               `json:"provider,omitempty"` // empty when no model text was used
}

// Composer builds prompts per mode and invokes the language model.
type Composer struct {
	llm            llm.LLMProvider
	opts           llm.ChatOptions
	timeout        time.Duration
	window         conversation.Options
	politeFallback bool
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithChatOptions sets the options of every model call.
func WithChatOptions(opts llm.ChatOptions) ComposerOption {
	return func(c *Composer) { c.opts = opts }
}

// WithModelTimeout bounds every model call.
func WithModelTimeout(d time.Duration) ComposerOption {
	return func(c *Composer) { c.timeout = d }
}

// WithWindow sets how much history educational answers replay.
func WithWindow(w conversation.Options) ComposerOption {
	return func(c *Composer) { c.window = w }
}

// WithPoliteFallback controls whether a data failure still asks the model
// for an apology before falling back to the fixed text.
func WithPoliteFallback(enabled bool) ComposerOption {
	return func(c *Composer) { c.politeFallback = enabled }
}

// NewComposer creates a composer. A nil provider is allowed: every mode
// then answers with its deterministic fallback.
func NewComposer(provider llm.LLMProvider, opts ...ComposerOption) *Composer {
	c := &Composer{
		llm:            provider,
		opts:           llm.ChatOptions{Temperature: 0.7, MaxTokens: 2048},
		timeout:        30 * time.Second,
		window:         conversation.DefaultOptions,
		politeFallback: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewComposerFromConfig creates a composer from the llm and chat sections.
func NewComposerFromConfig(provider llm.LLMProvider, cfg *config.Config) *Composer {
	return NewComposer(provider,
		WithChatOptions(llm.ChatOptions{Temperature: cfg.LLM.Temperature, MaxTokens: cfg.LLM.MaxTokens}),
		WithModelTimeout(cfg.LLM.Timeout),
		WithWindow(conversation.Options{
			MaxTurns:   cfg.Chat.HistoryWindow,
			TruncateAt: cfg.Chat.TruncateAt,
			Ellipsis:   conversation.DefaultOptions.Ellipsis,
		}),
		WithPoliteFallback(cfg.Chat.PoliteErrorFallback),
	)
}

// Compose dispatches on req.Mode. A data mode without its data is treated
// as a fetch failure.
func (c *Composer) Compose(ctx context.Context, req Request) Response {
	switch req.Mode {
	case ModeLatest:
		if req.Quote == nil {
			return c.ErrorFallback(ctx, causeNoData)
		}
		return c.Latest(ctx, req.Quote, req.Headlines)
	case ModeWeekly:
		if req.Series == nil {
			return c.ErrorFallback(ctx, causeNoData)
		}
		if req.Stats == nil {
			st, err := trend.Summarize(req.Series)
			if err != nil {
				return c.ErrorFallback(ctx, FailureCause(err))
			}
			req.Stats = &st
		}
		return c.Weekly(ctx, req.Series, *req.Stats)
	case ModeErrorFallback:
		cause := req.Cause
		if cause == "" {
			cause = causeNoData
		}
		return c.ErrorFallback(ctx, cause)
	default:
		return c.Educational(ctx, req.History, req.Utterance)
	}
}

// Latest narrates a single quote and appends the raw-data footer.
func (c *Composer) Latest(ctx context.Context, q *models.Quote, headlines []models.NewsArticle) Response {
	resp := Response{Mode: ModeLatest, Quote: q, Headlines: headlines}
	if len(headlines) > 0 {
		mood := sentiment.Summarize(headlines, time.Now())
		resp.Sentiment = &mood
	}

	prompt := prompts.Latest(prompts.LatestData(q, headlines))
	out, err := c.invoke(ctx, []llm.Message{
		llm.SystemMessage(prompts.SystemInstruction),
		llm.UserMessage(prompt),
	})
	if err != nil {
		log.Warn().Err(err).Str("mode", string(ModeLatest)).Msg("narration failed, returning raw quote")
		resp.Text = LatestFallback(q)
		return resp
	}
	resp.Text = out.Content + LatestFooter(q, headlines)
	resp.Provider = out.Provider
	return resp
}

// Weekly narrates a series and appends the stats block and data table.
func (c *Composer) Weekly(ctx context.Context, series *models.Series, st trend.Stats) Response {
	resp := Response{Mode: ModeWeekly, Table: series, Stats: &st}

	prompt := prompts.Weekly(prompts.WeeklySummary(series, st))
	narration := WeeklyPlaceholder
	out, err := c.invoke(ctx, []llm.Message{
		llm.SystemMessage(prompts.SystemInstruction),
		llm.UserMessage(prompt),
	})
	if err != nil {
		log.Warn().Err(err).Str("mode", string(ModeWeekly)).Msg("narration failed, using placeholder")
	} else {
		narration = out.Content
		resp.Provider = out.Provider
	}

	resp.Text = narration + "\n\n" + WeeklyStatsBlock(series, st) + "\n\n" + TableHeading + "\n\n" + MarkdownTable(series)
	return resp
}

// Educational answers a free-form question with the recent history as context.
func (c *Composer) Educational(ctx context.Context, history []conversation.Turn, utterance string) Response {
	resp := Response{Mode: ModeEducational}

	msgs := []llm.Message{llm.SystemMessage(prompts.SystemInstruction)}
	msgs = append(msgs, conversation.ToMessages(conversation.Window(history, c.window))...)
	msgs = append(msgs, llm.UserMessage(prompts.Educational(utterance)))

	out, err := c.invoke(ctx, msgs)
	if err != nil {
		log.Warn().Err(err).Str("mode", string(ModeEducational)).Msg("educational answer failed")
		resp.Text = EducationalErrorText
		return resp
	}
	resp.Text = out.Content
	resp.Provider = out.Provider
	return resp
}

// ErrorFallback apologises for a failed data fetch. cause is shown to the model.
func (c *Composer) ErrorFallback(ctx context.Context, cause string) Response {
	resp := Response{Mode: ModeErrorFallback, Text: ApologyText}
	if !c.politeFallback {
		return resp
	}

	out, err := c.invoke(ctx, []llm.Message{
		llm.SystemMessage(prompts.SystemInstruction),
		llm.UserMessage(prompts.ErrorFallback(cause)),
	})
	if err != nil {
		log.Warn().Err(err).Str("cause", cause).Msg("polite fallback failed, using fixed apology")
		return resp
	}
	resp.Text = out.Content
	resp.Provider = out.Provider
	return resp
}

// invoke runs one bounded model call. Blank output is a failure.
func (c *Composer) invoke(ctx context.Context, msgs []llm.Message) (*llm.Response, error) {
	if c.llm == nil {
		return nil, llm.ErrNoProviders
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	opts := c.opts
	out, err := c.llm.Chat(ctx, msgs, &opts)
	if err != nil {
		return nil, err
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return nil, llm.ErrEmptyResponse
	}
	return out, nil
}
