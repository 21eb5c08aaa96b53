// Package market fetches index data for the assistant: the latest close of
// the composite index, a window of recent daily bars, and optional market
// headlines. Results are cached process-wide and outbound requests are
// rate limited.
package market

import (
	"context"
	"errors"
	"fmt"

	"github.com/indeksai/indeksai/pkg/models"
)

// DefaultSymbol is the Yahoo Finance ticker of the IDX Composite (IHSG).
const DefaultSymbol = "^JKSE"

// DefaultLookback is the number of trading days in a weekly series.
const DefaultLookback = 7

// Client is the market data interface the assistant depends on.
type Client interface {
	// FetchLatest returns the most recent close compared with the close before it.
	FetchLatest(ctx context.Context, symbol string) (*models.Quote, error)

	// FetchRecent returns the last lookback trading bars, oldest first.
	FetchRecent(ctx context.Context, symbol string, lookback int) (*models.Series, error)
}

// --- Sentinel errors ---

var (
	// ErrNoData is returned when the provider answered without any usable bar.
	ErrNoData = errors.New("no data returned")

	// ErrInsufficientBars is returned when fewer than two closes are available for a quote.
	ErrInsufficientBars = errors.New("insufficient bars")

	// ErrZeroPrevClose is returned when the previous close is zero and no change can be computed.
	ErrZeroPrevClose = errors.New("previous close is zero")

	// ErrSymbolNotFound is returned when the provider does not know the symbol.
	ErrSymbolNotFound = errors.New("symbol not found")
)

// FetchError describes a failed market operation.
type FetchError struct {
	Op     string // "latest", "recent", "news"
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("market %s %s: %v", e.Op, e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Cause returns a short human-readable reason, suitable for embedding in
// the apology prompt shown to the user.
func (e *FetchError) Cause() string {
	switch {
	case errors.Is(e.Err, ErrNoData), errors.Is(e.Err, ErrInsufficientBars), errors.Is(e.Err, ErrSymbolNotFound):
		return "Data tidak tersedia"
	case errors.Is(e.Err, ErrZeroPrevClose):
		return "Data penutupan sebelumnya tidak valid"
	case errors.Is(e.Err, context.DeadlineExceeded):
		return "Waktu tunggu pengambilan data habis"
	case errors.Is(e.Err, context.Canceled):
		return "Permintaan dibatalkan"
	}
	return e.Err.Error()
}

// Cause extracts a human-readable reason from any error returned by this
// package. Errors of other origins are returned as their message.
func Cause(err error) string {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Cause()
	}
	return err.Error()
}

// HTTPError wraps a non-success HTTP status from a data provider.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}
