package market

import (
	"context"
	"fmt"
	"time"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"

	"github.com/indeksai/indeksai/pkg/utils"
)

// Refresher reloads the cached charts of a symbol.
type Refresher interface {
	Refresh(ctx context.Context, symbol string) error
}

// Prewarmer periodically refreshes the cached index charts so that chat
// turns during trading hours rarely wait on Yahoo.
type Prewarmer struct {
	cron      *cron.Cron
	refresher Refresher
	cache     *Cache
	symbol    string
	timeout   time.Duration
}

// NewPrewarmer schedules refreshes of symbol on a standard five-field cron
// spec evaluated in WIB, e.g. "*/5 9-16 * * 1-5".
func NewPrewarmer(refresher Refresher, cache *Cache, symbol, schedule string, timeout time.Duration) (*Prewarmer, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	p := &Prewarmer{
		cron:      cron.New(cron.WithLocation(utils.WIB)),
		refresher: refresher,
		cache:     cache,
		symbol:    symbol,
		timeout:   timeout,
	}
	if _, err := p.cron.AddFunc(schedule, func() { p.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid prewarm schedule %q: %w", schedule, err)
	}
	return p, nil
}

// Start begins the schedule in the background.
func (p *Prewarmer) Start() {
	log.Info().Str("symbol", p.symbol).Msg("market prewarm scheduled")
	p.cron.Start()
}

// Stop halts the schedule and waits for a running refresh to finish.
func (p *Prewarmer) Stop() {
	<-p.cron.Stop().Done()
}

// RunOnce refreshes the charts and drops expired cache entries.
func (p *Prewarmer) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := p.refresher.Refresh(ctx, p.symbol)
	removed := 0
	if p.cache != nil {
		removed = p.cache.Cleanup()
	}
	if err != nil {
		log.Warn().Err(err).Str("symbol", p.symbol).Msg("market prewarm failed")
		return err
	}
	log.Debug().Str("symbol", p.symbol).Int("expired", removed).Dur("took", time.Since(start)).Msg("market prewarm done")
	return nil
}
