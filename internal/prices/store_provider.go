package prices

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pairlab/internal/domain"
	"pairlab/internal/store"
)

// Compile-time interface check.
var _ Provider = (*StoreProvider)(nil)

// StoreProvider serves closes from the local bar cache without network
// access.
type StoreProvider struct {
	bars   store.BarStore
	market string
	log    *slog.Logger
}

// NewStoreProvider creates a provider reading bars for market from s.
func NewStoreProvider(s store.BarStore, market domain.Market) *StoreProvider {
	return &StoreProvider{
		bars:   s,
		market: string(market),
		log:    slog.Default().With("provider", "store"),
	}
}

// FetchDailyCloses reads cached bars for every symbol and aligns them. The
// end date is inclusive.
func (p *StoreProvider) FetchDailyCloses(ctx context.Context, symbols []string, start, end time.Time) (*Table, error) {
	end = DayEnd(end)
	var all []domain.Bar
	for _, sym := range symbols {
		bars, err := p.bars.ReadBars(ctx, sym, p.market, start, end)
		if err != nil {
			return nil, fmt.Errorf("reading cached bars for %s: %w", sym, err)
		}
		if len(bars) == 0 {
			p.log.Warn("no cached bars, dropping symbol", "symbol", sym)
			continue
		}
		all = append(all, bars...)
	}
	return Align(all, symbols), nil
}
