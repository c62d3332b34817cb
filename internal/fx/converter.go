package fx

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashwinrao/railswitch/internal/errs"
)

// Rate is one directed currency pair. Spread is informational: it is
// reported alongside a conversion but never subtracted from the settled
// principal.
type Rate struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	Spread    decimal.Decimal `json:"spread"`
	Timestamp time.Time       `json:"timestamp"`
}

// Conversion is the result of converting an amount between currencies.
type Conversion struct {
	Amount decimal.Decimal `json:"amount"`
	Rate   decimal.Decimal `json:"rate"`
	Spread decimal.Decimal `json:"spread"`
	From   string          `json:"from"`
	To     string          `json:"to"`
}

// RateSource supplies fresh rates on refresh. Production wires a market
// data feed; tests wire a fixture.
type RateSource func(ctx context.Context) ([]Rate, error)

// Converter is a read-mostly pairwise rate table with timed refresh.
type Converter struct {
	mutex  sync.RWMutex
	rates  map[string]Rate
	source RateSource
	logger *slog.Logger
}

func NewConverter(source RateSource, logger *slog.Logger) *Converter {
	return &Converter{
		rates:  make(map[string]Rate),
		source: source,
		logger: logger,
	}
}

// SetRate installs or replaces a single pair.
func (c *Converter) SetRate(r Rate) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	c.rates[pairKey(r.From, r.To)] = r
}

// Convert converts amount between currencies, rounded to 2 decimals.
// Identity if from equals to; direct pair if present; otherwise the
// inverse of the reverse pair; otherwise RATE_UNAVAILABLE.
func (c *Converter) Convert(amount decimal.Decimal, from, to string) (Conversion, error) {
	if from == to {
		return Conversion{Amount: amount, Rate: decimal.NewFromInt(1), From: from, To: to}, nil
	}

	c.mutex.RLock()
	direct, haveDirect := c.rates[pairKey(from, to)]
	reverse, haveReverse := c.rates[pairKey(to, from)]
	c.mutex.RUnlock()

	var rate, spread decimal.Decimal
	switch {
	case haveDirect:
		rate, spread = direct.Rate, direct.Spread
	case haveReverse:
		rate, spread = decimal.NewFromInt(1).Div(reverse.Rate), reverse.Spread
	default:
		return Conversion{}, errs.Newf(errs.KindRateUnavailable, "no exchange rate for %s/%s", from, to)
	}

	return Conversion{
		Amount: amount.Mul(rate).Round(2),
		Rate:   rate,
		Spread: spread,
		From:   from,
		To:     to,
	}, nil
}

// Refresh pulls the full rate set from the source, replacing stored pairs.
func (c *Converter) Refresh(ctx context.Context) error {
	if c.source == nil {
		return nil
	}

	rates, err := c.source(ctx)
	if err != nil {
		return errs.Wrap(errs.KindRateUnavailable, "", err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	for _, r := range rates {
		if r.Timestamp.IsZero() {
			r.Timestamp = now
		}
		c.rates[pairKey(r.From, r.To)] = r
	}
	return nil
}

// StartRefresher refreshes the rate table on a fixed interval until the
// context is cancelled. Failures are logged and the stale table keeps
// serving.
func (c *Converter) StartRefresher(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.Refresh(ctx); err != nil {
					c.logger.Warn("exchange rate refresh failed", slog.Any("err", err))
				}
			}
		}
	}()
}

func pairKey(from, to string) string {
	return from + "/" + to
}
