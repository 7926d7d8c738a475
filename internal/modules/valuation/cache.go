// Package valuation derives realized P&L and current account size from the
// trade ledger, the cash flow ledger and the account settings.
//
// The cache holds no authoritative data. It can be dropped at any time and is
// rebuilt lazily on the next read.
package valuation

import (
	"fmt"
	"hash/fnv"
	"math"
	"sync"

	"github.com/aristath/tradelog/internal/domain"
	"github.com/rs/zerolog"
)

// Mode selects how the cache decides whether its values are still current
type Mode string

const (
	// ModeVersion keys on the sources' mutation counters; it never reports a stale hit
	ModeVersion Mode = "version"
	// ModeLegacy keys on additive sums over the source data.
	// Compensating edits can collide and serve a stale value.
	ModeLegacy Mode = "legacy"
)

// ParseMode maps a configured name to a Mode
func ParseMode(name string) (Mode, error) {
	switch Mode(name) {
	case ModeVersion, "":
		return ModeVersion, nil
	case ModeLegacy:
		return ModeLegacy, nil
	default:
		return "", fmt.Errorf("%w: unknown fingerprint mode %q", domain.ErrInvalidInput, name)
	}
}

// Fingerprint identifies the source state a cached value was derived from.
// Only the fields of the active mode are populated.
type Fingerprint struct {
	Generation uint64 // Bumped by every explicit Invalidate

	TradesVersion    uint64
	CashFlowsVersion uint64
	SettingsVersion  uint64

	TradeCount    int
	TradeSum      float64 // Σ(id hash + realized contribution)
	CashFlowCount int
	Deposits      float64
	Withdrawals   float64
	StartingSize  float64
}

// Valuation is one consistent read of the derived values
type Valuation struct {
	RealizedPnL  float64
	CurrentSize  float64
	StartingSize float64
	Deposits     float64
	Withdrawals  float64
	Fallback     bool // Cash flows were unreadable or the result was not finite
}

// NetCashFlow returns deposits minus withdrawals
func (v Valuation) NetCashFlow() float64 {
	return v.Deposits - v.Withdrawals
}

// Stats counts cache activity
type Stats struct {
	Hits      uint64
	Misses    uint64
	Fallbacks uint64
}

// Cache memoizes realized P&L and current account size
type Cache struct {
	trades    domain.TradeSource
	cashFlows domain.CashFlowSource
	settings  domain.SettingsSource
	mode      Mode
	log       zerolog.Logger

	mu         sync.Mutex
	generation uint64
	valid      bool
	key        Fingerprint
	value      Valuation
	stats      Stats
}

// Compile-time check that Cache can be invalidated by the ledgers
var _ domain.Invalidator = (*Cache)(nil)

// NewCache creates a cache over the three sources
func NewCache(trades domain.TradeSource, cashFlows domain.CashFlowSource, settings domain.SettingsSource, mode Mode, log zerolog.Logger) *Cache {
	if mode == "" {
		mode = ModeVersion
	}
	return &Cache{
		trades:    trades,
		cashFlows: cashFlows,
		settings:  settings,
		mode:      mode,
		log:       log.With().Str("component", "valuation_cache").Str("mode", string(mode)).Logger(),
	}
}

// Mode returns the active fingerprint mode
func (c *Cache) Mode() Mode {
	return c.mode
}

// Invalidate drops the cached values; the next read recomputes
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.valid = false
}

// RealizedPnL returns Σ realized contributions of closed and trimmed trades
func (c *Cache) RealizedPnL() float64 {
	return c.Valuation().RealizedPnL
}

// CurrentSize returns starting size + realized P&L + deposits - withdrawals
func (c *Cache) CurrentSize() float64 {
	return c.Valuation().CurrentSize
}

// Stats returns a copy of the hit/miss counters
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Valuation returns the derived values, recomputing them when the fingerprint moved
func (c *Cache) Valuation() Valuation {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The fingerprint is taken before the data is read, so a mutation racing
	// with the recompute leaves a stale key and forces the next read to retry.
	key, err := c.fingerprint()
	if err == nil && c.valid && key == c.key {
		c.stats.Hits++
		return c.value
	}
	c.stats.Misses++

	value, err := c.compute()
	if err != nil {
		c.stats.Fallbacks++
		c.valid = false
		c.log.Warn().
			Err(err).
			Float64("fallback_size", value.CurrentSize).
			Msg("Account size fell back to starting size plus realized P&L")
		return value
	}

	c.key = key
	c.value = value
	c.valid = true
	c.log.Debug().
		Float64("realized_pnl", value.RealizedPnL).
		Float64("current_size", value.CurrentSize).
		Msg("Valuation recomputed")
	return value
}

func (c *Cache) fingerprint() (Fingerprint, error) {
	fp := Fingerprint{Generation: c.generation}
	if c.mode == ModeLegacy {
		return c.legacyFingerprint(fp)
	}
	fp.TradesVersion = c.trades.Version()
	fp.CashFlowsVersion = c.cashFlows.Version()
	fp.SettingsVersion = c.settings.Version()
	return fp, nil
}

func (c *Cache) legacyFingerprint(fp Fingerprint) (Fingerprint, error) {
	trades := c.trades.List()
	fp.TradeCount = len(trades)
	for i := range trades {
		fp.TradeSum += idHash(trades[i].ID) + trades[i].RealizedContribution()
	}
	deposits, withdrawals, err := c.cashFlows.Totals()
	if err != nil {
		return fp, err
	}
	fp.CashFlowCount = c.cashFlows.Count()
	fp.Deposits = deposits
	fp.Withdrawals = withdrawals
	fp.StartingSize = c.settings.Get().StartingAccountSize
	return fp, nil
}

// compute derives a fresh valuation. On error the returned value is the fallback.
func (c *Cache) compute() (Valuation, error) {
	v := Valuation{StartingSize: c.settings.Get().StartingAccountSize}

	for _, t := range c.trades.List() {
		v.RealizedPnL += t.RealizedContribution()
	}

	fallback := func(cause error) (Valuation, error) {
		realized := v.RealizedPnL
		if !isFinite(realized) {
			realized = 0
		}
		v.Deposits, v.Withdrawals = 0, 0
		v.CurrentSize = v.StartingSize + realized
		v.Fallback = true
		return v, cause
	}

	deposits, withdrawals, err := c.cashFlows.Totals()
	if err != nil {
		return fallback(fmt.Errorf("failed to read cash flow totals: %w", err))
	}
	v.Deposits = deposits
	v.Withdrawals = withdrawals
	v.CurrentSize = v.StartingSize + v.RealizedPnL + deposits - withdrawals

	if !isFinite(v.CurrentSize) || !isFinite(v.RealizedPnL) {
		return fallback(fmt.Errorf("account size is not finite"))
	}
	return v, nil
}

// idHash maps a trade id onto a number for the additive fingerprint
func idHash(id string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return float64(h.Sum32())
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
