package scheduler

import (
	"fmt"
	"os"

	"github.com/mohamedkhairy/kline-analyzer/internal/models"
	"github.com/mohamedkhairy/kline-analyzer/pkg/indicator"
	"gopkg.in/yaml.v3"
)

// Watchlist is the set of pairs the analyzer runs on every tick
type Watchlist struct {
	Defaults WatchDefaults `yaml:"defaults"`
	Pairs    []WatchEntry  `yaml:"pairs"`
}

// WatchDefaults apply to entries that leave a field empty
type WatchDefaults struct {
	Periods []string `yaml:"periods"`
	Limit   int      `yaml:"limit"`
	MACD    string   `yaml:"macd"`
}

// WatchEntry is one pair with its periods
type WatchEntry struct {
	Base    string   `yaml:"base"`
	Quote   string   `yaml:"quote"`
	Chain   string   `yaml:"chain"`
	Periods []string `yaml:"periods"`
	Limit   int      `yaml:"limit"`
	MACD    string   `yaml:"macd"`
}

// Target is one pair and period to analyze
type Target struct {
	Pair     models.TradingPair
	Period   models.TimePeriod
	Limit    int
	MACDMode indicator.MACDMode
}

// LoadWatchlist reads and parses a watchlist file
func LoadWatchlist(path string) (*Watchlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	return ParseWatchlist(data)
}

// ParseWatchlist parses watchlist YAML and checks every entry
func ParseWatchlist(data []byte) (*Watchlist, error) {
	var wl Watchlist
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("parse watchlist: %w", err)
	}
	if _, err := wl.Targets(); err != nil {
		return nil, err
	}
	return &wl, nil
}

// Targets expands the watchlist into one target per pair and period.
// Duplicates are dropped; the first occurrence wins.
func (w *Watchlist) Targets() ([]Target, error) {
	seen := make(map[string]bool)
	var targets []Target

	for i, entry := range w.Pairs {
		pair := models.NewTradingPair(entry.Base, entry.Quote, entry.Chain)
		if err := pair.Validate(); err != nil {
			return nil, fmt.Errorf("watchlist entry %d: %w", i, err)
		}

		periods := entry.Periods
		if len(periods) == 0 {
			periods = w.Defaults.Periods
		}
		if len(periods) == 0 {
			periods = []string{string(models.OneHour)}
		}

		limit := entry.Limit
		if limit == 0 {
			limit = w.Defaults.Limit
		}
		if limit < 0 {
			return nil, fmt.Errorf("watchlist entry %d: negative limit", i)
		}

		macd := entry.MACD
		if macd == "" {
			macd = w.Defaults.MACD
		}
		var mode indicator.MACDMode
		if macd != "" {
			parsed, ok := indicator.ParseMACDMode(macd)
			if !ok {
				return nil, fmt.Errorf("watchlist entry %d: unknown macd mode %q", i, macd)
			}
			mode = parsed
		}

		for _, raw := range periods {
			period, err := models.ParseTimePeriod(raw)
			if err != nil {
				return nil, fmt.Errorf("watchlist entry %d: %w", i, err)
			}
			key := pair.String() + "/" + string(period)
			if seen[key] {
				continue
			}
			seen[key] = true
			targets = append(targets, Target{
				Pair:     pair,
				Period:   period,
				Limit:    limit,
				MACDMode: mode,
			})
		}
	}

	return targets, nil
}
