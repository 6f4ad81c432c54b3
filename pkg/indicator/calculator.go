package indicator

// Default windows used by Analyze
const (
	DefaultShortSMAPeriod  = 5
	DefaultMediumSMAPeriod = 20
	DefaultLongSMAPeriod   = 50
	DefaultRSIPeriod       = 14
	DefaultATRPeriod       = 14
	DefaultBollingerPeriod = 20
	DefaultBollingerStdDev = 2.0

	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
	macdMinCandles   = 34
)

// MACDMode selects how the MACD signal line is computed
type MACDMode string

const (
	// MACDSimple averages the last 9 MACD values
	MACDSimple MACDMode = "simple"
	// MACDTextbook uses a 9-period EMA of the MACD line
	MACDTextbook MACDMode = "textbook"
)

// ParseMACDMode parses a mode name, defaulting to MACDSimple for ""
func ParseMACDMode(s string) (MACDMode, bool) {
	switch MACDMode(s) {
	case "", MACDSimple:
		return MACDSimple, true
	case MACDTextbook:
		return MACDTextbook, true
	default:
		return "", false
	}
}

// Options configures AnalyzeWith
type Options struct {
	MACDMode MACDMode

	// Parallel runs the independent calculator branches in separate goroutines.
	// The result is identical to the sequential run.
	Parallel bool
}

// DefaultOptions returns the options used by Analyze
func DefaultOptions() Options {
	return Options{MACDMode: MACDSimple}
}
