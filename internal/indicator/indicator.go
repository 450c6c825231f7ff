// Package indicator maintains per-instrument rolling price history and
// computes the Relative Strength Index over it.
//
// Designed for single-goroutine usage: a Registry and the RSI engines it
// owns are never shared across goroutines, so nothing here takes a lock.
package indicator

const (
	// WindowCapacity is the maximum number of prices kept per instrument.
	WindowCapacity = 50

	// MinSamples is the number of recorded prices required before an RSI
	// value is produced.
	MinSamples = 15

	// rsiPeriod is the fixed averaging divisor (classical 15-sample period,
	// 14 transitions). It does not grow with the window.
	rsiPeriod = 14

	// NeutralRSI is the value an engine reports before its first computation.
	NeutralRSI = 50.0
)
