package indicator

// RSI records prices for one instrument and computes the Relative Strength
// Index over its whole PriceWindow.
//
// Unlike a Wilder-smoothed RSI, every computation rescans the window and
// divides the summed gains and losses by a fixed 14 regardless of how many
// transitions the window holds (up to 49). Downstream consumers depend on
// exactly these values, so the divisor must stay fixed.
type RSI struct {
	window  *PriceWindow
	current float64
}

// NewRSI creates an engine with an empty window and a neutral last value.
func NewRSI() *RSI {
	return &RSI{
		window:  NewPriceWindow(WindowCapacity),
		current: NeutralRSI,
	}
}

// Record appends price to the window and, once the window holds at least
// MinSamples prices, computes and returns the RSI. ok is false while the
// window is still warming up; the price is recorded either way.
func (r *RSI) Record(price float64) (value float64, ok bool) {
	r.window.Append(price)
	if r.window.Len() < MinSamples {
		return 0, false
	}
	r.current = computeRSI(r.window)
	return r.current, true
}

// Value returns the last computed RSI, or NeutralRSI before the first one.
func (r *RSI) Value() float64 { return r.current }

// Ready reports whether the window has reached MinSamples.
func (r *RSI) Ready() bool { return r.window.Len() >= MinSamples }

// Samples returns the number of prices currently in the window.
func (r *RSI) Samples() int { return r.window.Len() }

// computeRSI sums gains and losses over every adjacent pair in w.
// Zero changes count toward neither side.
func computeRSI(w *PriceWindow) float64 {
	var gains, losses float64
	prev := w.At(0)
	for i := 1; i < w.Len(); i++ {
		price := w.At(i)
		change := price - prev
		prev = price
		if change > 0 {
			gains += change
		} else if change < 0 {
			losses -= change
		}
	}

	avgGain := gains / rsiPeriod
	avgLoss := losses / rsiPeriod
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
