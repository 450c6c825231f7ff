package indicator

// PriceWindow is a bounded FIFO of recent prices for one instrument.
// Uses a preallocated circular buffer: Append never allocates once the
// window is constructed, and the oldest price is overwritten at capacity.
type PriceWindow struct {
	buf   []float64
	start int // index of the oldest price
	count int
}

// NewPriceWindow creates a window holding at most capacity prices.
func NewPriceWindow(capacity int) *PriceWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &PriceWindow{buf: make([]float64, capacity)}
}

// Append adds price as the newest entry, evicting the oldest when full.
// Prices are accepted as-is, including non-positive and non-finite values.
func (w *PriceWindow) Append(price float64) {
	if w.count < len(w.buf) {
		w.buf[(w.start+w.count)%len(w.buf)] = price
		w.count++
		return
	}
	w.buf[w.start] = price
	w.start = (w.start + 1) % len(w.buf)
}

// Len returns the number of prices currently held.
func (w *PriceWindow) Len() int { return w.count }

// Cap returns the window capacity.
func (w *PriceWindow) Cap() int { return len(w.buf) }

// At returns the i-th price, oldest first. Panics if i is out of range.
func (w *PriceWindow) At(i int) float64 {
	if i < 0 || i >= w.count {
		panic("indicator: PriceWindow index out of range")
	}
	return w.buf[(w.start+i)%len(w.buf)]
}

// Prices returns a copy of the window contents, oldest first.
func (w *PriceWindow) Prices() []float64 {
	out := make([]float64, w.count)
	for i := range out {
		out[i] = w.At(i)
	}
	return out
}
