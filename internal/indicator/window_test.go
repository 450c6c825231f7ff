package indicator

import "testing"

func TestPriceWindow_GrowsUntilCapacity(t *testing.T) {
	w := NewPriceWindow(WindowCapacity)
	for i := 0; i < WindowCapacity; i++ {
		w.Append(float64(i))
		if w.Len() != i+1 {
			t.Fatalf("after %d appends: expected len=%d, got %d", i+1, i+1, w.Len())
		}
	}
	if w.Cap() != WindowCapacity {
		t.Errorf("expected cap=%d, got %d", WindowCapacity, w.Cap())
	}
}

func TestPriceWindow_EvictsOldest(t *testing.T) {
	w := NewPriceWindow(WindowCapacity)
	for i := 1; i <= WindowCapacity+1; i++ {
		w.Append(float64(i))
	}

	if w.Len() != WindowCapacity {
		t.Fatalf("expected len=%d after 51 appends, got %d", WindowCapacity, w.Len())
	}

	// 1 was evicted; 2..51 remain in order
	got := w.Prices()
	for i, p := range got {
		if p != float64(i+2) {
			t.Fatalf("at %d: expected %v, got %v", i, float64(i+2), p)
		}
	}
}

func TestPriceWindow_Wraparound(t *testing.T) {
	w := NewPriceWindow(3)
	for i := 1; i <= 10; i++ {
		w.Append(float64(i))
	}
	want := []float64{8, 9, 10}
	got := w.Prices()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("at %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestPriceWindow_AcceptsAnyValue(t *testing.T) {
	w := NewPriceWindow(4)
	for _, p := range []float64{0, -1.5, 1e300} {
		w.Append(p)
	}
	if w.Len() != 3 {
		t.Fatalf("expected len=3, got %d", w.Len())
	}
	if w.At(1) != -1.5 {
		t.Errorf("expected -1.5 at index 1, got %v", w.At(1))
	}
}

func TestPriceWindow_AtOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for out-of-range index")
		}
	}()
	w := NewPriceWindow(2)
	w.Append(1)
	w.At(1)
}
