package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"rsi-engine/internal/model"
)

func openTest(t *testing.T) *History {
	t.Helper()
	h, err := New(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHistory_RecentOldestFirst(t *testing.T) {
	h := openTest(t)
	ctx := context.Background()

	for i, rsi := range []float64{40, 50, 60, 70} {
		ev := model.IndicatorEvent{TokenAddress: "TOKEN1", RSI: rsi, Price: float64(i), Timestamp: "t"}
		if err := h.Append(ctx, ev); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := h.Append(ctx, model.IndicatorEvent{TokenAddress: "TOKEN2", RSI: 10, Timestamp: "t"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := h.Recent(ctx, "TOKEN1", 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i, want := range []float64{50, 60, 70} {
		if got[i].RSI != want {
			t.Errorf("event %d: expected RSI %v, got %v", i, want, got[i].RSI)
		}
		if got[i].TokenAddress != "TOKEN1" {
			t.Errorf("event %d: unexpected token %s", i, got[i].TokenAddress)
		}
	}
}

func TestHistory_UnknownTokenAndZeroLimit(t *testing.T) {
	h := openTest(t)
	ctx := context.Background()

	got, err := h.Recent(ctx, "NOPE", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no events, got %d", len(got))
	}

	got, err = h.Recent(ctx, "NOPE", 0)
	if err != nil || len(got) != 0 {
		t.Errorf("expected empty result for zero limit, got %v, %v", got, err)
	}
}

func TestHistory_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	h, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := h.Append(ctx, model.IndicatorEvent{TokenAddress: "TOKEN1", RSI: 55.5, Price: 1.2, Timestamp: "ts"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	h.Close()

	h, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer h.Close()

	got, err := h.Recent(ctx, "TOKEN1", 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].RSI != 55.5 || got[0].Price != 1.2 || got[0].Timestamp != "ts" {
		t.Errorf("unexpected events %+v", got)
	}
}

func TestHistory_HugeLimit(t *testing.T) {
	h := openTest(t)
	ctx := context.Background()
	if err := h.Append(ctx, model.IndicatorEvent{TokenAddress: "TOKEN1", RSI: 50, Timestamp: "t"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := h.Recent(ctx, "TOKEN1", math.MaxInt)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 event, got %d", len(got))
	}
}
