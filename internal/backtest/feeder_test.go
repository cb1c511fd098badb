package backtest

import "testing"

func TestSeriesDripReleasesOnlyDueRows(t *testing.T) {
	var inserted []int
	s := newSeries(
		[]int{30, 10, 20},
		func(v int) int64 { return int64(v) },
		func(v int) error { inserted = append(inserted, v); return nil },
	)

	if err := s.drip(15); err != nil {
		t.Fatalf("drip: %v", err)
	}
	if len(inserted) != 1 || inserted[0] != 10 {
		t.Fatalf("expected only ts=10 row dripped, got %v", inserted)
	}

	if err := s.drip(25); err != nil {
		t.Fatalf("drip: %v", err)
	}
	if len(inserted) != 2 || inserted[1] != 20 {
		t.Fatalf("expected ts=20 row dripped next, got %v", inserted)
	}

	if err := s.drip(1000); err != nil {
		t.Fatalf("drip: %v", err)
	}
	if len(inserted) != 3 || inserted[2] != 30 {
		t.Fatalf("expected ts=30 row dripped last, got %v", inserted)
	}

	if s.remaining() != 0 {
		t.Fatalf("expected no rows remaining, got %d", s.remaining())
	}
}

func TestSeriesDripNoLookAhead(t *testing.T) {
	var inserted []int
	s := newSeries(
		[]int{100},
		func(v int) int64 { return int64(v) },
		func(v int) error { inserted = append(inserted, v); return nil },
	)

	if err := s.drip(99); err != nil {
		t.Fatalf("drip: %v", err)
	}
	if len(inserted) != 0 {
		t.Fatalf("row at ts=100 must not be released before the virtual clock reaches it, got %v", inserted)
	}
	if s.remaining() != 1 {
		t.Fatalf("expected 1 row still buffered, got %d", s.remaining())
	}
}
