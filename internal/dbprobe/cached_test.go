package dbprobe

import "testing"

type countingProber struct {
	calls  int
	result Result
}

func (p *countingProber) Probe(fen string) (Result, error) {
	p.calls++
	return p.result, nil
}

func TestCachedAdapterServesRepeatsFromCache(t *testing.T) {
	inner := &countingProber{result: Result{Ply: 3}}
	cached := NewCachedAdapter(inner, 100)

	for i := 0; i < 5; i++ {
		result, err := cached.Probe("some-fen")
		if err != nil {
			t.Fatal(err)
		}
		if result.Ply != 3 {
			t.Fatalf("Ply = %d, want 3", result.Ply)
		}
	}

	if inner.calls != 1 {
		t.Fatalf("inner.Probe called %d times, want 1", inner.calls)
	}
	if cached.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", cached.Size())
	}
	if got := cached.HitRate(); got != 80 {
		t.Fatalf("HitRate() = %v, want 80", got)
	}
}

func TestCachedAdapterEvictsWhenFull(t *testing.T) {
	inner := &countingProber{result: Result{Ply: 0}}
	cached := NewCachedAdapter(inner, 4)

	for i := 0; i < 10; i++ {
		fen := string(rune('a' + i))
		if _, err := cached.Probe(fen); err != nil {
			t.Fatal(err)
		}
	}

	if cached.Size() > 4 {
		t.Fatalf("Size() = %d, want <= 4", cached.Size())
	}
}
