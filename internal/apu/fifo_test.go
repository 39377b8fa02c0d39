package apu

import "testing"

func TestFIFOPushAndPopOrder(t *testing.T) {
	var f dmaFIFO
	f.push([]int8{1, 2, 3, 4})
	f.pop()
	if f.latch != 1 {
		t.Fatalf("latch = %d, want 1", f.latch)
	}
	f.pop()
	if f.latch != 2 {
		t.Fatalf("latch = %d, want 2", f.latch)
	}
}

func TestFIFORefillThreshold(t *testing.T) {
	var f dmaFIFO
	f.push([]int8{1, 2, 3, 4, 5, 6, 7, 8})
	for i := 0; i < 3; i++ {
		if refill := f.pop(); refill {
			t.Fatalf("unexpected refill signal at pop %d (count=%d)", i, f.count)
		}
	}
	// count is now 5; the 4th pop drops it to 4, at the refill threshold.
	if refill := f.pop(); !refill {
		t.Fatal("expected refill signal once count drops to 4")
	}
}

func TestFIFOOverrunDropsExtraSamples(t *testing.T) {
	var f dmaFIFO
	f.push([]int8{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	if f.count != 8 {
		t.Fatalf("count = %d, want capped at 8", f.count)
	}
}
