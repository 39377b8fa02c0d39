package scheduler

import "testing"

func TestAddCyclesAdvancesExactly(t *testing.T) {
	for _, n := range []uint64{0, 1, 17, 1232, 280896} {
		s := New()
		s.AddCycles(n)
		if got := s.GetTimestampNow(); got != n {
			t.Errorf("AddCycles(%d): now = %d, want %d", n, got, n)
		}
	}
}

func TestIncreasingTimestampsDispatchInInsertionOrder(t *testing.T) {
	s := New()
	var order []int
	s.AddCallback(10, 0, func(uint64) { order = append(order, 1) })
	s.AddCallback(20, 0, func(uint64) { order = append(order, 2) })
	s.AddCallback(30, 0, func(uint64) { order = append(order, 3) })

	s.AddCycles(30)

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestEqualTimestampDispatchesInPriorityOrder(t *testing.T) {
	s := New()
	var order []int
	// registered/added out of priority order on purpose
	s.AddCallback(10, 2, func(uint64) { order = append(order, 2) })
	s.AddCallback(10, 0, func(uint64) { order = append(order, 0) })
	s.AddCallback(10, 1, func(uint64) { order = append(order, 1) })

	s.AddCycles(10)

	want := []int{0, 1, 2}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestCancelEventPreventsDispatch(t *testing.T) {
	s := New()
	fired := false
	h := s.AddCallback(10, 0, func(uint64) { fired = true })
	s.CancelEvent(h)
	s.AddCycles(20)
	if fired {
		t.Fatal("canceled event fired")
	}
}

func TestClassDispatch(t *testing.T) {
	s := New()
	fired := 0
	s.RegisterClass(ClassTimer0Overflow, func(uint64) { fired++ })
	s.AddEvent(5, ClassTimer0Overflow, 0, 0)
	s.AddCycles(5)
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
}

func TestSentinelDispatchIsFatal(t *testing.T) {
	s := New()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic dispatching sentinel")
		}
	}()
	s.AddCycles(^uint64(0))
}

func TestResetIsIdempotent(t *testing.T) {
	s := New()
	s.AddCallback(10, 0, func(uint64) {})
	s.AddCycles(5)
	s.Reset()
	firstNow := s.GetTimestampNow()
	firstTarget := s.GetTimestampTarget()
	s.Reset()
	if s.GetTimestampNow() != firstNow || s.GetTimestampTarget() != firstTarget {
		t.Fatal("Reset(); Reset(); differs from Reset();")
	}
}

func TestMonotonicClock(t *testing.T) {
	s := New()
	prev := s.GetTimestampNow()
	for i := 0; i < 100; i++ {
		s.AddCycles(3)
		now := s.GetTimestampNow()
		if now < prev {
			t.Fatalf("clock went backwards: %d -> %d", prev, now)
		}
		prev = now
	}
}
