package apu

import "testing"

func TestEnvelopeIncreasesOverSteps(t *testing.T) {
	var e envelope
	e.init(4, true, 1)
	e.restart()
	if got := e.volume(); got != 4 {
		t.Fatalf("initial volume = %d, want 4", got)
	}
	e.tick() // divider 1 -> 0, volume 4->5
	if got := e.volume(); got != 5 {
		t.Fatalf("volume after tick = %d, want 5", got)
	}
}

func TestEnvelopeStopsAtCeiling(t *testing.T) {
	var e envelope
	e.init(15, true, 1)
	e.restart()
	for i := 0; i < 5; i++ {
		e.tick()
	}
	if got := e.volume(); got != 15 {
		t.Fatalf("volume = %d, want clamped at 15", got)
	}
}

func TestEnvelopeZeroStepNeverTicks(t *testing.T) {
	var e envelope
	e.init(8, true, 0)
	e.restart()
	for i := 0; i < 10; i++ {
		e.tick()
	}
	if got := e.volume(); got != 8 {
		t.Fatalf("volume = %d, want unchanged 8 (step time 0 disables envelope)", got)
	}
}

func TestLengthCounterDisablesChannel(t *testing.T) {
	var lc lengthCounter
	lc.load(64, 62) // counter = 2
	lc.setEnabled(true)
	lc.trigger()
	if !lc.status() {
		t.Fatal("expected channel active immediately after trigger")
	}
	lc.tick()
	if !lc.status() {
		t.Fatal("expected channel still active after first tick")
	}
	lc.tick()
	if lc.status() {
		t.Fatal("expected channel inactive once the counter reaches zero")
	}
}

func TestLengthCounterIgnoredWhenDisabled(t *testing.T) {
	var lc lengthCounter
	lc.load(64, 63) // counter = 1
	lc.setEnabled(false)
	lc.trigger()
	for i := 0; i < 5; i++ {
		lc.tick()
	}
	if !lc.status() {
		t.Fatal("expected channel to stay active when length-enable flag is clear")
	}
}

func TestSweepOverflowDisablesChannel(t *testing.T) {
	var s sweep
	s.init(1, false, 1) // shift 1, increasing, period 1
	s.trigger(2047)     // already at max; +1023 overflows
	_, _, disable := s.tick()
	if !disable {
		t.Fatal("expected sweep overflow to signal channel disable")
	}
}

func TestSweepComputesNewFrequency(t *testing.T) {
	var s sweep
	s.init(2, true, 1) // shift 2, decreasing, period 1
	s.trigger(1000)
	freq, changed, disable := s.tick()
	if disable {
		t.Fatal("did not expect overflow")
	}
	if !changed {
		t.Fatal("expected a frequency change")
	}
	want := uint16(1000 - 1000>>2)
	if freq != want {
		t.Fatalf("freq = %d, want %d", freq, want)
	}
}
