package timer

import (
	"testing"

	"github.com/oskale/goadvance/internal/irq"
	"github.com/oskale/goadvance/internal/scheduler"
)

func newHarness() (*scheduler.Scheduler, *irq.Controller, *Controller) {
	sched := scheduler.New()
	var line bool
	irqc := irq.New(sched, &line)
	tc := New(sched, irqc)
	return sched, irqc, tc
}

func TestTimerOverflowRaisesIF(t *testing.T) {
	sched, irqc, tc := newHarness()
	irqc.SetIE(uint16(irq.Timer0))
	irqc.SetIME(true)

	tc.WriteReload(0, 0xFFFE)
	tc.WriteControl(0, 0x80|0x40) // enabled, prescaler /1, irq enable

	// two increments to overflow from 0xFFFE -> 0xFFFF -> wrap
	sched.AddCycles(2)

	if irqc.IF()&uint16(irq.Timer0) == 0 {
		t.Fatalf("IF Timer0 bit not set after overflow, IF=%#04x", irqc.IF())
	}
}

func TestTimerReloadValueRestoredOnOverflow(t *testing.T) {
	sched, _, tc := newHarness()
	tc.WriteReload(0, 0xFFF0)
	tc.WriteControl(0, 0x80)

	sched.AddCycles(0x10) // exactly enough to overflow once

	if got := tc.Counter(0); got != 0xFFF0 {
		t.Fatalf("counter after overflow = %#04x, want reload 0xFFF0", got)
	}
}

func TestCascadeIncrementsOnOverflow(t *testing.T) {
	sched, _, tc := newHarness()
	tc.WriteReload(0, 0xFFFF)
	tc.WriteReload(1, 0)
	tc.WriteControl(1, 0x80|0x4) // cascade, enabled
	tc.WriteControl(0, 0x80)     // enabled after ch1 so ch1 sees the wiring

	sched.AddCycles(1) // channel 0 overflows immediately

	if got := tc.Counter(1); got != 1 {
		t.Fatalf("cascaded counter = %d, want 1", got)
	}
}

func TestPrescalerScalesOverflowDelay(t *testing.T) {
	sched, _, tc := newHarness()
	tc.WriteReload(0, 0xFFFF)
	tc.WriteControl(0, 0x80|0x1) // prescaler /64

	overflowed := false
	sched2 := sched
	_ = sched2
	tc.SetOverflowListener(func(int) { overflowed = true })

	sched.AddCycles(63)
	if overflowed {
		t.Fatal("overflowed too early")
	}
	sched.AddCycles(1)
	if !overflowed {
		t.Fatal("did not overflow at prescaled boundary")
	}
}
