// Package irq implements the biased prioritized interrupt controller:
// IE/IF/IME registers and the synchronizer delay between a source
// raising a request and the CPU's IRQ line actually rising.
package irq

import "github.com/oskale/goadvance/internal/scheduler"

// Source identifies an interrupt source's bit position in IE/IF.
type Source uint16

const (
	VBlank Source = 1 << iota
	HBlank
	VCount
	Timer0
	Timer1
	Timer2
	Timer3
	Serial
	DMA0
	DMA1
	DMA2
	DMA3
	Keypad
	GamePak
)

// synchronizerDelay is the handful of cycles real hardware takes between
// a source setting its IF bit and the CPU's IRQ line actually rising.
const synchronizerDelay = 2

// Controller owns IE, IF and IME and drives the CPU's IRQ line through a
// scheduler-deferred synchronizer delay rather than combinationally.
type Controller struct {
	ie, iflags uint16
	ime        bool

	sched *scheduler.Scheduler
	line  *bool // the CPU's IRQ line; set true/false by the deferred event

	pendingHandle  scheduler.Handle
	pendingPending bool
}

// New creates a Controller wired to sched and to the CPU's IRQ line.
// line is a pointer the CPU consults every instruction boundary before
// deciding whether to take an interrupt; the controller flips it, it
// never calls into the CPU directly.
func New(sched *scheduler.Scheduler, line *bool) *Controller {
	c := &Controller{sched: sched, line: line}
	c.sched.RegisterClass(scheduler.ClassIRQSynchronizer, c.onSynchronizer)
	return c
}

// Reset clears IE/IF/IME and the CPU line. Idempotent.
func (c *Controller) Reset() {
	c.ie = 0
	c.iflags = 0
	c.ime = false
	if c.pendingPending {
		c.sched.CancelEvent(c.pendingHandle)
		c.pendingPending = false
	}
	*c.line = false
}

// Raise latches the given source's bit in IF and schedules the
// synchronizer delay if the line isn't already scheduled to rise.
func (c *Controller) Raise(src Source) {
	c.iflags |= uint16(src)
	c.scheduleSync()
}

func (c *Controller) scheduleSync() {
	if c.pendingPending {
		return
	}
	c.pendingPending = true
	c.pendingHandle = c.sched.AddCallback(synchronizerDelay, 0, func(uint64) {
		c.pendingPending = false
		c.updateLine()
	})
}

func (c *Controller) onSynchronizer(uint64) {
	c.pendingPending = false
	c.updateLine()
}

func (c *Controller) updateLine() {
	*c.line = c.ime && (c.ie&c.iflags) != 0
}

// IE returns the current interrupt-enable mask.
func (c *Controller) IE() uint16 { return c.ie }

// SetIE writes the interrupt-enable mask.
func (c *Controller) SetIE(v uint16) {
	c.ie = v
	c.scheduleSync()
}

// IF returns the current pending-interrupt flags.
func (c *Controller) IF() uint16 { return c.iflags }

// AcknowledgeIF implements write-1-to-clear semantics for IF.
func (c *Controller) AcknowledgeIF(mask uint16) {
	c.iflags &^= mask
	c.updateLine()
}

// IME returns the master enable bit.
func (c *Controller) IME() bool { return c.ime }

// SetIME sets the master enable bit.
func (c *Controller) SetIME(v bool) {
	c.ime = v
	c.scheduleSync()
}

// Pending reports whether (IE & IF) != 0, independent of IME.
func (c *Controller) Pending() bool { return c.ie&c.iflags != 0 }

// State is a serializable snapshot of IE/IF/IME. The synchronizer's
// in-flight delay is not captured: LoadState re-derives the line
// directly instead of replaying the few-cycle delay, which a save-state
// boundary can't meaningfully preserve anyway.
type State struct {
	IE, IF uint16
	IME    bool
}

// SaveState captures IE/IF/IME.
func (c *Controller) SaveState() State {
	return State{IE: c.ie, IF: c.iflags, IME: c.ime}
}

// LoadState restores IE/IF/IME and recomputes the CPU IRQ line
// immediately, cancelling any in-flight synchronizer delay.
func (c *Controller) LoadState(s State) {
	if c.pendingPending {
		c.sched.CancelEvent(c.pendingHandle)
		c.pendingPending = false
	}
	c.ie = s.IE
	c.iflags = s.IF
	c.ime = s.IME
	c.updateLine()
}
