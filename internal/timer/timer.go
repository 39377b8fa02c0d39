// Package timer implements the four hardware timers: prescaled or
// cascaded 16-bit counters that raise an IRQ on overflow and, for
// timers 0/1, tick the APU's DMA FIFOs when configured as their audio
// clock source.
package timer

import (
	"github.com/oskale/goadvance/internal/irq"
	"github.com/oskale/goadvance/internal/scheduler"
)

var prescalerCycles = [4]uint64{1, 64, 256, 1024}

var classForChannel = [4]scheduler.Class{
	scheduler.ClassTimer0Overflow,
	scheduler.ClassTimer1Overflow,
	scheduler.ClassTimer2Overflow,
	scheduler.ClassTimer3Overflow,
}

var irqSourceForChannel = [4]irq.Source{
	irq.Timer0, irq.Timer1, irq.Timer2, irq.Timer3,
}

// OverflowListener is notified when a timer channel overflows, after
// the counter has been reloaded. Used by the APU to advance its DMA FIFOs when a
// timer is configured as their clock source.
type OverflowListener func(channel int)

// Channel is one of the four counters.
type Channel struct {
	reload  uint16
	counter uint16

	prescalerSelect uint8
	cascade         bool
	irqEnable       bool
	enabled         bool

	// startTimestamp is the scheduler time the counter was last
	// (re)started or reloaded; used to compute the live counter value on
	// demand without a per-cycle callback.
	startTimestamp uint64

	pending scheduler.Handle
	hasEvt  bool
}

// Controller owns all four timer channels.
type Controller struct {
	sched *scheduler.Scheduler
	irqc  *irq.Controller
	ch    [4]Channel
	onOverflow OverflowListener
}

// New creates a Controller wired to the scheduler and IRQ controller.
func New(sched *scheduler.Scheduler, irqc *irq.Controller) *Controller {
	c := &Controller{sched: sched, irqc: irqc}
	for i := range c.ch {
		i := i
		sched.RegisterClass(classForChannel[i], func(cyclesLate uint64) { c.overflow(i, cyclesLate) })
	}
	return c
}

// SetOverflowListener installs the APU's FIFO-clocking hook.
func (c *Controller) SetOverflowListener(f OverflowListener) { c.onOverflow = f }

// Reset stops all channels and clears their registers. Idempotent.
func (c *Controller) Reset() {
	for i := range c.ch {
		c.cancel(i)
		c.ch[i] = Channel{}
	}
}

func (c *Controller) cancel(i int) {
	if c.ch[i].hasEvt {
		c.sched.CancelEvent(c.ch[i].pending)
		c.ch[i].hasEvt = false
	}
}

// liveCounter computes channel i's counter value as of right now,
// without waiting for its overflow event.
func (c *Controller) liveCounter(i int) uint16 {
	ch := &c.ch[i]
	if !ch.enabled || ch.cascade {
		return ch.counter
	}
	elapsed := (c.sched.GetTimestampNow() - ch.startTimestamp) / prescalerCycles[ch.prescalerSelect]
	return ch.counter + uint16(elapsed)
}

// Counter returns channel i's current counter value (register TMxCNT_L).
func (c *Controller) Counter(i int) uint16 { return c.liveCounter(i) }

// scheduleOverflow arms the event that fires when the counter next
// wraps from 0xFFFF to reload.
func (c *Controller) scheduleOverflow(i int) {
	ch := &c.ch[i]
	if ch.cascade {
		return // cascaded channels overflow only when their source cascades in
	}
	remaining := uint64(0x10000) - uint64(ch.counter)
	delay := remaining * prescalerCycles[ch.prescalerSelect]
	ch.startTimestamp = c.sched.GetTimestampNow()
	ch.pending = c.sched.AddEvent(delay, classForChannel[i], 1, uint64(i))
	ch.hasEvt = true
}

func (c *Controller) overflow(i int, cyclesLate uint64) {
	ch := &c.ch[i]
	ch.hasEvt = false
	ch.counter = ch.reload

	if ch.irqEnable {
		c.irqc.Raise(irqSourceForChannel[i])
	}
	if c.onOverflow != nil {
		c.onOverflow(i)
	}

	// cascade: channel i+1, if enabled with cascade set, increments once
	// per overflow of channel i and overflows itself when it wraps.
	if i < 3 && c.ch[i+1].enabled && c.ch[i+1].cascade {
		c.cascadeIncrement(i + 1)
	}

	if ch.enabled && !ch.cascade {
		c.scheduleOverflow(i)
	}
}

func (c *Controller) cascadeIncrement(i int) {
	ch := &c.ch[i]
	ch.counter++
	if ch.counter == 0 {
		c.overflow(i, 0)
	}
}

// WriteControl writes channel i's TMxCNT_H register.
func (c *Controller) WriteControl(i int, v uint8) {
	ch := &c.ch[i]
	wasEnabled := ch.enabled
	live := c.liveCounter(i) // under the old prescaler/cascade settings

	ch.prescalerSelect = v & 0x3
	ch.cascade = i > 0 && v&0x4 != 0
	ch.irqEnable = v&0x40 != 0
	ch.enabled = v&0x80 != 0

	if ch.enabled && !wasEnabled {
		ch.counter = ch.reload
		if !ch.cascade {
			c.scheduleOverflow(i)
		}
	} else if !ch.enabled && wasEnabled {
		c.cancel(i)
	} else if ch.enabled {
		// prescaler or cascade bit changed while running: resnapshot and
		// reschedule against the live counter value.
		c.cancel(i)
		ch.counter = live
		c.scheduleOverflow(i)
	}
}

// WriteReload writes channel i's TMxCNT_L reload register. Takes effect
// on the next enable, per hardware (writing it while running does not
// retroactively change the running counter).
func (c *Controller) WriteReload(i int, v uint16) {
	c.ch[i].reload = v
}

// ChannelState is a serializable snapshot of one timer channel. The
// scheduled overflow event itself is not part of this struct: it rides
// along with the rest of the scheduler's event queue through
// scheduler.Snapshot/Restore, keyed by the same channel index passed as
// UserData in scheduleOverflow.
type ChannelState struct {
	Reload, Counter          uint16
	PrescalerSelect          uint8
	Cascade, IRQEnable       bool
	Enabled                  bool
	StartTimestamp           uint64
}

// State is a serializable snapshot of all four channels.
type State struct {
	Channels [4]ChannelState
}

// SaveState captures every channel's registers and live counter.
func (c *Controller) SaveState() State {
	var s State
	for i := range c.ch {
		ch := &c.ch[i]
		s.Channels[i] = ChannelState{
			Reload:          ch.reload,
			Counter:         c.liveCounter(i),
			PrescalerSelect: ch.prescalerSelect,
			Cascade:         ch.cascade,
			IRQEnable:       ch.irqEnable,
			Enabled:         ch.enabled,
			StartTimestamp:  ch.startTimestamp,
		}
	}
	return s
}

// LoadState restores every channel's registers from s. It assumes the
// caller restores the scheduler's event queue (scheduler.Restore) either
// immediately before or after this call, since the counter's scheduled
// overflow event is tracked there rather than here.
func (c *Controller) LoadState(s State) {
	for i := range c.ch {
		cs := s.Channels[i]
		ch := &c.ch[i]
		ch.reload = cs.Reload
		ch.counter = cs.Counter
		ch.prescalerSelect = cs.PrescalerSelect
		ch.cascade = cs.Cascade
		ch.irqEnable = cs.IRQEnable
		ch.enabled = cs.Enabled
		ch.startTimestamp = cs.StartTimestamp
		ch.hasEvt = ch.enabled && !ch.cascade
	}
}
