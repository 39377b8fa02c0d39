// Package scheduler implements the emulator's single source of truth for
// time: a fixed-capacity binary min-heap of future events keyed by
// (timestamp, priority). Every timed device — the PPU's scanline phase
// machine, the APU's frame sequencer and mixer, timer overflow, the IRQ
// synchronizer delay — schedules its next activation here instead of
// being ticked per CPU instruction.
package scheduler

import (
	"container/heap"

	"github.com/oskale/goadvance/internal/curated"
)

// Class enumerates the recurring event kinds dispatched through the
// class table (RegisterClass), avoiding a closure allocation for the
// overwhelming majority of events which carry no unique state.
type Class int

const (
	// ClassNone marks an event dispatched through its own callback
	// instead of the class table.
	ClassNone Class = iota

	ClassPPUHDraw
	ClassPPUHBlank
	ClassPPUVBlankHDraw
	ClassPPUVBlankHBlank
	ClassPPUVCount

	ClassAPUFrameSequencer
	ClassAPUMixerSample
	ClassAPUChannel1
	ClassAPUChannel2
	ClassAPUChannel3
	ClassAPUChannel4

	ClassIRQSynchronizer

	ClassTimer0Overflow
	ClassTimer1Overflow
	ClassTimer2Overflow
	ClassTimer3Overflow

	ClassDMA0
	ClassDMA1
	ClassDMA2
	ClassDMA3

	classCount
)

// maxEvents bounds the heap: one slot per hardware device plus slack for
// short-lived one-shot events (IRQ synchronizer delays). Exceeding this is a programmer error, not a runtime
// condition a guest program can trigger.
const maxEvents = 64

// Handle identifies a previously submitted event so it can be canceled.
// Handles are only valid for the event they were issued for; once an
// event fires or is canceled its handle must not be reused.
type Handle int

const invalidHandle Handle = -1

// event is a single scheduled activation.
type event struct {
	timestamp uint64 // absolute cycle timestamp
	key       uint64 // (timestamp << 2) | priority, the heap ordering key
	class     Class
	callback  func(cyclesLate uint64)
	userData  uint64
	handle    Handle
	index     int // position in the heap slice, maintained by container/heap
}

// eventHeap implements container/heap.Interface over *event by key.
type eventHeap []*event

func (h eventHeap) Len() int            { return len(h) }
func (h eventHeap) Less(i, j int) bool  { return h[i].key < h[j].key }
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}

func (h *eventHeap) Push(x interface{}) {
	e := x.(*event)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Scheduler is a min-heap of future events keyed by (timestamp, priority).
// It is the console's single clock: Now() only ever advances, and every
// device's next activation is represented by exactly one event.
type Scheduler struct {
	heap      eventHeap
	byHandle  map[Handle]*event
	nextID    Handle
	now       uint64
	callbacks [classCount]func(cyclesLate uint64)
	sentinel  *event
}

// New creates a Scheduler at time zero with its sentinel event installed.
// The sentinel guarantees the heap is never empty; dispatching it is a
// fatal invariant violation (it means AddCycles was asked to advance past
// every real event without anything rescheduling itself, which can only
// happen if a device forgot to reschedule).
func New() *Scheduler {
	s := &Scheduler{
		heap:     make(eventHeap, 0, maxEvents),
		byHandle: make(map[Handle]*event, maxEvents),
	}
	heap.Init(&s.heap)
	s.installSentinel()
	return s
}

func (s *Scheduler) installSentinel() {
	s.sentinel = &event{
		timestamp: ^uint64(0),
		key:       ^uint64(0),
		class:     ClassNone,
		callback: func(uint64) {
			curated.Fatal("scheduler: sentinel event dispatched")
		},
		handle: invalidHandle,
	}
	heap.Push(&s.heap, s.sentinel)
}

// Reset returns the scheduler to time zero with only the sentinel event
// present. Idempotent: calling Reset twice in a row is equivalent to
// calling it once.
func (s *Scheduler) Reset() {
	s.heap = s.heap[:0]
	for k := range s.byHandle {
		delete(s.byHandle, k)
	}
	s.now = 0
	heap.Init(&s.heap)
	s.installSentinel()
}

// RegisterClass installs the dispatch method for a recurring event class.
func (s *Scheduler) RegisterClass(class Class, callback func(cyclesLate uint64)) {
	s.callbacks[class] = callback
}

// GetTimestampNow returns the scheduler's current cycle count.
func (s *Scheduler) GetTimestampNow() uint64 { return s.now }

// GetTimestampTarget returns the timestamp of the next event to fire.
func (s *Scheduler) GetTimestampTarget() uint64 { return s.heap[0].timestamp }

// GetRemainingCycleCount returns how many cycles remain until the next
// event fires.
func (s *Scheduler) GetRemainingCycleCount() uint64 {
	return s.GetTimestampTarget() - s.now
}

// AddEvent schedules a class-dispatched event to fire `delay` cycles from
// now, at the given priority (0-3; lower fires first among equal
// timestamps). userData is passed through untouched for the class
// callback to interpret (e.g. which of four timer channels overflowed).
func (s *Scheduler) AddEvent(delay uint64, class Class, priority uint8, userData uint64) Handle {
	return s.add(delay, class, nil, priority, userData)
}

// AddCallback schedules a one-shot boxed-callback event. Prefer AddEvent
// with a registered Class for anything recurring; callbacks exist for
// one-shot events (currently only the IRQ synchronizer's delay) where a
// class dispatch table would be overkill.
func (s *Scheduler) AddCallback(delay uint64, priority uint8, callback func(cyclesLate uint64)) Handle {
	return s.add(delay, ClassNone, callback, priority, 0)
}

func (s *Scheduler) add(delay uint64, class Class, callback func(uint64), priority uint8, userData uint64) Handle {
	if priority > 3 {
		curated.Fatal("scheduler: priority %d out of range", priority)
	}
	if len(s.heap) >= maxEvents {
		curated.Fatal("scheduler: heap overflow (max %d events)", maxEvents)
	}

	ts := s.now + delay
	e := &event{
		timestamp: ts,
		key:       (ts << 2) | uint64(priority),
		class:     class,
		callback:  callback,
		userData:  userData,
		handle:    s.nextID,
	}
	s.nextID++

	heap.Push(&s.heap, e)
	s.byHandle[e.handle] = e
	return e.handle
}

// CancelEvent removes a previously scheduled event before it fires. It is
// a no-op if the handle has already fired or was already canceled.
func (s *Scheduler) CancelEvent(h Handle) {
	e, ok := s.byHandle[h]
	if !ok {
		return
	}
	heap.Remove(&s.heap, e.index)
	delete(s.byHandle, h)
}

// AddCycles advances the clock by n cycles, dispatching every event whose
// timestamp is crossed along the way in (timestamp, priority) order.
func (s *Scheduler) AddCycles(n uint64) {
	target := s.now + n
	s.stepUntil(target)
	s.now = target
}

// StepUntil dispatches every event up to and including timestamp ts,
// then sets "now" to ts if it is still behind it.
func (s *Scheduler) StepUntil(ts uint64) {
	s.stepUntil(ts)
	if ts > s.now {
		s.now = ts
	}
}

func (s *Scheduler) stepUntil(target uint64) {
	for len(s.heap) > 0 && s.heap[0].timestamp <= target {
		e := heap.Pop(&s.heap).(*event)
		if e.handle != invalidHandle {
			delete(s.byHandle, e.handle)
		}

		s.now = e.timestamp
		cyclesLate := target - e.timestamp
		if e == s.sentinel {
			e.callback(cyclesLate)
			continue
		}

		if e.class != ClassNone {
			cb := s.callbacks[e.class]
			if cb == nil {
				curated.Fatal("scheduler: no callback registered for class %d", e.class)
			}
			cb(cyclesLate)
		} else {
			e.callback(cyclesLate)
		}
	}
}

// EventSnapshot is a serializable view of one pending class-dispatched
// event: its class, cycles remaining until it fires, priority, and
// userData. Boxed-callback events (AddCallback; currently only the IRQ
// synchronizer's one-shot delay) are not representable this way and are
// excluded; the IRQ controller's LoadState recomputes the IRQ line
// directly instead of re-arming that delay.
type EventSnapshot struct {
	Class    Class
	Delay    uint64
	Priority uint8
	UserData uint64
}

// Snapshot returns every pending class-dispatched event as a
// reschedulable (delay-from-now, class, priority, userData) record,
// suitable for save-state serialization.
func (s *Scheduler) Snapshot() []EventSnapshot {
	out := make([]EventSnapshot, 0, len(s.heap))
	for _, e := range s.heap {
		if e == s.sentinel || e.class == ClassNone {
			continue
		}
		delay := uint64(0)
		if e.timestamp > s.now {
			delay = e.timestamp - s.now
		}
		out = append(out, EventSnapshot{
			Class:    e.class,
			Delay:    delay,
			Priority: uint8(e.key & 0x3),
			UserData: e.userData,
		})
	}
	return out
}

// Restore resets the scheduler to timestamp now and re-arms every event
// in events. Callers must re-register every Class's callback (via
// RegisterClass) before calling Restore, and must re-arm any
// boxed-callback event themselves afterward.
func (s *Scheduler) Restore(now uint64, events []EventSnapshot) {
	s.Reset()
	s.now = now
	for _, ev := range events {
		s.AddEvent(ev.Delay, ev.Class, ev.Priority, ev.UserData)
	}
}
