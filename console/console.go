// Package console wires the bus, CPU, scheduler and every device
// package into the single facade an embedder drives: attach a BIOS and
// a cartridge, then call Reset and step or run it. It plays the same
// role as a console-emulation project's top-level machine type, but
// drives a scheduler instead of a fixed per-cycle video loop.
package console

import (
	"github.com/oskale/goadvance/cartridge"
	"github.com/oskale/goadvance/internal/apu"
	"github.com/oskale/goadvance/internal/bus"
	"github.com/oskale/goadvance/internal/clocks"
	"github.com/oskale/goadvance/internal/cpu/arm7tdmi"
	"github.com/oskale/goadvance/internal/curated"
	"github.com/oskale/goadvance/internal/dma"
	"github.com/oskale/goadvance/internal/irq"
	"github.com/oskale/goadvance/internal/keypad"
	"github.com/oskale/goadvance/internal/ppu"
	"github.com/oskale/goadvance/internal/scheduler"
	"github.com/oskale/goadvance/internal/timer"
	"github.com/oskale/goadvance/platform"
	"github.com/oskale/goadvance/preferences"
)

// MMIO base addresses and sizes, relative to the 0x04000000 I/O page.
const (
	ppuBase, ppuSize       = 0x000, 0x56
	apuBase, apuSize       = 0x060, 0x40
	fifoABase, fifoSize    = 0x0A0, 4
	fifoBBase              = 0x0A4
	dmaBase, dmaSize       = 0x0B0, 0x30
	timerBase, timerSize   = 0x100, 0x10
	keypadBase, keypadSize = 0x130, 4
	irqBase, irqSize       = 0x200, 0x10
)

// Option configures a Console at construction time.
type Option func(*config)

type config struct {
	video platform.VideoSink
	audio platform.AudioSink
	input platform.InputSource
	prefs *preferences.Preferences
}

// WithVideoSink delivers completed frames to sink instead of discarding them.
func WithVideoSink(sink platform.VideoSink) Option {
	return func(c *config) { c.video = sink }
}

// WithAudioSink delivers mixed audio to sink instead of discarding it.
func WithAudioSink(sink platform.AudioSink) Option {
	return func(c *config) { c.audio = sink }
}

// WithInputSource polls source for the keypad instead of reporting no
// keys pressed.
func WithInputSource(source platform.InputSource) Option {
	return func(c *config) { c.input = source }
}

// WithPreferences wires a shared Preferences set's toggles into the
// console's devices, and keeps them live: changing a preference value
// after construction takes effect immediately.
func WithPreferences(p *preferences.Preferences) Option {
	return func(c *config) { c.prefs = p }
}

// fifoAdapter bridges the bus's byte-oriented MMIO dispatch to the
// APU's word-oriented FIFO push: FIFO_A/FIFO_B are write-only 32-bit
// registers written one byte at a time by a DMA transfer (or, rarely,
// by the CPU), and the APU only wants the assembled word.
type fifoAdapter struct {
	apu *apu.APU
	idx int
	buf [4]byte
}

func (f *fifoAdapter) ReadIO(uint32) uint8 { return 0 }

func (f *fifoAdapter) WriteIO(off uint32, v uint8) {
	if off > 3 {
		return
	}
	f.buf[off] = v
	if off == 3 {
		word := uint32(f.buf[0]) | uint32(f.buf[1])<<8 | uint32(f.buf[2])<<16 | uint32(f.buf[3])<<24
		f.apu.PushFIFO(f.idx, word)
	}
}

// Console owns every emulated component and drives them as a unit.
type Console struct {
	sched *scheduler.Scheduler
	bus   *bus.Bus
	cpu   *arm7tdmi.CPU
	irqc  *irq.Controller
	ppu   *ppu.PPU
	apu   *apu.APU
	dmac  *dma.Controller
	timers *timer.Controller
	keys  *keypad.Device
	fifoA, fifoB fifoAdapter

	irqLine bool

	cart *cartridge.Cartridge

	hleEnabled bool
}

// New builds a fully wired Console. It has no BIOS and no cartridge
// attached yet; call Attach and AttachROM before Reset.
func New(opts ...Option) *Console {
	cfg := &config{prefs: preferences.New()}
	for _, o := range opts {
		o(cfg)
	}

	c := &Console{}
	c.sched = scheduler.New()
	c.bus = bus.New(c.sched)
	c.irqc = irq.New(c.sched, &c.irqLine)
	c.cpu = arm7tdmi.New(c.bus, &c.irqLine)
	c.dmac = dma.New(c.bus, c.irqc)
	c.timers = timer.New(c.sched, c.irqc)
	c.ppu = ppu.New(c.sched, c.irqc, c.dmac, c.bus, cfg.video)
	c.apu = apu.New(c.sched, c.dmac, cfg.audio)
	c.keys = keypad.New(cfg.input, c.irqc)

	c.timers.SetOverflowListener(c.apu.OnTimerOverflow)

	c.fifoA = fifoAdapter{apu: c.apu, idx: 0}
	c.fifoB = fifoAdapter{apu: c.apu, idx: 1}

	c.bus.RegisterDevice(ppuBase, ppuSize, c.ppu)
	c.bus.RegisterDevice(apuBase, apuSize, c.apu)
	c.bus.RegisterDevice(fifoABase, fifoSize, &c.fifoA)
	c.bus.RegisterDevice(fifoBBase, fifoSize, &c.fifoB)
	c.bus.RegisterDevice(dmaBase, dmaSize, c.dmac)
	c.bus.RegisterDevice(timerBase, timerSize, c.timers)
	c.bus.RegisterDevice(keypadBase, keypadSize, c.keys)
	c.bus.RegisterDevice(irqBase, irqSize, c.irqc)

	c.wirePreferences(cfg.prefs)

	return c
}

// wirePreferences installs the live preference toggles into the devices
// that consult them, and registers a post-set hook so a later change
// takes effect without reconstructing the Console.
func (c *Console) wirePreferences(p *preferences.Preferences) {
	c.hleEnabled = p.BIOSHLE.Get()
	p.BIOSHLE.SetHookPost(func(v bool) { c.hleEnabled = v })

	c.apu.SetPauseDisabledChannels(p.APU.PauseDisabledChannels.Get())
	p.APU.PauseDisabledChannels.SetHookPost(c.apu.SetPauseDisabledChannels)

	c.apu.SetEnvelopeZombieMode(p.APU.EnvelopeZombieMode.Get())
	p.APU.EnvelopeZombieMode.SetHookPost(c.apu.SetEnvelopeZombieMode)

	c.ppu.SetBitmapOOBReturnsZero(p.PPU.BitmapOOBReturnsZero.Get())
	p.PPU.BitmapOOBReturnsZero.SetHookPost(c.ppu.SetBitmapOOBReturnsZero)

	for i := range p.ROMWaitStates {
		i := i
		apply := func(int) { c.bus.SetROMWaitStates(i, p.ROMWaitStates[i].N.Get(), p.ROMWaitStates[i].S.Get()) }
		p.ROMWaitStates[i].N.SetHookPost(apply)
		p.ROMWaitStates[i].S.SetHookPost(apply)
		c.bus.SetROMWaitStates(i, p.ROMWaitStates[i].N.Get(), p.ROMWaitStates[i].S.Get())
	}
}

// Attach installs a BIOS image. If bios is nil and BIOS HLE is enabled
// in the wired preferences, Reset boots straight into the cartridge
// entry point instead of requiring one.
func (c *Console) Attach(bios []byte) {
	if bios == nil {
		return
	}
	c.bus.AttachBIOS(bios, func() bool { return c.cpu.R(15) < bus.BIOSSize })
}

// AttachROM installs a cartridge image with the given save-backup kind
// and returns it so the caller can further attach a GPIO accessory
// (CreateRTC/CreateSolarSensor) before Reset.
func (c *Console) AttachROM(rom *cartridge.ROM, backupKind cartridge.BackupKind) *cartridge.Cartridge {
	c.cart = cartridge.New(rom, backupKind)
	c.bus.AttachCartridge(c.cart)
	return c.cart
}

// Cartridge returns the currently attached cartridge, or nil.
func (c *Console) Cartridge() *cartridge.Cartridge { return c.cart }

// Reset returns every component to its post-boot state and, unless BIOS
// HLE is enabled, requires a BIOS image to already be attached.
func (c *Console) Reset() {
	c.sched.Reset()
	c.irqc.Reset()
	c.dmac.Reset()
	c.timers.Reset()
	c.apu.Reset()
	c.ppu.Reset()
	c.keys.Reset()

	if c.hleEnabled {
		c.cpu.EnableHLE()
	} else {
		c.bus.FatalIfNoBIOS()
	}
	c.cpu.Reset()
}

// Step runs any pending immediate-start DMA, then one CPU step (one
// instruction, an IRQ entry, or one halted idle cycle), and returns any fatal internal error
// recovered at this boundary. A non-nil error means the Console should
// not be stepped further.
func (c *Console) Step() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if inv, ok := r.(curated.Invariant); ok {
				err = curated.KindErrorf(curated.KindFatal, "console: %s", inv.Error())
				return
			}
			panic(r)
		}
	}()
	c.dmac.RunImmediate()
	c.cpu.Step()
	return nil
}

// Run steps the CPU until at least cycles have elapsed on the
// scheduler's clock, returning the number of cycles actually elapsed
// and any fatal error encountered along the way.
func (c *Console) Run(cycles uint64) (elapsed uint64, err error) {
	start := c.sched.GetTimestampNow()
	for c.sched.GetTimestampNow()-start < cycles {
		if err := c.Step(); err != nil {
			return c.sched.GetTimestampNow() - start, err
		}
	}
	return c.sched.GetTimestampNow() - start, nil
}

// RunForOneFrame steps the CPU through at least one video frame's worth
// of scheduler time (one full pass through all 228 scanlines); like Run,
// it may overshoot by the cost of the last instruction.
func (c *Console) RunForOneFrame() (uint64, error) {
	return c.Run(clocks.CyclesPerFrame)
}

// Scheduler exposes the underlying scheduler for save-state code.
func (c *Console) Scheduler() *scheduler.Scheduler { return c.sched }

// CPU exposes the underlying CPU for save-state code.
func (c *Console) CPU() *arm7tdmi.CPU { return c.cpu }

// Bus exposes the underlying bus for save-state code.
func (c *Console) Bus() *bus.Bus { return c.bus }

// IRQ exposes the underlying IRQ controller for save-state code.
func (c *Console) IRQ() *irq.Controller { return c.irqc }

// PPU exposes the underlying PPU for save-state code.
func (c *Console) PPU() *ppu.PPU { return c.ppu }

// APU exposes the underlying APU for save-state code.
func (c *Console) APU() *apu.APU { return c.apu }

// DMA exposes the underlying DMA controller for save-state code.
func (c *Console) DMA() *dma.Controller { return c.dmac }

// Timers exposes the underlying timer controller for save-state code.
func (c *Console) Timers() *timer.Controller { return c.timers }

// Keypad exposes the underlying keypad device for save-state code.
func (c *Console) Keypad() *keypad.Device { return c.keys }
