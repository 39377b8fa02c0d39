// Package preferences wraps the emulator's documented run-time toggles
// in the small typed, atomically-backed cells internal/prefs provides,
// loadable from and savable to a TOML file a front-end owns.
package preferences

import "github.com/oskale/goadvance/internal/prefs"

// APU groups the two documented APU behavior toggles.
type APU struct {
	// PauseDisabledChannels controls whether a PSG channel's self-advance
	// event stops rescheduling once the channel goes inactive (true) or
	// keeps ticking silently (false, the default, matching hardware).
	PauseDisabledChannels *prefs.Bool

	// EnvelopeZombieMode enables the documented NRx2 "zombie mode" quirk:
	// a volume-envelope register write nudges the running volume
	// immediately while the channel is still playing, instead of only
	// taking effect on the next trigger.
	EnvelopeZombieMode *prefs.Bool
}

// PPU groups the one documented PPU behavior toggle.
type PPU struct {
	// BitmapOOBReturnsZero controls what a bitmap-mode (3/4/5) scanline
	// sample past the allocated bitmap area reads back as: zero (true)
	// or an open-bus-style readback of the address itself (false, the
	// default).
	BitmapOOBReturnsZero *prefs.Bool
}

// ROMWaitGroup mirrors one of WAITCNT's three 2-bit wait-state control
// fields: the nonsequential (N) and sequential (S) cycle cost charged
// beyond the baseline access.
type ROMWaitGroup struct {
	N *prefs.Int
	S *prefs.Int
}

// Preferences groups every documented run-time toggle. A front-end
// constructs one with New, optionally overlays a loaded Snapshot, wires
// it into a console.Console via console.WithPreferences, and persists it
// back out with Save.
type Preferences struct {
	// BIOSHLE selects the high-level-emulation BIOS fallback over a
	// user-supplied BIOS image.
	BIOSHLE *prefs.Bool

	APU APU
	PPU PPU

	// ROMWaitStates holds the three WAITCNT wait-control groups, seeded
	// from the bus's real default wait tables (4/2, 4/4, 4/8 cycles).
	ROMWaitStates [3]ROMWaitGroup
}

// New creates a Preferences set at its documented defaults: BIOS HLE on,
// both APU toggles off (reschedule-but-skip-work, no zombie mode), the
// PPU OOB toggle off (open-bus readback), and the bus's real ROM
// wait-state defaults.
func New() *Preferences {
	p := &Preferences{
		BIOSHLE: prefs.NewBool(true),
		APU: APU{
			PauseDisabledChannels: prefs.NewBool(false),
			EnvelopeZombieMode:    prefs.NewBool(false),
		},
		PPU: PPU{
			BitmapOOBReturnsZero: prefs.NewBool(false),
		},
		ROMWaitStates: [3]ROMWaitGroup{
			{N: prefs.NewInt(4), S: prefs.NewInt(2)},
			{N: prefs.NewInt(4), S: prefs.NewInt(4)},
			{N: prefs.NewInt(4), S: prefs.NewInt(8)},
		},
	}
	return p
}

// Load reads a TOML preferences file at path and applies it on top of a
// freshly defaulted Preferences set. A missing file yields the defaults.
func Load(path string) (*Preferences, error) {
	p := New()
	snap, err := prefs.Load(path)
	if err != nil {
		return nil, err
	}
	p.applySnapshot(snap)
	return p, nil
}

// Save writes the current preference values to a TOML file at path.
func (p *Preferences) Save(path string) error {
	return prefs.Save(path, p.snapshot())
}

func (p *Preferences) snapshot() prefs.Snapshot {
	return prefs.Snapshot{
		"bios_hle":                  p.BIOSHLE.Get(),
		"apu_pause_disabled_chans":  p.APU.PauseDisabledChannels.Get(),
		"apu_envelope_zombie_mode":  p.APU.EnvelopeZombieMode.Get(),
		"ppu_bitmap_oob_zero":       p.PPU.BitmapOOBReturnsZero.Get(),
		"rom_wait_n0":               p.ROMWaitStates[0].N.Get(),
		"rom_wait_s0":               p.ROMWaitStates[0].S.Get(),
		"rom_wait_n1":               p.ROMWaitStates[1].N.Get(),
		"rom_wait_s1":               p.ROMWaitStates[1].S.Get(),
		"rom_wait_n2":               p.ROMWaitStates[2].N.Get(),
		"rom_wait_s2":               p.ROMWaitStates[2].S.Get(),
	}
}

func (p *Preferences) applySnapshot(s prefs.Snapshot) {
	applyBool(s, "bios_hle", p.BIOSHLE)
	applyBool(s, "apu_pause_disabled_chans", p.APU.PauseDisabledChannels)
	applyBool(s, "apu_envelope_zombie_mode", p.APU.EnvelopeZombieMode)
	applyBool(s, "ppu_bitmap_oob_zero", p.PPU.BitmapOOBReturnsZero)
	applyInt(s, "rom_wait_n0", p.ROMWaitStates[0].N)
	applyInt(s, "rom_wait_s0", p.ROMWaitStates[0].S)
	applyInt(s, "rom_wait_n1", p.ROMWaitStates[1].N)
	applyInt(s, "rom_wait_s1", p.ROMWaitStates[1].S)
	applyInt(s, "rom_wait_n2", p.ROMWaitStates[2].N)
	applyInt(s, "rom_wait_s2", p.ROMWaitStates[2].S)
}

func applyBool(s prefs.Snapshot, key string, cell *prefs.Bool) {
	if v, ok := s[key]; ok {
		if b, ok := v.(bool); ok {
			cell.Set(b)
		}
	}
}

func applyInt(s prefs.Snapshot, key string, cell *prefs.Int) {
	if v, ok := s[key]; ok {
		switch n := v.(type) {
		case int64:
			cell.Set(int(n))
		case int:
			cell.Set(n)
		}
	}
}
