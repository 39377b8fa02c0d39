// Package clocks defines the constant timing values that describe the
// speed of the system clock and the derived timings that follow from it.
package clocks

// SystemClockHz is the master system clock frequency in Hz.
const SystemClockHz = 16777216

// CyclesPerScanline is 240 visible horizontal-draw dots worth of pixel
// clocks (4 system-clock cycles per dot) plus the H-blank period.
// CyclesPerVisibleScanline (960 = 240 dots * 4 cycles/dot) and
// CyclesPerHBlank (272 = 68 dots * 4 cycles/dot) are chosen so that
// CyclesPerScanline * TotalScanlines reproduces the documented
// 280896-cycles-per-frame figure exactly (280896 = 228 * 1232).
const (
	CyclesPerVisibleScanline = 960
	CyclesPerHBlank          = 272
	CyclesPerScanline        = CyclesPerVisibleScanline + CyclesPerHBlank

	VisibleScanlines = 160
	TotalScanlines   = 228

	CyclesPerFrame = CyclesPerScanline * TotalScanlines // 280896

	// RefreshRateHz is the exact vertical refresh rate implied by the
	// above: 16777216 / 280896.
	RefreshRateHz = float64(SystemClockHz) / float64(CyclesPerFrame)
)

// FrameSequencerHz is the APU's frame sequencer tick rate: system clock / 2^15.
const FrameSequencerHz = SystemClockHz / (1 << 15)
