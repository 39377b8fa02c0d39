// Package cartridge implements the cartridge side of the memory bus: the
// ROM image, the save-backup state machine (SRAM, Flash, or EEPROM), and
// the optional GPIO accessory (real-time clock or solar sensor) exposed
// through the top of ROM address space.
package cartridge

import "github.com/oskale/goadvance/internal/bus"

// ROM holds the cartridge's raw program image, mirrored across the three
// 32MiB ROM address windows (0x08-0x09, 0x0A-0x0B, 0x0C-0x0D) the bus
// maps it into.
type ROM struct {
	data []byte
}

// NewROM copies data (up to bus.MaxROMSize) into a new ROM image.
func NewROM(data []byte) *ROM {
	if len(data) > bus.MaxROMSize {
		data = data[:bus.MaxROMSize]
	}
	r := &ROM{data: make([]byte, len(data))}
	copy(r.data, data)
	return r
}

// Size returns the ROM image length in bytes.
func (r *ROM) Size() int { return len(r.data) }

// Read8 returns the byte at offset, wrapping addresses past the image's
// real length the way an unpopulated address line would (the top bits of
// the offset are simply ignored beyond the image size, mirroring it).
func (r *ROM) Read8(offset uint32) uint8 {
	if len(r.data) == 0 {
		return 0xFF
	}
	return r.data[int(offset)%len(r.data)]
}
