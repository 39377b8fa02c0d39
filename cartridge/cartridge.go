package cartridge

import "github.com/oskale/goadvance/cartridge/gpio"

// GPIODevice is the optional capability a cartridge's accessory (RTC,
// solar sensor) exposes at the top of ROM address space. A Cartridge
// with no accessory simply has a nil GPIO and never consults it.
type GPIODevice interface {
	Read8(addr uint32) uint8
	Write8(addr uint32, v uint8)
}

// Cartridge glues a ROM image, a save-backup state machine, and an
// optional GPIO accessory into the single bus.Cartridge capability the
// bus package consumes, so the bus never needs to know which backup
// kind or accessory a given game uses.
type Cartridge struct {
	rom    *ROM
	backup Backup
	gpio   GPIODevice

	// gpioBase is the ROM offset (relative to the 0x08000000 window)
	// where the accessory's registers are mapped; New fixes it at 0xC4,
	// inside the ROM header area, whatever the image size.
	gpioBase uint32
}

// New creates a Cartridge over rom with the given save-backup kind. No
// GPIO accessory is attached; use CreateRTC/CreateSolarSensor to add one.
func New(rom *ROM, backupKind BackupKind) *Cartridge {
	return &Cartridge{rom: rom, backup: NewBackup(backupKind), gpioBase: 0xC4}
}

// CreateRTC attaches a real-time-clock accessory at the cartridge's GPIO
// base offset.
func (c *Cartridge) CreateRTC() *gpio.RTC {
	rtc := gpio.NewRTC()
	c.gpio = rtc
	return rtc
}

// CreateSolarSensor attaches a solar-sensor accessory at the cartridge's
// GPIO base offset.
func (c *Cartridge) CreateSolarSensor() *gpio.SolarSensor {
	s := gpio.NewSolarSensor()
	c.gpio = s
	return s
}

// ROMSize implements bus.Cartridge.
func (c *Cartridge) ROMSize() int { return c.rom.Size() }

// ReadROM8 implements bus.Cartridge, routing accesses at the GPIO base
// to the attached accessory if one is present.
func (c *Cartridge) ReadROM8(addr uint32) uint8 {
	if c.gpio != nil && addr >= c.gpioBase && addr < c.gpioBase+8 {
		return c.gpio.Read8(addr - c.gpioBase)
	}
	return c.rom.Read8(addr)
}

// WriteROM8 handles the GPIO accessory's write side. The bus forwards
// every write in the ROM regions here; writes inside the GPIO window go
// to the attached accessory and all others are ignored, since ROM is
// read-only. Writes to the 0x0E save region go to WriteBackup8 instead.
func (c *Cartridge) WriteROM8(addr uint32, v uint8) {
	if c.gpio != nil && addr >= c.gpioBase && addr < c.gpioBase+8 {
		c.gpio.Write8(addr-c.gpioBase, v)
	}
}

// ReadBackup8 implements bus.Cartridge.
func (c *Cartridge) ReadBackup8(addr uint32) uint8 { return c.backup.Read8(addr) }

// WriteBackup8 implements bus.Cartridge.
func (c *Cartridge) WriteBackup8(addr uint32, v uint8) { c.backup.Write8(addr, v) }

// Backup exposes the save-backup state machine for serialization.
func (c *Cartridge) Backup() Backup { return c.backup }
