package cartridge

// BackupKind identifies which save-backup state machine a cartridge
// image uses. Real software never exposes this through a register; an
// emulator infers it from a signature string in the ROM image (this
// package leaves that detection to the caller and just takes the kind
// as configuration).
type BackupKind int

const (
	BackupNone BackupKind = iota
	BackupSRAM
	BackupFlash64
	BackupFlash128
	BackupEEPROM512
	BackupEEPROM8K
)

// Backup is the save-memory state machine a Cartridge delegates
// accesses in the 0x0E000000 region to, for every backup kind. EEPROM
// is reached through that region too; accesses in the ROM window are
// never routed to the backup.
type Backup interface {
	Read8(addr uint32) uint8
	Write8(addr uint32, v uint8)

	// Raw exposes the backing store for save-file and save-state
	// serialization.
	Raw() []byte
	LoadRaw(data []byte)
}

// NewBackup constructs the Backup state machine matching kind.
func NewBackup(kind BackupKind) Backup {
	switch kind {
	case BackupSRAM:
		return newSRAM()
	case BackupFlash64:
		return newFlash(64 * 1024)
	case BackupFlash128:
		return newFlash(128 * 1024)
	case BackupEEPROM512:
		return newEEPROM(512)
	case BackupEEPROM8K:
		return newEEPROM(8 * 1024)
	default:
		return noneBackup{}
	}
}

type noneBackup struct{}

func (noneBackup) Read8(uint32) uint8    { return 0xFF }
func (noneBackup) Write8(uint32, uint8)  {}
func (noneBackup) Raw() []byte           { return nil }
func (noneBackup) LoadRaw([]byte)        {}

// sram is the simplest backup kind: a flat byte array mapped directly
// into the 0x0E000000 window, no command protocol at all.
type sram struct {
	data [32 * 1024]byte
}

func newSRAM() *sram { return &sram{} }

func (s *sram) Read8(addr uint32) uint8    { return s.data[addr&0x7FFF] }
func (s *sram) Write8(addr uint32, v uint8) { s.data[addr&0x7FFF] = v }
func (s *sram) Raw() []byte                { return s.data[:] }
func (s *sram) LoadRaw(data []byte)        { copy(s.data[:], data) }
