package prefs

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Snapshot is a plain-data mirror of a group of preference cells, suitable
// for TOML (de)serialization. Front-ends load a Snapshot at startup,
// apply it to the live cells, and save a fresh Snapshot on exit; the core
// itself only ever reads the live cells, never the file.
type Snapshot map[string]interface{}

// Load reads a TOML preferences file into a Snapshot. A missing file is
// not an error; it yields an empty Snapshot so callers fall back to
// defaults.
func Load(path string) (Snapshot, error) {
	s := Snapshot{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes a Snapshot to a TOML preferences file.
func Save(path string, s Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(s)
}
