package preferences

import (
	"path/filepath"
	"testing"
)

func TestNewHasDocumentedDefaults(t *testing.T) {
	p := New()
	if !p.BIOSHLE.Get() {
		t.Error("BIOSHLE default = false, want true")
	}
	if p.APU.PauseDisabledChannels.Get() {
		t.Error("APU.PauseDisabledChannels default = true, want false")
	}
	if p.APU.EnvelopeZombieMode.Get() {
		t.Error("APU.EnvelopeZombieMode default = true, want false")
	}
	if p.PPU.BitmapOOBReturnsZero.Get() {
		t.Error("PPU.BitmapOOBReturnsZero default = true, want false")
	}
	wantN := [3]int{4, 4, 4}
	wantS := [3]int{2, 4, 8}
	for i, g := range p.ROMWaitStates {
		if g.N.Get() != wantN[i] {
			t.Errorf("ROMWaitStates[%d].N = %d, want %d", i, g.N.Get(), wantN[i])
		}
		if g.S.Get() != wantS[i] {
			t.Errorf("ROMWaitStates[%d].S = %d, want %d", i, g.S.Get(), wantS[i])
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prefs.toml")

	p := New()
	p.BIOSHLE.Set(false)
	p.APU.EnvelopeZombieMode.Set(true)
	p.ROMWaitStates[2].N.Set(1)
	if err := p.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.BIOSHLE.Get() {
		t.Error("loaded BIOSHLE = true, want false")
	}
	if !loaded.APU.EnvelopeZombieMode.Get() {
		t.Error("loaded APU.EnvelopeZombieMode = false, want true")
	}
	if got := loaded.ROMWaitStates[2].N.Get(); got != 1 {
		t.Errorf("loaded ROMWaitStates[2].N = %d, want 1", got)
	}
	// Untouched fields should still carry their defaults.
	if got := loaded.ROMWaitStates[0].S.Get(); got != 2 {
		t.Errorf("loaded ROMWaitStates[0].S = %d, want 2 (untouched default)", got)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load() of a missing file returned an error: %v", err)
	}
	if !p.BIOSHLE.Get() {
		t.Error("BIOSHLE = false, want default true for a missing preferences file")
	}
}

func TestHookPostFiresOnSet(t *testing.T) {
	p := New()
	var got bool
	var calls int
	p.APU.PauseDisabledChannels.SetHookPost(func(v bool) {
		got = v
		calls++
	})
	p.APU.PauseDisabledChannels.Set(true)
	if calls != 1 || !got {
		t.Fatalf("hook called %d time(s) with %v, want 1 call with true", calls, got)
	}
}
