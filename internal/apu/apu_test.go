package apu

import (
	"testing"

	"github.com/oskale/goadvance/internal/clocks"
	"github.com/oskale/goadvance/internal/scheduler"
	"github.com/oskale/goadvance/platform"
)

type fakeDMATrigger struct {
	channel int
	words   uint16
	hits    int
}

func (f *fakeDMATrigger) TriggerSpecial(channel int, words uint16) {
	f.channel, f.words = channel, words
	f.hits++
}

type capturingAudioSink struct {
	delivered [][]int16
}

func (s *capturingAudioSink) Deliver(samples []int16) {
	cp := make([]int16, len(samples))
	copy(cp, samples)
	s.delivered = append(s.delivered, cp)
}

func newTestAPU() (*APU, *fakeDMATrigger, *capturingAudioSink, *scheduler.Scheduler) {
	sched := scheduler.New()
	dmac := &fakeDMATrigger{}
	sink := &capturingAudioSink{}
	a := New(sched, dmac, sink)
	a.Reset()
	return a, dmac, sink, sched
}

func TestAPURunsOneFrameWithoutPanicking(t *testing.T) {
	a, _, _, sched := newTestAPU()

	// power on, give channel 1 a nonzero envelope volume, trigger it
	// with the length-enable flag clear so it never auto-silences.
	a.WriteIO(offSOUNDCNT_X, 0x80)
	a.WriteIO(offSOUND1CNT_H, 0x00)
	a.WriteIO(offSOUND1CNT_H+1, 0xF0) // initial volume 0xF, decreasing, step time 0
	a.WriteIO(offSOUND1CNT_X, 0x00)
	a.WriteIO(offSOUND1CNT_X+1, 0x80) // trigger, length-enable clear

	sched.AddCycles(clocks.CyclesPerFrame)

	if !a.sq1.active() {
		t.Fatal("expected channel 1 to still be active after one frame with length disabled")
	}
}

func TestMixerDeliversAudioEachFrame(t *testing.T) {
	_, _, sink, sched := newTestAPU()

	sched.AddCycles(clocks.CyclesPerFrame * 2)

	if len(sink.delivered) == 0 {
		t.Fatal("expected at least one audio buffer delivered across two frames")
	}
}

func TestMasterDisableSilencesAllChannels(t *testing.T) {
	a, _, _, sched := newTestAPU()

	a.WriteIO(offSOUNDCNT_X, 0x80)
	a.WriteIO(offSOUND1CNT_H+1, 0xF0) // initial volume 0xF, decreasing, step time 0
	a.WriteIO(offSOUND1CNT_X+1, 0x80) // trigger, length-enable clear

	sched.AddCycles(1000)
	if !a.sq1.active() {
		t.Fatal("expected channel 1 active before master disable")
	}

	a.WriteIO(offSOUNDCNT_X, 0x00) // master disable
	if a.sq1.active() {
		t.Fatal("expected master disable to silence channel 1")
	}

	// writes to non-control registers should now be ignored.
	a.WriteIO(offSOUND1CNT_X+1, 0x80)
	if a.sq1.active() {
		t.Fatal("expected trigger write to be ignored while master disabled")
	}
}

func TestFIFORefillRaisesSpecialDMARequest(t *testing.T) {
	a, dmac, _, _ := newTestAPU()
	a.masterEnable = true
	a.fifoATimer = 0

	a.PushFIFO(0, 0x01020304)
	for i := 0; i < 8; i++ {
		a.OnTimerOverflow(0)
	}

	if dmac.hits == 0 {
		t.Fatal("expected FIFO drain to raise a DMA special request")
	}
	if dmac.channel != 1 {
		t.Fatalf("dma channel = %d, want 1 (FIFO A)", dmac.channel)
	}
}

func TestSoundCNTLMasterVolumeAndPan(t *testing.T) {
	a, _, _, _ := newTestAPU()

	a.WriteIO(offSOUNDCNT_X, 0x80)
	// right and left volume fields = 7 (full, (7+1)/8), all four channels
	// enabled both sides.
	a.WriteIO(offSOUNDCNT_L, 0x77)
	a.WriteIO(offSOUNDCNT_L+1, 0xFF)

	if a.mixer.psgMasterRight != 1.0 {
		t.Fatalf("psgMasterRight = %v, want 1.0", a.mixer.psgMasterRight)
	}
	for i := channelSquare1; i <= channelNoise; i++ {
		if !a.mixer.enableLeft[i] || !a.mixer.enableRight[i] {
			t.Fatalf("channel %d expected enabled both sides", i)
		}
	}
}

func TestSoundBiasSelectsMixerSampleRate(t *testing.T) {
	a, _, _, _ := newTestAPU()
	a.WriteIO(offSOUNDCNT_X, 0x80)

	a.WriteIO(offSOUNDBIAS, 0x00)
	a.WriteIO(offSOUNDBIAS+1, 0xC0) // resolution = 3 -> 262144Hz

	if a.mixer.sampleRate != 262144 {
		t.Fatalf("sampleRate = %d, want 262144", a.mixer.sampleRate)
	}
}

var _ platform.AudioSink = (*capturingAudioSink)(nil)
