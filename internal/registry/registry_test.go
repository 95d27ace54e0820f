package registry

import (
	"io"
	"log/slog"
	"testing"

	"github.com/seqlink/seqlinkd/internal/seq"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// duplexCaps makes a port trackable in both directions.
const duplexCaps = seq.CapRead | seq.CapSubsRead | seq.CapWrite | seq.CapSubsWrite

func softwarePort(client, port uint8, name string, caps uint) seq.PortInfo {
	return seq.PortInfo{
		Addr:       seq.Addr{Client: client, Port: port},
		Name:       name,
		ClientName: name,
		Caps:       caps,
		Type:       seq.TypeApplication | seq.TypeMIDIGeneric,
	}
}

func hardwarePort(client, port uint8, name string, caps uint) seq.PortInfo {
	return seq.PortInfo{
		Addr:       seq.Addr{Client: client, Port: port},
		Name:       name,
		ClientName: name,
		Caps:       caps,
		Type:       seq.TypeHardware | seq.TypeMIDIGeneric,
	}
}

func TestClassifyApplicationIsSoftware(t *testing.T) {
	p := softwarePort(128, 0, "FluidSynth", duplexCaps)
	if got := Classify(p); got != Software {
		t.Errorf("expected software, got %v", got)
	}
}

func TestClassifyDeviceIsHardware(t *testing.T) {
	p := hardwarePort(24, 0, "nanoKEY2", duplexCaps)
	if got := Classify(p); got != Hardware {
		t.Errorf("expected hardware, got %v", got)
	}
}

func TestClassifyNameOverrideBeatsTypeBits(t *testing.T) {
	p := softwarePort(129, 0, "amidithru", duplexCaps)
	if got := Classify(p); got != Hardware {
		t.Errorf("expected amidithru forced to hardware, got %v", got)
	}
}

func TestShouldTrack(t *testing.T) {
	cases := []struct {
		name string
		port seq.PortInfo
		want bool
	}{
		{"regular application", softwarePort(128, 0, "FluidSynth", duplexCaps), true},
		{"regular device", hardwarePort(24, 0, "nanoKEY2", duplexCaps), true},
		{"unexported port", softwarePort(128, 0, "FluidSynth", duplexCaps|seq.CapNoExport), false},
		{"system client", hardwarePort(0, 1, "System", duplexCaps), false},
		{"through port family", hardwarePort(14, 0, "Midi Through", duplexCaps), false},
		{"through port numbered sibling", hardwarePort(15, 0, "Midi Through 2", duplexCaps), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldTrack(tc.port); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestAddPortTracksFirstEndpoint(t *testing.T) {
	r := New(testLogger())
	p := softwarePort(128, 0, "FluidSynth", seq.CapWrite|seq.CapSubsWrite)

	if !r.AddPort(p) {
		t.Fatal("expected first input to be newly tracked")
	}
	rec, role, ok := r.Owner(p.Addr)
	if !ok {
		t.Fatal("expected owner after AddPort")
	}
	if role != Software {
		t.Errorf("expected software role, got %v", role)
	}
	if rec.In == nil || *rec.In != p.Addr {
		t.Errorf("expected input slot %v, got %v", p.Addr, rec.In)
	}
	if rec.Out != nil {
		t.Errorf("expected output slot empty, got %v", rec.Out)
	}
}

// A client exposing several ports of one direction gets only the first
// tracked. Later same-direction ports are ignored on purpose, so software
// with many logically distinct ports is linked through its first one only.
func TestAddPortFirstDirectionWins(t *testing.T) {
	r := New(testLogger())
	first := softwarePort(128, 0, "FluidSynth", seq.CapWrite|seq.CapSubsWrite)
	second := softwarePort(128, 1, "FluidSynth", seq.CapWrite|seq.CapSubsWrite)

	if !r.AddPort(first) {
		t.Fatal("expected first input to be newly tracked")
	}
	if r.AddPort(second) {
		t.Error("expected second input of the same client to be ignored")
	}
	rec, _, _ := r.Owner(first.Addr)
	if rec.In == nil || *rec.In != first.Addr {
		t.Errorf("expected first input %v to be retained, got %v", first.Addr, rec.In)
	}
}

func TestAddPortDuplexClaimsBothSlots(t *testing.T) {
	r := New(testLogger())
	p := hardwarePort(24, 0, "nanoKEY2", duplexCaps)

	if !r.AddPort(p) {
		t.Fatal("expected duplex port to be newly tracked")
	}
	rec, role, _ := r.Owner(p.Addr)
	if role != Hardware {
		t.Errorf("expected hardware role, got %v", role)
	}
	if rec.In == nil || rec.Out == nil {
		t.Fatalf("expected both slots set, got in=%v out=%v", rec.In, rec.Out)
	}
}

func TestAddPortNewDirectionOnTrackedClient(t *testing.T) {
	r := New(testLogger())
	in := softwarePort(128, 0, "FluidSynth", seq.CapWrite|seq.CapSubsWrite)
	out := softwarePort(128, 1, "FluidSynth", seq.CapRead|seq.CapSubsRead)

	r.AddPort(in)
	if !r.AddPort(out) {
		t.Error("expected a new direction on a tracked client to count as newly tracked")
	}
	rec, _, _ := r.Owner(in.Addr)
	if rec.In == nil || *rec.In != in.Addr {
		t.Errorf("expected input %v, got %v", in.Addr, rec.In)
	}
	if rec.Out == nil || *rec.Out != out.Addr {
		t.Errorf("expected output %v, got %v", out.Addr, rec.Out)
	}
}

func TestAddPortFiltered(t *testing.T) {
	r := New(testLogger())
	p := hardwarePort(14, 0, "Midi Through", duplexCaps)

	if r.AddPort(p) {
		t.Error("expected through port to be rejected")
	}
	if _, _, ok := r.Owner(p.Addr); ok {
		t.Error("expected no record for a filtered port")
	}
}

func TestRemovePortClearsMatchingSlot(t *testing.T) {
	r := New(testLogger())
	p := hardwarePort(24, 0, "nanoKEY2", duplexCaps)
	r.AddPort(p)

	r.RemovePort(p.Addr)
	rec, _, ok := r.Owner(p.Addr)
	if !ok {
		t.Fatal("expected record to survive removal with empty slots")
	}
	if rec.In != nil || rec.Out != nil {
		t.Errorf("expected both slots cleared, got in=%v out=%v", rec.In, rec.Out)
	}
}

func TestRemovePortIgnoresDifferentAddress(t *testing.T) {
	r := New(testLogger())
	tracked := softwarePort(128, 0, "FluidSynth", seq.CapWrite|seq.CapSubsWrite)
	r.AddPort(tracked)

	// Same client, different port: the tracked slot must stay.
	r.RemovePort(seq.Addr{Client: 128, Port: 3})
	rec, _, _ := r.Owner(tracked.Addr)
	if rec.In == nil || *rec.In != tracked.Addr {
		t.Errorf("expected tracked input %v untouched, got %v", tracked.Addr, rec.In)
	}
}

func TestRemovePortUnknownClientIsNoOp(t *testing.T) {
	r := New(testLogger())
	r.RemovePort(seq.Addr{Client: 42, Port: 0})
	if r.Count(Software) != 0 || r.Count(Hardware) != 0 {
		t.Error("expected registry to stay empty")
	}
}

func TestRemoveThenReAddTracksAgain(t *testing.T) {
	r := New(testLogger())
	p := hardwarePort(24, 0, "nanoKEY2", duplexCaps)
	r.AddPort(p)
	r.RemovePort(p.Addr)

	replacement := hardwarePort(24, 1, "nanoKEY2", duplexCaps)
	if !r.AddPort(replacement) {
		t.Error("expected freed slots to accept a replacement endpoint")
	}
	rec, _, _ := r.Owner(replacement.Addr)
	if rec.In == nil || *rec.In != replacement.Addr {
		t.Errorf("expected replacement input %v, got %v", replacement.Addr, rec.In)
	}
}

func TestOwnerSearchesSoftwareFirst(t *testing.T) {
	r := New(testLogger())
	r.AddPort(softwarePort(128, 0, "FluidSynth", duplexCaps))
	r.AddPort(hardwarePort(24, 0, "nanoKEY2", duplexCaps))

	_, role, ok := r.Owner(seq.Addr{Client: 128, Port: 0})
	if !ok || role != Software {
		t.Errorf("expected software owner, got role=%v ok=%v", role, ok)
	}
	_, role, ok = r.Owner(seq.Addr{Client: 24, Port: 0})
	if !ok || role != Hardware {
		t.Errorf("expected hardware owner, got role=%v ok=%v", role, ok)
	}
}

func TestCount(t *testing.T) {
	r := New(testLogger())
	r.AddPort(softwarePort(128, 0, "FluidSynth", duplexCaps))
	r.AddPort(softwarePort(129, 0, "Ardour", duplexCaps))
	r.AddPort(hardwarePort(24, 0, "nanoKEY2", duplexCaps))

	if got := r.Count(Software); got != 2 {
		t.Errorf("expected 2 software clients, got %d", got)
	}
	if got := r.Count(Hardware); got != 1 {
		t.Errorf("expected 1 hardware client, got %d", got)
	}
}
