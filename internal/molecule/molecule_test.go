package molecule_test

import (
	"testing"
	"time"

	"github.com/MrWong99/cadenza/internal/molecule"
)

// buildMolecule parses line against the test file catalogue, failing the
// test on error.
func buildMolecule(t *testing.T, line string) *molecule.Molecule {
	t.Helper()
	m, err := newParser().Parse(line)
	if err != nil {
		t.Fatalf("Parse(%q): %v", line, err)
	}
	return m
}

func TestTotalLength(t *testing.T) {
	t.Parallel()
	m := buildMolecule(t, "0 discard p hello.wav p jingle.wav d 12")
	perDigit := molecule.DTMFTone + molecule.DefaultInterDigitDelay
	want := 2000*time.Millisecond + 1500*time.Millisecond + 2*perDigit
	if got := m.TotalLength(); got != want {
		t.Errorf("TotalLength = %v, want %v", got, want)
	}
	if got := m.LengthRange(1, 2); got != 1500*time.Millisecond {
		t.Errorf("LengthRange(1,2) = %v, want 1.5s", got)
	}
}

func TestSeek_WithinFirstAtom(t *testing.T) {
	t.Parallel()
	m := buildMolecule(t, "0 mute p hello.wav p jingle.wav")
	if !m.Seek(500 * time.Millisecond) {
		t.Fatal("Seek returned false")
	}
	if m.Current != 0 {
		t.Errorf("Current = %d, want 0", m.Current)
	}
	if m.ResumeOffset != 500*time.Millisecond {
		t.Errorf("ResumeOffset = %v, want 500ms", m.ResumeOffset)
	}
}

func TestSeek_CrossesAtomBoundary(t *testing.T) {
	t.Parallel()
	m := buildMolecule(t, "0 mute p hello.wav p jingle.wav")
	if !m.Seek(2600 * time.Millisecond) {
		t.Fatal("Seek returned false")
	}
	if m.Current != 1 {
		t.Errorf("Current = %d, want 1", m.Current)
	}
	if m.ResumeOffset != 600*time.Millisecond {
		t.Errorf("ResumeOffset = %v, want 600ms", m.ResumeOffset)
	}
}

func TestSeek_PastEndWithoutLoop(t *testing.T) {
	t.Parallel()
	m := buildMolecule(t, "0 mute p hello.wav")
	if m.Seek(2 * time.Second) {
		t.Error("Seek at total length should return false without loop")
	}
	if m.Seek(5 * time.Second) {
		t.Error("Seek past end should return false without loop")
	}
}

func TestSeek_LoopWrapsModulo(t *testing.T) {
	t.Parallel()
	m := buildMolecule(t, "0 loop mute p hello.wav")
	if !m.Seek(4500 * time.Millisecond) {
		t.Fatal("Seek returned false")
	}
	if m.Current != 0 {
		t.Errorf("Current = %d, want 0", m.Current)
	}
	if m.ResumeOffset != 500*time.Millisecond {
		t.Errorf("ResumeOffset = %v, want 500ms (4500 mod 2000)", m.ResumeOffset)
	}
}

func TestSeek_DTMFSnapsToDigit(t *testing.T) {
	t.Parallel()
	m := buildMolecule(t, "0 mute d 1234")
	perDigit := molecule.DTMFTone + molecule.DefaultInterDigitDelay
	if !m.Seek(2*perDigit + perDigit/2) {
		t.Fatal("Seek returned false")
	}
	if m.Atoms[0].Cursor != 2 {
		t.Errorf("Cursor = %d, want 2", m.Atoms[0].Cursor)
	}
	if m.ResumeOffset != 0 {
		t.Errorf("ResumeOffset = %v, want 0 (digits are indivisible)", m.ResumeOffset)
	}
}

func TestRewind(t *testing.T) {
	t.Parallel()
	m := buildMolecule(t, "0 restart p hello.wav d 12")
	m.Current = 1
	m.Position = 2300 * time.Millisecond
	m.Atoms[1].Cursor = 1
	m.Rewind()
	if m.Current != 0 || m.Position != 0 || m.Atoms[1].Cursor != 0 {
		t.Errorf("after Rewind: Current=%d Position=%v Cursor=%d, want zeros",
			m.Current, m.Position, m.Atoms[1].Cursor)
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()
	tests := []string{
		"0 discard p hello.wav",
		"2 mute p music.wav 4000",
		"1 loop p jingle.wav d 123 r take.wav 800",
		"4 dont_interrupt dtmf_stop p long.wav",
		"0 discard d 12*# 60",
	}
	for _, line := range tests {
		m := buildMolecule(t, line)
		got := buildMolecule(t, m.Describe())
		if got.Describe() != m.Describe() {
			t.Errorf("Describe round-trip: %q → %q", m.Describe(), got.Describe())
		}
	}
}

func TestModePolicy(t *testing.T) {
	t.Parallel()
	var m molecule.Mode
	if m.Policy() != molecule.ModeDiscard {
		t.Errorf("default policy = %v, want discard", m.Policy())
	}
	m = molecule.ModeLoop | molecule.ModePause
	if m.Policy() != molecule.ModePause {
		t.Errorf("policy = %v, want pause", m.Policy())
	}
}
