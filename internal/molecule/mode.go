// Package molecule holds the data model for scheduled audio work: atoms
// (play / record / DTMF actions), molecules (ordered atom sequences with a
// priority and behaviour flags), and the command parser that lowers the
// host's textual command lines into molecules.
package molecule

import "strings"

// Mode is a bitset of molecule behaviour flags. The five interrupt-policy
// flags (Discard, Pause, Mute, Restart, DontInterrupt) are mutually
// exclusive; Loop and DtmfStop are independent.
type Mode uint8

const (
	// ModeDiscard drops the molecule when a higher-priority one preempts it.
	ModeDiscard Mode = 1 << iota

	// ModePause resumes the interrupted molecule at the start of the atom
	// that was playing when it was preempted.
	ModePause

	// ModeMute keeps the molecule's clock running while preempted, as if it
	// had been playing silently; on resume it seeks to where playback would
	// have been.
	ModeMute

	// ModeRestart replays the molecule from its first atom after preemption.
	ModeRestart

	// ModeDontInterrupt shields the running molecule from preemption; new
	// arrivals wait regardless of priority.
	ModeDontInterrupt

	// ModeLoop repeats the molecule from its first atom after the last atom
	// completes, until it is cancelled.
	ModeLoop

	// ModeDtmfStop cancels the molecule when a DTMF digit arrives from the
	// live audio stream while it is running.
	ModeDtmfStop
)

// policyMask covers the mutually exclusive interrupt-policy flags.
const policyMask = ModeDiscard | ModePause | ModeMute | ModeRestart | ModeDontInterrupt

// modeNames maps each flag to its command keyword, in canonical output order.
var modeNames = []struct {
	flag Mode
	name string
}{
	{ModeDiscard, "discard"},
	{ModePause, "pause"},
	{ModeMute, "mute"},
	{ModeRestart, "restart"},
	{ModeDontInterrupt, "dont_interrupt"},
	{ModeLoop, "loop"},
	{ModeDtmfStop, "dtmf_stop"},
}

// Has reports whether all flags in f are set.
func (m Mode) Has(f Mode) bool { return m&f == f }

// Policy returns the interrupt-policy flag, defaulting to [ModeDiscard]
// when none is set.
func (m Mode) Policy() Mode {
	if p := m & policyMask; p != 0 {
		return p
	}
	return ModeDiscard
}

// String returns the set flags as space-separated command keywords.
func (m Mode) String() string {
	var parts []string
	for _, mn := range modeNames {
		if m.Has(mn.flag) {
			parts = append(parts, mn.name)
		}
	}
	if len(parts) == 0 {
		return "discard"
	}
	return strings.Join(parts, " ")
}
