package molecule

import (
	"fmt"
	"strings"
	"time"
)

// Molecule is an ordered sequence of atoms submitted as one command,
// together with its priority, behaviour flags, and execution state.
//
// State fields (Current, Position, timestamps) are owned by the scheduler;
// all mutation happens on the host's serialized scheduler context.
type Molecule struct {
	// Atoms is the non-empty ordered action sequence.
	Atoms []Atom

	// Priority is the lane index, 0 (lowest) .. NumPriorities-1.
	Priority int

	// Mode holds the behaviour flags declared in the command.
	Mode Mode

	// ID is assigned by the queue on enqueue; 0 until then.
	ID uint64

	// Current is the index into Atoms of the atom being executed.
	// Current == len(Atoms) means the molecule is complete.
	Current int

	// Position is the cumulative played duration, used by the Mute and
	// Pause resume logic.
	Position time.Duration

	// TimeStarted and TimeStopped are monotonic stamps of the last
	// dispatch and the last preemption.
	TimeStarted time.Time
	TimeStopped time.Time

	// Preempted marks a molecule that was stopped by a higher-priority
	// arrival and has not been redispatched yet.
	Preempted bool

	// ResumeOffset is the intra-atom offset at which the next dispatch of
	// Atoms[Current] should start. Set by Seek for Mute resumes, cleared
	// on dispatch.
	ResumeOffset time.Duration
}

// Complete reports whether every atom has finished.
func (m *Molecule) Complete() bool { return m.Current >= len(m.Atoms) }

// TotalLength returns the summed length of all atoms.
func (m *Molecule) TotalLength() time.Duration {
	return m.LengthRange(0, len(m.Atoms))
}

// LengthRange returns the summed atom lengths in [start, end).
func (m *Molecule) LengthRange(start, end int) time.Duration {
	var total time.Duration
	for i := start; i < end && i < len(m.Atoms); i++ {
		total += m.Atoms[i].Length
	}
	return total
}

// Rewind resets execution to the first atom, clearing position, resume
// offset, and DTMF cursors. Used by the Restart interrupt policy.
func (m *Molecule) Rewind() {
	m.Current = 0
	m.Position = 0
	m.ResumeOffset = 0
	for i := range m.Atoms {
		m.Atoms[i].Cursor = 0
	}
}

// Seek positions the molecule at the atom and intra-atom offset that
// correspond to the cumulative play position pos. When Loop is set, pos is
// taken modulo the total length. Returns false when pos lies at or past the
// end of a non-looping molecule (nothing left to play).
//
// For DTMF atoms the intra-atom offset snaps down to a digit boundary —
// digits are indivisible. Record atoms restart from the beginning; a
// recording cannot be resumed mid-take.
func (m *Molecule) Seek(pos time.Duration) bool {
	total := m.TotalLength()
	if total <= 0 {
		return false
	}
	if m.Mode.Has(ModeLoop) {
		pos %= total
	} else if pos >= total {
		return false
	}

	var cum time.Duration
	for i := range m.Atoms {
		a := &m.Atoms[i]
		if pos < cum+a.Length {
			intra := pos - cum
			m.Current = i
			m.Position = pos
			switch a.Kind {
			case KindDTMF:
				a.Cursor = int(intra / a.DigitLength())
				m.ResumeOffset = 0
			case KindRecord:
				m.ResumeOffset = 0
			default:
				m.ResumeOffset = intra
			}
			return true
		}
		cum += a.Length
	}
	return false
}

// Describe round-trips the molecule to its textual command form. Optional
// atom parameters are emitted only when they differ from their defaults, so
// parsing the result yields an equal molecule.
func (m *Molecule) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s", m.Priority, m.Mode)
	for i := range m.Atoms {
		a := &m.Atoms[i]
		switch a.Kind {
		case KindPlay:
			fmt.Fprintf(&b, " p %s", a.Filename)
			if a.Offset > 0 {
				fmt.Fprintf(&b, " %d", a.Offset.Milliseconds())
			}
		case KindRecord:
			fmt.Fprintf(&b, " r %s", a.Filename)
			if a.MaxSilence != DefaultMaxSilence {
				fmt.Fprintf(&b, " %d", a.MaxSilence.Milliseconds())
			}
		case KindDTMF:
			fmt.Fprintf(&b, " d %s", a.Digits)
			if a.InterDigitDelay != DefaultInterDigitDelay {
				fmt.Fprintf(&b, " %d", a.InterDigitDelay.Milliseconds())
			}
		}
	}
	return b.String()
}
