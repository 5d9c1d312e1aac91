package molecule

import "time"

// AtomKind tags the variant of an [Atom].
type AtomKind int

const (
	// KindPlay plays an audio file on the call's playback device.
	KindPlay AtomKind = iota

	// KindRecord records the call's capture stream into a file.
	KindRecord

	// KindDTMF plays a sequence of DTMF digits as pre-recorded tone files.
	KindDTMF
)

// String returns the atom kind's command keyword.
func (k AtomKind) String() string {
	switch k {
	case KindPlay:
		return "play"
	case KindRecord:
		return "record"
	case KindDTMF:
		return "dtmf"
	default:
		return "unknown"
	}
}

const (
	// DTMFTone is the fixed audible duration of one DTMF digit.
	DTMFTone = 100 * time.Millisecond

	// DefaultInterDigitDelay is the pause between consecutive DTMF digits
	// when the command does not specify one.
	DefaultInterDigitDelay = 40 * time.Millisecond

	// DefaultMaxSilence is the silence timeout that ends a recording when
	// the command does not specify one.
	DefaultMaxSilence = 500 * time.Millisecond
)

// Atom is one indivisible audio action. The Kind tag selects which fields
// are meaningful; dispatch is by tag, never by interface.
type Atom struct {
	Kind AtomKind

	// Filename is the audio file to play (Play) or to record into (Record).
	Filename string

	// Offset is the intra-file start position of a Play atom as written in
	// the command. Zero for other kinds.
	Offset time.Duration

	// Length is the atom's playable duration. For Play it is cached at
	// parse time from file metadata (file duration minus Offset). For DTMF
	// it is len(Digits) × (tone + inter-digit delay). For Record it is zero
	// until the recording completes.
	Length time.Duration

	// MaxSilence ends a Record atom after this much silence.
	MaxSilence time.Duration

	// Digits is the DTMF digit string over 0-9, *, #, A-D (upper case).
	Digits string

	// InterDigitDelay is the accounting gap between DTMF digits.
	InterDigitDelay time.Duration

	// Cursor is the index of the next DTMF digit to play. The atom is
	// complete when Cursor == len(Digits).
	Cursor int
}

// DigitLength returns the accounting duration of a single DTMF digit:
// the fixed tone plus the configured inter-digit delay.
func (a *Atom) DigitLength() time.Duration {
	return DTMFTone + a.InterDigitDelay
}

// newDTMF builds a DTMF atom with its cached length.
func newDTMF(digits string, delay time.Duration) Atom {
	a := Atom{
		Kind:            KindDTMF,
		Digits:          digits,
		InterDigitDelay: delay,
	}
	a.Length = time.Duration(len(digits)) * a.DigitLength()
	return a
}
