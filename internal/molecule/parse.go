package molecule

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// NumPriorities is the number of priority lanes. Valid molecule priorities
// are 0 .. NumPriorities-1.
const NumPriorities = 5

// Parse errors. Callers match with [errors.Is]; the wrapped message carries
// the offending token or filename.
var (
	// ErrInvalidPriority reports a missing, non-numeric, or out-of-range
	// priority token.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrConflictingModes reports more than one interrupt-policy keyword.
	ErrConflictingModes = errors.New("conflicting interrupt modes")

	// ErrUnknownToken reports a token that fits no grammar production.
	ErrUnknownToken = errors.New("unknown token")

	// ErrEmptyMolecule reports a command with no atoms.
	ErrEmptyMolecule = errors.New("molecule has no atoms")

	// ErrBadFile reports a Play file that could not be opened.
	ErrBadFile = errors.New("cannot open audio file")
)

// FileInfo reports the playable duration of the audio file at path.
// The parser uses it to cache Play atom lengths; a Play atom cannot exist
// without a known length.
type FileInfo func(path string) (time.Duration, error)

// modeKeywords maps command keywords to their flag.
var modeKeywords = map[string]Mode{
	"discard":        ModeDiscard,
	"pause":          ModePause,
	"mute":           ModeMute,
	"restart":        ModeRestart,
	"dont_interrupt": ModeDontInterrupt,
	"loop":           ModeLoop,
	"dtmf_stop":      ModeDtmfStop,
}

// dtmfDigits is the accepted digit alphabet after upper-casing.
const dtmfDigits = "0123456789*#ABCD"

// Parser lowers whitespace-separated command lines into molecules.
//
//	line     := priority mode+ atom+
//	atom     := ("p"|"play") filename [offset_ms]
//	          | ("r"|"record") filename [max_silence_ms]
//	          | ("d"|"dtmf") digits [inter_digit_delay_ms]
//
// An optional numeric parameter is consumed only when the following token
// does not begin with one of the atom-start prefixes p, r, d.
type Parser struct {
	// Files reports Play file durations. Must be non-nil.
	Files FileInfo

	// AudioPath is the directory relative filenames are resolved against.
	// Absolute filenames are used as-is.
	AudioPath string
}

// Parse lowers one command line into a molecule. The returned molecule has
// no ID and zeroed execution state; the caller enqueues it.
func (p *Parser) Parse(line string) (*Molecule, error) {
	toks := strings.Fields(line)
	if len(toks) == 0 {
		return nil, fmt.Errorf("molecule: empty command: %w", ErrInvalidPriority)
	}

	prio, err := strconv.Atoi(toks[0])
	if err != nil || prio < 0 || prio >= NumPriorities {
		return nil, fmt.Errorf("molecule: priority %q must be an integer in [0, %d): %w",
			toks[0], NumPriorities, ErrInvalidPriority)
	}

	m := &Molecule{Priority: prio}
	i := 1

	// Mode keywords accumulate until the first atom keyword.
	for ; i < len(toks); i++ {
		flag, ok := modeKeywords[toks[i]]
		if !ok {
			break
		}
		if flag&policyMask != 0 && m.Mode&policyMask != 0 && m.Mode.Policy() != flag {
			return nil, fmt.Errorf("molecule: %q conflicts with %q: %w",
				toks[i], m.Mode.Policy(), ErrConflictingModes)
		}
		m.Mode |= flag
	}
	if i == 1 {
		if len(toks) == 1 {
			return nil, fmt.Errorf("molecule: %w", ErrEmptyMolecule)
		}
		return nil, fmt.Errorf("molecule: expected mode keyword, got %q: %w", toks[1], ErrUnknownToken)
	}

	// Atoms.
	for i < len(toks) {
		keyword := toks[i]
		i++
		if i >= len(toks) {
			return nil, fmt.Errorf("molecule: %q needs an argument: %w", keyword, ErrUnknownToken)
		}
		arg := toks[i]
		i++

		param, ok, err := p.optionalParam(toks, &i)
		if err != nil {
			return nil, err
		}

		switch keyword {
		case "p", "play":
			path := p.resolve(arg)
			length, err := p.Files(path)
			if err != nil {
				return nil, fmt.Errorf("molecule: %q: %w: %w", path, ErrBadFile, err)
			}
			offset := time.Duration(0)
			if ok {
				offset = time.Duration(param) * time.Millisecond
			}
			if offset > length {
				offset = length
			}
			m.Atoms = append(m.Atoms, Atom{
				Kind:     KindPlay,
				Filename: path,
				Offset:   offset,
				Length:   length - offset,
			})

		case "r", "record":
			silence := DefaultMaxSilence
			if ok {
				silence = time.Duration(param) * time.Millisecond
			}
			m.Atoms = append(m.Atoms, Atom{
				Kind:       KindRecord,
				Filename:   p.resolve(arg),
				MaxSilence: silence,
			})

		case "d", "dtmf":
			digits := strings.ToUpper(arg)
			for _, c := range digits {
				if !strings.ContainsRune(dtmfDigits, c) {
					return nil, fmt.Errorf("molecule: dtmf digit %q: %w", string(c), ErrUnknownToken)
				}
			}
			delay := DefaultInterDigitDelay
			if ok {
				delay = time.Duration(param) * time.Millisecond
			}
			m.Atoms = append(m.Atoms, newDTMF(digits, delay))

		default:
			return nil, fmt.Errorf("molecule: %q: %w", keyword, ErrUnknownToken)
		}
	}

	if len(m.Atoms) == 0 {
		return nil, fmt.Errorf("molecule: %w", ErrEmptyMolecule)
	}
	return m, nil
}

// optionalParam consumes toks[*i] as a numeric parameter if it is present
// and does not begin with an atom-start prefix. A token that looks like a
// parameter but fails to parse is an error.
func (p *Parser) optionalParam(toks []string, i *int) (int, bool, error) {
	if *i >= len(toks) {
		return 0, false, nil
	}
	tok := toks[*i]
	switch tok[0] {
	case 'p', 'r', 'd':
		return 0, false, nil
	}
	n, err := strconv.Atoi(tok)
	if err != nil || n < 0 {
		return 0, false, fmt.Errorf("molecule: parameter %q: %w", tok, ErrUnknownToken)
	}
	*i++
	return n, true, nil
}

// resolve joins a relative filename with the configured audio path.
func (p *Parser) resolve(name string) string {
	if p.AudioPath == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.AudioPath, name)
}
