// Package sched implements the preemption-and-resumption engine that runs
// molecules against a call's shared playback and capture devices.
//
// One Scheduler exists per call; the host creates it at call setup and
// closes it at teardown. All entry points are invoked either from the
// host's command context or from the audio subsystem's completion
// trampoline, which the host serializes onto one logical execution
// context. Each entry point runs to completion, starts at most one audio
// operation, and returns — there are no suspension points.
package sched

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/cadenza/internal/molecule"
	"github.com/MrWong99/cadenza/internal/observe"
	"github.com/MrWong99/cadenza/internal/vqueue"
	"github.com/MrWong99/cadenza/pkg/audio"
)

// tracerName is the instrumentation scope for scheduler spans.
const tracerName = "github.com/MrWong99/cadenza/internal/sched"

// ErrClosed is returned by Submit after the scheduler has been closed.
var ErrClosed = errors.New("sched: scheduler closed")

// Config carries the call-level audio settings the scheduler dispatches
// with.
type Config struct {
	// AudioPath is the directory holding prompt and DTMF tone files.
	AudioPath string

	// Params is the capture stream format used for Record atoms.
	Params audio.StreamParams

	// AlertModule and AlertDevice select the host playback device.
	AlertModule string
	AlertDevice string
}

// Option configures a [Scheduler] during construction.
type Option func(*Scheduler)

// WithClock replaces the monotonic time source. Tests use this to drive
// mute/pause position accounting deterministically.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithMetrics replaces the metrics sink. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithFileInfo replaces the file-duration probe used by the command parser.
// Defaults to opening the file through the aufile reader.
func WithFileInfo(fi molecule.FileInfo) Option {
	return func(s *Scheduler) { s.parser.Files = fi }
}

// Scheduler owns one call's molecule queue and its in-flight audio
// handles. All exported methods are safe for concurrent use; internally
// every event runs under one mutex, matching the host's serialized
// dispatch model.
type Scheduler struct {
	player  audio.Player
	capture audio.Capture
	cfg     Config

	mu      sync.Mutex
	queue   *vqueue.Queue
	parser  molecule.Parser
	running *molecule.Molecule
	curPlay audio.PlayHandle
	curRec  audio.RecordHandle
	seq     uint64 // dispatch generation; completions from older dispatches are stale
	closed  bool

	now     func() time.Time
	metrics *observe.Metrics
	tracer  trace.Tracer
}

// New creates a scheduler for one call over the given devices.
func New(player audio.Player, capture audio.Capture, cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		player:  player,
		capture: capture,
		cfg:     cfg,
		queue:   vqueue.New(),
		parser:  molecule.Parser{AudioPath: cfg.AudioPath},
		now:     time.Now,
		tracer:  otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.parser.Files == nil {
		s.parser.Files = aufileDuration
	}
	return s
}

// Submit parses line and enqueues the resulting molecule. Returns the
// assigned id (≥ 1), or an error when the line is rejected — the queue is
// never mutated on a parse failure.
func (s *Scheduler) Submit(line string) (uint64, error) {
	m, err := s.parser.Parse(line)
	if err != nil {
		s.metrics.RecordParseFailure(context.Background(), parseErrorKind(err))
		return 0, err
	}
	return s.Enqueue(m)
}

// Enqueue appends m to its priority lane and runs the scheduling decision:
// a strictly higher-priority arrival preempts the running molecule unless
// that molecule declared dont_interrupt.
func (s *Scheduler) Enqueue(m *molecule.Molecule) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	id := s.queue.Enqueue(m)
	s.metrics.RecordEnqueue(context.Background(), m.Priority)
	slog.Debug("molecule enqueued", "id", id, "priority", m.Priority, "command", m.Describe())

	if cur := s.running; cur != nil {
		if cur.Mode.Has(molecule.ModeDontInterrupt) || m.Priority <= cur.Priority {
			return id, nil
		}
		s.preempt(cur)
	}
	s.step()
	return id, nil
}

// Cancel removes the molecule with the given id. Unknown ids are a silent
// no-op. If the molecule is running, its audio handle is released and the
// next candidate is dispatched.
func (s *Scheduler) Cancel(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.queue.Cancel(id)
	if m == nil {
		return
	}
	s.metrics.RecordRemoval(context.Background(), false)
	slog.Debug("molecule cancelled", "id", id)
	if m == s.running {
		s.release()
		s.step()
	}
}

// CancelPriority discards every molecule in lane p. Out-of-range
// priorities are a silent no-op.
func (s *Scheduler) CancelPriority(p int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := s.queue.CancelPriority(p)
	for range dropped {
		s.metrics.RecordRemoval(context.Background(), false)
	}
	if len(dropped) == 0 {
		return
	}
	slog.Debug("priority lane cancelled", "priority", p, "dropped", len(dropped))
	for _, m := range dropped {
		if m == s.running {
			s.release()
			s.step()
			break
		}
	}
}

// OnDigit delivers a DTMF digit detected on the live audio stream. If the
// running molecule declared dtmf_stop, it is cancelled and the next
// candidate is dispatched; otherwise the digit is ignored.
func (s *Scheduler) OnDigit(digit rune) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.running
	if m == nil || !m.Mode.Has(molecule.ModeDtmfStop) {
		return
	}
	slog.Debug("dtmf_stop triggered", "id", m.ID, "digit", string(digit))
	s.release()
	s.queue.Discard(m)
	s.metrics.RecordRemoval(context.Background(), false)
	s.step()
}

// Close releases any in-flight audio handle and discards all queued
// molecules. Subsequent events are no-ops. Idempotent.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.release()
	for p := range molecule.NumPriorities {
		for range s.queue.CancelPriority(p) {
			s.metrics.RecordRemoval(context.Background(), false)
		}
	}
	return nil
}

// QueueLen returns the number of queued molecules, for host inspection.
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// preempt stops the running molecule and applies its interrupt policy.
// Caller holds s.mu.
func (s *Scheduler) preempt(cur *molecule.Molecule) {
	now := s.now()
	cur.TimeStopped = now
	cur.Position += now.Sub(cur.TimeStarted)
	s.release()

	policy := cur.Mode.Policy()
	switch policy {
	case molecule.ModeDiscard:
		s.queue.Discard(cur)
		s.metrics.RecordRemoval(context.Background(), false)
	case molecule.ModeRestart:
		cur.Rewind()
	case molecule.ModePause:
		// Latched: replay the same atom from its beginning on resume.
		cur.ResumeOffset = 0
		cur.Atoms[cur.Current].Cursor = 0
	case molecule.ModeMute:
		// The clock keeps running while preempted; step seeks on resume.
		cur.Preempted = true
	}
	s.metrics.RecordPreemption(context.Background(), policy.String())
	slog.Debug("molecule preempted", "id", cur.ID, "policy", policy.String(), "position", cur.Position)
}

// release closes and forgets the in-flight handles and invalidates their
// pending completions. Caller holds s.mu.
func (s *Scheduler) release() {
	s.seq++
	if s.curPlay != nil {
		_ = s.curPlay.Close()
		s.curPlay = nil
	}
	if s.curRec != nil {
		_ = s.curRec.Close()
		s.curRec = nil
	}
	s.running = nil
}

// step selects the next molecule and dispatches its current atom. It loops
// only when a candidate is dropped (mute overshoot or device start
// failure); every other path starts exactly one audio operation or finds
// the queue empty. Caller holds s.mu.
func (s *Scheduler) step() {
	for {
		m := s.queue.Next()
		if m == nil {
			return
		}

		// A muted molecule kept "playing" silently while preempted; skip
		// to where it would be now, or drop it if it ran off the end.
		if m.Preempted && m.Mode.Policy() == molecule.ModeMute {
			m.Preempted = false
			elapsed := s.now().Sub(m.TimeStopped)
			if !m.Seek(m.Position + elapsed) {
				slog.Debug("muted molecule ran out while preempted", "id", m.ID)
				s.queue.Discard(m)
				s.metrics.RecordRemoval(context.Background(), false)
				continue
			}
		}
		m.Preempted = false

		if s.dispatch(m) {
			return
		}
	}
}

// dispatch starts the audio operation for m's current atom. Returns false
// when the device start failed; the molecule has then been dropped and the
// caller retries with the next candidate. Caller holds s.mu.
func (s *Scheduler) dispatch(m *molecule.Molecule) bool {
	atom := &m.Atoms[m.Current]
	s.seq++
	done := s.completion(m.ID, s.seq)

	_, span := s.tracer.Start(context.Background(), "sched.dispatch",
		trace.WithAttributes(
			attribute.String("atom", atom.Kind.String()),
			attribute.Int("priority", m.Priority),
		))
	defer span.End()

	var err error
	switch atom.Kind {
	case molecule.KindPlay:
		offset := atom.Offset + m.ResumeOffset
		s.curPlay, err = s.player.Start(atom.Filename, offset, s.cfg.AlertModule, s.cfg.AlertDevice, done)

	case molecule.KindDTMF:
		file := s.digitFile(atom.Digits[atom.Cursor])
		s.curPlay, err = s.player.Start(file, 0, s.cfg.AlertModule, s.cfg.AlertDevice, done)

	case molecule.KindRecord:
		s.curRec, err = s.capture.Start(s.cfg.Params, atom.Filename, atom.MaxSilence, done)
	}
	m.ResumeOffset = 0

	if err != nil {
		span.RecordError(err)
		slog.Error("audio start failed, dropping molecule",
			"id", m.ID, "atom", atom.Kind.String(), "err", err)
		s.metrics.RecordStartFailure(context.Background(), atom.Kind.String())
		s.release()
		s.queue.Discard(m)
		s.metrics.RecordRemoval(context.Background(), false)
		return false
	}

	s.running = m
	m.TimeStarted = s.now()
	s.metrics.RecordDispatch(context.Background(), atom.Kind.String())
	return true
}

// completion builds the trampoline for one dispatch. The id pins the
// molecule and the generation detects stale events from released handles.
func (s *Scheduler) completion(id, seq uint64) audio.CompletionFunc {
	return func(ev audio.CompletionEvent) {
		s.onComplete(id, seq, ev)
	}
}

// onComplete handles the end of the in-flight atom: advance the cursor or
// digit, record timing, remove terminally completed molecules, and
// dispatch the next candidate.
func (s *Scheduler) onComplete(id, seq uint64, ev audio.CompletionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || seq != s.seq {
		return
	}
	m := s.running
	if m == nil || m.ID != id {
		return
	}

	s.curPlay = nil
	s.curRec = nil
	s.running = nil

	atom := &m.Atoms[m.Current]
	s.metrics.RecordAtomDuration(context.Background(), atom.Kind.String(), s.now().Sub(m.TimeStarted))

	if ev.Err != nil {
		// The device already stopped; treat as a normal completion.
		slog.Warn("audio completion reported error", "id", m.ID, "atom", atom.Kind.String(), "err", ev.Err)
	}

	if ev.Cancelled {
		// Host-side stop: the atom did not finish; keep the cursor and let
		// selection decide what runs next.
		s.step()
		return
	}

	switch atom.Kind {
	case molecule.KindRecord:
		atom.Length = ev.Duration
		slog.Info("recording finished", "file", atom.Filename, "duration", ev.Duration)

	case molecule.KindDTMF:
		atom.Cursor++
		if atom.Cursor < len(atom.Digits) {
			m.Position = m.LengthRange(0, m.Current) + time.Duration(atom.Cursor)*atom.DigitLength()
			s.step()
			return
		}
		atom.Cursor = 0
	}

	m.Position = m.LengthRange(0, m.Current+1)

	if m.Mode.Has(molecule.ModeLoop) && m.Current+1 == len(m.Atoms) {
		m.Rewind()
	} else {
		m.Current++
		if m.Complete() {
			s.queue.Discard(m)
			s.metrics.RecordRemoval(context.Background(), true)
			slog.Debug("molecule completed", "id", m.ID)
		}
	}
	s.step()
}

// digitFile maps a DTMF digit to its tone file under the audio path.
func (s *Scheduler) digitFile(d byte) string {
	var name string
	switch d {
	case '*':
		name = "soundstar.wav"
	case '#':
		name = "soundroute.wav"
	default:
		name = fmt.Sprintf("sound%c.wav", d)
	}
	if s.cfg.AudioPath == "" {
		return name
	}
	return filepath.Join(s.cfg.AudioPath, name)
}

// parseErrorKind maps a parser error to its metrics attribute.
func parseErrorKind(err error) string {
	switch {
	case errors.Is(err, molecule.ErrInvalidPriority):
		return "invalid_priority"
	case errors.Is(err, molecule.ErrConflictingModes):
		return "conflicting_modes"
	case errors.Is(err, molecule.ErrEmptyMolecule):
		return "empty_molecule"
	case errors.Is(err, molecule.ErrBadFile):
		return "bad_file"
	case errors.Is(err, molecule.ErrUnknownToken):
		return "unknown_token"
	default:
		return "other"
	}
}
