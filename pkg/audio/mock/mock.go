// Package mock provides in-memory mock implementations of the
// [audio.Player] and [audio.Capture] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every Start call so
// that tests can assert on call counts and arguments, and they expose the
// registered completion callbacks so tests can end an operation at a
// chosen moment.
//
// Completions are never fired by the mock on its own — the test drives
// them explicitly:
//
//	player := &mock.Player{}
//	sched := sched.New(player, capture, cfg)
//	sched.Submit("0 discard p hello.wav")
//	player.Complete(0, audio.CompletionEvent{Duration: 2 * time.Second})
package mock

import (
	"sync"
	"time"

	"github.com/MrWong99/cadenza/pkg/audio"
)

// ─── Player ───────────────────────────────────────────────────────────────────

// PlayCall records the arguments of a single [Player.Start] invocation.
type PlayCall struct {
	// Filename is the file passed to Start.
	Filename string

	// Offset is the intra-file start position passed to Start.
	Offset time.Duration

	// Module and Device identify the requested playback device.
	Module string
	Device string

	// Done is the completion callback registered for this playback.
	Done audio.CompletionFunc

	// Handle is the handle returned to the caller.
	Handle *Handle
}

// Player is a mock implementation of [audio.Player].
// Set StartError before use to make Start fail; inspect Calls afterwards.
type Player struct {
	mu sync.Mutex

	// StartError, when non-nil, is returned by every Start call.
	StartError error

	// Calls records all Start invocations in order.
	Calls []PlayCall
}

// Start implements [audio.Player]. Records the call and returns a fresh
// [Handle] (or StartError).
func (p *Player) Start(filename string, offset time.Duration, module, device string, done audio.CompletionFunc) (audio.PlayHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.StartError != nil {
		return nil, p.StartError
	}
	h := &Handle{}
	p.Calls = append(p.Calls, PlayCall{
		Filename: filename,
		Offset:   offset,
		Module:   module,
		Device:   device,
		Done:     done,
		Handle:   h,
	})
	return h, nil
}

// StartCount returns how many Start calls were recorded.
func (p *Player) StartCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Call returns a copy of the i-th recorded Start call.
func (p *Player) Call(i int) PlayCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Calls[i]
}

// LastCall returns a copy of the most recent Start call.
func (p *Player) LastCall() PlayCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Calls[len(p.Calls)-1]
}

// Complete fires the completion callback registered by the i-th Start call.
func (p *Player) Complete(i int, ev audio.CompletionEvent) {
	p.mu.Lock()
	done := p.Calls[i].Done
	p.mu.Unlock()
	done(ev)
}

// CompleteLast fires the completion callback of the most recent Start call.
func (p *Player) CompleteLast(ev audio.CompletionEvent) {
	p.mu.Lock()
	done := p.Calls[len(p.Calls)-1].Done
	p.mu.Unlock()
	done(ev)
}

// ─── Capture ──────────────────────────────────────────────────────────────────

// RecordCall records the arguments of a single [Capture.Start] invocation.
type RecordCall struct {
	// Params is the stream format passed to Start.
	Params audio.StreamParams

	// Filename is the output file passed to Start.
	Filename string

	// MaxSilence is the silence timeout passed to Start.
	MaxSilence time.Duration

	// Done is the completion callback registered for this recording.
	Done audio.CompletionFunc

	// Handle is the handle returned to the caller.
	Handle *Handle
}

// Capture is a mock implementation of [audio.Capture].
type Capture struct {
	mu sync.Mutex

	// StartError, when non-nil, is returned by every Start call.
	StartError error

	// Calls records all Start invocations in order.
	Calls []RecordCall
}

// Start implements [audio.Capture]. Records the call and returns a fresh
// [Handle] (or StartError).
func (c *Capture) Start(params audio.StreamParams, filename string, maxSilence time.Duration, done audio.CompletionFunc) (audio.RecordHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.StartError != nil {
		return nil, c.StartError
	}
	h := &Handle{}
	c.Calls = append(c.Calls, RecordCall{
		Params:     params,
		Filename:   filename,
		MaxSilence: maxSilence,
		Done:       done,
		Handle:     h,
	})
	return h, nil
}

// StartCount returns how many Start calls were recorded.
func (c *Capture) StartCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

// LastCall returns a copy of the most recent Start call.
func (c *Capture) LastCall() RecordCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls[len(c.Calls)-1]
}

// CompleteLast fires the completion callback of the most recent Start call.
func (c *Capture) CompleteLast(ev audio.CompletionEvent) {
	c.mu.Lock()
	done := c.Calls[len(c.Calls)-1].Done
	c.mu.Unlock()
	done(ev)
}

// ─── Handle ───────────────────────────────────────────────────────────────────

// Handle is a mock play/record handle that counts Close calls.
type Handle struct {
	mu sync.Mutex

	// CloseCount records how many times Close was called.
	CloseCount int

	// CloseError is returned by Close.
	CloseError error
}

// Close implements [audio.PlayHandle] and [audio.RecordHandle].
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.CloseCount++
	return h.CloseError
}

// Closed reports whether Close was called at least once.
func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.CloseCount > 0
}
