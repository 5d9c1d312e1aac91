// Package sim provides wall-clock simulated implementations of
// [audio.Player] and [audio.Capture] for development and demos: playback
// "runs" for the real duration of the file without touching a device, and
// recording produces a valid (empty) WAV file after its silence timeout.
//
// Completions fire from timer goroutines, mirroring how a host media stack
// delivers them off the device thread.
package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/MrWong99/cadenza/pkg/audio"
	"github.com/MrWong99/cadenza/pkg/audio/aufile"
)

// Player is a simulated [audio.Player]. Start opens the file to learn its
// duration and completes after the remaining play time has elapsed.
type Player struct{}

// Start implements [audio.Player].
func (Player) Start(filename string, offset time.Duration, _, _ string, done audio.CompletionFunc) (audio.PlayHandle, error) {
	f, err := aufile.Open(filename)
	if err != nil {
		return nil, err
	}
	remaining := f.Duration() - offset
	if remaining < 0 {
		remaining = 0
	}

	h := &handle{}
	h.timer = time.AfterFunc(remaining, func() {
		if h.claim() {
			done(audio.CompletionEvent{Duration: remaining})
		}
	})
	h.onClose = func(elapsed time.Duration) {
		done(audio.CompletionEvent{Cancelled: true, Duration: elapsed})
	}
	h.started = time.Now()
	return h, nil
}

// Capture is a simulated [audio.Capture]. Start creates the output WAV
// file and completes after the silence timeout, as if the line went quiet
// immediately.
type Capture struct{}

// Start implements [audio.Capture].
func (Capture) Start(params audio.StreamParams, filename string, maxSilence time.Duration, done audio.CompletionFunc) (audio.RecordHandle, error) {
	w, err := aufile.NewWriter(filename, params)
	if err != nil {
		return nil, err
	}

	h := &handle{}
	h.timer = time.AfterFunc(maxSilence, func() {
		if !h.claim() {
			return
		}
		if err := w.Close(); err != nil {
			done(audio.CompletionEvent{Err: fmt.Errorf("sim: finalise recording: %w", err)})
			return
		}
		done(audio.CompletionEvent{Duration: w.Duration()})
	})
	h.onClose = func(elapsed time.Duration) {
		_ = w.Close()
		done(audio.CompletionEvent{Cancelled: true, Duration: w.Duration()})
	}
	h.started = time.Now()
	return h, nil
}

// handle implements both handle interfaces over one completion timer.
// Whichever of the timer and Close claims the handle first delivers the
// single completion event.
type handle struct {
	mu      sync.Mutex
	timer   *time.Timer
	onClose func(elapsed time.Duration)
	started time.Time
	fired   bool
}

// claim marks the completion as delivered. Returns false if it already was.
func (h *handle) claim() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fired {
		return false
	}
	h.fired = true
	return true
}

// Close implements [audio.PlayHandle] and [audio.RecordHandle]. The
// cancelled completion is delivered asynchronously, never from inside
// Close itself.
func (h *handle) Close() error {
	if !h.claim() {
		return nil
	}
	h.timer.Stop()
	elapsed := time.Since(h.started)
	go h.onClose(elapsed)
	return nil
}
