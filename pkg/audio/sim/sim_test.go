package sim_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/MrWong99/cadenza/pkg/audio"
	"github.com/MrWong99/cadenza/pkg/audio/aufile"
	"github.com/MrWong99/cadenza/pkg/audio/sim"
)

// writeTone writes a short silent 16 kHz mono WAV and returns its path.
func writeTone(t *testing.T, d time.Duration) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	params := audio.StreamParams{SampleRate: 16000, Channels: 1}
	w, err := aufile.NewWriter(path, params)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	samples := int(d.Milliseconds()) * 16
	if err := w.Write(make([]byte, samples*2)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func waitEvent(t *testing.T, ch <-chan audio.CompletionEvent) audio.CompletionEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion")
		return audio.CompletionEvent{}
	}
}

func TestPlayerCompletesAfterDuration(t *testing.T) {
	t.Parallel()
	path := writeTone(t, 50*time.Millisecond)

	done := make(chan audio.CompletionEvent, 1)
	_, err := sim.Player{}.Start(path, 0, "", "", func(ev audio.CompletionEvent) { done <- ev })
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	ev := waitEvent(t, done)
	if ev.Cancelled {
		t.Error("natural end must not be marked cancelled")
	}
	if ev.Duration != 50*time.Millisecond {
		t.Errorf("Duration = %v, want 50ms", ev.Duration)
	}
}

func TestPlayerCloseDeliversCancelled(t *testing.T) {
	t.Parallel()
	path := writeTone(t, 10*time.Second)

	done := make(chan audio.CompletionEvent, 1)
	h, err := sim.Player{}.Start(path, 0, "", "", func(ev audio.CompletionEvent) { done <- ev })
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ev := waitEvent(t, done)
	if !ev.Cancelled {
		t.Error("released playback must report Cancelled")
	}

	// Close is idempotent and delivers no second event.
	if err := h.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	select {
	case <-done:
		t.Error("only one completion event may be delivered")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPlayer_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := sim.Player{}.Start(filepath.Join(t.TempDir(), "nope.wav"), 0, "", "",
		func(audio.CompletionEvent) {})
	if err == nil {
		t.Error("Start of missing file should fail")
	}
}

func TestCaptureWritesValidWav(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "rec.wav")
	params := audio.StreamParams{SampleRate: 16000, Channels: 1}

	done := make(chan audio.CompletionEvent, 1)
	_, err := sim.Capture{}.Start(params, path, 50*time.Millisecond,
		func(ev audio.CompletionEvent) { done <- ev })
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	ev := waitEvent(t, done)
	if ev.Cancelled || ev.Err != nil {
		t.Errorf("event = %+v, want clean silence timeout", ev)
	}

	f, err := aufile.Open(path)
	if err != nil {
		t.Fatalf("recording is not a readable wav: %v", err)
	}
	if f.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", f.SampleRate)
	}
}
