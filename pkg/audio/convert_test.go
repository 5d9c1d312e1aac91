package audio_test

import (
	"bytes"
	"testing"

	"github.com/MrWong99/cadenza/pkg/audio"
)

func TestMonoToStereo(t *testing.T) {
	t.Parallel()
	mono := []byte{0x01, 0x02, 0x03, 0x04}
	want := []byte{0x01, 0x02, 0x01, 0x02, 0x03, 0x04, 0x03, 0x04}
	if got := audio.MonoToStereo(mono); !bytes.Equal(got, want) {
		t.Errorf("MonoToStereo = %v, want %v", got, want)
	}
}

func TestStereoToMono_Averages(t *testing.T) {
	t.Parallel()
	// L = 100, R = 200 → 150
	stereo := []byte{100, 0, 200, 0}
	got := audio.StereoToMono(stereo)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if v := int16(got[0]) | int16(got[1])<<8; v != 150 {
		t.Errorf("sample = %d, want 150", v)
	}
}

func TestStereoToMono_ClampsOverflow(t *testing.T) {
	t.Parallel()
	// Both channels at int16 min; the average must stay in range.
	stereo := []byte{0x00, 0x80, 0x00, 0x80}
	got := audio.StereoToMono(stereo)
	if v := int16(got[0]) | int16(got[1])<<8; v != -32768 {
		t.Errorf("sample = %d, want -32768", v)
	}
}

func TestResampleMono16_Lengths(t *testing.T) {
	t.Parallel()
	in := make([]byte, 8000*2) // one second at 8 kHz
	up := audio.ResampleMono16(in, 8000, 16000)
	if len(up) != 16000*2 {
		t.Errorf("upsampled = %d bytes, want %d", len(up), 16000*2)
	}
	down := audio.ResampleMono16(in, 8000, 4000)
	if len(down) != 4000*2 {
		t.Errorf("downsampled = %d bytes, want %d", len(down), 4000*2)
	}
}

func TestResampleMono16_SameRateUnchanged(t *testing.T) {
	t.Parallel()
	in := []byte{1, 2, 3, 4}
	if got := audio.ResampleMono16(in, 8000, 8000); !bytes.Equal(got, in) {
		t.Error("same-rate resample should return input unchanged")
	}
}
