// Package aufile reads and writes the audio files the scheduler plays and
// records. Input files are RIFF/WAV containers carrying 16-bit LE PCM or
// companded G.711 (A-law / µ-law) payloads; companded payloads are widened
// to 16-bit LE PCM on read. Output files are always 16-bit LE PCM WAV at
// the capture format of the call.
package aufile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/zaf/g711"

	"github.com/MrWong99/cadenza/pkg/audio"
)

// WAV format tags we accept. Anything else is rejected on open.
const (
	formatPCM  = 1
	formatAlaw = 6
	formatUlaw = 7
)

// ErrUnsupportedFormat is returned when a WAV file carries a codec other
// than 16-bit LE PCM or G.711.
var ErrUnsupportedFormat = errors.New("aufile: unsupported wav format")

// File is a fully decoded audio file. The payload is held widened to
// 16-bit LE PCM at the file's native sample rate and channel count.
type File struct {
	Path       string
	SampleRate int
	Channels   int

	pcm []byte // 16-bit LE PCM, interleaved
}

// Open reads and decodes the WAV file at path. G.711 payloads are widened
// to 16-bit LE PCM. The whole payload is decoded eagerly — prompt files are
// short and the scheduler needs the duration before the first dispatch.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("aufile: open %q: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("aufile: %q is not a valid wav file", path)
	}

	af := &File{
		Path:       path,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
	}
	if af.SampleRate <= 0 || af.Channels <= 0 {
		return nil, fmt.Errorf("aufile: %q has invalid format %dHz/%dch", path, af.SampleRate, af.Channels)
	}

	switch dec.WavAudioFormat {
	case formatPCM:
		if dec.BitDepth != 16 {
			return nil, fmt.Errorf("aufile: %q: %d-bit pcm: %w", path, dec.BitDepth, ErrUnsupportedFormat)
		}
		buf, err := dec.FullPCMBuffer()
		if err != nil {
			return nil, fmt.Errorf("aufile: decode %q: %w", path, err)
		}
		af.pcm = make([]byte, len(buf.Data)*2)
		for i, s := range buf.Data {
			af.pcm[i*2] = byte(s)
			af.pcm[i*2+1] = byte(s >> 8)
		}

	case formatAlaw, formatUlaw:
		if err := dec.FwdToPCM(); err != nil {
			return nil, fmt.Errorf("aufile: decode %q: %w", path, err)
		}
		raw, err := io.ReadAll(dec.PCMChunk)
		if err != nil {
			return nil, fmt.Errorf("aufile: read %q: %w", path, err)
		}
		if dec.WavAudioFormat == formatAlaw {
			af.pcm = g711.DecodeAlaw(raw)
		} else {
			af.pcm = g711.DecodeUlaw(raw)
		}

	default:
		return nil, fmt.Errorf("aufile: %q format tag %d: %w", path, dec.WavAudioFormat, ErrUnsupportedFormat)
	}

	return af, nil
}

// Duration returns the playable length of the file.
func (f *File) Duration() time.Duration {
	bytesPerSec := f.SampleRate * f.Channels * 2
	if bytesPerSec == 0 {
		return 0
	}
	return time.Duration(len(f.pcm)) * time.Second / time.Duration(bytesPerSec)
}

// PCM returns the payload converted to the requested stream format.
// Channel conversion and mono resampling are applied as needed; a sample
// rate change on multi-channel data is refused because the playback path
// only carries mono call audio.
func (f *File) PCM(params audio.StreamParams) ([]byte, error) {
	pcm := f.pcm
	channels := f.Channels

	if channels == 2 && params.Channels == 1 {
		pcm = audio.StereoToMono(pcm)
		channels = 1
	}
	if f.SampleRate != params.SampleRate {
		if channels != 1 {
			return nil, fmt.Errorf("aufile: cannot resample %d-channel audio %d→%dHz", channels, f.SampleRate, params.SampleRate)
		}
		pcm = audio.ResampleMono16(pcm, f.SampleRate, params.SampleRate)
	}
	if channels == 1 && params.Channels == 2 {
		pcm = audio.MonoToStereo(pcm)
	}
	return pcm, nil
}

// Writer creates a 16-bit LE PCM WAV file incrementally. Used by the
// capture path: the recording device appends PCM as it arrives and Close
// finalises the RIFF headers.
type Writer struct {
	path    string
	file    *os.File
	enc     *wav.Encoder
	params  audio.StreamParams
	written int // payload bytes
	closed  bool
}

// NewWriter creates (truncating) the WAV file at path with the given
// stream format.
func NewWriter(path string, params audio.StreamParams) (*Writer, error) {
	if params.SampleRate <= 0 || params.Channels <= 0 {
		return nil, fmt.Errorf("aufile: invalid stream params %dHz/%dch", params.SampleRate, params.Channels)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("aufile: create %q: %w", path, err)
	}
	return &Writer{
		path:   path,
		file:   f,
		enc:    wav.NewEncoder(f, params.SampleRate, 16, params.Channels, formatPCM),
		params: params,
	}, nil
}

// Write appends 16-bit LE PCM to the file. Partial trailing bytes (odd
// length) are dropped.
func (w *Writer) Write(pcm []byte) error {
	if w.closed {
		return fmt.Errorf("aufile: write to closed writer %q", w.path)
	}
	n := len(pcm) / 2
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: w.params.Channels, SampleRate: w.params.SampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, n),
	}
	for i := range n {
		buf.Data[i] = int(int16(pcm[i*2]) | int16(pcm[i*2+1])<<8)
	}
	if err := w.enc.Write(buf); err != nil {
		return fmt.Errorf("aufile: write %q: %w", w.path, err)
	}
	w.written += n * 2
	return nil
}

// Duration returns the duration of the payload written so far.
func (w *Writer) Duration() time.Duration {
	bytesPerSec := w.params.SampleRate * w.params.Channels * 2
	if bytesPerSec == 0 {
		return 0
	}
	return time.Duration(w.written) * time.Second / time.Duration(bytesPerSec)
}

// Close finalises the RIFF headers and closes the file. Idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	encErr := w.enc.Close()
	fileErr := w.file.Close()
	if encErr != nil {
		return fmt.Errorf("aufile: finalise %q: %w", w.path, encErr)
	}
	return fileErr
}
