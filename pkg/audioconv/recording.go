package audioconv

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

type Format string

const (
	FormatWAV    Format = "wav"
	FormatMP3    Format = "mp3"
	FormatFLAC   Format = "flac"
	FormatVorbis Format = "ogg-vorbis"
	FormatOpus   Format = "ogg-opus"
)

// Recording is a fully loaded audio file: mono float32 samples in [-1, 1].
type Recording struct {
	Path       string
	Format     Format
	SampleRate int
	Samples    []float32
}

func (r *Recording) Duration() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(r.Samples)) * time.Second / time.Duration(r.SampleRate)
}

// LINEAR16 returns the samples as signed 16-bit little-endian PCM.
func (r *Recording) LINEAR16() []byte {
	out := make([]byte, 2*len(r.Samples))
	for i, s := range r.Samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(toInt16(s)))
	}
	return out
}

// WAV returns the samples as a 16-bit PCM RIFF/WAVE file.
func (r *Recording) WAV() ([]byte, error) {
	ints := make([]int, len(r.Samples))
	for i, s := range r.Samples {
		ints[i] = int(toInt16(s))
	}

	var mf memFile
	enc := wav.NewEncoder(&mf, r.SampleRate, 16, 1, 1)
	err := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: r.SampleRate},
		Data:           ints,
		SourceBitDepth: 16,
	})
	if err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return mf.buf, nil
}

// Chunks splits the recording into consecutive pieces no longer than max.
// A recording that already fits is returned as the only element.
func (r *Recording) Chunks(max time.Duration) []*Recording {
	per := int(max.Seconds() * float64(r.SampleRate))
	if per <= 0 || len(r.Samples) <= per {
		return []*Recording{r}
	}

	out := make([]*Recording, 0, len(r.Samples)/per+1)
	for off := 0; off < len(r.Samples); off += per {
		end := min(off+per, len(r.Samples))
		out = append(out, &Recording{
			Path:       r.Path,
			Format:     r.Format,
			SampleRate: r.SampleRate,
			Samples:    r.Samples[off:end],
		})
	}
	return out
}

func toInt16(s float32) int16 {
	v := math.Round(clamp(float64(s), -1, 1) * 32767)
	return int16(v)
}

// memFile is the in-memory io.WriteSeeker the wav encoder needs to
// patch its header sizes on Close.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	if need := m.pos + len(p); need > len(m.buf) {
		m.buf = append(m.buf, make([]byte, need-len(m.buf))...)
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, errors.New("memfile: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("memfile: negative position")
	}
	m.pos = int(abs)
	return abs, nil
}
