package audioconv

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep/flac"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// TargetRate is the sample rate of every loaded Recording.
const TargetRate = 16000

var ErrUnsupportedFormat = errors.New("unsupported audio format")

type Options struct {
	MaxSamples int // 0 = keep everything
}

// LoadFile reads the whole audio file at path into memory as mono 16 kHz
// samples. The file is opened read-only and closed before LoadFile returns.
func LoadFile(ctx context.Context, path string, opt Options) (*Recording, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pcm, format, err := decode(f, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	x := pcm.mono16k()
	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		x = x[:opt.MaxSamples]
	}

	return &Recording{
		Path:       path,
		Format:     format,
		SampleRate: TargetRate,
		Samples:    x,
	}, nil
}

// decoded is interleaved float32 PCM at the source rate.
type decoded struct {
	data       []float32
	channels   int
	sampleRate int
}

func (d decoded) mono16k() []float32 {
	x := d.data
	if d.channels > 1 {
		x = downmixInterleaved(x, d.channels)
	}
	if d.sampleRate != TargetRate {
		x = resampleLinear(x, d.sampleRate, TargetRate)
	}
	return x
}

func decode(f *os.File, ext string) (decoded, Format, error) {
	switch ext {
	case ".wav", ".wave":
		d, err := decodeWAV(f)
		return d, FormatWAV, err
	case ".mp3":
		d, err := decodeMP3(f)
		return d, FormatMP3, err
	case ".flac":
		d, err := decodeFLAC(f)
		return d, FormatFLAC, err
	case ".ogg", ".oga", ".opus":
		return decodeOgg(f)
	}

	// Quick sniff
	br := bufio.NewReader(f)
	magic, _ := br.Peek(4)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return decoded{}, "", err
	}
	switch {
	case string(magic) == "RIFF":
		d, err := decodeWAV(f)
		return d, FormatWAV, err
	case string(magic) == "OggS":
		return decodeOgg(f)
	case string(magic) == "fLaC":
		d, err := decodeFLAC(f)
		return d, FormatFLAC, err
	case len(magic) >= 3 && string(magic[:3]) == "ID3":
		d, err := decodeMP3(f)
		return d, FormatMP3, err
	}
	if ext == "" {
		ext = "no extension"
	}
	return decoded{}, "", fmt.Errorf("%w: %s (supported: wav/mp3/flac/ogg-vorbis[/opus])", ErrUnsupportedFormat, ext)
}

func decodeOgg(f *os.File) (decoded, Format, error) {
	d, err := decodeOggVorbis(f)
	if err == nil {
		return d, FormatVorbis, nil
	}
	if _, e2 := f.Seek(0, io.SeekStart); e2 != nil {
		return decoded{}, "", fmt.Errorf("cannot decode ogg as vorbis: %w", err)
	}
	d, e3 := decodeOggOpus(f)
	if e3 != nil {
		return decoded{}, "", fmt.Errorf("cannot decode ogg as vorbis (%v) or opus: %w", err, e3)
	}
	return d, FormatOpus, nil
}

func decodeWAV(r io.ReadSeeker) (decoded, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return decoded{}, errors.New("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return decoded{}, err
	}
	if pb == nil {
		return decoded{}, errors.New("empty wav")
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}
	// 8-bit PCM is unsigned, silence is 128
	if bd == 8 {
		for i := range pb.Data {
			pb.Data[i] -= 128
		}
	}

	d := decoded{
		data:       intSliceToFloat32(pb.Data, bd),
		channels:   1,
		sampleRate: 44100,
	}
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			d.channels = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			d.sampleRate = pb.Format.SampleRate
		}
	}
	return d, nil
}

func decodeMP3(r io.Reader) (decoded, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return decoded{}, err
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return decoded{}, err
	}
	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return decoded{}, err
	}

	sr := dec.SampleRate()
	if sr <= 0 {
		sr = 44100
	}
	// go-mp3 always outputs 16-bit stereo
	return decoded{data: int16SliceToFloat32(ints), channels: 2, sampleRate: sr}, nil
}

func decodeOggVorbis(r io.Reader) (decoded, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return decoded{}, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return decoded{}, errors.New("invalid ogg/vorbis stream")
	}
	return decoded{data: pcm, channels: format.Channels, sampleRate: format.SampleRate}, nil
}

func decodeFLAC(r io.Reader) (d decoded, err error) {
	s, format, err := flac.Decode(r)
	if err != nil {
		return decoded{}, err
	}
	defer s.Close()

	// beep panics on sample depths it has no conversion for (e.g. 20-bit)
	defer func() {
		if p := recover(); p != nil {
			d, err = decoded{}, fmt.Errorf("flac: %v", p)
		}
	}()

	// beep always streams stereo frames, mono sources are duplicated on both sides
	channels := min(max(format.NumChannels, 1), 2)
	var (
		out []float32
		buf = make([][2]float64, 4096)
	)
	for {
		n, ok := s.Stream(buf)
		for i := 0; i < n; i++ {
			out = append(out, float32(buf[i][0]))
			if channels == 2 {
				out = append(out, float32(buf[i][1]))
			}
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil && !errors.Is(err, io.EOF) {
		return decoded{}, err
	}
	return decoded{data: out, channels: channels, sampleRate: int(format.SampleRate)}, nil
}

// helpers

func intSliceToFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		out[i] = float32(clamp(float64(v)*scale, -1.0, 1.0))
	}
	return out
}

func int16SliceToFloat32(data []int16) []float32 {
	out := make([]float32, len(data))
	const scale = 1.0 / 32768.0
	for i, v := range data {
		out[i] = float32(float64(v) * scale)
	}
	return out
}

func downmixInterleaved(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	nFrames := len(in) / channels
	out := make([]float32, nFrames)
	for i := 0; i < nFrames; i++ {
		sum := 0.0
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += float64(in[base+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

func resampleLinear(in []float32, inSR, outSR int) []float32 {
	if inSR == outSR || len(in) == 0 {
		return in
	}
	ratio := float64(outSR) / float64(inSR)
	outN := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, outN)
	for i := 0; i < outN; i++ {
		src := float64(i) / ratio
		i0 := int(math.Floor(src))
		i1 := i0 + 1
		if i0 >= len(in) {
			out[i] = in[len(in)-1]
			continue
		}
		if i1 >= len(in) {
			out[i] = in[i0]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i1]*a
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
