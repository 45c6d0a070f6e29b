package audioconv

import (
	"context"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWAV writes a 16-bit PCM wav file with interleaved samples.
func writeWAV(t *testing.T, path string, rate, channels int, data []int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func sine(n, rate int, freq, amp float64) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = int(amp * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestLoadFile_WAVMono16k(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speech.wav")
	data := []int{0, 16384, -16384, 32767, -32768}
	writeWAV(t, path, 16000, 1, data)

	rec, err := LoadFile(context.Background(), path, Options{})
	require.NoError(t, err)

	assert.Equal(t, FormatWAV, rec.Format)
	assert.Equal(t, TargetRate, rec.SampleRate)
	assert.Equal(t, path, rec.Path)
	require.Len(t, rec.Samples, len(data))
	for i, v := range data {
		assert.InDelta(t, float64(v)/32768.0, rec.Samples[i], 1e-4, "sample %d", i)
	}
}

func TestLoadFile_StereoIsDownmixedAndResampled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	frames := 800
	data := make([]int, 0, frames*2)
	for i := 0; i < frames; i++ {
		data = append(data, 10000, 20000)
	}
	writeWAV(t, path, 8000, 2, data)

	rec, err := LoadFile(context.Background(), path, Options{})
	require.NoError(t, err)

	assert.Len(t, rec.Samples, frames*2)
	assert.InDelta(t, 15000.0/32768.0, rec.Samples[10], 1e-3)
	assert.Equal(t, 100*time.Millisecond, rec.Duration())
}

func TestLoadFile_WAV8BitIsUnsigned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pcm8.wav")
	data := make([]int, 1600)
	for i := range data {
		data[i] = 128
	}
	data[0], data[1] = 0, 255

	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, 16000, 8, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           data,
		SourceBitDepth: 8,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	rec, err := LoadFile(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, rec.Samples, len(data))

	assert.InDelta(t, -1.0, rec.Samples[0], 1e-6)
	assert.InDelta(t, 127.0/128.0, rec.Samples[1], 1e-6)
	assert.Zero(t, rec.Samples[2])
	assert.True(t, IsSilent(rec.Samples[2:], 0))
}

// fixtures are short clips borrowed from the decoders' own test suites.
var fixtures = []struct {
	file     string
	format   Format
	channels int
	rate     int
	duration time.Duration
}{
	{file: "stereo44k.flac", format: FormatFLAC, channels: 2, rate: 44100, duration: 20724 * time.Second / 44100},
	{file: "gunshot48k.mp3", format: FormatMP3, channels: 2, rate: 48000, duration: 1536 * time.Millisecond},
	{file: "mono44k.ogg", format: FormatVorbis, channels: 1, rate: 44100, duration: time.Second},
}

func TestDecode_Fixtures(t *testing.T) {
	for _, tt := range fixtures {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join("testdata", tt.file)

			f, err := os.Open(path)
			require.NoError(t, err)
			defer f.Close()

			d, format, err := decode(f, filepath.Ext(path))
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
			assert.Equal(t, tt.channels, d.channels)
			assert.Equal(t, tt.rate, d.sampleRate)
			require.NotEmpty(t, d.data)
			assert.Zero(t, len(d.data)%d.channels)

			rec, err := LoadFile(context.Background(), path, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.format, rec.Format)
			assert.Equal(t, TargetRate, rec.SampleRate)
			assert.InDelta(t, tt.duration.Seconds(), rec.Duration().Seconds(), 0.03)
			assert.False(t, IsSilent(rec.Samples, 0))
			for i, v := range rec.Samples {
				if v < -1 || v > 1 {
					t.Fatalf("sample %d out of range: %v", i, v)
				}
			}
		})
	}
}

func TestLoadFile_SniffsFixturesWithoutExtension(t *testing.T) {
	dir := t.TempDir()
	id3 := []byte{'I', 'D', '3', 3, 0, 0, 0, 0, 0, 0}

	for _, tt := range fixtures {
		t.Run(tt.file, func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join("testdata", tt.file))
			require.NoError(t, err)
			if tt.format == FormatMP3 {
				data = append(append([]byte(nil), id3...), data...)
			}

			path := filepath.Join(dir, "upload-"+string(tt.format))
			require.NoError(t, os.WriteFile(path, data, 0o644))

			rec, err := LoadFile(context.Background(), path, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.format, rec.Format)
			assert.InDelta(t, tt.duration.Seconds(), rec.Duration().Seconds(), 0.03)
		})
	}
}

func TestLoadFile_SniffsWithoutExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.bin")
	writeWAV(t, path, 16000, 1, sine(1600, 16000, 440, 0.5))

	rec, err := LoadFile(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, FormatWAV, rec.Format)
	assert.Len(t, rec.Samples, 1600)
}

func TestLoadFile_MaxSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.wav")
	writeWAV(t, path, 16000, 1, sine(16000, 16000, 440, 0.5))

	rec, err := LoadFile(context.Background(), path, Options{MaxSamples: 1000})
	require.NoError(t, err)
	assert.Len(t, rec.Samples, 1000)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(context.Background(), filepath.Join(dir, "nope.wav"), Options{})
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("unsupported format", func(t *testing.T) {
		path := filepath.Join(dir, "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("not audio at all"), 0o644))

		_, err := LoadFile(context.Background(), path, Options{})
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("corrupt wav", func(t *testing.T) {
		path := filepath.Join(dir, "broken.wav")
		require.NoError(t, os.WriteFile(path, []byte("RIFFjunkjunkjunk"), 0o644))

		_, err := LoadFile(context.Background(), path, Options{})
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := LoadFile(ctx, filepath.Join(dir, "any.wav"), Options{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoadFile_ReleasesHandle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "speech.wav")
	writeWAV(t, path, 16000, 1, sine(320, 16000, 440, 0.5))

	_, err := LoadFile(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.NoError(t, os.Remove(path))

	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0o644))
	_, err = LoadFile(context.Background(), bad, Options{})
	require.Error(t, err)
	assert.NoError(t, os.Remove(bad))
}

func TestResampleLinear(t *testing.T) {
	in := []float32{0, 1, 0, -1}
	assert.Equal(t, in, resampleLinear(in, 16000, 16000))

	up := resampleLinear(in, 8000, 16000)
	require.Len(t, up, 8)
	assert.InDelta(t, 0.5, up[1], 1e-6)
	assert.InDelta(t, -1, up[7], 1e-6)

	assert.Empty(t, resampleLinear(nil, 8000, 16000))
}

func TestDownmixInterleaved(t *testing.T) {
	assert.Equal(t, []float32{0.5, 0}, downmixInterleaved([]float32{1, 0, 0.5, -0.5}, 2))
	assert.Equal(t, []float32{1, 2}, downmixInterleaved([]float32{1, 2}, 1))
}
