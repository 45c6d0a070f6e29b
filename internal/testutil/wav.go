// Package testutil holds audio fixtures shared by package tests.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

const Rate = 16000

// WriteWAV writes 16-bit mono PCM at Rate to path.
func WriteWAV(t testing.TB, path string, data []int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, Rate, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: Rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

// Tone is n samples of a 220Hz sine loud enough to pass the silence gate.
func Tone(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = int(12000 * math.Sin(2*math.Pi*220*float64(i)/Rate))
	}
	return out
}

// ToneFile writes a short tone to dir/name and returns its path.
func ToneFile(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	WriteWAV(t, path, Tone(Rate/2))
	return path
}

// ToneBytes returns the bytes of a short tone WAV file.
func ToneBytes(t testing.TB) []byte {
	t.Helper()
	data, err := os.ReadFile(ToneFile(t, t.TempDir(), "tone.wav"))
	require.NoError(t, err)
	return data
}
