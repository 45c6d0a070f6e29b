//go:build opus

package audioconv

import (
	"bytes"
	"io"

	popus "github.com/pekim/opus"
)

func decodeOggOpus(r io.Reader) (decoded, error) {
	var rs io.ReadSeeker
	switch v := r.(type) {
	case io.ReadSeeker:
		rs = v
	default:
		// fallback: buffer into memory
		b, err := io.ReadAll(v)
		if err != nil {
			return decoded{}, err
		}
		rs = bytes.NewReader(b)
	}

	dec, err := popus.NewDecoder(rs)
	if err != nil {
		return decoded{}, err
	}
	defer dec.Destroy()

	ch := dec.ChannelCount()
	if ch <= 0 {
		ch = 1
	}

	// int16 PCM @ 48k, ~0.5s per read
	var (
		pcm48 []float32
		buf   = make([]int16, 48_000*ch/2)
	)
	for {
		n, err := dec.Read(buf) // n = samples per channel
		if n > 0 {
			pcm48 = append(pcm48, int16SliceToFloat32(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return decoded{}, err
		}
	}

	return decoded{data: pcm48, channels: ch, sampleRate: 48000}, nil
}
