package audioconv

import "math"

const (
	FrameSize        = 320   // 20ms @ 16k
	SilenceThreshRMS = 0.015 // tune if needed
)

// IsSilent reports whether no 20ms frame of samples rises above thresh RMS.
// thresh <= 0 selects SilenceThreshRMS.
func IsSilent(samples []float32, thresh float64) bool {
	if thresh <= 0 {
		thresh = SilenceThreshRMS
	}
	for off := 0; off < len(samples); off += FrameSize {
		end := min(off+FrameSize, len(samples))
		if frameRMS(samples[off:end]) > thresh {
			return false
		}
	}
	return true
}

func frameRMS(buf []float32) float64 {
	if len(buf) == 0 {
		return 0
	}
	var sum float64
	for _, v := range buf {
		f := float64(v)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(buf)))
}
