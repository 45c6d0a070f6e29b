package stt

import "time"

// WhisperOptions configure the local whisper.cpp recognizer.
type WhisperOptions struct {
	Language        string        // e.g. "auto", "en", "ru"
	TranslateToEn   bool          // if true, translate non-EN -> EN
	Threads         int           // <=0 => NumCPU()
	InitialPrompt   string        // optional system/prefix prompt
	MaxTokens       uint          // 0 = no limit
	BeamSize        int           // 0 = default (greedy); >0 enables beam search
	SplitOnWord     bool          // split on word boundaries
	Temperature     float32       // 0 = default
	TemperatureStep float32       // 0 = default
	Offset          time.Duration // start offset (optional)
	Duration        time.Duration // max duration (optional)
}
