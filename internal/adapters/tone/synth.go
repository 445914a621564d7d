package tone

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/okian/attend/internal/domain/model"
)

// DefaultSampleRate is the PCM sample rate of synthesized tones.
const DefaultSampleRate = 44100

const (
	harmonicRatio = 1.5
	harmonicGain  = 0.4
	peakAmplitude = 32000
)

// Waveform describes the waveform of a tone kind.
type Waveform struct {
	Frequency float64
	Duration  time.Duration
}

// WaveformFor returns the waveform for kind. Distraction tones are longer and
// lower than alert tones.
func WaveformFor(kind Kind) Waveform {
	if kind == model.ToneDistraction {
		return Waveform{Frequency: 523, Duration: 600 * time.Millisecond}
	}
	return Waveform{Frequency: 880, Duration: 350 * time.Millisecond}
}

// Synthesize renders kind as mono 16-bit PCM. The fundamental is blended
// with a quieter fifth and normalized to a fixed peak.
func Synthesize(kind Kind, sampleRate int) []int16 {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	w := WaveformFor(kind)
	n := sampleRate * int(w.Duration/time.Millisecond) / 1000
	wave := make([]float64, n)

	peak := 0.0
	for i := range wave {
		t := float64(i) / float64(sampleRate)
		v := math.Sin(2*math.Pi*w.Frequency*t) +
			harmonicGain*math.Sin(2*math.Pi*w.Frequency*harmonicRatio*t)
		wave[i] = v
		peak = math.Max(peak, math.Abs(v))
	}

	out := make([]int16, n)
	if peak == 0 {
		return out
	}
	for i, v := range wave {
		out[i] = int16(v / peak * peakAmplitude)
	}
	return out
}

// wavHeader is the canonical 44-byte RIFF/WAVE header for mono PCM16.
type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// EncodeWAV writes samples as a mono 16-bit WAV stream.
func EncodeWAV(w io.Writer, samples []int16, sampleRate int) error {
	const bytesPerSample = 2
	dataSize := uint32(len(samples) * bytesPerSample) //nolint:gosec // tones are well under 4GiB
	h := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),                  //nolint:gosec // validated positive
		ByteRate:      uint32(sampleRate * bytesPerSample), //nolint:gosec // validated positive
		BlockAlign:    bytesPerSample,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	return nil
}
