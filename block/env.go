package block

import (
	"io"
	"math"
)

// Default environment values.
const (
	DefaultSampleRate = 1000000
	DefaultFreqOffset = 250000
	DefaultAudioRate  = 48000
	DefaultAudioMult  = 5
	DefaultBufferSize = 8192
)

type (
	// Env is the configuration shared by all blocks of the registry and
	// the live update mappings.
	Env struct {
		// SampleRate of the tuner.
		SampleRate int
		// FreqOffset is the distance between the station and the tuner
		// center frequency. It keeps the station away from the DC spike.
		FreqOffset float64
		// AudioRate is the sample rate of audio sinks.
		AudioRate int
		// AudioMult is the oversampling factor of the demodulated audio.
		AudioMult int
		// BufferSize is the number of samples read by sources per call.
		BufferSize int

		Tuner     TunerOpener
		Audio     AudioOpener
		Playback  PlaybackOpener
		Recording RecordingOpener
	}

	// Tuner is a radio receiver.
	Tuner interface {
		// Tune sets center frequency in Hz.
		Tune(freq float64) error
		// SetGain sets gain in dB.
		SetGain(gain float64) error
		// Read reads I/Q samples into buffer.
		Read(buf []complex64) (int, error)
		Close() error
	}

	// TunerOpener opens a tuner with provided sample rate.
	TunerOpener func(sampleRate int) (Tuner, error)

	// AudioWriter plays real samples.
	AudioWriter interface {
		Write(samples []float32) error
		Close() error
	}

	// AudioOpener opens an audio writer with provided sample rate and
	// number of channels.
	AudioOpener func(sampleRate, channels int) (AudioWriter, error)

	// PlaybackOpener opens a wav stream with recorded I/Q samples.
	PlaybackOpener func() (io.ReadSeekCloser, error)

	// RecordingOpener opens a destination for recorded audio.
	RecordingOpener func() (WriteSeekCloser, error)

	// WriteSeekCloser is a destination of wav encoder.
	WriteSeekCloser interface {
		io.WriteSeeker
		io.Closer
	}
)

// DefaultEnv returns the environment with simulated tuner and discarded
// audio.
func DefaultEnv() Env {
	return Env{
		SampleRate: DefaultSampleRate,
		FreqOffset: DefaultFreqOffset,
		AudioRate:  DefaultAudioRate,
		AudioMult:  DefaultAudioMult,
		BufferSize: DefaultBufferSize,
		Tuner:      (&Simulator{Station: 90900000}).Open,
		Audio:      Discard,
	}
}

// TunerFrequency returns the center frequency the tuner is set to for
// the requested station frequency.
func (env Env) TunerFrequency(freq float64) float64 {
	return freq + env.FreqOffset
}

// ShiftPhase returns the phase increment in radians per sample that
// moves the station back to zero frequency.
func (env Env) ShiftPhase() float64 {
	return 2 * math.Pi * env.FreqOffset / float64(env.SampleRate)
}

// Mapping returns the function applied to live updates of the field
// before they are delivered to the running block. The same function is
// used when the block is instantiated.
func (k Kind) Mapping(env Env, field string) func(float64) float64 {
	if k == SoapySDR && field == "freq" {
		return env.TunerFrequency
	}
	return identity
}

func identity(v float64) float64 {
	return v
}
