package block

import (
	"math"
	"time"

	"github.com/pipelined/esdr/signal"
)

// Simulator is a tuner that receives a single FM station modulated
// with a sine tone.
type Simulator struct {
	// Station frequency in Hz.
	Station float64
	// Tone frequency in Hz, 1 kHz if zero.
	Tone float64
	// Deviation in Hz, 75 kHz if zero.
	Deviation float64
	// Realtime paces reads to the sample rate.
	Realtime bool

	sampleRate int
	center     float64
	gain       float64
	carrier    float64
	tone       float64
	readAt     time.Time
}

// Open returns a copy of the simulator with provided sample rate. It
// implements TunerOpener.
func (s *Simulator) Open(sampleRate int) (Tuner, error) {
	t := *s
	t.sampleRate = sampleRate
	if t.Tone == 0 {
		t.Tone = 1000
	}
	if t.Deviation == 0 {
		t.Deviation = 75000
	}
	return &t, nil
}

// Tune sets center frequency.
func (s *Simulator) Tune(freq float64) error {
	s.center = freq
	return nil
}

// SetGain sets gain in dB.
func (s *Simulator) SetGain(gain float64) error {
	s.gain = gain
	return nil
}

// Center returns current center frequency.
func (s *Simulator) Center() float64 {
	return s.center
}

// Read generates I/Q samples of the station relative to center
// frequency.
func (s *Simulator) Read(buf []complex64) (int, error) {
	if s.Realtime {
		s.pace(len(buf))
	}
	amplitude := math.Pow(10, s.gain/20) / math.Pow(10, 30.0/20)
	rate := float64(s.sampleRate)
	offset := s.Station - s.center
	for i := range buf {
		freq := offset + s.Deviation*math.Sin(s.tone)
		s.tone = math.Mod(s.tone+2*math.Pi*s.Tone/rate, 2*math.Pi)
		s.carrier = math.Mod(s.carrier+2*math.Pi*freq/rate, 2*math.Pi)
		sin, cos := math.Sincos(s.carrier)
		buf[i] = complex(float32(amplitude*cos), float32(amplitude*sin))
	}
	return len(buf), nil
}

// pace sleeps until previous buffer would be received by a real device.
func (s *Simulator) pace(samples int) {
	if !s.readAt.IsZero() {
		time.Sleep(time.Until(s.readAt))
	} else {
		s.readAt = time.Now()
	}
	s.readAt = s.readAt.Add(signal.DurationOf(s.sampleRate, int64(samples)))
}

// Close does nothing.
func (s *Simulator) Close() error {
	return nil
}

type discard struct{}

// Discard is an audio opener that drops all samples.
func Discard(int, int) (AudioWriter, error) {
	return discard{}, nil
}

func (discard) Write([]float32) error {
	return nil
}

func (discard) Close() error {
	return nil
}
