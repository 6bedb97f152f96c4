package block

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/pipelined/esdr/engine"
	"github.com/pipelined/esdr/signal"
)

// ErrNoDevice is returned when block starts without a required device
// opener in the environment.
var ErrNoDevice = errors.New("device is not configured")

// Instantiate returns a new unit of the kind. Scalars must contain
// values of all scalar ports.
func (k Kind) Instantiate(env Env, scalars Scalars) engine.Unit {
	var u engine.Unit
	switch k {
	case SoapySDR:
		u = soapySDR(env, scalars.get(k, "freq"), scalars.get(k, "gain"))
	case Shift:
		u = shift(env.ShiftPhase())
	case Resampler:
		u = complexResampler(env.AudioRate*env.AudioMult, env.SampleRate)
	case FMDemodulator:
		u = fmDemodulator()
	case FilterResampler:
		u = filterResampler(env, scalars.get(k, "cutoff"), scalars.get(k, "transition"))
	case AudioOutput:
		u = audioOutput(env)
	case Volume:
		u = volume(scalars.get(k, "volume"))
	case WavSource:
		u = wavSource(env)
	case WavRecorder:
		u = wavRecorder(env)
	default:
		panic(fmt.Sprintf("instantiate %v", k))
	}
	u.Name = k.String()
	return u
}

func soapySDR(env Env, freq, gain float64) engine.Unit {
	var tuner Tuner
	return engine.Unit{
		Output: signal.Complex,
		StartFunc: func(context.Context) error {
			if env.Tuner == nil {
				return fmt.Errorf("tuner: %w", ErrNoDevice)
			}
			var err error
			if tuner, err = env.Tuner(env.SampleRate); err != nil {
				return fmt.Errorf("open tuner: %w", err)
			}
			if err = tuner.Tune(env.TunerFrequency(freq)); err == nil {
				err = tuner.SetGain(gain)
			}
			if err != nil {
				tuner.Close()
				tuner = nil
				return fmt.Errorf("configure tuner: %w", err)
			}
			return nil
		},
		SourceFunc: func(out signal.Signal) (int, error) {
			return tuner.Read(out.(signal.ComplexBuffer))
		},
		FlushFunc: func(context.Context) error {
			if tuner == nil {
				return nil
			}
			return tuner.Close()
		},
		Messages: []engine.MessagePort{
			{
				Name: "freq",
				Handler: func(value float64) error {
					return tuner.Tune(value)
				},
			},
		},
	}
}

func shift(phase float64) engine.Unit {
	var (
		last = complex64(1)
		add  = complex64(complex(math.Cos(phase), math.Sin(phase)))
	)
	return engine.Unit{
		Input:  signal.Complex,
		Output: signal.Complex,
		ProcessFunc: func(in signal.Signal) (signal.Signal, error) {
			b := in.(signal.ComplexBuffer)
			out := make(signal.ComplexBuffer, len(b))
			for i, v := range b {
				last *= add
				out[i] = last * v
			}
			// keep the rotator on the unit circle
			last /= complex(float32(math.Hypot(float64(real(last)), float64(imag(last)))), 0)
			return out, nil
		},
	}
}

func complexResampler(interp, decim int) engine.Unit {
	d := gcd(interp, decim)
	r := newResampler(interp/d, decim/d, complexTaps(multirateTaps(interp/d, decim/d)))
	return engine.Unit{
		Input:  signal.Complex,
		Output: signal.Complex,
		ProcessFunc: func(in signal.Signal) (signal.Signal, error) {
			return signal.ComplexBuffer(r.process(in.(signal.ComplexBuffer))), nil
		},
	}
}

func fmDemodulator() engine.Unit {
	var last complex64
	return engine.Unit{
		Input:  signal.Complex,
		Output: signal.Real,
		ProcessFunc: func(in signal.Signal) (signal.Signal, error) {
			b := in.(signal.ComplexBuffer)
			out := make(signal.RealBuffer, len(b))
			for i, v := range b {
				d := v * complex(real(last), -imag(last))
				out[i] = float32(math.Atan2(float64(imag(d)), float64(real(d))))
				last = v
			}
			return out, nil
		},
	}
}

func filterResampler(env Env, cutoff, transition float64) engine.Unit {
	rate := float64(env.AudioRate * env.AudioMult)
	taps := lowpass(cutoff/rate, transition/rate, 0.1)
	r := newResampler(1, env.AudioMult, taps)
	return engine.Unit{
		Input:  signal.Real,
		Output: signal.Real,
		ProcessFunc: func(in signal.Signal) (signal.Signal, error) {
			return signal.RealBuffer(r.process(in.(signal.RealBuffer))), nil
		},
	}
}

func audioOutput(env Env) engine.Unit {
	var w AudioWriter
	return engine.Unit{
		Input: signal.Real,
		StartFunc: func(context.Context) error {
			if env.Audio == nil {
				return fmt.Errorf("audio: %w", ErrNoDevice)
			}
			var err error
			if w, err = env.Audio(env.AudioRate, 1); err != nil {
				return fmt.Errorf("open audio: %w", err)
			}
			return nil
		},
		SinkFunc: func(in signal.Signal) error {
			return w.Write(in.(signal.RealBuffer))
		},
		FlushFunc: func(context.Context) error {
			if w == nil {
				return nil
			}
			return w.Close()
		},
	}
}

func volume(initial float64) engine.Unit {
	gain := float32(initial)
	return engine.Unit{
		Input:  signal.Real,
		Output: signal.Real,
		ProcessFunc: func(in signal.Signal) (signal.Signal, error) {
			b := in.(signal.RealBuffer)
			out := make(signal.RealBuffer, len(b))
			for i := range b {
				out[i] = b[i] * gain
			}
			return out, nil
		},
		Messages: []engine.MessagePort{
			{
				Name: "volume",
				Handler: func(value float64) error {
					if value < 0 || math.IsNaN(value) {
						return fmt.Errorf("invalid volume %v", value)
					}
					gain = float32(value)
					return nil
				},
			},
		},
	}
}
