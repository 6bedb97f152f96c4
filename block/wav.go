package block

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/pipelined/esdr/engine"
	"github.com/pipelined/esdr/signal"
)

const (
	recordBitDepth = 16
	pcmFormat      = 1
)

var (
	// ErrInvalidWav is returned when playback is not a valid wav stream.
	ErrInvalidWav = errors.New("wav is not valid")
	// ErrUnsupportedBitDepth is returned when playback bit depth is not
	// 8, 16, 24 or 32.
	ErrUnsupportedBitDepth = errors.New("only 8, 16, 24 and 32 bit depth is supported")
)

// OpenFile returns playback opener of the wav file.
func OpenFile(path string) PlaybackOpener {
	return func() (io.ReadSeekCloser, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

// CreateFile returns recording opener of the wav file.
func CreateFile(path string) RecordingOpener {
	return func() (WriteSeekCloser, error) {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

// wavSource reads I/Q samples from wav stream. Left channel is in-phase
// and right channel is quadrature component. Mono streams have zero
// quadrature.
func wavSource(env Env) engine.Unit {
	var (
		file     io.ReadSeekCloser
		decoder  *wav.Decoder
		ib       *audio.IntBuffer
		channels int
		divider  float32
	)
	return engine.Unit{
		Output: signal.Complex,
		StartFunc: func(context.Context) error {
			if env.Playback == nil {
				return fmt.Errorf("playback: %w", ErrNoDevice)
			}
			var err error
			if file, err = env.Playback(); err != nil {
				return fmt.Errorf("open playback: %w", err)
			}
			decoder = wav.NewDecoder(file)
			if err = validate(decoder); err != nil {
				file.Close()
				file = nil
				return err
			}
			divider = float32(math.Pow(2, float64(decoder.BitDepth-1)))
			channels = int(decoder.NumChans)
			ib = &audio.IntBuffer{
				Format:         decoder.Format(),
				Data:           make([]int, env.BufferSize*channels),
				SourceBitDepth: int(decoder.BitDepth),
			}
			return nil
		},
		SourceFunc: func(out signal.Signal) (int, error) {
			b := out.(signal.ComplexBuffer)
			if len(ib.Data) > len(b)*channels {
				ib.Data = ib.Data[:len(b)*channels]
			}
			read, err := decoder.PCMBuffer(ib)
			if err != nil {
				return 0, err
			}
			if read == 0 {
				return 0, io.EOF
			}
			n := read / channels
			for i := 0; i < n; i++ {
				re := float32(ib.Data[i*channels]) / divider
				var im float32
				if channels > 1 {
					im = float32(ib.Data[i*channels+1]) / divider
				}
				b[i] = complex(re, im)
			}
			return n, nil
		},
		FlushFunc: func(context.Context) error {
			if file == nil {
				return nil
			}
			return file.Close()
		},
	}
}

// wavRecorder writes mono 16 bit wav at audio rate.
func wavRecorder(env Env) engine.Unit {
	var (
		file    WriteSeekCloser
		encoder *wav.Encoder
		ib      *audio.IntBuffer
	)
	multiplier := float32(math.MaxInt16)
	return engine.Unit{
		Input: signal.Real,
		StartFunc: func(context.Context) error {
			if env.Recording == nil {
				return fmt.Errorf("recording: %w", ErrNoDevice)
			}
			var err error
			if file, err = env.Recording(); err != nil {
				return fmt.Errorf("open recording: %w", err)
			}
			encoder = wav.NewEncoder(file, env.AudioRate, recordBitDepth, 1, pcmFormat)
			ib = &audio.IntBuffer{
				Format: &audio.Format{
					NumChannels: 1,
					SampleRate:  env.AudioRate,
				},
				SourceBitDepth: recordBitDepth,
			}
			return nil
		},
		SinkFunc: func(in signal.Signal) error {
			b := in.(signal.RealBuffer)
			if cap(ib.Data) < len(b) {
				ib.Data = make([]int, len(b))
			}
			ib.Data = ib.Data[:len(b)]
			for i, v := range b {
				if v > 1 {
					v = 1
				} else if v < -1 {
					v = -1
				}
				ib.Data[i] = int(v * multiplier)
			}
			return encoder.Write(ib)
		},
		FlushFunc: func(context.Context) error {
			if file == nil {
				return nil
			}
			var errs []error
			if encoder != nil {
				errs = append(errs, encoder.Close())
			}
			errs = append(errs, file.Close())
			return errors.Join(errs...)
		},
	}
}

func validate(d *wav.Decoder) error {
	if !d.IsValidFile() {
		return ErrInvalidWav
	}
	switch d.BitDepth {
	case 8, 16, 24, 32:
		return nil
	}
	return fmt.Errorf("%d bits: %w", d.BitDepth, ErrUnsupportedBitDepth)
}
