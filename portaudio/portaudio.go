// Package portaudio plays audio with the default output device.
package portaudio

import (
	"errors"

	"github.com/gordonklaus/portaudio"

	"github.com/pipelined/esdr/block"
)

// DefaultFramesPerBuffer is used if frames per buffer is not positive.
const DefaultFramesPerBuffer = 512

type (
	// Writer writes interleaved samples to portaudio stream.
	Writer struct {
		stream *portaudio.Stream
		chunker
	}

	// chunker fills fixed size buffer and flushes it when it's full.
	chunker struct {
		buf   []float32
		pos   int
		flush func() error
	}
)

// Open returns audio opener of the default output device.
func Open(framesPerBuffer int) block.AudioOpener {
	if framesPerBuffer <= 0 {
		framesPerBuffer = DefaultFramesPerBuffer
	}
	return func(sampleRate, channels int) (block.AudioWriter, error) {
		if err := portaudio.Initialize(); err != nil {
			return nil, err
		}
		w := Writer{}
		w.buf = make([]float32, framesPerBuffer*channels)
		stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), framesPerBuffer, &w.buf)
		if err != nil {
			return nil, errors.Join(err, portaudio.Terminate())
		}
		if err := stream.Start(); err != nil {
			return nil, errors.Join(err, stream.Close(), portaudio.Terminate())
		}
		w.stream = stream
		w.flush = stream.Write
		return &w, nil
	}
}

// Close plays buffered samples and releases the device.
func (w *Writer) Close() error {
	var errs []error
	if w.pos > 0 {
		errs = append(errs, w.pad())
	}
	errs = append(errs, w.stream.Stop(), w.stream.Close(), portaudio.Terminate())
	return errors.Join(errs...)
}

// Write buffers samples and flushes every full buffer.
func (c *chunker) Write(samples []float32) error {
	for len(samples) > 0 {
		n := copy(c.buf[c.pos:], samples)
		c.pos += n
		samples = samples[n:]
		if c.pos == len(c.buf) {
			c.pos = 0
			if err := c.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// pad fills the rest of the buffer with silence and flushes it.
func (c *chunker) pad() error {
	for i := c.pos; i < len(c.buf); i++ {
		c.buf[i] = 0
	}
	c.pos = 0
	return c.flush()
}
