// Package block is the registry of block kinds that can be placed in a
// graph. Every kind declares a fixed port contract and instantiates an
// engine unit from resolved scalar inputs.
package block

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pipelined/esdr/signal"
)

// Kind is a block kind.
type Kind int

// Kinds of blocks. New kinds must be added to kinds, String, Ports and
// Instantiate.
const (
	SoapySDR Kind = iota + 1
	Shift
	Resampler
	FMDemodulator
	FilterResampler
	AudioOutput
	Volume
	WavSource
	WavRecorder
)

// ErrUnknownKind is returned when kind cannot be parsed.
var ErrUnknownKind = errors.New("unknown block kind")

var kinds = []Kind{
	SoapySDR,
	Shift,
	Resampler,
	FMDemodulator,
	FilterResampler,
	AudioOutput,
	Volume,
	WavSource,
	WavRecorder,
}

// Kinds returns all kinds in listing order.
func Kinds() []Kind {
	result := make([]Kind, len(kinds))
	copy(result, kinds)
	return result
}

// String returns display name of the kind.
func (k Kind) String() string {
	switch k {
	case SoapySDR:
		return "Soapy SDR"
	case Shift:
		return "Shift"
	case Resampler:
		return "Resamp 1"
	case FMDemodulator:
		return "FM Demodulator"
	case FilterResampler:
		return "Resamp 2"
	case AudioOutput:
		return "Audio Output"
	case Volume:
		return "Volume"
	case WavSource:
		return "Wav IQ Source"
	case WavRecorder:
		return "Wav Recorder"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid returns true if kind is one of Kinds.
func (k Kind) Valid() bool {
	return k >= SoapySDR && k <= WavRecorder
}

// ParseKind returns the kind with provided display name. Comparison is
// case-insensitive.
func ParseKind(s string) (Kind, error) {
	for _, k := range kinds {
		if strings.EqualFold(k.String(), s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownKind)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%v: %w", k, ErrUnknownKind)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Ports returns the port contract of the kind.
func (k Kind) Ports() []Port {
	switch k {
	case SoapySDR:
		return []Port{
			outputStream(signal.Complex),
			scalar("freq", 90900000, true),
			scalar("gain", 30, false),
		}
	case Shift, Resampler:
		return []Port{
			inputStream(signal.Complex),
			outputStream(signal.Complex),
		}
	case FMDemodulator:
		return []Port{
			inputStream(signal.Complex),
			outputStream(signal.Real),
		}
	case FilterResampler:
		return []Port{
			inputStream(signal.Real),
			scalar("cutoff", 2000, false),
			scalar("transition", 10000, false),
			outputStream(signal.Real),
		}
	case AudioOutput, WavRecorder:
		return []Port{
			inputStream(signal.Real),
		}
	case Volume:
		return []Port{
			inputStream(signal.Real),
			scalar("volume", 1, true),
			outputStream(signal.Real),
		}
	case WavSource:
		return []Port{
			outputStream(signal.Complex),
		}
	}
	return nil
}

// Port returns the port with provided name.
func (k Kind) Port(name string) (Port, bool) {
	for _, p := range k.Ports() {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}
