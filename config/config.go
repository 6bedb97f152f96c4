// Package config loads the receiver configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/pipelined/esdr/block"
)

// EnvConfig is the environment variable with the path of config file.
const EnvConfig = "ESDR_CONFIG"

// Audio outputs.
const (
	AudioNull      = "null"
	AudioPortAudio = "portaudio"
	AudioWav       = "wav"
)

var validate = validator.New()

type (
	// Config is the receiver configuration.
	Config struct {
		Radio    Radio    `yaml:"radio"`
		Station  Station  `yaml:"station"`
		Audio    Audio    `yaml:"audio"`
		Playback Playback `yaml:"playback"`
		HTTP     HTTP     `yaml:"http"`
		Log      Log      `yaml:"log"`
	}

	// Radio configures the tuner and the processing rates.
	Radio struct {
		SampleRate int     `yaml:"sample_rate" validate:"required,gt=0"`
		FreqOffset float64 `yaml:"freq_offset" validate:"gte=0"`
		BufferSize int     `yaml:"buffer_size" validate:"required,gt=0"`
		// Realtime paces the simulated tuner.
		Realtime bool `yaml:"realtime"`
	}

	// Station is the initial tuning.
	Station struct {
		Freq float64 `yaml:"freq" validate:"required,gt=0"`
		Gain float64 `yaml:"gain" validate:"gte=0"`
	}

	// Audio configures the audio sink.
	Audio struct {
		Output     string `yaml:"output" validate:"oneof=null portaudio wav"`
		Rate       int    `yaml:"rate" validate:"required,gt=0"`
		Mult       int    `yaml:"mult" validate:"required,gt=0"`
		RecordPath string `yaml:"record_path" validate:"required_if=Output wav"`
	}

	// Playback replaces the tuner with recorded I/Q samples.
	Playback struct {
		Path string `yaml:"path"`
	}

	// HTTP configures the control surface.
	HTTP struct {
		Listen string `yaml:"listen" validate:"required,hostname_port"`
	}

	// Log configures logging.
	Log struct {
		Level string `yaml:"level" validate:"oneof=panic fatal error warn warning info debug trace"`
	}
)

// Default returns the default configuration.
func Default() Config {
	return Config{
		Radio: Radio{
			SampleRate: block.DefaultSampleRate,
			FreqOffset: block.DefaultFreqOffset,
			BufferSize: block.DefaultBufferSize,
			Realtime:   true,
		},
		Station: Station{
			Freq: 90900000,
			Gain: 30,
		},
		Audio: Audio{
			Output: AudioNull,
			Rate:   block.DefaultAudioRate,
			Mult:   block.DefaultAudioMult,
		},
		HTTP: HTTP{
			Listen: "localhost:8080",
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load reads the yaml file over default configuration and validates
// the result. If path is empty, ESDR_CONFIG is used. If both are empty,
// default configuration is returned.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	err := validate.Struct(c)
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	errs := make([]error, 0, len(ve))
	for _, fe := range ve {
		errs = append(errs, fmt.Errorf("%s: failed on %q", fe.Namespace(), fe.Tag()))
	}
	return errors.Join(errs...)
}

// Env returns block environment. Audio is discarded, the caller sets
// the audio device for portaudio output.
func (c Config) Env() block.Env {
	env := block.DefaultEnv()
	env.SampleRate = c.Radio.SampleRate
	env.FreqOffset = c.Radio.FreqOffset
	env.BufferSize = c.Radio.BufferSize
	env.AudioRate = c.Audio.Rate
	env.AudioMult = c.Audio.Mult
	env.Tuner = (&block.Simulator{
		Station:  c.Station.Freq,
		Realtime: c.Radio.Realtime,
	}).Open
	if c.Playback.Path != "" {
		env.Playback = block.OpenFile(c.Playback.Path)
	}
	if c.Audio.RecordPath != "" {
		env.Recording = block.CreateFile(c.Audio.RecordPath)
	}
	return env
}
