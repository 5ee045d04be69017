// Package dsp detects a keyed audio tone and turns it into key down/up edges.
package dsp

import (
	"errors"
	"math"
)

var (
	// ErrInvalidBlockSize indicates block size must be positive
	ErrInvalidBlockSize = errors.New("block size must be positive")
	// ErrInvalidSampleRate indicates sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidFrequency indicates frequency must be positive and below Nyquist
	ErrInvalidFrequency = errors.New("tone frequency must be positive and less than Nyquist frequency")
	// ErrInsufficientSamples indicates the block is shorter than the configured size
	ErrInsufficientSamples = errors.New("insufficient samples for block size")
)

// GoertzelConfig describes the single frequency bin to measure.
type GoertzelConfig struct {
	// TargetFrequency is the key tone in Hz (from config: tone_frequency)
	TargetFrequency float64
	// SampleRate is the capture rate in Hz (from config: sample_rate)
	SampleRate float64
	// BlockSize is the number of samples per measurement (from config: block_size)
	BlockSize int
}

// Goertzel measures the energy of one frequency over fixed-size blocks.
type Goertzel struct {
	config GoertzelConfig
	coeff  float64 // 2*cos(omega)
	scale  float64 // 2/N, so a full-scale sine reads about 1.0
}

// NewGoertzel validates cfg and precomputes the filter coefficient.
func NewGoertzel(cfg GoertzelConfig) (*Goertzel, error) {
	if cfg.BlockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if cfg.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if cfg.TargetFrequency <= 0 || cfg.TargetFrequency >= cfg.SampleRate/2 {
		return nil, ErrInvalidFrequency
	}

	omega := 2 * math.Pi * cfg.TargetFrequency / cfg.SampleRate
	return &Goertzel{
		config: cfg,
		coeff:  2 * math.Cos(omega),
		scale:  2 / float64(cfg.BlockSize),
	}, nil
}

// Magnitude returns the tone level in the first BlockSize samples.
func (g *Goertzel) Magnitude(samples []float32) (float64, error) {
	if len(samples) < g.config.BlockSize {
		return 0, ErrInsufficientSamples
	}
	return g.magnitude(samples[:g.config.BlockSize]), nil
}

// magnitude assumes len(block) == BlockSize.
func (g *Goertzel) magnitude(block []float32) float64 {
	var s1, s2 float64
	for _, x := range block {
		s0 := float64(x) + g.coeff*s1 - s2
		s2, s1 = s1, s0
	}
	power := s1*s1 + s2*s2 - g.coeff*s1*s2
	if power < 0 {
		power = 0
	}
	return math.Sqrt(power) * g.scale
}

// BlockSize returns the configured block size.
func (g *Goertzel) BlockSize() int {
	return g.config.BlockSize
}

// SampleRate returns the configured sample rate.
func (g *Goertzel) SampleRate() float64 {
	return g.config.SampleRate
}
