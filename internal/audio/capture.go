// Package audio captures microphone or line input for the tone key.
package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

var (
	ErrNotInitialized = errors.New("audio capture not initialized")
	ErrAlreadyRunning = errors.New("audio capture already running")
	ErrNotRunning     = errors.New("audio capture not running")
)

// Config holds audio capture configuration
type Config struct {
	DeviceIndex int    // -1 for default device
	SampleRate  uint32 // e.g., 48000
	Channels    uint32 // 1 for mono, 2 for stereo (downmixed to mono)
	BufferSize  uint32 // frames per callback
}

// DefaultConfig returns defaults suited to a keyed sidetone
func DefaultConfig() Config {
	return Config{
		DeviceIndex: -1,
		SampleRate:  48000,
		Channels:    1,
		BufferSize:  512,
	}
}

// Device describes one capture device.
type Device struct {
	Index     int
	Name      string
	IsDefault bool
}

// SampleCallback receives mono samples (-1.0 to 1.0) on the audio thread.
// Must be non-blocking and fast.
type SampleCallback func(samples []float32)

// Capture owns a malgo context and at most one running capture device.
//
// The audio thread never takes mu: malgo's Stop and Uninit wait for an
// in-flight data callback, and both run after mu is released.
type Capture struct {
	config  Config
	mu      sync.RWMutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	running bool

	callbackPtr atomic.Pointer[SampleCallback]
}

// New creates a capture instance. Call Init before use.
func New(cfg Config) *Capture {
	return &Capture{config: cfg}
}

// SetCallback sets the sample callback. Set before calling Start().
func (c *Capture) SetCallback(cb SampleCallback) {
	if cb == nil {
		c.callbackPtr.Store(nil)
		return
	}
	c.callbackPtr.Store(&cb)
}

// Init initializes the audio backend
func (c *Capture) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	c.ctx = ctx
	return nil
}

// Devices returns the available capture devices in backend order.
func (c *Capture) Devices() ([]Device, error) {
	infos, err := c.deviceInfos()
	if err != nil {
		return nil, err
	}
	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{Index: i, Name: info.Name(), IsDefault: info.IsDefault != 0}
	}
	return devices, nil
}

func (c *Capture) deviceInfos() ([]malgo.DeviceInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.ctx == nil {
		return nil, ErrNotInitialized
	}
	infos, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return infos, nil
}

// Start begins capture. It stops automatically when ctx is cancelled.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.RLock()
	running, initialized := c.running, c.ctx != nil
	c.mu.RUnlock()
	if running {
		return ErrAlreadyRunning
	}
	if !initialized {
		return ErrNotInitialized
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.SampleRate = c.config.SampleRate
	deviceConfig.PeriodSizeInFrames = c.config.BufferSize
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = c.config.Channels

	if c.config.DeviceIndex >= 0 {
		infos, err := c.deviceInfos()
		if err != nil {
			return err
		}
		if c.config.DeviceIndex >= len(infos) {
			return fmt.Errorf("device index %d out of range (have %d devices)", c.config.DeviceIndex, len(infos))
		}
		deviceConfig.Capture.DeviceID = infos[c.config.DeviceIndex].ID.Pointer()
	}

	channels := int(c.config.Channels)
	onRecvFrames := func(_, input []byte, _ uint32) {
		c.deliver(input, channels)
	}

	c.mu.RLock()
	backend := c.ctx.Context
	c.mu.RUnlock()

	device, err := malgo.InitDevice(backend, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		return fmt.Errorf("init device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start device: %w", err)
	}

	c.mu.Lock()
	c.device = device
	c.running = true
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = c.Stop()
	}()
	return nil
}

// deliver decodes one data callback and hands the mono samples on.
func (c *Capture) deliver(input []byte, channels int) {
	if len(input) == 0 {
		return
	}
	if cbPtr := c.callbackPtr.Load(); cbPtr != nil {
		(*cbPtr)(downmix(decodeF32(input), channels))
	}
}

// Stop stops capture
func (c *Capture) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return ErrNotRunning
	}
	device := c.detach()
	c.mu.Unlock()

	stopDevice(device)
	return nil
}

// detach clears the running device. Callers hold mu.
func (c *Capture) detach() *malgo.Device {
	device := c.device
	c.device = nil
	c.running = false
	return device
}

func stopDevice(device *malgo.Device) {
	if device == nil {
		return
	}
	_ = device.Stop()
	device.Uninit()
}

// Close stops capture and releases the backend. Safe to call more than once.
func (c *Capture) Close() error {
	c.mu.Lock()
	device := c.detach()
	ctx := c.ctx
	c.ctx = nil
	c.mu.Unlock()

	stopDevice(device)
	if ctx != nil {
		if err := ctx.Uninit(); err != nil {
			ctx.Free()
			return fmt.Errorf("uninit context: %w", err)
		}
		ctx.Free()
	}
	return nil
}

// IsRunning returns true if capture is active
func (c *Capture) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// decodeF32 converts little-endian IEEE 754 bytes to samples. Trailing partial
// samples are ignored.
func decodeF32(data []byte) []float32 {
	samples := make([]float32, len(data)/4)
	for i := range samples {
		o := i * 4
		bits := uint32(data[o]) | uint32(data[o+1])<<8 | uint32(data[o+2])<<16 | uint32(data[o+3])<<24
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}

// downmix averages interleaved frames to mono in place.
func downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	for f := 0; f < frames; f++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += samples[f*channels+ch]
		}
		samples[f] = sum / float32(channels)
	}
	return samples[:frames]
}
