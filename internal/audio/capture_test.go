package audio

import (
	"context"
	"encoding/binary"
	"math"
	"sync"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DeviceIndex != -1 {
		t.Errorf("DefaultConfig().DeviceIndex = %d, want -1", cfg.DeviceIndex)
	}
	if cfg.SampleRate != 48000 {
		t.Errorf("DefaultConfig().SampleRate = %d, want 48000", cfg.SampleRate)
	}
	if cfg.Channels != 1 {
		t.Errorf("DefaultConfig().Channels = %d, want 1", cfg.Channels)
	}
	if cfg.BufferSize != 512 {
		t.Errorf("DefaultConfig().BufferSize = %d, want 512", cfg.BufferSize)
	}
}

func TestNew(t *testing.T) {
	cfg := Config{DeviceIndex: 2, SampleRate: 44100, Channels: 2, BufferSize: 1024}

	capture := New(cfg)

	if capture == nil {
		t.Fatal("New() returned nil")
	}
	if capture.config != cfg {
		t.Errorf("capture.config = %+v, want %+v", capture.config, cfg)
	}
	if capture.IsRunning() {
		t.Error("new capture should not be running")
	}
}

func TestCapture_SetCallback(t *testing.T) {
	capture := New(DefaultConfig())

	capture.SetCallback(func([]float32) {})
	if capture.callbackPtr.Load() == nil {
		t.Error("SetCallback() did not store the callback")
	}

	capture.SetCallback(nil)
	if capture.callbackPtr.Load() != nil {
		t.Error("SetCallback(nil) did not clear the callback")
	}
}

func TestCapture_DeliverDoesNotTakeLock(t *testing.T) {
	capture := New(Config{Channels: 2})

	got := make(chan []float32, 1)
	capture.SetCallback(func(samples []float32) {
		got <- samples
	})

	// Stop and Close hold the lock while the device waits for the data
	// callback to return.
	capture.mu.Lock()
	defer capture.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		capture.deliver(encodeF32(1, 0, 0.5, 0.5), 2)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deliver() blocked on the capture lock")
	}
	samples := <-got
	if len(samples) != 2 || samples[0] != 0.5 || samples[1] != 0.5 {
		t.Errorf("delivered samples = %v, want [0.5 0.5]", samples)
	}
}

func TestCapture_DeliverEmptyOrNoCallback(t *testing.T) {
	capture := New(DefaultConfig())
	capture.deliver(encodeF32(0.5), 1)

	called := false
	capture.SetCallback(func([]float32) { called = true })
	capture.deliver(nil, 1)
	if called {
		t.Error("deliver() invoked the callback for an empty buffer")
	}
}

func TestCapture_Stop_ClearsState(t *testing.T) {
	capture := New(DefaultConfig())
	capture.running = true

	if err := capture.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if capture.IsRunning() {
		t.Error("capture still running after Stop()")
	}
	if err := capture.Stop(); err != ErrNotRunning {
		t.Errorf("second Stop() error = %v, want %v", err, ErrNotRunning)
	}
}

func TestCapture_NotInitialized(t *testing.T) {
	capture := New(DefaultConfig())

	if _, err := capture.Devices(); err != ErrNotInitialized {
		t.Errorf("Devices() error = %v, want %v", err, ErrNotInitialized)
	}
	if err := capture.Start(context.Background()); err != ErrNotInitialized {
		t.Errorf("Start() error = %v, want %v", err, ErrNotInitialized)
	}
}

func TestCapture_Start_AlreadyRunning(t *testing.T) {
	capture := New(DefaultConfig())
	capture.running = true

	if err := capture.Start(context.Background()); err != ErrAlreadyRunning {
		t.Errorf("Start() error = %v, want %v", err, ErrAlreadyRunning)
	}
}

func TestCapture_Stop_NotRunning(t *testing.T) {
	capture := New(DefaultConfig())

	if err := capture.Stop(); err != ErrNotRunning {
		t.Errorf("Stop() error = %v, want %v", err, ErrNotRunning)
	}
}

func TestCapture_Close_WithoutInit(t *testing.T) {
	capture := New(DefaultConfig())

	if err := capture.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := capture.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func encodeF32(values ...float32) []byte {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return data
}

func TestDecodeF32(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want []float32
	}{
		{"empty", nil, []float32{}},
		{"single", encodeF32(0.5), []float32{0.5}},
		{"multiple", encodeF32(-1, 0, 1), []float32{-1, 0, 1}},
		{"partial trailing bytes", append(encodeF32(0.25), 0x01, 0x02), []float32{0.25}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeF32(tt.data)
			if len(got) != len(tt.want) {
				t.Fatalf("len(decodeF32()) = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("sample %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDownmix(t *testing.T) {
	mono := []float32{0.1, 0.2}
	if got := downmix(mono, 1); len(got) != 2 || got[1] != 0.2 {
		t.Errorf("downmix(mono) = %v, want input unchanged", got)
	}

	stereo := []float32{1, 0, 0.5, 0.5, -1, 1}
	got := downmix(stereo, 2)
	want := []float32{0.5, 0.5, 0}
	if len(got) != len(want) {
		t.Fatalf("len(downmix(stereo)) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCapture_ConcurrentAccess(t *testing.T) {
	capture := New(DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			capture.SetCallback(func([]float32) {})
		}()
		go func() {
			defer wg.Done()
			_ = capture.IsRunning()
		}()
	}
	wg.Wait()
}
