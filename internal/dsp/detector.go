package dsp

import (
	"errors"
	"sync/atomic"
	"time"
)

var (
	// ErrInvalidThreshold indicates threshold must be between 0 and 1
	ErrInvalidThreshold = errors.New("threshold must be between 0.0 and 1.0")
	// ErrInvalidHysteresis indicates hysteresis must be at least one block
	ErrInvalidHysteresis = errors.New("hysteresis must be at least 1")
	// ErrInvalidOverlap indicates overlap percentage must be 0-99
	ErrInvalidOverlap = errors.New("overlap percentage must be between 0 and 99")
	// ErrInvalidAGCDecay indicates AGC decay must be between 0 and 1
	ErrInvalidAGCDecay = errors.New("agc decay must be between 0.0 and 1.0")
	// ErrInvalidAGCAttack indicates AGC attack must be between 0 and 1
	ErrInvalidAGCAttack = errors.New("agc attack must be between 0.0 and 1.0")
	// ErrInvalidAGCWarmup indicates AGC warmup blocks must be non-negative
	ErrInvalidAGCWarmup = errors.New("agc warmup blocks must be non-negative")
	// ErrGoertzelRequired indicates Goertzel instance is required
	ErrGoertzelRequired = errors.New("goertzel instance is required")
)

// agcFloor keeps the AGC peak away from zero.
const agcFloor = 0.001

// Clock stamps edges. When a detector has no clock it uses the stream position,
// which keeps offline processing independent of wall time.
type Clock interface {
	Now() time.Duration
}

// Edge is a confirmed change of the key tone.
type Edge struct {
	// Down is true when the tone (the key) starts, false when it stops
	Down bool
	// At is the edge time on the detector's clock
	At time.Duration
	// Magnitude is the level that confirmed the edge (0.0-1.0 after AGC)
	Magnitude float64
}

// EdgeCallback receives edges on the processing goroutine. Must be non-blocking.
type EdgeCallback func(edge Edge)

// KeyDetectorConfig holds the detection thresholds.
// All values come from the application config file.
type KeyDetectorConfig struct {
	// Threshold for tone presence (0.0-1.0) (from config: threshold)
	Threshold float64
	// Hysteresis is consecutive blocks required to confirm a change (from config: hysteresis)
	Hysteresis int
	// OverlapPct is the block overlap percentage 0-99 (from config: overlap_pct)
	OverlapPct int
	// AGCEnabled normalizes levels to the recent peak (from config: agc_enabled)
	AGCEnabled bool
	// AGCDecay is the per-block peak decay (from config: agc_decay)
	AGCDecay float64
	// AGCAttack is how fast the peak follows louder signals (from config: agc_attack)
	AGCAttack float64
	// AGCWarmupBlocks are measured for calibration only (from config: agc_warmup_blocks)
	AGCWarmupBlocks int
}

// KeyDetector turns a sampled key tone into debounced down/up edges.
type KeyDetector struct {
	config   KeyDetectorConfig
	goertzel *Goertzel
	clock    Clock

	blockSize int
	hopSize   int
	buffer    []float32
	position  int64 // stream index of buffer[0]

	agcPeak float64
	warmup  int

	down         bool
	pending      bool
	pendingCount int

	callbackPtr atomic.Pointer[EdgeCallback]
}

// NewKeyDetector validates cfg. A nil clock selects stream-position timestamps.
func NewKeyDetector(cfg KeyDetectorConfig, goertzel *Goertzel, clock Clock) (*KeyDetector, error) {
	if goertzel == nil {
		return nil, ErrGoertzelRequired
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, ErrInvalidThreshold
	}
	if cfg.Hysteresis < 1 {
		return nil, ErrInvalidHysteresis
	}
	if cfg.OverlapPct < 0 || cfg.OverlapPct >= 100 {
		return nil, ErrInvalidOverlap
	}
	if cfg.AGCDecay < 0 || cfg.AGCDecay > 1 {
		return nil, ErrInvalidAGCDecay
	}
	if cfg.AGCAttack < 0 || cfg.AGCAttack > 1 {
		return nil, ErrInvalidAGCAttack
	}
	if cfg.AGCWarmupBlocks < 0 {
		return nil, ErrInvalidAGCWarmup
	}

	blockSize := goertzel.BlockSize()
	hopSize := blockSize - blockSize*cfg.OverlapPct/100
	if hopSize < 1 {
		hopSize = 1
	}

	return &KeyDetector{
		config:    cfg,
		goertzel:  goertzel,
		clock:     clock,
		blockSize: blockSize,
		hopSize:   hopSize,
		buffer:    make([]float32, 0, blockSize*2),
		agcPeak:   1.0,
	}, nil
}

// SetCallback sets the edge callback. nil removes it.
func (d *KeyDetector) SetCallback(cb EdgeCallback) {
	if cb == nil {
		d.callbackPtr.Store(nil)
	} else {
		d.callbackPtr.Store(&cb)
	}
}

// Process consumes samples normalized to -1.0..1.0. Not safe for concurrent use;
// feed it from a single goroutine (normally the audio callback).
func (d *KeyDetector) Process(samples []float32) {
	d.buffer = append(d.buffer, samples...)

	for len(d.buffer) >= d.blockSize {
		d.processBlock(d.buffer[:d.blockSize])

		n := copy(d.buffer, d.buffer[d.hopSize:])
		d.buffer = d.buffer[:n]
		d.position += int64(d.hopSize)
	}
}

func (d *KeyDetector) processBlock(block []float32) {
	magnitude := d.goertzel.magnitude(block)

	if d.warmup < d.config.AGCWarmupBlocks {
		d.warmup++
		if d.config.AGCEnabled && magnitude > agcFloor {
			if d.warmup == 1 || magnitude > d.agcPeak {
				d.agcPeak = magnitude
			}
		}
		return
	}

	if d.config.AGCEnabled {
		magnitude = d.normalize(magnitude)
	}

	d.debounce(magnitude > d.config.Threshold, magnitude)
}

// normalize scales magnitude by a peak tracker that attacks quickly and decays slowly.
func (d *KeyDetector) normalize(magnitude float64) float64 {
	if magnitude > d.agcPeak {
		d.agcPeak += d.config.AGCAttack * (magnitude - d.agcPeak)
	} else {
		d.agcPeak *= d.config.AGCDecay
	}
	if d.agcPeak < agcFloor {
		d.agcPeak = agcFloor
	}
	return min(magnitude/d.agcPeak, 1.0)
}

// debounce confirms a change after Hysteresis consecutive blocks agree.
func (d *KeyDetector) debounce(present bool, magnitude float64) {
	if present == d.down {
		d.pending = d.down
		d.pendingCount = 0
		return
	}

	if present == d.pending {
		d.pendingCount++
	} else {
		d.pending = present
		d.pendingCount = 1
	}

	if d.pendingCount < d.config.Hysteresis {
		return
	}

	d.down = d.pending
	d.pendingCount = 0
	d.emit(Edge{Down: d.down, At: d.now(), Magnitude: magnitude})
}

// now stamps an edge. Without a clock the time is the end of the current block.
func (d *KeyDetector) now() time.Duration {
	if d.clock != nil {
		return d.clock.Now()
	}
	end := d.position + int64(d.blockSize)
	return time.Duration(float64(end) / d.goertzel.SampleRate() * float64(time.Second))
}

func (d *KeyDetector) emit(edge Edge) {
	if cbPtr := d.callbackPtr.Load(); cbPtr != nil {
		(*cbPtr)(edge)
	}
}

// Down reports the confirmed key state.
func (d *KeyDetector) Down() bool {
	return d.down
}

// AGCPeak returns the current AGC peak (for debug logging).
func (d *KeyDetector) AGCPeak() float64 {
	return d.agcPeak
}

// Reset returns the detector to key-up with an empty buffer.
func (d *KeyDetector) Reset() {
	d.buffer = d.buffer[:0]
	d.position = 0
	d.agcPeak = 1.0
	d.warmup = 0
	d.down = false
	d.pending = false
	d.pendingCount = 0
}

// Config returns the detector configuration.
func (d *KeyDetector) Config() KeyDetectorConfig {
	return d.config
}
