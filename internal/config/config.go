// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ColonelBlimp/cwkeyer/internal/audio"
	"github.com/ColonelBlimp/cwkeyer/internal/dsp"
	"github.com/ColonelBlimp/cwkeyer/internal/keyer"
	"github.com/spf13/viper"
)

const (
	AppName       = "cwkeyer"
	ConfigType    = "yaml"
	DefaultConfig = `# CW Keyer Configuration

# Keying
dot_threshold_ms: 500        # Presses shorter than this are dots, otherwise dashes
pause_threshold_ms: 1000     # Idle time before the next press that separates words (must exceed dot_threshold_ms)
undo_keeps_committed: false  # Undo of a symbol never rewinds committed output

# Audio device settings (tone key, used by 'listen --audio')
device_index: -1        # -1 for default device (use 'cwkeyer devices' to list)
sample_rate: 48000      # Audio sample rate in Hz
channels: 1             # Number of channels (1=mono, 2=stereo downmixed)
buffer_size: 512        # Frames per audio callback

# Tone detection
tone_frequency: 600     # Key tone frequency in Hz
block_size: 256         # Goertzel block size (samples per detection window)
overlap_pct: 50         # Block overlap percentage (0-99)

# Detection thresholds
threshold: 0.4          # Tone magnitude must exceed this (0.0-1.0)
hysteresis: 2           # Consecutive blocks required to confirm key down/up
agc_enabled: true       # Normalize input levels to the recent peak
agc_decay: 0.9995       # AGC peak decay per block (0.99-0.99999)
agc_attack: 0.1         # AGC attack rate (0.0-1.0)
agc_warmup_blocks: 10   # Blocks used to calibrate AGC before detection starts

# Logging
log_level: "info"       # trace, debug, info, warn, error
log_file: ""            # Optional log file (the TUI only logs here)
debug: false            # Force debug level
`
)

// Settings holds all application configuration
type Settings struct {
	// Keying
	DotThresholdMs     int  `mapstructure:"dot_threshold_ms"`
	PauseThresholdMs   int  `mapstructure:"pause_threshold_ms"`
	UndoKeepsCommitted bool `mapstructure:"undo_keeps_committed"`

	// Audio device settings
	DeviceIndex int     `mapstructure:"device_index"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Channels    int     `mapstructure:"channels"`
	BufferSize  int     `mapstructure:"buffer_size"`

	// Tone detection
	ToneFrequency float64 `mapstructure:"tone_frequency"`
	BlockSize     int     `mapstructure:"block_size"`
	OverlapPct    int     `mapstructure:"overlap_pct"`

	// Detection thresholds
	Threshold       float64 `mapstructure:"threshold"`
	Hysteresis      int     `mapstructure:"hysteresis"`
	AGCEnabled      bool    `mapstructure:"agc_enabled"`
	AGCDecay        float64 `mapstructure:"agc_decay"`
	AGCAttack       float64 `mapstructure:"agc_attack"`
	AGCWarmupBlocks int     `mapstructure:"agc_warmup_blocks"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	Debug    bool   `mapstructure:"debug"`
}

func setDefaults() {
	viper.SetDefault("dot_threshold_ms", 500)
	viper.SetDefault("pause_threshold_ms", 1000)
	viper.SetDefault("undo_keeps_committed", false)
	viper.SetDefault("device_index", -1)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("channels", 1)
	viper.SetDefault("buffer_size", 512)
	viper.SetDefault("tone_frequency", 600)
	viper.SetDefault("block_size", 256)
	viper.SetDefault("overlap_pct", 50)
	viper.SetDefault("threshold", 0.4)
	viper.SetDefault("hysteresis", 2)
	viper.SetDefault("agc_enabled", true)
	viper.SetDefault("agc_decay", 0.9995)
	viper.SetDefault("agc_attack", 0.1)
	viper.SetDefault("agc_warmup_blocks", 10)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_file", "")
	viper.SetDefault("debug", false)
}

// Init initializes Viper with defaults and config file.
// An explicit configFile must exist. Otherwise the search order is the current
// directory, then ~/.config/cwkeyer/, and a default file is written there when
// neither has one.
func Init(configFile string) error {
	setDefaults()
	viper.SetConfigType(ConfigType)

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}

	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("read config: %w", err)
		}
		if err = ensureConfigExists(filepath.Join(configDir, AppName)); err != nil {
			return err
		}
		if err = viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Keying
	if s.DotThresholdMs < 50 || s.DotThresholdMs > 5000 {
		errs = append(errs, fmt.Errorf("dot_threshold_ms must be between 50 and 5000, got %d", s.DotThresholdMs))
	}
	if s.PauseThresholdMs < 100 || s.PauseThresholdMs > 10000 {
		errs = append(errs, fmt.Errorf("pause_threshold_ms must be between 100 and 10000, got %d", s.PauseThresholdMs))
	}
	if s.PauseThresholdMs <= s.DotThresholdMs {
		errs = append(errs, fmt.Errorf("pause_threshold_ms (%d) must exceed dot_threshold_ms (%d)", s.PauseThresholdMs, s.DotThresholdMs))
	}

	// Audio device settings
	if s.DeviceIndex < -1 {
		errs = append(errs, fmt.Errorf("device_index must be -1 or a device number, got %d", s.DeviceIndex))
	}
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %v", s.SampleRate))
	}
	if s.Channels < 1 || s.Channels > 2 {
		errs = append(errs, fmt.Errorf("channels must be 1 or 2, got %d", s.Channels))
	}
	if s.BufferSize < 64 || s.BufferSize > 8192 {
		errs = append(errs, fmt.Errorf("buffer_size must be between 64 and 8192, got %d", s.BufferSize))
	}

	// Tone detection
	if s.ToneFrequency < 100 || s.ToneFrequency > 3000 {
		errs = append(errs, fmt.Errorf("tone_frequency must be between 100 and 3000 Hz, got %v", s.ToneFrequency))
	}
	if s.BlockSize < 32 || s.BlockSize > 4096 {
		errs = append(errs, fmt.Errorf("block_size must be between 32 and 4096, got %d", s.BlockSize))
	}
	if s.OverlapPct < 0 || s.OverlapPct > 99 {
		errs = append(errs, fmt.Errorf("overlap_pct must be between 0 and 99, got %d", s.OverlapPct))
	}

	// Detection thresholds
	if s.Threshold < 0.0 || s.Threshold > 1.0 {
		errs = append(errs, fmt.Errorf("threshold must be between 0.0 and 1.0, got %v", s.Threshold))
	}
	if s.Hysteresis < 1 || s.Hysteresis > 50 {
		errs = append(errs, fmt.Errorf("hysteresis must be between 1 and 50, got %d", s.Hysteresis))
	}
	if s.AGCDecay < 0.99 || s.AGCDecay > 0.99999 {
		errs = append(errs, fmt.Errorf("agc_decay must be between 0.99 and 0.99999, got %v", s.AGCDecay))
	}
	if s.AGCAttack < 0.0 || s.AGCAttack > 1.0 {
		errs = append(errs, fmt.Errorf("agc_attack must be between 0.0 and 1.0, got %v", s.AGCAttack))
	}
	if s.AGCWarmupBlocks < 0 || s.AGCWarmupBlocks > 1000 {
		errs = append(errs, fmt.Errorf("agc_warmup_blocks must be between 0 and 1000, got %d", s.AGCWarmupBlocks))
	}

	// Logging
	switch s.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be one of trace, debug, info, warn, error, got %q", s.LogLevel))
	}

	// Nyquist check: tone frequency must be less than half the sample rate
	if s.ToneFrequency >= s.SampleRate/2 {
		errs = append(errs, fmt.Errorf("tone_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.ToneFrequency, s.SampleRate/2))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Keyer returns the timing settings for a keyer.Session.
func (s *Settings) Keyer() keyer.Config {
	return keyer.Config{
		DotThreshold:       time.Duration(s.DotThresholdMs) * time.Millisecond,
		PauseThreshold:     time.Duration(s.PauseThresholdMs) * time.Millisecond,
		UndoKeepsCommitted: s.UndoKeepsCommitted,
	}
}

func (s *Settings) Audio() audio.Config {
	return audio.Config{
		DeviceIndex: s.DeviceIndex,
		SampleRate:  uint32(s.SampleRate),
		Channels:    uint32(s.Channels),
		BufferSize:  uint32(s.BufferSize),
	}
}

func (s *Settings) Goertzel() dsp.GoertzelConfig {
	return dsp.GoertzelConfig{
		TargetFrequency: s.ToneFrequency,
		SampleRate:      s.SampleRate,
		BlockSize:       s.BlockSize,
	}
}

func (s *Settings) Detector() dsp.KeyDetectorConfig {
	return dsp.KeyDetectorConfig{
		Threshold:       s.Threshold,
		Hysteresis:      s.Hysteresis,
		OverlapPct:      s.OverlapPct,
		AGCEnabled:      s.AGCEnabled,
		AGCDecay:        s.AGCDecay,
		AGCAttack:       s.AGCAttack,
		AGCWarmupBlocks: s.AGCWarmupBlocks,
	}
}

// EffectiveLogLevel applies the debug override.
func (s *Settings) EffectiveLogLevel() string {
	if s.Debug {
		return "debug"
	}
	return s.LogLevel
}
