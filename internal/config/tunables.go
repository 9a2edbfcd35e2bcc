package config

import (
	_ "embed"
	"time"

	"gopkg.in/yaml.v3"
)

// Tunables holds every option spec §6 recognizes. Field names mirror the
// spec's option names; durations are stored as time.Duration even though
// the spec tables them in milliseconds, since every consumer needs a
// time.Duration to hand to a timer or the sampler.
type Tunables struct {
	// SeekMinDiffSeconds is the proximity-rejection threshold and the
	// minimum value a load-time candidate must clear.
	SeekMinDiffSeconds float64 `yaml:"seek_min_diff_seconds"`

	// SeekDebounceWindow is the keyboard/button save-suppression window.
	SeekDebounceWindow time.Duration `yaml:"-"`
	SeekDebounceMS     int64         `yaml:"seek_debounce_ms"`

	// SeekMaxHistory bounds the number of recorded (non-load-time) entries.
	SeekMaxHistory int `yaml:"seek_max_history"`

	// LoadTimeCaptureDelay is how long the load-time capture window stays
	// open after the video first becomes playable.
	LoadTimeCaptureDelay   time.Duration `yaml:"-"`
	LoadTimeCaptureDelayMS int64         `yaml:"load_time_capture_delay_ms"`

	// ReadyForTrackingDelay is the additional settling delay after the
	// capture window closes, before readyForTracking becomes true.
	ReadyForTrackingDelay   time.Duration `yaml:"-"`
	ReadyForTrackingDelayMS int64         `yaml:"ready_for_tracking_delay_ms"`

	// StableTimeDelay is how far stableTime lags lastKnownTime.
	StableTimeDelay   time.Duration `yaml:"-"`
	StableTimeDelayMS int64         `yaml:"stable_time_delay_ms"`

	// KeyboardSeekFlagTimeout is the fallback-timer duration that clears
	// isKeyboardOrButtonSeek when no 'seeked' event arrives.
	KeyboardSeekFlagTimeout   time.Duration `yaml:"-"`
	KeyboardSeekFlagTimeoutMS int64         `yaml:"keyboard_seek_flag_timeout_ms"`

	// KeyboardSeekFlagTimeoutNoVideo is the shorter fallback used when no
	// video element is currently attached (spec §4.4).
	KeyboardSeekFlagTimeoutNoVideo   time.Duration `yaml:"-"`
	KeyboardSeekFlagTimeoutNoVideoMS int64         `yaml:"keyboard_seek_flag_timeout_no_video_ms"`
}

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults returns spec §6's "Typical" column, loaded from the embedded
// defaults.yaml the way the rest of the domain stack (gopkg.in/yaml.v3,
// pulled in from the go-drift example repo) is meant to be used: as the
// compiled-in baseline, before any persisted override from internal/db is
// applied by Config.Tunables.
func Defaults() Tunables {
	var t Tunables
	if err := yaml.Unmarshal(defaultsYAML, &t); err != nil {
		// The embedded document is authored and reviewed as part of this
		// repository; a parse failure here is a packaging bug, not a
		// runtime condition callers can meaningfully recover from.
		panic("config: embedded defaults.yaml is invalid: " + err.Error())
	}
	t.hydrateDurations()
	return t
}

// hydrateDurations fills in the time.Duration fields from their millisecond
// counterparts after a fresh unmarshal; SeekMinDiffSeconds and
// SeekMaxHistory are used as unmarshalled.
func (t *Tunables) hydrateDurations() {
	t.SeekDebounceWindow = time.Duration(t.SeekDebounceMS) * time.Millisecond
	t.LoadTimeCaptureDelay = time.Duration(t.LoadTimeCaptureDelayMS) * time.Millisecond
	t.ReadyForTrackingDelay = time.Duration(t.ReadyForTrackingDelayMS) * time.Millisecond
	t.StableTimeDelay = time.Duration(t.StableTimeDelayMS) * time.Millisecond
	t.KeyboardSeekFlagTimeout = time.Duration(t.KeyboardSeekFlagTimeoutMS) * time.Millisecond
	t.KeyboardSeekFlagTimeoutNoVideo = time.Duration(t.KeyboardSeekFlagTimeoutNoVideoMS) * time.Millisecond
}
