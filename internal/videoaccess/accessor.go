// Package videoaccess implements the Augmented Video Accessor and the
// Stable-Time Sampler (spec §4.2, §4.3): the layer that turns a raw
// adapter.Video into the four derived readers (playbackTime, stableTime,
// displayTime, duration) every other component reads from.
package videoaccess

import (
	"sync"
	"time"

	"github.com/streamkeys/position-engine/internal/adapter"
)

// Accessor is the factory described in spec §4.2: each call to Access()
// re-runs player/video discovery and re-augments when the video element's
// identity has changed (SPA navigation). Augmentation is idempotent —
// calling Access() again with the same Video is a no-op re-read of the
// existing AugmentedVideo.
type Accessor struct {
	ad adapter.Adapter

	mu      sync.Mutex
	current *AugmentedVideo
}

// NewAccessor creates an Accessor for the given Service Adapter.
func NewAccessor(ad adapter.Adapter) *Accessor {
	return &Accessor{ad: ad}
}

// Access runs GetPlayer/GetVideo and returns the AugmentedVideo for the
// currently mounted video, or ok=false when no player/video is mounted yet.
// Callers must be null-safe: a not-yet-mounted player is an expected,
// frequent state, not an error.
func (a *Accessor) Access() (av *AugmentedVideo, changed bool, ok bool) {
	player, ok := a.ad.GetPlayer()
	if !ok {
		return a.detach(), false, false
	}
	video, ok := a.ad.GetVideo(player)
	if !ok {
		return a.detach(), false, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil && a.current.vid.ID() == video.ID() {
		return a.current, false, true
	}

	a.current = newAugmentedVideo(a.ad, video)
	return a.current, true, true
}

// detach clears the current binding (player/video no longer mounted) and
// returns the previous binding, or nil if there was none.
func (a *Accessor) detach() (previous *AugmentedVideo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	previous = a.current
	a.current = nil
	return previous
}

// AugmentedVideo is the live video element plus the four derived readers
// and the sampler-owned scalars described in spec §3.
type AugmentedVideo struct {
	ad  adapter.Adapter
	vid adapter.Video

	mu              sync.Mutex
	initialized     bool
	lastKnownTime   float64
	lastKnownSet    bool
	stableTime      float64
	stableSet       bool
	stableUpdatedAt time.Time
}

func newAugmentedVideo(ad adapter.Adapter, vid adapter.Video) *AugmentedVideo {
	return &AugmentedVideo{ad: ad, vid: vid}
}

// Video returns the underlying adapter.Video this AugmentedVideo wraps.
func (av *AugmentedVideo) Video() adapter.Video { return av.vid }

// PlaybackTime is the live playback time: the adapter's GetPlaybackTime
// override when available, else the element's own clock (spec §3).
func (av *AugmentedVideo) PlaybackTime() float64 {
	if t, ok := av.ad.GetPlaybackTime(av.vid); ok {
		return t
	}
	return av.vid.Time()
}

// Duration is the adapter's GetDuration override when available, else the
// element's own duration (spec §3).
func (av *AugmentedVideo) Duration() float64 {
	if d, ok := av.ad.GetDuration(av.vid); ok {
		return d
	}
	return av.vid.Duration()
}

// Initialized reports whether Init has run for this video yet. Invariant 1
// of spec §3 requires stableTime be defined by the time readyForTracking
// becomes true; the orchestrator calls Init as soon as the video first
// reaches a playable state, well before readyForTracking can turn true.
func (av *AugmentedVideo) Initialized() bool {
	av.mu.Lock()
	defer av.mu.Unlock()
	return av.initialized
}

// Init sets both lastKnownTime and stableTime to the current playback time
// immediately, satisfying spec §4.3's "Initial value" rule. It is a no-op
// if already initialized.
func (av *AugmentedVideo) Init(now time.Time) {
	t := av.PlaybackTime()
	av.mu.Lock()
	defer av.mu.Unlock()
	if av.initialized {
		return
	}
	av.lastKnownTime = t
	av.lastKnownSet = true
	av.stableTime = t
	av.stableSet = true
	av.stableUpdatedAt = now
	av.initialized = true
}

// Tick runs one sampler iteration (spec §4.3): read playbackTime, assign it
// to lastKnownTime unconditionally, and — if the stable-time delay has
// elapsed and no seek is in progress — copy lastKnownTime into stableTime.
// seekInProgress must already OR together the element's own `seeking` state
// and the Seek Classifier's flags, per spec §4.3 step 3.
func (av *AugmentedVideo) Tick(now time.Time, seekInProgress bool, stableDelay time.Duration) {
	t := av.PlaybackTime()

	av.mu.Lock()
	defer av.mu.Unlock()
	av.lastKnownTime = t
	av.lastKnownSet = true

	if seekInProgress {
		return
	}
	if av.stableUpdatedAt.IsZero() || now.Sub(av.stableUpdatedAt) >= stableDelay {
		av.stableTime = t
		av.stableUpdatedAt = now
		av.stableSet = true
	}
}

// GetStableTime implements the fallback chain in spec §3: stableTime if
// defined, else lastKnownTime, else PlaybackTime(), else the element's own
// clock. This is the authoritative pre-seek reader the history engine
// records from.
func (av *AugmentedVideo) GetStableTime() float64 {
	av.mu.Lock()
	if av.stableSet {
		defer av.mu.Unlock()
		return av.stableTime
	}
	if av.lastKnownSet {
		defer av.mu.Unlock()
		return av.lastKnownTime
	}
	av.mu.Unlock()

	if t, ok := av.ad.GetPlaybackTime(av.vid); ok {
		return t
	}
	return av.vid.Time()
}

// GetDisplayTime implements spec §3's UI-only reader: PlaybackTime() (via
// the adapter override, else the element's own clock) if available, else
// lastKnownTime, else 0.
func (av *AugmentedVideo) GetDisplayTime() float64 {
	if t, ok := av.ad.GetPlaybackTime(av.vid); ok {
		return t
	}
	if av.vid != nil {
		return av.vid.Time()
	}
	av.mu.Lock()
	defer av.mu.Unlock()
	if av.lastKnownSet {
		return av.lastKnownTime
	}
	return 0
}

// SeekToTime performs spec §4.5's restoration algorithm: call the
// adapter's SeekToTime, and if it declines, fall back to writing the
// element's own clock directly. It reports success when the adapter
// confirms the seek, or when PlaybackTime() reads the target back after the
// fallback write. On MSE/buffer-relative services PlaybackTime comes from
// the adapter's own readout, which the direct write does not move, so the
// return is false and the caller (history.Engine.Restore) reports failure
// (spec §4.5, §7).
func (av *AugmentedVideo) SeekToTime(t float64) bool {
	if av.ad.SeekToTime(av.vid, t, av.Duration()) {
		return true
	}
	av.vid.SetTime(t)
	return av.PlaybackTime() == t
}

// SeekByDelta performs a relative seek, used by the out-of-scope keyboard
// dispatch layer's arrow-key/skip-button actions once they've reached the
// bridge (spec §4.1 SeekByDelta).
func (av *AugmentedVideo) SeekByDelta(delta float64) {
	if av.ad.SeekByDelta(av.vid, delta) {
		return
	}
	av.vid.SetTime(av.vid.Time() + delta)
}
