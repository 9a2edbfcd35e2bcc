// Package seekclass implements the Seek Classifier (spec §4.4): it
// determines, at the moment a 'seeking' event arrives, whether the seek in
// flight is a keyboard/button seek, a timeline click, a service
// auto-resume, or a programmatic restoration the engine issued itself.
package seekclass

import (
	"sync"
	"time"

	"github.com/streamkeys/position-engine/internal/adapter"
	"github.com/streamkeys/position-engine/internal/clock"
)

// Kind is the outcome of classifying a 'seeking' event.
type Kind int

const (
	// KindTimelineClick is a seek with no prior keyboard/button mark and no
	// open capture window — never debounced.
	KindTimelineClick Kind = iota
	// KindKeyboardOrButton is a seek explicitly marked via MarkKeyboardSeek
	// — subject to the save-suppression debounce window.
	KindKeyboardOrButton
	// KindAutoResume is a seek observed while the capture window is still
	// open and no keyboard mark is set — never recorded, may seed
	// loadTimePosition.
	KindAutoResume
	// KindProgrammatic is a seek the engine itself issued (restoration) —
	// unconditionally excluded from history, spec §9 open question 1.
	KindProgrammatic
)

func (k Kind) String() string {
	switch k {
	case KindTimelineClick:
		return "timeline-click"
	case KindKeyboardOrButton:
		return "keyboard-or-button"
	case KindAutoResume:
		return "auto-resume"
	case KindProgrammatic:
		return "programmatic"
	default:
		return "unknown"
	}
}

// Classifier owns isKeyboardOrButtonSeek and the programmatic-restoration
// equivalent, plus the one-shot 'seeked' handlers and fallback timers that
// clear them (spec §4.4's rapid-key handling and cancellation rules).
type Classifier struct {
	mu sync.Mutex
	clk clock.Clock

	keyboardTimeout        time.Duration
	keyboardTimeoutNoVideo time.Duration

	isKeyboardOrButtonSeek bool
	cancelKeyboardSeeked   func()
	keyboardTimer          clock.Timer

	isProgrammaticSeek    bool
	cancelProgrammaticSeeked func()
	programmaticTimer     clock.Timer

	lastBeforeSeekHint float64
	hasBeforeSeekHint  bool

	videoAttached bool
}

// New creates a Classifier. keyboardTimeout/keyboardTimeoutNoVideo are
// KEYBOARD_SEEK_FLAG_TIMEOUT_MS's two variants (spec §4.4, §6).
func New(clk clock.Clock, keyboardTimeout, keyboardTimeoutNoVideo time.Duration) *Classifier {
	return &Classifier{
		clk:                    clk,
		keyboardTimeout:        keyboardTimeout,
		keyboardTimeoutNoVideo: keyboardTimeoutNoVideo,
	}
}

// SetVideoAttached tells the classifier whether a video element is
// currently attached, which selects the fallback-timer duration for
// subsequent MarkKeyboardSeek calls (spec §4.4: "≈0.5s when no video
// element is attached").
func (c *Classifier) SetVideoAttached(attached bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.videoAttached = attached
}

func (c *Classifier) timeoutLocked() time.Duration {
	if c.videoAttached {
		return c.keyboardTimeout
	}
	return c.keyboardTimeoutNoVideo
}

// MarkKeyboardSeek marks a keyboard/button-originated seek in flight.
// Per spec §4.4's rapid-key handling, any previously registered 'seeked'
// handler and fallback timer are cancelled first, so a burst of presses
// collapses into one still-armed flag instead of clearing mid-burst.
// video may be nil if no video is currently attached: the flag is still set
// and the fallback timer still armed, but no 'seeked' handler is
// registered. The timer duration follows SetVideoAttached, not video.
func (c *Classifier) MarkKeyboardSeek(video adapter.Video) {
	c.mu.Lock()
	if c.cancelKeyboardSeeked != nil {
		c.cancelKeyboardSeeked()
		c.cancelKeyboardSeeked = nil
	}
	if c.keyboardTimer != nil {
		c.keyboardTimer.Stop()
		c.keyboardTimer = nil
	}
	c.isKeyboardOrButtonSeek = true
	timeout := c.timeoutLocked()
	c.mu.Unlock()

	if video != nil {
		cancel := video.OnSeeked(func() {
			c.clearKeyboardSeek()
		})
		c.mu.Lock()
		c.cancelKeyboardSeeked = cancel
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.keyboardTimer = c.clk.AfterFunc(timeout, c.clearKeyboardSeek)
	c.mu.Unlock()
}

func (c *Classifier) clearKeyboardSeek() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isKeyboardOrButtonSeek = false
	if c.cancelKeyboardSeeked != nil {
		c.cancelKeyboardSeeked()
		c.cancelKeyboardSeeked = nil
	}
	if c.keyboardTimer != nil {
		c.keyboardTimer.Stop()
		c.keyboardTimer = nil
	}
}

// MarkProgrammaticSeek marks a restoration-originated seek in flight, using
// the identical cancel-then-rearm machinery as MarkKeyboardSeek, so the
// engine's own restore-seek is never misclassified as a user seek and
// never self-records (spec §9 open question 1).
func (c *Classifier) MarkProgrammaticSeek(video adapter.Video) {
	c.mu.Lock()
	if c.cancelProgrammaticSeeked != nil {
		c.cancelProgrammaticSeeked()
		c.cancelProgrammaticSeeked = nil
	}
	if c.programmaticTimer != nil {
		c.programmaticTimer.Stop()
		c.programmaticTimer = nil
	}
	c.isProgrammaticSeek = true
	timeout := c.timeoutLocked()
	c.mu.Unlock()

	if video != nil {
		cancel := video.OnSeeked(func() {
			c.clearProgrammaticSeek()
		})
		c.mu.Lock()
		c.cancelProgrammaticSeeked = cancel
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.programmaticTimer = c.clk.AfterFunc(timeout, c.clearProgrammaticSeek)
	c.mu.Unlock()
}

func (c *Classifier) clearProgrammaticSeek() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isProgrammaticSeek = false
	if c.cancelProgrammaticSeeked != nil {
		c.cancelProgrammaticSeeked()
		c.cancelProgrammaticSeeked = nil
	}
	if c.programmaticTimer != nil {
		c.programmaticTimer.Stop()
		c.programmaticTimer = nil
	}
}

// RecordBeforeSeek stores a hint for the pre-seek position, used only when
// stableTime is unavailable (spec §4.4, §7 race handling).
func (c *Classifier) RecordBeforeSeek(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastBeforeSeekHint = t
	c.hasBeforeSeekHint = true
}

// BeforeSeekHint returns the last hint recorded via RecordBeforeSeek.
func (c *Classifier) BeforeSeekHint() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastBeforeSeekHint, c.hasBeforeSeekHint
}

// Classify implements the table in spec §4.4, applied when a 'seeking'
// event arrives while readyForTracking is true. captureWindowOpen should
// reflect the history engine's current state-machine phase.
func (c *Classifier) Classify(captureWindowOpen bool) Kind {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isProgrammaticSeek {
		return KindProgrammatic
	}
	if c.isKeyboardOrButtonSeek {
		return KindKeyboardOrButton
	}
	if captureWindowOpen {
		return KindAutoResume
	}
	return KindTimelineClick
}

// AnySeekFlagSet reports whether either flag is currently set — used by
// the Stable-Time Sampler (spec §4.3 step 3) to decide whether to freeze
// stableTime, in addition to the element's own `seeking` state.
func (c *Classifier) AnySeekFlagSet() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isKeyboardOrButtonSeek || c.isProgrammaticSeek
}
