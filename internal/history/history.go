// Package history implements the Position History Engine (spec §4.5): the
// state machine that gates when seeks become recordable, the debounce and
// proximity-rejection policy, the bounded entry list, and restoration.
package history

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streamkeys/position-engine/internal/clock"
	"github.com/streamkeys/position-engine/internal/config"
	"github.com/streamkeys/position-engine/internal/metrics"
	"github.com/streamkeys/position-engine/internal/seekclass"
)

// Kind distinguishes how a PositionEntry was captured.
type Kind string

const (
	KindLoadTime Kind = "load-time"
	KindSeek     Kind = "seek"
	KindManual   Kind = "manual"
)

// PositionEntry is an immutable saved playback position (spec §3).
type PositionEntry struct {
	ID      string
	Time    float64
	SavedAt time.Time
	Kind    Kind
}

// ErrSeekTargetUnresolvable is returned by Restore when the adapter declined
// the seek and the fallback write did not report success either (spec §7).
var ErrSeekTargetUnresolvable = errors.New("history: seek target unresolvable")

// Restorer is the narrow surface Restore needs — satisfied by
// *videoaccess.AugmentedVideo without this package importing videoaccess.
type Restorer interface {
	SeekToTime(t float64) bool
}

// phase is the video-lifecycle state machine of spec §4.5.
type phase int

const (
	phaseFresh phase = iota
	phaseCaptureOpen
	phaseSettling
	phaseTracking
)

// Engine is one HistoryState, scoped to a single attached video (spec §3).
// It is not safe to share across videos — the orchestrator constructs a new
// Engine each time the Augmented Video Accessor reports a changed video.
type Engine struct {
	clk clock.Clock
	cfg config.Tunables

	mu               sync.Mutex
	ph               phase
	entries          []PositionEntry
	loadTimePosition float64
	haveLoadTime     bool
	lastSeekTime     time.Time
	haveLastSeek     bool

	captureTimer clock.Timer
	readyTimer   clock.Timer
}

// New creates an Engine using the given clock and tunables. clk is
// *clock.Real in production and *clock.Fake in tests.
func New(clk clock.Clock, cfg config.Tunables) *Engine {
	return &Engine{clk: clk, cfg: cfg, ph: phaseFresh}
}

// OnPlayable transitions fresh → captureOpen and arms the two timers that
// later close the capture window and flip readyForTracking, both measured
// from this moment (spec §3's captureWindowOpen/readyForTracking definitions).
func (e *Engine) OnPlayable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ph != phaseFresh {
		return
	}
	e.ph = phaseCaptureOpen

	captureDelay := e.cfg.LoadTimeCaptureDelay
	readyDelay := captureDelay + e.cfg.ReadyForTrackingDelay

	e.captureTimer = e.clk.AfterFunc(captureDelay, e.closeCaptureWindow)
	e.readyTimer = e.clk.AfterFunc(readyDelay, e.markReady)
}

func (e *Engine) closeCaptureWindow() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ph == phaseCaptureOpen {
		e.ph = phaseSettling
	}
}

func (e *Engine) markReady() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ph = phaseTracking
}

// CaptureWindowOpen reports whether a load-time candidate may still be set.
func (e *Engine) CaptureWindowOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ph == phaseCaptureOpen
}

// ReadyForTracking reports whether seeks may now be classified and recorded.
func (e *Engine) ReadyForTracking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ph == phaseTracking
}

// ObserveCandidate offers a position observed while captureOpen (a steady
// playback sample, or an auto-resume seek) as a loadTimePosition candidate.
// It is set at most once, and only if it clears SeekMinDiffSeconds — per
// spec §4.5, "starting from the beginning is not a useful restore point".
func (e *Engine) ObserveCandidate(t float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observeCandidateLocked(t)
}

func (e *Engine) observeCandidateLocked(t float64) {
	if e.ph != phaseCaptureOpen {
		return
	}
	if e.haveLoadTime {
		return
	}
	if t < e.cfg.SeekMinDiffSeconds {
		return
	}
	e.loadTimePosition = t
	e.haveLoadTime = true
}

// LoadTimePosition returns the captured load-time candidate, if any.
func (e *Engine) LoadTimePosition() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadTimePosition, e.haveLoadTime
}

// HandleSeek applies spec §4.4's classification table and §4.5's recording
// algorithm to one observed seek. srcTime is the pre-seek position (the
// caller reads it from AugmentedVideo.GetStableTime() before calling this).
// now is the wall-clock moment the seeking event was observed. It reports
// whether a new entry was appended.
func (e *Engine) HandleSeek(kind seekclass.Kind, srcTime float64, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if kind == seekclass.KindProgrammatic {
		// Restoration is programmatic and must never self-record (spec §9
		// open question 1, resolved per the suggested policy).
		return false
	}

	if e.ph != phaseTracking {
		if e.ph == phaseCaptureOpen && kind == seekclass.KindAutoResume {
			metrics.AutoResumesObservedTotal.Inc()
			e.observeCandidateLocked(srcTime)
		}
		return false
	}

	switch kind {
	case seekclass.KindAutoResume:
		// Unreachable in practice once tracking (captureWindowOpen is
		// already false by then), kept for fidelity to the table in §4.4.
		metrics.AutoResumesObservedTotal.Inc()
		return false
	case seekclass.KindKeyboardOrButton:
		return e.recordLocked(srcTime, now, true)
	case seekclass.KindTimelineClick:
		return e.recordLocked(srcTime, now, false)
	default:
		return false
	}
}

func (e *Engine) recordLocked(srcTime float64, now time.Time, debounced bool) bool {
	if e.proximityRejectLocked(srcTime) {
		metrics.SeeksRejectedProximityTotal.Inc()
		return false
	}
	if debounced && e.haveLastSeek && now.Sub(e.lastSeekTime) < e.cfg.SeekDebounceWindow {
		// Suppressed; lastSeekTime intentionally left untouched so a burst
		// collapses to the first press (spec §4.5 step 3).
		metrics.SeeksDebouncedTotal.Inc()
		return false
	}

	e.appendLocked(PositionEntry{
		ID:      uuid.NewString(),
		Time:    srcTime,
		SavedAt: now,
		Kind:    KindSeek,
	})
	e.lastSeekTime = now
	e.haveLastSeek = true
	metrics.SeeksRecordedTotal.WithLabelValues("seek").Inc()
	return true
}

// RecordManual captures a manual-save entry (spec §4.5 "Recording on manual
// save"). Proximity rejection applies; debounce does not. Gated on
// readyForTracking so it can never increase entries during the capture
// window or settling phase, matching testable property 5's blanket "while
// readyForTracking is false, entries.length cannot increase".
func (e *Engine) RecordManual(t float64, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ph != phaseTracking {
		return false
	}
	if e.proximityRejectLocked(t) {
		metrics.SeeksRejectedProximityTotal.Inc()
		return false
	}
	e.appendLocked(PositionEntry{
		ID:      uuid.NewString(),
		Time:    t,
		SavedAt: now,
		Kind:    KindManual,
	})
	metrics.SeeksRecordedTotal.WithLabelValues("manual").Inc()
	return true
}

func (e *Engine) proximityRejectLocked(t float64) bool {
	threshold := e.cfg.SeekMinDiffSeconds
	for _, entry := range e.entries {
		d := t - entry.Time
		if d < 0 {
			d = -d
		}
		if d < threshold {
			return true
		}
	}
	if e.haveLoadTime {
		d := t - e.loadTimePosition
		if d < 0 {
			d = -d
		}
		if d < threshold {
			return true
		}
	}
	return false
}

func (e *Engine) appendLocked(entry PositionEntry) {
	e.entries = append(e.entries, entry)
	if len(e.entries) > e.cfg.SeekMaxHistory {
		e.entries = e.entries[len(e.entries)-e.cfg.SeekMaxHistory:]
	}
}

// Entries returns a copy of the current recorded entries, oldest first.
func (e *Engine) Entries() []PositionEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]PositionEntry, len(e.entries))
	copy(out, e.entries)
	return out
}

// Restore performs spec §4.5's restoration algorithm: seekToTime, with the
// adapter/accessor-level fallback already embedded in Restorer.SeekToTime.
// A false return is reported as ErrSeekTargetUnresolvable so the caller can
// show a banner (spec §7); it is never retried.
func (e *Engine) Restore(r Restorer, entry PositionEntry) error {
	if !r.SeekToTime(entry.Time) {
		return ErrSeekTargetUnresolvable
	}
	return nil
}
