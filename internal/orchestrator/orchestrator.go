// Package orchestrator implements the Handler Orchestrator (spec §4.7): it
// wires a Service Adapter to the Augmented Video Accessor, Stable-Time
// Sampler, Seek Classifier, Position History Engine, and Restore Dialog
// Controller, and owns their shared lifecycle. Everything above the
// adapter layer is site-agnostic; this package is the only place that
// knows how those pieces compose.
package orchestrator

import (
	"log/slog"
	"sync"
	"time"

	"github.com/streamkeys/position-engine/internal/adapter"
	"github.com/streamkeys/position-engine/internal/clock"
	"github.com/streamkeys/position-engine/internal/config"
	"github.com/streamkeys/position-engine/internal/dialog"
	"github.com/streamkeys/position-engine/internal/history"
	"github.com/streamkeys/position-engine/internal/metrics"
	"github.com/streamkeys/position-engine/internal/seekclass"
	"github.com/streamkeys/position-engine/internal/videoaccess"
)

// setupTickInterval is the ≈1Hz player-rediscovery cadence of spec §4.7
// step 4, grounded on the teacher's video.Matcher.Watch ticker-in-select
// polling loop.
const setupTickInterval = 1 * time.Second

// RestoreOutcome is reported to the caller after a restore attempt, so the
// out-of-scope UI layer can show a failure banner (spec §7).
type RestoreOutcome struct {
	Entry   history.PositionEntry
	Err     error
	Success bool
}

// Orchestrator is one instance per Service Adapter (per tab, in the
// intended deployment). It is safe for concurrent use by the bridge's HTTP
// handlers; all mutable cross-cutting state is behind mu.
type Orchestrator struct {
	ad  adapter.Adapter
	clk clock.Clock
	cfg config.Tunables

	accessor *videoaccess.Accessor
	sampler  *videoaccess.Sampler

	onRestoreOutcome func(RestoreOutcome)
	onHistoryUpdated func()

	mu            sync.Mutex
	av            *videoaccess.AugmentedVideo
	classifier    *seekclass.Classifier
	engine        *history.Engine
	dialogCtl     *dialog.Controller
	cancelSeeking func()
	cancelSeeked  func()

	setupTicker clock.Ticker
	done        chan struct{}
	wg          sync.WaitGroup
}

// New constructs an Orchestrator for the given adapter. onRestoreOutcome
// may be nil; it is called after every restoration attempt issued through
// the dialog.
func New(ad adapter.Adapter, clk clock.Clock, cfg config.Tunables, onRestoreOutcome func(RestoreOutcome)) *Orchestrator {
	return &Orchestrator{
		ad:               ad,
		clk:              clk,
		cfg:              cfg,
		accessor:         videoaccess.NewAccessor(ad),
		sampler:          videoaccess.NewSampler(clk, 16*time.Millisecond, cfg.StableTimeDelay),
		onRestoreOutcome: onRestoreOutcome,
		done:             make(chan struct{}),
	}
}

// OnHistoryUpdated registers fn to be called whenever a new position entry
// is appended to the attached video's history (spec §4.5), from either a
// recordable seek or a manual save. The bridge uses this to broadcast the
// change over SSE. Call before Start; fn may be nil.
func (o *Orchestrator) OnHistoryUpdated(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onHistoryUpdated = fn
}

func (o *Orchestrator) notifyHistoryUpdated() {
	o.mu.Lock()
	fn := o.onHistoryUpdated
	o.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Start begins the sampler loop and the setup tick (spec §4.7 steps 3-4).
func (o *Orchestrator) Start() {
	o.wg.Add(2)
	go func() {
		defer o.wg.Done()
		o.sampler.Run(o.currentAugmented, o.seekInProgress, o.onSteadySample)
	}()
	go func() {
		defer o.wg.Done()
		o.runSetupTick()
	}()
}

// Stop tears down the sampler, the setup tick, and every outstanding
// listener, and resets per-video flags (spec §4.7 step 5). After Stop
// returns, no further state changes occur.
func (o *Orchestrator) Stop() {
	close(o.done)
	o.sampler.Stop()
	o.wg.Wait()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancelSeeking != nil {
		o.cancelSeeking()
		o.cancelSeeking = nil
	}
	if o.cancelSeeked != nil {
		o.cancelSeeked()
		o.cancelSeeked = nil
	}
	o.av = nil
	o.classifier = nil
	o.engine = nil
	o.dialogCtl = nil
}

func (o *Orchestrator) runSetupTick() {
	ticker := o.clk.NewTicker(setupTickInterval)
	defer ticker.Stop()

	o.Discover()
	for {
		select {
		case <-ticker.C():
			o.Discover()
		case <-o.done:
			return
		}
	}
}

// Discover re-runs player/video discovery via the Accessor and, on a
// changed binding, rewires the classifier/engine/dialog/seek listener for
// the newly attached video (spec §4.2, §4.7 step 4). It is exported so the
// bridge can also trigger an out-of-cycle rediscovery (e.g. in response to
// an extension-reported navigation event), not just the ≈1Hz setup tick.
func (o *Orchestrator) Discover() {
	av, changed, ok := o.accessor.Access()
	if !ok || !changed {
		return
	}
	o.attach(av)
}

func (o *Orchestrator) attach(av *videoaccess.AugmentedVideo) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancelSeeking != nil {
		o.cancelSeeking()
		o.cancelSeeking = nil
	}
	if o.cancelSeeked != nil {
		o.cancelSeeked()
		o.cancelSeeked = nil
	}

	metrics.AttachedVideosTotal.Inc()

	o.av = av
	o.classifier = seekclass.New(o.clk, o.cfg.KeyboardSeekFlagTimeout, o.cfg.KeyboardSeekFlagTimeoutNoVideo)
	o.classifier.SetVideoAttached(true)
	o.engine = history.New(o.clk, o.cfg)
	o.dialogCtl = dialog.New(o.restoreSelected, nil)

	av.Init(o.clk.Now())
	o.engine.OnPlayable()

	video := av.Video()
	o.cancelSeeking = video.OnSeeking(func() {
		o.onSeeking(av, video)
	})
	o.cancelSeeked = video.OnSeeked(func() {
		o.onSteadySample(av)
	})

	if buttons, ok := o.ad.SeekButtons(video); ok {
		if buttons.Backward != nil {
			buttons.Backward.OnClick(func() { o.MarkKeyboardSeek() })
		}
		if buttons.Forward != nil {
			buttons.Forward.OnClick(func() { o.MarkKeyboardSeek() })
		}
	}
}

func (o *Orchestrator) onSeeking(av *videoaccess.AugmentedVideo, video adapter.Video) {
	o.mu.Lock()
	classifier := o.classifier
	engine := o.engine
	o.mu.Unlock()
	if classifier == nil || engine == nil {
		return
	}

	kind := classifier.Classify(engine.CaptureWindowOpen())

	srcTime := av.GetStableTime()
	if kind == seekclass.KindAutoResume {
		// The capture-window candidate is the resume's destination, not the
		// frozen pre-seek stable value recording uses for the other kinds
		// (spec §4.5 captureOpen, §8 scenario E4). On adapters whose
		// GetPlaybackTime override already reflects the target by the time
		// 'seeking' fires this is enough on its own; where it isn't (the
		// destination only lands once seeking completes), onSteadySample's
		// 'seeked' hook below offers the correct value once it's known.
		srcTime = av.PlaybackTime()
	}
	if engine.HandleSeek(kind, srcTime, o.clk.Now()) {
		o.notifyHistoryUpdated()
	}
}

// onSteadySample offers the current playback position as a load-time
// candidate (spec §4.5's "steady playback sample" path). It is wired both
// to the sampler's periodic tick — for videos that load directly at a
// resume position with no discrete seek event at all — and to the
// attached video's 'seeked' event, so an auto-resume's destination is
// captured as soon as it actually lands (spec §8 scenario E4).
// ObserveCandidate is a no-op outside the capture window, so this can be
// called unconditionally from either source.
func (o *Orchestrator) onSteadySample(av *videoaccess.AugmentedVideo) {
	o.mu.Lock()
	engine := o.engine
	o.mu.Unlock()
	if engine == nil {
		return
	}
	engine.ObserveCandidate(av.PlaybackTime())
}

func (o *Orchestrator) currentAugmented() (*videoaccess.AugmentedVideo, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.av == nil {
		return nil, false
	}
	return o.av, true
}

func (o *Orchestrator) seekInProgress(av *videoaccess.AugmentedVideo) bool {
	o.mu.Lock()
	classifier := o.classifier
	o.mu.Unlock()
	flagged := classifier != nil && classifier.AnySeekFlagSet()
	return flagged || av.Video().Seeking()
}

// MarkKeyboardSeek forwards the keyboard-dispatch layer's markKeyboardSeek
// signal (spec §6) to the attached video's Seek Classifier.
func (o *Orchestrator) MarkKeyboardSeek() {
	o.mu.Lock()
	classifier, av := o.classifier, o.av
	o.mu.Unlock()
	if classifier == nil {
		return
	}
	var video adapter.Video
	if av != nil {
		video = av.Video()
	}
	classifier.MarkKeyboardSeek(video)
}

// SaveManualPosition implements the keyboard "save" key (spec §4.5
// "Recording on manual save"): it reads playbackTime() directly, not
// stableTime, and reports whether an entry was appended.
func (o *Orchestrator) SaveManualPosition() bool {
	o.mu.Lock()
	engine, av := o.engine, o.av
	o.mu.Unlock()
	if engine == nil || av == nil {
		return false
	}
	saved := engine.RecordManual(av.PlaybackTime(), o.clk.Now())
	if saved {
		o.notifyHistoryUpdated()
	}
	return saved
}

// OpenRestoreDialog renders the current history (spec §4.6) and opens the
// dialog. Returns false if no video is attached yet.
func (o *Orchestrator) OpenRestoreDialog() bool {
	o.mu.Lock()
	engine, dialogCtl := o.engine, o.dialogCtl
	o.mu.Unlock()
	if engine == nil || dialogCtl == nil {
		return false
	}

	loadTime, haveLoadTime := engine.LoadTimePosition()
	items := dialog.BuildItems(loadTime, haveLoadTime, engine.Entries(), o.clk.Now())
	dialogCtl.Open(items)
	return true
}

// CloseRestoreDialog closes the dialog without selecting anything.
func (o *Orchestrator) CloseRestoreDialog() {
	o.mu.Lock()
	dialogCtl := o.dialogCtl
	o.mu.Unlock()
	if dialogCtl != nil {
		dialogCtl.Close()
	}
}

// HandleDialogKeys forwards a keystroke to the dialog controller (spec §6
// handleDialogKeys). Returns true if the engine consumed the event.
func (o *Orchestrator) HandleDialogKeys(key string) bool {
	o.mu.Lock()
	dialogCtl := o.dialogCtl
	o.mu.Unlock()
	if dialogCtl == nil {
		return false
	}
	return dialogCtl.HandleKey(key)
}

// restoreSelected is the dialog's onRestore callback: it marks the
// upcoming seek as programmatic (so it never self-records, spec §9 open
// question 1) before asking the accessor to perform it.
func (o *Orchestrator) restoreSelected(entry history.PositionEntry) {
	o.mu.Lock()
	classifier, engine, av := o.classifier, o.engine, o.av
	o.mu.Unlock()
	if engine == nil || av == nil {
		return
	}

	if classifier != nil {
		classifier.MarkProgrammaticSeek(av.Video())
	}

	err := engine.Restore(av, entry)
	outcome := RestoreOutcome{Entry: entry, Err: err, Success: err == nil}
	if err != nil {
		metrics.RestoresTotal.WithLabelValues("failure").Inc()
		slog.Warn("restore failed", "time", entry.Time, "error", err)
	} else {
		metrics.RestoresTotal.WithLabelValues("success").Inc()
	}
	if o.onRestoreOutcome != nil {
		o.onRestoreOutcome(outcome)
	}
}
