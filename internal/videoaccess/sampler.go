package videoaccess

import (
	"time"

	"github.com/streamkeys/position-engine/internal/clock"
)

// Sampler runs the cooperative display-frame loop described in spec §4.3
// and §5: at each tick it reads the currently attached AugmentedVideo (if
// any) and calls Tick on it. The loop itself never blocks or suspends
// except at the ticker channel, matching the single-threaded cooperative
// scheduling model spec §5 requires.
type Sampler struct {
	clk          clock.Clock
	tickInterval time.Duration
	stableDelay  time.Duration

	ticker clock.Ticker
	done   chan struct{}
}

// NewSampler creates a Sampler. tickInterval approximates the ~60Hz
// display-frame callback (spec §4.3); stableDelay is STABLE_TIME_DELAY_MS.
func NewSampler(clk clock.Clock, tickInterval, stableDelay time.Duration) *Sampler {
	return &Sampler{clk: clk, tickInterval: tickInterval, stableDelay: stableDelay, done: make(chan struct{})}
}

// Current supplies the currently attached AugmentedVideo, or ok=false when
// none is mounted. SeekInProgress reports whether a seek is currently in
// flight for that video — the OR of the element's own `seeking` state and
// the Seek Classifier's flags (spec §4.3 step 3).
type Current func() (av *AugmentedVideo, ok bool)
type SeekInProgress func(av *AugmentedVideo) bool

// Run starts the sampler loop. It blocks until Stop is called; run it in
// its own goroutine, the same way the teacher runs its SSE hub's event
// loop. onTick, if non-nil, is called after every successful Tick with the
// just-ticked AugmentedVideo — the hook the orchestrator uses to offer
// steady playback samples to the history engine's load-time capture (spec
// §4.5's "steady playback sample" path), since this package has no
// dependency on the history package itself.
func (s *Sampler) Run(current Current, seeking SeekInProgress, onTick func(av *AugmentedVideo)) {
	s.ticker = s.clk.NewTicker(s.tickInterval)
	defer s.ticker.Stop()

	for {
		select {
		case now := <-s.ticker.C():
			av, ok := current()
			if !ok {
				continue
			}
			if !av.Initialized() {
				av.Init(now)
				continue
			}
			av.Tick(now, seeking(av), s.stableDelay)
			if onTick != nil {
				onTick(av)
			}
		case <-s.done:
			return
		}
	}
}

// Stop terminates the sampler loop. Safe to call once; the loop goroutine
// returns as soon as its select observes the closed done channel.
func (s *Sampler) Stop() {
	close(s.done)
}
