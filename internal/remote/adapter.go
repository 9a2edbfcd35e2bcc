// Package remote implements a Service Adapter (spec §4.1) whose video
// element lives in a browser tab, not this process. The out-of-scope
// content script owns the real DOM work — locating the player, reading the
// element, dispatching synthetic clicks — and relays what it observes here
// as small telemetry events over HTTP (internal/bridge). This package turns
// that telemetry into the adapter.Video/adapter.Player pair the rest of the
// engine reads from, reusing the fake package's in-process element exactly
// the way the teacher reuses one concrete type across both its production
// and test code paths.
package remote

import (
	"github.com/streamkeys/position-engine/internal/adapter"
	"github.com/streamkeys/position-engine/internal/adapter/fake"
)

// SeekCommand is sent back to the content script when the engine needs to
// move playback — a restoration, or a SeekByDelta from the (out-of-scope)
// keyboard dispatch layer. The content script performs the actual seek
// (writing the element's clock, or clicking the rendered timeline) and
// reports the result via the next telemetry tick.
type SeekCommand struct {
	Time  float64 `json:"time"`
	Delta float64 `json:"delta,omitempty"`
}

// Adapter is a per-session Service Adapter backed by telemetry relayed over
// HTTP. Whenever a sendSeek sink is configured it reports
// SeekByDelta/SeekToTime as accepted (without one, both decline): there is
// no synchronous channel back from the browser to confirm the write, so the
// accessor's SeekToTime fallback (directly writing the element's clock) is
// skipped, and instead the content script's own next telemetry tick is what
// actually corrects stableTime/lastKnownTime if the seek was in fact
// declined. Restore's caller then sees a contemporaneous Success=true, and
// any divergence surfaces as an ordinary new observed position rather than
// a reported restore failure.
type Adapter struct {
	adapter.Base

	player *fake.Player
	video  *fake.Video

	sendSeek func(SeekCommand)
}

// New creates an Adapter for one session, identified by sessionID (used as
// both the player and video element ID, since telemetry is already scoped
// to a single attached video per session). sendSeek is called whenever the
// engine needs to move playback; it is typically wired to broadcast an SSE
// event to the content script.
func New(sessionID string, sendSeek func(SeekCommand)) *Adapter {
	return &Adapter{
		player:   fake.NewPlayer(sessionID),
		video:    fake.NewVideo(sessionID, 0),
		sendSeek: sendSeek,
	}
}

func (a *Adapter) GetPlayer() (adapter.Player, bool) { return a.player, true }

func (a *Adapter) GetVideo(adapter.Player) (adapter.Video, bool) { return a.video, true }

func (a *Adapter) SeekByDelta(v adapter.Video, delta float64) bool {
	if a.sendSeek == nil {
		return false
	}
	a.sendSeek(SeekCommand{Time: v.Time() + delta, Delta: delta})
	return true
}

func (a *Adapter) SeekToTime(v adapter.Video, t, _ float64) bool {
	if a.sendSeek == nil {
		return false
	}
	a.sendSeek(SeekCommand{Time: t})
	return true
}

// Telemetry is one JSON event reported by the content script (internal/bridge
// decodes these off the wire). Event distinguishes which element state
// changed; Time/Duration/Seeking carry the current reading.
type Telemetry struct {
	Event    string  `json:"event"`
	Time     float64 `json:"time"`
	Duration float64 `json:"duration"`
	Seeking  bool    `json:"seeking"`
}

const (
	EventTick    = "tick"
	EventSeeking = "seeking"
	EventSeeked  = "seeked"
)

// Apply folds one telemetry event into the underlying fake.Video, firing
// the matching adapter.Video callbacks so the Seek Classifier and sampler
// observe it exactly as if it came from a local DOM event.
func (a *Adapter) Apply(t Telemetry) {
	a.video.SetDuration(t.Duration)
	switch t.Event {
	case EventSeeking:
		a.video.FireSeeking()
	case EventSeeked:
		a.video.FireSeeked(t.Time)
	default:
		a.video.SetTime(t.Time)
	}
}
