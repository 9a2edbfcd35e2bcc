// Package examples provides two illustrative Service Adapters exercised by
// this repository's own test suites and usable as a starting point for a
// real per-site adapter: Generic, for sites whose video element reports a
// trustworthy content-relative clock, and MSEPlayer, for sites (the spec's
// "Disney-style race", §8 E3) whose element uses a Media-Source-Extensions
// buffer-relative clock and races its own progress-indicator update ahead
// of the 'seeking' event.
package examples

import (
	"bytes"
	"sync"

	"github.com/streamkeys/position-engine/internal/adapter"
	"github.com/streamkeys/position-engine/internal/adapter/fake"
	"github.com/streamkeys/position-engine/internal/mse"
)

// Generic is a Service Adapter for sites with no quirks: the video
// element's own clock is the content time, direct seeks work, and there's
// no separate progress indicator to race against. It implements no optional
// capability, relying entirely on the Augmented Video Accessor's fallback
// chain (spec §4.2, §9).
type Generic struct {
	adapter.Base
	Player *fake.Player
	Video  *fake.Video
}

// NewGeneric wires a Generic adapter around the given fake player/video.
func NewGeneric(p *fake.Player, v *fake.Video) *Generic {
	return &Generic{Player: p, Video: v}
}

func (g *Generic) GetPlayer() (adapter.Player, bool) {
	if g.Player == nil {
		return nil, false
	}
	return g.Player, true
}

func (g *Generic) GetVideo(adapter.Player) (adapter.Video, bool) {
	if g.Video == nil {
		return nil, false
	}
	return g.Video, true
}

// MSEPlayer simulates a service whose video element is fed through Media
// Source Extensions: the element's own clock is buffer-relative, so
// GetPlaybackTime/GetDuration are overridden, and the service is modeled
// as writing its own progress indicator (ProgressIndicatorSeconds) ahead of
// firing the underlying 'seeking' event — the exact race spec §8 E3
// describes. SeekToTime is implemented as "click the rendered timeline":
// since there's no real DOM here, it simply records the requested seek and
// reports success only when AllowDirectSeek is true, letting tests exercise
// both the successful-restoration and soft-failure paths (spec §4.5
// Restoration, §7, §8 E6).
type MSEPlayer struct {
	Player *fake.Player
	Video  *fake.Video
	Decks  adapter.SeekButtons

	mu sync.Mutex

	// ProgressIndicatorSeconds is the service's own on-screen progress
	// readout, which GetPlaybackTime serves in place of the element's
	// buffer-relative clock.
	ProgressIndicatorSeconds float64
	durationSeconds          float64
	durationKnown            bool

	// AllowDirectSeek controls whether SeekToTime reports success.
	AllowDirectSeek bool
	lastSeekTo      float64
}

// NewMSEPlayer wires an MSEPlayer adapter around the given fake player/video.
func NewMSEPlayer(p *fake.Player, v *fake.Video) *MSEPlayer {
	return &MSEPlayer{Player: p, Video: v, AllowDirectSeek: true}
}

func (m *MSEPlayer) GetPlayer() (adapter.Player, bool) {
	if m.Player == nil {
		return nil, false
	}
	return m.Player, true
}

func (m *MSEPlayer) GetVideo(adapter.Player) (adapter.Video, bool) {
	if m.Video == nil {
		return nil, false
	}
	return m.Video, true
}

// SetProgressIndicator updates the service's own progress readout. Tests
// use this to simulate the service writing a destination value to its UI
// before the element actually fires 'seeking' (spec §8 E3).
func (m *MSEPlayer) SetProgressIndicator(seconds float64) {
	m.mu.Lock()
	m.ProgressIndicatorSeconds = seconds
	m.mu.Unlock()
}

func (m *MSEPlayer) GetPlaybackTime(adapter.Video) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ProgressIndicatorSeconds, true
}

// ProbeDurationFromInit sets the authoritative duration by parsing an
// MP4 initialization segment via internal/mse, standing in for a real
// adapter's fetch-and-parse of the manifest's init segment.
func (m *MSEPlayer) ProbeDurationFromInit(init []byte) error {
	seconds, err := mse.ProbeDuration(bytes.NewReader(init))
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.durationSeconds = seconds
	m.durationKnown = true
	m.mu.Unlock()
	return nil
}

func (m *MSEPlayer) GetDuration(adapter.Video) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.durationSeconds, m.durationKnown
}

func (m *MSEPlayer) SeekByDelta(adapter.Video, float64) bool {
	return false
}

// SeekToTime models clicking the rendered timeline. Returns ok=false when
// AllowDirectSeek is false, exercising the soft-failure path the engine
// must tolerate (spec §4.5, §7, §8 E6).
func (m *MSEPlayer) SeekToTime(v adapter.Video, t, _ float64) bool {
	m.mu.Lock()
	m.lastSeekTo = t
	allow := m.AllowDirectSeek
	m.mu.Unlock()
	if !allow {
		return false
	}
	v.SetTime(t)
	return true
}

func (m *MSEPlayer) SeekButtons(adapter.Video) (adapter.SeekButtons, bool) {
	if m.Decks.Backward == nil && m.Decks.Forward == nil {
		return adapter.SeekButtons{}, false
	}
	return m.Decks, true
}
