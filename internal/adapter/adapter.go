// Package adapter defines the Service Adapter contract (spec §4.1): the one
// place per-site knowledge is allowed to live. Everything above this layer —
// the accessor, sampler, classifier, history engine — is site-agnostic and
// only ever talks to these interfaces.
//
// Every capability beyond GetPlayer/GetVideo is optional: it returns
// ok=false when the site doesn't support or doesn't currently expose it.
// Callers must always have a working fallback (§4.1's failure policy); the
// fallbacks live in the videoaccess package, not here, per the design note
// in spec §9 ("defaults are provided by the Accessor, not by the adapter").
package adapter

// Player identifies the root element of the mounted player. Implementations
// compare by ID, not by pointer/struct identity, because a remote-backed
// adapter (the in-extension content script talks over the bridge) has no
// stable Go pointer to compare.
type Player interface {
	ID() string
}

// Video identifies the active media element and exposes the raw surface the
// accessor/sampler/classifier read from. An adapter is free to back this
// with a real DOM proxy (relayed from a browser extension content script)
// or, as in this repository's example adapters and tests, an in-process
// simulation.
type Video interface {
	ID() string

	// Time is the element's own clock, in seconds. On services using
	// Media Source Extensions this is buffer-relative, not content-relative
	// — that's exactly the problem the Service Adapter's GetPlaybackTime
	// override exists to solve.
	Time() float64
	SetTime(t float64)

	// Seeking reports the element's own seeking state.
	Seeking() bool

	// Duration is the element's own duration, in seconds. May be NaN/0 for
	// MSE elements before enough of the stream has buffered.
	Duration() float64

	// OnSeeking/OnSeeked register a callback for the element's 'seeking'/
	// 'seeked' events and return a function that cancels the registration.
	// The Seek Classifier relies on seeking always preceding seeked for a
	// given seek (spec §5); it tolerates a missing seeked via its own
	// fallback timer, not via anything this interface guarantees.
	OnSeeking(fn func()) (cancel func())
	OnSeeked(fn func()) (cancel func())
}

// SeekButtons are the rewind/forward controls some services render instead
// of (or in addition to) a seekable timeline. Clicks on these are
// classified identically to keyboard seeks (§4.1).
type SeekButtons struct {
	Backward Button
	Forward  Button
}

// Button is a clickable native control the adapter can observe.
type Button interface {
	OnClick(fn func()) (cancel func())
}

// Adapter is the full per-site capability set (spec §4.1). GetPlayer and
// GetVideo are mandatory; everything else is optional and communicates
// unavailability with ok=false rather than a Go error, since "not supported
// right now" is an expected, frequent outcome, not a failure.
type Adapter interface {
	// GetPlayer returns the current player root, or ok=false if the player
	// isn't mounted yet (not loaded / SPA in transition).
	GetPlayer() (p Player, ok bool)

	// GetVideo returns the active media element for the given player,
	// disambiguating between candidates (e.g. a hidden pre-roll element).
	GetVideo(p Player) (v Video, ok bool)

	// GetPlaybackTime returns the authoritative content-time in seconds.
	// Required for services whose Video.Time is buffer-relative.
	GetPlaybackTime(v Video) (seconds float64, ok bool)

	// GetDuration returns the authoritative content duration in seconds.
	GetDuration(v Video) (seconds float64, ok bool)

	// SeekByDelta performs a relative seek of delta seconds. Services that
	// disallow direct writes implement this by synthesizing clicks on
	// native skip buttons, in which case the magnitude of delta is ignored.
	// ok=false means the adapter declined; the accessor falls back to
	// writing Video's own clock directly.
	SeekByDelta(v Video, delta float64) (ok bool)

	// SeekToTime performs an absolute seek, e.g. by clicking a rendered
	// timeline at time/duration of its bounding rect. ok=false means the
	// adapter declined; the accessor falls back to writing Video's own
	// clock, and the engine reports a soft failure to its caller only when
	// that write does not take effect (spec §4.5 Restoration, §7 error
	// handling).
	SeekToTime(v Video, t, duration float64) (ok bool)

	// SeekButtons returns the rewind/forward buttons, if the service
	// renders native ones the accessor should observe.
	SeekButtons(v Video) (buttons SeekButtons, ok bool)
}
