// Package fake provides an in-process Video/Player/Button implementation of
// the adapter.Video/Player/Button interfaces, for use by adapter examples
// and by the test suites of every package that consumes an adapter.Adapter.
// It stands in for what a real adapter would otherwise source from a
// browser extension's content script relaying DOM state over the bridge.
package fake

import "sync"

// Player is a minimal adapter.Player.
type Player struct {
	id string
}

// NewPlayer creates a fake player with the given stable ID.
func NewPlayer(id string) *Player { return &Player{id: id} }

func (p *Player) ID() string { return p.id }

// Video is an in-process adapter.Video double. All mutation happens through
// its exported methods (SetTime, SetDuration, FireSeeking, FireSeeked) so tests can
// drive the exact sequence of events spec §8's scenarios describe.
type Video struct {
	mu sync.Mutex

	id      string
	clock   float64 // the element's own clock (may be buffer-relative)
	seeking bool
	dur     float64

	seekingHandlers map[int]func()
	seekedHandlers  map[int]func()
	nextHandlerID   int
}

// NewVideo creates a fake video element with the given stable ID and
// initial clock value.
func NewVideo(id string, initial float64) *Video {
	return &Video{
		id:              id,
		clock:           initial,
		seekingHandlers: make(map[int]func()),
		seekedHandlers:  make(map[int]func()),
	}
}

func (v *Video) ID() string { return v.id }

func (v *Video) Time() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.clock
}

func (v *Video) SetTime(t float64) {
	v.mu.Lock()
	v.clock = t
	v.mu.Unlock()
}

func (v *Video) Seeking() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.seeking
}

func (v *Video) Duration() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dur
}

// SetDuration sets the element's own duration (test setup helper).
func (v *Video) SetDuration(d float64) {
	v.mu.Lock()
	v.dur = d
	v.mu.Unlock()
}

func (v *Video) OnSeeking(fn func()) func() {
	v.mu.Lock()
	id := v.nextHandlerID
	v.nextHandlerID++
	v.seekingHandlers[id] = fn
	v.mu.Unlock()
	return func() {
		v.mu.Lock()
		delete(v.seekingHandlers, id)
		v.mu.Unlock()
	}
}

func (v *Video) OnSeeked(fn func()) func() {
	v.mu.Lock()
	id := v.nextHandlerID
	v.nextHandlerID++
	v.seekedHandlers[id] = fn
	v.mu.Unlock()
	return func() {
		v.mu.Lock()
		delete(v.seekedHandlers, id)
		v.mu.Unlock()
	}
}

// FireSeeking marks the element as seeking and invokes every registered
// 'seeking' handler, mirroring the DOM event the classifier relies on.
func (v *Video) FireSeeking() {
	v.mu.Lock()
	v.seeking = true
	handlers := make([]func(), 0, len(v.seekingHandlers))
	for _, h := range v.seekingHandlers {
		handlers = append(handlers, h)
	}
	v.mu.Unlock()
	for _, h := range handlers {
		h()
	}
}

// FireSeeked clears the seeking flag, sets the clock to dst (simulating the
// element landing on its destination), and invokes every registered
// 'seeked' handler.
func (v *Video) FireSeeked(dst float64) {
	v.mu.Lock()
	v.seeking = false
	v.clock = dst
	handlers := make([]func(), 0, len(v.seekedHandlers))
	for _, h := range v.seekedHandlers {
		handlers = append(handlers, h)
	}
	v.mu.Unlock()
	for _, h := range handlers {
		h()
	}
}

// Button is a fake adapter.Button; Click invokes every registered handler.
type Button struct {
	mu       sync.Mutex
	handlers map[int]func()
	nextID   int
}

func NewButton() *Button { return &Button{handlers: make(map[int]func())} }

func (b *Button) OnClick(fn func()) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

func (b *Button) Click() {
	b.mu.Lock()
	handlers := make([]func(), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()
	for _, h := range handlers {
		h()
	}
}
