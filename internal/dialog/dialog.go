// Package dialog implements the Restore Dialog Controller (spec §4.6): a
// thin consumer of the Position History Engine that renders a numbered list
// and owns its own key bindings while visible.
package dialog

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ncruces/go-strftime"

	"github.com/streamkeys/position-engine/internal/history"
)

// Item is one selectable row: either the distinguished load-time position
// or a recorded PositionEntry.
type Item struct {
	Entry      history.PositionEntry
	IsLoadTime bool

	// RelativeLabel is a humanize.Time-style label ("3 minutes ago").
	RelativeLabel string
	// AbsoluteLabel is a fixed-format timestamp for entries whose savedAt
	// is meaningful (empty for the synthesized load-time row, which has no
	// savedAt of its own).
	AbsoluteLabel string
}

var absoluteLayout = strftime.Layout("%Y-%m-%d %H:%M:%S")

// BuildItems sorts entries ∪ {loadTimePosition} the way spec §4.6 requires:
// load-time first if present, then entries by recency (entries is oldest
// first, so its last, most recently saved element comes right after the
// load-time row — most recent first). now is used to render relative
// labels; it does not affect ordering.
func BuildItems(loadTime float64, haveLoadTime bool, entries []history.PositionEntry, now time.Time) []Item {
	items := make([]Item, 0, len(entries)+1)

	if haveLoadTime {
		items = append(items, Item{
			Entry:      history.PositionEntry{Time: loadTime, Kind: history.KindLoadTime},
			IsLoadTime: true,
		})
	}

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		items = append(items, Item{
			Entry:         e,
			RelativeLabel: humanize.RelTime(e.SavedAt, now, "ago", "from now"),
			AbsoluteLabel: formatAbsolute(e.SavedAt),
		})
	}

	// Cap at 10 so digit keys 0-9 address every visible row unambiguously.
	if len(items) > 10 {
		items = items[:10]
	}
	return items
}

func formatAbsolute(t time.Time) string {
	return t.Format(absoluteLayout)
}

// Controller owns dialog visibility and the 0-9/Escape key bindings while
// visible. It never renders markup itself — that belongs to the
// out-of-scope extension content script (spec §1 Non-goals); Controller
// only decides what is selected and whether a keystroke was consumed.
type Controller struct {
	visible bool
	items   []Item

	onRestore func(entry history.PositionEntry)
	onClose   func()
}

// New creates a Controller. onRestore is invoked with the chosen entry when
// a digit key selects one; onClose is invoked on Escape or after a
// successful selection (spec §4.6: "select... ask the engine to restore;
// close").
func New(onRestore func(entry history.PositionEntry), onClose func()) *Controller {
	return &Controller{onRestore: onRestore, onClose: onClose}
}

// Open makes the dialog visible with the given items (typically the result
// of BuildItems).
func (c *Controller) Open(items []Item) {
	c.items = items
	c.visible = true
}

// Close hides the dialog.
func (c *Controller) Close() {
	c.visible = false
	c.items = nil
}

// Visible reports whether the dialog is currently open.
func (c *Controller) Visible() bool { return c.visible }

// Items returns the currently rendered rows.
func (c *Controller) Items() []Item { return c.items }

// HandleKey implements spec §4.6's key bindings. It must be wired ahead of
// ordinary key dispatch (capture phase) so Escape is seen before a
// fullscreen handler; this package only implements the decision of whether
// a key was consumed, not the wiring itself. Returns true if the keystroke
// was consumed and must not propagate.
func (c *Controller) HandleKey(key string) bool {
	if !c.visible {
		return false
	}

	switch key {
	case "Escape":
		c.Close()
		if c.onClose != nil {
			c.onClose()
		}
		return true
	case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx := int(key[0] - '0')
		if idx < 0 || idx >= len(c.items) {
			return true
		}
		entry := c.items[idx].Entry
		if c.onRestore != nil {
			c.onRestore(entry)
		}
		c.Close()
		if c.onClose != nil {
			c.onClose()
		}
		return true
	default:
		return false
	}
}
