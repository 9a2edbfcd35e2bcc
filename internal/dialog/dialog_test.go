package dialog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/streamkeys/position-engine/internal/history"
)

func TestBuildItemsOrdersLoadTimeFirstThenRecency(t *testing.T) {
	now := time.Now()
	entries := []history.PositionEntry{
		{ID: "a", Time: 100, SavedAt: now.Add(-3 * time.Minute), Kind: history.KindSeek},
		{ID: "b", Time: 200, SavedAt: now.Add(-2 * time.Minute), Kind: history.KindSeek},
		{ID: "c", Time: 300, SavedAt: now.Add(-1 * time.Minute), Kind: history.KindManual},
	}

	items := BuildItems(515, true, entries, now)
	require.Len(t, items, 4)
	require.True(t, items[0].IsLoadTime)
	require.InDelta(t, 515, items[0].Entry.Time, 0.001)

	require.InDelta(t, 300, items[1].Entry.Time, 0.001)
	require.InDelta(t, 200, items[2].Entry.Time, 0.001)
	require.InDelta(t, 100, items[3].Entry.Time, 0.001)
}

func TestBuildItemsWithoutLoadTime(t *testing.T) {
	now := time.Now()
	entries := []history.PositionEntry{
		{ID: "a", Time: 100, SavedAt: now, Kind: history.KindSeek},
	}
	items := BuildItems(0, false, entries, now)
	require.Len(t, items, 1)
	require.False(t, items[0].IsLoadTime)
}

func TestHandleKeyEscapeCloses(t *testing.T) {
	closed := false
	c := New(nil, func() { closed = true })
	c.Open([]Item{{Entry: history.PositionEntry{Time: 1}}})

	require.True(t, c.HandleKey("Escape"))
	require.False(t, c.Visible())
	require.True(t, closed)
}

func TestHandleKeyDigitSelectsAndRestores(t *testing.T) {
	var restored history.PositionEntry
	c := New(func(e history.PositionEntry) { restored = e }, nil)
	c.Open([]Item{
		{Entry: history.PositionEntry{Time: 515}, IsLoadTime: true},
		{Entry: history.PositionEntry{Time: 300}},
	})

	require.True(t, c.HandleKey("1"))
	require.InDelta(t, 300, restored.Time, 0.001)
	require.False(t, c.Visible())
}

func TestHandleKeyDigitOutOfRangeConsumedButNoRestore(t *testing.T) {
	called := false
	c := New(func(history.PositionEntry) { called = true }, nil)
	c.Open([]Item{{Entry: history.PositionEntry{Time: 515}}})

	require.True(t, c.HandleKey("5"))
	require.False(t, called)
}

func TestHandleKeyUnrelatedNotConsumed(t *testing.T) {
	c := New(nil, nil)
	c.Open([]Item{{Entry: history.PositionEntry{Time: 515}}})
	require.False(t, c.HandleKey("ArrowRight"))
	require.True(t, c.Visible())
}

func TestHandleKeyWhenNotVisible(t *testing.T) {
	c := New(nil, nil)
	require.False(t, c.HandleKey("Escape"))
}
