package remote

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyTickUpdatesTime(t *testing.T) {
	a := New("s1", nil)
	a.Apply(Telemetry{Event: EventTick, Time: 42, Duration: 600})

	video, ok := a.GetVideo(nil)
	require.True(t, ok)
	require.Equal(t, 42.0, video.Time())
	require.Equal(t, 600.0, video.Duration())
}

func TestApplySeekingThenSeekedFiresHandlers(t *testing.T) {
	a := New("s1", nil)
	video, _ := a.GetVideo(nil)

	var seekingFired, seekedFired bool
	video.OnSeeking(func() { seekingFired = true })
	video.OnSeeked(func() { seekedFired = true })

	a.Apply(Telemetry{Event: EventSeeking, Time: 100, Duration: 600})
	require.True(t, seekingFired)
	require.True(t, video.Seeking())

	a.Apply(Telemetry{Event: EventSeeked, Time: 200, Duration: 600})
	require.True(t, seekedFired)
	require.False(t, video.Seeking())
	require.Equal(t, 200.0, video.Time())
}

func TestSeekToTimeSendsCommand(t *testing.T) {
	var got SeekCommand
	a := New("s1", func(cmd SeekCommand) { got = cmd })
	video, _ := a.GetVideo(nil)

	ok := a.SeekToTime(video, 123, 600)
	require.True(t, ok)
	require.Equal(t, 123.0, got.Time)
}

func TestSeekToTimeWithoutSinkDeclines(t *testing.T) {
	a := New("s1", nil)
	video, _ := a.GetVideo(nil)
	require.False(t, a.SeekToTime(video, 123, 600))
}

func TestSeekByDeltaSendsCommand(t *testing.T) {
	var got SeekCommand
	a := New("s1", func(cmd SeekCommand) { got = cmd })
	video, _ := a.GetVideo(nil)
	video.SetTime(50)

	ok := a.SeekByDelta(video, 10)
	require.True(t, ok)
	require.Equal(t, 60.0, got.Time)
	require.Equal(t, 10.0, got.Delta)
}
