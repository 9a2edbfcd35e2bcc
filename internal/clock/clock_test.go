package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFakeAdvanceFiresTimerAtDueTime(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	var fired time.Time
	f.AfterFunc(500*time.Millisecond, func() { fired = f.Now() })

	f.Advance(200 * time.Millisecond)
	require.True(t, fired.IsZero())

	f.Advance(400 * time.Millisecond)
	require.Equal(t, f.Now().Add(-100*time.Millisecond), fired)
}

func TestFakeTimerStopPreventsFiring(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	fired := false
	timer := f.AfterFunc(time.Second, func() { fired = true })

	require.True(t, timer.Stop())
	f.Advance(2 * time.Second)
	require.False(t, fired)

	// Stopping an already-stopped timer reports false, matching time.Timer.
	require.False(t, timer.Stop())
}

func TestFakeTimerResetRearms(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	count := 0
	timer := f.AfterFunc(time.Second, func() { count++ })

	timer.Stop()
	timer.Reset(2 * time.Second)

	f.Advance(time.Second)
	require.Equal(t, 0, count)

	f.Advance(time.Second)
	require.Equal(t, 1, count)
}

func TestFakeTickerDeliversInPeriod(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	ticker := f.NewTicker(100 * time.Millisecond)

	f.Advance(250 * time.Millisecond)

	count := 0
loop:
	for {
		select {
		case <-ticker.C():
			count++
		default:
			break loop
		}
	}
	require.GreaterOrEqual(t, count, 1)

	ticker.Stop()
}

func TestFakeOrdersTimersAndTickersChronologically(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	var order []string

	f.AfterFunc(150*time.Millisecond, func() { order = append(order, "timer") })
	ticker := f.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	// Advance one period at a time and drain the ticker's single-slot buffer
	// in between, so a fired tick is never dropped waiting behind another.
	for i := 0; i < 2; i++ {
		f.Advance(100 * time.Millisecond)
		select {
		case <-ticker.C():
			order = append(order, "tick")
		default:
		}
	}

	require.Equal(t, []string{"tick", "timer", "tick"}, order)
}
