package timing

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWheelFiresAfterDeadline(t *testing.T) {
	w := NewWheel(5*time.Millisecond, 16)
	defer w.Stop()

	var fired atomic.Bool
	w.Schedule(15*time.Millisecond, func() { fired.Store(true) })

	require.Eventually(t, fired.Load, time.Second, 5*time.Millisecond)
}

func TestWheelCancelPreventsFiring(t *testing.T) {
	w := NewWheel(5*time.Millisecond, 16)
	defer w.Stop()

	var fired atomic.Bool
	d := w.Schedule(15*time.Millisecond, func() { fired.Store(true) })
	d.Cancel()

	time.Sleep(100 * time.Millisecond)
	require.False(t, fired.Load())
}

func TestWheelCancelIsSafeAfterFiring(t *testing.T) {
	w := NewWheel(5*time.Millisecond, 16)
	defer w.Stop()

	d := w.Schedule(5*time.Millisecond, func() {})
	time.Sleep(50 * time.Millisecond)
	require.NotPanics(t, d.Cancel)
	require.NotPanics(t, d.Cancel)
}

func TestWheelStopIsIdempotent(t *testing.T) {
	w := NewWheel(5*time.Millisecond, 4)
	require.NotPanics(t, w.Stop)
	require.NotPanics(t, w.Stop)
}

func TestNilDeadlineCancelIsNoop(t *testing.T) {
	var d *Deadline
	require.NotPanics(t, d.Cancel)
}
