package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(ch <-chan int) []int {
	var out []int
	for v := range ch {
		out = append(out, v)
	}
	return out
}

func TestTrackerMonotone(t *testing.T) {
	tr := NewTracker()
	ch := tr.Subscribe()

	tr.Set(10)
	tr.Set(30)
	tr.Set(20) // regression, dropped
	tr.Set(30) // repeat, dropped
	tr.Set(100)

	assert.Equal(t, []int{10, 30, 100}, drain(ch))
	assert.True(t, tr.Done())
	assert.Equal(t, 100, tr.Current())
}

func TestTrackerClampsOutOfRange(t *testing.T) {
	tr := NewTracker()
	ch := tr.Subscribe()

	tr.Set(-5)
	tr.Set(50)
	tr.Set(150)

	assert.Equal(t, []int{50, 100}, drain(ch))
}

func TestTrackerSetAfterDoneIsIgnored(t *testing.T) {
	tr := NewTracker()
	tr.Finish()
	tr.Set(42)
	assert.Equal(t, 100, tr.Current())
}

func TestSubscribeAfterDoneReturnsClosedChannel(t *testing.T) {
	tr := NewTracker()
	tr.Finish()

	ch := tr.Subscribe()
	_, open := <-ch
	assert.False(t, open)
}

func TestTrackerMultipleSubscribers(t *testing.T) {
	tr := NewTracker()
	a := tr.Subscribe()
	b := tr.Subscribe()

	tr.Set(40)
	tr.Finish()

	require.Equal(t, []int{40, 100}, drain(a))
	require.Equal(t, []int{40, 100}, drain(b))
}
