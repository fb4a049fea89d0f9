package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrameSleepGivesBackRemainder(t *testing.T) {
	// 4 ms of work against a ~16.6 ms budget: sleep the rest minus the
	// millisecond held back.
	pause := frameSleep(targetFrameSeconds, 0.004)
	expected := time.Duration((targetFrameSeconds-0.004)*float64(time.Second)) - time.Millisecond
	assert.InDelta(t, float64(expected), float64(pause), float64(time.Microsecond))
}

func TestFrameSleepSlowFrameDoesNotPause(t *testing.T) {
	assert.Equal(t, time.Duration(0), frameSleep(targetFrameSeconds, 0.020))
	// A frame just under budget is not worth pausing either.
	assert.Equal(t, time.Duration(0), frameSleep(targetFrameSeconds, targetFrameSeconds-0.0005))
}
