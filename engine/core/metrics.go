package core

import (
	"sync"

	"github.com/spaghettifunk/citadel/engine/containers"
)

// Frame-time samples kept for the rolling average.
const AVG_COUNT = 30

type MetricsState struct {
	MStimes            *containers.RingQueue[float64]
	MSavg              float64
	Frames             int32
	AccumulatedFrameMS float64
	FPS                float64
}

var onceMetrics sync.Once
var metricsState *MetricsState = nil

func MetricsInitialize() error {
	onceMetrics.Do(func() {
		metricsState = &MetricsState{
			MStimes: containers.NewRingQueue[float64](AVG_COUNT),
		}
	})
	return nil
}

func MetricsUpdate(frameElapsedTime float64) {
	// Calculate frame ms average over the most recent samples.
	frameMS := (frameElapsedTime * 1000.0)
	metricsState.MStimes.Push(frameMS)

	sum := 0.0
	metricsState.MStimes.Each(func(ms float64) {
		sum += ms
	})
	metricsState.MSavg = sum / float64(metricsState.MStimes.Len())

	// Calculate Frames per second.
	metricsState.AccumulatedFrameMS += frameMS
	if metricsState.AccumulatedFrameMS > 1000 {
		metricsState.FPS = float64(metricsState.Frames)
		metricsState.AccumulatedFrameMS -= 1000
		metricsState.Frames = 0
	}

	// Count all Frames.
	metricsState.Frames++
}

func MetricsFPS() float64 {
	return metricsState.FPS
}

// MetricsFrameTime returns the rolling average frame time in milliseconds.
func MetricsFrameTime() float64 {
	return metricsState.MSavg
}

func MetricsFrame() (float64, float64) {
	return metricsState.FPS, metricsState.MSavg
}
