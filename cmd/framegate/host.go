package main

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/framegate/framegate/probe"
)

var errNoContext = errors.New("no simulation context")

// simHost is a probe.Host with a settable surface. A zero delta means the corresponding clock is not available.
type simHost struct {
	mtx         sync.Mutex
	info        probe.MapInfo
	updateDelta float64
	engineDelta float64
}

var _ probe.Host = &simHost{}

func (h *simHost) SystemInfo() probe.SystemInfo {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.info == nil {
		return nil
	}
	return h.info
}

func (h *simHost) UpdateDeltaTime() (float64, error) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.updateDelta == 0 {
		return 0, errNoContext
	}
	return h.updateDelta, nil
}

func (h *simHost) EngineDeltaTime() (float64, error) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.engineDelta == 0 {
		return 0, errNoContext
	}
	return h.engineDelta, nil
}

func (h *simHost) setFPS(fps float64) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	h.info = probe.MapInfo{probe.FPSProperty: float32(fps)}
	h.engineDelta = 1 / fps
}

// waveHost simulates a host whose frame rate oscillates between base-amplitude and base+amplitude over each period.
type waveHost struct {
	simHost
	base      float64
	amplitude float64
	period    time.Duration
	start     time.Time
}

func newWaveHost(base float64, amplitude float64, period time.Duration, start time.Time) *waveHost {
	h := &waveHost{
		base:      base,
		amplitude: amplitude,
		period:    period,
		start:     start,
	}
	h.advance(start)
	return h
}

// advance updates the host's frame rate for the time, and returns it.
func (h *waveHost) advance(now time.Time) float64 {
	phase := 0.0
	if h.period > 0 {
		phase = 2 * math.Pi * float64(now.Sub(h.start)) / float64(h.period)
	}
	fps := math.Max(1, h.base+h.amplitude*math.Sin(phase))
	h.setFPS(fps)
	return fps
}
