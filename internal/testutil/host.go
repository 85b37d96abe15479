package testutil

import (
	"errors"

	"github.com/framegate/framegate/probe"
)

// ErrNoContext is returned by a TestHost delta time method that has not been configured.
var ErrNoContext = errors.New("no context")

// TestHost is a probe.Host whose surface can be configured per test. Nil delta funcs return ErrNoContext, and a nil Info
// is reported as a missing system info surface.
type TestHost struct {
	Info        probe.SystemInfo
	UpdateDelta func() (float64, error)
	EngineDelta func() (float64, error)
}

var _ probe.Host = &TestHost{}

// NewTestHost returns a TestHost reporting the properties.
func NewTestHost(properties map[string]any) *TestHost {
	h := &TestHost{}
	if properties != nil {
		h.Info = probe.MapInfo(properties)
	}
	return h
}

// WithUpdateDelta configures a fixed update delta time.
func (h *TestHost) WithUpdateDelta(delta float64) *TestHost {
	h.UpdateDelta = func() (float64, error) { return delta, nil }
	return h
}

// WithEngineDelta configures a fixed engine delta time.
func (h *TestHost) WithEngineDelta(delta float64) *TestHost {
	h.EngineDelta = func() (float64, error) { return delta, nil }
	return h
}

// WithFPS sets the FPS property.
func (h *TestHost) WithFPS(fps float32) *TestHost {
	info, ok := h.Info.(probe.MapInfo)
	if !ok || info == nil {
		info = probe.MapInfo{}
		h.Info = info
	}
	info[probe.FPSProperty] = fps
	return h
}

func (h *TestHost) SystemInfo() probe.SystemInfo {
	return h.Info
}

func (h *TestHost) UpdateDeltaTime() (float64, error) {
	if h.UpdateDelta == nil {
		return 0, ErrNoContext
	}
	return h.UpdateDelta()
}

func (h *TestHost) EngineDeltaTime() (float64, error) {
	if h.EngineDelta == nil {
		return 0, ErrNoContext
	}
	return h.EngineDelta()
}

// PanickingInfo is a probe.SystemInfo that panics on every lookup.
type PanickingInfo struct {
	Value any
}

func (p PanickingInfo) Property(string) (any, bool) {
	panic(p.Value)
}
