package probe

import (
	"errors"
	"fmt"

	"github.com/framegate/framegate/internal/util"
)

var (
	// ErrUnavailable indicates that a source does not exist on a host.
	ErrUnavailable = errors.New("metric unavailable")

	// ErrWrongType indicates that a source exists but reports a value of an unexpected type.
	ErrWrongType = errors.New("metric has unexpected type")

	// ErrDegenerate indicates that a source reported a value that cannot be used as a sample, such as a zero delta time.
	ErrDegenerate = errors.New("metric is not finite and positive")
)

// FaultError indicates that a source panicked while being probed. The recovered value is available as Value, and is
// also returned from Unwrap when it is an error.
type FaultError struct {
	Source string
	Value  any
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("fault while probing %s: %v", e.Source, e.Value)
}

func (e *FaultError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// SystemInfo exposes named properties reported by a host. Which properties exist can vary across host versions.
type SystemInfo interface {
	// Property returns the value of the named property and whether the property exists.
	Property(name string) (any, bool)
}

// MapInfo is a SystemInfo backed by a map.
type MapInfo map[string]any

func (m MapInfo) Property(name string) (any, bool) {
	value, ok := m[name]
	return value, ok
}

// Host is the metric surface of a host that the default sources probe. Implementations may return a nil SystemInfo or
// an error from either delta time method when that part of the surface is not available.
type Host interface {
	// SystemInfo returns the host's system info surface, else nil.
	SystemInfo() SystemInfo

	// UpdateDeltaTime returns the elapsed seconds of the current update in the host's simulation context.
	UpdateDeltaTime() (float64, error)

	// EngineDeltaTime returns the elapsed seconds of the most recent engine frame.
	EngineDeltaTime() (float64, error)
}

// Source is a named accessor that resolves a sample from a host of type H. A Source returns an error when a sample is
// not available. A Source may panic, in which case a Probe treats the source as unavailable.
type Source[H any] interface {
	// Name returns a name describing the source.
	Name() string

	// Resolve returns a sample from the host.
	Resolve(host H) (float64, error)
}

type source[H any] struct {
	name string
	fn   func(H) (float64, error)
}

func (s *source[H]) Name() string {
	return s.name
}

func (s *source[H]) Resolve(host H) (float64, error) {
	return s.fn(host)
}

// Func returns a Source for the name that resolves samples with the fn.
func Func[H any](name string, fn func(host H) (float64, error)) Source[H] {
	return &source[H]{name: name, fn: fn}
}

// PropertyFunc returns a Source that reads the named property from the SystemInfo returned by infoFn. The property is
// only accepted if its value is a float32 or float64.
func PropertyFunc[H any](name string, infoFn func(host H) SystemInfo) Source[H] {
	return Func(name, func(host H) (float64, error) {
		info := infoFn(host)
		if info == nil {
			return 0, fmt.Errorf("%w: no system info", ErrUnavailable)
		}
		value, ok := info.Property(name)
		if !ok {
			return 0, fmt.Errorf("%w: property %s", ErrUnavailable, name)
		}
		switch v := value.(type) {
		case float32:
			return float64(v), nil
		case float64:
			return v, nil
		default:
			return 0, fmt.Errorf("%w: property %s is %T", ErrWrongType, name, value)
		}
	})
}

// DeltaTimeFunc returns a Source that derives a rate of 1/delta from the elapsed seconds returned by deltaFn. Deltas
// that are not finite and positive are degenerate.
func DeltaTimeFunc[H any](name string, deltaFn func(host H) (float64, error)) Source[H] {
	return Func(name, func(host H) (float64, error) {
		delta, err := deltaFn(host)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		rate, ok := util.Rate(delta)
		if !ok {
			return 0, fmt.Errorf("%w: delta %v", ErrDegenerate, delta)
		}
		return rate, nil
	})
}

// Property names probed by DefaultSources, in priority order.
const (
	ImmediateFPSProperty = "ImmediateFPS"
	SmoothedFPSProperty  = "SmoothedFPS"
	FPSProperty          = "FPS"
)

// DefaultProperties are the rate property names probed by DefaultSources, in priority order.
var DefaultProperties = []string{ImmediateFPSProperty, SmoothedFPSProperty, FPSProperty}

// RateProperty returns a Source that reads the named rate property from a Host's SystemInfo.
func RateProperty(name string) Source[Host] {
	return PropertyFunc(name, Host.SystemInfo)
}

// UpdateDeltaTime returns a Source that derives a rate from a Host's UpdateDeltaTime.
func UpdateDeltaTime() Source[Host] {
	return DeltaTimeFunc("UpdateDeltaTime", Host.UpdateDeltaTime)
}

// EngineDeltaTime returns a Source that derives a rate from a Host's EngineDeltaTime.
func EngineDeltaTime() Source[Host] {
	return DeltaTimeFunc("EngineDeltaTime", Host.EngineDeltaTime)
}

// DefaultSources returns the default Host sources in priority order: each of the DefaultProperties, then
// UpdateDeltaTime, then EngineDeltaTime.
func DefaultSources() []Source[Host] {
	sources := make([]Source[Host], 0, len(DefaultProperties)+2)
	for _, name := range DefaultProperties {
		sources = append(sources, RateProperty(name))
	}
	return append(sources, UpdateDeltaTime(), EngineDeltaTime())
}
