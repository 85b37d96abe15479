package probe

import (
	"fmt"

	"github.com/framegate/framegate/internal/util"
)

// DefaultSample is returned when no source can provide a sample. It is well above any realistic disable threshold so
// that failing to read a metric never causes suppression.
const DefaultSample = 120.0

// Result describes a resolved sample.
type Result struct {
	// The resolved sample, always finite and positive.
	Value float64
	// The name of the source that produced the sample, else empty when Defaulted.
	Source string
	// Defaulted indicates that no source was usable and Value is the probe's default.
	Defaulted bool
}

// SourceFailedEvent indicates a source could not provide a sample.
type SourceFailedEvent struct {
	Source string
	// The reason the source was unusable, matching ErrUnavailable, ErrWrongType, ErrDegenerate or a *FaultError.
	Error error
}

// DefaultUsedEvent indicates every source failed and the default sample was used.
type DefaultUsedEvent struct {
	Value float64
}

/*
Probe resolves a current sample from a host of type H by trying its sources in order. The first source that returns a
finite, positive value wins. Sources that return an error, panic, or return an unusable value are skipped. If every
source fails, the probe's default is returned.

A Probe holds no state between samples. This type is concurrency safe if its sources and listeners are.
*/
type Probe[H any] interface {
	// Sample returns a finite, positive sample from the host. It never fails.
	Sample(host H) float64

	// Resolve returns a sample from the host along with the source that produced it.
	Resolve(host H) Result
}

/*
ProbeBuilder builds Probe instances.

This type is not concurrency safe.
*/
type ProbeBuilder[H any] interface {
	// WithDefault configures the sample returned when every source fails. Values that are not finite and positive are
	// ignored. Defaults to DefaultSample.
	WithDefault(value float64) ProbeBuilder[H]

	// OnSourceFailed registers the listener to be called when a source cannot provide a sample.
	OnSourceFailed(listener func(SourceFailedEvent)) ProbeBuilder[H]

	// OnDefaultUsed registers the listener to be called when every source failed and the default was used.
	OnDefaultUsed(listener func(DefaultUsedEvent)) ProbeBuilder[H]

	// Build returns a new Probe using the builder's configuration.
	Build() Probe[H]
}

type config[H any] struct {
	sources        []Source[H]
	defaultSample  float64
	onSourceFailed func(SourceFailedEvent)
	onDefaultUsed  func(DefaultUsedEvent)
}

var _ ProbeBuilder[any] = &config[any]{}

// New returns a Probe for a Host using the DefaultSources.
func New() Probe[Host] {
	return Builder(DefaultSources()...).Build()
}

// Builder returns a ProbeBuilder for hosts of type H that tries the sources in order.
func Builder[H any](sources ...Source[H]) ProbeBuilder[H] {
	return &config[H]{
		sources:       sources,
		defaultSample: DefaultSample,
	}
}

func (c *config[H]) WithDefault(value float64) ProbeBuilder[H] {
	if util.IsUsable(value) {
		c.defaultSample = value
	}
	return c
}

func (c *config[H]) OnSourceFailed(listener func(SourceFailedEvent)) ProbeBuilder[H] {
	c.onSourceFailed = listener
	return c
}

func (c *config[H]) OnDefaultUsed(listener func(DefaultUsedEvent)) ProbeBuilder[H] {
	c.onDefaultUsed = listener
	return c
}

func (c *config[H]) Build() Probe[H] {
	cCopy := *c
	cCopy.sources = append([]Source[H](nil), c.sources...)
	return &probe[H]{
		config: &cCopy,
	}
}

type probe[H any] struct {
	*config[H]
}

var _ Probe[any] = &probe[any]{}

func (p *probe[H]) Sample(host H) float64 {
	return p.Resolve(host).Value
}

func (p *probe[H]) Resolve(host H) Result {
	for _, s := range p.sources {
		name := sourceName(s)
		value, err := attempt(s, name, host)
		if err == nil {
			return Result{Value: value, Source: name}
		}
		if p.onSourceFailed != nil {
			p.onSourceFailed(SourceFailedEvent{Source: name, Error: err})
		}
	}

	if p.onDefaultUsed != nil {
		p.onDefaultUsed(DefaultUsedEvent{Value: p.defaultSample})
	}
	return Result{Value: p.defaultSample, Defaulted: true}
}

// attempt resolves a sample from the source, converting panics and unusable values into errors.
func attempt[H any](s Source[H], name string, host H) (value float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = 0, &FaultError{Source: name, Value: r}
		}
	}()

	value, err = s.Resolve(host)
	if err != nil {
		return 0, err
	}
	if !util.IsUsable(value) {
		return 0, fmt.Errorf("%w: %s returned %v", ErrDegenerate, name, value)
	}
	return value, nil
}

func sourceName[H any](s Source[H]) (name string) {
	defer func() {
		if recover() != nil {
			name = "unknown"
		}
	}()
	return s.Name()
}
