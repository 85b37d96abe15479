package framegate

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/framegate/framegate/gate"
	"github.com/framegate/framegate/probe"
)

// ConfigFunc returns the gate config to use for a decision. It's called once per decision.
type ConfigFunc func() gate.Config

// ConfigProvider provides a gate config, such as a *settings.Store.
type ConfigProvider interface {
	GateConfig() gate.Config
}

// SkippedEvent indicates controlled work was skipped for a tick.
type SkippedEvent struct {
	// The sample the decision was made with.
	Sample probe.Result
	// The config the decision was made with.
	Config gate.Config
}

/*
Governor decides, once per host tick, whether some controlled work runs. Each decision takes one config snapshot, one
sample from a probe.Probe and one decision from a gate.Gate.

A Governor is meant to be installed at the point where a host invokes the controlled work, either by calling Allow or
Run before the work, or by installing the function returned by Wrap in place of the work.

H is the host type. This type is concurrency safe.
*/
type Governor[H any] interface {
	// Allow samples the host and returns whether controlled work should run for the current tick.
	Allow(host H) bool

	// Run calls work if Allow returns true, and returns whether work was called.
	Run(host H, work func()) bool

	// Wrap returns a func that calls work for a host only when Allow returns true.
	Wrap(work func(host H)) func(host H)

	// Gate returns the governor's gate.
	Gate() gate.Gate

	// Probe returns the governor's probe.
	Probe() probe.Probe[H]

	// Skipped returns the number of ticks whose controlled work was skipped.
	Skipped() uint64
}

/*
GovernorBuilder builds Governor instances.

This type is not concurrency safe.
*/
type GovernorBuilder[H any] interface {
	// WithGate configures the gate to decide with. Defaults to gate.New().
	WithGate(g gate.Gate) GovernorBuilder[H]

	// WithConfig configures the func that provides the config for each decision. Defaults to gate.DefaultConfig.
	WithConfig(configFn ConfigFunc) GovernorBuilder[H]

	// WithConfigProvider configures the provider of the config for each decision.
	WithConfigProvider(provider ConfigProvider) GovernorBuilder[H]

	// WithLogger configures a logger that state changes of the builder's default gate are logged to. To log probe
	// degradation, register LogSourceFailed with the probe's builder.
	WithLogger(logger *slog.Logger) GovernorBuilder[H]

	// OnSkipped registers the listener to be called when controlled work is skipped.
	OnSkipped(listener func(SkippedEvent)) GovernorBuilder[H]

	// Build returns a new Governor using the builder's configuration.
	Build() Governor[H]
}

type config[H any] struct {
	probe     probe.Probe[H]
	gate      gate.Gate
	configFn  ConfigFunc
	logger    *slog.Logger
	onSkipped func(SkippedEvent)
}

var _ GovernorBuilder[any] = &config[any]{}

// New returns a Governor for a probe.Host using the default probe sources, a default gate, and the config from the
// provider.
func New(provider ConfigProvider) Governor[probe.Host] {
	return Builder(probe.New()).WithConfigProvider(provider).Build()
}

// Builder returns a GovernorBuilder that samples hosts with the probe.
func Builder[H any](p probe.Probe[H]) GovernorBuilder[H] {
	return &config[H]{
		probe:    p,
		configFn: gate.DefaultConfig,
	}
}

func (c *config[H]) WithGate(g gate.Gate) GovernorBuilder[H] {
	c.gate = g
	return c
}

func (c *config[H]) WithConfig(configFn ConfigFunc) GovernorBuilder[H] {
	if configFn != nil {
		c.configFn = configFn
	}
	return c
}

func (c *config[H]) WithConfigProvider(provider ConfigProvider) GovernorBuilder[H] {
	if provider != nil {
		c.configFn = provider.GateConfig
	}
	return c
}

func (c *config[H]) WithLogger(logger *slog.Logger) GovernorBuilder[H] {
	c.logger = logger
	return c
}

func (c *config[H]) OnSkipped(listener func(SkippedEvent)) GovernorBuilder[H] {
	c.onSkipped = listener
	return c
}

func (c *config[H]) Build() Governor[H] {
	cCopy := *c
	if cCopy.gate == nil {
		gb := gate.Builder()
		if cCopy.logger != nil {
			gb.OnStateChanged(logStateChanged(cCopy.logger))
		}
		cCopy.gate = gb.Build()
	}
	if cCopy.probe == nil {
		cCopy.probe = probe.Builder[H]().Build()
	}
	return &governor[H]{config: &cCopy}
}

type governor[H any] struct {
	*config[H]
	skipped atomic.Uint64
}

var _ Governor[any] = &governor[any]{}

func (g *governor[H]) Allow(host H) bool {
	config := g.configFn()
	if !config.Enabled {
		return true
	}

	sample := g.probe.Resolve(host)
	if g.gate.Decide(sample.Value, config) {
		return true
	}

	g.skipped.Add(1)
	if g.onSkipped != nil {
		g.onSkipped(SkippedEvent{Sample: sample, Config: config})
	}
	return false
}

func (g *governor[H]) Run(host H, work func()) bool {
	if !g.Allow(host) {
		return false
	}
	work()
	return true
}

func (g *governor[H]) Wrap(work func(host H)) func(host H) {
	return func(host H) {
		if g.Allow(host) {
			work(host)
		}
	}
}

func (g *governor[H]) Gate() gate.Gate {
	return g.gate
}

func (g *governor[H]) Probe() probe.Probe[H] {
	return g.probe
}

func (g *governor[H]) Skipped() uint64 {
	return g.skipped.Load()
}

func logStateChanged(logger *slog.Logger) func(gate.StateChangedEvent) {
	return func(e gate.StateChangedEvent) {
		logger.Info("gate state changed",
			"from", e.OldState.String(),
			"to", e.NewState.String(),
			"sample", e.Sample,
			"disableThreshold", e.Config.DisableThreshold,
			"enableThreshold", e.Config.EnableThreshold)
	}
}

// LogSourceFailed returns a probe listener that logs each failing source to the logger at most once per interval, so
// that a source missing from a host's surface is not logged on every tick.
func LogSourceFailed(logger *slog.Logger, interval time.Duration) func(probe.SourceFailedEvent) {
	var mtx sync.Mutex
	limiters := map[string]*rate.Sometimes{}
	return func(e probe.SourceFailedEvent) {
		mtx.Lock()
		limiter, ok := limiters[e.Source]
		if !ok {
			limiter = &rate.Sometimes{First: 1, Interval: interval}
			limiters[e.Source] = limiter
		}
		mtx.Unlock()

		limiter.Do(func() {
			logger.Warn("metric source unavailable", "source", e.Source, "error", e.Error)
		})
	}
}
