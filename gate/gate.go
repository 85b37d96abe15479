package gate

import (
	"sync"

	"github.com/framegate/framegate/internal/util"
)

// State of a Gate.
type State int

const (
	// AllowedState indicates controlled work is allowed to run.
	AllowedState State = iota

	// SuppressedState indicates controlled work is skipped.
	SuppressedState
)

func (s State) String() string {
	switch s {
	case AllowedState:
		return "allowed"
	case SuppressedState:
		return "suppressed"
	default:
		return "unknown"
	}
}

// Default threshold values, in samples per second.
const (
	DefaultDisableThreshold = 17.0
	DefaultEnableThreshold  = 22.0
)

// Config is a snapshot of the gate settings used for a single decision. EnableThreshold is expected to be greater than
// or equal to DisableThreshold. This is not enforced, and an inverted config will cause the gate to toggle on every
// decision whose sample falls between the thresholds.
type Config struct {
	// Enabled indicates whether the gate applies. A disabled gate allows every decision.
	Enabled bool
	// DisableThreshold is the sample below which an allowed gate becomes suppressed.
	DisableThreshold float64
	// EnableThreshold is the sample above which a suppressed gate becomes allowed.
	EnableThreshold float64
}

// DefaultConfig returns an enabled Config with the default thresholds.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		DisableThreshold: DefaultDisableThreshold,
		EnableThreshold:  DefaultEnableThreshold,
	}
}

// StateChangedEvent indicates a Gate's state has changed.
type StateChangedEvent struct {
	OldState State
	NewState State
	// The sample that caused the transition.
	Sample float64
	// The config the decision was made with.
	Config Config
}

/*
Gate decides, once per tick, whether some controlled work should run, using a pair of thresholds to avoid toggling when
a sample hovers near a single cutoff.

A Gate starts in the AllowedState. While allowed it becomes suppressed when a sample drops strictly below the
DisableThreshold, and while suppressed it becomes allowed again when a sample rises strictly above the
EnableThreshold. A sample equal to a threshold leaves the state unchanged.

Samples that are NaN, infinite, zero or negative are ignored and leave the state unchanged.

This type is concurrency safe.
*/
type Gate interface {
	// Decide applies the sample to the gate using the config and returns whether controlled work should run. When the
	// config is not Enabled, Decide returns true without changing the gate's state or metrics.
	Decide(sample float64, config Config) bool

	// State returns the current state of the gate.
	State() State

	// IsAllowed returns whether the gate is in the AllowedState.
	IsAllowed() bool

	// IsSuppressed returns whether the gate is in the SuppressedState.
	IsSuppressed() bool

	// Reset returns the gate to the AllowedState and clears its metrics.
	Reset()

	// Metrics returns metrics for the gate.
	Metrics() Metrics
}

// Metrics for a Gate. Values only reflect enabled decisions.
type Metrics interface {
	// Decisions returns the number of enabled decisions that have been made.
	Decisions() uint

	// Suppressed returns the number of decisions that returned false.
	Suppressed() uint

	// Ignored returns the number of decisions whose sample was not usable.
	Ignored() uint

	// Transitions returns the number of state changes.
	Transitions() uint

	// SuppressedRate returns the percentage of suppressed decisions within the most recent window of decisions.
	SuppressedRate() uint
}

/*
GateBuilder builds Gate instances.

This type is not concurrency safe.
*/
type GateBuilder interface {
	// OnStateChanged registers the listener to be called when the gate changes state.
	OnStateChanged(listener func(StateChangedEvent)) GateBuilder

	// OnSuppressed registers the listener to be called when the gate transitions to the SuppressedState.
	OnSuppressed(listener func(StateChangedEvent)) GateBuilder

	// OnAllowed registers the listener to be called when the gate transitions back to the AllowedState.
	OnAllowed(listener func(StateChangedEvent)) GateBuilder

	// WithWindow configures the number of recent decisions that SuppressedRate is computed over. Defaults to 100.
	WithWindow(size uint) GateBuilder

	// Build returns a new Gate using the builder's configuration.
	Build() Gate
}

const defaultWindowSize = 100

type config struct {
	windowSize     uint
	onStateChanged func(StateChangedEvent)
	onSuppressed   func(StateChangedEvent)
	onAllowed      func(StateChangedEvent)
}

var _ GateBuilder = &config{}

// New returns a new Gate with the default configuration.
func New() Gate {
	return Builder().Build()
}

// Builder returns a GateBuilder.
func Builder() GateBuilder {
	return &config{
		windowSize: defaultWindowSize,
	}
}

func (c *config) OnStateChanged(listener func(StateChangedEvent)) GateBuilder {
	c.onStateChanged = listener
	return c
}

func (c *config) OnSuppressed(listener func(StateChangedEvent)) GateBuilder {
	c.onSuppressed = listener
	return c
}

func (c *config) OnAllowed(listener func(StateChangedEvent)) GateBuilder {
	c.onAllowed = listener
	return c
}

func (c *config) WithWindow(size uint) GateBuilder {
	if size > 0 {
		c.windowSize = size
	}
	return c
}

func (c *config) Build() Gate {
	cCopy := *c
	return &gate{
		config: &cCopy,
		window: util.NewRollingBits(cCopy.windowSize),
	}
}

type gate struct {
	*config

	mtx sync.Mutex
	// Guarded by mtx
	suppressed  bool
	decisions   uint
	suppressedN uint
	ignored     uint
	transitions uint
	window      *util.RollingBits
}

var _ Gate = &gate{}
var _ Metrics = &gate{}

func (g *gate) Decide(sample float64, config Config) bool {
	if !config.Enabled {
		return true
	}

	g.mtx.Lock()
	event, transitioned := g.decide(sample, config)
	allowed := !g.suppressed
	g.mtx.Unlock()

	if transitioned {
		g.notify(event)
	}
	return allowed
}

// Requires locking externally
func (g *gate) decide(sample float64, config Config) (StateChangedEvent, bool) {
	g.decisions++
	oldState := g.state()
	if !util.IsUsable(sample) {
		g.ignored++
	} else if g.suppressed {
		if sample > config.EnableThreshold {
			g.suppressed = false
		}
	} else if sample < config.DisableThreshold {
		g.suppressed = true
	}

	if g.suppressed {
		g.suppressedN++
	}
	g.window.Add(g.suppressed)

	newState := g.state()
	if newState == oldState {
		return StateChangedEvent{}, false
	}
	g.transitions++
	return StateChangedEvent{
		OldState: oldState,
		NewState: newState,
		Sample:   sample,
		Config:   config,
	}, true
}

func (g *gate) notify(event StateChangedEvent) {
	if g.onStateChanged != nil {
		g.onStateChanged(event)
	}
	if event.NewState == SuppressedState && g.onSuppressed != nil {
		g.onSuppressed(event)
	} else if event.NewState == AllowedState && g.onAllowed != nil {
		g.onAllowed(event)
	}
}

// Requires locking externally
func (g *gate) state() State {
	if g.suppressed {
		return SuppressedState
	}
	return AllowedState
}

func (g *gate) State() State {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.state()
}

func (g *gate) IsAllowed() bool {
	return g.State() == AllowedState
}

func (g *gate) IsSuppressed() bool {
	return g.State() == SuppressedState
}

func (g *gate) Reset() {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	g.suppressed = false
	g.decisions = 0
	g.suppressedN = 0
	g.ignored = 0
	g.transitions = 0
	g.window.Reset()
}

func (g *gate) Metrics() Metrics {
	return g
}

func (g *gate) Decisions() uint {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.decisions
}

func (g *gate) Suppressed() uint {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.suppressedN
}

func (g *gate) Ignored() uint {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.ignored
}

func (g *gate) Transitions() uint {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.transitions
}

func (g *gate) SuppressedRate() uint {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.window.TrueRate()
}
