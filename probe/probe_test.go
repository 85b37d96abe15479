package probe_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framegate/framegate/internal/testutil"
	"github.com/framegate/framegate/probe"
)

func TestShouldPreferImmediateProperty(t *testing.T) {
	host := testutil.NewTestHost(map[string]any{
		probe.ImmediateFPSProperty: float32(45),
		probe.SmoothedFPSProperty:  float32(50),
		probe.FPSProperty:          float32(55),
	}).WithUpdateDelta(0.1).WithEngineDelta(0.2)

	result := probe.New().Resolve(host)

	assert.Equal(t, 45.0, result.Value)
	assert.Equal(t, probe.ImmediateFPSProperty, result.Source)
	assert.False(t, result.Defaulted)
}

func TestShouldFallThroughProperties(t *testing.T) {
	tests := []struct {
		name       string
		properties map[string]any
		expected   float64
		source     string
	}{
		{"smoothed", map[string]any{probe.SmoothedFPSProperty: 50.0, probe.FPSProperty: float32(55)}, 50, probe.SmoothedFPSProperty},
		{"generic", map[string]any{probe.FPSProperty: float32(55)}, 55, probe.FPSProperty},
		{"wrong type skipped", map[string]any{probe.ImmediateFPSProperty: 45, probe.FPSProperty: float32(55)}, 55, probe.FPSProperty},
		{"string skipped", map[string]any{probe.ImmediateFPSProperty: "45", probe.FPSProperty: 60.0}, 60, probe.FPSProperty},
		{"zero skipped", map[string]any{probe.ImmediateFPSProperty: float32(0), probe.FPSProperty: 60.0}, 60, probe.FPSProperty},
		{"nan skipped", map[string]any{probe.ImmediateFPSProperty: math.NaN(), probe.FPSProperty: 60.0}, 60, probe.FPSProperty},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := probe.New().Resolve(testutil.NewTestHost(tc.properties))

			assert.Equal(t, tc.expected, result.Value)
			assert.Equal(t, tc.source, result.Source)
		})
	}
}

func TestShouldDeriveFromUpdateDelta(t *testing.T) {
	host := testutil.NewTestHost(nil).WithUpdateDelta(0.04).WithEngineDelta(0.1)

	result := probe.New().Resolve(host)

	assert.InDelta(t, 25.0, result.Value, 1e-9)
	assert.Equal(t, "UpdateDeltaTime", result.Source)
}

func TestShouldDeriveFromEngineDelta(t *testing.T) {
	tests := []struct {
		name string
		host *testutil.TestHost
	}{
		{"no update context", testutil.NewTestHost(map[string]any{}).WithEngineDelta(0.05)},
		{"zero update delta", testutil.NewTestHost(nil).WithUpdateDelta(0).WithEngineDelta(0.05)},
		{"negative update delta", testutil.NewTestHost(nil).WithUpdateDelta(-0.02).WithEngineDelta(0.05)},
		{"infinite update delta", testutil.NewTestHost(nil).WithUpdateDelta(math.Inf(1)).WithEngineDelta(0.05)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := probe.New().Resolve(tc.host)

			assert.InDelta(t, 20.0, result.Value, 1e-9)
			assert.Equal(t, "EngineDeltaTime", result.Source)
		})
	}
}

func TestShouldReturnDefaultWhenExhausted(t *testing.T) {
	var nilHost probe.Host
	tests := []struct {
		name string
		host probe.Host
	}{
		{"nil host", nilHost},
		{"empty host", testutil.NewTestHost(nil)},
		{"degenerate deltas", testutil.NewTestHost(map[string]any{}).WithUpdateDelta(0).WithEngineDelta(-1)},
		{"tiny delta", testutil.NewTestHost(nil).WithEngineDelta(math.SmallestNonzeroFloat64)},
		{"nan deltas", testutil.NewTestHost(nil).WithUpdateDelta(math.NaN()).WithEngineDelta(math.NaN())},
		{"panicking info", &testutil.TestHost{Info: testutil.PanickingInfo{Value: "boom"}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				result := probe.New().Resolve(tc.host)
				assert.Equal(t, probe.DefaultSample, result.Value)
				assert.True(t, result.Defaulted)
				assert.Empty(t, result.Source)
			})
		})
	}
}

func TestShouldIsolateFaults(t *testing.T) {
	host := &testutil.TestHost{
		Info: testutil.PanickingInfo{Value: errors.New("introspection failed")},
		UpdateDelta: func() (float64, error) {
			panic("no world")
		},
		EngineDelta: func() (float64, error) {
			return 1.0 / 30, nil
		},
	}
	var failures []probe.SourceFailedEvent
	p := probe.Builder(probe.DefaultSources()...).
		OnSourceFailed(func(e probe.SourceFailedEvent) {
			failures = append(failures, e)
		}).
		Build()

	assert.InDelta(t, 30.0, p.Sample(host), 1e-9)

	require.Len(t, failures, 4)
	var fault *probe.FaultError
	for _, failure := range failures {
		assert.ErrorAs(t, failure.Error, &fault)
	}
	assert.Equal(t, probe.ImmediateFPSProperty, failures[0].Source)
	assert.Equal(t, "UpdateDeltaTime", failures[3].Source)
	assert.EqualError(t, errors.Unwrap(failures[0].Error), "introspection failed")
}

func TestShouldReportFailureReasons(t *testing.T) {
	host := testutil.NewTestHost(map[string]any{probe.SmoothedFPSProperty: int64(30)}).WithUpdateDelta(0)
	var failures []probe.SourceFailedEvent
	var defaults []probe.DefaultUsedEvent
	p := probe.Builder(probe.DefaultSources()...).
		OnSourceFailed(func(e probe.SourceFailedEvent) {
			failures = append(failures, e)
		}).
		OnDefaultUsed(func(e probe.DefaultUsedEvent) {
			defaults = append(defaults, e)
		}).
		Build()

	assert.Equal(t, probe.DefaultSample, p.Sample(host))

	require.Len(t, failures, 5)
	assert.ErrorIs(t, failures[0].Error, probe.ErrUnavailable)
	assert.ErrorIs(t, failures[1].Error, probe.ErrWrongType)
	assert.ErrorIs(t, failures[2].Error, probe.ErrUnavailable)
	assert.ErrorIs(t, failures[3].Error, probe.ErrDegenerate)
	assert.ErrorIs(t, failures[4].Error, probe.ErrUnavailable)
	assert.ErrorIs(t, failures[4].Error, testutil.ErrNoContext)
	assert.Equal(t, []probe.DefaultUsedEvent{{Value: probe.DefaultSample}}, defaults)
}

func TestWithDefault(t *testing.T) {
	host := testutil.NewTestHost(nil)

	assert.Equal(t, 90.0, probe.Builder(probe.DefaultSources()...).WithDefault(90).Build().Sample(host))
	for _, invalid := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		p := probe.Builder(probe.DefaultSources()...).WithDefault(invalid).Build()
		assert.Equal(t, probe.DefaultSample, p.Sample(host))
	}
}

func TestCustomSources(t *testing.T) {
	type world struct {
		fps   float64
		delta float64
	}
	p := probe.Builder[*world](
		probe.Func("fps", func(w *world) (float64, error) {
			return w.fps, nil
		}),
		probe.DeltaTimeFunc("delta", func(w *world) (float64, error) {
			return w.delta, nil
		}),
		nil,
	).Build()

	assert.Equal(t, 40.0, p.Sample(&world{fps: 40, delta: 0.5}))
	assert.Equal(t, 2.0, p.Sample(&world{fps: -3, delta: 0.5}))
	assert.Equal(t, probe.DefaultSample, p.Sample(&world{}))
	assert.Equal(t, probe.DefaultSample, p.Sample(nil))
}

func TestNoSources(t *testing.T) {
	assert.Equal(t, probe.DefaultSample, probe.Builder[probe.Host]().Build().Sample(nil))
}

func TestShouldNotShareBuilderSources(t *testing.T) {
	builder := probe.Builder(probe.RateProperty(probe.FPSProperty))
	p := builder.Build()
	builder.WithDefault(50)

	assert.Equal(t, probe.DefaultSample, p.Sample(testutil.NewTestHost(nil)))
}

func TestMapInfo(t *testing.T) {
	info := probe.MapInfo{"FPS": 60.0}

	value, ok := info.Property("FPS")
	assert.True(t, ok)
	assert.Equal(t, 60.0, value)
	_, ok = info.Property("Missing")
	assert.False(t, ok)
}
