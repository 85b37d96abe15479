package settings

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framegate/framegate/gate"
)

func writeFile(t *testing.T, name string, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	s := Defaults()

	assert.True(t, s.Enabled)
	assert.Equal(t, 17.0, s.DisableThreshold)
	assert.Equal(t, 22.0, s.EnableThreshold)
	assert.Equal(t, gate.DefaultConfig(), s.GateConfig())
	assert.Len(t, Keys, 3)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		expected Settings
	}{
		{
			name:     "yaml",
			file:     "framegate.yaml",
			content:  "enabled: false\ndisableThreshold: 25\nenableThreshold: 30.5\n",
			expected: Settings{Enabled: false, DisableThreshold: 25, EnableThreshold: 30.5},
		},
		{
			name:     "partial yml",
			file:     "framegate.yml",
			content:  "disableThreshold: 12\n",
			expected: Settings{Enabled: true, DisableThreshold: 12, EnableThreshold: 22},
		},
		{
			name:     "toml",
			file:     "framegate.toml",
			content:  "enabled = true\ndisableThreshold = 40.0\nenableThreshold = 45.0\n",
			expected: Settings{Enabled: true, DisableThreshold: 40, EnableThreshold: 45},
		},
		{
			name:     "partial toml",
			file:     "framegate.TOML",
			content:  "enableThreshold = 50.0\n",
			expected: Settings{Enabled: true, DisableThreshold: 17, EnableThreshold: 50},
		},
		{
			name:     "empty",
			file:     "empty.yaml",
			content:  "",
			expected: Defaults(),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Load(writeFile(t, tc.file, tc.content))

			require.NoError(t, err)
			assert.Equal(t, tc.expected, s)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeFile(t, "framegate.json", "{}"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "bad.yaml", "disableThreshold: [1, 2]\n"))
	assert.ErrorContains(t, err, "parse settings")

	_, err = Load(writeFile(t, "bad.toml", "disableThreshold = \"fast\"\n"))
	assert.ErrorContains(t, err, "parse settings")

	_, err = Load(writeFile(t, "nan.yaml", "enableThreshold: .nan\n"))
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestSaveAndLoad(t *testing.T) {
	s := Settings{Enabled: false, DisableThreshold: 14.5, EnableThreshold: 19}

	for _, name := range []string{"framegate.yaml", "framegate.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Save(path, s))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, s, loaded)
		})
	}

	assert.ErrorIs(t, Save(filepath.Join(t.TempDir(), "framegate.ini"), s), ErrUnsupportedFormat)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("FG_ENABLED", "false")
	t.Setenv("FG_DISABLE_THRESHOLD", "9.5")

	s, err := FromEnv(Defaults(), "FG")

	require.NoError(t, err)
	assert.Equal(t, Settings{Enabled: false, DisableThreshold: 9.5, EnableThreshold: 22}, s)
}

func TestFromEnvErrors(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		t.Setenv("FG_ENABLED", "maybe")
		_, err := FromEnv(Defaults(), "FG")
		assert.ErrorContains(t, err, "FG_ENABLED")
	})

	t.Run("threshold", func(t *testing.T) {
		t.Setenv("FG_ENABLE_THRESHOLD", "high")
		_, err := FromEnv(Defaults(), "FG")
		assert.ErrorContains(t, err, "FG_ENABLE_THRESHOLD")
	})

	t.Run("infinite", func(t *testing.T) {
		t.Setenv("FG_DISABLE_THRESHOLD", "+Inf")
		_, err := FromEnv(Defaults(), "FG")
		assert.ErrorIs(t, err, ErrInvalidThreshold)
	})
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Defaults().Validate())
	assert.NoError(t, Settings{DisableThreshold: 30, EnableThreshold: 10}.Validate())
	assert.ErrorIs(t, Settings{DisableThreshold: math.NaN()}.Validate(), ErrInvalidThreshold)
	assert.ErrorIs(t, Settings{EnableThreshold: math.Inf(-1)}.Validate(), ErrInvalidThreshold)
}

func TestInverted(t *testing.T) {
	assert.False(t, Defaults().Inverted())
	assert.False(t, Settings{DisableThreshold: 20, EnableThreshold: 20}.Inverted())
	assert.True(t, Settings{DisableThreshold: 22, EnableThreshold: 17}.Inverted())
}
