package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andresmejia3/lookout/internal/detect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "camera", cfg.Source.Kind)
	assert.Equal(t, 320, cfg.Source.Width)
	assert.Equal(t, 240, cfg.Source.Height)
	assert.Equal(t, "opencv", cfg.Detector.Backend)
	assert.Equal(t, detect.DefaultParams, cfg.Detector.Face)
	assert.Equal(t, detect.DefaultParams, cfg.Detector.Eye)
	assert.Equal(t, 2, cfg.Pipeline.FaceThickness)
	assert.Equal(t, 1, cfg.Pipeline.EyeThickness)
	assert.Equal(t, 33*time.Millisecond, cfg.Scheduler.Tick)
	assert.Equal(t, "window", cfg.Sink.Kind)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lookout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source:
  kind: still
  input: face.png
  bottom_up: true
detector:
  backend: pico
  face_cascade: cascade/facefinder
  eye:
    scale_factor: 1.2
    min_size: 12
scheduler:
  tick: 100ms
sink:
  kind: png
`), 0644))

	v, err := New(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "still", cfg.Source.Kind)
	assert.True(t, cfg.Source.BottomUp)
	assert.Equal(t, "pico", cfg.Detector.Backend)
	assert.Equal(t, "cascade/facefinder", cfg.Detector.FaceCascade)
	assert.Equal(t, 1.2, cfg.Detector.Eye.ScaleFactor)
	assert.Equal(t, 12, cfg.Detector.Eye.MinSize)
	assert.Equal(t, 5, cfg.Detector.Eye.MinNeighbors, "unset keys keep their defaults")
	assert.Equal(t, 100*time.Millisecond, cfg.Scheduler.Tick)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("LOOKOUT_SOURCE_DEVICE", "2")
	t.Setenv("LOOKOUT_DETECTOR_FACE_SCALE_FACTOR", "1.3")

	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Source.Device)
	assert.Equal(t, 1.3, cfg.Detector.Face.ScaleFactor)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		v, _ := New("")
		cfg, _ := Load(v)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"Unknown source", func(c *Config) { c.Source.Kind = "webrtc" }},
		{"Still without input", func(c *Config) { c.Source.Kind = "still" }},
		{"Zero width", func(c *Config) { c.Source.Width = 0 }},
		{"Unknown backend", func(c *Config) { c.Detector.Backend = "dlib" }},
		{"Face scale factor", func(c *Config) { c.Detector.Face.ScaleFactor = 1 }},
		{"Eye min size", func(c *Config) { c.Detector.Eye.MinSize = -5 }},
		{"Zero tick", func(c *Config) { c.Scheduler.Tick = 0 }},
		{"Unknown sink", func(c *Config) { c.Sink.Kind = "hdmi" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}

	t.Run("Engines are clamped", func(t *testing.T) {
		c := base()
		c.Scheduler.Engines = 0
		require.NoError(t, c.Validate())
		assert.Equal(t, 1, c.Scheduler.Engines)
	})
}
