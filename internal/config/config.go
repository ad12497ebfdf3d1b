// Package config loads runtime settings from defaults, an optional config file,
// LOOKOUT_* environment variables and command-line flags, in increasing priority.
package config

import (
	"strings"
	"time"

	"github.com/andresmejia3/lookout/internal/detect"
	"github.com/andresmejia3/lookout/internal/detect/pico"
	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. LOOKOUT_SOURCE_DEVICE.
const EnvPrefix = "LOOKOUT"

// Config is the full runtime configuration.
type Config struct {
	Source    SourceConfig    `mapstructure:"source"`
	Detector  DetectorConfig  `mapstructure:"detector"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Sink      SinkConfig      `mapstructure:"sink"`
	Log       LogConfig       `mapstructure:"log"`
}

// SourceConfig selects and sizes the frame source.
type SourceConfig struct {
	Kind     string `mapstructure:"kind"` // camera, ffmpeg, still
	Device   int    `mapstructure:"device"`
	Input    string `mapstructure:"input"`
	Width    int    `mapstructure:"width"`
	Height   int    `mapstructure:"height"`
	Loop     bool   `mapstructure:"loop"`
	BottomUp bool   `mapstructure:"bottom_up"`
}

// DetectorConfig selects the classifier backend and its resources.
type DetectorConfig struct {
	Backend     string        `mapstructure:"backend"` // opencv, pico
	FaceCascade string        `mapstructure:"face_cascade"`
	EyeCascade  string        `mapstructure:"eye_cascade"`
	Face        detect.Params `mapstructure:"face"`
	Eye         detect.Params `mapstructure:"eye"`
	Pico        pico.Options  `mapstructure:"pico"`
}

// PipelineConfig controls annotation drawing.
type PipelineConfig struct {
	FaceThickness int  `mapstructure:"face_thickness"`
	EyeThickness  int  `mapstructure:"eye_thickness"`
	HUD           bool `mapstructure:"hud"`
}

// SchedulerConfig controls the capture tick and worker engines.
type SchedulerConfig struct {
	Engines int           `mapstructure:"engines"`
	Tick    time.Duration `mapstructure:"tick"`
}

// SinkConfig selects where finished frames go.
type SinkConfig struct {
	Kind  string `mapstructure:"kind"` // window, png, discard
	Title string `mapstructure:"title"`
	Path  string `mapstructure:"path"`
}

// LogConfig controls the logger.
type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("source.kind", "camera")
	v.SetDefault("source.device", 0)
	v.SetDefault("source.input", "")
	v.SetDefault("source.width", 320)
	v.SetDefault("source.height", 240)
	v.SetDefault("source.loop", false)
	v.SetDefault("source.bottom_up", false)

	v.SetDefault("detector.backend", "opencv")
	v.SetDefault("detector.face_cascade", "haarcascades/haarcascade_frontalface_alt.xml")
	v.SetDefault("detector.eye_cascade", "haarcascades/haarcascade_eye.xml")
	for _, pass := range []string{"face", "eye"} {
		v.SetDefault("detector."+pass+".scale_factor", detect.DefaultParams.ScaleFactor)
		v.SetDefault("detector."+pass+".min_size", detect.DefaultParams.MinSize)
		v.SetDefault("detector."+pass+".min_neighbors", detect.DefaultParams.MinNeighbors)
	}
	v.SetDefault("detector.pico.quality", pico.DefaultOptions.Quality)
	v.SetDefault("detector.pico.shift_factor", pico.DefaultOptions.ShiftFactor)
	v.SetDefault("detector.pico.iou", pico.DefaultOptions.IoU)

	v.SetDefault("pipeline.face_thickness", 2)
	v.SetDefault("pipeline.eye_thickness", 1)
	v.SetDefault("pipeline.hud", false)

	v.SetDefault("scheduler.engines", 1)
	v.SetDefault("scheduler.tick", 33*time.Millisecond)

	v.SetDefault("sink.kind", "window")
	v.SetDefault("sink.title", "Lookout")
	v.SetDefault("sink.path", "preview.png")

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
}

// New returns a viper instance with defaults and environment binding.
// configFile may be empty; a missing explicit file is an error.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", configFile)
		}
	}
	return v, nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshalling config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside the pipeline.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case "camera", "ffmpeg", "still":
	default:
		return errors.Newf("unknown source kind %q (camera, ffmpeg, still)", c.Source.Kind)
	}
	if c.Source.Kind != "camera" && c.Source.Input == "" {
		return errors.Newf("source kind %q requires source.input", c.Source.Kind)
	}
	if c.Source.Width <= 0 || c.Source.Height <= 0 {
		return errors.Newf("source dimensions must be positive, got %dx%d", c.Source.Width, c.Source.Height)
	}

	switch c.Detector.Backend {
	case "opencv", "pico":
	default:
		return errors.Newf("unknown detector backend %q (opencv, pico)", c.Detector.Backend)
	}
	if err := c.Detector.Face.Validate(); err != nil {
		return errors.Wrap(err, "detector.face")
	}
	if err := c.Detector.Eye.Validate(); err != nil {
		return errors.Wrap(err, "detector.eye")
	}

	if c.Scheduler.Tick <= 0 {
		return errors.Newf("scheduler.tick must be positive, got %s", c.Scheduler.Tick)
	}
	if c.Scheduler.Engines < 1 {
		c.Scheduler.Engines = 1
	}

	switch c.Sink.Kind {
	case "window", "png", "discard":
	default:
		return errors.Newf("unknown sink kind %q (window, png, discard)", c.Sink.Kind)
	}
	return nil
}
