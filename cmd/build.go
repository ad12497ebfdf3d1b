package cmd

import (
	"github.com/andresmejia3/lookout/internal/config"
	"github.com/andresmejia3/lookout/internal/detect"
	"github.com/andresmejia3/lookout/internal/detect/opencv"
	"github.com/andresmejia3/lookout/internal/detect/pico"
	"github.com/andresmejia3/lookout/internal/pipeline"
	"github.com/andresmejia3/lookout/internal/sink"
	"github.com/andresmejia3/lookout/internal/sink/window"
	"github.com/andresmejia3/lookout/internal/source"
	"github.com/andresmejia3/lookout/internal/source/camera"
	"github.com/cockroachdb/errors"
)

// loadConfig reads the configuration for the running command. An invalid
// configuration stops startup like any other initialization failure.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "invalid configuration"), detect.ErrInitialization)
	}
	return cfg, nil
}

// loadClassifiers loads the face and eye cascades for the configured backend.
// On error nothing is left open.
func loadClassifiers(cfg config.DetectorConfig) (face, eye detect.Classifier, err error) {
	load := func(kind, path string) (detect.Classifier, error) {
		if cfg.Backend == "pico" {
			return pico.Load(kind, path, cfg.Pico)
		}
		return opencv.Load(kind, path)
	}

	face, err = load("face", cfg.FaceCascade)
	if err != nil {
		return nil, nil, err
	}
	eye, err = load("eye", cfg.EyeCascade)
	if err != nil {
		face.Close()
		return nil, nil, err
	}
	return face, eye, nil
}

func buildPipeline(cfg *config.Config, face, eye detect.Classifier) (*pipeline.Pipeline, error) {
	return pipeline.New(face, eye, pipeline.Config{
		Face:          cfg.Detector.Face,
		Eye:           cfg.Detector.Eye,
		FaceThickness: cfg.Pipeline.FaceThickness,
		EyeThickness:  cfg.Pipeline.EyeThickness,
		HUD:           cfg.Pipeline.HUD,
	})
}

func buildSource(cfg config.SourceConfig) (source.Source, error) {
	switch cfg.Kind {
	case "camera":
		return camera.New(cfg.Device, cfg.Width, cfg.Height), nil
	case "ffmpeg":
		return source.NewFFmpeg(cfg.Input, cfg.Width, cfg.Height, cfg.Loop), nil
	case "still":
		return source.NewStill(cfg.Input, cfg.BottomUp), nil
	}
	return nil, errors.Mark(errors.Newf("unknown source kind %q", cfg.Kind), detect.ErrInitialization)
}

func buildSink(cfg config.SinkConfig) (sink.Sink, error) {
	switch cfg.Kind {
	case "window":
		return window.New(cfg.Title), nil
	case "png":
		return sink.NewPNG(cfg.Path), nil
	case "discard":
		return &sink.Discard{}, nil
	}
	return nil, errors.Mark(errors.Newf("unknown sink kind %q", cfg.Kind), detect.ErrInitialization)
}
