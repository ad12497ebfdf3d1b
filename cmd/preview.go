package cmd

import (
	"fmt"
	"os"

	"github.com/andresmejia3/lookout/internal/config"
	"github.com/andresmejia3/lookout/internal/driver"
	"github.com/andresmejia3/lookout/internal/logger"
	"github.com/andresmejia3/lookout/internal/pipeline"
	"github.com/andresmejia3/lookout/internal/scheduler"
	"github.com/andresmejia3/lookout/internal/source"
	"github.com/andresmejia3/lookout/internal/utils"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show live face and eye detection from a camera, video or image",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runPreview(cmd, cfg)
	},
}

func init() {
	f := previewCmd.Flags()
	f.StringP("source", "s", "camera", "Frame source (camera, ffmpeg, still)")
	f.IntP("device", "d", 0, "Camera device index")
	f.StringP("input", "i", "", "Input for ffmpeg or still sources")
	f.Int("width", 320, "Frame width")
	f.Int("height", 240, "Frame height")
	f.Bool("loop", false, "Loop file inputs")
	f.Bool("bottom-up", false, "Treat still images as bottom-up scanned")
	f.StringP("backend", "b", "opencv", "Detector backend (opencv, pico)")
	f.String("face-cascade", "", "Face cascade file")
	f.String("eye-cascade", "", "Eye cascade file")
	f.IntP("engines", "e", 1, "Number of worker engines")
	f.Duration("tick", 0, "Capture tick interval (default 33ms)")
	f.String("sink", "window", "Display target (window, png, discard)")
	f.StringP("output", "o", "", "Output path for the png sink")
	f.Bool("hud", false, "Print face and eye counts on the preview")

	for name, key := range map[string]string{
		"source":       "source.kind",
		"device":       "source.device",
		"input":        "source.input",
		"width":        "source.width",
		"height":       "source.height",
		"loop":         "source.loop",
		"bottom-up":    "source.bottom_up",
		"backend":      "detector.backend",
		"face-cascade": "detector.face_cascade",
		"eye-cascade":  "detector.eye_cascade",
		"engines":      "scheduler.engines",
		"tick":         "scheduler.tick",
		"sink":         "sink.kind",
		"output":       "sink.path",
		"hud":          "pipeline.hud",
	} {
		configFlag(f, name, key)
	}
	rootCmd.AddCommand(previewCmd)
}

// runPreview wires source, pipeline, scheduler and sink and drives them until
// the window closes or the process is interrupted.
func runPreview(cmd *cobra.Command, cfg *config.Config) error {
	session := uuid.NewString()
	log := logger.Named("preview").With(logger.FieldSession, session)

	face, eye, err := loadClassifiers(cfg.Detector)
	if err != nil {
		return err
	}
	defer face.Close()
	defer eye.Close()

	p, err := buildPipeline(cfg, face, eye)
	if err != nil {
		return err
	}

	src, err := buildSource(cfg.Source)
	if err != nil {
		return err
	}
	out, err := buildSink(cfg.Sink)
	if err != nil {
		return err
	}
	defer out.Close()

	sched := scheduler.New(p, cfg.Scheduler.Engines)
	d, err := driver.New(src, sched, out, cfg.Scheduler.Tick)
	if err != nil {
		sched.Close()
		return err
	}

	fmt.Fprintf(os.Stderr, "👁️  Lookout session %s\n", session[:8])
	fmt.Fprintf(os.Stderr, "⚙️  %s source, %s backend, %d engine(s)\n", cfg.Source.Kind, cfg.Detector.Backend, cfg.Scheduler.Engines)

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("🔍 Lookout Detecting"),
		progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
	)
	d.OnDelivered = func(r *pipeline.Result) {
		bar.Describe(fmt.Sprintf("🔍 faces %d eyes %d", len(r.Faces), r.EyeCount()))
		bar.Add(1)
	}

	log.Infow("Preview starting",
		logger.FieldKind, cfg.Source.Kind,
		"backend", cfg.Detector.Backend,
		logger.FieldEngine, cfg.Scheduler.Engines,
		"tick", cfg.Scheduler.Tick,
	)

	if err := d.Run(cmd.Context()); err != nil {
		if ff, ok := src.(*source.FFmpeg); ok {
			err = utils.WithSubprocessLogs(err, ff.Command())
		}
		return errors.Wrap(err, "preview")
	}
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	st := sched.Stats()
	log.Infow("Preview finished", "delivered", st.Delivered, "skipped", st.Skipped, "failed", st.Failed)
	return nil
}
