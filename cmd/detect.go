package cmd

import (
	"context"
	"encoding/json"
	"io"

	"github.com/andresmejia3/lookout/internal/config"
	"github.com/andresmejia3/lookout/internal/logger"
	"github.com/andresmejia3/lookout/internal/pipeline"
	"github.com/andresmejia3/lookout/internal/sink"
	"github.com/andresmejia3/lookout/internal/source"
	"github.com/andresmejia3/lookout/internal/types"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

type detectOptions struct {
	OutputPath string
}

var detectOpts detectOptions

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Detect faces and eyes in a single image",
	Long:  "Runs the detection pipeline once on a PNG or JPEG, writes the annotated preview and prints the regions as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runDetect(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], detectOpts)
	},
}

func init() {
	f := detectCmd.Flags()
	f.StringVarP(&detectOpts.OutputPath, "output", "o", "", "Write the annotated preview PNG here")
	f.StringP("backend", "b", "opencv", "Detector backend (opencv, pico)")
	f.String("face-cascade", "", "Face cascade file")
	f.String("eye-cascade", "", "Eye cascade file")
	f.Bool("bottom-up", false, "Treat the image as bottom-up scanned")
	f.Bool("hud", false, "Print face and eye counts on the preview")
	configFlag(f, "backend", "detector.backend")
	configFlag(f, "face-cascade", "detector.face_cascade")
	configFlag(f, "eye-cascade", "detector.eye_cascade")
	configFlag(f, "bottom-up", "source.bottom_up")
	configFlag(f, "hud", "pipeline.hud")
	rootCmd.AddCommand(detectCmd)
}

// detectReport is the JSON printed by detect.
type detectReport struct {
	Input      string       `json:"input"`
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	Faces      []types.Face `json:"faces"`
	DurationMS int64        `json:"duration_ms"`
	Output     string       `json:"output,omitempty"`
}

func runDetect(ctx context.Context, w io.Writer, cfg *config.Config, input string, opts detectOptions) error {
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
	return detectOnce(ctx, w, p, source.NewStill(input, cfg.Source.BottomUp), input, opts)
}

// detectOnce runs p on a single frame from src and writes the report.
func detectOnce(ctx context.Context, w io.Writer, p *pipeline.Pipeline, src source.Source, input string, opts detectOptions) error {
	if err := src.Start(ctx); err != nil {
		return err
	}
	defer src.Stop()

	res, err := p.Run(src.Current())
	if err != nil {
		return err
	}
	logger.Logger.Debugw("Detection finished", logger.FieldPath, input, logger.FieldFaces, len(res.Faces), logger.FieldEyes, res.EyeCount())

	if opts.OutputPath != "" {
		if err := sink.WritePNG(opts.OutputPath, res.Image); err != nil {
			return err
		}
	}

	b := res.Image.Bounds()
	report := detectReport{
		Input:      input,
		Width:      b.Dx(),
		Height:     b.Dy(),
		Faces:      res.Faces,
		DurationMS: res.Duration.Milliseconds(),
		Output:     opts.OutputPath,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return errors.Wrap(err, "writing report")
	}
	return nil
}
