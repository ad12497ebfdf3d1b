// Package pipeline turns one captured frame into an annotated grayscale preview:
// convert, grayscale, detect faces, detect eyes inside each face, draw, repack.
package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/andresmejia3/lookout/internal/detect"
	"github.com/andresmejia3/lookout/internal/imaging"
	"github.com/andresmejia3/lookout/internal/types"
	"github.com/cockroachdb/errors"
)

// ErrExecution marks a failure while processing a single frame. The frame is
// dropped and the stream continues.
var ErrExecution = errors.New("pipeline execution failed")

// Config holds the tunables of one pipeline.
type Config struct {
	Face          detect.Params
	Eye           detect.Params
	FaceThickness int
	EyeThickness  int
	// HUD prints face and eye counts in the top-left corner of the output.
	HUD bool
}

// DefaultConfig matches the reference driver: 1.01 / 5px for both passes,
// face outline 2px, eye box 1px.
func DefaultConfig() Config {
	return Config{
		Face:          detect.DefaultParams,
		Eye:           detect.DefaultParams,
		FaceThickness: 2,
		EyeThickness:  1,
	}
}

// Pipeline is synchronous and holds no per-frame state, so one instance can be
// shared by every worker. The classifiers are only read.
type Pipeline struct {
	face detect.Classifier
	eye  detect.Classifier
	cfg  Config
}

// New builds a pipeline. Both classifiers are required.
func New(face, eye detect.Classifier, cfg Config) (*Pipeline, error) {
	if face == nil || eye == nil {
		return nil, errors.Mark(errors.New("face and eye classifiers are required"), detect.ErrInitialization)
	}
	if err := cfg.Face.Validate(); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "face params"), detect.ErrInitialization)
	}
	if err := cfg.Eye.Validate(); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "eye params"), detect.ErrInitialization)
	}
	return &Pipeline{face: face, eye: eye, cfg: cfg}, nil
}

// Result is the product of one pipeline run.
type Result struct {
	Seq      uint64
	Image    *image.RGBA
	Faces    []types.Face
	Duration time.Duration
}

// EyeCount sums the eyes over all faces.
func (r *Result) EyeCount() int {
	n := 0
	for _, f := range r.Faces {
		n += len(f.Eyes)
	}
	return n
}

// Run processes one frame to completion.
func (p *Pipeline) Run(frame types.Frame) (*Result, error) {
	start := time.Now()
	if !frame.Valid() {
		return nil, execErr(errors.Newf("frame %d: %d bytes for %dx%d RGBA", frame.Seq, len(frame.Pix), frame.Width, frame.Height))
	}

	gray := imaging.Grayscale(imaging.FromFrame(frame))

	// Detection reads the pristine gray image; annotations go to a separate canvas
	// so no outline drawn for one face can leak into another face's eye pass.
	canvas := imaging.Clone(gray)

	faces, err := p.face.DetectMultiScale(gray, p.cfg.Face)
	if err != nil {
		return nil, execErr(errors.Wrapf(err, "frame %d: face detection", frame.Seq))
	}

	bounds := gray.Bounds()
	found := make([]types.Face, 0, len(faces))
	for _, fr := range faces {
		fr = fr.Intersect(bounds)
		if fr.Empty() {
			continue
		}
		sub := imaging.Region(gray, fr)
		imaging.Outline(canvas, fr, p.cfg.FaceThickness, imaging.White)

		eyes, err := p.eye.DetectMultiScale(sub, p.cfg.Eye)
		if err != nil {
			return nil, execErr(errors.Wrapf(err, "frame %d: eye detection in %v", frame.Seq, fr))
		}

		face := types.Face{Rect: fr, Eyes: make([]image.Rectangle, 0, len(eyes))}
		for _, er := range eyes {
			// Eye rectangles are relative to the face view; move them to image space.
			abs := er.Add(fr.Min).Intersect(fr)
			if abs.Empty() {
				continue
			}
			imaging.Box(canvas, abs, p.cfg.EyeThickness, imaging.White)
			face.Eyes = append(face.Eyes, abs)
		}
		found = append(found, face)
	}

	res := &Result{
		Seq:   frame.Seq,
		Image: imaging.ToRGBA(canvas),
		Faces: found,
	}
	if p.cfg.HUD && frame.Height >= 14 {
		imaging.Label(res.Image, 2, 12, fmt.Sprintf("faces %d eyes %d", len(found), res.EyeCount()), color.RGBA{255, 255, 255, 255})
	}
	res.Duration = time.Since(start)
	return res, nil
}

func execErr(err error) error {
	return errors.Mark(err, ErrExecution)
}
