// Package align runs the per-pair pipeline: load both rasters, drive the
// threshold search over binarize+register attempts, then warp the original
// target image with the accepted transform and write the outputs.
package align

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"section-aligner/internal/config"
	"section-aligner/internal/imaging"
	"section-aligner/internal/registration"
	"section-aligner/internal/search"
	"section-aligner/pkg/geometry"
)

// OverlayDirName is the subdirectory of the output directory that receives
// the blended reference/target overlays.
const OverlayDirName = "overlap"

// Pair identifies one reference/target image pair sharing a file name.
type Pair struct {
	Name          string
	ReferencePath string
	TargetPath    string
}

// Outcome is the terminal result for one pair.
type Outcome struct {
	Pair   Pair
	Result search.Result
	Err    error // load or write failure; the pair was skipped
}

// Aligner holds everything needed to process pairs. It is safe for
// concurrent use: processing owns no shared mutable state and the logger
// serializes its own writes.
type Aligner struct {
	Registrar     registration.Registrar
	Search        search.Config
	Base          search.ThresholdPair
	Bounds        search.Bounds
	OutputDir     string
	WriteOverlays bool
	Log           zerolog.Logger
}

// New builds an Aligner from a validated configuration.
func New(cfg config.Config, log zerolog.Logger) *Aligner {
	return &Aligner{
		Registrar:     registration.NewORBRegistrar(),
		Search:        cfg.SearchConfig(),
		Base:          cfg.BaseThresholds(),
		Bounds:        cfg.Bounds,
		OutputDir:     cfg.ResolvedOutputDir(),
		WriteOverlays: !cfg.SuppressOverlays,
		Log:           log,
	}
}

// Process aligns one pair and writes its outputs. Registration failures and
// out-of-bounds scales are ordinary rejections handled inside the search;
// only I/O problems populate Outcome.Err.
func (a *Aligner) Process(pair Pair) Outcome {
	out := Outcome{Pair: pair}

	refGray, refColor, err := imaging.Load(pair.ReferencePath)
	if err != nil {
		out.Err = fmt.Errorf("reference: %w", err)
		return out
	}
	defer refGray.Close()
	defer refColor.Close()

	tgtGray, tgtColor, err := imaging.Load(pair.TargetPath)
	if err != nil {
		out.Err = fmt.Errorf("target: %w", err)
		return out
	}
	defer tgtGray.Close()
	defer tgtColor.Close()

	eval := func(tp search.ThresholdPair) (geometry.AffineTransform, error) {
		refMask, err := imaging.Binarize(refGray, tp.Reference)
		if err != nil {
			return geometry.AffineTransform{}, err
		}
		defer refMask.Close()

		tgtMask, err := imaging.Binarize(tgtGray, tp.Target)
		if err != nil {
			return geometry.AffineTransform{}, err
		}
		defer tgtMask.Close()

		a.Log.Debug().Str("image", pair.Name).
			Int("threshold_reference", tp.Reference).
			Int("threshold_target", tp.Target).
			Msg("attempting registration")

		return a.Registrar.Register(refMask, tgtMask)
	}

	out.Result = search.Run(a.Search, a.Base, a.Bounds, eval)

	switch out.Result.State {
	case search.Accepted:
		att := out.Result.Attempt

		// Warp the original color target, not the binarized mask.
		aligned := imaging.WarpAffine(tgtColor, att.Transform, refColor.Cols(), refColor.Rows())
		defer aligned.Close()

		if err := imaging.Save(filepath.Join(a.OutputDir, pair.Name), aligned); err != nil {
			out.Err = err
			return out
		}

		if a.WriteOverlays {
			overlay := imaging.Overlay(refColor, aligned)
			defer overlay.Close()

			if err := imaging.Save(filepath.Join(a.OutputDir, OverlayDirName, pair.Name), overlay); err != nil {
				out.Err = err
				return out
			}
		}

		translation := att.Transform.TranslationVector()
		a.Log.Info().Str("image", pair.Name).
			Int("threshold_reference", att.Thresholds.Reference).
			Int("threshold_target", att.Thresholds.Target).
			Float64("rotation_deg", att.RotationDeg).
			Float64("scale", att.Scale).
			Float64("translation_x", translation.X).
			Float64("translation_y", translation.Y).
			Int("attempts", len(out.Result.Trace)).
			Str("outcome", out.Result.State.String()).
			Msg("alignment accepted")

	case search.Exhausted:
		a.Log.Warn().Str("image", pair.Name).
			Int("last_delta", out.Result.LastDelta).
			Int("attempts", len(out.Result.Trace)).
			Str("outcome", out.Result.State.String()).
			Msg("alignment unsuccessful")
	}

	return out
}
