// Package registration fits a rigid (similarity) transform between two
// binary masks: rotation, uniform scale and translation, no shear.
package registration

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"gocv.io/x/gocv"

	"section-aligner/pkg/geometry"
)

// ErrNoCorrespondence is returned when no stable correspondence exists
// between the two masks (empty or degenerate inputs, too few feature
// matches, or an unfittable geometry).
var ErrNoCorrespondence = errors.New("registration: no stable correspondence")

// Registrar computes a transform mapping the target mask onto the reference
// mask. Implementations must be deterministic for fixed inputs: the caller
// retries the same pair at different thresholds and compares outcomes.
type Registrar interface {
	Register(reference, target gocv.Mat) (geometry.AffineTransform, error)
}

// ORBRegistrar matches ORB features between the two masks and fits a
// similarity transform over the matched keypoints.
type ORBRegistrar struct {
	MaxFeatures       int     // keypoints detected per mask
	KeepMatchFraction float64 // fraction of best matches kept, (0,1]
	RANSACIterations  int
	InlierThreshold   float64 // max reprojection distance in pixels
}

// NewORBRegistrar returns a registrar with the default feature budget and
// fit parameters.
func NewORBRegistrar() *ORBRegistrar {
	return &ORBRegistrar{
		MaxFeatures:       5000,
		KeepMatchFraction: 0.9,
		RANSACIterations:  2000,
		InlierThreshold:   5.0,
	}
}

// Register detects ORB keypoints on both masks, matches descriptors with a
// cross-checked Hamming brute-force matcher, keeps the best matches and fits
// a similarity transform target→reference over them. The RANSAC source is
// reseeded per call, so the same mask pair always yields the same transform.
func (r *ORBRegistrar) Register(reference, target gocv.Mat) (geometry.AffineTransform, error) {
	if reference.Empty() || target.Empty() {
		return geometry.AffineTransform{}, fmt.Errorf("%w: empty mask", ErrNoCorrespondence)
	}

	orb := gocv.NewORBWithParams(r.MaxFeatures, 1.2, 8, 31, 0, 2, gocv.ORBScoreTypeHarris, 31, 20)
	defer orb.Close()

	noMask := gocv.NewMat()
	defer noMask.Close()

	targetKeypoints, targetDesc := orb.DetectAndCompute(target, noMask)
	defer targetDesc.Close()
	referenceKeypoints, referenceDesc := orb.DetectAndCompute(reference, noMask)
	defer referenceDesc.Close()

	if targetDesc.Empty() || referenceDesc.Empty() {
		return geometry.AffineTransform{}, fmt.Errorf("%w: no features detected", ErrNoCorrespondence)
	}

	matcher := gocv.NewBFMatcherWithParams(gocv.NormHamming, true)
	defer matcher.Close()

	matches := matcher.Match(targetDesc, referenceDesc)
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	matches = matches[:int(float64(len(matches))*r.KeepMatchFraction)]

	if len(matches) < 2 {
		return geometry.AffineTransform{}, fmt.Errorf("%w: %d matches", ErrNoCorrespondence, len(matches))
	}

	src := make([]geometry.Point2D, len(matches))
	dst := make([]geometry.Point2D, len(matches))
	for i, m := range matches {
		kt := targetKeypoints[m.QueryIdx]
		kr := referenceKeypoints[m.TrainIdx]
		src[i] = geometry.Point2D{X: kt.X, Y: kt.Y}
		dst[i] = geometry.Point2D{X: kr.X, Y: kr.Y}
	}

	rng := rand.New(rand.NewSource(1))
	transform, _, err := FitSimilarityRANSAC(src, dst, r.RANSACIterations, r.InlierThreshold, rng)
	if err != nil {
		return geometry.AffineTransform{}, fmt.Errorf("%w: %v", ErrNoCorrespondence, err)
	}

	return transform, nil
}
