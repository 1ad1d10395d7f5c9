package registration

import (
	"math"
	"math/rand"
	"testing"

	"section-aligner/pkg/geometry"
)

// gridPoints returns a scattered set of points, enough to constrain a fit.
func gridPoints() []geometry.Point2D {
	var pts []geometry.Point2D
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			pts = append(pts, geometry.Point2D{
				X: float64(x)*37 + float64(y)*3,
				Y: float64(y)*29 - float64(x)*5,
			})
		}
	}
	return pts
}

func applyAll(t geometry.AffineTransform, pts []geometry.Point2D) []geometry.Point2D {
	out := make([]geometry.Point2D, len(pts))
	for i, p := range pts {
		out[i] = t.Apply(p)
	}
	return out
}

func TestFitSimilarityLeastSquaresRecoversTransform(t *testing.T) {
	cases := []struct {
		name     string
		angleDeg float64
		scale    float64
		tx, ty   float64
	}{
		{"identity", 0, 1, 0, 0},
		{"rotate and shrink", 3, 0.97, 10, -6},
		{"grow", -7.5, 1.04, -42, 13},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			want := geometry.Similarity(tc.angleDeg*math.Pi/180, tc.scale, tc.tx, tc.ty)
			src := gridPoints()
			dst := applyAll(want, src)

			got, err := fitSimilarityLeastSquares(src, dst)
			if err != nil {
				t.Fatalf("fitSimilarityLeastSquares: %v", err)
			}

			if math.Abs(got.ScaleFactor()-tc.scale) > 1e-6 {
				t.Errorf("scale = %v, want %v", got.ScaleFactor(), tc.scale)
			}
			if math.Abs(got.RotationDegrees()-tc.angleDeg) > 1e-6 {
				t.Errorf("rotation = %v, want %v", got.RotationDegrees(), tc.angleDeg)
			}
			if math.Abs(got.TX-tc.tx) > 1e-6 || math.Abs(got.TY-tc.ty) > 1e-6 {
				t.Errorf("translation = (%v, %v), want (%v, %v)", got.TX, got.TY, tc.tx, tc.ty)
			}
		})
	}
}

func TestFitSimilarityLeastSquaresTooFewPoints(t *testing.T) {
	if _, err := fitSimilarityLeastSquares(gridPoints()[:1], gridPoints()[:1]); err == nil {
		t.Error("expected error for a single point pair")
	}
}

func TestFitSimilarityRANSACWithOutliers(t *testing.T) {
	want := geometry.Similarity(2*math.Pi/180, 1.02, 5, -3)
	src := gridPoints()
	dst := applyAll(want, src)

	// Corrupt a fifth of the correspondences
	for i := 0; i < len(dst); i += 5 {
		dst[i].X += 500
		dst[i].Y -= 380
	}

	rng := rand.New(rand.NewSource(1))
	got, inliers, err := FitSimilarityRANSAC(src, dst, 2000, 3.0, rng)
	if err != nil {
		t.Fatalf("FitSimilarityRANSAC: %v", err)
	}

	if len(inliers) < len(src)*3/5 {
		t.Errorf("inliers = %d, want most of %d", len(inliers), len(src))
	}
	if math.Abs(got.ScaleFactor()-1.02) > 1e-3 {
		t.Errorf("scale = %v, want 1.02", got.ScaleFactor())
	}
	if math.Abs(got.RotationDegrees()-2) > 1e-2 {
		t.Errorf("rotation = %v, want 2", got.RotationDegrees())
	}
}

func TestFitSimilarityRANSACDeterministic(t *testing.T) {
	want := geometry.Similarity(-1*math.Pi/180, 0.99, 2, 8)
	src := gridPoints()
	dst := applyAll(want, src)
	dst[3].X += 100 // one outlier

	first, _, err := FitSimilarityRANSAC(src, dst, 500, 3.0, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("first fit: %v", err)
	}
	second, _, err := FitSimilarityRANSAC(src, dst, 500, 3.0, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("second fit: %v", err)
	}

	if first != second {
		t.Errorf("repeated fits differ:\n%+v\n%+v", first, second)
	}
}

func TestFitSimilarityRANSACDegenerateInput(t *testing.T) {
	p := geometry.Point2D{X: 1, Y: 1}
	src := []geometry.Point2D{p, p, p}
	dst := []geometry.Point2D{p, p, p}

	if _, _, err := FitSimilarityRANSAC(src, dst, 100, 3.0, rand.New(rand.NewSource(1))); err == nil {
		t.Error("expected error for coincident points")
	}

	if _, _, err := FitSimilarityRANSAC(src[:1], dst[:2], 100, 3.0, rand.New(rand.NewSource(1))); err == nil {
		t.Error("expected error for mismatched point counts")
	}
}
