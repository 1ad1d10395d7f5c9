package registration

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"section-aligner/pkg/geometry"
)

// fitSimilarityFrom2 computes a similarity transform (rotation + uniform
// scale + translation) from exactly 2 point pairs.
func fitSimilarityFrom2(s0, s1, d0, d1 geometry.Point2D) (geometry.AffineTransform, error) {
	sx, sy := s1.X-s0.X, s1.Y-s0.Y
	dx, dy := d1.X-d0.X, d1.Y-d0.Y

	srcLen := math.Sqrt(sx*sx + sy*sy)
	dstLen := math.Sqrt(dx*dx + dy*dy)
	if srcLen < 0.001 || dstLen < 0.001 {
		return geometry.AffineTransform{}, fmt.Errorf("degenerate points")
	}

	scale := dstLen / srcLen
	theta := math.Atan2(dy, dx) - math.Atan2(sy, sx)

	a := scale * math.Cos(theta)
	b := scale * math.Sin(theta)

	// d0 = S * s0 + t  =>  t = d0 - S * s0
	tx := d0.X - (a*s0.X - b*s0.Y)
	ty := d0.Y - (b*s0.X + a*s0.Y)

	return geometry.AffineTransform{
		A: a, B: -b, TX: tx,
		C: b, D: a, TY: ty,
	}, nil
}

// fitSimilarityLeastSquares computes the best similarity transform from N
// point pairs by solving the overdetermined linear system for the four
// parameters (a, b, tx, ty) with the matrix form [a -b tx; b a ty].
func fitSimilarityLeastSquares(src, dst []geometry.Point2D) (geometry.AffineTransform, error) {
	n := len(src)
	if n < 2 {
		return geometry.AffineTransform{}, fmt.Errorf("need at least 2 points, got %d", n)
	}

	A := mat.NewDense(n*2, 4, nil)
	B := mat.NewVecDense(n*2, nil)

	for i := 0; i < n; i++ {
		x, y := src[i].X, src[i].Y
		xp, yp := dst[i].X, dst[i].Y

		// x' = a*x - b*y + tx
		A.Set(i*2, 0, x)
		A.Set(i*2, 1, -y)
		A.Set(i*2, 2, 1)
		B.SetVec(i*2, xp)

		// y' = b*x + a*y + ty
		A.Set(i*2+1, 0, y)
		A.Set(i*2+1, 1, x)
		A.Set(i*2+1, 3, 1)
		B.SetVec(i*2+1, yp)
	}

	var qr mat.QR
	qr.Factorize(A)

	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, B); err != nil {
		return geometry.AffineTransform{}, err
	}

	a, b := params.AtVec(0), params.AtVec(1)
	return geometry.AffineTransform{
		A: a, B: -b, TX: params.AtVec(2),
		C: b, D: a, TY: params.AtVec(3),
	}, nil
}

// FitSimilarityRANSAC computes a similarity transform mapping src onto dst
// using RANSAC over 2-point samples, refined with a least-squares fit over
// all inliers. The caller supplies the random source so repeated fits over
// the same correspondences produce the same transform.
func FitSimilarityRANSAC(src, dst []geometry.Point2D, iterations int, threshold float64, rng *rand.Rand) (geometry.AffineTransform, []int, error) {
	if len(src) != len(dst) {
		return geometry.AffineTransform{}, nil, fmt.Errorf("point count mismatch: %d vs %d", len(src), len(dst))
	}
	if len(src) < 2 {
		return geometry.AffineTransform{}, nil, fmt.Errorf("need at least 2 points, got %d", len(src))
	}

	n := len(src)
	bestInliers := []int{}
	var bestTransform geometry.AffineTransform

	for iter := 0; iter < iterations; iter++ {
		indices := rng.Perm(n)[:2]
		i0, i1 := indices[0], indices[1]

		transform, err := fitSimilarityFrom2(src[i0], src[i1], dst[i0], dst[i1])
		if err != nil {
			continue
		}

		var inliers []int
		for i := range src {
			transformed := transform.Apply(src[i])
			if transformed.Distance(dst[i]) < threshold {
				inliers = append(inliers, i)
			}
		}

		if len(inliers) > len(bestInliers) {
			bestInliers = inliers
			bestTransform = transform
		}
	}

	if len(bestInliers) < 2 {
		return geometry.AffineTransform{}, nil, fmt.Errorf("RANSAC failed to find enough inliers")
	}

	// Recompute using all inliers
	inlierSrc := make([]geometry.Point2D, len(bestInliers))
	inlierDst := make([]geometry.Point2D, len(bestInliers))
	for i, idx := range bestInliers {
		inlierSrc[i] = src[idx]
		inlierDst[i] = dst[idx]
	}

	finalTransform, err := fitSimilarityLeastSquares(inlierSrc, inlierDst)
	if err != nil {
		return bestTransform, bestInliers, nil
	}

	return finalTransform, bestInliers, nil
}
