package imaging

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"section-aligner/pkg/geometry"
)

// WarpAffine applies an affine transform to an image, producing a raster of
// the given dimensions.
func WarpAffine(src gocv.Mat, transform geometry.AffineTransform, width, height int) gocv.Mat {
	transformMat := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	transformMat.SetDoubleAt(0, 0, transform.A)
	transformMat.SetDoubleAt(0, 1, transform.B)
	transformMat.SetDoubleAt(0, 2, transform.TX)
	transformMat.SetDoubleAt(1, 0, transform.C)
	transformMat.SetDoubleAt(1, 1, transform.D)
	transformMat.SetDoubleAt(1, 2, transform.TY)
	defer transformMat.Close()

	dst := gocv.NewMat()
	gocv.WarpAffineWithParams(src, &dst, transformMat, image.Point{X: width, Y: height},
		gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})

	return dst
}

// Overlay blends the aligned target over the reference at half opacity so
// registration quality can be judged by eye. The 0.5/0.7 weights keep both
// sections visible without washing out the reference.
func Overlay(reference, aligned gocv.Mat) gocv.Mat {
	dst := gocv.NewMat()
	gocv.AddWeighted(reference, 0.5, aligned, 0.7, 0, &dst)
	return dst
}
