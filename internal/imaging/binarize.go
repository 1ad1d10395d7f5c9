package imaging

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrInvalidThreshold is returned for thresholds outside [0,255]. The
// escalation schedule deliberately does not clamp, so candidates that walk
// off the range surface here and count as rejected attempts.
var ErrInvalidThreshold = errors.New("imaging: threshold outside [0,255]")

// Binarize converts a grayscale Mat to a binary mask. Pixels brighter than
// the threshold become foreground (255), all others background (0), so
// bright tissue on a dark slide background is treated as signal. The caller
// owns the returned Mat.
func Binarize(gray gocv.Mat, threshold int) (gocv.Mat, error) {
	if threshold < 0 || threshold > 255 {
		return gocv.Mat{}, fmt.Errorf("%w: %d", ErrInvalidThreshold, threshold)
	}

	mask := gocv.NewMat()
	gocv.Threshold(gray, &mask, float32(threshold), 255, gocv.ThresholdBinary)
	return mask, nil
}
