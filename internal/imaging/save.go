package imaging

import (
	"fmt"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
)

// Save writes a Mat to disk, creating parent directories as needed. The
// output format follows the file extension.
func Save(path string, img gocv.Mat) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if ok := gocv.IMWrite(path, img); !ok {
		return fmt.Errorf("failed to write image %s", path)
	}
	return nil
}
