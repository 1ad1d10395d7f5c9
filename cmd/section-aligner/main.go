// Command section-aligner aligns paired cross-section scans by thresholded
// binarization and rigid registration.
package main

import (
	"os"

	"section-aligner/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
