package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"section-aligner/internal/align"
)

// DiscoverPairs walks the reference directory and pairs each regular file
// with the same-named file in the target directory. Files without a
// counterpart are returned in missing; they are reported and skipped, never
// fatal. Pairs come back sorted by name so runs are reproducible.
func DiscoverPairs(referenceDir, targetDir string) (pairs []align.Pair, missing []string, err error) {
	entries, err := os.ReadDir(referenceDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read reference directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		targetPath := filepath.Join(targetDir, name)
		info, statErr := os.Stat(targetPath)
		if statErr != nil || info.IsDir() {
			missing = append(missing, name)
			continue
		}

		pairs = append(pairs, align.Pair{
			Name:          name,
			ReferencePath: filepath.Join(referenceDir, name),
			TargetPath:    targetPath,
		})
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Name < pairs[j].Name })
	sort.Strings(missing)
	return pairs, missing, nil
}
