package tail

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
)

// DefaultPattern matches new Teams log names such as
// MSTeams_2024-02-07_10-15-01.23.log. The embedded timestamp sorts
// lexicographically.
var DefaultPattern = regexp.MustCompile(`^MSTeams_\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}\.\d+\.log$`)

// Locator resolves the path of the file to tail. It is called on every poll
// so a new file in a log folder is picked up as a rotation.
type Locator func() (string, error)

// FixedPath always tails path.
func FixedPath(path string) Locator {
	return func() (string, error) {
		return path, nil
	}
}

// LatestIn tails the lexicographically greatest file in dir whose name
// matches pattern.
func LatestIn(dir string, pattern *regexp.Regexp) Locator {
	if pattern == nil {
		pattern = DefaultPattern
	}
	return func() (string, error) {
		return Latest(dir, pattern)
	}
}

// Latest returns the path of the greatest matching file name in dir.
func Latest(dir string, pattern *regexp.Regexp) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read log folder: %w", err)
	}

	latest := ""
	for _, e := range entries {
		if e.IsDir() || !pattern.MatchString(e.Name()) {
			continue
		}
		if e.Name() > latest {
			latest = e.Name()
		}
	}
	if latest == "" {
		return "", fmt.Errorf("no file matching %s in %s: %w", pattern, dir, fs.ErrNotExist)
	}
	return filepath.Join(dir, latest), nil
}
