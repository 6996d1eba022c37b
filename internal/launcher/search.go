package launcher

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"inferd/internal/common/fsutil"
)

// DefaultSearchRoots are the directories inspected when the backend executable
// is missing under the strict policy.
var DefaultSearchRoots = []string{"/usr/local/bin", "/usr/bin", "/opt", "/app", "/llama.cpp"}

// DefaultSearchDepth bounds how deep below each root the search descends.
const DefaultSearchDepth = 4

// SearchAlternatives lists executables under roots whose name mentions llama
// or server. Unreadable or missing directories are skipped. The result is
// diagnostic only.
func SearchAlternatives(roots []string, maxDepth int) []string {
	if maxDepth <= 0 {
		maxDepth = DefaultSearchDepth
	}
	seen := map[string]struct{}{}
	for _, root := range roots {
		root = filepath.Clean(root)
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() && path != root {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if depth(root, path) >= maxDepth {
					return fs.SkipDir
				}
				return nil
			}
			name := strings.ToLower(d.Name())
			if !strings.Contains(name, "llama") && !strings.Contains(name, "server") {
				return nil
			}
			if fsutil.IsExecutable(path) {
				seen[path] = struct{}{}
			}
			return nil
		})
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
