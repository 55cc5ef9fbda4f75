package ripping

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

var titleIndexPattern = regexp.MustCompile(`(?i)(?:_t|^title_t|^title)(\d+)\.mkv$`)

// TitleFileName is the normalized output name for a title index.
func TitleFileName(index int) string {
	return fmt.Sprintf("title%02d.mkv", index)
}

// titleIndexFromName extracts the title index MakeMKV encodes in its output
// names (Label_t03.mkv, title_t03.mkv, title03.mkv). It returns -1 when the
// name carries no index.
func titleIndexFromName(path string) int {
	m := titleIndexPattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}

// titleTracker owns the TitleResult list for a run. Paths are keyed by the
// name MakeMKV wrote so a title reported twice (closed, then failed) updates
// one entry.
type titleTracker struct {
	byPath  map[string]int
	results []TitleResult
	failed  map[string]string
	used    map[int]struct{}
	next    int
}

func newTitleTracker() *titleTracker {
	return &titleTracker{
		byPath: make(map[string]int),
		failed: make(map[string]string),
		used:   make(map[int]struct{}),
	}
}

// known reports whether path was already recorded, under its original or
// normalized name.
func (t *titleTracker) known(path string) bool {
	_, ok := t.byPath[path]
	return ok
}

// assignIndex picks the title index for path, preferring the number in the
// file name and falling back to the next unused index.
func (t *titleTracker) assignIndex(path string, hint int) int {
	idx := hint
	if idx < 0 {
		idx = titleIndexFromName(path)
	}
	if _, taken := t.used[idx]; idx < 0 || taken {
		for {
			if _, taken := t.used[t.next]; !taken {
				break
			}
			t.next++
		}
		idx = t.next
	}
	t.used[idx] = struct{}{}
	return idx
}

// markFailed records a MakeMKV title failure. It returns the index of an
// already-recorded title it downgraded, or -1.
func (t *titleTracker) markFailed(path, message string) int {
	if path == "" {
		return -1
	}
	t.failed[path] = message
	if i, ok := t.byPath[path]; ok {
		t.results[i].Success = false
		t.results[i].Message = message
		return t.results[i].Index
	}
	return -1
}

func (t *titleTracker) isFailed(path string) (string, bool) {
	msg, ok := t.failed[path]
	return msg, ok
}

// add records a title. aliases are additional paths that refer to it.
func (t *titleTracker) add(result TitleResult, aliases ...string) {
	t.results = append(t.results, result)
	i := len(t.results) - 1
	t.byPath[result.Path] = i
	for _, a := range aliases {
		t.byPath[a] = i
	}
}

// unreported returns failures for paths that never produced a closed file.
func (t *titleTracker) unreported() []string {
	var paths []string
	for path := range t.failed {
		if !t.known(path) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}

func (t *titleTracker) snapshot() []TitleResult {
	return append([]TitleResult(nil), t.results...)
}
