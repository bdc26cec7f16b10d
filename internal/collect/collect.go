// Package collect inspects scan artifacts after a run, discards the empty
// ones and reports whatever is left to the operator.
package collect

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fatih/color"
)

// EmptyThreshold is the artifact size, in bytes, below which a scan is
// considered to have found nothing. Scanners emit a small fixed preamble
// even on clean repositories, which is what the threshold absorbs.
const EmptyThreshold = 1024

// Artifact is one retained scan result file.
type Artifact struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Result partitions a run's artifacts.
type Result struct {
	Kept        []Artifact
	Discarded   int
	CleanupErrs []error
}

// Found reports whether any artifact survived the threshold.
func (r *Result) Found() bool { return len(r.Kept) > 0 }

// Collect enumerates *.json artifacts under outputPath, deletes those under
// EmptyThreshold and returns the rest sorted by name. A failed deletion is
// recorded in CleanupErrs and does not stop the pass.
func Collect(outputPath string) (*Result, error) {
	matches, err := filepath.Glob(filepath.Join(outputPath, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("enumerating artifacts: %w", err)
	}
	res := &Result{}
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			res.CleanupErrs = append(res.CleanupErrs, fmt.Errorf("stat %s: %w", path, err))
			continue
		}
		if info.Size() < EmptyThreshold {
			if err := os.Remove(path); err != nil {
				res.CleanupErrs = append(res.CleanupErrs, fmt.Errorf("remove %s: %w", path, err))
			}
			res.Discarded++
			continue
		}
		res.Kept = append(res.Kept, Artifact{
			Name:    info.Name(),
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(res.Kept, func(i, j int) bool { return res.Kept[i].Name < res.Kept[j].Name })
	return res, nil
}

// Report writes the operator-facing summary.
func (r *Result) Report(w io.Writer) {
	for _, err := range r.CleanupErrs {
		fmt.Fprintf(w, "cleanup: %v\n", err)
	}
	if !r.Found() {
		color.New(color.FgGreen).Fprintln(w, "found no secrets")
		return
	}
	color.New(color.FgRed, color.Bold).Fprintf(w, "found possible secrets in %d files\n", len(r.Kept))
	for _, a := range r.Kept {
		fmt.Fprintf(w, "  %-40s %8d bytes  %s\n", a.Name, a.Size, a.ModTime.Format(time.RFC3339))
	}
}
