package paramfile

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Loader reads parameter files from a workspace directory. The path may be a
// doublestar pattern; matching files are read in lexical order.
type Loader struct {
	workspace string
}

func New(workspace string) *Loader {
	if workspace == "" {
		workspace = "."
	}
	return &Loader{workspace: workspace}
}

// Resolve returns the workspace-relative pattern as a filesystem pattern.
func (l *Loader) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.workspace, path)
}

func (l *Loader) Load(ctx context.Context, path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("parameter file path is empty")
	}

	pattern := l.Resolve(path)
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no parameter file matches %q", pattern)
	}
	sort.Strings(matches)

	var lines []string
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := readLines(m)
		if err != nil {
			return nil, err
		}
		lines = append(lines, got...)
	}
	return lines, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}
