package envfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/davarch/remote-trigger/internal/domain"
	"github.com/subosito/gotenv"
)

// Store is the build environment: the process environment overlaid with a
// dotenv file that trigger steps append to.
type Store struct {
	path    string
	environ func() []string

	mu sync.Mutex
}

func New(path string) *Store {
	return &Store{path: path, environ: os.Environ}
}

func (s *Store) Path() string { return s.path }

func (s *Store) Load() (domain.Variables, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vars := make(domain.Variables)
	for _, kv := range s.environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			vars[k] = v
		}
	}

	file, err := s.readFile()
	if err != nil {
		return nil, err
	}
	vars.Merge(file)
	return vars, nil
}

// Merge writes vars over the file's existing entries. Without a path it is a
// no-op.
func (s *Store) Merge(vars domain.Variables) error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readFile()
	if err != nil {
		return err
	}
	file.Merge(vars)

	content, err := Marshal(file)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Marshal renders vars sorted by name with every value single-quoted, which
// gotenv.Read returns verbatim: no variable expansion, no numeric rewriting.
// Values that cannot survive a single-quoted line are rejected.
func Marshal(vars domain.Variables) (string, error) {
	var b strings.Builder
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		v := vars[k]
		if strings.ContainsAny(v, "\r\n") {
			return "", fmt.Errorf("%s: value contains a line break", k)
		}
		if strings.HasSuffix(v, `\`) {
			return "", fmt.Errorf("%s: value ends with a backslash", k)
		}
		b.WriteString(k)
		b.WriteString("='")
		b.WriteString(v)
		b.WriteString("'\n")
	}
	return b.String(), nil
}

func (s *Store) readFile() (domain.Variables, error) {
	vars := make(domain.Variables)
	if s.path == "" {
		return vars, nil
	}

	env, err := gotenv.Read(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return vars, nil
		}
		return nil, err
	}
	for k, v := range env {
		vars[k] = v
	}
	return vars, nil
}
