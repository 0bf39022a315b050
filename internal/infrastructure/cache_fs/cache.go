package cache_fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/davarch/remote-trigger/internal/domain"
)

// FSCache writes the latest trigger outcome as a JSON status file for status
// bars and scripts.
type FSCache struct {
	path string
}

func New(path string) *FSCache { return &FSCache{path: path} }

type status struct {
	ID          string `json:"id"`
	Server      string `json:"server"`
	Job         string `json:"job"`
	BuildNumber int    `json:"build_number"`
	Status      string `json:"status"`
	URL         string `json:"url,omitempty"`
	Error       string `json:"error,omitempty"`
	Retrieved   int64  `json:"retrieved"`
}

func (c *FSCache) Write(_ context.Context, s domain.Snapshot) error {
	if c.path == "" {
		return errors.New("status file path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}

	tmp := c.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	out := status{
		ID:          s.Outcome.ID,
		Server:      s.Outcome.Server,
		Job:         s.Outcome.Job,
		BuildNumber: s.Outcome.BuildNumber,
		Status:      string(s.Outcome.Status),
		URL:         s.Outcome.BuildURL,
		Retrieved:   s.Retrieved,
	}
	if s.Outcome.Err != nil {
		out.Error = s.Outcome.Err.Error()
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}
