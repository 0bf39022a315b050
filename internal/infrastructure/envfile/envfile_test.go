package envfile

import (
	"path/filepath"
	"testing"

	"github.com/davarch/remote-trigger/internal/domain"
)

func newStore(path string, environ ...string) *Store {
	s := New(path)
	s.environ = func() []string { return environ }
	return s
}

func TestStore_MergeThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "trigger.env")
	s := newStore(path, "HOME=/home/ci", "BUILD_NUMBER=7")

	if err := s.Merge(domain.Variables{"TRIGGERED_JOB_NAMES": "Deploy"}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := s.Merge(domain.Variables{"TRIGGERED_JOB_NAMES": "Deploy,Test", "BUILD_NUMBER": "9"}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	vars, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if vars["HOME"] != "/home/ci" {
		t.Errorf("process environment missing, got %q", vars["HOME"])
	}
	if vars["TRIGGERED_JOB_NAMES"] != "Deploy,Test" {
		t.Errorf("expected latest value, got %q", vars["TRIGGERED_JOB_NAMES"])
	}
	if vars["BUILD_NUMBER"] != "9" {
		t.Errorf("file should override process environment, got %q", vars["BUILD_NUMBER"])
	}
}

func TestStore_MissingFile(t *testing.T) {
	s := newStore(filepath.Join(t.TempDir(), "absent.env"), "A=1")

	vars, err := s.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vars) != 1 || vars["A"] != "1" {
		t.Errorf("unexpected vars %v", vars)
	}
}

func TestStore_NoPathIsNoop(t *testing.T) {
	s := newStore("")
	if err := s.Merge(domain.Variables{"X": "1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vars, err := s.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vars) != 0 {
		t.Errorf("expected empty environment, got %v", vars)
	}
}

func TestStore_MergeKeepsValuesVerbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trigger.env")
	s := newStore(path, "HOME=/root")

	want := domain.Variables{
		"LAST_TRIGGERED_JOB_NAME": "deploy-$HOME-x",
		"N":                       "007",
		"Q":                       "it's",
		"PATHY":                   `C:\builds\x`,
	}
	if err := s.Merge(want); err != nil {
		t.Fatalf("merge: %v", err)
	}

	vars, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for k, v := range want {
		if vars[k] != v {
			t.Errorf("%s: expected %q, got %q", k, v, vars[k])
		}
	}
}

func TestStore_MergeRejectsUnrepresentableValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trigger.env")
	s := newStore(path)

	if err := s.Merge(domain.Variables{"A": "1"}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	for _, v := range []string{"two\nlines", "cr\r", `trailing\`} {
		if err := s.Merge(domain.Variables{"B": v}); err == nil {
			t.Errorf("expected error for %q", v)
		}
	}

	vars, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if vars["A"] != "1" || vars["B"] != "" {
		t.Errorf("rejected merge must leave the file untouched, got %v", vars)
	}
}
