package paramfile

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_RelativeToWorkspace(t *testing.T) {
	ws := t.TempDir()
	write(t, filepath.Join(ws, "params.txt"), "a=1\n# comment\n\nb=2\n")

	lines, err := New(ws).Load(context.Background(), "params.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"a=1", "# comment", "", "b=2"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("got %q, want %q", lines, want)
	}
}

func TestLoad_GlobInLexicalOrder(t *testing.T) {
	ws := t.TempDir()
	write(t, filepath.Join(ws, "conf", "b", "x.params"), "second=2\n")
	write(t, filepath.Join(ws, "conf", "a", "x.params"), "first=1\n")
	write(t, filepath.Join(ws, "conf", "a", "ignored.txt"), "nope=0\n")

	lines, err := New(ws).Load(context.Background(), "conf/**/*.params")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"first=1", "second=2"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("got %q, want %q", lines, want)
	}
}

func TestLoad_NoMatch(t *testing.T) {
	if _, err := New(t.TempDir()).Load(context.Background(), "missing.txt"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
