package application

import (
	"errors"
	"reflect"
	"testing"

	"github.com/davarch/remote-trigger/internal/domain"
	"go.uber.org/zap"
)

func TestNormalizeParameters(t *testing.T) {
	raw := SplitLines("foo=bar\n\n   \n# comment\nbranch=$BRANCH\r\n  spaced=yes")
	exp := &domain.MockExpander{Values: map[string]string{"$BRANCH": "main"}}

	got := NormalizeParameters(raw, exp, zap.NewNop())
	want := []string{"foo=bar", "branch=main", "  spaced=yes"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNormalizeParameters_ExpansionFailureKeepsLine(t *testing.T) {
	exp := &domain.MockExpander{
		Values: map[string]string{"$A": "1"},
		Fail:   map[string]bool{"b=${B": true},
		Err:    errors.New("unterminated"),
	}

	got := NormalizeParameters([]string{"a=$A", "b=${B"}, exp, zap.NewNop())
	want := []string{"a=1", "b=${B"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNormalizeParameters_Idempotent(t *testing.T) {
	once := NormalizeParameters(SplitLines("x=1\n#c\n\ny=2"), nil, zap.NewNop())
	twice := NormalizeParameters(once, nil, zap.NewNop())
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second pass changed %q to %q", once, twice)
	}
}

func TestSplitLines_Empty(t *testing.T) {
	if got := SplitLines(""); got != nil {
		t.Errorf("expected nil, got %q", got)
	}
}
