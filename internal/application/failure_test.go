package application

import (
	"errors"
	"testing"

	"github.com/davarch/remote-trigger/internal/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFailurePolicy(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	if err := (FailurePolicy{}).Escalate(log, nil); err != nil {
		t.Errorf("nil error escalated to %v", err)
	}

	cause := errors.Join(domain.ErrTransport, errors.New("dial tcp: refused"))
	if err := (FailurePolicy{}).Escalate(log, cause); !errors.Is(err, domain.ErrTransport) {
		t.Errorf("hard policy returned %v", err)
	}
	if err := (FailurePolicy{ShouldNotFailBuild: true}).Escalate(log, cause); err != nil {
		t.Errorf("soft policy returned %v", err)
	}

	if logs.Len() != 2 {
		t.Fatalf("expected 2 log entries, got %d", logs.Len())
	}
	if got := logs.All()[1].Message; got != "remote build failed for the following reason, but the build will continue" {
		t.Errorf("unexpected soft message %q", got)
	}
}
