package notify_libnotify

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestNotify_Args(t *testing.T) {
	var got []string
	n := New(Options{Urgency: "critical", Expire: 2 * time.Second})
	n.run = func(_ context.Context, name string, args ...string) error {
		got = append([]string{name}, args...)
		return nil
	}

	if err := n.Notify(context.Background(), "title", "Deploy #3", "https://ci/job/Deploy/3/"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"notify-send", "--app-name=remote-trigger", "--urgency=critical", "--expire-time=2000",
		"title", "Deploy #3\nhttps://ci/job/Deploy/3/",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNotify_SoftSwallowsErrors(t *testing.T) {
	fail := func(context.Context, string, ...string) error { return errors.New("no display") }

	hard := New(Options{})
	hard.run = fail
	if err := hard.Notify(context.Background(), "t", "b", ""); err == nil {
		t.Error("expected error")
	}

	soft := NewSoft(Options{})
	soft.run = fail
	if err := soft.Notify(context.Background(), "t", "b", ""); err != nil {
		t.Errorf("soft notifier returned %v", err)
	}
}
