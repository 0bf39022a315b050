package notify_libnotify

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

type Notifier struct {
	soft bool
	opt  Options
	run  func(ctx context.Context, name string, args ...string) error
}

type Options struct {
	Urgency string
	Expire  time.Duration
}

func New(opt Options) *Notifier { return &Notifier{opt: opt, run: execRun} }

// NewSoft ignores notify-send failures, e.g. on headless CI agents.
func NewSoft(opt Options) *Notifier { return &Notifier{soft: true, opt: opt, run: execRun} }

func (n *Notifier) Notify(ctx context.Context, title, body, url string) error {
	if strings.TrimSpace(url) != "" {
		if body == "" {
			body = url
		} else {
			body = body + "\n" + url
		}
	}

	if err := n.run(ctx, "notify-send", n.args(title, body)...); err != nil {
		if n.soft {
			return nil
		}
		return err
	}
	return nil
}

func (n *Notifier) args(title, body string) []string {
	args := []string{"--app-name=remote-trigger"}
	if n.opt.Urgency != "" {
		args = append(args, "--urgency="+n.opt.Urgency)
	}
	if n.opt.Expire > 0 {
		args = append(args, "--expire-time="+strconv.Itoa(int(n.opt.Expire/time.Millisecond)))
	}
	return append(args, title, body)
}

func execRun(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}
