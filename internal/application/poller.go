package application

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/davarch/remote-trigger/internal/domain"
	"go.uber.org/zap"
)

// Poller drives the queue pre-check and the completion wait against one
// remote job. Neither loop has a deadline; only ctx cancellation stops them.
type Poller struct {
	exec  domain.RemoteExecutor
	log   *zap.Logger
	every time.Duration
}

func NewPoller(exec domain.RemoteExecutor, log *zap.Logger, every time.Duration) *Poller {
	return &Poller{exec: exec, log: log, every: every}
}

// ClassifyStatus maps one build document onto a BuildStatus.
func ClassifyStatus(info *domain.BuildInfo) domain.BuildStatus {
	switch {
	case info == nil:
		return domain.StatusNotStarted
	case hasResult(info):
		return domain.BuildStatus(*info.Result)
	case info.Building:
		return domain.StatusRunning
	default:
		return domain.StatusNotStarted
	}
}

func hasResult(info *domain.BuildInfo) bool {
	return info.Result != nil && *info.Result != ""
}

// WaitForIdle blocks until the job's last build is finished, so that the
// trigger does not stack a second build on the remote queue.
func (p *Poller) WaitForIdle(ctx context.Context, job JobURL) error {
	for {
		info, err := p.fetchBuild(ctx, job.LastBuild())
		if err != nil {
			return err
		}
		if info == nil {
			return fmt.Errorf("%w, cannot determine remote queue state", domain.ErrEmptyResponse)
		}
		if !info.Building && hasResult(info) {
			return nil
		}

		p.log.Info("remote build is currently running, waiting for it to finish",
			zap.Duration("next_poll", p.every),
		)
		if err := p.sleep(ctx); err != nil {
			return err
		}
	}
}

// NextBuildNumber reads the number the remote server will give the next
// build. Another caller triggering concurrently can make this stale.
func (p *Poller) NextBuildNumber(ctx context.Context, job JobURL) (int, error) {
	payload, err := p.exec.Send(ctx, http.MethodGet, job.Info())
	if err != nil {
		return 0, err
	}
	if payload == nil {
		return 0, fmt.Errorf("%w, cannot read next build number", domain.ErrEmptyResponse)
	}

	var info domain.JobInfo
	if err := payload.Decode(&info); err != nil {
		return 0, err
	}
	if info.NextBuildNumber == nil {
		return 0, fmt.Errorf("%w: nextBuildNumber missing", domain.ErrParse)
	}
	return *info.NextBuildNumber, nil
}

// Trigger queues the build. An empty answer is normal for this endpoint.
func (p *Poller) Trigger(ctx context.Context, triggerURL string) error {
	_, err := p.exec.Send(ctx, http.MethodPost, triggerURL)
	return err
}

// WaitForCompletion polls build number until it reports a result.
func (p *Poller) WaitForCompletion(ctx context.Context, job JobURL, number int) (domain.BuildStatus, error) {
	target := job.Build(number)

	status, err := p.poll(ctx, target, domain.StatusNotStarted)
	if err != nil {
		return status, err
	}

	for status == domain.StatusNotStarted {
		p.log.Info("waiting for remote build to start", zap.Duration("next_poll", p.every))
		if err := p.sleep(ctx); err != nil {
			return status, err
		}
		if status, err = p.poll(ctx, target, status); err != nil {
			return status, err
		}
	}

	p.log.Info("remote build started", zap.Int("build", number))
	for status == domain.StatusRunning {
		p.log.Info("waiting for remote build to finish", zap.Duration("next_poll", p.every))
		if err := p.sleep(ctx); err != nil {
			return status, err
		}
		if status, err = p.poll(ctx, target, status); err != nil {
			return status, err
		}
	}

	return status, nil
}

// poll fetches and classifies one reading, never moving back from prev.
func (p *Poller) poll(ctx context.Context, url string, prev domain.BuildStatus) (domain.BuildStatus, error) {
	info, err := p.fetchBuild(ctx, url)
	if err != nil {
		return prev, err
	}
	next := ClassifyStatus(info)
	if prev == domain.StatusRunning && next == domain.StatusNotStarted {
		return prev, nil
	}
	return next, nil
}

func (p *Poller) fetchBuild(ctx context.Context, url string) (*domain.BuildInfo, error) {
	payload, err := p.exec.Send(ctx, http.MethodGet, url)
	if err != nil || payload == nil {
		return nil, err
	}
	var info domain.BuildInfo
	if err := payload.Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (p *Poller) sleep(ctx context.Context) error {
	t := time.NewTimer(p.every)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", domain.ErrInterrupted, ctx.Err())
	}
}
