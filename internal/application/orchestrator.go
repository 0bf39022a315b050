package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/davarch/remote-trigger/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Orchestrator runs one trigger step end to end.
type Orchestrator struct {
	log      *zap.Logger
	registry domain.ServerRegistry
	newExec  domain.ExecutorFactory
	params   domain.ParamFileLoader

	note  domain.Notifier
	cache domain.StatusCache
	audit domain.AuditLog

	now func() time.Time
}

type Option func(*Orchestrator)

func WithNotifier(n domain.Notifier) Option { return func(o *Orchestrator) { o.note = n } }

func WithStatusCache(c domain.StatusCache) Option { return func(o *Orchestrator) { o.cache = c } }

func WithAuditLog(a domain.AuditLog) Option { return func(o *Orchestrator) { o.audit = a } }

func NewOrchestrator(log *zap.Logger, registry domain.ServerRegistry, newExec domain.ExecutorFactory, params domain.ParamFileLoader, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		log:      log,
		registry: registry,
		newExec:  newExec,
		params:   params,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run triggers req. prior is the invoking build's environment; exp expands
// tokens against it. The returned error is non-nil only for hard failures.
func (o *Orchestrator) Run(ctx context.Context, req domain.TriggerRequest, prior domain.Variables, exp domain.Expander) (domain.Outcome, error) {
	out := domain.Outcome{
		ID:      uuid.NewString(),
		Server:  req.RemoteServer,
		Job:     strings.TrimSpace(req.Job),
		Status:  domain.StatusUnknown,
		Started: o.now(),
	}

	err := o.run(ctx, req, prior, exp, &out)
	out.Finished = o.now()
	out.Err = err
	o.publish(ctx, out)

	policy := FailurePolicy{ShouldNotFailBuild: req.ShouldNotFailBuild}
	return out, policy.Escalate(o.log, err)
}

func (o *Orchestrator) run(ctx context.Context, req domain.TriggerRequest, prior domain.Variables, exp domain.Expander, out *domain.Outcome) error {
	server, ok := o.registry.Lookup(req.RemoteServer)
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrNoServer, req.RemoteServer)
	}

	raw := req.Parameters
	if req.LoadParamsFromFile {
		if o.params == nil {
			return fmt.Errorf("%w: no loader configured", domain.ErrParamFile)
		}
		lines, err := o.params.Load(ctx, req.ParameterFile)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrParamFile, err)
		}
		raw = lines
	}
	params := NormalizeParameters(raw, exp, o.log)

	job := strings.TrimSpace(expandOrKeep(exp, o.log, strings.TrimSpace(req.Job)))
	if job == "" {
		return fmt.Errorf("%w: job name is required", domain.ErrInvalidInput)
	}
	out.Job = job
	token := strings.TrimSpace(expandOrKeep(exp, o.log, strings.TrimSpace(req.Token)))

	cred := ResolveCredential(req.OverrideAuth, req.Auth, server.Auth, exp, o.log)
	if req.OverrideAuth {
		o.log.Info("using job-level defined credentials in place of those from remote server config",
			zap.String("server", server.Name),
		)
	}

	exec := o.newExec(cred, req.RetryLimit)
	poller := NewPoller(exec, o.log, req.PollInterval)
	jobURL := NewJobURL(server, job, token)
	triggerURL := TriggerURL(server, job, token, params)

	log := o.log.With(zap.String("server", server.Name), zap.String("job", job))
	log.Info("triggering this remote job", zap.String("url", jobURL.Root()), zap.Int("parameters", len(params)))
	for _, p := range params {
		log.Debug("parameter", zap.String("value", p))
	}

	if req.PreventRemoteBuildQueue {
		log.Info("checking that the remote job is not currently building")
		if err := poller.WaitForIdle(ctx, jobURL); err != nil {
			return err
		}
		log.Info("remote job is not currently building")
	} else {
		log.Info("not checking if the remote job is building")
	}

	number, err := poller.NextBuildNumber(ctx, jobURL)
	if err != nil {
		return err
	}
	out.BuildNumber = number
	out.BuildURL = jobURL.BuildPage(number)
	log.Info("this job is build #" + strconv.Itoa(number) + " on the remote server")

	log.Info("triggering remote job now")
	if err := poller.Trigger(ctx, triggerURL); err != nil {
		return err
	}

	var remoteErr error
	if req.BlockUntilComplete {
		log.Info("blocking local job until remote job completes")
		status, err := poller.WaitForCompletion(ctx, jobURL, number)
		out.Status = status
		if err != nil {
			return err
		}
		log.Info("remote build finished", zap.String("status", string(status)))
		if status != domain.StatusSuccess {
			remoteErr = fmt.Errorf("%w: status %s", domain.ErrRemoteFailed, status)
		}
	} else {
		log.Info("not blocking local job until remote job completes, fire and forget")
	}

	vars, err := ComposeVariables(prior, job, number, out.Status)
	if err != nil {
		return errors.Join(err, remoteErr)
	}
	out.Variables = vars

	return remoteErr
}

func (o *Orchestrator) publish(ctx context.Context, out domain.Outcome) {
	if o.audit != nil {
		if err := o.audit.Record(ctx, out); err != nil {
			o.log.Warn("audit record failed", zap.Error(err))
		}
	}

	if o.cache != nil {
		if err := o.cache.Write(ctx, domain.Snapshot{Outcome: out, Retrieved: o.now().Unix()}); err != nil {
			o.log.Warn("status file write failed", zap.Error(err))
		}
	}

	if o.note != nil && (out.Status.Terminal() || out.Failed()) {
		body := out.Job + " #" + strconv.Itoa(out.BuildNumber) + " (" + out.Server + ")"
		if out.Failed() {
			body += "\n" + out.Err.Error()
		}
		if err := o.note.Notify(ctx, titleFor(out), body, out.BuildURL); err != nil {
			o.log.Warn("notify failed", zap.Error(err))
		}
	}
}

func titleFor(out domain.Outcome) string {
	switch {
	case out.Status == domain.StatusSuccess:
		return "✅ remote build: success"
	case out.Status == "FAILURE":
		return "❌ remote build: failed"
	case out.Status == "ABORTED":
		return "⛔ remote build: aborted"
	case out.Failed():
		return "⚠️ remote trigger: error"
	default:
		return "ℹ️ remote build: " + string(out.Status)
	}
}
