package cli

import (
	"fmt"
	"time"

	"github.com/davarch/remote-trigger/internal/application"
	"github.com/davarch/remote-trigger/internal/domain"
	"github.com/davarch/remote-trigger/internal/infrastructure/audit_sqlite"
	"github.com/davarch/remote-trigger/internal/infrastructure/cache_fs"
	"github.com/davarch/remote-trigger/internal/infrastructure/config"
	"github.com/davarch/remote-trigger/internal/infrastructure/envfile"
	"github.com/davarch/remote-trigger/internal/infrastructure/expand"
	"github.com/davarch/remote-trigger/internal/infrastructure/jenkins_http"
	"github.com/davarch/remote-trigger/internal/infrastructure/notify_libnotify"
	"github.com/davarch/remote-trigger/internal/infrastructure/paramfile"
	"github.com/davarch/remote-trigger/internal/infrastructure/secrets"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// triggerFlags are shared by trigger and watch.
type triggerFlags struct {
	server       string
	job          string
	token        string
	params       []string
	paramsText   string
	paramFile    string
	workspace    string
	preventQueue bool
	block        bool
	pollInterval int
	retryLimit   int
	overrideAuth bool
	user         string
	password     string
	softFail     bool
	envFile      string
	statusFile   string
	notify       bool
}

func (f *triggerFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.server, "server", "", "configured remote server name")
	fs.StringVar(&f.job, "job", "", "remote job name (may reference $VARS)")
	fs.StringVar(&f.token, "token", "", "remote job authentication token")
	fs.StringArrayVar(&f.params, "param", nil, "build parameter key=value (repeatable)")
	fs.StringVar(&f.paramsText, "params", "", "multi-line build parameters, one key=value per line")
	fs.StringVar(&f.paramFile, "param-file", "", "read parameters from a workspace file or glob instead")
	fs.StringVar(&f.workspace, "workspace", "", "directory parameter file paths are relative to (default from config)")
	fs.BoolVar(&f.preventQueue, "prevent-queue", false, "wait until the remote job is idle before triggering")
	fs.BoolVar(&f.block, "block", false, "block until the remote build completes")
	fs.IntVar(&f.pollInterval, "poll-interval", 0, "seconds between status queries (default from config)")
	fs.IntVar(&f.retryLimit, "retry-limit", 0, "attempts per remote call (default from config)")
	fs.BoolVar(&f.overrideAuth, "override-auth", false, "use --user/--password instead of the server credentials")
	fs.StringVar(&f.user, "user", "", "override username")
	fs.StringVar(&f.password, "password", "", "override password or API token")
	fs.BoolVar(&f.softFail, "soft-fail", false, "log failures without failing (exit 0)")
	fs.StringVar(&f.envFile, "env-file", "", "dotenv file holding the build environment (default from config)")
	fs.StringVar(&f.statusFile, "status-file", "", "write the latest outcome as JSON to this file")
	fs.BoolVar(&f.notify, "notify", false, "send a desktop notification when the build finishes")

	_ = cmd.MarkFlagRequired("server")
	_ = cmd.MarkFlagRequired("job")
	_ = cmd.RegisterFlagCompletionFunc("server", completeServers)
	cmd.MarkFlagsMutuallyExclusive("param-file", "param")
	cmd.MarkFlagsMutuallyExclusive("param-file", "params")
}

func (f *triggerFlags) request(cmd *cobra.Command, cfg config.Config) (domain.TriggerRequest, error) {
	req := domain.TriggerRequest{
		RemoteServer:            f.server,
		Job:                     f.job,
		Token:                   f.token,
		Parameters:              append(append([]string{}, f.params...), application.SplitLines(f.paramsText)...),
		LoadParamsFromFile:      f.paramFile != "",
		ParameterFile:           f.paramFile,
		PreventRemoteBuildQueue: f.preventQueue,
		BlockUntilComplete:      f.block,
		PollInterval:            cfg.Defaults.PollInterval,
		RetryLimit:              cfg.Defaults.RetryLimit,
		OverrideAuth:            f.overrideAuth,
		Auth:                    domain.Credential{Username: f.user, Password: f.password},
		ShouldNotFailBuild:      cfg.Defaults.ShouldNotFailBuild,
	}

	if cmd.Flags().Changed("poll-interval") {
		if f.pollInterval <= 0 {
			return req, fmt.Errorf("--poll-interval must be > 0")
		}
		req.PollInterval = time.Duration(f.pollInterval) * time.Second
	}
	if cmd.Flags().Changed("retry-limit") {
		if f.retryLimit < 0 {
			return req, fmt.Errorf("--retry-limit must be >= 0")
		}
		req.RetryLimit = f.retryLimit
	}
	if cmd.Flags().Changed("soft-fail") {
		req.ShouldNotFailBuild = f.softFail
	}
	return req, nil
}

func (f *triggerFlags) envPath(cfg config.Config) string {
	if f.envFile != "" {
		return f.envFile
	}
	return cfg.EnvFile
}

// app is one wired trigger session.
type app struct {
	log     *zap.Logger
	cfg     config.Config
	session *application.Session
	params  *paramfile.Loader
	closers []func() error
}

func newApp(cmd *cobra.Command, f *triggerFlags) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	req, err := f.request(cmd, cfg)
	if err != nil {
		return nil, err
	}

	var ring config.SecretSource
	if config.NeedsSecrets(cfg.Servers) {
		ring = secrets.New(cfg.Keyring.Dir)
	}
	registry, err := config.NewRegistry(cfg.Servers, ring)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	workspace := cfg.Workspace
	if f.workspace != "" {
		workspace = f.workspace
	}
	a := &app{log: log, cfg: cfg, params: paramfile.New(workspace)}

	var opts []application.Option
	if cfg.Audit.Path != "" {
		store, err := audit_sqlite.Open(cfg.Audit.Path)
		if err != nil {
			log.Warn("audit store unavailable, history will not be recorded", zap.Error(err))
		} else {
			a.closers = append(a.closers, store.Close)
			opts = append(opts, application.WithAuditLog(store))
		}
	}
	if f.statusFile != "" {
		opts = append(opts, application.WithStatusCache(cache_fs.New(f.statusFile)))
	}
	if f.notify {
		opts = append(opts, application.WithNotifier(notify_libnotify.NewSoft(notify_libnotify.Options{})))
	}

	orch := application.NewOrchestrator(log, registry, jenkins_http.Factory(log, cfg.Defaults.ConnectTimeout), a.params, opts...)
	env := envfile.New(f.envPath(cfg))
	if env.Path() != "" {
		log.Debug("build environment file", zap.String("path", env.Path()))
	}
	a.session = application.NewSession(log, orch, env, expand.Factory, req, cfg.PauseFile)
	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}
