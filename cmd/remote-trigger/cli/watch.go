package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/davarch/remote-trigger/internal/infrastructure/config"
	"github.com/fsnotify/fsnotify"
	"github.com/oklog/run"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const debounce = 300 * time.Millisecond

var (
	watchOpts triggerFlags
	watchFile string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Trigger the remote job now and again whenever the watched file changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, &watchOpts)
		if err != nil {
			return err
		}
		defer a.Close()

		target := watchFile
		if target == "" {
			target = watchOpts.paramFile
		}
		if target == "" {
			return errors.New("nothing to watch: set --watch-file or --param-file")
		}
		pattern := a.params.Resolve(target)

		changes := make(chan struct{}, 1)
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		var g run.Group

		g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

		{
			w := newGlobWatcher(a.log, pattern, func() {
				select {
				case changes <- struct{}{}:
				default:
				}
			})
			wctx, wcancel := context.WithCancel(ctx)
			g.Add(func() error { return w.Run(wctx) }, func(error) { wcancel() })
		}

		if cfgPath != "" {
			abs, _ := filepath.Abs(cfgPath)
			w := newFileWatcher(a.log, abs, func() {
				reloadRequest(cmd, a)
			})
			wctx, wcancel := context.WithCancel(ctx)
			g.Add(func() error { return w.Run(wctx) }, func(error) { wcancel() })
		}

		{
			sctx, scancel := context.WithCancel(ctx)
			g.Add(func() error {
				err := a.session.Run(sctx, changes)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}, func(error) { scancel() })
		}

		a.log.Info("watching",
			zap.String("version", version),
			zap.String("pattern", pattern),
			zap.String("job", watchOpts.job),
			zap.String("pause_file", a.cfg.PauseFile),
		)

		err = g.Run()
		var sig run.SignalError
		if errors.As(err, &sig) {
			a.log.Info("stopping", zap.Stringer("signal", sig.Signal))
			return nil
		}
		return err
	},
}

func init() {
	watchOpts.register(watchCmd)
	watchCmd.Flags().StringVar(&watchFile, "watch-file", "", "file or glob to watch (default --param-file)")
	rootCmd.AddCommand(watchCmd)
}

func reloadRequest(cmd *cobra.Command, a *app) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		a.log.Warn("config reload failed", zap.Error(err))
		return
	}
	req, err := watchOpts.request(cmd, cfg)
	if err != nil {
		a.log.Warn("config reload failed", zap.Error(err))
		return
	}
	a.session.UpdateRequest(req)
}

// debouncedWatcher calls onChange once writes to matching files in dir have
// settled for the debounce period.
type debouncedWatcher struct {
	log      *zap.Logger
	dir      string
	target   string
	match    func(name string) bool
	onChange func()
}

// newGlobWatcher matches a doublestar pattern below its static prefix.
func newGlobWatcher(log *zap.Logger, pattern string, onChange func()) *debouncedWatcher {
	pattern = filepath.Clean(pattern)
	dir, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	return &debouncedWatcher{
		log:    log,
		dir:    filepath.FromSlash(dir),
		target: pattern,
		match: func(name string) bool {
			ok, err := doublestar.PathMatch(pattern, filepath.Clean(name))
			return err == nil && ok
		},
		onChange: onChange,
	}
}

// newFileWatcher matches exactly one path; glob metacharacters in it are literal.
func newFileWatcher(log *zap.Logger, path string, onChange func()) *debouncedWatcher {
	path = filepath.Clean(path)
	return &debouncedWatcher{
		log:      log,
		dir:      filepath.Dir(path),
		target:   path,
		match:    func(name string) bool { return filepath.Clean(name) == path },
		onChange: onChange,
	}
}

func (d *debouncedWatcher) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(d.dir); err != nil {
		d.log.Warn("fsnotify add dir failed", zap.String("dir", d.dir), zap.Error(err))
		return err
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !d.match(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			d.log.Debug("change detected", zap.String("target", d.target))
			d.onChange()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			d.log.Warn("fsnotify error", zap.Error(err))
		}
	}
}
