package application

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/davarch/remote-trigger/internal/domain"
	"go.uber.org/zap"
)

// Session runs trigger steps against one accumulating environment. Each
// Fire reads the variables written by earlier steps before composing new ones.
type Session struct {
	log         *zap.Logger
	orch        *Orchestrator
	store       domain.VariableStore
	newExpander func(domain.Variables) domain.Expander
	pauseFile   string

	run sync.Mutex

	mu  sync.RWMutex
	req domain.TriggerRequest
}

func NewSession(l *zap.Logger, o *Orchestrator, store domain.VariableStore, newExpander func(domain.Variables) domain.Expander, req domain.TriggerRequest, pauseFile string) *Session {
	return &Session{
		log: l, orch: o, store: store, newExpander: newExpander, req: req, pauseFile: pauseFile,
	}
}

func (s *Session) UpdateRequest(req domain.TriggerRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.req = req
	s.log.Info("trigger request reloaded", zap.String("job", req.Job))
}

func (s *Session) request() domain.TriggerRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.req
}

// Paused is true while the pause file exists.
func (s *Session) Paused() bool {
	if s.pauseFile == "" {
		return false
	}
	_, err := os.Stat(s.pauseFile)
	return err == nil
}

// Fire runs one trigger step and merges its variables into the store.
// Steps never overlap within a session.
func (s *Session) Fire(ctx context.Context) (domain.Outcome, error) {
	s.run.Lock()
	defer s.run.Unlock()

	prior, err := s.store.Load()
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("loading environment: %w", err)
	}

	out, err := s.orch.Run(ctx, s.request(), prior, s.newExpander(prior))
	if err != nil {
		return out, err
	}

	if len(out.Variables) > 0 {
		if err := s.store.Merge(out.Variables); err != nil {
			return out, fmt.Errorf("writing variables: %w", err)
		}
	}
	return out, nil
}

// Run fires once, then again for every value received on changes, until ctx
// is done or changes is closed. Failed steps are logged and do not stop it.
func (s *Session) Run(ctx context.Context, changes <-chan struct{}) error {
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			s.tick(ctx)
		}
	}
}

func (s *Session) tick(ctx context.Context) {
	if s.Paused() {
		s.log.Debug("paused: skipping trigger")
		return
	}

	out, err := s.Fire(ctx)
	if err != nil {
		s.log.Warn("trigger step failed", zap.String("job", out.Job), zap.Error(err))
		return
	}
	s.log.Info("trigger step finished",
		zap.String("job", out.Job),
		zap.Int("build", out.BuildNumber),
		zap.String("status", string(out.Status)),
	)
}
