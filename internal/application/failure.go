package application

import "go.uber.org/zap"

// FailurePolicy decides whether an error aborts the invoking build. It
// applies the same way to every error kind.
type FailurePolicy struct {
	ShouldNotFailBuild bool
}

// Escalate logs err and returns nil when failures are soft, err otherwise.
func (p FailurePolicy) Escalate(log *zap.Logger, err error) error {
	if err == nil {
		return nil
	}
	if p.ShouldNotFailBuild {
		log.Error("remote build failed for the following reason, but the build will continue", zap.Error(err))
		return nil
	}
	log.Error("remote build failed for the following reason", zap.Error(err))
	return err
}
