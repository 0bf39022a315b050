package application

import (
	"github.com/davarch/remote-trigger/internal/domain"
	"go.uber.org/zap"
)

// ResolveCredential returns the job-level override when enabled, otherwise
// the server default. The two are never mixed.
func ResolveCredential(override bool, job, server domain.Credential, exp domain.Expander, log *zap.Logger) domain.Credential {
	c := server
	if override {
		c = job
	}
	if c.Anonymous() {
		return c
	}
	return domain.Credential{
		Username: expandSecret(exp, log, c.Username, "username"),
		Password: expandSecret(exp, log, c.Password, "password"),
	}
}

// expandSecret is expandOrKeep without echoing the value to the log.
func expandSecret(exp domain.Expander, log *zap.Logger, text, field string) string {
	if exp == nil {
		return text
	}
	v, err := exp.Expand(text)
	if err != nil {
		log.Warn("failed to resolve credential", zap.String("field", field), zap.Error(err))
		return text
	}
	return v
}
