package application

import (
	"strings"

	"github.com/davarch/remote-trigger/internal/domain"
	"go.uber.org/zap"
)

// SplitLines breaks multi-line parameter text into raw lines.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// NormalizeParameters drops blank and comment lines and expands the rest.
// Percent-encoding is left to the URL builder.
func NormalizeParameters(lines []string, exp domain.Expander, log *zap.Logger) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, expandOrKeep(exp, log, line))
	}
	return out
}

// expandOrKeep falls back to the unexpanded text when expansion fails.
func expandOrKeep(exp domain.Expander, log *zap.Logger, text string) string {
	if exp == nil {
		return text
	}
	v, err := exp.Expand(text)
	if err != nil {
		log.Warn("failed to resolve parameters in string",
			zap.String("input", text),
			zap.Error(err),
		)
		return text
	}
	return v
}
