// Package expand resolves $VAR and ${VAR} references against a build
// environment.
package expand

import (
	"errors"
	"fmt"
	"strings"

	"github.com/davarch/remote-trigger/internal/domain"
)

var ErrUnterminated = errors.New("unterminated ${ reference")

// EnvExpander substitutes variables from env. Unknown references are left in
// place; "$$" yields a literal "$".
type EnvExpander struct {
	env domain.Variables
}

func New(env domain.Variables) *EnvExpander {
	return &EnvExpander{env: env}
}

// Factory adapts New to the session's expander constructor.
func Factory(env domain.Variables) domain.Expander { return New(env) }

func (e *EnvExpander) Expand(text string) (string, error) {
	if !strings.Contains(text, "$") {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '$' || i+1 == len(text) {
			b.WriteByte(c)
			continue
		}

		next := text[i+1]
		switch {
		case next == '$':
			b.WriteByte('$')
			i++

		case next == '{':
			end := strings.IndexByte(text[i+2:], '}')
			if end < 0 {
				return text, fmt.Errorf("%w at offset %d", ErrUnterminated, i)
			}
			name := text[i+2 : i+2+end]
			ref := text[i : i+3+end]
			b.WriteString(e.lookup(name, ref))
			i += 2 + end

		case isNameStart(next):
			j := i + 1
			for j < len(text) && isNameChar(text[j]) {
				j++
			}
			b.WriteString(e.lookup(text[i+1:j], text[i:j]))
			i = j - 1

		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

func (e *EnvExpander) lookup(name, ref string) string {
	if v, ok := e.env[name]; ok {
		return v
	}
	return ref
}

func isNameStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || ('0' <= c && c <= '9')
}
