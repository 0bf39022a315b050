package config

import (
	"fmt"

	"github.com/davarch/remote-trigger/internal/domain"
)

// SecretSource looks up a stored secret by key.
type SecretSource interface {
	Get(key string) (string, error)
}

// Registry is an immutable, name-indexed view of the configured servers.
type Registry struct {
	servers map[string]domain.RemoteServer
}

// NewRegistry resolves keyring-backed passwords once, up front. secrets may
// be nil when no server uses keyring_key.
func NewRegistry(servers []Server, secrets SecretSource) (*Registry, error) {
	r := &Registry{servers: make(map[string]domain.RemoteServer, len(servers))}
	for _, s := range servers {
		password := s.Auth.Password
		if password == "" && s.Auth.KeyringKey != "" {
			if secrets == nil {
				return nil, fmt.Errorf("server %s: keyring_key set but no keyring available", s.Name)
			}
			v, err := secrets.Get(s.Auth.KeyringKey)
			if err != nil {
				return nil, fmt.Errorf("server %s: %w", s.Name, err)
			}
			password = v
		}

		r.servers[s.Name] = domain.RemoteServer{
			Name:             s.Name,
			Address:          s.Address,
			TokenRootSupport: s.TokenRootSupport,
			Auth:             domain.Credential{Username: s.Auth.Username, Password: password},
		}
	}
	return r, nil
}

func (r *Registry) Lookup(name string) (domain.RemoteServer, bool) {
	s, ok := r.servers[name]
	return s, ok
}

// NeedsSecrets reports whether any server reads its password from the keyring.
func NeedsSecrets(servers []Server) bool {
	for _, s := range servers {
		if s.Auth.Password == "" && s.Auth.KeyringKey != "" {
			return true
		}
	}
	return false
}
