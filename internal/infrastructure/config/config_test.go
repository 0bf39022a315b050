package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_FromYAMLAndEnvOverride(t *testing.T) {
	tmp := t.TempDir()
	cfgFile := filepath.Join(tmp, "remote-trigger.yaml")

	yaml := `
servers:
  - name: ci-main
    address: https://jenkins.example.com/
    token_root_support: true
    auth:
      username: bot
      password: secret

defaults:
  poll_interval: 30s
  retry_limit: 3

env_file: /tmp/trigger.env
`
	if err := os.WriteFile(cfgFile, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("REMOTE_TRIGGER_RETRY_LIMIT", "7")

	c, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.Defaults.RetryLimit != 7 {
		t.Errorf("env override failed, got %d", c.Defaults.RetryLimit)
	}
	if c.Defaults.PollInterval != 30*time.Second {
		t.Errorf("expected 30s poll interval, got %s", c.Defaults.PollInterval)
	}
	if c.Defaults.ConnectTimeout != 5*time.Second {
		t.Errorf("expected default connect timeout, got %s", c.Defaults.ConnectTimeout)
	}
	if len(c.Servers) != 1 || !c.Servers[0].TokenRootSupport {
		t.Fatalf("expected 1 token-root server, got %+v", c.Servers)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Defaults.RetryLimit != 5 {
		t.Errorf("expected default retry limit 5, got %d", c.Defaults.RetryLimit)
	}
	if len(c.Servers) != 0 {
		t.Errorf("expected no servers, got %d", len(c.Servers))
	}
}

func TestLoad_ServerFromEnv(t *testing.T) {
	t.Setenv("REMOTE_TRIGGER_SERVER_URL", "http://ci.local:8080")
	t.Setenv("REMOTE_TRIGGER_SERVER_NAME", "local")
	t.Setenv("REMOTE_TRIGGER_USERNAME", "u")
	t.Setenv("REMOTE_TRIGGER_PASSWORD", "p")

	c, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	i := c.FindServer("local")
	if i < 0 {
		t.Fatal("server from env not registered")
	}
	if c.Servers[i].Auth.Username != "u" || c.Servers[i].Auth.Password != "p" {
		t.Errorf("unexpected auth %+v", c.Servers[i].Auth)
	}
}

func TestValidate(t *testing.T) {
	c := defaults()
	c.Servers = []Server{{Name: "a", Address: "https://a"}, {Name: "a", Address: "https://b"}}
	if err := Validate(c); err == nil {
		t.Error("expected duplicate name error")
	}

	c.Servers = []Server{{Name: "a", Address: "not a url"}}
	if err := Validate(c); err == nil {
		t.Error("expected invalid address error")
	}

	c.Servers = nil
	c.Defaults.PollInterval = 0
	if err := Validate(c); err == nil {
		t.Error("expected poll interval error")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "remote-trigger.yaml")

	c := defaults()
	c.Servers = []Server{{Name: "ci", Address: "https://ci.example.com", Auth: Auth{Username: "bot", KeyringKey: "ci"}}}
	if err := Save(path, c); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.FindServer("ci") != 0 || got.Servers[0].Auth.KeyringKey != "ci" {
		t.Errorf("round trip lost server: %+v", got.Servers)
	}
}

type fakeSecrets map[string]string

func (f fakeSecrets) Get(key string) (string, error) {
	v, ok := f[key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func TestNewRegistry_ResolvesKeyringPasswords(t *testing.T) {
	servers := []Server{
		{Name: "plain", Address: "https://a", Auth: Auth{Username: "u", Password: "p"}},
		{Name: "kr", Address: "https://b", Auth: Auth{Username: "u", KeyringKey: "kr"}},
	}
	if !NeedsSecrets(servers) {
		t.Fatal("expected NeedsSecrets")
	}

	r, err := NewRegistry(servers, fakeSecrets{"kr": "from-keyring"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s, ok := r.Lookup("kr")
	if !ok || s.Auth.Password != "from-keyring" {
		t.Errorf("expected keyring password, got %+v", s)
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Error("lookup of unknown server succeeded")
	}

	if _, err := NewRegistry(servers, nil); err == nil {
		t.Error("expected error without a secret source")
	}
}
