package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"
)

type Auth struct {
	Username   string `yaml:"username,omitempty"`
	Password   string `yaml:"password,omitempty"`
	KeyringKey string `yaml:"keyring_key,omitempty"`
}

type Server struct {
	Name             string `yaml:"name"`
	Address          string `yaml:"address"`
	TokenRootSupport bool   `yaml:"token_root_support,omitempty"`
	Auth             Auth   `yaml:"auth,omitempty"`
}

type Config struct {
	Servers []Server `yaml:"servers"`

	Defaults struct {
		PollInterval       time.Duration `yaml:"poll_interval"`
		RetryLimit         int           `yaml:"retry_limit"`
		ConnectTimeout     time.Duration `yaml:"connect_timeout"`
		ShouldNotFailBuild bool          `yaml:"should_not_fail_build"`
	} `yaml:"defaults"`

	Workspace string `yaml:"workspace,omitempty"`
	EnvFile   string `yaml:"env_file,omitempty"`
	PauseFile string `yaml:"pause_file,omitempty"`
	LogLevel  string `yaml:"log_level,omitempty"`

	Audit struct {
		Path string `yaml:"path"`
	} `yaml:"audit"`

	Keyring struct {
		Dir string `yaml:"dir"`
	} `yaml:"keyring"`
}

func defaults() Config {
	var c Config
	c.Defaults.PollInterval = 10 * time.Second
	c.Defaults.RetryLimit = 5
	c.Defaults.ConnectTimeout = 5 * time.Second
	c.Workspace = "."
	c.LogLevel = "info"
	c.Audit.Path = "~/.cache/remote-trigger/audit.db"
	c.Keyring.Dir = "~/.config/remote-trigger/keyring"
	return c
}

// Load reads path (a missing file is not an error), applies REMOTE_TRIGGER_*
// overrides and validates the result.
func Load(path string) (Config, error) {
	c := defaults()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return c, fmt.Errorf("parse %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return c, err
		}
	}

	if v := os.Getenv("REMOTE_TRIGGER_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Defaults.PollInterval = d
		}
	}

	if v := os.Getenv("REMOTE_TRIGGER_RETRY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Defaults.RetryLimit = n
		}
	}

	if v := os.Getenv("REMOTE_TRIGGER_CONNECT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Defaults.ConnectTimeout = d
		}
	}

	if v := os.Getenv("REMOTE_TRIGGER_ENV_FILE"); v != "" {
		c.EnvFile = v
	}

	if v := os.Getenv("REMOTE_TRIGGER_AUDIT_PATH"); v != "" {
		c.Audit.Path = v
	}

	if v := os.Getenv("REMOTE_TRIGGER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	// A single server can be supplied entirely through the environment.
	if v := os.Getenv("REMOTE_TRIGGER_SERVER_URL"); v != "" {
		s := Server{
			Name:    getenv("REMOTE_TRIGGER_SERVER_NAME", "default"),
			Address: v,
			Auth: Auth{
				Username: os.Getenv("REMOTE_TRIGGER_USERNAME"),
				Password: os.Getenv("REMOTE_TRIGGER_PASSWORD"),
			},
		}
		s.TokenRootSupport, _ = strconv.ParseBool(os.Getenv("REMOTE_TRIGGER_TOKEN_ROOT"))
		c.Servers = append(withoutServer(c.Servers, s.Name), s)
	}

	c.Audit.Path = expandHome(c.Audit.Path)
	c.Keyring.Dir = expandHome(c.Keyring.Dir)
	c.EnvFile = expandHome(c.EnvFile)
	c.PauseFile = expandHome(c.PauseFile)

	if c.Defaults.ConnectTimeout <= 0 {
		c.Defaults.ConnectTimeout = 5 * time.Second
	}

	return c, Validate(c)
}

func Validate(c Config) error {
	if c.Defaults.PollInterval <= 0 {
		return errors.New("defaults.poll_interval must be > 0")
	}
	if c.Defaults.RetryLimit < 0 {
		return errors.New("defaults.retry_limit must be >= 0")
	}

	seen := make(map[string]bool, len(c.Servers))
	for i, s := range c.Servers {
		if s.Name == "" {
			return fmt.Errorf("servers[%d]: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("servers[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true

		u, err := url.Parse(s.Address)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("servers[%d] (%s): invalid address %q", i, s.Name, s.Address)
		}
	}
	return nil
}

// FindServer returns the index of the server called name, or -1.
func (c Config) FindServer(name string) int {
	for i, s := range c.Servers {
		if s.Name == name {
			return i
		}
	}
	return -1
}

func withoutServer(servers []Server, name string) []Server {
	out := servers[:0:0]
	for _, s := range servers {
		if s.Name != name {
			out = append(out, s)
		}
	}
	return out
}

func Save(path string, c Config) error {
	if path == "" {
		return errors.New("empty config path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	lockFile := path + ".lock"
	lf, err := os.OpenFile(lockFile, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return err
	}
	defer func() { _ = lf.Close() }()

	if runtime.GOOS != "windows" {
		if err := syscall.Flock(int(lf.Fd()), syscall.LOCK_EX); err != nil {
			return err
		}
		defer func() { _ = syscall.Flock(int(lf.Fd()), syscall.LOCK_UN) }()
	}

	b, err := yaml.Marshal(&c)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	defer func() { _ = f.Close() }()

	if _, err := f.Write(b); err != nil {
		return err
	}

	if err := f.Sync(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if h, _ := os.UserHomeDir(); h != "" {
			return h + p[1:]
		}
	}
	return p
}
