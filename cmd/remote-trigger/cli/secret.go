package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/davarch/remote-trigger/internal/infrastructure/config"
	"github.com/davarch/remote-trigger/internal/infrastructure/secrets"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage remote server secrets in the OS keyring",
}

var secretSetCmd = &cobra.Command{
	Use:               "set <server>",
	Short:             "Store a server password or API token in the keyring",
	Long:              "Reads the secret from the terminal (or the first line of stdin) and points the server's auth.keyring_key at it.",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeServers,
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		i := cfg.FindServer(name)
		if i < 0 {
			return fmt.Errorf("server %q not found", name)
		}

		value, err := readSecret(name)
		if err != nil {
			return err
		}

		s := &cfg.Servers[i]
		key := s.Auth.KeyringKey
		if key == "" {
			key = s.Name
		}
		if err := secrets.New(cfg.Keyring.Dir).Set(key, value); err != nil {
			return err
		}

		if s.Auth.KeyringKey != key || s.Auth.Password != "" {
			s.Auth.KeyringKey = key
			s.Auth.Password = ""
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
		}

		fmt.Printf("stored: %s (keyring:%s)\n", name, key)
		return nil
	},
}

func readSecret(server string) (string, error) {
	if isatty.IsTerminal(os.Stdin.Fd()) {
		_, _ = fmt.Fprintf(os.Stderr, "secret for %s: ", server)
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		_, _ = fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return validSecret(string(b))
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading secret from stdin: %w", err)
	}
	return validSecret(line)
}

func validSecret(s string) (string, error) {
	s = strings.TrimRight(s, "\r\n")
	if s == "" {
		return "", errors.New("empty secret")
	}
	return s, nil
}

func init() {
	secretCmd.AddCommand(secretSetCmd)
	rootCmd.AddCommand(secretCmd)
}
