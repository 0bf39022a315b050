package cli

import (
	"fmt"

	"github.com/davarch/remote-trigger/internal/infrastructure/config"
	"github.com/davarch/remote-trigger/internal/infrastructure/secrets"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Edit remote servers in the config file",
}

var addOpts struct {
	address    string
	tokenRoot  bool
	user       string
	password   string
	keyringKey string
	replace    bool
}

var serverAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a remote server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		s := config.Server{
			Name:             name,
			Address:          addOpts.address,
			TokenRootSupport: addOpts.tokenRoot,
			Auth: config.Auth{
				Username:   addOpts.user,
				Password:   addOpts.password,
				KeyringKey: addOpts.keyringKey,
			},
		}

		if i := cfg.FindServer(name); i >= 0 {
			if !addOpts.replace {
				return fmt.Errorf("server %q already exists (use --replace)", name)
			}
			cfg.Servers[i] = s
		} else {
			cfg.Servers = append(cfg.Servers, s)
		}

		if err := config.Validate(cfg); err != nil {
			return err
		}
		if err := config.Save(cfgPath, cfg); err != nil {
			return err
		}

		fmt.Printf("added: %s\n", name)
		return nil
	},
}

var serverRemoveCmd = &cobra.Command{
	Use:               "remove <name>",
	Short:             "Remove a remote server",
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
			fmt.Printf("no change (server %q not found)\n", name)
			return nil
		}
		removed := cfg.Servers[i]
		cfg.Servers = append(cfg.Servers[:i], cfg.Servers[i+1:]...)

		if err := config.Save(cfgPath, cfg); err != nil {
			return err
		}
		fmt.Printf("removed: %s\n", name)

		if key := orphanedKeyringKey(cfg.Servers, removed); key != "" {
			if err := secrets.New(cfg.Keyring.Dir).Delete(key); err != nil {
				fmt.Printf("warning: keyring entry %q not deleted: %v\n", key, err)
			} else {
				fmt.Printf("deleted keyring entry: %s\n", key)
			}
		}
		return nil
	},
}

// orphanedKeyringKey returns the removed server's keyring key when no
// remaining server still reads it.
func orphanedKeyringKey(remaining []config.Server, removed config.Server) string {
	key := removed.Auth.KeyringKey
	if key == "" {
		return ""
	}
	for _, s := range remaining {
		if s.Auth.KeyringKey == key {
			return ""
		}
	}
	return key
}

func init() {
	f := serverAddCmd.Flags()
	f.StringVar(&addOpts.address, "address", "", "base URL of the remote server")
	f.BoolVar(&addOpts.tokenRoot, "token-root", false, "server exposes the buildByToken endpoint")
	f.StringVar(&addOpts.user, "user", "", "username")
	f.StringVar(&addOpts.password, "password", "", "password or API token (stored in the config file)")
	f.StringVar(&addOpts.keyringKey, "keyring-key", "", "read the secret from the keyring under this key")
	f.BoolVar(&addOpts.replace, "replace", false, "replace an existing server with the same name")
	_ = serverAddCmd.MarkFlagRequired("address")
	serverAddCmd.MarkFlagsMutuallyExclusive("password", "keyring-key")

	serverCmd.AddCommand(serverAddCmd, serverRemoveCmd)
	rootCmd.AddCommand(serverCmd)
}
