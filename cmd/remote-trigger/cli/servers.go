package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/davarch/remote-trigger/internal/infrastructure/config"
	"github.com/spf13/cobra"
)

var serversJSON bool

type serverView struct {
	Name             string `json:"name"`
	Address          string `json:"address"`
	TokenRootSupport bool   `json:"token_root_support"`
	Auth             string `json:"auth"`
}

// authSummary never includes the secret itself.
func authSummary(a config.Auth) string {
	switch {
	case a.Username == "" && a.Password == "" && a.KeyringKey == "":
		return "anonymous"
	case a.Password != "":
		return a.Username + " (password)"
	case a.KeyringKey != "":
		return a.Username + " (keyring:" + a.KeyringKey + ")"
	default:
		return a.Username + " (no secret)"
	}
}

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List remote servers from the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		items := make([]serverView, 0, len(cfg.Servers))
		for _, s := range cfg.Servers {
			items = append(items, serverView{
				Name:             s.Name,
				Address:          s.Address,
				TokenRootSupport: s.TokenRootSupport,
				Auth:             authSummary(s.Auth),
			})
		}

		if serversJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "NAME\tADDRESS\tTOKEN_ROOT\tAUTH")
		for _, s := range items {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", s.Name, s.Address, s.TokenRootSupport, s.Auth)
		}
		_ = w.Flush()
		return nil
	},
}

func init() {
	serversCmd.Flags().BoolVar(&serversJSON, "json", false, "print JSON")
	rootCmd.AddCommand(serversCmd)
}
