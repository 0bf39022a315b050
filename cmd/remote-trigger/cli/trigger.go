package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/davarch/remote-trigger/internal/domain"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var triggerOpts triggerFlags

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Trigger a remote job once and print the resulting variables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, &triggerOpts)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		a.log.Info("start",
			zap.String("version", version),
			zap.String("server", triggerOpts.server),
			zap.String("job", triggerOpts.job),
		)

		out, err := a.session.Fire(ctx)
		if err != nil {
			return err
		}
		printVariables(os.Stdout, out.Variables)
		return nil
	},
}

func init() {
	triggerOpts.register(triggerCmd)
	rootCmd.AddCommand(triggerCmd)
}

func printVariables(w io.Writer, vars domain.Variables) {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "%s=%s\n", k, vars[k])
	}
}
