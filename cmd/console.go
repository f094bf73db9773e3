package cmd

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"yfmcp/internal/bootstrap"
	"yfmcp/internal/bootstrap/logging"
	"yfmcp/internal/errs"
	"yfmcp/internal/usecase/cacheconsole"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Terminal console commands",
}

var consoleCacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Start the cache maintenance console",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")
		if refreshInterval <= 0 {
			refreshInterval = 5 * time.Second
		}

		model := cacheconsole.NewCacheModel(ctx, svc.Store, cacheconsole.Options{
			TTLs:            svc.Dispatcher.Policy().TTLs(),
			RefreshInterval: refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run cache console")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.AddCommand(consoleCacheCmd)
	consoleCacheCmd.Flags().Duration("refresh-interval", 5*time.Second, "Auto refresh interval")
}
