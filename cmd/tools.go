package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"yfmcp/internal/bootstrap"
	"yfmcp/internal/bootstrap/logging"
	"yfmcp/internal/errs"
)

var errToolFailed = errors.New("tool call failed")

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect and call finance tools without an MCP client",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered tools with their cache class",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *services) error {
		format, _ := cmd.Flags().GetString("format")
		tools := svc.Server.Tools()

		if strings.EqualFold(strings.TrimSpace(format), "text") {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCACHE CLASS\tTTL\tDESCRIPTION")
			policy := svc.Dispatcher.Policy()
			for _, tool := range tools {
				ttl := "-"
				if tool.Cacheable {
					ttl = policy.TTL(tool.Name).String()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", tool.Name, tool.CacheClass, ttl, tool.Description)
			}
			if err := tw.Flush(); err != nil {
				return errs.Wrap(err, "write tools table")
			}
			return nil
		}

		return writeOutput(cmd.OutOrStdout(), format, map[string]any{"tools": tools})
	}),
}

var toolsCallCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "Call one tool through the cache and print its result",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		name := strings.TrimSpace(cmd.Flags().Arg(0))
		format, _ := cmd.Flags().GetString("format")
		args, err := resolveArgs(cmd)
		if err != nil {
			return err
		}

		text, failed := svc.Server.Call(ctx, name, args)
		if failed {
			if _, err := fmt.Fprintln(cmd.ErrOrStderr(), text); err != nil {
				return errs.Wrap(err, "write tool error")
			}
			return errToolFailed
		}

		if format == "" || strings.EqualFold(format, "json") {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
			return errs.Wrap(err, "write tool result")
		}
		doc, err := decodeDocument(text)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), format, doc)
	}),
}

// resolveArgs reads the tool arguments from --args, or from stdin when
// --args is "-". Empty means no arguments.
func resolveArgs(cmd *cobra.Command) (json.RawMessage, error) {
	raw, _ := cmd.Flags().GetString("args")
	raw = strings.TrimSpace(raw)
	if raw == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, errs.Wrap(err, "read args from stdin")
		}
		raw = strings.TrimSpace(string(data))
	}
	if raw == "" {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("--args must be a JSON object, got %q", raw)
	}
	return json.RawMessage(raw), nil
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsCallCmd)

	toolsListCmd.Flags().String("format", "text", "Output format: text|"+outputFormats)
	toolsCallCmd.Flags().String("args", "", `Tool arguments as JSON, e.g. '{"symbol":"AAPL"}' ("-" reads stdin)`)
	toolsCallCmd.Flags().String("format", "json", "Output format: "+outputFormats)
}
