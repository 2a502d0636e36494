package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flemzord/coffee/internal/mcpserver"
	"github.com/flemzord/coffee/internal/tool"
	"github.com/flemzord/coffee/internal/ui"
	"github.com/flemzord/coffee/pkg/app"
)

func toolCmd() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "tool <name> [json-params]",
		Short: "Dispatch an agent tool invocation locally",
		Args:  cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			params := app.ClientParams{
				RunParams: runParams(cmd),
				OnNavigate: func(r ui.Route) {
					fmt.Fprintln(out, muted.Render("navigate "+r.Path()))
				},
			}
			c, err := app.NewClient(cmd.Context(), params)
			if err != nil {
				return err
			}
			defer c.Close()

			if list || len(args) == 0 {
				for _, s := range c.Tools.Schemas() {
					fmt.Fprintf(out, "%s\n  %s\n", accent.Render(s.Name), s.Description)
				}
				return nil
			}

			inv := tool.Invocation{Name: args[0]}
			if len(args) == 2 {
				inv.Params = json.RawMessage(args[1])
			}
			res := c.Tools.Dispatch(cmd.Context(), inv)

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			if state := c.Overlay.State(); state.Matches != nil || state.ProfileOptions != nil {
				if err := enc.Encode(state); err != nil {
					return err
				}
			}
			if !res.OK() {
				return fmt.Errorf("tool %s failed", inv.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "List available tools")
	return cmd
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the agent tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			c, err := app.NewClient(ctx, app.ClientParams{RunParams: runParams(cmd)})
			if err != nil {
				return err
			}
			defer c.Close()

			return mcpserver.New(c.Tools, version, c.Logger).ServeStdio(ctx, os.Stdin, os.Stdout)
		},
	}
}
