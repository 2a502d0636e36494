package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/coffee/internal/config"
	"github.com/flemzord/coffee/internal/core"
	"github.com/flemzord/coffee/internal/security"
	"github.com/flemzord/coffee/pkg/app"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	var show bool
	check := &cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration and provision its modules",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				resolved, err := app.ResolveConfigPath()
				if err != nil {
					return err
				}
				path = resolved
			}
			return checkConfig(cmd.OutOrStdout(), path, show)
		},
	}
	check.Flags().BoolVar(&show, "show", false, "Print the effective configuration with secrets redacted")
	cmd.AddCommand(check)
	return cmd
}

// checkConfig provisions modules against a scratch data directory so that
// a check never touches the real databases.
func checkConfig(out io.Writer, path string, show bool) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	ids := config.Resolve(cfg)
	if len(ids) > 0 {
		scratch, err := os.MkdirTemp("", "coffee-check-*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(scratch)

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		appCtx := core.NewAppContext(logger, scratch).WithModuleConfigs(cfg.Modules)
		a := core.NewApp(appCtx)
		if err := a.LoadModules(ids); err != nil {
			return err
		}
		a.Stop()
	}

	fmt.Fprintf(out, "Configuration OK (%d modules)\n", len(ids))
	for _, id := range ids {
		fmt.Fprintf(out, "  %s\n", id)
	}

	if show {
		return showConfig(out, cfg)
	}
	return nil
}

func showConfig(out io.Writer, cfg *config.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return err
	}
	security.NewRedactor().RedactMap(tree)

	redacted, err := yaml.Marshal(tree)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "---")
	_, err = out.Write(redacted)
	return err
}
