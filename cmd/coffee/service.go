package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/flemzord/coffee/pkg/app"
)

// program runs the server under the system service manager.
type program struct {
	params app.RunParams
	cancel context.CancelFunc
	done   chan error
}

var _ service.Interface = (*program)(nil)

// Start implements service.Interface. It must not block.
func (p *program) Start(service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() { p.done <- app.Serve(ctx, p.params) }()
	return nil
}

// Stop implements service.Interface.
func (p *program) Stop(service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	return <-p.done
}

func serviceConfig(params app.RunParams) (*service.Config, error) {
	args := []string{"service", "run"}
	if params.ConfigPath != "" {
		abs, err := filepath.Abs(params.ConfigPath)
		if err != nil {
			return nil, err
		}
		args = append(args, "--config", abs)
	}
	if params.DataDir != "" {
		args = append(args, "--data-dir", params.DataDir)
	}
	return &service.Config{
		Name:        "coffee",
		DisplayName: "coffee backend",
		Description: "Message, profile and matching API with realtime push.",
		Arguments:   args,
	}, nil
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "service <install|uninstall|start|stop|restart|run>",
		Short:     "Manage coffee serve as a system service",
		Args:      cobra.ExactArgs(1),
		ValidArgs: append(append([]string{}, service.ControlAction[:]...), "run"),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := runParams(cmd)
			if params.ConfigPath == "" {
				resolved, err := app.ResolveConfigPath()
				if err != nil {
					return err
				}
				params.ConfigPath = resolved
			}

			svcCfg, err := serviceConfig(params)
			if err != nil {
				return err
			}
			svc, err := service.New(&program{params: params}, svcCfg)
			if err != nil {
				return err
			}

			action := args[0]
			if action == "run" {
				return svc.Run()
			}
			if err := service.Control(svc, action); err != nil {
				if errors.Is(err, service.ErrNotInstalled) {
					return fmt.Errorf("service is not installed, run `coffee service install` first")
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", action)
			return nil
		},
	}
	return cmd
}
