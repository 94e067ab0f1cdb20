package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/flemzord/emotewall/pkg/app"
)

var serviceActions = []string{"install", "uninstall", "start", "stop", "restart", "run"}

// daemon adapts app.RunContext to the service manager lifecycle.
type daemon struct {
	params app.RunParams
	cancel context.CancelFunc
	done   chan error
}

func (d *daemon) Start(_ service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.done = make(chan error, 1)
	go func() { d.done <- app.RunContext(ctx, d.params) }()
	return nil
}

func (d *daemon) Stop(_ service.Service) error {
	if d.cancel == nil {
		return nil
	}
	d.cancel()
	return <-d.done
}

func serviceConfig(cfgPath, dataDir string) *service.Config {
	args := []string{"service", "run"}
	if cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}
	if dataDir != "" {
		args = append(args, "--data-dir", dataDir)
	}
	return &service.Config{
		Name:        "emotewall",
		DisplayName: "Emote Wall",
		Description: "Chat-driven emote wall streamed to browser overlays",
		Arguments:   args,
		Option:      service.KeyValue{"UserService": true},
	}
}

func serviceCmd() *cobra.Command {
	var (
		cfgPath string
		dataDir string
	)
	cmd := &cobra.Command{
		Use:       "service <install|uninstall|start|stop|restart|run>",
		Short:     "Manage emotewall as a system service",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: serviceActions,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath != "" {
				abs, err := filepath.Abs(cfgPath)
				if err != nil {
					return err
				}
				cfgPath = abs
			}
			d := &daemon{params: runParams(cfgPath, dataDir, false)}
			svc, err := service.New(d, serviceConfig(cfgPath, dataDir))
			if err != nil {
				return err
			}

			action := args[0]
			if action == "run" {
				return svc.Run()
			}
			if !slices.Contains(service.ControlAction[:], action) {
				return errors.New("unsupported service action " + action)
			}
			if err := service.Control(svc, action); err != nil {
				return fmt.Errorf("service %s: %w", action, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", action)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory for the catalog cache and audit log")
	return cmd
}
