package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yourusername/sumo-dashboard/internal/client"
)

// newCommandCmd builds a one-shot subcommand posting {"cmd": name}
func newCommandCmd(name string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Send a %q command to the control endpoint", name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogging(cfg.LogLevel, os.Stderr)

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
			defer cancel()

			c := client.NewClient(cfg.ServerURL, logger, client.WithTimeout(cfg.RequestTimeout))
			resp, err := client.Post[client.CommandResponse](ctx, c, cfg.CommandPath, client.Command{Cmd: name})
			if err != nil {
				logger.Error().Err(err).Str("cmd", name).Msg("Command failed")
				return err
			}

			data, err := json.Marshal(resp)
			if err != nil {
				return fmt.Errorf("failed to encode response: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
