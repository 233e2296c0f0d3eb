/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Seednode/guessmaster/tui"
)

func newPlayCmd(cfg *Config, v *viper.Viper) *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play in the terminal against an answering service.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkURL(cfg.server); err != nil {
				return errors.Wrap(err, "--server")
			}
			if cfg.questionLimit < 1 {
				return errors.Errorf("invalid question limit (must be at least 1): %d", cfg.questionLimit)
			}

			// The terminal belongs to the game, so logs only go to a file.
			logger := zerolog.Nop()
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return errors.Wrap(err, "open log file")
				}
				defer f.Close()
				logger = newLogger(cfg, f)
			}

			answerer, err := newRemoteAnswerer(cfg.server, logger)
			if err != nil {
				return err
			}

			return tui.Run(cmd.Context(), answerer,
				tui.WithLimit(cfg.questionLimit),
				tui.WithLogger(logger),
			)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(normalize)

	fs.StringVar(&cfg.server, "server", "http://127.0.0.1:8080", "base url of the answering service (env: GUESSMASTER_SERVER)")
	fs.StringVar(&logFile, "log-file", "", "append logs to this file (env: GUESSMASTER_LOG_FILE)")

	bindEnv(v, fs)

	return cmd
}
