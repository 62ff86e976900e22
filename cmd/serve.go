// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"errors"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/VozzyUp/vozzysmartoficial/metrics"
	"github.com/VozzyUp/vozzysmartoficial/server"
)

func serve(fs afero.Fs) *cobra.Command {
	command := &cobra.Command{
		Use:   "serve",
		Short: "Serves the authenticated update API for the dashboard.",
	}
	command.RunE = func(_ *cobra.Command, _ []string) error {
		apiKey := viper.GetString(apiKeyKey)
		if apiKey == "" {
			return errors.New("an api key is required to serve the update API")
		}

		u, err := initUpdater(fs)
		if err != nil {
			return err
		}

		s, err := server.New(server.Config{
			Addr:    viper.GetString(listenAddrKey),
			APIKey:  apiKey,
			Sync:    u,
			Metrics: metrics.New(),
			Log:     initLogger(),
		})
		if err != nil {
			return err
		}

		return s.Start()
	}

	return command
}
