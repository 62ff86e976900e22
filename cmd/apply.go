// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func apply(fs afero.Fs) *cobra.Command {
	command := &cobra.Command{
		Use:   "apply",
		Short: "Applies the latest template update, backing up or committing changed files.",
	}
	command.RunE = func(cmd *cobra.Command, _ []string) error {
		u, err := initUpdater(fs)
		if err != nil {
			return err
		}

		result, err := u.Apply(cmd.Context())
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))

		return nil
	}

	return command
}
