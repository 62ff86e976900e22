// Copyright (C) 2025-2026, VozzyUp, Ltda. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func check(fs afero.Fs) *cobra.Command {
	command := &cobra.Command{
		Use:   "check",
		Short: "Compares the installed template version against the remote manifest.",
	}
	command.RunE = func(cmd *cobra.Command, _ []string) error {
		u, err := initUpdater(fs)
		if err != nil {
			return err
		}

		result, err := u.Check(cmd.Context())
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
