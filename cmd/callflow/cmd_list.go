// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voicegraph/callflow/internal/flow"
	"github.com/voicegraph/callflow/internal/msteams"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tenant's auto attendants and call queues",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dir, cleanup, err := openDirectory()
		if err != nil {
			return err
		}
		defer cleanup()

		aas, err := dir.ListAutoAttendants(ctx)
		if err != nil {
			return fmt.Errorf("listing auto attendants: %w", err)
		}
		cqs, err := dir.ListCallQueues(ctx)
		if err != nil {
			return fmt.Errorf("listing call queues: %w", err)
		}

		fmt.Println(Styles.Title.Render("Auto Attendants"))
		printApps(aas)
		fmt.Println()
		fmt.Println(Styles.Title.Render("Call Queues"))
		printApps(cqs)
		return nil
	},
}

func printApps(apps []msteams.VoiceApp) {
	if len(apps) == 0 {
		fmt.Println(Styles.Muted.Render("  (none)"))
		return
	}
	for _, app := range apps {
		line := "  " + Styles.Bold.Render(app.Name) + "  " + Styles.Muted.Render(app.ID)
		if len(app.PhoneNumbers) > 0 {
			numbers := make([]string, 0, len(app.PhoneNumbers))
			for _, n := range app.PhoneNumbers {
				numbers = append(numbers, flow.NormalizePstn(n))
			}
			line += "  " + strings.Join(numbers, ", ")
		}
		fmt.Println(line)
	}
}
