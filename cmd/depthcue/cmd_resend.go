package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/persistorai/depthcue/internal/backup"
)

func newResendCmd() *cobra.Command {
	var forget bool

	cmd := &cobra.Command{
		Use:   "resend <participant-id>",
		Short: "Submit a session kept in the local backup to the collection server",
		Long: `Read a participant's aggregate from the local backup and submit it as a
completed session. The server stores trials and surveys idempotently, so a
session that partly reached it can be resent safely.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openBackup()
			if err != nil {
				return err
			}
			defer store.Close()

			data, err := store.Load(ctx, args[0])
			if err != nil {
				return fmt.Errorf("loading backup: %w", err)
			}

			if err := apiClient.CompleteExperiment(ctx, data); err != nil {
				return fmt.Errorf("resend failed: %w", err)
			}

			if forget {
				if err := store.Delete(ctx, data.ParticipantID); err != nil {
					return fmt.Errorf("removing backup: %w", err)
				}
			}

			fmt.Fprintf(os.Stderr, "Resent %d trials, %d surveys for %s\n",
				len(data.Trials), len(data.TaskSurveys), data.ParticipantID)

			return nil
		},
	}

	cmd.Flags().BoolVar(&forget, "forget", false, "Delete the local backup after a successful submit")

	return cmd
}

// openBackup opens the local backup, creating its directory on first use.
func openBackup() (*backup.Store, error) {
	if err := os.MkdirAll(filepath.Dir(flagBackup), 0o700); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	return backup.Open(flagBackup)
}
