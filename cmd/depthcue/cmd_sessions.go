package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// sessionRow is the common shape of local and remote session listings.
type sessionRow struct {
	ParticipantID string    `json:"participant_id"`
	Trials        int       `json:"trials"`
	Completed     bool      `json:"completed"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func newSessionsCmd() *cobra.Command {
	var (
		remote bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List sessions in the local backup or on the collection server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var list []sessionRow
			if remote {
				sums, err := apiClient.Sessions(ctx, limit)
				if err != nil {
					return fmt.Errorf("listing sessions: %w", err)
				}
				for _, s := range sums {
					list = append(list, sessionRow{
						ParticipantID: s.ParticipantID,
						Trials:        s.TrialCount,
						Completed:     s.EndTime != nil,
						UpdatedAt:     s.UpdatedAt,
					})
				}
			} else {
				store, err := openBackup()
				if err != nil {
					return err
				}
				defer store.Close()

				entries, err := store.List(ctx)
				if err != nil {
					return fmt.Errorf("listing backups: %w", err)
				}
				for _, e := range entries {
					list = append(list, sessionRow(e))
				}
			}

			if list == nil {
				list = []sessionRow{}
			}

			rows := make([][]string, 0, len(list))
			ids := ""
			for _, s := range list {
				rows = append(rows, []string{
					s.ParticipantID,
					strconv.Itoa(s.Trials),
					strconv.FormatBool(s.Completed),
					s.UpdatedAt.Local().Format(time.DateTime),
				})
				ids += s.ParticipantID + "\n"
			}
			output(list, trimNewline(ids), []string{"PARTICIPANT", "TRIALS", "COMPLETED", "UPDATED"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "List sessions stored on the collection server (needs the operator token)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum sessions to list with --remote")

	return cmd
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		return s[:n-1]
	}
	return s
}
