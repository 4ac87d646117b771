package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/depthcue/internal/models"
)

// trialColumns is the CSV layout of exported trial results.
var trialColumns = []string{
	"subject_id", "task", "condition", "axis_offset", "graph_file", "trial_id",
	"node_pair_id", "set_id", "node1", "node2", "highlighted_nodes", "answer",
	"correct", "reaction_time_ms", "click_count", "timestamp",
}

func newExportCmd() *cobra.Command {
	var (
		outputPath string
		remote     bool
	)

	cmd := &cobra.Command{
		Use:   "export <participant-id>",
		Short: "Export one participant's results as JSON or CSV",
		Long: `Export a participant's trials and surveys. By default the local backup is
read; --remote fetches the stored session from the collection server.
--format csv writes one row per trial.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var (
				data *models.ParticipantData
				err  error
			)
			if remote {
				data, err = apiClient.Results(ctx, args[0])
			} else {
				data, err = loadBackup(cmd, args[0])
			}
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			var buf bytes.Buffer
			if err := encodeExport(&buf, data, flagFmt); err != nil {
				return err
			}

			if outputPath == "" {
				ext := "json"
				if flagFmt == "csv" {
					ext = "csv"
				}
				outputPath = fmt.Sprintf("depthcue-%s-%s.%s", data.ParticipantID,
					time.Now().UTC().Format("20060102T150405Z"), ext)
			}

			if outputPath == "-" {
				_, err = os.Stdout.Write(buf.Bytes())
				return err
			}

			if err := os.WriteFile(outputPath, buf.Bytes(), 0o600); err != nil {
				return fmt.Errorf("writing export file: %w", err)
			}

			fmt.Fprintf(os.Stderr, "Exported %d trials, %d surveys to %s\n",
				len(data.Trials), len(data.TaskSurveys), outputPath)

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: depthcue-<id>-<timestamp>.<ext>, use - for stdout)")
	cmd.Flags().BoolVar(&remote, "remote", false, "Read the session from the collection server")

	return cmd
}

func loadBackup(cmd *cobra.Command, participantID string) (*models.ParticipantData, error) {
	store, err := openBackup()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.Load(cmd.Context(), participantID)
}

func encodeExport(w io.Writer, data *models.ParticipantData, format string) error {
	if format == "csv" {
		return writeCSV(w, trialColumns, trialRecords(data.Trials))
	}

	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling export: %w", err)
	}
	_, err = w.Write(append(out, '\n'))
	return err
}

func trialRecords(trials []models.TrialResult) [][]string {
	rows := make([][]string, 0, len(trials))
	for _, r := range trials {
		set := ""
		if r.SetID != nil {
			set = strconv.Itoa(*r.SetID)
		}
		rows = append(rows, []string{
			r.SubjectID,
			string(r.Task),
			string(r.Condition),
			strconv.Itoa(int(r.AxisOffset)),
			r.GraphFile,
			r.TrialID,
			r.NodePairID,
			set,
			strconv.Itoa(r.Node1),
			strconv.Itoa(r.Node2),
			models.JoinNodeIDs(r.HighlightedNodes),
			r.Answer,
			strconv.FormatBool(r.Correct),
			strconv.FormatInt(r.ReactionTimeMS, 10),
			strconv.Itoa(r.ClickCount),
			r.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}
	return rows
}
