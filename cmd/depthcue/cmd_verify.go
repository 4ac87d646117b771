package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/persistorai/depthcue/internal/counterbalance"
	"github.com/persistorai/depthcue/internal/models"
)

var errUnbalanced = errors.New("condition assignment is not balanced")

func newVerifyCmd() *cobra.Command {
	var (
		method string
		count  int
	)

	cmd := &cobra.Command{
		Use:   "verify [participant-id...]",
		Short: "Check that a group of participants covers every set and condition evenly",
		Long: `Tally the condition each participant sees in each set. With no ids the
participants "1" through "--count" are checked. Exits non-zero when the
group is unbalanced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := args
			if len(ids) == 0 {
				if count <= 0 {
					return errors.New("--count must be positive when no ids are given")
				}
				ids = make([]string, count)
				for i := range ids {
					ids[i] = strconv.Itoa(i + 1)
				}
			}

			rep := counterbalance.VerifyBalance(ids, counterbalance.Method(method))

			headers, rows := balanceRows(rep)
			output(rep, strconv.FormatBool(rep.Balanced), headers, rows)

			if !rep.Balanced {
				return errUnbalanced
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", string(counterbalance.MethodLatinSquare), "Assignment method: latin-square|random")
	cmd.Flags().IntVar(&count, "count", 4, "Number of sequential participant ids to check when none are given")

	return cmd
}

func balanceRows(rep *counterbalance.BalanceReport) ([]string, [][]string) {
	headers := []string{"SET"}
	for _, c := range models.Conditions {
		headers = append(headers, string(c))
	}

	rows := make([][]string, 0, len(rep.Counts))
	for set := 1; set <= len(rep.Counts); set++ {
		row := []string{fmt.Sprintf("set %d", set)}
		for _, c := range models.Conditions {
			row = append(row, strconv.Itoa(rep.Counts[set][c]))
		}
		rows = append(rows, row)
	}
	return headers, rows
}
