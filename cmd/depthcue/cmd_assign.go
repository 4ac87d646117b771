package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/persistorai/depthcue/internal/counterbalance"
	"github.com/persistorai/depthcue/internal/models"
	"github.com/persistorai/depthcue/internal/trialset"
)

func newAssignCmd() *cobra.Command {
	var (
		method string
		strict bool
		remote bool
	)

	cmd := &cobra.Command{
		Use:   "assign <participant-id>",
		Short: "Show the condition pattern and trial order for a participant",
		Long: `Build the plan a participant would receive: the condition assigned to each
of the four sets and the full presentation order. By default the plan is
built from the local trial set; --remote asks the collection server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				plan *counterbalance.Plan
				err  error
			)

			if remote {
				plan, err = apiClient.Plan(cmd.Context(), args[0])
			} else {
				plan, err = localPlan(args[0], counterbalance.Options{Method: counterbalance.Method(method), Strict: strict})
			}
			if err != nil {
				return fmt.Errorf("building plan: %w", err)
			}

			headers, rows := planRows(plan)
			output(plan, plan.ParticipantID, headers, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", string(counterbalance.MethodLatinSquare), "Assignment method: latin-square|random")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when a trial's set cannot be resolved")
	cmd.Flags().BoolVar(&remote, "remote", false, "Fetch the plan from the collection server")

	return cmd
}

func localPlan(participantID string, opts counterbalance.Options) (*counterbalance.Plan, error) {
	log := newLogger()

	def, err := trialset.ParseFile(flagTrialSet, log)
	if err != nil {
		return nil, err
	}

	return counterbalance.BuildPlan(def, participantID, opts, log)
}

func planRows(p *counterbalance.Plan) ([]string, [][]string) {
	headers := []string{"#", "TRIAL", "TASK", "CONDITION", "SET", "GRAPH", "NODES"}
	rows := make([][]string, 0, len(p.Trials))
	for i, t := range p.Trials {
		set := ""
		if n, ok := t.Set(); ok {
			set = strconv.Itoa(n)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			t.TrialID,
			string(t.Task),
			string(t.Condition),
			set,
			t.GraphFile,
			models.JoinNodeIDs([]int{t.Node1, t.Node2}),
		})
	}
	return headers, rows
}
