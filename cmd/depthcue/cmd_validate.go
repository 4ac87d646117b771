package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/persistorai/depthcue/internal/graph"
	"github.com/persistorai/depthcue/internal/models"
	"github.com/persistorai/depthcue/internal/scoring"
	"github.com/persistorai/depthcue/internal/trialset"
)

// problem is one defect found in the trial set or a graph file.
type problem struct {
	TrialID   string `json:"trial_id,omitempty"`
	GraphFile string `json:"graph_file,omitempty"`
	Message   string `json:"message"`
}

type validateReport struct {
	TrialSet string    `json:"trial_set"`
	Schema   string    `json:"schema"`
	Trials   int       `json:"trials"`
	Graphs   int       `json:"graphs"`
	Problems []problem `json:"problems"`
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the trial set and every graph file it references",
		Long: `Parse the trial set strictly, then load each referenced graph file and
check it: structure, node pairs present, and Task A pairs at distance two
or more. Exits non-zero when anything is wrong.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := validateTrialSet(cmd.Context(), flagTrialSet, flagGraphDir)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(rep.Problems))
			for _, p := range rep.Problems {
				rows = append(rows, []string{p.TrialID, p.GraphFile, p.Message})
			}
			output(rep, fmt.Sprint(len(rep.Problems)), []string{"TRIAL", "GRAPH", "PROBLEM"}, rows)

			if len(rep.Problems) > 0 {
				return fmt.Errorf("%d problems found", len(rep.Problems))
			}
			return nil
		},
	}

	return cmd
}

func validateTrialSet(ctx context.Context, path, graphDir string) (*validateReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trial set: %w", err)
	}
	defer f.Close()

	def, err := trialset.ParseStrict(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	rep := &validateReport{TrialSet: path, Schema: def.Schema.String(), Trials: len(def.Trials), Problems: []problem{}}

	byGraph := make(map[string][]models.Trial)
	for _, t := range def.Trials {
		if err := t.Validate(); err != nil {
			rep.Problems = append(rep.Problems, problem{TrialID: t.TrialID, GraphFile: t.GraphFile, Message: err.Error()})
			continue
		}
		if def.Schema == trialset.SchemaLatinSquare {
			if _, err := trialset.ResolveSet(t.SetID, t.NodePairID); err != nil {
				rep.Problems = append(rep.Problems, problem{TrialID: t.TrialID, Message: err.Error()})
			}
		}
		byGraph[t.GraphFile] = append(byGraph[t.GraphFile], t)
	}

	files := make([]string, 0, len(byGraph))
	for file := range byGraph {
		files = append(files, file)
	}
	sort.Strings(files)
	rep.Graphs = len(files)

	lib := graph.NewLibrary(graphDir, newLogger())
	found := make([][]problem, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, file := range files {
		g.Go(func() error {
			found[i] = checkGraph(gctx, lib, file, byGraph[file])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, ps := range found {
		rep.Problems = append(rep.Problems, ps...)
	}
	return rep, nil
}

func checkGraph(ctx context.Context, lib *graph.Library, file string, trials []models.Trial) []problem {
	f, err := os.Open(lib.Path(file))
	if err != nil {
		return []problem{{GraphFile: file, Message: err.Error()}}
	}
	defer f.Close()

	g, err := graph.ParseStrict(f)
	if err != nil {
		return []problem{{GraphFile: file, Message: err.Error()}}
	}

	var ps []problem
	if err := g.Validate(); err != nil {
		ps = append(ps, problem{GraphFile: file, Message: err.Error()})
	}

	if ctx.Err() != nil {
		return ps
	}

	adj := graph.NewAdjacency(g)
	for _, t := range trials {
		if !g.Has(t.Node1) || !g.Has(t.Node2) {
			ps = append(ps, problem{TrialID: t.TrialID, GraphFile: file,
				Message: fmt.Sprintf("node pair %d,%d: %v", t.Node1, t.Node2, graph.ErrNodeMissing)})
			continue
		}
		if t.Task == models.TaskA {
			if _, err := scoring.ScoreTaskA(adj.Distance(t.Node1, t.Node2), models.AnswerTwo); err != nil {
				ps = append(ps, problem{TrialID: t.TrialID, GraphFile: file, Message: err.Error()})
			}
		}
	}
	return ps
}
