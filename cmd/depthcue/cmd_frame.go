package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/persistorai/depthcue/internal/graph"
	"github.com/persistorai/depthcue/internal/models"
	"github.com/persistorai/depthcue/internal/scene"
)

type frameOptions struct {
	condition string
	offset    int
	width     int
	height    int
	start     int
	target    int
	orbit     float64
}

func newFrameCmd() *cobra.Command {
	opts := frameOptions{start: -1, target: -1}

	cmd := &cobra.Command{
		Use:   "frame <graph-file>",
		Short: "Render one projected frame of a graph under a viewing condition",
		Long: `Load a graph from the graph root, place it under the given condition and
print the projected nodes and edges. Use it to check how a trial will look
before running participants.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := graph.NewLibrary(flagGraphDir, newLogger())

			g, err := lib.Graph(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("loading graph: %w", err)
			}

			frame, err := renderFrame(g, opts)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(frame.Nodes))
			for _, n := range frame.Nodes {
				rows = append(rows, []string{
					strconv.Itoa(n.ID),
					strconv.FormatFloat(n.X, 'f', 1, 64),
					strconv.FormatFloat(n.Y, 'f', 1, 64),
					strconv.FormatFloat(n.Depth, 'f', 3, 64),
					n.Color.String(),
					strconv.FormatBool(n.Visible),
				})
			}
			output(frame, string(frame.Condition), []string{"NODE", "X", "Y", "DEPTH", "COLOR", "VISIBLE"}, rows)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.condition, "condition", "B", "Viewing condition: A|B|C|D")
	f.IntVar(&opts.offset, "axis-offset", 0, "Rotation axis offset: 0|1")
	f.IntVar(&opts.width, "width", scene.DefaultWidth, "Viewport width in pixels")
	f.IntVar(&opts.height, "height", scene.DefaultHeight, "Viewport height in pixels")
	f.IntVar(&opts.start, "start", -1, "Start node to colour")
	f.IntVar(&opts.target, "target", -1, "Target node to colour")
	f.Float64Var(&opts.orbit, "orbit", 0, "Orbit the camera by this many radians before projecting")

	return cmd
}

func renderFrame(g *graph.Graph, opts frameOptions) (*scene.Frame, error) {
	cond := models.Condition(strings.ToUpper(opts.condition))
	if !cond.Valid() {
		return nil, models.ErrInvalidCondition
	}

	v := scene.New(scene.Options{Width: opts.width, Height: opts.height, Log: newLogger()})
	defer v.Destroy()

	if err := v.LoadGraph(g); err != nil {
		return nil, fmt.Errorf("loading graph into scene: %w", err)
	}

	if err := v.SetCondition(cond, models.AxisOffset(opts.offset)); err != nil {
		return nil, err
	}

	for _, id := range []int{opts.start, opts.target} {
		if id < 0 {
			continue
		}
		if err := v.HighlightNode(id, true); err != nil {
			return nil, err
		}
	}
	if opts.start >= 0 {
		if err := v.SetStartNode(opts.start); err != nil {
			return nil, err
		}
	}
	if opts.target >= 0 {
		if err := v.SetTargetNode(opts.target); err != nil {
			return nil, err
		}
	}

	if opts.orbit != 0 {
		if err := v.Orbit(opts.orbit, 0); err != nil {
			return nil, err
		}
	}

	return v.Frame()
}
