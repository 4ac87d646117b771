package graph

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Record tags.
const (
	tagNode = "N"
	tagEdge = "E"
)

// ParseError describes a record the strict parser rejected.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	errTooFewFields = errors.New("too few fields")
	errBadID        = errors.New("malformed integer id")
	errBadCoord     = errors.New("malformed coordinate")
)

// Parse reads node and edge records leniently. Unknown tags are ignored,
// malformed coordinates become NaN, and records whose ids cannot be read are
// skipped with a warning. It never fails; read errors end the parse early.
func Parse(r io.Reader, log logrus.FieldLogger) *Graph {
	g := &Graph{Nodes: []Node{}, Edges: []Edge{}}

	err := scan(r, func(lineNo int, line string, fields []string) error {
		if perr := parseRecord(g, fields, false); perr != nil {
			log.WithFields(logrus.Fields{"line": lineNo, "record": line}).WithError(perr).Warn("skipping graph record")
		}

		return nil
	})
	if err != nil {
		log.WithError(err).Warn("graph read stopped early")
	}

	return g
}

// ParseStrict reads the same grammar and returns the first bad record as a *ParseError.
func ParseStrict(r io.Reader) (*Graph, error) {
	g := &Graph{Nodes: []Node{}, Edges: []Edge{}}

	err := scan(r, func(lineNo int, line string, fields []string) error {
		if perr := parseRecord(g, fields, true); perr != nil {
			return &ParseError{Line: lineNo, Text: line, Err: perr}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return g, nil
}

// ParseFile opens path and parses it leniently.
func ParseFile(path string, log logrus.FieldLogger) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening graph file: %w", err)
	}
	defer f.Close()

	return Parse(f, log.WithField("graph_file", path)), nil
}

func scan(r io.Reader, fn func(lineNo int, line string, fields []string) error) error {
	sc := bufio.NewScanner(r)
	lineNo := 0

	for sc.Scan() {
		lineNo++

		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		if err := fn(lineNo, line, fields); err != nil {
			return err
		}
	}

	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading graph: %w", err)
	}

	return nil
}

// parseRecord appends the record in fields to g. In lenient mode missing or
// malformed coordinates are stored as NaN.
func parseRecord(g *Graph, fields []string, strict bool) error {
	switch fields[0] {
	case tagNode:
		if len(fields) < 2 || (strict && len(fields) < 5) {
			return errTooFewFields
		}

		id, err := strconv.Atoi(fields[1])
		if err != nil {
			return errBadID
		}

		var coords [3]float64
		for i := range coords {
			coords[i] = math.NaN()
			if 2+i >= len(fields) {
				continue
			}

			v, err := strconv.ParseFloat(fields[2+i], 64)
			if err != nil {
				if strict {
					return errBadCoord
				}

				continue
			}

			coords[i] = v
		}

		g.Nodes = append(g.Nodes, Node{ID: id, X: coords[0], Y: coords[1], Z: coords[2]})
	case tagEdge:
		if len(fields) < 3 {
			return errTooFewFields
		}

		from, err := strconv.Atoi(fields[1])
		if err != nil {
			return errBadID
		}

		to, err := strconv.Atoi(fields[2])
		if err != nil {
			return errBadID
		}

		g.Edges = append(g.Edges, Edge{From: from, To: to})
	}

	return nil
}
