// Package trialset parses trial-set definition tables in either the legacy
// fixed-condition layout or the Latin-square layout.
package trialset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/depthcue/internal/models"
)

// Schema identifies the table layout.
type Schema int

const (
	// SchemaLegacy rows carry a fixed condition:
	// trial_id, task, graph_file, condition, axis_offset, node1, node2[, node_pair_id].
	SchemaLegacy Schema = iota
	// SchemaLatinSquare rows carry a set id and get their condition per participant:
	// node_pair_id, task, graph_file, node1, node2, set_id.
	SchemaLatinSquare
)

func (s Schema) String() string {
	if s == SchemaLatinSquare {
		return "latin-square"
	}

	return "legacy"
}

var (
	legacyColumns = []string{"trial_id", "task", "graph_file", "condition", "axis_offset", "node1", "node2", "node_pair_id"}
	latinColumns  = []string{"node_pair_id", "task", "graph_file", "node1", "node2", "set_id"}

	legacyRequired = []string{"trial_id", "task", "graph_file", "condition", "node1", "node2"}
	latinRequired  = []string{"task", "graph_file", "node1", "node2", "set_id"}

	// headerHints are column-name substrings that mark the first row as a header.
	headerHints = []string{"trial_id", "node_pair_id", "set_id", "graph_file"}
)

// ErrEmpty is returned when the table holds no rows at all.
var ErrEmpty = errors.New("trial set is empty")

var errMissingField = errors.New("row is missing field")

// Definition is a parsed trial-set table.
type Definition struct {
	Schema Schema
	Trials []models.Trial
}

// HasSets reports whether any trial carries an explicit set id.
func (d *Definition) HasSets() bool {
	for _, t := range d.Trials {
		if t.SetID != nil {
			return true
		}
	}

	return false
}

// SplitByTask separates trials into the two task blocks, keeping file order.
func SplitByTask(trials []models.Trial) (taskA, taskB []models.Trial) {
	for _, t := range trials {
		switch t.Task {
		case models.TaskA:
			taskA = append(taskA, t)
		case models.TaskB:
			taskB = append(taskB, t)
		}
	}

	return taskA, taskB
}

// RowError describes a row the strict parser rejected.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *RowError) Unwrap() error { return e.Err }

// Parse reads a trial-set table, skipping bad rows with a warning.
func Parse(r io.Reader, log logrus.FieldLogger) (*Definition, error) {
	return parse(r, log, false)
}

// ParseStrict reads a trial-set table and fails on the first bad row.
func ParseStrict(r io.Reader) (*Definition, error) {
	return parse(r, nil, true)
}

// ParseFile opens path and parses it leniently.
func ParseFile(path string, log logrus.FieldLogger) (*Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trial set: %w", err)
	}
	defer f.Close()

	return Parse(f, log.WithField("trial_set", path))
}

// layout maps column names to field positions for one schema.
type layout struct {
	schema  Schema
	columns map[string]int
}

func (l layout) field(rec []string, name string) string {
	i, ok := l.columns[name]
	if !ok || i >= len(rec) {
		return ""
	}

	return rec[i]
}

func (l layout) required() []string {
	if l.schema == SchemaLatinSquare {
		return latinRequired
	}

	return legacyRequired
}

func positional(schema Schema) layout {
	names := legacyColumns
	if schema == SchemaLatinSquare {
		names = latinColumns
	}

	cols := make(map[string]int, len(names))
	for i, n := range names {
		cols[n] = i
	}

	return layout{schema: schema, columns: cols}
}

func fromHeader(rec []string) (layout, error) {
	cols := make(map[string]int, len(rec))
	for i, name := range rec {
		cols[strings.ToLower(name)] = i
	}

	l := layout{schema: SchemaLegacy, columns: cols}
	required := legacyRequired

	if _, ok := cols["set_id"]; ok {
		l.schema = SchemaLatinSquare
		required = latinRequired
	}

	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return layout{}, fmt.Errorf("header is missing column %q", name)
		}
	}

	return l, nil
}

func isHeader(rec []string) bool {
	for _, field := range rec {
		lower := strings.ToLower(field)
		for _, hint := range headerHints {
			if strings.Contains(lower, hint) {
				return true
			}
		}
	}

	return false
}

func parse(r io.Reader, log logrus.FieldLogger, strict bool) (*Definition, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		lay     layout
		haveLay bool
		def     = &Definition{Trials: []models.Trial{}}
		rows    int
	)

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, fmt.Errorf("reading trial set: %w", err)
			}

			if strict {
				return nil, &RowError{Line: perr.StartLine, Err: perr.Err}
			}

			log.WithError(err).Warn("skipping unreadable trial-set row")

			continue
		}

		line, _ := cr.FieldPos(0)

		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}

		if len(rec) == 1 && rec[0] == "" {
			continue
		}

		rows++

		if !haveLay {
			haveLay = true

			if isHeader(rec) {
				lay, err = fromHeader(rec)
				if err != nil {
					return nil, fmt.Errorf("trial-set header: %w", err)
				}

				continue
			}

			if len(rec) == len(latinColumns) {
				lay = positional(SchemaLatinSquare)
			} else {
				lay = positional(SchemaLegacy)
			}
		}

		trial, err := lay.trial(rec, line)
		if err != nil {
			if strict {
				return nil, &RowError{Line: line, Err: err}
			}

			log.WithFields(logrus.Fields{"line": line, "row": strings.Join(rec, ",")}).WithError(err).Warn("skipping trial-set row")

			continue
		}

		def.Trials = append(def.Trials, trial)
	}

	if rows == 0 {
		return nil, ErrEmpty
	}

	def.Schema = lay.schema

	return def, nil
}

func (l layout) trial(rec []string, line int) (models.Trial, error) {
	for _, name := range l.required() {
		if l.columns[name] >= len(rec) {
			return models.Trial{}, fmt.Errorf("%w: %s", errMissingField, name)
		}
	}

	t := models.Trial{
		TrialID:    l.field(rec, "trial_id"),
		Task:       models.TaskType(strings.ToUpper(l.field(rec, "task"))),
		GraphFile:  l.field(rec, "graph_file"),
		NodePairID: l.field(rec, "node_pair_id"),
	}

	var err error

	if t.Node1, err = strconv.Atoi(l.field(rec, "node1")); err != nil {
		return models.Trial{}, fmt.Errorf("node1: %w", err)
	}

	if t.Node2, err = strconv.Atoi(l.field(rec, "node2")); err != nil {
		return models.Trial{}, fmt.Errorf("node2: %w", err)
	}

	if raw := l.field(rec, "axis_offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return models.Trial{}, fmt.Errorf("axis_offset: %w", err)
		}

		t.AxisOffset = models.AxisOffset(offset)
	}

	switch l.schema {
	case SchemaLegacy:
		t.Condition = models.Condition(strings.ToUpper(l.field(rec, "condition")))
		if t.Condition == "" {
			return models.Trial{}, models.ErrInvalidCondition
		}
	case SchemaLatinSquare:
		if raw := l.field(rec, "set_id"); raw != "" {
			set, err := strconv.Atoi(raw)
			if err != nil {
				return models.Trial{}, fmt.Errorf("set_id: %w", err)
			}

			t = t.WithSet(set)
		}

		if t.TrialID == "" {
			t.TrialID = t.NodePairID
		}

		if t.TrialID == "" {
			t.TrialID = fmt.Sprintf("t%s_line%d", t.Task, line)
		}
	}

	if err := t.Validate(); err != nil {
		return models.Trial{}, err
	}

	return t, nil
}
