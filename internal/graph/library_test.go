package graph_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/persistorai/depthcue/internal/graph"
)

func writeGraph(t *testing.T, dir, name, body string) {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLibrary_CachesParsedGraph(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeGraph(t, dir, "graphs/g1.csv", "N,0,0,0,0\nN,1,1,0,0\nE,0,1\n")

	lib := graph.NewLibrary(dir, testLogger())
	ctx := context.Background()

	var (
		wg  sync.WaitGroup
		got [8]*graph.Graph
	)

	for i := range got {
		wg.Add(1)

		go func() {
			defer wg.Done()

			g, err := lib.Graph(ctx, "/graphs/g1.csv")
			if err != nil {
				t.Error(err)
				return
			}

			got[i] = g
		}()
	}

	wg.Wait()

	for i := range got {
		if got[i] == nil || got[i] != got[0] {
			t.Fatalf("load %d returned a different graph", i)
		}
	}

	if len(got[0].Nodes) != 2 || len(got[0].Edges) != 1 {
		t.Errorf("graph = %+v", got[0])
	}

	if lib.Len() != 1 {
		t.Errorf("Len() = %d, want 1", lib.Len())
	}

	// The file is gone but the cached copy still serves.
	if err := os.Remove(filepath.Join(dir, "graphs/g1.csv")); err != nil {
		t.Fatal(err)
	}

	if _, err := lib.Graph(ctx, "graphs/g1.csv"); err != nil {
		t.Errorf("cached load: %v", err)
	}

	lib.Forget("graphs/g1.csv")

	if _, err := lib.Graph(ctx, "graphs/g1.csv"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("after Forget err = %v, want not exist", err)
	}
}

func TestLibrary_PathStaysBelowRoot(t *testing.T) {
	t.Parallel()

	lib := graph.NewLibrary("/srv/public", testLogger())

	for in, want := range map[string]string{
		"graphs/a.csv":       "/srv/public/graphs/a.csv",
		"/graphs/a.csv":      "/srv/public/graphs/a.csv",
		"../../etc/passwd":   "/srv/public/etc/passwd",
		"graphs/../../x.csv": "/srv/public/x.csv",
		"  graphs/b.csv  ":   "/srv/public/graphs/b.csv",
	} {
		if got := lib.Path(in); got != want {
			t.Errorf("Path(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLibrary_CancelledContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeGraph(t, dir, "g.csv", "N,0,0,0,0\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lib := graph.NewLibrary(dir, testLogger())

	// Either the parse wins the race or the cancellation does; both are valid
	// but a cancelled load must report the context error.
	if _, err := lib.Graph(ctx, "g.csv"); err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}
