package graph

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/persistorai/depthcue/internal/metrics"
)

// Library reads graph files below a root directory and keeps every parsed
// graph in memory. Concurrent loads of the same file share one parse.
//
// Cached graphs are shared between callers and must be treated as read-only.
type Library struct {
	root  string
	log   logrus.FieldLogger
	cache sync.Map // cleaned path -> *Graph
	group singleflight.Group
	size  atomic.Int64
}

// NewLibrary returns a Library rooted at root.
func NewLibrary(root string, log logrus.FieldLogger) *Library {
	return &Library{root: root, log: log}
}

// Path resolves file below the root. Leading slashes and ".." segments can
// never escape it.
func (l *Library) Path(file string) string {
	return filepath.Join(l.root, filepath.Clean("/"+strings.TrimSpace(file)))
}

// Graph returns the parsed graph for file, loading it on first use.
func (l *Library) Graph(ctx context.Context, file string) (*Graph, error) {
	key := l.Path(file)

	if cached, ok := l.cache.Load(key); ok {
		return cached.(*Graph), nil
	}

	ch := l.group.DoChan(key, func() (any, error) {
		// Double-check after winning the singleflight race.
		if cached, ok := l.cache.Load(key); ok {
			return cached, nil
		}

		g, err := ParseFile(key, l.log)
		if err != nil {
			return nil, err
		}

		if _, loaded := l.cache.LoadOrStore(key, g); !loaded {
			metrics.GraphCacheEntries.Set(float64(l.size.Add(1)))
		}

		return g, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("loading graph %s: %w", file, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		return res.Val.(*Graph), nil
	}
}

// Forget drops file from the cache so the next call re-reads it.
func (l *Library) Forget(file string) {
	if _, ok := l.cache.LoadAndDelete(l.Path(file)); ok {
		metrics.GraphCacheEntries.Set(float64(l.size.Add(-1)))
	}
}

// Len returns the number of cached graphs.
func (l *Library) Len() int { return int(l.size.Load()) }
