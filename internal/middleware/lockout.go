package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	lockoutMaxAttempts = 5
	lockoutWindow      = 15 * time.Minute
	lockoutDuration    = 5 * time.Minute
	lockoutCleanup     = 60 * time.Second
	lockoutMaxRecords  = 10_000
)

type failureRecord struct {
	attempts  int
	firstFail time.Time
	lockedAt  time.Time
}

// LockoutGuard counts failed operator-token attempts per client IP and locks
// out clients that fail too often within the tracking window.
type LockoutGuard struct {
	mu      sync.Mutex
	records map[string]*failureRecord
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewLockoutGuard creates a guard and starts a background cleanup goroutine
// that stops when ctx is cancelled.
func NewLockoutGuard(ctx context.Context, log logrus.FieldLogger) *LockoutGuard {
	g := &LockoutGuard{
		records: make(map[string]*failureRecord),
		log:     log,
		now:     time.Now,
	}
	go g.cleanupLoop(ctx)

	return g
}

// IsBlocked reports whether client is currently locked out.
func (g *LockoutGuard) IsBlocked(client string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[client]
	if !ok || rec.lockedAt.IsZero() {
		return false
	}

	return g.now().Sub(rec.lockedAt) < lockoutDuration
}

// RecordFailure counts one failed attempt for client.
func (g *LockoutGuard) RecordFailure(client string) {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[client]
	if !ok || now.Sub(rec.firstFail) > lockoutWindow {
		if !ok && len(g.records) >= lockoutMaxRecords {
			g.evictOldestLocked()
		}

		g.records[client] = &failureRecord{attempts: 1, firstFail: now}

		return
	}

	rec.attempts++
	if rec.attempts >= lockoutMaxAttempts && rec.lockedAt.IsZero() {
		rec.lockedAt = now
		g.log.WithField("client_ip", client).Warn("client locked out after repeated operator auth failures")
	}
}

// Reset clears the failure history of client.
func (g *LockoutGuard) Reset(client string) {
	g.mu.Lock()
	delete(g.records, client)
	g.mu.Unlock()
}

func (g *LockoutGuard) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(lockoutCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sweep()
		}
	}
}

func (g *LockoutGuard) sweep() {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	for k, rec := range g.records {
		expiredLock := !rec.lockedAt.IsZero() && now.Sub(rec.lockedAt) >= lockoutDuration
		staleWindow := rec.lockedAt.IsZero() && now.Sub(rec.firstFail) >= lockoutWindow

		if expiredLock || staleWindow {
			delete(g.records, k)
		}
	}
}

// evictOldestLocked drops the record with the oldest first failure.
// Caller must hold g.mu.
func (g *LockoutGuard) evictOldestLocked() {
	var (
		oldestKey  string
		oldestTime time.Time
	)

	for k, rec := range g.records {
		if oldestKey == "" || rec.firstFail.Before(oldestTime) {
			oldestKey, oldestTime = k, rec.firstFail
		}
	}

	delete(g.records, oldestKey)
}
