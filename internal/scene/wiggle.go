package scene

import (
	"math"
	"sync"
	"time"

	"github.com/persistorai/depthcue/internal/models"
)

// Task is a running periodic job.
type Task interface {
	// Stop cancels the job and returns after its last run has finished.
	Stop()
}

// Scheduler runs fn every d until the returned Task is stopped.
type Scheduler interface {
	Every(d time.Duration, fn func()) Task
}

// TickerScheduler runs tasks on a time.Ticker in their own goroutine.
type TickerScheduler struct{}

type tickerTask struct {
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// Every implements Scheduler.
func (TickerScheduler) Every(d time.Duration, fn func()) Task {
	t := &tickerTask{done: make(chan struct{})}
	ticker := time.NewTicker(d)

	t.wg.Add(1)

	go func() {
		defer t.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-t.done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	return t
}

func (t *tickerTask) Stop() {
	t.once.Do(func() { close(t.done) })
	t.wg.Wait()
}

// amplitude returns the wiggle half-angle in radians for a condition.
func amplitude(c models.Condition) float64 {
	switch c {
	case models.ConditionC:
		return 2 * math.Pi / 180
	case models.ConditionD:
		return 5 * math.Pi / 180
	default:
		return 0
	}
}

// startWiggleLocked schedules the oscillation. Ticks from an older
// generation are ignored so a stale tick can never move the scene.
func (v *Viewer) startWiggleLocked() {
	v.wiggleGen++
	gen := v.wiggleGen
	v.wiggleSign = 1
	v.wiggle = v.opts.Scheduler.Every(v.opts.WiggleInterval, func() { v.tick(gen) })
}

// detachWiggleLocked resets the angle and returns a func that stops the
// running task. The caller must invoke it after releasing the lock.
func (v *Viewer) detachWiggleLocked() func() {
	v.angle = 0
	v.wiggleGen++

	task := v.wiggle
	v.wiggle = nil

	if task == nil {
		return func() {}
	}

	return task.Stop
}

func (v *Viewer) tick(gen uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed || gen != v.wiggleGen {
		return
	}

	v.angle = v.wiggleSign * amplitude(v.condition)
	v.wiggleSign = -v.wiggleSign
}

// Angle returns the current wiggle rotation in radians.
func (v *Viewer) Angle() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.angle
}

// Rotating reports whether the oscillation task is running.
func (v *Viewer) Rotating() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.wiggle != nil
}

// PauseRotation stops the oscillation and keeps it stopped across
// condition changes until ResumeRotation.
func (v *Viewer) PauseRotation() error {
	v.mu.Lock()

	if v.destroyed {
		v.mu.Unlock()
		return ErrDestroyed
	}

	v.paused = true
	stop := v.detachWiggleLocked()

	v.mu.Unlock()
	stop()

	return nil
}

// ResumeRotation clears the pause and restarts the oscillation for C and D.
func (v *Viewer) ResumeRotation() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return ErrDestroyed
	}

	v.paused = false
	if v.wiggle == nil && v.condition.Oscillates() {
		v.startWiggleLocked()
	}

	return nil
}

// SetWiggleInterval changes the tick period, restarting a running task.
func (v *Viewer) SetWiggleInterval(d time.Duration) error {
	if d <= 0 {
		d = DefaultWiggleInterval
	}

	v.mu.Lock()

	if v.destroyed {
		v.mu.Unlock()
		return ErrDestroyed
	}

	v.opts.WiggleInterval = d

	stop := func() {}
	if v.wiggle != nil {
		stop = v.detachWiggleLocked()
		v.startWiggleLocked()
	}

	v.mu.Unlock()
	stop()

	return nil
}
