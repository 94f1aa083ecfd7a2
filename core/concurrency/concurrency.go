// Package concurrency implements the client's three-layer locking
// protocol: a SyncLock coalesces concurrent state-sync requests into a
// single in-flight round, a WriteLock serializes store mutation across
// threads and processes sharing the same store file, and a CoreLock
// guards in-process bookkeeping shared by the sync and transaction
// engines. Callers must only ever acquire them in that order. Guard's
// WithWriteAndCore fixes the write-then-core part of it; the sync engine
// holds its own SyncLock while it calls into the guarded store.
package concurrency

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"miden-client/core/errs"
)

// goroutineID derives a stable identifier for the calling goroutine from
// its runtime stack trace, so WithWriteAndCore callers do not need to
// thread an explicit id through every call site the way CoreLock.Lock
// and Unlock still require for direct, test-level use.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// inFlightSync is the shared result of a sync round that other callers
// who arrive while one is in progress wait on, instead of starting a
// second redundant round.
type inFlightSync struct {
	done chan struct{}
	err  error
}

// SyncLock coalesces concurrent calls to the sync engine: the first
// caller performs the round, later callers block on its result.
type SyncLock struct {
	mu      sync.Mutex
	current *inFlightSync
}

// Do runs fn if no sync round is currently in flight, otherwise waits
// for the in-flight round and returns its error.
func (s *SyncLock) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	if s.current != nil {
		waiting := s.current
		s.mu.Unlock()
		select {
		case <-waiting.done:
			return waiting.err
		case <-ctx.Done():
			return errs.ErrCancelled
		}
	}
	inFlight := &inFlightSync{done: make(chan struct{})}
	s.current = inFlight
	s.mu.Unlock()

	err := fn(ctx)

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	inFlight.err = err
	close(inFlight.done)
	return err
}

// WriteLock serializes mutation of a single store file both across
// goroutines in this process (via mu) and across processes sharing the
// same store path (via an exclusive sentinel file), and notifies this
// process of external changes to the store via fsnotify so a stale
// in-memory view can be invalidated.
type WriteLock struct {
	path       string
	mu         sync.Mutex
	lockFile   *os.File
	watcher    *fsnotify.Watcher
	logger     *logrus.Logger
	closeOnce  sync.Once
	changeChan chan struct{}
}

// NewWriteLock prepares a write lock over the store at path. The
// lock's sentinel file lives alongside the store file as path+".lock".
func NewWriteLock(path string, logger *logrus.Logger) (*WriteLock, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("concurrency: new watcher: %w", err)
	}
	wl := &WriteLock{
		path:       path + ".lock",
		logger:     logger,
		watcher:    watcher,
		changeChan: make(chan struct{}, 1),
	}
	go wl.watch()
	return wl, nil
}

func (w *WriteLock) watch() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				select {
				case w.changeChan <- struct{}{}:
				default:
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnf("write lock watcher error: %v", err)
		}
	}
}

// Changed returns a channel that receives a value whenever another
// process or goroutine has written to the watched store directory.
func (w *WriteLock) Changed() <-chan struct{} { return w.changeChan }

// Acquire takes the in-process mutex then the cross-process sentinel
// file, returning errs.ErrLocked if another process already holds it.
func (w *WriteLock) Acquire() (func(), error) {
	w.mu.Lock()
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		w.mu.Unlock()
		if os.IsExist(err) {
			return nil, errs.ErrLocked
		}
		return nil, fmt.Errorf("concurrency: acquire write lock: %w", err)
	}
	w.lockFile = f
	release := func() {
		_ = w.lockFile.Close()
		_ = os.Remove(w.path)
		w.lockFile = nil
		w.mu.Unlock()
	}
	return release, nil
}

// WatchDir arranges for Changed to fire when the directory containing
// the store changes; it is separate from Acquire because the watch
// should survive across many individual lock/release cycles.
func (w *WriteLock) WatchDir(dir string) error {
	return w.watcher.Add(dir)
}

// Close stops the background watcher goroutine.
func (w *WriteLock) Close() error {
	var err error
	w.closeOnce.Do(func() { err = w.watcher.Close() })
	return err
}

// CoreLock guards in-process bookkeeping shared between the sync
// engine and the transaction lifecycle engine (pending pool, tracked
// accounts), with a re-entrancy guard so a single goroutine holding it
// can recursively call back into a method that also acquires it.
type CoreLock struct {
	mu      sync.Mutex
	holders map[int64]int
	holdMu  sync.Mutex
}

// NewCoreLock returns a ready-to-use core lock.
func NewCoreLock() *CoreLock {
	return &CoreLock{holders: make(map[int64]int)}
}

// Lock acquires the core lock for the calling goroutine, identified by
// gid. A goroutine that already holds the lock may call Lock again
// without deadlocking; it must call Unlock the same number of times.
func (c *CoreLock) Lock(gid int64) {
	c.holdMu.Lock()
	depth := c.holders[gid]
	c.holdMu.Unlock()
	if depth > 0 {
		c.holdMu.Lock()
		c.holders[gid]++
		c.holdMu.Unlock()
		return
	}
	c.mu.Lock()
	c.holdMu.Lock()
	c.holders[gid] = 1
	c.holdMu.Unlock()
}

// Unlock releases one level of the calling goroutine's hold.
func (c *CoreLock) Unlock(gid int64) {
	c.holdMu.Lock()
	depth := c.holders[gid]
	if depth <= 1 {
		delete(c.holders, gid)
		c.holdMu.Unlock()
		c.mu.Unlock()
		return
	}
	c.holders[gid] = depth - 1
	c.holdMu.Unlock()
}

// Guard groups the three layers for one store. Its WithWriteAndCore
// takes WriteLock before CoreLock so two call sites can never deadlock
// by acquiring those two in different orders; no Guard method takes
// the Sync layer.
type Guard struct {
	Sync  *SyncLock
	Write *WriteLock
	Core  *CoreLock
}

// NewGuard wires the three layers together for a single store.
func NewGuard(storePath string, logger *logrus.Logger) (*Guard, error) {
	wl, err := NewWriteLock(storePath, logger)
	if err != nil {
		return nil, err
	}
	return &Guard{
		Sync:  &SyncLock{},
		Write: wl,
		Core:  NewCoreLock(),
	}, nil
}

// Close releases the guard's background resources (currently just the
// write lock's filesystem watcher).
func (g *Guard) Close() error { return g.Write.Close() }

// WithWriteAndCore runs fn while holding the write lock and then the
// core lock, in that fixed order, and releases both regardless of
// whether fn returns an error. Every store mutation path (state sync
// application, transaction application, account creation/import, tag
// mutation) must route through this so two layers never acquire the
// locks in conflicting orders. It is not re-entrant: a nested call from
// inside fn blocks on the write lock's mutex, since only the core lock
// lets the same goroutine acquire it again.
func (g *Guard) WithWriteAndCore(fn func() error) error {
	release, err := g.Write.Acquire()
	if err != nil {
		return err
	}
	defer release()

	gid := goroutineID()
	g.Core.Lock(gid)
	defer g.Core.Unlock(gid)

	return fn()
}
