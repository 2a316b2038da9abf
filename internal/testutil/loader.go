package testutil

import (
	"fmt"
	"sync"
)

// ManualLoader is an image loader whose loads complete only when the test
// says so.
//
// Load records the request; Complete, Fail and CompleteAll invoke the stored
// callbacks synchronously on the calling goroutine. With AutoComplete set,
// loads succeed immediately inside Load.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualLoader struct {
	mu           sync.Mutex
	pending      map[string][]func(error)
	requests     []string
	AutoComplete bool
	// Failing paths fail whenever they are completed automatically.
	Failing map[string]bool
}

// NewManualLoader creates an empty loader.
func NewManualLoader() *ManualLoader {
	return &ManualLoader{pending: make(map[string][]func(error))}
}

// Load records a request.
func (l *ManualLoader) Load(path string, done func(error)) {
	l.mu.Lock()
	l.requests = append(l.requests, path)
	auto := l.AutoComplete
	if !auto {
		l.pending[path] = append(l.pending[path], done)
	}
	l.mu.Unlock()

	if auto {
		done(l.resultFor(path))
	}
}

// Requests returns every requested path in request order.
func (l *ManualLoader) Requests() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.requests))
	copy(out, l.requests)
	return out
}

// Pending returns the number of outstanding loads.
func (l *ManualLoader) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, cbs := range l.pending {
		n += len(cbs)
	}
	return n
}

// Complete finishes every outstanding load of path successfully.
// It reports whether any load was outstanding.
func (l *ManualLoader) Complete(path string) bool {
	return l.finish(path, nil)
}

// Fail finishes every outstanding load of path with an error.
func (l *ManualLoader) Fail(path string) bool {
	return l.finish(path, fmt.Errorf("load %s: simulated failure", path))
}

// CompleteAll finishes every outstanding load, failing those in Failing.
func (l *ManualLoader) CompleteAll() int {
	l.mu.Lock()
	var paths []string
	for _, p := range l.requests {
		if len(l.pending[p]) > 0 && !containsString(paths, p) {
			paths = append(paths, p)
		}
	}
	l.mu.Unlock()

	n := 0
	for _, p := range paths {
		if l.finish(p, l.resultFor(p)) {
			n++
		}
	}
	return n
}

func (l *ManualLoader) resultFor(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Failing[path] {
		return fmt.Errorf("load %s: simulated failure", path)
	}
	return nil
}

func (l *ManualLoader) finish(path string, err error) bool {
	l.mu.Lock()
	cbs := l.pending[path]
	delete(l.pending, path)
	l.mu.Unlock()

	for _, done := range cbs {
		done(err)
	}
	return len(cbs) > 0
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
