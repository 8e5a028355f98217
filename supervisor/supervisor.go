// Package supervisor implements transient restart of a connection runtime
// on abnormal termination, bounded by a sliding-window restart budget
// (max_restarts within max_seconds), with a registry mapping stable
// connection IDs to the runtime currently serving them. Adapted from
// internal/concurrency.Executor's worker-dispatch loop: one goroutine per
// supervised connection, driven by a submitted-task queue built on
// eapache/queue rather than raw `go func()` restart calls, so a restart
// storm is bounded by the same admission discipline the rate limiter uses
// elsewhere in this codebase.
// Author: momentics <momentics@gmail.com>
package supervisor

import (
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/sirupsen/logrus"

	"github.com/momentics/wsconnect/runtime"
)

// Factory builds and starts a fresh Runtime for the stable connection id.
// Supervisor calls it both for the initial Supervise and for every restart.
type Factory func(id string) (*runtime.Runtime, error)

// RestartPolicy bounds how many restarts a connection may consume within a
// trailing window before Supervisor gives up on it permanently.
type RestartPolicy struct {
	MaxRestarts int
	MaxSeconds  int
}

type restartTask struct{}

// Supervisor owns one command queue and one watcher goroutine per
// supervised connection ID.
type Supervisor struct {
	Registry *Registry

	factory Factory
	policy  RestartPolicy

	mu     sync.Mutex
	window map[string][]time.Time
	queues map[string]*queue.Queue
	wake   map[string]chan struct{}
	stop   map[string]chan struct{}
}

// New constructs a Supervisor. factory is called to (re)build a Runtime for
// a given stable ID; policy bounds the restart budget per ID.
func New(factory Factory, policy RestartPolicy) *Supervisor {
	return &Supervisor{
		Registry: NewRegistry(),
		factory:  factory,
		policy:   policy,
		window:   make(map[string][]time.Time),
		queues:   make(map[string]*queue.Queue),
		wake:     make(map[string]chan struct{}),
		stop:     make(map[string]chan struct{}),
	}
}

// Supervise registers an already-started rt under id and begins watching
// it for permanent failure (rt.Done()). Call this once per stable ID; a
// second call for the same ID replaces the watched Runtime without
// disturbing its restart-budget window.
func (s *Supervisor) Supervise(id string, rt *runtime.Runtime) {
	s.Registry.put(id, rt)
	s.ensureLoop(id)
	go s.watch(id, rt)
}

// Stop ends supervision of id: the watcher and dispatch goroutines exit and
// no further restarts are attempted. The currently registered Runtime (if
// any) is left running and stays registered; client.Client.Close calls Stop
// and then closes that Runtime.
func (s *Supervisor) Stop(id string) {
	s.mu.Lock()
	stop, ok := s.stop[id]
	if ok {
		delete(s.stop, id)
		delete(s.wake, id)
		delete(s.queues, id)
		delete(s.window, id)
	}
	s.mu.Unlock()
	if ok {
		close(stop)
	}
}

func (s *Supervisor) ensureLoop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queues[id]; ok {
		return
	}
	s.queues[id] = queue.New()
	s.wake[id] = make(chan struct{}, 1)
	s.stop[id] = make(chan struct{})
	go s.dispatchLoop(id)
}

func (s *Supervisor) watch(id string, rt *runtime.Runtime) {
	stop := s.stopOf(id)
	if stop == nil {
		return
	}
	select {
	case <-rt.Done():
		s.submit(id)
	case <-stop:
	}
}

func (s *Supervisor) submit(id string) {
	s.mu.Lock()
	q, ok := s.queues[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	q.Add(restartTask{})
	wake := s.wake[id]
	s.mu.Unlock()

	select {
	case wake <- struct{}{}:
	default:
	}
}

func (s *Supervisor) dispatchLoop(id string) {
	wake := s.wakeOf(id)
	stop := s.stopOf(id)
	if wake == nil || stop == nil {
		return
	}
	for {
		select {
		case <-wake:
			s.drain(id)
		case <-stop:
			return
		}
	}
}

func (s *Supervisor) drain(id string) {
	for {
		s.mu.Lock()
		q, ok := s.queues[id]
		if !ok || q.Length() == 0 {
			s.mu.Unlock()
			return
		}
		q.Remove()
		s.mu.Unlock()
		s.restart(id)
	}
}

// restart applies the restart budget, then rebuilds and restarts the
// connection's Runtime on success. On exhaustion the connection is marked
// permanently down in the Registry and never retried again.
func (s *Supervisor) restart(id string) {
	if !s.allow(id) {
		s.Registry.markDown(id)
		logrus.WithField("conn_id", id).Warn("restart budget exhausted, connection permanently down")
		return
	}

	// factory both builds and starts the Runtime (see the Factory doc
	// comment); a second Start call here would race a fresh run() goroutine
	// against the one factory already launched.
	rt, err := s.factory(id)
	if err != nil {
		logrus.WithField("conn_id", id).WithError(err).Warn("restart failed to build runtime")
		return
	}

	s.Registry.put(id, rt)
	go s.watch(id, rt)
	logrus.WithField("conn_id", id).Info("connection restarted")
}

// allow reports whether id may consume another restart right now, recording
// the attempt if so. The window is a plain slice pruned to the trailing
// MaxSeconds on every call. Restart volume is low enough that this stays
// cheap without a dedicated ring buffer.
func (s *Supervisor) allow(id string) bool {
	now := time.Now()
	cutoff := now.Add(-time.Duration(s.policy.MaxSeconds) * time.Second)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.window[id][:0]
	for _, t := range s.window[id] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= s.policy.MaxRestarts {
		s.window[id] = kept
		return false
	}
	s.window[id] = append(kept, now)
	return true
}

func (s *Supervisor) wakeOf(id string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wake[id]
}

func (s *Supervisor) stopOf(id string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop[id]
}
