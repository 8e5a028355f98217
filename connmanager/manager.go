// Package connmanager implements the ConnectionManager state machine: the
// seven-state lifecycle, its valid transitions, terminal-error
// classification, and the reconnection decision. Adapted from small,
// single-purpose state holders like control.MetricsRegistry and
// control.DebugProbes: a mutex-guarded struct with a handful of pure
// decision methods, no goroutines of its own. ConnectionRuntime drives it.
// Author: momentics <momentics@gmail.com>
package connmanager

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/momentics/wsconnect/api"
	"github.com/momentics/wsconnect/backoff"
)

// validTransitions enumerates every non-error edge in the lifecycle. Any
// state may additionally transition to StateError; that edge is handled
// separately in Transition rather than listed here.
var validTransitions = map[api.ConnState][]api.ConnState{
	api.StateInitialized:       {api.StateConnecting},
	api.StateConnecting:        {api.StateConnected, api.StateDisconnected},
	api.StateConnected:         {api.StateWebSocketConnected, api.StateDisconnected},
	api.StateWebSocketConnected: {api.StateDisconnected},
	api.StateDisconnected:      {api.StateReconnecting, api.StateConnecting},
	api.StateReconnecting:      {api.StateConnecting, api.StateDisconnected},
	api.StateError:             {}, // terminal
}

// Manager owns the transition/reconnection decisions for one connection's
// ConnectionState. It holds no transport reference itself; that lives on
// the ConnectionState the caller passes in.
type Manager struct {
	mu       sync.Mutex
	attempts int
	strategy backoff.Strategy
}

// New constructs a Manager driven by the given ReconnectionStrategy.
func New(strategy backoff.Strategy) *Manager {
	return &Manager{strategy: strategy}
}

// Attempts reports the number of reconnection attempts made so far.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Transition validates and applies a state transition, running the entry
// side effects (reset attempts on connected, record last_error on
// disconnected/error). Invalid transitions leave state unchanged and
// return api.ErrInvalidTransition, except every state may transition to
// StateError.
func (m *Manager) Transition(state *api.ConnectionState, to api.ConnState, reason error) error {
	from := state.Status
	if to != api.StateError {
		allowed := validTransitions[from]
		ok := false
		for _, s := range allowed {
			if s == to {
				ok = true
				break
			}
		}
		if !ok {
			return api.ErrInvalidTransition
		}
	}

	state.Status = to
	switch to {
	case api.StateConnected:
		m.mu.Lock()
		m.attempts = 0
		m.mu.Unlock()
	case api.StateDisconnected:
		if reason != nil {
			state.LastError = reason
		}
	case api.StateError:
		if reason != nil {
			state.LastError = reason
		}
	}
	return nil
}

// HandleReconnection implements the reconnection decision ladder:
//  1. status already error -> terminal.
//  2. last observed error is terminal -> transition to error, terminal.
//  3. attempts exhausted -> transition to error, max_attempts_reached.
//  4. otherwise compute the next delay, bump attempts, and move to
//     reconnecting.
func (m *Manager) HandleReconnection(state *api.ConnectionState) (delayMs int64, err error) {
	if state.Status == api.StateError {
		return 0, api.ErrTerminalError
	}
	if api.ClassifyError(state.LastError) {
		_ = m.Transition(state, api.StateError, errors.New("terminal_error"))
		return 0, api.ErrTerminalError
	}

	m.mu.Lock()
	attempt := m.attempts + 1
	max := m.strategy.MaxRetries()
	m.mu.Unlock()

	if max >= 0 && attempt > max {
		_ = m.Transition(state, api.StateError, api.ErrMaxAttemptsReached)
		return 0, api.ErrMaxAttemptsReached
	}

	delay := m.strategy.Delay(attempt)
	m.mu.Lock()
	m.attempts = attempt
	m.mu.Unlock()
	if err := m.Transition(state, api.StateReconnecting, nil); err != nil {
		return 0, err
	}
	return delay, nil
}

// Dialer opens a transport; StartConnection bounds it to a 5s deadline.
type Dialer func(ctx context.Context) (api.Transport, error)

// StartConnection transitions to connecting, dials with a bounded deadline,
// and on success installs the transport and marks it monitored. On any
// failure it transitions to error with the dial reason.
func (m *Manager) StartConnection(state *api.ConnectionState, dial Dialer) error {
	if err := m.Transition(state, api.StateConnecting, nil); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	transport, err := dial(ctx)
	if err != nil {
		_ = m.Transition(state, api.StateError, err)
		return err
	}

	state.Transport = transport
	state.Monitored = true
	return nil
}
