// Package ratelimit implements token-bucket admission control with a
// priority wait queue. The queue's FIFO-within-priority tier is built on
// the github.com/eapache/queue dependency (previously used only by
// internal/concurrency.Executor's task queue); the limiter itself is
// driven externally by ticks, not a free-running goroutine, so it stays a
// pure, lock-protected data structure, separating state from whatever
// drives it the way control.MetricsRegistry separates its counters from
// whatever calls Set on it.
// Author: momentics <momentics@gmail.com>
package ratelimit

import (
	"sync"
	"time"

	"github.com/eapache/queue"

	"github.com/momentics/wsconnect/api"
)

// Mode selects the admission policy.
type Mode int

const (
	ModeNormal Mode = iota
	ModeAlwaysAllow
	ModeAlwaysQueue
	ModeAlwaysReject
)

// Action is the outcome of Check.
type Action int

const (
	ActionAllow Action = iota
	ActionQueue
	ActionReject
)

// Request is one admission-control request. ID is opaque to the limiter;
// it exists purely so a caller (ConnectionRuntime) can correlate a request
// handed back by Tick with whatever payload it originally queued alongside
// it.
type Request struct {
	Kind     api.RequestKind
	Priority int // higher values are serviced first within the wait queue
	ID       string
}

// Decision is the return value of Check.
type Decision struct {
	Action Action
	Reason error // set when Action == ActionReject
}

// Config configures a Limiter at construction.
type Config struct {
	Capacity       int
	RefillRate     int // tokens granted per RefillInterval
	RefillInterval time.Duration
	QueueLimit     int
	CostMap        map[api.RequestKind]int
	Mode           Mode
}

// Limiter is the token-bucket admission controller. All exported methods
// are safe for concurrent use; callers (ConnectionRuntime) are still
// expected to serialize their own request submission since the wait queue
// must preserve caller-observed FIFO order.
type Limiter struct {
	mu sync.Mutex

	capacity       int
	tokens         int
	refillRate     int
	refillInterval time.Duration
	lastRefill     time.Time
	queueLimit     int
	costMap        map[api.RequestKind]int
	mode           Mode

	// queues holds one FIFO per distinct priority observed so far; queue
	// order within a priority is preserved by eapache/queue's ring buffer.
	queues     map[int]*queue.Queue
	priorities []int // kept sorted descending; rebuilt lazily on demand
	queued     int
}

// New constructs a Limiter with tokens initialized to full capacity.
func New(cfg Config) *Limiter {
	if cfg.CostMap == nil {
		cfg.CostMap = map[api.RequestKind]int{}
	}
	return &Limiter{
		capacity:       cfg.Capacity,
		tokens:         cfg.Capacity,
		refillRate:     cfg.RefillRate,
		refillInterval: cfg.RefillInterval,
		lastRefill:     time.Now(),
		queueLimit:     cfg.QueueLimit,
		costMap:        cfg.CostMap,
		mode:           cfg.Mode,
		queues:         make(map[int]*queue.Queue),
	}
}

// Cost returns the configured cost of a request kind, defaulting to 1.
func (l *Limiter) Cost(kind api.RequestKind) int {
	if c, ok := l.costMap[kind]; ok {
		return c
	}
	return 1
}

// Tokens reports the current token count (for tests/metrics).
func (l *Limiter) Tokens() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tokens
}

// QueueLen reports the total number of requests currently waiting.
func (l *Limiter) QueueLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queued
}

// Check admits, queues, or rejects a request.
func (l *Limiter) Check(req Request) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.mode {
	case ModeAlwaysAllow:
		l.debit(req)
		return Decision{Action: ActionAllow}
	case ModeAlwaysReject:
		return Decision{Action: ActionReject, Reason: api.ErrRateLimited}
	case ModeAlwaysQueue:
		return l.tryEnqueue(req)
	}

	cost := l.Cost(req.Kind)
	if l.tokens >= cost {
		l.tokens -= cost
		return Decision{Action: ActionAllow}
	}
	return l.tryEnqueue(req)
}

func (l *Limiter) debit(req Request) {
	cost := l.Cost(req.Kind)
	l.tokens -= cost
	if l.tokens < 0 {
		l.tokens = 0
	}
}

func (l *Limiter) tryEnqueue(req Request) Decision {
	if l.queued >= l.queueLimit {
		return Decision{Action: ActionReject, Reason: api.ErrQueueFull}
	}
	q, ok := l.queues[req.Priority]
	if !ok {
		q = queue.New()
		l.queues[req.Priority] = q
		l.priorities = append(l.priorities, req.Priority)
		sortDesc(l.priorities)
	}
	q.Add(req)
	l.queued++
	return Decision{Action: ActionQueue}
}

// Tick refills tokens proportional to elapsed time (integer-truncated,
// never over-filling capacity) and, if the head of the wait queue can now
// be afforded, pops and returns it for processing.
func (l *Limiter) Tick(now time.Time) (processed *Request) {
	l.mu.Lock()
	defer l.mu.Unlock()

	elapsed := now.Sub(l.lastRefill)
	if elapsed > 0 && l.refillInterval > 0 && l.refillRate > 0 {
		added := int(elapsed.Milliseconds()) * l.refillRate / int(l.refillInterval.Milliseconds())
		if added > 0 {
			l.tokens += added
			if l.tokens > l.capacity {
				l.tokens = l.capacity
			}
			// Only the duration actually consumed by added tokens advances
			// lastRefill; the truncated remainder carries forward so a
			// refill rate slower than the tick interval still accumulates
			// across ticks instead of losing it every time.
			consumed := time.Duration(added) * l.refillInterval / time.Duration(l.refillRate)
			l.lastRefill = l.lastRefill.Add(consumed)
		}
	}

	for _, p := range l.priorities {
		q := l.queues[p]
		if q == nil || q.Length() == 0 {
			continue
		}
		head := q.Peek().(Request)
		cost := l.Cost(head.Kind)
		if l.tokens < cost {
			return nil
		}
		q.Remove()
		l.queued--
		l.tokens -= cost
		return &head
	}
	return nil
}

func sortDesc(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] < s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
