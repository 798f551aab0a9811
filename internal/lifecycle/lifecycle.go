// Package lifecycle implements spec.md §4.9: interrupt/terminate signal
// handling, a poll-based accept loop, a bounded table of named shutdown
// hooks, and the final join of the global thread pool. The teacher
// (go-dws) has no server lifecycle of its own — a script runs to
// completion and the process exits — so this is grounded instead on
// kube-state-metrics' `oklog/run` actor-group wiring in
// pkg/app/server.go, where a signal-watcher actor and one actor per
// long-running loop are registered as (execute, interrupt) pairs and run
// together until the first one returns.
package lifecycle

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/candela-lang/candela/internal/pool"
	"github.com/oklog/run"
)

// maxShutdownHooks bounds the named shutdown-hook table (spec.md §4.9:
// "a bounded table (default 16)").
const maxShutdownHooks = 16

// Lifecycle owns the shutdown-requested flag, the shutdown-hook table,
// and the accept-loop poll interval. One Lifecycle is created per
// process; cmd/candela's compare --serve-metrics wires it in.
type Lifecycle struct {
	shutdownRequested atomic.Bool

	mu        sync.Mutex
	hookOrder []string
	hooks     map[string]func()

	pool         *pool.Pool
	pollInterval time.Duration
}

// New ignores broken-pipe (spec.md §4.9) and returns a Lifecycle ready to
// have hooks registered and Run called; interrupt/terminate handling is
// installed by Run. p may be nil if no pool was ever created
// (no future/agent/pmap call happened).
func New(p *pool.Pool) *Lifecycle {
	signal.Ignore(syscall.SIGPIPE)
	return &Lifecycle{
		hooks:        map[string]func(){},
		pool:         p,
		pollInterval: time.Second,
	}
}

// RegisterHook adds a named shutdown hook run (in registration order)
// during graceful exit. It errors once the table is full, or if name is
// already registered.
func (l *Lifecycle) RegisterHook(name string, fn func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.hooks[name]; exists {
		return fmt.Errorf("shutdown hook %q already registered", name)
	}
	if len(l.hooks) >= maxShutdownHooks {
		return fmt.Errorf("too many shutdown hooks registered (max %d)", maxShutdownHooks)
	}
	l.hooks[name] = fn
	l.hookOrder = append(l.hookOrder, name)
	return nil
}

// RequestShutdown sets the shutdown-requested flag the accept loop
// polls; used directly by tests and by the signal-watcher actor.
func (l *Lifecycle) RequestShutdown() { l.shutdownRequested.Store(true) }

// ShutdownRequested reports whether a shutdown has been requested.
func (l *Lifecycle) ShutdownRequested() bool { return l.shutdownRequested.Load() }

// runHooks runs every registered hook in registration order, swallowing
// individual hook panics is explicitly NOT done here — a hook that
// panics during shutdown should surface, not be hidden.
func (l *Lifecycle) runHooks() {
	l.mu.Lock()
	order := append([]string(nil), l.hookOrder...)
	hooks := l.hooks
	l.mu.Unlock()
	for _, name := range order {
		hooks[name]()
	}
}

// Run assembles the oklog/run actor group: a signal-watcher actor that
// sets shutdownRequested on SIGINT/SIGTERM, and a poll-based accept-loop
// actor that wakes every pollInterval to check the flag (spec.md §4.9).
// Run blocks until the group exits, then runs shutdown hooks and joins
// the global pool. accept is called once per wake while no shutdown has
// been requested, so long-running servers get a natural place to poll
// their own listeners; it may be nil for a pure REPL/batch run.
func (l *Lifecycle) Run(accept func()) error {
	var g run.Group

	{
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		done := make(chan struct{})
		g.Add(func() error {
			select {
			case <-sigCh:
				l.RequestShutdown()
				return nil
			case <-done:
				return nil
			}
		}, func(error) {
			close(done)
		})
	}

	{
		stop := make(chan struct{})
		g.Add(func() error {
			ticker := time.NewTicker(l.pollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if l.ShutdownRequested() {
						return nil
					}
					if accept != nil {
						accept()
					}
				case <-stop:
					return nil
				}
			}
		}, func(error) {
			close(stop)
		})
	}

	err := g.Run()
	l.runHooks()
	if l.pool != nil {
		l.pool.Shutdown()
	}
	return err
}
