// Package jobmgr runs named background jobs (the rate-limit janitor, the
// gateway session) and stops them together on shutdown.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(ctx, logger)
//	_ = jm.Start("ratelimit-janitor", func(ctx context.Context) error {
//	    limiter.RunJanitor(ctx, time.Minute)
//	    return nil
//	})
//	...
//	jm.StopAll()
package jobmgr

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

type job struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager tracks running jobs. Safe for concurrent use.
type Manager struct {
	ctx  context.Context
	log  zerolog.Logger
	mu   sync.Mutex
	jobs map[string]*job
	errs chan error
}

// NewManager returns a Manager whose jobs are children of ctx.
func NewManager(ctx context.Context, logger zerolog.Logger) *Manager {
	return &Manager{
		ctx:  ctx,
		log:  logger,
		jobs: make(map[string]*job),
		errs: make(chan error, 8),
	}
}

// Start runs runner in its own goroutine. A name can only run once at a time.
// A job that returns an error has it forwarded to Errors.
func (m *Manager) Start(name string, runner func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[name]; exists {
		return fmt.Errorf("job %q is already running", name)
	}

	ctx, cancel := context.WithCancel(m.ctx)
	j := &job{cancel: cancel, done: make(chan struct{})}
	m.jobs[name] = j

	go func() {
		defer close(j.done)
		defer cancel()

		m.log.Debug().Str("job", name).Msg("job started")
		err := runner(ctx)
		if err != nil {
			m.log.Error().Err(err).Str("job", name).Msg("job failed")
			select {
			case m.errs <- fmt.Errorf("job %s: %w", name, err):
			default:
			}
		} else {
			m.log.Debug().Str("job", name).Msg("job finished")
		}

		m.mu.Lock()
		if m.jobs[name] == j {
			delete(m.jobs, name)
		}
		m.mu.Unlock()
	}()

	return nil
}

// Errors delivers errors returned by jobs. It is buffered; errors are dropped
// when nobody reads them.
func (m *Manager) Errors() <-chan error { return m.errs }

// Stop cancels a job and waits for it to return.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	j, ok := m.jobs[name]
	if ok {
		delete(m.jobs, name)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("job %q not running", name)
	}
	j.cancel()
	<-j.done
	return nil
}

// StopAll cancels every job and waits for all of them.
func (m *Manager) StopAll() {
	m.mu.Lock()
	running := make([]*job, 0, len(m.jobs))
	for name, j := range m.jobs {
		running = append(running, j)
		delete(m.jobs, name)
	}
	m.mu.Unlock()

	for _, j := range running {
		j.cancel()
	}
	for _, j := range running {
		<-j.done
	}
}

// List returns the names of running jobs, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.jobs))
	for name := range m.jobs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
