// Package shutdown turns SIGINT and SIGTERM into context cancellation so
// batch runs stop starting new files and exit with a partial report.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"turmoric/internal/logger"
)

type Manager struct {
	logger  logger.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	signals chan os.Signal
	done    chan struct{}
	once    sync.Once
}

func NewManager(parent context.Context, log logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(parent)
	return &Manager{
		logger:  log,
		ctx:     ctx,
		cancel:  cancel,
		signals: make(chan os.Signal, 1),
		done:    make(chan struct{}),
	}
}

// Listen cancels the context on the first SIGINT or SIGTERM.
func (m *Manager) Listen() {
	signal.Notify(m.signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-m.signals:
			m.logger.Warning("ShutdownManager", "shutdown signal received, finishing in-flight files", map[string]interface{}{
				"signal": sig.String(),
			})
			m.Shutdown()
		case <-m.done:
		}
	}()
}

// Shutdown cancels the context. Safe to call more than once.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		signal.Stop(m.signals)
		m.cancel()
		close(m.done)
	})
}

func (m *Manager) Context() context.Context {
	return m.ctx
}

func (m *Manager) Done() <-chan struct{} {
	return m.done
}
