package shutdown

import (
	"context"
	"syscall"
	"testing"
	"time"

	"turmoric/internal/logger"

	"github.com/stretchr/testify/assert"
)

func TestShutdownCancelsContextOnce(t *testing.T) {
	m := NewManager(context.Background(), logger.Nop())
	assert.NoError(t, m.Context().Err())

	m.Shutdown()
	m.Shutdown()

	assert.ErrorIs(t, m.Context().Err(), context.Canceled)
	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestSignalTriggersShutdown(t *testing.T) {
	m := NewManager(context.Background(), logger.Nop())
	m.Listen()
	defer m.Shutdown()

	m.signals <- syscall.SIGTERM

	select {
	case <-m.Context().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled after signal")
	}
}

func TestParentCancellationPropagates(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	m := NewManager(parent, logger.Nop())
	cancel()
	assert.ErrorIs(t, m.Context().Err(), context.Canceled)
}
