package server

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	return NewRegistry(log.New(io.Discard), clock, DefaultGraceWindow), clock
}

func TestBindEvictsPreviousConnection(t *testing.T) {
	reg, _ := newTestRegistry(t)

	first := &Connection{}
	second := &Connection{}

	evicted, rebind := reg.Bind(7, first)
	assert.Nil(t, evicted)
	assert.Empty(t, rebind)
	assert.Same(t, first, reg.ConnFor(7))

	evicted, _ = reg.Bind(7, second)
	assert.Same(t, first, evicted)
	assert.Same(t, second, reg.ConnFor(7))
}

func TestUnbindOnlyRemovesOwnMapping(t *testing.T) {
	reg, _ := newTestRegistry(t)

	stale := &Connection{}
	current := &Connection{}
	reg.Bind(7, stale)
	reg.Bind(7, current)

	// The stale connection tearing down must not unbind the new session.
	reg.Unbind(7, stale)
	assert.Same(t, current, reg.ConnFor(7))

	reg.Unbind(7, current)
	assert.Nil(t, reg.ConnFor(7))
}

func TestGraceRebindReturnsTable(t *testing.T) {
	reg, _ := newTestRegistry(t)

	reg.StartGrace(7, "tbl-1")
	_, rebind := reg.Bind(7, &Connection{})
	assert.Equal(t, "tbl-1", rebind)

	// The entry is consumed.
	_, rebind = reg.Bind(7, &Connection{})
	assert.Empty(t, rebind)
}

func TestTakeExpiredHonoursDeadline(t *testing.T) {
	reg, clock := newTestRegistry(t)

	reg.StartGrace(1, "tbl-1")
	clock.Advance(2 * time.Minute)
	reg.StartGrace(2, "tbl-2")

	assert.Empty(t, reg.takeExpired())

	// User 1's window lapses, user 2's is still open.
	clock.Advance(3 * time.Minute)
	expired := reg.takeExpired()
	require.Len(t, expired, 1)
	assert.Equal(t, int64(1), expired[0].userID)
	assert.Equal(t, "tbl-1", expired[0].tableID)

	clock.Advance(2 * time.Minute)
	expired = reg.takeExpired()
	require.Len(t, expired, 1)
	assert.Equal(t, int64(2), expired[0].userID)

	assert.Empty(t, reg.takeExpired())
}

func TestCancelGrace(t *testing.T) {
	reg, clock := newTestRegistry(t)

	reg.StartGrace(9, "tbl-1")
	reg.CancelGrace(9)
	clock.Advance(DefaultGraceWindow + time.Second)
	assert.Empty(t, reg.takeExpired())
}
