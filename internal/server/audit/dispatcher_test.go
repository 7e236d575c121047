package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/busauth/internal/logging"
	"github.com/dmitrijs2005/busauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	mu      sync.Mutex
	entries []*models.AuditEntry
	err     error
	block   chan struct{}
}

func (m *memSink) Create(_ context.Context, e *models.AuditEntry) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memSink) all() []*models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.AuditEntry(nil), m.entries...)
}

func TestDispatcher_DeliversAndFillsDefaults(t *testing.T) {
	sink := &memSink{}
	d := NewDispatcher(sink, Config{}, logging.Nop{})

	d.Record(context.Background(), models.AuditEntry{Username: "joao", Action: models.ActionLoginSuccess, Success: true})
	d.Close()

	got := sink.all()
	require.Len(t, got, 1)
	assert.Equal(t, "AUTH", got[0].Type)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())
	assert.Equal(t, models.ActionLoginSuccess, got[0].Action)
}

func TestDispatcher_PreservesOrder(t *testing.T) {
	sink := &memSink{}
	d := NewDispatcher(sink, Config{BufferSize: 16}, logging.Nop{})

	actions := []models.AuditAction{models.ActionLoginFailed, models.ActionLoginFailed, models.ActionLoginSuccess}
	for _, a := range actions {
		d.Record(context.Background(), models.AuditEntry{Username: "joao", Action: a})
	}
	d.Close()

	got := sink.all()
	require.Len(t, got, 3)
	for i, a := range actions {
		assert.Equal(t, a, got[i].Action)
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	sink := &memSink{block: make(chan struct{})}
	d := NewDispatcher(sink, Config{BufferSize: 1}, logging.Nop{})

	// the worker picks up the first entry and blocks inside the sink,
	// the second fills the buffer, the rest are dropped
	d.Record(context.Background(), models.AuditEntry{Action: models.ActionLoginFailed})
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)

	for range 4 {
		d.Record(context.Background(), models.AuditEntry{Action: models.ActionLoginFailed})
	}
	assert.EqualValues(t, 3, d.Dropped())

	close(sink.block)
	d.Close()
	assert.Len(t, sink.all(), 2)
}

func TestDispatcher_SinkErrorsAreCounted(t *testing.T) {
	sink := &memSink{err: errors.New("db down")}
	d := NewDispatcher(sink, Config{}, logging.Nop{})

	d.Record(context.Background(), models.AuditEntry{Action: models.ActionLogout})
	d.Close()

	assert.EqualValues(t, 1, d.Failed())
	assert.Zero(t, d.Dropped())
}

func TestDispatcher_RecordAfterCloseIsDropped(t *testing.T) {
	d := NewDispatcher(&memSink{}, Config{}, nil)
	d.Close()
	d.Close()

	assert.NotPanics(t, func() {
		d.Record(context.Background(), models.AuditEntry{Action: models.ActionLogout})
	})
	assert.EqualValues(t, 1, d.Dropped())
}

func TestMultiSink(t *testing.T) {
	ok := &memSink{}
	bad := &memSink{err: errors.New("s3 down")}
	m := MultiSink{ok, bad}

	err := m.Create(context.Background(), &models.AuditEntry{Action: models.ActionRegister})
	assert.ErrorContains(t, err, "s3 down")
	assert.Len(t, ok.all(), 1)
}
