package audit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockStorage struct {
	mu      sync.Mutex
	batches [][]Record
}

func (m *mockStorage) WriteBatch(ctx context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Воркер переиспользует слайс батча, копируем
	batch := make([]Record, len(records))
	copy(batch, records)
	m.batches = append(m.batches, batch)
	return nil
}

func (m *mockStorage) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

func (m *mockStorage) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

func TestTrailFlushOnStop(t *testing.T) {
	storage := &mockStorage{}
	// Огромный интервал: сброс только на Stop
	trail := NewTrail(storage, 100, 100, time.Hour, zap.NewNop())
	trail.Start()

	for i := 0; i < 5; i++ {
		trail.Log(Record{ID: fmt.Sprintf("rec-%d", i), Action: ActionComplianceCheck})
	}
	trail.Stop()

	assert.Equal(t, 5, storage.total())

	// Пустой Timestamp проставляется при приеме
	storage.mu.Lock()
	defer storage.mu.Unlock()
	for _, b := range storage.batches {
		for _, rec := range b {
			assert.False(t, rec.Timestamp.IsZero())
		}
	}
}

func TestTrailBatchSizeFlush(t *testing.T) {
	storage := &mockStorage{}
	trail := NewTrail(storage, 100, 2, time.Hour, zap.NewNop())
	trail.Start()
	defer trail.Stop()

	for i := 0; i < 4; i++ {
		trail.Log(Record{ID: fmt.Sprintf("rec-%d", i), Action: ActionComplianceCheck})
	}

	// Два полных батча должны уйти без участия таймера
	require.Eventually(t, func() bool {
		return storage.batchCount() >= 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 4, storage.total())
}

func TestTrailTickerFlush(t *testing.T) {
	storage := &mockStorage{}
	trail := NewTrail(storage, 100, 100, 20*time.Millisecond, zap.NewNop())
	trail.Start()
	defer trail.Stop()

	trail.Log(Record{ID: "rec-1", Action: ActionMonitoringStarted})

	require.Eventually(t, func() bool {
		return storage.total() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTrailLoadShedding(t *testing.T) {
	storage := &mockStorage{}
	// Воркер не запущен: буфер на 1 запись переполняется сразу
	trail := NewTrail(storage, 1, 100, time.Hour, zap.NewNop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			trail.Log(Record{ID: fmt.Sprintf("rec-%d", i)})
		}
		close(done)
	}()

	select {
	case <-done:
		// Log никогда не блокируется
	case <-time.After(time.Second):
		t.Fatal("Log blocked on a full buffer")
	}
	assert.Equal(t, 1, trail.Pending())
}

func TestTrailDropsAfterStop(t *testing.T) {
	storage := &mockStorage{}
	trail := NewTrail(storage, 100, 100, time.Hour, zap.NewNop())
	trail.Start()
	trail.Stop()

	assert.NotPanics(t, func() {
		trail.Log(Record{ID: "late", Action: ActionMonitoringStopped})
	})
	assert.Equal(t, 0, storage.total())
}
