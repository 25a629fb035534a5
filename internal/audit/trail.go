package audit

/*
Файл trail.go реализует аудиторский след монитора — асинхронный движок
сбора и персистентности записей о решениях комплаенса.

Ключевые особенности архитектуры:
- Non-blocking Logging: неблокирующий канал между Hot Path проверки и
  воркером записи. Медленный sink никогда не тормозит решение по комплаенсу.
- Batching & Efficiency: накопление записей в памяти и пакетная запись
  (Bulk Insert) в PostgreSQL по таймеру или при достижении лимита.
- Drain Pattern & Graceful Shutdown: при остановке буфер вычитывается до
  конца (Final Flush) через закрытие канала и sync.WaitGroup.
- Load Shedding: при переполненном буфере запись сбрасывается с ошибкой в
  обычный лог — потеря аудита логируется, но workflow не блокируется.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// StorageInterface определяет, куда физически сохраняются записи.
type StorageInterface interface {
	// WriteBatch сохраняет пачку записей за один раз
	WriteBatch(ctx context.Context, records []Record) error
}

// Sink — контракт для потребителей: запись всегда best-effort,
// ошибки проглатываются внутри и не долетают до движка.
type Sink interface {
	Log(rec Record)
}

type Trail struct {
	ch     chan Record
	repo   StorageInterface
	logger *zap.Logger
	wg     sync.WaitGroup

	batchSize     int
	flushInterval time.Duration

	isClosed int32 // Атомарный флаг (0 - открыт, 1 - закрыт)
}

func NewTrail(repo StorageInterface, bufferSize, batchSize int, flushInterval time.Duration, logger *zap.Logger) *Trail {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 500 * time.Millisecond
	}
	return &Trail{
		ch:            make(chan Record, bufferSize),
		repo:          repo,
		logger:        logger.With(zap.String("mod", "audit-trail")),
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

func (t *Trail) Start() {
	t.wg.Add(1)
	go t.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет.
func (t *Trail) Stop() {
	atomic.StoreInt32(&t.isClosed, 1)

	// Даем крошечную паузу, чтобы текущие Log успели проскочить
	time.Sleep(10 * time.Millisecond)

	t.logger.Info("stopping audit trail: closing channel and flushing buffer...")
	close(t.ch)
	t.wg.Wait()
	t.logger.Info("audit trail stopped gracefully")
}

// Pending — текущая заполненность буфера (для метрик).
func (t *Trail) Pending() int {
	return len(t.ch)
}

func (t *Trail) Log(rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	// Атомарно проверяем, не закрыт ли канал
	if atomic.LoadInt32(&t.isClosed) == 1 {
		t.logger.Warn("audit record dropped: trail is stopping", zap.String("id", rec.ID))
		return
	}

	// Load Shedding: переполненный буфер не должен тормозить проверку
	select {
	case t.ch <- rec:
	default:
		t.logger.Error("audit_buffer_overflow",
			zap.String("action", rec.Action),
			zap.String("session_id", rec.SessionID),
		)
	}
}

func (t *Trail) worker() {
	defer t.wg.Done()

	batch := make([]Record, 0, t.batchSize)
	ticker := time.NewTicker(t.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			// Короткий таймаут: медленный sink не должен задерживать drain
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := t.repo.WriteBatch(ctx, batch); err != nil {
				t.logger.Error("audit flush failed", zap.Error(err))
			}
			cancel()
			batch = batch[:0]
		}
	}

	for {
		select {
		case rec, ok := <-t.ch:
			if !ok {
				// Канал закрыт в Stop(): вычитали остатки, финальный сброс, выходим
				flush()
				t.logger.Info("audit worker finished")
				return
			}
			batch = append(batch, rec)
			if len(batch) >= t.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
