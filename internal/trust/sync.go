package trust

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"github.com/xela07ax/spaceai-compliance-monitor/internal/domain"
	"golang.org/x/time/rate"
)

// Store — физическое хранилище trust/session-бухгалтерии.
type Store interface {
	UpsertSessionMetrics(ctx context.Context, m domain.SessionMetrics) error
}

// Settings — параметры предохранителя (из конфига монитора).
type Settings struct {
	CBMaxRequests uint32
	CBInterval    time.Duration
	CBTimeout     time.Duration
}

// ReliableSync оборачивает стор в Retries + Circuit Breaker + Rate Limiter.
// Реализует compliance.TrustSync: единственный исходящий путь монитора,
// который обязан не тормозить решения по комплаенсу.
type ReliableSync struct {
	next    Store
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func NewReliableSync(next Store, s Settings) *ReliableSync {
	if s.CBMaxRequests == 0 {
		s.CBMaxRequests = 3
	}
	if s.CBInterval <= 0 {
		s.CBInterval = 5 * time.Second
	}
	if s.CBTimeout <= 0 {
		s.CBTimeout = 30 * time.Second
	}

	// Настройка предохранителя
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "wcm-trust-sync",
		MaxRequests: s.CBMaxRequests,
		Interval:    s.CBInterval,
		Timeout:     s.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Если более 5 ошибок подряд — открываемся (блокируем трафик)
			return counts.ConsecutiveFailures > 5
		},
	})

	// Лимитер: выгрузки метрик не должны заспамить trust-контур
	limiter := rate.NewLimiter(rate.Limit(50), 10)

	return &ReliableSync{
		next:    next,
		cb:      cb,
		limiter: limiter,
	}
}

// UpdateSessionMetrics — см. compliance.TrustSync.
func (w *ReliableSync) UpdateSessionMetrics(ctx context.Context, m domain.SessionMetrics) error {
	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	// 2. Circuit Breaker
	_, err := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(3),
			// Умный расчет задержки
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// Если стор вернул ThrottleError — уважаем запрошенную паузу
				var tErr *ThrottleError
				if errors.As(err, &tErr) {
					return tErr.RetryAfter
				}

				// В остальных случаях — стандартный экспоненциальный бэкофф
				return retry.BackOffDelay(n, err, config)
			}),
		)

		retryErr := r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return w.next.UpsertSessionMetrics(tCtx, m)
		})

		return nil, retryErr
	})

	return err
}
