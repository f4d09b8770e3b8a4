package lock

import (
	"context"
	"time"
)

// Locker блокировка по ключу
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Timeout ограничивает ожидание блокировки. Удержание после захвата не ограничивается.
type Timeout struct {
	inner   Locker
	timeout time.Duration
}

// WithTimeout оборачивает Locker. При timeout <= 0 ожидание ограничено только контекстом.
func WithTimeout(inner Locker, timeout time.Duration) *Timeout {
	return &Timeout{inner: inner, timeout: timeout}
}

func (t *Timeout) Lock(ctx context.Context, key string) (func(), error) {
	if t.timeout <= 0 {
		return t.inner.Lock(ctx, key)
	}

	waitCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Lock(waitCtx, key)
}
