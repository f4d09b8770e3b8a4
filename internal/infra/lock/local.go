package lock

import (
	"context"
	"fmt"
	"sync"
)

// Local блокировки по ключу в рамках одного процесса.
// Запись о ключе удаляется, когда его больше никто не держит и не ждет.
type Local struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{} // буфер 1: токен занят, когда в канале есть значение
	refs int
}

// NewLocal создает пустой набор блокировок
func NewLocal() *Local {
	return &Local{locks: make(map[string]*keyLock)}
}

// Lock ждет блокировку ключа до отмены контекста. Возвращает функцию освобождения.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl, false)
		return nil, fmt.Errorf("%w: key=%s: %v", ErrLockTimeout, key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, kl, true) })
	}, nil
}

func (l *Local) release(key string, kl *keyLock, held bool) {
	if held {
		<-kl.ch
	}
	l.mu.Lock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

// size количество ключей в таблице (для тестов)
func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
