package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript удаляет ключ, только если он все еще принадлежит владельцу токена
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript продлевает ключ, только если он все еще принадлежит владельцу токена
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis распределенная блокировка по ключу (SET NX PX) для нескольких инстансов сервиса
type Redis struct {
	rdb       *redis.Client
	prefix    string
	ttl       time.Duration
	wait      time.Duration
	retryStep time.Duration
	refresh   time.Duration
	logger    Logger
}

// Logger интерфейс для логирования
type Logger interface {
	Warn(format string, v ...interface{})
}

// NewRedis создает блокировки поверх redis.
// ttl - время жизни ключа (защита от упавшего держателя), wait - максимальное ожидание.
// Пока блокировка удерживается, ключ продлевается каждые ttl/3.
func NewRedis(rdb *redis.Client, prefix string, ttl, wait time.Duration, logger Logger) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	if prefix == "" {
		prefix = "lock"
	}
	return &Redis{
		rdb:       rdb,
		prefix:    prefix,
		ttl:       ttl,
		wait:      wait,
		retryStep: 25 * time.Millisecond,
		refresh:   ttl / 3,
		logger:    logger,
	}
}

// Lock ждет блокировку ключа не дольше wait. Возвращает функцию освобождения.
func (l *Redis) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := l.prefix + ":" + key
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(l.retryStep)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(waitCtx, fullKey, token, l.ttl).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("%w: SETNX %s: %v", ErrLockBackend, fullKey, err)
		}
		if ok {
			stop := make(chan struct{})
			go l.keepAlive(fullKey, token, stop)

			var once sync.Once
			return func() {
				once.Do(func() {
					close(stop)
					l.release(fullKey, token)
				})
			}, nil
		}

		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("%w: key=%s", ErrLockTimeout, fullKey)
		case <-ticker.C:
		}
	}
}

// keepAlive продлевает ключ до освобождения блокировки или её потери
func (l *Redis) keepAlive(key, token string, stop <-chan struct{}) {
	ticker := time.NewTicker(l.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), l.refresh)
		extended, err := refreshScript.Run(ctx, l.rdb, []string{key}, token, l.ttl.Milliseconds()).Int()
		cancel()

		switch {
		case err != nil:
			l.warn("Lock: failed to extend key=%s: %v", key, err)
		case extended == 0:
			l.warn("Lock: key=%s expired or was taken over, stop extending", key)
			return
		}
	}
}

func (l *Redis) warn(format string, v ...interface{}) {
	if l.logger != nil {
		l.logger.Warn(format, v...)
	}
}

func (l *Redis) release(key, token string) {
	// контекст запроса к этому моменту может быть отменен, ключ все равно нужно снять
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
		l.warn("Lock: failed to release key=%s: %v", key, err)
	}
}
