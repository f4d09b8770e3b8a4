package materializer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule возвращается при некорректном cron-выражении
var ErrInvalidSchedule = errors.New("materializer: invalid schedule")

const defaultRunTimeout = 10 * time.Minute

// Worker периодически догенерирует записи активных серий по cron-расписанию.
// Запуски не пересекаются: если предыдущий еще идет, очередной пропускается.
type Worker struct {
	maintainer SeriesMaintainer
	logger     Logger
	cron       *cron.Cron
	runTimeout time.Duration

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New создает воркер. schedule - стандартное cron-выражение из пяти полей.
func New(maintainer SeriesMaintainer, schedule string, loc *time.Location, runTimeout time.Duration, logger Logger) (*Worker, error) {
	if loc == nil {
		loc = time.UTC
	}
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}

	w := &Worker{
		maintainer: maintainer,
		logger:     logger,
		runTimeout: runTimeout,
	}

	cronLog := cronLogger{logger: logger}
	w.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	if _, err := w.cron.AddFunc(schedule, w.run); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, schedule, err)
	}

	return w, nil
}

// Start запускает расписание. Запуски прерываются при отмене ctx или вызове Stop.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.cron.Start()
	w.logger.Info("Materializer: scheduler started, next run at %s", w.nextRun().Format(time.RFC3339))
}

// Stop останавливает расписание и ждет завершения текущего запуска или отмены ctx
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	select {
	case <-w.cron.Stop().Done():
		w.logger.Info("Materializer: scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("materializer: stop: %w", ctx.Err())
	}
}

// RunOnce выполняет один проход по активным сериям
func (w *Worker) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, w.runTimeout)
	defer cancel()

	started := time.Now()
	if err := w.maintainer.MaintainActiveSeries(ctx); err != nil {
		w.logger.Error("Materializer: run failed after %s: %v", time.Since(started), err)
		return err
	}

	w.logger.Info("Materializer: run finished in %s", time.Since(started))
	return nil
}

func (w *Worker) run() {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	_ = w.RunOnce(ctx)
}

func (w *Worker) nextRun() time.Time {
	entries := w.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// cronLogger адаптер логгера к интерфейсу cron.Logger
type cronLogger struct {
	logger Logger
}

// Info не пишется: cron сообщает так о каждом пробуждении
func (l cronLogger) Info(string, ...interface{}) {}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("Materializer: cron %s: %v %v", msg, err, keysAndValues)
}
