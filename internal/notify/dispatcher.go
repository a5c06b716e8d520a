package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const queueSize = 128

type task struct {
	name string
	fn   func(ctx context.Context) error
}

// Dispatcher runs side-effect tasks off the request path. Enqueue never
// blocks; a full queue drops the task with a warning.
type Dispatcher struct {
	log   *zap.Logger
	queue chan task

	wg   sync.WaitGroup
	once sync.Once
}

func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		log:   log.Named("notify.dispatcher"),
		queue: make(chan task, queueSize),
	}
}

func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for t := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := t.fn(ctx); err != nil {
			d.log.Warn("notification task failed", zap.String("task", t.name), zap.Error(err))
		}
		cancel()
	}
}

func (d *Dispatcher) Enqueue(name string, fn func(ctx context.Context) error) {
	select {
	case d.queue <- task{name: name, fn: fn}:
	default:
		d.log.Warn("notification queue full, dropping task", zap.String("task", name))
	}
}

// Stop closes the queue and waits for in-flight tasks to drain.
func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}
