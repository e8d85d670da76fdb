package application

import (
	"context"
	"errors"
	"log"
	"sync"
)

// ErrDispatcherStopped is returned by Publish after Stop.
var ErrDispatcherStopped = errors.New("dispatcher stopped")

// ChangeHandler consumes area changes.
type ChangeHandler interface {
	HandleAreaChange(ctx context.Context, change AreaChange) error
}

// Dispatcher は領域の変更イベントをワーカープールでパイプラインへ流す。
// 異なる領域のイベントは並行に処理される。
type Dispatcher struct {
	handler ChangeHandler
	workers int
	queue   chan AreaChange
	logger  *log.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewDispatcher(handler ChangeHandler, workers, buffer int, logger *log.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	return &Dispatcher{
		handler: handler,
		workers: workers,
		queue:   make(chan AreaChange, buffer),
		logger:  logger,
	}
}

// Start launches the workers. ctx is passed to every handler call.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for change := range d.queue {
				if err := d.handler.HandleAreaChange(ctx, change); err != nil && d.logger != nil {
					d.logger.Printf("領域 %s の変更処理に失敗: %v", change.After.ID, err)
				}
			}
		}()
	}
}

// Publish enqueues change, blocking while the queue is full until ctx is done.
func (d *Dispatcher) Publish(ctx context.Context, change AreaChange) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrDispatcherStopped
	}
	select {
	case d.queue <- change:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop refuses new events, lets queued events drain and waits for the workers.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}
