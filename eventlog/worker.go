package eventlog

import (
	"context"
	"log/slog"
	"sync"
)

// Worker writes events to the Logger off the request path through a buffered
// channel. Events are best-effort: when the buffer is full they are dropped
// with a warning rather than blocking a handler.
type Worker struct {
	events chan Event
	logger Logger
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWorker(logger Logger, bufferSize int) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		events: make(chan Event, bufferSize),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				slog.Info("draining event feed before shutdown", "remaining", len(w.events))
				for len(w.events) > 0 {
					event := <-w.events
					if err := w.logger.Save(context.Background(), event); err != nil {
						slog.Error("failed to save event during shutdown", "error", err, "event_type", event.Type)
					}
				}
				return
			case event := <-w.events:
				if err := w.logger.Save(w.ctx, event); err != nil {
					slog.Error("failed to save event", "error", err, "event_type", event.Type)
				}
			}
		}
	}()
}

func (w *Worker) Log(event Event) {
	select {
	case w.events <- event:
	default:
		slog.Warn("event buffer full, dropping event", "event_type", event.Type)
	}
}

func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
	close(w.events)
}
