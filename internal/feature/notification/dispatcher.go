package notification

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dispatcher 有界队列 + 固定数量 worker；队列满时丢弃并计数
type Dispatcher struct {
	w       *Writer
	log     *zap.Logger
	queue   chan Event
	workers int
	timeout time.Duration
}

func NewDispatcher(w *Writer, l *zap.Logger, buffer, workers int) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		w:       w,
		log:     l,
		queue:   make(chan Event, buffer),
		workers: workers,
		timeout: 5 * time.Second,
	}
}

func (d *Dispatcher) Publish(_ context.Context, evs ...Event) {
	for _, ev := range evs {
		select {
		case d.queue <- ev:
		default:
			failedTotal.WithLabelValues("queue_full").Inc()
			d.log.Warn("notification dropped, queue full",
				zap.String("recipient", ev.Recipient),
				zap.String("type", string(ev.Type)))
		}
	}
}

// Run 阻塞直到 ctx 结束；退出前把队列中剩余事件写完
func (d *Dispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for range d.workers {
		g.Go(func() error {
			for {
				select {
				case ev := <-d.queue:
					d.write(ev)
				case <-gctx.Done():
					d.drain()
					return nil
				}
			}
		})
	}
	return g.Wait()
}

func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.queue:
			d.write(ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) write(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	d.w.Write(ctx, ev)
}
