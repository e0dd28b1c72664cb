package api

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

// EnqueueFunc delivers one serialized event.
type EnqueueFunc func(ctx context.Context, msg string) error

// NotifierConfig sizes the delivery pool.
type NotifierConfig struct {
	Workers        int
	Buffer         int
	Timeout        time.Duration
	HandoffTimeout time.Duration
}

func (c NotifierConfig) withDefaults() NotifierConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Buffer <= 0 {
		c.Buffer = 1024
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.HandoffTimeout < 0 {
		c.HandoffTimeout = 0
	}
	return c
}

// QueueNotifier publishes item events through a pool of workers. Delivery is
// best effort: failures are logged and never reach the caller.
type QueueNotifier struct {
	send EnqueueFunc
	cfg  NotifierConfig
	log  *log.Logger
	jobs chan domain.ItemEvent
	wg   sync.WaitGroup
	once sync.Once
}

func NewQueueNotifier(send EnqueueFunc, cfg NotifierConfig, logger *log.Logger) *QueueNotifier {
	if send == nil {
		panic("api.NewQueueNotifier: send is nil")
	}
	if logger == nil {
		panic("Logger is not initialized")
	}
	n := &QueueNotifier{send: send, cfg: cfg.withDefaults(), log: logger}
	n.jobs = make(chan domain.ItemEvent, n.cfg.Buffer)
	for i := 0; i < n.cfg.Workers; i++ {
		n.wg.Add(1)
		go n.worker(i)
	}
	n.log.Infof("event notifier started, workers: %d, buffer: %d, timeout: %v, handoff: %v", n.cfg.Workers, n.cfg.Buffer, n.cfg.Timeout, n.cfg.HandoffTimeout)
	return n
}

// Publish hands ev to a worker. When the buffer stays full past the handoff
// timeout the event is delivered inline.
func (n *QueueNotifier) Publish(ctx context.Context, ev domain.ItemEvent) {
	if ok, closed := n.tryEnqueue(ev); ok {
		return
	} else if closed {
		n.log.WithField("type", ev.Type).Warn("event notifier closed; dropping event")
		return
	}
	n.log.Warn("event buffer saturated; publishing inline")
	n.deliver(context.WithoutCancel(ctx), ev, -1)
}

// Close stops accepting events and waits for buffered ones to be delivered.
func (n *QueueNotifier) Close() {
	n.once.Do(func() { close(n.jobs) })
	n.wg.Wait()
}

func (n *QueueNotifier) worker(id int) {
	defer n.wg.Done()
	for ev := range n.jobs {
		n.deliver(context.Background(), ev, id)
	}
}

func (n *QueueNotifier) deliver(ctx context.Context, ev domain.ItemEvent, worker int) {
	msg, err := domain.JSON.MarshalToString(ev)
	if err != nil {
		n.log.Errorf("event encode failed, err: %v, type: %s", err, ev.Type)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()
	if err := n.send(ctx, msg); err != nil {
		n.log.Errorf("event publish failed, err: %v, type: %s, account: %d, items: %v, worker: %d", err, ev.Type, ev.AccountID, ev.ItemIDs, worker)
	}
}

func (n *QueueNotifier) tryEnqueue(ev domain.ItemEvent) (ok bool, closed bool) {
	if ok, closed := trySendNonBlocking(n.jobs, ev); ok || closed {
		return ok, closed
	}
	if n.cfg.HandoffTimeout <= 0 {
		return false, false
	}
	timer := time.NewTimer(n.cfg.HandoffTimeout)
	defer timer.Stop()
	return sendWithTimer(n.jobs, ev, timer.C)
}

func trySendNonBlocking(ch chan domain.ItemEvent, ev domain.ItemEvent) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- ev:
		return true, false
	default:
		return false, false
	}
}

func sendWithTimer(ch chan domain.ItemEvent, ev domain.ItemEvent, timer <-chan time.Time) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- ev:
		return true, false
	case <-timer:
		return false, false
	}
}
