package assets

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Deleter is the part of Manager the janitor needs.
type Deleter interface {
	Delete(ctx context.Context, ref string) error
}

// Janitor removes replaced or orphaned assets in the background. Deletions
// never block or fail the report mutation that scheduled them; failures are
// retried a few times and then logged.
type Janitor struct {
	deleter Deleter
	queue   chan string
	retries int
	backoff time.Duration
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewJanitor(deleter Deleter, buffer int) *Janitor {
	if buffer <= 0 {
		buffer = 256
	}
	j := &Janitor{
		deleter: deleter,
		queue:   make(chan string, buffer),
		retries: 3,
		backoff: 500 * time.Millisecond,
		timeout: 30 * time.Second,
	}
	j.wg.Add(1)
	go j.run()
	return j
}

// Enqueue schedules ref for deletion and returns immediately.
func (j *Janitor) Enqueue(ref string) {
	if ref == "" {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		slog.Warn("asset janitor closed, leaving orphaned asset", "ref", ref)
		return
	}
	select {
	case j.queue <- ref:
	default:
		// Queue full: delete out of band instead of blocking the caller.
		j.wg.Add(1)
		go func() {
			defer j.wg.Done()
			j.remove(ref)
		}()
	}
}

// Close stops accepting work and waits for queued deletions to finish.
func (j *Janitor) Close() {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()
	j.wg.Wait()
}

func (j *Janitor) run() {
	defer j.wg.Done()
	for ref := range j.queue {
		j.remove(ref)
	}
}

func (j *Janitor) remove(ref string) {
	var err error
	for attempt := 1; attempt <= j.retries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		err = j.deleter.Delete(ctx, ref)
		cancel()
		if err == nil {
			slog.Info("asset deleted", "ref", ref)
			return
		}
		if attempt < j.retries {
			time.Sleep(j.backoff * time.Duration(attempt))
		}
	}
	slog.Warn("asset cleanup failed, asset orphaned", "ref", ref, "error", err)
}
