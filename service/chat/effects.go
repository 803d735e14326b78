package chat

import (
	"context"
	"sync"
	"time"

	"PPLink/logger"
	"PPLink/tools/errs"

	"go.uber.org/zap"
)

// BestEffort is the outcome of a write whose failure must not reach the user.
// Callers may read it or drop the channel.
type BestEffort struct {
	Op  string
	Err error
}

func (b BestEffort) OK() bool { return b.Err == nil }

// Effects runs blocking side effects off the hub loop with a bounded timeout.
type Effects struct {
	timeout time.Duration
	wg      sync.WaitGroup

	mu    sync.Mutex
	tails map[string]chan struct{} // key -> done signal of the newest queued effect
}

func NewEffects(timeout time.Duration) *Effects {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Effects{timeout: timeout, tails: make(map[string]chan struct{})}
}

// Go runs fn in its own goroutine. Failures and panics are logged, never propagated.
func (e *Effects) Go(op string, fn func(ctx context.Context) error) <-chan BestEffort {
	return e.run(op, nil, nil, fn)
}

// GoOrdered is Go, except effects sharing a key run one at a time in call order.
// The timeout starts once the previous effect for the key has finished.
func (e *Effects) GoOrdered(key, op string, fn func(ctx context.Context) error) <-chan BestEffort {
	done := make(chan struct{})
	e.mu.Lock()
	prev := e.tails[key]
	e.tails[key] = done
	e.mu.Unlock()

	return e.run(op, prev, func() {
		e.mu.Lock()
		if e.tails[key] == done {
			delete(e.tails, key)
		}
		e.mu.Unlock()
		close(done)
	}, fn)
}

func (e *Effects) run(op string, after <-chan struct{}, finish func(), fn func(ctx context.Context) error) <-chan BestEffort {
	out := make(chan BestEffort, 1)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if finish != nil {
			defer finish()
		}
		if after != nil {
			<-after
		}
		res := BestEffort{Op: op}
		defer func() {
			if r := recover(); r != nil {
				res.Err = errs.ErrPanic(r)
			}
			if res.Err != nil {
				logger.Warn("best-effort op failed", zap.String("op", op), zap.Error(res.Err))
			}
			out <- res
		}()

		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		res.Err = fn(ctx)
	}()
	return out
}

// Wait blocks until every started effect has finished.
func (e *Effects) Wait() { e.wg.Wait() }
