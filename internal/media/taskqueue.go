package media

import (
	"log/slog"
	"sync"
)

// TaskQueue runs posted tasks serially on a dedicated goroutine.
//
// Pipelines use it to keep seeks off the caller's goroutine: a seek requested
// from inside a sample callback would otherwise wait on the flush of the very
// streaming thread it runs on.
type TaskQueue struct {
	mu      sync.Mutex
	tasks   []func()
	wake    chan struct{}
	done    chan struct{}
	closed  bool
	running sync.WaitGroup
	idle    *sync.Cond
	busy    bool
}

// NewTaskQueue starts the queue goroutine.
func NewTaskQueue() *TaskQueue {
	q := &TaskQueue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	q.idle = sync.NewCond(&q.mu)
	q.running.Add(1)
	go q.loop()
	return q
}

// Post enqueues fn. Posting to a closed queue is a no-op.
func (q *TaskQueue) Post(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Flush blocks until every task posted before the call has run.
func (q *TaskQueue) Flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for (len(q.tasks) > 0 || q.busy) && !q.closed {
		q.idle.Wait()
	}
}

// Close runs the remaining tasks, stops the goroutine and waits for it.
// Idempotent.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.done)
	q.running.Wait()

	q.mu.Lock()
	q.idle.Broadcast()
	q.mu.Unlock()
}

func (q *TaskQueue) loop() {
	defer q.running.Done()
	for {
		q.runPending()
		select {
		case <-q.wake:
		case <-q.done:
			q.runPending()
			return
		}
	}
}

func (q *TaskQueue) runPending() {
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.busy = false
			q.idle.Broadcast()
			q.mu.Unlock()
			return
		}
		fn := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.busy = true
		q.mu.Unlock()

		q.run(fn)
	}
}

func (q *TaskQueue) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("media: pipeline task panicked", "panic", r)
		}
	}()
	fn()
}
