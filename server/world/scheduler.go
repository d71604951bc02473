package world

import (
	"container/heap"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// task is a unit of chunk work processed by the scheduler's workers. Tasks
// are ordered by priority: lower values run first.
type task struct {
	pos ChunkPos
	// priority is the squared distance in chunks from the nearest loader at
	// the time the task was scheduled. Save tasks use negative priorities so
	// that they always run before load work.
	priority int64
	// seq breaks priority ties in submission order.
	seq   uint64
	run   func()
	index int
}

// taskHeap implements heap.Interface over pending tasks.
type taskHeap []*task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *taskHeap) Push(x any) {
	t := x.(*task)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// scheduler runs chunk tasks on a fixed pool of workers, nearest chunks
// first. The pending queue is bounded: once full, Schedule rejects tasks so
// that a stalled disk cannot build an unbounded backlog.
type scheduler struct {
	log *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   taskHeap
	seq     uint64
	limit   int
	closing bool

	workers sync.WaitGroup

	// saturation counts how often tasks were rejected because the queue was
	// full. Warnings about it are rate-limited so operators can tune queue
	// and worker sizes without being flooded.
	saturation        atomic.Uint64
	lastSaturationLog atomic.Uint64
}

// newScheduler creates a scheduler with the number of workers and the queue
// limit passed and starts its workers.
func newScheduler(workers, limit int, log *slog.Logger) *scheduler {
	s := &scheduler{log: log, limit: limit}
	s.cond = sync.NewCond(&s.mu)

	s.workers.Add(workers)
	for range workers {
		go s.worker()
	}
	return s
}

// schedule adds a task to the queue. If the queue is full, the task is
// rejected with ErrQueueSaturated and the caller should retry later.
func (s *scheduler) schedule(pos ChunkPos, priority int64, run func()) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return ErrQueueSaturated
	}
	if len(s.queue) >= s.limit {
		s.mu.Unlock()
		s.handleBackpressure()
		return ErrQueueSaturated
	}
	s.seq++
	heap.Push(&s.queue, &task{pos: pos, priority: priority, seq: s.seq, run: run})
	s.mu.Unlock()

	s.cond.Signal()
	return nil
}

// scheduleLater schedules a task after the delay passed. It is used to
// retry failed saves with backoff. Tasks scheduled this way bypass the queue
// limit: dropping them would lose data.
func (s *scheduler) scheduleLater(pos ChunkPos, priority int64, delay time.Duration, run func()) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.closing {
			s.mu.Unlock()
			// The scheduler stopped while the timer was pending: run the
			// task directly so the save is not lost.
			run()
			return
		}
		s.seq++
		heap.Push(&s.queue, &task{pos: pos, priority: priority, seq: s.seq, run: run})
		s.mu.Unlock()
		s.cond.Signal()
	})
}

// worker runs tasks until the scheduler closes and the queue is drained.
func (s *scheduler) worker() {
	defer s.workers.Done()
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closing {
			s.cond.Wait()
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		t := heap.Pop(&s.queue).(*task)
		s.mu.Unlock()

		t.run()
	}
}

// close stops the scheduler. Workers finish every task still in the queue
// before close returns, so that no column is left stuck in a transient
// state.
func (s *scheduler) close() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.cond.Broadcast()
	s.workers.Wait()
}

// handleBackpressure increments the saturation counter and emits a throttled
// warning when the task queue saturates. This gives operators concrete
// guidance on adjusting parallelism or profiling I/O bottlenecks under heavy
// chunk load.
func (s *scheduler) handleBackpressure() {
	count := s.saturation.Add(1)
	now := uint64(time.Now().UnixNano())
	last := s.lastSaturationLog.Load()

	if last != 0 && time.Duration(now-last) < time.Minute {
		return
	}
	if !s.lastSaturationLog.CompareAndSwap(last, now) {
		return
	}

	s.log.Warn(
		"chunk task queue saturated: chunk work backlog detected.",
		"rejected_tasks", count,
		"queue_size", s.limit,
	)
}

// Saturation returns the number of tasks rejected because the queue was
// full since the scheduler started.
func (s *scheduler) Saturation() uint64 {
	return s.saturation.Load()
}
