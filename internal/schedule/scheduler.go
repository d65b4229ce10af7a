package schedule

import (
	"container/heap"
	"time"
)

// Kind names a class of scheduled work for an entity (respawn, regen, ...).
type Kind string

// Key identifies one scheduled task. At most one task exists per key;
// scheduling again replaces the pending task.
type Key struct {
	EntityID string
	Kind     Kind
}

// Func runs when a task comes due. now is the simulation time the task
// fired at, not its original due time.
type Func func(now time.Duration)

type task struct {
	key       Key
	due       time.Duration
	seq       uint64
	fn        Func
	index     int
	cancelled bool
}

// Scheduler runs cancellable tasks against simulation time. It is driven by
// the tick loop and is not safe for concurrent use.
type Scheduler struct {
	now   time.Duration
	seq   uint64
	tasks map[Key]*task
	queue taskQueue
}

// New constructs an empty scheduler at time zero.
func New() *Scheduler {
	return &Scheduler{tasks: make(map[Key]*task)}
}

// Now reports the simulation time of the last Advance.
func (s *Scheduler) Now() time.Duration {
	if s == nil {
		return 0
	}
	return s.now
}

// Schedule registers fn to run delay after the current time, replacing any
// task already pending under the same key.
func (s *Scheduler) Schedule(key Key, delay time.Duration, fn Func) {
	if s == nil || fn == nil {
		return
	}
	if delay < 0 {
		delay = 0
	}
	s.Cancel(key)
	s.seq++
	t := &task{key: key, due: s.now + delay, seq: s.seq, fn: fn}
	s.tasks[key] = t
	heap.Push(&s.queue, t)
}

// Cancel drops the task pending under key. It reports whether one existed.
func (s *Scheduler) Cancel(key Key) bool {
	if s == nil {
		return false
	}
	t, ok := s.tasks[key]
	if !ok {
		return false
	}
	t.cancelled = true
	delete(s.tasks, key)
	if t.index >= 0 {
		heap.Remove(&s.queue, t.index)
	}
	return true
}

// CancelEntity drops every task owned by the entity and returns how many
// were pending.
func (s *Scheduler) CancelEntity(entityID string) int {
	if s == nil {
		return 0
	}
	cancelled := 0
	for key := range s.tasks {
		if key.EntityID == entityID {
			if s.Cancel(key) {
				cancelled++
			}
		}
	}
	return cancelled
}

// Pending reports the due time of the task under key.
func (s *Scheduler) Pending(key Key) (time.Duration, bool) {
	if s == nil {
		return 0, false
	}
	t, ok := s.tasks[key]
	if !ok {
		return 0, false
	}
	return t.due, true
}

// Len reports the number of pending tasks.
func (s *Scheduler) Len() int {
	if s == nil {
		return 0
	}
	return len(s.tasks)
}

// Advance moves simulation time forward and runs every task due at or
// before now, ordered by due time and then registration order. Tasks
// scheduled by a running task are eligible in the same call.
func (s *Scheduler) Advance(now time.Duration) int {
	if s == nil {
		return 0
	}
	if now > s.now {
		s.now = now
	}
	ran := 0
	for s.queue.Len() > 0 {
		next := s.queue[0]
		if next.due > s.now {
			break
		}
		heap.Pop(&s.queue)
		if next.cancelled {
			continue
		}
		delete(s.tasks, next.key)
		next.fn(s.now)
		ran++
	}
	return ran
}

type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].due == q[j].due {
		return q[i].seq < q[j].seq
	}
	return q[i].due < q[j].due
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
