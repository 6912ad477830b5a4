// Package notify delivers delayed follow-up messages.
//
// Tasks are fire-and-forget: once scheduled they are not tied to any
// conversation and nothing can cancel them short of stopping the dispatcher.
package notify

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sender delivers a plain text message to a chat
type Sender interface {
	SendText(chatID int64, text string) error
}

// Task is a message due at a point in time
type Task struct {
	At     time.Time
	ChatID int64
	Text   string
}

// Scheduler is a time-ordered task queue consumed by a single dispatcher loop
type Scheduler struct {
	sender Sender
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	queue taskQueue
	wake  chan struct{}
}

// Option configures the Scheduler
type Option func(*Scheduler)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// New creates a Scheduler. Run must be started for tasks to fire.
func New(sender Sender, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		sender: sender,
		logger: logger.With("component", "notify"),
		now:    time.Now,
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule queues text for chatID after delay
func (s *Scheduler) Schedule(chatID int64, delay time.Duration, text string) {
	s.mu.Lock()
	heap.Push(&s.queue, Task{At: s.now().Add(delay), ChatID: chatID, Text: text})
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of tasks that have not fired yet
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Run dispatches due tasks until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		for _, task := range s.due() {
			if err := s.sender.SendText(task.ChatID, task.Text); err != nil {
				s.logger.Error("failed to deliver scheduled message", "chat_id", task.ChatID, "error", err)
				continue
			}
			s.logger.Debug("scheduled message delivered", "chat_id", task.ChatID)
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.nextWait())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		case <-timer.C:
		}
	}
}

// due pops every task whose time has come
func (s *Scheduler) due() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var tasks []Task
	for s.queue.Len() > 0 && !s.queue[0].At.After(now) {
		tasks = append(tasks, heap.Pop(&s.queue).(Task))
	}
	return tasks
}

func (s *Scheduler) nextWait() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.Len() == 0 {
		return time.Hour
	}
	wait := s.queue[0].At.Sub(s.now())
	if wait < 0 {
		return 0
	}
	return wait
}

// taskQueue implements heap.Interface ordered by due time
type taskQueue []Task

func (q taskQueue) Len() int           { return len(q) }
func (q taskQueue) Less(i, j int) bool { return q[i].At.Before(q[j].At) }
func (q taskQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *taskQueue) Push(x any) {
	*q = append(*q, x.(Task))
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	task := old[n-1]
	*q = old[:n-1]
	return task
}
