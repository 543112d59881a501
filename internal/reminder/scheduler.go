// Package reminder arms one-shot reminder timers for todos and delivers them
// as desktop notifications or, failing that, alerts.
package reminder

import (
	"sync"
	"time"

	"daybook/internal/day"
	"daybook/internal/logs"
)

// Target identifies the todo a reminder belongs to. Text is what gets shown
// when no Resolver is configured.
type Target struct {
	Key    day.Key
	TodoID string
	Text   string
}

// Resolver looks the todo up again when its timer fires. ok=false means the
// todo is gone and the reminder is dropped.
type Resolver func(t Target) (todo day.Todo, ok bool)

type armed struct {
	timer *time.Timer
	gen   uint64
	at    time.Time
}

// Scheduler keeps at most one armed timer per todo id.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[string]armed
	gen     uint64
	stopped bool

	now     func() time.Time
	deliver *Deliverer
	resolve Resolver
	log     *logs.Logger
}

type SchedulerOption func(*Scheduler)

func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

func WithResolver(r Resolver) SchedulerOption {
	return func(s *Scheduler) { s.resolve = r }
}

func WithLogger(l *logs.Logger) SchedulerOption {
	return func(s *Scheduler) { s.log = l.WithComponent("scheduler") }
}

func NewScheduler(deliver *Deliverer, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		timers:  make(map[string]armed),
		now:     time.Now,
		deliver: deliver,
		log:     logs.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetResolver replaces the resolver used for timers that fire afterwards.
func (s *Scheduler) SetResolver(r Resolver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolve = r
}

// Schedule arms a reminder for target at the given time, replacing any
// reminder already armed for the same todo. It returns false and does
// nothing when at is not in the future.
func (s *Scheduler) Schedule(target Target, at time.Time) bool {
	delay := at.Sub(s.now())
	if delay <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if prev, ok := s.timers[target.TodoID]; ok {
		if prev.at.Equal(at) {
			return true
		}
		prev.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timers[target.TodoID] = armed{
		timer: time.AfterFunc(delay, func() { s.fire(target, gen) }),
		gen:   gen,
		at:    at,
	}
	s.log.Debugw("reminder armed", "day", target.Key, "todo", target.TodoID, "at", at, "in", delay)
	return true
}

// Cancel disarms the reminder for todoID, reporting whether one was armed.
func (s *Scheduler) Cancel(todoID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.timers[todoID]
	if !ok {
		return false
	}
	a.timer.Stop()
	delete(s.timers, todoID)
	s.log.Debugw("reminder cancelled", "todo", todoID)
	return true
}

// Armed reports whether a reminder is pending for todoID.
func (s *Scheduler) Armed(todoID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[todoID]
	return ok
}

// Pending returns the number of armed reminders.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop disarms every reminder; later Schedule calls are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.timers {
		a.timer.Stop()
		delete(s.timers, id)
	}
	s.stopped = true
}

func (s *Scheduler) fire(target Target, gen uint64) {
	s.mu.Lock()
	a, ok := s.timers[target.TodoID]
	if !ok || a.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.timers, target.TodoID)
	resolve := s.resolve
	s.mu.Unlock()

	text := target.Text
	if resolve != nil {
		todo, found := resolve(target)
		if !found {
			s.log.Debugw("reminder target gone", "day", target.Key, "todo", target.TodoID)
			return
		}
		text = todo.Text
	}
	if s.deliver != nil {
		s.deliver.Deliver(text)
	}
}
