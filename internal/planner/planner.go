// Package planner ties the day store, the todo and note services and the
// reminder scheduler together. Each mutation loads the day, applies one
// operation, saves the result and keeps armed reminders in step.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"daybook/internal/calendar"
	"daybook/internal/day"
	"daybook/internal/daystore"
	"daybook/internal/logs"
	"daybook/internal/notes"
	"daybook/internal/reminder"
	"daybook/internal/tasks"
)

const resolveTimeout = 5 * time.Second

type Planner struct {
	store    *daystore.Store
	tasks    *tasks.Service
	notes    *notes.Service
	sched    *reminder.Scheduler
	notifier reminder.Notifier
	loc      *time.Location
	log      *logs.Logger

	permOnce sync.Once
}

type Option func(*Planner)

func WithTasks(svc *tasks.Service) Option {
	return func(p *Planner) { p.tasks = svc }
}

func WithNotes(svc *notes.Service) Option {
	return func(p *Planner) { p.notes = svc }
}

func WithLocation(loc *time.Location) Option {
	return func(p *Planner) { p.loc = loc }
}

func WithLogger(l *logs.Logger) Option {
	return func(p *Planner) { p.log = l }
}

// New wires a planner and installs it as the scheduler's resolver.
// notifier may be nil.
func New(store *daystore.Store, sched *reminder.Scheduler, notifier reminder.Notifier, opts ...Option) *Planner {
	p := &Planner{
		store:    store,
		sched:    sched,
		notifier: notifier,
		loc:      time.Local,
		log:      logs.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.tasks == nil {
		p.tasks = tasks.NewService()
	}
	if p.notes == nil {
		p.notes = notes.NewService()
	}
	p.log = p.log.WithComponent("planner")
	sched.SetResolver(p.resolve)
	return p
}

// Location is the zone reminder times are read in.
func (p *Planner) Location() *time.Location {
	return p.loc
}

// Day loads the record for key and arms any of its reminders that are still
// in the future. The first call asks for notification permission.
func (p *Planner) Day(ctx context.Context, key day.Key) (day.Record, error) {
	p.requestPermission()
	rec, err := p.store.Load(ctx, key)
	if err != nil {
		return day.Record{}, err
	}
	p.arm(rec)
	return rec, nil
}

func (p *Planner) AddTodo(ctx context.Context, key day.Key, text string) (day.Record, error) {
	return p.update(ctx, key, func(rec day.Record) (day.Record, error) {
		return p.tasks.Add(rec, text), nil
	})
}

func (p *Planner) ToggleTodo(ctx context.Context, key day.Key, id string) (day.Record, error) {
	return p.update(ctx, key, func(rec day.Record) (day.Record, error) {
		return p.tasks.Toggle(rec, id), nil
	})
}

// DeleteTodo removes the todo and disarms its reminder.
func (p *Planner) DeleteTodo(ctx context.Context, key day.Key, id string) (day.Record, error) {
	rec, err := p.update(ctx, key, func(rec day.Record) (day.Record, error) {
		return p.tasks.Delete(rec, id), nil
	})
	if err != nil {
		return rec, err
	}
	p.sched.Cancel(id)
	return rec, nil
}

func (p *Planner) SetNote(ctx context.Context, key day.Key, content string) (day.Record, error) {
	return p.update(ctx, key, func(rec day.Record) (day.Record, error) {
		return p.notes.Upsert(rec, content), nil
	})
}

// SetReminder parses an HH:MM time on the todo's day, attaches it and arms
// the reminder.
func (p *Planner) SetReminder(ctx context.Context, key day.Key, id, clock string) (day.Record, time.Time, error) {
	at, err := tasks.ParseClock(clock, key, p.loc)
	if err != nil {
		return day.Record{}, time.Time{}, err
	}
	rec, err := p.update(ctx, key, func(rec day.Record) (day.Record, error) {
		return p.tasks.AttachReminder(rec, id, at)
	})
	if err != nil {
		return rec, time.Time{}, err
	}
	idx := rec.FindTodo(id)
	p.sched.Schedule(reminder.Target{Key: key, TodoID: id, Text: rec.Todos[idx].Text}, at)
	return rec, at, nil
}

// Rearm arms every future reminder stored between from and to and returns
// how many are armed afterwards. Like Day, it asks for notification
// permission the first time it runs. Malformed days are skipped and named in
// the returned error.
func (p *Planner) Rearm(ctx context.Context, from, to day.Key) (int, error) {
	p.requestPermission()
	recs, err := p.store.Range(ctx, from, to)
	if err != nil && !errors.Is(err, daystore.ErrMalformedRecord) {
		return 0, err
	}
	for _, rec := range recs {
		p.arm(rec)
	}
	return p.sched.Pending(), err
}

// Import saves each record over whatever is stored for its day and arms
// its future reminders. It stops at the first failing save.
func (p *Planner) Import(ctx context.Context, recs []day.Record) error {
	for _, rec := range recs {
		if err := p.store.Save(ctx, rec.DateKey, rec); err != nil {
			return fmt.Errorf("import %s: %w", rec.DateKey, err)
		}
		p.arm(rec)
	}
	return nil
}

// Month returns the stored records of every day in m keyed by date. When
// some days cannot be decoded the readable ones are still returned, together
// with a *daystore.MalformedDaysError naming the others.
func (p *Planner) Month(ctx context.Context, m calendar.Month) (map[day.Key]day.Record, error) {
	first := m.First()
	last := first.AddDate(0, 0, m.Days()-1)
	recs, err := p.store.Range(ctx, day.KeyOf(first), day.KeyOf(last))
	if err != nil && !errors.Is(err, daystore.ErrMalformedRecord) {
		return nil, err
	}
	out := make(map[day.Key]day.Record, len(recs))
	for _, rec := range recs {
		out[rec.DateKey] = rec
	}
	return out, err
}

// Range returns stored records between from and to inclusive.
func (p *Planner) Range(ctx context.Context, from, to day.Key) ([]day.Record, error) {
	return p.store.Range(ctx, from, to)
}

func (p *Planner) update(ctx context.Context, key day.Key, op func(day.Record) (day.Record, error)) (day.Record, error) {
	rec, err := p.store.Load(ctx, key)
	if err != nil {
		return day.Record{}, err
	}
	next, err := op(rec)
	if err != nil {
		return rec, err
	}
	if err := p.store.Save(ctx, key, next); err != nil {
		return rec, fmt.Errorf("save %s: %w", key, err)
	}
	return next, nil
}

// requestPermission asks the notifier once per planner, and only while the
// user has not decided yet.
func (p *Planner) requestPermission() {
	p.permOnce.Do(func() {
		if p.notifier != nil && p.notifier.Permission() == reminder.PermissionDefault {
			perm := p.notifier.RequestPermission()
			p.log.Infow("notification permission", "state", perm)
		}
	})
}

func (p *Planner) arm(rec day.Record) {
	for _, t := range rec.Todos {
		if t.Reminder == nil {
			continue
		}
		p.sched.Schedule(reminder.Target{Key: rec.DateKey, TodoID: t.ID, Text: t.Text}, *t.Reminder)
	}
}

func (p *Planner) resolve(target reminder.Target) (day.Todo, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	rec, err := p.store.Load(ctx, target.Key)
	if err != nil {
		p.log.Warnw("reminder lookup failed", "day", target.Key, "todo", target.TodoID, "error", err)
		return day.Todo{}, false
	}
	idx := rec.FindTodo(target.TodoID)
	if idx < 0 {
		return day.Todo{}, false
	}
	return rec.Todos[idx], true
}
