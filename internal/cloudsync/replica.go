package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/coder/quartz"

	"countdowntodo-sync/internal/logging"
	"countdowntodo-sync/internal/merge"
	"countdowntodo-sync/internal/models"
	"countdowntodo-sync/internal/services"
)

type Status struct {
	Connected   bool      `json:"connected"`
	LastSuccess time.Time `json:"last_success"`
	LastError   string    `json:"last_error"`
	Pending     int       `json:"pending"`
}

// Replica is a device-local copy of the owner's todos and countdowns. Local
// edits are stamped once and stay pending until the server has seen them, so
// a retried push carries the original timestamp.
type Replica struct {
	mu sync.Mutex

	client   *Client
	clock    quartz.Clock
	logger   *logging.Logger
	interval time.Duration

	todos             map[string]models.TodoRecord
	countdowns        map[string]models.CountdownRecord
	pendingTodos      map[string]struct{}
	pendingCountdowns map[string]struct{}

	status Status
}

type ReplicaOption func(*Replica)

func WithClock(c quartz.Clock) ReplicaOption { return func(r *Replica) { r.clock = c } }

func WithLogger(l *logging.Logger) ReplicaOption { return func(r *Replica) { r.logger = l } }

func WithInterval(d time.Duration) ReplicaOption { return func(r *Replica) { r.interval = d } }

func NewReplica(client *Client, opts ...ReplicaOption) *Replica {
	r := &Replica{
		client:            client,
		clock:             quartz.NewReal(),
		logger:            logging.Discard(),
		interval:          time.Minute,
		todos:             map[string]models.TodoRecord{},
		countdowns:        map[string]models.CountdownRecord{},
		pendingTodos:      map[string]struct{}{},
		pendingCountdowns: map[string]struct{}{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// stampAfter returns the current time in milliseconds, bumped past prev so a
// local edit always supersedes the version it was made on.
func (r *Replica) stampAfter(prev int64) int64 {
	now := r.clock.Now().UnixMilli()
	if now <= prev {
		return prev + 1
	}
	return now
}

func (r *Replica) SetTodo(content string, completed bool) models.TodoRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.todos[content]
	cur.Content = content
	cur.Completed = completed
	cur.Deleted = false
	cur.UpdatedAt = r.stampAfter(cur.UpdatedAt)
	r.todos[content] = cur
	r.pendingTodos[content] = struct{}{}
	return cur
}

// DeleteTodo tombstones a known todo. It reports false when the replica has
// never seen content.
func (r *Replica) DeleteTodo(content string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.todos[content]
	if !ok || cur.Deleted {
		return ok
	}
	cur.Deleted = true
	cur.UpdatedAt = r.stampAfter(cur.UpdatedAt)
	r.todos[content] = cur
	r.pendingTodos[content] = struct{}{}
	return true
}

func (r *Replica) SetCountdown(title string, target time.Time) models.CountdownRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.countdowns[title]
	cur.Title = title
	cur.TargetTime = target.UTC()
	cur.Deleted = false
	cur.UpdatedAt = r.stampAfter(cur.UpdatedAt)
	r.countdowns[title] = cur
	r.pendingCountdowns[title] = struct{}{}
	return cur
}

func (r *Replica) DeleteCountdown(title string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.countdowns[title]
	if !ok || cur.Deleted {
		return ok
	}
	cur.Deleted = true
	cur.UpdatedAt = r.stampAfter(cur.UpdatedAt)
	r.countdowns[title] = cur
	r.pendingCountdowns[title] = struct{}{}
	return true
}

// Todos returns the live todos ordered by content.
func (r *Replica) Todos() []models.TodoRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.TodoRecord, 0, len(r.todos))
	for _, t := range r.todos {
		if !t.Deleted {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Content < out[j].Content })
	return out
}

// Countdowns returns the live countdowns, soonest first.
func (r *Replica) Countdowns() []models.CountdownRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.CountdownRecord, 0, len(r.countdowns))
	for _, c := range r.countdowns {
		if !c.Deleted {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TargetTime.Equal(out[j].TargetTime) {
			return out[i].TargetTime.Before(out[j].TargetTime)
		}
		return out[i].Title < out[j].Title
	})
	return out
}

func (r *Replica) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.status
	s.Pending = len(r.pendingTodos) + len(r.pendingCountdowns)
	return s
}

func (r *Replica) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.SyncOnce(ctx); err != nil {
				r.logger.Warnf("cloudsync: %v", err)
			}
		}
	}
}

// SyncOnce pulls first, so records created elsewhere lend their server ids
// to pending local edits, then pushes whatever is still pending.
func (r *Replica) SyncOnce(ctx context.Context) error {
	err := r.syncOnce(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.status.Connected = false
		r.status.LastError = err.Error()
		return err
	}
	r.status.Connected = true
	r.status.LastError = ""
	r.status.LastSuccess = r.clock.Now()
	return nil
}

func (r *Replica) syncOnce(ctx context.Context) error {
	todos, err := r.client.PullTodos(ctx)
	if err != nil {
		return fmt.Errorf("pull todos: %w", err)
	}
	cds, err := r.client.PullCountdowns(ctx)
	if err != nil {
		return fmt.Errorf("pull countdowns: %w", err)
	}
	r.mu.Lock()
	for _, t := range todos {
		r.applyTodo(t)
	}
	for _, c := range cds {
		r.applyCountdown(c)
	}
	r.mu.Unlock()

	if err := r.pushTodos(ctx); err != nil {
		return err
	}
	return r.pushCountdowns(ctx)
}

// applyTodo folds a server record into the cache. Must hold r.mu.
func (r *Replica) applyTodo(remote models.TodoRecord) {
	var existing *models.TodoRecord
	if cur, ok := r.todos[remote.Content]; ok {
		existing = &cur
	}
	merged, replaced := merge.Reconcile(existing, remote)
	merged.ID = remote.ID
	r.todos[remote.Content] = merged
	if replaced {
		delete(r.pendingTodos, remote.Content)
	}
}

func (r *Replica) applyCountdown(remote models.CountdownRecord) {
	var existing *models.CountdownRecord
	if cur, ok := r.countdowns[remote.Title]; ok {
		existing = &cur
	}
	merged, replaced := merge.Reconcile(existing, remote)
	merged.ID = remote.ID
	r.countdowns[remote.Title] = merged
	if replaced {
		delete(r.pendingCountdowns, remote.Title)
	}
}

func (r *Replica) pendingTodoSnapshot() []models.TodoRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.TodoRecord, 0, len(r.pendingTodos))
	for k := range r.pendingTodos {
		out = append(out, r.todos[k])
	}
	return out
}

func (r *Replica) pushTodos(ctx context.Context) error {
	for _, t := range r.pendingTodoSnapshot() {
		var (
			remote *models.TodoRecord
			err    error
		)
		switch {
		case !t.Deleted:
			var res *PushResult[models.TodoRecord]
			if res, err = r.client.PushTodo(ctx, services.PushTodoInput{Content: t.Content, Completed: t.Completed, UpdatedAt: t.UpdatedAt}); err == nil {
				remote = &res.Record
			}
		case t.ID != 0:
			var res *DeleteResult[models.TodoRecord]
			if res, err = r.client.DeleteTodo(ctx, t.ID, t.UpdatedAt); err == nil {
				remote = res.Record
			}
		}
		if err != nil {
			var rej *RejectedError
			if errors.As(err, &rej) {
				r.logger.Warnf("cloudsync: dropping todo %q rejected by server: %v", t.Content, err)
				r.settleTodo(t, nil)
				continue
			}
			return fmt.Errorf("push todo %q: %w", t.Content, err)
		}
		r.settleTodo(t, remote)
	}
	return nil
}

// settleTodo clears the pending mark unless the record was edited again while
// the push was in flight. A nil remote means the server never held the record.
func (r *Replica) settleTodo(sent models.TodoRecord, remote *models.TodoRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if remote != nil {
		r.applyTodo(*remote)
	}
	if cur := r.todos[sent.Content]; cur.UpdatedAt == sent.UpdatedAt {
		delete(r.pendingTodos, sent.Content)
	}
}

func (r *Replica) pendingCountdownSnapshot() []models.CountdownRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.CountdownRecord, 0, len(r.pendingCountdowns))
	for k := range r.pendingCountdowns {
		out = append(out, r.countdowns[k])
	}
	return out
}

func (r *Replica) pushCountdowns(ctx context.Context) error {
	for _, c := range r.pendingCountdownSnapshot() {
		var (
			remote *models.CountdownRecord
			err    error
		)
		switch {
		case !c.Deleted:
			var res *PushResult[models.CountdownRecord]
			in := services.PushCountdownInput{Title: c.Title, TargetTime: c.TargetTime, UpdatedAt: c.UpdatedAt}
			if res, err = r.client.PushCountdown(ctx, in); err == nil {
				remote = &res.Record
			}
		case c.ID != 0:
			var res *DeleteResult[models.CountdownRecord]
			if res, err = r.client.DeleteCountdown(ctx, c.ID, c.UpdatedAt); err == nil {
				remote = res.Record
			}
		}
		if err != nil {
			var rej *RejectedError
			if errors.As(err, &rej) {
				r.logger.Warnf("cloudsync: dropping countdown %q rejected by server: %v", c.Title, err)
				r.settleCountdown(c, nil)
				continue
			}
			return fmt.Errorf("push countdown %q: %w", c.Title, err)
		}
		r.settleCountdown(c, remote)
	}
	return nil
}

func (r *Replica) settleCountdown(sent models.CountdownRecord, remote *models.CountdownRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if remote != nil {
		r.applyCountdown(*remote)
	}
	if cur := r.countdowns[sent.Title]; cur.UpdatedAt == sent.UpdatedAt {
		delete(r.pendingCountdowns, sent.Title)
	}
}
