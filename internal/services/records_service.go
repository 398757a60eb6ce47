package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"countdowntodo-sync/internal/merge"
	"countdowntodo-sync/internal/models"
	"countdowntodo-sync/internal/repos"
)

type PushTodoInput struct {
	Content   string `json:"content" binding:"required"`
	Completed bool   `json:"completed"`
	UpdatedAt int64  `json:"updated_at" binding:"gte=0"`
}

type PushCountdownInput struct {
	Title      string    `json:"title" binding:"required"`
	TargetTime time.Time `json:"target_time" binding:"required"`
	UpdatedAt  int64     `json:"updated_at" binding:"gte=0"`
}

type DeleteInput struct {
	UpdatedAt int64 `json:"updated_at" binding:"gte=0"`
}

type RecordService struct {
	base
	repo *repos.Repo
}

func NewRecordService(repo *repos.Repo, opts ...Option) *RecordService {
	return &RecordService{base: newBase(opts), repo: repo}
}

// kindOps binds one record kind to its storage operations.
type kindOps[R merge.Record] struct {
	name   string
	byKey  func(ctx context.Context, tx *sql.Tx, rec R) (*R, error)
	byID   func(ctx context.Context, tx *sql.Tx, ownerID string, id int64) (*R, error)
	upsert func(ctx context.Context, tx *sql.Tx, rec *R) (bool, error)
}

func (s *RecordService) todoOps() kindOps[models.TodoRecord] {
	return kindOps[models.TodoRecord]{
		name: "todo",
		byKey: func(ctx context.Context, tx *sql.Tx, t models.TodoRecord) (*models.TodoRecord, error) {
			return s.repo.GetTodoByKeyTx(ctx, tx, t.OwnerID, t.Content)
		},
		byID:   s.repo.GetTodoByIDTx,
		upsert: s.repo.UpsertTodoTx,
	}
}

func (s *RecordService) countdownOps() kindOps[models.CountdownRecord] {
	return kindOps[models.CountdownRecord]{
		name: "countdown",
		byKey: func(ctx context.Context, tx *sql.Tx, c models.CountdownRecord) (*models.CountdownRecord, error) {
			return s.repo.GetCountdownByKeyTx(ctx, tx, c.OwnerID, c.Title)
		},
		byID:   s.repo.GetCountdownByIDTx,
		upsert: s.repo.UpsertCountdownTx,
	}
}

// reconcileTx applies incoming against the stored row for the same natural
// key inside tx. The write itself is conditional on updated_at, so if another
// writer got there first the outcome degrades to discarded rather than
// overwriting a newer row.
func reconcileTx[R merge.Record](ctx context.Context, tx *sql.Tx, ops kindOps[R], incoming R) (*R, bool, error) {
	existing, err := ops.byKey(ctx, tx, incoming)
	if err != nil && !errors.Is(err, repos.ErrNotFound) {
		return nil, false, err
	}
	winner, applied := merge.Reconcile(existing, incoming)
	if applied {
		applied, err = ops.upsert(ctx, tx, &winner)
		if err != nil {
			return nil, false, err
		}
	}
	stored, err := ops.byKey(ctx, tx, incoming)
	if err != nil {
		return nil, false, err
	}
	return stored, applied, nil
}

func push[R merge.Record](ctx context.Context, s *RecordService, ops kindOps[R], incoming R) (*R, bool, error) {
	var (
		out     *R
		applied bool
	)
	err := s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, applied, err = reconcileTx(ctx, tx, ops, incoming)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	s.record(ops.name, applied)
	return out, applied, nil
}

// remove writes a tombstone for the record with the given id. It returns
// repos.ErrNotFound when the owner has no such record.
func remove[R merge.Record](ctx context.Context, s *RecordService, ops kindOps[R], ownerID string, id int64, tombstone func(R) R) (*R, bool, error) {
	var (
		out     *R
		applied bool
	)
	err := s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		existing, err := ops.byID(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		out, applied, err = reconcileTx(ctx, tx, ops, tombstone(*existing))
		return err
	})
	if err != nil {
		return nil, false, err
	}
	s.record(ops.name, applied)
	return out, applied, nil
}

func (s *RecordService) record(kind string, applied bool) {
	outcome := merge.OutcomeOf(applied)
	s.metrics.RecordPush(kind, string(outcome))
	s.logger.Debugf("%s push %s", kind, outcome)
}

func (s *RecordService) PushTodo(ctx context.Context, ownerID string, in PushTodoInput) (*models.TodoRecord, bool, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, false, invalid("content", "is required")
	}
	ts, err := s.stamp(in.UpdatedAt)
	if err != nil {
		return nil, false, err
	}
	return push(ctx, s, s.todoOps(), models.TodoRecord{
		OwnerID:   ownerID,
		Content:   in.Content,
		Completed: in.Completed,
		UpdatedAt: ts,
		CreatedAt: s.clock.Now().UTC(),
	})
}

func (s *RecordService) DeleteTodo(ctx context.Context, ownerID string, id int64, in DeleteInput) (*models.TodoRecord, bool, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, false, err
	}
	if id <= 0 {
		return nil, false, invalid("id", "must be a positive integer")
	}
	ts, err := s.stamp(in.UpdatedAt)
	if err != nil {
		return nil, false, err
	}
	return remove(ctx, s, s.todoOps(), ownerID, id, func(t models.TodoRecord) models.TodoRecord {
		t.Deleted = true
		t.UpdatedAt = ts
		return t
	})
}

// PullTodos returns all of the owner's todos including tombstones.
func (s *RecordService) PullTodos(ctx context.Context, ownerID string) ([]models.TodoRecord, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.repo.ListTodos(ctx, ownerID)
}

func (s *RecordService) PushCountdown(ctx context.Context, ownerID string, in PushCountdownInput) (*models.CountdownRecord, bool, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, false, invalid("title", "is required")
	}
	if in.TargetTime.IsZero() {
		return nil, false, invalid("target_time", "is required")
	}
	ts, err := s.stamp(in.UpdatedAt)
	if err != nil {
		return nil, false, err
	}
	return push(ctx, s, s.countdownOps(), models.CountdownRecord{
		OwnerID:    ownerID,
		Title:      in.Title,
		TargetTime: in.TargetTime.UTC(),
		UpdatedAt:  ts,
		CreatedAt:  s.clock.Now().UTC(),
	})
}

func (s *RecordService) DeleteCountdown(ctx context.Context, ownerID string, id int64, in DeleteInput) (*models.CountdownRecord, bool, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, false, err
	}
	if id <= 0 {
		return nil, false, invalid("id", "must be a positive integer")
	}
	ts, err := s.stamp(in.UpdatedAt)
	if err != nil {
		return nil, false, err
	}
	return remove(ctx, s, s.countdownOps(), ownerID, id, func(c models.CountdownRecord) models.CountdownRecord {
		c.Deleted = true
		c.UpdatedAt = ts
		return c
	})
}

func (s *RecordService) PullCountdowns(ctx context.Context, ownerID string) ([]models.CountdownRecord, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.repo.ListCountdowns(ctx, ownerID)
}
