package repos

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"countdowntodo-sync/internal/db/dbtest"
	"countdowntodo-sync/internal/models"
)

func TestUpsertTodoIsConditionalOnUpdatedAt(t *testing.T) {
	ctx := context.Background()
	r := New(dbtest.New(t))
	now := time.Now().UTC()

	write := func(rec models.TodoRecord) bool {
		var ok bool
		require.NoError(t, r.WithTx(ctx, func(tx *sql.Tx) error {
			var err error
			ok, err = r.UpsertTodoTx(ctx, tx, &rec)
			return err
		}))
		return ok
	}

	require.True(t, write(models.TodoRecord{OwnerID: "1", Content: "buy milk", UpdatedAt: 100, CreatedAt: now}))
	require.False(t, write(models.TodoRecord{OwnerID: "1", Content: "buy milk", Completed: true, UpdatedAt: 100, CreatedAt: now}))
	require.False(t, write(models.TodoRecord{OwnerID: "1", Content: "buy milk", Completed: true, UpdatedAt: 50, CreatedAt: now}))
	require.True(t, write(models.TodoRecord{OwnerID: "1", Content: "buy milk", Deleted: true, UpdatedAt: 200, CreatedAt: now}))

	todos, err := r.ListTodos(ctx, "1")
	require.NoError(t, err)
	require.Len(t, todos, 1)
	require.True(t, todos[0].Deleted)
	require.False(t, todos[0].Completed)
	require.EqualValues(t, 200, todos[0].UpdatedAt)

	empty, err := r.ListTodos(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestCountdownLookupByKeyAndID(t *testing.T) {
	ctx := context.Background()
	r := New(dbtest.New(t))
	target := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, r.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := r.UpsertCountdownTx(ctx, tx, &models.CountdownRecord{
			OwnerID: "u", Title: "exam", TargetTime: target, UpdatedAt: 10, CreatedAt: time.Now(),
		})
		return err
	}))

	require.NoError(t, r.WithTx(ctx, func(tx *sql.Tx) error {
		byKey, err := r.GetCountdownByKeyTx(ctx, tx, "u", "exam")
		require.NoError(t, err)
		require.True(t, target.Equal(byKey.TargetTime))

		byID, err := r.GetCountdownByIDTx(ctx, tx, "u", byKey.ID)
		require.NoError(t, err)
		require.Equal(t, byKey.Title, byID.Title)

		_, err = r.GetCountdownByIDTx(ctx, tx, "someone-else", byKey.ID)
		require.ErrorIs(t, err, ErrNotFound)
		return nil
	}))
}

func TestReplaceSamplesOverwritesCounter(t *testing.T) {
	ctx := context.Background()
	r := New(dbtest.New(t))

	push := func(d int64) {
		require.NoError(t, r.WithTx(ctx, func(tx *sql.Tx) error {
			return r.ReplaceSamplesTx(ctx, tx, []models.UsageSample{
				{OwnerID: "u", DeviceName: "phone", Day: "2026-10-15", AppID: "pkg.a", Duration: d},
			})
		}))
	}
	push(300)
	push(120)

	samples, err := r.ListSamples(ctx, "u", "2026-10-15")
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.EqualValues(t, 120, samples[0].Duration)
}

func TestReplaceMappings(t *testing.T) {
	ctx := context.Background()
	r := New(dbtest.New(t))

	require.NoError(t, r.ReplaceMappings(ctx, []models.IdentityMapping{
		{AppID: "com.tencent.mm", CanonicalName: "WeChat", Category: "Social"},
		{AppID: "Weixin.exe", CanonicalName: "WeChat", Category: "Social"},
	}))
	require.NoError(t, r.ReplaceMappings(ctx, []models.IdentityMapping{
		{AppID: "Weixin.exe", CanonicalName: "WeChat", Category: "Chat"},
	}))
	require.NoError(t, r.UpsertMappings(ctx, []models.IdentityMapping{
		{AppID: "code.exe", CanonicalName: "VS Code", Category: "Productivity"},
	}))

	ms, err := r.ListMappings(ctx)
	require.NoError(t, err)
	require.Equal(t, []models.IdentityMapping{
		{AppID: "Weixin.exe", CanonicalName: "WeChat", Category: "Chat"},
		{AppID: "code.exe", CanonicalName: "VS Code", Category: "Productivity"},
	}, ms)
}

func TestResetKeepsMappings(t *testing.T) {
	ctx := context.Background()
	r := New(dbtest.New(t))
	require.NoError(t, r.UpsertMappings(ctx, []models.IdentityMapping{{AppID: "a", CanonicalName: "A", Category: "X"}}))
	require.NoError(t, r.InsertScore(ctx, &models.LeaderboardEntry{OwnerID: "u", Username: "n", Score: 1, PlayedAt: time.Now()}))

	require.NoError(t, r.Reset(ctx))

	top, err := r.TopScores(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, top)
	ms, err := r.ListMappings(ctx)
	require.NoError(t, err)
	require.Len(t, ms, 1)
}
