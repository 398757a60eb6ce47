package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"countdowntodo-sync/internal/db/dbtest"
	"countdowntodo-sync/internal/models"
	"countdowntodo-sync/internal/repos"
)

func setupUsage(t *testing.T) (*UsageService, *MappingService) {
	t.Helper()
	repo := repos.New(dbtest.New(t))
	return NewUsageService(repo), NewMappingService(repo)
}

func TestUsageAggregationPerDevice(t *testing.T) {
	ctx := context.Background()
	us, ms := setupUsage(t)

	_, err := ms.ReplaceMappings(ctx, []models.IdentityMapping{
		{AppID: "pkg.a", CanonicalName: "MyApp", Category: "Productivity"},
		{AppID: "pkg.b", CanonicalName: "MyApp", Category: "Productivity"},
	})
	require.NoError(t, err)

	n, err := us.PushUsageBatch(ctx, "u", PushUsageInput{Device: "d1", Day: "2026-10-15", Apps: []UsageApp{{AppID: "pkg.a", Duration: 600}}})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	_, err = us.PushUsageBatch(ctx, "u", PushUsageInput{Device: "d2", Day: "2026-10-15", Apps: []UsageApp{{AppID: "pkg.b", Duration: 300}}})
	require.NoError(t, err)

	got, err := us.PullUsageSummary(ctx, "u", "2026-10-15")
	require.NoError(t, err)
	require.Equal(t, []models.UsageSummary{
		{CanonicalName: "MyApp", Category: "Productivity", Device: "d1", Duration: 600},
		{CanonicalName: "MyApp", Category: "Productivity", Device: "d2", Duration: 300},
	}, got)
}

func TestUsagePushReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	us, _ := setupUsage(t)

	push := func(apps ...UsageApp) {
		_, err := us.PushUsageBatch(ctx, "u", PushUsageInput{Device: " phone ", Day: "2026-10-15", Apps: apps})
		require.NoError(t, err)
	}
	push(UsageApp{AppID: "x", Duration: 100}, UsageApp{AppID: "y", Duration: 50})
	push(UsageApp{AppID: "x", Duration: 160}, UsageApp{AppID: "x", Duration: 170})

	got, err := us.PullUsageSummary(ctx, "u", "2026-10-15")
	require.NoError(t, err)
	require.Equal(t, []models.UsageSummary{
		{CanonicalName: "x", Category: models.Unclassified, Device: "phone", Duration: 170},
		{CanonicalName: "y", Category: models.Unclassified, Device: "phone", Duration: 50},
	}, got)

	other, err := us.PullUsageSummary(ctx, "u", "2026-10-14")
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestUsageSummaryFollowsMappingChanges(t *testing.T) {
	ctx := context.Background()
	us, ms := setupUsage(t)
	_, err := us.PushUsageBatch(ctx, "u", PushUsageInput{Device: "pc", Day: "2026-10-15", Apps: []UsageApp{{AppID: "Weixin.exe", Duration: 90}}})
	require.NoError(t, err)

	got, err := us.PullUsageSummary(ctx, "u", "2026-10-15")
	require.NoError(t, err)
	require.Equal(t, "Weixin.exe", got[0].CanonicalName)
	require.Equal(t, models.Unclassified, got[0].Category)

	_, err = ms.ReplaceMappings(ctx, []models.IdentityMapping{{AppID: "Weixin.exe", CanonicalName: "WeChat", Category: "Social"}})
	require.NoError(t, err)

	got, err = us.PullUsageSummary(ctx, "u", "2026-10-15")
	require.NoError(t, err)
	require.Equal(t, "WeChat", got[0].CanonicalName)
	require.Equal(t, "Social", got[0].Category)
}

func TestUsageValidation(t *testing.T) {
	ctx := context.Background()
	us, _ := setupUsage(t)
	var ve *ValidationError

	cases := []PushUsageInput{
		{Device: "", Day: "2026-10-15"},
		{Device: "d", Day: "15/10/2026"},
		{Device: "d", Day: "2026-10-15", Apps: []UsageApp{{AppID: " ", Duration: 1}}},
		{Device: "d", Day: "2026-10-15", Apps: []UsageApp{{AppID: "a", Duration: -1}}},
	}
	for _, in := range cases {
		_, err := us.PushUsageBatch(ctx, "u", in)
		require.True(t, errors.As(err, &ve), "%+v", in)
	}

	_, err := us.PullUsageSummary(ctx, "u", "yesterday")
	require.True(t, errors.As(err, &ve))
}

func TestMappingImportFile(t *testing.T) {
	ctx := context.Background()
	_, ms := setupUsage(t)
	path := filepath.Join(t.TempDir(), "mappings.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[mappings]]
app_id = "com.tencent.mm"
canonical_name = "WeChat"
category = "Social"
`), 0o644))

	n, err := ms.ImportFile(ctx, path, false)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	all, err := ms.PullIdentityMappings(ctx)
	require.NoError(t, err)
	require.Equal(t, []models.IdentityMapping{{AppID: "com.tencent.mm", CanonicalName: "WeChat", Category: "Social"}}, all)

	_, err = ms.ReplaceMappings(ctx, []models.IdentityMapping{{AppID: "", CanonicalName: "x"}})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
}

func TestLeaderboardOrdering(t *testing.T) {
	ctx := context.Background()
	clk := quartz.NewMock(t)
	clk.Set(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))
	lb := NewLeaderboardService(repos.New(dbtest.New(t)), WithClock(clk))

	for _, in := range []SubmitScoreInput{
		{Username: "slow", Score: 90, Duration: 120},
		{Username: "fast", Score: 90, Duration: 60},
		{Username: "best", Score: 100, Duration: 300},
		{Username: "low", Score: 10, Duration: 10},
	} {
		_, err := lb.Submit(ctx, "u", in)
		require.NoError(t, err)
	}

	top, err := lb.Top(ctx, 3)
	require.NoError(t, err)
	names := []string{top[0].Username, top[1].Username, top[2].Username}
	require.Equal(t, []string{"best", "fast", "slow"}, names)

	all, err := lb.Top(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
}

func TestExcludeSystemAppsIgnoresDisplayNames(t *testing.T) {
	ctx := context.Background()
	us, ms := setupUsage(t)

	_, err := ms.ReplaceMappings(ctx, []models.IdentityMapping{
		{AppID: "com.android.systemui", CanonicalName: "System UI", Category: "System"},
	})
	require.NoError(t, err)
	_, err = us.PushUsageBatch(ctx, "u", PushUsageInput{Device: "phone", Day: "2026-10-15", Apps: []UsageApp{
		{AppID: "com.android.systemui", Duration: 900},
		{AppID: "com.tencent.mm", Duration: 120},
	}})
	require.NoError(t, err)

	all, err := us.PullUsageSummary(ctx, "u", "2026-10-15")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "System UI", all[0].CanonicalName)

	got, err := us.PullUsageSummary(ctx, "u", "2026-10-15", ExcludeSystemApps())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "com.tencent.mm", got[0].CanonicalName)
}
