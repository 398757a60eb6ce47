package services

import (
	"context"
	"database/sql"
	"strings"

	"countdowntodo-sync/internal/identity"
	"countdowntodo-sync/internal/models"
	"countdowntodo-sync/internal/repos"
	"countdowntodo-sync/internal/usage"
)

type UsageApp struct {
	AppID    string `json:"app_id" binding:"required"`
	Duration int64  `json:"duration" binding:"gte=0"`
}

type PushUsageInput struct {
	Device string     `json:"device" binding:"required"`
	Day    string     `json:"day" binding:"required,day"`
	Apps   []UsageApp `json:"apps" binding:"required,dive"`
}

type UsageService struct {
	base
	repo *repos.Repo
}

func NewUsageService(repo *repos.Repo, opts ...Option) *UsageService {
	return &UsageService{base: newBase(opts), repo: repo}
}

// PushUsageBatch replaces the device's counters for the day. When the same
// identifier appears twice in one batch the later entry wins.
func (s *UsageService) PushUsageBatch(ctx context.Context, ownerID string, in PushUsageInput) (int, error) {
	if err := requireOwner(ownerID); err != nil {
		return 0, err
	}
	device := strings.TrimSpace(in.Device)
	if device == "" {
		return 0, invalid("device", "is required")
	}
	day, err := parseDay(in.Day)
	if err != nil {
		return 0, err
	}

	index := make(map[string]int, len(in.Apps))
	samples := make([]models.UsageSample, 0, len(in.Apps))
	for i, app := range in.Apps {
		appID := strings.TrimSpace(app.AppID)
		if appID == "" {
			return 0, invalid("apps", "entry %d: app_id is required", i)
		}
		if app.Duration < 0 {
			return 0, invalid("apps", "entry %d: duration must not be negative", i)
		}
		smp := models.UsageSample{OwnerID: ownerID, DeviceName: device, Day: day, AppID: appID, Duration: app.Duration}
		if at, ok := index[appID]; ok {
			samples[at] = smp
			continue
		}
		index[appID] = len(samples)
		samples = append(samples, smp)
	}

	err = s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		return s.repo.ReplaceSamplesTx(ctx, tx, samples)
	})
	if err != nil {
		return 0, err
	}
	s.metrics.RecordUsageSamples(len(samples))
	s.logger.Debugf("stored %d usage samples for device %q on %s", len(samples), device, day)
	return len(samples), nil
}

// SummaryOption narrows what PullUsageSummary aggregates.
type SummaryOption func(*summaryOptions)

type summaryOptions struct {
	excludeSystem bool
}

// ExcludeSystemApps drops system packages by their raw app id before the
// mapping join.
func ExcludeSystemApps() SummaryOption {
	return func(o *summaryOptions) { o.excludeSystem = true }
}

// PullUsageSummary aggregates the owner's samples for day. The mapping table
// is read fresh on every call.
func (s *UsageService) PullUsageSummary(ctx context.Context, ownerID, day string, opts ...SummaryOption) ([]models.UsageSummary, error) {
	var o summaryOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	day, err := parseDay(day)
	if err != nil {
		return nil, err
	}
	samples, err := s.repo.ListSamples(ctx, ownerID, day)
	if err != nil {
		return nil, err
	}
	if o.excludeSystem {
		samples = usage.DropSystemApps(samples)
	}
	ms, err := s.repo.ListMappings(ctx)
	if err != nil {
		return nil, err
	}
	return usage.Summarize(samples, identity.NewTable(ms)), nil
}
