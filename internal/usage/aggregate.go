// Package usage turns raw per-device usage counters into per-application
// totals.
package usage

import (
	"sort"
	"strings"

	"countdowntodo-sync/internal/identity"
	"countdowntodo-sync/internal/models"
)

// AllDevices is the device label used by CollapseDevices.
const AllDevices = "*"

type groupKey struct {
	name     string
	category string
	device   string
}

// Summarize resolves every sample through r and sums durations per
// (canonical name, category, device). Nothing is filtered: the result is the
// exact sum of what devices reported.
func Summarize(samples []models.UsageSample, r identity.Resolver) []models.UsageSummary {
	totals := make(map[groupKey]int64, len(samples))
	for _, s := range samples {
		id := r.Resolve(s.AppID)
		k := groupKey{name: id.CanonicalName, category: id.Category, device: s.DeviceName}
		totals[k] += s.Duration
	}
	out := make([]models.UsageSummary, 0, len(totals))
	for k, d := range totals {
		out = append(out, models.UsageSummary{
			CanonicalName: k.name,
			Category:      k.category,
			Device:        k.device,
			Duration:      d,
		})
	}
	sortSummaries(out)
	return out
}

// CollapseDevices sums rows sharing a canonical identity across devices.
func CollapseDevices(rows []models.UsageSummary) []models.UsageSummary {
	totals := make(map[groupKey]int64, len(rows))
	for _, row := range rows {
		totals[groupKey{name: row.CanonicalName, category: row.Category, device: AllDevices}] += row.Duration
	}
	out := make([]models.UsageSummary, 0, len(totals))
	for k, d := range totals {
		out = append(out, models.UsageSummary{CanonicalName: k.name, Category: k.category, Device: k.device, Duration: d})
	}
	sortSummaries(out)
	return out
}

// sortSummaries orders by duration desc, then name, category and device asc.
func sortSummaries(rows []models.UsageSummary) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Duration != b.Duration {
			return a.Duration > b.Duration
		}
		if a.CanonicalName != b.CanonicalName {
			return a.CanonicalName < b.CanonicalName
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Device < b.Device
	})
}

// FilterOptions is presentation policy applied by callers on top of Summarize.
type FilterOptions struct {
	// MinDuration drops rows shorter than this many seconds.
	MinDuration int64
}

func Filter(rows []models.UsageSummary, opts FilterOptions) []models.UsageSummary {
	out := make([]models.UsageSummary, 0, len(rows))
	for _, row := range rows {
		if row.Duration < opts.MinDuration {
			continue
		}
		out = append(out, row)
	}
	return out
}

// DropSystemApps removes samples whose raw app id is a system package. It
// must run before Summarize: once an id is mapped to a display name the
// package name is gone.
func DropSystemApps(samples []models.UsageSample) []models.UsageSample {
	out := make([]models.UsageSample, 0, len(samples))
	for _, s := range samples {
		if !IsSystemApp(s.AppID) {
			out = append(out, s)
		}
	}
	return out
}

// IsSystemApp reports raw identifiers that the mobile clients never show:
// the framework itself, the system UI and home-screen launchers.
func IsSystemApp(id string) bool {
	switch id {
	case "android", "com.android.systemui":
		return true
	}
	return strings.Contains(strings.ToLower(id), "launcher")
}
