package repos

import (
	"context"
	"database/sql"
	"time"

	"countdowntodo-sync/internal/models"
)

// ReplaceSamplesTx stores each sample as the device's current counter for its
// (owner, device, day, app) key, overwriting any earlier value.
func (r *Repo) ReplaceSamplesTx(ctx context.Context, tx *sql.Tx, samples []models.UsageSample) error {
	if len(samples) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO usage_logs (owner_id, device_name, record_date, app_id, duration, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, device_name, record_date, app_id) DO UPDATE SET
			duration = excluded.duration,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return storageErr(err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, s := range samples {
		if _, err := stmt.ExecContext(ctx, s.OwnerID, s.DeviceName, s.Day, s.AppID, s.Duration, now); err != nil {
			return storageErr(err)
		}
	}
	return nil
}

func (r *Repo) ListSamples(ctx context.Context, ownerID, day string) ([]models.UsageSample, error) {
	out := make([]models.UsageSample, 0)
	err := r.x.SelectContext(ctx, &out, `
		SELECT owner_id, device_name, record_date, app_id, duration
		FROM usage_logs
		WHERE owner_id = ? AND record_date = ?
		ORDER BY device_name, app_id
	`, ownerID, day)
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}
