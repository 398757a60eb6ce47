package repos

import (
	"context"
	"database/sql"

	"countdowntodo-sync/internal/models"
)

func (r *Repo) ListMappings(ctx context.Context) ([]models.IdentityMapping, error) {
	out := make([]models.IdentityMapping, 0)
	err := r.x.SelectContext(ctx, &out, `
		SELECT app_id, canonical_name, category
		FROM app_identity_mappings
		ORDER BY app_id
	`)
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

// ReplaceMappings swaps the whole table for ms in one transaction.
func (r *Repo) ReplaceMappings(ctx context.Context, ms []models.IdentityMapping) error {
	return r.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM app_identity_mappings`); err != nil {
			return storageErr(err)
		}
		return upsertMappingsTx(ctx, tx, ms)
	})
}

func (r *Repo) UpsertMappings(ctx context.Context, ms []models.IdentityMapping) error {
	return r.WithTx(ctx, func(tx *sql.Tx) error {
		return upsertMappingsTx(ctx, tx, ms)
	})
}

func upsertMappingsTx(ctx context.Context, tx *sql.Tx, ms []models.IdentityMapping) error {
	for _, m := range ms {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO app_identity_mappings (app_id, canonical_name, category)
			VALUES (?, ?, ?)
			ON CONFLICT(app_id) DO UPDATE SET
				canonical_name = excluded.canonical_name,
				category = excluded.category
		`, m.AppID, m.CanonicalName, m.Category)
		if err != nil {
			return storageErr(err)
		}
	}
	return nil
}
